// File: api/reactor.go
// Author: momentics <momentics@gmail.com>
//
// Driver contract between a readiness poller (epoll, kqueue, IOCP, ...)
// and the objects it wakes. The library ships no poller of its own.

package api

import "github.com/alubinski/webnet/socket"

// Readiness is a set of readiness conditions.
type Readiness uint8

const (
	Readable Readiness = 1 << iota
	Writable
	Hangup
)

// Event encapsulates the result of an OS-level readiness notification
type Event struct {
	Handle socket.Handle
	Ready  Readiness
}

// Reactor defines the common interface for an event-loop that dispatches I/O events
// regardless of specific polling mechanism used.
type Reactor interface {
	// Register must associate a socket handle with the event loop
	Register(h socket.Handle, interest Readiness) error

	// Unregister must stop reporting events for h
	Unregister(h socket.Handle) error

	// Wait must block and fill events into output buffer when IO is ready
	Wait(events []Event) (int, error)

	// Close must cleanup the internal poller backend
	Close() error
}

// Dispatch forwards ev to target. A hangup counts as both readable and
// writable so suspended operations observe the failure.
func Dispatch(ev Event, target any) {
	ready := ev.Ready
	if ready&Hangup != 0 {
		ready |= Readable | Writable
	}
	if r, ok := target.(ReadNotifier); ok && ready&Readable != 0 {
		r.NotifyReadable()
	}
	if w, ok := target.(WriteNotifier); ok && ready&Writable != 0 {
		w.NotifyWritable()
	}
}
