// File: task/co.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Coroutine frame and continuation slot.

package task

import (
	"context"
	"sync"
)

// Co is the frame of a running task body.
type Co struct {
	ctx    context.Context
	cancel context.CancelFunc
	wake   chan struct{}

	mu       sync.Mutex
	parked   *Waiter
	awaiting *Co
}

func newCo() *Co {
	ctx, cancel := context.WithCancel(context.Background())
	return &Co{ctx: ctx, cancel: cancel, wake: make(chan struct{}, 1)}
}

// Context is canceled when the frame is destroyed.
func (co *Co) Context() context.Context { return co.ctx }

// Destroyed reports whether the owning task was destroyed.
func (co *Co) Destroyed() bool { return co.ctx.Err() != nil }

// Suspend parks the frame in w until w.Resume, a drive re-poll, or
// destruction. A re-poll can return nil before the awaited condition
// holds, so callers check it again. It returns ErrWaiterBusy if w holds another frame and
// ErrDestroyed if the frame was destroyed while parked.
func (co *Co) Suspend(w *Waiter) error {
	return co.SuspendUnlock(w, nil)
}

// SuspendUnlock parks like Suspend, releasing l once the frame is
// installed in w and re-acquiring it before returning. A Resume issued
// under l can therefore not be lost.
func (co *Co) SuspendUnlock(w *Waiter, l sync.Locker) error {
	if co.Destroyed() {
		return ErrDestroyed
	}
	if err := w.install(co); err != nil {
		return err
	}
	co.mu.Lock()
	co.parked = w
	co.mu.Unlock()
	if l != nil {
		l.Unlock()
	}

	select {
	case <-co.wake:
	case <-co.ctx.Done():
	}

	co.mu.Lock()
	co.parked = nil
	co.mu.Unlock()
	w.remove(co)
	if l != nil {
		l.Lock()
	}
	if co.Destroyed() {
		return ErrDestroyed
	}
	return nil
}

func (co *Co) signal() {
	select {
	case co.wake <- struct{}{}:
	default:
	}
}

func (co *Co) setAwaiting(child *Co) {
	co.mu.Lock()
	co.awaiting = child
	co.mu.Unlock()
}

// chain returns co and every frame it is transitively awaiting.
func (co *Co) chain() []*Co {
	var frames []*Co
	for c := co; c != nil; {
		frames = append(frames, c)
		c.mu.Lock()
		next := c.awaiting
		c.mu.Unlock()
		c = next
	}
	return frames
}

// poke wakes the innermost suspension so it re-polls its condition.
func (co *Co) poke() {
	for _, c := range co.chain() {
		c.mu.Lock()
		parked := c.parked != nil
		c.mu.Unlock()
		if parked {
			c.signal()
		}
	}
}

// destroy detaches co and every awaited frame from their slots, then
// cancels them.
func (co *Co) destroy() {
	for _, c := range co.chain() {
		c.mu.Lock()
		w := c.parked
		c.mu.Unlock()
		if w != nil {
			w.remove(c)
		}
		c.cancel()
	}
}

// Waiter is a slot holding at most one parked frame.
// The zero value is empty and ready to use.
type Waiter struct {
	mu sync.Mutex
	co *Co
}

func (w *Waiter) install(co *Co) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.co != nil && w.co != co {
		return ErrWaiterBusy
	}
	w.co = co
	return nil
}

func (w *Waiter) remove(co *Co) {
	w.mu.Lock()
	if w.co == co {
		w.co = nil
	}
	w.mu.Unlock()
}

// Resume empties the slot and wakes the frame it held. It reports false
// if the slot was empty.
func (w *Waiter) Resume() bool {
	w.mu.Lock()
	co := w.co
	w.co = nil
	w.mu.Unlock()
	if co == nil {
		return false
	}
	co.signal()
	return true
}

// Pending reports whether a frame is parked in the slot.
func (w *Waiter) Pending() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.co != nil
}

// Clear empties the slot without waking the frame.
func (w *Waiter) Clear() {
	w.mu.Lock()
	w.co = nil
	w.mu.Unlock()
}
