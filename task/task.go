// File: task/task.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Lazy single-consumer task with a one-shot result cell.

package task

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
)

// Void is the result type of tasks that produce no value.
type Void = struct{}

// Task is a lazily started computation producing a T or an error.
// Await and Get may be called again after the task finished; they return
// the stored result each time. Move and Destroy must not race with other
// calls on the same Task value.
type Task[T any] struct {
	st *state[T]
}

type state[T any] struct {
	body    func(*Co) (T, error)
	co      *Co
	start   sync.Once
	started atomic.Bool
	done    chan struct{}
	busy    atomic.Bool

	val T
	err error
}

// New returns a task that will run body when first awaited or driven.
// A nil body yields an empty task.
func New[T any](body func(co *Co) (T, error)) *Task[T] {
	if body == nil {
		return &Task[T]{}
	}
	return &Task[T]{st: &state[T]{body: body, co: newCo(), done: make(chan struct{})}}
}

// Completed returns a task already holding a result.
func Completed[T any](v T, err error) *Task[T] {
	t := New(func(*Co) (T, error) { return v, err })
	t.Start()
	<-t.st.done
	return t
}

func (s *state[T]) run() {
	s.start.Do(func() {
		s.started.Store(true)
		go func() {
			defer close(s.done)
			defer func() {
				if r := recover(); r != nil {
					var zero T
					s.val, s.err = zero, &PanicError{Value: r, Stack: debug.Stack()}
				}
			}()
			s.val, s.err = s.body(s.co)
			if s.co.Destroyed() && errors.Is(s.err, context.Canceled) {
				s.err = fmt.Errorf("%w: %w", ErrNoResult, s.err)
			}
		}()
	})
}

func (s *state[T]) acquire() error {
	if !s.busy.CompareAndSwap(false, true) {
		return ErrAlreadyAwaited
	}
	return nil
}

func (s *state[T]) release() { s.busy.Store(false) }

// Start begins running the body if it has not started yet.
func (t *Task[T]) Start() {
	if t.st != nil {
		t.st.run()
	}
}

// Await starts the task and waits for its result. When called from another
// task body, co is that body's frame: destroying it cancels the awaited
// task too, and Get on the outer task drives this one. co may be nil.
func (t *Task[T]) Await(co *Co) (T, error) {
	var zero T
	s := t.st
	if s == nil {
		return zero, ErrInvalidTask
	}
	if err := s.acquire(); err != nil {
		return zero, err
	}
	defer s.release()
	if co == nil {
		s.run()
		<-s.done
		return s.val, s.err
	}
	co.setAwaiting(s.co)
	defer co.setAwaiting(nil)
	s.run()
	select {
	case <-s.done:
		return s.val, s.err
	case <-co.ctx.Done():
		s.co.destroy()
		return zero, ErrDestroyed
	}
}

// Get runs the task to completion on the calling goroutine's behalf,
// re-polling its suspensions with backoff, and returns the result.
func (t *Task[T]) Get() (T, error) {
	var zero T
	s := t.st
	if s == nil {
		return zero, ErrInvalidTask
	}
	if err := s.acquire(); err != nil {
		return zero, err
	}
	defer s.release()
	s.run()

	select {
	case <-s.done:
		return s.val, s.err
	default:
	}
	stop := make(chan struct{})
	defer close(stop)
	go drive(s.co, s.done, stop)
	<-s.done
	return s.val, s.err
}

// Done reports whether the body has finished.
func (t *Task[T]) Done() bool {
	if t.st == nil {
		return false
	}
	select {
	case <-t.st.done:
		return true
	default:
		return false
	}
}

// Ready reports whether awaiting would not wait: the task is empty or done.
func (t *Task[T]) Ready() bool {
	return t.st == nil || t.Done()
}

// Valid reports whether the task holds a frame.
func (t *Task[T]) Valid() bool { return t.st != nil }

// Started reports whether the body has begun running.
func (t *Task[T]) Started() bool { return t.st != nil && t.st.started.Load() }

// Move transfers the frame to a new Task and leaves t empty.
func (t *Task[T]) Move() *Task[T] {
	m := &Task[T]{st: t.st}
	t.st = nil
	return m
}

// Destroy drops the frame. A suspended body is removed from its waiter
// slot and its Suspend returns ErrDestroyed. t becomes empty.
func (t *Task[T]) Destroy() {
	s := t.st
	if s == nil {
		return
	}
	t.st = nil
	s.co.destroy()
}
