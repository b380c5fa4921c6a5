// File: task/errors.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package task

import (
	"context"
	"errors"
	"fmt"

	"github.com/containerd/errdefs"
)

var (
	// ErrInvalidTask is returned by operations on an empty (moved-from,
	// destroyed or nil-bodied) task.
	ErrInvalidTask = fmt.Errorf("task: invalid task: %w", errdefs.ErrFailedPrecondition)

	// ErrNoResult is returned when the frame was destroyed before the body
	// produced a result.
	ErrNoResult = errors.New("task: no result")

	// ErrAlreadyAwaited is returned to a second consumer while another one
	// is still waiting on the same task.
	ErrAlreadyAwaited = fmt.Errorf("task: already awaited: %w", errdefs.ErrConflict)

	// ErrWaiterBusy is returned when a frame is parked in a slot that
	// already holds another frame.
	ErrWaiterBusy = fmt.Errorf("task: waiter slot occupied: %w", errdefs.ErrConflict)

	// ErrDestroyed is returned from Suspend and Await when the suspended
	// frame is destroyed.
	ErrDestroyed = fmt.Errorf("task: frame destroyed: %w", context.Canceled)
)

// PanicError carries a panic raised by a task body.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("task: panic: %v", e.Value)
}

// Unwrap returns the panic value when it is an error.
func (e *PanicError) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}
