// File: socket/errors.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Error values and the structured system error.

package socket

import (
	"errors"
	"fmt"
	"syscall"

	"code.hybscloud.com/iox"
	"github.com/containerd/errdefs"
)

var (
	// ErrInvalidSocket is returned when an operation needs an open socket
	// and the object is empty (closed or moved from).
	ErrInvalidSocket = fmt.Errorf("invalid socket: %w", errdefs.ErrFailedPrecondition)

	// ErrWouldBlock reports that a non-blocking operation cannot make
	// progress yet. It matches iox.ErrWouldBlock.
	ErrWouldBlock = fmt.Errorf("socket: %w", iox.ErrWouldBlock)
)

// SystemError is a failed platform call with its raw error code.
type SystemError struct {
	Op       string
	Code     syscall.Errno
	Category string
}

func (e *SystemError) Error() string {
	return fmt.Sprintf("%s: %s (%s:%d)", e.Op, e.Code.Error(), e.Category, uintptr(e.Code))
}

// Unwrap exposes the raw code, so errors.Is(err, unix.ECONNREFUSED) works.
func (e *SystemError) Unwrap() error { return e.Code }

// Temporary reports whether the call would block.
func (e *SystemError) Temporary() bool { return IsWouldBlock(e.Code) }

// LastError extracts the raw platform code from err, or 0 if there is none.
func LastError(err error) syscall.Errno {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno
	}
	return 0
}

func newSystemError(op string, err error) error {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return &SystemError{Op: op, Code: errno, Category: Category()}
	}
	return fmt.Errorf("%s: %w", op, err)
}
