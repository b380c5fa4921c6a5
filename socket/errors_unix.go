// File: socket/errors_unix.go
//go:build linux || darwin || freebsd || netbsd || openbsd
// +build linux darwin freebsd netbsd openbsd

//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package socket

import (
	"errors"

	"code.hybscloud.com/iox"
	"golang.org/x/sys/unix"
)

// IsInterrupted reports EINTR.
func IsInterrupted(err error) bool {
	return errors.Is(err, unix.EINTR)
}

// IsWouldBlock reports EAGAIN, EWOULDBLOCK or ErrWouldBlock.
func IsWouldBlock(err error) bool {
	return errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK) || iox.IsWouldBlock(err)
}

// IsInProgress reports a non-blocking connect still in flight.
func IsInProgress(err error) bool {
	return errors.Is(err, unix.EINPROGRESS) || errors.Is(err, unix.EALREADY)
}

func isNotConnected(err error) bool {
	return errors.Is(err, unix.ENOTCONN)
}

func isConnected(err error) bool {
	return errors.Is(err, unix.EISCONN)
}

// Category names the error domain of raw codes on this platform.
func Category() string { return "generic" }
