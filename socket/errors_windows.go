// File: socket/errors_windows.go
//go:build windows
// +build windows

//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package socket

import (
	"errors"

	"code.hybscloud.com/iox"
	"golang.org/x/sys/windows"
)

// Winsock codes not exported by x/sys/windows.
const (
	wsaEINTR       windows.Errno = 10004
	wsaEWOULDBLOCK windows.Errno = 10035
	wsaEINPROGRESS windows.Errno = 10036
	wsaEALREADY    windows.Errno = 10037
	wsaEISCONN     windows.Errno = 10056
	wsaENOTCONN    windows.Errno = 10057
)

// IsInterrupted reports WSAEINTR.
func IsInterrupted(err error) bool {
	return errors.Is(err, wsaEINTR)
}

// IsWouldBlock reports WSAEWOULDBLOCK or ErrWouldBlock.
func IsWouldBlock(err error) bool {
	return errors.Is(err, wsaEWOULDBLOCK) || iox.IsWouldBlock(err)
}

// IsInProgress reports a non-blocking connect still in flight. Winsock
// reports it as WSAEWOULDBLOCK.
func IsInProgress(err error) bool {
	return errors.Is(err, wsaEWOULDBLOCK) || errors.Is(err, wsaEINPROGRESS) || errors.Is(err, wsaEALREADY)
}

func isNotConnected(err error) bool {
	return errors.Is(err, wsaENOTCONN)
}

func isConnected(err error) bool {
	return errors.Is(err, wsaEISCONN)
}

// Category names the error domain of raw codes on this platform.
func Category() string { return "system" }
