// Package api
// Author: momentics <momentics@gmail.com>
//
// Common error types and error handling utilities for webnet.

package api

import (
	"fmt"

	"github.com/alubinski/webnet/socket"
	"github.com/containerd/errdefs"
)

// Common errors used across the library.
var (
	ErrConnectionClosed = fmt.Errorf("connection is closed: %w", errdefs.ErrUnavailable)
	ErrAcceptorClosed   = fmt.Errorf("acceptor is closed: %w", errdefs.ErrUnavailable)
	ErrInvalidSocket    = socket.ErrInvalidSocket
	ErrInvalidArgument  = errdefs.ErrInvalidArgument
)

// ErrorCode identifies the operation that failed.
type ErrorCode int

const (
	ErrCodeOK ErrorCode = iota
	ErrCodeInvalidArgument
	ErrCodeClosed
	ErrCodeReceive
	ErrCodeSend
	ErrCodeConnect
	ErrCodeAccept
	ErrCodeInternal
)

func (c ErrorCode) String() string {
	switch c {
	case ErrCodeOK:
		return "ok"
	case ErrCodeInvalidArgument:
		return "invalid argument"
	case ErrCodeClosed:
		return "closed"
	case ErrCodeReceive:
		return "receive"
	case ErrCodeSend:
		return "send"
	case ErrCodeConnect:
		return "connect"
	case ErrCodeAccept:
		return "accept"
	}
	return "internal"
}

// Error represents a structured error with code and context.
type Error struct {
	Code    ErrorCode
	Message string
	Context map[string]any
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	if len(e.Context) == 0 {
		return msg
	}
	return fmt.Sprintf("%s (context: %+v)", msg, e.Context)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

// NewError creates a new structured error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Context: make(map[string]any),
	}
}

// WithContext adds context information to the error.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// Wrap records err as the cause.
func (e *Error) Wrap(err error) *Error {
	e.Err = err
	return e
}
