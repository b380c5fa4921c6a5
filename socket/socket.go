// File: socket/socket.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Owning socket object: creation, move, close and raw I/O.

package socket

import (
	"runtime"

	"github.com/alubinski/webnet/internal/logging"
)

// Socket owns one OS socket handle. A Socket is not safe for concurrent
// use; callers serialize access.
type Socket struct {
	desc  Descriptor
	flags Flags
}

// New creates an OS socket described by flags.
func New(flags Flags) (*Socket, error) {
	h, err := sysSocket(flags)
	if err != nil {
		return nil, newSystemError("socket", err)
	}
	return adopt(h, flags), nil
}

// Cleanup releases process-wide socket library state (Winsock on Windows).
// Call it at exit once every socket is closed. Creating a socket afterwards
// initializes the library again.
func Cleanup() error {
	if err := sysCleanup(); err != nil {
		return newSystemError("cleanup", err)
	}
	return nil
}

// FromHandle takes ownership of an existing handle created with flags.
func FromHandle(h Handle, flags Flags) *Socket {
	return adopt(h, flags)
}

func adopt(h Handle, flags Flags) *Socket {
	s := &Socket{desc: NewDescriptor(h), flags: flags}
	if s.desc.Valid() {
		runtime.SetFinalizer(s, (*Socket).finalize)
	}
	return s
}

// finalize closes a handle whose owner was dropped without Close.
func (s *Socket) finalize() {
	if !s.desc.Valid() {
		return
	}
	h := s.desc.Release()
	logging.For("socket").WithField("handle", uintptr(h)).Warn("closing leaked socket")
	_ = sysClose(h)
}

// Move transfers the handle and flags to a new Socket. s stays usable as
// an empty socket.
func (s *Socket) Move() *Socket {
	dst := adopt(s.desc.Release(), s.flags)
	runtime.SetFinalizer(s, nil)
	return dst
}

// MoveFrom closes the handle s owns, then takes src's handle and flags.
func (s *Socket) MoveFrom(src *Socket) error {
	if s == src {
		return nil
	}
	err := s.Close()
	s.desc.Reset(src.desc.Release())
	s.flags = src.flags
	runtime.SetFinalizer(src, nil)
	if s.desc.Valid() {
		runtime.SetFinalizer(s, (*Socket).finalize)
	}
	return err
}

// Close releases the handle. Closing an empty socket is a no-op.
func (s *Socket) Close() error {
	if s == nil || !s.desc.Valid() {
		return nil
	}
	h := s.desc.Release()
	runtime.SetFinalizer(s, nil)
	if err := sysClose(h); err != nil {
		return newSystemError("close", err)
	}
	return nil
}

// Valid reports whether s owns a handle.
func (s *Socket) Valid() bool { return s != nil && s.desc.Valid() }

// NativeHandle returns the raw handle without transferring ownership.
func (s *Socket) NativeHandle() Handle {
	if s == nil {
		return InvalidHandle
	}
	return s.desc.Handle()
}

func (s *Socket) Flags() Flags { return s.flags }
func (s *Socket) Family() AddressFamily { return s.flags.Family }
func (s *Socket) Kind() Kind { return s.flags.Kind }
func (s *Socket) Protocol() Protocol { return s.flags.Protocol }
func (s *Socket) BlockingMode() BlockingMode { return s.flags.Blocking }
func (s *Socket) InheritMode() InheritMode { return s.flags.Inheritable }
func (s *Socket) IsNonBlocking() bool { return s.flags.Blocking == NonBlocking }

// RawSend writes as much of p as the kernel accepts in one call.
// On a non-blocking socket that cannot accept data it returns
// (0, ErrWouldBlock). SIGPIPE is never raised.
func (s *Socket) RawSend(p []byte) (int, error) {
	if !s.Valid() {
		return 0, ErrInvalidSocket
	}
	if len(p) == 0 {
		return 0, nil
	}
	for {
		n, err := sysSend(s.desc.Handle(), p)
		if err == nil {
			return n, nil
		}
		switch {
		case IsInterrupted(err):
			continue
		case IsWouldBlock(err):
			if s.flags.Blocking == Blocking {
				continue
			}
			return 0, ErrWouldBlock
		}
		return 0, newSystemError("send", err)
	}
}

// RawRecv reads into p. The result is one of:
//
//	(n > 0, nil)           data
//	(0, nil)               orderly shutdown by the peer, or len(p) == 0
//	(0, ErrWouldBlock)     no data yet on a non-blocking socket
//	(0, *SystemError)      failure
func (s *Socket) RawRecv(p []byte) (int, error) {
	if !s.Valid() {
		return 0, ErrInvalidSocket
	}
	if len(p) == 0 {
		return 0, nil
	}
	for {
		n, err := sysRecv(s.desc.Handle(), p)
		if err == nil {
			return n, nil
		}
		switch {
		case IsInterrupted(err):
			continue
		case IsWouldBlock(err):
			if s.flags.Blocking == Blocking {
				continue
			}
			return 0, ErrWouldBlock
		}
		return 0, newSystemError("recv", err)
	}
}

// Shutdown disables sends, receives or both. It is a no-op on an empty socket.
func (s *Socket) Shutdown(dir ShutdownDirection) error {
	if !s.Valid() {
		return nil
	}
	if err := sysShutdown(s.desc.Handle(), dir); err != nil {
		return newSystemError("shutdown", err)
	}
	return nil
}

// SetBlocking switches the socket's blocking mode.
func (s *Socket) SetBlocking(mode BlockingMode) error {
	if !s.Valid() {
		return ErrInvalidSocket
	}
	if err := sysSetNonblock(s.desc.Handle(), mode == NonBlocking); err != nil {
		return newSystemError("set blocking mode", err)
	}
	s.flags.Blocking = mode
	return nil
}

// SetInheritable controls whether child processes inherit the handle.
func (s *Socket) SetInheritable(mode InheritMode) error {
	if !s.Valid() {
		return ErrInvalidSocket
	}
	if err := sysSetInheritable(s.desc.Handle(), mode == Inheritable); err != nil {
		return newSystemError("set inheritable", err)
	}
	s.flags.Inheritable = mode
	return nil
}
