// File: socket/tcp.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// TCP stream socket: connect, bind, listen, accept and stream I/O.

package socket

import (
	"io"

	"github.com/alubinski/webnet/core/netaddr"
)

// TCPSocket is a Socket of kind Stream and protocol TCP.
type TCPSocket struct {
	*Socket
}

// TCPOption adjusts the flags of a new TCPSocket.
type TCPOption func(*Flags)

// WithBlocking selects the blocking mode. The default is Blocking.
func WithBlocking(mode BlockingMode) TCPOption {
	return func(f *Flags) { f.Blocking = mode }
}

// WithInheritable selects handle inheritance. The default is Inheritable.
func WithInheritable(mode InheritMode) TCPOption {
	return func(f *Flags) { f.Inheritable = mode }
}

func tcpFlags(family AddressFamily, opts []TCPOption) Flags {
	f := Flags{Family: family, Kind: Stream, Protocol: TCP}
	for _, opt := range opts {
		opt(&f)
	}
	return f
}

// NewTCP creates a TCP socket of the given family.
func NewTCP(family AddressFamily, opts ...TCPOption) (*TCPSocket, error) {
	s, err := New(tcpFlags(family, opts))
	if err != nil {
		return nil, err
	}
	return &TCPSocket{Socket: s}, nil
}

// Empty returns a TCPSocket that owns no handle. Accept returns it when no
// connection is pending.
func Empty(family AddressFamily) *TCPSocket {
	return &TCPSocket{Socket: &Socket{desc: NewDescriptor(InvalidHandle), flags: tcpFlags(family, nil)}}
}

// Move transfers ownership to a new TCPSocket.
func (s *TCPSocket) Move() *TCPSocket {
	return &TCPSocket{Socket: s.Socket.Move()}
}

// StartConnect begins connecting to ep. On a non-blocking socket it may
// report pending; completion is signalled by writability and confirmed
// with SocketError.
func (s *TCPSocket) StartConnect(ep netaddr.Endpoint) (pending bool, err error) {
	if !s.Valid() {
		return false, ErrInvalidSocket
	}
	for {
		err := sysConnect(s.desc.Handle(), ep)
		switch {
		case err == nil:
			return false, nil
		case IsInterrupted(err):
			continue
		case isConnected(err):
			return false, nil
		case IsInProgress(err) && s.flags.Blocking == NonBlocking:
			return true, nil
		}
		return false, newSystemError("connect", err)
	}
}

// Connect connects to ep. A non-blocking connect that is still in flight
// counts as success.
func (s *TCPSocket) Connect(ep netaddr.Endpoint) error {
	_, err := s.StartConnect(ep)
	return err
}

// Bind enables address reuse and binds to ep.
func (s *TCPSocket) Bind(ep netaddr.Endpoint) error {
	if !s.Valid() {
		return ErrInvalidSocket
	}
	if err := s.SetReuseAddress(true); err != nil {
		return err
	}
	if err := sysBind(s.desc.Handle(), ep); err != nil {
		return newSystemError("bind", err)
	}
	return nil
}

// SetReuseAddress toggles SO_REUSEADDR.
func (s *TCPSocket) SetReuseAddress(on bool) error {
	if !s.Valid() {
		return ErrInvalidSocket
	}
	if err := sysSetReuseAddr(s.desc.Handle(), on); err != nil {
		return newSystemError("setsockopt SO_REUSEADDR", err)
	}
	return nil
}

// SetNoDelay toggles TCP_NODELAY.
func (s *TCPSocket) SetNoDelay(on bool) error {
	if !s.Valid() {
		return ErrInvalidSocket
	}
	if err := sysSetNoDelay(s.desc.Handle(), on); err != nil {
		return newSystemError("setsockopt TCP_NODELAY", err)
	}
	return nil
}

// Listen marks the socket passive. backlog <= 0 selects DefaultBacklog.
func (s *TCPSocket) Listen(backlog int) error {
	if !s.Valid() {
		return ErrInvalidSocket
	}
	if backlog <= 0 {
		backlog = DefaultBacklog
	}
	if err := sysListen(s.desc.Handle(), backlog); err != nil {
		return newSystemError("listen", err)
	}
	return nil
}

// Accept takes the next pending connection. The new socket has the
// listener's family and inheritability and is always non-blocking. When no
// connection is pending on a non-blocking listener it returns an empty
// socket and a nil error.
func (s *TCPSocket) Accept() (*TCPSocket, netaddr.Endpoint, error) {
	if !s.Valid() {
		return nil, netaddr.Endpoint{}, ErrInvalidSocket
	}
	for {
		h, remote, err := sysAccept(s.desc.Handle(), s.flags.Inheritable)
		switch {
		case err == nil:
			f := tcpFlags(s.flags.Family, []TCPOption{WithBlocking(NonBlocking), WithInheritable(s.flags.Inheritable)})
			return &TCPSocket{Socket: adopt(h, f)}, remote, nil
		case IsInterrupted(err):
			continue
		case IsWouldBlock(err):
			return Empty(s.flags.Family), netaddr.Endpoint{}, nil
		}
		return nil, netaddr.Endpoint{}, newSystemError("accept", err)
	}
}

// Send is RawSend.
func (s *TCPSocket) Send(p []byte) (int, error) { return s.RawSend(p) }

// Receive is RawRecv.
func (s *TCPSocket) Receive(p []byte) (int, error) { return s.RawRecv(p) }

// Read implements io.Reader; an orderly shutdown is io.EOF.
func (s *TCPSocket) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	n, err := s.RawRecv(p)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}

// Write implements io.Writer by repeating sends until p is written.
func (s *TCPSocket) Write(p []byte) (int, error) {
	written := 0
	for written < len(p) {
		n, err := s.RawSend(p[written:])
		written += n
		if err != nil {
			return written, err
		}
		if n == 0 {
			return written, io.ErrShortWrite
		}
	}
	return written, nil
}

// LocalEndpoint returns the bound address.
func (s *TCPSocket) LocalEndpoint() (netaddr.Endpoint, error) {
	if !s.Valid() {
		return netaddr.Endpoint{}, ErrInvalidSocket
	}
	ep, err := sysGetsockname(s.desc.Handle())
	if err != nil {
		return netaddr.Endpoint{}, newSystemError("getsockname", err)
	}
	return ep, nil
}

// RemoteEndpoint returns the peer address of a connected socket.
func (s *TCPSocket) RemoteEndpoint() (netaddr.Endpoint, error) {
	if !s.Valid() {
		return netaddr.Endpoint{}, ErrInvalidSocket
	}
	ep, err := sysGetpeername(s.desc.Handle())
	if err != nil {
		return netaddr.Endpoint{}, newSystemError("getpeername", err)
	}
	return ep, nil
}

// SocketError returns and clears the pending socket error (SO_ERROR).
func (s *TCPSocket) SocketError() error {
	if !s.Valid() {
		return ErrInvalidSocket
	}
	err := sysSocketError(s.desc.Handle())
	if err != nil {
		return newSystemError("connect", err)
	}
	return nil
}

// IsNotConnected reports ENOTCONN, returned by RemoteEndpoint while a
// non-blocking connect is still in flight.
func IsNotConnected(err error) bool { return isNotConnected(err) }
