// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

package tcp

import (
	"sync"

	"github.com/alubinski/webnet/api"
	"github.com/alubinski/webnet/control"
	"github.com/alubinski/webnet/core/netaddr"
	"github.com/alubinski/webnet/socket"
	"github.com/alubinski/webnet/task"
	"github.com/containerd/log"
)

// Acceptor yields connections from a non-blocking listening socket.
type Acceptor struct {
	mu     sync.Mutex
	sock   *socket.TCPSocket
	waiter task.Waiter
	closed bool

	opts options
	log  *log.Entry
}

var _ api.Acceptor = (*Acceptor)(nil)

// NewAcceptor creates an unbound non-blocking acceptor socket.
func NewAcceptor(family socket.AddressFamily, opts ...Option) (*Acceptor, error) {
	o := buildOptions(opts)
	sock, err := socket.NewTCP(family, socket.WithBlocking(socket.NonBlocking), socket.WithInheritable(o.config.InheritMode()))
	if err != nil {
		return nil, err
	}
	return newAcceptor(sock, o), nil
}

// NewAcceptorFromSocket takes ownership of sock and switches it to
// non-blocking mode.
func NewAcceptorFromSocket(sock *socket.TCPSocket, opts ...Option) (*Acceptor, error) {
	if sock == nil || !sock.Valid() {
		return nil, api.ErrInvalidSocket
	}
	if !sock.IsNonBlocking() {
		if err := sock.SetBlocking(socket.NonBlocking); err != nil {
			return nil, err
		}
	}
	return newAcceptor(sock, buildOptions(opts)), nil
}

// Listen creates an acceptor bound to ep and listening with the configured
// backlog.
func Listen(ep netaddr.Endpoint, opts ...Option) (*Acceptor, error) {
	a, err := NewAcceptor(socket.FamilyOf(ep), opts...)
	if err != nil {
		return nil, err
	}
	if err := a.Bind(ep); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.Listen(a.opts.config.Backlog); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func newAcceptor(sock *socket.TCPSocket, o options) *Acceptor {
	return &Acceptor{
		sock: sock,
		opts: o,
		log:  o.logger.WithField("listener", uintptr(sock.NativeHandle())),
	}
}

// Bind binds the listening socket to ep with address reuse enabled.
func (a *Acceptor) Bind(ep netaddr.Endpoint) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sock.Bind(ep)
}

// Listen starts listening. backlog <= 0 selects socket.DefaultBacklog.
func (a *Acceptor) Listen(backlog int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.sock.Listen(backlog); err != nil {
		return err
	}
	if ep, err := a.sock.LocalEndpoint(); err == nil {
		a.log = a.log.WithField("local", ep.String())
	}
	a.log.Debug("listening")
	return nil
}

// Handle returns the listening handle for driver registration.
func (a *Acceptor) Handle() socket.Handle {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sock.NativeHandle()
}

// LocalEndpoint returns the bound address, or the zero Endpoint if unknown.
func (a *Acceptor) LocalEndpoint() netaddr.Endpoint {
	a.mu.Lock()
	defer a.mu.Unlock()
	ep, err := a.sock.LocalEndpoint()
	if err != nil {
		return netaddr.Endpoint{}
	}
	return ep
}

// AsyncAccept yields the next inbound connection, parking until
// NotifyReadable when none is pending.
func (a *Acceptor) AsyncAccept() *task.Task[api.Connection] {
	return task.New(func(co *task.Co) (api.Connection, error) {
		a.mu.Lock()
		defer a.mu.Unlock()
		for {
			if a.closed {
				return nil, api.ErrAcceptorClosed
			}
			s, remote, err := a.sock.Accept()
			if err != nil {
				return nil, api.NewError(api.ErrCodeAccept, "accept failed").Wrap(err)
			}
			if s.Valid() {
				conn, err := NewConnection(s, remote, a.opts.asOptions()...)
				if err != nil {
					s.Close()
					return nil, api.NewError(api.ErrCodeAccept, "accept failed").
						WithContext("remote", remote.String()).
						Wrap(err)
				}
				a.opts.metrics.ObserveAccepted()
				a.log.WithField("remote", remote.String()).Debug("accepted connection")
				return conn, nil
			}
			a.opts.metrics.ObserveSuspend(control.DirAccept)
			a.log.Trace("no pending connection, suspending")
			if err := co.SuspendUnlock(&a.waiter, &a.mu); err != nil {
				return nil, err
			}
		}
	})
}

// NotifyReadable resumes a suspended accept, if any.
func (a *Acceptor) NotifyReadable() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.opts.metrics.ObserveNotify(control.DirReadable)
	a.waiter.Resume()
}

// Close closes the listening socket. A suspended accept is resumed and
// fails with api.ErrAcceptorClosed.
func (a *Acceptor) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true
	err := a.sock.Close()
	a.waiter.Resume()
	return err
}
