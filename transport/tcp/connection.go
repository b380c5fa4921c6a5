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
	"github.com/eapache/queue"
)

// Connection is an open TCP stream. At most one AsyncRead and one
// AsyncWrite or AsyncConnect may be suspended at a time.
type Connection struct {
	mu sync.Mutex

	sock   *socket.TCPSocket
	local  netaddr.Endpoint
	remote netaddr.Endpoint
	closed bool

	readWaiter  task.Waiter
	writeWaiter task.Waiter

	pending    *queue.Queue // *[]byte chunks not yet accepted by the kernel
	pendingLen int
	flushErr   error

	opts options
	log  *log.Entry
}

var _ api.Connection = (*Connection)(nil)

// NewConnection wraps a connected socket, taking ownership of it and
// switching it to non-blocking mode. The local endpoint is read from the
// socket; remote may be the zero Endpoint, in which case the peer address is
// queried.
func NewConnection(sock *socket.TCPSocket, remote netaddr.Endpoint, opts ...Option) (*Connection, error) {
	if sock == nil || !sock.Valid() {
		return nil, api.ErrInvalidSocket
	}
	if !sock.IsNonBlocking() {
		if err := sock.SetBlocking(socket.NonBlocking); err != nil {
			return nil, err
		}
	}
	local, err := sock.LocalEndpoint()
	if err != nil {
		return nil, err
	}
	if !remote.IsValid() {
		if ep, err := sock.RemoteEndpoint(); err == nil {
			remote = ep
		}
	}
	c := newConnection(sock, buildOptions(opts))
	c.local, c.remote = local, remote
	c.log = c.log.WithField("remote", remote.String())
	if c.opts.config.NoDelay {
		if err := sock.SetNoDelay(true); err != nil {
			c.log.WithError(err).Debug("TCP_NODELAY not applied")
		}
	}
	return c, nil
}

// NewClientConnection creates an unconnected non-blocking connection of the
// given family. Register NativeHandle with a driver, then call AsyncConnect.
func NewClientConnection(family socket.AddressFamily, opts ...Option) (*Connection, error) {
	o := buildOptions(opts)
	sock, err := socket.NewTCP(family, socket.WithBlocking(socket.NonBlocking), socket.WithInheritable(o.config.InheritMode()))
	if err != nil {
		return nil, err
	}
	return newConnection(sock, o), nil
}

func newConnection(sock *socket.TCPSocket, o options) *Connection {
	return &Connection{
		sock:    sock,
		pending: queue.New(),
		opts:    o,
		log:     o.logger.WithField("handle", uintptr(sock.NativeHandle())),
	}
}

// NativeHandle returns the socket handle for driver registration, or
// socket.InvalidHandle once closed.
func (c *Connection) NativeHandle() socket.Handle {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sock.NativeHandle()
}

func (c *Connection) LocalEndpoint() netaddr.Endpoint {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.local
}

func (c *Connection) RemoteEndpoint() netaddr.Endpoint {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remote
}

// Closed reports whether Close ran or a flush failure closed the connection.
func (c *Connection) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Pending returns the number of bytes queued until the socket is writable.
func (c *Connection) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pendingLen
}

// AsyncRead reads into p. The task yields the byte count, 0 on orderly
// shutdown by the peer.
func (c *Connection) AsyncRead(p []byte) *task.Task[int] {
	return task.New(func(co *task.Co) (int, error) {
		c.mu.Lock()
		defer c.mu.Unlock()
		for {
			if c.closed {
				return 0, c.closedErr(api.ErrCodeReceive)
			}
			n, err := c.sock.RawRecv(p)
			switch {
			case err == nil:
				c.opts.metrics.ObserveRead(n)
				return n, nil
			case socket.IsWouldBlock(err):
				if err := c.suspend(co, &c.readWaiter, control.DirRead); err != nil {
					return 0, err
				}
			default:
				return 0, c.opError(api.ErrCodeReceive, "receive failed", err)
			}
		}
	})
}

// AsyncWrite hands all of p to the kernel. Bytes the kernel cannot take yet
// are queued and flushed by NotifyWritable; the task completes once the
// queue drains. Writes complete in issue order.
func (c *Connection) AsyncWrite(p []byte) *task.Task[task.Void] {
	return task.New(func(co *task.Co) (task.Void, error) {
		c.mu.Lock()
		defer c.mu.Unlock()
		rest := p
		for {
			if c.closed {
				return task.Void{}, c.closedErr(api.ErrCodeSend)
			}
			if err := c.flushLocked(); err != nil && !socket.IsWouldBlock(err) {
				return task.Void{}, c.opError(api.ErrCodeSend, "send failed", err)
			}
			if c.pending.Length() == 0 && len(rest) > 0 {
				n, err := c.sock.RawSend(rest)
				switch {
				case err == nil && n > 0:
					c.opts.metrics.ObserveWritten(n)
					rest = rest[n:]
					continue
				case err == nil:
					if !c.sock.IsNonBlocking() {
						return task.Void{}, api.ErrConnectionClosed
					}
					c.enqueueLocked(rest)
					rest = nil
				case socket.IsWouldBlock(err):
					c.enqueueLocked(rest)
					rest = nil
				default:
					return task.Void{}, c.opError(api.ErrCodeSend, "send failed", err)
				}
			}
			if c.pending.Length() == 0 && len(rest) == 0 {
				return task.Void{}, nil
			}
			if err := c.suspend(co, &c.writeWaiter, control.DirWrite); err != nil {
				return task.Void{}, err
			}
		}
	})
}

// AsyncConnect connects to ep. A connect still in flight parks until
// NotifyWritable, then the outcome is read from the socket.
func (c *Connection) AsyncConnect(ep netaddr.Endpoint) *task.Task[task.Void] {
	return task.New(func(co *task.Co) (task.Void, error) {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.closed {
			return task.Void{}, c.closedErr(api.ErrCodeConnect)
		}
		pending, err := c.sock.StartConnect(ep)
		if err != nil {
			return task.Void{}, c.connectError(ep, err)
		}
		for pending {
			if err := c.suspend(co, &c.writeWaiter, control.DirConnect); err != nil {
				return task.Void{}, err
			}
			if c.closed {
				return task.Void{}, c.closedErr(api.ErrCodeConnect)
			}
			if err := c.sock.SocketError(); err != nil {
				return task.Void{}, c.connectError(ep, err)
			}
			if _, err := c.sock.RemoteEndpoint(); err != nil {
				if socket.IsNotConnected(err) {
					continue
				}
				return task.Void{}, c.connectError(ep, err)
			}
			pending = false
		}

		c.remote = ep
		if local, err := c.sock.LocalEndpoint(); err == nil {
			c.local = local
		}
		c.log = c.log.WithField("remote", ep.String())
		if c.opts.config.NoDelay {
			if err := c.sock.SetNoDelay(true); err != nil {
				c.log.WithError(err).Debug("TCP_NODELAY not applied")
			}
		}
		c.log.Debug("connected")
		return task.Void{}, nil
	})
}

// Close closes the socket and drops queued writes. Suspended operations are
// not resumed. Close is idempotent and never fails.
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
	return nil
}

// NotifyReadable resumes a suspended read, if any.
func (c *Connection) NotifyReadable() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.opts.metrics.ObserveNotify(control.DirReadable)
	c.readWaiter.Resume()
}

// NotifyWritable flushes queued writes and, once the queue is empty,
// resumes a suspended write or connect. A flush failure closes the
// connection; the suspended writer then observes the failure.
func (c *Connection) NotifyWritable() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.opts.metrics.ObserveNotify(control.DirWritable)
	if c.pending.Length() > 0 && !c.closed {
		if err := c.flushLocked(); err != nil && !socket.IsWouldBlock(err) {
			c.log.WithError(err).Warn("flushing queued writes failed, closing connection")
			c.opts.metrics.ObserveFlushFailure()
			c.flushErr = err
			c.closeLocked()
		}
	}
	if c.pending.Length() == 0 {
		c.writeWaiter.Resume()
	}
}

// suspend parks co in w, releasing c.mu while parked.
func (c *Connection) suspend(co *task.Co, w *task.Waiter, op string) error {
	c.opts.metrics.ObserveSuspend(op)
	c.log.WithField("op", op).Trace("would block, suspending")
	return co.SuspendUnlock(w, &c.mu)
}

func (c *Connection) enqueueLocked(p []byte) {
	chunk := append([]byte(nil), p...)
	c.pending.Add(&chunk)
	c.pendingLen += len(chunk)
	c.opts.metrics.AddPending(len(chunk))
}

// flushLocked sends queued chunks until the queue drains or a send fails.
// It returns ErrWouldBlock when the kernel stops accepting data.
func (c *Connection) flushLocked() error {
	for c.pending.Length() > 0 {
		chunk := c.pending.Peek().(*[]byte)
		n, err := c.sock.RawSend(*chunk)
		if n > 0 {
			*chunk = (*chunk)[n:]
			c.pendingLen -= n
			c.opts.metrics.ObserveWritten(n)
			c.opts.metrics.AddPending(-n)
		}
		if err != nil {
			return err
		}
		if len(*chunk) == 0 {
			c.pending.Remove()
			continue
		}
		if n == 0 {
			return api.ErrConnectionClosed
		}
	}
	return nil
}

func (c *Connection) closeLocked() {
	if c.closed {
		return
	}
	c.closed = true
	for c.pending.Length() > 0 {
		c.pending.Remove()
	}
	c.opts.metrics.AddPending(-c.pendingLen)
	c.pendingLen = 0
	if err := c.sock.Close(); err != nil {
		c.log.WithError(err).Debug("close failed")
	}
	c.log.Debug("connection closed")
}

func (c *Connection) closedErr(code api.ErrorCode) error {
	if c.flushErr != nil {
		return c.opError(code, "connection closed after failed flush", c.flushErr)
	}
	return api.ErrConnectionClosed
}

func (c *Connection) opError(code api.ErrorCode, msg string, err error) error {
	return api.NewError(code, msg).
		WithContext("local", c.local.String()).
		WithContext("remote", c.remote.String()).
		Wrap(err)
}

func (c *Connection) connectError(ep netaddr.Endpoint, err error) error {
	return api.NewError(api.ErrCodeConnect, "connect failed").
		WithContext("endpoint", ep.String()).
		Wrap(err)
}
