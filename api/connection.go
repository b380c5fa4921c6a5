// File: api/connection.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Capability interfaces of the asynchronous TCP layer.

package api

import (
	"github.com/alubinski/webnet/core/netaddr"
	"github.com/alubinski/webnet/socket"
	"github.com/alubinski/webnet/task"
)

// ReadNotifier is resumed by a driver when its handle becomes readable.
type ReadNotifier interface {
	NotifyReadable()
}

// WriteNotifier is resumed by a driver when its handle becomes writable.
type WriteNotifier interface {
	NotifyWritable()
}

// Connection is an established TCP stream driven by external readiness.
// At most one read and one write may be in flight at a time.
type Connection interface {
	ReadNotifier
	WriteNotifier

	NativeHandle() socket.Handle
	AsyncRead(p []byte) *task.Task[int]
	AsyncWrite(p []byte) *task.Task[task.Void]
	LocalEndpoint() netaddr.Endpoint
	RemoteEndpoint() netaddr.Endpoint
	Close() error
}

// Acceptor yields inbound connections on a listening socket.
type Acceptor interface {
	ReadNotifier

	Handle() socket.Handle
	AsyncAccept() *task.Task[Connection]
	LocalEndpoint() netaddr.Endpoint
	Close() error
}
