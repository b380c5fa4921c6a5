// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

package tcp

import (
	"github.com/alubinski/webnet/core/netaddr"
	"github.com/alubinski/webnet/socket"
	"github.com/alubinski/webnet/task"
)

// Dial connects a new non-blocking connection to ep. The handle is not
// known before the task finishes, so Dial suits Task.Get; a readiness driver
// should use NewClientConnection and AsyncConnect instead.
func Dial(ep netaddr.Endpoint, opts ...Option) *task.Task[*Connection] {
	return task.New(func(co *task.Co) (*Connection, error) {
		c, err := NewClientConnection(socket.FamilyOf(ep), opts...)
		if err != nil {
			return nil, err
		}
		if _, err := c.AsyncConnect(ep).Await(co); err != nil {
			c.Close()
			return nil, err
		}
		return c, nil
	})
}
