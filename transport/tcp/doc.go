// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package tcp implements asynchronous TCP connections and acceptors on top of
// non-blocking sockets. Operations return lazy tasks that park while the socket
// would block; an external readiness driver wakes them through
// NotifyReadable and NotifyWritable. Task.Get drives a task without a driver
// by re-polling with backoff.
package tcp
