// File: socket/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package socket is a thin owning layer over the platform socket API
// (POSIX descriptors or Winsock handles). It classifies raw platform errors,
// retries interrupted calls, suppresses SIGPIPE on send and exposes a TCP
// stream socket with connect, bind, listen and accept. It never runs an event
// loop: readiness is discovered by the caller.
package socket
