// File: socket/sys_unix_atomic.go
//go:build linux || freebsd || netbsd || openbsd
// +build linux freebsd netbsd openbsd

//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Platforms that accept SOCK_NONBLOCK and SOCK_CLOEXEC in socket(2) and
// accept4(2), and MSG_NOSIGNAL in send.

package socket

import (
	"github.com/alubinski/webnet/core/netaddr"
	"golang.org/x/sys/unix"
)

const sendFlags = unix.MSG_NOSIGNAL

func sysSocket(f Flags) (Handle, error) {
	typ := f.Kind.native()
	if f.Blocking == NonBlocking {
		typ |= unix.SOCK_NONBLOCK
	}
	if f.Inheritable == NonInheritable {
		typ |= unix.SOCK_CLOEXEC
	}
	for {
		fd, err := unix.Socket(f.Family.native(), typ, f.Protocol.native())
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return InvalidHandle, err
		}
		return Handle(fd), nil
	}
}

// sysAccept returns a non-blocking socket for the next pending connection.
func sysAccept(h Handle, inherit InheritMode) (Handle, netaddr.Endpoint, error) {
	flags := unix.SOCK_NONBLOCK
	if inherit == NonInheritable {
		flags |= unix.SOCK_CLOEXEC
	}
	fd, sa, err := unix.Accept4(int(h), flags)
	if err != nil {
		return InvalidHandle, netaddr.Endpoint{}, err
	}
	return Handle(fd), endpointOf(sa), nil
}
