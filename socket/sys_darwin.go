// File: socket/sys_darwin.go
//go:build darwin
// +build darwin

//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Darwin has no SOCK_NONBLOCK, SOCK_CLOEXEC or MSG_NOSIGNAL: flags are applied
// after creation under syscall.ForkLock and SIGPIPE is disabled per socket.

package socket

import (
	"syscall"

	"github.com/alubinski/webnet/core/netaddr"
	"golang.org/x/sys/unix"
)

const sendFlags = 0

func sysSocket(f Flags) (Handle, error) {
	syscall.ForkLock.RLock()
	fd, err := unix.Socket(f.Family.native(), f.Kind.native(), f.Protocol.native())
	for err == unix.EINTR {
		fd, err = unix.Socket(f.Family.native(), f.Kind.native(), f.Protocol.native())
	}
	if err == nil && f.Inheritable == NonInheritable {
		unix.CloseOnExec(fd)
	}
	syscall.ForkLock.RUnlock()
	if err != nil {
		return InvalidHandle, err
	}
	if err := setupDescriptor(fd, f.Blocking == NonBlocking); err != nil {
		unix.Close(fd)
		return InvalidHandle, err
	}
	return Handle(fd), nil
}

func sysAccept(h Handle, inherit InheritMode) (Handle, netaddr.Endpoint, error) {
	syscall.ForkLock.RLock()
	fd, sa, err := unix.Accept(int(h))
	if err == nil && inherit == NonInheritable {
		unix.CloseOnExec(fd)
	}
	syscall.ForkLock.RUnlock()
	if err != nil {
		return InvalidHandle, netaddr.Endpoint{}, err
	}
	if err := setupDescriptor(fd, true); err != nil {
		unix.Close(fd)
		return InvalidHandle, netaddr.Endpoint{}, err
	}
	return Handle(fd), endpointOf(sa), nil
}

func setupDescriptor(fd int, nonblocking bool) error {
	if nonblocking {
		if err := unix.SetNonblock(fd, true); err != nil {
			return err
		}
	}
	return unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_NOSIGPIPE, 1)
}
