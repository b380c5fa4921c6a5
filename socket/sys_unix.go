// File: socket/sys_unix.go
//go:build linux || darwin || freebsd || netbsd || openbsd
// +build linux darwin freebsd netbsd openbsd

//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// POSIX socket backend shared by every unix flavour.

package socket

import (
	"net"
	"net/netip"
	"strconv"

	"github.com/alubinski/webnet/core/netaddr"
	"golang.org/x/sys/unix"
)

// DefaultBacklog is the listen queue length used when none is given.
const DefaultBacklog = unix.SOMAXCONN

func (f AddressFamily) native() int {
	if f == IPv6 {
		return unix.AF_INET6
	}
	return unix.AF_INET
}

func (k Kind) native() int {
	if k == Datagram {
		return unix.SOCK_DGRAM
	}
	return unix.SOCK_STREAM
}

func (p Protocol) native() int {
	if p == UDP {
		return unix.IPPROTO_UDP
	}
	return unix.IPPROTO_TCP
}

func (d ShutdownDirection) native() int {
	switch d {
	case ShutdownSend:
		return unix.SHUT_WR
	case ShutdownReceive:
		return unix.SHUT_RD
	}
	return unix.SHUT_RDWR
}

// sysCleanup has nothing to release on unix.
func sysCleanup() error { return nil }

func sysClose(h Handle) error {
	return unix.Close(int(h))
}

func sysSend(h Handle, p []byte) (int, error) {
	return unix.SendmsgN(int(h), p, nil, nil, sendFlags)
}

func sysRecv(h Handle, p []byte) (int, error) {
	n, err := unix.Read(int(h), p)
	if err != nil {
		return 0, err
	}
	return n, nil
}

func sysShutdown(h Handle, dir ShutdownDirection) error {
	return unix.Shutdown(int(h), dir.native())
}

func sysSetNonblock(h Handle, nonblocking bool) error {
	return unix.SetNonblock(int(h), nonblocking)
}

func sysSetInheritable(h Handle, inheritable bool) error {
	flags, err := unix.FcntlInt(uintptr(h), unix.F_GETFD, 0)
	if err != nil {
		return err
	}
	if inheritable {
		flags &^= unix.FD_CLOEXEC
	} else {
		flags |= unix.FD_CLOEXEC
	}
	_, err = unix.FcntlInt(uintptr(h), unix.F_SETFD, flags)
	return err
}

func sysConnect(h Handle, ep netaddr.Endpoint) error {
	sa, err := sockaddrOf(ep)
	if err != nil {
		return err
	}
	return unix.Connect(int(h), sa)
}

func sysBind(h Handle, ep netaddr.Endpoint) error {
	sa, err := sockaddrOf(ep)
	if err != nil {
		return err
	}
	return unix.Bind(int(h), sa)
}

func sysListen(h Handle, backlog int) error {
	return unix.Listen(int(h), backlog)
}

func sysGetsockname(h Handle) (netaddr.Endpoint, error) {
	sa, err := unix.Getsockname(int(h))
	if err != nil {
		return netaddr.Endpoint{}, err
	}
	return endpointOf(sa), nil
}

func sysGetpeername(h Handle) (netaddr.Endpoint, error) {
	sa, err := unix.Getpeername(int(h))
	if err != nil {
		return netaddr.Endpoint{}, err
	}
	return endpointOf(sa), nil
}

func sysSetReuseAddr(h Handle, on bool) error {
	return unix.SetsockoptInt(int(h), unix.SOL_SOCKET, unix.SO_REUSEADDR, boolint(on))
}

func sysSetNoDelay(h Handle, on bool) error {
	return unix.SetsockoptInt(int(h), unix.IPPROTO_TCP, unix.TCP_NODELAY, boolint(on))
}

// sysSocketError returns and clears the pending SO_ERROR.
func sysSocketError(h Handle) error {
	v, err := unix.GetsockoptInt(int(h), unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil {
		return err
	}
	if v != 0 {
		return unix.Errno(v)
	}
	return nil
}

func sockaddrOf(ep netaddr.Endpoint) (unix.Sockaddr, error) {
	addr := ep.IP().Addr()
	if addr.Is4() {
		return &unix.SockaddrInet4{Port: int(ep.Port()), Addr: addr.As4()}, nil
	}
	sa := &unix.SockaddrInet6{Port: int(ep.Port()), Addr: addr.As16()}
	if z := addr.Zone(); z != "" {
		id, err := zoneIndex(z)
		if err != nil {
			return nil, err
		}
		sa.ZoneId = id
	}
	return sa, nil
}

func endpointOf(sa unix.Sockaddr) netaddr.Endpoint {
	switch sa := sa.(type) {
	case *unix.SockaddrInet4:
		return netaddr.EndpointFromAddrPort(netip.AddrPortFrom(netip.AddrFrom4(sa.Addr), uint16(sa.Port)))
	case *unix.SockaddrInet6:
		addr := netip.AddrFrom16(sa.Addr)
		if sa.ZoneId != 0 {
			addr = addr.WithZone(strconv.FormatUint(uint64(sa.ZoneId), 10))
		}
		return netaddr.EndpointFromAddrPort(netip.AddrPortFrom(addr, uint16(sa.Port)))
	}
	return netaddr.Endpoint{}
}

// zoneIndex accepts a numeric scope id or an interface name.
func zoneIndex(zone string) (uint32, error) {
	if id, err := strconv.ParseUint(zone, 10, 32); err == nil {
		return uint32(id), nil
	}
	ifi, err := net.InterfaceByName(zone)
	if err != nil {
		return 0, err
	}
	return uint32(ifi.Index), nil
}

func boolint(b bool) int {
	if b {
		return 1
	}
	return 0
}
