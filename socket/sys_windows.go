// File: socket/sys_windows.go
//go:build windows
// +build windows

//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Winsock backend. WSAStartup runs before the first socket; Cleanup undoes it.

package socket

import (
	"net/netip"
	"strconv"
	"sync"
	"unsafe"

	"github.com/alubinski/webnet/core/netaddr"
	"golang.org/x/sys/windows"
)

// DefaultBacklog is SOMAXCONN: the provider picks a reasonable maximum.
const DefaultBacklog = 0x7fffffff

const (
	wsaFlagOverlapped      = 0x01
	wsaFlagNoHandleInherit = 0x80

	fionbio  = 0x8004667e
	soError  = 0x1007
	wsaMajor = 2
	wsaMinor = 2
)

var (
	modws2_32       = windows.NewLazySystemDLL("ws2_32.dll")
	procIoctlsocket = modws2_32.NewProc("ioctlsocket")
	procAccept      = modws2_32.NewProc("accept")

	wsaMu      sync.Mutex
	wsaStarted bool
)

func startup() error {
	wsaMu.Lock()
	defer wsaMu.Unlock()
	if wsaStarted {
		return nil
	}
	var data windows.WSAData
	if err := windows.WSAStartup(uint32(wsaMinor<<8|wsaMajor), &data); err != nil {
		return err
	}
	wsaStarted = true
	return nil
}

// sysCleanup releases Winsock. The next socket starts it again.
func sysCleanup() error {
	wsaMu.Lock()
	defer wsaMu.Unlock()
	if !wsaStarted {
		return nil
	}
	wsaStarted = false
	return windows.WSACleanup()
}

func (f AddressFamily) native() int32 {
	if f == IPv6 {
		return windows.AF_INET6
	}
	return windows.AF_INET
}

func (k Kind) native() int32 {
	if k == Datagram {
		return windows.SOCK_DGRAM
	}
	return windows.SOCK_STREAM
}

func (p Protocol) native() int32 {
	if p == UDP {
		return windows.IPPROTO_UDP
	}
	return windows.IPPROTO_TCP
}

func (d ShutdownDirection) native() int {
	switch d {
	case ShutdownSend:
		return windows.SHUT_WR
	case ShutdownReceive:
		return windows.SHUT_RD
	}
	return windows.SHUT_RDWR
}

func sysSocket(f Flags) (Handle, error) {
	if err := startup(); err != nil {
		return InvalidHandle, err
	}
	var flags uint32 = wsaFlagOverlapped
	if f.Inheritable == NonInheritable {
		flags |= wsaFlagNoHandleInherit
	}
	var (
		s   windows.Handle
		err error
	)
	for {
		s, err = windows.WSASocket(f.Family.native(), f.Kind.native(), f.Protocol.native(), nil, 0, flags)
		if !IsInterrupted(err) {
			break
		}
	}
	if err != nil {
		return InvalidHandle, err
	}
	if f.Blocking == NonBlocking {
		if err := sysSetNonblock(Handle(s), true); err != nil {
			windows.Closesocket(s)
			return InvalidHandle, err
		}
	}
	return Handle(s), nil
}

func sysClose(h Handle) error {
	return windows.Closesocket(windows.Handle(h))
}

func sysSend(h Handle, p []byte) (int, error) {
	buf := windows.WSABuf{Len: uint32(len(p)), Buf: &p[0]}
	var sent uint32
	if err := windows.WSASend(windows.Handle(h), &buf, 1, &sent, 0, nil, nil); err != nil {
		return 0, err
	}
	return int(sent), nil
}

func sysRecv(h Handle, p []byte) (int, error) {
	buf := windows.WSABuf{Len: uint32(len(p)), Buf: &p[0]}
	var recvd, flags uint32
	if err := windows.WSARecv(windows.Handle(h), &buf, 1, &recvd, &flags, nil, nil); err != nil {
		return 0, err
	}
	return int(recvd), nil
}

func sysShutdown(h Handle, dir ShutdownDirection) error {
	return windows.Shutdown(windows.Handle(h), dir.native())
}

func sysSetNonblock(h Handle, nonblocking bool) error {
	var mode uint32
	if nonblocking {
		mode = 1
	}
	r1, _, e1 := procIoctlsocket.Call(uintptr(h), uintptr(fionbio), uintptr(unsafe.Pointer(&mode)))
	if r1 != 0 {
		return e1
	}
	return nil
}

func sysSetInheritable(h Handle, inheritable bool) error {
	var flags uint32
	if inheritable {
		flags = windows.HANDLE_FLAG_INHERIT
	}
	return windows.SetHandleInformation(windows.Handle(h), windows.HANDLE_FLAG_INHERIT, flags)
}

func sysConnect(h Handle, ep netaddr.Endpoint) error {
	sa, err := sockaddrOf(ep)
	if err != nil {
		return err
	}
	return windows.Connect(windows.Handle(h), sa)
}

func sysBind(h Handle, ep netaddr.Endpoint) error {
	sa, err := sockaddrOf(ep)
	if err != nil {
		return err
	}
	return windows.Bind(windows.Handle(h), sa)
}

func sysListen(h Handle, backlog int) error {
	return windows.Listen(windows.Handle(h), backlog)
}

// sysAccept returns a non-blocking socket for the next pending connection.
// Winsock copies the listener's blocking mode, so it is set explicitly.
func sysAccept(h Handle, inherit InheritMode) (Handle, netaddr.Endpoint, error) {
	var rsa windows.RawSockaddrAny
	l := int32(unsafe.Sizeof(rsa))
	r1, _, e1 := procAccept.Call(uintptr(h), uintptr(unsafe.Pointer(&rsa)), uintptr(unsafe.Pointer(&l)))
	s := windows.Handle(r1)
	if s == windows.InvalidHandle {
		return InvalidHandle, netaddr.Endpoint{}, e1
	}
	if err := sysSetNonblock(Handle(s), true); err != nil {
		windows.Closesocket(s)
		return InvalidHandle, netaddr.Endpoint{}, err
	}
	if inherit == NonInheritable {
		if err := sysSetInheritable(Handle(s), false); err != nil {
			windows.Closesocket(s)
			return InvalidHandle, netaddr.Endpoint{}, err
		}
	}
	sa, err := rsa.Sockaddr()
	if err != nil {
		return Handle(s), netaddr.Endpoint{}, nil
	}
	return Handle(s), endpointOf(sa), nil
}

func sysGetsockname(h Handle) (netaddr.Endpoint, error) {
	sa, err := windows.Getsockname(windows.Handle(h))
	if err != nil {
		return netaddr.Endpoint{}, err
	}
	return endpointOf(sa), nil
}

func sysGetpeername(h Handle) (netaddr.Endpoint, error) {
	sa, err := windows.Getpeername(windows.Handle(h))
	if err != nil {
		return netaddr.Endpoint{}, err
	}
	return endpointOf(sa), nil
}

func sysSetReuseAddr(h Handle, on bool) error {
	return windows.SetsockoptInt(windows.Handle(h), windows.SOL_SOCKET, windows.SO_REUSEADDR, boolint(on))
}

func sysSetNoDelay(h Handle, on bool) error {
	return windows.SetsockoptInt(windows.Handle(h), windows.IPPROTO_TCP, windows.TCP_NODELAY, boolint(on))
}

func sysSocketError(h Handle) error {
	var v int32
	l := int32(unsafe.Sizeof(v))
	if err := windows.Getsockopt(windows.Handle(h), windows.SOL_SOCKET, soError, (*byte)(unsafe.Pointer(&v)), &l); err != nil {
		return err
	}
	if v != 0 {
		return windows.Errno(v)
	}
	return nil
}

func sockaddrOf(ep netaddr.Endpoint) (windows.Sockaddr, error) {
	addr := ep.IP().Addr()
	if addr.Is4() {
		return &windows.SockaddrInet4{Port: int(ep.Port()), Addr: addr.As4()}, nil
	}
	sa := &windows.SockaddrInet6{Port: int(ep.Port()), Addr: addr.As16()}
	if z := addr.Zone(); z != "" {
		id, err := strconv.ParseUint(z, 10, 32)
		if err != nil {
			return nil, err
		}
		sa.ZoneId = uint32(id)
	}
	return sa, nil
}

func endpointOf(sa windows.Sockaddr) netaddr.Endpoint {
	switch sa := sa.(type) {
	case *windows.SockaddrInet4:
		return netaddr.EndpointFromAddrPort(netip.AddrPortFrom(netip.AddrFrom4(sa.Addr), uint16(sa.Port)))
	case *windows.SockaddrInet6:
		addr := netip.AddrFrom16(sa.Addr)
		if sa.ZoneId != 0 {
			addr = addr.WithZone(strconv.FormatUint(uint64(sa.ZoneId), 10))
		}
		return netaddr.EndpointFromAddrPort(netip.AddrPortFrom(addr, uint16(sa.Port)))
	}
	return netaddr.Endpoint{}
}

func boolint(b bool) int {
	if b {
		return 1
	}
	return 0
}
