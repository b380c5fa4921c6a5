// File: core/netaddr/endpoint.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// IP + port endpoint. Size mirrors the length of the native socket address
// structure, so a zero Endpoint is sized for any address family.

package netaddr

import (
	"net/netip"
)

// Native socket address sizes.
const (
	SizeIPv4    = 16  // sockaddr_in
	SizeIPv6    = 28  // sockaddr_in6
	SizeStorage = 128 // sockaddr_storage
)

// Endpoint is an IP address and TCP/UDP port.
type Endpoint struct {
	ap   netip.AddrPort
	size int
}

// NewEndpoint builds an endpoint from an address and port.
func NewEndpoint(ip IPAddress, port uint16) Endpoint {
	return EndpointFromAddrPort(netip.AddrPortFrom(ip.Addr(), port))
}

// ParseEndpoint parses a numeric address and pairs it with port.
func ParseEndpoint(ip string, port uint16) (Endpoint, error) {
	addr, err := ParseIP(ip)
	if err != nil {
		return Endpoint{}, err
	}
	return NewEndpoint(addr, port), nil
}

// MustParseEndpoint is ParseEndpoint for constant inputs.
func MustParseEndpoint(ip string, port uint16) Endpoint {
	return NewEndpoint(MustParseIP(ip), port)
}

// EndpointFromAddrPort wraps ap, sized for its address family.
func EndpointFromAddrPort(ap netip.AddrPort) Endpoint {
	size := SizeIPv4
	if ap.Addr().Is6() {
		size = SizeIPv6
	}
	return Endpoint{ap: ap, size: size}
}

// IP returns the address part.
func (e Endpoint) IP() IPAddress { return IPAddress{addr: e.ap.Addr()} }

// Port returns the port in host byte order.
func (e Endpoint) Port() uint16 { return e.ap.Port() }

// AddrPort returns the endpoint as a netip.AddrPort.
func (e Endpoint) AddrPort() netip.AddrPort {
	return netip.AddrPortFrom(e.IP().Addr(), e.ap.Port())
}

// Size returns the length of the native address structure.
func (e Endpoint) Size() int {
	if e.size == 0 {
		return SizeStorage
	}
	return e.size
}

// SetSize records the length reported by the OS for this endpoint.
func (e *Endpoint) SetSize(n int) { e.size = n }

// IsValid reports whether the endpoint holds an address.
func (e Endpoint) IsValid() bool { return e.ap.Addr().IsValid() }

// String formats as "ip:port", or "[ip]:port" for IPv6.
func (e Endpoint) String() string {
	return e.AddrPort().String()
}
