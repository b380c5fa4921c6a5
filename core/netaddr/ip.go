// File: core/netaddr/ip.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// IPv4/IPv6 address value type. Parsing is numeric only; names are never resolved.

package netaddr

import (
	"fmt"
	"net/netip"

	"github.com/containerd/errdefs"
)

// Type is the address type of an IPAddress.
type Type uint8

const (
	IPv4 Type = iota
	IPv6
)

func (t Type) String() string {
	switch t {
	case IPv4:
		return "ipv4"
	case IPv6:
		return "ipv6"
	default:
		return fmt.Sprintf("type(%d)", uint8(t))
	}
}

// Raw address lengths for each Type.
const (
	IPv4Len = 4
	IPv6Len = 16
)

// IPAddress is an IPv4 or IPv6 address. The zero value is the unspecified
// IPv4 address 0.0.0.0.
type IPAddress struct {
	addr netip.Addr
}

// ParseIP parses a textual IPv4 ("127.0.0.1") or IPv6 ("::1") address.
// IPv4 is tried first, so an IPv4-mapped form such as "::ffff:1.2.3.4" stays IPv6.
func ParseIP(s string) (IPAddress, error) {
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return IPAddress{}, fmt.Errorf("invalid IP address format %q: %w", s, errdefs.ErrInvalidArgument)
	}
	return IPAddress{addr: addr}, nil
}

// MustParseIP is ParseIP for constant inputs; it panics on malformed text.
func MustParseIP(s string) IPAddress {
	ip, err := ParseIP(s)
	if err != nil {
		panic(err)
	}
	return ip
}

// IPFromBytes builds an address from raw network-order bytes of the given type.
func IPFromBytes(b []byte, t Type) (IPAddress, error) {
	switch t {
	case IPv4:
		if len(b) != IPv4Len {
			return IPAddress{}, fmt.Errorf("ipv4 address needs %d bytes, got %d: %w", IPv4Len, len(b), errdefs.ErrInvalidArgument)
		}
		return IPAddress{addr: netip.AddrFrom4([4]byte(b))}, nil
	case IPv6:
		if len(b) != IPv6Len {
			return IPAddress{}, fmt.Errorf("ipv6 address needs %d bytes, got %d: %w", IPv6Len, len(b), errdefs.ErrInvalidArgument)
		}
		return IPAddress{addr: netip.AddrFrom16([16]byte(b))}, nil
	default:
		return IPAddress{}, fmt.Errorf("unknown address %s: %w", t, errdefs.ErrInvalidArgument)
	}
}

// IPFromAddr wraps a netip.Addr. An invalid Addr yields the zero IPAddress.
func IPFromAddr(addr netip.Addr) IPAddress {
	return IPAddress{addr: addr}
}

// Type reports IPv4 or IPv6.
func (ip IPAddress) Type() Type {
	if ip.addr.Is6() {
		return IPv6
	}
	return IPv4
}

// Family returns the native address family constant, AF_INET or AF_INET6.
func (ip IPAddress) Family() int {
	if ip.Type() == IPv6 {
		return familyInet6
	}
	return familyInet
}

// Addr returns the address as a netip.Addr.
func (ip IPAddress) Addr() netip.Addr {
	if !ip.addr.IsValid() {
		return netip.IPv4Unspecified()
	}
	return ip.addr
}

// Bytes returns the raw address bytes, 4 for IPv4 and 16 for IPv6.
func (ip IPAddress) Bytes() []byte {
	return ip.Addr().AsSlice()
}

// Zone returns the IPv6 scope zone, if any.
func (ip IPAddress) Zone() string {
	return ip.addr.Zone()
}

func (ip IPAddress) String() string {
	return ip.Addr().String()
}
