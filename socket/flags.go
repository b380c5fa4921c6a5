// File: socket/flags.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Creation flags. The zero Flags value is a blocking, inheritable IPv4 TCP stream.

package socket

import (
	"fmt"

	"github.com/alubinski/webnet/core/netaddr"
)

// AddressFamily selects IPv4 or IPv6.
type AddressFamily uint8

const (
	IPv4 AddressFamily = iota
	IPv6
)

func (f AddressFamily) String() string {
	switch f {
	case IPv4:
		return "ipv4"
	case IPv6:
		return "ipv6"
	}
	return fmt.Sprintf("family(%d)", uint8(f))
}

// FamilyOf returns the family matching the endpoint's address.
func FamilyOf(ep netaddr.Endpoint) AddressFamily {
	if ep.IP().Type() == netaddr.IPv6 {
		return IPv6
	}
	return IPv4
}

// Kind is the socket type.
type Kind uint8

const (
	Stream Kind = iota
	Datagram
)

func (k Kind) String() string {
	switch k {
	case Stream:
		return "stream"
	case Datagram:
		return "datagram"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Protocol is the transport protocol.
type Protocol uint8

const (
	TCP Protocol = iota
	UDP
)

func (p Protocol) String() string {
	switch p {
	case TCP:
		return "tcp"
	case UDP:
		return "udp"
	}
	return fmt.Sprintf("protocol(%d)", uint8(p))
}

// BlockingMode selects blocking or non-blocking I/O.
type BlockingMode uint8

const (
	Blocking BlockingMode = iota
	NonBlocking
)

func (m BlockingMode) String() string {
	if m == NonBlocking {
		return "non-blocking"
	}
	return "blocking"
}

// InheritMode selects whether child processes inherit the handle.
type InheritMode uint8

const (
	Inheritable InheritMode = iota
	NonInheritable
)

func (m InheritMode) String() string {
	if m == NonInheritable {
		return "non-inheritable"
	}
	return "inheritable"
}

// ShutdownDirection selects which half of a connection to shut down.
type ShutdownDirection uint8

const (
	ShutdownSend ShutdownDirection = iota
	ShutdownReceive
	ShutdownBoth
)

func (d ShutdownDirection) String() string {
	switch d {
	case ShutdownSend:
		return "send"
	case ShutdownReceive:
		return "receive"
	case ShutdownBoth:
		return "both"
	}
	return fmt.Sprintf("shutdown(%d)", uint8(d))
}

// Flags describes a socket at creation time.
type Flags struct {
	Family      AddressFamily
	Kind        Kind
	Protocol    Protocol
	Blocking    BlockingMode
	Inheritable InheritMode
}

func (f Flags) String() string {
	return fmt.Sprintf("%s/%s/%s %s %s", f.Family, f.Kind, f.Protocol, f.Blocking, f.Inheritable)
}
