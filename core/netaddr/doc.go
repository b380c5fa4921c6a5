// Package netaddr holds the IP address and endpoint value types shared by
// the socket and transport layers.
package netaddr
