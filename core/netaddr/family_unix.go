// File: core/netaddr/family_unix.go
//go:build linux || darwin || freebsd || netbsd || openbsd
// +build linux darwin freebsd netbsd openbsd

//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package netaddr

import "golang.org/x/sys/unix"

const (
	familyInet  = unix.AF_INET
	familyInet6 = unix.AF_INET6
)
