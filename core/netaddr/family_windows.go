// File: core/netaddr/family_windows.go
//go:build windows
// +build windows

//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package netaddr

import "golang.org/x/sys/windows"

const (
	familyInet  = windows.AF_INET
	familyInet6 = windows.AF_INET6
)
