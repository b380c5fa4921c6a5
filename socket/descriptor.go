// File: socket/descriptor.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package socket

// Handle is a raw OS socket handle: a POSIX file descriptor or a Winsock SOCKET.
type Handle uintptr

// InvalidHandle is -1 on POSIX and INVALID_SOCKET on Windows.
const InvalidHandle = ^Handle(0)

// Descriptor holds a raw handle without closing it. The zero value is empty.
type Descriptor struct {
	h     Handle
	valid bool
}

// NewDescriptor wraps h. Passing InvalidHandle yields an empty descriptor.
func NewDescriptor(h Handle) Descriptor {
	return Descriptor{h: h, valid: h != InvalidHandle}
}

// Valid reports whether a handle is held.
func (d Descriptor) Valid() bool { return d.valid }

// Handle returns the held handle, or InvalidHandle.
func (d Descriptor) Handle() Handle {
	if !d.valid {
		return InvalidHandle
	}
	return d.h
}

// Release empties the descriptor and returns the handle it held.
// Ownership passes to the caller; nothing is closed.
func (d *Descriptor) Release() Handle {
	h := d.Handle()
	d.h, d.valid = InvalidHandle, false
	return h
}

// Reset replaces the held handle without closing the previous one.
func (d *Descriptor) Reset(h Handle) {
	*d = NewDescriptor(h)
}
