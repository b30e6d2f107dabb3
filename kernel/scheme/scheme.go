// Package scheme defines the contract that every kernel-managed resource
// (devices, pseudo-devices and IPC endpoints) implements so the system call
// layer can address it through file handles.
package scheme

import (
	"go.uber.org/atomic"

	"gopheros/kernel/syscall"
)

// ID identifies a registered scheme. IDs are assigned by the scheme registry
// when the scheme is registered.
type ID uint32

// Handle is an opaque per-open identifier that a scheme hands out from Open
// and Dup. Its meaning is private to the scheme.
type Handle uintptr

// Scheme is implemented by resources that can be opened, read and written
// through file handles.
type Scheme interface {
	// Open resolves path within the scheme's namespace and returns a new
	// handle. Access control based on uid and gid is up to the scheme.
	Open(path []byte, flags uint, uid, gid uint32) (Handle, *syscall.Error)

	// Dup returns a new handle aliasing the resource behind file. The
	// meaning of buf is scheme-specific.
	Dup(file Handle, buf []byte) (Handle, *syscall.Error)

	// Read fills buf and returns the number of bytes read. Read never
	// returns more than len(buf) bytes and may block.
	Read(file Handle, buf []byte) (int, *syscall.Error)

	// Write consumes buf and returns the number of bytes written.
	Write(file Handle, buf []byte) (int, *syscall.Error)

	// Fevent registers interest in the readiness events described by
	// flags and returns a subscription token.
	Fevent(file Handle, flags syscall.EventFlags) (uintptr, *syscall.Error)

	// Fpath writes the canonical path of file into buf, truncated to
	// len(buf), and returns the number of bytes written.
	Fpath(file Handle, buf []byte) (int, *syscall.Error)

	// Fsync flushes any buffered data for file.
	Fsync(file Handle) *syscall.Error

	// Close releases file.
	Close(file Handle) *syscall.Error
}

// AtomicID is a scheme ID slot that is published once, when the scheme is
// constructed, and read locklessly afterwards (e.g. by interrupt handlers).
type AtomicID struct {
	v atomic.Uint32
}

// Store publishes id.
func (a *AtomicID) Store(id ID) {
	a.v.Store(uint32(id))
}

// Load returns the published ID or 0 if none was stored yet.
func (a *AtomicID) Load() ID {
	return ID(a.v.Load())
}
