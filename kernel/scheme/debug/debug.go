// Package debug implements the "debug:" scheme, which exposes the kernel
// debug console. Reads return bytes received on the console input and
// writes go straight to the console serial port.
package debug

import (
	"io"

	"gopheros/kernel/event"
	"gopheros/kernel/scheme"
	"gopheros/kernel/sync"
	"gopheros/kernel/syscall"
)

// schemePath is the canonical path reported for every debug handle.
var schemePath = []byte("debug:")

var (
	// SchemeID holds the ID of the debug scheme. It is published by New
	// and read by the input path, which may run in interrupt context.
	SchemeID scheme.AtomicID

	// input buffers console input until a reader consumes it.
	input sync.Once[*sync.WaitQueue[byte]]

	triggerFn = event.Trigger
)

func inputQueue() *sync.WaitQueue[byte] {
	return input.Get(sync.NewWaitQueue[byte])
}

// Input queues b for debug scheme readers and raises a read event carrying
// the number of queued bytes. It is called by the console receive interrupt
// handler.
func Input(b byte) {
	n := inputQueue().Send(b)
	triggerFn(SchemeID.Load(), 0, syscall.EventRead, n)
}

// Scheme is the debug console scheme.
type Scheme struct {
	console io.Writer
}

// New publishes id as the debug scheme ID and returns a scheme whose writes
// are sent to console. console must serialize concurrent writers (e.g. a
// *serial.Port).
func New(id scheme.ID, console io.Writer) *Scheme {
	SchemeID.Store(id)
	return &Scheme{console: console}
}

// Open implements scheme.Scheme. The debug scheme has a single namespace
// entry and no access restrictions.
func (*Scheme) Open(_ []byte, _ uint, _, _ uint32) (scheme.Handle, *syscall.Error) {
	return 0, nil
}

// Dup implements scheme.Scheme.
func (*Scheme) Dup(_ scheme.Handle, _ []byte) (scheme.Handle, *syscall.Error) {
	return 0, nil
}

// Read blocks until console input is available and returns up to len(buf)
// bytes of it.
func (*Scheme) Read(_ scheme.Handle, buf []byte) (int, *syscall.Error) {
	return inputQueue().ReceiveInto(buf, true), nil
}

// Write sends buf to the console and returns the number of bytes written.
func (s *Scheme) Write(_ scheme.Handle, buf []byte) (int, *syscall.Error) {
	n, err := s.console.Write(buf)
	if err != nil {
		return n, syscall.New(syscall.EIO)
	}

	return n, nil
}

// Fevent implements scheme.Scheme.
func (*Scheme) Fevent(_ scheme.Handle, _ syscall.EventFlags) (uintptr, *syscall.Error) {
	return 0, nil
}

// Fpath copies "debug:" into buf, truncating it if buf is too small.
func (*Scheme) Fpath(_ scheme.Handle, buf []byte) (int, *syscall.Error) {
	return copy(buf, schemePath), nil
}

// Fsync implements scheme.Scheme.
func (*Scheme) Fsync(_ scheme.Handle) *syscall.Error {
	return nil
}

// Close implements scheme.Scheme.
func (*Scheme) Close(_ scheme.Handle) *syscall.Error {
	return nil
}
