// Package mm defines the address and page-granularity types shared by the
// physical and virtual memory managers.
package mm

import "math"

const (
	// PageShift is equal to log2(PageSize). This constant is used when
	// we need to convert a physical address to a page number (shift right by PageShift)
	// and vice-versa.
	PageShift = uintptr(12)

	// PageSize defines the system's page size in bytes.
	PageSize = Size(1 << PageShift)

	// pageOffsetMask selects the offset of an address within its page.
	pageOffsetMask = uintptr(PageSize - 1)
)

// Size represents a memory block size in bytes.
type Size uint64

// Common memory block sizes.
const (
	Byte Size = 1
	Kb        = 1024 * Byte
	Mb        = 1024 * Kb
)

// Pages returns the number of pages needed to hold s bytes.
func (s Size) Pages() uint64 {
	return uint64((s + PageSize - 1) >> PageShift)
}

// PhysicalAddress is an address in physical memory. It can not be
// dereferenced; it must be mapped into the active address space first.
type PhysicalAddress uintptr

// VirtualAddress is an address in the active virtual address space.
type VirtualAddress uintptr

// PageOffset returns the offset of addr within its page.
func (addr PhysicalAddress) PageOffset() uintptr {
	return uintptr(addr) & pageOffsetMask
}

// Aligned returns true if addr is a multiple of align. align must be a power
// of two.
func (addr PhysicalAddress) Aligned(align uintptr) bool {
	return uintptr(addr)&(align-1) == 0
}

// PageOffset returns the offset of addr within its page.
func (addr VirtualAddress) PageOffset() uintptr {
	return uintptr(addr) & pageOffsetMask
}

// Frame describes a physical memory page index.
type Frame uintptr

const (
	// InvalidFrame is returned by page allocators when
	// they fail to reserve the requested frame.
	InvalidFrame = Frame(math.MaxUint64 >> PageShift)
)

// Valid returns true if this is a valid frame.
func (f Frame) Valid() bool {
	return f != InvalidFrame
}

// Address returns the physical memory address pointed to by this Frame.
func (f Frame) Address() PhysicalAddress {
	return PhysicalAddress(f << PageShift)
}

// FrameFromAddress returns a Frame that corresponds to the given physical
// address. This function can handle both page-aligned and not aligned
// addresses. in the latter case, the input address will be rounded down to the
// frame that contains it.
func FrameFromAddress(physAddr PhysicalAddress) Frame {
	return Frame(uintptr(physAddr) >> PageShift)
}

// Page describes a virtual memory page index.
type Page uintptr

// Address returns the virtual memory address pointed to by this Page.
func (p Page) Address() VirtualAddress {
	return VirtualAddress(p << PageShift)
}

// PageFromAddress returns a Page that corresponds to the given virtual
// address. This function can handle both page-aligned and not aligned virtual
// addresses. in the latter case, the input address will be rounded down to the
// page that contains it.
func PageFromAddress(virtAddr VirtualAddress) Page {
	return Page(uintptr(virtAddr) >> PageShift)
}

// IdentityPage returns the page whose virtual address equals the physical
// address of frame f.
func IdentityPage(f Frame) Page {
	return Page(f)
}

// FrameRange returns the inclusive range of frames covering the physical
// addresses [start, end].
func FrameRange(start, end PhysicalAddress) (Frame, Frame) {
	return FrameFromAddress(start), FrameFromAddress(end)
}
