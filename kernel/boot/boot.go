// Package boot records information handed to the kernel by the bootloader.
package boot

import (
	"sync"

	"gopheros/kernel/mm"
)

// Region is a physical memory region supplied by the bootloader. The boot
// environment guarantees that the region is mapped and readable at the
// virtual address equal to Base.
type Region struct {
	Base mm.PhysicalAddress
	Size mm.Size
}

var (
	mu         sync.RWMutex
	acpiRegion *Region
)

// SetACPIRegion records the region where the bootloader copied the RSDP
// structures it found. The region is a sequence of chunks, each prefixed
// with a little-endian 32-bit payload length.
func SetACPIRegion(base mm.PhysicalAddress, size mm.Size) {
	mu.Lock()
	acpiRegion = &Region{Base: base, Size: size}
	mu.Unlock()
}

// ClearACPIRegion forgets any previously recorded RSDP region.
func ClearACPIRegion() {
	mu.Lock()
	acpiRegion = nil
	mu.Unlock()
}

// ACPIRegion returns the region recorded by SetACPIRegion or nil if the
// bootloader did not supply one.
func ACPIRegion() *Region {
	mu.RLock()
	defer mu.RUnlock()

	if acpiRegion == nil {
		return nil
	}

	region := *acpiRegion
	return &region
}
