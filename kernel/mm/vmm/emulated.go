package vmm

import (
	"sort"
	"sync"

	"gopheros/kernel"
	"gopheros/kernel/mm"
)

var (
	errInvalidFrame     = &kernel.Error{Module: "vmm", Message: "attempted to map an invalid frame"}
	errPageAlreadyInUse = &kernel.Error{Module: "vmm", Message: "page is already mapped to a different frame"}
	errPageNotMapped    = &kernel.Error{Module: "vmm", Message: "virtual address is not mapped"}
	errPageNotPresent   = &kernel.Error{Module: "vmm", Message: "virtual address is mapped without the present flag"}
	errRegionOverlap    = &kernel.Error{Module: "vmm", Message: "physical memory region overlaps an existing region"}
)

// physRegion is a contiguous block of physical memory contents.
type physRegion struct {
	base mm.PhysicalAddress
	data []byte
}

func (r physRegion) end() mm.PhysicalAddress {
	return r.base + mm.PhysicalAddress(len(r.data))
}

// PhysicalMemory holds the contents of physical memory as a sparse set of
// regions. Addresses that no region covers read as zero.
type PhysicalMemory struct {
	regions []physRegion
}

// Load installs data as the contents of physical memory starting at base.
func (pm *PhysicalMemory) Load(base mm.PhysicalAddress, data []byte) *kernel.Error {
	region := physRegion{base: base, data: data}
	for _, r := range pm.regions {
		if region.base < r.end() && r.base < region.end() {
			return errRegionOverlap
		}
	}

	pm.regions = append(pm.regions, region)
	sort.Slice(pm.regions, func(i, j int) bool { return pm.regions[i].base < pm.regions[j].base })
	return nil
}

// Size returns the number of bytes backed by loaded regions.
func (pm *PhysicalMemory) Size() mm.Size {
	var total mm.Size
	for _, r := range pm.regions {
		total += mm.Size(len(r.data))
	}
	return total
}

// copyOut fills dst with the physical memory contents starting at addr.
func (pm *PhysicalMemory) copyOut(dst []byte, addr mm.PhysicalAddress) {
	for i := range dst {
		dst[i] = 0
	}

	end := addr + mm.PhysicalAddress(len(dst))
	for _, r := range pm.regions {
		if r.end() <= addr || r.base >= end {
			continue
		}

		from, to := addr, end
		if r.base > from {
			from = r.base
		}
		if r.end() < to {
			to = r.end()
		}
		copy(dst[from-addr:to-addr], r.data[from-r.base:to-r.base])
	}
}

type pageMapping struct {
	frame mm.Frame
	flags PageTableEntryFlag
}

// EmulatedAddressSpace implements AddressSpace on top of a PhysicalMemory
// instance. It keeps a software page table and refuses reads through pages
// that have not been mapped, which lets code that drives the mapper run
// unmodified on a host.
type EmulatedAddressSpace struct {
	mu      sync.RWMutex
	phys    *PhysicalMemory
	entries map[mm.Page]pageMapping
}

// NewEmulatedAddressSpace returns an empty address space backed by phys.
func NewEmulatedAddressSpace(phys *PhysicalMemory) *EmulatedAddressSpace {
	return &EmulatedAddressSpace{
		phys:    phys,
		entries: make(map[mm.Page]pageMapping),
	}
}

// Map implements AddressSpace.
func (as *EmulatedAddressSpace) Map(page mm.Page, frame mm.Frame, flags PageTableEntryFlag) *kernel.Error {
	if !frame.Valid() {
		return errInvalidFrame
	}

	as.mu.Lock()
	defer as.mu.Unlock()

	if existing, ok := as.entries[page]; ok && existing.frame != frame {
		return errPageAlreadyInUse
	}

	as.entries[page] = pageMapping{frame: frame, flags: flags}
	return nil
}

// Unmap implements AddressSpace.
func (as *EmulatedAddressSpace) Unmap(page mm.Page) *kernel.Error {
	as.mu.Lock()
	defer as.mu.Unlock()

	if _, ok := as.entries[page]; !ok {
		return errPageNotMapped
	}

	delete(as.entries, page)
	return nil
}

// Read implements AddressSpace.
func (as *EmulatedAddressSpace) Read(addr mm.VirtualAddress, size mm.Size) ([]byte, *kernel.Error) {
	as.mu.RLock()
	defer as.mu.RUnlock()

	// A read that needs more whole pages than are mapped cannot succeed.
	if uint64(size>>mm.PageShift) > uint64(len(as.entries)) {
		return nil, errPageNotMapped
	}

	out := make([]byte, size)
	for done := mm.Size(0); done < size; {
		cur := addr + mm.VirtualAddress(done)
		entry, ok := as.entries[mm.PageFromAddress(cur)]
		if !ok {
			return nil, errPageNotMapped
		}
		if entry.flags&FlagPresent == 0 {
			return nil, errPageNotPresent
		}

		chunk := mm.PageSize - mm.Size(cur.PageOffset())
		if chunk > size-done {
			chunk = size - done
		}

		physAddr := entry.frame.Address() + mm.PhysicalAddress(cur.PageOffset())
		as.phys.copyOut(out[done:done+chunk], physAddr)
		done += chunk
	}

	return out, nil
}

// Mapped returns the number of pages currently mapped.
func (as *EmulatedAddressSpace) Mapped() int {
	as.mu.RLock()
	defer as.mu.RUnlock()
	return len(as.entries)
}

// Flags returns the flags used to map page and whether the page is mapped.
func (as *EmulatedAddressSpace) Flags(page mm.Page) (PageTableEntryFlag, bool) {
	as.mu.RLock()
	defer as.mu.RUnlock()
	entry, ok := as.entries[page]
	return entry.flags, ok
}
