package acpi

import (
	"encoding/binary"

	"github.com/docker/go-units"
	"github.com/hashicorp/go-multierror"

	"gopheros/device/acpi/table"
	"gopheros/kernel"
	"gopheros/kernel/boot"
	"gopheros/kernel/kfmt"
	"gopheros/kernel/mm"
	"gopheros/kernel/mm/vmm"
)

var (
	panicFn = kernel.Panic

	// RDSP must be located in the physical memory region 0xe0000 to 0xfffff
	rsdpLocationLow mm.PhysicalAddress = 0xe0000
	rsdpLocationHi  mm.PhysicalAddress = 0xfffff
	rsdpAlignment                      = 16

	// RSDP copies supplied by the bootloader must be 8-byte aligned.
	suppliedRSDPAlignment uintptr = 8

	// Length of the prefix that precedes each chunk of a bootloader
	// supplied region.
	chunkPrefixLen = 4
)

// LocateRSDP returns a validated copy of the root system descriptor pointer.
//
// If the bootloader supplied a region, the region is assumed to be mapped
// and its length-prefixed chunks are searched for an RSDP. An ACPI 2.0+
// descriptor is preferred over an ACPI 1.0 one; within each revision the
// first valid descriptor wins.
//
// Otherwise, the physical memory region [rsdpLocationLow, rsdpLocationHi] is
// temporarily identity-mapped into as and scanned in 16-byte steps for the
// RSDP signature. Descriptors with bad checksums are skipped. Failing to map
// the scan window is fatal.
//
// The second return value is false if no valid RSDP could be found.
func LocateRSDP(as vmm.AddressSpace, region *boot.Region) (table.RSDPDescriptor, bool) {
	if region != nil {
		return locateSuppliedRSDP(as, region)
	}

	return locateRSDPByScanning(as)
}

// locateSuppliedRSDP searches a bootloader-supplied region for an RSDP.
func locateSuppliedRSDP(as vmm.AddressSpace, region *boot.Region) (table.RSDPDescriptor, bool) {
	area, err := as.Read(mm.VirtualAddress(region.Base), region.Size)
	if err != nil {
		kfmt.Default().Warnf("[acpi] unable to read supplied RSDP region at 0x%x: %s", region.Base, err.Message)
		return table.RSDPDescriptor{}, false
	}

	var (
		rsdp1   table.RSDPDescriptor
		gotRev1 bool
	)

	for it := newChunkIterator(area, region.Base); it.next(); {
		if !it.payloadAddr.Aligned(suppliedRSDPAlignment) {
			continue
		}

		desc, ok := table.ParseRSDP(it.payload)
		if !ok {
			continue
		}

		switch {
		case desc.IsACPI2():
			return desc, true
		case desc.IsACPI1() && !gotRev1:
			rsdp1, gotRev1 = desc, true
		}
	}

	return rsdp1, gotRev1
}

// locateRSDPByScanning searches the BIOS read-only memory area for an RSDP.
func locateRSDPByScanning(as vmm.AddressSpace) (table.RSDPDescriptor, bool) {
	var (
		log                  = kfmt.Default()
		startFrame, endFrame = mm.FrameRange(rsdpLocationLow, rsdpLocationHi)
		mappedPages          []mm.Page
	)

	// Cleanup temporary identity mappings when the function returns
	defer func() {
		var errs error
		for _, page := range mappedPages {
			if err := as.Unmap(page); err != nil {
				errs = multierror.Append(errs, err)
			}
		}

		if errs != nil {
			log.Warnf("[acpi] failed to remove RSDP scan mappings: %s", errs)
		}
	}()

	// Setup temporary identity mapping so we can scan for the header
	for frame := startFrame; frame <= endFrame; frame++ {
		page := mm.IdentityPage(frame)
		if err := as.Map(page, frame, vmm.FlagPresent|vmm.FlagNoExecute); err != nil {
			panicFn(err)
			return table.RSDPDescriptor{}, false
		}
		mappedPages = append(mappedPages, page)
	}

	windowSize := mm.Size(rsdpLocationHi - rsdpLocationLow + 1)
	window, err := as.Read(mm.VirtualAddress(rsdpLocationLow), windowSize)
	if err != nil {
		panicFn(err)
		return table.RSDPDescriptor{}, false
	}

	log.Debugf("[acpi] scanning %s at 0x%x for the RSDP", units.BytesSize(float64(windowSize)), rsdpLocationLow)

	// The RSDP should be aligned on a 16-byte boundary
	for offset := 0; offset < len(window); offset += rsdpAlignment {
		if !table.HasSignature(window[offset:]) {
			continue
		}

		desc, ok := table.ParseRSDP(window[offset:])
		if !ok {
			log.Warnf("[acpi] skipping corrupted RSDP candidate at 0x%x", rsdpLocationLow+mm.PhysicalAddress(offset))
			continue
		}

		return desc, true
	}

	return table.RSDPDescriptor{}, false
}

// chunkIterator walks a bootloader-supplied RSDP region. The region is a
// sequence of chunks; each chunk is a little-endian uint32 payload length
// followed by the payload. Iteration stops at the first truncated chunk.
type chunkIterator struct {
	buf  []byte
	addr mm.PhysicalAddress

	payload     []byte
	payloadAddr mm.PhysicalAddress
}

func newChunkIterator(buf []byte, base mm.PhysicalAddress) *chunkIterator {
	return &chunkIterator{buf: buf, addr: base}
}

// next advances to the following chunk and returns false when the region
// is exhausted.
func (it *chunkIterator) next() bool {
	if len(it.buf) < chunkPrefixLen {
		return false
	}

	payloadLen := uint64(binary.LittleEndian.Uint32(it.buf))
	if payloadLen > uint64(len(it.buf)-chunkPrefixLen) {
		return false
	}

	chunkLen := chunkPrefixLen + int(payloadLen)
	it.payload = it.buf[chunkPrefixLen:chunkLen]
	it.payloadAddr = it.addr + mm.PhysicalAddress(chunkPrefixLen)
	it.buf = it.buf[chunkLen:]
	it.addr += mm.PhysicalAddress(chunkLen)

	return true
}
