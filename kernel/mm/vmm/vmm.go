// Package vmm defines the contract between kernel code and the page-table
// implementation of the active address space.
package vmm

import (
	"sync"

	"gopheros/kernel"
	"gopheros/kernel/mm"
)

// PageTableEntryFlag describes a flag that can be applied to a page table entry.
type PageTableEntryFlag uintptr

const (
	// FlagPresent is set when the page is available in memory and not swapped out.
	FlagPresent PageTableEntryFlag = 1 << iota

	// FlagRW is set if the page can be written to.
	FlagRW

	// FlagUserAccessible is set if user-mode processes can access this page. If
	// not set only kernel code can access this page.
	FlagUserAccessible

	// FlagWriteThroughCaching implies write-through caching when set and write-back
	// caching if cleared.
	FlagWriteThroughCaching

	// FlagDoNotCache prevents this page from being cached if set.
	FlagDoNotCache

	// FlagAccessed is set by the CPU when this page is accessed.
	FlagAccessed

	// FlagDirty is set by the CPU when this page is modified.
	FlagDirty

	// FlagHugePage is set if when using 2Mb pages instead of 4K pages.
	FlagHugePage

	// FlagGlobal if set, prevents the TLB from flushing the cached memory address
	// for this page when the swapping page tables by updating the CR3 register.
	FlagGlobal
)

// FlagNoExecute if set, indicates that a page contains non-executable code.
const FlagNoExecute PageTableEntryFlag = 1 << 63

// AddressSpace is implemented by the page-table code that manages the
// kernel's active address space.
type AddressSpace interface {
	// Map establishes a mapping between a virtual page and a physical
	// memory frame using the supplied page table entry flags. The new
	// mapping must be visible (TLB flushed) before Map returns.
	Map(page mm.Page, frame mm.Frame, flags PageTableEntryFlag) *kernel.Error

	// Unmap removes a mapping previously installed via a call to Map.
	Unmap(page mm.Page) *kernel.Error

	// Read copies size bytes starting at the virtual address addr. Every
	// page touched by the read must be mapped and present.
	Read(addr mm.VirtualAddress, size mm.Size) ([]byte, *kernel.Error)
}

var (
	activeMu    sync.RWMutex
	activeSpace AddressSpace
)

// SetActive registers the address space that kernel code should use.
func SetActive(as AddressSpace) {
	activeMu.Lock()
	activeSpace = as
	activeMu.Unlock()
}

// Active returns the address space registered via SetActive or nil.
func Active() AddressSpace {
	activeMu.RLock()
	defer activeMu.RUnlock()
	return activeSpace
}

// IdentityMapRegion establishes an identity mapping to the physical memory
// region which starts at the given frame and ends at frame + pages(size). The
// returned page is the identity page for startFrame.
func IdentityMapRegion(as AddressSpace, startFrame mm.Frame, size mm.Size, flags PageTableEntryFlag) (mm.Page, *kernel.Error) {
	startPage := mm.IdentityPage(startFrame)
	pageCount := size.Pages()

	for i := uint64(0); i < pageCount; i++ {
		page := startPage + mm.Page(i)
		if err := as.Map(page, startFrame+mm.Frame(i), flags); err != nil {
			return startPage, err
		}
	}

	return startPage, nil
}
