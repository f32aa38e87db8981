// Package memory implements the DMA-safe allocator the driver needs
// underneath every packet buffer: hugepage-backed virtual memory whose
// physical (DMA) address is known and stable for the lifetime of the
// mapping, resolved through the kernel's pagemap exactly the way the
// reference ixy drivers do it. It is grounded on the teacher's
// syscall.Mmap + unsafe.Pointer(&buf[0]) pattern for pinning down a
// slice's backing address (memory.go's NewMemorySlot), retargeted from
// anonymous VM RAM to a real hugetlbfs mapping.
package memory

import (
	"fmt"
	"os"
	"sync/atomic"

	"golang.org/x/sys/unix"

	"github.com/ixy-go/ixy/logsink"
)

const (
	// HugepageSize is the size of a single 2 MiB hugetlbfs page, the
	// only hugepage size this driver configures.
	HugepageSize = 2 * 1024 * 1024

	pagemapEntrySize = 8
	pfnMask          = (1 << 55) - 1 // bits 0-54 of a pagemap entry
	presentBit       = 1 << 63
)

var hugepageID uint64

// DefaultHugepagePath is the mount point the spec's filesystem
// dependencies name; overridable for callers with a non-default mount.
var DefaultHugepagePath = "/mnt/huge"

// DMAMemory is a single hugepage-backed mapping with a known, stable
// physical address.
type DMAMemory struct {
	Virt []byte
	Phys uint64
	Size int
}

// AllocateDMA opens a fresh file in the hugepage filesystem, extends it
// to size, maps it MAP_SHARED with locking, and resolves the mapping's
// physical address via the kernel pagemap. When requireContiguous is
// set, size must not exceed one hugepage — the allocator never straddles
// two hugetlbfs pages because contiguity across hugepages is not
// guaranteed.
func AllocateDMA(size int, requireContiguous bool) (*DMAMemory, error) {
	if requireContiguous && size > HugepageSize {
		return nil, fmt.Errorf("memory: %d bytes exceeds hugepage size %d for contiguous allocation", size, HugepageSize)
	}

	id := atomic.AddUint64(&hugepageID, 1)
	path := fmt.Sprintf("%s/ixy-%d-%d", DefaultHugepagePath, os.Getpid(), id)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("memory: open hugepage file %s: %w", path, err)
	}
	defer f.Close()
	defer os.Remove(path)

	if err := f.Truncate(int64(size)); err != nil {
		return nil, fmt.Errorf("memory: truncate hugepage file %s to %d: %w", path, size, err)
	}

	virt, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("memory: mmap hugepage file %s: %w", path, err)
	}

	if err := unix.Mlock(virt); err != nil {
		_ = unix.Munmap(virt)

		return nil, fmt.Errorf("memory: mlock hugepage mapping: %w", err)
	}

	phys, err := VirtToPhys(uintptrOf(virt))
	if err != nil {
		_ = unix.Munmap(virt)

		return nil, fmt.Errorf("memory: translate hugepage mapping: %w", err)
	}

	return &DMAMemory{Virt: virt, Phys: phys, Size: size}, nil
}

// MustAllocateDMA is AllocateDMA with the fatal-on-failure policy applied
// at init time everywhere the driver needs DMA memory.
func MustAllocateDMA(size int, requireContiguous bool) *DMAMemory {
	m, err := AllocateDMA(size, requireContiguous)
	if err != nil {
		logsink.Fatal("memory", "hugepage", err)
	}

	return m
}

// VirtToPhys resolves the physical address backing a virtual address by
// reading /proc/self/pagemap. It fails if the kernel reports the page as
// not present, since that means the caller is asking about memory with
// no stable DMA address yet.
func VirtToPhys(vaddr uintptr) (uint64, error) {
	pagesize := uint64(os.Getpagesize())

	f, err := os.Open("/proc/self/pagemap")
	if err != nil {
		return 0, fmt.Errorf("memory: open /proc/self/pagemap: %w", err)
	}
	defer f.Close()

	entry := make([]byte, pagemapEntrySize)
	offset := int64(uint64(vaddr)/pagesize) * pagemapEntrySize

	if _, err := f.ReadAt(entry, offset); err != nil {
		return 0, fmt.Errorf("memory: read pagemap at offset %d: %w", offset, err)
	}

	raw := le64(entry)
	if raw&presentBit == 0 {
		return 0, fmt.Errorf("memory: page at %#x is not present", vaddr)
	}

	pfn := raw & pfnMask
	pageOffset := uint64(vaddr) % pagesize

	return pfn*pagesize + pageOffset, nil
}

func le64(b []byte) uint64 {
	var v uint64
	for i := 7; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}

	return v
}
