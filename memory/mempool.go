package memory

import (
	"fmt"

	"github.com/ixy-go/ixy/logsink"
)

// DataOffset is the compile-time offset of the data area within a packet
// buffer entry, mirroring the spec's layout
// {buf_addr_phys, mempool_origin, mempool_index, size, head_room, data[]}.
// The bytes before this offset hold the buffer's own bookkeeping; only
// bytes from DataOffset onward are ever handed to the NIC or the
// application. A Go slice header doesn't live in the DMA region itself,
// so this offset only has to account for the head-room the spec
// reserves in front of packet data.
const DataOffset = 64

// DefaultEntrySize is the packet buffer size used when a caller does not
// request a specific one.
const DefaultEntrySize = 2048

// PktBuf is one fixed-size, DMA-addressable packet buffer. Its physical
// address is immutable for its lifetime; HeadRoom+Data only ever change
// contents, never location.
type PktBuf struct {
	// PhysAddr is the physical address of the start of this buffer's
	// entry (before DataOffset). Descriptors posted to hardware use
	// PhysAddr+DataOffset.
	PhysAddr uint64
	Size     uint32
	HeadRoom uint64
	Data     []byte

	mempool *Mempool // non-owning: the mempool outlives every buffer it issues
	index   uint32
}

// DataPhysAddr is the physical address the NIC should be given to
// address this buffer's data area.
func (b *PktBuf) DataPhysAddr() uint64 {
	return b.PhysAddr + DataOffset
}

// Free returns the buffer to the mempool it was allocated from. Freeing
// a buffer to any pool other than its origin is a programming error the
// spec places on the application to avoid; Free always targets the
// buffer's own back-reference, so it cannot target the wrong pool.
func (b *PktBuf) Free() {
	b.mempool.free(b)
}

// Mempool is a fixed-capacity array of packet buffers plus a stack of
// free-buffer indices. A mempool and every buffer sourced from it belong
// to exactly one thread at a time (the driver's concurrency model,
// spec.md §5); the free stack is therefore a plain slice, not a
// lock-free ring — there is never a second thread to race with.
type Mempool struct {
	entrySize uint32
	dma       *DMAMemory
	buffers   []PktBuf
	freeStack []uint32
}

// NewMempool allocates numEntries buffers of entrySize bytes each
// (entrySize must divide HugepageSize; pass 0 for DefaultEntrySize) from
// one contiguous DMA region, and pushes every index onto the free stack.
func NewMempool(numEntries uint32, entrySize uint32) (*Mempool, error) {
	if entrySize == 0 {
		entrySize = DefaultEntrySize
	}

	if HugepageSize%entrySize != 0 {
		return nil, fmt.Errorf("memory: entry size %d does not divide hugepage size %d", entrySize, HugepageSize)
	}

	totalSize := int(numEntries) * int(entrySize)

	dma, err := AllocateDMA(totalSize, false)
	if err != nil {
		return nil, fmt.Errorf("memory: allocate mempool region: %w", err)
	}

	return NewMempoolFromDMA(dma, numEntries, entrySize)
}

// NewMempoolFromDMA carves numEntries buffers of entrySize bytes out of
// an already-mapped region. Production code reaches this only through
// NewMempool; it is exported so callers that already hold DMA memory
// (and tests standing in a synthetic region in place of a real hugepage
// mapping) can build a mempool without going through AllocateDMA again.
func NewMempoolFromDMA(dma *DMAMemory, numEntries, entrySize uint32) (*Mempool, error) {
	if entrySize == 0 {
		entrySize = DefaultEntrySize
	}

	if dma.Size < int(numEntries)*int(entrySize) {
		return nil, fmt.Errorf("memory: region of %d bytes too small for %d entries of %d bytes",
			dma.Size, numEntries, entrySize)
	}

	m := &Mempool{
		entrySize: entrySize,
		dma:       dma,
		buffers:   make([]PktBuf, numEntries),
		freeStack: make([]uint32, 0, numEntries),
	}

	for i := uint32(0); i < numEntries; i++ {
		base := int(i) * int(entrySize)
		m.buffers[i] = PktBuf{
			PhysAddr: dma.Phys + uint64(base),
			Size:     entrySize - DataOffset,
			HeadRoom: DataOffset,
			Data:     dma.Virt[base+DataOffset : base+int(entrySize)],
			mempool:  m,
			index:    i,
		}
		m.freeStack = append(m.freeStack, i)
	}

	return m, nil
}

// MustNewMempool is NewMempool with the fatal-on-failure policy applied
// at init time.
func MustNewMempool(numEntries, entrySize uint32) *Mempool {
	m, err := NewMempool(numEntries, entrySize)
	if err != nil {
		// Mempool construction failing at init means the hugepage
		// backing store could not be carved up as requested; there is
		// no safe way to continue without packet buffers.
		logsink.Fatal("memory", "mempool", err)
	}

	return m
}

// Alloc pops one free buffer. It returns nil when the pool is empty.
func (m *Mempool) Alloc() *PktBuf {
	n := len(m.freeStack)
	if n == 0 {
		return nil
	}

	idx := m.freeStack[n-1]
	m.freeStack = m.freeStack[:n-1]

	buf := &m.buffers[idx]
	buf.Size = m.entrySize - DataOffset

	return buf
}

// AllocBatch behaves as count single Allocs, returning early with
// however many buffers were actually available.
func (m *Mempool) AllocBatch(out []*PktBuf, count int) int {
	n := 0

	for n < count {
		buf := m.Alloc()
		if buf == nil {
			break
		}

		out[n] = buf
		n++
	}

	return n
}

func (m *Mempool) free(b *PktBuf) {
	m.freeStack = append(m.freeStack, b.index)
}

// Capacity reports the pool's fixed buffer count.
func (m *Mempool) Capacity() int {
	return len(m.buffers)
}

// FreeCount reports how many buffers are currently on the free stack,
// used by tests asserting the no-leak/no-duplicate invariant.
func (m *Mempool) FreeCount() int {
	return len(m.freeStack)
}
