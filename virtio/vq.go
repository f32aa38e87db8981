package virtio

import (
	"unsafe"

	"github.com/ixy-go/ixy/memory"
)

// Legacy virtio descriptor flags (virtio 0.9.5 §2.3.2).
const (
	descFNext     = 1
	descFWrite    = 2
	descFIndirect = 4
)

const descriptorSize = 16 // addr(8) + len(4) + flags(2) + next(2)

type vqDesc struct {
	Addr  uint64
	Len   uint32
	Flags uint16
	Next  uint16
}

// virtQueue is the legacy split-ring layout: a descriptor table, an
// available ring the driver writes and the device reads, and a used ring
// the device writes and the driver reads. All three live in one
// physically-contiguous, page-aligned DMA region so only a single page
// frame number needs to be programmed into the device.
//
// Sizing and offsets follow the legacy virtio memory layout exactly:
// the descriptor table and avail ring are packed together and rounded up
// to a page, then the used ring starts on its own page.
type virtQueue struct {
	dma     *memory.DMAMemory
	qsize   uint16
	descOff int
	availOff int
	usedOff  int

	lastUsedIdx uint16
	nextAvail   uint16

	// freeHead/numFree track a free list threaded through desc[i].Next,
	// used by the tx path to allocate a descriptor per outgoing packet.
	freeHead uint16
	numFree  uint16

	// bufs tracks, per descriptor slot, the packet buffer currently
	// chained into the ring so completed buffers can be recovered from
	// the used ring without a side lookup table.
	bufs []*memory.PktBuf
}

func align4k(n int) int {
	const pageSize = 4096
	return (n + pageSize - 1) &^ (pageSize - 1)
}

// virtQueueSize returns the total byte size of the DMA region a legacy
// virtqueue of the given size requires, per virtio 0.9.5 §2.3.
func virtQueueSize(qsize uint16) int {
	n := int(qsize)
	descAndAvail := descriptorSize*n + (4 + 2*n) // desc table + avail hdr/ring
	used := 6 + 8*n                              // used hdr/ring + avail_event
	return align4k(descAndAvail) + align4k(used)
}

func newVirtQueue(qsize uint16) (*virtQueue, error) {
	size := virtQueueSize(qsize)

	dma, err := memory.AllocateDMA(size, true)
	if err != nil {
		return nil, err
	}

	return newVirtQueueFromDMA(dma, qsize), nil
}

// newVirtQueueFromDMA builds a virtqueue over an already-allocated,
// zeroed DMA region. It is split out from newVirtQueue so tests can back
// a virtqueue with a synthetic region instead of a real hugepage
// mapping, the same seam memory.NewMempoolFromDMA provides for mempools.
func newVirtQueueFromDMA(dma *memory.DMAMemory, qsize uint16) *virtQueue {
	for i := range dma.Virt {
		dma.Virt[i] = 0
	}

	vq := &virtQueue{
		dma:      dma,
		qsize:    qsize,
		descOff:  0,
		availOff: descriptorSize * int(qsize),
		usedOff:  align4k(descriptorSize*int(qsize) + (4 + 2*int(qsize))),
		bufs:     make([]*memory.PktBuf, qsize),
	}

	// Thread the descriptor table into a free list: desc[i].next = i+1.
	// The last entry's next is left at 0; allocation detects exhaustion
	// through numFree, not through the chain.
	for i := uint16(0); i < qsize-1; i++ {
		vq.desc(i).Next = i + 1
	}
	vq.freeHead = 0
	vq.numFree = qsize

	return vq
}

// allocDesc pops one descriptor off the free list, or returns false if
// none remain.
func (vq *virtQueue) allocDesc() (uint16, bool) {
	if vq.numFree == 0 {
		return 0, false
	}

	head := vq.freeHead
	vq.freeHead = vq.desc(head).Next
	vq.numFree--

	return head, true
}

// freeDesc pushes a descriptor back onto the free list.
func (vq *virtQueue) freeDesc(i uint16) {
	vq.desc(i).Next = vq.freeHead
	vq.freeHead = i
	vq.numFree++
}

func (vq *virtQueue) desc(i uint16) *vqDesc {
	off := vq.descOff + int(i)*descriptorSize
	return (*vqDesc)(unsafe.Pointer(&vq.dma.Virt[off]))
}

func (vq *virtQueue) availFlags() *uint16 {
	return (*uint16)(unsafe.Pointer(&vq.dma.Virt[vq.availOff]))
}

func (vq *virtQueue) availIdx() *uint16 {
	return (*uint16)(unsafe.Pointer(&vq.dma.Virt[vq.availOff+2]))
}

func (vq *virtQueue) availRing(i uint16) *uint16 {
	slot := i % vq.qsize
	off := vq.availOff + 4 + int(slot)*2
	return (*uint16)(unsafe.Pointer(&vq.dma.Virt[off]))
}

func (vq *virtQueue) usedFlags() *uint16 {
	return (*uint16)(unsafe.Pointer(&vq.dma.Virt[vq.usedOff]))
}

func (vq *virtQueue) usedIdx() *uint16 {
	return (*uint16)(unsafe.Pointer(&vq.dma.Virt[vq.usedOff+2]))
}

type vqUsedElem struct {
	ID  uint32
	Len uint32
}

func (vq *virtQueue) usedElem(i uint16) *vqUsedElem {
	slot := i % vq.qsize
	off := vq.usedOff + 4 + int(slot)*8
	return (*vqUsedElem)(unsafe.Pointer(&vq.dma.Virt[off]))
}

// pfn returns the guest page frame number to program into the device's
// queue-address register.
func (vq *virtQueue) pfn() uint32 {
	return uint32(vq.dma.Phys / 4096)
}

// publish writes descriptor chain head `head` into the avail ring slot
// for avail.idx value atIdx. It does not change avail.idx; the caller
// advances it, so several publishes can share one avail.idx update.
func (vq *virtQueue) publish(atIdx, head uint16) {
	*vq.availRing(atIdx) = head
}
