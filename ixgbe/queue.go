package ixgbe

import (
	"fmt"

	"github.com/ixy-go/ixy/memory"
	"github.com/ixy-go/ixy/mmio"
)

// RxQueue is the receive ring described by spec.md §3: a DMA descriptor
// array, a parallel array of the buffer currently posted at each slot,
// and the index of the next descriptor the driver will inspect.
type RxQueue struct {
	ring        *memory.DMAMemory
	descriptors rxRing
	virtAddrs   []*memory.PktBuf
	numEntries  int
	rxIndex     int
	mempool     *memory.Mempool

	bar mmio.Region
	qid int
}

// TxQueue is the transmit ring described by spec.md §3: descriptors,
// the parallel buffer array, and the clean/tx index pair satisfying
// clean_index <= tx_index <= clean_index + num_entries (mod num_entries).
type TxQueue struct {
	ring        *memory.DMAMemory
	descriptors txRing
	virtAddrs   []*memory.PktBuf
	numEntries  int
	cleanIndex  int
	txIndex     int

	bar mmio.Region
	qid int
}

// cleanBatchSize is the RS-every-32 cleanup granularity: the RS bit on
// transmit is set on every descriptor for simplicity (§4.6), but cleanup
// only polls every 32nd slot and frees 32 buffers at a time.
const cleanBatchSize = 32

// isPowerOfTwo reports whether n is an accepted descriptor ring size;
// newRxQueue and newTxQueue reject every other size.
func isPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

func newRxQueue(bar mmio.Region, qid, numEntries int, mempool *memory.Mempool) (*RxQueue, error) {
	if !isPowerOfTwo(numEntries) {
		return nil, fmt.Errorf("ixgbe: rx ring size %d is not a power of two", numEntries)
	}

	ring, err := memory.AllocateDMA(numEntries*descriptorSize, true)
	if err != nil {
		return nil, fmt.Errorf("ixgbe: allocate rx ring for queue %d: %w", qid, err)
	}

	return &RxQueue{
		ring:        ring,
		descriptors: rxRing(ring.Virt),
		virtAddrs:   make([]*memory.PktBuf, numEntries),
		numEntries:  numEntries,
		mempool:     mempool,
		bar:         bar,
		qid:         qid,
	}, nil
}

func newTxQueue(bar mmio.Region, qid, numEntries int) (*TxQueue, error) {
	if !isPowerOfTwo(numEntries) {
		return nil, fmt.Errorf("ixgbe: tx ring size %d is not a power of two", numEntries)
	}

	ring, err := memory.AllocateDMA(numEntries*descriptorSize, true)
	if err != nil {
		return nil, fmt.Errorf("ixgbe: allocate tx ring for queue %d: %w", qid, err)
	}

	return &TxQueue{
		ring:        ring,
		descriptors: txRing(ring.Virt),
		virtAddrs:   make([]*memory.PktBuf, numEntries),
		numEntries:  numEntries,
		bar:         bar,
		qid:         qid,
	}, nil
}
