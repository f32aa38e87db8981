package ixgbe

import (
	"testing"

	"github.com/ixy-go/ixy/memory"
	"github.com/ixy-go/ixy/mmio"
)

func fakeTxQueue(t *testing.T, numEntries int) (*TxQueue, *memory.Mempool) {
	t.Helper()

	mempool := fakeMempool(t, uint32(numEntries)*4)

	q := &TxQueue{
		descriptors: txRing(make([]byte, numEntries*descriptorSize)),
		virtAddrs:   make([]*memory.PktBuf, numEntries),
		numEntries:  numEntries,
		bar:         mmio.Region(make([]byte, 0x10000)),
		qid:         0,
	}

	return q, mempool
}

func markTxBatchDone(q *TxQueue, batchStart int) {
	last := (batchStart + cleanBatchSize - 1) % q.numEntries
	q.descriptors.writeback(last).Status = 0x1
}

func TestTxBatchEnqueuesAndWritesTail(t *testing.T) {
	t.Parallel()

	q, mempool := fakeTxQueue(t, 64)

	bufs := make([]*memory.PktBuf, 4)
	for i := range bufs {
		bufs[i] = mempool.Alloc()
		bufs[i].Size = 60
	}

	n := q.txBatch(bufs)
	if n != 4 {
		t.Fatalf("expected 4 accepted, got %d", n)
	}

	if q.txIndex != 4 {
		t.Fatalf("expected txIndex=4, got %d", q.txIndex)
	}

	if got := q.bar.Read32(regTDT(q.qid)); got != 4 {
		t.Fatalf("expected TDT=4, got %d", got)
	}

	rd := q.descriptors.read(0)
	if rd.BufferAddr != bufs[0].DataPhysAddr() {
		t.Fatal("expected descriptor 0 to address the first enqueued buffer")
	}
}

func TestTxBatchFullRingReturnsZero(t *testing.T) {
	t.Parallel()

	q, mempool := fakeTxQueue(t, 4)

	// Ring is full: 3 slots in use, and a ring holds numEntries-1 usable
	// slots.
	q.txIndex = 3
	q.cleanIndex = 0

	buf := mempool.Alloc()
	buf.Size = 60

	n := q.txBatch([]*memory.PktBuf{buf})
	if n != 0 {
		t.Fatalf("expected 0 accepted when ring is full, got %d", n)
	}
}

func TestTxBatchAcceptsExactlyFreeSlots(t *testing.T) {
	t.Parallel()

	q, mempool := fakeTxQueue(t, 8)
	q.txIndex = 5
	q.cleanIndex = 0
	// free slots: next must never equal cleanIndex(0); slots 5 and 6 can
	// be filled, but filling 7 would advance txIndex to 0 and collide, so
	// exactly 2 slots are free.

	bufs := make([]*memory.PktBuf, 5)
	for i := range bufs {
		bufs[i] = mempool.Alloc()
		bufs[i].Size = 60
	}

	n := q.txBatch(bufs)
	if n != 2 {
		t.Fatalf("expected exactly 2 accepted, got %d", n)
	}
}

func TestCleanFreesCompletedBatch(t *testing.T) {
	t.Parallel()

	q, mempool := fakeTxQueue(t, 64)

	bufs := make([]*memory.PktBuf, 32)
	for i := range bufs {
		bufs[i] = mempool.Alloc()
		bufs[i].Size = 60
	}

	q.txBatch(bufs)
	freeBefore := mempool.FreeCount()

	markTxBatchDone(q, 0)
	q.clean()

	if q.cleanIndex != 32 {
		t.Fatalf("expected cleanIndex=32 after cleaning one batch, got %d", q.cleanIndex)
	}

	if got := mempool.FreeCount(); got != freeBefore+32 {
		t.Fatalf("expected %d free buffers after clean, got %d", freeBefore+32, got)
	}
}

func TestCleanStopsAtUnfinishedBatch(t *testing.T) {
	t.Parallel()

	q, mempool := fakeTxQueue(t, 64)

	bufs := make([]*memory.PktBuf, 32)
	for i := range bufs {
		bufs[i] = mempool.Alloc()
		bufs[i].Size = 60
	}

	q.txBatch(bufs)
	q.clean() // batch not marked done yet

	if q.cleanIndex != 0 {
		t.Fatalf("expected cleanIndex to stay at 0, got %d", q.cleanIndex)
	}
}
