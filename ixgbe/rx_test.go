package ixgbe

import (
	"testing"

	"github.com/ixy-go/ixy/memory"
	"github.com/ixy-go/ixy/mmio"
)

func fakeMempool(t *testing.T, numEntries uint32) *memory.Mempool {
	t.Helper()

	entrySize := uint32(memory.DefaultEntrySize)
	dma := &memory.DMAMemory{
		Virt: make([]byte, int(numEntries)*int(entrySize)),
		Phys: 0x10_0000,
		Size: int(numEntries) * int(entrySize),
	}

	m, err := memory.NewMempoolFromDMA(dma, numEntries, entrySize)
	if err != nil {
		t.Fatal(err)
	}

	return m
}

func fakeRxQueue(t *testing.T, numEntries int) *RxQueue {
	t.Helper()

	mempool := fakeMempool(t, uint32(numEntries)*4)

	q := &RxQueue{
		descriptors: rxRing(make([]byte, numEntries*descriptorSize)),
		virtAddrs:   make([]*memory.PktBuf, numEntries),
		numEntries:  numEntries,
		mempool:     mempool,
		bar:         mmio.Region(make([]byte, 0x10000)),
		qid:         0,
	}

	for i := 0; i < numEntries; i++ {
		buf := mempool.Alloc()
		rd := q.descriptors.read(i)
		rd.PktAddr = buf.DataPhysAddr()
		q.virtAddrs[i] = buf
	}

	return q
}

func markDescriptorDone(q *RxQueue, i int, length uint16) {
	wb := q.descriptors.writeback(i)
	wb.Length = length
	wb.StatusError = rxdStatusDD | rxdStatusEOP
}

func TestRxBatchMaxZeroReturnsZeroAndNoMMIO(t *testing.T) {
	t.Parallel()

	q := fakeRxQueue(t, 8)
	markDescriptorDone(q, 0, 60)

	out := make([]*memory.PktBuf, 0)
	n := q.rxBatch(out, 0)

	if n != 0 {
		t.Fatalf("expected 0, got %d", n)
	}

	if q.bar.Read32(regRDT(q.qid)) != 0 {
		t.Fatal("expected no MMIO write when max=0")
	}
}

func TestRxBatchNoDescriptorsDoneReturnsZero(t *testing.T) {
	t.Parallel()

	q := fakeRxQueue(t, 8)
	out := make([]*memory.PktBuf, 8)

	if n := q.rxBatch(out, 8); n != 0 {
		t.Fatalf("expected 0, got %d", n)
	}
}

func TestRxBatchReturnsCompletedPacketsAndRefills(t *testing.T) {
	t.Parallel()

	q := fakeRxQueue(t, 8)
	originalBuf := q.virtAddrs[0]

	markDescriptorDone(q, 0, 64)

	out := make([]*memory.PktBuf, 8)

	n := q.rxBatch(out, 8)
	if n != 1 {
		t.Fatalf("expected 1 packet, got %d", n)
	}

	if out[0] != originalBuf {
		t.Fatal("expected the completed slot's original buffer to be returned")
	}

	if out[0].Size != 64 {
		t.Fatalf("expected size 64, got %d", out[0].Size)
	}

	if q.virtAddrs[0] == originalBuf {
		t.Fatal("expected the descriptor slot to be refilled with a fresh buffer")
	}

	rd := q.descriptors.read(0)
	if rd.PktAddr != q.virtAddrs[0].DataPhysAddr() {
		t.Fatal("expected refilled descriptor to address the new buffer")
	}

	if got := q.bar.Read32(regRDT(q.qid)); got != 0 {
		t.Fatalf("expected RDT=0 after wrapping past the single processed descriptor, got %d", got)
	}
}

func TestRxBatchStopsAtFirstNotDoneDescriptor(t *testing.T) {
	t.Parallel()

	q := fakeRxQueue(t, 8)
	markDescriptorDone(q, 0, 60)
	markDescriptorDone(q, 1, 60)
	// descriptor 2 left not-done

	out := make([]*memory.PktBuf, 8)

	n := q.rxBatch(out, 8)
	if n != 2 {
		t.Fatalf("expected 2 packets, got %d", n)
	}

	if q.rxIndex != 2 {
		t.Fatalf("expected rxIndex=2, got %d", q.rxIndex)
	}
}

