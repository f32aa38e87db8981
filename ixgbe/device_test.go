package ixgbe

import (
	"testing"

	"github.com/ixy-go/ixy/memory"
)

func TestRxBatchOutOfRangeQueueReturnsZero(t *testing.T) {
	t.Parallel()

	d := &Device{rxQueues: []*RxQueue{fakeRxQueue(t, 8)}}

	if n := d.RxBatch(5, make([]*memory.PktBuf, 8)); n != 0 {
		t.Fatalf("expected 0 for out-of-range queue, got %d", n)
	}
}

func TestTxBatchOutOfRangeQueueReturnsZero(t *testing.T) {
	t.Parallel()

	q, _ := fakeTxQueue(t, 8)
	d := &Device{txQueues: []*TxQueue{q}}

	if n := d.TxBatch(5, make([]*memory.PktBuf, 8)); n != 0 {
		t.Fatalf("expected 0 for out-of-range queue, got %d", n)
	}
}

func TestDriverName(t *testing.T) {
	t.Parallel()

	d := &Device{}
	if d.DriverName() != "ixgbe" {
		t.Fatalf("expected ixgbe, got %s", d.DriverName())
	}
}
