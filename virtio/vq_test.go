package virtio

import (
	"testing"

	"github.com/ixy-go/ixy/memory"
)

func fakeDMA(t *testing.T, size int) *memory.DMAMemory {
	t.Helper()

	buf := make([]byte, size)
	return &memory.DMAMemory{Virt: buf, Phys: 0x100000, Size: size}
}

func fakeVirtQueue(t *testing.T, qsize uint16) *virtQueue {
	t.Helper()

	dma := fakeDMA(t, virtQueueSize(qsize))
	return newVirtQueueFromDMA(dma, qsize)
}

func TestVirtQueueSizeMatchesLegacyLayout(t *testing.T) {
	t.Parallel()

	// qsize=256 is the common legacy virtio-net default.
	got := virtQueueSize(256)

	descAndAvail := align4k(16*256 + (4 + 2*256))
	used := align4k(6 + 8*256)

	if want := descAndAvail + used; got != want {
		t.Fatalf("expected %d, got %d", want, got)
	}
}

func TestAllocDescExhaustsAndRecovers(t *testing.T) {
	t.Parallel()

	vq := fakeVirtQueue(t, 4)

	var got []uint16
	for i := 0; i < 4; i++ {
		id, ok := vq.allocDesc()
		if !ok {
			t.Fatalf("expected alloc %d to succeed", i)
		}
		got = append(got, id)
	}

	if _, ok := vq.allocDesc(); ok {
		t.Fatal("expected allocDesc to fail once exhausted")
	}

	vq.freeDesc(got[2])

	id, ok := vq.allocDesc()
	if !ok || id != got[2] {
		t.Fatalf("expected freed descriptor %d to be reallocated, got %d (ok=%v)", got[2], id, ok)
	}
}

func TestAvailAndUsedRingRoundTrip(t *testing.T) {
	t.Parallel()

	vq := fakeVirtQueue(t, 8)

	vq.publish(0, 5)
	*vq.availIdx() = 1

	if got := *vq.availRing(0); got != 5 {
		t.Fatalf("expected avail ring slot 0 to hold 5, got %d", got)
	}

	elem := vq.usedElem(0)
	elem.ID = 5
	elem.Len = 64
	*vq.usedIdx() = 1

	readBack := vq.usedElem(0)
	if readBack.ID != 5 || readBack.Len != 64 {
		t.Fatalf("unexpected used elem: %+v", readBack)
	}
}
