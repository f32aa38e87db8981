package mmio_test

import (
	"testing"
	"time"

	"github.com/ixy-go/ixy/mmio"
)

func TestReadWrite32(t *testing.T) {
	t.Parallel()

	r := mmio.Region(make([]byte, 16))
	r.Write32(4, 0xdeadbeef)

	if got := r.Read32(4); got != 0xdeadbeef {
		t.Fatalf("expected 0xdeadbeef, got 0x%x", got)
	}
}

func TestSetClearFlags(t *testing.T) {
	t.Parallel()

	r := mmio.Region(make([]byte, 16))
	r.Write32(0, 0x0000_00f0)

	r.SetFlags(0, 0x0000_000f)
	if got := r.Read32(0); got != 0xff {
		t.Fatalf("expected 0xff after SetFlags, got 0x%x", got)
	}

	r.ClearFlags(0, 0x0000_00f0)
	if got := r.Read32(0); got != 0x0f {
		t.Fatalf("expected 0x0f after ClearFlags, got 0x%x", got)
	}
}

func TestWaitSetTimesOutWhenNeverSet(t *testing.T) {
	t.Parallel()

	r := mmio.Region(make([]byte, 16))
	if r.WaitSet(0, 0x1, 20*time.Millisecond) {
		t.Fatal("expected WaitSet to time out")
	}
}

func TestWaitSetObservesFlagSetByAnotherGoroutine(t *testing.T) {
	t.Parallel()

	r := mmio.Region(make([]byte, 16))

	go func() {
		time.Sleep(5 * time.Millisecond)
		r.SetFlags(0, 0x1)
	}()

	if !r.WaitSet(0, 0x1, time.Second) {
		t.Fatal("expected WaitSet to observe the flag")
	}
}

func TestWaitClear(t *testing.T) {
	t.Parallel()

	r := mmio.Region(make([]byte, 16))
	r.Write32(0, 0x1)

	go func() {
		time.Sleep(5 * time.Millisecond)
		r.ClearFlags(0, 0x1)
	}()

	if !r.WaitClear(0, 0x1, time.Second) {
		t.Fatal("expected WaitClear to observe the flag cleared")
	}
}
