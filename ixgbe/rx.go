package ixgbe

import (
	"sync/atomic"

	"github.com/ixy-go/ixy/logsink"
	"github.com/ixy-go/ixy/memory"
)

// rxBatch implements spec.md §4.5: poll up to max descriptors starting
// at rxIndex, handing completed buffers to the caller and refilling each
// slot from the queue's mempool before advancing.
func (q *RxQueue) rxBatch(out []*memory.PktBuf, max int) int {
	n := 0
	i := q.rxIndex

	for n < max {
		wb := q.descriptors.writeback(i)

		// Load-acquire: nothing past this read may be reordered ahead of
		// it, or the driver could observe a stale length/status for a
		// descriptor the NIC has not actually finished writing yet.
		statusError := atomic.LoadUint32(&wb.StatusError)
		if statusError&rxdStatusDD == 0 {
			break
		}

		if statusError&rxdStatusEOP == 0 {
			// Jumbo frames spanning multiple descriptors are not
			// supported; a descriptor without EOP means the NIC
			// delivered one anyway.
			logsink.Fatalf("ixgbe", "rx queue %d: descriptor %d missing EOP (jumbo frames unsupported)", q.qid, i)
		}

		length := wb.Length

		buf := q.virtAddrs[i]
		buf.Size = uint32(length)
		out[n] = buf
		n++

		fresh := q.mempool.Alloc()
		if fresh == nil {
			// A missing refill buffer means the application leaked a
			// buffer it should have freed; continuing would silently
			// drop packets or read stale hardware state.
			logsink.Fatalf("ixgbe", "rx queue %d: mempool exhausted during refill", q.qid)
		}

		rd := q.descriptors.read(i)
		rd.PktAddr = fresh.DataPhysAddr()
		rd.HdrAddr = 0
		q.virtAddrs[i] = fresh

		i = (i + 1) % q.numEntries
	}

	if n > 0 {
		q.rxIndex = i
		q.bar.Write32(regRDT(q.qid), uint32((i-1+q.numEntries)%q.numEntries))
	}

	return n
}
