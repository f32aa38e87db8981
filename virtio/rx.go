package virtio

import (
	"github.com/ixy-go/ixy/device"
	"github.com/ixy-go/ixy/logsink"
	"github.com/ixy-go/ixy/memory"
)

// fillRxRing posts one packet buffer per descriptor to the device so it
// has somewhere to write incoming frames from the moment DRIVER_OK is
// set.
func (d *Device) fillRxRing() {
	vq := d.rx

	for i := uint16(0); i < vq.qsize; i++ {
		buf := d.mempool.Alloc()
		if buf == nil {
			logsink.Fatalf("virtio", "mempool exhausted while posting initial rx buffers")
		}

		desc := vq.desc(i)
		desc.Addr = uint64(buf.DataPhysAddr())
		desc.Len = uint32(buf.Size)
		desc.Flags = descFWrite
		desc.Next = 0

		vq.bufs[i] = buf
		vq.publish(i, i)
	}

	*vq.availIdx() = vq.qsize - 1
	d.notify(queueRX)
}

// RxBatch fills out with up to len(out) received packets from queue 0
// (virtio-net has no multi-queue support negotiated by this driver, so
// queueID must be 0).
func (d *Device) RxBatch(queueID int, out []*memory.PktBuf) int {
	if queueID != 0 {
		return 0
	}

	vq := d.rx
	n := 0

	for n < len(out) {
		idx := vq.lastUsedIdx
		if idx == *vq.usedIdx() {
			break
		}

		elem := vq.usedElem(idx)
		descID := uint16(elem.ID)

		buf := vq.bufs[descID]
		buf.Size = elem.Len
		out[n] = buf

		// Replenish immediately so the descriptor is never left
		// dangling for the device to reuse against a freed buffer.
		fresh := d.mempool.Alloc()
		if fresh == nil {
			logsink.Fatalf("virtio", "mempool exhausted during rx refill")
		}

		desc := vq.desc(descID)
		desc.Addr = uint64(fresh.DataPhysAddr())
		desc.Len = uint32(fresh.Size)
		desc.Flags = descFWrite

		vq.bufs[descID] = fresh
		idxPtr := vq.availIdx()
		vq.publish(*idxPtr, descID)
		*idxPtr = *idxPtr + 1

		vq.lastUsedIdx++
		n++
	}

	if n > 0 {
		d.notify(queueRX)
		d.stats.RxPackets += uint64(n)
		for _, buf := range out[:n] {
			d.stats.RxBytes += uint64(buf.Size)
		}
	}

	return n
}
