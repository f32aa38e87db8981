package virtio

import "github.com/ixy-go/ixy/memory"

// clean reclaims descriptors (and their packet buffers) the device has
// finished transmitting, per the used ring.
func (d *Device) clean() {
	vq := d.tx

	for vq.lastUsedIdx != *vq.usedIdx() {
		elem := vq.usedElem(vq.lastUsedIdx)
		descID := uint16(elem.ID)

		buf := vq.bufs[descID]
		vq.bufs[descID] = nil
		if buf != nil {
			buf.Free()
		}

		vq.freeDesc(descID)
		vq.lastUsedIdx++
	}
}

// TxBatch enqueues as many of bufs as there is descriptor room for onto
// queue 0 and kicks the device. Unlike ixgbe there is no fixed ring
// position to poll for completion, so free descriptors are reclaimed
// from the used ring at the start of every call.
func (d *Device) TxBatch(queueID int, bufs []*memory.PktBuf) int {
	if queueID != 0 {
		return 0
	}

	d.clean()

	vq := d.tx
	n := 0

	for n < len(bufs) {
		descID, ok := vq.allocDesc()
		if !ok {
			break
		}

		buf := bufs[n]

		desc := vq.desc(descID)
		desc.Addr = uint64(buf.DataPhysAddr())
		desc.Len = uint32(buf.Size)
		desc.Flags = 0
		desc.Next = 0

		vq.bufs[descID] = buf
		vq.publish(vq.nextAvail, descID)
		vq.nextAvail++
		*vq.availIdx() = vq.nextAvail

		n++
	}

	if n > 0 {
		d.notify(queueTX)
		d.stats.TxPackets += uint64(n)
		for _, buf := range bufs[:n] {
			d.stats.TxBytes += uint64(buf.Size)
		}
	}

	return n
}
