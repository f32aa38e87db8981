package virtio

import (
	"fmt"
	"time"
)

// virtio-net control class/command values (virtio 0.9.5 §5.1.6.5.1).
const (
	ctrlClassRX       = 0
	ctrlCmdRXPromisc  = 0
	ctrlAckOK         = 0
	ctrlPollInterval  = 50 * time.Microsecond
	ctrlCommandBudget = 200 * time.Millisecond
)

// SetPromiscuous toggles promiscuous receive filtering through the
// control virtqueue. It requires CTRL_VQ and CTRL_RX to have been
// negotiated, which New always requests.
func (d *Device) SetPromiscuous(enable bool) error {
	buf := d.ctrlBuf.Virt
	buf[0] = ctrlClassRX
	buf[1] = ctrlCmdRXPromisc
	if enable {
		buf[2] = 1
	} else {
		buf[2] = 0
	}
	buf[3] = 0xff // device overwrites this with the ack status

	vq := d.ctrl

	hdrDesc, ok := vq.allocDesc()
	if !ok {
		return fmt.Errorf("virtio: control queue exhausted")
	}
	payloadDesc, ok := vq.allocDesc()
	if !ok {
		vq.freeDesc(hdrDesc)
		return fmt.Errorf("virtio: control queue exhausted")
	}
	ackDesc, ok := vq.allocDesc()
	if !ok {
		vq.freeDesc(hdrDesc)
		vq.freeDesc(payloadDesc)
		return fmt.Errorf("virtio: control queue exhausted")
	}

	base := uint64(d.ctrlBuf.Phys)

	hdr := vq.desc(hdrDesc)
	hdr.Addr, hdr.Len, hdr.Flags, hdr.Next = base, 2, descFNext, payloadDesc

	payload := vq.desc(payloadDesc)
	payload.Addr, payload.Len, payload.Flags, payload.Next = base+2, 1, descFNext, ackDesc

	ack := vq.desc(ackDesc)
	ack.Addr, ack.Len, ack.Flags, ack.Next = base+3, 1, descFWrite, 0

	vq.publish(vq.nextAvail, hdrDesc)
	vq.nextAvail++
	*vq.availIdx() = vq.nextAvail

	d.notify(queueCtrl)

	deadline := time.Now().Add(ctrlCommandBudget)
	for vq.lastUsedIdx == *vq.usedIdx() {
		if time.Now().After(deadline) {
			return fmt.Errorf("virtio: control command timed out")
		}
		time.Sleep(ctrlPollInterval)
	}

	elem := vq.usedElem(vq.lastUsedIdx)
	vq.lastUsedIdx++
	vq.freeDesc(uint16(elem.ID))
	vq.freeDesc(payloadDesc)
	vq.freeDesc(ackDesc)

	if buf[3] != ctrlAckOK {
		return fmt.Errorf("virtio: device rejected promiscuous command (ack=%d)", buf[3])
	}

	return nil
}
