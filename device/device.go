// Package device defines the capability set every backend (ixgbe,
// virtio-net) implements, generalizing the teacher's pci.Device /
// device.IODevice split-by-bus interfaces into the single driver-facing
// surface applications program against.
package device

import "github.com/ixy-go/ixy/memory"

// Stats is a per-device counter snapshot; see package stats for the
// rollover-safe delta helper built on top of it.
type Stats struct {
	RxPackets uint64
	TxPackets uint64
	RxBytes   uint64
	TxBytes   uint64
}

// Device is the capability set {rx_batch, tx_batch, read_stats,
// link_speed, get_name} the spec requires of either concrete backend.
type Device interface {
	// RxBatch returns up to len(bufs) received packets on queueID,
	// filling bufs[0:n] and returning n.
	RxBatch(queueID int, bufs []*memory.PktBuf) int

	// TxBatch enqueues up to len(bufs) packets on queueID and returns the
	// number actually accepted; unaccepted buffers remain owned by the
	// caller.
	TxBatch(queueID int, bufs []*memory.PktBuf) int

	// ReadStats fills stats with the device's current counters.
	ReadStats(stats *Stats)

	// LinkSpeed reports the current link speed in Mbit/s, or 0 if down.
	LinkSpeed() uint32

	// DriverName identifies which backend this handle is driving.
	DriverName() string
}
