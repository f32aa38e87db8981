package ixgbe

import "github.com/ixy-go/ixy/device"

// ReadStats implements device.Device: the hardware counters GPRC/GPTC/
// GORCL+GORCH/GOTCL+GOTCH latch-and-clear on read, so the driver
// maintains running totals across calls (spec.md §4.8).
func (d *Device) ReadStats(out *device.Stats) {
	d.statTotals.RxPackets += uint64(d.bar.Read32(regGPRC))
	d.statTotals.TxPackets += uint64(d.bar.Read32(regGPTC))

	rxLo := uint64(d.bar.Read32(regGORCL))
	rxHi := uint64(d.bar.Read32(regGORCH))
	d.statTotals.RxBytes += rxLo | (rxHi << 32)

	txLo := uint64(d.bar.Read32(regGOTCL))
	txHi := uint64(d.bar.Read32(regGOTCH))
	d.statTotals.TxBytes += txLo | (txHi << 32)

	*out = d.statTotals
}
