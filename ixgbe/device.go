package ixgbe

import (
	"github.com/ixy-go/ixy/device"
	"github.com/ixy-go/ixy/memory"
	"github.com/ixy-go/ixy/mmio"
	"github.com/ixy-go/ixy/pci"
)

// Device is the ixgbe concrete backend: the mapped BAR0 region plus the
// receive and transmit rings configured against it.
type Device struct {
	pciDev *pci.Device
	bar    mmio.Region

	rxQueues []*RxQueue
	txQueues []*TxQueue

	statTotals device.Stats
}

var _ device.Device = (*Device)(nil)

// RxBatch implements device.Device.
func (d *Device) RxBatch(queueID int, bufs []*memory.PktBuf) int {
	if queueID < 0 || queueID >= len(d.rxQueues) {
		return 0
	}

	return d.rxQueues[queueID].rxBatch(bufs, len(bufs))
}

// TxBatch implements device.Device.
func (d *Device) TxBatch(queueID int, bufs []*memory.PktBuf) int {
	if queueID < 0 || queueID >= len(d.txQueues) {
		return 0
	}

	return d.txQueues[queueID].txBatch(bufs)
}

// DriverName implements device.Device.
func (d *Device) DriverName() string {
	return "ixgbe"
}
