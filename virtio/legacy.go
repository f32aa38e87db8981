// Package virtio implements a userspace driver for the legacy
// (pre-1.0, "transitional") virtio-net device as exposed over PCI.
// ixy.Init selects it for the legacy virtio-net vendor/device pair: the
// same RxBatch/TxBatch contract it exposes lets callers treat an
// emulated NIC and a real one identically.
package virtio

import (
	"fmt"
	"time"

	"github.com/ixy-go/ixy/device"
	"github.com/ixy-go/ixy/logsink"
	"github.com/ixy-go/ixy/memory"
	"github.com/ixy-go/ixy/pci"
)

// Legacy virtio PCI common configuration header, offsets relative to the
// I/O-port BAR (virtio 0.9.5 §2.1).
const (
	regHostFeatures  = 0x00 // 4 bytes, RO
	regGuestFeatures = 0x04 // 4 bytes, RW
	regQueueAddress  = 0x08 // 4 bytes, RW (page frame number)
	regQueueSize     = 0x0c // 2 bytes, RO
	regQueueSelect   = 0x0e // 2 bytes, RW
	regQueueNotify   = 0x10 // 2 bytes, RW
	regStatus        = 0x12 // 1 byte, RW
	regISR           = 0x13 // 1 byte, RO

	netHeaderOffset = 0x14 // device-specific config starts here for net
)

// Feature bits relevant to virtio-net (virtio 0.9.5 §5.1.3).
const (
	featCSUM      = 1 << 0
	featGuestCsum = 1 << 1
	featCtrlVQ    = 1 << 17
	featCtrlRX    = 1 << 18
)

// Status register bits (virtio 0.9.5 §2.1).
const (
	statusAcknowledge = 1
	statusDriver      = 2
	statusDriverOK    = 4
	statusFailed      = 0x80
)

const (
	queueRX   = 0
	queueTX   = 1
	queueCtrl = 2
)

// Device drives a legacy virtio-net PCI function.
type Device struct {
	pciDev pci.Device
	ioBase uint16

	rx   *virtQueue
	tx   *virtQueue
	ctrl *virtQueue

	mempool *memory.Mempool
	ctrlBuf *memory.DMAMemory

	mac [6]byte

	stats device.Stats

	// kick overrides how queue notifications reach the device. Real
	// devices get a direct port write (see notify); tests substitute a
	// no-op so driving rx/tx logic never requires IOPL-privileged access.
	kick func(queue uint16)
}

var _ device.Device = (*Device)(nil)

// New attaches to the virtio-net function at pciAddr, negotiates
// features and brings up its three virtqueues (rx, tx, control).
func New(pciAddr string, mempool *memory.Mempool) (*Device, error) {
	if err := acquirePortAccess(); err != nil {
		return nil, fmt.Errorf("virtio: acquire I/O port access: %w", err)
	}

	pciDev, err := pci.Open(pciAddr)
	if err != nil {
		return nil, fmt.Errorf("virtio: open %s: %w", pciAddr, err)
	}

	if err := pciDev.Unbind(); err != nil {
		return nil, fmt.Errorf("virtio: unbind %s: %w", pciAddr, err)
	}

	if err := pciDev.EnableDMA(); err != nil {
		return nil, fmt.Errorf("virtio: enable DMA on %s: %w", pciAddr, err)
	}

	ioBase, err := pciDev.IOPortBase()
	if err != nil {
		return nil, fmt.Errorf("virtio: %s has no I/O port BAR: %w", pciAddr, err)
	}

	d := &Device{pciDev: pciDev, ioBase: ioBase, mempool: mempool}

	if err := d.reset(); err != nil {
		return nil, err
	}

	if err := d.negotiateFeatures(); err != nil {
		return nil, err
	}

	for i := range d.mac {
		d.mac[i] = d.inb(netHeaderOffset + uint16(i))
	}

	if d.rx, err = d.setupQueue(queueRX); err != nil {
		return nil, fmt.Errorf("virtio: setup rx queue: %w", err)
	}
	if d.tx, err = d.setupQueue(queueTX); err != nil {
		return nil, fmt.Errorf("virtio: setup tx queue: %w", err)
	}
	if d.ctrl, err = d.setupQueue(queueCtrl); err != nil {
		return nil, fmt.Errorf("virtio: setup ctrl queue: %w", err)
	}

	d.ctrlBuf, err = memory.AllocateDMA(64, false)
	if err != nil {
		return nil, fmt.Errorf("virtio: allocate control buffer: %w", err)
	}

	d.outb(regStatus, d.inb(regStatus)|statusDriverOK)

	d.fillRxRing()

	logsink.Infof("virtio", "device %s ready, mac=%02x:%02x:%02x:%02x:%02x:%02x",
		pciAddr, d.mac[0], d.mac[1], d.mac[2], d.mac[3], d.mac[4], d.mac[5])

	return d, nil
}

func (d *Device) inb(off uint16) uint8    { return inb(d.ioBase + off) }
func (d *Device) outb(off uint16, v byte) { outb(d.ioBase+off, v) }
func (d *Device) inw(off uint16) uint16   { return inw(d.ioBase + off) }
func (d *Device) outw(off uint16, v uint16) {
	outw(d.ioBase+off, v)
}
func (d *Device) inl(off uint16) uint32 { return inl(d.ioBase + off) }
func (d *Device) outl(off uint16, v uint32) {
	outl(d.ioBase+off, v)
}

func (d *Device) reset() error {
	d.outb(regStatus, 0)

	deadline := time.Now().Add(time.Second)
	for d.inb(regStatus) != 0 {
		if time.Now().After(deadline) {
			return fmt.Errorf("virtio: device did not reset")
		}
		time.Sleep(time.Millisecond)
	}

	d.outb(regStatus, statusAcknowledge)
	d.outb(regStatus, statusAcknowledge|statusDriver)
	return nil
}

func (d *Device) negotiateFeatures() error {
	host := d.inl(regHostFeatures)
	want := uint32(featCSUM | featGuestCsum | featCtrlVQ | featCtrlRX)
	driver := host & want

	d.outl(regGuestFeatures, driver)

	status := d.inb(regStatus)
	if status&statusFailed != 0 {
		return fmt.Errorf("virtio: device rejected feature set %#x", driver)
	}

	return nil
}

func (d *Device) setupQueue(index uint16) (*virtQueue, error) {
	d.outw(regQueueSelect, index)

	size := d.inw(regQueueSize)
	if size == 0 {
		return nil, fmt.Errorf("virtio: queue %d not offered by device", index)
	}

	vq, err := newVirtQueue(size)
	if err != nil {
		return nil, err
	}

	d.outl(regQueueAddress, vq.pfn())

	return vq, nil
}

// notify kicks the device to process newly-avail descriptors on the
// given queue.
func (d *Device) notify(index uint16) {
	if d.kick != nil {
		d.kick(index)
		return
	}

	d.outw(regQueueNotify, index)
}

// DriverName identifies this backend to callers that log or report it.
func (d *Device) DriverName() string { return "virtio" }

// LinkSpeed is unknown for a virtual NIC; legacy virtio-net carries no
// link-speed field, only an up/down bit available behind CTRL_VQ link
// status queries this driver does not issue.
func (d *Device) LinkSpeed() uint32 { return 0 }

// ReadStats reports the software-maintained counters accumulated by
// RxBatch/TxBatch; legacy virtio-net exposes no hardware counters.
func (d *Device) ReadStats(out *device.Stats) {
	*out = d.stats
}
