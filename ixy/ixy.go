// Package ixy is the single entry point applications use to attach to a
// NIC: it inspects the PCI function and hands back whichever concrete
// backend (ixgbe or virtio-net) actually drives it, generalizing the
// teacher's vmm.New dispatch-by-device-kind pattern from "which VM
// subsystem owns this trap" to "which driver owns this PCI function".
package ixy

import (
	"fmt"

	"github.com/ixy-go/ixy/cpuid"
	"github.com/ixy-go/ixy/device"
	"github.com/ixy-go/ixy/ixgbe"
	"github.com/ixy-go/ixy/logsink"
	"github.com/ixy-go/ixy/memory"
	"github.com/ixy-go/ixy/pci"
	"github.com/ixy-go/ixy/virtio"
)

// virtioVendorID and virtioNetDeviceID identify the legacy
// ("transitional") virtio-net device (virtio 0.9.5 §4.1.2).
const (
	virtioVendorID    = 0x1af4
	virtioNetDeviceID = 0x1000
)

// Init attaches to the NIC at pciAddr and returns the appropriate
// backend. rxQueues/txQueues configure the ixgbe backend's queue count;
// virtio-net always exposes exactly one rx and one tx queue regardless
// of the requested count. pciAddr not naming an Ethernet controller at
// all is treated the same as every other device-attachment
// precondition (see pci.RequireNetworkClass): fatal, not a returned
// error.
func Init(pciAddr string, rxQueues, txQueues int) (device.Device, error) {
	logsink.Infof("ixy", "host cpu: %d baseline features, %d extended features, avx2=%v",
		len(cpuid.DetectedF1Edx()), len(cpuid.DetectedF7_0Edx()), cpuid.HasAVX2())

	pci.RequireNetworkClass(pciAddr)

	hdr, err := pci.ReadConfigHeader(pciAddr)
	if err != nil {
		return nil, fmt.Errorf("ixy: read config header for %s: %w", pciAddr, err)
	}

	if isVirtioNet(hdr) {
		logsink.Infof("ixy", "attaching %s with the virtio-net backend", pciAddr)

		mempool, err := memory.NewMempool(4096, memory.DefaultEntrySize)
		if err != nil {
			return nil, fmt.Errorf("ixy: allocate mempool for %s: %w", pciAddr, err)
		}

		return virtio.New(pciAddr, mempool)
	}

	logsink.Infof("ixy", "attaching %s with the ixgbe backend", pciAddr)

	return ixgbe.New(pciAddr, rxQueues, txQueues)
}

// isVirtioNet reports whether hdr identifies a legacy/transitional
// virtio-net function, split out from Init so the dispatch decision is
// testable without a real or fake sysfs tree.
func isVirtioNet(hdr pci.DeviceHeader) bool {
	return hdr.VendorID == virtioVendorID && hdr.DeviceID == virtioNetDeviceID
}

// MustInit is Init with the fatal-on-failure policy the rest of the
// driver applies to device-attachment steps.
func MustInit(pciAddr string, rxQueues, txQueues int) device.Device {
	dev, err := Init(pciAddr, rxQueues, txQueues)
	if err != nil {
		logsink.Fatal("ixy", pciAddr, err)
	}

	return dev
}
