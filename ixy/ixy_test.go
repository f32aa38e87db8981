package ixy

import (
	"testing"

	"github.com/ixy-go/ixy/pci"
)

func TestIsVirtioNetMatchesVendorAndDevice(t *testing.T) {
	t.Parallel()

	hdr := pci.DeviceHeader{VendorID: 0x1af4, DeviceID: 0x1000, Class: pci.NetworkClass}
	if !isVirtioNet(hdr) {
		t.Fatal("expected virtio-net vendor/device pair to match")
	}
}

func TestIsVirtioNetRejectsOtherDevices(t *testing.T) {
	t.Parallel()

	cases := []pci.DeviceHeader{
		{VendorID: 0x8086, DeviceID: 0x10fb, Class: pci.NetworkClass}, // ixgbe 82599
		{VendorID: 0x1af4, DeviceID: 0x1041, Class: pci.NetworkClass}, // modern virtio-net
	}

	for _, hdr := range cases {
		if isVirtioNet(hdr) {
			t.Fatalf("unexpected match for %+v", hdr)
		}
	}
}
