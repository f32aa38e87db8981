package pci

import (
	"os"
	"path/filepath"
	"testing"
)

// withFakeSysfs builds a scratch directory tree mimicking
// /sys/bus/pci/devices/<addr>/{config,resource0,driver/unbind} and points
// the package at it for the duration of the test.
func withFakeSysfs(t *testing.T, addr string) string {
	t.Helper()

	root := t.TempDir()
	old := sysfsBus
	sysfsBus = root
	t.Cleanup(func() { sysfsBus = old })

	if err := os.MkdirAll(filepath.Join(root, addr, "driver"), 0o755); err != nil {
		t.Fatal(err)
	}

	return root
}

func writeConfig(t *testing.T, root, addr string, vendor, device uint16, class uint8) {
	t.Helper()

	buf := make([]byte, 16)
	buf[vendorOffset] = byte(vendor)
	buf[vendorOffset+1] = byte(vendor >> 8)
	buf[deviceOffset] = byte(device)
	buf[deviceOffset+1] = byte(device >> 8)
	buf[classOffset+3] = class

	if err := os.WriteFile(filepath.Join(root, addr, "config"), buf, 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestReadConfigHeader(t *testing.T) {
	t.Parallel()

	addr := "0000:03:00.0"
	root := withFakeSysfs(t, addr)
	writeConfig(t, root, addr, 0x8086, 0x10fb, NetworkClass)

	hdr, err := ReadConfigHeader(addr)
	if err != nil {
		t.Fatal(err)
	}

	if hdr.VendorID != 0x8086 || hdr.DeviceID != 0x10fb || hdr.Class != NetworkClass {
		t.Fatalf("unexpected header: %+v", hdr)
	}
}

func TestUnbindNoDriverSucceeds(t *testing.T) {
	t.Parallel()

	addr := "0000:03:00.0"
	withFakeSysfs(t, addr)

	if err := Unbind(addr); err != nil {
		t.Fatalf("expected nil error when no driver is bound, got %v", err)
	}
}

func TestUnbindWritesAddress(t *testing.T) {
	t.Parallel()

	addr := "0000:03:00.0"
	root := withFakeSysfs(t, addr)

	unbindPath := filepath.Join(root, addr, "driver", "unbind")
	if err := os.WriteFile(unbindPath, nil, 0o200); err != nil {
		t.Fatal(err)
	}

	if err := Unbind(addr); err != nil {
		t.Fatal(err)
	}

	got, err := os.ReadFile(unbindPath)
	if err != nil {
		t.Fatal(err)
	}

	if string(got) != addr {
		t.Fatalf("expected unbind file to contain %q, got %q", addr, got)
	}
}

func TestEnableDMASetsBusMasterBit(t *testing.T) {
	t.Parallel()

	addr := "0000:03:00.0"
	root := withFakeSysfs(t, addr)
	writeConfig(t, root, addr, 0x8086, 0x10fb, NetworkClass)

	if err := EnableDMA(addr); err != nil {
		t.Fatal(err)
	}

	cfg, err := os.ReadFile(filepath.Join(root, addr, "config"))
	if err != nil {
		t.Fatal(err)
	}

	cmd := le16(cfg[cmdOffset:])
	if cmd&BusMasterEnable == 0 {
		t.Fatalf("expected bus master enable bit set, command=0x%x", cmd)
	}
}

func TestEnableDMAPreservesOtherCommandBits(t *testing.T) {
	t.Parallel()

	addr := "0000:03:00.0"
	root := withFakeSysfs(t, addr)
	writeConfig(t, root, addr, 0x8086, 0x10fb, NetworkClass)

	cfgPath := filepath.Join(root, addr, "config")

	cfg, err := os.ReadFile(cfgPath)
	if err != nil {
		t.Fatal(err)
	}

	cfg[cmdOffset] = 0x01 // I/O space enable, pre-existing

	if err := os.WriteFile(cfgPath, cfg, 0o644); err != nil {
		t.Fatal(err)
	}

	if err := EnableDMA(addr); err != nil {
		t.Fatal(err)
	}

	cfg, err = os.ReadFile(cfgPath)
	if err != nil {
		t.Fatal(err)
	}

	cmd := le16(cfg[cmdOffset:])
	if cmd&0x01 == 0 {
		t.Fatalf("expected pre-existing command bit preserved, command=0x%x", cmd)
	}

	if cmd&BusMasterEnable == 0 {
		t.Fatalf("expected bus master enable bit set, command=0x%x", cmd)
	}
}
