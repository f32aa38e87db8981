// Package pci implements the host-side sysfs view of a PCI function: it
// is how the driver finds the device, detaches it from whatever kernel
// driver currently owns it, turns on bus-master DMA, and maps its first
// BAR for register access. Every failure here is fatal: a userspace
// driver that cannot attach to its device has nothing useful left to do.
package pci

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/ixy-go/ixy/logsink"
)

// sysfsBus is a var, not a const, so tests can point it at a scratch
// directory mimicking the real sysfs layout.
var sysfsBus = "/sys/bus/pci/devices"

const (
	// NetworkClass is the top byte of the PCI class code for a network
	// controller (class 0x02).
	NetworkClass = 0x02

	vendorOffset = 0x0
	deviceOffset = 0x2
	classOffset  = 0x8
	cmdOffset    = 0x4

	// BusMasterEnable is bit 2 of the PCI command register.
	BusMasterEnable = 1 << 2
)

// DeviceHeader is the subset of PCI configuration space this driver
// inspects before deciding which backend owns the device.
type DeviceHeader struct {
	VendorID uint16
	DeviceID uint16
	Class    uint8
}

// Device is an attached PCI function: its bus address and a memory
// mapping of BAR0, ready for MMIO.
type Device struct {
	Addr string // e.g. "0000:03:00.0"
	BAR0 []byte
}

func devDir(addr string) string {
	return filepath.Join(sysfsBus, addr)
}

// ReadConfigHeader opens the device's config-space file and reads the
// vendor ID, device ID and class byte without mapping anything.
func ReadConfigHeader(addr string) (DeviceHeader, error) {
	f, err := os.OpenFile(filepath.Join(devDir(addr), "config"), os.O_RDONLY, 0)
	if err != nil {
		return DeviceHeader{}, fmt.Errorf("open config space for %s: %w", addr, err)
	}
	defer f.Close()

	buf := make([]byte, 16)
	if _, err := f.ReadAt(buf, 0); err != nil {
		return DeviceHeader{}, fmt.Errorf("read config space for %s: %w", addr, err)
	}

	classWord := le32(buf[classOffset:])

	return DeviceHeader{
		VendorID: le16(buf[vendorOffset:]),
		DeviceID: le16(buf[deviceOffset:]),
		Class:    uint8(classWord >> 24),
	}, nil
}

func le16(b []byte) uint16 { return uint16(b[0]) | uint16(b[1])<<8 }

func le32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

// Unbind detaches whatever kernel driver currently owns addr. It
// silently succeeds if no driver is bound, matching the spec's
// "unbind driver" contract.
func Unbind(addr string) error {
	unbindPath := filepath.Join(devDir(addr), "driver", "unbind")

	f, err := os.OpenFile(unbindPath, os.O_WRONLY, 0)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}

		return fmt.Errorf("open %s: %w", unbindPath, err)
	}
	defer f.Close()

	if _, err := f.WriteString(addr); err != nil {
		return fmt.Errorf("write %s to %s: %w", addr, unbindPath, err)
	}

	return nil
}

// EnableDMA sets the Bus Master Enable bit in the PCI command register.
func EnableDMA(addr string) error {
	path := filepath.Join(devDir(addr), "config")

	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	cmd := make([]byte, 2)
	if _, err := f.ReadAt(cmd, cmdOffset); err != nil {
		return fmt.Errorf("read command register of %s: %w", addr, err)
	}

	val := le16(cmd) | BusMasterEnable
	cmd[0] = byte(val)
	cmd[1] = byte(val >> 8)

	if _, err := f.WriteAt(cmd, cmdOffset); err != nil {
		return fmt.Errorf("write command register of %s: %w", addr, err)
	}

	return nil
}

// MapResource unbinds the kernel driver, enables DMA, and maps BAR0
// (resource0) read/write shared, returning the mapped MMIO region.
func MapResource(addr string) (*Device, error) {
	if err := Unbind(addr); err != nil {
		return nil, fmt.Errorf("unbind %s: %w", addr, err)
	}

	if err := EnableDMA(addr); err != nil {
		return nil, fmt.Errorf("enable DMA on %s: %w", addr, err)
	}

	resPath := filepath.Join(devDir(addr), "resource0")

	f, err := os.OpenFile(resPath, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", resPath, err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", resPath, err)
	}

	bar0, err := unix.Mmap(int(f.Fd()), 0, int(fi.Size()), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmap %s: %w", resPath, err)
	}

	return &Device{Addr: addr, BAR0: bar0}, nil
}

// resourceIO marks an I/O-port (as opposed to memory) BAR in the flags
// column of sysfs's "resource" file (Linux IORESOURCE_IO).
const resourceIO = 0x100

// Open attaches to addr without mapping any BAR, for backends (legacy
// virtio) that drive the device over PCI I/O ports instead of MMIO.
func Open(addr string) (Device, error) {
	if _, err := ReadConfigHeader(addr); err != nil {
		return Device{}, err
	}

	return Device{Addr: addr}, nil
}

// Unbind detaches whatever kernel driver currently owns d.
func (d Device) Unbind() error { return Unbind(d.Addr) }

// EnableDMA sets the Bus Master Enable bit for d.
func (d Device) EnableDMA() error { return EnableDMA(d.Addr) }

// IOPortBase reads the device's first I/O-port BAR from sysfs's
// "resource" file and returns its port base, for devices (legacy virtio)
// whose BAR0 is port-mapped rather than memory-mapped.
func (d Device) IOPortBase() (uint16, error) {
	path := filepath.Join(devDir(d.Addr), "resource")

	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) != 3 {
			continue
		}

		start, err := strconv.ParseUint(strings.TrimPrefix(fields[0], "0x"), 16, 64)
		if err != nil {
			continue
		}

		flags, err := strconv.ParseUint(strings.TrimPrefix(fields[2], "0x"), 16, 64)
		if err != nil {
			continue
		}

		if flags&resourceIO != 0 {
			return uint16(start), nil
		}
	}

	return 0, fmt.Errorf("%s: no I/O-port BAR found", d.Addr)
}

// MustMapResource is MapResource with the fatal-on-failure policy the
// driver applies to every device-attachment step.
func MustMapResource(addr string) *Device {
	dev, err := MapResource(addr)
	if err != nil {
		logsink.Fatal("pci", addr, err)
	}

	return dev
}

// RequireNetworkClass terminates the process if addr is not an Ethernet
// controller (PCI class 0x02).
func RequireNetworkClass(addr string) {
	hdr, err := ReadConfigHeader(addr)
	if err != nil {
		logsink.Fatal("pci", addr, err)
	}

	if hdr.Class != NetworkClass {
		logsink.Fatalf("pci", "%s: not a NIC (class 0x%02x)", addr, hdr.Class)
	}
}
