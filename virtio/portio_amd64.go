//go:build amd64

package virtio

// Legacy virtio configuration lives behind a PCI I/O-port BAR, not an
// MMIO region: the device must be driven with the x86 IN/OUT
// instructions rather than ordinary loads/stores. Go has no portable way
// to express IN/OUT, so the six primitives below are implemented in
// assembly (portio_amd64.s) and declared here without a body, exactly
// the way the teacher declares cpuid_low in cpuid/cpuid.go and backs it
// with cpuid_amd64.s.
//
//nolint:unused
func inb(port uint16) uint8

func outb(port uint16, value uint8)

func inw(port uint16) uint16

func outw(port uint16, value uint16)

func inl(port uint16) uint32

func outl(port uint16, value uint32)
