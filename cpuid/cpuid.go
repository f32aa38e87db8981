// Package cpuid exposes the raw CPUID instruction and the feature bits
// decoded from it, used to feature-gate optional fast paths rather than
// to patch hypervisor-exposed CPUID leaves.
package cpuid

func cpuid_low(arg1, arg2 uint32) (eax, ebx, ecx, edx uint32) // implemented in cpuid_amd64.s

// CPUID executes the CPUID instruction for the given leaf (EAX) with
// sub-leaf (ECX) zero.
func CPUID(leaf uint32) (uint32, uint32, uint32, uint32) {
	return cpuid_low(leaf, 0)
}

// avx2Bit is bit 5 of EBX in CPUID leaf 7, sub-leaf 0.
const avx2Bit = 1 << 5

// HasAVX2 reports whether the running CPU advertises AVX2 support. It
// gates the 8-byte-at-a-time path of virtio.ChecksumComplete; CPUs
// without it use the 2-byte-at-a-time loop.
func HasAVX2() bool {
	_, ebx, _, _ := CPUID(7)
	return ebx&avx2Bit != 0
}
