package virtio

import "github.com/ixy-go/ixy/cpuid"

// useWideChecksum is resolved once per process: AVX2-capable hosts tend
// to also have wider load/store paths, so the 8-byte-at-a-time loop pays
// off there; older hosts stick to the 2-byte loop to avoid the unaligned
// tail-handling overhead for no benefit.
var useWideChecksum = cpuid.HasAVX2()

// ChecksumComplete computes the Internet checksum's ones-complement sum
// (RFC 1071) over data, folding the carry at the end. virtio-net's
// GUEST_CSUM feature lets the device hand up frames with an unfinished
// checksum; this driver exposes raw frame batches rather than parsing
// transport headers itself, so completing the checksum for a given
// frame's payload is left to the caller, with this helper doing the
// actual arithmetic.
func ChecksumComplete(data []byte) uint16 {
	var sum uint32

	if useWideChecksum {
		sum, data = accumulateWide(data)
	}

	sum += accumulateNarrow(data)

	return foldChecksum(sum)
}

// accumulateNarrow adds every remaining 16-bit big-endian word in data
// (plus a final odd byte, high-byte aligned per RFC 1071) to an unfolded
// running sum.
func accumulateNarrow(data []byte) uint32 {
	var sum uint32

	for len(data) >= 2 {
		sum += uint32(data[0])<<8 | uint32(data[1])
		data = data[2:]
	}

	if len(data) == 1 {
		sum += uint32(data[0]) << 8
	}

	return sum
}

// accumulateWide sums 8 bytes (four 16-bit words) per iteration,
// returning the running sum and whatever tail (fewer than 8 bytes)
// didn't fit a full iteration, for accumulateNarrow to finish.
func accumulateWide(data []byte) (uint32, []byte) {
	var sum uint32

	for len(data) >= 8 {
		sum += uint32(data[0])<<8 | uint32(data[1])
		sum += uint32(data[2])<<8 | uint32(data[3])
		sum += uint32(data[4])<<8 | uint32(data[5])
		sum += uint32(data[6])<<8 | uint32(data[7])
		data = data[8:]
	}

	return sum, data
}

func foldChecksum(sum uint32) uint16 {
	for sum>>16 != 0 {
		sum = (sum & 0xffff) + (sum >> 16)
	}

	return uint16(sum)
}
