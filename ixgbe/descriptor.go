package ixgbe

import "unsafe"

// descriptorSize is the fixed size of every advanced RX/TX descriptor:
// a 16-byte union with two views (read vs write-back) selected by who
// currently owns the slot — the driver, or the NIC. This is the same
// tagged read/write access discipline the teacher applies to its
// VirtQueue descriptor table (virtio/net.go): one block of memory, two
// Go struct views cast over it with unsafe.Pointer, with the protocol
// (here, the DD bit) deciding which view is valid at a given moment.
const descriptorSize = 16

// rxDescRead is the descriptor layout the driver writes before posting a
// buffer to the NIC (82599 datasheet §7.1.6.1, read format).
type rxDescRead struct {
	PktAddr uint64
	HdrAddr uint64
}

// rxDescWB is the descriptor layout the NIC writes back on completion
// (82599 datasheet §7.1.6.1, write-back format). Only the fields the
// driver's hot path inspects are named; the rest are opaque padding.
type rxDescWB struct {
	_           uint32 // RSS hash / packet type / fragment checksum
	_           uint32 // header info
	StatusError uint32
	Length      uint16
	VlanTag     uint16
}

// rxRing is a DMA-resident array of RX descriptors.
type rxRing []byte

func (r rxRing) read(i int) *rxDescRead {
	return (*rxDescRead)(unsafe.Pointer(&r[i*descriptorSize]))
}

func (r rxRing) writeback(i int) *rxDescWB {
	return (*rxDescWB)(unsafe.Pointer(&r[i*descriptorSize]))
}

// txDescRead is the descriptor layout the driver writes to enqueue a
// buffer for transmission (82599 datasheet §7.2.3.2.4, read format).
type txDescRead struct {
	BufferAddr   uint64
	CmdTypeLen   uint32
	OlinfoStatus uint32
}

// txDescWB overlays the same 16 bytes after the NIC reports completion;
// only the status word (carrying the DD bit) is named.
type txDescWB struct {
	_      uint64
	_      uint32
	Status uint32
}

// txRing is a DMA-resident array of TX descriptors.
type txRing []byte

func (r txRing) read(i int) *txDescRead {
	return (*txDescRead)(unsafe.Pointer(&r[i*descriptorSize]))
}

func (r txRing) writeback(i int) *txDescWB {
	return (*txDescWB)(unsafe.Pointer(&r[i*descriptorSize]))
}
