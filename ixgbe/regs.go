// Package ixgbe drives an Intel 82599-family 10GbE controller: reset,
// link bring-up, receive/transmit ring programming, and the hot-path
// descriptor protocol. Register offsets and bit layouts below follow the
// Intel 82599 datasheet sections the spec itself cites (§7.1.6.1 for the
// advanced RX descriptor, §7.2.3.2.4 for the advanced TX descriptor);
// constant naming follows the teacher's machine/constants.go convention
// of one flat const block per concern.
package ixgbe

// General control registers.
const (
	regCTRL    = 0x00000
	regCTRLExt = 0x00018
	regEIMC    = 0x00888
	regEEC     = 0x10010
	regAUTOC   = 0x042A0
	regAUTOC2  = 0x042A8
	regLINKS   = 0x042A4
	regRDRXCTL = 0x02F00
	regRXCTRL  = 0x03000
	regHLREG0  = 0x04240
	regFCTRL   = 0x05080

	regDTXMXSZRQ = 0x08100
	regRTTDCS    = 0x04900
	regDMATXCTL  = 0x04A80

	regGPRC  = 0x04074
	regGPTC  = 0x04080
	regGORCL = 0x04088
	regGORCH = 0x0408C
	regGOTCL = 0x04090
	regGOTCH = 0x04094
)

// CTRL bits.
const (
	ctrlLinkReset = 0x00000008
	ctrlReset     = 0x04000000
	ctrlRstMask   = ctrlLinkReset | ctrlReset
)

// CTRL_EXT bits.
const (
	ctrlExtNsDis = 0x00010000
)

// EEC bits.
const (
	eecAutoRd = 0x00000200
)

// RDRXCTL bits.
const (
	rdrxctlDMAIdone = 0x00000008
	rdrxctlCRCStrip = 0x00000002
)

// AUTOC bits (10GbE KX4/KR autonegotiation).
const (
	autocLMSMask      = 0x7 << 13
	autocLMS10GSerial = 0x3 << 13
	autocPMAPMDMask   = 0x00000180
	autoc10GXAUI      = 0x0 << 7
	autocRestartAN    = 0x00001000
)

// LINKS bits.
const (
	linksUp        = 0x40000000
	linksSpeedMask = 0x00000300
	linksSpeed10G  = 0x00000300
	linksSpeed1G   = 0x00000200
	linksSpeed100M = 0x00000100
)

// RXCTRL bits.
const (
	rxctrlEn = 0x00000001
)

// HLREG0 bits.
const (
	hlreg0RxCRCStrip = 0x00000002
)

// FCTRL bits (promiscuous mode).
const (
	fctrlMPE = 0x00000100
	fctrlUPE = 0x00000200
)

// RXPBSIZE / TXPBSIZE (per-packet-buffer sizing; only buffer 0 is used,
// the rest are zeroed per the spec).
const (
	regRXPBSIZE0 = 0x03C00
	regTXPBSIZE0 = 0x0CC00

	rxpbsize0Value = 0x00080000 // 512 KB
	txpbsize0Value = 0x0000A000 // 40 KB
)

// DTXMXSZRQ / RTTDCS / DMATXCTL.
const (
	dtxmxszrqValue = 0x0000FFFF
	rttdcsArbdis   = 0x00000040
	dmatxctlTE     = 0x00000001
)

// per-queue register blocks (queues 0..63).
func regRDBAL(q int) int  { return 0x01000 + q*0x40 }
func regRDBAH(q int) int  { return 0x01004 + q*0x40 }
func regRDLEN(q int) int  { return 0x01008 + q*0x40 }
func regRDH(q int) int    { return 0x01010 + q*0x40 }
func regRDT(q int) int    { return 0x01018 + q*0x40 }
func regRXDCTL(q int) int { return 0x01028 + q*0x40 }
func regSRRCTL(q int) int { return 0x02100 + q*0x40 }

func regTDBAL(q int) int  { return 0x06000 + q*0x40 }
func regTDBAH(q int) int  { return 0x06004 + q*0x40 }
func regTDLEN(q int) int  { return 0x06008 + q*0x40 }
func regTDH(q int) int    { return 0x06010 + q*0x40 }
func regTDT(q int) int    { return 0x06018 + q*0x40 }
func regTXDCTL(q int) int { return 0x06028 + q*0x40 }

// SRRCTL bits.
const (
	srrctlBsizePktShift = 0 // packet buffer size, in 1 KB units
	srrctlDescTypeAdv   = 0x02000000
	srrctlDropEn        = 0x10000000
)

// RXDCTL / TXDCTL bits.
const (
	rxdctlEnable = 0x02000000
	txdctlEnable = 0x02000000

	// TXDCTL prefetch/host/write-back thresholds: vendor-recommended
	// values for a single-queue, poll-driven transmit path (82599
	// datasheet §7.2.3.3, "performance tuning").
	txdctlPthreshShift = 0
	txdctlHthreshShift = 8
	txdctlWthreshShift = 16
	txdctlPthresh      = 36
	txdctlHthresh      = 8
	txdctlWthresh      = 4
)

// Advanced RX descriptor write-back status_error bits.
const (
	rxdStatusDD  = 0x01
	rxdStatusEOP = 0x02
)

// Advanced TX descriptor cmd_type_len bits and olinfo_status shift.
const (
	txdCmdEOP  = 0x01000000
	txdCmdRS   = 0x08000000
	txdCmdIFCS = 0x02000000
	txdCmdDEXT = 0x20000000
	txdDTypAdv = 0x00300000

	txdPaylenShift = 14
)
