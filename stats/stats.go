// Package stats implements the rollover-safe counter delta and rate
// computation the spec requires of print_stats_diff, on top of the
// device.Stats snapshot every backend fills in.
package stats

import (
	"fmt"

	"github.com/ixy-go/ixy/device"
)

// Delta is the rollover-safe difference between two snapshots taken
// nanosecondsElapsed apart, expressed as packet and bit rates.
type Delta struct {
	RxMpps float64
	TxMpps float64
	RxMbps float64
	TxMbps float64
}

// diff64 computes b-a treating both as free-running 64-bit hardware
// counters: on wraparound this would look like a in front of b, but the
// ixgbe counters this package feeds from are 64 bits wide already pieced
// together from their low/high register halves, so in practice the only
// wraparound is the full 64-bit space, and the unsigned subtraction below
// produces the correct delta even across that wrap.
func diff64(a, b uint64) uint64 {
	return b - a
}

// PrintDiff computes and prints the packet/bit rate between two stats
// snapshots nanosElapsed apart, in the spec's print_stats_diff form.
func PrintDiff(name string, cur, prev *device.Stats, nanosElapsed uint64) Delta {
	d := ComputeDiff(cur, prev, nanosElapsed)

	fmt.Printf("[%s] rx: %.2f Mpps, %.2f Mbit/s | tx: %.2f Mpps, %.2f Mbit/s\n",
		name, d.RxMpps, d.RxMbps, d.TxMpps, d.TxMbps)

	return d
}

// ComputeDiff is PrintDiff without the print, useful for tests and for
// callers that want to format the rate themselves.
func ComputeDiff(cur, prev *device.Stats, nanosElapsed uint64) Delta {
	seconds := float64(nanosElapsed) / 1e9
	if seconds <= 0 {
		return Delta{}
	}

	rxPkts := diff64(prev.RxPackets, cur.RxPackets)
	txPkts := diff64(prev.TxPackets, cur.TxPackets)
	rxBytes := diff64(prev.RxBytes, cur.RxBytes)
	txBytes := diff64(prev.TxBytes, cur.TxBytes)

	// Ethernet-on-the-wire overhead: 20 bytes of preamble/IFG per frame,
	// counted in bits below.
	const frameOverheadBits = 20 * 8

	return Delta{
		RxMpps: float64(rxPkts) / seconds / 1e6,
		TxMpps: float64(txPkts) / seconds / 1e6,
		RxMbps: (float64(rxBytes)*8 + float64(rxPkts)*frameOverheadBits) / seconds / 1e6,
		TxMbps: (float64(txBytes)*8 + float64(txPkts)*frameOverheadBits) / seconds / 1e6,
	}
}
