// Command fwd forwards packets between two NICs in both directions,
// reporting per-port throughput once a second until interrupted.
package main

import (
	"net/http"
	"os"
	"time"

	"github.com/felixge/fgprof"
	"github.com/pkg/profile"

	"github.com/ixy-go/ixy/device"
	"github.com/ixy-go/ixy/flag"
	"github.com/ixy-go/ixy/ixy"
	"github.com/ixy-go/ixy/logsink"
	"github.com/ixy-go/ixy/memory"
	"github.com/ixy-go/ixy/stats"
)

const (
	batchSize = 64
	debugAddr = "localhost:6060"
)

func main() {
	args, err := flag.ParseFwdArgs(os.Args)
	if err != nil {
		logsink.Fatal("fwd", "args", err)
	}

	if args.Profile {
		defer profile.Start(profile.ProfilePath(".")).Stop()

		http.DefaultServeMux.Handle("/debug/fgprof", fgprof.Handler())
		go func() {
			if err := http.ListenAndServe(debugAddr, nil); err != nil {
				logsink.Infof("fwd", "debug server stopped: %v", err)
			}
		}()
	}

	nic1 := ixy.MustInit(args.PCIAddr1, args.Queues, args.Queues)
	nic2 := ixy.MustInit(args.PCIAddr2, args.Queues, args.Queues)

	var prev1, cur1, prev2, cur2 device.Stats
	lastReport := time.Now()

	bufs := make([]*memory.PktBuf, batchSize)

	for {
		forward(nic1, nic2, bufs)
		forward(nic2, nic1, bufs)

		if elapsed := time.Since(lastReport); elapsed >= time.Second {
			nic1.ReadStats(&cur1)
			nic2.ReadStats(&cur2)

			stats.PrintDiff(args.PCIAddr1, &cur1, &prev1, uint64(elapsed.Nanoseconds()))
			stats.PrintDiff(args.PCIAddr2, &cur2, &prev2, uint64(elapsed.Nanoseconds()))

			prev1, prev2 = cur1, cur2
			lastReport = time.Now()
		}
	}
}

// forward moves one batch of packets from src to dst, freeing back to
// src's pool anything dst's tx ring couldn't accept.
func forward(src, dst device.Device, bufs []*memory.PktBuf) {
	n := src.RxBatch(0, bufs)
	if n == 0 {
		return
	}

	sent := dst.TxBatch(0, bufs[:n])
	for _, buf := range bufs[sent:n] {
		buf.Free()
	}
}
