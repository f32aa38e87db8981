// Command pktgen generates a constant-rate stream of minimum-size UDP
// packets out of one NIC, reporting throughput once a second until
// interrupted. It mirrors ixy's own pktgen demo.
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

// debugAddr serves fgprof's wall-clock profile endpoint; the resulting
// profile is a standard pprof protobuf, inspectable with `go tool pprof`
// (backed by google/pprof) once fetched.
const debugAddr = "localhost:6060"

const numBufs = 2048

// packetTemplate is a 60-byte minimum-size Ethernet frame carrying a UDP
// datagram with an 18-byte zero payload, broadcast destination, identical
// in shape to the reference ixy pktgen payload.
var packetTemplate = []byte{
	0xff, 0xff, 0xff, 0xff, 0xff, 0xff, // dst mac: broadcast
	0x02, 0x00, 0x00, 0x00, 0x00, 0x01, // src mac
	0x08, 0x00, // ethertype: IPv4
	0x45, 0x00, // IPv4 version/IHL, DSCP/ECN
	0x00, 0x2e, // total length: 46
	0x00, 0x00, 0x00, 0x00, // identification, flags/fragment offset
	0x40, 0x11, 0x00, 0x00, // TTL, protocol: UDP, checksum (unset)
	0x0a, 0x00, 0x00, 0x01, // src ip: 10.0.0.1
	0x0a, 0x00, 0x00, 0x02, // dst ip: 10.0.0.2
	0x00, 0x2a, 0x00, 0x2a, // src port 42, dst port 42
	0x00, 0x1a, 0x00, 0x00, // UDP length: 26, checksum (unset)
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, // payload
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, // payload
}

func main() {
	args, err := flag.ParsePktgenArgs(os.Args)
	if err != nil {
		logsink.Fatal("pktgen", "args", err)
	}

	if args.Profile {
		defer profile.Start(profile.ProfilePath(".")).Stop()

		http.DefaultServeMux.Handle("/debug/fgprof", fgprof.Handler())
		go func() {
			if err := http.ListenAndServe(debugAddr, nil); err != nil {
				logsink.Infof("pktgen", "debug server stopped: %v", err)
			}
		}()
	}

	mempool := memory.MustNewMempool(numBufs, memory.DefaultEntrySize)

	nic := ixy.MustInit(args.PCIAddr, args.Queues, args.Queues)

	bufs := make([]*memory.PktBuf, args.BatchSize)

	var prev, cur device.Stats
	lastReport := time.Now()

	for {
		n := mempool.AllocBatch(bufs, args.BatchSize)
		for i := 0; i < n; i++ {
			copy(bufs[i].Data, packetTemplate)
			bufs[i].Size = uint32(len(packetTemplate))
		}

		sent := 0
		for sent < n {
			sent += nic.TxBatch(0, bufs[sent:n])
		}

		if elapsed := time.Since(lastReport); elapsed >= time.Second {
			nic.ReadStats(&cur)
			stats.PrintDiff(args.PCIAddr, &cur, &prev, uint64(elapsed.Nanoseconds()))
			prev = cur
			lastReport = time.Now()
		}
	}
}
