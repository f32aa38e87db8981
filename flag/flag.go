// Package flag parses the command-line surface shared by cmd/pktgen and
// cmd/fwd, mirroring the teacher's flag package: one FlagSet per binary,
// a small typed args struct, a dedicated error for "you called this
// wrong".
package flag

import (
	"errors"
	"flag"
)

// ErrorMissingPCIAddress is returned when a binary is invoked without
// the positional PCI address(es) it requires.
var ErrorMissingPCIAddress = errors.New("expected a PCI address as the first positional argument")

// PktgenArgs configures cmd/pktgen.
type PktgenArgs struct {
	PCIAddr   string
	Queues    int
	BatchSize int
	Profile   bool
}

// ParsePktgenArgs parses args (typically os.Args) for cmd/pktgen.
func ParsePktgenArgs(args []string) (*PktgenArgs, error) {
	fs := flag.NewFlagSet("pktgen", flag.ExitOnError)
	c := &PktgenArgs{}

	fs.IntVar(&c.Queues, "q", 1, "number of rx/tx queue pairs")
	fs.IntVar(&c.BatchSize, "b", 64, "packets per tx_batch call")
	fs.BoolVar(&c.Profile, "profile", false, "enable CPU profiling for the duration of the run")

	if err := fs.Parse(args[1:]); err != nil {
		return nil, err
	}

	if fs.NArg() < 1 {
		return nil, ErrorMissingPCIAddress
	}

	c.PCIAddr = fs.Arg(0)

	return c, nil
}

// FwdArgs configures cmd/fwd.
type FwdArgs struct {
	PCIAddr1 string
	PCIAddr2 string
	Queues   int
	Profile  bool
}

// ParseFwdArgs parses args (typically os.Args) for cmd/fwd.
func ParseFwdArgs(args []string) (*FwdArgs, error) {
	fs := flag.NewFlagSet("fwd", flag.ExitOnError)
	c := &FwdArgs{}

	fs.IntVar(&c.Queues, "q", 1, "number of rx/tx queue pairs per port")
	fs.BoolVar(&c.Profile, "profile", false, "enable CPU profiling for the duration of the run")

	if err := fs.Parse(args[1:]); err != nil {
		return nil, err
	}

	if fs.NArg() < 2 {
		return nil, ErrorMissingPCIAddress
	}

	c.PCIAddr1 = fs.Arg(0)
	c.PCIAddr2 = fs.Arg(1)

	return c, nil
}
