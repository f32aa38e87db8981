package flag_test

import (
	"errors"
	"testing"

	"github.com/ixy-go/ixy/flag"
)

func TestParsePktgenArgsReadsPositionalAddress(t *testing.T) {
	t.Parallel()

	c, err := flag.ParsePktgenArgs([]string{"pktgen", "-q", "2", "-b", "32", "0000:03:00.0"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if c.PCIAddr != "0000:03:00.0" || c.Queues != 2 || c.BatchSize != 32 {
		t.Fatalf("unexpected args: %+v", c)
	}
}

func TestParsePktgenArgsDefaults(t *testing.T) {
	t.Parallel()

	c, err := flag.ParsePktgenArgs([]string{"pktgen", "0000:03:00.0"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if c.Queues != 1 || c.BatchSize != 64 || c.Profile {
		t.Fatalf("unexpected defaults: %+v", c)
	}
}

func TestParsePktgenArgsMissingAddress(t *testing.T) {
	t.Parallel()

	_, err := flag.ParsePktgenArgs([]string{"pktgen"})
	if !errors.Is(err, flag.ErrorMissingPCIAddress) {
		t.Fatalf("expected ErrorMissingPCIAddress, got %v", err)
	}
}

func TestParseFwdArgsReadsBothAddresses(t *testing.T) {
	t.Parallel()

	c, err := flag.ParseFwdArgs([]string{"fwd", "-profile", "0000:03:00.0", "0000:04:00.0"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if c.PCIAddr1 != "0000:03:00.0" || c.PCIAddr2 != "0000:04:00.0" || !c.Profile {
		t.Fatalf("unexpected args: %+v", c)
	}
}

func TestParseFwdArgsMissingSecondAddress(t *testing.T) {
	t.Parallel()

	_, err := flag.ParseFwdArgs([]string{"fwd", "0000:03:00.0"})
	if !errors.Is(err, flag.ErrorMissingPCIAddress) {
		t.Fatalf("expected ErrorMissingPCIAddress, got %v", err)
	}
}
