package stateless

import (
	"sync/atomic"
	"time"

	"github.com/jiayi-1994/tuplegen/pkg/tuplegen"
)

// CoreStats is a snapshot of one core's counters.
type CoreStats struct {
	Core    int
	Socket  int
	Portion tuplegen.Portion
	Clients int

	Generated  uint64
	Errors     uint64
	Freed      uint64
	FreeErrors uint64
	Bursts     uint64

	// PortsInUse is sampled at the end of each burst and of the run
	PortsInUse int

	Duration time.Duration
}

// Stats is a snapshot of a Context.
type Stats struct {
	State State
	Info  tuplegen.YamlInfo
	Cores []CoreStats
}

// Totals sums the counters of every core.
func (s Stats) Totals() CoreStats {
	total := CoreStats{Core: -1, Socket: -1}
	for _, c := range s.Cores {
		total.Clients += c.Clients
		total.Generated += c.Generated
		total.Errors += c.Errors
		total.Freed += c.Freed
		total.FreeErrors += c.FreeErrors
		total.Bursts += c.Bursts
		total.PortsInUse += c.PortsInUse
		if c.Duration > total.Duration {
			total.Duration = c.Duration
		}
	}
	return total
}

// counters are written by the owning worker and read by Stats.
type counters struct {
	generated  atomic.Uint64
	errors     atomic.Uint64
	freed      atomic.Uint64
	freeErrors atomic.Uint64
	bursts     atomic.Uint64
	portsInUse atomic.Int64
	duration   atomic.Int64
}
