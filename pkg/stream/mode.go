// Package stream describes how a stream emits its packets over time.
//
// A Mode is one of three shapes:
//   - continuous: emit at PPS until stopped
//   - single burst: emit TotalPkts at PPS, then stop
//   - multi burst: emit Bursts bursts of PktsPerBurst at PPS, pausing IBG
//     between bursts
//
// A PPS of zero means unpaced.
package stream

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Type selects the transmission shape of a stream.
type Type int

const (
	Continuous Type = iota
	SingleBurst
	MultiBurst
)

var typeNames = map[Type]string{
	Continuous:  "continuous",
	SingleBurst: "single_burst",
	MultiBurst:  "multi_burst",
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// ParseType parses a stream type name. Matching is case-insensitive and
// accepts dashes in place of underscores.
func ParseType(s string) (Type, error) {
	norm := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	for t, name := range typeNames {
		if name == norm {
			return t, nil
		}
	}
	return 0, fmt.Errorf("bad stream type provided: %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (t Type) MarshalText() ([]byte, error) {
	if _, ok := typeNames[t]; !ok {
		return nil, fmt.Errorf("unknown stream type %d", int(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Type) UnmarshalText(text []byte) error {
	parsed, err := ParseType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ErrInvalidMode is wrapped by every Validate failure.
var ErrInvalidMode = errors.New("invalid stream mode")

// Mode is the transmission mode of a stream. Only the fields relevant to
// Type are meaningful.
type Mode struct {
	Type Type `json:"type" yaml:"type"`

	// PPS is the packet rate, zero for unpaced
	PPS float64 `json:"pps" yaml:"pps"`

	// TotalPkts is the size of a single burst
	TotalPkts uint64 `json:"total_pkts,omitempty" yaml:"totalPkts,omitempty"`

	PktsPerBurst uint64 `json:"pkts_per_burst,omitempty" yaml:"pktsPerBurst,omitempty"`
	Bursts       uint64 `json:"number_of_bursts,omitempty" yaml:"bursts,omitempty"`

	// IBG is the inter-burst gap
	IBG time.Duration `json:"ibg,omitempty" yaml:"ibg,omitempty"`
}

// NewContinuous returns a continuous mode at pps.
func NewContinuous(pps float64) Mode {
	return Mode{Type: Continuous, PPS: pps}
}

// NewSingleBurst returns a mode that sends total packets at pps.
func NewSingleBurst(total uint64, pps float64) Mode {
	return Mode{Type: SingleBurst, PPS: pps, TotalPkts: total}
}

// NewMultiBurst returns a mode that sends bursts bursts of perBurst packets
// at pps, separated by ibg.
func NewMultiBurst(perBurst uint64, pps float64, bursts uint64, ibg time.Duration) Mode {
	return Mode{Type: MultiBurst, PPS: pps, PktsPerBurst: perBurst, Bursts: bursts, IBG: ibg}
}

// Validate checks the fields required by the mode's type.
func (m Mode) Validate() error {
	if m.PPS < 0 {
		return fmt.Errorf("%w: negative pps %v", ErrInvalidMode, m.PPS)
	}
	switch m.Type {
	case Continuous:
	case SingleBurst:
		if m.TotalPkts == 0 {
			return fmt.Errorf("%w: single_burst requires total_pkts > 0", ErrInvalidMode)
		}
	case MultiBurst:
		if m.PktsPerBurst == 0 {
			return fmt.Errorf("%w: multi_burst requires pkts_per_burst > 0", ErrInvalidMode)
		}
		if m.Bursts == 0 {
			return fmt.Errorf("%w: multi_burst requires number_of_bursts > 0", ErrInvalidMode)
		}
		if m.IBG < 0 {
			return fmt.Errorf("%w: negative ibg %s", ErrInvalidMode, m.IBG)
		}
	default:
		return fmt.Errorf("%w: unknown type %d", ErrInvalidMode, int(m.Type))
	}
	return nil
}

// Budget returns the total number of packets the mode emits. The bool is
// false for continuous streams, which have no budget.
func (m Mode) Budget() (uint64, bool) {
	switch m.Type {
	case SingleBurst:
		return m.TotalPkts, true
	case MultiBurst:
		return m.PktsPerBurst * m.Bursts, true
	default:
		return 0, false
	}
}

// ForCore returns the share of m run by core out of cores. Packet counts
// and rate are divided evenly, lower cores taking the remainder. Burst
// count and gap are unchanged so that all cores burst together.
func (m Mode) ForCore(core, cores int) Mode {
	if cores <= 1 {
		return m
	}
	out := m
	out.PPS = m.PPS / float64(cores)
	out.TotalPkts = share(m.TotalPkts, core, cores)
	out.PktsPerBurst = share(m.PktsPerBurst, core, cores)
	return out
}

func share(total uint64, core, cores int) uint64 {
	n := uint64(cores)
	s := total / n
	if uint64(core) < total%n {
		s++
	}
	return s
}

// Interval returns the gap between two packets at the mode's rate, zero
// when unpaced.
func (m Mode) Interval() time.Duration {
	if m.PPS <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / m.PPS)
}

func (m Mode) String() string {
	switch m.Type {
	case SingleBurst:
		return fmt.Sprintf("%s total=%d pps=%g", m.Type, m.TotalPkts, m.PPS)
	case MultiBurst:
		return fmt.Sprintf("%s bursts=%d x %d pps=%g ibg=%s", m.Type, m.Bursts, m.PktsPerBurst, m.PPS, m.IBG)
	default:
		return fmt.Sprintf("%s pps=%g", m.Type, m.PPS)
	}
}
