// Package types provides type definitions and constants.
//
// This package contains:
// - Ephemeral port space bounds
// - Distribution policy definitions
// - Default configuration values
package types

import "fmt"

const (
	// MinPort is the first allocatable client port (inclusive)
	MinPort = 1024

	// MaxPort bounds the ephemeral port space (exclusive)
	MaxPort = 64000

	// PortSpace is the number of allocatable ports per client
	PortSpace = MaxPort - MinPort

	// IllegalPort is returned when no port could be allocated
	IllegalPort uint16 = 0

	// Default configuration values
	DefaultCores          = 1
	DefaultMaxClientPort  = MaxPort
	DefaultMaxServerPort  = MaxPort
	DefaultMetricsAddress = ":9110"
	DefaultTemplateWeight = 1

	// EnvPrefix is the prefix for environment variable overrides
	EnvPrefix = "TUPLEGEN_"
)

// Distribution selects how the next client IP is picked.
type Distribution int

const (
	// DistSequential walks the client range in ascending order, wrapping
	DistSequential Distribution = iota
	// DistRandom picks a pseudo-random client on every tuple
	DistRandom
)

// String returns the configuration name of the distribution.
func (d Distribution) String() string {
	switch d {
	case DistSequential:
		return "seq"
	case DistRandom:
		return "random"
	default:
		return fmt.Sprintf("Distribution(%d)", int(d))
	}
}

// ParseDistribution converts a configuration string to a Distribution.
func ParseDistribution(s string) (Distribution, error) {
	switch s {
	case "", "seq", "sequential":
		return DistSequential, nil
	case "random", "rand":
		return DistRandom, nil
	default:
		return DistSequential, fmt.Errorf("unknown distribution %q (must be 'seq' or 'random')", s)
	}
}
