package tuplegen

import (
	"fmt"
	"math"
	"slices"

	"github.com/jiayi-1994/tuplegen/pkg/util"
)

// Portion is one core's slice of the global client/server ranges.
// All bounds are inclusive.
type Portion struct {
	ClientStart uint32
	ClientEnd   uint32
	ServerStart uint32
	ServerEnd   uint32
}

// Clients returns the number of client addresses in the portion
func (p Portion) Clients() uint64 {
	return util.RangeSize(p.ClientStart, p.ClientEnd)
}

// Servers returns the number of server addresses in the portion
func (p Portion) Servers() uint64 {
	return util.RangeSize(p.ServerStart, p.ServerEnd)
}

// String formats the portion as "clients [a-b] servers [c-d]"
func (p Portion) String() string {
	return fmt.Sprintf("clients [%s-%s] servers [%s-%s]",
		util.FormatIPv4(p.ClientStart), util.FormatIPv4(p.ClientEnd),
		util.FormatIPv4(p.ServerStart), util.FormatIPv4(p.ServerEnd))
}

// SplitClients computes the disjoint client/server slice owned by core.
//
// Both ranges are cut into cores equal spans; core gets span number core.
// socket 1 selects the second interface, whose block is the socket 0 block
// shifted by info.DualInterfaceMask.
//
// Parameters:
//   - core: Index of the core, in [0, cores)
//   - cores: Total number of cores sharing the ranges
//   - socket: Interface of the core, 0 or 1
//   - info: Normalized global ranges
//
// Returns:
//   - Portion: The core's slice
//   - error: ErrInvalidPartition for bad indexes,
//     *PartitionMisalignmentError when a range does not divide evenly
//
// Example:
//
//	// 256 clients from 16.0.0.0, 4 cores, socket 1, mask 0x01000000
//	p, _ := SplitClients(2, 4, 1, info) // clients [17.0.0.128-17.0.0.191]
func SplitClients(core, cores, socket int, info YamlInfo) (Portion, error) {
	if cores <= 0 || core < 0 || core >= cores {
		return Portion{}, fmt.Errorf("%w: core %d of %d", ErrInvalidPartition, core, cores)
	}
	if socket != 0 && socket != 1 {
		return Portion{}, fmt.Errorf("%w: socket must be 0 or 1, got %d", ErrInvalidPartition, socket)
	}

	var p Portion
	var err error
	if p.ClientStart, p.ClientEnd, err = splitRange("client", info.ClientStart, info.ClientEnd, core, cores); err != nil {
		return Portion{}, err
	}
	if p.ServerStart, p.ServerEnd, err = splitRange("server", info.ServerStart, info.ServerEnd, core, cores); err != nil {
		return Portion{}, err
	}

	if socket == 1 {
		mask := uint64(info.DualInterfaceMask)
		if uint64(p.ClientEnd)+mask > math.MaxUint32 || uint64(p.ServerEnd)+mask > math.MaxUint32 {
			return Portion{}, fmt.Errorf("%w: dual interface mask %#x overflows %s", ErrInvalidPartition, mask, p)
		}
		m := info.DualInterfaceMask
		p.ClientStart += m
		p.ClientEnd += m
		p.ServerStart += m
		p.ServerEnd += m
	}

	return p, nil
}

// splitRange returns span number core of [start, end] cut into cores spans.
func splitRange(name string, start, end uint32, core, cores int) (uint32, uint32, error) {
	size := util.RangeSize(start, end)
	if size == 0 {
		return 0, 0, fmt.Errorf("%w: %s range %s-%s is inverted", ErrInvalidPartition,
			name, util.FormatIPv4(start), util.FormatIPv4(end))
	}
	if size%uint64(cores) != 0 {
		return 0, 0, &PartitionMisalignmentError{Range: name, Size: size, Cores: cores}
	}

	span := size / uint64(cores)
	first := uint64(start) + uint64(core)*span
	return uint32(first), uint32(first + span - 1), nil
}

// SplitAll partitions info across cores. With dualInterface, odd cores are
// placed on socket 1.
func SplitAll(cores int, dualInterface bool, info YamlInfo) ([]Portion, error) {
	portions := make([]Portion, 0, cores)
	for core := 0; core < cores; core++ {
		p, err := SplitClients(core, cores, SocketOf(core, dualInterface), info)
		if err != nil {
			return nil, fmt.Errorf("failed to split core %d: %w", core, err)
		}
		portions = append(portions, p)
	}
	return portions, nil
}

// SocketClients maps an explicit client list, given in first interface
// addresses, onto a core's portion. Socket 1 cores see every client
// shifted by the dual interface mask. The result is sorted, deduplicated
// and may be empty.
func SocketClients(clients []uint32, p Portion, socket int, info YamlInfo) []uint32 {
	var offset uint64
	if socket == 1 {
		offset = uint64(info.DualInterfaceMask)
	}
	out := make([]uint32, 0, len(clients))
	for _, ip := range clients {
		shifted := uint64(ip) + offset
		if shifted >= uint64(p.ClientStart) && shifted <= uint64(p.ClientEnd) {
			out = append(out, uint32(shifted))
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// SocketOf returns the interface a core serves.
func SocketOf(core int, dualInterface bool) int {
	if dualInterface {
		return core & 1
	}
	return 0
}
