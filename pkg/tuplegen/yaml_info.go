// Package tuplegen implements flow tuple generation for the traffic engine.
//
// A tuple is the (client IP, client port, server IP[, extra ports]) set
// used to build one simulated flow. The package provides:
// - YamlInfo: the global client/server ranges and their validation rules
// - SplitClients: the per-core partitioning of those ranges
// - Generator: the per-core tuple engine owning one port allocator per client
// - TemplateGenerator: weighted client repetition and single-server override
//
// Pipeline:
//
//	YamlInfo.Normalize -> SplitClients -> NewGenerator -> NewTemplateGenerator
//
// Each Generator is owned by one worker goroutine. The partitioner
// guarantees that no two workers share a client or server address, so the
// allocation path takes no locks.
package tuplegen

import (
	"fmt"
	"io"
	"math"

	"github.com/jiayi-1994/tuplegen/pkg/util"
)

// YamlInfo holds the global client/server address ranges of a profile.
// All bounds are inclusive host-order IPv4 addresses.
type YamlInfo struct {
	ClientStart uint32
	ClientEnd   uint32
	ServerStart uint32
	ServerEnd   uint32

	// DualInterfaceMask is added to every bound for cores serving the
	// second interface of a port pair
	DualInterfaceMask uint32
}

// ClientCount returns the size of the client range
func (y *YamlInfo) ClientCount() uint64 {
	return util.RangeSize(y.ClientStart, y.ClientEnd)
}

// ServerCount returns the size of the server range
func (y *YamlInfo) ServerCount() uint64 {
	return util.RangeSize(y.ServerStart, y.ServerEnd)
}

// Normalize checks that the ranges can be partitioned across cores and
// rounds the server range down so that it divides evenly.
//
// Rules:
//   - both ranges must be ordered and cores must be >= 1
//   - the client range must hold a multiple of cores addresses
//   - the server range must hold at least clients*cores addresses
//   - with dualInterface the mask must shift each range past itself
//     without leaving the 32-bit space
//
// The receiver is only modified on success. Normalizing an already
// normalized YamlInfo changes nothing.
//
// Returns:
//   - uint32: The adjusted server end
//   - error: *InvalidRangeConfigError describing the first violated rule
func (y *YamlInfo) Normalize(cores int, dualInterface bool) (uint32, error) {
	if cores < 1 {
		return 0, invalidRange("core count must be at least 1, got %d", cores)
	}
	if y.ClientStart > y.ClientEnd {
		return 0, invalidRange("client start %s is after client end %s",
			util.FormatIPv4(y.ClientStart), util.FormatIPv4(y.ClientEnd))
	}
	if y.ServerStart > y.ServerEnd {
		return 0, invalidRange("server start %s is after server end %s",
			util.FormatIPv4(y.ServerStart), util.FormatIPv4(y.ServerEnd))
	}

	n := uint64(cores)
	clients := y.ClientCount()
	if clients < n {
		return 0, invalidRange("%d clients cannot be split across %d cores", clients, cores)
	}
	if clients%n != 0 {
		suggested := uint64(y.ClientStart) + clients - clients%n - 1
		return 0, invalidRange("client range of %d addresses is not divisible by %d cores (try client end %s)",
			clients, cores, util.FormatIPv4(uint32(suggested)))
	}

	servers := y.ServerCount()
	if required := clients * n; servers < required {
		return 0, invalidRange("server range of %d addresses is smaller than %d clients x %d cores = %d",
			servers, clients, cores, required)
	}
	servers -= servers % n
	serverEnd := uint32(uint64(y.ServerStart) + servers - 1)

	if dualInterface {
		mask := uint64(y.DualInterfaceMask)
		if mask == 0 {
			return 0, invalidRange("dual interface mode requires a non-zero dual interface mask")
		}
		if clients > mask || servers > mask {
			return 0, invalidRange("dual interface mask %#x is smaller than the address ranges (%d clients, %d servers)",
				y.DualInterfaceMask, clients, servers)
		}
		if uint64(y.ClientEnd)+mask > math.MaxUint32 || uint64(serverEnd)+mask > math.MaxUint32 {
			return 0, invalidRange("dual interface mask %#x shifts the ranges past 255.255.255.255", y.DualInterfaceMask)
		}
	}

	y.ServerEnd = serverEnd
	return serverEnd, nil
}

// Dump writes a human-readable description of the ranges.
func (y *YamlInfo) Dump(w io.Writer) {
	fmt.Fprintf(w, "clients: %s - %s (%d)\n",
		util.FormatIPv4(y.ClientStart), util.FormatIPv4(y.ClientEnd), y.ClientCount())
	fmt.Fprintf(w, "servers: %s - %s (%d)\n",
		util.FormatIPv4(y.ServerStart), util.FormatIPv4(y.ServerEnd), y.ServerCount())
	fmt.Fprintf(w, "dual interface mask: %#08x\n", y.DualInterfaceMask)
}
