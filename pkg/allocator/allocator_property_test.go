// Package allocator provides per-client ephemeral port allocation.
//
// Property-based tests for the port allocators.
package allocator

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/jiayi-1994/tuplegen/pkg/types"
)

// TestProperty_IsLegalMatchesRange verifies the legality gate.
// Property: IsLegal(p) <=> MinPort <= p < MaxPort.
func TestProperty_IsLegalMatchesRange(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 500
	properties := gopter.NewProperties(parameters)

	properties.Property("IsLegal matches the ephemeral range", prop.ForAll(
		func(port uint16) bool {
			expected := port >= types.MinPort && port < types.MaxPort
			return IsLegal(port) == expected
		},
		gen.UInt16(),
	))

	properties.TestingRun(t)
}

// TestProperty_AllocatedPortsUnique verifies that a client never hands out
// the same port twice without a free in between.
func TestProperty_AllocatedPortsUnique(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("allocated ports are unique and legal", prop.ForAll(
		func(head uint16, numAllocations int) bool {
			c := NewClient()
			c.head = head

			seen := make(map[uint16]bool, numAllocations)
			for i := 0; i < numAllocations; i++ {
				port := c.Allocate()
				if !IsLegal(port) {
					t.Logf("illegal port %d allocated", port)
					return false
				}
				if seen[port] {
					t.Logf("duplicate port %d allocated", port)
					return false
				}
				seen[port] = true
			}
			return c.InUse() == numAllocations
		},
		gen.UInt16(),
		gen.IntRange(1, 3000),
	))

	properties.TestingRun(t)
}

// TestProperty_AllocateFreeToggles verifies allocate/free bookkeeping.
// Property: after Allocate returns p, IsFree(p) is false; after Free(p) it is true.
func TestProperty_AllocateFreeToggles(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("allocate clears and free restores availability", prop.ForAll(
		func(numAllocations int, pick int) bool {
			c := NewClient()
			ports := make([]uint16, 0, numAllocations)
			for i := 0; i < numAllocations; i++ {
				p := c.Allocate()
				if c.IsFree(p) {
					return false
				}
				ports = append(ports, p)
			}

			victim := ports[pick%len(ports)]
			if err := c.Free(victim); err != nil {
				return false
			}
			if !c.IsFree(victim) {
				return false
			}
			for _, p := range ports {
				if p != victim && c.IsFree(p) {
					t.Logf("freeing %d released unrelated port %d", victim, p)
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 500),
		gen.IntRange(0, 10000),
	))

	properties.TestingRun(t)
}

// TestProperty_ReleaseAndReallocate verifies that freed ports can be
// allocated again.
func TestProperty_ReleaseAndReallocate(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("freed ports can be reallocated", prop.ForAll(
		func(numAllocations int) bool {
			c := NewClient()
			var ports []uint16
			for i := 0; i < numAllocations; i++ {
				ports = append(ports, c.Allocate())
			}
			for _, p := range ports {
				if err := c.Free(p); err != nil {
					return false
				}
			}
			if c.InUse() != 0 {
				return false
			}
			for i := 0; i < len(ports); i++ {
				if c.Allocate() == types.IllegalPort {
					t.Logf("reallocation %d failed", i)
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 2000),
	))

	properties.TestingRun(t)
}

// TestProperty_BulkMonotonic verifies that the bulk allocator hands out a
// strictly increasing sequence from MinPort.
func TestProperty_BulkMonotonic(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("bulk allocation is sequential", prop.ForAll(
		func(numAllocations int, resets int) bool {
			c := NewBulkClient()
			for r := 0; r <= resets; r++ {
				for i := 0; i < numAllocations; i++ {
					if c.Allocate() != uint16(types.MinPort+i) {
						return false
					}
				}
				c.ReturnAll()
			}
			return c.Handed() == 0
		},
		gen.IntRange(1, 1000),
		gen.IntRange(0, 3),
	))

	properties.TestingRun(t)
}
