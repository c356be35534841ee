// Package allocator provides per-client ephemeral port allocation.
//
// This package implements port allocation using a bitmap algorithm:
// - Each bit represents one port in [MinPort, MaxPort)
// - Bit value 1 = in use, 0 = available
// - Free ports are found by scanning 64-bit words from a rotating cursor
// - Memory: one fixed-size bitmap (~8KB) per client, held by value
//
// None of the types in this package are safe for concurrent use. Every
// client record is owned by exactly one generator, which in turn is owned
// by exactly one worker goroutine.
package allocator

import (
	"math/bits"

	"github.com/jiayi-1994/tuplegen/pkg/types"
)

const (
	// bitmapSize is the number of bits tracked, one per allocatable port
	bitmapSize = types.PortSpace

	// bitmapWords is the number of 64-bit words backing the bitmap
	bitmapWords = (bitmapSize + 63) / 64
)

// PortBitmap is a fixed-size bitmap covering the ephemeral port space.
// Index 0 corresponds to MinPort.
//
// The zero value is an empty bitmap ready to use.
type PortBitmap struct {
	// words is the underlying storage, bit i of word w is index w*64+i
	words [bitmapWords]uint64

	// used is the count of set bits
	used int
}

// Set marks an index as in use.
// Returns false if the index is out of range or already set.
func (b *PortBitmap) Set(index int) bool {
	if index < 0 || index >= bitmapSize {
		return false
	}
	w, mask := index/64, uint64(1)<<(uint(index)%64)
	if b.words[w]&mask != 0 {
		return false
	}
	b.words[w] |= mask
	b.used++
	return true
}

// Clear marks an index as available.
// Returns true if the index was previously set.
func (b *PortBitmap) Clear(index int) bool {
	if index < 0 || index >= bitmapSize {
		return false
	}
	w, mask := index/64, uint64(1)<<(uint(index)%64)
	if b.words[w]&mask == 0 {
		return false
	}
	b.words[w] &^= mask
	b.used--
	return true
}

// IsSet reports whether an index is in use. Out of range indexes are
// reported as not set.
func (b *PortBitmap) IsSet(index int) bool {
	if index < 0 || index >= bitmapSize {
		return false
	}
	return b.words[index/64]&(uint64(1)<<(uint(index)%64)) != 0
}

// NextClear finds the first clear index at or after from, wrapping around
// to index 0 once the end is reached.
//
// Returns:
//   - int: Index of the first clear bit, or -1 if every bit is set
func (b *PortBitmap) NextClear(from int) int {
	if b.used == bitmapSize {
		return -1
	}
	if from < 0 || from >= bitmapSize {
		from = 0
	}
	if i := b.scan(from, bitmapSize); i >= 0 {
		return i
	}
	return b.scan(0, from)
}

// scan returns the first clear index in [lo, hi), or -1.
func (b *PortBitmap) scan(lo, hi int) int {
	for lo < hi {
		w := lo / 64
		free := ^b.words[w] >> (uint(lo) % 64)
		if free != 0 {
			i := lo + bits.TrailingZeros64(free)
			if i < hi {
				return i
			}
			return -1
		}
		lo = (w + 1) * 64
	}
	return -1
}

// Count returns the number of set bits
func (b *PortBitmap) Count() int {
	return b.used
}

// Size returns the total number of bits
func (b *PortBitmap) Size() int {
	return bitmapSize
}
