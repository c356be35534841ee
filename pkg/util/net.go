// Package util provides utility functions for IPv4 address handling.
//
// The tuple engine works on IPv4 addresses as host-order uint32 values;
// these helpers convert between that form and net.IP / dotted strings.
package util

import (
	"fmt"
	"net"
)

// IPToUint32 converts an IPv4 address to a uint32
//
// Parameters:
//   - ip: IPv4 address (4 or 16 byte form)
//
// Returns:
//   - uint32: Address in host order
//   - error: If ip is not an IPv4 address
func IPToUint32(ip net.IP) (uint32, error) {
	ip4 := ip.To4()
	if ip4 == nil {
		return 0, fmt.Errorf("%v is not an IPv4 address", ip)
	}
	return uint32(ip4[0])<<24 | uint32(ip4[1])<<16 | uint32(ip4[2])<<8 | uint32(ip4[3]), nil
}

// Uint32ToIP converts a uint32 to an IPv4 address
func Uint32ToIP(n uint32) net.IP {
	return net.IPv4(byte(n>>24), byte(n>>16), byte(n>>8), byte(n)).To4()
}

// ParseIPv4 parses a dotted IPv4 string into a uint32
//
// Example:
//
//	n, err := util.ParseIPv4("16.0.0.1") // 0x10000001
func ParseIPv4(s string) (uint32, error) {
	ip := net.ParseIP(s)
	if ip == nil {
		return 0, fmt.Errorf("invalid IP address %q", s)
	}
	return IPToUint32(ip)
}

// FormatIPv4 formats a uint32 address as a dotted string
func FormatIPv4(n uint32) string {
	return fmt.Sprintf("%d.%d.%d.%d", byte(n>>24), byte(n>>16), byte(n>>8), byte(n))
}

// RangeSize returns the number of addresses in the inclusive range
// [start, end], or 0 if end < start.
func RangeSize(start, end uint32) uint64 {
	if end < start {
		return 0
	}
	return uint64(end) - uint64(start) + 1
}

// RangesOverlap reports whether two inclusive ranges share an address
func RangesOverlap(aStart, aEnd, bStart, bEnd uint32) bool {
	return aStart <= bEnd && bStart <= aEnd
}
