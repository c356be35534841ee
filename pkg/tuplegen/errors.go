package tuplegen

import (
	"errors"
	"fmt"

	"github.com/jiayi-1994/tuplegen/pkg/util"
)

// ErrInvalidPartition is returned when a core/socket index does not fit
// the requested partitioning.
var ErrInvalidPartition = errors.New("invalid partition request")

// InvalidRangeConfigError indicates that the configured client/server
// ranges cannot be partitioned across the requested cores.
type InvalidRangeConfigError struct {
	Reason string
}

func (e *InvalidRangeConfigError) Error() string {
	return "invalid tuple range configuration: " + e.Reason
}

func invalidRange(format string, args ...interface{}) error {
	return &InvalidRangeConfigError{Reason: fmt.Sprintf(format, args...)}
}

// PartitionMisalignmentError indicates that a range size is not evenly
// divisible by the core count. It should never surface for a config that
// went through Normalize.
type PartitionMisalignmentError struct {
	Range string
	Size  uint64
	Cores int
}

func (e *PartitionMisalignmentError) Error() string {
	return fmt.Sprintf("%s range of %d addresses is not divisible by %d cores", e.Range, e.Size, e.Cores)
}

// UnknownClientError indicates that an IP is not owned by a generator.
type UnknownClientError struct {
	IP uint32
}

func (e *UnknownClientError) Error() string {
	return fmt.Sprintf("client %s is not in this generator's range", util.FormatIPv4(e.IP))
}
