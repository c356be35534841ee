package allocator

import (
	"errors"
	"fmt"

	"github.com/jiayi-1994/tuplegen/pkg/types"
)

// ErrBulkFree is returned when a single port is freed on a bulk allocator.
// Bulk clients only recycle their whole port space at once.
var ErrBulkFree = errors.New("bulk allocator cannot free individual ports")

// IllegalPortError indicates that a port outside [MinPort, MaxPort) was
// supplied by a caller.
type IllegalPortError struct {
	Port uint16
}

func (e *IllegalPortError) Error() string {
	return fmt.Sprintf("port %d is outside the ephemeral range [%d, %d)", e.Port, types.MinPort, types.MaxPort)
}

// PortInUseError indicates that a port is already marked as allocated.
type PortInUseError struct {
	Port uint16
}

func (e *PortInUseError) Error() string {
	return fmt.Sprintf("port %d is already in use", e.Port)
}
