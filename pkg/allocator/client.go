package allocator

import (
	"github.com/jiayi-1994/tuplegen/pkg/types"
)

// Client tracks the ports in use by a single client IP.
//
// Allocation Rules:
//   - Ports are searched from the head cursor, wrapping at MaxPort
//   - After a successful allocation the cursor moves past the port
//   - Freeing a port never moves the cursor
//
// The zero value is usable; its cursor wraps to MinPort on first use.
type Client struct {
	// head is where the next free-port search starts
	head uint16

	// bitmap marks ports in use, index 0 = MinPort
	bitmap PortBitmap
}

// NewClient creates a client record with the cursor at MinPort.
func NewClient() Client {
	return Client{head: types.MinPort}
}

// IsLegal reports whether port lies in [MinPort, MaxPort).
func IsLegal(port uint16) bool {
	return port >= types.MinPort && port < types.MaxPort
}

// Head returns the current search cursor.
func (c *Client) Head() uint16 {
	return c.head
}

// IsFree reports whether a legal port is available. Illegal ports are
// never free.
func (c *Client) IsFree(port uint16) bool {
	if !IsLegal(port) {
		return false
	}
	return !c.bitmap.IsSet(int(port - types.MinPort))
}

// Allocate returns the next free port at or after the cursor.
//
// Returns:
//   - uint16: Allocated port, or IllegalPort when every port is in use
func (c *Client) Allocate() uint16 {
	if !IsLegal(c.head) {
		c.head = types.MinPort
	}

	index := c.bitmap.NextClear(int(c.head - types.MinPort))
	if index < 0 {
		return types.IllegalPort
	}
	c.bitmap.Set(index)

	port := uint16(index + types.MinPort)
	// may land on MaxPort; the next call wraps it
	c.head = port + 1
	return port
}

// Free returns a port to the pool. Freeing a port that is not in use is a
// no-op.
func (c *Client) Free(port uint16) error {
	if !IsLegal(port) {
		return &IllegalPortError{Port: port}
	}
	c.bitmap.Clear(int(port - types.MinPort))
	return nil
}

// Reserve marks a specific port as in use without moving the cursor.
func (c *Client) Reserve(port uint16) error {
	if !IsLegal(port) {
		return &IllegalPortError{Port: port}
	}
	if !c.bitmap.Set(int(port - types.MinPort)) {
		return &PortInUseError{Port: port}
	}
	return nil
}

// InUse returns the number of ports currently allocated.
func (c *Client) InUse() int {
	return c.bitmap.Count()
}
