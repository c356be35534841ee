package allocator

import (
	"github.com/jiayi-1994/tuplegen/pkg/types"
)

// BulkClient is a bitmap-free allocator for very large client counts.
// Ports are handed out monotonically and only recycled by ReturnAll;
// individual ports cannot be returned.
//
// The zero value is usable.
type BulkClient struct {
	// next is the port returned by the next Allocate
	next uint16
}

// NewBulkClient creates a bulk allocator starting at MinPort.
func NewBulkClient() BulkClient {
	return BulkClient{next: types.MinPort}
}

// Allocate returns the next port in sequence, or IllegalPort once the
// port space is used up.
func (b *BulkClient) Allocate() uint16 {
	if b.next < types.MinPort {
		b.next = types.MinPort
	}
	if b.next >= types.MaxPort {
		return types.IllegalPort
	}
	port := b.next
	b.next++
	return port
}

// ReturnAll makes the whole port space available again.
func (b *BulkClient) ReturnAll() {
	*b = BulkClient{next: types.MinPort}
}

// Handed returns how many ports were allocated since the last reset.
func (b *BulkClient) Handed() int {
	if b.next < types.MinPort {
		return 0
	}
	return int(b.next - types.MinPort)
}
