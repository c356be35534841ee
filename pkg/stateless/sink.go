package stateless

import (
	"sync"

	"github.com/jiayi-1994/tuplegen/pkg/tuplegen"
)

// Sink consumes the tuples produced by the worker cores.
//
// Emit is called concurrently from every core. The tuple's ExtraPorts
// slice is reused by the core after Emit returns; implementations that
// keep it must copy it. A non-nil error stops the whole run.
type Sink interface {
	Emit(core int, t tuplegen.Tuple) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(core int, t tuplegen.Tuple) error

// Emit calls f.
func (f SinkFunc) Emit(core int, t tuplegen.Tuple) error {
	return f(core, t)
}

// Discard is a Sink that drops every tuple.
var Discard Sink = SinkFunc(func(int, tuplegen.Tuple) error { return nil })

// Collector is a Sink that keeps every tuple, grouped by core.
type Collector struct {
	mu     sync.Mutex
	tuples map[int][]tuplegen.Tuple
}

// NewCollector returns an empty Collector.
func NewCollector() *Collector {
	return &Collector{tuples: make(map[int][]tuplegen.Tuple)}
}

// Emit stores a copy of t.
func (c *Collector) Emit(core int, t tuplegen.Tuple) error {
	if t.ExtraPorts != nil {
		t.ExtraPorts = append([]uint16(nil), t.ExtraPorts...)
	}
	c.mu.Lock()
	c.tuples[core] = append(c.tuples[core], t)
	c.mu.Unlock()
	return nil
}

// Core returns the tuples emitted by core, in order.
func (c *Collector) Core(core int) []tuplegen.Tuple {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]tuplegen.Tuple(nil), c.tuples[core]...)
}

// Len returns the number of tuples collected across cores.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, ts := range c.tuples {
		n += len(ts)
	}
	return n
}
