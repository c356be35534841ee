package tuplegen

import (
	"fmt"
	"io"
	"math/rand/v2"
	"slices"

	"github.com/jiayi-1994/tuplegen/pkg/allocator"
	"github.com/jiayi-1994/tuplegen/pkg/types"
	"github.com/jiayi-1994/tuplegen/pkg/util"
)

// GeneratorConfig describes the slice of the address space a Generator
// works on.
type GeneratorConfig struct {
	// Cores is the total number of cores sharing the global ranges
	Cores int

	// Core is the index of the owning core
	Core int

	// Distribution selects how clients are picked
	Distribution types.Distribution

	// Portion is the core's client/server slice from SplitClients
	Portion Portion

	// MaxClientPort is the largest client count that still gets a
	// per-port bitmap. Larger ranges, or zero, use bulk allocators.
	MaxClientPort uint32

	// MaxServerPort is carried for diagnostics
	MaxServerPort uint32

	// Clients optionally replaces the numeric client range with an
	// explicit list (e.g. clients with a MAC binding). Entries outside
	// the portion are ignored so one list can serve every core.
	Clients []uint32
}

// Generator produces tuples for one core.
//
// Thread Safety: not safe for concurrent use; each core owns its own
// Generator.
type Generator struct {
	cfg GeneratorConfig

	// ips lists the client addresses when an explicit list is in use,
	// nil for the contiguous portion range
	ips []uint32

	// index maps client IP to arena position for explicit lists
	index map[uint32]int

	// count is the number of clients
	count int

	// exactly one of clients / bulk is populated
	clients []allocator.Client
	bulk    []allocator.BulkClient

	// cur is the arena position serving the next tuple
	cur int

	// server is the server address of the next tuple
	server uint32

	rng *rand.Rand

	generated uint64
	errors    uint64
	freed     uint64
}

// NewGenerator creates a generator with one allocator per client.
//
// Returns:
//   - *Generator: Generator positioned on the first client and server
//   - error: Error if the configuration is inconsistent
func NewGenerator(cfg GeneratorConfig) (*Generator, error) {
	if cfg.Cores < 1 || cfg.Core < 0 || cfg.Core >= cfg.Cores {
		return nil, fmt.Errorf("%w: core %d of %d", ErrInvalidPartition, cfg.Core, cfg.Cores)
	}
	p := cfg.Portion
	if p.Clients() == 0 {
		return nil, invalidRange("empty client range in %s", p)
	}
	if p.Servers() == 0 {
		return nil, invalidRange("empty server range in %s", p)
	}

	g := &Generator{
		cfg:    cfg,
		server: p.ServerStart,
		rng:    rand.New(rand.NewPCG(uint64(cfg.Core)+1, uint64(cfg.Cores))),
	}

	if cfg.Clients != nil {
		g.ips = make([]uint32, 0, len(cfg.Clients))
		for _, ip := range cfg.Clients {
			if ip >= p.ClientStart && ip <= p.ClientEnd {
				g.ips = append(g.ips, ip)
			}
		}
		slices.Sort(g.ips)
		g.ips = slices.Compact(g.ips)
		if len(g.ips) == 0 {
			return nil, invalidRange("none of the %d listed clients fall in %s", len(cfg.Clients), p)
		}
		g.index = make(map[uint32]int, len(g.ips))
		for i, ip := range g.ips {
			g.index[ip] = i
		}
		g.count = len(g.ips)
	} else {
		if p.Clients() > uint64(^uint32(0)>>1) {
			return nil, invalidRange("client range of %d addresses is too large for one core", p.Clients())
		}
		g.count = int(p.Clients())
	}

	if g.BitmapMode() {
		g.clients = make([]allocator.Client, g.count)
		for i := range g.clients {
			g.clients[i] = allocator.NewClient()
		}
	} else {
		g.bulk = make([]allocator.BulkClient, g.count)
		for i := range g.bulk {
			g.bulk[i] = allocator.NewBulkClient()
		}
	}

	return g, nil
}

// BitmapMode reports whether clients track individual ports.
func (g *Generator) BitmapMode() bool {
	return g.cfg.MaxClientPort != 0 && uint64(g.count) <= uint64(g.cfg.MaxClientPort)
}

// Generate produces the next tuple.
//
// A port allocation failure is counted in ErrorCount and reported as
// IllegalPort in the tuple; both cursors advance regardless.
func (g *Generator) Generate() Tuple {
	return g.generate(nil)
}

// GenerateEx produces the next tuple plus len(extra) additional ports from
// the same client, written into extra. Any failed slot holds IllegalPort
// and the whole call counts as a single error. Ports that were allocated
// stay allocated.
func (g *Generator) GenerateEx(extra []uint16) Tuple {
	if extra == nil {
		extra = []uint16{}
	}
	return g.generate(extra)
}

func (g *Generator) generate(extra []uint16) Tuple {
	t := Tuple{Client: g.clientIP(g.cur), Server: g.server}
	g.fill(g.cur, &t, extra)
	g.nextServer()
	g.nextClient()
	return t
}

// fill allocates the primary and extra ports of client idx into t.
func (g *Generator) fill(idx int, t *Tuple, extra []uint16) {
	t.ClientPort = g.allocFor(idx)
	failed := t.ClientPort == types.IllegalPort
	for i := range extra {
		extra[i] = g.allocFor(idx)
		if extra[i] == types.IllegalPort {
			failed = true
		}
	}
	if extra != nil {
		t.ExtraPorts = extra
	}
	if failed {
		g.errors++
	}
	g.generated++
}

func (g *Generator) allocFor(idx int) uint16 {
	if g.clients != nil {
		return g.clients[idx].Allocate()
	}
	return g.bulk[idx].Allocate()
}

func (g *Generator) nextServer() {
	if g.server >= g.cfg.Portion.ServerEnd {
		g.server = g.cfg.Portion.ServerStart
		return
	}
	g.server++
}

func (g *Generator) nextClient() {
	if g.cfg.Distribution == types.DistRandom {
		g.cur = g.rng.IntN(g.count)
		return
	}
	g.cur++
	if g.cur == g.count {
		g.cur = 0
	}
}

func (g *Generator) clientIP(idx int) uint32 {
	if g.ips != nil {
		return g.ips[idx]
	}
	return g.cfg.Portion.ClientStart + uint32(idx)
}

func (g *Generator) lookup(ip uint32) (int, bool) {
	if g.ips != nil {
		idx, ok := g.index[ip]
		return idx, ok
	}
	p := g.cfg.Portion
	if ip < p.ClientStart || ip > p.ClientEnd {
		return 0, false
	}
	return int(ip - p.ClientStart), true
}

// FreePort returns a client's port to its allocator. Ports that are not in
// use are ignored. Bulk clients cannot free single ports; use ReturnAll.
//
// Returns:
//   - error: *UnknownClientError if the client is not owned by this
//     generator, *allocator.IllegalPortError for ports outside the range,
//     allocator.ErrBulkFree when the generator is not in bitmap mode
func (g *Generator) FreePort(client uint32, port uint16) error {
	idx, ok := g.lookup(client)
	if !ok {
		return &UnknownClientError{IP: client}
	}
	if g.clients == nil {
		if !allocator.IsLegal(port) {
			return &allocator.IllegalPortError{Port: port}
		}
		return allocator.ErrBulkFree
	}
	if err := g.clients[idx].Free(port); err != nil {
		return err
	}
	g.freed++
	return nil
}

// ReturnAll releases every port of every client.
func (g *Generator) ReturnAll() {
	for i := range g.clients {
		g.clients[i] = allocator.NewClient()
	}
	for i := range g.bulk {
		g.bulk[i].ReturnAll()
	}
}

// ErrorCount returns the number of tuples that could not be fully
// allocated. It never decreases.
func (g *Generator) ErrorCount() uint64 {
	return g.errors
}

// Generated returns the number of tuples produced.
func (g *Generator) Generated() uint64 {
	return g.generated
}

// Freed returns the number of successful FreePort calls.
func (g *Generator) Freed() uint64 {
	return g.freed
}

// ClientCount returns the number of clients served.
func (g *Generator) ClientCount() int {
	return g.count
}

// Portion returns the slice served by this generator.
func (g *Generator) Portion() Portion {
	return g.cfg.Portion
}

// Core returns the owning core index.
func (g *Generator) Core() int {
	return g.cfg.Core
}

// PortsInUse returns the number of ports currently held across clients.
// It walks every client and is meant for diagnostics.
func (g *Generator) PortsInUse() int {
	total := 0
	for i := range g.clients {
		total += g.clients[i].InUse()
	}
	for i := range g.bulk {
		total += g.bulk[i].Handed()
	}
	return total
}

// Dump writes the generator's ranges and counters.
func (g *Generator) Dump(w io.Writer) {
	mode := "bulk"
	if g.BitmapMode() {
		mode = "bitmap"
	}
	fmt.Fprintf(w, "core %d/%d distribution=%s allocator=%s\n",
		g.cfg.Core, g.cfg.Cores, g.cfg.Distribution, mode)
	fmt.Fprintf(w, "  %s\n", g.cfg.Portion)
	fmt.Fprintf(w, "  clients=%d max_client_port=%d max_server_port=%d\n",
		g.count, g.cfg.MaxClientPort, g.cfg.MaxServerPort)
	fmt.Fprintf(w, "  next client=%s next server=%s\n",
		util.FormatIPv4(g.clientIP(g.cur)), util.FormatIPv4(g.server))
	fmt.Fprintf(w, "  generated=%d errors=%d freed=%d in_use=%d\n",
		g.generated, g.errors, g.freed, g.PortsInUse())
}
