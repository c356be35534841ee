// Package stateless runs tuple generation across worker cores.
//
// A Context owns one Generator per core and drives them according to the
// configured stream mode:
//
//	ctx := stateless.New(cfg, sink)
//	if err := ctx.Configure(); err != nil { ... }
//	if err := ctx.Run(runCtx); err != nil { ... }
//	stats := ctx.Stats()
//	_ = ctx.Destroy()
//
// Each lifecycle step may be called once, in order. Destroy may also
// follow Configure directly.
package stateless

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/ratelimit"
	"golang.org/x/sync/errgroup"

	"github.com/jiayi-1994/tuplegen/pkg/allocator"
	"github.com/jiayi-1994/tuplegen/pkg/config"
	"github.com/jiayi-1994/tuplegen/pkg/logging"
	"github.com/jiayi-1994/tuplegen/pkg/metrics"
	"github.com/jiayi-1994/tuplegen/pkg/stream"
	"github.com/jiayi-1994/tuplegen/pkg/tuplegen"
	"github.com/jiayi-1994/tuplegen/pkg/types"
	"github.com/jiayi-1994/tuplegen/pkg/util"
)

var (
	// ErrInvalidState is returned when a lifecycle step is called out of order
	ErrInvalidState = errors.New("invalid context state")

	// ErrAlreadyRunning is returned when Run or Destroy is called while a
	// run is in progress
	ErrAlreadyRunning = errors.New("context is already running")
)

// State is the lifecycle state of a Context.
type State int

const (
	StateNew State = iota
	StateConfigured
	StateRunning
	StateStopped
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StateNew:
		return metrics.StateIdle
	case StateConfigured:
		return metrics.StateConfigured
	case StateRunning:
		return metrics.StateRunning
	case StateStopped:
		return metrics.StateStopped
	case StateDestroyed:
		return metrics.StateDestroyed
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// metricsFlushEvery is the number of tuples between two counter updates
const metricsFlushEvery = 1024

// Option configures a Context.
type Option func(*Context)

// WithLogger sets the logger. Defaults to the global logger.
func WithLogger(l *logging.Logger) Option {
	return func(c *Context) {
		c.log = l
	}
}

// Context drives tuple generation for one configuration.
//
// Thread Safety: all methods are safe for concurrent use.
type Context struct {
	cfg  *config.Config
	sink Sink
	log  *logging.Logger

	mu    sync.Mutex
	state State
	info  tuplegen.YamlInfo
	cores []*worker
}

// worker is the per-core state. Only its goroutine touches gen and tmpl
// while running.
type worker struct {
	index   int
	socket  int
	portion tuplegen.Portion
	clients int
	// listed holds the core's clients from the MAC table, nil without one
	listed []uint32

	gen  *tuplegen.Generator
	tmpl *tuplegen.TemplateGenerator
	mode stream.Mode
	log  *logging.Logger

	counters
}

// New creates an unconfigured Context. A nil sink discards tuples.
func New(cfg *config.Config, sink Sink, opts ...Option) *Context {
	if sink == nil {
		sink = Discard
	}
	c := &Context{
		cfg:  cfg,
		sink: sink,
		log:  logging.L(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.WithName("stateless")
	return c
}

// State returns the current lifecycle state.
func (c *Context) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Context) setState(s State) {
	c.state = s
	metrics.SetRunState(s.String())
}

// Configure normalizes the ranges and builds one generator per core.
//
// On failure the Context stays unconfigured and the error aggregates the
// problems of every core.
func (c *Context) Configure() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateNew {
		return fmt.Errorf("%w: configure called in state %s", ErrInvalidState, c.state)
	}

	cores := c.cfg.Run.Cores
	dual := c.cfg.TupleGen.DualInterface

	info, err := c.cfg.YamlInfo()
	if err != nil {
		return err
	}
	origEnd := info.ServerEnd
	serverEnd, err := info.Normalize(cores, dual)
	if err != nil {
		return err
	}
	if serverEnd != origEnd {
		c.log.Info("Adjusted server range to fit cores",
			"serverStart", c.cfg.TupleGen.ServerStart,
			"configuredEnd", c.cfg.TupleGen.ServerEnd,
			"serverEnd", serverEnd, "cores", cores)
	}

	clients, err := c.cfg.Clients()
	if err != nil {
		return err
	}
	serverIP, serverPort, single := c.cfg.SingleServer()

	workers := make([]*worker, 0, cores)
	var errs error
	for i := 0; i < cores; i++ {
		socket := tuplegen.SocketOf(i, dual)
		portion, err := tuplegen.SplitClients(i, cores, socket, info)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("core %d: %w", i, err))
			continue
		}

		w := &worker{
			index:   i,
			socket:  socket,
			portion: portion,
			mode:    c.cfg.Run.Stream.ForCore(i, cores),
		}
		w.log = logging.LoggerForStream(logging.LoggerForCore(c.log, i, socket), w.mode.String())

		if clients != nil {
			w.listed = tuplegen.SocketClients(clients, portion, socket, info)
			if len(w.listed) == 0 {
				// idle: none of the listed clients fall in this portion
				workers = append(workers, w)
				continue
			}
		}

		gen, err := tuplegen.NewGenerator(tuplegen.GeneratorConfig{
			Cores:         cores,
			Core:          i,
			Distribution:  c.cfg.Distribution(),
			Portion:       portion,
			MaxClientPort: c.cfg.TupleGen.MaxClientPort,
			MaxServerPort: c.cfg.TupleGen.MaxServerPort,
			Clients:       w.listed,
		})
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("core %d: %w", i, err))
			continue
		}
		if c.cfg.Run.ReleasePorts && !gen.BitmapMode() {
			errs = multierr.Append(errs, fmt.Errorf("core %d: releasePorts with %d clients needs maxClientPort >= %d: %w",
				i, gen.ClientCount(), gen.ClientCount(), allocator.ErrBulkFree))
			continue
		}

		tmpl := tuplegen.NewTemplateGenerator(gen)
		tmpl.SetWeight(c.cfg.Template.Weight)
		tmpl.SetSingleServer(single, serverIP, serverPort)

		w.clients, w.gen, w.tmpl = gen.ClientCount(), gen, tmpl
		workers = append(workers, w)
	}
	if errs != nil {
		return errs
	}

	macs, err := c.cfg.MacTable()
	if err != nil {
		return err
	}
	for _, w := range workers {
		metrics.SetCoreRange(w.index, uint64(w.clients), w.portion.Servers())
		if w.gen == nil {
			w.log.Warn("No listed client falls in the core's portion, core stays idle",
				"portion", w.portion.String())
			continue
		}
		w.log.Debug("Core configured",
			"portion", w.portion.String(),
			"clients", w.clients,
			"bitmap", w.gen.BitmapMode())
		if macs != nil {
			w.logClientMACs(macs, info)
		}
	}

	c.info = info
	c.cores = workers
	c.setState(StateConfigured)
	c.log.Info("Configured", "cores", cores, "dualInterface", dual,
		"distribution", c.cfg.Distribution().String(), "stream", c.cfg.Run.Stream.String())
	return nil
}

// Run drives every core until its stream budget is spent, ctx is done, or
// a core fails. Cancelling ctx is a normal stop and returns nil.
//
// Returns:
//   - error: ErrInvalidState / ErrAlreadyRunning for lifecycle misuse,
//     otherwise the combined errors of the failed cores
func (c *Context) Run(ctx context.Context) error {
	c.mu.Lock()
	switch c.state {
	case StateConfigured:
	case StateRunning:
		c.mu.Unlock()
		return ErrAlreadyRunning
	default:
		state := c.state
		c.mu.Unlock()
		return fmt.Errorf("%w: run called in state %s", ErrInvalidState, state)
	}
	c.setState(StateRunning)
	workers := c.cores
	c.mu.Unlock()

	c.log.Info("Run started", "cores", len(workers))
	timer := metrics.NewTimer()

	g, gctx := errgroup.WithContext(ctx)
	errs := make([]error, len(workers))
	for i, w := range workers {
		g.Go(func() error {
			errs[i] = c.runCore(gctx, w)
			return errs[i]
		})
	}
	_ = g.Wait()
	err := multierr.Combine(errs...)

	c.mu.Lock()
	c.setState(StateStopped)
	c.mu.Unlock()

	if err != nil {
		c.log.Error(err, "Run failed", "duration", timer.ObserveDuration().String())
		return err
	}
	c.log.Info("Run finished", "duration", timer.ObserveDuration().String())
	return nil
}

func (c *Context) runCore(ctx context.Context, w *worker) error {
	timer := metrics.NewTimer()
	defer func() {
		d := timer.ObserveDuration()
		w.duration.Store(int64(d))
		metrics.RecordCoreRun(d)
	}()

	if w.gen == nil {
		return nil
	}
	mode := w.mode
	if budget, ok := mode.Budget(); ok && budget == 0 {
		w.log.Debug("Core has no packets to send")
		return nil
	}

	var limiter ratelimit.Limiter
	if interval := mode.Interval(); interval > 0 {
		limiter = ratelimit.New(1, ratelimit.Per(interval))
	}

	var extra []uint16
	if n := c.cfg.Run.ExtraPorts; n > 0 {
		extra = make([]uint16, n)
	}

	var reported, reportedErrors uint64
	report := func() {
		gen, errs := w.generated.Load(), w.errors.Load()
		metrics.RecordTuples(w.index, gen-reported, errs-reportedErrors)
		reported, reportedErrors = gen, errs
	}
	defer func() {
		report()
		w.samplePorts()
	}()

	emit := func() error {
		if limiter != nil {
			limiter.Take()
		}
		var t tuplegen.Tuple
		if extra != nil {
			t = w.tmpl.GenerateEx(extra)
		} else {
			t = w.tmpl.Generate()
		}
		if t.Failed() && w.errors.Add(1) == 1 {
			w.log.Warn("Client port space exhausted", "tuple", t.String())
		}
		if n := w.generated.Add(1); n%metricsFlushEvery == 0 {
			report()
		}
		if err := c.sink.Emit(w.index, t); err != nil {
			return fmt.Errorf("core %d: sink: %w", w.index, err)
		}
		if c.cfg.Run.ReleasePorts {
			w.release(t)
		}
		return nil
	}

	burst := func(n uint64) error {
		for i := uint64(0); n == 0 || i < n; i++ {
			if ctx.Err() != nil {
				return nil
			}
			if err := emit(); err != nil {
				return err
			}
		}
		return nil
	}

	w.log.Debug("Core started")
	switch mode.Type {
	case stream.Continuous:
		if err := burst(0); err != nil {
			return err
		}
	case stream.SingleBurst:
		if err := burst(mode.TotalPkts); err != nil {
			return err
		}
		w.endBurst()
	case stream.MultiBurst:
		for b := uint64(0); b < mode.Bursts; b++ {
			if err := burst(mode.PktsPerBurst); err != nil {
				return err
			}
			if ctx.Err() != nil {
				break
			}
			w.endBurst()
			if b+1 < mode.Bursts && mode.IBG > 0 {
				if !sleep(ctx, mode.IBG) {
					break
				}
			}
		}
	}
	w.log.Debug("Core stopped", "generated", w.generated.Load(), "errors", w.errors.Load())
	return nil
}

func (w *worker) endBurst() {
	w.bursts.Add(1)
	metrics.RecordBurst(w.index)
	w.samplePorts()
}

func (w *worker) samplePorts() {
	if w.gen == nil {
		return
	}
	ports := w.gen.PortsInUse()
	w.portsInUse.Store(int64(ports))
	metrics.SetPortsInUse(w.index, ports)
}

// logClientMACs logs the MAC bound to each listed client of the core.
func (w *worker) logClientMACs(macs *config.MacTable, info tuplegen.YamlInfo) {
	var offset uint32
	if w.socket == 1 {
		offset = info.DualInterfaceMask
	}
	for _, ip := range w.listed {
		if mac, ok := macs.Lookup(ip - offset); ok {
			w.log.Debug("Client MAC", "client", util.FormatIPv4(ip), "mac", mac.String())
		}
	}
}

// release frees every allocated port of t.
func (w *worker) release(t tuplegen.Tuple) {
	free := func(port uint16) {
		if port == types.IllegalPort {
			return
		}
		err := w.gen.FreePort(t.Client, port)
		metrics.RecordFree(w.index, err)
		if err != nil {
			w.freeErrors.Add(1)
			return
		}
		w.freed.Add(1)
	}
	free(t.ClientPort)
	for _, p := range t.ExtraPorts {
		free(p)
	}
}

// sleep waits for d and reports false if ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// Stats returns a snapshot of the per-core counters.
func (c *Context) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{State: c.state, Info: c.info, Cores: make([]CoreStats, 0, len(c.cores))}
	for _, w := range c.cores {
		s.Cores = append(s.Cores, CoreStats{
			Core:       w.index,
			Socket:     w.socket,
			Portion:    w.portion,
			Clients:    w.clients,
			Generated:  w.generated.Load(),
			Errors:     w.errors.Load(),
			Freed:      w.freed.Load(),
			FreeErrors: w.freeErrors.Load(),
			Bursts:     w.bursts.Load(),
			PortsInUse: int(w.portsInUse.Load()),
			Duration:   time.Duration(w.duration.Load()),
		})
	}
	return s
}

// Destroy returns every port and drops the generators. Stats remain
// available afterwards.
func (c *Context) Destroy() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateConfigured, StateStopped:
	case StateRunning:
		return ErrAlreadyRunning
	default:
		return fmt.Errorf("%w: destroy called in state %s", ErrInvalidState, c.state)
	}

	for _, w := range c.cores {
		if w.gen != nil {
			w.gen.ReturnAll()
		}
		w.portsInUse.Store(0)
		w.gen, w.tmpl = nil, nil
		metrics.DeleteCoreMetrics(w.index)
	}
	c.setState(StateDestroyed)
	c.log.Info("Destroyed")
	return nil
}
