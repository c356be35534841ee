// Package metrics provides Prometheus metrics for tuplegen.
//
// This package exposes:
// - Tuples generated and allocation failures per core
// - Ports returned through FreePort per core
// - Per-core address slice sizes and ports in use
// - Run lifecycle state and per-core run duration
//
// Metrics live on a private registry served by Serve at /metrics.
package metrics

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const (
	// Namespace is the Prometheus metrics namespace
	Namespace = "tuplegen"

	// Subsystem names for different metric categories
	SubsystemGenerator = "generator"
	SubsystemAllocator = "allocator"
	SubsystemRun       = "run"
)

var (
	// Registry holds every tuplegen collector
	Registry = prometheus.NewRegistry()

	registerOnce sync.Once

	// ---- Generator Metrics ----

	// TuplesGenerated counts tuples produced
	// Labels: core
	TuplesGenerated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: SubsystemGenerator,
			Name:      "tuples_total",
			Help:      "Total number of tuples generated",
		},
		[]string{"core"},
	)

	// AllocationErrors counts tuples with at least one port that could not
	// be allocated
	// Labels: core
	AllocationErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: SubsystemGenerator,
			Name:      "allocation_errors_total",
			Help:      "Total number of tuples with an exhausted client port space",
		},
		[]string{"core"},
	)

	// CoreClients is the number of client addresses owned by a core
	// Labels: core
	CoreClients = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: SubsystemGenerator,
			Name:      "clients",
			Help:      "Number of client addresses owned by each core",
		},
		[]string{"core"},
	)

	// CoreServers is the number of server addresses owned by a core
	// Labels: core
	CoreServers = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: SubsystemGenerator,
			Name:      "servers",
			Help:      "Number of server addresses owned by each core",
		},
		[]string{"core"},
	)

	// ---- Allocator Metrics ----

	// PortsFreed counts ports returned to their allocator
	// Labels: core, result (success/failure)
	PortsFreed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: SubsystemAllocator,
			Name:      "ports_freed_total",
			Help:      "Total number of FreePort calls",
		},
		[]string{"core", "result"},
	)

	// PortsInUse is the number of client ports currently held
	// Labels: core
	PortsInUse = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: SubsystemAllocator,
			Name:      "ports_in_use",
			Help:      "Number of client ports currently allocated on each core",
		},
		[]string{"core"},
	)

	// ---- Run Metrics ----

	// RunState is the lifecycle state of the stateless context
	// Labels: state; the current state is 1, all others 0
	RunState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: SubsystemRun,
			Name:      "state",
			Help:      "Lifecycle state of the run (1 for the current state)",
		},
		[]string{"state"},
	)

	// BurstsCompleted counts finished bursts
	// Labels: core
	BurstsCompleted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: SubsystemRun,
			Name:      "bursts_total",
			Help:      "Total number of bursts completed",
		},
		[]string{"core"},
	)

	// CoreRunDuration measures how long each core ran
	CoreRunDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: SubsystemRun,
			Name:      "core_duration_seconds",
			Help:      "Time each core spent generating tuples in seconds",
			Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
		},
	)
)

// Register registers all metrics with Registry.
// This function is safe to call multiple times; metrics will only be registered once.
func Register() {
	registerOnce.Do(func() {
		Registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)

		// Generator metrics
		Registry.MustRegister(TuplesGenerated)
		Registry.MustRegister(AllocationErrors)
		Registry.MustRegister(CoreClients)
		Registry.MustRegister(CoreServers)

		// Allocator metrics
		Registry.MustRegister(PortsFreed)
		Registry.MustRegister(PortsInUse)

		// Run metrics
		Registry.MustRegister(RunState)
		Registry.MustRegister(BurstsCompleted)
		Registry.MustRegister(CoreRunDuration)
	})
}

func coreLabel(core int) string {
	return strconv.Itoa(core)
}
