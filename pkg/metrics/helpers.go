package metrics

import (
	"time"
)

// Result constants for metric labels
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Run state constants for the RunState gauge
const (
	StateIdle       = "idle"
	StateConfigured = "configured"
	StateRunning    = "running"
	StateStopped    = "stopped"
	StateDestroyed  = "destroyed"
)

var runStates = []string{StateIdle, StateConfigured, StateRunning, StateStopped, StateDestroyed}

// Timer is a helper for measuring operation duration
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer starting from now
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration returns the time elapsed since the timer was created
func (t *Timer) ObserveDuration() time.Duration {
	return time.Since(t.start)
}

// RecordTuples adds a batch of generated tuples and allocation failures
//
// Parameters:
//   - core: Core index
//   - tuples: Number of tuples generated since the last call
//   - errors: Number of failed tuples since the last call
func RecordTuples(core int, tuples, errors uint64) {
	label := coreLabel(core)
	if tuples > 0 {
		TuplesGenerated.WithLabelValues(label).Add(float64(tuples))
	}
	if errors > 0 {
		AllocationErrors.WithLabelValues(label).Add(float64(errors))
	}
}

// RecordFree records a FreePort call
func RecordFree(core int, err error) {
	result := ResultSuccess
	if err != nil {
		result = ResultFailure
	}
	PortsFreed.WithLabelValues(coreLabel(core), result).Inc()
}

// SetCoreRange publishes the size of a core's client and server slices
func SetCoreRange(core int, clients, servers uint64) {
	label := coreLabel(core)
	CoreClients.WithLabelValues(label).Set(float64(clients))
	CoreServers.WithLabelValues(label).Set(float64(servers))
}

// SetPortsInUse publishes the number of ports a core currently holds
func SetPortsInUse(core, ports int) {
	PortsInUse.WithLabelValues(coreLabel(core)).Set(float64(ports))
}

// RecordBurst records a completed burst
func RecordBurst(core int) {
	BurstsCompleted.WithLabelValues(coreLabel(core)).Inc()
}

// RecordCoreRun records how long a core ran
func RecordCoreRun(duration time.Duration) {
	CoreRunDuration.Observe(duration.Seconds())
}

// SetRunState marks state as the current lifecycle state
func SetRunState(state string) {
	for _, s := range runStates {
		value := float64(0)
		if s == state {
			value = 1
		}
		RunState.WithLabelValues(s).Set(value)
	}
}

// DeleteCoreMetrics removes the per-core gauges of a destroyed core
func DeleteCoreMetrics(core int) {
	label := coreLabel(core)
	CoreClients.DeleteLabelValues(label)
	CoreServers.DeleteLabelValues(label)
	PortsInUse.DeleteLabelValues(label)
}
