// Package config provides configuration management for tuplegen.
//
// This package handles:
// - Configuration file parsing (YAML/JSON)
// - Environment variable overrides
// - Configuration validation
// - Conversion of the textual address ranges into generator inputs
//
// Configuration Priority (highest to lowest):
// 1. Environment variables (TUPLEGEN_*)
// 2. Configuration file
// 3. Default values
package config

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jiayi-1994/tuplegen/pkg/stream"
	"github.com/jiayi-1994/tuplegen/pkg/tuplegen"
	"github.com/jiayi-1994/tuplegen/pkg/types"
	"github.com/jiayi-1994/tuplegen/pkg/util"
)

// Config is the global configuration structure
type Config struct {
	// TupleGen contains the address ranges and allocator settings
	TupleGen TupleGenConfig `json:"tupleGen" yaml:"tupleGen"`

	// Template contains flow template settings
	Template TemplateConfig `json:"template" yaml:"template"`

	// Run contains the per-run execution settings
	Run RunConfig `json:"run" yaml:"run"`

	// Metrics contains the Prometheus endpoint settings
	Metrics MetricsConfig `json:"metrics" yaml:"metrics"`

	// Logging contains logging configuration
	Logging LoggingConfig `json:"logging" yaml:"logging"`
}

// TupleGenConfig contains the global client/server ranges.
// Addresses are dotted IPv4, bounds inclusive.
type TupleGenConfig struct {
	ClientStart string `json:"clientStart" yaml:"clientStart"`
	ClientEnd   string `json:"clientEnd" yaml:"clientEnd"`
	ServerStart string `json:"serverStart" yaml:"serverStart"`
	ServerEnd   string `json:"serverEnd" yaml:"serverEnd"`

	// DualInterface places odd cores on the second interface of a port pair
	// Default: false
	DualInterface bool `json:"dualInterface" yaml:"dualInterface"`

	// DualInterfaceMask is the offset, in dotted form, added to every
	// address served by the second interface
	// Example: "1.0.0.0"
	DualInterfaceMask string `json:"dualInterfaceMask" yaml:"dualInterfaceMask"`

	// Distribution is the client selection policy: "seq" or "random"
	// Default: "seq"
	Distribution string `json:"distribution" yaml:"distribution"`

	// MaxClientPort is the largest per-core client count that still tracks
	// individual ports. 0 always uses bulk allocation.
	// Default: 64000
	MaxClientPort uint32 `json:"maxClientPort" yaml:"maxClientPort"`

	// MaxServerPort is reported in diagnostics
	// Default: 64000
	MaxServerPort uint32 `json:"maxServerPort" yaml:"maxServerPort"`

	// MacFile is an optional client MAC table; when set only the listed
	// clients generate traffic
	MacFile string `json:"macFile" yaml:"macFile"`
}

// TemplateConfig contains flow template settings
type TemplateConfig struct {
	// Weight is the number of consecutive tuples served by each client
	// Default: 1
	Weight int `json:"weight" yaml:"weight"`

	// SingleServer pins every tuple to one server
	SingleServer SingleServerConfig `json:"singleServer" yaml:"singleServer"`
}

// SingleServerConfig contains the fixed server of a template
type SingleServerConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	IP      string `json:"ip" yaml:"ip"`
	Port    uint16 `json:"port" yaml:"port"`
}

// RunConfig contains execution settings
type RunConfig struct {
	// Cores is the number of worker cores sharing the ranges
	// Default: 1
	Cores int `json:"cores" yaml:"cores"`

	// Stream is the transmission mode of the run
	Stream stream.Mode `json:"stream" yaml:"stream"`

	// ExtraPorts is the number of additional client ports per tuple
	// Default: 0
	ExtraPorts int `json:"extraPorts" yaml:"extraPorts"`

	// ReleasePorts frees every tuple's ports right after it is emitted
	// Default: false
	ReleasePorts bool `json:"releasePorts" yaml:"releasePorts"`
}

// MetricsConfig contains the Prometheus endpoint settings
type MetricsConfig struct {
	// Enabled starts the /metrics endpoint during a run
	// Default: false
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Address is the listen address
	// Default: ":9110"
	Address string `json:"address" yaml:"address"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	// Level is the log level: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `json:"level" yaml:"level"`

	// Format is the log format: "json" or "text"
	// Default: "json"
	Format string `json:"format" yaml:"format"`

	// File is the log file path (optional)
	// If empty, logs to stdout
	File string `json:"file" yaml:"file"`
}

// DefaultConfig returns a Config with default values
func DefaultConfig() *Config {
	return &Config{
		TupleGen: TupleGenConfig{
			ClientStart:       "16.0.0.1",
			ClientEnd:         "16.0.0.255",
			ServerStart:       "48.0.0.1",
			ServerEnd:         "48.0.255.255",
			DualInterfaceMask: "1.0.0.0",
			Distribution:      types.DistSequential.String(),
			MaxClientPort:     types.DefaultMaxClientPort,
			MaxServerPort:     types.DefaultMaxServerPort,
		},
		Template: TemplateConfig{
			Weight: types.DefaultTemplateWeight,
		},
		Run: RunConfig{
			Cores:  types.DefaultCores,
			Stream: stream.NewSingleBurst(1000, 0),
		},
		Metrics: MetricsConfig{
			Address: types.DefaultMetricsAddress,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadConfig loads configuration from file and environment variables
//
// Configuration is loaded in the following order:
// 1. Default values
// 2. Configuration file (path argument, or TUPLEGEN_CONFIG_FILE when empty)
// 3. Environment variable overrides
//
// Returns:
//   - *Config: Loaded configuration
//   - error: Loading or validation error
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = os.Getenv(types.EnvPrefix + "CONFIG_FILE")
	}
	if path != "" {
		if err := cfg.LoadFromFile(path); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	cfg.ApplyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadFromFile loads configuration from a YAML or JSON file
func (c *Config) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	// YAML is a superset of JSON
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// ApplyEnvOverrides applies environment variable overrides to the configuration
//
// Environment variables follow the pattern: TUPLEGEN_<KEY>
// Examples:
//   - TUPLEGEN_CLIENT_START=16.0.0.1
//   - TUPLEGEN_SERVER_END=48.0.0.255
//   - TUPLEGEN_CORES=4
//   - TUPLEGEN_DISTRIBUTION=random
//   - TUPLEGEN_STREAM_TYPE=multi_burst
//   - TUPLEGEN_LOG_LEVEL=debug
//
// Malformed numbers are ignored and the previous value is kept.
func (c *Config) ApplyEnvOverrides() {
	env := func(key string) string {
		return os.Getenv(types.EnvPrefix + key)
	}

	// Ranges
	if v := env("CLIENT_START"); v != "" {
		c.TupleGen.ClientStart = v
	}
	if v := env("CLIENT_END"); v != "" {
		c.TupleGen.ClientEnd = v
	}
	if v := env("SERVER_START"); v != "" {
		c.TupleGen.ServerStart = v
	}
	if v := env("SERVER_END"); v != "" {
		c.TupleGen.ServerEnd = v
	}
	if v := env("DUAL_INTERFACE"); v != "" {
		c.TupleGen.DualInterface = strings.ToLower(v) == "true"
	}
	if v := env("DUAL_INTERFACE_MASK"); v != "" {
		c.TupleGen.DualInterfaceMask = v
	}
	if v := env("DISTRIBUTION"); v != "" {
		c.TupleGen.Distribution = v
	}
	if v := env("MAX_CLIENT_PORT"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 32); err == nil {
			c.TupleGen.MaxClientPort = uint32(n)
		}
	}
	if v := env("MAC_FILE"); v != "" {
		c.TupleGen.MacFile = v
	}

	// Template
	if v := env("TEMPLATE_WEIGHT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Template.Weight = n
		}
	}

	// Run
	if v := env("CORES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Run.Cores = n
		}
	}
	if v := env("STREAM_TYPE"); v != "" {
		if t, err := stream.ParseType(v); err == nil {
			c.Run.Stream.Type = t
		}
	}
	if v := env("PPS"); v != "" {
		if pps, err := strconv.ParseFloat(v, 64); err == nil {
			c.Run.Stream.PPS = pps
		}
	}
	if v := env("RELEASE_PORTS"); v != "" {
		c.Run.ReleasePorts = strings.ToLower(v) == "true"
	}

	// Metrics
	if v := env("METRICS_ENABLED"); v != "" {
		c.Metrics.Enabled = strings.ToLower(v) == "true"
	}
	if v := env("METRICS_ADDRESS"); v != "" {
		c.Metrics.Address = v
	}

	// Logging
	if v := env("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := env("LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
}

// Validate validates the configuration
//
// Range sizes are not checked here; YamlInfo().Normalize does that once
// the core count is final.
//
// Returns:
//   - error: Validation error listing every problem found
func (c *Config) Validate() error {
	var errors []string

	for name, v := range map[string]string{
		"clientStart": c.TupleGen.ClientStart,
		"clientEnd":   c.TupleGen.ClientEnd,
		"serverStart": c.TupleGen.ServerStart,
		"serverEnd":   c.TupleGen.ServerEnd,
	} {
		if _, err := util.ParseIPv4(v); err != nil {
			errors = append(errors, fmt.Sprintf("invalid %s: %v", name, err))
		}
	}
	if c.TupleGen.DualInterface {
		if _, err := util.ParseIPv4(c.TupleGen.DualInterfaceMask); err != nil {
			errors = append(errors, fmt.Sprintf("invalid dualInterfaceMask: %v", err))
		}
	}
	if _, err := types.ParseDistribution(c.TupleGen.Distribution); err != nil {
		errors = append(errors, err.Error())
	}

	if c.Template.Weight < 1 {
		errors = append(errors, fmt.Sprintf("invalid template weight: %d (must be >= 1)", c.Template.Weight))
	}
	if c.Template.SingleServer.Enabled {
		if _, err := util.ParseIPv4(c.Template.SingleServer.IP); err != nil {
			errors = append(errors, fmt.Sprintf("invalid single server ip: %v", err))
		}
	}

	if c.Run.Cores < 1 {
		errors = append(errors, fmt.Sprintf("invalid cores: %d (must be >= 1)", c.Run.Cores))
	}
	if c.Run.ExtraPorts < 0 {
		errors = append(errors, fmt.Sprintf("invalid extraPorts: %d (must be >= 0)", c.Run.ExtraPorts))
	}
	if err := c.Run.Stream.Validate(); err != nil {
		errors = append(errors, err.Error())
	}

	if c.Metrics.Enabled && c.Metrics.Address == "" {
		errors = append(errors, "metrics address is required when metrics are enabled")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		errors = append(errors, fmt.Sprintf("invalid log level: %s (must be 'debug', 'info', 'warn', or 'error')", c.Logging.Level))
	}
	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		errors = append(errors, fmt.Sprintf("invalid log format: %s (must be 'json' or 'text')", c.Logging.Format))
	}

	if len(errors) > 0 {
		// map iteration order is random
		slices.Sort(errors)
		return fmt.Errorf("configuration errors:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

// YamlInfo converts the textual ranges into the generator's numeric form.
// The result is not normalized.
func (c *Config) YamlInfo() (tuplegen.YamlInfo, error) {
	var info tuplegen.YamlInfo
	fields := []struct {
		name string
		in   string
		out  *uint32
	}{
		{"clientStart", c.TupleGen.ClientStart, &info.ClientStart},
		{"clientEnd", c.TupleGen.ClientEnd, &info.ClientEnd},
		{"serverStart", c.TupleGen.ServerStart, &info.ServerStart},
		{"serverEnd", c.TupleGen.ServerEnd, &info.ServerEnd},
	}
	for _, f := range fields {
		ip, err := util.ParseIPv4(f.in)
		if err != nil {
			return tuplegen.YamlInfo{}, fmt.Errorf("invalid %s: %w", f.name, err)
		}
		*f.out = ip
	}
	if c.TupleGen.DualInterfaceMask != "" {
		mask, err := util.ParseIPv4(c.TupleGen.DualInterfaceMask)
		if err != nil {
			return tuplegen.YamlInfo{}, fmt.Errorf("invalid dualInterfaceMask: %w", err)
		}
		info.DualInterfaceMask = mask
	}
	return info, nil
}

// Distribution returns the parsed client distribution policy
func (c *Config) Distribution() types.Distribution {
	d, err := types.ParseDistribution(c.TupleGen.Distribution)
	if err != nil {
		return types.DistSequential
	}
	return d
}

// SingleServer returns the pinned server address and port, if enabled
func (c *Config) SingleServer() (uint32, uint16, bool) {
	if !c.Template.SingleServer.Enabled {
		return 0, 0, false
	}
	ip, err := util.ParseIPv4(c.Template.SingleServer.IP)
	if err != nil {
		return 0, 0, false
	}
	return ip, c.Template.SingleServer.Port, true
}

// MacTable loads MacFile, or returns nil when no MAC table is configured.
func (c *Config) MacTable() (*MacTable, error) {
	if c.TupleGen.MacFile == "" {
		return nil, nil
	}
	return LoadMacFile(c.TupleGen.MacFile)
}

// Clients returns the explicit client list from MacFile restricted to the
// client range, or nil when no MAC table is configured. Addresses are
// those of the first interface; dual interface cores shift them.
func (c *Config) Clients() ([]uint32, error) {
	table, err := c.MacTable()
	if err != nil || table == nil {
		return nil, err
	}
	info, err := c.YamlInfo()
	if err != nil {
		return nil, err
	}
	clients := table.ClientsInRange(info.ClientStart, info.ClientEnd)
	if len(clients) == 0 {
		return nil, fmt.Errorf("mac file %s lists none of the clients %s - %s",
			c.TupleGen.MacFile, c.TupleGen.ClientStart, c.TupleGen.ClientEnd)
	}
	return clients, nil
}
