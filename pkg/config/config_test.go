// Package config provides tests for configuration management.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jiayi-1994/tuplegen/pkg/stream"
	"github.com/jiayi-1994/tuplegen/pkg/types"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.TupleGen.ClientStart != "16.0.0.1" {
		t.Errorf("expected client start '16.0.0.1', got '%s'", cfg.TupleGen.ClientStart)
	}
	if cfg.TupleGen.MaxClientPort != types.MaxPort {
		t.Errorf("expected max client port %d, got %d", types.MaxPort, cfg.TupleGen.MaxClientPort)
	}
	if cfg.Template.Weight != 1 {
		t.Errorf("expected template weight 1, got %d", cfg.Template.Weight)
	}
	if cfg.Run.Cores != 1 {
		t.Errorf("expected 1 core, got %d", cfg.Run.Cores)
	}
	if cfg.Run.Stream.Type != stream.SingleBurst {
		t.Errorf("expected single_burst stream, got %s", cfg.Run.Stream.Type)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got '%s'", cfg.Logging.Level)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "config.yaml")

	configContent := `
tupleGen:
  clientStart: 16.0.0.1
  clientEnd: 16.0.0.15
  serverStart: 48.0.0.1
  serverEnd: 48.0.1.0
  dualInterface: true
  dualInterfaceMask: 1.0.0.0
  distribution: random
  maxClientPort: 0
template:
  weight: 10
  singleServer:
    enabled: true
    ip: 18.18.18.18
    port: 80
run:
  cores: 3
  extraPorts: 2
  releasePorts: true
  stream:
    type: multi_burst
    pps: 1000
    pktsPerBurst: 100
    bursts: 5
    ibg: 10ms
logging:
  level: debug
  format: text
`
	if err := os.WriteFile(configFile, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg := DefaultConfig()
	if err := cfg.LoadFromFile(configFile); err != nil {
		t.Fatalf("failed to load config file: %v", err)
	}

	if cfg.TupleGen.ClientEnd != "16.0.0.15" {
		t.Errorf("expected client end '16.0.0.15', got '%s'", cfg.TupleGen.ClientEnd)
	}
	if !cfg.TupleGen.DualInterface {
		t.Error("expected dual interface to be enabled")
	}
	if cfg.Distribution() != types.DistRandom {
		t.Errorf("expected random distribution, got %s", cfg.Distribution())
	}
	if cfg.TupleGen.MaxClientPort != 0 {
		t.Errorf("expected max client port 0, got %d", cfg.TupleGen.MaxClientPort)
	}
	if cfg.Template.Weight != 10 {
		t.Errorf("expected weight 10, got %d", cfg.Template.Weight)
	}
	ip, port, ok := cfg.SingleServer()
	if !ok || ip != 0x12121212 || port != 80 {
		t.Errorf("unexpected single server: %x:%d enabled=%v", ip, port, ok)
	}
	s := cfg.Run.Stream
	if s.Type != stream.MultiBurst || s.PPS != 1000 || s.PktsPerBurst != 100 || s.Bursts != 5 || s.IBG != 10*time.Millisecond {
		t.Errorf("unexpected stream %s", s)
	}
	if cfg.Run.Cores != 3 || cfg.Run.ExtraPorts != 2 || !cfg.Run.ReleasePorts {
		t.Errorf("unexpected run section: %+v", cfg.Run)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level 'debug', got '%s'", cfg.Logging.Level)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("loaded config should be valid: %v", err)
	}
}

func TestLoadFromFileErrors(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(bad, []byte("run:\n  stream:\n    type: sometimes\n"), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	if err := cfg.LoadFromFile(bad); err == nil {
		t.Error("expected error for unknown stream type")
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("TUPLEGEN_CLIENT_START", "10.0.0.1")
	t.Setenv("TUPLEGEN_CLIENT_END", "10.0.0.4")
	t.Setenv("TUPLEGEN_DISTRIBUTION", "random")
	t.Setenv("TUPLEGEN_MAX_CLIENT_PORT", "0")
	t.Setenv("TUPLEGEN_CORES", "4")
	t.Setenv("TUPLEGEN_STREAM_TYPE", "continuous")
	t.Setenv("TUPLEGEN_PPS", "2500")
	t.Setenv("TUPLEGEN_RELEASE_PORTS", "TRUE")
	t.Setenv("TUPLEGEN_TEMPLATE_WEIGHT", "not-a-number")
	t.Setenv("TUPLEGEN_LOG_LEVEL", "debug")

	cfg := DefaultConfig()
	cfg.ApplyEnvOverrides()

	if cfg.TupleGen.ClientStart != "10.0.0.1" || cfg.TupleGen.ClientEnd != "10.0.0.4" {
		t.Errorf("unexpected client range %s-%s", cfg.TupleGen.ClientStart, cfg.TupleGen.ClientEnd)
	}
	if cfg.Distribution() != types.DistRandom {
		t.Errorf("expected random distribution, got %s", cfg.Distribution())
	}
	if cfg.TupleGen.MaxClientPort != 0 {
		t.Errorf("expected max client port 0, got %d", cfg.TupleGen.MaxClientPort)
	}
	if cfg.Run.Cores != 4 {
		t.Errorf("expected 4 cores, got %d", cfg.Run.Cores)
	}
	if cfg.Run.Stream.Type != stream.Continuous || cfg.Run.Stream.PPS != 2500 {
		t.Errorf("unexpected stream %s", cfg.Run.Stream)
	}
	if !cfg.Run.ReleasePorts {
		t.Error("expected release ports to be enabled")
	}
	if cfg.Template.Weight != 1 {
		t.Errorf("malformed weight should be ignored, got %d", cfg.Template.Weight)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level 'debug', got '%s'", cfg.Logging.Level)
	}
}

func TestLoadConfig(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configFile, []byte("run:\n  cores: 2\n"), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	t.Setenv("TUPLEGEN_CONFIG_FILE", configFile)
	t.Setenv("TUPLEGEN_LOG_FORMAT", "text")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Run.Cores != 2 {
		t.Errorf("expected 2 cores, got %d", cfg.Run.Cores)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("expected text format, got %s", cfg.Logging.Format)
	}

	t.Setenv("TUPLEGEN_LOG_LEVEL", "verbose")
	if _, err := LoadConfig(configFile); err == nil {
		t.Error("expected validation error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{
			name:   "valid default config",
			modify: func(c *Config) {},
		},
		{
			name:    "bad client start",
			modify:  func(c *Config) { c.TupleGen.ClientStart = "16.0.0" },
			wantErr: "invalid clientStart",
		},
		{
			name:    "ipv6 server",
			modify:  func(c *Config) { c.TupleGen.ServerEnd = "::1" },
			wantErr: "invalid serverEnd",
		},
		{
			name: "dual interface with bad mask",
			modify: func(c *Config) {
				c.TupleGen.DualInterface = true
				c.TupleGen.DualInterfaceMask = "mask"
			},
			wantErr: "invalid dualInterfaceMask",
		},
		{
			name:    "unknown distribution",
			modify:  func(c *Config) { c.TupleGen.Distribution = "zipf" },
			wantErr: "unknown distribution",
		},
		{
			name:    "zero weight",
			modify:  func(c *Config) { c.Template.Weight = 0 },
			wantErr: "invalid template weight",
		},
		{
			name: "single server without ip",
			modify: func(c *Config) {
				c.Template.SingleServer.Enabled = true
			},
			wantErr: "invalid single server ip",
		},
		{
			name:    "zero cores",
			modify:  func(c *Config) { c.Run.Cores = 0 },
			wantErr: "invalid cores",
		},
		{
			name:    "negative extra ports",
			modify:  func(c *Config) { c.Run.ExtraPorts = -1 },
			wantErr: "invalid extraPorts",
		},
		{
			name:    "empty burst",
			modify:  func(c *Config) { c.Run.Stream = stream.NewSingleBurst(0, 10) },
			wantErr: "total_pkts",
		},
		{
			name: "metrics without address",
			modify: func(c *Config) {
				c.Metrics.Enabled = true
				c.Metrics.Address = ""
			},
			wantErr: "metrics address",
		},
		{
			name:    "invalid log level",
			modify:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: "invalid log level",
		},
		{
			name:    "invalid log format",
			modify:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: "invalid log format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestYamlInfo(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TupleGen.ClientStart = "16.0.0.1"
	cfg.TupleGen.ClientEnd = "16.0.0.15"
	cfg.TupleGen.ServerStart = "48.0.0.1"
	cfg.TupleGen.ServerEnd = "64.0.0.1"

	info, err := cfg.YamlInfo()
	if err != nil {
		t.Fatalf("YamlInfo failed: %v", err)
	}
	if info.ClientStart != 0x10000001 || info.ClientEnd != 0x1000000f {
		t.Errorf("unexpected client range %#x-%#x", info.ClientStart, info.ClientEnd)
	}
	if info.ServerStart != 0x30000001 || info.ServerEnd != 0x40000001 {
		t.Errorf("unexpected server range %#x-%#x", info.ServerStart, info.ServerEnd)
	}
	if info.DualInterfaceMask != 0x01000000 {
		t.Errorf("unexpected dual interface mask %#x", info.DualInterfaceMask)
	}

	cfg.TupleGen.ServerStart = "bogus"
	if _, err := cfg.YamlInfo(); err == nil {
		t.Error("expected error for bogus server start")
	}
}
