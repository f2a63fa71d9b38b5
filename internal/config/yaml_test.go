// SPDX-License-Identifier: MIT
package config

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	tmp := t.TempDir()
	path := filepath.Join(tmp, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}
	return path
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if !slices.Equal(cfg.Acquisition.Channels, []int{0, 1, 2, 3}) {
		t.Errorf("default channels = %v", cfg.Acquisition.Channels)
	}
	if got := cfg.Acquisition.ShiftSeconds(); got < 0.199 || got > 0.201 {
		t.Errorf("default shift = %g, expected 0.2", got)
	}
	if cfg.Capture.Command != "muselsl" || cfg.Capture.WarmUp != 10*time.Second {
		t.Errorf("unexpected capture defaults %+v", cfg.Capture)
	}
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	t.Parallel()
	cfg, err := LoadConfig("nonexistent.yaml")
	if err == nil {
		t.Errorf("expected error for missing file, got nil")
	}
	if cfg != nil {
		t.Errorf("expected nil config on error, got %+v", cfg)
	}
}

func TestLoadConfig_UnmarshalError(t *testing.T) {
	t.Parallel()
	path := writeTempConfig(t, ":\n:bad")
	_, err := LoadConfig(path)
	if err == nil || !strings.Contains(err.Error(), "failed to parse config file") {
		t.Error("expected unmarshal error, got nil or wrong error")
	}
}

func TestLoadConfig_FileValues(t *testing.T) {
	t.Parallel()
	path := writeTempConfig(t, `
log_level: debug
acquisition:
  channels: [1, 3]
  epoch_seconds: 2
  overlap_seconds: 1.5
  buffer_seconds: 4
  pull_timeout: 250ms
capture:
  enabled: false
stream:
  resolve_timeout: 2s
session:
  output_dir: /tmp/sessions
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if !slices.Equal(cfg.Acquisition.Channels, []int{1, 3}) {
		t.Errorf("channels = %v, expected [1 3]", cfg.Acquisition.Channels)
	}
	if cfg.Acquisition.PullTimeout != 250*time.Millisecond {
		t.Errorf("pull_timeout = %v", cfg.Acquisition.PullTimeout)
	}
	if cfg.Stream.ResolveTimeout != 2*time.Second {
		t.Errorf("resolve_timeout = %v", cfg.Stream.ResolveTimeout)
	}
	if cfg.Capture.Enabled {
		t.Error("capture should be disabled")
	}
	// Untouched sections keep their defaults.
	if cfg.Acquisition.MaxChunkLen != DefaultMaxChunkLen {
		t.Errorf("max_chunk_len = %d, expected default", cfg.Acquisition.MaxChunkLen)
	}
	if cfg.Session.OutputDir != "/tmp/sessions" {
		t.Errorf("output_dir = %q", cfg.Session.OutputDir)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"empty channels", func(c *Config) { c.Acquisition.Channels = nil }, "must not be empty"},
		{"negative channel", func(c *Config) { c.Acquisition.Channels = []int{0, -1} }, "negative"},
		{"duplicate channel", func(c *Config) { c.Acquisition.Channels = []int{0, 2, 2} }, "more than once"},
		{"overlap equals epoch", func(c *Config) { c.Acquisition.OverlapSeconds = 1 }, "overlap_seconds"},
		{"buffer shorter than epoch", func(c *Config) { c.Acquisition.BufferSeconds = 0.5 }, "buffer_seconds"},
		{"zero pull timeout", func(c *Config) { c.Acquisition.PullTimeout = 0 }, "pull_timeout"},
		{"missing capture command", func(c *Config) { c.Capture.Command = " " }, "capture.command"},
		{"udp without port", func(c *Config) {
			c.Transport.UDPEnabled = true
			c.Transport.UDPTargetAddress = "localhost"
		}, "missing port"},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, "log_level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate() = %v, expected error containing %q", err, tt.want)
			}
		})
	}

	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("ENV_DEBUG", "true")
	t.Setenv("ENV_LOG_LEVEL", "warn")
	t.Setenv("ENV_BROKER_ADDRESS", "10.0.0.5:1883")
	t.Setenv("ENV_GATEWAY_ADDRESS", ":9999")
	t.Setenv("ENV_UDP_ENABLED", "yes-not-a-bool")
	t.Setenv("ENV_UDP_TARGET_ADDRESS", "10.0.0.6:9000")
	t.Setenv("ENV_OUTPUT_DIR", "/data/eeg")

	cfg, err := LoadConfig(writeTempConfig(t, "debug: false\n"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if !cfg.Debug || cfg.LogLevel != "warn" {
		t.Errorf("debug/log_level not overridden: %v %q", cfg.Debug, cfg.LogLevel)
	}
	if cfg.Stream.BrokerAddress != "10.0.0.5:1883" || cfg.Gateway.Address != ":9999" {
		t.Errorf("addresses not overridden: %q %q", cfg.Stream.BrokerAddress, cfg.Gateway.Address)
	}
	if cfg.Transport.UDPEnabled {
		t.Error("unparsable ENV_UDP_ENABLED must be ignored")
	}
	if cfg.Transport.UDPTargetAddress != "10.0.0.6:9000" || cfg.Session.OutputDir != "/data/eeg" {
		t.Errorf("udp target/output dir not overridden: %q %q", cfg.Transport.UDPTargetAddress, cfg.Session.OutputDir)
	}
}
