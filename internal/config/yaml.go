// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"eeg/internal/log"

	"gopkg.in/yaml.v3"
)

// Config represents the main application configuration structure, loaded from YAML.
type Config struct {
	Debug       bool              `yaml:"debug"`
	LogLevel    string            `yaml:"log_level"`
	Acquisition AcquisitionConfig `yaml:"acquisition"`
	Capture     CaptureConfig     `yaml:"capture"`
	Stream      StreamConfig      `yaml:"stream"`
	Session     SessionConfig     `yaml:"session"`
	Gateway     GatewayConfig     `yaml:"gateway"`
	Transport   TransportConfig   `yaml:"transport"`
}

// AcquisitionConfig fixes the shape of a session. It is copied into the
// orchestrator by value and never changes while a session runs.
type AcquisitionConfig struct {
	Channels       []int         `yaml:"channels"`        // Hardware channel indices, in column order.
	BufferSeconds  float64       `yaml:"buffer_seconds"`  // Windowing buffer length.
	EpochSeconds   float64       `yaml:"epoch_seconds"`   // Length of each analysed window.
	OverlapSeconds float64       `yaml:"overlap_seconds"` // Overlap between consecutive epochs.
	Window         string        `yaml:"window"`          // FFT taper name.
	NotchEnabled   bool          `yaml:"notch_enabled"`
	NotchHz        float64       `yaml:"notch_hz"`
	NotchQ         float64       `yaml:"notch_q"`
	MaxChunkLen    int           `yaml:"max_chunk_len"` // Upper bound on rows per pull.
	PullTimeout    time.Duration `yaml:"pull_timeout"`
}

// CaptureConfig describes the external device bridge process.
type CaptureConfig struct {
	Enabled     bool          `yaml:"enabled"`
	Command     string        `yaml:"command"`
	Args        []string      `yaml:"args"`
	WarmUp      time.Duration `yaml:"warm_up"`
	StopTimeout time.Duration `yaml:"stop_timeout"`
}

// StreamConfig holds stream discovery settings.
type StreamConfig struct {
	BrokerAddress  string        `yaml:"broker_address"`
	EmbeddedBroker bool          `yaml:"embedded_broker"` // Start a broker in-process on BrokerAddress.
	Prefix         string        `yaml:"prefix"`
	Type           string        `yaml:"type"`
	ResolveTimeout time.Duration `yaml:"resolve_timeout"`

	SimulatedName     string  `yaml:"simulated_name"`
	SimulatedRate     float64 `yaml:"simulated_rate"`
	SimulatedChannels int     `yaml:"simulated_channels"`
}

// SessionConfig controls where artifacts are written.
type SessionConfig struct {
	OutputDir string `yaml:"output_dir"`
}

// GatewayConfig holds the ingestion gateway settings.
type GatewayConfig struct {
	Address        string `yaml:"address"`
	DataDir        string `yaml:"data_dir"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes"`
	WebSocket      bool   `yaml:"websocket"`     // Mount /ws and broadcast new records.
	ForwardTopic   string `yaml:"forward_topic"` // Publish new records on this MQTT topic when set.
}

// TransportConfig holds live telemetry settings used while recording.
type TransportConfig struct {
	UDPEnabled       bool          `yaml:"udp_enabled"`
	UDPTargetAddress string        `yaml:"udp_target_address"`
	UDPSendInterval  time.Duration `yaml:"udp_send_interval"`
	WebSocketEnabled bool          `yaml:"websocket_enabled"`
	WebSocketAddress string        `yaml:"websocket_address"`
	MQTTTopic        string        `yaml:"mqtt_topic"` // Publish frames on this topic when set.
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		LogLevel: DefaultLogLevel,
		Acquisition: AcquisitionConfig{
			Channels:       DefaultChannels(),
			BufferSeconds:  DefaultBufferSeconds,
			EpochSeconds:   DefaultEpochSeconds,
			OverlapSeconds: DefaultOverlapSeconds,
			Window:         DefaultWindow,
			NotchEnabled:   true,
			NotchHz:        DefaultNotchHz,
			NotchQ:         DefaultNotchQ,
			MaxChunkLen:    DefaultMaxChunkLen,
			PullTimeout:    DefaultPullTimeout,
		},
		Capture: CaptureConfig{
			Enabled:     true,
			Command:     DefaultCaptureCommand,
			Args:        []string{"stream"},
			WarmUp:      DefaultWarmUp,
			StopTimeout: DefaultStopTimeout,
		},
		Stream: StreamConfig{
			BrokerAddress:     DefaultBrokerAddress,
			EmbeddedBroker:    true,
			Prefix:            DefaultStreamPrefix,
			Type:              DefaultStreamType,
			ResolveTimeout:    DefaultResolveTimeout,
			SimulatedName:     DefaultSimulatedName,
			SimulatedRate:     DefaultSimulatedRate,
			SimulatedChannels: DefaultSimulatedChannels,
		},
		Session: SessionConfig{OutputDir: DefaultOutputDir},
		Gateway: GatewayConfig{
			Address:        DefaultGatewayAddress,
			DataDir:        DefaultDataDir,
			MaxUploadBytes: DefaultMaxUploadBytes,
		},
		Transport: TransportConfig{
			UDPTargetAddress: DefaultUDPTargetAddress,
			UDPSendInterval:  DefaultUDPSendInterval,
			WebSocketAddress: DefaultWebSocketAddress,
		},
	}
}

// LoadConfig loads configuration from a YAML file specified by path. If path is empty,
// it looks for "config.yaml" in the working directory and falls back to built-in
// defaults. Environment overrides are applied last, then the result is validated.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks cross-field constraints. All problems are reported together.
func (c *Config) Validate() error {
	var errs []error
	a := c.Acquisition

	if len(a.Channels) == 0 {
		errs = append(errs, errors.New("acquisition.channels must not be empty"))
	}
	for i, ch := range a.Channels {
		if ch < 0 {
			errs = append(errs, fmt.Errorf("acquisition.channels[%d] is negative (%d)", i, ch))
		}
		if slices.Index(a.Channels, ch) != i {
			errs = append(errs, fmt.Errorf("acquisition.channels contains %d more than once", ch))
		}
	}
	if a.EpochSeconds <= 0 {
		errs = append(errs, errors.New("acquisition.epoch_seconds must be positive"))
	}
	if a.OverlapSeconds < 0 || a.OverlapSeconds >= a.EpochSeconds {
		errs = append(errs, fmt.Errorf("acquisition.overlap_seconds must be in [0, epoch_seconds), got %g", a.OverlapSeconds))
	}
	if a.BufferSeconds < a.EpochSeconds {
		errs = append(errs, fmt.Errorf("acquisition.buffer_seconds (%g) must be at least epoch_seconds (%g)", a.BufferSeconds, a.EpochSeconds))
	}
	if a.NotchEnabled && (a.NotchHz <= 0 || a.NotchQ <= 0) {
		errs = append(errs, errors.New("acquisition.notch_hz and notch_q must be positive when the notch is enabled"))
	}
	if a.MaxChunkLen <= 0 {
		errs = append(errs, errors.New("acquisition.max_chunk_len must be positive"))
	}
	if a.PullTimeout <= 0 {
		errs = append(errs, errors.New("acquisition.pull_timeout must be positive"))
	}

	if c.Capture.Enabled && strings.TrimSpace(c.Capture.Command) == "" {
		errs = append(errs, errors.New("capture.command must be set when capture is enabled"))
	}
	if c.Capture.WarmUp < 0 || c.Capture.StopTimeout <= 0 {
		errs = append(errs, errors.New("capture.warm_up must be >= 0 and capture.stop_timeout positive"))
	}

	if c.Stream.BrokerAddress == "" || c.Stream.Prefix == "" {
		errs = append(errs, errors.New("stream.broker_address and stream.prefix must be set"))
	}
	if c.Stream.ResolveTimeout <= 0 {
		errs = append(errs, errors.New("stream.resolve_timeout must be positive"))
	}

	if c.Gateway.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("gateway.max_upload_bytes must be positive"))
	}

	if c.Transport.UDPEnabled {
		if !strings.Contains(c.Transport.UDPTargetAddress, ":") {
			errs = append(errs, fmt.Errorf("transport.udp_target_address '%s' appears invalid (missing port?)", c.Transport.UDPTargetAddress))
		}
		if c.Transport.UDPSendInterval <= 0 {
			errs = append(errs, errors.New("transport.udp_send_interval must be positive when UDP is enabled"))
		}
	}

	if _, ok := log.ParseLevel(c.LogLevel); !ok {
		errs = append(errs, fmt.Errorf("log_level %q is not recognised", c.LogLevel))
	}
	return errors.Join(errs...)
}

// applyEnvOverrides applies ENV_* variables on top of file and default values.
func (cfg *Config) applyEnvOverrides() {
	if val, ok := os.LookupEnv("ENV_DEBUG"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			cfg.Debug = bVal
			log.Debugf("Config: Overriding debug from env: %v", bVal)
		}
	}
	if val, ok := os.LookupEnv("ENV_LOG_LEVEL"); ok {
		cfg.LogLevel = val
		log.Debugf("Config: Overriding log_level from env: %s", val)
	}
	if val, ok := os.LookupEnv("ENV_OUTPUT_DIR"); ok {
		cfg.Session.OutputDir = val
		log.Debugf("Config: Overriding session.output_dir from env: %s", val)
	}

	// ENV_BROKER_{...} and ENV_GATEWAY_{...} address network endpoints.
	if val, ok := os.LookupEnv("ENV_BROKER_ADDRESS"); ok {
		cfg.Stream.BrokerAddress = val
		log.Debugf("Config: Overriding stream.broker_address from env: %s", val)
	}
	if val, ok := os.LookupEnv("ENV_GATEWAY_ADDRESS"); ok {
		cfg.Gateway.Address = val
		log.Debugf("Config: Overriding gateway.address from env: %s", val)
	}

	// ENV_UDP_{...} are specific to the telemetry transport.
	if val, ok := os.LookupEnv("ENV_UDP_ENABLED"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			cfg.Transport.UDPEnabled = bVal
			log.Debugf("Config: Overriding transport.udp_enabled from env: %v", bVal)
		}
	}
	if val, ok := os.LookupEnv("ENV_UDP_TARGET_ADDRESS"); ok {
		cfg.Transport.UDPTargetAddress = val
		log.Debugf("Config: Overriding transport.udp_target_address from env: %s", val)
	}
	if val, ok := os.LookupEnv("ENV_UDP_SEND_INTERVAL"); ok {
		if dur, err := time.ParseDuration(val); err == nil {
			cfg.Transport.UDPSendInterval = dur
			log.Debugf("Config: Overriding transport.udp_send_interval from env: %s", dur)
		}
	}
}
