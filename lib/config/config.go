// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/gamehub/peer"
)

// EnvironmentVariable names the config file when --config is absent.
const EnvironmentVariable = "GAMEHUB_CONFIG"

// RunMode selects which peers a task needs and who owns game state.
type RunMode string

const (
	// RunModeUIAndAI runs the UI recognizer, an agent, and the game
	// recognizer. The UI recognizer owns game state.
	RunModeUIAndAI RunMode = "ui_ai"

	// RunModeAI runs an agent and the game recognizer. The external
	// client owns game state.
	RunModeAI RunMode = "ai"

	// RunModeUI runs the UI recognizer and the game recognizer only.
	RunModeUI RunMode = "ui"
)

// RequiredServices returns the kinds that must all be registered
// before the backend counts as assembled.
func (m RunMode) RequiredServices() []peer.ServiceKind {
	switch m {
	case RunModeAI:
		return []peer.ServiceKind{peer.ServiceAgent, peer.ServiceRecognizer}
	case RunModeUI:
		return []peer.ServiceKind{peer.ServiceUI, peer.ServiceRecognizer}
	default:
		return []peer.ServiceKind{peer.ServiceUI, peer.ServiceAgent, peer.ServiceRecognizer}
	}
}

// ClientAuthoritative reports whether the external client may start
// and end rounds. Only when no UI recognizer is in charge.
func (m RunMode) ClientAuthoritative() bool {
	return m == RunModeAI
}

// Config is the complete hub configuration.
type Config struct {
	RunMode   RunMode         `yaml:"run_mode" validate:"oneof=ui_ai ai ui"`
	Transport TransportConfig `yaml:"transport"`
	Gateway   GatewayConfig   `yaml:"gateway"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Merge     MergeConfig     `yaml:"merge"`
	Recorder  RecorderConfig  `yaml:"recorder"`
}

// TransportConfig configures the peer bus.
type TransportConfig struct {
	// Kind is "memory" (single process) or "socket" (Unix sockets in
	// SocketDir, one per address).
	Kind string `yaml:"kind" validate:"oneof=memory socket"`

	// SocketDir holds the per-address sockets. Required for "socket".
	SocketDir string `yaml:"socket_dir" validate:"required_if=Kind socket"`

	HubAddress     string `yaml:"hub_address" validate:"required,nefield=GatewayAddress"`
	GatewayAddress string `yaml:"gateway_address" validate:"required"`

	// PollInterval is the first idle sleep; it doubles up to
	// PollMaxInterval while nothing arrives.
	PollInterval    time.Duration `yaml:"poll_interval" validate:"gt=0"`
	PollMaxInterval time.Duration `yaml:"poll_max_interval" validate:"gtefield=PollInterval"`

	// InboxCapacity bounds undelivered messages per address.
	InboxCapacity int `yaml:"inbox_capacity" validate:"gte=0"`
}

// GatewayConfig configures the external client surface.
type GatewayConfig struct {
	// Channel is "binary" (framed TCP) or "http" (JSON + websocket).
	// The two are mutually exclusive.
	Channel string `yaml:"channel" validate:"oneof=binary http"`

	BinaryListen string `yaml:"binary_listen" validate:"required_if=Channel binary,omitempty,hostname_port"`
	HTTPListen   string `yaml:"http_listen" validate:"required_if=Channel http,omitempty,hostname_port"`

	// FrameCompression is how outbound binary frames compress image
	// bytes. Inbound frames declare their own compression.
	FrameCompression string `yaml:"frame_compression" validate:"oneof=none lz4 zstd"`
}

// MetricsConfig configures the Prometheus endpoint. An empty Listen
// disables the standalone endpoint; the HTTP channel always serves
// /metrics.
type MetricsConfig struct {
	Listen string `yaml:"listen" validate:"omitempty,hostname_port"`
}

// MergeConfig names the action-merge strategies for each action kind.
type MergeConfig struct {
	UI string `yaml:"ui" validate:"oneof=passthrough latest_frame reset_on_finish"`
	AI string `yaml:"ai" validate:"oneof=passthrough latest_frame reset_on_finish"`
}

// RecorderConfig selects the frame and action recorder.
type RecorderConfig struct {
	Kind string `yaml:"kind" validate:"oneof=none log"`
}

// Default returns the configuration a file is merged over.
func Default() *Config {
	return &Config{
		RunMode: RunModeUIAndAI,
		Transport: TransportConfig{
			Kind:            "memory",
			SocketDir:       "${XDG_RUNTIME_DIR:-/tmp}/gamehub",
			HubAddress:      "hub",
			GatewayAddress:  "gateway",
			PollInterval:    time.Millisecond,
			PollMaxInterval: 20 * time.Millisecond,
		},
		Gateway: GatewayConfig{
			Channel:          "binary",
			BinaryListen:     "127.0.0.1:30000",
			HTTPListen:       "127.0.0.1:30001",
			FrameCompression: "none",
		},
		Merge: MergeConfig{
			UI: "passthrough",
			AI: "passthrough",
		},
		Recorder: RecorderConfig{Kind: "log"},
	}
}

// Load reads the file named by GAMEHUB_CONFIG.
func Load() (*Config, error) {
	path := os.Getenv(EnvironmentVariable)
	if path == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your gamehub config file, or use --config", EnvironmentVariable)
	}
	return LoadFile(path)
}

// LoadFile reads path over the defaults, expands path variables, and
// validates the result.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg, err := Parse(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes data over the defaults. extension selects JSONC
// (".json", ".jsonc") or YAML (anything else).
func Parse(data []byte, extension string) (*Config, error) {
	switch strings.ToLower(extension) {
	case ".json", ".jsonc":
		// JSON is valid YAML, so stripping comments is all JSONC needs
		// to share the yaml tags and duration parsing.
		data = jsonc.ToJSON(data)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.expandVariables()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) expandVariables() {
	c.Transport.SocketDir = expandVars(c.Transport.SocketDir)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default} from the environment.
func expandVars(s string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if value := os.Getenv(parts[1]); value != "" {
			return value
		}
		return parts[2]
	})
}
