// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/gamehub/peer"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default() does not validate: %v", err)
	}
	if cfg.RunMode != RunModeUIAndAI {
		t.Errorf("run_mode = %s, want ui_ai", cfg.RunMode)
	}
}

func TestParseYAML(t *testing.T) {
	data := []byte(`
run_mode: ai
transport:
  kind: socket
  socket_dir: /run/gamehub
  poll_interval: 2ms
  poll_max_interval: 50ms
gateway:
  channel: http
  http_listen: 0.0.0.0:8080
merge:
  ai: reset_on_finish
`)
	cfg, err := Parse(data, ".yaml")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.RunMode != RunModeAI || cfg.Transport.Kind != "socket" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Transport.PollInterval != 2*time.Millisecond || cfg.Transport.PollMaxInterval != 50*time.Millisecond {
		t.Errorf("poll intervals = %v / %v", cfg.Transport.PollInterval, cfg.Transport.PollMaxInterval)
	}
	if cfg.Merge.AI != "reset_on_finish" || cfg.Merge.UI != "passthrough" {
		t.Errorf("merge = %+v (defaults not kept)", cfg.Merge)
	}
	if cfg.Transport.HubAddress != "hub" {
		t.Errorf("hub_address default lost: %q", cfg.Transport.HubAddress)
	}
}

func TestParseJSONC(t *testing.T) {
	data := []byte(`{
		// UI-only smoke runs
		"run_mode": "ui",
		"gateway": {
			"channel": "binary",
			"binary_listen": "127.0.0.1:31000", /* moved off the default */
		},
		"transport": {"poll_interval": "3ms"},
	}`)
	cfg, err := Parse(data, ".jsonc")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.RunMode != RunModeUI || cfg.Gateway.BinaryListen != "127.0.0.1:31000" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Transport.PollInterval != 3*time.Millisecond {
		t.Errorf("poll_interval = %v", cfg.Transport.PollInterval)
	}
}

func TestValidationReportsFileKeys(t *testing.T) {
	data := []byte(`
run_mode: turbo
transport:
  gateway_address: hub
gateway:
  channel: carrier-pigeon
  frame_compression: brotli
`)
	_, err := Parse(data, ".yaml")
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"run_mode", "gateway.channel", "gateway.frame_compression", "transport.hub_address"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}

func TestSocketKindRequiresDir(t *testing.T) {
	_, err := Parse([]byte("transport:\n  kind: socket\n  socket_dir: \"\"\n"), ".yaml")
	if err == nil || !strings.Contains(err.Error(), "transport.socket_dir") {
		t.Errorf("err = %v, want socket_dir violation", err)
	}
}

func TestExpandVariables(t *testing.T) {
	t.Setenv("GAMEHUB_TEST_RUNTIME", "/run/user/1000")
	cfg, err := Parse([]byte("transport:\n  socket_dir: ${GAMEHUB_TEST_RUNTIME}/hub\n"), ".yaml")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Transport.SocketDir != "/run/user/1000/hub" {
		t.Errorf("socket_dir = %q", cfg.Transport.SocketDir)
	}

	cfg, err = Parse([]byte("transport:\n  socket_dir: ${GAMEHUB_TEST_UNSET:-/tmp/fallback}\n"), ".yaml")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Transport.SocketDir != "/tmp/fallback" {
		t.Errorf("socket_dir = %q", cfg.Transport.SocketDir)
	}
}

func TestLoadRequiresEnvironment(t *testing.T) {
	t.Setenv(EnvironmentVariable, "")
	if _, err := Load(); err == nil || !strings.Contains(err.Error(), EnvironmentVariable) {
		t.Errorf("err = %v", err)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gamehub.yaml")
	if err := os.WriteFile(path, []byte("run_mode: ai\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvironmentVariable, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RunMode != RunModeAI {
		t.Errorf("run_mode = %s", cfg.RunMode)
	}
}

func TestRunModeServices(t *testing.T) {
	tests := []struct {
		mode          RunMode
		required      []peer.ServiceKind
		authoritative bool
	}{
		{RunModeUIAndAI, []peer.ServiceKind{peer.ServiceUI, peer.ServiceAgent, peer.ServiceRecognizer}, false},
		{RunModeAI, []peer.ServiceKind{peer.ServiceAgent, peer.ServiceRecognizer}, true},
		{RunModeUI, []peer.ServiceKind{peer.ServiceUI, peer.ServiceRecognizer}, false},
	}
	for _, test := range tests {
		if got := test.mode.RequiredServices(); !reflect.DeepEqual(got, test.required) {
			t.Errorf("%s RequiredServices = %v, want %v", test.mode, got, test.required)
		}
		if got := test.mode.ClientAuthoritative(); got != test.authoritative {
			t.Errorf("%s ClientAuthoritative = %v", test.mode, got)
		}
	}
}
