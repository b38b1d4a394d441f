// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Gamehub runs the coordination hub and the client gateway for one
// game-testing deployment.
//
// The hub routes envelopes between the gateway and the UI recognizer,
// agent, and game-state recognizer peers, tracks registration and task
// readiness, and owns the game state machine. The gateway holds the
// external client's session and speaks the binary or HTTP/JSON client
// protocol. Both run in this process over one peer transport: in
// memory, or over Unix sockets when peers run as separate processes.
//
// Configuration comes from --config or GAMEHUB_CONFIG; when neither is
// set the built-in defaults are used.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/gamehub/lib/config"
	"github.com/bureau-foundation/gamehub/lib/process"
	"github.com/bureau-foundation/gamehub/lib/version"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		process.Fatal(err)
	}
}

func run(args []string) error {
	var (
		configPath  string
		verbose     bool
		showVersion bool
	)
	flagSet := pflag.NewFlagSet("gamehub", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "config file (YAML, or JSONC for .json/.jsonc); default $"+config.EnvironmentVariable)
	flagSet.BoolVarP(&verbose, "verbose", "v", false, "log at debug level")
	flagSet.BoolVar(&showVersion, "version", false, "print version information and exit")
	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return process.Usage("%v", err)
	}
	if showVersion {
		version.Print("gamehub")
		return nil
	}
	if flagSet.NArg() > 0 {
		return process.Usage("unexpected argument: %s", flagSet.Arg(0))
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	logger := process.NewLogger(verbose).With("binary", "gamehub")
	logger.Info("starting", "version", version.Info(), "run_mode", cfg.RunMode, "channel", cfg.Gateway.Channel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	d, err := newDaemon(cfg, logger)
	if err != nil {
		return err
	}
	defer d.close()

	listeners, err := d.listen()
	if err != nil {
		return err
	}
	return d.run(ctx, listeners)
}

// loadConfig reads path, else GAMEHUB_CONFIG, else the defaults.
func loadConfig(path string) (*config.Config, error) {
	switch {
	case path != "":
		return config.LoadFile(path)
	case os.Getenv(config.EnvironmentVariable) != "":
		return config.Load()
	default:
		cfg := config.Default()
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("default config: %w", err)
		}
		return cfg, nil
	}
}
