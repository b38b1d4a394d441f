// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Gamehub-peer-mock stands in for a UI recognizer, agent, or game
// recognizer when running gamehub by hand. It joins the hub over the
// socket transport, reports successful initialization for every task,
// and answers traffic the way the real peer would, with canned output:
//
//   - recognizer: every frame gets a GAME_RESULT.
//   - ui: every frame gets a UI_ACTION; the first frame of a task
//     carries the start signal.
//   - agent: every GAME_RESULT gets an AI_ACTION unless paused;
//     RESTART is answered with RESTART_RESULT.
//
// The mock unregisters on SIGINT or SIGTERM.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/gamehub/lib/clock"
	"github.com/bureau-foundation/gamehub/lib/config"
	"github.com/bureau-foundation/gamehub/lib/process"
	"github.com/bureau-foundation/gamehub/lib/version"
	"github.com/bureau-foundation/gamehub/peer"
	"github.com/bureau-foundation/gamehub/transport"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		process.Fatal(err)
	}
}

func run(args []string) error {
	var (
		role        string
		address     string
		configPath  string
		failInit    bool
		verbose     bool
		showVersion bool
	)
	flagSet := pflag.NewFlagSet("gamehub-peer-mock", pflag.ContinueOnError)
	flagSet.StringVar(&role, "role", "", "peer role: ui, agent, or recognizer (required)")
	flagSet.StringVar(&address, "address", "", "transport address to bind (default <role>-mock)")
	flagSet.StringVar(&configPath, "config", "", "gamehub config file; its transport section locates the hub")
	flagSet.BoolVar(&failInit, "fail-init", false, "report initialization failure instead of success")
	flagSet.BoolVarP(&verbose, "verbose", "v", false, "log at debug level")
	flagSet.BoolVar(&showVersion, "version", false, "print version information and exit")
	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return process.Usage("%v", err)
	}
	if showVersion {
		version.Print("gamehub-peer-mock")
		return nil
	}

	service, err := peer.ParseServiceKind(role)
	if err != nil {
		return process.Usage("--role: %v", err)
	}
	if address == "" {
		address = role + "-mock"
	}

	cfg := config.Default()
	if configPath != "" {
		if cfg, err = config.LoadFile(configPath); err != nil {
			return err
		}
	}
	if cfg.Transport.Kind != "socket" {
		return process.Usage("the mock needs transport.kind socket; %q is in-process only", cfg.Transport.Kind)
	}

	logger := process.NewLogger(verbose).With("binary", "gamehub-peer-mock", "role", role)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bus := transport.NewSocketBus(cfg.Transport.SocketDir, cfg.Transport.InboxCapacity, logger)
	defer bus.Close()

	mock := newMockPeer(mockConfig{
		Bus:      bus,
		Local:    transport.Address(address),
		Hub:      transport.Address(cfg.Transport.HubAddress),
		Service:  service,
		FailInit: failInit,
		Logger:   logger,
	})
	return mock.Run(ctx, transport.ReceiveConfig{
		Clock:       clock.Real(),
		Interval:    cfg.Transport.PollInterval,
		MaxInterval: cfg.Transport.PollMaxInterval,
		Logger:      logger,
	})
}
