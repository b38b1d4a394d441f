// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/bureau-foundation/gamehub/clientproto"
	"github.com/bureau-foundation/gamehub/gamestate"
	"github.com/bureau-foundation/gamehub/gateway"
	"github.com/bureau-foundation/gamehub/gateway/httpchannel"
	"github.com/bureau-foundation/gamehub/hub"
	"github.com/bureau-foundation/gamehub/lib/clock"
	"github.com/bureau-foundation/gamehub/lib/config"
	"github.com/bureau-foundation/gamehub/lib/metrics"
	"github.com/bureau-foundation/gamehub/merge"
	"github.com/bureau-foundation/gamehub/record"
	"github.com/bureau-foundation/gamehub/registry"
	"github.com/bureau-foundation/gamehub/task"
	"github.com/bureau-foundation/gamehub/transport"
)

// daemon is one wired hub and gateway.
type daemon struct {
	config   *config.Config
	logger   *slog.Logger
	bus      transport.Transport
	gatherer *prometheus.Registry
	router   *hub.Router
	gateway  *gateway.Gateway
	http     *httpchannel.Server
}

// listeners are the sockets a daemon serves. Metrics is nil when no
// standalone metrics endpoint is configured.
type listeners struct {
	Client  net.Listener
	Metrics net.Listener
}

func newDaemon(cfg *config.Config, logger *slog.Logger) (*daemon, error) {
	bus, err := newBus(cfg.Transport, logger)
	if err != nil {
		return nil, err
	}

	gatherer := prometheus.NewRegistry()
	gatherer.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := metrics.New(gatherer)
	if err != nil {
		return nil, err
	}

	uiMerger, err := merge.Lookup(cfg.Merge.UI)
	if err != nil {
		return nil, fmt.Errorf("merge.ui: %w", err)
	}
	aiMerger, err := merge.Lookup(cfg.Merge.AI)
	if err != nil {
		return nil, fmt.Errorf("merge.ai: %w", err)
	}
	recorder, err := record.Lookup(cfg.Recorder.Kind, logger.With("component", "recorder"))
	if err != nil {
		return nil, err
	}
	frames, ok := recorder.(record.FrameConsumer)
	if !ok {
		frames = record.Noop{}
	}

	compression, err := clientproto.ParseCompressionTag(cfg.Gateway.FrameCompression)
	if err != nil {
		return nil, fmt.Errorf("gateway.frame_compression: %w", err)
	}

	receive := transport.ReceiveConfig{
		Clock:       clock.Real(),
		Interval:    cfg.Transport.PollInterval,
		MaxInterval: cfg.Transport.PollMaxInterval,
	}
	hubAddress := transport.Address(cfg.Transport.HubAddress)
	gatewayAddress := transport.Address(cfg.Transport.GatewayAddress)

	peers := registry.New(cfg.RunMode.RequiredServices())
	router, err := hub.New(hub.Config{
		Bus:      bus,
		Local:    hubAddress,
		Gateway:  gatewayAddress,
		Registry: peers,
		Tracker:  task.NewTracker(peers),
		Machine:  gamestate.New(gamestate.Config{ClientAuthoritative: cfg.RunMode.ClientAuthoritative()}),
		UIMerger: uiMerger,
		AIMerger: aiMerger,
		Frames:   frames,
		Recorder: recorder,
		Metrics:  m,
		Receive:  receive,
		Logger:   logger,
	})
	if err != nil {
		return nil, err
	}

	g, err := gateway.New(gateway.Config{
		Bus:              bus,
		Local:            gatewayAddress,
		Hub:              hubAddress,
		FrameCompression: compression,
		Receive:          receive,
		Metrics:          m,
		Logger:           logger,
	})
	if err != nil {
		return nil, err
	}

	d := &daemon{
		config:   cfg,
		logger:   logger,
		bus:      bus,
		gatherer: gatherer,
		router:   router,
		gateway:  g,
	}
	if cfg.Gateway.Channel == "http" {
		d.http, err = httpchannel.New(httpchannel.Config{Gateway: g, Gatherer: gatherer, Logger: logger})
		if err != nil {
			return nil, err
		}
	}
	return d, nil
}

func newBus(cfg config.TransportConfig, logger *slog.Logger) (transport.Transport, error) {
	switch cfg.Kind {
	case "memory":
		return transport.NewMemoryBus(cfg.InboxCapacity), nil
	case "socket":
		if err := os.MkdirAll(cfg.SocketDir, 0o700); err != nil {
			return nil, fmt.Errorf("creating socket directory: %w", err)
		}
		return transport.NewSocketBus(cfg.SocketDir, cfg.InboxCapacity, logger.With("component", "transport")), nil
	default:
		return nil, fmt.Errorf("unknown transport kind %q", cfg.Kind)
	}
}

// listen opens the configured client and metrics sockets.
func (d *daemon) listen() (listeners, error) {
	address := d.config.Gateway.BinaryListen
	if d.http != nil {
		address = d.config.Gateway.HTTPListen
	}
	client, err := net.Listen("tcp", address)
	if err != nil {
		return listeners{}, fmt.Errorf("listening for %s clients: %w", d.config.Gateway.Channel, err)
	}
	result := listeners{Client: client}

	if d.config.Metrics.Listen != "" {
		result.Metrics, err = net.Listen("tcp", d.config.Metrics.Listen)
		if err != nil {
			client.Close()
			return listeners{}, fmt.Errorf("listening for metrics: %w", err)
		}
	}
	return result, nil
}

// run serves until ctx is cancelled or a loop fails. The first failure
// stops the rest.
func (d *daemon) run(ctx context.Context, l listeners) error {
	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error { return d.router.Run(ctx) })
	group.Go(func() error { return d.gateway.Run(ctx) })

	if d.http != nil {
		group.Go(func() error { return d.http.Serve(ctx, l.Client) })
	} else {
		binary := gateway.NewBinaryServer(d.gateway, d.logger)
		group.Go(func() error { return binary.Serve(ctx, l.Client) })
	}

	if l.Metrics != nil {
		group.Go(func() error { return serveMetrics(ctx, l.Metrics, d.gatherer, d.logger) })
	}

	err := group.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	d.logger.Info("shut down")
	return nil
}

func serveMetrics(ctx context.Context, listener net.Listener, gatherer prometheus.Gatherer, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(gatherer))
	server := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics listening", "address", listener.Addr().String())
	if err := server.Serve(listener); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (d *daemon) close() {
	if err := d.bus.Close(); err != nil {
		d.logger.Warn("closing transport", "error", err)
	}
}
