// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package hub

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/bureau-foundation/gamehub/gamestate"
	"github.com/bureau-foundation/gamehub/lib/clock"
	"github.com/bureau-foundation/gamehub/lib/metrics"
	"github.com/bureau-foundation/gamehub/merge"
	"github.com/bureau-foundation/gamehub/peer"
	"github.com/bureau-foundation/gamehub/record"
	"github.com/bureau-foundation/gamehub/registry"
	"github.com/bureau-foundation/gamehub/task"
	"github.com/bureau-foundation/gamehub/transport"
)

// Config holds a Router's collaborators. Bus, Local, Gateway,
// Registry, Tracker, Machine, and Logger are required; the rest have
// working defaults.
type Config struct {
	Bus     transport.Transport
	Codec   peer.Codec
	Local   transport.Address
	Gateway transport.Address

	Registry *registry.Registry
	Tracker  *task.Tracker
	Machine  *gamestate.Machine

	// UIMerger and AIMerger shape action payloads before they reach
	// the gateway. Default: passthrough.
	UIMerger merge.Merger
	AIMerger merge.Merger

	// Frames sees every frame and recognition result. Default: no-op.
	Frames record.FrameConsumer

	// Recorder keeps frames, agent actions, and test ids. Default: no-op.
	Recorder record.Recorder

	// Metrics may be nil.
	Metrics *metrics.Metrics

	// Receive controls the idle backoff of Run. Receive.Clock defaults
	// to the real clock and Receive.Logger to Logger.
	Receive transport.ReceiveConfig

	Logger *slog.Logger
}

type handlerFunc func(peer.Envelope) error

// Router dispatches envelopes arriving at the hub address.
type Router struct {
	config   Config
	sender   peer.Sender
	handlers map[peer.Kind]handlerFunc
	logger   *slog.Logger
}

// New validates config and builds the handler table.
func New(config Config) (*Router, error) {
	switch {
	case config.Bus == nil:
		return nil, errors.New("hub: Bus is required")
	case config.Local == "":
		return nil, errors.New("hub: Local address is required")
	case config.Gateway == "":
		return nil, errors.New("hub: Gateway address is required")
	case config.Local == config.Gateway:
		return nil, errors.New("hub: Local and Gateway addresses must differ")
	case config.Registry == nil || config.Tracker == nil || config.Machine == nil:
		return nil, errors.New("hub: Registry, Tracker, and Machine are required")
	case config.Logger == nil:
		return nil, errors.New("hub: Logger is required")
	}
	if config.Codec == nil {
		config.Codec = peer.CBORCodec{}
	}
	if config.UIMerger == nil {
		config.UIMerger, _ = merge.Lookup(merge.Passthrough)
	}
	if config.AIMerger == nil {
		config.AIMerger, _ = merge.Lookup(merge.Passthrough)
	}
	if config.Frames == nil {
		config.Frames = record.Noop{}
	}
	if config.Recorder == nil {
		config.Recorder = record.Noop{}
	}
	if config.Receive.Clock == nil {
		config.Receive.Clock = clock.Real()
	}
	if config.Receive.Logger == nil {
		config.Receive.Logger = config.Logger
	}

	r := &Router{
		config: config,
		sender: peer.Sender{Bus: config.Bus, Codec: config.Codec, Local: config.Local},
		logger: config.Logger.With("component", "hub"),
	}
	r.handlers = map[peer.Kind]handlerFunc{
		peer.KindSourceImage:     r.handleFrame,
		peer.KindGameResult:      r.handleResult,
		peer.KindUIAction:        r.handleUIAction,
		peer.KindAIAction:        r.handleAIAction,
		peer.KindServiceRegister: r.handleRegister,
		peer.KindTaskReport:      r.handleTaskReport,
		peer.KindNewTask:         r.handleNewTask,
		peer.KindChangeGameState: r.handleChangeGameState,
		peer.KindPauseAgent:      r.handleAgentControl,
		peer.KindRestoreAgent:    r.handleAgentControl,
		peer.KindRestart:         r.handleRestart,
		peer.KindRestartResult:   r.relayToGateway,
		peer.KindAgentState:      r.relayToGateway,
		peer.KindTrainState:      r.relayToGateway,
		peer.KindServiceState:    r.relayToGateway,
		peer.KindTestID:          r.handleTestID,
	}
	return r, nil
}

// Run binds the hub address and dispatches until ctx is cancelled.
func (r *Router) Run(ctx context.Context) error {
	if err := r.config.Bus.Bind(r.config.Local); err != nil {
		return fmt.Errorf("binding hub address %s: %w", r.config.Local, err)
	}
	r.logger.Info("hub listening",
		"address", r.config.Local,
		"gateway", r.config.Gateway,
		"required", r.config.Registry.Required(),
	)
	return transport.Receive(ctx, r.config.Bus, r.config.Local, r.config.Receive, r.HandleMessage)
}

// HandleMessage decodes and dispatches one transport message. It never
// panics and never returns an error; every failure is logged and
// counted.
func (r *Router) HandleMessage(data []byte) {
	envelope, err := r.config.Codec.Decode(data)
	if err != nil {
		r.logger.Warn("dropping undecodable envelope", "bytes", len(data), "error", err)
		r.config.Metrics.Dropped("", metrics.DropDecode)
		return
	}
	r.config.Metrics.EnvelopeReceived(kindLabel(envelope.Kind))

	if err := r.dispatch(envelope); err != nil {
		r.reportDrop(envelope, err)
	}
}

func (r *Router) dispatch(envelope peer.Envelope) (err error) {
	handler, ok := r.handlers[envelope.Kind]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnhandledKind, envelope.Kind)
	}

	defer func() {
		if recovered := recover(); recovered != nil {
			r.logger.Error("handler panic stack", "kind", envelope.Kind, "stack", string(debug.Stack()))
			err = fmt.Errorf("%w: %v", ErrHandlerPanic, recovered)
		}
	}()
	return handler(envelope)
}

// reportDrop logs err at the level its class deserves and counts it.
func (r *Router) reportDrop(envelope peer.Envelope, err error) {
	kind := kindLabel(envelope.Kind)
	attrs := []any{"kind", envelope.Kind, "from", envelope.From, "error", err}

	switch {
	case errors.Is(err, ErrUnhandledKind):
		r.logger.Warn("unhandled envelope", attrs...)
		r.config.Metrics.Dropped(string(kind), metrics.DropUnknownKind)
	case errors.Is(err, ErrUnauthorized), errors.Is(err, registry.ErrNotRegistered):
		r.logger.Warn("dropping envelope from unauthorized sender", attrs...)
		r.config.Metrics.Dropped(string(kind), metrics.DropUnauthorized)
	case errors.Is(err, ErrPrematureAction):
		r.logger.Warn("dropping action before task is ready", attrs...)
		r.config.Metrics.Dropped(string(kind), metrics.DropPremature)
	case errors.Is(err, gamestate.ErrIllegalTransition),
		errors.Is(err, gamestate.ErrClientNotAuthoritative),
		errors.Is(err, gamestate.ErrUnknownSignal):
		r.logger.Warn("rejected game state change", attrs...)
		r.config.Metrics.Dropped(string(kind), metrics.DropRejected)
	case errors.Is(err, peer.ErrDecode):
		r.logger.Warn("dropping envelope with bad payload", attrs...)
		r.config.Metrics.Dropped(string(kind), metrics.DropDecode)
	case errors.Is(err, transport.ErrUnknownAddress),
		errors.Is(err, transport.ErrQueueFull),
		errors.Is(err, transport.ErrSendFailed),
		errors.Is(err, transport.ErrClosed):
		r.logger.Warn("forwarding failed", attrs...)
		r.config.Metrics.Dropped(string(kind), metrics.DropSendFailed)
	case errors.Is(err, ErrHandlerPanic):
		r.logger.Error("handler panicked", attrs...)
		r.config.Metrics.Dropped(string(kind), metrics.DropPanic)
	default:
		r.logger.Error("handler failed", attrs...)
		r.config.Metrics.Dropped(string(kind), metrics.DropHandlerError)
	}
}

// kindLabel bounds metric label cardinality to the known kinds.
func kindLabel(kind peer.Kind) peer.Kind {
	if kind.Known() {
		return kind
	}
	return "unknown"
}
