// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/bureau-foundation/gamehub/clientproto"
	"github.com/bureau-foundation/gamehub/lib/clock"
	"github.com/bureau-foundation/gamehub/lib/metrics"
	"github.com/bureau-foundation/gamehub/peer"
	"github.com/bureau-foundation/gamehub/transport"
)

var (
	// ErrInvalidKey is returned for client messages whose session key
	// does not match the live task.
	ErrInvalidKey = errors.New("gateway: invalid session key")

	// ErrInvalidParam is returned for client messages with fields of
	// the wrong type or value.
	ErrInvalidParam = errors.New("gateway: invalid parameter")

	// ErrNoClient is returned by deliveries while no client is
	// attached.
	ErrNoClient = errors.New("gateway: no client attached")
)

// Outbound is one message for the external client.
type Outbound struct {
	Type clientproto.MessageType
	Body any
}

// Sink delivers outbound messages to one attached client. Deliver is
// called from the gateway loop and from request handlers; an
// implementation serializes its own writes.
type Sink interface {
	Deliver(Outbound) error
}

// Config holds a Gateway's collaborators. Bus, Local, Hub, and Logger
// are required.
type Config struct {
	Bus   transport.Transport
	Codec peer.Codec
	Local transport.Address
	Hub   transport.Address

	// FrameCompression compresses images in SOURCE_RES replies.
	FrameCompression clientproto.CompressionTag

	// NewKey generates session keys and task ids the client leaves
	// empty. Default: random UUIDs.
	NewKey func() string

	// Clock stamps received frames. Default: real clock.
	Clock clock.Clock

	// Receive controls the idle backoff of Run.
	Receive transport.ReceiveConfig

	// Metrics may be nil.
	Metrics *metrics.Metrics

	Logger *slog.Logger
}

type handlerFunc func(peer.Envelope) error

// Gateway is safe for concurrent use by one internal loop and any
// number of client channel goroutines.
type Gateway struct {
	config   Config
	sender   peer.Sender
	session  *session
	handlers map[peer.Kind]handlerFunc
	logger   *slog.Logger

	// invalidKeyLog limits invalid-key warnings: a client stuck on an
	// old key sends one per frame.
	invalidKeyLog rate.Sometimes

	sinkMu sync.Mutex
	sink   Sink
}

// New validates config and returns a gateway with no session.
func New(config Config) (*Gateway, error) {
	switch {
	case config.Bus == nil:
		return nil, errors.New("gateway: Bus is required")
	case config.Local == "" || config.Hub == "":
		return nil, errors.New("gateway: Local and Hub addresses are required")
	case config.Logger == nil:
		return nil, errors.New("gateway: Logger is required")
	}
	if config.Codec == nil {
		config.Codec = peer.CBORCodec{}
	}
	if config.NewKey == nil {
		config.NewKey = uuid.NewString
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.Receive.Clock == nil {
		config.Receive.Clock = config.Clock
	}
	if config.Receive.Logger == nil {
		config.Receive.Logger = config.Logger
	}

	g := &Gateway{
		config:        config,
		sender:        peer.Sender{Bus: config.Bus, Codec: config.Codec, Local: config.Local},
		session:       newSession(),
		logger:        config.Logger.With("component", "gateway"),
		invalidKeyLog: rate.Sometimes{First: 1, Interval: 10 * time.Second},
	}
	g.handlers = map[peer.Kind]handlerFunc{
		peer.KindUIAction:        g.handleAction,
		peer.KindAIAction:        g.handleAction,
		peer.KindTaskReport:      g.handleTaskReport,
		peer.KindServiceRegister: g.handleReadiness,
		peer.KindServiceState:    g.handleServiceState,
		peer.KindChangeGameState: g.handleGameStateMirror,
		peer.KindTrainState:      g.handleTrainState,
		peer.KindRestartResult:   g.handleRestartResult,
		peer.KindAgentState:      g.handleAgentState,
	}
	return g, nil
}

// Session returns a snapshot of the live session.
func (g *Gateway) Session() Session {
	return g.session.snapshot()
}

// Attach makes sink the active client, replacing any previous one.
// The returned function detaches sink if it is still active.
func (g *Gateway) Attach(sink Sink) (detach func()) {
	g.sinkMu.Lock()
	previous := g.sink
	g.sink = sink
	g.sinkMu.Unlock()

	if previous != nil {
		g.logger.Info("client replaced by new connection")
	}
	g.config.Metrics.ClientConnected(true)

	return func() {
		g.sinkMu.Lock()
		defer g.sinkMu.Unlock()
		if g.sink == sink {
			g.sink = nil
			g.config.Metrics.ClientConnected(false)
		}
	}
}

// deliver pushes message to the attached client, if any.
func (g *Gateway) deliver(messageType clientproto.MessageType, body any) error {
	g.sinkMu.Lock()
	sink := g.sink
	g.sinkMu.Unlock()

	if sink == nil {
		g.config.Metrics.Dropped(messageType.String(), metrics.DropNoClient)
		return fmt.Errorf("%w: dropping %s", ErrNoClient, messageType)
	}
	if err := sink.Deliver(Outbound{Type: messageType, Body: body}); err != nil {
		g.config.Metrics.Dropped(messageType.String(), metrics.DropSendFailed)
		return fmt.Errorf("delivering %s to client: %w", messageType, err)
	}
	g.config.Metrics.ClientMessage("out", messageType.String())
	return nil
}

// toHub sends an envelope to the hub, logging failures. Client
// operations are fire-and-forget toward the hub.
func (g *Gateway) toHub(kind peer.Kind, payload any) {
	if err := g.sender.Send(g.config.Hub, kind, payload); err != nil {
		g.logger.Warn("forwarding to hub failed", "kind", kind, "error", err)
		g.config.Metrics.Dropped(string(kind), metrics.DropSendFailed)
	}
}

// Run binds the gateway address and handles hub envelopes until ctx is
// cancelled.
func (g *Gateway) Run(ctx context.Context) error {
	if err := g.config.Bus.Bind(g.config.Local); err != nil {
		return fmt.Errorf("binding gateway address %s: %w", g.config.Local, err)
	}
	g.logger.Info("gateway listening", "address", g.config.Local, "hub", g.config.Hub)
	return transport.Receive(ctx, g.config.Bus, g.config.Local, g.config.Receive, g.HandleMessage)
}
