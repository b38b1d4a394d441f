// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/bureau-foundation/gamehub/clientproto"
	"github.com/bureau-foundation/gamehub/lib/clock"
	"github.com/bureau-foundation/gamehub/lib/testutil"
	"github.com/bureau-foundation/gamehub/peer"
	"github.com/bureau-foundation/gamehub/transport"
)

const (
	gatewayAddress transport.Address = "gateway"
	hubAddress     transport.Address = "hub"
)

// sinkRecorder is a Sink that keeps every delivery.
type sinkRecorder struct {
	mu       sync.Mutex
	messages []Outbound
	fail     error
}

func (s *sinkRecorder) Deliver(outbound Outbound) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	s.messages = append(s.messages, outbound)
	return nil
}

func (s *sinkRecorder) take() []Outbound {
	s.mu.Lock()
	defer s.mu.Unlock()
	taken := s.messages
	s.messages = nil
	return taken
}

func types(messages []Outbound) []clientproto.MessageType {
	result := make([]clientproto.MessageType, len(messages))
	for i, message := range messages {
		result[i] = message.Type
	}
	return result
}

type harness struct {
	t       *testing.T
	bus     *transport.MemoryBus
	gateway *Gateway
	sink    *sinkRecorder
	logs    *testutil.LogRecorder
	logger  *slog.Logger
	clock   *clock.FakeClock
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	bus := transport.NewMemoryBus(0)
	t.Cleanup(func() { bus.Close() })
	for _, address := range []transport.Address{gatewayAddress, hubAddress} {
		if err := bus.Bind(address); err != nil {
			t.Fatalf("Bind: %v", err)
		}
	}

	logs, logger := testutil.NewLogRecorder()
	fake := clock.Fake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	counter := 0

	g, err := New(Config{
		Bus:              bus,
		Local:            gatewayAddress,
		Hub:              hubAddress,
		FrameCompression: clientproto.CompressionZstd,
		NewKey: func() string {
			counter++
			return fmt.Sprintf("generated-%d", counter)
		},
		Clock:  fake,
		Logger: logger,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	sink := &sinkRecorder{}
	t.Cleanup(g.Attach(sink))

	return &harness{t: t, bus: bus, gateway: g, sink: sink, logs: logs, logger: logger, clock: fake}
}

// fromHub hands the gateway one envelope as if the hub sent it.
func (h *harness) fromHub(kind peer.Kind, payload any) {
	h.t.Helper()
	h.fromAddress(hubAddress, kind, payload)
}

func (h *harness) fromAddress(from transport.Address, kind peer.Kind, payload any) {
	h.t.Helper()
	envelope, err := peer.NewEnvelope(kind, from, payload)
	if err != nil {
		h.t.Fatalf("NewEnvelope: %v", err)
	}
	data, err := peer.CBORCodec{}.Encode(envelope)
	if err != nil {
		h.t.Fatalf("Encode: %v", err)
	}
	h.gateway.HandleMessage(data)
}

// hubInbox drains what the gateway sent to the hub.
func (h *harness) hubInbox() []peer.Envelope {
	h.t.Helper()
	messages, err := h.bus.PollRecv(hubAddress)
	if err != nil {
		h.t.Fatalf("PollRecv: %v", err)
	}
	envelopes := make([]peer.Envelope, 0, len(messages))
	for _, message := range messages {
		envelope, err := peer.CBORCodec{}.Decode(message)
		if err != nil {
			h.t.Fatalf("Decode: %v", err)
		}
		if envelope.From != gatewayAddress {
			h.t.Errorf("envelope to hub from %q", envelope.From)
		}
		envelopes = append(envelopes, envelope)
	}
	return envelopes
}

// startTask opens a session with a known key and clears the traffic
// it causes.
func (h *harness) startTask() string {
	h.t.Helper()
	reply := h.gateway.NewTask("task-1", "key-1")
	if reply.Code != clientproto.CodeOK {
		h.t.Fatalf("NewTask: %+v", reply)
	}
	h.hubInbox()
	h.sink.take()
	return reply.Key
}

func kindsOf(envelopes []peer.Envelope) []peer.Kind {
	result := make([]peer.Kind, len(envelopes))
	for i, envelope := range envelopes {
		result[i] = envelope.Kind
	}
	return result
}
