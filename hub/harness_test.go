// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package hub

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/bureau-foundation/gamehub/gamestate"
	"github.com/bureau-foundation/gamehub/lib/metrics"
	"github.com/bureau-foundation/gamehub/lib/testutil"
	"github.com/bureau-foundation/gamehub/peer"
	"github.com/bureau-foundation/gamehub/registry"
	"github.com/bureau-foundation/gamehub/task"
	"github.com/bureau-foundation/gamehub/transport"
)

const (
	hubAddress        transport.Address = "hub"
	gatewayAddress    transport.Address = "gateway"
	uiAddress         transport.Address = "ui-0"
	agentAddress      transport.Address = "agent-0"
	recognizerAddress transport.Address = "recognizer-0"
	strangerAddress   transport.Address = "stale-agent"
)

var allServices = []peer.ServiceKind{peer.ServiceUI, peer.ServiceAgent, peer.ServiceRecognizer}

var serviceAddress = map[peer.ServiceKind]transport.Address{
	peer.ServiceUI:         uiAddress,
	peer.ServiceAgent:      agentAddress,
	peer.ServiceRecognizer: recognizerAddress,
}

// capture is a Recorder and FrameConsumer that keeps what it is given.
// The router calls it synchronously, so no locking.
type capture struct {
	frames   []peer.FramePayload
	results  []peer.ResultPayload
	actions  []peer.ActionPayload
	testIDs  []peer.TestIDPayload
	onFrame  func(peer.FramePayload)
	recorded []peer.FramePayload
}

func (c *capture) OnFrame(frame peer.FramePayload) {
	if c.onFrame != nil {
		c.onFrame(frame)
	}
	c.frames = append(c.frames, frame)
}
func (c *capture) OnResult(result peer.ResultPayload)  { c.results = append(c.results, result) }
func (c *capture) RecordFrame(frame peer.FramePayload) { c.recorded = append(c.recorded, frame) }
func (c *capture) RecordAction(_ peer.ServiceKind, action peer.ActionPayload) {
	c.actions = append(c.actions, action)
}
func (c *capture) RecordTestID(id peer.TestIDPayload) { c.testIDs = append(c.testIDs, id) }

type harness struct {
	t        *testing.T
	bus      *transport.MemoryBus
	router   *Router
	registry *registry.Registry
	tracker  *task.Tracker
	machine  *gamestate.Machine
	logs     *testutil.LogRecorder
	gatherer *prometheus.Registry
	capture  *capture
	taskID   string
}

func newHarness(t *testing.T, required []peer.ServiceKind, clientAuthoritative bool) *harness {
	t.Helper()

	bus := transport.NewMemoryBus(0)
	t.Cleanup(func() { bus.Close() })
	for _, address := range []transport.Address{hubAddress, gatewayAddress, uiAddress, agentAddress, recognizerAddress, strangerAddress} {
		if err := bus.Bind(address); err != nil {
			t.Fatalf("Bind(%s): %v", address, err)
		}
	}

	gatherer := prometheus.NewRegistry()
	m, err := metrics.New(gatherer)
	if err != nil {
		t.Fatalf("metrics.New: %v", err)
	}

	services := registry.New(required)
	tracker := task.NewTracker(services)
	machine := gamestate.New(gamestate.Config{ClientAuthoritative: clientAuthoritative})
	logs, logger := testutil.NewLogRecorder()
	captured := &capture{}

	router, err := New(Config{
		Bus:      bus,
		Local:    hubAddress,
		Gateway:  gatewayAddress,
		Registry: services,
		Tracker:  tracker,
		Machine:  machine,
		Frames:   captured,
		Recorder: captured,
		Metrics:  m,
		Logger:   logger,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	return &harness{
		t:        t,
		bus:      bus,
		router:   router,
		registry: services,
		tracker:  tracker,
		machine:  machine,
		logs:     logs,
		gatherer: gatherer,
		capture:  captured,
	}
}

// send delivers one envelope to the router as if it arrived from from.
func (h *harness) send(from transport.Address, kind peer.Kind, payload any) {
	h.t.Helper()
	envelope, err := peer.NewEnvelope(kind, from, payload)
	if err != nil {
		h.t.Fatalf("NewEnvelope(%s): %v", kind, err)
	}
	data, err := peer.CBORCodec{}.Encode(envelope)
	if err != nil {
		h.t.Fatalf("Encode(%s): %v", kind, err)
	}
	h.router.HandleMessage(data)
}

// drain returns and removes everything queued for address.
func (h *harness) drain(address transport.Address) []peer.Envelope {
	h.t.Helper()
	messages, err := h.bus.PollRecv(address)
	if err != nil {
		h.t.Fatalf("PollRecv(%s): %v", address, err)
	}
	envelopes := make([]peer.Envelope, 0, len(messages))
	for _, message := range messages {
		envelope, err := peer.CBORCodec{}.Decode(message)
		if err != nil {
			h.t.Fatalf("decoding message for %s: %v", address, err)
		}
		if envelope.From != hubAddress {
			h.t.Errorf("%s envelope to %s stamped from %q, want hub", envelope.Kind, address, envelope.From)
		}
		envelopes = append(envelopes, envelope)
	}
	return envelopes
}

func (h *harness) drainAll() {
	for _, address := range []transport.Address{gatewayAddress, uiAddress, agentAddress, recognizerAddress, strangerAddress} {
		h.drain(address)
	}
}

func (h *harness) register(kind peer.ServiceKind) {
	h.t.Helper()
	h.send(serviceAddress[kind], peer.KindServiceRegister, peer.RegisterPayload{Service: kind, Op: peer.RegisterJoin})
}

// makeReady registers every required service, starts a task, and
// reports success from each, then discards all resulting traffic.
func (h *harness) makeReady() {
	h.t.Helper()
	for _, kind := range h.registry.Required() {
		h.register(kind)
	}
	h.taskID = testutil.UniqueID("task")
	h.send(gatewayAddress, peer.KindNewTask, peer.NewTaskPayload{TaskID: h.taskID, SessionKey: testutil.UniqueID("key")})
	for _, kind := range h.registry.Required() {
		h.send(serviceAddress[kind], peer.KindTaskReport, peer.TaskReportPayload{Status: peer.InitSuccess})
	}
	if !h.tracker.Ready() {
		h.t.Fatalf("task not ready after all reports: %+v", h.tracker.Current())
	}
	h.drainAll()
}

func kinds(envelopes []peer.Envelope) []peer.Kind {
	result := make([]peer.Kind, len(envelopes))
	for i, envelope := range envelopes {
		result[i] = envelope.Kind
	}
	return result
}

func countKind(envelopes []peer.Envelope, kind peer.Kind) int {
	count := 0
	for _, envelope := range envelopes {
		if envelope.Kind == kind {
			count++
		}
	}
	return count
}

func decode[T any](t *testing.T, envelope peer.Envelope) T {
	t.Helper()
	var payload T
	if err := envelope.DecodePayload(&payload); err != nil {
		t.Fatalf("decoding %s payload: %v", envelope.Kind, err)
	}
	return payload
}
