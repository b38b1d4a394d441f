// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package metrics holds the Prometheus collectors for the hub and the
// gateway.
//
// Collectors are registered on a caller-supplied registerer rather
// than the global default, so tests get an isolated registry and a
// process may run more than one hub. Every method is safe on a nil
// *Metrics and does nothing, which lets components treat metrics as
// optional.
package metrics

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bureau-foundation/gamehub/peer"
)

const namespace = "gamehub"

// Drop reasons.
const (
	DropDecode       = "decode"
	DropUnknownKind  = "unknown_kind"
	DropUnauthorized = "unauthorized"
	DropPremature    = "premature"
	DropRejected     = "rejected"
	DropHandlerError = "handler_error"
	DropPanic        = "panic"
	DropSendFailed   = "send_failed"
	DropInvalidKey   = "invalid_key"
	DropNoClient     = "no_client"
)

// Metrics is the set of collectors shared by the hub and gateway.
type Metrics struct {
	envelopes       *prometheus.CounterVec
	drops           *prometheus.CounterVec
	readiness       prometheus.Counter
	transitions     *prometheus.CounterVec
	taskReports     *prometheus.CounterVec
	clientMessages  *prometheus.CounterVec
	clientConnected prometheus.Gauge
}

// New creates the collectors and registers them on registerer.
func New(registerer prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		envelopes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "envelopes_total",
			Help:      "Envelopes received by the hub, by kind",
		}, []string{"kind"}),
		drops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dropped_total",
			Help:      "Messages dropped, by kind and reason",
		}, []string{"kind", "reason"}),
		readiness: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "readiness_notices_total",
			Help:      "Times every required service became registered",
		}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "game_state_transitions_total",
			Help:      "Game state changes, by source and target state",
		}, []string{"from", "to"}),
		taskReports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "task_reports_total",
			Help:      "Aggregated task readiness reports, by status",
		}, []string{"status"}),
		clientMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "client_messages_total",
			Help:      "Messages exchanged with the external client, by direction and type",
		}, []string{"direction", "type"}),
		clientConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "client_connected",
			Help:      "1 while an external client is attached",
		}),
	}

	var errs []error
	for _, collector := range []prometheus.Collector{
		m.envelopes, m.drops, m.readiness, m.transitions,
		m.taskReports, m.clientMessages, m.clientConnected,
	} {
		errs = append(errs, registerer.Register(collector))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return m, nil
}

// Handler serves the collectors of gatherer in the Prometheus text
// exposition format.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) EnvelopeReceived(kind peer.Kind) {
	if m == nil {
		return
	}
	m.envelopes.WithLabelValues(string(kind)).Inc()
}

// Dropped counts one discarded message. kind is a peer kind or a client
// message type name.
func (m *Metrics) Dropped(kind, reason string) {
	if m == nil {
		return
	}
	m.drops.WithLabelValues(kind, reason).Inc()
}

func (m *Metrics) ReadinessNotice() {
	if m == nil {
		return
	}
	m.readiness.Inc()
}

func (m *Metrics) Transition(from, to peer.GameState) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(string(from), string(to)).Inc()
}

func (m *Metrics) TaskReport(status peer.InitStatus) {
	if m == nil {
		return
	}
	m.taskReports.WithLabelValues(string(status)).Inc()
}

// ClientMessage counts one client message; direction is "in" or "out".
func (m *Metrics) ClientMessage(direction, messageType string) {
	if m == nil {
		return
	}
	m.clientMessages.WithLabelValues(direction, messageType).Inc()
}

func (m *Metrics) ClientConnected(connected bool) {
	if m == nil {
		return
	}
	if connected {
		m.clientConnected.Set(1)
	} else {
		m.clientConnected.Set(0)
	}
}
