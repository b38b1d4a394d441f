// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package task aggregates per-peer init reports into one readiness
// decision for the live task.
//
// Only one task is live at a time. A new task replaces the old one and
// waits for reports; the first failure, or the moment every registered
// peer has succeeded, produces exactly one aggregated report. Reports
// that arrive before the task itself are kept by the registry and
// evaluated as soon as the task appears.
package task

import (
	"sync"

	"github.com/bureau-foundation/gamehub/peer"
	"github.com/bureau-foundation/gamehub/registry"
	"github.com/bureau-foundation/gamehub/transport"
)

// State is the live task's readiness.
type State string

const (
	StateNone           State = "none"
	StateAwaitingReport State = "awaiting_report"
	StateReady          State = "ready"
	StateFailed         State = "failed"
)

// Task is one game-testing run.
type Task struct {
	ID         string
	SessionKey string
	State      State
}

// Decision is the outcome of an evaluation. Report is true at most
// once per task; Status and Task are meaningful only then.
type Decision struct {
	Report bool
	Status peer.InitStatus
	Task   Task
}

// Tracker is safe for concurrent use.
type Tracker struct {
	registry *registry.Registry

	mu   sync.Mutex
	task Task
}

// NewTracker returns a tracker with no live task.
func NewTracker(registry *registry.Registry) *Tracker {
	return &Tracker{
		registry: registry,
		task:     Task{State: StateNone},
	}
}

// OnNewTask replaces the live task. If any peer already reported for
// this registration burst the new task is evaluated at once.
func (t *Tracker) OnNewTask(id, sessionKey string) (Task, Decision) {
	t.mu.Lock()
	t.task = Task{ID: id, SessionKey: sessionKey, State: StateAwaitingReport}
	current := t.task
	t.mu.Unlock()

	if !t.registry.AnyInitReported() {
		return current, Decision{}
	}
	decision := t.Evaluate()
	return t.Current(), decision
}

// OnTaskReport records status for address. A report from an address
// that is not registered returns registry.ErrNotRegistered and changes
// nothing.
func (t *Tracker) OnTaskReport(address transport.Address, status peer.InitStatus) (Decision, error) {
	if err := t.registry.MarkInitStatus(address, status); err != nil {
		return Decision{}, err
	}
	return t.Evaluate(), nil
}

// Evaluate decides the live task if it is still waiting. Failure is
// decided on the first failed report without waiting for the rest.
func (t *Tracker) Evaluate() Decision {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.task.State != StateAwaitingReport {
		return Decision{}
	}

	switch {
	case t.registry.AnyInitFailed():
		t.task.State = StateFailed
		return Decision{Report: true, Status: peer.InitFailure, Task: t.task}
	case t.registry.AllInitSucceeded():
		t.task.State = StateReady
		return Decision{Report: true, Status: peer.InitSuccess, Task: t.task}
	default:
		return Decision{}
	}
}

// Restart puts the live task back to waiting so that peers can report
// again after a game restart. Without a live task it does nothing.
func (t *Tracker) Restart() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.task.State != StateNone {
		t.task.State = StateAwaitingReport
	}
}

// Ready reports whether the live task has been decided successful.
func (t *Tracker) Ready() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.task.State == StateReady
}

// Current returns a copy of the live task.
func (t *Tracker) Current() Task {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.task
}
