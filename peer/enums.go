// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package peer

import "fmt"

// ServiceKind is the role a peer registers under.
type ServiceKind string

const (
	ServiceUI         ServiceKind = "ui"
	ServiceAgent      ServiceKind = "agent"
	ServiceRecognizer ServiceKind = "recognizer"
)

// ParseServiceKind validates a service kind read from the wire or
// from a flag.
func ParseServiceKind(value string) (ServiceKind, error) {
	switch kind := ServiceKind(value); kind {
	case ServiceUI, ServiceAgent, ServiceRecognizer:
		return kind, nil
	default:
		return "", fmt.Errorf("unknown service kind %q", value)
	}
}

// InitStatus is a peer's initialization outcome for the current task.
type InitStatus string

const (
	InitUnknown InitStatus = ""
	InitSuccess InitStatus = "success"
	InitFailure InitStatus = "failure"
)

// GameState is the session state owned by the hub's state machine and
// mirrored by the gateway.
type GameState string

const (
	GameNone    GameState = "none"
	GameUIShown GameState = "ui_shown"
	GameRunning GameState = "running"
	GameOver    GameState = "over"
	GameWin     GameState = "win"
)

// Finished reports whether s ends a round (over or win).
func (s GameState) Finished() bool {
	return s == GameOver || s == GameWin
}

// GameSignal is an input to the state machine.
type GameSignal string

const (
	SignalStart    GameSignal = "start"
	SignalOver     GameSignal = "over"
	SignalMatchWin GameSignal = "match_win"
	SignalUIShown  GameSignal = "ui_shown"
	SignalNone     GameSignal = "none"
)

// ParseGameSignal validates a signal read from the wire.
func ParseGameSignal(value string) (GameSignal, error) {
	switch signal := GameSignal(value); signal {
	case SignalStart, SignalOver, SignalMatchWin, SignalUIShown, SignalNone:
		return signal, nil
	default:
		return "", fmt.Errorf("unknown game signal %q", value)
	}
}

// Origin records who asked for a game state change. Client-originated
// signals are subject to run-mode authority; peer signals are not.
type Origin string

const (
	OriginPeer   Origin = "peer"
	OriginClient Origin = "client"
)
