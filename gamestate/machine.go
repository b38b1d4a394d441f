// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package gamestate is the authoritative, guarded state of the current
// play session.
//
// The machine accepts [peer.GameSignal] values and moves between
// [peer.GameState] values. Its guards exist because signals reach it
// from several peers with no global ordering: a round can only end if
// it is running, and a running round is never knocked back to the UI
// or idle state by a late UI recognizer report.
//
//	current   signal     next        effect
//	any       start      running     notify agents: started
//	running   over       over        notify agents: over
//	running   match_win  win         notify agents: over
//	!running  over/win   unchanged   ErrIllegalTransition
//	running   ui_shown   running     held
//	!running  ui_shown   ui_shown
//	running   none       running     held
//	!running  none       none
package gamestate

import (
	"errors"
	"fmt"
	"sync"

	"github.com/bureau-foundation/gamehub/peer"
)

var (
	// ErrIllegalTransition is returned when a signal that ends a round
	// arrives while no round is running. State is unchanged.
	ErrIllegalTransition = errors.New("gamestate: illegal transition")

	// ErrClientNotAuthoritative is returned when an external client
	// tries to start or end a round in a run mode where the UI
	// recognizer owns that decision.
	ErrClientNotAuthoritative = errors.New("gamestate: client may not change game state in this run mode")

	// ErrUnknownSignal is returned for a signal outside the table.
	ErrUnknownSignal = errors.New("gamestate: unknown signal")
)

// Notice is a side effect the caller must deliver to agent peers.
type Notice int

const (
	NoticeNone Notice = iota
	NoticeStarted
	NoticeOver
)

// Transition describes the result of one Apply.
type Transition struct {
	From   peer.GameState
	To     peer.GameState
	Signal peer.GameSignal

	// Held is true when a running round ignored a ui_shown or none
	// signal.
	Held bool

	Notice Notice
}

// Changed reports whether the state moved.
func (t Transition) Changed() bool { return t.From != t.To }

// Config controls run-mode authority.
type Config struct {
	// ClientAuthoritative permits client-originated start, over, and
	// match_win signals. False in UI-driven run modes.
	ClientAuthoritative bool
}

// Machine is safe for concurrent use.
type Machine struct {
	config Config

	mu    sync.Mutex
	state peer.GameState
}

// New returns a machine in the none state.
func New(config Config) *Machine {
	return &Machine{config: config, state: peer.GameNone}
}

// State returns the current state.
func (m *Machine) State() peer.GameState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Reset returns the machine to none. Used on restart.
func (m *Machine) Reset() peer.GameState {
	m.mu.Lock()
	defer m.mu.Unlock()
	previous := m.state
	m.state = peer.GameNone
	return previous
}

// Apply runs signal through the transition table. On error the
// returned Transition still reports the current state in From and To.
func (m *Machine) Apply(signal peer.GameSignal, origin peer.Origin) (Transition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	transition := Transition{From: m.state, To: m.state, Signal: signal}

	if origin == peer.OriginClient && !m.config.ClientAuthoritative {
		switch signal {
		case peer.SignalStart, peer.SignalOver, peer.SignalMatchWin:
			return transition, fmt.Errorf("%w: %s", ErrClientNotAuthoritative, signal)
		}
	}

	started := m.state == peer.GameRunning

	switch signal {
	case peer.SignalStart:
		transition.To = peer.GameRunning
		transition.Notice = NoticeStarted

	case peer.SignalOver, peer.SignalMatchWin:
		if !started {
			return transition, fmt.Errorf("%w: %s while %s", ErrIllegalTransition, signal, m.state)
		}
		transition.To = peer.GameOver
		if signal == peer.SignalMatchWin {
			transition.To = peer.GameWin
		}
		transition.Notice = NoticeOver

	case peer.SignalUIShown, peer.SignalNone:
		if started {
			transition.Held = true
			break
		}
		transition.To = peer.GameUIShown
		if signal == peer.SignalNone {
			transition.To = peer.GameNone
		}

	default:
		return transition, fmt.Errorf("%w: %q", ErrUnknownSignal, signal)
	}

	m.state = transition.To
	return transition, nil
}
