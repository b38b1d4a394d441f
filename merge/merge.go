// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package merge holds the strategies that shape action payloads on
// their way from UI and agent peers to the external client.
//
// Strategies are compiled in and chosen by name from configuration.
// [Lookup] builds a fresh instance on each call, so stateful strategies
// never share state between the UI and AI paths.
package merge

import (
	"fmt"
	"slices"
	"sync"

	"github.com/bureau-foundation/gamehub/peer"
)

// Merger rewrites one action payload. state is the game state after
// the payload's own signal was applied. Returning false drops the
// payload.
type Merger interface {
	Merge(action peer.ActionPayload, state peer.GameState) (peer.ActionPayload, bool)
}

// Strategy names.
const (
	Passthrough   = "passthrough"
	LatestFrame   = "latest_frame"
	ResetOnFinish = "reset_on_finish"
)

var builders = map[string]func() Merger{
	Passthrough:   func() Merger { return passthrough{} },
	LatestFrame:   func() Merger { return &latestFrame{} },
	ResetOnFinish: func() Merger { return resetOnFinish{} },
}

// Lookup builds the strategy registered as name.
func Lookup(name string) (Merger, error) {
	build, ok := builders[name]
	if !ok {
		return nil, fmt.Errorf("unknown merge strategy %q (known: %v)", name, Names())
	}
	return build(), nil
}

// Names lists the registered strategies in sorted order.
func Names() []string {
	names := make([]string, 0, len(builders))
	for name := range builders {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

type passthrough struct{}

func (passthrough) Merge(action peer.ActionPayload, _ peer.GameState) (peer.ActionPayload, bool) {
	return action, true
}

// latestFrame drops payloads for frames older than one already
// forwarded on the same device. Peers answer frames at different
// speeds, and a late answer describes a screen that is gone.
type latestFrame struct {
	mu     sync.Mutex
	newest map[int]uint64
}

func (l *latestFrame) Merge(action peer.ActionPayload, _ peer.GameState) (peer.ActionPayload, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.newest == nil {
		l.newest = make(map[int]uint64)
	}
	if newest, seen := l.newest[action.DeviceIndex]; seen && action.FrameSeq < newest {
		return action, false
	}
	l.newest[action.DeviceIndex] = action.FrameSeq
	return action, true
}

// resetOnFinish discards every action but reset once the round is over
// or won. The gateway adds the leading reset itself.
type resetOnFinish struct{}

func (resetOnFinish) Merge(action peer.ActionPayload, state peer.GameState) (peer.ActionPayload, bool) {
	if !state.Finished() {
		return action, true
	}
	kept := make([]peer.Action, 0, 1)
	for _, step := range action.Actions {
		if step.Type == peer.ActionReset {
			kept = append(kept, step)
		}
	}
	action.Actions = kept
	return action, true
}
