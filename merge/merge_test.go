// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package merge

import (
	"slices"
	"testing"

	"github.com/bureau-foundation/gamehub/peer"
)

func mustLookup(t *testing.T, name string) Merger {
	t.Helper()
	merger, err := Lookup(name)
	if err != nil {
		t.Fatalf("Lookup(%q): %v", name, err)
	}
	return merger
}

func TestLookupUnknown(t *testing.T) {
	if _, err := Lookup("telepathy"); err == nil {
		t.Fatal("Lookup of unknown strategy succeeded")
	}
}

func TestNamesSorted(t *testing.T) {
	names := Names()
	if !slices.IsSorted(names) || len(names) != 3 {
		t.Errorf("Names() = %v", names)
	}
}

func TestPassthrough(t *testing.T) {
	action := peer.ActionPayload{FrameSeq: 3, Actions: []peer.Action{{Type: peer.ActionClick}}}
	got, ok := mustLookup(t, Passthrough).Merge(action, peer.GameOver)
	if !ok || len(got.Actions) != 1 || got.Actions[0].Type != peer.ActionClick {
		t.Errorf("passthrough changed payload: %+v, %v", got, ok)
	}
}

func TestLatestFrameDropsStale(t *testing.T) {
	merger := mustLookup(t, LatestFrame)

	steps := []struct {
		device int
		seq    uint64
		want   bool
	}{
		{0, 10, true},
		{0, 12, true},
		{0, 11, false},
		{0, 12, true}, // a second answer for the same frame is kept
		{1, 5, true},  // devices are independent
	}
	for i, step := range steps {
		_, ok := merger.Merge(peer.ActionPayload{DeviceIndex: step.device, FrameSeq: step.seq}, peer.GameRunning)
		if ok != step.want {
			t.Errorf("step %d (device %d seq %d): kept = %v, want %v", i, step.device, step.seq, ok, step.want)
		}
	}
}

func TestLookupBuildsFreshInstances(t *testing.T) {
	first := mustLookup(t, LatestFrame)
	second := mustLookup(t, LatestFrame)
	first.Merge(peer.ActionPayload{FrameSeq: 100}, peer.GameRunning)
	if _, ok := second.Merge(peer.ActionPayload{FrameSeq: 1}, peer.GameRunning); !ok {
		t.Error("instances share state")
	}
}

func TestResetOnFinish(t *testing.T) {
	merger := mustLookup(t, ResetOnFinish)
	action := peer.ActionPayload{Actions: []peer.Action{
		{Type: peer.ActionClick},
		{Type: peer.ActionReset},
		{Type: peer.ActionSwipe},
	}}

	got, _ := merger.Merge(action, peer.GameRunning)
	if len(got.Actions) != 3 {
		t.Errorf("running: actions = %v, want unchanged", got.Actions)
	}

	for _, state := range []peer.GameState{peer.GameOver, peer.GameWin} {
		got, ok := merger.Merge(action, state)
		if !ok || len(got.Actions) != 1 || got.Actions[0].Type != peer.ActionReset {
			t.Errorf("%s: actions = %v, want only reset", state, got.Actions)
		}
	}
	if len(action.Actions) != 3 {
		t.Error("Merge modified the caller's action slice")
	}
}
