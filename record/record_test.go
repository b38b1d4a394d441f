// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package record

import (
	"log/slog"
	"testing"

	"github.com/bureau-foundation/gamehub/lib/testutil"
	"github.com/bureau-foundation/gamehub/peer"
)

func TestDigestFrame(t *testing.T) {
	a := DigestFrame([]byte("frame one"))
	b := DigestFrame([]byte("frame one"))
	c := DigestFrame([]byte("frame two"))

	if a != b {
		t.Error("same bytes produced different digests")
	}
	if a == c {
		t.Error("different bytes produced the same digest")
	}
	if len(a.String()) != 64 {
		t.Errorf("String() = %q, want 64 hex chars", a.String())
	}
}

func TestLookup(t *testing.T) {
	_, logger := testutil.NewLogRecorder()

	for kind, wantLog := range map[string]bool{"none": false, "": false, "log": true} {
		recorder, err := Lookup(kind, logger)
		if err != nil {
			t.Fatalf("Lookup(%q): %v", kind, err)
		}
		if _, isLog := recorder.(*LogRecorder); isLog != wantLog {
			t.Errorf("Lookup(%q) = %T", kind, recorder)
		}
	}
	if _, err := Lookup("tape", logger); err == nil {
		t.Error("Lookup of unknown kind succeeded")
	}
}

func TestLogRecorder(t *testing.T) {
	logs, logger := testutil.NewLogRecorder()
	recorder := NewLogRecorder(logger)

	image := []byte{1, 2, 3, 4}
	recorder.RecordFrame(peer.FramePayload{FrameSeq: 7, Width: 2, Height: 2, Image: image})
	recorder.RecordAction(peer.ServiceAgent, peer.ActionPayload{
		FrameSeq: 7,
		Actions:  []peer.Action{{Type: peer.ActionClick}, {Type: peer.ActionKey, Key: "esc"}},
	})
	recorder.RecordTestID(peer.TestIDPayload{TestID: "t-1", GameID: 42, GameVersion: "1.2"})

	records := logs.Records()
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}
	if got, want := records[0].Attrs["digest"], DigestFrame(image).String(); got != want {
		t.Errorf("frame digest = %q, want %q", got, want)
	}
	if records[0].Level != slog.LevelDebug {
		t.Errorf("frame logged at %v", records[0].Level)
	}
	if got := records[1].Attrs["service"]; got != "agent" {
		t.Errorf("action service = %q", got)
	}
	if got := records[2].Attrs["test_id"]; got != "t-1" || records[2].Level != slog.LevelInfo {
		t.Errorf("test id record = %+v", records[2])
	}
}
