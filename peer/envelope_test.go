// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package peer

import (
	"errors"
	"testing"

	"github.com/bureau-foundation/gamehub/transport"
)

func TestEnvelopeCarriesTypedPayload(t *testing.T) {
	envelope, err := NewEnvelope(KindAIAction, "agent-1", ActionPayload{
		FrameSeq: 17,
		Actions: []Action{
			{Type: ActionClick, Points: []Point{{X: 10, Y: 20}}},
			{Type: ActionSwipe, Points: []Point{{X: 0, Y: 0}, {X: 5, Y: 5}}, DurationMillis: 120},
		},
	})
	if err != nil {
		t.Fatalf("NewEnvelope: %v", err)
	}

	data, err := CBORCodec{}.Encode(envelope)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, err := CBORCodec{}.Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded.Kind != KindAIAction || decoded.From != "agent-1" {
		t.Fatalf("header = (%s, %s), want (AI_ACTION, agent-1)", decoded.Kind, decoded.From)
	}

	var action ActionPayload
	if err := decoded.DecodePayload(&action); err != nil {
		t.Fatalf("DecodePayload: %v", err)
	}
	if action.FrameSeq != 17 || len(action.Actions) != 2 || action.Actions[1].Points[1].X != 5 {
		t.Errorf("payload = %+v", action)
	}
}

func TestDecodeRejectsGarbageAndMissingKind(t *testing.T) {
	if _, err := (CBORCodec{}).Decode([]byte("not cbor")); !errors.Is(err, ErrDecode) {
		t.Errorf("garbage: err = %v, want ErrDecode", err)
	}

	data, err := CBORCodec{}.Encode(Envelope{From: "ui"})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if _, err := (CBORCodec{}).Decode(data); !errors.Is(err, ErrDecode) {
		t.Errorf("missing kind: err = %v, want ErrDecode", err)
	}
}

func TestDecodePayloadEmpty(t *testing.T) {
	envelope, _ := NewEnvelope(KindRestart, "gateway", nil)
	var payload RestartResultPayload
	if err := envelope.DecodePayload(&payload); !errors.Is(err, ErrDecode) {
		t.Errorf("err = %v, want ErrDecode", err)
	}
}

func TestSenderStampsLocalAddress(t *testing.T) {
	bus := transport.NewMemoryBus(0)
	bus.Bind("hub")
	sender := &Sender{Bus: bus, Codec: CBORCodec{}, Local: "gateway"}

	original, _ := NewEnvelope(KindTestID, "someone-else", TestIDPayload{TestID: "t1"})
	if err := sender.Forward("hub", original); err != nil {
		t.Fatalf("Forward: %v", err)
	}

	messages, _ := bus.PollRecv("hub")
	if len(messages) != 1 {
		t.Fatalf("got %d messages, want 1", len(messages))
	}
	decoded, err := CBORCodec{}.Decode(messages[0])
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded.From != "gateway" {
		t.Errorf("From = %q, want gateway", decoded.From)
	}
}

func TestSenderUnknownDestination(t *testing.T) {
	sender := &Sender{Bus: transport.NewMemoryBus(0), Codec: CBORCodec{}, Local: "hub"}
	err := sender.Send("nobody", KindPauseAgent, nil)
	if !errors.Is(err, transport.ErrUnknownAddress) {
		t.Errorf("err = %v, want ErrUnknownAddress", err)
	}
}

func TestParseEnums(t *testing.T) {
	if _, err := ParseServiceKind("agent"); err != nil {
		t.Errorf("ParseServiceKind(agent): %v", err)
	}
	if _, err := ParseServiceKind("gpu"); err == nil {
		t.Error("ParseServiceKind(gpu) should fail")
	}
	if _, err := ParseGameSignal("match_win"); err != nil {
		t.Errorf("ParseGameSignal(match_win): %v", err)
	}
	if _, err := ParseGameSignal("paused"); err == nil {
		t.Error("ParseGameSignal(paused) should fail")
	}
	if !KindGameOver.Known() || Kind("BOGUS").Known() {
		t.Error("Known() misclassified a kind")
	}
}
