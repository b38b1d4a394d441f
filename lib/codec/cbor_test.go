// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"strings"
	"testing"
)

type sampleEnvelope struct {
	Kind    string     `cbor:"kind"`
	From    string     `cbor:"from,omitempty"`
	Payload RawMessage `cbor:"payload,omitempty"`
}

type sampleFrame struct {
	FrameSeq uint64 `json:"frame_seq"`
	Image    []byte `json:"image"`
}

func TestMarshalUnmarshalRoundtrip(t *testing.T) {
	payload, err := Marshal(sampleFrame{FrameSeq: 42, Image: []byte{1, 2, 3}})
	if err != nil {
		t.Fatalf("Marshal payload: %v", err)
	}
	original := sampleEnvelope{Kind: "SRC_IMAGE_INFO", From: "gateway", Payload: payload}

	data, err := Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded sampleEnvelope
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded.Kind != original.Kind || decoded.From != original.From {
		t.Errorf("header mismatch: got %+v, want %+v", decoded, original)
	}

	var frame sampleFrame
	if err := Unmarshal(decoded.Payload, &frame); err != nil {
		t.Fatalf("Unmarshal payload: %v", err)
	}
	if frame.FrameSeq != 42 || !bytes.Equal(frame.Image, []byte{1, 2, 3}) {
		t.Errorf("payload mismatch: got %+v", frame)
	}
}

func TestMarshalDeterministic(t *testing.T) {
	value := map[string]any{"zeta": 1, "alpha": 2, "mid": "x"}

	first, err := Marshal(value)
	if err != nil {
		t.Fatalf("first Marshal: %v", err)
	}
	for range 10 {
		again, err := Marshal(value)
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		if !bytes.Equal(first, again) {
			t.Fatalf("deterministic encoding violated: %x != %x", first, again)
		}
	}
}

func TestJSONTagFallback(t *testing.T) {
	data, err := Marshal(sampleFrame{FrameSeq: 7})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	diagnostic, err := Diagnose(data)
	if err != nil {
		t.Fatalf("Diagnose: %v", err)
	}
	if !strings.Contains(diagnostic, `"frame_seq"`) {
		t.Errorf("diagnostic %s does not use the json tag name", diagnostic)
	}
}

func TestDecodeAnyUsesStringKeyedMaps(t *testing.T) {
	data, err := Marshal(map[string]any{"nested": map[string]any{"k": "v"}})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var decoded any
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	outer, ok := decoded.(map[string]any)
	if !ok {
		t.Fatalf("decoded type = %T, want map[string]any", decoded)
	}
	if _, ok := outer["nested"].(map[string]any); !ok {
		t.Errorf("nested type = %T, want map[string]any", outer["nested"])
	}
}

func TestStreamRoundtrip(t *testing.T) {
	var buffer bytes.Buffer
	encoder := NewEncoder(&buffer)
	for i := range 3 {
		if err := encoder.Encode(sampleEnvelope{Kind: "AI_ACTION", From: strings.Repeat("a", i+1)}); err != nil {
			t.Fatalf("Encode %d: %v", i, err)
		}
	}

	decoder := NewDecoder(&buffer)
	for i := range 3 {
		var envelope sampleEnvelope
		if err := decoder.Decode(&envelope); err != nil {
			t.Fatalf("Decode %d: %v", i, err)
		}
		if envelope.From != strings.Repeat("a", i+1) {
			t.Errorf("envelope %d From = %q", i, envelope.From)
		}
	}
}

func TestUnmarshalGarbage(t *testing.T) {
	var envelope sampleEnvelope
	if err := Unmarshal([]byte{0xff, 0x00, 0x13}, &envelope); err == nil {
		t.Fatal("expected error decoding garbage")
	}
}
