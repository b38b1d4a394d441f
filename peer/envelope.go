// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package peer

import (
	"errors"
	"fmt"

	"github.com/bureau-foundation/gamehub/lib/codec"
	"github.com/bureau-foundation/gamehub/transport"
)

// ErrDecode wraps every failure to decode an envelope or its payload.
var ErrDecode = errors.New("peer: decode failed")

// Envelope is the unit exchanged over the transport. From is set by
// the sender because the transport does not report it.
type Envelope struct {
	Kind    Kind              `cbor:"kind"`
	From    transport.Address `cbor:"from"`
	Payload codec.RawMessage  `cbor:"payload,omitempty"`
}

// NewEnvelope encodes payload and wraps it. A nil payload produces an
// envelope with no payload (PAUSE_AGENT, RESTORE_AGENT, RESTART).
func NewEnvelope(kind Kind, from transport.Address, payload any) (Envelope, error) {
	envelope := Envelope{Kind: kind, From: from}
	if payload == nil {
		return envelope, nil
	}
	data, err := codec.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("encoding %s payload: %w", kind, err)
	}
	envelope.Payload = data
	return envelope, nil
}

// DecodePayload decodes the payload into target. An empty payload is
// a decode error: every kind that reaches this call has one.
func (e Envelope) DecodePayload(target any) error {
	if len(e.Payload) == 0 {
		return fmt.Errorf("%w: %s envelope has no payload", ErrDecode, e.Kind)
	}
	if err := codec.Unmarshal(e.Payload, target); err != nil {
		return fmt.Errorf("%w: %s payload: %v", ErrDecode, e.Kind, err)
	}
	return nil
}

// WithFrom returns a copy of e re-addressed as coming from address.
// Relays use it so the receiver sees the relaying component, not
// the original sender.
func (e Envelope) WithFrom(address transport.Address) Envelope {
	e.From = address
	return e
}

// Codec turns envelopes into transport bytes and back.
type Codec interface {
	Encode(Envelope) ([]byte, error)
	Decode([]byte) (Envelope, error)
}

// CBORCodec is the production Codec.
type CBORCodec struct{}

var _ Codec = CBORCodec{}

func (CBORCodec) Encode(envelope Envelope) ([]byte, error) {
	data, err := codec.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("encoding %s envelope: %w", envelope.Kind, err)
	}
	return data, nil
}

func (CBORCodec) Decode(data []byte) (Envelope, error) {
	var envelope Envelope
	if err := codec.Unmarshal(data, &envelope); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if envelope.Kind == "" {
		return Envelope{}, fmt.Errorf("%w: envelope has no kind", ErrDecode)
	}
	return envelope, nil
}
