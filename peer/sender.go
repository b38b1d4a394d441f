// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package peer

import (
	"fmt"

	"github.com/bureau-foundation/gamehub/transport"
)

// Sender encodes envelopes and sends them from one local address.
type Sender struct {
	Bus   transport.Transport
	Codec Codec
	Local transport.Address
}

// Send builds an envelope of kind from payload and delivers it to to.
func (s *Sender) Send(to transport.Address, kind Kind, payload any) error {
	envelope, err := NewEnvelope(kind, s.Local, payload)
	if err != nil {
		return err
	}
	return s.Forward(to, envelope)
}

// Forward re-sends an existing envelope to to, stamped with the local
// address.
func (s *Sender) Forward(to transport.Address, envelope Envelope) error {
	data, err := s.Codec.Encode(envelope.WithFrom(s.Local))
	if err != nil {
		return err
	}
	if err := s.Bus.Send(to, data); err != nil {
		return fmt.Errorf("sending %s to %s: %w", envelope.Kind, to, err)
	}
	return nil
}
