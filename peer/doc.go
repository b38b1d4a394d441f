// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package peer defines the vocabulary spoken over the transport between
// the hub, the gateway, and the peer processes.
//
// Every message is an [Envelope]: a [Kind], the sender's transport
// address, and a CBOR payload whose type is fixed by the kind. The hub
// decodes only what it routes on (addresses, frame sequence, status
// codes, game state); result and action contents pass through.
//
// The shared enums that more than one component reasons about live
// here too: [ServiceKind], [InitStatus], [GameState], [GameSignal],
// and [Origin].
package peer
