// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package gateway is the hub's face toward the external test client.
//
// A [Gateway] owns the client session (session key, task id, latest
// frame, mirrored task and game state) and sits on its own transport
// address next to the hub. Client messages arrive through a channel
// (the framed binary TCP server in this package, or the HTTP channel in
// gateway/httpchannel), are checked against the session key, and are
// translated into envelopes for the hub. Envelopes from the hub are
// translated back into client messages and pushed to whichever client
// is attached.
//
// The gateway never decides game state. It only mirrors what the hub
// reports, so a client message can never change state on its own: a
// wrong key is dropped before anything is touched.
package gateway
