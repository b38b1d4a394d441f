// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package hub is the internal message router between the gateway and
// the recognizer, UI recognizer, and agent peers.
//
// A [Router] owns one transport address and runs a single receive
// loop. Each envelope is decoded and dispatched by kind through a
// fixed handler table. Handlers consult and update the service
// registry, the task tracker, and the game state machine, then forward
// envelopes to peers or to the gateway.
//
// Nothing a handler does can end the loop. Errors are classified at
// the dispatch boundary (unauthorized sender, premature action,
// illegal transition, decode failure, send failure) and downgraded to
// a log line and a drop counter; panics are recovered there too.
//
// Origin of a game state change is decided by the sender address: the
// gateway speaks for the external client, everyone else must be a
// registered peer.
package hub
