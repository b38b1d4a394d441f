// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package transport is the addressable message bus between the hub,
// the gateway, and the peer processes (recognizer, UI recognizer,
// agents).
//
// Each process binds one local [Address]. [Transport.Send] delivers an
// opaque byte slice to another address and [Transport.PollRecv] drains
// whatever has arrived for a bound address without blocking. Delivery
// is at-most-once and ordered per (sender, receiver) pair; nothing is
// retried.
//
// Two implementations exist:
//
//   - [MemoryBus] keeps per-address queues in process. The single-binary
//     deployment and every test use it.
//   - [SocketBus] gives each address a Unix stream socket under one
//     directory. Messages are length-prefixed frames; one cached
//     connection per destination preserves send order.
//
// [Receive] is the poll loop shared by every consumer: it drains the
// address, hands each message to a callback, and backs off on the
// injected clock while the address is idle.
package transport
