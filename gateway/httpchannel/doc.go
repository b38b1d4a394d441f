// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package httpchannel serves the gateway's client protocol as JSON
// over HTTP.
//
// Inbound messages are POST routes under /v1, one per message type,
// with the same field names as the binary channel's CBOR bodies.
// Images travel base64-encoded in JSON. Every route answers with the
// reply the binary channel would send, or 202 with a bare code for
// CLIENT_DATA, which has no reply there.
//
// Outbound messages (UI_ACTION, REPORT, SERVICE_STATE, ...) are pushed
// over a websocket at GET /v1/stream as {"type": ..., "body": ...}
// text frames. Like the binary channel, one stream is active at a
// time; a new one closes the old.
package httpchannel
