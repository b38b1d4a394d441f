// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the hub's CBOR encoding configuration.
//
// Two serialization formats are in use and the boundary between them
// is fixed:
//
//   - CBOR for everything that crosses the peer transport (hub, gateway,
//     recognizer, UI recognizer, agents) and for payloads on the binary
//     client channel.
//   - JSON for the HTTP client channel and for configuration files.
//
// Every package encodes through this one configuration so that the same
// envelope always produces the same bytes. The encoder uses Core
// Deterministic Encoding (RFC 8949 §4.2).
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// Types that are only ever CBOR carry `cbor` struct tags. Types that
// are also exposed over the HTTP channel carry `json` tags only;
// fxamacker/cbor falls back to them when no `cbor` tag is present.
package codec
