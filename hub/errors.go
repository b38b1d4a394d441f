// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package hub

import "errors"

var (
	// ErrUnauthorized is returned when an envelope's sender may not
	// send that kind: an unregistered peer, a peer registered under a
	// different role, or a peer sending a kind only the gateway sends.
	ErrUnauthorized = errors.New("hub: sender not authorized")

	// ErrPrematureAction is returned for UI and AI actions that arrive
	// before the live task is ready.
	ErrPrematureAction = errors.New("hub: action before task ready")

	// ErrUnhandledKind is returned for envelope kinds with no handler.
	ErrUnhandledKind = errors.New("hub: unhandled envelope kind")

	// ErrHandlerPanic wraps a recovered handler panic.
	ErrHandlerPanic = errors.New("hub: handler panicked")
)
