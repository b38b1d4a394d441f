// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers.
//
// [RequireReceive] and [RequireClosed] wrap the select-with-timeout
// safety valve so tests never block forever on a loop that failed to
// deliver. They are the only place tests use wall-clock timeouts.
//
// [LogRecorder] is an slog.Handler that keeps every record so tests
// can assert on warnings emitted by dispatch loops.
//
// [UniqueID] generates distinguishable identifiers for task IDs and
// session keys.
//
// Helpers call t.Fatalf on failure rather than returning errors.
package testutil
