// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock abstracts the few time operations the hub's poll loops
// depend on, so that idle backoff can be driven deterministically in
// tests.
//
// Loops hold a Clock field. Production wiring passes Real(); tests
// pass Fake(epoch), start the loop, call WaitForSleepers to know the
// loop has gone idle, and Advance to release it.
package clock
