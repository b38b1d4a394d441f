// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process holds entrypoint helpers shared by the gamehub
// binaries: the stderr logger every binary starts with, and fatal
// error reporting for errors returned before or after the logger is
// usable.
package process
