// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the hub's configuration.
//
// Configuration comes from exactly one file, named by the --config flag
// or the GAMEHUB_CONFIG environment variable. There is no discovery and
// no environment override of individual values; the only expansion is
// ${VAR} and ${VAR:-default} inside path fields.
//
// Files ending in .json or .jsonc are read as JSONC (comments and
// trailing commas allowed). Anything else is YAML. Both go through the
// same yaml struct tags, so a key is spelled the same in either format.
//
// After loading, [Config.Validate] checks every field with
// go-playground/validator struct tags and reports each violation by its
// file key (e.g. "gateway.channel").
package config
