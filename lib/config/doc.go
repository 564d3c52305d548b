// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads client configuration for wamprtc.
//
// Configuration comes from a single file named either by the
// WAMPRTC_CONFIG environment variable (via [Load]) or a --config flag
// (via [LoadFile]). There is no file discovery. Files ending in .json
// or .jsonc are JSON with comments and trailing commas; everything
// else is YAML. Both forms use the same keys.
//
// Values in the file are applied over [Default], which sets every
// tunable: data channel timings, framing limits, serializer and the
// conventional signaling procedure and topic names. The router URL and
// realm have no default.
//
// The router URL and the credential fields may reference environment
// variables as ${VAR} or ${VAR:-default}; nothing else is read from
// the environment.
//
// This package depends on no other wamprtc packages.
package config
