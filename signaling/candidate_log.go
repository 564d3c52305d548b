// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package signaling

import (
	"log/slog"
	"strings"

	"github.com/pion/ice/v4"
)

// LogValue summarizes the candidate by type and address instead of
// logging the raw attribute line.
func (c Candidate) LogValue() slog.Value {
	parsed, err := ice.UnmarshalCandidate(strings.TrimPrefix(c.Candidate, "candidate:"))
	if err != nil {
		return slog.StringValue(c.Candidate)
	}
	return slog.GroupValue(
		slog.String("type", parsed.Type().String()),
		slog.String("network", parsed.NetworkType().String()),
		slog.String("address", parsed.Address()),
		slog.Int("port", parsed.Port()),
	)
}

var _ slog.LogValuer = Candidate{}
