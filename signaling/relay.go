// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package signaling

import "github.com/bureau-foundation/wamprtc/lib/gate"

// Relay holds the local candidates of one connection attempt. Until
// streaming is enabled, candidates are cached for the offer envelope;
// afterwards they accumulate for periodic trickle publishes. Every
// candidate passed to OnLocalCandidate comes out of exactly one drain.
//
// The expected sequence is OnLocalCandidate (any number of times, from
// any goroutine), one DrainInitialBatch, one EnableStreaming, then
// DrainPendingBatch periodically. A candidate that arrives between
// DrainInitialBatch and EnableStreaming is returned by the next
// DrainPendingBatch.
type Relay struct {
	candidates gate.Gate[Candidate]
}

// NewRelay returns an empty relay in caching mode.
func NewRelay() *Relay {
	return &Relay{}
}

// OnLocalCandidate records a candidate reported by the local engine.
func (r *Relay) OnLocalCandidate(candidate Candidate) {
	r.candidates.Add(candidate)
}

// DrainInitialBatch returns and clears the cached candidates.
func (r *Relay) DrainInitialBatch() []Candidate {
	return r.candidates.Drain()
}

// EnableStreaming routes later candidates to the pending batch.
func (r *Relay) EnableStreaming() {
	r.candidates.Open()
}

// DrainPendingBatch returns and clears everything not yet drained.
func (r *Relay) DrainPendingBatch() []Candidate {
	return r.candidates.Flush()
}

// Streaming reports whether EnableStreaming has been called.
func (r *Relay) Streaming() bool {
	return r.candidates.IsOpen()
}
