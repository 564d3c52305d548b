// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

// Phase is the progress of one connection attempt.
type Phase int

const (
	PhaseCreated Phase = iota
	PhaseOfferSent
	PhaseCandidatesExchanging
	PhaseAwaitingAnswer
	PhaseChannelOpen
	PhaseEstablished
	PhaseFailed
	PhaseClosed
)

var phaseNames = [...]string{
	PhaseCreated:              "created",
	PhaseOfferSent:            "offer-sent",
	PhaseCandidatesExchanging: "candidates-exchanging",
	PhaseAwaitingAnswer:       "awaiting-answer",
	PhaseChannelOpen:          "channel-open",
	PhaseEstablished:          "established",
	PhaseFailed:               "failed",
	PhaseClosed:               "closed",
}

func (p Phase) String() string {
	if p >= 0 && int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return "unknown"
}

// Terminal reports whether no further transition other than Closed can
// follow p.
func (p Phase) Terminal() bool {
	return p == PhaseEstablished || p == PhaseFailed || p == PhaseClosed
}
