// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package signaling

// SDPType distinguishes the two halves of a session description
// exchange.
type SDPType string

const (
	SDPTypeOffer  SDPType = "offer"
	SDPTypeAnswer SDPType = "answer"
)

// Description is a session description blob. The SDP is opaque here.
type Description struct {
	Type SDPType
	SDP  string
}

// Candidate is one connectivity candidate produced by an ICE agent.
type Candidate struct {
	// SDPMid identifies the media section; nil when the engine did not
	// supply one.
	SDPMid        *string
	SDPMLineIndex int
	Candidate     string
}

// Envelope is the payload of the offer call and of its response.
// RequestID travels as a separate call argument, not in the JSON.
type Envelope struct {
	RequestID   string
	Description Description
	Candidates  []Candidate
}
