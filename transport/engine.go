// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"

	"github.com/bureau-foundation/wamprtc/signaling"
)

// ChannelState is the lifecycle of the engine's data channel.
type ChannelState int

const (
	ChannelConnecting ChannelState = iota
	ChannelOpen
	ChannelClosed
)

func (s ChannelState) String() string {
	switch s {
	case ChannelConnecting:
		return "connecting"
	case ChannelOpen:
		return "open"
	case ChannelClosed:
		return "closed"
	}
	return "unknown"
}

// Engine is the native peer connection: it produces and consumes
// session descriptions, discovers candidates and carries one data
// channel. Callbacks may fire on arbitrary goroutines and must be
// registered before CreateOffer or CreateAnswer.
type Engine interface {
	// OnLocalCandidate registers the candidate-discovered callback.
	OnLocalCandidate(func(signaling.Candidate))

	// OnChannelState registers the data channel state callback.
	OnChannelState(func(ChannelState))

	// OnMessage registers the callback for each inbound raw frame.
	// Calls are serialized in receipt order.
	OnMessage(func([]byte))

	// CreateOffer creates the data channel and the local offer, and
	// starts candidate gathering.
	CreateOffer(ctx context.Context) (signaling.Description, error)

	// CreateAnswer applies a remote offer and returns the local answer.
	CreateAnswer(ctx context.Context, offer signaling.Description) (signaling.Description, error)

	SetRemoteDescription(description signaling.Description) error
	AddRemoteCandidate(candidate signaling.Candidate) error

	// Send writes one raw frame to the data channel.
	Send(frame []byte) error

	// Close tears down the channel and the connection. Safe to call
	// more than once.
	Close() error
}
