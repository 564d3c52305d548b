// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import "errors"

var (
	// ErrSignalingTimeout means the offer call got no answer in time.
	ErrSignalingTimeout = errors.New("transport: signaling timed out waiting for an answer")

	// ErrChannelOpenTimeout means the data channel did not open within
	// Options.ChannelOpenTimeout after the answer was applied.
	ErrChannelOpenTimeout = errors.New("transport: data channel did not open in time")

	// ErrPeerClosed is returned by Peer operations after Close, and by
	// Receive once the remote side closed the channel.
	ErrPeerClosed = errors.New("transport: peer closed")
)
