// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package wamp implements the client side of the WAMP basic profile
// used by wamprtc, plus the small router-side handshake needed to
// accept sessions over a peer-to-peer channel.
//
// The package is layered:
//
//   - Messages ([Hello], [Welcome], [Call], [Event], ...) and their
//     list form on the wire.
//   - [Serializer] turns messages into bytes using one of the formats
//     in lib/codec, each with its "wamp.2.<name>" subprotocol.
//   - [Joiner] and [Acceptor] are transport-free handshake state
//     machines: feed them received bytes, send what they return.
//   - [Transport] is any ordered, message-oriented byte channel. The
//     package provides a WebSocket implementation; the transport
//     package's framed data channel peer is the other.
//   - [Session] is a caller/publisher/subscriber client running over
//     any Transport once a handshake has completed.
//
// Only the features wamprtc needs are implemented: no callee role, no
// progressive results, no pattern-based subscriptions.
package wamp
