// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package session establishes WAMP sessions over peer-to-peer data
// channels.
//
// [Join] and [Accept] drive the two halves of the WAMP opening
// handshake over any [wamp.Transport], typically a [transport.Peer]:
// Join plays the client (HELLO, optional CHALLENGE/AUTHENTICATE,
// WELCOME) and Accept plays the router. Both return a [BaseSession]
// carrying the negotiated identity and the transport it runs on. Any
// handshake error is wrapped in [ErrHandshakeFailure] and is not
// retried.
//
// [Connect] is the client entry point. It joins the signaling realm
// on a router over WebSocket, dials a WebRTC data channel through it
// with [transport.Dial], joins the configured realm over that channel
// and returns a [Client]: a [wamp.Session] running over the peer,
// together with the connection and the signaling session it owns.
package session
