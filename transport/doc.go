// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package transport establishes a framed, message-oriented data channel
// between two parties and negotiates it over a signaling bus.
//
// [Dial] is the offering side. It drives one connection attempt through
// the phases Created, OfferSent, CandidatesExchanging, AwaitingAnswer,
// ChannelOpen and Established: it creates the local offer, caches the
// candidates found within a short gathering window, sends one offer
// call carrying the offer and that initial batch, applies the answer
// and the answer's candidates, and waits for the data channel to open.
// Candidates found later trickle to the remote in periodic batches,
// and the remote's trickle is applied as it arrives. Both background
// tasks belong to the attempt and stop when it reaches a terminal
// phase. Any failure moves the attempt to Failed and is returned from
// Dial; nothing is retried.
//
// [Answerer] is the other side: its HandleOffer serves the offer call,
// and each peer whose channel opens is returned by Accept.
//
// The native peer connection sits behind [Engine]. [PionEngine]
// implements it with pion/webrtc, carrying a single ordered data
// channel whose sub-protocol names the WAMP serializer. pion's own
// logging is routed into the configured slog logger.
//
// [Peer] turns the channel into a duplex message peer: outbound
// messages are split into frames by the framing package and inbound
// frames reassembled into a FIFO queue. Peer implements wamp.Transport,
// so a WAMP session runs over it unchanged.
package transport
