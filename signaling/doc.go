// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package signaling carries the offer/answer exchange and candidate
// trickle that set up a WebRTC data channel, over a pub/sub plus RPC
// message bus.
//
// One connection attempt uses three bus operations, all correlated by a
// request id chosen by the offerer:
//
//	call(offerProcedure, [requestID, envelopeJSON]) -> [answerEnvelopeJSON]
//	publish(answererCandidateTopic, [requestID, candidatesJSON])   offerer trickle
//	publish(offererCandidateTopic, [requestID, candidatesJSON])    answerer trickle
//
// An envelope is a JSON object {"description": {...}, "candidates": [...]};
// a trickle payload is a JSON array of candidates. Decoding failures are
// reported as [MalformedPayloadError] naming the offending field.
//
// [Relay] holds locally discovered candidates until the offer has been
// sent and then hands them out in batches for trickling, built on the
// two-phase buffer in lib/gate.
//
// The bus itself is the [Messenger] interface. [WAMPMessenger] adapts a
// wamp.Session; [MemoryBus] is an in-process implementation for tests
// and for embedding both ends in one process.
package signaling
