// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package framing splits messages into bounded data channel frames and
// reassembles them on the receiving side.
//
// A frame on the wire is one header byte followed by payload bytes:
//
//	0x00 <payload>   more frames of this message follow
//	0x01 <payload>   final frame of this message
//
// [Chunk] produces the frames of one message lazily. Every frame but
// the last carries exactly maxChunkPayload bytes, and an empty message
// is a single empty final frame. [Assembler] is the receiving half: it
// accumulates payloads until a final frame arrives, bounded by a
// maximum message size.
//
// The codec relies on the channel delivering frames reliably and in
// order. It has no sequence numbers, so the only interleaving it can
// detect is a continuation frame whose length disagrees with the chunk
// size established by the first frame of the message in flight.
package framing
