// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package framing

import (
	"errors"
	"fmt"
	"iter"
)

// DefaultMaxChunkPayload leaves room for the header byte inside a
// 16 KiB data channel message, the largest size every WebRTC stack
// accepts without fragmentation support.
const DefaultMaxChunkPayload = 16*1024 - 1

// DefaultMaxMessageSize bounds reassembly when no limit is configured.
const DefaultMaxMessageSize = 1 << 20

const (
	headerMore  byte = 0x00
	headerFinal byte = 0x01
)

var (
	// ErrFrameTooLarge reports a message whose reassembled size would
	// exceed the assembler's limit. The partial message is discarded.
	ErrFrameTooLarge = errors.New("framing: message exceeds maximum size")

	// ErrOutOfOrderFrame reports a framing protocol violation: a frame
	// without a valid header, or a continuation frame that cannot
	// belong to the message in flight.
	ErrOutOfOrderFrame = errors.New("framing: frame out of order")
)

// Frame is one piece of a message.
type Frame struct {
	Final   bool
	Payload []byte
}

// Encode returns the wire form of the frame.
func (f Frame) Encode() []byte {
	wire := make([]byte, 1+len(f.Payload))
	if f.Final {
		wire[0] = headerFinal
	}
	copy(wire[1:], f.Payload)
	return wire
}

// Decode parses the wire form of a frame. The payload aliases wire.
func Decode(wire []byte) (Frame, error) {
	if len(wire) == 0 {
		return Frame{}, fmt.Errorf("%w: empty frame", ErrOutOfOrderFrame)
	}
	switch wire[0] {
	case headerMore:
		return Frame{Payload: wire[1:]}, nil
	case headerFinal:
		return Frame{Final: true, Payload: wire[1:]}, nil
	default:
		return Frame{}, fmt.Errorf("%w: invalid header byte 0x%02x", ErrOutOfOrderFrame, wire[0])
	}
}

// Chunk yields the frames of message in order. Each payload aliases
// message, so the caller must not modify message while iterating. A
// non-positive maxChunkPayload selects DefaultMaxChunkPayload.
//
// The sequence can be ranged over more than once; each pass starts
// from the first frame.
func Chunk(message []byte, maxChunkPayload int) iter.Seq[Frame] {
	if maxChunkPayload <= 0 {
		maxChunkPayload = DefaultMaxChunkPayload
	}
	return func(yield func(Frame) bool) {
		remaining := message
		for len(remaining) > maxChunkPayload {
			if !yield(Frame{Payload: remaining[:maxChunkPayload]}) {
				return
			}
			remaining = remaining[maxChunkPayload:]
		}
		yield(Frame{Final: true, Payload: remaining})
	}
}

// FrameCount returns how many frames Chunk yields for a message of
// length n.
func FrameCount(n, maxChunkPayload int) int {
	if maxChunkPayload <= 0 {
		maxChunkPayload = DefaultMaxChunkPayload
	}
	if n == 0 {
		return 1
	}
	return (n + maxChunkPayload - 1) / maxChunkPayload
}
