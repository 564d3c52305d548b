// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package framing

import "fmt"

// Assembler reassembles messages from frames fed in arrival order. It
// holds at most one message in flight. An Assembler is not safe for
// concurrent use; the peer that owns it is its only writer.
type Assembler struct {
	maxMessageSize int

	buffer []byte

	// chunkSize is the payload length of the first frame of the
	// message in flight, or zero when no message is in flight.
	chunkSize int
}

// NewAssembler returns an Assembler that rejects messages longer than
// maxMessageSize bytes. A non-positive limit selects
// DefaultMaxMessageSize.
func NewAssembler(maxMessageSize int) *Assembler {
	if maxMessageSize <= 0 {
		maxMessageSize = DefaultMaxMessageSize
	}
	return &Assembler{maxMessageSize: maxMessageSize}
}

// Feed consumes one wire frame. When the frame completes a message,
// Feed returns the message and true; the returned slice is owned by
// the caller. Any error discards the message in flight and leaves the
// Assembler empty, but the stream should be treated as corrupted.
func (a *Assembler) Feed(wire []byte) ([]byte, bool, error) {
	frame, err := Decode(wire)
	if err != nil {
		a.Reset()
		return nil, false, err
	}
	payload := frame.Payload

	if a.chunkSize > 0 {
		if len(payload) > a.chunkSize || (!frame.Final && len(payload) != a.chunkSize) {
			chunkSize := a.chunkSize
			a.Reset()
			return nil, false, fmt.Errorf("%w: continuation of %d bytes in a message chunked at %d",
				ErrOutOfOrderFrame, len(payload), chunkSize)
		}
	} else if !frame.Final {
		if len(payload) == 0 {
			return nil, false, fmt.Errorf("%w: empty continuation frame", ErrOutOfOrderFrame)
		}
		a.chunkSize = len(payload)
	}

	if len(a.buffer)+len(payload) > a.maxMessageSize {
		size := len(a.buffer) + len(payload)
		a.Reset()
		return nil, false, fmt.Errorf("%w: %d bytes exceeds limit of %d", ErrFrameTooLarge, size, a.maxMessageSize)
	}
	a.buffer = append(a.buffer, payload...)

	if !frame.Final {
		return nil, false, nil
	}
	message := a.buffer
	if message == nil {
		message = []byte{}
	}
	a.buffer = nil
	a.chunkSize = 0
	return message, true, nil
}

// Pending returns the number of bytes held for the message in flight.
func (a *Assembler) Pending() int { return len(a.buffer) }

// Reset discards the message in flight.
func (a *Assembler) Reset() {
	a.buffer = nil
	a.chunkSize = 0
}
