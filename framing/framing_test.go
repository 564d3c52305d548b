// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package framing

import (
	"bytes"
	"errors"
	"testing"
)

// pattern returns n bytes that differ across chunk boundaries, so a
// misplaced chunk changes the reassembled content.
func pattern(n int) []byte {
	message := make([]byte, n)
	for i := range message {
		message[i] = byte(i*7 + i/251)
	}
	return message
}

func collect(message []byte, maxChunkPayload int) []Frame {
	var frames []Frame
	for frame := range Chunk(message, maxChunkPayload) {
		frames = append(frames, frame)
	}
	return frames
}

func TestChunkFortyThousandBytes(t *testing.T) {
	message := pattern(40000)
	frames := collect(message, DefaultMaxChunkPayload)

	wantLengths := []int{16383, 16383, 7234}
	wantFinal := []bool{false, false, true}
	if len(frames) != len(wantLengths) {
		t.Fatalf("got %d frames, want %d", len(frames), len(wantLengths))
	}
	for i, frame := range frames {
		if len(frame.Payload) != wantLengths[i] {
			t.Errorf("frame %d payload = %d bytes, want %d", i, len(frame.Payload), wantLengths[i])
		}
		if frame.Final != wantFinal[i] {
			t.Errorf("frame %d final = %v, want %v", i, frame.Final, wantFinal[i])
		}
		wire := frame.Encode()
		wantHeader := byte(0)
		if wantFinal[i] {
			wantHeader = 1
		}
		if wire[0] != wantHeader {
			t.Errorf("frame %d header = 0x%02x, want 0x%02x", i, wire[0], wantHeader)
		}
	}

	assembler := NewAssembler(0)
	for i, frame := range frames {
		reassembled, complete, err := assembler.Feed(frame.Encode())
		if err != nil {
			t.Fatalf("Feed frame %d: %v", i, err)
		}
		if complete != (i == len(frames)-1) {
			t.Fatalf("Feed frame %d complete = %v", i, complete)
		}
		if complete && !bytes.Equal(reassembled, message) {
			t.Fatal("reassembled message differs from original")
		}
	}
}

func TestChunkEmptyMessage(t *testing.T) {
	frames := collect(nil, DefaultMaxChunkPayload)
	if len(frames) != 1 {
		t.Fatalf("got %d frames, want 1", len(frames))
	}
	if !frames[0].Final || len(frames[0].Payload) != 0 {
		t.Fatalf("frame = %+v, want final and empty", frames[0])
	}
	wire := frames[0].Encode()
	if !bytes.Equal(wire, []byte{0x01}) {
		t.Fatalf("wire = %x, want 01", wire)
	}

	message, complete, err := NewAssembler(0).Feed(wire)
	if err != nil || !complete {
		t.Fatalf("Feed = (%v, %v)", complete, err)
	}
	if message == nil || len(message) != 0 {
		t.Fatalf("message = %#v, want empty non-nil", message)
	}
}

func TestChunkRoundTripAcrossBoundaries(t *testing.T) {
	const chunk = 7
	assembler := NewAssembler(10 * chunk)
	for n := 0; n <= 10*chunk; n++ {
		message := pattern(n)
		frames := collect(message, chunk)
		if want := FrameCount(n, chunk); len(frames) != want {
			t.Fatalf("n=%d: got %d frames, want %d", n, len(frames), want)
		}
		for i, frame := range frames {
			if frame.Final != (i == len(frames)-1) {
				t.Fatalf("n=%d: frame %d final = %v", n, i, frame.Final)
			}
			reassembled, complete, err := assembler.Feed(frame.Encode())
			if err != nil {
				t.Fatalf("n=%d: Feed frame %d: %v", n, i, err)
			}
			if complete && !bytes.Equal(reassembled, message) {
				t.Fatalf("n=%d: reassembled %d bytes differ from original", n, len(reassembled))
			}
		}
		if assembler.Pending() != 0 {
			t.Fatalf("n=%d: %d bytes left pending", n, assembler.Pending())
		}
	}
}

func TestChunkStopsEarly(t *testing.T) {
	count := 0
	for range Chunk(pattern(100), 10) {
		count++
		if count == 3 {
			break
		}
	}
	if count != 3 {
		t.Fatalf("iterated %d frames, want 3", count)
	}
}

func TestAssemblerRejectsOversizedMessage(t *testing.T) {
	assembler := NewAssembler(20)
	frames := collect(pattern(25), 10)

	if _, _, err := assembler.Feed(frames[0].Encode()); err != nil {
		t.Fatalf("first frame: %v", err)
	}
	if _, _, err := assembler.Feed(frames[1].Encode()); err != nil {
		t.Fatalf("second frame: %v", err)
	}
	_, _, err := assembler.Feed(frames[2].Encode())
	if !errors.Is(err, ErrFrameTooLarge) {
		t.Fatalf("third frame error = %v, want ErrFrameTooLarge", err)
	}
	if assembler.Pending() != 0 {
		t.Fatalf("Pending() = %d after overflow, want 0", assembler.Pending())
	}

	// The assembler starts clean after the failure.
	message, complete, err := assembler.Feed(Frame{Final: true, Payload: []byte("ok")}.Encode())
	if err != nil || !complete || string(message) != "ok" {
		t.Fatalf("Feed after reset = (%q, %v, %v)", message, complete, err)
	}
}

func TestAssemblerRejectsSingleOversizedFrame(t *testing.T) {
	_, _, err := NewAssembler(4).Feed(Frame{Final: true, Payload: []byte("hello")}.Encode())
	if !errors.Is(err, ErrFrameTooLarge) {
		t.Fatalf("error = %v, want ErrFrameTooLarge", err)
	}
}

func TestAssemblerRejectsInterleavedFrames(t *testing.T) {
	tests := []struct {
		name   string
		frames []Frame
	}{
		{
			name: "short continuation",
			frames: []Frame{
				{Payload: []byte("0123456789")},
				{Payload: []byte("abc")},
			},
		},
		{
			name: "final longer than chunk",
			frames: []Frame{
				{Payload: []byte("0123")},
				{Final: true, Payload: []byte("0123456789")},
			},
		},
		{
			name: "empty continuation",
			frames: []Frame{
				{Payload: []byte{}},
			},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assembler := NewAssembler(0)
			var err error
			for _, frame := range test.frames {
				if _, _, err = assembler.Feed(frame.Encode()); err != nil {
					break
				}
			}
			if !errors.Is(err, ErrOutOfOrderFrame) {
				t.Fatalf("error = %v, want ErrOutOfOrderFrame", err)
			}
			if assembler.Pending() != 0 {
				t.Fatalf("Pending() = %d, want 0", assembler.Pending())
			}
		})
	}
}

func TestDecodeRejectsBadHeaders(t *testing.T) {
	for _, wire := range [][]byte{{}, {0x02, 'x'}, {0xff}} {
		if _, err := Decode(wire); !errors.Is(err, ErrOutOfOrderFrame) {
			t.Errorf("Decode(%x) error = %v, want ErrOutOfOrderFrame", wire, err)
		}
	}
}
