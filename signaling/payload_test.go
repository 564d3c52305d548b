// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package signaling

import (
	"errors"
	"reflect"
	"testing"
)

func stringPointer(s string) *string { return &s }

func TestEncodeEnvelopeShape(t *testing.T) {
	payload, err := EncodeEnvelope(Envelope{
		Description: Description{Type: SDPTypeOffer, SDP: "v=0"},
		Candidates: []Candidate{
			{SDPMid: stringPointer("0"), SDPMLineIndex: 0, Candidate: "candidate:1 1 udp 1 10.0.0.1 4000 typ host"},
		},
	})
	if err != nil {
		t.Fatalf("EncodeEnvelope: %v", err)
	}
	want := `{"description":{"type":"offer","sdp":"v=0"},"candidates":[{"sdpMid":"0","sdpMLineIndex":0,"candidate":"candidate:1 1 udp 1 10.0.0.1 4000 typ host"}]}`
	if payload != want {
		t.Fatalf("payload =\n%s\nwant\n%s", payload, want)
	}
}

func TestEncodeEnvelopeEmptyCandidates(t *testing.T) {
	payload, err := EncodeEnvelope(Envelope{Description: Description{Type: SDPTypeOffer, SDP: "v=0"}})
	if err != nil {
		t.Fatalf("EncodeEnvelope: %v", err)
	}
	if want := `{"description":{"type":"offer","sdp":"v=0"},"candidates":[]}`; payload != want {
		t.Fatalf("payload = %s, want %s", payload, want)
	}
}

func TestDecodeEnvelopeWithoutCandidates(t *testing.T) {
	for _, payload := range []string{
		`{"description":{"type":"answer","sdp":"v=0"}}`,
		`{"description":{"type":"answer","sdp":"v=0"},"candidates":null}`,
		`{"description":{"type":"answer","sdp":"v=0"},"candidates":[]}`,
	} {
		envelope, err := DecodeEnvelope(payload, SDPTypeAnswer)
		if err != nil {
			t.Fatalf("DecodeEnvelope(%s): %v", payload, err)
		}
		if len(envelope.Candidates) != 0 {
			t.Fatalf("DecodeEnvelope(%s) candidates = %v, want none", payload, envelope.Candidates)
		}
		if envelope.Description != (Description{Type: SDPTypeAnswer, SDP: "v=0"}) {
			t.Fatalf("description = %+v", envelope.Description)
		}
	}
}

func TestDecodeEnvelopeCandidates(t *testing.T) {
	envelope, err := DecodeEnvelope(`{
		"description": {"type": "answer", "sdp": "v=0"},
		"candidates": [
			{"sdpMid": "0", "sdpMLineIndex": 1, "candidate": "candidate:a"},
			{"candidate": "candidate:b"},
			{"sdpMid": null, "sdpMLineIndex": 0, "candidate": "candidate:c"}
		]
	}`, SDPTypeAnswer)
	if err != nil {
		t.Fatalf("DecodeEnvelope: %v", err)
	}
	want := []Candidate{
		{SDPMid: stringPointer("0"), SDPMLineIndex: 1, Candidate: "candidate:a"},
		{Candidate: "candidate:b"},
		{Candidate: "candidate:c"},
	}
	if !reflect.DeepEqual(envelope.Candidates, want) {
		t.Fatalf("candidates = %+v, want %+v", envelope.Candidates, want)
	}
}

func TestDecodeEnvelopeMalformedFields(t *testing.T) {
	tests := []struct {
		payload string
		field   string
	}{
		{`not json`, "payload"},
		{`[1, 2]`, "payload"},
		{`{"candidates": []}`, "description"},
		{`{"description": "v=0"}`, "description"},
		{`{"description": {"sdp": "v=0"}}`, "description.type"},
		{`{"description": {"type": "offer", "sdp": "v=0"}}`, "description.type"},
		{`{"description": {"type": "answer"}}`, "description.sdp"},
		{`{"description": {"type": "answer", "sdp": 5}}`, "description.sdp"},
		{`{"description": {"type": "answer", "sdp": "v=0"}, "candidates": {}}`, "candidates"},
		{`{"description": {"type": "answer", "sdp": "v=0"}, "candidates": ["x"]}`, "candidates[0]"},
		{`{"description": {"type": "answer", "sdp": "v=0"}, "candidates": [{"candidate": "a"}, {}]}`, "candidates[1].candidate"},
		{`{"description": {"type": "answer", "sdp": "v=0"}, "candidates": [{"candidate": "a", "sdpMid": 3}]}`, "candidates[0].sdpMid"},
		{`{"description": {"type": "answer", "sdp": "v=0"}, "candidates": [{"candidate": "a", "sdpMLineIndex": "0"}]}`, "candidates[0].sdpMLineIndex"},
		{`{"description": {"type": "answer", "sdp": "v=0"}, "candidates": [{"candidate": "a", "sdpMLineIndex": 0.5}]}`, "candidates[0].sdpMLineIndex"},
	}
	for _, test := range tests {
		_, err := DecodeEnvelope(test.payload, SDPTypeAnswer)
		if !errors.Is(err, ErrMalformedPayload) {
			t.Errorf("DecodeEnvelope(%s) error = %v, want ErrMalformedPayload", test.payload, err)
			continue
		}
		if field := MalformedField(err); field != test.field {
			t.Errorf("DecodeEnvelope(%s) field = %q, want %q", test.payload, field, test.field)
		}
	}
}

func TestCandidatesTrickleRoundTrip(t *testing.T) {
	candidates := []Candidate{
		{SDPMid: stringPointer("data"), SDPMLineIndex: 0, Candidate: "candidate:1 1 udp 1 10.0.0.1 4000 typ host"},
		{Candidate: "candidate:2 1 udp 1 10.0.0.2 4001 typ host"},
	}
	payload, err := EncodeCandidates(candidates)
	if err != nil {
		t.Fatalf("EncodeCandidates: %v", err)
	}
	decoded, err := DecodeCandidates(payload)
	if err != nil {
		t.Fatalf("DecodeCandidates: %v", err)
	}
	if !reflect.DeepEqual(decoded, candidates) {
		t.Fatalf("decoded %+v, want %+v", decoded, candidates)
	}

	if _, err := DecodeCandidates(`"candidate:1"`); MalformedField(err) != "candidates" {
		t.Fatalf("string payload error = %v", err)
	}
}

func TestDecodeCandidatesSingleObject(t *testing.T) {
	decoded, err := DecodeCandidates(`{"candidate": "c", "sdpMid": "0", "sdpMLineIndex": 0}`)
	if err != nil {
		t.Fatalf("DecodeCandidates: %v", err)
	}
	want := []Candidate{{Candidate: "c", SDPMid: stringPointer("0"), SDPMLineIndex: 0}}
	if !reflect.DeepEqual(decoded, want) {
		t.Fatalf("decoded %+v, want %+v", decoded, want)
	}

	if _, err := DecodeCandidates(`{"sdpMid": "0"}`); MalformedField(err) != "candidates.candidate" {
		t.Fatalf("object without candidate error = %v", err)
	}
}

func TestDecodeRejectsTrailingData(t *testing.T) {
	payload := `{"description": {"type": "answer", "sdp": "v=0"}, "candidates": []} trailing-garbage`
	if _, err := DecodeEnvelope(payload, SDPTypeAnswer); MalformedField(err) != "payload" {
		t.Fatalf("DecodeEnvelope error = %v, want malformed payload", err)
	}
	if _, err := DecodeCandidates(`[{"candidate": "a"}] [`); MalformedField(err) != "candidates" {
		t.Fatalf("DecodeCandidates error = %v, want malformed candidates", err)
	}
}
