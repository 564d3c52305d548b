// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package signaling

import (
	"fmt"

	"github.com/goccy/go-json"

	"github.com/bureau-foundation/wamprtc/lib/codec"
)

type wireCandidate struct {
	SDPMid        *string `json:"sdpMid"`
	SDPMLineIndex int     `json:"sdpMLineIndex"`
	Candidate     string  `json:"candidate"`
}

type wireDescription struct {
	Type string `json:"type"`
	SDP  string `json:"sdp"`
}

type wireEnvelope struct {
	Description wireDescription `json:"description"`
	Candidates  []wireCandidate `json:"candidates"`
}

func toWire(candidates []Candidate) []wireCandidate {
	wire := make([]wireCandidate, len(candidates))
	for i, candidate := range candidates {
		wire[i] = wireCandidate{
			SDPMid:        candidate.SDPMid,
			SDPMLineIndex: candidate.SDPMLineIndex,
			Candidate:     candidate.Candidate,
		}
	}
	return wire
}

// EncodeEnvelope returns the JSON form of an offer or answer envelope.
// An empty candidate list encodes as [], never null.
func EncodeEnvelope(envelope Envelope) (string, error) {
	data, err := json.Marshal(wireEnvelope{
		Description: wireDescription{Type: string(envelope.Description.Type), SDP: envelope.Description.SDP},
		Candidates:  toWire(envelope.Candidates),
	})
	if err != nil {
		return "", fmt.Errorf("signaling: encoding envelope: %w", err)
	}
	return string(data), nil
}

// EncodeCandidates returns the JSON array published on a trickle topic.
func EncodeCandidates(candidates []Candidate) (string, error) {
	data, err := json.Marshal(toWire(candidates))
	if err != nil {
		return "", fmt.Errorf("signaling: encoding candidates: %w", err)
	}
	return string(data), nil
}

// DecodeEnvelope parses an envelope whose description must be of type
// want. A missing or null "candidates" field means no candidates.
func DecodeEnvelope(payload string, want SDPType) (Envelope, error) {
	var root any
	if err := codec.JSON.Unmarshal([]byte(payload), &root); err != nil {
		return Envelope{}, &MalformedPayloadError{Field: "payload", Err: err}
	}
	object, ok := root.(map[string]any)
	if !ok {
		return Envelope{}, malformed("payload", "expected object, got %s", jsonKind(root))
	}

	descriptionValue, ok := object["description"]
	if !ok || descriptionValue == nil {
		return Envelope{}, malformed("description", "missing")
	}
	description, ok := descriptionValue.(map[string]any)
	if !ok {
		return Envelope{}, malformed("description", "expected object, got %s", jsonKind(descriptionValue))
	}
	sdpType, err := requireString(description, "type", "description.type")
	if err != nil {
		return Envelope{}, err
	}
	if SDPType(sdpType) != want {
		return Envelope{}, malformed("description.type", "got %q, want %q", sdpType, want)
	}
	sdp, err := requireString(description, "sdp", "description.sdp")
	if err != nil {
		return Envelope{}, err
	}

	envelope := Envelope{Description: Description{Type: want, SDP: sdp}}
	if candidatesValue := object["candidates"]; candidatesValue != nil {
		envelope.Candidates, err = decodeCandidateList(candidatesValue, "candidates")
		if err != nil {
			return Envelope{}, err
		}
	}
	return envelope, nil
}

// DecodeCandidates parses a trickle payload: an array of candidates,
// or a bare candidate object, which is a batch of one.
func DecodeCandidates(payload string) ([]Candidate, error) {
	var root any
	if err := codec.JSON.Unmarshal([]byte(payload), &root); err != nil {
		return nil, &MalformedPayloadError{Field: "candidates", Err: err}
	}
	if object, ok := root.(map[string]any); ok {
		candidate, err := decodeCandidate(object, "candidates")
		if err != nil {
			return nil, err
		}
		return []Candidate{candidate}, nil
	}
	return decodeCandidateList(root, "candidates")
}

func decodeCandidateList(value any, field string) ([]Candidate, error) {
	list, ok := value.([]any)
	if !ok {
		return nil, malformed(field, "expected array, got %s", jsonKind(value))
	}
	candidates := make([]Candidate, 0, len(list))
	for i, element := range list {
		elementField := fmt.Sprintf("%s[%d]", field, i)
		object, ok := element.(map[string]any)
		if !ok {
			return nil, malformed(elementField, "expected object, got %s", jsonKind(element))
		}
		candidate, err := decodeCandidate(object, elementField)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, candidate)
	}
	return candidates, nil
}

func decodeCandidate(object map[string]any, field string) (Candidate, error) {
	text, err := requireString(object, "candidate", field+".candidate")
	if err != nil {
		return Candidate{}, err
	}
	candidate := Candidate{Candidate: text}

	switch mid := object["sdpMid"].(type) {
	case nil:
	case string:
		candidate.SDPMid = &mid
	default:
		return Candidate{}, malformed(field+".sdpMid", "expected string, got %s", jsonKind(mid))
	}

	switch index := object["sdpMLineIndex"].(type) {
	case nil:
	case int64:
		if index < 0 || index > 0xffff {
			return Candidate{}, malformed(field+".sdpMLineIndex", "%d out of range", index)
		}
		candidate.SDPMLineIndex = int(index)
	default:
		return Candidate{}, malformed(field+".sdpMLineIndex", "expected integer, got %s", jsonKind(index))
	}
	return candidate, nil
}

func requireString(object map[string]any, key, field string) (string, error) {
	value, ok := object[key]
	if !ok || value == nil {
		return "", malformed(field, "missing")
	}
	text, ok := value.(string)
	if !ok {
		return "", malformed(field, "expected string, got %s", jsonKind(value))
	}
	return text, nil
}

// jsonKind names the JSON type of a decoded value for error messages.
func jsonKind(value any) string {
	switch value.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case int64, float64:
		return "number"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	}
	return fmt.Sprintf("%T", value)
}
