// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

// Codec encodes and decodes values in one wire format.
type Codec interface {
	// Name is the short format name used in configuration and in the
	// WAMP subprotocol ("json", "cbor", "msgpack").
	Name() string

	// Binary reports whether encoded output is binary. Text formats
	// travel as WebSocket text messages.
	Binary() bool

	Marshal(value any) ([]byte, error)
	Unmarshal(data []byte, target any) error
}

// ByName returns the codec with the given Name, or false.
func ByName(name string) (Codec, bool) {
	switch name {
	case JSON.Name():
		return JSON, true
	case CBOR.Name():
		return CBOR, true
	case MsgPack.Name():
		return MsgPack, true
	}
	return nil, false
}
