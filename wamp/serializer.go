// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package wamp

import (
	"fmt"

	"github.com/bureau-foundation/wamprtc/lib/codec"
)

// Serializer converts messages to and from their wire bytes.
type Serializer interface {
	// Name is the codec name ("json", "cbor", "msgpack").
	Name() string

	// Subprotocol is the WebSocket subprotocol for this serializer,
	// "wamp.2." followed by Name.
	Subprotocol() string

	// Binary reports whether serialized messages are binary.
	Binary() bool

	Serialize(message Message) ([]byte, error)
	Deserialize(data []byte) (Message, error)
}

// NewSerializer returns the serializer for a codec name.
func NewSerializer(name string) (Serializer, error) {
	c, ok := codec.ByName(name)
	if !ok {
		return nil, fmt.Errorf("wamp: unknown serializer %q (want json, cbor, or msgpack)", name)
	}
	return codecSerializer{codec: c}, nil
}

// SerializerForSubprotocol returns the serializer named by a
// "wamp.2.<name>" WebSocket subprotocol.
func SerializerForSubprotocol(subprotocol string) (Serializer, error) {
	const prefix = "wamp.2."
	if len(subprotocol) <= len(prefix) || subprotocol[:len(prefix)] != prefix {
		return nil, fmt.Errorf("wamp: %q is not a WAMP subprotocol", subprotocol)
	}
	return NewSerializer(subprotocol[len(prefix):])
}

var (
	JSONSerializer    Serializer = codecSerializer{codec: codec.JSON}
	CBORSerializer    Serializer = codecSerializer{codec: codec.CBOR}
	MsgPackSerializer Serializer = codecSerializer{codec: codec.MsgPack}
)

type codecSerializer struct {
	codec codec.Codec
}

func (s codecSerializer) Name() string { return s.codec.Name() }

func (s codecSerializer) Subprotocol() string { return "wamp.2." + s.codec.Name() }

func (s codecSerializer) Binary() bool { return s.codec.Binary() }

func (s codecSerializer) Serialize(message Message) ([]byte, error) {
	data, err := s.codec.Marshal(message.list())
	if err != nil {
		return nil, fmt.Errorf("wamp: serializing %s as %s: %w", message.Type(), s.codec.Name(), err)
	}
	return data, nil
}

func (s codecSerializer) Deserialize(data []byte) (Message, error) {
	var fields []any
	if err := s.codec.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("wamp: decoding %s message: %w", s.codec.Name(), err)
	}
	return parseMessage(fields)
}
