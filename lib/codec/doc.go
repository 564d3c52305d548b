// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec holds the value encodings that WAMP serializers put on
// the wire: JSON, CBOR and MessagePack.
//
// Each [Codec] encodes arbitrary Go values and decodes into any-typed
// targets with the same dynamic shapes regardless of format:
//
//   - maps decode as map[string]any
//   - integers decode as int64
//   - strings decode as string, never []byte
//
// This lets the WAMP message parser read fields without caring which
// serializer produced them.
//
//	data, err := codec.CBOR.Marshal([]any{1, "realm1", map[string]any{}})
//	var decoded []any
//	err = codec.CBOR.Unmarshal(data, &decoded)
package codec
