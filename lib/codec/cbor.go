// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// CBOR encodes with Core Deterministic Encoding (RFC 8949 section 4.2),
// so equal values always produce equal bytes.
var CBOR Codec = newCBORCodec()

type cborCodec struct {
	encMode cbor.EncMode
	decMode cbor.DecMode
}

func newCBORCodec() *cborCodec {
	encMode, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("codec: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err := cbor.DecOptions{
		// WAMP dictionaries always have string keys; the CBOR default
		// of map[any]any would leak into every details map.
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
		IntDec:         cbor.IntDecConvertSigned,
	}.DecMode()
	if err != nil {
		panic("codec: CBOR decoder initialization failed: " + err.Error())
	}
	return &cborCodec{encMode: encMode, decMode: decMode}
}

func (*cborCodec) Name() string { return "cbor" }

func (*cborCodec) Binary() bool { return true }

func (c *cborCodec) Marshal(value any) ([]byte, error) {
	return c.encMode.Marshal(value)
}

func (c *cborCodec) Unmarshal(data []byte, target any) error {
	return c.decMode.Unmarshal(data, target)
}
