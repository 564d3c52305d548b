// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"reflect"

	ugorji "github.com/ugorji/go/codec"
)

// MsgPack encodes MessagePack with the str8 and bin types of the
// current format revision.
var MsgPack Codec = newMsgPackCodec()

type msgpackCodec struct {
	handle *ugorji.MsgpackHandle
}

func newMsgPackCodec() *msgpackCodec {
	handle := &ugorji.MsgpackHandle{}
	handle.MapType = reflect.TypeOf(map[string]any(nil))
	handle.RawToString = true
	handle.SignedInteger = true
	handle.WriteExt = true
	return &msgpackCodec{handle: handle}
}

func (*msgpackCodec) Name() string { return "msgpack" }

func (*msgpackCodec) Binary() bool { return true }

func (c *msgpackCodec) Marshal(value any) ([]byte, error) {
	var data []byte
	if err := ugorji.NewEncoderBytes(&data, c.handle).Encode(value); err != nil {
		return nil, err
	}
	return data, nil
}

func (c *msgpackCodec) Unmarshal(data []byte, target any) error {
	return ugorji.NewDecoderBytes(data, c.handle).Decode(target)
}
