// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"errors"
	"strconv"

	"github.com/goccy/go-json"
)

// JSON decodes numbers into int64 when they are integral and float64
// otherwise, so 53-bit WAMP ids survive decoding exactly.
var JSON Codec = jsonCodec{}

var errTrailingData = errors.New("codec: invalid data after top-level JSON value")

type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Binary() bool { return false }

func (jsonCodec) Marshal(value any) ([]byte, error) {
	return json.Marshal(value)
}

func (jsonCodec) Unmarshal(data []byte, target any) error {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	if err := decoder.Decode(target); err != nil {
		return err
	}
	// The decoder stops after the first value.
	if !json.Valid(data) {
		return errTrailingData
	}
	switch typed := target.(type) {
	case *any:
		*typed = normalizeNumbers(*typed)
	case *[]any:
		for i := range *typed {
			(*typed)[i] = normalizeNumbers((*typed)[i])
		}
	case *map[string]any:
		for key, value := range *typed {
			(*typed)[key] = normalizeNumbers(value)
		}
	}
	return nil
}

// normalizeNumbers replaces json.Number values throughout a decoded
// tree with int64 or float64.
func normalizeNumbers(value any) any {
	switch typed := value.(type) {
	case json.Number:
		if integer, err := strconv.ParseInt(string(typed), 10, 64); err == nil {
			return integer
		}
		if float, err := typed.Float64(); err == nil {
			return float
		}
		return string(typed)
	case []any:
		for i := range typed {
			typed[i] = normalizeNumbers(typed[i])
		}
	case map[string]any:
		for key, element := range typed {
			typed[key] = normalizeNumbers(element)
		}
	}
	return value
}
