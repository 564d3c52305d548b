// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package signaling

import (
	"errors"
	"fmt"
)

// ErrMalformedPayload matches every MalformedPayloadError.
var ErrMalformedPayload = errors.New("signaling: malformed payload")

// MalformedPayloadError reports a signaling payload field that is
// missing or has the wrong type.
type MalformedPayloadError struct {
	// Field is a path such as "description.sdp" or
	// "candidates[2].sdpMLineIndex".
	Field string
	Err   error
}

func (e *MalformedPayloadError) Error() string {
	return fmt.Sprintf("signaling: malformed payload field %q: %v", e.Field, e.Err)
}

func (e *MalformedPayloadError) Unwrap() error { return e.Err }

func (e *MalformedPayloadError) Is(target error) bool { return target == ErrMalformedPayload }

// MalformedField returns the offending field of a MalformedPayloadError
// in err's chain, or "" if there is none.
func MalformedField(err error) string {
	var malformed *MalformedPayloadError
	if errors.As(err, &malformed) {
		return malformed.Field
	}
	return ""
}

func malformed(field, format string, args ...any) error {
	return &MalformedPayloadError{Field: field, Err: fmt.Errorf(format, args...)}
}
