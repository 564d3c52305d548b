// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package wamp

import (
	"errors"
	"fmt"
)

var (
	// ErrProtocolViolation reports a message that is not valid in the
	// current session state.
	ErrProtocolViolation = errors.New("wamp: protocol violation")

	// ErrSessionClosed is returned by Session operations after the
	// session has closed.
	ErrSessionClosed = errors.New("wamp: session closed")
)

// AbortError is the router's refusal of a session, carried by ABORT.
type AbortError struct {
	Reason  string
	Details map[string]any
}

func (e *AbortError) Error() string {
	if message, ok := e.Details["message"].(string); ok && message != "" {
		return fmt.Sprintf("wamp: session aborted: %s: %s", e.Reason, message)
	}
	return fmt.Sprintf("wamp: session aborted: %s", e.Reason)
}

// RemoteError is an ERROR reply to a call, publish, or subscription
// request.
type RemoteError struct {
	URI     string
	Args    []any
	KwArgs  map[string]any
	Details map[string]any
}

func (e *RemoteError) Error() string {
	if len(e.Args) > 0 {
		if message, ok := e.Args[0].(string); ok {
			return fmt.Sprintf("wamp: %s: %s", e.URI, message)
		}
	}
	return "wamp: " + e.URI
}

// IsRemoteError reports whether err carries a RemoteError with the
// given URI.
func IsRemoteError(err error, uri string) bool {
	var remote *RemoteError
	return errors.As(err, &remote) && remote.URI == uri
}
