// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package wamp

import "context"

// Transport carries whole serialized messages in order. Send is safe
// for concurrent use; Receive is called from one goroutine at a time.
// Close unblocks pending calls on both sides.
type Transport interface {
	Send(ctx context.Context, data []byte) error
	Receive(ctx context.Context) ([]byte, error)
	Close() error
}
