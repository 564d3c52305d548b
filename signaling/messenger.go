// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package signaling

import "context"

// Messenger is the message bus signaling runs over: one RPC call for the
// offer/answer exchange and topics for candidate trickle.
type Messenger interface {
	// Call invokes procedure and returns the positional results.
	// Implementations surface their own timeouts as errors wrapping
	// context.DeadlineExceeded.
	Call(ctx context.Context, procedure string, args ...any) ([]any, error)

	// Publish sends args to every subscriber of topic.
	Publish(ctx context.Context, topic string, args ...any) error

	// Subscribe delivers the positional arguments of each event on
	// topic to handler. Handlers must not block.
	Subscribe(ctx context.Context, topic string, handler func(args []any)) (Subscription, error)
}

// Subscription is a live Subscribe registration.
type Subscription interface {
	Unsubscribe(ctx context.Context) error
}
