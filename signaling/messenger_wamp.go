// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package signaling

import (
	"context"

	"github.com/bureau-foundation/wamprtc/wamp"
)

// WAMPMessenger runs signaling over a WAMP session connected to a
// router that hosts the offer procedure.
type WAMPMessenger struct {
	session *wamp.Session
}

var _ Messenger = (*WAMPMessenger)(nil)

// NewWAMPMessenger wraps session.
func NewWAMPMessenger(session *wamp.Session) *WAMPMessenger {
	return &WAMPMessenger{session: session}
}

// Session returns the underlying WAMP session.
func (m *WAMPMessenger) Session() *wamp.Session { return m.session }

func (m *WAMPMessenger) Call(ctx context.Context, procedure string, args ...any) ([]any, error) {
	result, err := m.session.Call(ctx, procedure, args...)
	if err != nil {
		return nil, err
	}
	return result.Args, nil
}

func (m *WAMPMessenger) Publish(ctx context.Context, topic string, args ...any) error {
	return m.session.Publish(ctx, topic, args...)
}

func (m *WAMPMessenger) Subscribe(ctx context.Context, topic string, handler func(args []any)) (Subscription, error) {
	subscription, err := m.session.Subscribe(ctx, topic, func(event *wamp.Event) {
		handler(event.Args)
	})
	if err != nil {
		return nil, err
	}
	return subscription, nil
}
