// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"

	"github.com/bureau-foundation/wamprtc/wamp"
)

// BaseSession is a joined session before any WAMP roles run on it:
// the negotiated identity plus the transport and serializer it was
// negotiated over. It implements [wamp.Transport], so a [wamp.Session]
// can be started on top of it.
type BaseSession struct {
	transport  wamp.Transport
	serializer wamp.Serializer
	details    wamp.SessionDetails
}

var _ wamp.Transport = (*BaseSession)(nil)

func newBaseSession(transport wamp.Transport, serializer wamp.Serializer, details wamp.SessionDetails) *BaseSession {
	return &BaseSession{transport: transport, serializer: serializer, details: details}
}

// ID returns the session id assigned in WELCOME.
func (s *BaseSession) ID() int64 { return s.details.ID }

func (s *BaseSession) Realm() string    { return s.details.Realm }
func (s *BaseSession) AuthID() string   { return s.details.AuthID }
func (s *BaseSession) AuthRole() string { return s.details.AuthRole }

// Details returns the full negotiated identity.
func (s *BaseSession) Details() wamp.SessionDetails { return s.details }

func (s *BaseSession) Serializer() wamp.Serializer { return s.serializer }

// Send writes one serialized message.
func (s *BaseSession) Send(ctx context.Context, data []byte) error {
	return s.transport.Send(ctx, data)
}

// Receive returns the next serialized message.
func (s *BaseSession) Receive(ctx context.Context) ([]byte, error) {
	return s.transport.Receive(ctx)
}

// SendMessage serializes and sends message.
func (s *BaseSession) SendMessage(ctx context.Context, message wamp.Message) error {
	data, err := s.serializer.Serialize(message)
	if err != nil {
		return err
	}
	return s.transport.Send(ctx, data)
}

// ReceiveMessage receives and decodes the next message.
func (s *BaseSession) ReceiveMessage(ctx context.Context) (wamp.Message, error) {
	data, err := s.transport.Receive(ctx)
	if err != nil {
		return nil, err
	}
	return s.serializer.Deserialize(data)
}

// Close closes the underlying transport.
func (s *BaseSession) Close() error {
	return s.transport.Close()
}
