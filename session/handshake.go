// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"fmt"

	"github.com/bureau-foundation/wamprtc/wamp"
)

// Join runs the client half of the opening handshake on transport and
// returns the joined session. A nil authenticator joins anonymously.
// On failure the transport is left open for the caller to close.
func Join(ctx context.Context, transport wamp.Transport, realm string, serializer wamp.Serializer, authenticator wamp.ClientAuthenticator) (*BaseSession, error) {
	joiner := wamp.NewJoiner(realm, serializer, authenticator)
	hello, err := joiner.SendHello()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrHandshakeFailure, err)
	}
	if err := transport.Send(ctx, hello); err != nil {
		return nil, fmt.Errorf("%w: sending HELLO: %w", ErrHandshakeFailure, err)
	}

	for {
		data, err := transport.Receive(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrHandshakeFailure, err)
		}
		reply, err := joiner.Receive(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrHandshakeFailure, err)
		}
		if reply == nil {
			break
		}
		if err := transport.Send(ctx, reply); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrHandshakeFailure, err)
		}
	}

	details, err := joiner.SessionDetails()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrHandshakeFailure, err)
	}
	return newBaseSession(transport, serializer, details), nil
}

// Accept runs the router half of the opening handshake on transport,
// admitting the client according to options. A rejected client is sent
// ABORT before the error is returned.
func Accept(ctx context.Context, transport wamp.Transport, serializer wamp.Serializer, options wamp.AcceptorOptions) (*BaseSession, error) {
	acceptor := wamp.NewAcceptor(serializer, options)
	for {
		data, err := transport.Receive(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrHandshakeFailure, err)
		}
		reply, done, err := acceptor.Receive(data)
		if reply != nil {
			if sendErr := transport.Send(ctx, reply); sendErr != nil && err == nil {
				err = sendErr
			}
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrHandshakeFailure, err)
		}
		if done {
			break
		}
	}

	details, err := acceptor.SessionDetails()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrHandshakeFailure, err)
	}
	return newBaseSession(transport, serializer, details), nil
}
