// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package wamp

import (
	"crypto/hmac"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	mathrand "math/rand/v2"
	"slices"
)

// ErrAuthenticationFailed is returned by Acceptor when a client's
// credentials are rejected or no offered method is admitted.
var ErrAuthenticationFailed = errors.New("wamp: authentication failed")

// AcceptorOptions selects the authentication methods an Acceptor
// admits. A method is offered only when its field is set.
type AcceptorOptions struct {
	// Realms lists the realms that may be joined. Empty admits any.
	Realms []string

	// AllowAnonymous admits clients offering "anonymous".
	AllowAnonymous bool

	// ValidateTicket checks a "ticket" signature and returns the
	// session's authrole.
	ValidateTicket func(realm, authID, ticket string) (authRole string, err error)

	// CRASecret returns the shared secret and authrole for a
	// "wampcra" client.
	CRASecret func(realm, authID string) (secret, authRole string, err error)
}

type acceptorState int

const (
	acceptorAwaitingHello acceptorState = iota
	acceptorChallenged
	acceptorJoined
	acceptorFailed
)

// Acceptor is the router half of the opening handshake, used on the
// answering side of a peer-to-peer channel. Feed it each received
// message with Receive and send any returned bytes; done is true once
// WELCOME has been produced.
type Acceptor struct {
	serializer Serializer
	options    AcceptorOptions

	state     acceptorState
	hello     *Hello
	method    string
	authID    string
	authRole  string
	challenge string
	details   SessionDetails
}

// NewAcceptor returns an Acceptor speaking serializer.
func NewAcceptor(serializer Serializer, options AcceptorOptions) *Acceptor {
	return &Acceptor{serializer: serializer, options: options}
}

// Receive consumes one client message. On rejection it returns the
// ABORT to send along with an error wrapping ErrAuthenticationFailed.
func (a *Acceptor) Receive(data []byte) (reply []byte, done bool, err error) {
	message, err := a.serializer.Deserialize(data)
	if err != nil {
		a.state = acceptorFailed
		return nil, false, err
	}

	var response Message
	switch a.state {
	case acceptorAwaitingHello:
		hello, ok := message.(*Hello)
		if !ok {
			a.state = acceptorFailed
			return nil, false, fmt.Errorf("%w: expected HELLO, got %s", ErrProtocolViolation, message.Type())
		}
		response, err = a.receiveHello(hello)
	case acceptorChallenged:
		authenticate, ok := message.(*Authenticate)
		if !ok {
			a.state = acceptorFailed
			return nil, false, fmt.Errorf("%w: expected AUTHENTICATE, got %s", ErrProtocolViolation, message.Type())
		}
		response, err = a.receiveAuthenticate(authenticate)
	default:
		return nil, false, fmt.Errorf("%w: %s after handshake ended", ErrProtocolViolation, message.Type())
	}

	if response != nil {
		var serializeErr error
		reply, serializeErr = a.serializer.Serialize(response)
		if serializeErr != nil && err == nil {
			err = serializeErr
		}
	}
	return reply, a.state == acceptorJoined, err
}

func (a *Acceptor) receiveHello(hello *Hello) (Message, error) {
	a.hello = hello
	a.authID, _ = hello.Details["authid"].(string)

	if len(a.options.Realms) > 0 && !slices.Contains(a.options.Realms, hello.Realm) {
		return a.abort("wamp.error.no_such_realm", fmt.Errorf("%w: realm %q", ErrAuthenticationFailed, hello.Realm))
	}

	methods := []string{"anonymous"}
	if offered, ok := hello.Details["authmethods"].([]any); ok {
		methods = methods[:0]
		for _, method := range offered {
			if name, ok := method.(string); ok {
				methods = append(methods, name)
			}
		}
	}

	for _, method := range methods {
		switch {
		case method == "anonymous" && a.options.AllowAnonymous:
			a.method = method
			if a.authID == "" {
				a.authID = randomHex(8)
			}
			a.authRole = "anonymous"
			return a.welcome(), nil

		case method == "ticket" && a.options.ValidateTicket != nil:
			a.method = method
			a.state = acceptorChallenged
			return &Challenge{AuthMethod: method}, nil

		case method == "wampcra" && a.options.CRASecret != nil:
			a.method = method
			a.challenge = fmt.Sprintf(`{"authid":%q,"authmethod":"wampcra","nonce":%q}`, a.authID, randomHex(16))
			a.state = acceptorChallenged
			return &Challenge{AuthMethod: method, Extra: map[string]any{"challenge": a.challenge}}, nil
		}
	}
	return a.abort("wamp.error.no_auth_method", fmt.Errorf("%w: no admitted method in %v", ErrAuthenticationFailed, methods))
}

func (a *Acceptor) receiveAuthenticate(authenticate *Authenticate) (Message, error) {
	realm := a.hello.Realm
	switch a.method {
	case "ticket":
		role, err := a.options.ValidateTicket(realm, a.authID, authenticate.Signature)
		if err != nil {
			return a.abort("wamp.error.authentication_failed", fmt.Errorf("%w: %v", ErrAuthenticationFailed, err))
		}
		a.authRole = role

	case "wampcra":
		secret, role, err := a.options.CRASecret(realm, a.authID)
		if err != nil {
			return a.abort("wamp.error.authentication_failed", fmt.Errorf("%w: %v", ErrAuthenticationFailed, err))
		}
		expected := SignCRAChallenge([]byte(secret), a.challenge)
		if !hmac.Equal([]byte(expected), []byte(authenticate.Signature)) {
			return a.abort("wamp.error.authentication_failed", fmt.Errorf("%w: wampcra signature mismatch", ErrAuthenticationFailed))
		}
		a.authRole = role
	}
	return a.welcome(), nil
}

func (a *Acceptor) welcome() Message {
	a.details = SessionDetails{
		ID:         mathrand.Int64N(1<<53) + 1,
		Realm:      a.hello.Realm,
		AuthID:     a.authID,
		AuthRole:   a.authRole,
		AuthMethod: a.method,
	}
	a.state = acceptorJoined
	return &Welcome{
		SessionID: a.details.ID,
		Details: map[string]any{
			"authid":     a.details.AuthID,
			"authrole":   a.details.AuthRole,
			"authmethod": a.details.AuthMethod,
			"roles":      map[string]any{"broker": map[string]any{}, "dealer": map[string]any{}},
		},
	}
}

func (a *Acceptor) abort(reason string, err error) (Message, error) {
	a.state = acceptorFailed
	return &Abort{Reason: reason, Details: map[string]any{"message": err.Error()}}, err
}

// SessionDetails returns the accepted session, or an error if the
// handshake has not completed.
func (a *Acceptor) SessionDetails() (SessionDetails, error) {
	if a.state != acceptorJoined {
		return SessionDetails{}, fmt.Errorf("wamp: handshake not complete")
	}
	return a.details, nil
}

func randomHex(n int) string {
	buffer := make([]byte, n)
	rand.Read(buffer)
	return hex.EncodeToString(buffer)
}
