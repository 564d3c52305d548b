// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package wamp

import (
	"fmt"

	"github.com/bureau-foundation/wamprtc/lib/version"
)

// SessionDetails describes an established session.
type SessionDetails struct {
	ID         int64
	Realm      string
	AuthID     string
	AuthRole   string
	AuthMethod string
}

// clientRoles announces the roles Session implements.
func clientRoles() map[string]any {
	return map[string]any{
		"caller":     map[string]any{},
		"publisher":  map[string]any{},
		"subscriber": map[string]any{},
	}
}

type joinerState int

const (
	joinerIdle joinerState = iota
	joinerHelloSent
	joinerAuthenticateSent
	joinerJoined
)

// Joiner is the client half of the opening handshake. It does no I/O:
// the caller sends the bytes from SendHello, then feeds each received
// message to Receive and sends whatever it returns until Receive
// returns nil bytes and a nil error.
type Joiner struct {
	realm         string
	serializer    Serializer
	authenticator ClientAuthenticator

	state   joinerState
	details SessionDetails
}

// NewJoiner returns a Joiner for realm. A nil authenticator requests an
// anonymous session.
func NewJoiner(realm string, serializer Serializer, authenticator ClientAuthenticator) *Joiner {
	if authenticator == nil {
		authenticator = &Anonymous{}
	}
	return &Joiner{realm: realm, serializer: serializer, authenticator: authenticator}
}

// Serializer returns the serializer the handshake uses.
func (j *Joiner) Serializer() Serializer { return j.serializer }

// SendHello returns the serialized HELLO that opens the handshake.
func (j *Joiner) SendHello() ([]byte, error) {
	if j.state != joinerIdle {
		return nil, fmt.Errorf("%w: HELLO already sent", ErrProtocolViolation)
	}
	details := map[string]any{
		"roles":       clientRoles(),
		"authmethods": []any{j.authenticator.AuthMethod()},
		"agent":       version.Agent(),
	}
	if authID := j.authenticator.AuthID(); authID != "" {
		details["authid"] = authID
	}
	if extra := j.authenticator.AuthExtra(); len(extra) > 0 {
		details["authextra"] = extra
	}
	data, err := j.serializer.Serialize(&Hello{Realm: j.realm, Details: details})
	if err != nil {
		return nil, err
	}
	j.state = joinerHelloSent
	return data, nil
}

// Receive consumes one message from the router. It returns the bytes
// to send next, or nil once the session is established.
func (j *Joiner) Receive(data []byte) ([]byte, error) {
	message, err := j.serializer.Deserialize(data)
	if err != nil {
		return nil, err
	}
	reply, err := j.ReceiveMessage(message)
	if err != nil || reply == nil {
		return nil, err
	}
	return j.serializer.Serialize(reply)
}

// ReceiveMessage is Receive for an already decoded message.
func (j *Joiner) ReceiveMessage(message Message) (Message, error) {
	if j.state != joinerHelloSent && j.state != joinerAuthenticateSent {
		return nil, fmt.Errorf("%w: %s received outside the handshake", ErrProtocolViolation, message.Type())
	}
	switch message := message.(type) {
	case *Welcome:
		authID, _ := message.Details["authid"].(string)
		authRole, _ := message.Details["authrole"].(string)
		authMethod, _ := message.Details["authmethod"].(string)
		if authMethod == "" {
			authMethod = j.authenticator.AuthMethod()
		}
		j.details = SessionDetails{
			ID:         message.SessionID,
			Realm:      j.realm,
			AuthID:     authID,
			AuthRole:   authRole,
			AuthMethod: authMethod,
		}
		j.state = joinerJoined
		return nil, nil

	case *Challenge:
		if j.state != joinerHelloSent {
			return nil, fmt.Errorf("%w: second CHALLENGE", ErrProtocolViolation)
		}
		reply, err := j.authenticator.Authenticate(message)
		if err != nil {
			return nil, err
		}
		j.state = joinerAuthenticateSent
		return reply, nil

	case *Abort:
		return nil, &AbortError{Reason: message.Reason, Details: message.Details}
	}
	return nil, fmt.Errorf("%w: unexpected %s during handshake", ErrProtocolViolation, message.Type())
}

// SessionDetails returns the established session, or an error if the
// handshake has not completed.
func (j *Joiner) SessionDetails() (SessionDetails, error) {
	if j.state != joinerJoined {
		return SessionDetails{}, fmt.Errorf("wamp: handshake not complete")
	}
	return j.details, nil
}
