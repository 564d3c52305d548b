// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"fmt"

	"github.com/bureau-foundation/wamprtc/lib/config"
	"github.com/bureau-foundation/wamprtc/wamp"
)

// NewAuthenticator builds the client authenticator auth selects. An
// empty method is anonymous.
func NewAuthenticator(auth config.AuthConfig) (wamp.ClientAuthenticator, error) {
	switch auth.Method {
	case "", config.AuthAnonymous:
		return &wamp.Anonymous{ID: auth.AuthID, Extra: auth.Extra}, nil
	case config.AuthTicket:
		return &wamp.Ticket{ID: auth.AuthID, Ticket: auth.Ticket, Buffer: auth.TicketBuffer, Extra: auth.Extra}, nil
	case config.AuthWAMPCRA:
		return &wamp.CRA{ID: auth.AuthID, Secret: auth.Secret, Extra: auth.Extra}, nil
	case config.AuthCryptosign:
		authenticator, err := wamp.NewCryptoSign(auth.AuthID, auth.PrivateKey)
		if err != nil {
			return nil, err
		}
		authenticator.Extra = auth.Extra
		return authenticator, nil
	}
	return nil, fmt.Errorf("session: unknown auth method %q", auth.Method)
}
