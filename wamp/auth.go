// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package wamp

import (
	"crypto/ed25519"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/pbkdf2"

	"github.com/bureau-foundation/wamprtc/lib/secret"
)

// ClientAuthenticator supplies the authentication fields of HELLO and
// answers the router's CHALLENGE.
type ClientAuthenticator interface {
	AuthMethod() string
	AuthID() string
	AuthExtra() map[string]any
	Authenticate(challenge *Challenge) (*Authenticate, error)
}

// Anonymous requests an unauthenticated session. The router never
// challenges it.
type Anonymous struct {
	ID    string
	Extra map[string]any
}

func (a *Anonymous) AuthMethod() string        { return "anonymous" }
func (a *Anonymous) AuthID() string            { return a.ID }
func (a *Anonymous) AuthExtra() map[string]any { return a.Extra }

func (a *Anonymous) Authenticate(challenge *Challenge) (*Authenticate, error) {
	return nil, fmt.Errorf("%w: anonymous session challenged with %q", ErrProtocolViolation, challenge.AuthMethod)
}

// Ticket authenticates with a static shared ticket. When Buffer is set
// the ticket is read from it at signing time and Ticket is ignored; the
// buffer must stay open until the handshake completes.
type Ticket struct {
	ID     string
	Ticket string
	Buffer *secret.Buffer
	Extra  map[string]any
}

func (a *Ticket) AuthMethod() string        { return "ticket" }
func (a *Ticket) AuthID() string            { return a.ID }
func (a *Ticket) AuthExtra() map[string]any { return a.Extra }

func (a *Ticket) Authenticate(challenge *Challenge) (*Authenticate, error) {
	if challenge.AuthMethod != "ticket" {
		return nil, fmt.Errorf("%w: ticket session challenged with %q", ErrProtocolViolation, challenge.AuthMethod)
	}
	if a.Buffer != nil {
		return &Authenticate{Signature: a.Buffer.String()}, nil
	}
	return &Authenticate{Signature: a.Ticket}, nil
}

// CRA implements WAMP challenge-response authentication: the signature
// is the base64 HMAC-SHA256 of the challenge string. When the router
// sends a salt, the key is derived from Secret with PBKDF2.
type CRA struct {
	ID     string
	Secret string
	Extra  map[string]any
}

const (
	craDefaultIterations = 1000
	craDefaultKeyLength  = 32
)

func (a *CRA) AuthMethod() string        { return "wampcra" }
func (a *CRA) AuthID() string            { return a.ID }
func (a *CRA) AuthExtra() map[string]any { return a.Extra }

func (a *CRA) Authenticate(challenge *Challenge) (*Authenticate, error) {
	if challenge.AuthMethod != "wampcra" {
		return nil, fmt.Errorf("%w: wampcra session challenged with %q", ErrProtocolViolation, challenge.AuthMethod)
	}
	text, ok := challenge.Extra["challenge"].(string)
	if !ok {
		return nil, fmt.Errorf("%w: wampcra challenge without challenge string", ErrProtocolViolation)
	}

	key := []byte(a.Secret)
	if salt, ok := challenge.Extra["salt"].(string); ok && salt != "" {
		iterations := craDefaultIterations
		if value, ok := asInt64(challenge.Extra["iterations"]); ok && value > 0 {
			iterations = int(value)
		}
		keyLength := craDefaultKeyLength
		if value, ok := asInt64(challenge.Extra["keylen"]); ok && value > 0 {
			keyLength = int(value)
		}
		key = DeriveCRAKey(a.Secret, salt, iterations, keyLength)
	}
	return &Authenticate{Signature: SignCRAChallenge(key, text)}, nil
}

// DeriveCRAKey derives a salted WAMP-CRA key, base64 encoded as the
// protocol specifies.
func DeriveCRAKey(secret, salt string, iterations, keyLength int) []byte {
	derived := pbkdf2.Key([]byte(secret), []byte(salt), iterations, keyLength, sha256.New)
	return []byte(base64.StdEncoding.EncodeToString(derived))
}

// SignCRAChallenge returns the base64 HMAC-SHA256 of challenge.
func SignCRAChallenge(key []byte, challenge string) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(challenge))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// CryptoSign authenticates with an Ed25519 key pair. The public key
// travels in authextra as "pubkey"; the signature is the hex signature
// of the challenge bytes followed by the hex challenge.
type CryptoSign struct {
	ID         string
	PrivateKey ed25519.PrivateKey
	Extra      map[string]any
}

func (a *CryptoSign) AuthMethod() string { return "cryptosign" }
func (a *CryptoSign) AuthID() string     { return a.ID }

func (a *CryptoSign) AuthExtra() map[string]any {
	extra := make(map[string]any, len(a.Extra)+1)
	for key, value := range a.Extra {
		extra[key] = value
	}
	extra["pubkey"] = hex.EncodeToString(a.PrivateKey.Public().(ed25519.PublicKey))
	return extra
}

func (a *CryptoSign) Authenticate(challenge *Challenge) (*Authenticate, error) {
	if challenge.AuthMethod != "cryptosign" {
		return nil, fmt.Errorf("%w: cryptosign session challenged with %q", ErrProtocolViolation, challenge.AuthMethod)
	}
	text, ok := challenge.Extra["challenge"].(string)
	if !ok {
		return nil, fmt.Errorf("%w: cryptosign challenge without challenge string", ErrProtocolViolation)
	}
	challengeBytes, err := hex.DecodeString(text)
	if err != nil {
		return nil, fmt.Errorf("%w: cryptosign challenge is not hex: %v", ErrProtocolViolation, err)
	}
	signature := ed25519.Sign(a.PrivateKey, challengeBytes)
	return &Authenticate{Signature: hex.EncodeToString(signature) + text}, nil
}

// NewCryptoSign builds a CryptoSign authenticator from a hex encoded
// 32-byte seed or 64-byte private key.
func NewCryptoSign(authID, privateKeyHex string) (*CryptoSign, error) {
	raw, err := hex.DecodeString(privateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("wamp: cryptosign private key is not hex: %w", err)
	}
	switch len(raw) {
	case ed25519.SeedSize:
		return &CryptoSign{ID: authID, PrivateKey: ed25519.NewKeyFromSeed(raw)}, nil
	case ed25519.PrivateKeySize:
		return &CryptoSign{ID: authID, PrivateKey: ed25519.PrivateKey(raw)}, nil
	}
	return nil, fmt.Errorf("wamp: cryptosign private key is %d bytes, want %d or %d",
		len(raw), ed25519.SeedSize, ed25519.PrivateKeySize)
}

var (
	_ ClientAuthenticator = (*Anonymous)(nil)
	_ ClientAuthenticator = (*Ticket)(nil)
	_ ClientAuthenticator = (*CRA)(nil)
	_ ClientAuthenticator = (*CryptoSign)(nil)
)
