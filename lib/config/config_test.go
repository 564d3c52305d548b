// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/wamprtc/lib/secret"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Serializer != "cbor" {
		t.Errorf("expected serializer cbor, got %s", cfg.Serializer)
	}
	if cfg.Signaling.OfferProcedure != "io.xconn.webrtc.offer" {
		t.Errorf("unexpected offer procedure %s", cfg.Signaling.OfferProcedure)
	}
	// Topics are named for the side that listens: the offerer trickles
	// to the answerer's handler and hears the answerer on its own.
	if cfg.Signaling.AnswererOnCandidate != "io.xconn.webrtc.answerer.on_candidate" {
		t.Errorf("unexpected answerer topic %s", cfg.Signaling.AnswererOnCandidate)
	}
	if cfg.Signaling.OffererOnCandidate != "io.xconn.webrtc.offerer.on_candidate" {
		t.Errorf("unexpected offerer topic %s", cfg.Signaling.OffererOnCandidate)
	}
	if cfg.Channel.OpenTimeout != 20*time.Second {
		t.Errorf("expected open timeout 20s, got %v", cfg.Channel.OpenTimeout)
	}
	if cfg.Channel.MaxFramePayload != 16383 {
		t.Errorf("expected max frame payload 16383, got %d", cfg.Channel.MaxFramePayload)
	}
	if cfg.EffectiveSubprotocol() != "wamp.2.cbor" {
		t.Errorf("expected subprotocol wamp.2.cbor, got %s", cfg.EffectiveSubprotocol())
	}

	// Default lacks the router location.
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation to fail without router.url and router.realm")
	}
}

func TestLoadFileYAML(t *testing.T) {
	path := writeConfig(t, "client.yaml", `
router:
  url: ws://localhost:8080/ws
  realm: signaling
realm: realm1
serializer: json
auth:
  method: ticket
  authid: alice
  ticket: secret-ticket
ice:
  servers:
    - stun:stun.l.google.com:19302
channel:
  open_timeout: 5s
  gather_window: 50ms
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	if cfg.Router.URL != "ws://localhost:8080/ws" {
		t.Errorf("expected router url, got %s", cfg.Router.URL)
	}
	if cfg.EffectiveRealm() != "realm1" {
		t.Errorf("expected realm realm1, got %s", cfg.EffectiveRealm())
	}
	if cfg.EffectiveSubprotocol() != "wamp.2.json" {
		t.Errorf("expected subprotocol wamp.2.json, got %s", cfg.EffectiveSubprotocol())
	}
	if cfg.Auth.Method != AuthTicket || cfg.Auth.Ticket != "secret-ticket" {
		t.Errorf("unexpected auth %+v", cfg.Auth)
	}
	if len(cfg.ICE.Servers) != 1 {
		t.Errorf("expected 1 ICE server, got %d", len(cfg.ICE.Servers))
	}
	if cfg.Channel.OpenTimeout != 5*time.Second {
		t.Errorf("expected open timeout 5s, got %v", cfg.Channel.OpenTimeout)
	}
	if cfg.Channel.GatherWindow != 50*time.Millisecond {
		t.Errorf("expected gather window 50ms, got %v", cfg.Channel.GatherWindow)
	}
	// Unset values keep their defaults.
	if cfg.Channel.FlushInterval != 100*time.Millisecond {
		t.Errorf("expected default flush interval, got %v", cfg.Channel.FlushInterval)
	}
	if cfg.Router.Serializer != "cbor" {
		t.Errorf("expected default router serializer cbor, got %s", cfg.Router.Serializer)
	}
}

func TestLoadFileJSONC(t *testing.T) {
	path := writeConfig(t, "client.jsonc", `{
  // Signaling router.
  "router": {"url": "wss://router.example/ws", "realm": "signaling"},
  "channel": {
    "negotiated": true,
    "id": 3,
    "flush_interval": "250ms", /* slower trickle */
  },
}`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if !cfg.Channel.Negotiated || cfg.Channel.ID != 3 {
		t.Errorf("unexpected channel %+v", cfg.Channel)
	}
	if cfg.Channel.FlushInterval != 250*time.Millisecond {
		t.Errorf("expected flush interval 250ms, got %v", cfg.Channel.FlushInterval)
	}
	if cfg.EffectiveRealm() != "signaling" {
		t.Errorf("expected realm to fall back to router realm, got %s", cfg.EffectiveRealm())
	}
}

func TestLoadFileErrors(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
	path := writeConfig(t, "bad.yaml", "router: [unclosed")
	if _, err := LoadFile(path); err == nil {
		t.Error("expected error for malformed YAML")
	}
}

func TestLoadUsesEnvironment(t *testing.T) {
	t.Setenv("WAMPRTC_CONFIG", "")
	if _, err := Load(); err == nil {
		t.Error("expected error when WAMPRTC_CONFIG is unset")
	}

	path := writeConfig(t, "client.yaml", "router:\n  url: ws://localhost/ws\n  realm: r\n")
	t.Setenv("WAMPRTC_CONFIG", path)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Router.Realm != "r" {
		t.Errorf("expected realm r, got %s", cfg.Router.Realm)
	}
}

func TestExpandVariables(t *testing.T) {
	t.Setenv("WAMPRTC_TEST_HOST", "router.internal")
	t.Setenv("WAMPRTC_TEST_SECRET", "s3cret")

	path := writeConfig(t, "client.yaml", `
router:
  url: ws://${WAMPRTC_TEST_HOST}:${WAMPRTC_TEST_PORT:-8080}/ws
  realm: signaling
auth:
  method: wampcra
  authid: ${WAMPRTC_TEST_USER:-bob}
  secret: ${WAMPRTC_TEST_SECRET}
`)
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cfg.Router.URL != "ws://router.internal:8080/ws" {
		t.Errorf("expected expanded url, got %s", cfg.Router.URL)
	}
	if cfg.Auth.AuthID != "bob" {
		t.Errorf("expected default authid bob, got %s", cfg.Auth.AuthID)
	}
	if cfg.Auth.Secret != "s3cret" {
		t.Errorf("expected expanded secret, got %s", cfg.Auth.Secret)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Client {
		cfg := Default()
		cfg.Router.URL = "ws://localhost:8080/ws"
		cfg.Router.Realm = "realm1"
		return cfg
	}

	if err := valid().Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}

	tests := []struct {
		name   string
		modify func(*Client)
		want   string
	}{
		{"http url", func(c *Client) { c.Router.URL = "http://localhost" }, "router.url must be"},
		{"serializer", func(c *Client) { c.Serializer = "xml" }, "serializer must be one of"},
		{"ticket", func(c *Client) { c.Auth.Method = AuthTicket }, "auth.ticket is required"},
		{"wampcra", func(c *Client) { c.Router.Auth.Method = AuthWAMPCRA }, "router.auth.authid and router.auth.secret"},
		{"cryptosign", func(c *Client) { c.Auth.Method = AuthCryptosign }, "auth.private_key is required"},
		{"method", func(c *Client) { c.Auth.Method = "kerberos" }, `"kerberos" is not one of`},
		{"procedure", func(c *Client) { c.Signaling.OfferProcedure = "" }, "signaling.offer_procedure"},
		{"answerer topic", func(c *Client) { c.Signaling.AnswererOnCandidate = "" }, "signaling.answerer_on_candidate"},
		{"open timeout", func(c *Client) { c.Channel.OpenTimeout = 0 }, "channel.open_timeout"},
		{"message size", func(c *Client) { c.Channel.MaxMessageSize = 10 }, "channel.max_message_size"},
		{"call timeout", func(c *Client) { c.CallTimeout = -time.Second }, "call_timeout"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := valid()
			test.modify(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), test.want) {
				t.Errorf("expected error containing %q, got %v", test.want, err)
			}
		})
	}

	// All problems are reported together.
	cfg := Default()
	cfg.Serializer = "xml"
	err := cfg.Validate()
	for _, want := range []string{"router.url is required", "router.realm is required", "serializer must be"} {
		if err == nil || !strings.Contains(err.Error(), want) {
			t.Errorf("expected error containing %q, got %v", want, err)
		}
	}
}

func TestValidateTicketBuffer(t *testing.T) {
	buffer, err := secret.NewFromBytes([]byte("opensesame"))
	if err != nil {
		t.Fatalf("NewFromBytes: %v", err)
	}
	defer buffer.Close()

	cfg := Default()
	cfg.Router.URL = "ws://localhost:8080/ws"
	cfg.Router.Realm = "realm1"
	cfg.Auth = AuthConfig{Method: AuthTicket, AuthID: "alice", TicketBuffer: buffer}
	if err := cfg.Validate(); err != nil {
		t.Errorf("ticket in a buffer should satisfy validation, got %v", err)
	}
}
