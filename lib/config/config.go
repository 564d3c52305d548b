// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/wamprtc/lib/secret"
)

// Auth methods accepted in AuthConfig.Method.
const (
	AuthAnonymous  = "anonymous"
	AuthTicket     = "ticket"
	AuthWAMPCRA    = "wampcra"
	AuthCryptosign = "cryptosign"
)

// Serializers accepted in Client.Serializer and RouterConfig.Serializer.
var serializers = []string{"json", "cbor", "msgpack"}

// Client is the configuration of a client that joins a realm over a
// WebRTC data channel negotiated through a WAMP router.
type Client struct {
	// Router is the WAMP router that hosts signaling.
	Router RouterConfig `yaml:"router"`

	// Realm is joined over the data channel. Defaults to router.realm.
	Realm string `yaml:"realm"`

	// Serializer encodes the session over the data channel: json,
	// cbor or msgpack.
	Serializer string `yaml:"serializer"`

	// Subprotocol is announced on the data channel. Defaults to
	// wamp.2.<serializer>.
	Subprotocol string `yaml:"subprotocol"`

	// Auth authenticates the session over the data channel.
	Auth AuthConfig `yaml:"auth"`

	Signaling SignalingConfig `yaml:"signaling"`
	ICE       ICEConfig       `yaml:"ice"`
	Channel   ChannelConfig   `yaml:"channel"`

	// CallTimeout bounds calls that carry no deadline of their own,
	// including the offer call. Zero means no bound.
	CallTimeout time.Duration `yaml:"call_timeout"`
}

// RouterConfig locates the signaling router.
type RouterConfig struct {
	// URL is the WebSocket endpoint, e.g. ws://localhost:8080/ws.
	URL string `yaml:"url"`

	Realm string `yaml:"realm"`

	// Serializer for the WebSocket session. Default: cbor.
	Serializer string `yaml:"serializer"`

	// Auth for the signaling session. Default: anonymous.
	Auth AuthConfig `yaml:"auth"`
}

// AuthConfig selects a client authenticator and its credentials.
// Credential fields may reference the environment as ${VAR}.
type AuthConfig struct {
	// Method is anonymous, ticket, wampcra or cryptosign.
	Method string `yaml:"method"`

	AuthID string `yaml:"authid"`

	// Ticket for the ticket method.
	Ticket string `yaml:"ticket"`

	// TicketBuffer holds a ticket read from a file or the terminal. It
	// takes precedence over Ticket and is never loaded from a file. The
	// caller owns it and closes it once the session is joined.
	TicketBuffer *secret.Buffer `yaml:"-"`

	// Secret for wampcra.
	Secret string `yaml:"secret"`

	// PrivateKey for cryptosign: a hex ed25519 seed or private key.
	PrivateKey string `yaml:"private_key"`

	// Extra is sent as HELLO.Details.authextra.
	Extra map[string]any `yaml:"extra"`
}

// SignalingConfig names the procedure and topics signaling uses.
type SignalingConfig struct {
	OfferProcedure string `yaml:"offer_procedure"`

	// AnswererOnCandidate is the topic the answerer listens on. This
	// client publishes its own trickled candidates here.
	AnswererOnCandidate string `yaml:"answerer_on_candidate"`

	// OffererOnCandidate is the topic the offerer listens on. The
	// answerer publishes its candidates here.
	OffererOnCandidate string `yaml:"offerer_on_candidate"`
}

// ICEConfig lists the connectivity servers.
type ICEConfig struct {
	// Servers are stun:, turn: or turns: URLs.
	Servers []string `yaml:"servers"`

	// Username and Credential apply to TURN servers.
	Username   string `yaml:"username"`
	Credential string `yaml:"credential"`

	// IncludeLoopback gathers loopback candidates.
	IncludeLoopback bool `yaml:"include_loopback"`
}

// ChannelConfig tunes the data channel and its negotiation.
type ChannelConfig struct {
	Label string `yaml:"label"`

	// Negotiated creates the channel out of band with ID on both sides.
	Negotiated bool   `yaml:"negotiated"`
	ID         uint16 `yaml:"id"`

	OpenTimeout   time.Duration `yaml:"open_timeout"`
	GatherWindow  time.Duration `yaml:"gather_window"`
	FlushInterval time.Duration `yaml:"flush_interval"`

	MaxMessageSize  int `yaml:"max_message_size"`
	MaxFramePayload int `yaml:"max_frame_payload"`
}

// Default returns a Client with every tunable set. Router URL and
// realm have no default.
func Default() *Client {
	return &Client{
		Router: RouterConfig{
			Serializer: "cbor",
			Auth:       AuthConfig{Method: AuthAnonymous},
		},
		Serializer: "cbor",
		Auth:       AuthConfig{Method: AuthAnonymous},
		Signaling: SignalingConfig{
			OfferProcedure:         "io.xconn.webrtc.offer",
			AnswererOnCandidate: "io.xconn.webrtc.answerer.on_candidate",
			OffererOnCandidate:  "io.xconn.webrtc.offerer.on_candidate",
		},
		Channel: ChannelConfig{
			Label:           "wamp",
			OpenTimeout:     20 * time.Second,
			GatherWindow:    200 * time.Millisecond,
			FlushInterval:   100 * time.Millisecond,
			MaxMessageSize:  1 << 20,
			MaxFramePayload: 16*1024 - 1,
		},
	}
}

// Load loads configuration from the file named by WAMPRTC_CONFIG.
func Load() (*Client, error) {
	configPath := os.Getenv("WAMPRTC_CONFIG")
	if configPath == "" {
		return nil, fmt.Errorf("WAMPRTC_CONFIG environment variable not set; " +
			"set it to the path of a client config file, or use --config")
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from path over Default. Files ending in
// .json or .jsonc are read as JSON with comments and trailing commas;
// anything else as YAML. Durations are Go duration strings ("20s").
func LoadFile(path string) (*Client, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		data = jsonc.ToJSON(data)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	cfg.expandVariables()
	return cfg, nil
}

// EffectiveRealm returns Realm, or the router realm when unset.
func (c *Client) EffectiveRealm() string {
	if c.Realm != "" {
		return c.Realm
	}
	return c.Router.Realm
}

// EffectiveSubprotocol returns Subprotocol, or the WAMP subprotocol of
// Serializer when unset.
func (c *Client) EffectiveSubprotocol() string {
	if c.Subprotocol != "" {
		return c.Subprotocol
	}
	return "wamp.2." + c.Serializer
}

// expandVariables expands ${VAR} and ${VAR:-default} in the router URL
// and in credentials, so secrets can stay out of the file.
func (c *Client) expandVariables() {
	c.Router.URL = expandVars(c.Router.URL)
	for _, auth := range []*AuthConfig{&c.Auth, &c.Router.Auth} {
		auth.AuthID = expandVars(auth.AuthID)
		auth.Ticket = expandVars(auth.Ticket)
		auth.Secret = expandVars(auth.Secret)
		auth.PrivateKey = expandVars(auth.PrivateKey)
	}
	c.ICE.Credential = expandVars(c.ICE.Credential)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if value := os.Getenv(parts[1]); value != "" {
			return value
		}
		return parts[2]
	})
}

// Validate checks the configuration for errors.
func (c *Client) Validate() error {
	var errs []error

	if c.Router.URL == "" {
		errs = append(errs, errors.New("router.url is required"))
	} else if !strings.HasPrefix(c.Router.URL, "ws://") && !strings.HasPrefix(c.Router.URL, "wss://") {
		errs = append(errs, fmt.Errorf("router.url must be a ws:// or wss:// URL, got %q", c.Router.URL))
	}
	if c.Router.Realm == "" {
		errs = append(errs, errors.New("router.realm is required"))
	}
	if !slices.Contains(serializers, c.Router.Serializer) {
		errs = append(errs, fmt.Errorf("router.serializer must be one of: %v", serializers))
	}
	if !slices.Contains(serializers, c.Serializer) {
		errs = append(errs, fmt.Errorf("serializer must be one of: %v", serializers))
	}

	if c.Signaling.OfferProcedure == "" {
		errs = append(errs, errors.New("signaling.offer_procedure is required"))
	}
	if c.Signaling.AnswererOnCandidate == "" {
		errs = append(errs, errors.New("signaling.answerer_on_candidate is required"))
	}
	if c.Signaling.OffererOnCandidate == "" {
		errs = append(errs, errors.New("signaling.offerer_on_candidate is required"))
	}

	errs = append(errs, c.Auth.validate("auth")...)
	errs = append(errs, c.Router.Auth.validate("router.auth")...)

	if c.Channel.OpenTimeout <= 0 {
		errs = append(errs, errors.New("channel.open_timeout must be positive"))
	}
	if c.Channel.GatherWindow <= 0 {
		errs = append(errs, errors.New("channel.gather_window must be positive"))
	}
	if c.Channel.FlushInterval <= 0 {
		errs = append(errs, errors.New("channel.flush_interval must be positive"))
	}
	if c.Channel.MaxFramePayload <= 0 {
		errs = append(errs, errors.New("channel.max_frame_payload must be positive"))
	}
	if c.Channel.MaxMessageSize < c.Channel.MaxFramePayload {
		errs = append(errs, errors.New("channel.max_message_size must be at least channel.max_frame_payload"))
	}
	if c.CallTimeout < 0 {
		errs = append(errs, errors.New("call_timeout must not be negative"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

func (a *AuthConfig) validate(prefix string) []error {
	var errs []error
	switch a.Method {
	case "", AuthAnonymous:
	case AuthTicket:
		if a.Ticket == "" && a.TicketBuffer == nil {
			errs = append(errs, fmt.Errorf("%s.ticket is required for ticket authentication", prefix))
		}
	case AuthWAMPCRA:
		if a.AuthID == "" || a.Secret == "" {
			errs = append(errs, fmt.Errorf("%s.authid and %s.secret are required for wampcra", prefix, prefix))
		}
	case AuthCryptosign:
		if a.PrivateKey == "" {
			errs = append(errs, fmt.Errorf("%s.private_key is required for cryptosign", prefix))
		}
	default:
		errs = append(errs, fmt.Errorf("%s.method %q is not one of anonymous, ticket, wampcra, cryptosign", prefix, a.Method))
	}
	return errs
}
