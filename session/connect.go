// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bureau-foundation/wamprtc/lib/config"
	"github.com/bureau-foundation/wamprtc/signaling"
	"github.com/bureau-foundation/wamprtc/transport"
	"github.com/bureau-foundation/wamprtc/wamp"
)

// leaveTimeout bounds the GOODBYE exchange on the signaling session
// when a Client closes.
const leaveTimeout = 5 * time.Second

// Client is a WAMP session running over a WebRTC data channel. The
// embedded [wamp.Session] provides Call, Publish and Subscribe.
type Client struct {
	*wamp.Session

	base       *BaseSession
	connection *transport.Connection
	signaling  *wamp.Session
	logger     *slog.Logger

	closeOnce sync.Once
	closeErr  error
}

// Base returns the handshake result: identity, serializer and the raw
// framed transport.
func (c *Client) Base() *BaseSession { return c.base }

// Connection returns the data channel connection.
func (c *Client) Connection() *transport.Connection { return c.connection }

// Signaling returns the router session signaling ran over. It stays
// joined until Close.
func (c *Client) Signaling() *wamp.Session { return c.signaling }

// Close ends the peer session, closes the data channel and leaves the
// signaling realm.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		var errs []error
		c.Session.Close()
		if err := c.connection.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing connection: %w", err))
		}
		ctx, cancel := context.WithTimeout(context.Background(), leaveTimeout)
		defer cancel()
		if err := c.signaling.Leave(ctx); err != nil {
			c.logger.Debug("leaving signaling realm", "error", err)
		}
		c.closeErr = errors.Join(errs...)
	})
	return c.closeErr
}

// Connect joins the signaling realm on cfg.Router, dials a data
// channel through it and joins cfg's realm over the channel. The
// signaling session is closed again if any later step fails.
func Connect(ctx context.Context, cfg *config.Client, logger *slog.Logger) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	routerSerializer, err := wamp.NewSerializer(cfg.Router.Serializer)
	if err != nil {
		return nil, err
	}
	peerSerializer, err := wamp.NewSerializer(cfg.Serializer)
	if err != nil {
		return nil, err
	}
	routerAuth, err := NewAuthenticator(cfg.Router.Auth)
	if err != nil {
		return nil, fmt.Errorf("router auth: %w", err)
	}
	peerAuth, err := NewAuthenticator(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("auth: %w", err)
	}

	signalingSession, err := joinRouter(ctx, cfg, routerSerializer, routerAuth, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("joined signaling realm",
		"url", cfg.Router.URL,
		"realm", cfg.Router.Realm,
		"session", signalingSession.ID(),
	)

	engine, err := transport.NewPionEngine(transport.PionOptions{
		ICE:             transport.ICEConfigFromURLs(cfg.ICE.Servers, cfg.ICE.Username, cfg.ICE.Credential),
		Label:           cfg.Channel.Label,
		Protocol:        cfg.EffectiveSubprotocol(),
		Negotiated:      cfg.Channel.Negotiated,
		ChannelID:       cfg.Channel.ID,
		IncludeLoopback: cfg.ICE.IncludeLoopback,
		Logger:          logger,
	})
	if err != nil {
		signalingSession.Close()
		return nil, err
	}

	var base *BaseSession
	connection, err := transport.Dial(ctx, transport.Options{
		Messenger:            signaling.NewWAMPMessenger(signalingSession),
		Engine:               engine,
		OfferProcedure:       cfg.Signaling.OfferProcedure,
		LocalCandidateTopic:  cfg.Signaling.AnswererOnCandidate,
		RemoteCandidateTopic: cfg.Signaling.OffererOnCandidate,
		ChannelOpenTimeout:   cfg.Channel.OpenTimeout,
		GatherWindow:         cfg.Channel.GatherWindow,
		FlushInterval:        cfg.Channel.FlushInterval,
		MaxMessageSize:       cfg.Channel.MaxMessageSize,
		MaxFramePayload:      cfg.Channel.MaxFramePayload,
		Serializer:           peerSerializer,
		Handshake: func(ctx context.Context, peer *transport.Peer) error {
			joined, err := Join(ctx, peer, cfg.EffectiveRealm(), peerSerializer, peerAuth)
			base = joined
			return err
		},
		Logger: logger,
	})
	if err != nil {
		signalingSession.Close()
		return nil, err
	}
	logger.Info("joined realm over data channel",
		"realm", base.Realm(),
		"session", base.ID(),
		"authid", base.AuthID(),
		"authrole", base.AuthRole(),
	)

	return &Client{
		Session: wamp.NewSession(base, peerSerializer, base.Details(), wamp.SessionOptions{
			Logger:      logger,
			CallTimeout: cfg.CallTimeout,
		}),
		base:       base,
		connection: connection,
		signaling:  signalingSession,
		logger:     logger,
	}, nil
}

func joinRouter(ctx context.Context, cfg *config.Client, serializer wamp.Serializer, authenticator wamp.ClientAuthenticator, logger *slog.Logger) (*wamp.Session, error) {
	websocket, err := wamp.DialWebSocket(ctx, cfg.Router.URL, serializer)
	if err != nil {
		return nil, err
	}
	joined, err := Join(ctx, websocket, cfg.Router.Realm, serializer, authenticator)
	if err != nil {
		websocket.Close()
		return nil, fmt.Errorf("joining signaling realm %s: %w", cfg.Router.Realm, err)
	}
	return wamp.NewSession(joined, serializer, joined.Details(), wamp.SessionOptions{
		Logger:      logger,
		CallTimeout: cfg.CallTimeout,
	}), nil
}
