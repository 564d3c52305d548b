// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bureau-foundation/wamprtc/framing"
	"github.com/bureau-foundation/wamprtc/lib/clock"
	"github.com/bureau-foundation/wamprtc/signaling"
	"github.com/bureau-foundation/wamprtc/wamp"
)

// ErrAnswererClosed is returned by Accept and HandleOffer after Close.
var ErrAnswererClosed = errors.New("transport: answerer closed")

// AnswererOptions configures an Answerer.
type AnswererOptions struct {
	// Messenger carries candidate trickle in both directions. The offer
	// procedure itself is registered by the caller with HandleOffer.
	// Required.
	Messenger signaling.Messenger

	// NewEngine creates the engine for each incoming offer. Required.
	NewEngine func() (Engine, error)

	// LocalCandidateTopic receives the answerer's trickled candidates;
	// it is the offerer's RemoteCandidateTopic. Required.
	LocalCandidateTopic string

	// RemoteCandidateTopic carries offerers' trickled candidates. Empty
	// disables the subscription.
	RemoteCandidateTopic string

	ChannelOpenTimeout time.Duration
	GatherWindow       time.Duration
	FlushInterval      time.Duration
	MaxMessageSize     int
	MaxFramePayload    int
	Serializer         wamp.Serializer

	// AcceptBacklog bounds opened peers waiting for Accept. Defaults
	// to 16; a peer that finds the backlog full is closed.
	AcceptBacklog int

	Clock  clock.Clock
	Logger *slog.Logger
}

// Answerer serves offer calls. Each offer gets its own engine and
// peer; once the data channel opens the peer is handed out by Accept.
type Answerer struct {
	options AnswererOptions
	logger  *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	tasks  sync.WaitGroup

	mu           sync.Mutex
	closed       bool
	attempts     map[string]*remoteCandidates
	subscription signaling.Subscription

	peers chan *Peer
}

// NewAnswerer subscribes to the offerers' trickle topic and returns an
// Answerer ready for HandleOffer. Its background work ends with Close.
func NewAnswerer(ctx context.Context, options AnswererOptions) (*Answerer, error) {
	switch {
	case options.Messenger == nil:
		return nil, errors.New("transport: AnswererOptions.Messenger is required")
	case options.NewEngine == nil:
		return nil, errors.New("transport: AnswererOptions.NewEngine is required")
	case options.LocalCandidateTopic == "":
		return nil, errors.New("transport: AnswererOptions.LocalCandidateTopic is required")
	}
	if options.ChannelOpenTimeout <= 0 {
		options.ChannelOpenTimeout = DefaultChannelOpenTimeout
	}
	if options.GatherWindow <= 0 {
		options.GatherWindow = DefaultGatherWindow
	}
	if options.FlushInterval <= 0 {
		options.FlushInterval = DefaultFlushInterval
	}
	if options.MaxMessageSize <= 0 {
		options.MaxMessageSize = framing.DefaultMaxMessageSize
	}
	if options.MaxFramePayload <= 0 {
		options.MaxFramePayload = framing.DefaultMaxChunkPayload
	}
	if options.AcceptBacklog <= 0 {
		options.AcceptBacklog = 16
	}
	if options.Clock == nil {
		options.Clock = clock.Real()
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}

	answererCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	a := &Answerer{
		options:  options,
		logger:   options.Logger,
		ctx:      answererCtx,
		cancel:   cancel,
		attempts: make(map[string]*remoteCandidates),
		peers:    make(chan *Peer, options.AcceptBacklog),
	}

	if options.RemoteCandidateTopic != "" {
		subscription, err := options.Messenger.Subscribe(ctx, options.RemoteCandidateTopic, a.handleTrickle)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("subscribing to %s: %w", options.RemoteCandidateTopic, err)
		}
		a.subscription = subscription
	}
	return a, nil
}

// HandleOffer answers one offer call. Its signature matches
// signaling.ProcedureHandler so it can be registered directly.
//
// Arguments are [requestId, envelope]; the result is the answer
// envelope carrying the candidates gathered within the window.
func (a *Answerer) HandleOffer(ctx context.Context, args []any) ([]any, error) {
	if a.ctx.Err() != nil {
		return nil, ErrAnswererClosed
	}
	if len(args) < 2 {
		return nil, &signaling.MalformedPayloadError{Field: "args", Err: errTrickleArity}
	}
	requestID, ok := args[0].(string)
	if !ok || requestID == "" {
		return nil, &signaling.MalformedPayloadError{Field: "args[0]", Err: errNotString}
	}
	payload, ok := args[1].(string)
	if !ok {
		return nil, &signaling.MalformedPayloadError{Field: "args[1]", Err: errNotString}
	}
	logger := a.logger.With("request_id", requestID)
	offer, err := signaling.DecodeEnvelope(payload, signaling.SDPTypeOffer)
	if err != nil {
		logger.Warn("malformed offer", "field", signaling.MalformedField(err), "error", err)
		return nil, err
	}

	engine, err := a.options.NewEngine()
	if err != nil {
		return nil, fmt.Errorf("creating engine: %w", err)
	}
	answer, err := a.answer(ctx, requestID, engine, offer, logger)
	if err != nil {
		engine.Close()
		logger.Warn("answering offer failed", "error", err)
		return nil, err
	}
	return []any{answer}, nil
}

// answer runs the answering side of one attempt up to the reply. The
// channel-open wait continues in the background.
func (a *Answerer) answer(ctx context.Context, requestID string, engine Engine, offer signaling.Envelope, logger *slog.Logger) (string, error) {
	relay := signaling.NewRelay()
	remote := newRemoteCandidates(engine, logger)
	peer := NewPeer(engine, PeerOptions{
		MaxFramePayload: a.options.MaxFramePayload,
		MaxMessageSize:  a.options.MaxMessageSize,
		Serializer:      a.options.Serializer,
		Logger:          logger,
	})
	opened := make(chan struct{})
	var openOnce sync.Once

	engine.OnLocalCandidate(func(candidate signaling.Candidate) {
		logger.Debug("local candidate", "candidate", candidate)
		relay.OnLocalCandidate(candidate)
	})
	engine.OnChannelState(func(state ChannelState) {
		switch state {
		case ChannelOpen:
			openOnce.Do(func() { close(opened) })
		case ChannelClosed:
			peer.Shutdown(ErrPeerClosed)
		}
	})
	engine.OnMessage(peer.Deliver)

	a.mu.Lock()
	if _, exists := a.attempts[requestID]; exists {
		a.mu.Unlock()
		return "", fmt.Errorf("duplicate offer for request %s", requestID)
	}
	a.attempts[requestID] = remote
	a.mu.Unlock()

	attemptCtx, cancelAttempt := context.WithCancel(a.ctx)
	finish := func() {
		cancelAttempt()
		a.mu.Lock()
		delete(a.attempts, requestID)
		a.mu.Unlock()
	}

	answer, err := engine.CreateAnswer(ctx, offer.Description)
	if err != nil {
		finish()
		return "", err
	}
	remote.apply(offer.Candidates)
	remote.release()
	if !a.startTask(func() { remote.run(attemptCtx) }) {
		finish()
		return "", ErrAnswererClosed
	}

	select {
	case <-a.options.Clock.After(a.options.GatherWindow):
	case <-attemptCtx.Done():
		finish()
		return "", ErrAnswererClosed
	case <-ctx.Done():
		finish()
		return "", ctx.Err()
	}
	initial := relay.DrainInitialBatch()
	relay.EnableStreaming()
	if !a.startTask(func() {
		flushLocalCandidates(attemptCtx, relay, a.options.Messenger, a.options.LocalCandidateTopic,
			requestID, a.options.FlushInterval, a.options.Clock, logger)
	}) {
		finish()
		return "", ErrAnswererClosed
	}

	reply, err := signaling.EncodeEnvelope(signaling.Envelope{
		RequestID:   requestID,
		Description: answer,
		Candidates:  initial,
	})
	if err != nil {
		finish()
		return "", err
	}

	timeout := a.options.Clock.After(a.options.ChannelOpenTimeout)
	started := a.startTask(func() {
		defer finish()
		select {
		case <-opened:
		case <-timeout:
			logger.Warn("data channel did not open", "timeout", a.options.ChannelOpenTimeout)
			engine.Close()
			return
		case <-attemptCtx.Done():
			engine.Close()
			return
		}
		logger.Info("data channel open")
		select {
		case a.peers <- peer:
		default:
			logger.Warn("accept backlog full, closing peer")
			peer.Close()
			engine.Close()
		}
	})
	if !started {
		finish()
		return "", ErrAnswererClosed
	}
	logger.Info("offer answered", "count", len(initial))
	return reply, nil
}

// handleTrickle routes an offerer's trickle event to its attempt.
func (a *Answerer) handleTrickle(args []any) {
	requestID, candidates, err := parseTrickle(args)
	if err != nil {
		a.logger.Warn("malformed candidate trickle",
			"request_id", requestID,
			"field", signaling.MalformedField(err),
			"error", err,
		)
		return
	}
	a.mu.Lock()
	remote := a.attempts[requestID]
	a.mu.Unlock()
	if remote == nil {
		a.logger.Debug("trickle for unknown request", "request_id", requestID)
		return
	}
	remote.add(candidates)
}

// Accept returns the next peer whose data channel opened. The caller
// owns the peer and closes it.
func (a *Answerer) Accept(ctx context.Context) (*Peer, error) {
	select {
	case peer := <-a.peers:
		return peer, nil
	case <-a.ctx.Done():
		return nil, ErrAnswererClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close stops in-flight attempts, unsubscribes and closes peers not
// yet accepted.
func (a *Answerer) Close() error {
	a.mu.Lock()
	a.closed = true
	a.mu.Unlock()
	a.cancel()
	a.tasks.Wait()

	var err error
	if a.subscription != nil {
		ctx, cancel := context.WithTimeout(context.Background(), unsubscribeTimeout)
		err = a.subscription.Unsubscribe(ctx)
		cancel()
		a.subscription = nil
	}
	for {
		select {
		case peer := <-a.peers:
			peer.Close()
		default:
			return err
		}
	}
}

// startTask runs task in the background unless Close has begun, in
// which case it reports false and task never runs.
func (a *Answerer) startTask(task func()) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return false
	}
	a.tasks.Add(1)
	go func() {
		defer a.tasks.Done()
		task()
	}()
	return true
}
