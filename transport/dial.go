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

	"github.com/google/uuid"

	"github.com/bureau-foundation/wamprtc/framing"
	"github.com/bureau-foundation/wamprtc/lib/clock"
	"github.com/bureau-foundation/wamprtc/signaling"
	"github.com/bureau-foundation/wamprtc/wamp"
)

// Defaults for the Options timing fields.
const (
	DefaultChannelOpenTimeout = 20 * time.Second
	DefaultGatherWindow       = 200 * time.Millisecond
	DefaultFlushInterval      = 100 * time.Millisecond
)

// unsubscribeTimeout bounds the trickle unsubscribe on teardown, which
// runs even when the dial context is already done.
const unsubscribeTimeout = 5 * time.Second

// Options configures one outbound connection attempt.
type Options struct {
	// Messenger carries signaling. Required.
	Messenger signaling.Messenger

	// Engine is the native peer connection for this attempt, owned by
	// the attempt from here on. Required.
	Engine Engine

	// OfferProcedure is the remote's offer-handling procedure.
	// Required.
	OfferProcedure string

	// LocalCandidateTopic receives this side's trickled candidates.
	// Required.
	LocalCandidateTopic string

	// RemoteCandidateTopic carries the remote's trickled candidates.
	// Empty disables the trickle subscription.
	RemoteCandidateTopic string

	// RequestID correlates this attempt's signaling traffic. Defaults
	// to a random UUID.
	RequestID string

	ChannelOpenTimeout time.Duration
	GatherWindow       time.Duration
	FlushInterval      time.Duration
	MaxMessageSize     int
	MaxFramePayload    int

	// Serializer is handed to the Peer for SendMessage and
	// ReceiveMessage.
	Serializer wamp.Serializer

	// Handshake runs on the open peer. The attempt is Established when
	// it returns nil. Nil skips straight to Established.
	Handshake func(ctx context.Context, peer *Peer) error

	// OnPhase observes every phase transition, in order, on the
	// dialing goroutine or on the goroutine calling Close.
	OnPhase func(Phase)

	Clock  clock.Clock
	Logger *slog.Logger
}

func (o *Options) validate() error {
	switch {
	case o.Messenger == nil:
		return errors.New("transport: Options.Messenger is required")
	case o.Engine == nil:
		return errors.New("transport: Options.Engine is required")
	case o.OfferProcedure == "":
		return errors.New("transport: Options.OfferProcedure is required")
	case o.LocalCandidateTopic == "":
		return errors.New("transport: Options.LocalCandidateTopic is required")
	}
	return nil
}

func (o *Options) setDefaults() {
	if o.RequestID == "" {
		o.RequestID = uuid.NewString()
	}
	if o.ChannelOpenTimeout <= 0 {
		o.ChannelOpenTimeout = DefaultChannelOpenTimeout
	}
	if o.GatherWindow <= 0 {
		o.GatherWindow = DefaultGatherWindow
	}
	if o.FlushInterval <= 0 {
		o.FlushInterval = DefaultFlushInterval
	}
	if o.MaxMessageSize <= 0 {
		o.MaxMessageSize = framing.DefaultMaxMessageSize
	}
	if o.MaxFramePayload <= 0 {
		o.MaxFramePayload = framing.DefaultMaxChunkPayload
	}
	if o.Clock == nil {
		o.Clock = clock.Real()
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Connection is an established outbound connection.
type Connection struct {
	requestID string
	engine    Engine
	peer      *Peer
	logger    *slog.Logger
	onPhase   func(Phase)

	mu    sync.Mutex
	phase Phase

	closeOnce sync.Once
	closeErr  error
}

// RequestID returns the id that correlated this attempt's signaling.
func (c *Connection) RequestID() string { return c.requestID }

// Peer returns the framed message peer over the data channel.
func (c *Connection) Peer() *Peer { return c.peer }

// Phase returns the current phase.
func (c *Connection) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Done is closed when the data channel closes or the peer fails.
func (c *Connection) Done() <-chan struct{} { return c.peer.Done() }

// Close closes the peer and the engine and moves to Closed.
func (c *Connection) Close() error {
	c.closeOnce.Do(func() {
		c.setPhase(PhaseClosed)
		c.closeErr = c.peer.Close()
		if err := c.engine.Close(); err != nil && c.closeErr == nil {
			c.closeErr = err
		}
	})
	return c.closeErr
}

func (c *Connection) setPhase(phase Phase) {
	c.mu.Lock()
	c.phase = phase
	c.mu.Unlock()
	c.logger.Debug("connection phase", "phase", phase.String())
	if c.onPhase != nil {
		c.onPhase(phase)
	}
}

// attempt is the state of Dial between Created and a terminal phase.
type attempt struct {
	*Connection
	options Options
	relay   *signaling.Relay
	remote  *remoteCandidates

	opened     chan struct{}
	closed     chan struct{}
	openOnce   sync.Once
	closedOnce sync.Once

	cancelTasks  context.CancelFunc
	tasks        sync.WaitGroup
	subscription signaling.Subscription
}

// Dial runs one outbound connection attempt: it creates the offer,
// gathers for the configured window, exchanges offer and answer through
// OfferProcedure, trickles candidates both ways, waits for the data
// channel to open and runs the handshake. It returns once the
// connection is Established, or the error that moved it to Failed. No
// step is retried.
//
// A failed offer call that wraps context.DeadlineExceeded is reported
// as ErrSignalingTimeout; a channel that does not open in time as
// ErrChannelOpenTimeout; a malformed answer as a
// signaling.MalformedPayloadError.
func Dial(ctx context.Context, options Options) (*Connection, error) {
	if err := options.validate(); err != nil {
		return nil, err
	}
	options.setDefaults()
	logger := options.Logger.With("request_id", options.RequestID)

	a := &attempt{
		Connection: &Connection{
			requestID: options.RequestID,
			engine:    options.Engine,
			logger:    logger,
			onPhase:   options.OnPhase,
		},
		options: options,
		relay:   signaling.NewRelay(),
		remote:  newRemoteCandidates(options.Engine, logger),
		opened:  make(chan struct{}),
		closed:  make(chan struct{}),
	}
	a.peer = NewPeer(options.Engine, PeerOptions{
		MaxFramePayload: options.MaxFramePayload,
		MaxMessageSize:  options.MaxMessageSize,
		Serializer:      options.Serializer,
		Logger:          logger,
	})

	if err := a.run(ctx); err != nil {
		a.fail(err)
		return nil, err
	}
	return a.Connection, nil
}

func (a *attempt) run(ctx context.Context) error {
	options := a.options
	a.setPhase(PhaseCreated)

	options.Engine.OnLocalCandidate(func(candidate signaling.Candidate) {
		a.logger.Debug("local candidate", "candidate", candidate)
		a.relay.OnLocalCandidate(candidate)
	})
	options.Engine.OnChannelState(a.handleChannelState)
	options.Engine.OnMessage(a.peer.Deliver)

	taskCtx, cancel := context.WithCancel(ctx)
	a.cancelTasks = cancel
	a.startTask(func() { a.remote.run(taskCtx) })

	if options.RemoteCandidateTopic != "" {
		subscription, err := subscribeTrickle(ctx, options.Messenger, options.RemoteCandidateTopic, options.RequestID, a.remote, a.logger)
		if err != nil {
			return fmt.Errorf("subscribing to %s: %w", options.RemoteCandidateTopic, err)
		}
		a.subscription = subscription
	}

	offer, err := options.Engine.CreateOffer(ctx)
	if err != nil {
		return fmt.Errorf("creating offer: %w", err)
	}
	a.setPhase(PhaseOfferSent)

	select {
	case <-options.Clock.After(options.GatherWindow):
	case <-ctx.Done():
		return fmt.Errorf("gathering candidates: %w", ctx.Err())
	}
	initial := a.relay.DrainInitialBatch()
	a.relay.EnableStreaming()
	a.startTask(func() {
		flushLocalCandidates(taskCtx, a.relay, options.Messenger, options.LocalCandidateTopic,
			options.RequestID, options.FlushInterval, options.Clock, a.logger)
	})
	a.setPhase(PhaseCandidatesExchanging)

	payload, err := signaling.EncodeEnvelope(signaling.Envelope{
		RequestID:   options.RequestID,
		Description: offer,
		Candidates:  initial,
	})
	if err != nil {
		return err
	}
	a.setPhase(PhaseAwaitingAnswer)
	a.logger.Info("sending offer", "procedure", options.OfferProcedure, "count", len(initial))

	answer, err := a.call(ctx, payload)
	if err != nil {
		return err
	}

	if err := options.Engine.SetRemoteDescription(answer.Description); err != nil {
		return err
	}
	a.remote.apply(answer.Candidates)
	a.remote.release()
	a.logger.Info("answer applied", "count", len(answer.Candidates))

	select {
	case <-a.opened:
	case <-a.closed:
		return fmt.Errorf("%w: data channel closed before opening", ErrPeerClosed)
	case <-options.Clock.After(options.ChannelOpenTimeout):
		return fmt.Errorf("%w after %s", ErrChannelOpenTimeout, options.ChannelOpenTimeout)
	case <-ctx.Done():
		return fmt.Errorf("waiting for data channel: %w", ctx.Err())
	}
	a.setPhase(PhaseChannelOpen)

	if options.Handshake != nil {
		if err := options.Handshake(ctx, a.peer); err != nil {
			return err
		}
	}
	a.stopTasks()
	a.setPhase(PhaseEstablished)
	return nil
}

// call performs the offer round trip and decodes the answer.
func (a *attempt) call(ctx context.Context, payload string) (signaling.Envelope, error) {
	results, err := a.options.Messenger.Call(ctx, a.options.OfferProcedure, a.options.RequestID, payload)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return signaling.Envelope{}, fmt.Errorf("%w: %w", ErrSignalingTimeout, err)
		}
		return signaling.Envelope{}, fmt.Errorf("calling %s: %w", a.options.OfferProcedure, err)
	}

	var answer string
	if len(results) > 0 {
		answer, _ = results[0].(string)
	}
	if answer == "" {
		err := &signaling.MalformedPayloadError{Field: "result[0]", Err: errNotString}
		a.logger.Warn("malformed answer", "field", err.Field, "error", err)
		return signaling.Envelope{}, err
	}
	envelope, err := signaling.DecodeEnvelope(answer, signaling.SDPTypeAnswer)
	if err != nil {
		a.logger.Warn("malformed answer", "field", signaling.MalformedField(err), "error", err)
		return signaling.Envelope{}, err
	}
	return envelope, nil
}

func (a *attempt) handleChannelState(state ChannelState) {
	a.logger.Debug("data channel state", "state", state.String())
	switch state {
	case ChannelOpen:
		a.openOnce.Do(func() { close(a.opened) })
	case ChannelClosed:
		a.closedOnce.Do(func() { close(a.closed) })
		a.peer.Shutdown(ErrPeerClosed)
	}
}

func (a *attempt) startTask(task func()) {
	a.tasks.Add(1)
	go func() {
		defer a.tasks.Done()
		task()
	}()
}

// stopTasks cancels the flush and trickle tasks and waits for them.
func (a *attempt) stopTasks() {
	if a.cancelTasks != nil {
		a.cancelTasks()
	}
	a.tasks.Wait()
	if a.subscription != nil {
		ctx, cancel := context.WithTimeout(context.Background(), unsubscribeTimeout)
		defer cancel()
		if err := a.subscription.Unsubscribe(ctx); err != nil {
			a.logger.Debug("unsubscribing from candidate trickle", "error", err)
		}
		a.subscription = nil
	}
}

func (a *attempt) fail(err error) {
	a.stopTasks()
	a.peer.Shutdown(err)
	a.engine.Close()
	a.logger.Warn("connection attempt failed", "error", err)
	a.setPhase(PhaseFailed)
}
