// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package wamp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// SessionOptions tunes a Session.
type SessionOptions struct {
	Logger *slog.Logger

	// CallTimeout bounds every Call when positive. An expired call
	// returns an error wrapping context.DeadlineExceeded.
	CallTimeout time.Duration

	// AcknowledgePublish makes Publish wait for the router's
	// PUBLISHED, so that rejected publications surface as errors.
	AcknowledgePublish bool
}

// Session is an established WAMP session acting as caller, publisher
// and subscriber over a Transport. A background goroutine reads from
// the transport until the session ends; event handlers run on that
// goroutine and must not block.
type Session struct {
	transport  Transport
	serializer Serializer
	details    SessionDetails
	options    SessionOptions
	logger     *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu            sync.Mutex
	nextRequestID int64
	pending       map[int64]chan Message
	subscriptions map[int64][]*Subscription
	leaving       bool
	goodbye       chan struct{}
	goodbyeOnce   sync.Once

	done      chan struct{}
	closeOnce sync.Once
	err       error
}

// NewSession starts a session over a transport whose handshake has
// completed with details.
func NewSession(transport Transport, serializer Serializer, details SessionDetails, options SessionOptions) *Session {
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		transport:     transport,
		serializer:    serializer,
		details:       details,
		options:       options,
		logger:        logger.With("session", details.ID, "realm", details.Realm),
		ctx:           ctx,
		cancel:        cancel,
		pending:       make(map[int64]chan Message),
		subscriptions: make(map[int64][]*Subscription),
		goodbye:       make(chan struct{}),
		done:          make(chan struct{}),
	}
	go s.readLoop()
	return s
}

// Details returns the session's identity.
func (s *Session) Details() SessionDetails { return s.details }

// ID returns the router-assigned session id.
func (s *Session) ID() int64 { return s.details.ID }

// Serializer returns the serializer the session speaks.
func (s *Session) Serializer() Serializer { return s.serializer }

// Done is closed when the session ends.
func (s *Session) Done() <-chan struct{} { return s.done }

// Err returns why the session ended, or nil while it is running.
func (s *Session) Err() error {
	select {
	case <-s.done:
		return s.err
	default:
		return nil
	}
}

// Call invokes procedure with positional arguments and waits for the
// result. An ERROR reply is returned as a *RemoteError.
func (s *Session) Call(ctx context.Context, procedure string, args ...any) (*Result, error) {
	if s.options.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.options.CallTimeout)
		defer cancel()
	}
	id := s.newRequestID()
	reply, err := s.request(ctx, id, &Call{RequestID: id, Procedure: procedure, Args: args})
	if err != nil {
		return nil, fmt.Errorf("wamp: calling %s: %w", procedure, err)
	}
	switch reply := reply.(type) {
	case *Result:
		return reply, nil
	case *Error:
		return nil, fmt.Errorf("wamp: calling %s: %w", procedure, remoteError(reply))
	}
	return nil, fmt.Errorf("%w: %s in reply to CALL", ErrProtocolViolation, reply.Type())
}

// Publish sends an event to topic. With AcknowledgePublish set it waits
// for the router to accept the publication.
func (s *Session) Publish(ctx context.Context, topic string, args ...any) error {
	id := s.newRequestID()
	message := &Publish{RequestID: id, Topic: topic, Args: args}
	if !s.options.AcknowledgePublish {
		if err := s.send(ctx, message); err != nil {
			return fmt.Errorf("wamp: publishing to %s: %w", topic, err)
		}
		return nil
	}

	message.Options = map[string]any{"acknowledge": true}
	reply, err := s.request(ctx, id, message)
	if err != nil {
		return fmt.Errorf("wamp: publishing to %s: %w", topic, err)
	}
	switch reply := reply.(type) {
	case *Published:
		return nil
	case *Error:
		return fmt.Errorf("wamp: publishing to %s: %w", topic, remoteError(reply))
	}
	return fmt.Errorf("%w: %s in reply to PUBLISH", ErrProtocolViolation, reply.Type())
}

// Subscription is one handler registered on a topic.
type Subscription struct {
	session *Session
	id      int64
	topic   string
	handler func(*Event)
	once    sync.Once
}

// Topic returns the subscribed topic.
func (sub *Subscription) Topic() string { return sub.topic }

// Subscribe registers handler for events published to topic.
func (s *Session) Subscribe(ctx context.Context, topic string, handler func(*Event)) (*Subscription, error) {
	id := s.newRequestID()
	reply, err := s.request(ctx, id, &Subscribe{RequestID: id, Topic: topic})
	if err != nil {
		return nil, fmt.Errorf("wamp: subscribing to %s: %w", topic, err)
	}
	switch reply := reply.(type) {
	case *Subscribed:
		sub := &Subscription{session: s, id: reply.SubscriptionID, topic: topic, handler: handler}
		s.mu.Lock()
		s.subscriptions[sub.id] = append(s.subscriptions[sub.id], sub)
		s.mu.Unlock()
		return sub, nil
	case *Error:
		return nil, fmt.Errorf("wamp: subscribing to %s: %w", topic, remoteError(reply))
	}
	return nil, fmt.Errorf("%w: %s in reply to SUBSCRIBE", ErrProtocolViolation, reply.Type())
}

// Unsubscribe removes the handler. The router subscription is released
// when its last local handler is removed. Calling Unsubscribe again is
// a no-op.
func (sub *Subscription) Unsubscribe(ctx context.Context) error {
	err := error(nil)
	sub.once.Do(func() { err = sub.session.unsubscribe(ctx, sub) })
	return err
}

func (s *Session) unsubscribe(ctx context.Context, sub *Subscription) error {
	s.mu.Lock()
	handlers := s.subscriptions[sub.id]
	for i, registered := range handlers {
		if registered == sub {
			handlers = append(handlers[:i:i], handlers[i+1:]...)
			break
		}
	}
	if len(handlers) > 0 {
		s.subscriptions[sub.id] = handlers
		s.mu.Unlock()
		return nil
	}
	delete(s.subscriptions, sub.id)
	s.mu.Unlock()

	select {
	case <-s.done:
		return nil
	default:
	}
	id := s.newRequestID()
	reply, err := s.request(ctx, id, &Unsubscribe{RequestID: id, SubscriptionID: sub.id})
	if err != nil {
		return fmt.Errorf("wamp: unsubscribing from %s: %w", sub.topic, err)
	}
	if errorReply, ok := reply.(*Error); ok {
		return fmt.Errorf("wamp: unsubscribing from %s: %w", sub.topic, remoteError(errorReply))
	}
	return nil
}

// Leave says GOODBYE, waits for the router's reply or ctx, and closes
// the session.
func (s *Session) Leave(ctx context.Context) error {
	s.mu.Lock()
	s.leaving = true
	s.mu.Unlock()

	err := s.send(ctx, &Goodbye{Reason: "wamp.close.close_realm"})
	if err == nil {
		select {
		case <-s.goodbye:
		case <-s.done:
		case <-ctx.Done():
			err = ctx.Err()
		}
	}
	s.shutdown(ErrSessionClosed)
	if err != nil {
		return fmt.Errorf("wamp: leaving realm %s: %w", s.details.Realm, err)
	}
	return nil
}

// Close ends the session without a GOODBYE exchange and closes the
// transport.
func (s *Session) Close() error {
	s.shutdown(ErrSessionClosed)
	return nil
}

func (s *Session) newRequestID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextRequestID++
	return s.nextRequestID
}

// request sends message and waits for the reply correlated by id.
func (s *Session) request(ctx context.Context, id int64, message Message) (Message, error) {
	reply := make(chan Message, 1)
	s.mu.Lock()
	s.pending[id] = reply
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.pending, id)
		s.mu.Unlock()
	}()

	if err := s.send(ctx, message); err != nil {
		return nil, err
	}
	select {
	case message := <-reply:
		return message, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.done:
		return nil, s.err
	}
}

func (s *Session) send(ctx context.Context, message Message) error {
	select {
	case <-s.done:
		return s.err
	default:
	}
	data, err := s.serializer.Serialize(message)
	if err != nil {
		return err
	}
	return s.transport.Send(ctx, data)
}

func (s *Session) readLoop() {
	for {
		data, err := s.transport.Receive(s.ctx)
		if err != nil {
			if s.ctx.Err() == nil && !errors.Is(err, ErrSessionClosed) {
				s.logger.Warn("session transport failed", "error", err)
			}
			s.shutdown(err)
			return
		}
		message, err := s.serializer.Deserialize(data)
		if err != nil {
			s.logger.Warn("closing session after undecodable message", "error", err)
			s.shutdown(fmt.Errorf("%w: %v", ErrProtocolViolation, err))
			return
		}
		s.dispatch(message)
	}
}

func (s *Session) dispatch(message Message) {
	switch message := message.(type) {
	case *Result:
		s.deliver(message.RequestID, message)
	case *Error:
		s.deliver(message.RequestID, message)
	case *Published:
		s.deliver(message.RequestID, message)
	case *Subscribed:
		s.deliver(message.RequestID, message)
	case *Unsubscribed:
		s.deliver(message.RequestID, message)

	case *Event:
		s.mu.Lock()
		handlers := append([]*Subscription(nil), s.subscriptions[message.SubscriptionID]...)
		s.mu.Unlock()
		for _, sub := range handlers {
			sub.handler(message)
		}

	case *Goodbye:
		s.mu.Lock()
		leaving := s.leaving
		s.mu.Unlock()
		if leaving {
			s.goodbyeOnce.Do(func() { close(s.goodbye) })
			return
		}
		s.logger.Info("router closed session", "reason", message.Reason)
		s.send(s.ctx, &Goodbye{Reason: "wamp.close.goodbye_and_out"})
		s.shutdown(ErrSessionClosed)

	case *Abort:
		s.shutdown(&AbortError{Reason: message.Reason, Details: message.Details})

	default:
		s.logger.Warn("ignoring unexpected message", "type", message.Type())
	}
}

func (s *Session) deliver(id int64, message Message) {
	s.mu.Lock()
	reply, ok := s.pending[id]
	s.mu.Unlock()
	if !ok {
		s.logger.Debug("dropping reply for unknown request", "type", message.Type(), "request", id)
		return
	}
	select {
	case reply <- message:
	default:
	}
}

func (s *Session) shutdown(err error) {
	s.closeOnce.Do(func() {
		s.err = err
		s.cancel()
		if closeErr := s.transport.Close(); closeErr != nil {
			s.logger.Debug("closing session transport", "error", closeErr)
		}
		close(s.done)
	})
}

func remoteError(message *Error) *RemoteError {
	return &RemoteError{URI: message.URI, Args: message.Args, KwArgs: message.KwArgs, Details: message.Details}
}
