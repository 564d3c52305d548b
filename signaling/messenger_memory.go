// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package signaling

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrNoSuchProcedure is returned by MemoryBus.Call for a procedure
// nobody registered.
var ErrNoSuchProcedure = errors.New("signaling: no such procedure")

// ProcedureHandler serves calls registered on a MemoryBus.
type ProcedureHandler func(ctx context.Context, args []any) ([]any, error)

// MemoryBus is an in-process Messenger. Both ends of a connection can
// share one bus, so an offerer and an answerer in the same process
// negotiate without a router.
//
// Publish delivers synchronously to the subscribers present when it is
// called, in subscription order, outside the bus lock.
type MemoryBus struct {
	mu         sync.Mutex
	procedures map[string]ProcedureHandler
	topics     map[string][]*memorySubscription
}

var _ Messenger = (*MemoryBus)(nil)

// NewMemoryBus returns an empty bus.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{
		procedures: make(map[string]ProcedureHandler),
		topics:     make(map[string][]*memorySubscription),
	}
}

// Register serves procedure with handler.
func (b *MemoryBus) Register(procedure string, handler ProcedureHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.procedures[procedure]; exists {
		return fmt.Errorf("signaling: procedure %s already registered", procedure)
	}
	b.procedures[procedure] = handler
	return nil
}

// Unregister stops serving procedure.
func (b *MemoryBus) Unregister(procedure string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.procedures, procedure)
}

// Call runs the registered handler. If ctx ends first, Call returns
// ctx's error without waiting for the handler.
func (b *MemoryBus) Call(ctx context.Context, procedure string, args ...any) ([]any, error) {
	b.mu.Lock()
	handler, ok := b.procedures[procedure]
	b.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoSuchProcedure, procedure)
	}

	type outcome struct {
		results []any
		err     error
	}
	done := make(chan outcome, 1)
	go func() {
		results, err := handler(ctx, args)
		done <- outcome{results, err}
	}()
	select {
	case result := <-done:
		return result.results, result.err
	case <-ctx.Done():
		return nil, fmt.Errorf("calling %s: %w", procedure, ctx.Err())
	}
}

// Publish delivers args to the current subscribers of topic.
func (b *MemoryBus) Publish(ctx context.Context, topic string, args ...any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	subscribers := append([]*memorySubscription(nil), b.topics[topic]...)
	b.mu.Unlock()

	for _, subscriber := range subscribers {
		subscriber.handler(args)
	}
	return nil
}

// Subscribe registers handler on topic.
func (b *MemoryBus) Subscribe(_ context.Context, topic string, handler func(args []any)) (Subscription, error) {
	subscription := &memorySubscription{bus: b, topic: topic, handler: handler}
	b.mu.Lock()
	b.topics[topic] = append(b.topics[topic], subscription)
	b.mu.Unlock()
	return subscription, nil
}

// SubscriberCount returns the number of live subscriptions on topic.
func (b *MemoryBus) SubscriberCount(topic string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.topics[topic])
}

type memorySubscription struct {
	bus     *MemoryBus
	topic   string
	handler func(args []any)
}

func (s *memorySubscription) Unsubscribe(context.Context) error {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	subscribers := s.bus.topics[s.topic]
	for i, subscriber := range subscribers {
		if subscriber == s {
			s.bus.topics[s.topic] = append(subscribers[:i:i], subscribers[i+1:]...)
			break
		}
	}
	if len(s.bus.topics[s.topic]) == 0 {
		delete(s.bus.topics, s.topic)
	}
	return nil
}
