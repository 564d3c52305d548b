// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package wamp

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
)

// pipeTransport is one end of an in-memory Transport pair.
type pipeTransport struct {
	in     <-chan []byte
	out    chan<- []byte
	closed chan struct{}
	once   *sync.Once
}

func newPipe() (*pipeTransport, *pipeTransport) {
	aToB := make(chan []byte, 64)
	bToA := make(chan []byte, 64)
	closed := make(chan struct{})
	once := &sync.Once{}
	return &pipeTransport{in: bToA, out: aToB, closed: closed, once: once},
		&pipeTransport{in: aToB, out: bToA, closed: closed, once: once}
}

func (p *pipeTransport) Send(ctx context.Context, data []byte) error {
	select {
	case <-p.closed:
		return ErrSessionClosed
	default:
	}
	select {
	case p.out <- data:
		return nil
	case <-p.closed:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *pipeTransport) Receive(ctx context.Context) ([]byte, error) {
	select {
	case data := <-p.in:
		return data, nil
	case <-p.closed:
		return nil, ErrSessionClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *pipeTransport) Close() error {
	p.once.Do(func() { close(p.closed) })
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testRouterOptions admits anonymous clients and the ticket "opensesame".
var testRouterOptions = AcceptorOptions{
	AllowAnonymous: true,
	ValidateTicket: func(realm, authID, ticket string) (string, error) {
		if ticket != "opensesame" {
			return "", errors.New("unknown ticket")
		}
		return "user", nil
	},
}

// serveRouter runs a single-session router on transport until the
// client says GOODBYE or the transport closes. It implements:
//
//	com.example.echo    returns its arguments
//	com.example.fail    replies ERROR com.example.error.failed
//	com.example.silent  never replies
//
// and broadcasts every publication to every subscriber of the topic.
func serveRouter(t *testing.T, transport Transport, serializer Serializer) {
	t.Helper()
	ctx := context.Background()

	acceptor := NewAcceptor(serializer, testRouterOptions)
	for {
		data, err := transport.Receive(ctx)
		if err != nil {
			return
		}
		reply, done, err := acceptor.Receive(data)
		if reply != nil {
			transport.Send(ctx, reply)
		}
		if err != nil {
			return
		}
		if done {
			break
		}
	}

	send := func(message Message) {
		data, err := serializer.Serialize(message)
		if err != nil {
			t.Errorf("router serialize %s: %v", message.Type(), err)
			return
		}
		transport.Send(ctx, data)
	}

	subscriptions := make(map[string]int64)
	var nextID int64 = 100
	for {
		data, err := transport.Receive(ctx)
		if err != nil {
			return
		}
		message, err := serializer.Deserialize(data)
		if err != nil {
			t.Errorf("router deserialize: %v", err)
			return
		}
		switch message := message.(type) {
		case *Call:
			switch message.Procedure {
			case "com.example.echo":
				send(&Result{RequestID: message.RequestID, Args: message.Args, KwArgs: message.KwArgs})
			case "com.example.fail":
				send(&Error{RequestType: TypeCall, RequestID: message.RequestID,
					URI: "com.example.error.failed", Args: []any{"boom"}})
			case "com.example.silent":
			default:
				send(&Error{RequestType: TypeCall, RequestID: message.RequestID, URI: "wamp.error.no_such_procedure"})
			}
		case *Subscribe:
			id, ok := subscriptions[message.Topic]
			if !ok {
				nextID++
				id = nextID
				subscriptions[message.Topic] = id
			}
			send(&Subscribed{RequestID: message.RequestID, SubscriptionID: id})
		case *Unsubscribe:
			for topic, id := range subscriptions {
				if id == message.SubscriptionID {
					delete(subscriptions, topic)
				}
			}
			send(&Unsubscribed{RequestID: message.RequestID})
		case *Publish:
			nextID++
			if acknowledge, _ := message.Options["acknowledge"].(bool); acknowledge {
				send(&Published{RequestID: message.RequestID, PublicationID: nextID})
			}
			if id, ok := subscriptions[message.Topic]; ok {
				send(&Event{SubscriptionID: id, PublicationID: nextID, Args: message.Args, KwArgs: message.KwArgs})
			}
		case *Goodbye:
			send(&Goodbye{Reason: "wamp.close.goodbye_and_out"})
			return
		}
	}
}

// join runs the client handshake over transport.
func join(t *testing.T, transport Transport, joiner *Joiner) (SessionDetails, error) {
	t.Helper()
	ctx := context.Background()
	hello, err := joiner.SendHello()
	if err != nil {
		t.Fatalf("SendHello: %v", err)
	}
	if err := transport.Send(ctx, hello); err != nil {
		t.Fatalf("sending HELLO: %v", err)
	}
	for {
		data, err := transport.Receive(ctx)
		if err != nil {
			return SessionDetails{}, err
		}
		reply, err := joiner.Receive(data)
		if err != nil {
			return SessionDetails{}, err
		}
		if reply == nil {
			return joiner.SessionDetails()
		}
		if err := transport.Send(ctx, reply); err != nil {
			return SessionDetails{}, err
		}
	}
}

// startSession joins a router served over an in-memory pipe.
func startSession(t *testing.T, serializer Serializer, options SessionOptions) *Session {
	t.Helper()
	client, server := newPipe()
	go serveRouter(t, server, serializer)

	details, err := join(t, client, NewJoiner("realm1", serializer, &Ticket{ID: "alice", Ticket: "opensesame"}))
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if options.Logger == nil {
		options.Logger = discardLogger()
	}
	session := NewSession(client, serializer, details, options)
	t.Cleanup(func() { session.Close() })
	return session
}
