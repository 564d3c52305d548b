// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bureau-foundation/wamprtc/framing"
	"github.com/bureau-foundation/wamprtc/wamp"
)

// Channel is the raw frame carrier underneath a Peer. Every Engine is
// a Channel.
type Channel interface {
	Send(frame []byte) error
	Close() error
}

// PeerOptions bounds the framing of a Peer.
type PeerOptions struct {
	// MaxFramePayload is the largest payload per frame, one less than
	// the channel's per-message limit. Defaults to
	// framing.DefaultMaxChunkPayload.
	MaxFramePayload int

	// MaxMessageSize bounds a reassembled inbound message. Defaults to
	// framing.DefaultMaxMessageSize.
	MaxMessageSize int

	// Serializer encodes SendMessage and decodes ReceiveMessage.
	Serializer wamp.Serializer

	Logger *slog.Logger
}

// Peer is a duplex message peer over a framed data channel. Sends are
// chunked and written in order under one lock; inbound frames are
// reassembled and queued in arrival order for a single reader.
//
// Peer satisfies wamp.Transport, so a WAMP session can run directly on
// top of it.
type Peer struct {
	channel         Channel
	serializer      wamp.Serializer
	maxFramePayload int
	logger          *slog.Logger

	sendMu sync.Mutex

	mu        sync.Mutex
	assembler *framing.Assembler
	queue     [][]byte
	notify    chan struct{}
	done      chan struct{}
	err       error
	closed    bool
}

var _ wamp.Transport = (*Peer)(nil)

// NewPeer wraps channel. The caller routes the channel's inbound frames
// to Deliver and its close notification to Shutdown.
func NewPeer(channel Channel, options PeerOptions) *Peer {
	if options.MaxFramePayload <= 0 {
		options.MaxFramePayload = framing.DefaultMaxChunkPayload
	}
	if options.MaxMessageSize <= 0 {
		options.MaxMessageSize = framing.DefaultMaxMessageSize
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Peer{
		channel:         channel,
		serializer:      options.Serializer,
		maxFramePayload: options.MaxFramePayload,
		logger:          logger,
		assembler:       framing.NewAssembler(options.MaxMessageSize),
		notify:          make(chan struct{}, 1),
		done:            make(chan struct{}),
	}
}

// Serializer returns the serializer used by SendMessage and
// ReceiveMessage, or nil if none was configured.
func (p *Peer) Serializer() wamp.Serializer { return p.serializer }

// Send frames message and writes the frames in order. It fails with
// ErrPeerClosed once the peer is closed, including when Close races
// with a send in progress.
func (p *Peer) Send(ctx context.Context, message []byte) error {
	p.sendMu.Lock()
	defer p.sendMu.Unlock()
	for frame := range framing.Chunk(message, p.maxFramePayload) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if p.isClosed() {
			return ErrPeerClosed
		}
		if err := p.channel.Send(frame.Encode()); err != nil {
			if p.isClosed() {
				return ErrPeerClosed
			}
			return fmt.Errorf("sending frame: %w", err)
		}
	}
	return nil
}

// Receive returns the next complete message. Messages that arrived
// before the channel closed are still returned; after that Receive
// returns the reason the peer stopped.
func (p *Peer) Receive(ctx context.Context) ([]byte, error) {
	for {
		p.mu.Lock()
		if len(p.queue) > 0 {
			message := p.queue[0]
			p.queue[0] = nil
			p.queue = p.queue[1:]
			p.mu.Unlock()
			return message, nil
		}
		if p.err != nil {
			err := p.err
			p.mu.Unlock()
			return nil, err
		}
		p.mu.Unlock()

		select {
		case <-p.notify:
		case <-p.done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// SendMessage serializes message and sends it.
func (p *Peer) SendMessage(ctx context.Context, message wamp.Message) error {
	if p.serializer == nil {
		return fmt.Errorf("peer has no serializer")
	}
	data, err := p.serializer.Serialize(message)
	if err != nil {
		return err
	}
	return p.Send(ctx, data)
}

// ReceiveMessage receives and deserializes one message.
func (p *Peer) ReceiveMessage(ctx context.Context) (wamp.Message, error) {
	if p.serializer == nil {
		return nil, fmt.Errorf("peer has no serializer")
	}
	data, err := p.Receive(ctx)
	if err != nil {
		return nil, err
	}
	return p.serializer.Deserialize(data)
}

// Deliver feeds one raw inbound frame. A framing error is fatal: the
// peer shuts down with it and the channel is closed.
func (p *Peer) Deliver(frame []byte) {
	p.mu.Lock()
	if p.err != nil {
		p.mu.Unlock()
		return
	}
	message, complete, err := p.assembler.Feed(frame)
	if err != nil {
		p.mu.Unlock()
		p.logger.Warn("closing peer on framing error", "error", err)
		p.Shutdown(err)
		p.channel.Close()
		return
	}
	if complete {
		p.queue = append(p.queue, message)
	}
	p.mu.Unlock()

	if complete {
		select {
		case p.notify <- struct{}{}:
		default:
		}
	}
}

// Shutdown stops the peer with err as the Receive error once queued
// messages are drained. Only the first reason is kept.
func (p *Peer) Shutdown(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return
	}
	p.err = err
	p.assembler.Reset()
	close(p.done)
}

// Done is closed when the peer stops.
func (p *Peer) Done() <-chan struct{} { return p.done }

// Close closes the channel. Later sends and receives fail with
// ErrPeerClosed.
func (p *Peer) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.queue = nil
	p.mu.Unlock()

	p.Shutdown(ErrPeerClosed)
	return p.channel.Close()
}

func (p *Peer) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed || p.err != nil
}
