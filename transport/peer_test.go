// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bureau-foundation/wamprtc/framing"
	"github.com/bureau-foundation/wamprtc/wamp"
)

// loopChannel delivers every sent frame to the peer on the other end.
type loopChannel struct {
	mu     sync.Mutex
	remote *Peer
	frames int
	closed bool
}

func (c *loopChannel) Send(frame []byte) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return errors.New("channel closed")
	}
	c.frames++
	remote := c.remote
	c.mu.Unlock()
	remote.Deliver(frame)
	return nil
}

func (c *loopChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *loopChannel) frameCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frames
}

// newPeerPair returns two peers whose channels feed each other.
func newPeerPair(options PeerOptions) (*Peer, *Peer, *loopChannel, *loopChannel) {
	channelA, channelB := &loopChannel{}, &loopChannel{}
	peerA := NewPeer(channelA, options)
	peerB := NewPeer(channelB, options)
	channelA.remote = peerB
	channelB.remote = peerA
	return peerA, peerB, channelA, channelB
}

func TestPeerSendReceiveChunked(t *testing.T) {
	peerA, peerB, channelA, _ := newPeerPair(PeerOptions{MaxFramePayload: 1000, Logger: discardLogger()})
	ctx := context.Background()

	messages := [][]byte{
		bytes.Repeat([]byte{0xab}, 4000),
		{},
		[]byte("short"),
		bytes.Repeat([]byte{0x01, 0x02, 0x03}, 999),
	}
	for _, message := range messages {
		if err := peerA.Send(ctx, message); err != nil {
			t.Fatalf("Send: %v", err)
		}
	}

	wantFrames := 0
	for _, message := range messages {
		wantFrames += framing.FrameCount(len(message), 1000)
	}
	if channelA.frameCount() != wantFrames {
		t.Errorf("frames sent = %d, want %d", channelA.frameCount(), wantFrames)
	}

	for i, want := range messages {
		got, err := peerB.Receive(ctx)
		if err != nil {
			t.Fatalf("Receive %d: %v", i, err)
		}
		if !bytes.Equal(got, want) {
			t.Fatalf("message %d: got %d bytes, want %d", i, len(got), len(want))
		}
	}
}

func TestPeerReceiveWaitsForMessage(t *testing.T) {
	peerA, peerB, _, _ := newPeerPair(PeerOptions{Logger: discardLogger()})

	received := make(chan []byte, 1)
	go func() {
		message, err := peerB.Receive(context.Background())
		if err == nil {
			received <- message
		}
	}()
	if err := peerA.Send(context.Background(), []byte("wake")); err != nil {
		t.Fatalf("Send: %v", err)
	}
	select {
	case message := <-received:
		if string(message) != "wake" {
			t.Errorf("received %q", message)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Receive did not return after a message arrived")
	}
}

func TestPeerReceiveContext(t *testing.T) {
	_, peerB, _, _ := newPeerPair(PeerOptions{Logger: discardLogger()})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := peerB.Receive(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Receive error = %v, want DeadlineExceeded", err)
	}
}

func TestPeerClose(t *testing.T) {
	peerA, peerB, channelA, _ := newPeerPair(PeerOptions{Logger: discardLogger()})
	ctx := context.Background()

	if err := peerA.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := peerA.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if !channelA.closed {
		t.Error("channel not closed")
	}
	if err := peerA.Send(ctx, []byte("x")); !errors.Is(err, ErrPeerClosed) {
		t.Errorf("Send after Close = %v, want ErrPeerClosed", err)
	}
	if _, err := peerA.Receive(ctx); !errors.Is(err, ErrPeerClosed) {
		t.Errorf("Receive after Close = %v, want ErrPeerClosed", err)
	}
	select {
	case <-peerA.Done():
	default:
		t.Error("Done not closed after Close")
	}

	// The other side is unaffected until its own channel reports closed.
	if err := peerB.Send(ctx, []byte("x")); err != nil {
		t.Errorf("remote Send: %v", err)
	}
}

func TestPeerShutdownDrainsQueue(t *testing.T) {
	peerA, peerB, _, _ := newPeerPair(PeerOptions{Logger: discardLogger()})
	ctx := context.Background()

	peerA.Send(ctx, []byte("one"))
	peerA.Send(ctx, []byte("two"))
	peerB.Shutdown(ErrPeerClosed)

	for _, want := range []string{"one", "two"} {
		got, err := peerB.Receive(ctx)
		if err != nil || string(got) != want {
			t.Fatalf("Receive = %q, %v; want %q", got, err, want)
		}
	}
	if _, err := peerB.Receive(ctx); !errors.Is(err, ErrPeerClosed) {
		t.Fatalf("Receive after drain = %v, want ErrPeerClosed", err)
	}
}

func TestPeerFramingErrorIsFatal(t *testing.T) {
	channel := &loopChannel{}
	peer := NewPeer(channel, PeerOptions{MaxMessageSize: 8, Logger: discardLogger()})

	peer.Deliver([]byte{0x00, 1, 2, 3, 4, 5})
	peer.Deliver([]byte{0x01, 6, 7, 8, 9, 10})

	if _, err := peer.Receive(context.Background()); !errors.Is(err, framing.ErrFrameTooLarge) {
		t.Fatalf("Receive error = %v, want ErrFrameTooLarge", err)
	}
	if !channel.closed {
		t.Error("channel left open after a framing error")
	}

	// Frames after the failure are ignored.
	peer.Deliver([]byte{0x01, 'x'})
	if _, err := peer.Receive(context.Background()); !errors.Is(err, framing.ErrFrameTooLarge) {
		t.Fatalf("Receive error = %v, want ErrFrameTooLarge", err)
	}
}

func TestPeerBadHeaderIsFatal(t *testing.T) {
	channel := &loopChannel{}
	peer := NewPeer(channel, PeerOptions{Logger: discardLogger()})
	peer.Deliver([]byte{0x07, 'x'})
	if _, err := peer.Receive(context.Background()); !errors.Is(err, framing.ErrOutOfOrderFrame) {
		t.Fatalf("Receive error = %v, want ErrOutOfOrderFrame", err)
	}
}

func TestPeerMessages(t *testing.T) {
	peerA, peerB, _, _ := newPeerPair(PeerOptions{
		MaxFramePayload: 16,
		Serializer:      wamp.CBORSerializer,
		Logger:          discardLogger(),
	})
	ctx := context.Background()

	sent := &wamp.Publish{
		RequestID: 7,
		Options:   map[string]any{},
		Topic:     "com.example.topic.with.a.long.name",
		Args:      []any{"payload that spans several frames"},
	}
	if err := peerA.SendMessage(ctx, sent); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	message, err := peerB.ReceiveMessage(ctx)
	if err != nil {
		t.Fatalf("ReceiveMessage: %v", err)
	}
	received, ok := message.(*wamp.Publish)
	if !ok {
		t.Fatalf("received %T, want *wamp.Publish", message)
	}
	if received.RequestID != 7 || received.Topic != sent.Topic || received.Args[0] != sent.Args[0] {
		t.Errorf("received %+v, want %+v", received, sent)
	}

	bare := NewPeer(&loopChannel{}, PeerOptions{})
	if err := bare.SendMessage(ctx, sent); err == nil {
		t.Error("SendMessage without a serializer succeeded")
	}
}
