// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package wamp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/bureau-foundation/wamprtc/lib/netutil"
)

// handshakeTimeout bounds the WebSocket opening handshake when the
// caller's context has no earlier deadline.
const handshakeTimeout = 10 * time.Second

// defaultReadLimit caps one inbound WebSocket message.
const defaultReadLimit = 16 << 20

// WebSocketTransport is a Transport over one WebSocket connection
// using a "wamp.2.<serializer>" subprotocol.
type WebSocketTransport struct {
	conn        *websocket.Conn
	messageType int

	writeMu   sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

// DialWebSocket connects to a WAMP router at url and negotiates the
// serializer's subprotocol.
func DialWebSocket(ctx context.Context, url string, serializer Serializer) (*WebSocketTransport, error) {
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: handshakeTimeout,
		Subprotocols:     []string{serializer.Subprotocol()},
	}
	conn, response, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		if response != nil {
			return nil, fmt.Errorf("wamp: dialing %s: %w (HTTP %d)", url, err, response.StatusCode)
		}
		return nil, fmt.Errorf("wamp: dialing %s: %w", url, err)
	}
	if negotiated := conn.Subprotocol(); negotiated != serializer.Subprotocol() {
		conn.Close()
		return nil, fmt.Errorf("wamp: router at %s negotiated subprotocol %q, want %q",
			url, negotiated, serializer.Subprotocol())
	}
	return newWebSocketTransport(conn, serializer), nil
}

// UpgradeWebSocket accepts a WAMP WebSocket connection on the router
// side, choosing the first of serializers the client offers.
func UpgradeWebSocket(w http.ResponseWriter, r *http.Request, serializers ...Serializer) (*WebSocketTransport, Serializer, error) {
	subprotocols := make([]string, len(serializers))
	for i, serializer := range serializers {
		subprotocols[i] = serializer.Subprotocol()
	}
	upgrader := websocket.Upgrader{Subprotocols: subprotocols}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("wamp: upgrading connection: %w", err)
	}
	for _, serializer := range serializers {
		if serializer.Subprotocol() == conn.Subprotocol() {
			return newWebSocketTransport(conn, serializer), serializer, nil
		}
	}
	conn.Close()
	return nil, nil, fmt.Errorf("wamp: client offered none of %v", subprotocols)
}

func newWebSocketTransport(conn *websocket.Conn, serializer Serializer) *WebSocketTransport {
	conn.SetReadLimit(defaultReadLimit)
	messageType := websocket.TextMessage
	if serializer.Binary() {
		messageType = websocket.BinaryMessage
	}
	return &WebSocketTransport{conn: conn, messageType: messageType}
}

// Send writes one message. Cancelling ctx interrupts a blocked write.
func (t *WebSocketTransport) Send(ctx context.Context, data []byte) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	if deadline, ok := ctx.Deadline(); ok {
		t.conn.SetWriteDeadline(deadline)
		defer t.conn.SetWriteDeadline(time.Time{})
	}
	stop := context.AfterFunc(ctx, func() { t.conn.SetWriteDeadline(time.Now()) })
	defer stop()

	if err := t.conn.WriteMessage(t.messageType, data); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("wamp: websocket write: %w", err)
	}
	return nil
}

// Receive reads the next data message. Cancelling ctx interrupts the
// read, after which the connection is unusable.
func (t *WebSocketTransport) Receive(ctx context.Context) ([]byte, error) {
	stop := context.AfterFunc(ctx, func() { t.conn.SetReadDeadline(time.Now()) })
	defer stop()

	_, data, err := t.conn.ReadMessage()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if netutil.IsExpectedCloseError(err) {
			return nil, fmt.Errorf("%w: %v", ErrSessionClosed, err)
		}
		return nil, fmt.Errorf("wamp: websocket read: %w", err)
	}
	return data, nil
}

// Close sends a normal close frame and closes the connection.
func (t *WebSocketTransport) Close() error {
	t.closeOnce.Do(func() {
		message := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		t.conn.WriteControl(websocket.CloseMessage, message, time.Now().Add(time.Second))

		if err := t.conn.Close(); err != nil && !errors.Is(err, websocket.ErrCloseSent) {
			t.closeErr = err
		}
	})
	return t.closeErr
}

var _ Transport = (*WebSocketTransport)(nil)
