package asr

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// Transport is a message-framed duplex connection to the service. Both
// operations honor the deadline of the passed context. Implementations are
// used by a single session sequentially and need not be concurrency-safe.
type Transport interface {
	Send(ctx context.Context, data []byte) error
	Receive(ctx context.Context) ([]byte, error)
	Close() error
}

// Dialer opens a Transport to the given endpoint with the given handshake
// headers.
type Dialer interface {
	Dial(ctx context.Context, url string, header http.Header) (Transport, error)
}

// WebsocketDialer is the production Dialer, establishing a secure websocket
// connection.
type WebsocketDialer struct {
	HandshakeTimeout time.Duration
}

// Dial opens a websocket connection to url. The response handshake is
// discarded; a non-101 upgrade is surfaced through the dial error.
func (d *WebsocketDialer) Dial(ctx context.Context, url string, header http.Header) (Transport, error) {
	dialer := websocket.Dialer{HandshakeTimeout: d.HandshakeTimeout}

	conn, resp, err := dialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket dial %s failed (status %d): %w", url, resp.StatusCode, err)
		}
		return nil, fmt.Errorf("websocket dial %s failed: %w", url, err)
	}

	return &websocketTransport{conn: conn}, nil
}

// websocketTransport adapts a gorilla websocket connection to Transport.
// Context deadlines translate to connection deadlines per operation.
type websocketTransport struct {
	conn *websocket.Conn
}

func (t *websocketTransport) Send(ctx context.Context, data []byte) error {
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Time{}
	}
	if err := t.conn.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("failed to set write deadline: %w", err)
	}

	if err := t.conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
		return fmt.Errorf("websocket write failed: %w", err)
	}
	return nil
}

func (t *websocketTransport) Receive(ctx context.Context) ([]byte, error) {
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Time{}
	}
	if err := t.conn.SetReadDeadline(deadline); err != nil {
		return nil, fmt.Errorf("failed to set read deadline: %w", err)
	}

	_, msg, err := t.conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("websocket read failed: %w", err)
	}
	return msg, nil
}

func (t *websocketTransport) Close() error {
	// Best effort: tell the peer we are done before tearing the socket down.
	_ = t.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return t.conn.Close()
}
