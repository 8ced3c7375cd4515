package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"treesync/common"
	"treesync/engine"
)

// WebSocketTransport carries messages over a WebSocket connection to a relay
// endpoint. Each decoded frame is one wire message.
type WebSocketTransport struct {
	url      string
	clientID string
	logger   *zap.Logger

	mu      sync.Mutex
	conn    *websocket.Conn
	handler func(msg *engine.Message)
	cancel  context.CancelFunc
	closed  bool
}

// NewWebSocketTransport creates a new transport dialing the given URL on
// Connect.
func NewWebSocketTransport(url string, logger *zap.Logger) *WebSocketTransport {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebSocketTransport{
		url:      url,
		clientID: uuid.NewString(),
		logger:   logger,
	}
}

// Send writes a message frame on the connection.
func (t *WebSocketTransport) Send(ctx context.Context, msg *engine.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return errors.Wrap(err, "failed to encode message")
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return common.ErrTransportClosed{Name: "websocket"}
	}
	if t.conn == nil {
		return errors.New("websocket not connected")
	}
	return t.conn.WriteMessage(websocket.TextMessage, data)
}

// OnMessage registers the handler for incoming messages.
func (t *WebSocketTransport) OnMessage(handler func(msg *engine.Message)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handler = handler
}

// Connect dials the endpoint and starts the receive loop.
func (t *WebSocketTransport) Connect(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return common.ErrTransportClosed{Name: "websocket"}
	}
	if t.conn != nil {
		return nil
	}

	header := http.Header{}
	header.Set("X-Client-ID", t.clientID)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, t.url, header)
	if err != nil {
		return errors.Wrapf(err, "failed to dial %s", t.url)
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	t.conn = conn
	t.cancel = cancel

	go t.receiveLoop(loopCtx, conn)
	return nil
}

// Disconnect closes the connection without releasing the transport.
func (t *WebSocketTransport) Disconnect(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.disconnectLocked()
}

// Close releases the transport.
func (t *WebSocketTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	return t.disconnectLocked()
}

func (t *WebSocketTransport) disconnectLocked() error {
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
	if t.conn != nil {
		err := t.conn.Close()
		t.conn = nil
		return err
	}
	return nil
}

// receiveLoop reads frames, decodes them and dispatches to the handler.
func (t *WebSocketTransport) receiveLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				t.logger.Warn("websocket read error",
					zap.String("url", t.url),
					zap.Error(err))
			}
			return
		}

		msg := &engine.Message{}
		if err := json.Unmarshal(data, msg); err != nil {
			t.logger.Warn("failed to decode message frame",
				zap.String("url", t.url),
				zap.Error(err))
			continue
		}

		t.mu.Lock()
		handler := t.handler
		t.mu.Unlock()
		if handler != nil {
			handler(msg)
		}
	}
}
