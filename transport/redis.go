package transport

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"treesync/common"
	"treesync/engine"
)

// redisEnvelope wraps a wire message with the sender's origin ID so a client
// can skip messages it published itself.
type redisEnvelope struct {
	Origin  string          `json:"origin"`
	Message json.RawMessage `json:"message"`
}

// RedisTransport carries messages over a Redis pub/sub channel. The Redis
// client is owned by the caller; Close releases the subscription but not the
// client.
type RedisTransport struct {
	client  *redis.Client
	channel string
	origin  string
	logger  *zap.Logger

	mu      sync.Mutex
	handler func(msg *engine.Message)
	pubsub  *redis.PubSub
	cancel  context.CancelFunc
	closed  bool
}

// NewRedisTransport creates a new transport publishing and subscribing on
// the given channel.
func NewRedisTransport(client *redis.Client, channel string, logger *zap.Logger) (*RedisTransport, error) {
	if client == nil {
		return nil, errors.New("redis client cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, errors.Wrap(err, "failed to connect to Redis")
	}

	return &RedisTransport{
		client:  client,
		channel: channel,
		origin:  uuid.NewString(),
		logger:  logger,
	}, nil
}

// Send publishes a message on the channel.
func (t *RedisTransport) Send(ctx context.Context, msg *engine.Message) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return common.ErrTransportClosed{Name: "redis"}
	}
	t.mu.Unlock()

	msgData, err := json.Marshal(msg)
	if err != nil {
		return errors.Wrap(err, "failed to encode message")
	}
	data, err := json.Marshal(redisEnvelope{Origin: t.origin, Message: msgData})
	if err != nil {
		return errors.Wrap(err, "failed to encode envelope")
	}

	return t.client.Publish(ctx, t.channel, data).Err()
}

// OnMessage registers the handler for incoming messages.
func (t *RedisTransport) OnMessage(handler func(msg *engine.Message)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handler = handler
}

// Connect subscribes to the channel and starts the receive loop.
func (t *RedisTransport) Connect(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return common.ErrTransportClosed{Name: "redis"}
	}
	if t.pubsub != nil {
		return nil
	}

	pubsub := t.client.Subscribe(ctx, t.channel)
	// Wait for the subscription to be confirmed before returning.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return errors.Wrap(err, "failed to subscribe")
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	t.pubsub = pubsub
	t.cancel = cancel

	go t.receiveLoop(loopCtx, pubsub)
	return nil
}

// Disconnect closes the subscription without releasing the transport.
func (t *RedisTransport) Disconnect(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.disconnectLocked()
}

// Close releases the transport. The Redis client stays open.
func (t *RedisTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	return t.disconnectLocked()
}

func (t *RedisTransport) disconnectLocked() error {
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
	if t.pubsub != nil {
		err := t.pubsub.Close()
		t.pubsub = nil
		return err
	}
	return nil
}

// receiveLoop decodes incoming envelopes and dispatches them to the handler,
// skipping messages this transport published itself.
func (t *RedisTransport) receiveLoop(ctx context.Context, pubsub *redis.PubSub) {
	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-ch:
			if !ok {
				return
			}

			var env redisEnvelope
			if err := json.Unmarshal([]byte(raw.Payload), &env); err != nil {
				t.logger.Warn("failed to decode envelope",
					zap.String("channel", t.channel),
					zap.Error(err))
				continue
			}
			if env.Origin == t.origin {
				continue
			}

			msg := &engine.Message{}
			if err := json.Unmarshal(env.Message, msg); err != nil {
				t.logger.Warn("failed to decode message",
					zap.String("channel", t.channel),
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
}
