package engine

import (
	"context"
)

// Transport carries messages between the engine and its remote dataset. The
// engine treats sends as fire-and-forget; delivery, retries and wire framing
// are the transport's concern. Incoming decoded messages are handed to the
// handler registered with OnMessage.
type Transport interface {
	// Send enqueues a message for outbound delivery.
	Send(ctx context.Context, msg *Message) error

	// OnMessage registers the handler invoked for every decoded incoming
	// message. At most one handler is active at a time.
	OnMessage(handler func(msg *Message))

	// Connect establishes the underlying connection.
	Connect(ctx context.Context) error

	// Disconnect tears down the underlying connection without releasing the
	// transport.
	Disconnect(ctx context.Context) error

	// Close releases the transport.
	Close() error
}
