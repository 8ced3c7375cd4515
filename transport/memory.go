// Package transport provides implementations of the engine's Transport
// contract: an in-memory hub for tests and demos, Redis pub/sub and a
// WebSocket client.
package transport

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/pkg/errors"

	"treesync/common"
	"treesync/engine"
)

// MemoryHub connects in-memory transports to each other. A message sent on
// one transport is delivered synchronously and in order to every other
// connected transport, which keeps the reliable ordered stream the engine
// assumes.
type MemoryHub struct {
	mu         sync.Mutex
	transports []*MemoryTransport
	closed     bool
}

// NewMemoryHub creates a new empty hub.
func NewMemoryHub() *MemoryHub {
	return &MemoryHub{}
}

// Transport creates a new transport attached to the hub.
func (h *MemoryHub) Transport() *MemoryTransport {
	h.mu.Lock()
	defer h.mu.Unlock()
	t := &MemoryTransport{hub: h}
	h.transports = append(h.transports, t)
	return t
}

// Close closes the hub and every attached transport.
func (h *MemoryHub) Close() error {
	h.mu.Lock()
	transports := h.transports
	h.transports = nil
	h.closed = true
	h.mu.Unlock()

	for _, t := range transports {
		_ = t.Close()
	}
	return nil
}

// broadcast delivers a message to every connected transport except the
// sender. Each receiver gets its own decoded copy so no tree nodes are
// shared across engines.
func (h *MemoryHub) broadcast(from *MemoryTransport, msg *engine.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return errors.Wrap(err, "failed to encode message")
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return common.ErrTransportClosed{Name: "memory hub"}
	}
	receivers := make([]*MemoryTransport, len(h.transports))
	copy(receivers, h.transports)
	h.mu.Unlock()

	for _, t := range receivers {
		if t == from {
			continue
		}
		t.deliver(data)
	}
	return nil
}

// MemoryTransport is one endpoint attached to a MemoryHub. Send works as
// soon as the transport exists; Connect and Disconnect gate whether the
// endpoint receives.
type MemoryTransport struct {
	hub *MemoryHub

	mu        sync.Mutex
	handler   func(msg *engine.Message)
	connected bool
	closed    bool
}

// Send broadcasts a message to the other transports on the hub.
func (t *MemoryTransport) Send(ctx context.Context, msg *engine.Message) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return common.ErrTransportClosed{Name: "memory"}
	}
	t.mu.Unlock()

	return t.hub.broadcast(t, msg)
}

// OnMessage registers the handler for incoming messages.
func (t *MemoryTransport) OnMessage(handler func(msg *engine.Message)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handler = handler
}

// Connect marks the transport as receiving.
func (t *MemoryTransport) Connect(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return common.ErrTransportClosed{Name: "memory"}
	}
	t.connected = true
	return nil
}

// Disconnect stops the transport from receiving without releasing it.
func (t *MemoryTransport) Disconnect(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.connected = false
	return nil
}

// Close releases the transport.
func (t *MemoryTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	t.connected = false
	return nil
}

// deliver decodes a wire message and hands it to the handler, if the
// transport is connected.
func (t *MemoryTransport) deliver(data []byte) {
	t.mu.Lock()
	handler := t.handler
	connected := t.connected && !t.closed
	t.mu.Unlock()

	if !connected || handler == nil {
		return
	}

	msg := &engine.Message{}
	if err := json.Unmarshal(data, msg); err != nil {
		return
	}
	handler(msg)
}
