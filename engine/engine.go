// Package engine implements the synchronization engine: a single shared
// in-memory tree mirroring a remote hierarchical dataset, mutated by
// replace/merge messages under one exclusive critical section.
package engine

import (
	"context"
	"sync"

	"github.com/bwmarrin/snowflake"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"treesync/common"
	"treesync/pushid"
	"treesync/tree"
)

// ObserverFunc is invoked after every tree mutation with the mutated path.
// Observer code runs outside the engine lock but must not assume any
// delivery guarantee beyond at-least-once per logical mutation.
type ObserverFunc func(path tree.Path)

// ReadyFunc is invoked once the dataset has received its initial snapshot.
type ReadyFunc func(snap Snapshot)

// Engine owns the authoritative root node of one synchronized dataset. All
// public operations are serialized under a single mutex; change
// notifications and queued ready consumers run after the lock is released so
// observer code cannot deadlock against the engine.
type Engine struct {
	mu   sync.Mutex
	root tree.Node

	transport Transport
	logger    *zap.Logger
	ids       *snowflake.Node
	pusher    *pushid.Generator

	observers      map[int64]ObserverFunc
	nextObserverID int64

	// ready flips permanently when the first incoming replace is applied.
	ready   bool
	pending []ReadyFunc

	closed bool
}

// New creates a new Engine with an empty object root. If the options carry a
// transport, the engine registers itself as the transport's message handler.
func New(options *Options) (*Engine, error) {
	if options == nil {
		options = NewOptions()
	}

	logger := options.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	ids, err := snowflake.NewNode(options.SnowflakeNode)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create message ID node")
	}

	e := &Engine{
		root:      tree.NewObjectNode(),
		transport: options.Transport,
		logger:    logger,
		ids:       ids,
		pusher:    pushid.NewGenerator(),
		observers: make(map[int64]ObserverFunc),
	}

	if e.transport != nil {
		e.transport.OnMessage(e.ApplyIncoming)
	}

	return e, nil
}

// SnapshotFor returns a read-only, point-in-time view of the subtree at the
// given path. An absent path yields a snapshot whose Exists reports false;
// it is never an error.
func (e *Engine) SnapshotFor(path tree.Path) Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked(path)
}

// Ready reports whether the dataset has received its initial snapshot.
func (e *Engine) Ready() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ready
}

// Set replaces the subtree at the path wholesale, creating missing
// intermediate object nodes on demand. A nil value degrades to delete. The
// status callback is invoked synchronously once the local apply and the
// enqueue for send have completed.
func (e *Engine) Set(path tree.Path, value interface{}, status StatusFunc) {
	e.SetWithPriority(path, value, nil, status)
}

// SetWithPriority performs Set with ordering metadata attached to the new
// subtree in the same message.
func (e *Engine) SetWithPriority(path tree.Path, value interface{}, priority interface{}, status StatusFunc) {
	var payload tree.Node
	if value != nil {
		payload = tree.FromValue(value)
		if priority != nil {
			payload.SetPriority(priority)
		}
	}

	e.applyAndSend(&Message{
		ID:       e.ids.Generate().Int64(),
		Behavior: BehaviorReplace,
		Path:     path,
		Payload:  payload,
		Priority: priority,
		status:   status,
	})
}

// SetPriority sets the ordering metadata at the path, as if via
// Set(path.Child(".priority"), priority).
func (e *Engine) SetPriority(path tree.Path, priority interface{}, status StatusFunc) {
	var payload tree.Node
	if priority != nil {
		payload = tree.NewScalarNode(priority)
	}

	e.applyAndSend(&Message{
		ID:       e.ids.Generate().Int64(),
		Behavior: BehaviorReplace,
		Path:     path.Child(tree.PriorityKey),
		Payload:  payload,
		status:   status,
	})
}

// Update merges the value's direct children into the subtree at the path.
// The merge is shallow: one level of structural merge, with explicit null
// children skipped. A nil value degrades to delete.
func (e *Engine) Update(path tree.Path, value interface{}, status StatusFunc) {
	var payload tree.Node
	if value != nil {
		payload = tree.FromValue(value)
	}

	e.applyAndSend(&Message{
		ID:       e.ids.Generate().Int64(),
		Behavior: BehaviorMerge,
		Path:     path,
		Payload:  payload,
		status:   status,
	})
}

// Push generates a new ordered child key and sets the value at
// path.Child(key). The key is returned immediately regardless of the apply
// outcome. A nil value produces no message and no notification.
func (e *Engine) Push(path tree.Path, value interface{}, status StatusFunc) string {
	key := e.pusher.Next()
	if value == nil {
		if status != nil {
			status(nil)
		}
		return key
	}
	e.Set(path.Child(key), value, status)
	return key
}

// Delete detaches the subtree at the path. Deleting the root resets it to an
// empty object; the root is never absent.
func (e *Engine) Delete(path tree.Path, status StatusFunc) {
	e.Set(path, nil, status)
}

// ApplyIncoming applies a decoded message delivered by the transport. The
// very first replace marks the dataset ready and drains queued ready
// consumers in registration order. A change notification always fires.
func (e *Engine) ApplyIncoming(msg *Message) {
	if msg == nil {
		return
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.apply(msg)

	var drained []ReadyFunc
	var rootSnap Snapshot
	if msg.Behavior == BehaviorReplace && !e.ready {
		e.ready = true
		drained = e.pending
		e.pending = nil
		rootSnap = e.snapshotLocked(tree.Path{})
	}
	e.mu.Unlock()

	for _, fn := range drained {
		e.runReady(fn, rootSnap)
	}
	e.notify(msg.Path)
}

// OnceReady runs the consumer once the dataset has received its initial
// snapshot. Before the first incoming replace, consumers are queued FIFO;
// afterwards they run synchronously and immediately against the current
// root. The ready state never reverts.
func (e *Engine) OnceReady(fn ReadyFunc) {
	if fn == nil {
		return
	}

	e.mu.Lock()
	if e.ready {
		snap := e.snapshotLocked(tree.Path{})
		e.mu.Unlock()
		e.runReady(fn, snap)
		return
	}
	e.pending = append(e.pending, fn)
	e.mu.Unlock()
}

// Subscribe registers a change observer and returns its registration ID.
func (e *Engine) Subscribe(fn ObserverFunc) int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextObserverID++
	id := e.nextObserverID
	e.observers[id] = fn
	return id
}

// Unsubscribe removes a previously registered observer.
func (e *Engine) Unsubscribe(id int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.observers, id)
}

// Connect forwards to the transport, if any.
func (e *Engine) Connect(ctx context.Context) error {
	if e.transport == nil {
		return nil
	}
	return e.transport.Connect(ctx)
}

// Disconnect forwards to the transport, if any.
func (e *Engine) Disconnect(ctx context.Context) error {
	if e.transport == nil {
		return nil
	}
	return e.transport.Disconnect(ctx)
}

// Close disposes the engine and releases its transport. Further mutations
// fail with ErrEngineClosed; queued ready consumers are dropped.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.pending = nil
	e.mu.Unlock()

	if e.transport != nil {
		return e.transport.Close()
	}
	return nil
}

// applyAndSend applies a locally built message, fires the change
// notification, enqueues the message for outbound transport and reports the
// outcome to the status callback.
func (e *Engine) applyAndSend(msg *Message) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		if msg.status != nil {
			msg.status(common.ErrEngineClosed{})
		}
		return
	}
	e.apply(msg)
	e.mu.Unlock()

	e.notify(msg.Path)

	var err error
	if e.transport != nil {
		if err = e.transport.Send(context.Background(), msg); err != nil {
			e.logger.Warn("outbound send failed",
				zap.String("path", msg.Path.String()),
				zap.Int64("message_id", msg.ID),
				zap.Error(err))
		}
	}
	if msg.status != nil {
		msg.status(err)
	}
}

// apply dispatches a message to the replace or merge algorithm. The caller
// must hold the engine lock.
func (e *Engine) apply(msg *Message) {
	if msg.Payload == nil {
		e.applyDelete(msg.Path)
		return
	}

	switch msg.Behavior {
	case BehaviorMerge:
		e.applyMerge(msg.Path, msg.Payload)
	default:
		payload := msg.Payload
		if msg.Priority != nil && payload.Priority() == nil {
			payload.SetPriority(msg.Priority)
		}
		e.applyReplace(msg.Path, payload)
	}
}

// applyReplace substitutes the subtree at the path wholesale. A ".priority"
// leaf segment updates the ordering metadata of the parent node instead.
func (e *Engine) applyReplace(path tree.Path, node tree.Node) {
	if path.IsRoot() {
		e.root = node
		return
	}

	parentPath, leaf := path.Parent()
	if leaf == tree.PriorityKey {
		if target := e.lookup(parentPath); target != nil {
			target.SetPriority(node.Value())
		}
		return
	}

	parent := e.ensureParent(parentPath)
	existing := parent.Get(leaf)
	if existingScalar, ok := existing.(*tree.ScalarNode); ok {
		if incomingScalar, ok := node.(*tree.ScalarNode); ok {
			// Scalar over scalar mutates in place, preserving node identity.
			existingScalar.SetValue(incomingScalar.Value())
			if incomingScalar.Priority() != nil {
				existingScalar.SetPriority(incomingScalar.Priority())
			}
			return
		}
	}
	parent.Set(leaf, node)
}

// applyMerge merges the payload's direct children into the target subtree.
// The merge is one level deep: each named child is replaced wholesale, with
// scalars over scalars mutated in place and explicit null children skipped.
// Children of the target not named in the payload are left untouched.
func (e *Engine) applyMerge(path tree.Path, node tree.Node) {
	existing := e.lookup(path)

	if incomingScalar, ok := node.(*tree.ScalarNode); ok {
		if existingScalar, ok := existing.(*tree.ScalarNode); ok {
			existingScalar.SetValue(incomingScalar.Value())
			return
		}
		e.applyReplace(path, node)
		return
	}

	incoming := node.(*tree.ObjectNode)
	target, ok := existing.(*tree.ObjectNode)
	if !ok {
		target = tree.NewObjectNode()
		e.applyReplace(path, target)
	}

	for _, key := range incoming.Keys() {
		child := incoming.Get(key)
		if tree.IsNull(child) {
			// A merge never deletes via an explicit null child; deletion
			// requires a full replace with a null payload.
			continue
		}
		if targetScalar, ok := target.Get(key).(*tree.ScalarNode); ok {
			if childScalar, ok := child.(*tree.ScalarNode); ok {
				targetScalar.SetValue(childScalar.Value())
				if childScalar.Priority() != nil {
					targetScalar.SetPriority(childScalar.Priority())
				}
				continue
			}
		}
		target.Set(key, child)
	}
}

// applyDelete detaches the subtree at the path. The root is reset to an
// empty object rather than becoming absent. A ".priority" leaf clears the
// ordering metadata of the parent node.
func (e *Engine) applyDelete(path tree.Path) {
	if path.IsRoot() {
		e.root = tree.NewObjectNode()
		return
	}

	parentPath, leaf := path.Parent()
	if leaf == tree.PriorityKey {
		if target := e.lookup(parentPath); target != nil {
			target.SetPriority(nil)
		}
		return
	}

	parent, ok := e.lookup(parentPath).(*tree.ObjectNode)
	if !ok {
		return
	}
	parent.Delete(leaf)
}

// lookup walks the path from the root and returns the node there, or nil if
// any segment is absent. The caller must hold the engine lock.
func (e *Engine) lookup(path tree.Path) tree.Node {
	node := e.root
	for _, segment := range path {
		obj, ok := node.(*tree.ObjectNode)
		if !ok {
			return nil
		}
		node = obj.Get(segment)
		if node == nil {
			return nil
		}
	}
	return node
}

// ensureParent walks the path from the root, creating empty object nodes for
// missing or non-object intermediate segments, and returns the object node
// at the path. The caller must hold the engine lock.
func (e *Engine) ensureParent(path tree.Path) *tree.ObjectNode {
	root, ok := e.root.(*tree.ObjectNode)
	if !ok {
		root = tree.NewObjectNode()
		e.root = root
	}

	node := root
	for _, segment := range path {
		child, ok := node.Get(segment).(*tree.ObjectNode)
		if !ok {
			child = tree.NewObjectNode()
			node.Set(segment, child)
		}
		node = child
	}
	return node
}

// snapshotLocked takes a deep-copied snapshot of the subtree at the path.
// The caller must hold the engine lock.
func (e *Engine) snapshotLocked(path tree.Path) Snapshot {
	node := e.lookup(path)
	if node == nil {
		return NewSnapshot(path, nil)
	}
	return NewSnapshot(path, node.Clone())
}

// notify fans a change notification out to every registered observer. A
// panicking observer is recovered and logged so the rest still run.
func (e *Engine) notify(path tree.Path) {
	e.mu.Lock()
	observers := make([]ObserverFunc, 0, len(e.observers))
	for _, fn := range e.observers {
		observers = append(observers, fn)
	}
	e.mu.Unlock()

	for _, fn := range observers {
		e.invokeObserver(fn, path)
	}
}

func (e *Engine) invokeObserver(fn ObserverFunc, path tree.Path) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("observer panicked",
				zap.String("path", path.String()),
				zap.Any("panic", r))
		}
	}()
	fn(path)
}

func (e *Engine) runReady(fn ReadyFunc, snap Snapshot) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("ready consumer panicked", zap.Any("panic", r))
		}
	}()
	fn(snap)
}
