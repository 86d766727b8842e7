package backpack

import "github.com/backpackflow/backpackflow-go/emit"

// ScopedStore is a per-node handle onto a shared Store. It is the
// re-architecture SPEC_FULL.md §9 calls for in place of the source's
// runtime method-patching: rather than swapping the store's own Pack/
// Unpack methods in and out for the duration of one node's lifecycle, the
// orchestrator hands each node a ScopedStore bound to that node's
// identity. It defaults nodeID/nodeName/namespace on writes that don't
// specify them, and records every key touched for the node runtime's
// PREP_COMPLETE (reads) and NODE_END (writes) events.
//
// A ScopedStore is created fresh for each node invocation; it is not safe
// for reuse across runs (its Reads/Writes accumulate for the lifetime of
// one handle).
type ScopedStore struct {
	store     *Store
	nodeID    string
	nodeName  string
	namespace string
	runID     string
	streamer  *emit.Streamer

	reads  []string
	writes []string
}

// NewScopedStore binds store to one node's identity within one run.
// streamer may be nil, which disables BACKPACK_PACK/BACKPACK_UNPACK
// emission for this handle.
func NewScopedStore(store *Store, nodeID, nodeName, namespace, runID string, streamer *emit.Streamer) *ScopedStore {
	return &ScopedStore{store: store, nodeID: nodeID, nodeName: nodeName, namespace: namespace, runID: runID, streamer: streamer}
}

// Pack writes key via the underlying store, defaulting any unset
// NodeID/NodeName/Namespace in opts to this node's identity, then emits
// BACKPACK_PACK on success.
func (h *ScopedStore) Pack(key string, value any, opts PackOptions) error {
	if opts.NodeID == "" {
		opts.NodeID = h.nodeID
	}
	if opts.NodeName == "" {
		opts.NodeName = h.nodeName
	}
	if opts.Namespace == "" {
		opts.Namespace = h.namespace
	}
	h.writes = append(h.writes, key)
	if err := h.store.Pack(key, value, opts); err != nil {
		return err
	}
	h.emit(emit.BackpackPack, map[string]any{
		"key":          key,
		"valueSummary": summarize(value),
		"namespace":    opts.Namespace,
	})
	return nil
}

// Unpack reads key as this node, emitting BACKPACK_UNPACK when the store
// was constructed with WithEmitReads.
func (h *ScopedStore) Unpack(key string) (any, bool, error) {
	h.reads = append(h.reads, key)
	value, ok, err := h.store.Unpack(key, h.nodeID)
	if err == nil && h.store.EmitReadsEnabled() {
		h.emit(emit.BackpackUnpack, map[string]any{"key": key, "found": ok})
	}
	return value, ok, err
}

// UnpackRequired reads key as this node, raising KeyNotFoundError if
// absent. Emits BACKPACK_UNPACK like Unpack when the read succeeds.
func (h *ScopedStore) UnpackRequired(key string) (any, error) {
	h.reads = append(h.reads, key)
	value, err := h.store.UnpackRequired(key, h.nodeID)
	if err == nil && h.store.EmitReadsEnabled() {
		h.emit(emit.BackpackUnpack, map[string]any{"key": key, "found": true})
	}
	return value, err
}

// emit publishes an event on this handle's streamer, a no-op if none was
// attached.
func (h *ScopedStore) emit(eventType emit.EventType, payload map[string]any) {
	if h.streamer == nil {
		return
	}
	h.streamer.Emit(eventType, payload, emit.Context{
		NodeID:    h.nodeID,
		NodeName:  h.nodeName,
		Namespace: h.namespace,
		RunID:     h.runID,
	})
}

// Peek bypasses permissions and history, like Store.Peek.
func (h *ScopedStore) Peek(key string) (any, bool) {
	return h.store.Peek(key)
}

// UnpackByNamespace reads every item matching pattern as this node.
func (h *ScopedStore) UnpackByNamespace(pattern string) map[string]any {
	return h.store.UnpackByNamespace(pattern, h.nodeID)
}

// GetItemsByNamespace reads every item (with metadata) matching pattern as
// this node.
func (h *ScopedStore) GetItemsByNamespace(pattern string) []Item {
	return h.store.GetItemsByNamespace(pattern, h.nodeID)
}

// Reads returns the keys read through this handle, in read order.
func (h *ScopedStore) Reads() []string {
	return append([]string(nil), h.reads...)
}

// Writes returns the keys written through this handle, in write order.
func (h *ScopedStore) Writes() []string {
	return append([]string(nil), h.writes...)
}

// Store returns the underlying shared store, for operations that aren't
// node-scoped (history, snapshots, diffing).
func (h *ScopedStore) Store() *Store {
	return h.store
}

// NodeID returns the identity this handle is bound to.
func (h *ScopedStore) NodeID() string { return h.nodeID }

// Namespace returns the namespace this handle is bound to.
func (h *ScopedStore) Namespace() string { return h.namespace }
