package backpack

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/backpackflow/backpackflow-go/internal/nsmatch"
	"github.com/backpackflow/backpackflow-go/telemetry"
)

const defaultMaxHistory = 10000

// Store is the content-addressed, versioned key/value state store shared
// by every node in a flow tree. The zero value is not usable; construct
// one with New.
type Store struct {
	mu sync.Mutex

	items       map[string]Item
	history     []Commit // chronological, oldest first; bounded by maxHistory
	permissions map[string]PermissionEntry

	accessControl bool // when false, every permission check allows
	strict        bool // when true, denials raise AccessDeniedError
	emitReads     bool // when true, Unpack appends an unpack-commit
	maxHistory    int

	metrics *telemetry.Metrics
}

// Option configures a Store at construction time.
type Option func(*Store)

// WithAccessControl enables permission enforcement. Disabled by default —
// an unconfigured Store allows every read and write, matching the opt-in
// enforcement model in SPEC_FULL.md §4.1.
func WithAccessControl(enabled bool) Option {
	return func(s *Store) { s.accessControl = enabled }
}

// WithStrictMode controls whether denied access raises AccessDeniedError
// (true) or silently returns/drops (false). Default false.
func WithStrictMode(strict bool) Option {
	return func(s *Store) { s.strict = strict }
}

// WithEmitReads enables opt-in BACKPACK_UNPACK history recording on reads.
// Default false — per the Open Question in SPEC_FULL.md §9, the source
// only ever records writes in practice.
func WithEmitReads(enabled bool) Option {
	return func(s *Store) { s.emitReads = enabled }
}

// WithMaxHistory bounds the commit history. On overflow the oldest commit
// is dropped (FIFO). Default 10000.
func WithMaxHistory(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxHistory = n
		}
	}
}

// WithMetrics attaches Prometheus instrumentation. Pass nil (the default)
// to disable instrumentation entirely.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// EmitReadsEnabled reports whether this Store was constructed with
// WithEmitReads, which gates both the Unpack history commit and the
// BACKPACK_UNPACK event a ScopedStore emits on read.
func (s *Store) EmitReadsEnabled() bool {
	return s.emitReads
}

// New constructs an empty Store.
func New(opts ...Option) *Store {
	s := &Store{
		items:       make(map[string]Item),
		permissions: make(map[string]PermissionEntry),
		maxHistory:  defaultMaxHistory,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func nowMillis() int64 { return time.Now().UnixMilli() }

func summarize(value any) string {
	b, err := json.Marshal(value)
	if err != nil {
		return fmt.Sprintf("%v", value)
	}
	const maxLen = 120
	s := string(b)
	if len(s) > maxLen {
		return s[:maxLen] + "…"
	}
	return s
}

// Pack writes value under key, recording a pack-commit and bumping the
// key's version. Returns AccessDeniedError in strict mode when the write
// is denied; otherwise a denied write is silently dropped and returns nil.
func (s *Store) Pack(key string, value any, opts PackOptions) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if opts.NodeID != "" {
		if !s.checkPermission(opts.NodeID, "write", key, opts.Namespace) {
			s.metrics.RecordAccessDenied("write")
			if s.strict {
				return &AccessDeniedError{Code: "ACCESS_DENIED", NodeID: opts.NodeID, Key: key, Op: "write"}
			}
			return nil
		}
	}

	existing, had := s.items[key]
	newVersion := 1
	var previousValue any
	if had {
		newVersion = existing.Metadata.Version + 1
		previousValue = existing.Value
	}

	item := Item{
		Key:   key,
		Value: value,
		Metadata: Metadata{
			SourceNodeID:    opts.NodeID,
			SourceNodeName:  opts.NodeName,
			SourceNamespace: opts.Namespace,
			Timestamp:       nowMillis(),
			Version:         newVersion,
			Tags:            opts.Tags,
		},
	}
	s.items[key] = item

	s.appendCommit(Commit{
		CommitID:      uuid.NewString(),
		Timestamp:     item.Metadata.Timestamp,
		NodeID:        opts.NodeID,
		NodeName:      opts.NodeName,
		Namespace:     opts.Namespace,
		Action:        ActionPack,
		Key:           key,
		NewValue:      value,
		PreviousValue: previousValue,
		ValueSummary:  summarize(value),
	})

	s.metrics.RecordPack(opts.Namespace)
	return nil
}

// Unpack reads key, applying read-permission rules when nodeID is
// non-empty. Returns (value, true) on success, (nil, false) if the key is
// absent or access is denied in non-strict mode.
func (s *Store) Unpack(key string, nodeID string) (any, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, had := s.items[key]

	if nodeID != "" {
		ns := ""
		if had {
			ns = item.Metadata.SourceNamespace
		}
		if !s.checkPermission(nodeID, "read", key, ns) {
			s.metrics.RecordAccessDenied("read")
			if s.strict {
				return nil, false, &AccessDeniedError{Code: "ACCESS_DENIED", NodeID: nodeID, Key: key, Op: "read"}
			}
			return nil, false, nil
		}
	}

	s.metrics.RecordUnpack(item.Metadata.SourceNamespace)

	if s.emitReads {
		s.appendCommit(Commit{
			CommitID:  uuid.NewString(),
			Timestamp: nowMillis(),
			NodeID:    nodeID,
			Action:    ActionUnpack,
			Key:       key,
		})
	}

	if !had {
		return nil, false, nil
	}
	return item.Value, true, nil
}

// UnpackRequired is Unpack, but returns KeyNotFoundError instead of
// (nil, false) when the key is absent.
func (s *Store) UnpackRequired(key string, nodeID string) (any, error) {
	value, ok, err := s.Unpack(key, nodeID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &KeyNotFoundError{Code: "KEY_NOT_FOUND", Key: key, NodeID: nodeID}
	}
	return value, nil
}

// Peek reads key bypassing permissions and history logging entirely. It is
// a diagnostic-only escape hatch — the read path the UI's state-inspection
// endpoint uses (SPEC_FULL.md §6).
func (s *Store) Peek(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[key]
	if !ok {
		return nil, false
	}
	return item.Value, true
}

// PeekAll returns a deep-cloned copy of every stored value, keyed by key.
// Used by the read-only state-inspection endpoint to render current state
// without triggering permission checks.
func (s *Store) PeekAll() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]any, len(s.items))
	for k, item := range s.items {
		out[k] = deepClone(item.Value)
	}
	return out
}

// RegisterPermissions installs (or replaces) the permission entry for
// nodeID.
func (s *Store) RegisterPermissions(nodeID string, entry PermissionEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.permissions[nodeID] = entry
}

// ClearPermissions removes any permission entry for nodeID, reverting it
// to unrestricted access.
func (s *Store) ClearPermissions(nodeID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.permissions, nodeID)
}

// checkPermission resolves access for nodeID performing op ("read" or
// "write") against key/namespace. Caller must hold s.mu.
func (s *Store) checkPermission(nodeID, op, key, namespace string) bool {
	if !s.accessControl {
		return true
	}
	entry, ok := s.permissions[nodeID]
	if !ok {
		return true
	}

	for _, d := range entry.Deny {
		if d == key || (namespace != "" && nsmatch.Match(d, namespace)) {
			return false
		}
	}

	switch op {
	case "read":
		for _, k := range entry.Read {
			if k == key {
				return true
			}
		}
		for _, p := range entry.NamespaceRead {
			if namespace != "" && nsmatch.Match(p, namespace) {
				return true
			}
		}
	case "write":
		for _, k := range entry.Write {
			if k == key {
				return true
			}
		}
		for _, p := range entry.NamespaceWrite {
			if namespace != "" && nsmatch.Match(p, namespace) {
				return true
			}
		}
	}
	return false
}

// deepClone round-trips value through JSON to produce an independent copy,
// preventing callers of namespace queries from aliasing stored state. This
// assumes values are JSON-serializable, per the Item contract.
func deepClone(v any) any {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return v
	}
	return out
}
