// Package node implements the three-phase node lifecycle contract: a
// node declares its namespace segment and optional input/output
// contracts, and Run drives it through Prep/Exec/Post while capturing
// provenance, validating its declared inputs, and emitting lifecycle
// events.
package node

import (
	"context"
	"sync"

	"github.com/backpackflow/backpackflow-go/backpack"
	"github.com/backpackflow/backpackflow-go/contract"
	"github.com/backpackflow/backpackflow-go/emit"
	"github.com/backpackflow/backpackflow-go/telemetry"
)

// ConstructorContext is what the orchestrator hands a node type's
// constructor: the fully composed namespace it will run under, the
// shared collaborators, and (for node types that support the composite
// hook) a factory for its one-time internal subflow.
type ConstructorContext struct {
	Namespace  string
	Store      *backpack.Store
	Streamer   *emit.Streamer
	Metrics    *telemetry.Metrics
	NewSubflow SubflowFactory
}

// Factory constructs one node instance from its id and node-type-specific
// config. Concrete node types expose one of these (directly, or wrapped
// by registry.Registration) rather than a generic reflective constructor.
type Factory func(id string, config any, cctx ConstructorContext) (Node, error)

// Node is one processing unit in a flow graph. Concrete node types embed
// Base for the identity/subflow plumbing and override whichever phases
// they need; Base's own Prep/Exec/Post are no-ops so a node that only
// needs one phase doesn't have to stub the other two.
type Node interface {
	// ID is this node instance's identifier, unique within its flow.
	ID() string

	// Namespace is this node's full dotted namespace, composed by the
	// orchestrator from its flow's namespace and its segment (flow.compose).
	Namespace() string

	// Params returns the node's own configuration, rendered as a plain
	// map for the NODE_START event payload and the registry's config
	// schema reflection. May return nil.
	Params() map[string]any

	// InputContract declares the keys (and schemas) this node requires
	// to be present in the shared store before Exec runs. A nil
	// DataContract means no validation is performed.
	InputContract() contract.DataContract

	// OutputContract declares the keys this node is expected to
	// produce. Unlike InputContract it is advertised (via the registry)
	// but not enforced by Run — the source defines no built-in output
	// validation step.
	OutputContract() contract.DataContract

	// Prep gathers whatever the node needs from shared state before
	// Exec runs. Its return value is passed to Exec unchanged.
	Prep(ctx context.Context, shared *backpack.ScopedStore) (any, error)

	// Exec performs the node's core computation. It must not touch the
	// shared store directly — Prep and Post are the only phases with
	// store access, so that Exec can be retried or replayed in
	// isolation without side effects leaking through it.
	Exec(ctx context.Context, prepResult any) (any, error)

	// Post writes results back to shared state and returns the action
	// string the orchestrator uses to route to the next node. An empty
	// action halts the flow.
	Post(ctx context.Context, shared *backpack.ScopedStore, prepResult, execResult any) (string, error)
}

// Flow is the minimal surface a composite node needs from an internal
// subflow. flow.Flow satisfies this interface structurally; node does not
// import the flow package, so the two packages don't form a cycle.
type Flow interface {
	RegisterNode(n Node) error
	SetEntryNode(id string) error
	Run(ctx context.Context, startNode string, runID string) (string, error)
}

// SubflowFactory creates a composite node's internal Flow on first
// request. Build one with OnceSubflowFactory so a second request raises
// rather than constructing a second subflow.
type SubflowFactory func() (Flow, error)

// ErrSubflowAlreadyExists is returned by a SubflowFactory built with
// OnceSubflowFactory on any call after the first.
var ErrSubflowAlreadyExists = &subflowExistsError{}

// ErrSubflowUnsupported is returned by Base.RequestSubflow when the node
// was constructed without a SubflowFactory at all.
var ErrSubflowUnsupported = &subflowUnsupportedError{}

type subflowExistsError struct{}

func (*subflowExistsError) Error() string { return "internal flow already exists" }

type subflowUnsupportedError struct{}

func (*subflowUnsupportedError) Error() string { return "node does not support composite subflows" }

// OnceSubflowFactory wraps create so it only ever runs once; every
// subsequent call returns ErrSubflowAlreadyExists instead of invoking
// create again. The orchestrator uses this to back each composite node's
// one-time subflow request (SPEC_FULL.md §4.3).
func OnceSubflowFactory(create func() (Flow, error)) SubflowFactory {
	var mu sync.Mutex
	var used bool
	return func() (Flow, error) {
		mu.Lock()
		defer mu.Unlock()
		if used {
			return nil, ErrSubflowAlreadyExists
		}
		used = true
		return create()
	}
}

// Base provides the identity fields and subflow plumbing shared by every
// node type, plus no-op Prep/Exec/Post so embedders only override what
// they actually use. It does not implement InputContract/OutputContract/
// Params — concrete node types declare those themselves, since they vary
// per node type rather than being identity plumbing.
type Base struct {
	id         string
	namespace  string
	newSubflow SubflowFactory
	typeName   string

	mu      sync.Mutex
	subflow Flow
}

// NewBase constructs the identity plumbing for a node instance. newSubflow
// may be nil for node types that never request a composite subflow.
func NewBase(id, namespace string, newSubflow SubflowFactory) Base {
	return Base{id: id, namespace: namespace, newSubflow: newSubflow}
}

func (b *Base) ID() string        { return b.id }
func (b *Base) Namespace() string { return b.namespace }

// SetTypeName records the registry type name this instance was
// constructed as. The registry-driven loader calls this right after
// construction; a node built directly (not through a registry) simply
// never has one, and TypeName reports "".
func (b *Base) SetTypeName(name string) { b.typeName = name }

// TypeName returns the name SetTypeName last recorded, or "" if never
// set. The serialization bridge's export path uses this to recover a
// node's registry type name; a node type that doesn't embed Base (or
// was never constructed through the registry) simply doesn't implement
// this method/returns "", and export falls back to a Go type name.
func (b *Base) TypeName() string { return b.typeName }

// RequestSubflow requests this node's one-time internal Flow. Calling it
// a second time returns ErrSubflowAlreadyExists (surfaced by the
// OnceSubflowFactory the orchestrator wraps newSubflow in).
func (b *Base) RequestSubflow() (Flow, error) {
	if b.newSubflow == nil {
		return nil, ErrSubflowUnsupported
	}
	sf, err := b.newSubflow()
	if err != nil {
		return nil, err
	}
	b.mu.Lock()
	b.subflow = sf
	b.mu.Unlock()
	return sf, nil
}

// Subflow returns the node's internal Flow if RequestSubflow has already
// succeeded once, without triggering construction. The serialization
// bridge's export path uses this to discover an already-built composite
// subflow without consuming the one-time request itself.
func (b *Base) Subflow() (Flow, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.subflow, b.subflow != nil
}

func (*Base) Prep(context.Context, *backpack.ScopedStore) (any, error) { return nil, nil }
func (*Base) Exec(context.Context, any) (any, error)                   { return nil, nil }
func (*Base) Post(context.Context, *backpack.ScopedStore, any, any) (string, error) {
	return "", nil
}
