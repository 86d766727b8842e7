// Package flow implements the orchestrator: it constructs, composes, and
// runs a node graph, routing from one node's Post-phase action string to
// the next node over edges the caller wires explicitly.
package flow

import (
	"context"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/backpackflow/backpackflow-go/backpack"
	"github.com/backpackflow/backpackflow-go/emit"
	"github.com/backpackflow/backpackflow-go/node"
	"github.com/backpackflow/backpackflow-go/telemetry"
)

// compose joins a parent namespace and a child segment the way every
// namespace in a flow tree is built: segment alone at the root, dotted
// beneath a parent.
func compose(parent, segment string) string {
	switch {
	case parent == "":
		return segment
	case segment == "":
		return parent
	default:
		return parent + "." + segment
	}
}

// Stats summarizes one Flow's current graph.
type Stats struct {
	Namespace string
	NodeCount int
	EdgeCount int
	EntryNode string
}

// Flow is one node graph: an insertion-ordered set of nodes, the edges
// between them, and the shared collaborators (state store, event
// streamer, metrics) every node in the tree runs against. A Flow tree —
// a root Flow plus any subflows composite nodes request — always shares
// one *backpack.Store and one *emit.Streamer, so state and events are
// visible across the whole tree regardless of which subflow produced
// them.
type Flow struct {
	namespace string
	store     *backpack.Store
	streamer  *emit.Streamer
	metrics   *telemetry.Metrics

	mu      sync.Mutex
	order   []string
	nodes   map[string]node.Node
	edges   map[string]map[string]string // source id -> condition -> target id
	entryID string
}

// New constructs an empty Flow at namespace, sharing store/streamer/
// metrics with the rest of its tree. Pass an empty namespace for a root
// flow.
func New(namespace string, store *backpack.Store, streamer *emit.Streamer, metrics *telemetry.Metrics) *Flow {
	return &Flow{
		namespace: namespace,
		store:     store,
		streamer:  streamer,
		metrics:   metrics,
		nodes:     make(map[string]node.Node),
		edges:     make(map[string]map[string]string),
	}
}

// Namespace returns this flow's composed namespace.
func (f *Flow) Namespace() string { return f.namespace }

func (f *Flow) constructorContext(fullNamespace string) node.ConstructorContext {
	return node.ConstructorContext{
		Namespace: fullNamespace,
		Store:     f.store,
		Streamer:  f.streamer,
		Metrics:   f.metrics,
		NewSubflow: node.OnceSubflowFactory(func() (node.Flow, error) {
			return f.childAt(fullNamespace), nil
		}),
	}
}

// AddNode constructs a node via factory, computing its namespace as
// compose(f.namespace, segment) — falling back to id when segment is
// empty, per SPEC_FULL.md §4.4 — and registers it under id. A duplicate
// id overwrites the existing node in place; only RegisterNode rejects
// collisions.
func (f *Flow) AddNode(id, segment string, config any, factory node.Factory) (node.Node, error) {
	if segment == "" {
		segment = id
	}
	n, err := factory(id, config, f.constructorContext(compose(f.namespace, segment)))
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	if _, exists := f.nodes[id]; !exists {
		f.order = append(f.order, id)
	}
	f.nodes[id] = n
	f.mu.Unlock()

	return n, nil
}

// RegisterNode inserts an externally constructed node instance. Unlike
// AddNode it rejects a duplicate id.
func (f *Flow) RegisterNode(n node.Node) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.nodes[n.ID()]; exists {
		return &DuplicateNodeError{ID: n.ID()}
	}
	f.order = append(f.order, n.ID())
	f.nodes[n.ID()] = n
	return nil
}

// ReplaceNode swaps the node registered under id for n, keeping its
// position in insertion order. Used by the serialization loader to wrap
// an already-added node in a mapping decorator once an incoming edge's
// key mappings are known. Returns UnknownNodeError if id isn't
// registered yet — ReplaceNode never inserts.
func (f *Flow) ReplaceNode(id string, n node.Node) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.nodes[id]; !exists {
		return &UnknownNodeError{ID: id}
	}
	f.nodes[id] = n
	return nil
}

// SetEntryNode designates id as the node Run starts from when no start
// node is passed explicitly.
func (f *Flow) SetEntryNode(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.nodes[id]; !ok {
		return &UnknownNodeError{ID: id}
	}
	f.entryID = id
	return nil
}

// GetNode looks up a registered node by id.
func (f *Flow) GetNode(id string) (node.Node, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.nodes[id]
	return n, ok
}

// GetAllNodes returns every registered node in insertion order.
func (f *Flow) GetAllNodes() []node.Node {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]node.Node, 0, len(f.order))
	for _, id := range f.order {
		out = append(out, f.nodes[id])
	}
	return out
}

// GetStats summarizes the current graph.
func (f *Flow) GetStats() Stats {
	f.mu.Lock()
	defer f.mu.Unlock()
	edgeCount := 0
	for _, byCondition := range f.edges {
		edgeCount += len(byCondition)
	}
	return Stats{Namespace: f.namespace, NodeCount: len(f.order), EdgeCount: edgeCount, EntryNode: f.entryID}
}

// On wires sourceID's Post-phase action string "condition" to targetID.
// A later call for the same (sourceID, condition) pair overwrites the
// earlier target.
func (f *Flow) On(sourceID, condition, targetID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.nodes[sourceID]; !ok {
		return &UnknownNodeError{ID: sourceID}
	}
	if f.edges[sourceID] == nil {
		f.edges[sourceID] = make(map[string]string)
	}
	f.edges[sourceID][condition] = targetID
	return nil
}

// Edges returns every wired edge, primarily for the serialization
// bridge's export path.
func (f *Flow) Edges() []Edge {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Edge
	for _, sourceID := range f.order {
		for condition, targetID := range f.edges[sourceID] {
			out = append(out, Edge{From: sourceID, Condition: condition, To: targetID})
		}
	}
	return out
}

// CreateSubflow returns a new Flow composed under this one at segment,
// sharing this flow's state store, event streamer, and metrics.
func (f *Flow) CreateSubflow(segment string) *Flow {
	return f.childAt(compose(f.namespace, segment))
}

func (f *Flow) childAt(namespace string) *Flow {
	return New(namespace, f.store, f.streamer, f.metrics)
}

// Run executes the graph starting at startNode (or the configured entry
// node if startNode is empty), following each node's returned action
// string over the wired edges until one of the three halt conditions is
// reached: the action is empty, no edge exists for (current, action), or
// the edge's target isn't a node in this flow. It returns the last action
// observed before halting. A generated runID is used when runID is
// empty. Node errors propagate unwrapped; Run never retries.
func (f *Flow) Run(ctx context.Context, startNode string, runID string) (string, error) {
	if runID == "" {
		runID = uuid.NewString()
	}

	currentID := startNode
	if currentID == "" {
		f.mu.Lock()
		currentID = f.entryID
		f.mu.Unlock()
		if currentID == "" {
			return "", &NoEntryNodeError{}
		}
	}

	for {
		f.mu.Lock()
		current, ok := f.nodes[currentID]
		f.mu.Unlock()
		if !ok {
			return "", &UnknownNodeError{ID: currentID}
		}

		action, err := node.Run(ctx, current, node.RunContext{
			Store:    f.store,
			Streamer: f.streamer,
			Metrics:  f.metrics,
			RunID:    runID,
		})
		if err != nil {
			return "", err
		}
		if action == "" {
			return action, nil
		}

		f.mu.Lock()
		nextID, hasEdge := f.edges[currentID][action]
		f.mu.Unlock()
		if !hasEdge {
			return action, nil
		}

		f.mu.Lock()
		_, nextExists := f.nodes[nextID]
		f.mu.Unlock()
		if !nextExists {
			log.Printf("flow: successor %q for action %q is not a node in this flow, halting", nextID, action)
			return action, nil
		}
		currentID = nextID
	}
}
