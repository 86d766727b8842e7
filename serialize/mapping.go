package serialize

import (
	"context"

	"github.com/google/go-cmp/cmp"

	"github.com/backpackflow/backpackflow-go/backpack"
	"github.com/backpackflow/backpackflow-go/contract"
	"github.com/backpackflow/backpackflow-go/node"
)

// mappingNode decorates a target node so that, before its own Prep runs,
// each declared mapping's source key is copied onto its target-local key
// name in the shared store. This is how an edge's Mappings (FlowConfig's
// per-edge key remapping, SPEC_FULL.md §4.5) take effect without asking
// every node type to know about remapping itself — a node type's Prep
// keeps reading the key name it was written against, and mappingNode
// makes that key exist under the incoming edge's chosen name beforehand.
type mappingNode struct {
	node.Node
	mappings map[string]string // source key -> target-local key to copy onto
}

// Unwrap exposes the decorated node, for code (export, type-name lookup)
// that needs the real node rather than the decorator.
func (m *mappingNode) Unwrap() node.Node { return m.Node }

// InputContract remaps the decorated node's declared input keys onto
// their mapped source key names. node.Run validates the input contract
// before Prep runs, so without this the decorated node's own declared
// key (which only starts to exist once Prep's copy runs) would always
// fail validation one step too early; checking for the source key name
// instead reports accurately on state that already exists in the store.
func (m *mappingNode) InputContract() contract.DataContract {
	inner := m.Node.InputContract()
	if inner == nil || len(m.mappings) == 0 {
		return inner
	}
	sourceForTarget := make(map[string]string, len(m.mappings))
	for source, target := range m.mappings {
		sourceForTarget[target] = source
	}
	remapped := make(contract.DataContract, len(inner))
	for key, schema := range inner {
		if source, ok := sourceForTarget[key]; ok {
			remapped[source] = schema
			continue
		}
		remapped[key] = schema
	}
	return remapped
}

func (m *mappingNode) Prep(ctx context.Context, shared *backpack.ScopedStore) (any, error) {
	for sourceKey, targetKey := range m.mappings {
		if targetKey == sourceKey {
			continue
		}
		value, ok, err := shared.Unpack(sourceKey)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if err := shared.Pack(targetKey, value, backpack.PackOptions{}); err != nil {
			return nil, err
		}
	}
	return m.Node.Prep(ctx, shared)
}

// wrapTargetWithMappings ensures e.To is backed by a mappingNode carrying
// e.Mappings (source key -> target-local key), merging into an existing
// decorator (from an earlier edge into the same target) rather than
// double-wrapping. Two edges that map different source keys onto the
// same target key is a conflict, reported as a SerializationError rather
// than silently letting the later edge win.
func wrapTargetWithMappings(f replaceableFlow, e FlowEdge) error {
	target, ok := f.GetNode(e.To)
	if !ok {
		return serializationf("edge references unknown target node %q", e.To)
	}

	existing, isMapping := target.(*mappingNode)
	mappings := make(map[string]string)
	if isMapping {
		mappings = existing.mappings
	}

	targetToSource := make(map[string]string, len(mappings))
	for source, t := range mappings {
		targetToSource[t] = source
	}

	for sourceKey, targetKey := range e.Mappings {
		if prior, has := targetToSource[targetKey]; has && !cmp.Equal(prior, sourceKey) {
			return serializationf("conflicting mapping for target key %q on node %q: %q vs %q", targetKey, e.To, prior, sourceKey)
		}
		mappings[sourceKey] = targetKey
		targetToSource[targetKey] = sourceKey
	}

	if isMapping {
		return nil
	}
	return f.ReplaceNode(e.To, &mappingNode{Node: target, mappings: mappings})
}

// replaceableFlow is the slice of *flow.Flow's surface wrapTargetWithMappings
// needs. Declared locally so mapping.go doesn't have to import flow just to
// name its concrete type in a function signature used only internally.
type replaceableFlow interface {
	GetNode(id string) (node.Node, bool)
	ReplaceNode(id string, n node.Node) error
}
