package serialize

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/backpackflow/backpackflow-go/backpack"
	"github.com/backpackflow/backpackflow-go/emit"
	"github.com/backpackflow/backpackflow-go/flow"
	"github.com/backpackflow/backpackflow-go/node"
	"github.com/backpackflow/backpackflow-go/registry"
	"github.com/backpackflow/backpackflow-go/telemetry"
)

// subflowRequester is the optional capability a composite node exposes;
// node.Base implements it. Loading a document whose node carries a
// nested "flow" against a type that doesn't implement this is a
// SerializationError, not a panic.
type subflowRequester interface {
	RequestSubflow() (node.Flow, error)
}

// LoadFlow parses raw as a FlowConfig document and builds a live Flow
// from it, dispatching each node through reg and wiring every edge
// (applying key mappings where declared). store/streamer/metrics are
// shared across the whole resulting flow tree, including any composite
// nodes' nested subflows.
func LoadFlow(raw []byte, reg *registry.Registry, store *backpack.Store, streamer *emit.Streamer, metrics *telemetry.Metrics) (*flow.Flow, error) {
	versionResult := gjson.GetBytes(raw, "version")
	if !versionResult.Exists() {
		return nil, validationf("document is missing a \"version\" field")
	}
	if versionResult.String() != SupportedVersion {
		return nil, serializationf("unsupported schema version %q, expected %q", versionResult.String(), SupportedVersion)
	}

	var cfg FlowConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, validationf("malformed document: %v", err)
	}
	if len(cfg.Nodes) == 0 {
		return nil, validationf("document declares no nodes")
	}

	f := flow.New(cfg.Namespace, store, streamer, metrics)
	if err := populateFlow(f, cfg, reg); err != nil {
		return nil, err
	}
	return f, nil
}

// populateFlow adds cfg's nodes and edges (and recurses into any
// composite node's nested subflow) onto the already-constructed f.
func populateFlow(f *flow.Flow, cfg FlowConfig, reg *registry.Registry) error {
	for _, nc := range cfg.Nodes {
		entry, ok := reg.Lookup(nc.Type)
		if !ok {
			return serializationf("unknown node type %q for node %q", nc.Type, nc.ID)
		}
		if _, exists := f.GetNode(nc.ID); exists {
			return validationf("flow %q has duplicate node id %q", cfg.Namespace, nc.ID)
		}

		n, err := f.AddNode(nc.ID, entry.Segment, nc.Params, entry.Factory)
		if err != nil {
			return err
		}
		if typed, ok := n.(interface{ SetTypeName(string) }); ok {
			typed.SetTypeName(entry.Name)
		}

		if nc.Flow != nil {
			if err := loadNestedFlow(n, nc, entry.Name, reg); err != nil {
				return err
			}
		}
	}

	for _, e := range cfg.Edges {
		if _, ok := f.GetNode(e.From); !ok {
			return serializationf("edge references unknown source node %q", e.From)
		}
		if _, ok := f.GetNode(e.To); !ok {
			return serializationf("edge references unknown target node %q", e.To)
		}
		if len(e.Mappings) > 0 {
			if err := wrapTargetWithMappings(f, e); err != nil {
				return err
			}
		}
		if err := f.On(e.From, e.Condition, e.To); err != nil {
			return err
		}
	}
	return nil
}

func loadNestedFlow(n node.Node, nc NodeConfig, typeName string, reg *registry.Registry) error {
	requester, ok := n.(subflowRequester)
	if !ok {
		return serializationf("node %q (type %q) declares a nested flow but its type does not support composite subflows", nc.ID, typeName)
	}
	rawSub, err := requester.RequestSubflow()
	if err != nil {
		return fmt.Errorf("node %q: requesting internal subflow: %w", nc.ID, err)
	}
	subflow, ok := rawSub.(*flow.Flow)
	if !ok {
		return serializationf("node %q: internal subflow is not a *flow.Flow", nc.ID)
	}
	return populateFlow(subflow, *nc.Flow, reg)
}
