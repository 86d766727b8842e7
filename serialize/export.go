package serialize

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/backpackflow/backpackflow-go/flow"
	"github.com/backpackflow/backpackflow-go/node"
)

// maxExportDepth bounds subflow recursion; exceeding it means something
// is wrong with how subflows were constructed rather than a legitimately
// deep flow tree.
const maxExportDepth = 32

// ExportFlow renders f back into a FlowConfig document, recursing into
// every composite node's already-built internal subflow. A composite
// node whose subflow was never requested (never invoked) exports with
// no nested Flow at all — that's a legitimate state, not an error.
func ExportFlow(f *flow.Flow) (*FlowConfig, error) {
	return exportFlow(f, make(map[*flow.Flow]bool), 0)
}

// ExportFlowMerge renders f and patches the result onto original's raw
// bytes. Only the top-level fields this bridge produces (version,
// namespace, nodes, edges) are overwritten, each as a whole value, so any
// other top-level field original carries (for example "dependencies" or a
// custom label) survives the round-trip. Fields inside individual node or
// edge entries that this bridge doesn't model (custom metadata, UI layout
// hints) are not preserved: they are replaced along with the nodes and
// edges arrays.
func ExportFlowMerge(f *flow.Flow, original []byte) ([]byte, error) {
	cfg, err := ExportFlow(f)
	if err != nil {
		return nil, err
	}
	rendered, err := json.Marshal(cfg)
	if err != nil {
		return nil, serializationf("encoding exported document: %v", err)
	}

	merged := original
	for _, path := range []string{"version", "namespace", "nodes", "edges"} {
		patch := gjson.GetBytes(rendered, path)
		if !patch.Exists() {
			continue
		}
		merged, err = sjson.SetRawBytes(merged, path, []byte(patch.Raw))
		if err != nil {
			return nil, serializationf("merging exported %s: %v", path, err)
		}
	}
	return merged, nil
}

func exportFlow(f *flow.Flow, visited map[*flow.Flow]bool, depth int) (*FlowConfig, error) {
	if depth > maxExportDepth {
		return nil, serializationf("subflow nesting exceeds maximum depth %d", maxExportDepth)
	}
	if visited[f] {
		return nil, serializationf("circular subflow reference detected while exporting namespace %q", f.Namespace())
	}
	visited[f] = true
	defer delete(visited, f)

	cfg := &FlowConfig{
		Version:   SupportedVersion,
		Namespace: f.Namespace(),
	}

	for _, n := range f.GetAllNodes() {
		nc, err := exportNode(n, visited, depth)
		if err != nil {
			return nil, err
		}
		cfg.Nodes = append(cfg.Nodes, nc)
	}

	for _, e := range f.Edges() {
		fe := FlowEdge{From: e.From, Condition: e.Condition, To: e.To}
		if target, ok := f.GetNode(e.To); ok {
			if mn, ok := target.(*mappingNode); ok && len(mn.mappings) > 0 {
				fe.Mappings = mn.mappings
			}
		}
		cfg.Edges = append(cfg.Edges, fe)
	}

	return cfg, nil
}

// underlyingNode strips any mappingNode (or other Unwrap-capable)
// decorator to reach the node type export actually needs to introspect
// (its type name and, for composite nodes, its subflow).
func underlyingNode(n node.Node) node.Node {
	for {
		u, ok := n.(interface{ Unwrap() node.Node })
		if !ok {
			return n
		}
		n = u.Unwrap()
	}
}

func exportNode(n node.Node, visited map[*flow.Flow]bool, depth int) (NodeConfig, error) {
	real := underlyingNode(n)

	typeName := ""
	if typed, ok := real.(interface{ TypeName() string }); ok {
		typeName = typed.TypeName()
	}
	if typeName == "" {
		typeName = fmt.Sprintf("%T", real)
		log.Printf("serialize: node %q has no registered type name, exporting as %q", n.ID(), typeName)
	}

	nc := NodeConfig{ID: n.ID(), Type: typeName, Params: real.Params()}

	if peeker, ok := real.(interface{ Subflow() (node.Flow, bool) }); ok {
		if sf, has := peeker.Subflow(); has {
			subflow, ok := sf.(*flow.Flow)
			if !ok {
				return NodeConfig{}, serializationf("node %q: internal subflow is not a *flow.Flow", n.ID())
			}
			nested, err := exportFlow(subflow, visited, depth+1)
			if err != nil {
				return NodeConfig{}, err
			}
			nc.Flow = nested
		}
	}

	return nc, nil
}
