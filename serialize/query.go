package serialize

import "strings"

// FlattenNodes returns every node in cfg's tree, including nodes nested
// inside composite nodes' internal flows, in depth-first declaration
// order.
func FlattenNodes(cfg FlowConfig) []NodeConfig {
	var out []NodeConfig
	for _, nc := range cfg.Nodes {
		out = append(out, nc)
		if nc.Flow != nil {
			out = append(out, FlattenNodes(*nc.Flow)...)
		}
	}
	return out
}

// FlattenEdges returns every edge in cfg's tree, including edges inside
// composite nodes' internal flows.
func FlattenEdges(cfg FlowConfig) []FlowEdge {
	out := append([]FlowEdge(nil), cfg.Edges...)
	for _, nc := range cfg.Nodes {
		if nc.Flow != nil {
			out = append(out, FlattenEdges(*nc.Flow)...)
		}
	}
	return out
}

// FindNode resolves a dot-separated path (e.g. "loopNode.innerNode")
// against cfg, descending into a composite node's internal Flow for
// every path segment after the first. Returns false if any segment
// along the path doesn't resolve to a node.
func FindNode(cfg FlowConfig, path string) (NodeConfig, bool) {
	segments := strings.Split(path, ".")
	nodes := cfg.Nodes
	var found NodeConfig
	for i, segment := range segments {
		var ok bool
		found, ok = findByID(nodes, segment)
		if !ok {
			return NodeConfig{}, false
		}
		if i < len(segments)-1 {
			if found.Flow == nil {
				return NodeConfig{}, false
			}
			nodes = found.Flow.Nodes
		}
	}
	return found, true
}

func findByID(nodes []NodeConfig, id string) (NodeConfig, bool) {
	for _, nc := range nodes {
		if nc.ID == id {
			return nc, true
		}
	}
	return NodeConfig{}, false
}

// GetCompositeNodes returns every node in cfg's own node list (not
// descending further) that carries a nested internal Flow.
func GetCompositeNodes(cfg FlowConfig) []NodeConfig {
	var out []NodeConfig
	for _, nc := range cfg.Nodes {
		if nc.Flow != nil {
			out = append(out, nc)
		}
	}
	return out
}

// GetMaxDepth returns the deepest composite-node nesting level in cfg,
// where a flat document with no composite nodes is depth 1.
func GetMaxDepth(cfg FlowConfig) int {
	depth := 1
	for _, nc := range cfg.Nodes {
		if nc.Flow == nil {
			continue
		}
		if d := 1 + GetMaxDepth(*nc.Flow); d > depth {
			depth = d
		}
	}
	return depth
}
