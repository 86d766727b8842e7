// Package serialize bridges a live *flow.Flow and the JSON FlowConfig
// document that names its node types and edges. LoadFlow builds a flow
// from a document; ExportFlow renders a flow back into one; ValidateConfig
// checks a document without instantiating anything.
package serialize

// SupportedVersion is the only FlowConfig schema version this bridge
// accepts. A document with a different version fails with
// SerializationError; a document with no version at all fails with
// ValidationError (SPEC_FULL.md §4.5 step 1).
const SupportedVersion = "2.0.0"

// NodeConfig is one node's entry in a FlowConfig document.
type NodeConfig struct {
	ID     string         `json:"id"`
	Type   string         `json:"type"`
	Params map[string]any `json:"params,omitempty"`
	// Flow is the internal subflow of a composite node. Export includes it
	// whenever the node's subflow has already been built.
	Flow *FlowConfig `json:"flow,omitempty"`
}

// FlowEdge is one wired transition: from source's Condition action
// string to To. Mappings, if present, maps each source key (map key) to
// the target-local key (map value) it should be copied onto before the
// target's lifecycle begins.
type FlowEdge struct {
	From      string            `json:"from"`
	To        string            `json:"to"`
	Condition string            `json:"condition"`
	Mappings  map[string]string `json:"mappings,omitempty"`
}

// FlowConfig is the document form of a Flow: a schema version, the
// flow's namespace, its nodes in declared order, and its edges.
type FlowConfig struct {
	Version      string         `json:"version"`
	Namespace    string         `json:"namespace,omitempty"`
	Nodes        []NodeConfig   `json:"nodes"`
	Edges        []FlowEdge     `json:"edges,omitempty"`
	Dependencies map[string]any `json:"dependencies,omitempty"`
}
