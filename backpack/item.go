// Package backpack implements the content-addressed, versioned state store
// ("Backpack") shared by every node in a flow tree: pack/unpack with
// provenance, bounded history, snapshot reconstruction, namespace queries,
// diffing, and an opt-in permission layer.
package backpack

// Metadata carries the provenance stamped onto every State Item by the node
// that wrote it.
type Metadata struct {
	SourceNodeID    string         `json:"sourceNodeId"`
	SourceNodeName  string         `json:"sourceNodeName"`
	SourceNamespace string         `json:"sourceNamespace,omitempty"`
	Timestamp       int64          `json:"timestamp"` // ms since epoch
	Version         int            `json:"version"`   // monotonic per key, starts at 1
	Tags            map[string]any `json:"tags,omitempty"`
}

// Item is a single entry in the store. The store is its exclusive owner;
// callers reading through a namespace query receive a deep copy (see
// namespace.go), while a direct Peek/Unpack by key may hand back the live
// value under the single-threaded contract in SPEC_FULL.md §5.
type Item struct {
	Key      string   `json:"key"`
	Value    any      `json:"value"`
	Metadata Metadata `json:"metadata"`
}

// Action identifies what kind of state-changing (or read-logging) operation
// produced a Commit.
type Action string

const (
	ActionPack       Action = "pack"
	ActionUnpack     Action = "unpack"
	ActionQuarantine Action = "quarantine"
)

// Commit is an immutable history record appended for every write (and,
// when EmitReads is enabled, every read).
type Commit struct {
	CommitID     string `json:"commitId"`
	Timestamp    int64  `json:"timestamp"`
	NodeID       string `json:"nodeId"`
	NodeName     string `json:"nodeName"`
	Namespace    string `json:"namespace,omitempty"`
	Action       Action `json:"action"`
	Key          string `json:"key"`
	NewValue     any    `json:"newValue,omitempty"`
	PreviousValue any   `json:"previousValue,omitempty"`
	ValueSummary string `json:"valueSummary"`
}

// PermissionEntry bundles the access rules for one node identity. The zero
// value (no entry registered) means unrestricted access — enforcement is
// opt-in per spec.
type PermissionEntry struct {
	Read          []string `json:"read,omitempty"`
	Write         []string `json:"write,omitempty"`
	Deny          []string `json:"deny,omitempty"`
	NamespaceRead []string `json:"namespaceRead,omitempty"`
	NamespaceWrite []string `json:"namespaceWrite,omitempty"`
}

// PackOptions configures a Pack call's provenance and tagging.
type PackOptions struct {
	NodeID    string
	NodeName  string
	Namespace string
	Tags      map[string]any
}
