package flow

// Edge is a named transition from one node to another, keyed by the
// action string the source node's Post phase returns. Edges live on the
// Flow rather than on the node instance itself — Node is a plain
// interface with no successor table of its own, so the orchestrator is
// the single owner of graph structure.
type Edge struct {
	From      string
	Condition string
	To        string
}
