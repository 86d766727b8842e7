package flow

import "fmt"

// DuplicateNodeError is raised by RegisterNode when id is already taken.
// AddNode, by contrast, overwrites in place (SPEC_FULL.md §4.4). The
// serialization loader adds nodes through AddNode but checks for an
// existing id first, since a loaded document duplicating an id is a
// document error rather than a legitimate re-registration.
type DuplicateNodeError struct{ ID string }

func (e *DuplicateNodeError) Error() string {
	return fmt.Sprintf("flow: node id %q already registered", e.ID)
}

// UnknownNodeError is raised when an operation references a node id that
// isn't present in the flow (SetEntryNode, On, ReplaceNode, and Run when
// the node to run next is not registered).
type UnknownNodeError struct{ ID string }

func (e *UnknownNodeError) Error() string {
	return fmt.Sprintf("flow: unknown node id %q", e.ID)
}

// NoEntryNodeError is raised by Run when no start node was supplied and
// no entry node has been configured.
type NoEntryNodeError struct{}

func (e *NoEntryNodeError) Error() string {
	return "flow: no start node given and no entry node configured"
}
