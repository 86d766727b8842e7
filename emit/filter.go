package emit

import "github.com/backpackflow/backpackflow-go/internal/nsmatch"

// Filter narrows which events a handler receives. A nil *Filter (or the
// zero value) matches every event. Each non-empty field narrows the
// match further; all set fields must match for an event to pass.
type Filter struct {
	// NodeID, if set, requires an exact match against Event.NodeID.
	NodeID string
	// NamespacePattern, if set, is matched against Event.Namespace using
	// the same dot-segment wildcard rules as backpack namespace queries.
	NamespacePattern string
	// Types, if non-empty, requires Event.Type to be one of these.
	Types []EventType
	// RunID, if set, requires an exact match against Event.RunID.
	RunID string
}

func (f *Filter) matches(e Event) bool {
	if f == nil {
		return true
	}
	if f.NodeID != "" && f.NodeID != e.NodeID {
		return false
	}
	if f.RunID != "" && f.RunID != e.RunID {
		return false
	}
	if f.NamespacePattern != "" && !nsmatch.Match(f.NamespacePattern, e.Namespace) {
		return false
	}
	if len(f.Types) > 0 {
		found := false
		for _, t := range f.Types {
			if t == e.Type {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
