package backpack

import (
	"sort"

	"github.com/backpackflow/backpackflow-go/internal/nsmatch"
)

// UnpackByNamespace returns a deep-cloned copy of every item whose source
// namespace matches pattern, filtered by nodeID's read permissions. An
// invalid pattern (e.g. mismatched segment count against every namespace
// present) simply yields no matches rather than raising.
func (s *Store) UnpackByNamespace(pattern string, nodeID string) map[string]any {
	items := s.GetItemsByNamespace(pattern, nodeID)
	out := make(map[string]any, len(items))
	for _, item := range items {
		out[item.Key] = item.Value
	}
	return out
}

// GetItemsByNamespace returns full Items (with metadata) whose source
// namespace matches pattern, filtered by nodeID's read permissions. Values
// are deep-cloned.
func (s *Store) GetItemsByNamespace(pattern string, nodeID string) []Item {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []Item
	for key, item := range s.items {
		if item.Metadata.SourceNamespace == "" {
			continue
		}
		if !nsmatch.Match(pattern, item.Metadata.SourceNamespace) {
			continue
		}
		if nodeID != "" && !s.checkPermission(nodeID, "read", key, item.Metadata.SourceNamespace) {
			continue
		}
		clone := item
		clone.Value = deepClone(item.Value)
		matched = append(matched, clone)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Key < matched[j].Key })
	return matched
}

// GetNamespaces returns the sorted, de-duplicated list of non-empty source
// namespaces currently present in the store.
func (s *Store) GetNamespaces() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{})
	for _, item := range s.items {
		if item.Metadata.SourceNamespace != "" {
			seen[item.Metadata.SourceNamespace] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for ns := range seen {
		out = append(out, ns)
	}
	sort.Strings(out)
	return out
}
