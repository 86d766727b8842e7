package backpack

import "github.com/google/go-cmp/cmp"

// Modification describes one key whose value differs between two stores.
type Modification struct {
	Key      string `json:"key"`
	OldValue any    `json:"oldValue"`
	NewValue any    `json:"newValue"`
}

// DiffResult is the outcome of comparing the current item sets of two
// stores.
type DiffResult struct {
	Added    []string       `json:"added"`
	Removed  []string       `json:"removed"`
	Modified []Modification `json:"modified"`
}

// Diff compares a's and b's current item sets. A key present in both with
// structurally equal values (compared with cmp.Equal, not ==, so nested
// maps/slices inside an `any` payload compare correctly) is neither added,
// removed, nor modified.
func Diff(a, b *Store) DiffResult {
	a.mu.Lock()
	aItems := make(map[string]Item, len(a.items))
	for k, v := range a.items {
		aItems[k] = v
	}
	a.mu.Unlock()

	b.mu.Lock()
	bItems := make(map[string]Item, len(b.items))
	for k, v := range b.items {
		bItems[k] = v
	}
	b.mu.Unlock()

	var result DiffResult
	for k, bItem := range bItems {
		aItem, ok := aItems[k]
		if !ok {
			result.Added = append(result.Added, k)
			continue
		}
		if !cmp.Equal(aItem.Value, bItem.Value) {
			result.Modified = append(result.Modified, Modification{
				Key: k, OldValue: aItem.Value, NewValue: bItem.Value,
			})
		}
	}
	for k := range aItems {
		if _, ok := bItems[k]; !ok {
			result.Removed = append(result.Removed, k)
		}
	}
	return result
}
