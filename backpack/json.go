package backpack

import (
	"encoding/json"
	"time"
)

// ItemEntry is one (key, Item) pair. It marshals as a two-element JSON
// array ([key, item]) to match the Snapshot document shape in
// SPEC_FULL.md §6 (`items: [[key, Item]]`).
type ItemEntry struct {
	Key  string
	Item Item
}

// MarshalJSON implements json.Marshaler.
func (e ItemEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{e.Key, e.Item})
}

// UnmarshalJSON implements json.Unmarshaler.
func (e *ItemEntry) UnmarshalJSON(data []byte) error {
	var raw [2]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if err := json.Unmarshal(raw[0], &e.Key); err != nil {
		return err
	}
	return json.Unmarshal(raw[1], &e.Item)
}

// Snapshot is the wire format for a full Store dump: the complete item
// map, history, and permission table, per SPEC_FULL.md §6.
type Snapshot struct {
	Items       []ItemEntry                 `json:"items"`
	History     []Commit                    `json:"history"`
	Permissions map[string]PermissionEntry   `json:"permissions"`
	Timestamp   int64                        `json:"timestamp"`
	CommitID    string                       `json:"commitId,omitempty"`
}

// ToJSON serializes the store's full item map, history, and permission
// table.
func (s *Store) ToJSON() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := make([]ItemEntry, 0, len(s.items))
	for k, v := range s.items {
		entries = append(entries, ItemEntry{Key: k, Item: v})
	}

	snap := Snapshot{
		Items:       entries,
		History:     append([]Commit(nil), s.history...),
		Permissions: s.permissions,
		Timestamp:   time.Now().UnixMilli(),
	}
	if len(s.history) > 0 {
		snap.CommitID = s.history[len(s.history)-1].CommitID
	}
	return json.Marshal(snap)
}

// FromJSON reconstructs a Store from a Snapshot document produced by
// ToJSON. Options apply to the reconstructed store (e.g. WithAccessControl,
// WithMetrics); history/items/permissions themselves always come from
// data.
func FromJSON(data []byte, opts ...Option) (*Store, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, err
	}

	s := New(opts...)
	for _, entry := range snap.Items {
		s.items[entry.Key] = entry.Item
	}
	s.history = append([]Commit(nil), snap.History...)
	if len(s.history) > s.maxHistory {
		s.history = s.history[len(s.history)-s.maxHistory:]
	}
	if snap.Permissions != nil {
		s.permissions = snap.Permissions
	}
	return s, nil
}
