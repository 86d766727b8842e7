package backpack

// replayItems reconstructs the item set that would exist after replaying
// every pack-commit in history[:upTo+1], in chronological order. Caller
// must hold s.mu.
func (s *Store) replayItems(upTo int) map[string]Item {
	versions := make(map[string]int)
	items := make(map[string]Item)
	for i := 0; i <= upTo; i++ {
		c := s.history[i]
		if c.Action != ActionPack {
			continue
		}
		versions[c.Key]++
		items[c.Key] = Item{
			Key:   c.Key,
			Value: c.NewValue,
			Metadata: Metadata{
				SourceNodeID:    c.NodeID,
				SourceNodeName:  c.NodeName,
				SourceNamespace: c.Namespace,
				Timestamp:       c.Timestamp,
				Version:         versions[c.Key],
			},
		}
	}
	return items
}

// GetSnapshotAtCommit reconstructs a new, empty-history Store by replaying
// every pack-commit up to and including commitID, in chronological order.
// Returns InvalidCommitError if commitID is unknown (including if it was
// evicted from a bounded history).
func (s *Store) GetSnapshotAtCommit(commitID string) (*Store, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, c := range s.history {
		if c.CommitID == commitID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return nil, &InvalidCommitError{Code: "INVALID_COMMIT", CommitID: commitID}
	}

	snap := New(WithMaxHistory(s.maxHistory))
	snap.items = s.replayItems(idx)
	return snap, nil
}

// GetSnapshotBeforeNode reconstructs a Store holding the state immediately
// prior to the first commit authored by nodeID — useful for debugging
// "what did this node see." Returns (nil, false) if nodeID never wrote.
func (s *Store) GetSnapshotBeforeNode(nodeID string) (*Store, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, c := range s.history {
		if c.Action == ActionPack && c.NodeID == nodeID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return nil, false
	}

	snap := New(WithMaxHistory(s.maxHistory))
	if idx > 0 {
		snap.items = s.replayItems(idx - 1)
	}
	return snap, true
}
