package backpack

import "sort"

// appendCommit appends a commit to history, evicting the oldest entry on
// overflow (FIFO). Caller must hold s.mu.
func (s *Store) appendCommit(c Commit) {
	s.history = append(s.history, c)
	if len(s.history) > s.maxHistory {
		s.history = s.history[len(s.history)-s.maxHistory:]
	}
}

// newestFirst returns a copy of commits ordered newest-first by
// timestamp. commits is chronological (oldest first); it is reversed
// before a stable sort, so commits sharing the same millisecond timestamp
// are still ordered newest-first by append order.
func newestFirst(commits []Commit) []Commit {
	out := make([]Commit, len(commits))
	for i, c := range commits {
		out[len(commits)-1-i] = c
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp > out[j].Timestamp
	})
	return out
}

// GetHistory returns every commit still in history, newest-first.
func (s *Store) GetHistory() []Commit {
	s.mu.Lock()
	defer s.mu.Unlock()
	return newestFirst(s.history)
}

// GetKeyHistory returns the commits touching key, newest-first.
func (s *Store) GetKeyHistory(key string) []Commit {
	s.mu.Lock()
	defer s.mu.Unlock()
	var matched []Commit
	for _, c := range s.history {
		if c.Key == key {
			matched = append(matched, c)
		}
	}
	return newestFirst(matched)
}
