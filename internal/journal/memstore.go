package journal

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/hylla/statusdesk/internal/domain"
)

// SubtreeFunc returns a task id followed by the ids of its descendants.
type SubtreeFunc func(taskID string) []string

// MemoryStore is an in-process Store over a fixed entry list.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []domain.JournalEntry
	subtree SubtreeFunc
}

// NewMemoryStore constructs a store; subtree may be nil, in which case tasks have no descendants.
func NewMemoryStore(subtree SubtreeFunc, entries ...domain.JournalEntry) *MemoryStore {
	return &MemoryStore{
		entries: slices.Clone(entries),
		subtree: subtree,
	}
}

// Add appends entries in retrieval order.
func (s *MemoryStore) Add(entries ...domain.JournalEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entries...)
}

// Entries returns all stored entries.
func (s *MemoryStore) Entries() []domain.JournalEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.entries)
}

// EntriesByResource returns entries authored by resourceID in [start, end).
func (s *MemoryStore) EntriesByResource(_ context.Context, resourceID string, start, end time.Time) ([]domain.JournalEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.JournalEntry, 0)
	for _, entry := range s.entries {
		if entry.AuthorID != resourceID || !entry.InWindow(start, end) {
			continue
		}
		out = append(out, entry)
	}
	return out, nil
}

// CurrentEntries returns the latest qualifying entry per task of the subtree rooted at taskID.
func (s *MemoryStore) CurrentEntries(_ context.Context, end time.Time, taskID string, minLevel int, start time.Time) ([]domain.JournalEntry, error) {
	ids := []string{taskID}
	if s.subtree != nil {
		if subtree := s.subtree(taskID); len(subtree) > 0 {
			ids = subtree
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.JournalEntry, 0, len(ids))
	for _, id := range ids {
		var (
			latest domain.JournalEntry
			found  bool
		)
		for _, entry := range s.entries {
			if entry.SubjectID != id || entry.AlertLevel < minLevel || !entry.InWindow(start, end) {
				continue
			}
			// Later store order wins when dates tie.
			if !found || !entry.Date.Before(latest.Date) {
				latest, found = entry, true
			}
		}
		if found {
			out = append(out, latest)
		}
	}
	return out, nil
}
