package journal

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"slices"
	"time"

	"github.com/hylla/statusdesk/internal/domain"
)

// ErrStoreRequired is returned when an aggregator is built without a store.
var ErrStoreRequired = errors.New("journal store is required")

// Buckets holds journal entries partitioned by alert level; index is the level.
type Buckets struct {
	levels      [][]domain.JournalEntry
	longVersion bool
}

// Bucket partitions entries into one bucket per level of table. Within a bucket entries are
// ordered by date ascending; entries sharing a date keep their input order.
func Bucket(entries []domain.JournalEntry, table domain.AlertLevelTable) (Buckets, error) {
	levels := make([][]domain.JournalEntry, table.Len())
	for _, entry := range entries {
		if !table.Valid(entry.AlertLevel) {
			return Buckets{}, fmt.Errorf("entry %q level %d of %d: %w", entry.ID, entry.AlertLevel, table.Len(), domain.ErrInvalidAlertLevel)
		}
		levels[entry.AlertLevel] = append(levels[entry.AlertLevel], entry)
	}
	for _, bucket := range levels {
		slices.SortStableFunc(bucket, func(a, b domain.JournalEntry) int {
			return a.Date.Compare(b.Date)
		})
	}
	return Buckets{levels: levels}, nil
}

// Descending yields (level, entries) from the highest level down to 0, including empty buckets.
func (b Buckets) Descending() iter.Seq2[int, []domain.JournalEntry] {
	return func(yield func(int, []domain.JournalEntry) bool) {
		for level := len(b.levels) - 1; level >= 0; level-- {
			if !yield(level, b.levels[level]) {
				return
			}
		}
	}
}

// Entries flattens the buckets in rendering order.
func (b Buckets) Entries() []domain.JournalEntry {
	out := make([]domain.JournalEntry, 0, b.Len())
	for _, bucket := range b.Descending() {
		out = append(out, bucket...)
	}
	return out
}

// Level returns a copy of one bucket.
func (b Buckets) Level(level int) []domain.JournalEntry {
	if level < 0 || level >= len(b.levels) {
		return nil
	}
	return append([]domain.JournalEntry(nil), b.levels[level]...)
}

// Levels returns the number of buckets.
func (b Buckets) Levels() int {
	return len(b.levels)
}

// Len returns the total number of entries across all buckets.
func (b Buckets) Len() int {
	total := 0
	for _, bucket := range b.levels {
		total += len(bucket)
	}
	return total
}

// LongVersion reports whether the collection was requested with details.
func (b Buckets) LongVersion() bool {
	return b.longVersion
}

// Aggregator fetches entries for one resource and buckets them against the alert table.
type Aggregator struct {
	store  Store
	levels domain.AlertLevelTable
}

// NewAggregator constructs an aggregator over store and levels.
func NewAggregator(store Store, levels domain.AlertLevelTable) (*Aggregator, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	return &Aggregator{store: store, levels: levels}, nil
}

// Collect returns the bucketed entries of resourceID in [start, end).
func (a *Aggregator) Collect(ctx context.Context, resourceID string, start, end time.Time, longVersion bool) (Buckets, error) {
	entries, err := a.store.EntriesByResource(ctx, resourceID, start, end)
	if err != nil {
		return Buckets{}, fmt.Errorf("collect journal for %q: %w", resourceID, err)
	}
	entries = slices.DeleteFunc(slices.Clone(entries), func(e domain.JournalEntry) bool {
		return !e.InWindow(start, end)
	})
	buckets, err := Bucket(entries, a.levels)
	if err != nil {
		return Buckets{}, err
	}
	buckets.longVersion = longVersion
	return buckets, nil
}
