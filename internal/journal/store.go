// Package journal collects time-windowed journal entries and partitions them by alert level.
package journal

import (
	"context"
	"time"

	"github.com/hylla/statusdesk/internal/domain"
)

// Store is the read port the aggregator and report composer consume.
type Store interface {
	// EntriesByResource returns entries authored by resourceID dated in [start, end), in store order.
	EntriesByResource(ctx context.Context, resourceID string, start, end time.Time) ([]domain.JournalEntry, error)
	// CurrentEntries returns, for taskID and each of its descendants, the latest entry dated in
	// [start, end) whose alert level is at least minLevel.
	CurrentEntries(ctx context.Context, end time.Time, taskID string, minLevel int, start time.Time) ([]domain.JournalEntry, error)
}
