package app

import (
	"context"
	"time"
)

// JournalFilter selects stored journal entries of one project. Empty fields match everything;
// the window is [Start, End) and zero bounds are open.
type JournalFilter struct {
	ProjectID  string
	AuthorID   string
	SubjectIDs []string
	Start      time.Time
	End        time.Time
}

// Repository represents repository data used by this package.
type Repository interface {
	UpsertProject(context.Context, SnapshotProject) error
	GetProject(context.Context, string) (SnapshotProject, error)
	ListProjects(context.Context) ([]SnapshotProject, error)

	UpsertJournalEntry(context.Context, SnapshotJournalEntry) error
	// ListJournalEntries returns matching entries in insertion order.
	ListJournalEntries(context.Context, JournalFilter) ([]SnapshotJournalEntry, error)
}
