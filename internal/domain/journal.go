package domain

import (
	"strings"
	"time"
)

// JournalEntry is one immutable status or alert record.
type JournalEntry struct {
	ID         string
	Date       time.Time
	Headline   string
	Summary    string
	Details    string
	AlertLevel int
	AuthorID   string
	SubjectID  string
	TimeSheet  *TimeSheetRecord
}

// JournalEntryInput holds write-time values for constructing an entry.
type JournalEntryInput struct {
	ID         string
	Date       time.Time
	Headline   string
	Summary    string
	Details    string
	AlertLevel int
	AuthorID   string
	SubjectID  string
	TimeSheet  *TimeSheetRecord
}

// TimeSheetRecord is the progress report a resource filed for one task.
type TimeSheetRecord struct {
	ResourceID        string
	Name              string
	Task              TaskRef
	ActualWorkPercent float64
	PlanWorkPercent   float64
	Remaining         bool
	ActualRemaining   float64
	PlanRemaining     float64
	ActualEnd         time.Time
	PlanEnd           time.Time
}

// TaskRef points at an existing task or carries the raw id of a task that does not exist yet.
type TaskRef struct {
	Task  *Task
	RawID string
}

// ResolvedTask returns a reference to an existing task.
func ResolvedTask(t *Task) TaskRef {
	return TaskRef{Task: t}
}

// UnresolvedTask returns a reference to a task known only by id.
func UnresolvedTask(id string) TaskRef {
	return TaskRef{RawID: strings.TrimSpace(id)}
}

// Resolved reports whether the reference names an existing task.
func (r TaskRef) Resolved() bool {
	return r.Task != nil
}

// ID returns the referenced task id.
func (r TaskRef) ID() string {
	if r.Task != nil {
		return r.Task.ID
	}
	return r.RawID
}

// NewJournalEntry validates one entry against the project's alert-level table.
func NewJournalEntry(in JournalEntryInput, levels AlertLevelTable) (JournalEntry, error) {
	in.ID = strings.TrimSpace(in.ID)
	in.Headline = strings.TrimSpace(in.Headline)
	if in.ID == "" {
		return JournalEntry{}, ErrInvalidID
	}
	if in.Headline == "" {
		return JournalEntry{}, ErrInvalidHeadline
	}
	if !levels.Valid(in.AlertLevel) {
		return JournalEntry{}, ErrInvalidAlertLevel
	}
	var ts *TimeSheetRecord
	if in.TimeSheet != nil {
		copied := *in.TimeSheet
		copied.ActualEnd = copied.ActualEnd.UTC()
		copied.PlanEnd = copied.PlanEnd.UTC()
		ts = &copied
	}
	return JournalEntry{
		ID:         in.ID,
		Date:       in.Date.UTC(),
		Headline:   in.Headline,
		Summary:    in.Summary,
		Details:    in.Details,
		AlertLevel: in.AlertLevel,
		AuthorID:   strings.TrimSpace(in.AuthorID),
		SubjectID:  strings.TrimSpace(in.SubjectID),
		TimeSheet:  ts,
	}, nil
}

// HasSummary reports whether a summary is present.
func (e JournalEntry) HasSummary() bool {
	return strings.TrimSpace(e.Summary) != ""
}

// HasDetails reports whether details are present.
func (e JournalEntry) HasDetails() bool {
	return strings.TrimSpace(e.Details) != ""
}

// IsPersonalNote reports whether the entry has no associated subject.
func (e JournalEntry) IsPersonalNote() bool {
	return e.SubjectID == ""
}

// InWindow reports whether the entry date falls in [start, end).
func (e JournalEntry) InWindow(start, end time.Time) bool {
	return !e.Date.Before(start) && e.Date.Before(end)
}
