// Package common provides transport-agnostic server contracts used by HTTP and MCP adapters.
package common

import (
	"context"
	"errors"
	"time"
)

// ErrInvalidRequest reports malformed transport input.
var ErrInvalidRequest = errors.New("invalid request")

// ErrNotFound reports missing transport-visible resources.
var ErrNotFound = errors.New("not found")

// ErrRenderFailed reports a report whose markup could not be published.
var ErrRenderFailed = errors.New("render failed")

// ReportKindJournal and ReportKindDashboard name the two report entry points.
const (
	ReportKindJournal   = "journal"
	ReportKindDashboard = "dashboard"
)

// ReportRequest selects one report. Start and End accept RFC 3339 timestamps or YYYY-MM-DD dates.
type ReportRequest struct {
	Kind             string `json:"kind,omitempty"`
	ProjectID        string `json:"project_id,omitempty"`
	ResourceID       string `json:"resource_id"`
	Start            string `json:"start,omitempty"`
	End              string `json:"end,omitempty"`
	TimeFormat       string `json:"time_format,omitempty"`
	TrackingScenario string `json:"tracking_scenario,omitempty"`
	Long             *bool  `json:"long,omitempty"`
}

// Diagnostic describes one markup failure.
type Diagnostic struct {
	Line     int    `json:"line"`
	Message  string `json:"message"`
	LineText string `json:"line_text,omitempty"`
}

// Report is the transport view of one composed report.
type Report struct {
	Kind       string      `json:"kind"`
	ProjectID  string      `json:"project_id"`
	ResourceID string      `json:"resource_id"`
	Start      time.Time   `json:"start"`
	End        time.Time   `json:"end"`
	Published  bool        `json:"published"`
	Markdown   string      `json:"markdown,omitempty"`
	HTML       string      `json:"html,omitempty"`
	Diagnostic *Diagnostic `json:"diagnostic,omitempty"`
}

// Project is one project listing row.
type Project struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Resources int    `json:"resources"`
	Tasks     int    `json:"tasks"`
}

// Resource is one resource listing row.
type Resource struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ParentID string `json:"parent_id,omitempty"`
}

// AlertLevel is one row of a project's severity table.
type AlertLevel struct {
	Index int    `json:"index"`
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

// AddJournalEntryRequest records one journal entry.
type AddJournalEntryRequest struct {
	ProjectID  string `json:"project_id,omitempty"`
	Date       string `json:"date,omitempty"`
	Headline   string `json:"headline"`
	Summary    string `json:"summary,omitempty"`
	Details    string `json:"details,omitempty"`
	AlertLevel string `json:"alert_level,omitempty"`
	AuthorID   string `json:"author_id,omitempty"`
	SubjectID  string `json:"subject_id,omitempty"`
}

// JournalEntry is the transport view of one stored journal entry.
type JournalEntry struct {
	ID         string    `json:"id"`
	Date       time.Time `json:"date"`
	Headline   string    `json:"headline"`
	AlertLevel int       `json:"alert_level"`
	AuthorID   string    `json:"author_id,omitempty"`
	SubjectID  string    `json:"subject_id,omitempty"`
}

// ReportService composes reports.
type ReportService interface {
	Report(context.Context, ReportRequest) (Report, error)
}

// CatalogService lists project data referenced by reports.
type CatalogService interface {
	ListProjects(context.Context) ([]Project, error)
	ListResources(ctx context.Context, projectID string) ([]Resource, error)
	AlertLevels(ctx context.Context, projectID string) ([]AlertLevel, error)
}

// JournalService records journal entries.
type JournalService interface {
	AddJournalEntry(context.Context, AddJournalEntryRequest) (JournalEntry, error)
}
