package tui

import (
	"time"

	"github.com/hylla/statusdesk/internal/app"
)

// Option configures a Model.
type Option func(*Model)

// WithKind selects the report shown first.
func WithKind(kind app.ReportKind) Option {
	return func(m *Model) {
		switch kind {
		case app.ReportKindJournal, app.ReportKindDashboard:
			m.req.Kind = kind
		}
	}
}

// WithProject selects the project; empty means the only stored project.
func WithProject(projectID string) Option {
	return func(m *Model) {
		m.req.ProjectID = projectID
	}
}

// WithResource sets the resource whose journal is shown.
func WithResource(resourceID string) Option {
	return func(m *Model) {
		m.req.ResourceID = resourceID
	}
}

// WithWindow sets the initial report window.
func WithWindow(start, end time.Time) Option {
	return func(m *Model) {
		m.req.Start = start
		m.req.End = end
	}
}

// WithLongVersion sets the initial long/short mode.
func WithLongVersion(long bool) Option {
	return func(m *Model) {
		m.long = long
	}
}

// WithStyle sets the glamour style name used for rendering.
func WithStyle(style string) Option {
	return func(m *Model) {
		m.renderer.style = style
	}
}

// WithKeyConfig applies key binding overrides.
func WithKeyConfig(cfg KeyConfig) Option {
	return func(m *Model) {
		m.keys.applyConfig(cfg)
	}
}

// WithClipboard replaces the system clipboard writer.
func WithClipboard(write func(string) error) Option {
	return func(m *Model) {
		if write != nil {
			m.copy = write
		}
	}
}
