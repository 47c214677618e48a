// Package report composes journal and dashboard markup and publishes it through the markup pipeline.
package report

import (
	"strings"
	"time"

	"github.com/ncruces/go-strftime"

	"github.com/hylla/statusdesk/internal/markup"
)

// DefaultTimeFormat is the strftime layout used when a query sets none.
const DefaultTimeFormat = "%Y-%m-%d"

// Query carries the report window, formatting options and the output slot.
type Query struct {
	Start            time.Time
	End              time.Time
	TimeFormat       string
	TrackingScenario int
	// Diagnostics optionally receives markup failures in addition to the pipeline sink.
	Diagnostics markup.Sink

	doc *markup.Document
}

// SetDocument writes the output slot.
func (q *Query) SetDocument(doc *markup.Document) {
	q.doc = doc
}

// Document returns the published document, or nil when nothing was published.
func (q *Query) Document() *markup.Document {
	return q.doc
}

// Published reports whether the output slot holds a document.
func (q *Query) Published() bool {
	return q.doc != nil
}

// FormatTime renders t with the query's strftime layout.
func (q *Query) FormatTime(t time.Time) string {
	layout := strings.TrimSpace(q.TimeFormat)
	if layout == "" {
		layout = DefaultTimeFormat
	}
	return strftime.Format(layout, t)
}
