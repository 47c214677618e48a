package tui

import (
	"strings"

	"github.com/hylla/statusdesk/internal/markup"
)

// markdownRenderer renders published reports for the terminal and caches the output per document and width.
type markdownRenderer struct {
	style    string
	width    int
	doc      *markup.Document
	rendered string
}

// render converts doc into styled terminal text, falling back to fallback markdown when doc is missing or fails to render.
func (r *markdownRenderer) render(doc *markup.Document, fallback string, width int) string {
	if doc == nil {
		return strings.TrimSpace(fallback)
	}
	if width < 24 {
		width = 24
	}
	if r.doc == doc && r.width == width {
		return r.rendered
	}

	rendered, err := doc.Terminal(width, r.style)
	if err != nil {
		return strings.TrimSpace(doc.Markdown())
	}
	r.doc = doc
	r.width = width
	r.rendered = rendered
	return rendered
}

// reset drops the cached output.
func (r *markdownRenderer) reset() {
	r.doc = nil
	r.rendered = ""
}
