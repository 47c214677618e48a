package markup

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	charmLog "github.com/charmbracelet/log"
)

// DefaultCSSClass tags published documents for alert styling.
const DefaultCSSClass = "alertmessage"

// Diagnostic describes one markup failure.
type Diagnostic struct {
	Line     int    `json:"line"`
	Message  string `json:"message"`
	LineText string `json:"line_text"`
}

// String formats the diagnostic for plain-text channels.
func (d Diagnostic) String() string {
	return fmt.Sprintf("Error while processing rich text\nLine %d: %s\n%s", d.Line, d.Message, d.LineText)
}

// Sink receives diagnostics.
type Sink interface {
	Report(Diagnostic)
}

// DiagnosticFunc adapts a function into a Sink.
type DiagnosticFunc func(Diagnostic)

// Report calls f.
func (f DiagnosticFunc) Report(d Diagnostic) {
	if f != nil {
		f(d)
	}
}

// Discard drops every diagnostic.
var Discard Sink = DiagnosticFunc(func(Diagnostic) {})

// Collector records diagnostics for later inspection.
type Collector struct {
	mu    sync.Mutex
	diags []Diagnostic
}

// Report records d.
func (c *Collector) Report(d Diagnostic) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.diags = append(c.diags, d)
}

// Diagnostics returns the recorded diagnostics in arrival order.
func (c *Collector) Diagnostics() []Diagnostic {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.diags)
}

// Last returns the most recent diagnostic.
func (c *Collector) Last() (Diagnostic, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.diags) == 0 {
		return Diagnostic{}, false
	}
	return c.diags[len(c.diags)-1], true
}

// LogSink writes diagnostics to a structured logger at error level.
type LogSink struct {
	logger *charmLog.Logger
}

// NewLogSink wraps logger; a nil logger uses the package default.
func NewLogSink(logger *charmLog.Logger) LogSink {
	if logger == nil {
		logger = charmLog.Default()
	}
	return LogSink{logger: logger}
}

// Report logs d.
func (s LogSink) Report(d Diagnostic) {
	s.logger.Error("error while processing rich text", "line", d.Line, "message", d.Message, "line_text", d.LineText)
}

// Slot receives a published document.
type Slot interface {
	SetDocument(*Document)
}

// Pipeline parses markup with a fixed extension set and publishes successful results.
type Pipeline struct {
	extensions     []Extension
	sink           Sink
	cssClass       string
	sectionNumbers bool
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithSink sets the pipeline-wide diagnostic sink.
func WithSink(sink Sink) Option {
	return func(p *Pipeline) {
		if sink != nil {
			p.sink = sink
		}
	}
}

// WithCSSClass overrides the presentation class.
func WithCSSClass(class string) Option {
	return func(p *Pipeline) {
		if class = strings.TrimSpace(class); class != "" {
			p.cssClass = class
		}
	}
}

// WithSectionNumbers keeps heading numbering on published documents.
func WithSectionNumbers(enabled bool) Option {
	return func(p *Pipeline) {
		p.sectionNumbers = enabled
	}
}

// WithExtensions adds extensions available to every parse.
func WithExtensions(exts ...Extension) Option {
	return func(p *Pipeline) {
		p.extensions = append(p.extensions, exts...)
	}
}

// NewPipeline constructs a pipeline that logs diagnostics to the default logger.
func NewPipeline(opts ...Option) *Pipeline {
	p := &Pipeline{
		sink:     NewLogSink(nil),
		cssClass: DefaultCSSClass,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// With returns a copy of the pipeline with exts added; later extensions shadow earlier ones.
func (p *Pipeline) With(exts ...Extension) *Pipeline {
	cp := *p
	cp.extensions = append(slices.Clone(p.extensions), exts...)
	return &cp
}

// CSSClass returns the class applied to published documents.
func (p *Pipeline) CSSClass() string {
	return p.cssClass
}

// Publish parses text and writes the document into slot. On a parse failure the diagnostic
// goes to the pipeline sink and every extra sink, slot is left untouched and nil is returned.
func (p *Pipeline) Publish(text string, slot Slot, sinks ...Sink) *Document {
	doc, err := Parse(text, p.extensions...)
	if err != nil {
		d := diagnosticFor(err)
		p.sink.Report(d)
		for _, sink := range sinks {
			if sink != nil {
				sink.Report(d)
			}
		}
		return nil
	}
	doc.SetSectionNumbers(p.sectionNumbers)
	doc.SetCSSClass(p.cssClass)
	if slot != nil {
		slot.SetDocument(doc)
	}
	return doc
}

// diagnosticFor converts a parse failure into a diagnostic.
func diagnosticFor(err error) Diagnostic {
	if perr, ok := AsParseError(err); ok {
		return perr.Diagnostic()
	}
	return Diagnostic{Message: err.Error()}
}
