package markup

import (
	"bytes"
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

// DefaultTerminalStyle is the glamour style used when none is configured.
const DefaultTerminalStyle = "dark"

// engine is the shared Markdown configuration.
var engine = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithParserOptions(parser.WithAutoHeadingID()),
)

// Section describes one heading of a document.
type Section struct {
	Level  int
	Number string
	Title  string
	ID     string
}

// Document is parsed markup plus its presentation flags.
type Document struct {
	source         []byte
	root           ast.Node
	sectionNumbers bool
	cssClass       string
}

// Parse expands extension tokens in markup and parses the result.
// Errors are always *ParseError.
func Parse(markup string, exts ...Extension) (*Document, error) {
	expanded, err := newExpander(exts).expand(markup)
	if err != nil {
		return nil, err
	}
	source := []byte(expanded)
	return &Document{
		source:         source,
		root:           engine.Parser().Parse(text.NewReader(source)),
		sectionNumbers: true,
	}, nil
}

// SetSectionNumbers toggles automatic heading numbering.
func (d *Document) SetSectionNumbers(enabled bool) {
	d.sectionNumbers = enabled
}

// SectionNumbers reports whether headings are numbered.
func (d *Document) SectionNumbers() bool {
	return d.sectionNumbers
}

// SetCSSClass sets the class of the wrapping HTML element; empty disables the wrapper.
func (d *Document) SetCSSClass(class string) {
	d.cssClass = strings.TrimSpace(class)
}

// CSSClass returns the presentation class.
func (d *Document) CSSClass() string {
	return d.cssClass
}

// Markdown returns the expanded Markdown source.
func (d *Document) Markdown() string {
	return string(d.source)
}

// Sections lists the document headings in order. Number is empty when numbering is disabled.
func (d *Document) Sections() []Section {
	var (
		out      []Section
		counters sectionCounter
	)
	_ = ast.Walk(d.root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		heading, ok := n.(*ast.Heading)
		if !ok || !entering {
			return ast.WalkContinue, nil
		}
		section := Section{
			Level: heading.Level,
			Title: plainText(heading, d.source),
		}
		number := counters.next(heading.Level)
		if d.sectionNumbers {
			section.Number = number
		}
		if id, ok := heading.AttributeString("id"); ok {
			if raw, ok := id.([]byte); ok {
				section.ID = string(raw)
			}
		}
		out = append(out, section)
		return ast.WalkSkipChildren, nil
	})
	return out
}

// HTML renders the document, wrapped in a div carrying the CSS class when one is set.
func (d *Document) HTML() (string, error) {
	root := engine.Parser().Parse(text.NewReader(d.source))
	if d.sectionNumbers {
		numberHeadings(root)
	}
	var body bytes.Buffer
	if err := engine.Renderer().Render(&body, d.source, root); err != nil {
		return "", fmt.Errorf("render html: %w", err)
	}
	if d.cssClass == "" {
		return body.String(), nil
	}
	return fmt.Sprintf("<div class=\"%s\">\n%s</div>\n", html.EscapeString(d.cssClass), body.String()), nil
}

// Terminal renders the document as ANSI text for a terminal of the given width.
func (d *Document) Terminal(width int, style string) (string, error) {
	if width < 24 {
		width = 24
	}
	if strings.TrimSpace(style) == "" {
		style = DefaultTerminalStyle
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", fmt.Errorf("terminal renderer: %w", err)
	}
	source := d.Markdown()
	if d.sectionNumbers {
		source = numberMarkdownHeadings(d)
	}
	rendered, err := renderer.Render(source)
	if err != nil {
		return "", fmt.Errorf("render terminal: %w", err)
	}
	return strings.TrimRight(rendered, "\n"), nil
}

// sectionCounter tracks dotted heading numbers.
type sectionCounter struct {
	counts [6]int
	min    int
}

// next advances the counter for a heading of level and returns its number.
func (c *sectionCounter) next(level int) string {
	if level < 1 || level > len(c.counts) {
		return ""
	}
	if c.min == 0 || level < c.min {
		c.min = level
	}
	c.counts[level-1]++
	for i := level; i < len(c.counts); i++ {
		c.counts[i] = 0
	}
	parts := make([]string, 0, level-c.min+1)
	for i := c.min - 1; i < level; i++ {
		parts = append(parts, strconv.Itoa(c.counts[i]))
	}
	return strings.Join(parts, ".")
}

// numberHeadings prefixes every heading in root with its section number.
func numberHeadings(root ast.Node) {
	var counters sectionCounter
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		heading, ok := n.(*ast.Heading)
		if !ok || !entering {
			return ast.WalkContinue, nil
		}
		prefix := ast.NewString([]byte(counters.next(heading.Level) + " "))
		if first := heading.FirstChild(); first != nil {
			heading.InsertBefore(heading, first, prefix)
		} else {
			heading.AppendChild(heading, prefix)
		}
		return ast.WalkSkipChildren, nil
	})
}

// numberMarkdownHeadings rewrites heading lines of the source with their numbers.
func numberMarkdownHeadings(d *Document) string {
	lines := strings.Split(d.Markdown(), "\n")
	var counters sectionCounter
	_ = ast.Walk(d.root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		heading, ok := n.(*ast.Heading)
		if !ok || !entering {
			return ast.WalkContinue, nil
		}
		number := counters.next(heading.Level)
		if heading.Lines().Len() == 0 {
			return ast.WalkSkipChildren, nil
		}
		seg := heading.Lines().At(0)
		lineIdx := bytes.Count(d.source[:seg.Start], []byte("\n"))
		if lineIdx < len(lines) && strings.HasPrefix(strings.TrimSpace(lines[lineIdx]), "#") {
			line := lines[lineIdx]
			hashes := strings.Index(line, "#")
			rest := strings.TrimLeft(line[hashes:], "#")
			lines[lineIdx] = line[:hashes] + strings.Repeat("#", heading.Level) + " " + number + rest
		}
		return ast.WalkSkipChildren, nil
	})
	return strings.Join(lines, "\n")
}

// plainText concatenates the text content below n.
func plainText(n ast.Node, source []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(child ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch v := child.(type) {
		case *ast.Text:
			b.Write(v.Segment.Value(source))
			if v.SoftLineBreak() || v.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(v.Value)
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(b.String())
}
