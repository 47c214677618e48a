// Package markup parses report markup into documents and publishes them into output slots.
//
// Markup is Markdown extended with two token forms resolved by caller-supplied extensions:
//
//	<-name key="value"->        inline, anywhere in a line
//	<[name key="value"]>        block, alone on its line
//
// A token is taken literally when its opening bracket is preceded by a backslash.
package markup

import (
	"errors"
	"fmt"
	"strings"
)

// Placement selects where an extension token may appear.
type Placement int

const (
	Inline Placement = iota
	Block
)

// String returns the placement label used in error messages.
func (p Placement) String() string {
	if p == Block {
		return "block"
	}
	return "inline"
}

// Args holds the attributes of one extension token.
type Args map[string]string

// Get returns the trimmed value of key.
func (a Args) Get(key string) string {
	return strings.TrimSpace(a[key])
}

// Require returns the value of key or an error when it is missing.
func (a Args) Require(key string) (string, error) {
	v := a.Get(key)
	if v == "" {
		return "", fmt.Errorf("missing attribute %q", key)
	}
	return v, nil
}

// Extension resolves one token name into Markdown.
type Extension interface {
	Name() string
	Placement() Placement
	Expand(args Args) (string, error)
}

// ExtensionFunc adapts a function into an Extension.
type ExtensionFunc struct {
	ExtName      string
	ExtPlacement Placement
	Fn           func(args Args) (string, error)
}

func (e ExtensionFunc) Name() string         { return e.ExtName }
func (e ExtensionFunc) Placement() Placement { return e.ExtPlacement }

// Expand calls Fn.
func (e ExtensionFunc) Expand(args Args) (string, error) {
	if e.Fn == nil {
		return "", nil
	}
	return e.Fn(args)
}

// ParseError reports malformed markup at one source line.
type ParseError struct {
	Line     int
	Message  string
	LineText string
}

// Error implements error.
func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}

// Diagnostic converts the error into its reportable form.
func (e *ParseError) Diagnostic() Diagnostic {
	return Diagnostic{Line: e.Line, Message: e.Message, LineText: e.LineText}
}

// AsParseError unwraps err into a ParseError when possible.
func AsParseError(err error) (*ParseError, bool) {
	var perr *ParseError
	if errors.As(err, &perr) {
		return perr, true
	}
	return nil, false
}

const (
	inlineOpen  = "<-"
	inlineClose = "->"
	blockOpen   = "<["
	blockClose  = "]>"
)

// expander rewrites token-bearing markup into plain Markdown.
type expander struct {
	extensions map[string]Extension
}

func newExpander(exts []Extension) expander {
	byName := make(map[string]Extension, len(exts))
	for _, ext := range exts {
		if ext == nil {
			continue
		}
		byName[strings.TrimSpace(ext.Name())] = ext
	}
	return expander{extensions: byName}
}

// expand resolves all tokens in text. Fenced code blocks are copied verbatim.
func (x expander) expand(text string) (string, error) {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	var (
		out       strings.Builder
		fence     string
		fenceLine int
	)
	for idx, line := range lines {
		lineNo := idx + 1
		if idx > 0 {
			out.WriteByte('\n')
		}
		trimmed := strings.TrimSpace(line)
		if fence != "" {
			if isFenceClose(trimmed, fence) {
				fence = ""
			}
			out.WriteString(line)
			continue
		}
		if marker := fenceMarker(trimmed); marker != "" {
			fence, fenceLine = marker, lineNo
			out.WriteString(line)
			continue
		}

		if strings.HasPrefix(trimmed, blockOpen) && strings.HasSuffix(trimmed, blockClose) && len(trimmed) >= len(blockOpen)+len(blockClose) {
			body := trimmed[len(blockOpen) : len(trimmed)-len(blockClose)]
			expanded, err := x.resolve(body, Block, lineNo, line)
			if err != nil {
				return "", err
			}
			out.WriteString(expanded)
			continue
		}

		expanded, err := x.expandInline(line, lineNo)
		if err != nil {
			return "", err
		}
		out.WriteString(expanded)
	}
	if fence != "" {
		return "", &ParseError{Line: fenceLine, Message: "unterminated fenced code block", LineText: lines[fenceLine-1]}
	}
	return out.String(), nil
}

// expandInline resolves inline tokens in one line, skipping code spans and escaped openers.
func (x expander) expandInline(line string, lineNo int) (string, error) {
	var out strings.Builder
	for i := 0; i < len(line); {
		switch {
		case line[i] == '\\' && i+1 < len(line):
			out.WriteString(line[i : i+2])
			i += 2
		case line[i] == '`':
			end := codeSpanEnd(line, i)
			out.WriteString(line[i:end])
			i = end
		case strings.HasPrefix(line[i:], blockOpen):
			return "", &ParseError{Line: lineNo, Message: "block extension must stand alone on its line", LineText: line}
		case strings.HasPrefix(line[i:], inlineOpen):
			closeAt := strings.Index(line[i+len(inlineOpen):], inlineClose)
			if closeAt < 0 {
				return "", &ParseError{Line: lineNo, Message: "unterminated inline extension", LineText: line}
			}
			body := line[i+len(inlineOpen) : i+len(inlineOpen)+closeAt]
			expanded, err := x.resolve(body, Inline, lineNo, line)
			if err != nil {
				return "", err
			}
			out.WriteString(expanded)
			i += len(inlineOpen) + closeAt + len(inlineClose)
		default:
			out.WriteByte(line[i])
			i++
		}
	}
	return out.String(), nil
}

// resolve parses one token body and expands it through its extension.
func (x expander) resolve(body string, placement Placement, lineNo int, line string) (string, error) {
	name, args, err := parseToken(body)
	if err != nil {
		return "", &ParseError{Line: lineNo, Message: err.Error(), LineText: line}
	}
	ext, ok := x.extensions[name]
	if !ok {
		return "", &ParseError{Line: lineNo, Message: fmt.Sprintf("unknown extension %q", name), LineText: line}
	}
	if ext.Placement() != placement {
		return "", &ParseError{Line: lineNo, Message: fmt.Sprintf("%s extension %q used as %s", ext.Placement(), name, placement), LineText: line}
	}
	expanded, err := ext.Expand(args)
	if err != nil {
		return "", &ParseError{Line: lineNo, Message: fmt.Sprintf("%s: %v", name, err), LineText: line}
	}
	return expanded, nil
}

// parseToken splits `name key="value" ...` into a name and attributes.
func parseToken(body string) (string, Args, error) {
	body = strings.TrimSpace(body)
	nameEnd := strings.IndexAny(body, " \t")
	if nameEnd < 0 {
		nameEnd = len(body)
	}
	name := body[:nameEnd]
	if name == "" {
		return "", nil, errors.New("extension name is required")
	}
	args := Args{}
	rest := body[nameEnd:]
	for {
		rest = strings.TrimLeft(rest, " \t")
		if rest == "" {
			return name, args, nil
		}
		eq := strings.IndexByte(rest, '=')
		if eq <= 0 {
			return "", nil, fmt.Errorf("malformed attribute near %q", rest)
		}
		key := strings.TrimSpace(rest[:eq])
		if strings.ContainsAny(key, " \t\"") {
			return "", nil, fmt.Errorf("malformed attribute name %q", key)
		}
		rest = rest[eq+1:]
		if !strings.HasPrefix(rest, `"`) {
			return "", nil, fmt.Errorf("attribute %q value must be quoted", key)
		}
		value, remaining, ok := readQuoted(rest[1:])
		if !ok {
			return "", nil, fmt.Errorf("attribute %q value is not terminated", key)
		}
		if _, dup := args[key]; dup {
			return "", nil, fmt.Errorf("duplicate attribute %q", key)
		}
		args[key] = value
		rest = remaining
	}
}

// readQuoted reads up to the closing quote, honoring \" and \\ escapes.
func readQuoted(s string) (value, rest string, ok bool) {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			if i+1 < len(s) && (s[i+1] == '"' || s[i+1] == '\\') {
				b.WriteByte(s[i+1])
				i++
				continue
			}
			b.WriteByte(s[i])
		case '"':
			return b.String(), s[i+1:], true
		default:
			b.WriteByte(s[i])
		}
	}
	return "", "", false
}

// codeSpanEnd returns the index just past the code span starting at i, or i+run when unmatched.
func codeSpanEnd(line string, i int) int {
	run := 0
	for i+run < len(line) && line[i+run] == '`' {
		run++
	}
	delim := strings.Repeat("`", run)
	closeAt := strings.Index(line[i+run:], delim)
	if closeAt < 0 {
		return i + run
	}
	return i + run + closeAt + run
}

// fenceMarker returns the fence run opening a code block, or "".
func fenceMarker(trimmed string) string {
	for _, ch := range []byte{'`', '~'} {
		run := 0
		for run < len(trimmed) && trimmed[run] == ch {
			run++
		}
		if run >= 3 {
			if ch == '`' && strings.Contains(trimmed[run:], "`") {
				return ""
			}
			return trimmed[:run]
		}
	}
	return ""
}

// isFenceClose reports whether trimmed closes a block opened with fence.
func isFenceClose(trimmed, fence string) bool {
	if !strings.HasPrefix(trimmed, fence) {
		return false
	}
	return strings.Trim(trimmed, fence[:1]) == ""
}
