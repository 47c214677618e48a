package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/key"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/atotto/clipboard"
	"github.com/hylla/statusdesk/internal/app"
)

// Service renders reports for the viewer.
type Service interface {
	Report(context.Context, app.ReportRequest) (app.ReportResult, error)
}

// Model is the report viewer.
type Model struct {
	svc      Service
	req      app.ReportRequest
	long     bool
	result   app.ReportResult
	loaded   bool
	err      error
	status   string
	keys     keyMap
	help     help.Model
	renderer *markdownRenderer
	copy     func(string) error

	ready  bool
	width  int
	height int
	offset int
}

// reportLoadedMsg carries one report run.
type reportLoadedMsg struct {
	result app.ReportResult
	err    error
}

// NewModel constructs a viewer over svc.
func NewModel(svc Service, opts ...Option) Model {
	h := help.New()
	h.ShowAll = false
	m := Model{
		svc:      svc,
		req:      app.ReportRequest{Kind: app.ReportKindJournal},
		long:     true,
		status:   "loading...",
		keys:     newKeyMap(),
		help:     h,
		renderer: &markdownRenderer{},
		copy:     clipboard.WriteAll,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&m)
		}
	}
	return m
}

// Init loads the first report.
func (m Model) Init() tea.Cmd {
	return m.loadReport
}

// loadReport runs the current request.
func (m Model) loadReport() tea.Msg {
	req := m.req
	long := m.long
	req.LongVersion = &long
	res, err := m.svc.Report(context.Background(), req)
	return reportLoadedMsg{result: res, err: err}
}

// Update updates state for the requested operation.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		m.width = msg.Width
		m.height = msg.Height
		m.offset = clamp(m.offset, 0, m.maxOffset())
		return m, nil

	case reportLoadedMsg:
		if msg.err != nil {
			m.err = msg.err
			m.status = "error"
			return m, nil
		}
		m.err = nil
		m.loaded = true
		m.result = msg.result
		m.renderer.reset()
		m.offset = 0
		switch {
		case msg.result.Diagnostic != nil:
			m.status = fmt.Sprintf("markup error on line %d", msg.result.Diagnostic.Line)
		case !msg.result.Published:
			m.status = "nothing published"
		default:
			m.status = "ready"
		}
		return m, nil

	case tea.KeyPressMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

// handleKey dispatches one keypress.
func (m Model) handleKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.reload):
		m.status = "loading..."
		return m, m.loadReport
	case key.Matches(msg, m.keys.toggleHelp):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	}
	if m.err != nil {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.toggleKind):
		if m.req.Kind == app.ReportKindDashboard {
			m.req.Kind = app.ReportKindJournal
		} else {
			m.req.Kind = app.ReportKindDashboard
		}
		m.status = "loading " + string(m.req.Kind) + "..."
		return m, m.loadReport
	case key.Matches(msg, m.keys.toggleLong):
		m.long = !m.long
		m.status = "loading..."
		return m, m.loadReport
	case key.Matches(msg, m.keys.prevWindow):
		return m.shiftWindow(-1)
	case key.Matches(msg, m.keys.nextWindow):
		return m.shiftWindow(1)
	case key.Matches(msg, m.keys.scrollUp):
		m.offset = clamp(m.offset-1, 0, m.maxOffset())
	case key.Matches(msg, m.keys.scrollDown):
		m.offset = clamp(m.offset+1, 0, m.maxOffset())
	case key.Matches(msg, m.keys.pageUp):
		m.offset = clamp(m.offset-m.bodyHeight(), 0, m.maxOffset())
	case key.Matches(msg, m.keys.pageDown):
		m.offset = clamp(m.offset+m.bodyHeight(), 0, m.maxOffset())
	case key.Matches(msg, m.keys.top):
		m.offset = 0
	case key.Matches(msg, m.keys.bottom):
		m.offset = m.maxOffset()
	case key.Matches(msg, m.keys.copyReport):
		m.status = m.copyText("markdown", m.result.Markdown)
	case key.Matches(msg, m.keys.copyHTML):
		m.status = m.copyText("html", m.result.HTML)
	}
	return m, nil
}

// shiftWindow moves the report window by its own length.
func (m Model) shiftWindow(dir int) (tea.Model, tea.Cmd) {
	if !m.loaded || !m.result.End.After(m.result.Start) {
		return m, nil
	}
	span := m.result.End.Sub(m.result.Start)
	m.req.Start = m.result.Start.Add(time.Duration(dir) * span)
	m.req.End = m.result.End.Add(time.Duration(dir) * span)
	m.status = "loading..."
	return m, m.loadReport
}

// copyText writes text to the clipboard and returns the status line.
func (m Model) copyText(label, text string) string {
	if strings.TrimSpace(text) == "" {
		return "nothing to copy"
	}
	if err := m.copy(text); err != nil {
		return "copy failed: " + err.Error()
	}
	return "copied " + label
}

// View renders the viewer.
func (m Model) View() tea.View {
	v := tea.NewView(m.render())
	v.AltScreen = true
	return v
}

// render composes header, body and help footer.
func (m Model) render() string {
	if !m.ready {
		return "loading..."
	}
	muted := lipgloss.Color("241")
	dim := lipgloss.Color("239")
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
	statusStyle := lipgloss.NewStyle().Foreground(dim)

	header := titleStyle.Render(m.title()) + "  " + statusStyle.Render(m.status)

	helpBubble := m.help
	helpBubble.SetWidth(max(0, m.width-2))
	helpLine := lipgloss.NewStyle().
		Foreground(muted).
		BorderTop(true).
		BorderForeground(dim).
		Padding(0, 1).
		Width(max(0, m.width)).
		Render(helpBubble.View(m.keys))

	lines := m.bodyLines()
	height := m.bodyHeightFor(lipgloss.Height(helpLine))
	start := clamp(m.offset, 0, max(0, len(lines)-1))
	end := min(len(lines), start+height)
	body := fitLines(strings.Join(lines[start:end], "\n"), height)
	return header + "\n" + body + "\n" + helpLine
}

// title names the current report and window.
func (m Model) title() string {
	kind := "Journal"
	if m.req.Kind == app.ReportKindDashboard {
		kind = "Dashboard"
	}
	mode := "long"
	if !m.long {
		mode = "short"
	}
	parts := []string{"statusdesk", kind}
	if m.loaded {
		parts = append(parts, m.result.ResourceID, m.result.Start.Format(time.DateOnly)+" .. "+m.result.End.Format(time.DateOnly))
	}
	if m.req.Kind == app.ReportKindJournal {
		parts = append(parts, mode)
	}
	return strings.Join(parts, " • ")
}

// bodyLines renders the report body as lines.
func (m Model) bodyLines() []string {
	if m.err != nil {
		return strings.Split("error: "+m.err.Error()+"\n\npress r to retry • q quit", "\n")
	}
	if !m.loaded {
		return []string{""}
	}
	var sections []string
	if d := m.result.Diagnostic; d != nil {
		sections = append(sections, lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")).Render(d.String()))
	}
	if m.result.Published {
		sections = append(sections, m.renderer.render(m.result.Document, m.result.Markdown, m.width-2))
	} else if m.result.Diagnostic == nil {
		sections = append(sections, "No report content for this window.")
	}
	return strings.Split(strings.Join(sections, "\n\n"), "\n")
}

// bodyHeight returns the rows available for the report body.
func (m Model) bodyHeight() int {
	return m.bodyHeightFor(2)
}

// bodyHeightFor returns body rows given the footer height.
func (m Model) bodyHeightFor(footer int) int {
	if m.height <= 0 {
		return max(1, len(m.bodyLines()))
	}
	return max(1, m.height-1-footer)
}

// maxOffset returns the largest scroll offset.
func (m Model) maxOffset() int {
	return max(0, len(m.bodyLines())-m.bodyHeight())
}

// clamp bounds v to [minV, maxV].
func clamp(v, minV, maxV int) int {
	if maxV < minV {
		return minV
	}
	if v < minV {
		return minV
	}
	if v > maxV {
		return maxV
	}
	return v
}

// fitLines truncates or pads content to exactly maxLines rows.
func fitLines(content string, maxLines int) string {
	if maxLines <= 0 {
		return ""
	}
	lines := strings.Split(content, "\n")
	switch {
	case len(lines) > maxLines:
		if maxLines == 1 {
			lines = []string{"…"}
		} else {
			lines = append(lines[:maxLines-1], "…")
		}
	case len(lines) < maxLines:
		padding := make([]string, maxLines-len(lines))
		lines = append(lines, padding...)
	}
	return strings.Join(lines, "\n")
}
