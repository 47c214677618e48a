package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	serveradapter "github.com/hylla/statusdesk/internal/adapters/server"
	servercommon "github.com/hylla/statusdesk/internal/adapters/server/common"
	"github.com/hylla/statusdesk/internal/app"
	"github.com/hylla/statusdesk/internal/tui"
	"github.com/spf13/cobra"
)

// errNotPublished reports a run whose markup failed before anything was published.
var errNotPublished = errors.New("report not published")

// newPathsCommand prints resolved config and data paths.
func newPathsCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "Print resolved config and data paths",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			paths, err := c.paths()
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(c.stdout, "app: %s\n", c.appName)
			_, _ = fmt.Fprintf(c.stdout, "dev_mode: %t\n", c.devMode)
			_, _ = fmt.Fprintf(c.stdout, "config: %s\n", paths.ConfigPath)
			_, _ = fmt.Fprintf(c.stdout, "data_dir: %s\n", paths.DataDir)
			_, _ = fmt.Fprintf(c.stdout, "db: %s\n", paths.DBPath)
			_, _ = fmt.Fprintf(c.stdout, "log_dir: %s\n", paths.LogDir)
			return nil
		},
	}
}

// reportFlags holds the flags shared by report commands.
type reportFlags struct {
	project    string
	resource   string
	start      string
	end        string
	timeFormat string
	scenario   string
	format     string
	short      bool
}

// request converts flags into a service request.
func (f reportFlags) request(kind app.ReportKind) (app.ReportRequest, error) {
	start, err := parseTimeFlag("start", f.start)
	if err != nil {
		return app.ReportRequest{}, err
	}
	end, err := parseTimeFlag("end", f.end)
	if err != nil {
		return app.ReportRequest{}, err
	}
	req := app.ReportRequest{
		Kind:             kind,
		ProjectID:        f.project,
		ResourceID:       f.resource,
		Start:            start,
		End:              end,
		TimeFormat:       f.timeFormat,
		TrackingScenario: f.scenario,
	}
	if f.short {
		long := false
		req.LongVersion = &long
	}
	return req, nil
}

// newReportCommand builds the journal or dashboard command.
func newReportCommand(c *cli, kind app.ReportKind) *cobra.Command {
	var f reportFlags
	cmd := &cobra.Command{
		Use:   string(kind),
		Short: "Render the " + string(kind) + " for one resource",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, err := f.request(kind)
			if err != nil {
				return err
			}
			return c.withSession(string(kind), false, func(s *session) error {
				res, err := s.svc.Report(cmd.Context(), req)
				if err != nil {
					return err
				}
				return writeReport(c.stdout, c.stderr, res, f.format, s.cfg.TUI.Width, s.cfg.TUI.Style)
			})
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&f.project, "project", "", "project id (defaults to the only stored project)")
	flags.StringVar(&f.resource, "resource", "", "resource id")
	flags.StringVar(&f.start, "start", "", "window start (RFC3339 or YYYY-MM-DD)")
	flags.StringVar(&f.end, "end", "", "window end, exclusive (RFC3339 or YYYY-MM-DD)")
	flags.StringVar(&f.timeFormat, "time-format", "", "strftime format for dates")
	flags.StringVar(&f.scenario, "scenario", "", "override the tracking scenario")
	flags.StringVar(&f.format, "format", "markdown", "output format: markdown, html or terminal")
	if kind == app.ReportKindJournal {
		flags.BoolVar(&f.short, "short", false, "omit entry details")
	}
	_ = cmd.MarkFlagRequired("resource")
	return cmd
}

// writeReport prints one report result in the requested format.
func writeReport(stdout, stderr io.Writer, res app.ReportResult, format string, width int, style string) error {
	if res.Diagnostic != nil {
		_, _ = fmt.Fprintln(stderr, res.Diagnostic.String())
	}
	if !res.Published {
		if res.Diagnostic != nil {
			return errNotPublished
		}
		return nil
	}
	var out string
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "markdown", "md":
		out = res.Markdown
	case "html":
		out = res.HTML
	case "terminal", "term":
		rendered, err := res.Document.Terminal(width, style)
		if err != nil {
			return err
		}
		out = rendered + "\n"
	default:
		return fmt.Errorf("unknown --format %q", format)
	}
	_, err := io.WriteString(stdout, out)
	return err
}

// newLevelsCommand prints the alert-level table of one project.
func newLevelsCommand(c *cli) *cobra.Command {
	var project string
	cmd := &cobra.Command{
		Use:   "levels",
		Short: "Print the alert levels of a project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withSession("levels", false, func(s *session) error {
				levels, err := s.svc.AlertLevels(cmd.Context(), project)
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(levels))
				for i, level := range levels {
					rows = append(rows, []string{strconv.Itoa(i), level.ID, level.Name, level.Color})
				}
				header := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("230")).Padding(0, 1)
				cell := lipgloss.NewStyle().Padding(0, 1)
				t := table.New().
					Border(lipgloss.RoundedBorder()).
					BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("62"))).
					Headers("INDEX", "ID", "NAME", "COLOR").
					Rows(rows...).
					StyleFunc(func(row, _ int) lipgloss.Style {
						if row == table.HeaderRow {
							return header
						}
						return cell
					})
				_, err = fmt.Fprintln(c.stdout, t.String())
				return err
			})
		},
	}
	cmd.Flags().StringVar(&project, "project", "", "project id (defaults to the only stored project)")
	return cmd
}

// newAddEntryCommand records one journal entry.
func newAddEntryCommand(c *cli) *cobra.Command {
	var (
		in   app.AddJournalEntryInput
		date string
	)
	cmd := &cobra.Command{
		Use:   "add-entry",
		Short: "Record a journal entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ts, err := parseTimeFlag("date", date)
			if err != nil {
				return err
			}
			in.Date = ts
			return c.withSession("add-entry", false, func(s *session) error {
				entry, err := s.svc.AddJournalEntry(cmd.Context(), in)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(c.stdout, entry.ID)
				return err
			})
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&in.ProjectID, "project", "", "project id (defaults to the only stored project)")
	flags.StringVar(&date, "date", "", "entry date (RFC3339 or YYYY-MM-DD, defaults to now)")
	flags.StringVar(&in.Headline, "headline", "", "entry headline")
	flags.StringVar(&in.Summary, "summary", "", "summary rich text")
	flags.StringVar(&in.Details, "details", "", "details rich text")
	flags.StringVar(&in.AlertLevel, "level", "", "alert level id (defaults to the lowest level)")
	flags.StringVar(&in.AuthorID, "author", "", "author resource id")
	flags.StringVar(&in.SubjectID, "subject", "", "task id the entry is about")
	_ = cmd.MarkFlagRequired("headline")
	return cmd
}

// newImportCommand loads a JSON or YAML snapshot into the store.
func newImportCommand(c *cli) *cobra.Command {
	var inPath, format string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a project snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := snapshotFormat(format, inPath)
			if err != nil {
				return err
			}
			return c.withSession("import", false, func(s *session) error {
				file, err := os.Open(inPath)
				if err != nil {
					return fmt.Errorf("read import file: %w", err)
				}
				defer file.Close()
				snap, err := app.DecodeSnapshot(file, f)
				if err != nil {
					return err
				}
				if err := s.svc.ImportSnapshot(cmd.Context(), snap); err != nil {
					return fmt.Errorf("import snapshot: %w", err)
				}
				s.logger.Info("snapshot imported", "projects", len(snap.Projects), "journal_entries", len(snap.Journal))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&inPath, "in", "", "input snapshot file")
	cmd.Flags().StringVar(&format, "format", "", "snapshot format: json or yaml (defaults to the file extension)")
	_ = cmd.MarkFlagRequired("in")
	return cmd
}

// newExportCommand writes the stored projects and journal as a snapshot.
func newExportCommand(c *cli) *cobra.Command {
	var outPath, format string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a project snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pathHint := outPath
			if pathHint == "-" {
				pathHint = ""
			}
			f, err := snapshotFormat(format, pathHint)
			if err != nil {
				return err
			}
			return c.withSession("export", false, func(s *session) error {
				snap, err := s.svc.ExportSnapshot(cmd.Context())
				if err != nil {
					return fmt.Errorf("export snapshot: %w", err)
				}
				if outPath == "-" {
					return app.EncodeSnapshot(c.stdout, snap, f)
				}
				if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
					return fmt.Errorf("create export output dir: %w", err)
				}
				file, err := os.Create(outPath)
				if err != nil {
					return fmt.Errorf("create export file: %w", err)
				}
				if err := app.EncodeSnapshot(file, snap, f); err != nil {
					_ = file.Close()
					return err
				}
				return file.Close()
			})
		},
	}
	cmd.Flags().StringVar(&outPath, "out", "-", "output file path ('-' for stdout)")
	cmd.Flags().StringVar(&format, "format", "", "snapshot format: json or yaml (defaults to the file extension)")
	return cmd
}

// snapshotFormat resolves an explicit format or infers one from path.
func snapshotFormat(raw, path string) (app.SnapshotFormat, error) {
	if strings.TrimSpace(raw) != "" {
		return app.ParseSnapshotFormat(raw)
	}
	return app.FormatForPath(path), nil
}

// newServeCommand runs the HTTP API and MCP endpoint.
func newServeCommand(c *cli) *cobra.Command {
	var httpBind, apiEndpoint, mcpEndpoint string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve reports over HTTP and MCP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withSession("serve", false, func(s *session) error {
				bind := firstNonEmpty(httpBind, s.cfg.Server.Bind)
				appAdapter := servercommon.NewAppServiceAdapter(s.svc)
				s.logger.Info("serve listening", "http", bind)
				return serveCommandRunner(cmd.Context(), serveradapter.Config{
					HTTPBind:      bind,
					APIEndpoint:   firstNonEmpty(apiEndpoint, s.cfg.Server.APIEndpoint),
					MCPEndpoint:   firstNonEmpty(mcpEndpoint, s.cfg.Server.MCPEndpoint),
					ServerName:    c.appName,
					ServerVersion: version,
					Logger:        s.logger.Sink(),
				}, serveradapter.Dependencies{
					Reports: appAdapter,
					Catalog: appAdapter,
					Journal: appAdapter,
					Ready:   s.repo.Ping,
				})
			})
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&httpBind, "http", "", "HTTP listen address (defaults to server.bind)")
	flags.StringVar(&apiEndpoint, "api-endpoint", "", "HTTP API base endpoint (defaults to server.api_endpoint)")
	flags.StringVar(&mcpEndpoint, "mcp-endpoint", "", "MCP streamable HTTP endpoint (defaults to server.mcp_endpoint)")
	return cmd
}

// newViewCommand opens the terminal report viewer.
func newViewCommand(c *cli) *cobra.Command {
	var (
		f         reportFlags
		dashboard bool
	)
	cmd := &cobra.Command{
		Use:   "view",
		Short: "Browse journal and dashboard reports in the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			kind := app.ReportKindJournal
			if dashboard {
				kind = app.ReportKindDashboard
			}
			req, err := f.request(kind)
			if err != nil {
				return err
			}
			return c.withSession("view", true, func(s *session) error {
				m := tui.NewModel(
					s.svc,
					tui.WithKind(kind),
					tui.WithProject(req.ProjectID),
					tui.WithResource(req.ResourceID),
					tui.WithWindow(req.Start, req.End),
					tui.WithLongVersion(s.cfg.Report.LongVersion && !f.short),
					tui.WithStyle(s.cfg.TUI.Style),
				)
				s.logger.Info("starting tui program loop")
				if _, err := programFactory(m).Run(); err != nil {
					return fmt.Errorf("run tui program: %w", err)
				}
				return nil
			})
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&f.project, "project", "", "project id (defaults to the only stored project)")
	flags.StringVar(&f.resource, "resource", "", "resource id")
	flags.StringVar(&f.start, "start", "", "window start (RFC3339 or YYYY-MM-DD)")
	flags.StringVar(&f.end, "end", "", "window end, exclusive (RFC3339 or YYYY-MM-DD)")
	flags.BoolVar(&f.short, "short", false, "start in short mode")
	flags.BoolVar(&dashboard, "dashboard", false, "start on the dashboard")
	_ = cmd.MarkFlagRequired("resource")
	return cmd
}

// firstNonEmpty returns the first trimmed non-empty value.
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
