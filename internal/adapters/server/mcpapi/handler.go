// Package mcpapi provides a stateless MCP streamable-HTTP adapter.
package mcpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/hylla/statusdesk/internal/adapters/server/common"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// Config captures MCP transport configuration.
type Config struct {
	ServerName    string
	ServerVersion string
	EndpointPath  string
}

// Handler wraps one stateless MCP streamable HTTP handler.
type Handler struct {
	httpHandler http.Handler
}

// NewHandler builds one stateless MCP adapter with report tools and optional catalog and journal tools.
func NewHandler(cfg Config, reports common.ReportService, catalog common.CatalogService, journal common.JournalService) (*Handler, error) {
	if reports == nil {
		return nil, fmt.Errorf("report service is required")
	}
	cfg = normalizeConfig(cfg)

	mcpSrv := mcpserver.NewMCPServer(
		cfg.ServerName,
		cfg.ServerVersion,
		mcpserver.WithToolCapabilities(false),
	)
	registerReportTools(mcpSrv, reports)
	if catalog != nil {
		registerCatalogTools(mcpSrv, catalog)
	}
	if journal != nil {
		registerJournalTools(mcpSrv, journal)
	}

	streamable := mcpserver.NewStreamableHTTPServer(
		mcpSrv,
		mcpserver.WithEndpointPath(cfg.EndpointPath),
		mcpserver.WithStateLess(true),
	)
	return &Handler{httpHandler: streamable}, nil
}

// ServeHTTP handles one MCP streamable HTTP request.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.httpHandler == nil {
		http.Error(w, "mcp handler unavailable", http.StatusServiceUnavailable)
		return
	}
	h.httpHandler.ServeHTTP(w, r)
}

// normalizeConfig applies deterministic defaults to MCP adapter config.
func normalizeConfig(cfg Config) Config {
	cfg.ServerName = strings.TrimSpace(cfg.ServerName)
	if cfg.ServerName == "" {
		cfg.ServerName = "statusdesk"
	}
	cfg.ServerVersion = strings.TrimSpace(cfg.ServerVersion)
	if cfg.ServerVersion == "" {
		cfg.ServerVersion = "dev"
	}
	cfg.EndpointPath = strings.TrimSpace(cfg.EndpointPath)
	if cfg.EndpointPath == "" {
		cfg.EndpointPath = "/mcp"
	}
	if !strings.HasPrefix(cfg.EndpointPath, "/") {
		cfg.EndpointPath = "/" + cfg.EndpointPath
	}
	cfg.EndpointPath = "/" + strings.Trim(cfg.EndpointPath, "/")
	return cfg
}

// reportToolOptions declares the arguments shared by both report tools.
func reportToolOptions(description string) []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithDescription(description),
		mcp.WithString("resource_id", mcp.Required(), mcp.Description("Resource whose report is composed")),
		mcp.WithString("project_id", mcp.Description("Project identifier (optional when only one project exists)")),
		mcp.WithString("start", mcp.Description("Window start, RFC3339 or YYYY-MM-DD (defaults to end minus the configured window)")),
		mcp.WithString("end", mcp.Description("Window end, exclusive, RFC3339 or YYYY-MM-DD (defaults to now)")),
		mcp.WithString("scenario", mcp.Description("Tracking scenario id override")),
		mcp.WithString("time_format", mcp.Description("strftime layout for dates")),
	}
}

// registerReportTools registers `statusdesk.journal_report` and `statusdesk.dashboard`.
func registerReportTools(srv *mcpserver.MCPServer, reports common.ReportService) {
	journalOpts := append(
		reportToolOptions("Compose one resource's journal report for a time window, most severe entries first."),
		mcp.WithBoolean("long", mcp.Description("Include entry details")),
	)
	srv.AddTool(mcp.NewTool("statusdesk.journal_report", journalOpts...), reportHandler(reports, common.ReportKindJournal))
	srv.AddTool(
		mcp.NewTool("statusdesk.dashboard", reportToolOptions("Compose one resource's dashboard of current task alerts.")...),
		reportHandler(reports, common.ReportKindDashboard),
	)
}

// reportHandler returns one tool handler composing reports of kind.
func reportHandler(reports common.ReportService, kind string) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		resourceID, err := req.RequireString("resource_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		in := common.ReportRequest{
			Kind:             kind,
			ProjectID:        req.GetString("project_id", ""),
			ResourceID:       resourceID,
			Start:            req.GetString("start", ""),
			End:              req.GetString("end", ""),
			TimeFormat:       req.GetString("time_format", ""),
			TrackingScenario: req.GetString("scenario", ""),
		}
		if args := req.GetArguments(); args != nil {
			if _, ok := args["long"]; ok {
				long := req.GetBool("long", false)
				in.Long = &long
			}
		}
		report, err := reports.Report(ctx, in)
		if err != nil {
			return toolResultFromError(err), nil
		}
		if !report.Published && report.Diagnostic != nil {
			return mcp.NewToolResultError(fmt.Sprintf("render_failed: line %d: %s", report.Diagnostic.Line, report.Diagnostic.Message)), nil
		}
		result, err := mcp.NewToolResultJSON(report)
		if err != nil {
			return nil, fmt.Errorf("encode %s result: %w", kind, err)
		}
		return result, nil
	}
}

// registerCatalogTools registers project, resource and alert-level listing tools.
func registerCatalogTools(srv *mcpserver.MCPServer, catalog common.CatalogService) {
	srv.AddTool(
		mcp.NewTool(
			"statusdesk.list_projects",
			mcp.WithDescription("List stored projects."),
		),
		func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			projects, err := catalog.ListProjects(ctx)
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(map[string]any{
				"projects": projects,
			})
			if err != nil {
				return nil, fmt.Errorf("encode list_projects result: %w", err)
			}
			return result, nil
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"statusdesk.list_resources",
			mcp.WithDescription("List the resources of one project."),
			mcp.WithString("project_id", mcp.Description("Project identifier")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			resources, err := catalog.ListResources(ctx, req.GetString("project_id", ""))
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(map[string]any{
				"resources": resources,
			})
			if err != nil {
				return nil, fmt.Errorf("encode list_resources result: %w", err)
			}
			return result, nil
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"statusdesk.alert_levels",
			mcp.WithDescription("Return the alert-level table of one project, lowest severity first."),
			mcp.WithString("project_id", mcp.Description("Project identifier")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			levels, err := catalog.AlertLevels(ctx, req.GetString("project_id", ""))
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(map[string]any{
				"alert_levels": levels,
			})
			if err != nil {
				return nil, fmt.Errorf("encode alert_levels result: %w", err)
			}
			return result, nil
		},
	)
}

// registerJournalTools registers `statusdesk.add_journal_entry`.
func registerJournalTools(srv *mcpserver.MCPServer, journal common.JournalService) {
	srv.AddTool(
		mcp.NewTool(
			"statusdesk.add_journal_entry",
			mcp.WithDescription("Record one journal entry. Summary and details accept rich-text markup."),
			mcp.WithString("headline", mcp.Required(), mcp.Description("One-line headline")),
			mcp.WithString("project_id", mcp.Description("Project identifier")),
			mcp.WithString("alert_level", mcp.Description("Alert level id (defaults to the lowest level)")),
			mcp.WithString("author_id", mcp.Description("Authoring resource id")),
			mcp.WithString("subject_id", mcp.Description("Task the entry is about")),
			mcp.WithString("summary", mcp.Description("Summary markup")),
			mcp.WithString("details", mcp.Description("Details markup")),
			mcp.WithString("date", mcp.Description("Entry time, RFC3339 or YYYY-MM-DD (defaults to now)")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			headline, err := req.RequireString("headline")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			entry, err := journal.AddJournalEntry(ctx, common.AddJournalEntryRequest{
				ProjectID:  req.GetString("project_id", ""),
				Date:       req.GetString("date", ""),
				Headline:   headline,
				Summary:    req.GetString("summary", ""),
				Details:    req.GetString("details", ""),
				AlertLevel: req.GetString("alert_level", ""),
				AuthorID:   req.GetString("author_id", ""),
				SubjectID:  req.GetString("subject_id", ""),
			})
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(entry)
			if err != nil {
				return nil, fmt.Errorf("encode add_journal_entry result: %w", err)
			}
			return result, nil
		},
	)
}

// toolResultFromError maps service errors into MCP-visible tool errors.
func toolResultFromError(err error) *mcp.CallToolResult {
	switch {
	case err == nil:
		return mcp.NewToolResultError("unknown error")
	case errors.Is(err, common.ErrInvalidRequest):
		return mcp.NewToolResultError("invalid_request: " + err.Error())
	case errors.Is(err, common.ErrNotFound):
		return mcp.NewToolResultError("not_found: " + err.Error())
	case errors.Is(err, common.ErrRenderFailed):
		return mcp.NewToolResultError("render_failed: " + err.Error())
	default:
		return mcp.NewToolResultError("internal_error: " + err.Error())
	}
}
