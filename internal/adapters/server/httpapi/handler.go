// Package httpapi provides the REST HTTP adapter for the server surfaces.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/hylla/statusdesk/internal/adapters/server/common"
)

// maxRequestBodyBytes limits decoded JSON payload size for fail-closed request handling.
const maxRequestBodyBytes int64 = 1 << 20

// Handler serves the versioned API subrouter mounted under `/api/v1`.
type Handler struct {
	reports common.ReportService
	catalog common.CatalogService
	journal common.JournalService
}

// APIError represents one structured API failure response.
type APIError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Hint    string         `json:"hint,omitempty"`
	Context map[string]any `json:"context,omitempty"`
}

// ErrorEnvelope wraps one structured API error.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// NewHandler constructs one HTTP API adapter. catalog and journal are optional.
func NewHandler(reports common.ReportService, catalog common.CatalogService, journal common.JournalService) *Handler {
	return &Handler{
		reports: reports,
		catalog: catalog,
		journal: journal,
	}
}

// ServeHTTP routes one versioned API request to the matching handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := normalizePath(r.URL.Path)
	switch path {
	case "reports/journal", "reports/dashboard":
		if r.Method != http.MethodGet {
			writeMethodNotAllowed(w, http.MethodGet)
			return
		}
		h.handleReport(w, r, strings.TrimPrefix(path, "reports/"))
	case "projects":
		if r.Method != http.MethodGet {
			writeMethodNotAllowed(w, http.MethodGet)
			return
		}
		h.handleListProjects(w, r)
	case "resources":
		if r.Method != http.MethodGet {
			writeMethodNotAllowed(w, http.MethodGet)
			return
		}
		h.handleListResources(w, r)
	case "alert_levels":
		if r.Method != http.MethodGet {
			writeMethodNotAllowed(w, http.MethodGet)
			return
		}
		h.handleAlertLevels(w, r)
	case "journal/entries":
		if r.Method != http.MethodPost {
			writeMethodNotAllowed(w, http.MethodPost)
			return
		}
		h.handleAddJournalEntry(w, r)
	default:
		writeJSONError(w, http.StatusNotFound, APIError{
			Code:    "not_found",
			Message: "endpoint not found",
		})
	}
}

// handleReport serves GET `/reports/{journal|dashboard}`.
func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request, kind string) {
	if h.reports == nil {
		writeJSONError(w, http.StatusServiceUnavailable, APIError{
			Code:    "service_unavailable",
			Message: "report service is not configured",
		})
		return
	}
	query := r.URL.Query()
	req := common.ReportRequest{
		Kind:             kind,
		ProjectID:        strings.TrimSpace(query.Get("project_id")),
		ResourceID:       strings.TrimSpace(query.Get("resource_id")),
		Start:            strings.TrimSpace(query.Get("start")),
		End:              strings.TrimSpace(query.Get("end")),
		TimeFormat:       query.Get("time_format"),
		TrackingScenario: strings.TrimSpace(query.Get("scenario")),
	}
	if req.ResourceID == "" {
		writeJSONError(w, http.StatusBadRequest, APIError{
			Code:    "invalid_request",
			Message: "resource_id is required",
		})
		return
	}
	if raw := strings.TrimSpace(query.Get("long")); raw != "" {
		long, err := strconv.ParseBool(raw)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, APIError{
				Code:    "invalid_request",
				Message: fmt.Sprintf("long %q must be a boolean", raw),
			})
			return
		}
		req.Long = &long
	}
	report, err := h.reports.Report(r.Context(), req)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	if !report.Published && report.Diagnostic != nil {
		writeJSONError(w, http.StatusUnprocessableEntity, APIError{
			Code:    "render_failed",
			Message: report.Diagnostic.Message,
			Hint:    "Fix the journal entry markup on the reported line.",
			Context: map[string]any{
				"line":      report.Diagnostic.Line,
				"line_text": report.Diagnostic.LineText,
			},
		})
		return
	}
	if wantsMarkdown(r) {
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, report.Markdown)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// handleListProjects serves GET `/projects`.
func (h *Handler) handleListProjects(w http.ResponseWriter, r *http.Request) {
	if !h.requireCatalog(w) {
		return
	}
	projects, err := h.catalog.ListProjects(r.Context())
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"projects": projects,
	})
}

// handleListResources serves GET `/resources`.
func (h *Handler) handleListResources(w http.ResponseWriter, r *http.Request) {
	if !h.requireCatalog(w) {
		return
	}
	resources, err := h.catalog.ListResources(r.Context(), strings.TrimSpace(r.URL.Query().Get("project_id")))
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"resources": resources,
	})
}

// handleAlertLevels serves GET `/alert_levels`.
func (h *Handler) handleAlertLevels(w http.ResponseWriter, r *http.Request) {
	if !h.requireCatalog(w) {
		return
	}
	levels, err := h.catalog.AlertLevels(r.Context(), strings.TrimSpace(r.URL.Query().Get("project_id")))
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"alert_levels": levels,
	})
}

// handleAddJournalEntry serves POST `/journal/entries`.
func (h *Handler) handleAddJournalEntry(w http.ResponseWriter, r *http.Request) {
	if h.journal == nil {
		writeJSONError(w, http.StatusNotImplemented, APIError{
			Code:    "not_implemented",
			Message: "journal writes are not available",
		})
		return
	}
	var req common.AddJournalEntryRequest
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	entry, err := h.journal.AddJournalEntry(r.Context(), req)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (h *Handler) requireCatalog(w http.ResponseWriter) bool {
	if h.catalog != nil {
		return true
	}
	writeJSONError(w, http.StatusNotImplemented, APIError{
		Code:    "not_implemented",
		Message: "catalog APIs are not available",
	})
	return false
}

// wantsMarkdown reports whether the caller asked for raw markdown instead of JSON.
func wantsMarkdown(r *http.Request) bool {
	if strings.EqualFold(strings.TrimSpace(r.URL.Query().Get("format")), "markdown") {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "text/markdown")
}

// normalizePath canonicalizes one request path for route matching.
func normalizePath(path string) string {
	path = strings.TrimSpace(path)
	path = strings.Trim(path, "/")
	return path
}

// writeErrorFrom maps adapter errors into structured HTTP responses.
func writeErrorFrom(w http.ResponseWriter, err error) {
	switch {
	case err == nil:
		writeJSONError(w, http.StatusInternalServerError, APIError{
			Code:    "internal_error",
			Message: "unknown error",
		})
	case errors.Is(err, common.ErrNotFound):
		writeJSONError(w, http.StatusNotFound, APIError{
			Code:    "not_found",
			Message: err.Error(),
		})
	case errors.Is(err, common.ErrInvalidRequest):
		writeJSONError(w, http.StatusBadRequest, APIError{
			Code:    "invalid_request",
			Message: err.Error(),
		})
	case errors.Is(err, common.ErrRenderFailed):
		writeJSONError(w, http.StatusUnprocessableEntity, APIError{
			Code:    "render_failed",
			Message: err.Error(),
		})
	default:
		writeJSONError(w, http.StatusInternalServerError, APIError{
			Code:    "internal_error",
			Message: err.Error(),
		})
	}
}

// writeMethodNotAllowed writes a structured 405 response with `Allow` headers.
func writeMethodNotAllowed(w http.ResponseWriter, methods ...string) {
	if len(methods) > 0 {
		w.Header().Set("Allow", strings.Join(methods, ", "))
	}
	writeJSONError(w, http.StatusMethodNotAllowed, APIError{
		Code:    "method_not_allowed",
		Message: "method not allowed",
	})
}

// writeJSONError writes one structured error envelope.
func writeJSONError(w http.ResponseWriter, statusCode int, apiErr APIError) {
	writeJSON(w, statusCode, ErrorEnvelope{Error: apiErr})
}

// writeJSON writes one JSON response envelope.
func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, fmt.Sprintf(`{"error":{"code":"encode_error","message":"%s"}}`, err.Error()), http.StatusInternalServerError)
	}
}

// decodeJSONBody decodes one required JSON request body with strict shape checks.
func decodeJSONBody(ctx context.Context, w http.ResponseWriter, r *http.Request, out any) error {
	reader := http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	defer reader.Close()

	decoder := json.NewDecoder(reader)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(out); err != nil {
		return fmt.Errorf("decode request body: %w", errors.Join(common.ErrInvalidRequest, err))
	}
	if err := decoder.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode request body: trailing content: %w", common.ErrInvalidRequest)
	}
	select {
	case <-ctx.Done():
		return fmt.Errorf("request canceled: %w", ctx.Err())
	default:
		return nil
	}
}
