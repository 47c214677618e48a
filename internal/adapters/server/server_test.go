package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	charmLog "github.com/charmbracelet/log"
	"github.com/hylla/statusdesk/internal/adapters/server/common"
)

type stubReports struct {
	last common.ReportRequest
}

func (s *stubReports) Report(_ context.Context, req common.ReportRequest) (common.Report, error) {
	s.last = req
	return common.Report{Kind: req.Kind, Published: true, Markdown: "ok"}, nil
}

func TestNewHandlerRoutes(t *testing.T) {
	reports := &stubReports{}
	handler, cfg, err := NewHandler(Config{}, Dependencies{Reports: reports})
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}
	if cfg.HTTPBind != "127.0.0.1:8080" || cfg.APIEndpoint != "/api/v1" || cfg.MCPEndpoint != "/mcp" || cfg.ServerName != "statusdesk" {
		t.Fatalf("unexpected normalized config %#v", cfg)
	}

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok"`) {
			t.Fatalf("%s = %d %q", path, rec.Code, rec.Body.String())
		}
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/reports/dashboard?resource_id=dev1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("api status = %d (%s)", rec.Code, rec.Body.String())
	}
	if reports.last.Kind != common.ReportKindDashboard || reports.last.ResourceID != "dev1" {
		t.Fatalf("unexpected forwarded request %#v", reports.last)
	}
}

func TestReadyzReportsStorageFailure(t *testing.T) {
	handler, _, err := NewHandler(Config{}, Dependencies{
		Reports: &stubReports{},
		Ready:   func(context.Context) error { return errors.New("db closed") },
	})
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable || !strings.Contains(rec.Body.String(), `"unavailable"`) {
		t.Fatalf("status = %d %q, want %d", rec.Code, rec.Body.String(), http.StatusServiceUnavailable)
	}
}

func TestNewHandlerValidation(t *testing.T) {
	if _, _, err := NewHandler(Config{}, Dependencies{}); err == nil {
		t.Fatal("expected error for missing reports dependency")
	}
	if _, _, err := NewHandler(Config{APIEndpoint: "/x", MCPEndpoint: "x/"}, Dependencies{Reports: &stubReports{}}); err == nil {
		t.Fatal("expected error for colliding endpoints")
	}
}

func TestNormalizeEndpoint(t *testing.T) {
	cases := map[string]string{"": "/fallback", "/": "/fallback", "api": "/api", " /a/b/ ": "/a/b"}
	for in, want := range cases {
		if got := normalizeEndpoint(in, "/fallback"); got != want {
			t.Fatalf("normalizeEndpoint(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, Config{HTTPBind: "127.0.0.1:0"}, Dependencies{Reports: &stubReports{}})
	}()
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}

func TestHealthPayloadAndRequestLogging(t *testing.T) {
	var logs strings.Builder
	logger := charmLog.NewWithOptions(&logs, charmLog.Options{Level: charmLog.DebugLevel})
	handler, _, err := NewHandler(Config{ServerName: "desk", ServerVersion: "1.2.3", Logger: logger}, Dependencies{Reports: &stubReports{}})
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	var body struct {
		Status  string `json:"status"`
		Name    string `json:"name"`
		Version string `json:"version"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode health body: %v", err)
	}
	if body.Status != "ok" || body.Name != "desk" || body.Version != "1.2.3" {
		t.Fatalf("unexpected health body %#v", body)
	}
	if !strings.Contains(logs.String(), "http request") || !strings.Contains(logs.String(), "/healthz") {
		t.Fatalf("expected request log line, got %q", logs.String())
	}
}
