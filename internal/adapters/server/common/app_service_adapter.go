package common

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hylla/statusdesk/internal/app"
)

// AppServiceAdapter maps transport contracts onto app.Service.
type AppServiceAdapter struct {
	service *app.Service
}

// NewAppServiceAdapter builds one common adapter over an app.Service instance.
func NewAppServiceAdapter(service *app.Service) *AppServiceAdapter {
	return &AppServiceAdapter{service: service}
}

// Report composes one report through app-level APIs.
func (a *AppServiceAdapter) Report(ctx context.Context, in ReportRequest) (Report, error) {
	if a == nil || a.service == nil {
		return Report{}, fmt.Errorf("app service adapter is not configured: %w", ErrInvalidRequest)
	}
	kind, err := app.ParseReportKind(in.Kind)
	if err != nil {
		return Report{}, mapAppError("report", err)
	}
	start, err := parseRequestTime("start", in.Start)
	if err != nil {
		return Report{}, err
	}
	end, err := parseRequestTime("end", in.End)
	if err != nil {
		return Report{}, err
	}
	result, err := a.service.Report(ctx, app.ReportRequest{
		Kind:             kind,
		ProjectID:        strings.TrimSpace(in.ProjectID),
		ResourceID:       strings.TrimSpace(in.ResourceID),
		Start:            start,
		End:              end,
		TimeFormat:       in.TimeFormat,
		LongVersion:      in.Long,
		TrackingScenario: strings.TrimSpace(in.TrackingScenario),
	})
	if err != nil {
		return Report{}, mapAppError("report", err)
	}
	out := Report{
		Kind:       string(result.Kind),
		ProjectID:  result.ProjectID,
		ResourceID: result.ResourceID,
		Start:      result.Start,
		End:        result.End,
		Published:  result.Published,
		Markdown:   result.Markdown,
		HTML:       result.HTML,
	}
	if d := result.Diagnostic; d != nil {
		out.Diagnostic = &Diagnostic{Line: d.Line, Message: d.Message, LineText: d.LineText}
	}
	return out, nil
}

// ListProjects lists stored projects.
func (a *AppServiceAdapter) ListProjects(ctx context.Context) ([]Project, error) {
	projects, err := a.service.ListProjects(ctx)
	if err != nil {
		return nil, mapAppError("list projects", err)
	}
	out := make([]Project, 0, len(projects))
	for _, p := range projects {
		out = append(out, Project{ID: p.ID, Name: p.Name, Resources: p.Resources, Tasks: p.Tasks})
	}
	return out, nil
}

// ListResources lists one project's resources.
func (a *AppServiceAdapter) ListResources(ctx context.Context, projectID string) ([]Resource, error) {
	resources, err := a.service.ListResources(ctx, projectID)
	if err != nil {
		return nil, mapAppError("list resources", err)
	}
	out := make([]Resource, 0, len(resources))
	for _, r := range resources {
		out = append(out, Resource{ID: r.ID, Name: r.Name, ParentID: r.ParentID})
	}
	return out, nil
}

// AlertLevels returns one project's severity table.
func (a *AppServiceAdapter) AlertLevels(ctx context.Context, projectID string) ([]AlertLevel, error) {
	levels, err := a.service.AlertLevels(ctx, projectID)
	if err != nil {
		return nil, mapAppError("alert levels", err)
	}
	out := make([]AlertLevel, 0, len(levels))
	for idx, l := range levels {
		out = append(out, AlertLevel{Index: idx, ID: l.ID, Name: l.Name, Color: l.Color})
	}
	return out, nil
}

// AddJournalEntry records one journal entry.
func (a *AppServiceAdapter) AddJournalEntry(ctx context.Context, in AddJournalEntryRequest) (JournalEntry, error) {
	date, err := parseRequestTime("date", in.Date)
	if err != nil {
		return JournalEntry{}, err
	}
	entry, err := a.service.AddJournalEntry(ctx, app.AddJournalEntryInput{
		ProjectID:  in.ProjectID,
		Date:       date,
		Headline:   in.Headline,
		Summary:    in.Summary,
		Details:    in.Details,
		AlertLevel: in.AlertLevel,
		AuthorID:   in.AuthorID,
		SubjectID:  in.SubjectID,
	})
	if err != nil {
		return JournalEntry{}, mapAppError("add journal entry", err)
	}
	return JournalEntry{
		ID:         entry.ID,
		Date:       entry.Date,
		Headline:   entry.Headline,
		AlertLevel: entry.AlertLevel,
		AuthorID:   entry.AuthorID,
		SubjectID:  entry.SubjectID,
	}, nil
}

// parseRequestTime accepts RFC 3339 timestamps and YYYY-MM-DD dates; empty input yields the zero time.
func parseRequestTime(field, raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{time.RFC3339Nano, time.DateOnly} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%s %q must be RFC3339 or YYYY-MM-DD: %w", field, raw, ErrInvalidRequest)
}

// mapAppError maps app-level errors into transport-visible error classes.
func mapAppError(operation string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, app.ErrNotFound):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrNotFound, err))
	case errors.Is(err, app.ErrInvalidRequest),
		errors.Is(err, app.ErrAmbiguousProject),
		errors.Is(err, app.ErrInvalidSnapshot):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrInvalidRequest, err))
	default:
		return fmt.Errorf("%s: %w", operation, err)
	}
}
