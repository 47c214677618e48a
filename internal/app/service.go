package app

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/hylla/statusdesk/internal/domain"
	"github.com/hylla/statusdesk/internal/journal"
	"github.com/hylla/statusdesk/internal/markup"
	"github.com/hylla/statusdesk/internal/report"
)

// ReportKind names one report entry point.
type ReportKind string

// ReportKindJournal and related constants define package defaults.
const (
	ReportKindJournal   ReportKind = "journal"
	ReportKindDashboard ReportKind = "dashboard"
)

// ParseReportKind validates a user-supplied report kind.
func ParseReportKind(raw string) (ReportKind, error) {
	switch ReportKind(strings.ToLower(strings.TrimSpace(raw))) {
	case ReportKindJournal, "":
		return ReportKindJournal, nil
	case ReportKindDashboard:
		return ReportKindDashboard, nil
	default:
		return "", fmt.Errorf("%w: unsupported report kind %q", ErrInvalidRequest, raw)
	}
}

// ServiceConfig holds configuration for service.
type ServiceConfig struct {
	TimeFormat     string
	CSSClass       string
	WindowDays     int
	LongVersion    bool
	SectionNumbers bool
	// Diagnostics receives every markup failure; nil logs through the default logger.
	Diagnostics markup.Sink
}

// IDGenerator returns unique identifiers for new entities.
type IDGenerator func() string

// Clock returns the current time.
type Clock func() time.Time

// Service represents service data used by this package.
type Service struct {
	repo     Repository
	idGen    IDGenerator
	clock    Clock
	cfg      ServiceConfig
	pipeline *markup.Pipeline
}

// NewService constructs a new value for this package.
func NewService(repo Repository, idGen IDGenerator, clock Clock, cfg ServiceConfig) *Service {
	if idGen == nil {
		idGen = func() string { return "" }
	}
	if clock == nil {
		clock = time.Now
	}
	if cfg.WindowDays <= 0 {
		cfg.WindowDays = 7
	}
	if strings.TrimSpace(cfg.TimeFormat) == "" {
		cfg.TimeFormat = report.DefaultTimeFormat
	}
	if strings.TrimSpace(cfg.CSSClass) == "" {
		cfg.CSSClass = markup.DefaultCSSClass
	}
	opts := []markup.Option{
		markup.WithCSSClass(cfg.CSSClass),
		markup.WithSectionNumbers(cfg.SectionNumbers),
	}
	if cfg.Diagnostics != nil {
		opts = append(opts, markup.WithSink(cfg.Diagnostics))
	}
	return &Service{
		repo:     repo,
		idGen:    idGen,
		clock:    clock,
		cfg:      cfg,
		pipeline: markup.NewPipeline(opts...),
	}
}

// ProjectSummary is a compact project listing row.
type ProjectSummary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Resources int    `json:"resources"`
	Tasks     int    `json:"tasks"`
}

// ListProjects lists stored projects ordered by id.
func (s *Service) ListProjects(ctx context.Context) ([]ProjectSummary, error) {
	projects, err := s.repo.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]ProjectSummary, 0, len(projects))
	for _, p := range projects {
		out = append(out, ProjectSummary{ID: p.ID, Name: p.Name, Resources: len(p.Resources), Tasks: len(p.Tasks)})
	}
	slices.SortFunc(out, func(a, b ProjectSummary) int { return strings.Compare(a.ID, b.ID) })
	return out, nil
}

// LoadProject builds the read-only project context; an empty id selects the only project.
func (s *Service) LoadProject(ctx context.Context, projectID string) (*domain.Project, error) {
	record, err := s.projectRecord(ctx, projectID)
	if err != nil {
		return nil, err
	}
	project, err := record.toDomain()
	if err != nil {
		return nil, fmt.Errorf("load project %q: %w", record.ID, err)
	}
	return project, nil
}

// SaveProject stores a project definition.
func (s *Service) SaveProject(ctx context.Context, project *domain.Project) error {
	if project == nil {
		return fmt.Errorf("%w: project is required", ErrInvalidRequest)
	}
	return s.repo.UpsertProject(ctx, snapshotProjectFromDomain(project))
}

func (s *Service) projectRecord(ctx context.Context, projectID string) (SnapshotProject, error) {
	projectID = strings.TrimSpace(projectID)
	if projectID != "" {
		record, err := s.repo.GetProject(ctx, projectID)
		if errors.Is(err, ErrNotFound) {
			return SnapshotProject{}, s.projectNotFound(ctx, projectID)
		}
		return record, err
	}
	projects, err := s.repo.ListProjects(ctx)
	if err != nil {
		return SnapshotProject{}, err
	}
	switch len(projects) {
	case 0:
		return SnapshotProject{}, &NotFoundError{Kind: "project"}
	case 1:
		return projects[0], nil
	default:
		return SnapshotProject{}, ErrAmbiguousProject
	}
}

func (s *Service) projectNotFound(ctx context.Context, projectID string) error {
	projects, err := s.repo.ListProjects(ctx)
	if err != nil {
		return err
	}
	ids := make([]string, 0, len(projects))
	for _, p := range projects {
		ids = append(ids, p.ID)
	}
	return notFound("project", projectID, ids)
}

// ResourceSummary is a compact resource listing row.
type ResourceSummary struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ParentID string `json:"parent_id,omitempty"`
}

// ListResources lists the resources of one project in definition order.
func (s *Service) ListResources(ctx context.Context, projectID string) ([]ResourceSummary, error) {
	project, err := s.LoadProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	out := make([]ResourceSummary, 0)
	for _, r := range project.Resources() {
		out = append(out, ResourceSummary{ID: r.ID, Name: r.Name, ParentID: r.ParentID})
	}
	return out, nil
}

// AlertLevels returns the severity table of one project.
func (s *Service) AlertLevels(ctx context.Context, projectID string) ([]domain.AlertLevel, error) {
	project, err := s.LoadProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return project.AlertLevels().Levels(), nil
}

// AddJournalEntryInput holds input values for add journal entry operations.
type AddJournalEntryInput struct {
	ProjectID  string
	Date       time.Time
	Headline   string
	Summary    string
	Details    string
	AlertLevel string
	AuthorID   string
	SubjectID  string
	TimeSheet  *SnapshotTimeSheet
}

// AddJournalEntry validates and stores one journal entry.
func (s *Service) AddJournalEntry(ctx context.Context, in AddJournalEntryInput) (domain.JournalEntry, error) {
	project, err := s.LoadProject(ctx, in.ProjectID)
	if err != nil {
		return domain.JournalEntry{}, err
	}
	if in.Date.IsZero() {
		in.Date = s.clock()
	}
	if strings.TrimSpace(in.AlertLevel) == "" {
		in.AlertLevel = project.AlertLevels().Levels()[0].ID
	}
	record := SnapshotJournalEntry{
		ID:         s.idGen(),
		ProjectID:  project.ID,
		Date:       in.Date.UTC(),
		Headline:   in.Headline,
		Summary:    in.Summary,
		Details:    in.Details,
		AlertLevel: in.AlertLevel,
		AuthorID:   strings.TrimSpace(in.AuthorID),
		SubjectID:  strings.TrimSpace(in.SubjectID),
		TimeSheet:  in.TimeSheet,
	}
	if record.AuthorID != "" {
		if _, ok := project.Resource(record.AuthorID); !ok {
			return domain.JournalEntry{}, s.resourceNotFound(project, record.AuthorID)
		}
	}
	entry, err := record.toDomain(project)
	if err != nil {
		return domain.JournalEntry{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if err := s.repo.UpsertJournalEntry(ctx, record); err != nil {
		return domain.JournalEntry{}, err
	}
	return entry, nil
}

func (s *Service) resourceNotFound(project *domain.Project, resourceID string) error {
	resources := project.Resources()
	ids := make([]string, 0, len(resources))
	for _, r := range resources {
		ids = append(ids, r.ID)
	}
	return notFound("resource", resourceID, ids)
}

// ReportRequest selects one report. Zero End means now; zero Start means End minus the window.
type ReportRequest struct {
	Kind        ReportKind
	ProjectID   string
	ResourceID  string
	Start       time.Time
	End         time.Time
	TimeFormat  string
	LongVersion *bool
	// TrackingScenario overrides the project tracking scenario by id.
	TrackingScenario string
}

// ReportResult carries a published report or the diagnostic explaining why none was published.
type ReportResult struct {
	Kind       ReportKind         `json:"kind"`
	ProjectID  string             `json:"project_id"`
	ResourceID string             `json:"resource_id"`
	Start      time.Time          `json:"start"`
	End        time.Time          `json:"end"`
	Published  bool               `json:"published"`
	Markdown   string             `json:"markdown,omitempty"`
	HTML       string             `json:"html,omitempty"`
	Diagnostic *markup.Diagnostic `json:"diagnostic,omitempty"`
	Document   *markup.Document   `json:"-"`
}

// JournalReport runs the journal report for one resource.
func (s *Service) JournalReport(ctx context.Context, in ReportRequest) (ReportResult, error) {
	in.Kind = ReportKindJournal
	return s.Report(ctx, in)
}

// Dashboard runs the dashboard for one resource.
func (s *Service) Dashboard(ctx context.Context, in ReportRequest) (ReportResult, error) {
	in.Kind = ReportKindDashboard
	return s.Report(ctx, in)
}

// Report runs the report named by in.Kind.
func (s *Service) Report(ctx context.Context, in ReportRequest) (ReportResult, error) {
	kind, err := ParseReportKind(string(in.Kind))
	if err != nil {
		return ReportResult{}, err
	}
	project, err := s.LoadProject(ctx, in.ProjectID)
	if err != nil {
		return ReportResult{}, err
	}
	resourceID := strings.TrimSpace(in.ResourceID)
	if resourceID == "" {
		return ReportResult{}, fmt.Errorf("%w: resource id is required", ErrInvalidRequest)
	}
	res, ok := project.Resource(resourceID)
	if !ok {
		return ReportResult{}, s.resourceNotFound(project, resourceID)
	}

	q, err := s.query(project, in)
	if err != nil {
		return ReportResult{}, err
	}
	collector := &markup.Collector{}
	q.Diagnostics = collector

	composer, err := report.NewComposer(report.Context{
		Project: project,
		Journal: newProjectJournal(s.repo, project),
	}, s.pipeline)
	if err != nil {
		return ReportResult{}, err
	}
	switch kind {
	case ReportKindDashboard:
		err = composer.Dashboard(ctx, res, q)
	default:
		long := s.cfg.LongVersion
		if in.LongVersion != nil {
			long = *in.LongVersion
		}
		err = composer.JournalReport(ctx, res, q, long)
	}
	if err != nil {
		return ReportResult{}, err
	}

	result := ReportResult{
		Kind:       kind,
		ProjectID:  project.ID,
		ResourceID: res.ID,
		Start:      q.Start,
		End:        q.End,
	}
	if d, ok := collector.Last(); ok {
		result.Diagnostic = &d
	}
	if doc := q.Document(); doc != nil {
		html, err := doc.HTML()
		if err != nil {
			return ReportResult{}, err
		}
		result.Published = true
		result.Document = doc
		result.Markdown = doc.Markdown()
		result.HTML = html
	}
	return result, nil
}

// query resolves request defaults into a report query.
func (s *Service) query(project *domain.Project, in ReportRequest) (*report.Query, error) {
	end := in.End
	if end.IsZero() {
		end = s.clock()
	}
	start := in.Start
	if start.IsZero() {
		start = end.AddDate(0, 0, -s.cfg.WindowDays)
	}
	if !start.Before(end) {
		return nil, fmt.Errorf("%w: start %s is not before end %s", ErrInvalidRequest, start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	format := strings.TrimSpace(in.TimeFormat)
	if format == "" {
		format = s.cfg.TimeFormat
	}
	tracking := project.TrackingScenario()
	if id := strings.TrimSpace(in.TrackingScenario); id != "" {
		idx, ok := project.ScenarioIndex(id)
		if !ok {
			scenarios := project.Scenarios()
			ids := make([]string, 0, len(scenarios))
			for _, sc := range scenarios {
				ids = append(ids, sc.ID)
			}
			return nil, notFound("scenario", id, ids)
		}
		tracking = idx
	}
	return &report.Query{
		Start:            start.UTC(),
		End:              end.UTC(),
		TimeFormat:       format,
		TrackingScenario: tracking,
	}, nil
}

// projectJournal adapts the repository into a journal.Store resolved against one project.
type projectJournal struct {
	repo    Repository
	project *domain.Project
}

func newProjectJournal(repo Repository, project *domain.Project) journal.Store {
	return projectJournal{repo: repo, project: project}
}

// EntriesByResource implements journal.Store.
func (j projectJournal) EntriesByResource(ctx context.Context, resourceID string, start, end time.Time) ([]domain.JournalEntry, error) {
	records, err := j.repo.ListJournalEntries(ctx, JournalFilter{
		ProjectID: j.project.ID,
		AuthorID:  resourceID,
		Start:     start,
		End:       end,
	})
	if err != nil {
		return nil, err
	}
	return j.toDomain(records)
}

// CurrentEntries implements journal.Store.
func (j projectJournal) CurrentEntries(ctx context.Context, end time.Time, taskID string, minLevel int, start time.Time) ([]domain.JournalEntry, error) {
	subtree := j.project.TaskSubtree(taskID)
	if len(subtree) == 0 {
		subtree = []string{taskID}
	}
	records, err := j.repo.ListJournalEntries(ctx, JournalFilter{
		ProjectID:  j.project.ID,
		SubjectIDs: subtree,
		Start:      start,
		End:        end,
	})
	if err != nil {
		return nil, err
	}
	entries, err := j.toDomain(records)
	if err != nil {
		return nil, err
	}
	return journal.NewMemoryStore(j.project.TaskSubtree, entries...).CurrentEntries(ctx, end, taskID, minLevel, start)
}

func (j projectJournal) toDomain(records []SnapshotJournalEntry) ([]domain.JournalEntry, error) {
	out := make([]domain.JournalEntry, 0, len(records))
	for _, record := range records {
		entry, err := record.toDomain(j.project)
		if err != nil {
			return nil, fmt.Errorf("journal entry %q: %w", record.ID, err)
		}
		out = append(out, entry)
	}
	return out, nil
}
