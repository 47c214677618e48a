package app

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/hylla/statusdesk/internal/domain"
)

// SnapshotVersion defines a package constant value.
const SnapshotVersion = "statusdesk.snapshot.v1"

// Snapshot represents snapshot data used by this package.
type Snapshot struct {
	Version    string                 `json:"version"`
	ExportedAt time.Time              `json:"exported_at"`
	Projects   []SnapshotProject      `json:"projects"`
	Journal    []SnapshotJournalEntry `json:"journal,omitempty"`
}

// SnapshotProject is the stored definition of one project.
type SnapshotProject struct {
	ID               string              `json:"id"`
	Name             string              `json:"name"`
	Scenarios        []SnapshotScenario  `json:"scenarios,omitempty"`
	TrackingScenario string              `json:"tracking_scenario,omitempty"`
	AlertLevels      []domain.AlertLevel `json:"alert_levels,omitempty"`
	Resources        []SnapshotResource  `json:"resources,omitempty"`
	Tasks            []SnapshotTask      `json:"tasks,omitempty"`
	Navigators       []SnapshotNavigator `json:"navigators,omitempty"`
	Reports          []domain.ReportRef  `json:"reports,omitempty"`
	CreatedAt        time.Time           `json:"created_at"`
}

// SnapshotScenario represents one planning scenario.
type SnapshotScenario struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// SnapshotResource represents one resource; Scenarios is keyed by scenario id.
type SnapshotResource struct {
	ID        string                              `json:"id"`
	Name      string                              `json:"name"`
	ParentID  string                              `json:"parent_id,omitempty"`
	Scenarios map[string]SnapshotResourceScenario `json:"scenarios,omitempty"`
}

// SnapshotResourceScenario holds per-scenario resource values.
type SnapshotResourceScenario struct {
	Efficiency *float64       `json:"efficiency,omitempty"`
	Rate       float64        `json:"rate,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// SnapshotTask represents one task; parents precede children.
type SnapshotTask struct {
	ID        string                          `json:"id"`
	Name      string                          `json:"name"`
	ParentID  string                          `json:"parent_id,omitempty"`
	Scenarios map[string]SnapshotTaskScenario `json:"scenarios,omitempty"`
}

// SnapshotTaskScenario holds per-scenario task values.
type SnapshotTaskScenario struct {
	Responsible []string       `json:"responsible,omitempty"`
	Start       *time.Time     `json:"start,omitempty"`
	End         *time.Time     `json:"end,omitempty"`
	Complete    float64        `json:"complete,omitempty"`
	Attributes  map[string]any `json:"attributes,omitempty"`
}

// SnapshotNavigator represents one named link list.
type SnapshotNavigator struct {
	ID    string        `json:"id"`
	Links []domain.Link `json:"links"`
}

// SnapshotJournalEntry represents one persisted journal entry.
type SnapshotJournalEntry struct {
	ID         string             `json:"id"`
	ProjectID  string             `json:"project_id"`
	Date       time.Time          `json:"date"`
	Headline   string             `json:"headline"`
	Summary    string             `json:"summary,omitempty"`
	Details    string             `json:"details,omitempty"`
	AlertLevel string             `json:"alert_level"`
	AuthorID   string             `json:"author_id,omitempty"`
	SubjectID  string             `json:"subject_id,omitempty"`
	TimeSheet  *SnapshotTimeSheet `json:"timesheet,omitempty"`
}

// SnapshotTimeSheet represents the time sheet record linked to a journal entry.
type SnapshotTimeSheet struct {
	ResourceID        string     `json:"resource_id,omitempty"`
	Name              string     `json:"name,omitempty"`
	TaskID            string     `json:"task_id"`
	ActualWorkPercent float64    `json:"actual_work_percent"`
	PlanWorkPercent   float64    `json:"plan_work_percent"`
	Remaining         bool       `json:"remaining,omitempty"`
	ActualRemaining   float64    `json:"actual_remaining,omitempty"`
	PlanRemaining     float64    `json:"plan_remaining,omitempty"`
	ActualEnd         *time.Time `json:"actual_end,omitempty"`
	PlanEnd           *time.Time `json:"plan_end,omitempty"`
}

// ExportSnapshot exports every project and its journal.
func (s *Service) ExportSnapshot(ctx context.Context) (Snapshot, error) {
	projects, err := s.repo.ListProjects(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	snap := Snapshot{
		Version:    SnapshotVersion,
		ExportedAt: s.clock().UTC(),
		Projects:   make([]SnapshotProject, 0, len(projects)),
	}
	for _, project := range projects {
		snap.Projects = append(snap.Projects, project)
		entries, err := s.repo.ListJournalEntries(ctx, JournalFilter{ProjectID: project.ID})
		if err != nil {
			return Snapshot{}, err
		}
		snap.Journal = append(snap.Journal, entries...)
	}
	snap.sort()
	return snap, nil
}

// ImportSnapshot validates snap and upserts its projects and journal entries.
func (s *Service) ImportSnapshot(ctx context.Context, snap Snapshot) error {
	if err := snap.Validate(); err != nil {
		return err
	}
	for _, project := range snap.Projects {
		if project.CreatedAt.IsZero() {
			project.CreatedAt = s.clock().UTC()
		}
		if err := s.repo.UpsertProject(ctx, project); err != nil {
			return err
		}
	}
	for _, entry := range snap.Journal {
		if strings.TrimSpace(entry.ID) == "" {
			entry.ID = s.idGen()
		}
		if err := s.repo.UpsertJournalEntry(ctx, entry); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks that every project builds and every journal entry resolves against its project.
func (s *Snapshot) Validate() error {
	if strings.TrimSpace(s.Version) == "" {
		s.Version = SnapshotVersion
	}
	if s.Version != SnapshotVersion {
		return fmt.Errorf("%w: unsupported version %q", ErrInvalidSnapshot, s.Version)
	}
	byID := map[string]*domain.Project{}
	for _, sp := range s.Projects {
		if _, dup := byID[strings.TrimSpace(sp.ID)]; dup {
			return fmt.Errorf("%w: duplicate project %q", ErrInvalidSnapshot, sp.ID)
		}
		project, err := sp.toDomain()
		if err != nil {
			return fmt.Errorf("%w: project %q: %v", ErrInvalidSnapshot, sp.ID, err)
		}
		byID[project.ID] = project
	}
	seen := map[string]struct{}{}
	for idx, se := range s.Journal {
		project, ok := byID[strings.TrimSpace(se.ProjectID)]
		if !ok {
			return fmt.Errorf("%w: journal[%d] references unknown project %q", ErrInvalidSnapshot, idx, se.ProjectID)
		}
		if id := strings.TrimSpace(se.ID); id != "" {
			key := project.ID + "/" + id
			if _, dup := seen[key]; dup {
				return fmt.Errorf("%w: duplicate journal entry %q", ErrInvalidSnapshot, id)
			}
			seen[key] = struct{}{}
		} else {
			se.ID = fmt.Sprintf("journal-%d", idx)
		}
		if _, err := se.toDomain(project); err != nil {
			return fmt.Errorf("%w: journal[%d]: %v", ErrInvalidSnapshot, idx, err)
		}
	}
	return nil
}

// sort orders projects by id and journal entries by project, date and id.
func (s *Snapshot) sort() {
	sort.SliceStable(s.Projects, func(i, j int) bool {
		return s.Projects[i].ID < s.Projects[j].ID
	})
	sort.SliceStable(s.Journal, func(i, j int) bool {
		a, b := s.Journal[i], s.Journal[j]
		if a.ProjectID != b.ProjectID {
			return a.ProjectID < b.ProjectID
		}
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		return a.ID < b.ID
	})
}

// toDomain builds the read-only project context.
func (p SnapshotProject) toDomain() (*domain.Project, error) {
	scenarios := make([]domain.Scenario, 0, len(p.Scenarios))
	for _, sc := range p.Scenarios {
		scenarios = append(scenarios, domain.Scenario{ID: sc.ID, Name: sc.Name})
	}
	tracking := 0
	if id := strings.TrimSpace(p.TrackingScenario); id != "" {
		tracking = -1
		for idx, sc := range scenarios {
			if strings.TrimSpace(sc.ID) == id {
				tracking = idx
			}
		}
		if tracking < 0 {
			return nil, fmt.Errorf("tracking scenario %q: %w", id, domain.ErrInvalidScenario)
		}
	}
	project, err := domain.NewProject(domain.ProjectInput{
		ID:               p.ID,
		Name:             p.Name,
		Scenarios:        scenarios,
		AlertLevels:      p.AlertLevels,
		TrackingScenario: tracking,
	}, p.CreatedAt)
	if err != nil {
		return nil, err
	}

	for _, r := range p.Resources {
		rows, err := scenarioRows(project, r.Scenarios, func(sc SnapshotResourceScenario) domain.ResourceScenarioInput {
			return domain.ResourceScenarioInput{Efficiency: sc.Efficiency, Rate: sc.Rate, Attributes: sc.Attributes}
		})
		if err != nil {
			return nil, fmt.Errorf("resource %q: %w", r.ID, err)
		}
		if _, err := project.AddResource(domain.ResourceInput{ID: r.ID, Name: r.Name, ParentID: r.ParentID, Scenarios: rows}); err != nil {
			return nil, err
		}
	}
	for _, t := range p.Tasks {
		rows, err := scenarioRows(project, t.Scenarios, func(sc SnapshotTaskScenario) domain.TaskScenarioInput {
			return domain.TaskScenarioInput{
				Responsible: sc.Responsible,
				Start:       derefTime(sc.Start),
				End:         derefTime(sc.End),
				Complete:    sc.Complete,
				Attributes:  sc.Attributes,
			}
		})
		if err != nil {
			return nil, fmt.Errorf("task %q: %w", t.ID, err)
		}
		if _, err := project.AddTask(domain.TaskInput{ID: t.ID, Name: t.Name, ParentID: t.ParentID, Scenarios: rows}); err != nil {
			return nil, err
		}
	}
	for _, nav := range p.Navigators {
		if err := project.SetNavigator(nav.ID, nav.Links); err != nil {
			return nil, fmt.Errorf("navigator %q: %w", nav.ID, err)
		}
	}
	for _, ref := range p.Reports {
		if err := project.AddReport(ref); err != nil {
			return nil, fmt.Errorf("report %q: %w", ref.ID, err)
		}
	}
	return project, nil
}

// scenarioRows lays keyed scenario values out in project scenario order.
func scenarioRows[S, R any](project *domain.Project, byScenario map[string]S, convert func(S) R) ([]R, error) {
	rows := make([]R, project.ScenarioCount())
	for id, sc := range byScenario {
		idx, ok := project.ScenarioIndex(id)
		if !ok {
			return nil, fmt.Errorf("scenario %q: %w", id, domain.ErrInvalidScenario)
		}
		rows[idx] = convert(sc)
	}
	return rows, nil
}

// toDomain resolves the entry's alert level and time sheet task against project.
func (e SnapshotJournalEntry) toDomain(project *domain.Project) (domain.JournalEntry, error) {
	levels := project.AlertLevels()
	level, ok := levels.IndexOf(e.AlertLevel)
	if !ok {
		return domain.JournalEntry{}, fmt.Errorf("alert level %q: %w", e.AlertLevel, domain.ErrInvalidAlertLevel)
	}
	var ts *domain.TimeSheetRecord
	if e.TimeSheet != nil {
		ref := domain.UnresolvedTask(e.TimeSheet.TaskID)
		if task, ok := project.Task(e.TimeSheet.TaskID); ok {
			ref = domain.ResolvedTask(task)
		}
		ts = &domain.TimeSheetRecord{
			ResourceID:        e.TimeSheet.ResourceID,
			Name:              e.TimeSheet.Name,
			Task:              ref,
			ActualWorkPercent: e.TimeSheet.ActualWorkPercent,
			PlanWorkPercent:   e.TimeSheet.PlanWorkPercent,
			Remaining:         e.TimeSheet.Remaining,
			ActualRemaining:   e.TimeSheet.ActualRemaining,
			PlanRemaining:     e.TimeSheet.PlanRemaining,
			ActualEnd:         derefTime(e.TimeSheet.ActualEnd),
			PlanEnd:           derefTime(e.TimeSheet.PlanEnd),
		}
	}
	return domain.NewJournalEntry(domain.JournalEntryInput{
		ID:         e.ID,
		Date:       e.Date,
		Headline:   e.Headline,
		Summary:    e.Summary,
		Details:    e.Details,
		AlertLevel: level,
		AuthorID:   e.AuthorID,
		SubjectID:  e.SubjectID,
		TimeSheet:  ts,
	}, levels)
}

// snapshotProjectFromDomain captures a project definition.
func snapshotProjectFromDomain(p *domain.Project) SnapshotProject {
	out := SnapshotProject{
		ID:          p.ID,
		Name:        p.Name,
		AlertLevels: p.AlertLevels().Levels(),
		CreatedAt:   p.CreatedAt,
	}
	scenarios := p.Scenarios()
	for _, sc := range scenarios {
		out.Scenarios = append(out.Scenarios, SnapshotScenario{ID: sc.ID, Name: sc.Name})
	}
	out.TrackingScenario = scenarios[p.TrackingScenario()].ID
	for _, r := range p.Resources() {
		sr := SnapshotResource{ID: r.ID, Name: r.Name, ParentID: r.ParentID, Scenarios: map[string]SnapshotResourceScenario{}}
		for idx, sc := range scenarios {
			view, _ := r.Scenario(idx)
			eff := view.Efficiency()
			sr.Scenarios[sc.ID] = SnapshotResourceScenario{Efficiency: &eff, Rate: view.Rate(), Attributes: view.Attributes()}
		}
		out.Resources = append(out.Resources, sr)
	}
	for _, t := range p.Tasks() {
		st := SnapshotTask{ID: t.ID, Name: t.Name, ParentID: t.ParentID, Scenarios: map[string]SnapshotTaskScenario{}}
		for idx, sc := range scenarios {
			view, _ := t.Scenario(idx)
			st.Scenarios[sc.ID] = SnapshotTaskScenario{
				Responsible: view.Responsible(),
				Start:       timePtr(view.Start()),
				End:         timePtr(view.End()),
				Complete:    view.Complete(),
				Attributes:  view.Attributes(),
			}
		}
		out.Tasks = append(out.Tasks, st)
	}
	navIDs := p.NavigatorIDs()
	slices.Sort(navIDs)
	for _, id := range navIDs {
		links, _ := p.Navigator(id)
		out.Navigators = append(out.Navigators, SnapshotNavigator{ID: id, Links: links})
	}
	reports := p.Reports()
	sort.Slice(reports, func(i, j int) bool { return reports[i].ID < reports[j].ID })
	out.Reports = reports
	return out
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return t.UTC()
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	v := t.UTC()
	return &v
}
