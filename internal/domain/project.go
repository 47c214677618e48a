package domain

import (
	"fmt"
	"strings"
	"time"
)

// Project is the read-only context reports are composed against.
type Project struct {
	ID        string
	Name      string
	CreatedAt time.Time

	scenarios        []Scenario
	alertLevels      AlertLevelTable
	trackingScenario int
	resources        []*Resource
	resourceByID     map[string]*Resource
	tasks            []*Task
	taskByID         map[string]*Task
	navigators       map[string][]Link
	reports          map[string]ReportRef
}

// ProjectInput holds write-time values for constructing a project.
type ProjectInput struct {
	ID               string
	Name             string
	Scenarios        []Scenario
	AlertLevels      []AlertLevel
	TrackingScenario int
}

// Link is one navigation target.
type Link struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// ReportRef names one report that markup can embed.
type ReportRef struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

// NewProject validates the scenario and alert-level configuration and returns an empty project.
func NewProject(in ProjectInput, now time.Time) (*Project, error) {
	in.ID = strings.TrimSpace(in.ID)
	in.Name = strings.TrimSpace(in.Name)
	if in.ID == "" {
		return nil, ErrInvalidID
	}
	if in.Name == "" {
		return nil, ErrInvalidName
	}
	scenarios, err := normalizeScenarios(in.Scenarios)
	if err != nil {
		return nil, err
	}
	if in.TrackingScenario < 0 || in.TrackingScenario >= len(scenarios) {
		return nil, fmt.Errorf("tracking scenario %d of %d: %w", in.TrackingScenario, len(scenarios), ErrInvalidScenario)
	}
	levels, err := NewAlertLevelTable(in.AlertLevels)
	if err != nil {
		return nil, err
	}
	return &Project{
		ID:               in.ID,
		Name:             in.Name,
		CreatedAt:        now.UTC(),
		scenarios:        scenarios,
		alertLevels:      levels,
		trackingScenario: in.TrackingScenario,
		resourceByID:     map[string]*Resource{},
		taskByID:         map[string]*Task{},
		navigators:       map[string][]Link{},
		reports:          map[string]ReportRef{},
	}, nil
}

// ScenarioCount returns the fixed number of scenarios.
func (p *Project) ScenarioCount() int {
	return len(p.scenarios)
}

// Scenarios returns the ordered scenario list.
func (p *Project) Scenarios() []Scenario {
	return append([]Scenario(nil), p.scenarios...)
}

// ScenarioIndex resolves a scenario id to its index.
func (p *Project) ScenarioIndex(id string) (int, bool) {
	id = strings.TrimSpace(id)
	for idx, s := range p.scenarios {
		if s.ID == id {
			return idx, true
		}
	}
	return -1, false
}

// AlertLevels returns the project severity table.
func (p *Project) AlertLevels() AlertLevelTable {
	return p.alertLevels
}

// TrackingScenario returns the scenario index authoritative for responsibility checks.
func (p *Project) TrackingScenario() int {
	return p.trackingScenario
}

// AddResource constructs a resource with one view per project scenario and registers it.
func (p *Project) AddResource(in ResourceInput) (*Resource, error) {
	r, err := NewResource(p.ScenarioCount(), in)
	if err != nil {
		return nil, err
	}
	if _, ok := p.resourceByID[r.ID]; ok {
		return nil, fmt.Errorf("resource %q: %w", r.ID, ErrDuplicateID)
	}
	if r.ParentID != "" {
		if _, ok := p.resourceByID[r.ParentID]; !ok {
			return nil, fmt.Errorf("resource %q parent %q: %w", r.ID, r.ParentID, ErrInvalidID)
		}
	}
	p.resources = append(p.resources, r)
	p.resourceByID[r.ID] = r
	return r, nil
}

// AddTask constructs a task and registers it; parents must be added before children.
func (p *Project) AddTask(in TaskInput) (*Task, error) {
	fullID := strings.TrimSpace(in.ID)
	parentID := strings.TrimSpace(in.ParentID)
	if parentID != "" {
		parent, ok := p.taskByID[parentID]
		if !ok {
			return nil, fmt.Errorf("task %q parent %q: %w", in.ID, parentID, ErrInvalidID)
		}
		fullID = parent.FullID + "." + fullID
	}
	t, err := NewTask(p.ScenarioCount(), fullID, in)
	if err != nil {
		return nil, err
	}
	if _, ok := p.taskByID[t.ID]; ok {
		return nil, fmt.Errorf("task %q: %w", t.ID, ErrDuplicateID)
	}
	p.tasks = append(p.tasks, t)
	p.taskByID[t.ID] = t
	return t, nil
}

// Resource looks up one resource by id.
func (p *Project) Resource(id string) (*Resource, bool) {
	r, ok := p.resourceByID[strings.TrimSpace(id)]
	return r, ok
}

// Resources returns all resources in registration order.
func (p *Project) Resources() []*Resource {
	return append([]*Resource(nil), p.resources...)
}

// Task looks up one task by id.
func (p *Project) Task(id string) (*Task, bool) {
	t, ok := p.taskByID[strings.TrimSpace(id)]
	return t, ok
}

// Tasks returns all tasks in project order.
func (p *Project) Tasks() []*Task {
	return append([]*Task(nil), p.tasks...)
}

// TaskSubtree returns id followed by the ids of all its descendants, in project order.
func (p *Project) TaskSubtree(id string) []string {
	id = strings.TrimSpace(id)
	root, ok := p.taskByID[id]
	if !ok {
		return nil
	}
	out := []string{root.ID}
	prefix := root.FullID + "."
	for _, t := range p.tasks {
		if strings.HasPrefix(t.FullID, prefix) {
			out = append(out, t.ID)
		}
	}
	return out
}

// SetNavigator registers the ordered links of one navigator.
func (p *Project) SetNavigator(id string, links []Link) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrInvalidID
	}
	p.navigators[id] = append([]Link(nil), links...)
	return nil
}

// Navigator returns the links of one navigator.
func (p *Project) Navigator(id string) ([]Link, bool) {
	links, ok := p.navigators[strings.TrimSpace(id)]
	if !ok {
		return nil, false
	}
	return append([]Link(nil), links...), true
}

// NavigatorIDs returns the registered navigator ids in no particular order.
func (p *Project) NavigatorIDs() []string {
	out := make([]string, 0, len(p.navigators))
	for id := range p.navigators {
		out = append(out, id)
	}
	return out
}

// AddReport registers one embeddable report.
func (p *Project) AddReport(ref ReportRef) error {
	ref.ID = strings.TrimSpace(ref.ID)
	ref.Title = strings.TrimSpace(ref.Title)
	if ref.ID == "" {
		return ErrInvalidID
	}
	if ref.Title == "" {
		ref.Title = ref.ID
	}
	p.reports[ref.ID] = ref
	return nil
}

// Report looks up one embeddable report.
func (p *Project) Report(id string) (ReportRef, bool) {
	ref, ok := p.reports[strings.TrimSpace(id)]
	return ref, ok
}

// Reports returns all registered reports in no particular order.
func (p *Project) Reports() []ReportRef {
	out := make([]ReportRef, 0, len(p.reports))
	for _, ref := range p.reports {
		out = append(out, ref)
	}
	return out
}
