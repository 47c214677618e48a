package domain

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

// newTestProject builds a project with plan/actual scenarios and the default alert table.
func newTestProject(t *testing.T) *Project {
	t.Helper()
	now := time.Date(2026, 2, 21, 12, 0, 0, 0, time.UTC)
	p, err := NewProject(ProjectInput{
		ID:   "p1",
		Name: "Example",
		Scenarios: []Scenario{
			{ID: "plan", Name: "Plan"},
			{ID: "actual", Name: "Actual"},
		},
		TrackingScenario: 1,
	}, now)
	if err != nil {
		t.Fatalf("NewProject() error = %v", err)
	}
	return p
}

func TestNewProjectValidation(t *testing.T) {
	now := time.Now()
	if _, err := NewProject(ProjectInput{Name: "ok"}, now); err != ErrInvalidID {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}
	if _, err := NewProject(ProjectInput{ID: "p1", Name: "  "}, now); err != ErrInvalidName {
		t.Fatalf("expected ErrInvalidName, got %v", err)
	}
	_, err := NewProject(ProjectInput{ID: "p1", Name: "x", TrackingScenario: 3}, now)
	if !errors.Is(err, ErrInvalidScenario) {
		t.Fatalf("expected ErrInvalidScenario, got %v", err)
	}
	_, err = NewProject(ProjectInput{
		ID:        "p1",
		Name:      "x",
		Scenarios: []Scenario{{ID: "plan"}, {ID: "plan"}},
	}, now)
	if !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID, got %v", err)
	}
}

func TestNewProjectDefaults(t *testing.T) {
	p, err := NewProject(ProjectInput{ID: "p1", Name: "x"}, time.Now())
	if err != nil {
		t.Fatalf("NewProject() error = %v", err)
	}
	if p.ScenarioCount() != 1 {
		t.Fatalf("expected one default scenario, got %d", p.ScenarioCount())
	}
	if p.AlertLevels().Len() != 3 {
		t.Fatalf("expected default alert table, got %d levels", p.AlertLevels().Len())
	}
	if p.AlertLevels().Name(2) != "Red" {
		t.Fatalf("unexpected top level name %q", p.AlertLevels().Name(2))
	}
}

func TestResourceScenarioCountMatchesProject(t *testing.T) {
	p := newTestProject(t)
	eff := 0.5
	r, err := p.AddResource(ResourceInput{
		ID:   "dev1",
		Name: "Developer One",
		Scenarios: []ResourceScenarioInput{
			{Efficiency: &eff, Rate: 400},
		},
	})
	if err != nil {
		t.Fatalf("AddResource() error = %v", err)
	}
	if r.ScenarioCount() != p.ScenarioCount() {
		t.Fatalf("scenario views = %d, want %d", r.ScenarioCount(), p.ScenarioCount())
	}
	second, err := r.Scenario(1)
	if err != nil {
		t.Fatalf("Scenario(1) error = %v", err)
	}
	if second.Efficiency() != 1.0 {
		t.Fatalf("expected default efficiency on missing scenario row, got %v", second.Efficiency())
	}
	if _, err := r.Scenario(2); !errors.Is(err, ErrInvalidScenario) {
		t.Fatalf("expected ErrInvalidScenario, got %v", err)
	}
}

func TestResourceRejectsExtraScenarioRows(t *testing.T) {
	p := newTestProject(t)
	_, err := p.AddResource(ResourceInput{
		ID:        "r1",
		Name:      "R",
		Scenarios: make([]ResourceScenarioInput, 3),
	})
	if !errors.Is(err, ErrInvalidScenario) {
		t.Fatalf("expected ErrInvalidScenario, got %v", err)
	}
}

func TestDelegatedCallsMatchDirectCalls(t *testing.T) {
	p := newTestProject(t)
	effPlan, effActual := 0.8, 1.2
	r, err := p.AddResource(ResourceInput{
		ID:   "dev1",
		Name: "Developer One",
		Scenarios: []ResourceScenarioInput{
			{Efficiency: &effPlan, Rate: 300, Attributes: Attributes{"email": "plan@example.com"}},
			{Efficiency: &effActual, Rate: 350, Attributes: Attributes{"email": "actual@example.com"}},
		},
	})
	if err != nil {
		t.Fatalf("AddResource() error = %v", err)
	}

	for idx := 0; idx < r.ScenarioCount(); idx++ {
		view, err := r.Scenario(idx)
		if err != nil {
			t.Fatalf("Scenario(%d) error = %v", idx, err)
		}
		for name, op := range view.Operations() {
			var args []any
			if name == "attribute" {
				args = []any{"email"}
			}
			direct, directErr := op(args...)
			delegated, delegatedErr := r.Call(name, append([]any{idx}, args...)...)
			if directErr != nil || delegatedErr != nil {
				t.Fatalf("%s(%d) errors direct=%v delegated=%v", name, idx, directErr, delegatedErr)
			}
			if !reflect.DeepEqual(direct, delegated) {
				t.Fatalf("%s(%d) delegated = %#v, direct = %#v", name, idx, delegated, direct)
			}
		}
	}
}

func TestTaskDelegatedCallsMatchDirectCalls(t *testing.T) {
	p := newTestProject(t)
	task, err := p.AddTask(TaskInput{
		ID:   "build",
		Name: "Build",
		Scenarios: []TaskScenarioInput{
			{Responsible: []string{"dev1"}, Complete: 40, Attributes: Attributes{"note": "plan"}},
			{Responsible: []string{"dev2"}, Complete: 55},
		},
	})
	if err != nil {
		t.Fatalf("AddTask() error = %v", err)
	}
	for idx := 0; idx < task.ScenarioCount(); idx++ {
		view, err := task.Scenario(idx)
		if err != nil {
			t.Fatalf("Scenario(%d) error = %v", idx, err)
		}
		for name, op := range view.Operations() {
			var args []any
			switch name {
			case "attribute":
				args = []any{"note"}
			case "isResponsible":
				args = []any{"dev2"}
			}
			direct, directErr := op(args...)
			delegated, delegatedErr := task.Call(name, append([]any{idx}, args...)...)
			if directErr != nil || delegatedErr != nil {
				t.Fatalf("%s(%d) errors direct=%v delegated=%v", name, idx, directErr, delegatedErr)
			}
			if !reflect.DeepEqual(direct, delegated) {
				t.Fatalf("%s(%d) delegated = %#v, direct = %#v", name, idx, delegated, direct)
			}
		}
	}
}

func TestDelegateOwnOperationsWin(t *testing.T) {
	p := newTestProject(t)
	r, err := p.AddResource(ResourceInput{ID: "dev1", Name: "Developer One"})
	if err != nil {
		t.Fatalf("AddResource() error = %v", err)
	}
	got, err := r.Call("name")
	if err != nil {
		t.Fatalf("Call(name) error = %v", err)
	}
	if got != "Developer One" {
		t.Fatalf("Call(name) = %#v", got)
	}
}

func TestDelegateErrors(t *testing.T) {
	p := newTestProject(t)
	r, err := p.AddResource(ResourceInput{ID: "dev1", Name: "Developer One"})
	if err != nil {
		t.Fatalf("AddResource() error = %v", err)
	}

	cases := []struct {
		name string
		op   string
		args []any
		want error
	}{
		{name: "unknown with index", op: "velocity", args: []any{0}, want: ErrUnknownOperation},
		{name: "unknown without index", op: "velocity", want: ErrUnknownOperation},
		{name: "missing index", op: "efficiency", want: ErrInvalidScenario},
		{name: "index out of range", op: "efficiency", args: []any{5}, want: ErrInvalidScenario},
		{name: "non-int index", op: "efficiency", args: []any{"plan"}, want: ErrInvalidScenario},
		{name: "bad argument", op: "attribute", args: []any{0, 12}, want: ErrInvalidOperationArgs},
		{name: "extra argument", op: "rate", args: []any{0, "x"}, want: ErrInvalidOperationArgs},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Call(tt.op, tt.args...)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Call(%s) error = %v, want %v", tt.op, err, tt.want)
			}
		})
	}
}

func TestTaskHierarchyAndResponsibility(t *testing.T) {
	p := newTestProject(t)
	if _, err := p.AddTask(TaskInput{ID: "build", Name: "Build"}); err != nil {
		t.Fatalf("AddTask(build) error = %v", err)
	}
	child, err := p.AddTask(TaskInput{
		ID:       "compile",
		Name:     "Compile",
		ParentID: "build",
		Scenarios: []TaskScenarioInput{
			{Responsible: []string{"dev1"}},
			{Responsible: []string{"dev2", "dev2", " "}},
		},
	})
	if err != nil {
		t.Fatalf("AddTask(compile) error = %v", err)
	}
	if child.FullID != "build.compile" {
		t.Fatalf("unexpected full id %q", child.FullID)
	}
	if _, err := p.AddTask(TaskInput{ID: "orphan", Name: "Orphan", ParentID: "missing"}); !errors.Is(err, ErrInvalidID) {
		t.Fatalf("expected ErrInvalidID for missing parent, got %v", err)
	}

	got, err := child.Call("isResponsible", 1, "dev2")
	if err != nil {
		t.Fatalf("Call(isResponsible) error = %v", err)
	}
	if got != true {
		t.Fatalf("expected dev2 responsible in scenario 1")
	}
	got, err = child.Call("isResponsible", 0, "dev2")
	if err != nil {
		t.Fatalf("Call(isResponsible) error = %v", err)
	}
	if got != false {
		t.Fatalf("expected dev2 not responsible in scenario 0")
	}
	actual, _ := child.Scenario(1)
	if len(actual.Responsible()) != 1 {
		t.Fatalf("expected deduplicated responsible set, got %#v", actual.Responsible())
	}

	subtree := p.TaskSubtree("build")
	if len(subtree) != 2 || subtree[0] != "build" || subtree[1] != "compile" {
		t.Fatalf("unexpected subtree %#v", subtree)
	}
}

func TestNewJournalEntryValidation(t *testing.T) {
	levels := DefaultAlertLevels()
	if _, err := NewJournalEntry(JournalEntryInput{Headline: "x"}, levels); err != ErrInvalidID {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}
	if _, err := NewJournalEntry(JournalEntryInput{ID: "e1"}, levels); err != ErrInvalidHeadline {
		t.Fatalf("expected ErrInvalidHeadline, got %v", err)
	}
	if _, err := NewJournalEntry(JournalEntryInput{ID: "e1", Headline: "x", AlertLevel: 3}, levels); err != ErrInvalidAlertLevel {
		t.Fatalf("expected ErrInvalidAlertLevel, got %v", err)
	}
	entry, err := NewJournalEntry(JournalEntryInput{
		ID:       "e1",
		Headline: "  Status  ",
		Summary:  "  keep *as is*\n",
	}, levels)
	if err != nil {
		t.Fatalf("NewJournalEntry() error = %v", err)
	}
	if entry.Headline != "Status" {
		t.Fatalf("unexpected headline %q", entry.Headline)
	}
	if entry.Summary != "  keep *as is*\n" {
		t.Fatalf("expected summary carried verbatim, got %q", entry.Summary)
	}
	if !entry.IsPersonalNote() {
		t.Fatal("expected entry without subject to be a personal note")
	}
}

func TestJournalEntryWindowIsHalfOpen(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)
	entry := JournalEntry{Date: start}
	if !entry.InWindow(start, end) {
		t.Fatal("expected start boundary to be inside the window")
	}
	entry.Date = end
	if entry.InWindow(start, end) {
		t.Fatal("expected end boundary to be outside the window")
	}
}

func TestAlertLevelTable(t *testing.T) {
	table, err := NewAlertLevelTable([]AlertLevel{{ID: "Low"}, {ID: "high", Name: "High"}})
	if err != nil {
		t.Fatalf("NewAlertLevelTable() error = %v", err)
	}
	if idx, ok := table.IndexOf("HIGH"); !ok || idx != 1 {
		t.Fatalf("IndexOf(HIGH) = %d, %t", idx, ok)
	}
	if table.Name(0) != "low" {
		t.Fatalf("expected name to default to id, got %q", table.Name(0))
	}
	if _, err := table.Level(2); !errors.Is(err, ErrInvalidAlertLevel) {
		t.Fatalf("expected ErrInvalidAlertLevel, got %v", err)
	}
	if _, err := NewAlertLevelTable([]AlertLevel{{ID: "a"}, {ID: "A"}}); !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID, got %v", err)
	}
}
