package domain

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Task is one work item of a project.
type Task struct {
	ID       string
	FullID   string
	Name     string
	ParentID string

	scenarios ScenarioDelegate[*TaskScenario]
}

// TaskInput holds write-time values for constructing a task.
type TaskInput struct {
	ID        string
	Name      string
	ParentID  string
	Scenarios []TaskScenarioInput
}

// TaskScenarioInput holds per-scenario task values.
type TaskScenarioInput struct {
	Responsible []string
	Start       time.Time
	End         time.Time
	Complete    float64
	Attributes  Attributes
}

// TaskScenario holds the scenario-specific data of one task.
type TaskScenario struct {
	idx         int
	taskID      string
	responsible []string
	start       time.Time
	end         time.Time
	complete    float64
	attrs       Attributes
	ops         Operations
}

// NewTask builds a task with exactly scenarioCount scenario views. fullID is the dotted path.
func NewTask(scenarioCount int, fullID string, in TaskInput) (*Task, error) {
	in.ID = strings.TrimSpace(in.ID)
	in.Name = strings.TrimSpace(in.Name)
	in.ParentID = strings.TrimSpace(in.ParentID)
	if in.ID == "" {
		return nil, ErrInvalidID
	}
	if in.Name == "" {
		return nil, ErrInvalidName
	}
	if len(in.Scenarios) > scenarioCount {
		return nil, fmt.Errorf("task %q has %d scenario rows for %d scenarios: %w", in.ID, len(in.Scenarios), scenarioCount, ErrInvalidScenario)
	}
	fullID = strings.TrimSpace(fullID)
	if fullID == "" {
		fullID = in.ID
	}

	t := &Task{ID: in.ID, FullID: fullID, Name: in.Name, ParentID: in.ParentID}
	delegate, err := NewScenarioDelegate(scenarioCount, t.ownOperations(), func(idx int) *TaskScenario {
		var row TaskScenarioInput
		if idx < len(in.Scenarios) {
			row = in.Scenarios[idx]
		}
		return newTaskScenario(t.ID, idx, row)
	})
	if err != nil {
		return nil, fmt.Errorf("task %q: %w", in.ID, err)
	}
	t.scenarios = delegate
	return t, nil
}

// ownOperations lists calls answered by the task itself.
func (t *Task) ownOperations() Operations {
	return Operations{
		"id":     constOp("id", func() string { return t.ID }),
		"fullId": constOp("fullId", func() string { return t.FullID }),
		"name":   constOp("name", func() string { return t.Name }),
		"parent": constOp("parent", func() string { return t.ParentID }),
	}
}

// Call dispatches one operation on the task or on the scenario view addressed by args[0].
func (t *Task) Call(name string, args ...any) (any, error) {
	return t.scenarios.Call(name, args...)
}

// Scenario returns the typed view for one scenario index.
func (t *Task) Scenario(idx int) (*TaskScenario, error) {
	return t.scenarios.View(idx)
}

// ScenarioCount returns the number of scenario views.
func (t *Task) ScenarioCount() int {
	return t.scenarios.Len()
}

// newTaskScenario constructs one task scenario view and its operation table.
func newTaskScenario(taskID string, idx int, in TaskScenarioInput) *TaskScenario {
	responsible := make([]string, 0, len(in.Responsible))
	for _, id := range in.Responsible {
		id = strings.TrimSpace(id)
		if id == "" || slices.Contains(responsible, id) {
			continue
		}
		responsible = append(responsible, id)
	}
	ts := &TaskScenario{
		idx:         idx,
		taskID:      taskID,
		responsible: responsible,
		start:       in.Start.UTC(),
		end:         in.End.UTC(),
		complete:    in.Complete,
		attrs:       in.Attributes.Clone(),
	}
	ts.ops = Operations{
		"attribute":   attributeOp(ts.attrs),
		"responsible": constOp("responsible", ts.Responsible),
		"isResponsible": func(args ...any) (any, error) {
			resourceID, err := stringArg("isResponsible", args, 0)
			if err != nil {
				return nil, err
			}
			return ts.IsResponsible(resourceID), nil
		},
		"start":    timeOp("start", &ts.start),
		"end":      timeOp("end", &ts.end),
		"complete": constOp("complete", ts.Complete),
		"scenario": constOp("scenario", ts.ScenarioIndex),
	}
	return ts
}

// ScenarioIndex returns the scenario this view belongs to.
func (ts *TaskScenario) ScenarioIndex() int {
	return ts.idx
}

// Operations returns the view's call table.
func (ts *TaskScenario) Operations() Operations {
	return ts.ops
}

// Responsible returns the ids of resources responsible for the task in this scenario.
func (ts *TaskScenario) Responsible() []string {
	return append([]string(nil), ts.responsible...)
}

// IsResponsible reports whether resourceID is in the responsible set.
func (ts *TaskScenario) IsResponsible(resourceID string) bool {
	return slices.Contains(ts.responsible, strings.TrimSpace(resourceID))
}

// Start returns the scenario start date.
func (ts *TaskScenario) Start() time.Time {
	return ts.start
}

// End returns the scenario end date.
func (ts *TaskScenario) End() time.Time {
	return ts.end
}

// Complete returns the completion percentage.
func (ts *TaskScenario) Complete() float64 {
	return ts.complete
}

// Attribute returns one scenario attribute value.
func (ts *TaskScenario) Attribute(name string) (any, bool) {
	v, ok := ts.attrs[name]
	return v, ok
}

// Attributes returns a copy of all scenario attribute values.
func (ts *TaskScenario) Attributes() Attributes {
	return ts.attrs.Clone()
}
