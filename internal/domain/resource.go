package domain

import (
	"fmt"
	"strings"
)

// Resource is one person or asset tracked by a project.
type Resource struct {
	ID       string
	Name     string
	ParentID string

	scenarios ScenarioDelegate[*ResourceScenario]
}

// ResourceInput holds write-time values for constructing a resource.
type ResourceInput struct {
	ID        string
	Name      string
	ParentID  string
	Scenarios []ResourceScenarioInput
}

// ResourceScenarioInput holds per-scenario values; missing entries fall back to defaults.
type ResourceScenarioInput struct {
	Efficiency *float64
	Rate       float64
	Attributes Attributes
}

// ResourceScenario holds the scenario-specific data of one resource.
type ResourceScenario struct {
	idx        int
	resourceID string
	efficiency float64
	rate       float64
	attrs      Attributes
	ops        Operations
}

// NewResource builds a resource with exactly scenarioCount scenario views.
func NewResource(scenarioCount int, in ResourceInput) (*Resource, error) {
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
		return nil, fmt.Errorf("resource %q has %d scenario rows for %d scenarios: %w", in.ID, len(in.Scenarios), scenarioCount, ErrInvalidScenario)
	}

	r := &Resource{ID: in.ID, Name: in.Name, ParentID: in.ParentID}
	delegate, err := NewScenarioDelegate(scenarioCount, r.ownOperations(), func(idx int) *ResourceScenario {
		var row ResourceScenarioInput
		if idx < len(in.Scenarios) {
			row = in.Scenarios[idx]
		}
		return newResourceScenario(r.ID, idx, row)
	})
	if err != nil {
		return nil, fmt.Errorf("resource %q: %w", in.ID, err)
	}
	r.scenarios = delegate
	return r, nil
}

// ownOperations lists calls answered by the resource itself.
func (r *Resource) ownOperations() Operations {
	return Operations{
		"id":     constOp("id", func() string { return r.ID }),
		"name":   constOp("name", func() string { return r.Name }),
		"parent": constOp("parent", func() string { return r.ParentID }),
	}
}

// Call dispatches one operation on the resource or on the scenario view addressed by args[0].
func (r *Resource) Call(name string, args ...any) (any, error) {
	return r.scenarios.Call(name, args...)
}

// Scenario returns the typed view for one scenario index.
func (r *Resource) Scenario(idx int) (*ResourceScenario, error) {
	return r.scenarios.View(idx)
}

// ScenarioCount returns the number of scenario views; it never changes after construction.
func (r *Resource) ScenarioCount() int {
	return r.scenarios.Len()
}

// newResourceScenario constructs one resource scenario view and its operation table.
func newResourceScenario(resourceID string, idx int, in ResourceScenarioInput) *ResourceScenario {
	efficiency := 1.0
	if in.Efficiency != nil {
		efficiency = *in.Efficiency
	}
	rs := &ResourceScenario{
		idx:        idx,
		resourceID: resourceID,
		efficiency: efficiency,
		rate:       in.Rate,
		attrs:      in.Attributes.Clone(),
	}
	rs.ops = Operations{
		"attribute":  attributeOp(rs.attrs),
		"efficiency": constOp("efficiency", rs.Efficiency),
		"rate":       constOp("rate", rs.Rate),
		"scenario":   constOp("scenario", rs.ScenarioIndex),
	}
	return rs
}

// ScenarioIndex returns the scenario this view belongs to.
func (rs *ResourceScenario) ScenarioIndex() int {
	return rs.idx
}

// Operations returns the view's call table.
func (rs *ResourceScenario) Operations() Operations {
	return rs.ops
}

// Efficiency returns the resource's efficiency factor in this scenario.
func (rs *ResourceScenario) Efficiency() float64 {
	return rs.efficiency
}

// Rate returns the resource's cost rate in this scenario.
func (rs *ResourceScenario) Rate() float64 {
	return rs.rate
}

// Attribute returns one scenario attribute value.
func (rs *ResourceScenario) Attribute(name string) (any, bool) {
	v, ok := rs.attrs[name]
	return v, ok
}

// Attributes returns a copy of all scenario attribute values.
func (rs *ResourceScenario) Attributes() Attributes {
	return rs.attrs.Clone()
}
