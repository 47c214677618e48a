package domain

import (
	"fmt"
	"strings"
	"time"
)

// Operation is one named call exposed by an entity or one of its scenario views.
type Operation func(args ...any) (any, error)

// Operations maps operation names to their implementation.
type Operations map[string]Operation

// ScenarioView is the capability every per-scenario data view provides to its owning entity.
type ScenarioView interface {
	ScenarioIndex() int
	Operations() Operations
}

// ScenarioDelegate forwards scenario-addressed calls from an entity to its fixed set of views.
type ScenarioDelegate[V ScenarioView] struct {
	own   Operations
	views []V
}

// NewScenarioDelegate builds exactly count views, one per scenario index.
func NewScenarioDelegate[V ScenarioView](count int, own Operations, build func(idx int) V) (ScenarioDelegate[V], error) {
	if count <= 0 {
		return ScenarioDelegate[V]{}, fmt.Errorf("scenario count %d: %w", count, ErrInvalidScenario)
	}
	if build == nil {
		return ScenarioDelegate[V]{}, fmt.Errorf("scenario view builder is required: %w", ErrInvalidScenario)
	}
	views := make([]V, count)
	for idx := range views {
		views[idx] = build(idx)
	}
	if own == nil {
		own = Operations{}
	}
	return ScenarioDelegate[V]{own: own, views: views}, nil
}

// Len returns the number of scenario views.
func (d ScenarioDelegate[V]) Len() int {
	return len(d.views)
}

// View returns the view for one scenario index.
func (d ScenarioDelegate[V]) View(idx int) (V, error) {
	var zero V
	if idx < 0 || idx >= len(d.views) {
		return zero, fmt.Errorf("scenario index %d of %d: %w", idx, len(d.views), ErrInvalidScenario)
	}
	return d.views[idx], nil
}

// Views returns a copy of the view slice in scenario order.
func (d ScenarioDelegate[V]) Views() []V {
	return append([]V(nil), d.views...)
}

// Call runs name from the entity's own table, or forwards it to the view addressed by args[0].
func (d ScenarioDelegate[V]) Call(name string, args ...any) (any, error) {
	name = strings.TrimSpace(name)
	if op, ok := d.own[name]; ok {
		return op(args...)
	}
	if len(args) == 0 {
		if !d.viewsDefine(name) {
			return nil, fmt.Errorf("%q: %w", name, ErrUnknownOperation)
		}
		return nil, fmt.Errorf("%q requires a scenario index: %w", name, ErrInvalidScenario)
	}
	idx, ok := args[0].(int)
	if !ok {
		if !d.viewsDefine(name) {
			return nil, fmt.Errorf("%q: %w", name, ErrUnknownOperation)
		}
		return nil, fmt.Errorf("%q scenario index %T: %w", name, args[0], ErrInvalidScenario)
	}
	view, err := d.View(idx)
	if err != nil {
		return nil, fmt.Errorf("%q: %w", name, err)
	}
	op, ok := view.Operations()[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrUnknownOperation)
	}
	return op(args[1:]...)
}

// Defines reports whether name resolves on the entity or on its views.
func (d ScenarioDelegate[V]) Defines(name string) bool {
	if _, ok := d.own[name]; ok {
		return true
	}
	return d.viewsDefine(name)
}

// viewsDefine reports whether the first view knows name; all views share one operation set.
func (d ScenarioDelegate[V]) viewsDefine(name string) bool {
	if len(d.views) == 0 {
		return false
	}
	_, ok := d.views[0].Operations()[name]
	return ok
}

// stringArg returns args[idx] as a string.
func stringArg(op string, args []any, idx int) (string, error) {
	if idx >= len(args) {
		return "", fmt.Errorf("%s: missing argument %d: %w", op, idx, ErrInvalidOperationArgs)
	}
	v, ok := args[idx].(string)
	if !ok {
		return "", fmt.Errorf("%s: argument %d is %T, want string: %w", op, idx, args[idx], ErrInvalidOperationArgs)
	}
	return v, nil
}

// noArgs rejects calls that pass unexpected arguments.
func noArgs(op string, args []any) error {
	if len(args) != 0 {
		return fmt.Errorf("%s: takes no arguments, got %d: %w", op, len(args), ErrInvalidOperationArgs)
	}
	return nil
}

// Attributes stores scenario-specific attribute values keyed by attribute id.
type Attributes map[string]any

// Clone returns a shallow copy of the attribute map.
func (a Attributes) Clone() Attributes {
	out := make(Attributes, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// attributeOp builds the shared "attribute" operation over one attribute map.
func attributeOp(attrs Attributes) Operation {
	return func(args ...any) (any, error) {
		name, err := stringArg("attribute", args, 0)
		if err != nil {
			return nil, err
		}
		return attrs[strings.TrimSpace(name)], nil
	}
}

// constOp builds an argument-free operation returning one value.
func constOp[T any](name string, value func() T) Operation {
	return func(args ...any) (any, error) {
		if err := noArgs(name, args); err != nil {
			return nil, err
		}
		return value(), nil
	}
}

// Scenario describes one planning variant tracked by a project.
type Scenario struct {
	ID   string
	Name string
}

// normalizeScenarios trims and validates the scenario list.
func normalizeScenarios(in []Scenario) ([]Scenario, error) {
	if len(in) == 0 {
		return []Scenario{{ID: "plan", Name: "Plan"}}, nil
	}
	out := make([]Scenario, 0, len(in))
	seen := map[string]struct{}{}
	for _, s := range in {
		s.ID = strings.TrimSpace(s.ID)
		s.Name = strings.TrimSpace(s.Name)
		if s.ID == "" {
			return nil, ErrInvalidScenario
		}
		if s.Name == "" {
			s.Name = s.ID
		}
		if _, ok := seen[s.ID]; ok {
			return nil, fmt.Errorf("scenario %q: %w", s.ID, ErrDuplicateID)
		}
		seen[s.ID] = struct{}{}
		out = append(out, s)
	}
	return out, nil
}

// timeOp builds an argument-free operation returning a time value.
func timeOp(name string, t *time.Time) Operation {
	return constOp(name, func() time.Time { return *t })
}
