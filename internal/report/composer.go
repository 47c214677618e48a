package report

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/hylla/statusdesk/internal/domain"
	"github.com/hylla/statusdesk/internal/journal"
	"github.com/hylla/statusdesk/internal/markup"
)

var (
	ErrProjectRequired  = errors.New("project is required")
	ErrPipelineRequired = errors.New("markup pipeline is required")
	ErrQueryRequired    = errors.New("query is required")
	ErrEntityRequired   = errors.New("resource is required")
)

// Context is the read-only environment reports are composed against.
type Context struct {
	Project *domain.Project
	Journal journal.Store
}

// AlertMessenger renders the current alert message of one task as markup.
type AlertMessenger interface {
	AlertMessage(ctx context.Context, task *domain.Task, q *Query) (string, error)
}

// AlertMessengerFunc adapts a function into an AlertMessenger.
type AlertMessengerFunc func(ctx context.Context, task *domain.Task, q *Query) (string, error)

// AlertMessage calls f.
func (f AlertMessengerFunc) AlertMessage(ctx context.Context, task *domain.Task, q *Query) (string, error) {
	return f(ctx, task, q)
}

// Composer builds journal reports and dashboards for resources.
type Composer struct {
	project    *domain.Project
	store      journal.Store
	aggregator *journal.Aggregator
	pipeline   *markup.Pipeline
	messenger  AlertMessenger
}

// Option configures a Composer.
type Option func(*Composer)

// WithAlertMessenger replaces the default task alert message renderer.
func WithAlertMessenger(m AlertMessenger) Option {
	return func(c *Composer) {
		if m != nil {
			c.messenger = m
		}
	}
}

// NewComposer constructs a composer over env and pipeline.
func NewComposer(env Context, pipeline *markup.Pipeline, opts ...Option) (*Composer, error) {
	if env.Project == nil {
		return nil, ErrProjectRequired
	}
	if pipeline == nil {
		return nil, ErrPipelineRequired
	}
	aggregator, err := journal.NewAggregator(env.Journal, env.Project.AlertLevels())
	if err != nil {
		return nil, err
	}
	c := &Composer{
		project:    env.Project,
		store:      env.Journal,
		aggregator: aggregator,
		pipeline:   pipeline,
	}
	c.messenger = JournalAlertMessenger{Store: env.Journal, Levels: env.Project.AlertLevels()}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// JournalReport publishes the resource's journal for q's window into q's output slot.
// Markup failures are reported through diagnostics and leave the slot untouched.
func (c *Composer) JournalReport(ctx context.Context, res *domain.Resource, q *Query, longVersion bool) error {
	text, err := c.JournalMarkup(ctx, res, q, longVersion)
	if err != nil {
		return err
	}
	c.publish(text, res, q)
	return nil
}

// Dashboard publishes the resource's dashboard for q's window into q's output slot.
func (c *Composer) Dashboard(ctx context.Context, res *domain.Resource, q *Query) error {
	text, err := c.DashboardMarkup(ctx, res, q)
	if err != nil {
		return err
	}
	c.publish(text, res, q)
	return nil
}

// JournalMarkup composes the journal markup without publishing it.
func (c *Composer) JournalMarkup(ctx context.Context, res *domain.Resource, q *Query, longVersion bool) (string, error) {
	if err := checkArgs(res, q); err != nil {
		return "", err
	}
	buckets, err := c.aggregator.Collect(ctx, res.ID, q.Start, q.End, longVersion)
	if err != nil {
		return "", err
	}
	levels := c.project.AlertLevels()
	parts := make([]string, 0, buckets.Len())
	for level, entries := range buckets.Descending() {
		levelName := levels.Name(level)
		for _, entry := range entries {
			parts = append(parts, c.renderEntry(entry, levelName, q, longVersion))
		}
	}
	return join(parts), nil
}

// renderEntry renders one journal section.
func (c *Composer) renderEntry(entry domain.JournalEntry, levelName string, q *Query, longVersion bool) string {
	var b strings.Builder
	class, task := Classify(entry, c.project.Task)
	switch class {
	case ClassTask:
		b.WriteString(sectionHeader(levelName, task))
		if entry.TimeSheet != nil {
			b.WriteString(workFragment(entry.TimeSheet, q))
		}
	case ClassNewTask:
		b.WriteString(newTaskHeader(levelName, entry.TimeSheet))
		b.WriteString(newTaskWorkFragment(entry.TimeSheet, q))
	default:
		b.WriteString(personalNotesHeader(levelName))
	}
	b.WriteString(bodyFragment(entry, longVersion))
	return b.String()
}

// DashboardMarkup composes the dashboard markup without publishing it.
func (c *Composer) DashboardMarkup(ctx context.Context, res *domain.Resource, q *Query) (string, error) {
	if err := checkArgs(res, q); err != nil {
		return "", err
	}
	var parts []string
	for _, task := range c.project.Tasks() {
		responsible, err := task.Call("isResponsible", q.TrackingScenario, res.ID)
		if err != nil {
			return "", fmt.Errorf("task %q responsibility: %w", task.ID, err)
		}
		if responsible != true {
			continue
		}
		current, err := c.store.CurrentEntries(ctx, q.End, task.ID, 0, q.Start)
		if err != nil {
			return "", fmt.Errorf("current entries for task %q: %w", task.ID, err)
		}
		if len(current) == 0 {
			continue
		}
		message, err := c.messenger.AlertMessage(ctx, task, q)
		if err != nil {
			return "", fmt.Errorf("alert message for task %q: %w", task.ID, err)
		}
		parts = append(parts, dashboardHeader(task)+block(message))
	}
	return join(parts), nil
}

// publish runs text through the pipeline with extensions bound to this project and resource.
func (c *Composer) publish(text string, res *domain.Resource, q *Query) {
	c.pipeline.With(Extensions(c.project, res, q)...).Publish(text, q, q.Diagnostics)
}

func checkArgs(res *domain.Resource, q *Query) error {
	if res == nil {
		return ErrEntityRequired
	}
	if q == nil {
		return ErrQueryRequired
	}
	return nil
}

// JournalAlertMessenger renders a task's current entries, most severe first.
type JournalAlertMessenger struct {
	Store  journal.Store
	Levels domain.AlertLevelTable
}

// AlertMessage implements AlertMessenger.
func (m JournalAlertMessenger) AlertMessage(ctx context.Context, task *domain.Task, q *Query) (string, error) {
	current, err := m.Store.CurrentEntries(ctx, q.End, task.ID, 0, q.Start)
	if err != nil {
		return "", err
	}
	slices.SortStableFunc(current, func(a, b domain.JournalEntry) int {
		return cmp.Compare(b.AlertLevel, a.AlertLevel)
	})
	parts := make([]string, 0, len(current))
	for _, entry := range current {
		var b strings.Builder
		b.WriteString("**" + alertMarker(m.Levels.Name(entry.AlertLevel)) + " " + markup.Escape(entry.Headline) + "**\n\n")
		if entry.HasSummary() {
			b.WriteString(block(entry.Summary))
		}
		parts = append(parts, b.String())
	}
	return strings.Join(parts, ""), nil
}
