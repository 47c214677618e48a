package report

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hylla/statusdesk/internal/domain"
	"github.com/hylla/statusdesk/internal/journal"
	"github.com/hylla/statusdesk/internal/markup"
)

var (
	windowStart = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	windowEnd   = windowStart.Add(7 * 24 * time.Hour)
)

type fixture struct {
	project   *domain.Project
	dev       *domain.Resource
	store     *journal.MemoryStore
	composer  *Composer
	collector *markup.Collector
}

func newFixture(t *testing.T, entries ...domain.JournalEntry) fixture {
	t.Helper()
	project, err := domain.NewProject(domain.ProjectInput{
		ID:               "p1",
		Name:             "Example",
		Scenarios:        []domain.Scenario{{ID: "plan"}, {ID: "actual"}},
		TrackingScenario: 1,
	}, windowStart)
	require.NoError(t, err)

	eff := 0.75
	dev, err := project.AddResource(domain.ResourceInput{
		ID:   "dev1",
		Name: "Dana Dev",
		Scenarios: []domain.ResourceScenarioInput{
			{Efficiency: &eff, Attributes: domain.Attributes{"team": "core"}},
			{Attributes: domain.Attributes{"team": "platform"}},
		},
	})
	require.NoError(t, err)

	tasks := []domain.TaskInput{
		{ID: "build", Name: "Build", Scenarios: []domain.TaskScenarioInput{{}, {Responsible: []string{"dev1"}}}},
		{ID: "compile", Name: "Compile", ParentID: "build"},
		{ID: "deploy", Name: "Deploy", Scenarios: []domain.TaskScenarioInput{{Responsible: []string{"dev1"}}, {}}},
		{ID: "lint", Name: "Lint", Scenarios: []domain.TaskScenarioInput{{}, {Responsible: []string{"dev1"}}}},
		{ID: "docs", Name: "Docs", Scenarios: []domain.TaskScenarioInput{{}, {Responsible: []string{"dev1"}}}},
	}
	for _, in := range tasks {
		_, err := project.AddTask(in)
		require.NoError(t, err)
	}
	require.NoError(t, project.SetNavigator("main", []domain.Link{{Label: "Home", URL: "/"}, {Label: "Tasks", URL: "/tasks"}}))
	require.NoError(t, project.AddReport(domain.ReportRef{ID: "gantt", Title: "Gantt Chart", URL: "/gantt.html"}))

	store := journal.NewMemoryStore(project.TaskSubtree, entries...)
	collector := &markup.Collector{}
	composer, err := NewComposer(Context{Project: project, Journal: store}, markup.NewPipeline(markup.WithSink(collector)))
	require.NoError(t, err)
	return fixture{project: project, dev: dev, store: store, composer: composer, collector: collector}
}

func newQuery() *Query {
	return &Query{Start: windowStart, End: windowEnd, TrackingScenario: 1}
}

func at(day int) time.Time {
	return windowStart.Add(time.Duration(day)*24*time.Hour + 9*time.Hour)
}

func personal(id string, level, day int) domain.JournalEntry {
	return domain.JournalEntry{ID: id, Date: at(day), Headline: "Note " + id, AlertLevel: level, AuthorID: "dev1"}
}

func TestJournalReportOrderAndSeparators(t *testing.T) {
	f := newFixture(t,
		personal("a", 2, 0),
		personal("b", 0, 1),
		personal("c", 2, 2),
		personal("d", 1, 3),
	)
	q := newQuery()
	require.NoError(t, f.composer.JournalReport(context.Background(), f.dev, q, false))
	require.True(t, q.Published())

	md := q.Document().Markdown()
	assert.Equal(t, 3, strings.Count(md, separator))
	order := []string{"Note a", "Note c", "Note d", "Note b"}
	last := -1
	for _, headline := range order {
		idx := strings.Index(md, headline)
		require.GreaterOrEqual(t, idx, 0, headline)
		assert.Greater(t, idx, last, "expected %s after previous entry", headline)
		last = idx
	}
	assert.False(t, strings.HasPrefix(md, separator))
	assert.True(t, strings.HasPrefix(md, `## \[Red\] Personal Notes`))
	assert.Empty(t, f.collector.Diagnostics())
	assert.False(t, q.Document().SectionNumbers())
	assert.Equal(t, markup.DefaultCSSClass, q.Document().CSSClass())
}

func TestJournalReportSeverityDescending(t *testing.T) {
	f := newFixture(t,
		personal("a", 0, 0),
		personal("b", 1, 1),
		personal("c", 0, 2),
		personal("d", 2, 3),
		personal("e", 1, 4),
	)
	md, err := f.composer.JournalMarkup(context.Background(), f.dev, newQuery(), false)
	require.NoError(t, err)

	sections := strings.Split(md, separator)
	require.Len(t, sections, 5)
	prev := 3
	for _, section := range sections {
		level := -1
		for idx, name := range []string{"Green", "Yellow", "Red"} {
			if strings.HasPrefix(section, `## \[`+name+`\]`) {
				level = idx
			}
		}
		require.GreaterOrEqual(t, level, 0, section)
		assert.LessOrEqual(t, level, prev)
		prev = level
	}
}

func TestJournalReportEmptyHasNoSeparators(t *testing.T) {
	f := newFixture(t)
	q := newQuery()
	require.NoError(t, f.composer.JournalReport(context.Background(), f.dev, q, true))
	require.True(t, q.Published())
	assert.Empty(t, q.Document().Markdown())
}

func TestJournalReportLongVersionDetails(t *testing.T) {
	e := personal("a", 1, 0)
	e.Summary = "Short summary."
	e.Details = "Deep *details*."
	f := newFixture(t, e)

	short, err := f.composer.JournalMarkup(context.Background(), f.dev, newQuery(), false)
	require.NoError(t, err)
	assert.Contains(t, short, "Short summary.")
	assert.NotContains(t, short, "Deep *details*.")

	long, err := f.composer.JournalMarkup(context.Background(), f.dev, newQuery(), true)
	require.NoError(t, err)
	assert.Contains(t, long, "Short summary.\n\nDeep *details*.\n\n")
}

func TestJournalReportClassification(t *testing.T) {
	task := personal("t", 2, 0)
	task.SubjectID = "compile"
	newTask := personal("n", 1, 1)
	newTask.TimeSheet = &domain.TimeSheetRecord{
		ResourceID:        "dev1",
		Name:              "Write docs",
		Task:              domain.UnresolvedTask("docs.new"),
		ActualWorkPercent: 30,
		PlanWorkPercent:   10,
		Remaining:         true,
		ActualRemaining:   2,
		PlanRemaining:     5,
	}
	f := newFixture(t, task, newTask, personal("p", 0, 2))

	md, err := f.composer.JournalMarkup(context.Background(), f.dev, newQuery(), false)
	require.NoError(t, err)
	assert.Contains(t, md, `## \[Red\] Compile (ID: build.compile)`)
	assert.Contains(t, md, `## \[Yellow\] \[New Task\] Write docs (ID: docs.new)`)
	assert.Contains(t, md, "**Work:** 30% **Remaining:** 2d\n\n")
	assert.NotContains(t, md, "(10%)")
	assert.Contains(t, md, `## \[Green\] Personal Notes`)
}

func TestWorkFragmentParentheticals(t *testing.T) {
	q := &Query{TimeFormat: "%d.%m.%Y"}
	end := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		name   string
		record domain.TimeSheetRecord
		want   string
	}{
		{
			name:   "equal work and remaining",
			record: domain.TimeSheetRecord{ActualWorkPercent: 80, PlanWorkPercent: 80, Remaining: true, ActualRemaining: 3, PlanRemaining: 3},
			want:   "**Work:** 80% **Remaining:** 3d\n\n",
		},
		{
			name:   "differing work and remaining",
			record: domain.TimeSheetRecord{ActualWorkPercent: 80, PlanWorkPercent: 60, Remaining: true, ActualRemaining: 2.5, PlanRemaining: 4},
			want:   "**Work:** 80% (60%) **Remaining:** 2.5d (4d)\n\n",
		},
		{
			name:   "equal end",
			record: domain.TimeSheetRecord{ActualWorkPercent: 50, PlanWorkPercent: 50, ActualEnd: end, PlanEnd: end},
			want:   "**Work:** 50% **End:** 01.04.2026\n\n",
		},
		{
			name:   "differing end",
			record: domain.TimeSheetRecord{ActualWorkPercent: 50, PlanWorkPercent: 40, ActualEnd: end, PlanEnd: end.AddDate(0, 0, 3)},
			want:   "**Work:** 50% (40%) **End:** 01.04.2026 (04.04.2026)\n\n",
		},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			got := workFragment(&tt.record, q)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestQueryDefaultTimeFormat(t *testing.T) {
	q := &Query{}
	assert.Equal(t, "2026-04-01", q.FormatTime(time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)))
}

func TestBodyFragmentEscapesHeadline(t *testing.T) {
	got := bodyFragment(domain.JournalEntry{Headline: "Use <-query-> *now*"}, false)
	assert.Equal(t, "**Use \\<-query-\\> \\*now\\***\n\n", got)
}

func TestDashboardInclusion(t *testing.T) {
	onBuild := personal("b1", 1, 0)
	onBuild.SubjectID = "build"
	onBuild.Summary = "Build is flaky."
	onCompile := personal("c1", 2, 1)
	onCompile.SubjectID = "compile"
	onDeploy := personal("d1", 2, 0)
	onDeploy.SubjectID = "deploy"
	stale := personal("s1", 2, -10)
	stale.SubjectID = "docs"
	f := newFixture(t, onBuild, onCompile, onDeploy, stale)

	q := newQuery()
	require.NoError(t, f.composer.Dashboard(context.Background(), f.dev, q))
	require.True(t, q.Published())
	md := q.Document().Markdown()

	// build: responsible in the tracking scenario with current entries on itself and its child.
	assert.Contains(t, md, "Task: Build (build)")
	assert.Contains(t, md, `**\[Red\] Note c1**`)
	assert.Contains(t, md, "Build is flaky.")
	assert.Less(t, strings.Index(md, "Note c1"), strings.Index(md, "Note b1"))
	// deploy: responsible only in the plan scenario.
	assert.NotContains(t, md, "Deploy")
	// lint: responsible but nothing current.
	assert.NotContains(t, md, "Lint")
	// docs: entry outside the window.
	assert.NotContains(t, md, "Docs")
	assert.Zero(t, strings.Count(md, separator))
}

func TestDashboardSeparatorsBetweenTasks(t *testing.T) {
	onBuild := personal("b1", 1, 0)
	onBuild.SubjectID = "build"
	onLint := personal("l1", 0, 1)
	onLint.SubjectID = "lint"
	f := newFixture(t, onBuild, onLint)

	md, err := f.composer.DashboardMarkup(context.Background(), f.dev, newQuery())
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(md, separator))
	assert.Less(t, strings.Index(md, "Task: Build"), strings.Index(md, "Task: Lint"))
	assert.False(t, strings.HasPrefix(md, separator))
}

func TestDashboardInvalidTrackingScenario(t *testing.T) {
	f := newFixture(t)
	q := newQuery()
	q.TrackingScenario = 4
	err := f.composer.Dashboard(context.Background(), f.dev, q)
	assert.ErrorIs(t, err, domain.ErrInvalidScenario)
	assert.False(t, q.Published())
}

func TestMarkupFailureLeavesSlotUntouched(t *testing.T) {
	broken := personal("x", 1, 0)
	broken.Summary = "first line\nsee <-navigator id=\"main\"-> here"
	f := newFixture(t, broken)

	q := newQuery()
	previous, err := markup.Parse("previous")
	require.NoError(t, err)
	q.SetDocument(previous)
	callSink := &markup.Collector{}
	q.Diagnostics = callSink

	require.NoError(t, f.composer.JournalReport(context.Background(), f.dev, q, false))
	assert.Same(t, previous, q.Document())

	for _, c := range []*markup.Collector{f.collector, callSink} {
		d, ok := c.Last()
		require.True(t, ok)
		// header, blank, headline, blank, summary line one, summary line two.
		assert.Equal(t, 6, d.Line)
		assert.Equal(t, `see <-navigator id="main"-> here`, d.LineText)
	}
}

func TestExtensionsResolveAgainstProject(t *testing.T) {
	e := personal("a", 0, 0)
	e.Summary = strings.Join([]string{
		"<[navigator id=\"main\"]>",
		"",
		"Team <-query attribute=\"team\"->, plan team <-query attribute=\"team\" scenario=\"plan\"->.",
		"Name <-query attribute=\"name\"->, efficiency <-query attribute=\"efficiency\" scenario=\"plan\"->.",
		"Task <-query property=\"compile\" attribute=\"fullId\"->.",
		"",
		"<[report id=\"gantt\"]>",
	}, "\n")
	f := newFixture(t, e)
	q := newQuery()
	require.NoError(t, f.composer.JournalReport(context.Background(), f.dev, q, false))
	require.True(t, q.Published(), "diagnostics: %v", f.collector.Diagnostics())

	md := q.Document().Markdown()
	assert.Contains(t, md, "- [Home](/)\n- [Tasks](/tasks)")
	assert.Contains(t, md, "Team platform, plan team core.")
	assert.Contains(t, md, "Name Dana Dev, efficiency 0.75.")
	assert.Contains(t, md, "Task build.compile.")
	assert.Contains(t, md, "[Gantt Chart](/gantt.html)")

	html, err := q.Document().HTML()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(html, `<div class="alertmessage">`))
	assert.Contains(t, html, `<a href="/gantt.html">Gantt Chart</a>`)
}

func TestExtensionResolutionErrors(t *testing.T) {
	cases := []struct {
		name    string
		summary string
		message string
	}{
		{name: "unknown navigator", summary: `<[navigator id="nope"]>`, message: `navigator: unknown navigator "nope"`},
		{name: "unknown report", summary: `<[report id="nope"]>`, message: `report: unknown report "nope"`},
		{name: "unknown attribute", summary: `<-query attribute="shoe_size"->`, message: `query: unknown attribute "shoe_size"`},
		{name: "unknown property", summary: `<-query property="ghost" attribute="name"->`, message: `query: unknown property "ghost"`},
		{name: "unknown scenario", summary: `<-query attribute="rate" scenario="dream"->`, message: `query: unknown scenario "dream"`},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			e := personal("a", 0, 0)
			e.Summary = tt.summary
			f := newFixture(t, e)
			q := newQuery()
			require.NoError(t, f.composer.JournalReport(context.Background(), f.dev, q, false))
			assert.False(t, q.Published())
			d, ok := f.collector.Last()
			require.True(t, ok)
			assert.Equal(t, tt.message, d.Message)
		})
	}
}

type failingStore struct{}

func (failingStore) EntriesByResource(context.Context, string, time.Time, time.Time) ([]domain.JournalEntry, error) {
	return nil, errors.New("store down")
}

func (failingStore) CurrentEntries(context.Context, time.Time, string, int, time.Time) ([]domain.JournalEntry, error) {
	return nil, errors.New("store down")
}

func TestComposerPropagatesStoreErrors(t *testing.T) {
	f := newFixture(t)
	composer, err := NewComposer(Context{Project: f.project, Journal: failingStore{}}, markup.NewPipeline(markup.WithSink(markup.Discard)))
	require.NoError(t, err)

	q := newQuery()
	assert.Error(t, composer.JournalReport(context.Background(), f.dev, q, false))
	assert.Error(t, composer.Dashboard(context.Background(), f.dev, q))
	assert.False(t, q.Published())
}

func TestNewComposerValidation(t *testing.T) {
	f := newFixture(t)
	_, err := NewComposer(Context{Journal: f.store}, markup.NewPipeline())
	assert.ErrorIs(t, err, ErrProjectRequired)
	_, err = NewComposer(Context{Project: f.project, Journal: f.store}, nil)
	assert.ErrorIs(t, err, ErrPipelineRequired)
	_, err = NewComposer(Context{Project: f.project}, markup.NewPipeline())
	assert.ErrorIs(t, err, journal.ErrStoreRequired)
	assert.ErrorIs(t, f.composer.JournalReport(context.Background(), nil, newQuery(), false), ErrEntityRequired)
	assert.ErrorIs(t, f.composer.Dashboard(context.Background(), f.dev, nil), ErrQueryRequired)
}

func TestCustomAlertMessenger(t *testing.T) {
	onBuild := personal("b1", 1, 0)
	onBuild.SubjectID = "build"
	f := newFixture(t, onBuild)
	composer, err := NewComposer(
		Context{Project: f.project, Journal: f.store},
		markup.NewPipeline(markup.WithSink(markup.Discard)),
		WithAlertMessenger(AlertMessengerFunc(func(_ context.Context, task *domain.Task, _ *Query) (string, error) {
			return "custom for " + task.ID, nil
		})),
	)
	require.NoError(t, err)
	md, err := composer.DashboardMarkup(context.Background(), f.dev, newQuery())
	require.NoError(t, err)
	assert.Equal(t, "Task: Build (build)\n\ncustom for build\n\n", md)
}

func TestClassify(t *testing.T) {
	f := newFixture(t)
	e := domain.JournalEntry{SubjectID: "build"}
	class, task := Classify(e, f.project.Task)
	assert.Equal(t, ClassTask, class)
	require.NotNil(t, task)
	assert.Equal(t, "build", task.ID)

	build, _ := f.project.Task("build")
	e = domain.JournalEntry{TimeSheet: &domain.TimeSheetRecord{Task: domain.ResolvedTask(build)}}
	class, _ = Classify(e, f.project.Task)
	assert.Equal(t, ClassPersonal, class)

	e = domain.JournalEntry{TimeSheet: &domain.TimeSheetRecord{Task: domain.UnresolvedTask("new")}}
	class, _ = Classify(e, f.project.Task)
	assert.Equal(t, ClassNewTask, class)
	assert.Equal(t, "new_task", class.String())
}
