package report

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hylla/statusdesk/internal/domain"
	"github.com/hylla/statusdesk/internal/markup"
)

// separator is placed between rendered entries, never before the first.
const separator = "---\n\n"

// Class is the rendering shape chosen for one journal entry.
type Class int

const (
	// ClassTask entries have a subject that resolves to a project task.
	ClassTask Class = iota
	// ClassNewTask entries report progress on a task that does not exist yet.
	ClassNewTask
	// ClassPersonal entries have neither.
	ClassPersonal
)

// String returns the class label.
func (c Class) String() string {
	switch c {
	case ClassTask:
		return "task"
	case ClassNewTask:
		return "new_task"
	default:
		return "personal"
	}
}

// Classify returns the entry's class and, for ClassTask, its subject task.
func Classify(entry domain.JournalEntry, tasks func(id string) (*domain.Task, bool)) (Class, *domain.Task) {
	if entry.SubjectID != "" && tasks != nil {
		if task, ok := tasks(entry.SubjectID); ok {
			return ClassTask, task
		}
	}
	if entry.TimeSheet != nil && !entry.TimeSheet.Task.Resolved() {
		return ClassNewTask, nil
	}
	return ClassPersonal, nil
}

func alertMarker(levelName string) string {
	return markup.Escape("[" + levelName + "]")
}

func sectionHeader(levelName string, task *domain.Task) string {
	return fmt.Sprintf("## %s %s (ID: %s)\n\n", alertMarker(levelName), markup.Escape(task.Name), markup.Escape(task.FullID))
}

func newTaskHeader(levelName string, record *domain.TimeSheetRecord) string {
	return fmt.Sprintf("## %s %s (ID: %s)\n\n", alertMarker(levelName), markup.Escape("[New Task] "+record.Name), markup.Escape(record.Task.ID()))
}

func personalNotesHeader(levelName string) string {
	return fmt.Sprintf("## %s Personal Notes\n\n", alertMarker(levelName))
}

// workFragment renders actual progress with planned values in parentheses where they differ.
func workFragment(record *domain.TimeSheetRecord, q *Query) string {
	parts := []string{"**Work:** " + formatPercent(record.ActualWorkPercent)}
	if record.ActualWorkPercent != record.PlanWorkPercent {
		parts = append(parts, "("+formatPercent(record.PlanWorkPercent)+")")
	}
	if record.Remaining {
		parts = append(parts, "**Remaining:** "+formatDays(record.ActualRemaining))
		if record.ActualRemaining != record.PlanRemaining {
			parts = append(parts, "("+formatDays(record.PlanRemaining)+")")
		}
	} else {
		parts = append(parts, "**End:** "+markup.Escape(q.FormatTime(record.ActualEnd)))
		if !record.ActualEnd.Equal(record.PlanEnd) {
			parts = append(parts, "("+markup.Escape(q.FormatTime(record.PlanEnd))+")")
		}
	}
	return strings.Join(parts, " ") + "\n\n"
}

// newTaskWorkFragment renders actual progress only; a new task has no plan.
func newTaskWorkFragment(record *domain.TimeSheetRecord, q *Query) string {
	line := "**Work:** " + formatPercent(record.ActualWorkPercent)
	if record.Remaining {
		line += " **Remaining:** " + formatDays(record.ActualRemaining)
	} else {
		line += " **End:** " + markup.Escape(q.FormatTime(record.ActualEnd))
	}
	return line + "\n\n"
}

// bodyFragment renders the headline, the summary and, for long reports, the details.
func bodyFragment(entry domain.JournalEntry, longVersion bool) string {
	var b strings.Builder
	b.WriteString("**" + markup.Escape(entry.Headline) + "**\n\n")
	if entry.HasSummary() {
		b.WriteString(block(entry.Summary))
	}
	if longVersion && entry.HasDetails() {
		b.WriteString(block(entry.Details))
	}
	return b.String()
}

func dashboardHeader(task *domain.Task) string {
	return fmt.Sprintf("Task: %s (%s)\n\n", markup.Escape(task.Name), markup.Escape(task.FullID))
}

// block terminates verbatim markup with one blank line.
func block(text string) string {
	return strings.TrimRight(text, "\n") + "\n\n"
}

// join places separator between parts.
func join(parts []string) string {
	return strings.Join(parts, separator)
}

func formatPercent(v float64) string {
	return strconv.Itoa(int(v)) + "%"
}

func formatDays(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + "d"
}
