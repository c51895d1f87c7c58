package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"tasktalk/pkg/audit"
	"tasktalk/pkg/task"
)

// RenderTasks formats tasks as an aligned list, one per line.
func RenderTasks(tasks []task.Task, now time.Time) string {
	if len(tasks) == 0 {
		return SubtleStyle.Render("No tasks.")
	}
	idWidth := 0
	for _, t := range tasks {
		idWidth = max(idWidth, len(t.ID))
	}
	idCol := lipgloss.NewStyle().Width(idWidth)

	var b strings.Builder
	for _, t := range tasks {
		box := "[ ]"
		title := t.Title
		if t.Completed {
			box = SuccessStyle.Render("[x]")
			title = SubtleStyle.Render(title)
		}
		fmt.Fprintf(&b, "%s %s %s %s", SubtleStyle.Render(idCol.Render(t.ID)), box, priorityMark(t.Priority), title)
		var extra []string
		if t.Category != "" {
			extra = append(extra, "#"+t.Category)
		}
		if t.DueDate != nil {
			extra = append(extra, dueLabel(*t.DueDate, now, t.Completed))
		}
		if len(extra) > 0 {
			b.WriteString("  " + strings.Join(extra, " "))
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func priorityMark(p task.Priority) string {
	switch p {
	case task.High:
		return WarnStyle.Render("!!")
	case task.Low:
		return SubtleStyle.Render(". ")
	default:
		return "! "
	}
}

func dueLabel(due, now time.Time, completed bool) string {
	label := "due " + due.Format("Mon Jan 2")
	if !completed && due.Before(now) {
		return ErrorStyle.Render(label + " (overdue)")
	}
	return SubtleStyle.Render(label)
}

// RenderEvents formats audit events, newest first as given.
func RenderEvents(events []audit.Event) string {
	if len(events) == 0 {
		return SubtleStyle.Render("No events.")
	}
	var b strings.Builder
	for _, e := range events {
		fmt.Fprintf(&b, "%s  %-22s %s\n",
			SubtleStyle.Render(e.Timestamp.Local().Format("2006-01-02 15:04:05")),
			e.Type,
			eventSummary(e))
	}
	return strings.TrimRight(b.String(), "\n")
}

func eventSummary(e audit.Event) string {
	for _, key := range []string{"message", "title", "taskId", "reason"} {
		if v, ok := e.Content[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
