package assistant

import (
	"fmt"
	"strings"
	"time"
)

// translationFailureReply is all the user sees when the model could not be used.
const translationFailureReply = "Sorry, I couldn't work out what to do with that. Nothing was changed."

// Render builds the reply: a summary line, then one line per outcome.
func Render(outcomes []Outcome) string {
	if len(outcomes) == 0 {
		return "I didn't find anything to change in that message."
	}

	var applied, skipped, failed int
	for _, o := range outcomes {
		switch o.Status {
		case StatusApplied:
			applied++
		case StatusSkipped:
			skipped++
		case StatusFailed:
			failed++
		}
	}

	var parts []string
	if applied > 0 {
		parts = append(parts, plural(applied, "change")+" applied")
	}
	if skipped > 0 {
		parts = append(parts, fmt.Sprintf("%d skipped", skipped))
	}
	if failed > 0 {
		parts = append(parts, fmt.Sprintf("%d failed", failed))
	}

	var b strings.Builder
	b.WriteString(strings.Join(parts, ", "))
	b.WriteString(".")
	for _, o := range outcomes {
		b.WriteString("\n- ")
		b.WriteString(o.Message)
	}
	return b.String()
}

// describe is the one-line text for an outcome.
func describe(o Outcome, s Step) string {
	name := s.Op.TargetTitle
	if o.Task != nil {
		name = o.Task.Title
	}

	switch o.Status {
	case StatusSkipped:
		if s.Op.SearchQuery != "" {
			return fmt.Sprintf("Skipped search for %q: searching isn't supported yet.", s.Op.SearchQuery)
		}
		return "Skipped a query: searching isn't supported yet."

	case StatusApplied:
		switch o.Kind {
		case KindCreate:
			msg := fmt.Sprintf("Created %q", name)
			if o.Task != nil && o.Task.DueDate != nil {
				msg += ", due " + formatDue(*o.Task.DueDate)
			}
			return msg + "."
		case KindUpdate:
			if changes := changeList(s.Op); changes != "" {
				return fmt.Sprintf("Updated %q: %s.", name, changes)
			}
			return fmt.Sprintf("Updated %q.", name)
		case KindDelete:
			return fmt.Sprintf("Deleted %q.", name)
		}
	}

	verb := "apply an operation"
	switch o.Kind {
	case KindCreate, KindUpdate, KindDelete, KindQuery:
		verb = string(o.Kind)
	}
	if name != "" {
		return fmt.Sprintf("Couldn't %s %q: %s.", verb, name, o.Reason)
	}
	return fmt.Sprintf("Couldn't %s: %s.", verb, o.Reason)
}

func changeList(op Operation) string {
	f := op.Fields
	var out []string
	if f.Title != nil && *f.Title != op.TargetTitle {
		out = append(out, fmt.Sprintf("renamed to %q", *f.Title))
	}
	if f.Completed != nil {
		if *f.Completed {
			out = append(out, "marked done")
		} else {
			out = append(out, "marked not done")
		}
	}
	if f.Priority != nil {
		out = append(out, "priority "+string(*f.Priority))
	}
	if f.DueDate != nil {
		out = append(out, "due "+formatDue(*f.DueDate))
	}
	if f.ClearDueDate {
		out = append(out, "due date removed")
	}
	if f.Category != nil {
		if *f.Category == "" {
			out = append(out, "category removed")
		} else {
			out = append(out, fmt.Sprintf("category %q", *f.Category))
		}
	}
	if f.Description != nil {
		out = append(out, "description updated")
	}
	return strings.Join(out, ", ")
}

func formatDue(t time.Time) string {
	t = t.UTC()
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 {
		return t.Format("Mon Jan 2 2006")
	}
	return t.Format("Mon Jan 2 2006 15:04 UTC")
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
