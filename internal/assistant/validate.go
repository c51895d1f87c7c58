package assistant

import (
	"strconv"
	"strings"
	"time"

	"tasktalk/pkg/task"
)

// Validator checks and normalizes candidates one at a time against the
// snapshot taken for the message.
type Validator struct {
	now func() time.Time
}

// NewValidator creates a Validator. now anchors "today" and "tomorrow";
// nil means time.Now.
func NewValidator(now func() time.Time) *Validator {
	if now == nil {
		now = time.Now
	}
	return &Validator{now: now}
}

// Validate returns the normalized operation, or a *ValidationError or
// *NotFoundError for this candidate alone.
func (v *Validator) Validate(c Candidate, snapshot []task.Task) (Operation, error) {
	op := Operation{
		Kind:        Kind(strings.ToLower(strings.TrimSpace(c.Operation))),
		SearchQuery: strings.TrimSpace(c.SearchQuery),
		Explanation: strings.TrimSpace(c.Explanation),
	}

	switch op.Kind {
	case KindCreate:
		fields, err := v.fields(op.Kind, c.Data)
		if err != nil {
			return op, err
		}
		if fields.Title == nil {
			return op, &ValidationError{Field: "title", Reason: "a new task needs a title"}
		}
		if fields.Priority == nil {
			p := task.DefaultPriority
			fields.Priority = &p
		}
		op.Fields = fields
		return op, nil

	case KindUpdate:
		if err := v.resolve(&op, c, snapshot); err != nil {
			return op, err
		}
		fields, err := v.fields(op.Kind, c.Data)
		if err != nil {
			return op, err
		}
		if fields.Empty() {
			return op, &ValidationError{Field: "data", Reason: "nothing to change"}
		}
		op.Fields = fields
		return op, nil

	case KindDelete:
		if err := v.resolve(&op, c, snapshot); err != nil {
			return op, err
		}
		return op, nil

	case KindQuery:
		return op, nil
	}
	return op, &ValidationError{Field: "operation", Reason: "unknown operation " + strconv.Quote(c.Operation)}
}

// fields converts the payload. A title that is present must be non-blank;
// a priority that names nothing becomes MEDIUM.
func (v *Validator) fields(kind Kind, d CandidateData) (task.Fields, error) {
	var f task.Fields

	if d.Title != nil {
		title := strings.TrimSpace(*d.Title)
		if title == "" {
			return f, &ValidationError{Field: "title", Reason: "title is blank"}
		}
		f.Title = &title
	}
	if d.Description != nil {
		desc := strings.TrimSpace(*d.Description)
		f.Description = &desc
	}
	if d.Category != nil {
		cat := strings.TrimSpace(*d.Category)
		f.Category = &cat
	}
	if d.Priority != nil {
		p, _ := task.ParsePriority(*d.Priority)
		f.Priority = &p
	}
	if d.Completed != nil {
		done := *d.Completed
		f.Completed = &done
	}
	if d.DueDate != nil {
		s := strings.TrimSpace(*d.DueDate)
		switch {
		case s == "" && kind == KindUpdate:
			f.ClearDueDate = true
		case s == "":
		default:
			due, err := task.ParseDueDate(s, v.now())
			if err != nil {
				return f, &ValidationError{Field: "dueDate", Reason: "unrecognised date " + strconv.Quote(s)}
			}
			f.DueDate = &due
		}
	}
	return f, nil
}

// resolve finds the target in the snapshot: by id, then by exact folded
// title, then by a unique fuzzy title match.
func (v *Validator) resolve(op *Operation, c Candidate, snapshot []task.Task) error {
	if id := strings.TrimSpace(c.TaskID); id != "" {
		for _, t := range snapshot {
			if t.ID == id {
				op.TargetID, op.TargetTitle, op.Resolution = t.ID, t.Title, ResolvedByID
				return nil
			}
		}
		return &NotFoundError{Ref: id}
	}

	ref := strings.TrimSpace(c.TargetTitle)
	if ref == "" && op.Kind == KindDelete && c.Data.Title != nil {
		ref = strings.TrimSpace(*c.Data.Title)
	}
	if ref == "" {
		return &ValidationError{Field: "target", Reason: "no task id or title given"}
	}

	resolution := ResolvedByTitle
	matches := task.MatchExact(snapshot, ref)
	if len(matches) == 0 {
		resolution = ResolvedByFuzzyTitle
		matches = task.MatchFuzzy(snapshot, ref)
	}
	switch len(matches) {
	case 0:
		return &NotFoundError{Ref: ref}
	case 1:
		op.TargetID, op.TargetTitle, op.Resolution = matches[0].ID, matches[0].Title, resolution
		return nil
	}
	return &ValidationError{Field: "target", Reason: strconv.Quote(ref) + " matches more than one task"}
}

