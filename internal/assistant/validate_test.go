package assistant

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tasktalk/pkg/task"
)

var snapshot = []task.Task{
	{ID: "t1", Title: "Do laundry", Priority: task.Medium},
	{ID: "t2", Title: "Team meeting", Priority: task.Low},
	{ID: "t3", Title: "Buy milk", Priority: task.Medium},
	{ID: "t4", Title: "Buy eggs", Priority: task.Medium},
}

func validationField(t *testing.T, err error) string {
	t.Helper()
	var verr *ValidationError
	require.True(t, errors.As(err, &verr), "want *ValidationError, got %v", err)
	return verr.Field
}

func TestValidateCreate(t *testing.T) {
	v := NewValidator(clock)

	op, err := v.Validate(Candidate{Operation: "create", Data: CandidateData{Title: ptr("  Email my boss ")}}, nil)
	require.NoError(t, err)
	assert.Equal(t, KindCreate, op.Kind)
	assert.Equal(t, "Email my boss", *op.Fields.Title)
	assert.Equal(t, task.Medium, *op.Fields.Priority, "missing priority defaults to MEDIUM")
	assert.Nil(t, op.Fields.DueDate, "missing due date stays unset")

	op, err = v.Validate(Candidate{Operation: "CREATE", Data: CandidateData{Title: ptr("x"), Priority: ptr("high")}}, nil)
	require.NoError(t, err)
	assert.Equal(t, task.High, *op.Fields.Priority)
}

func TestValidateCreateInvalidPriorityBecomesMedium(t *testing.T) {
	v := NewValidator(clock)
	for _, p := range []string{"urgent", "", "P1", "critical"} {
		op, err := v.Validate(Candidate{Operation: "create", Data: CandidateData{Title: ptr("x"), Priority: ptr(p)}}, nil)
		require.NoError(t, err, "priority %q", p)
		assert.Equal(t, task.Medium, *op.Fields.Priority, "priority %q", p)
	}
}

func TestValidateCreateBlankTitle(t *testing.T) {
	v := NewValidator(clock)
	for _, title := range []*string{nil, ptr(""), ptr("   "), ptr("\t\n")} {
		_, err := v.Validate(Candidate{Operation: "create", Data: CandidateData{Title: title}}, nil)
		assert.Equal(t, "title", validationField(t, err))
	}
}

func TestValidateDueDates(t *testing.T) {
	v := NewValidator(clock)
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2026-03-05", time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)},
		{"2026-03-05T10:30:00+02:00", time.Date(2026, 3, 5, 8, 30, 0, 0, time.UTC)},
		{"2026-03-05T10:30:00.750Z", time.Date(2026, 3, 5, 10, 30, 0, 0, time.UTC)},
		{"2026-03-05T10:30:00", time.Date(2026, 3, 5, 10, 30, 0, 0, time.UTC)},
		{"tomorrow", fixedNow.Add(24 * time.Hour)},
		{"Today", fixedNow},
	}
	for _, tt := range tests {
		op, err := v.Validate(Candidate{Operation: "create", Data: CandidateData{Title: ptr("x"), DueDate: ptr(tt.in)}}, nil)
		require.NoError(t, err, tt.in)
		require.NotNil(t, op.Fields.DueDate, tt.in)
		assert.True(t, tt.want.Equal(*op.Fields.DueDate), "%s: got %v want %v", tt.in, op.Fields.DueDate, tt.want)
		assert.Equal(t, time.UTC, op.Fields.DueDate.Location())
	}

	_, err := v.Validate(Candidate{Operation: "create", Data: CandidateData{Title: ptr("x"), DueDate: ptr("sometime next week")}}, nil)
	assert.Equal(t, "dueDate", validationField(t, err))
}

func TestValidateTargetResolution(t *testing.T) {
	v := NewValidator(clock)
	done := CandidateData{Completed: ptr(true)}

	op, err := v.Validate(Candidate{Operation: "update", TaskID: "t2", Data: done}, snapshot)
	require.NoError(t, err)
	assert.Equal(t, "t2", op.TargetID)
	assert.Equal(t, ResolvedByID, op.Resolution)

	op, err = v.Validate(Candidate{Operation: "update", TargetTitle: "TEAM   Meeting", Data: done}, snapshot)
	require.NoError(t, err)
	assert.Equal(t, "t2", op.TargetID)
	assert.Equal(t, ResolvedByTitle, op.Resolution)

	op, err = v.Validate(Candidate{Operation: "delete", TargetTitle: "laundry"}, snapshot)
	require.NoError(t, err)
	assert.Equal(t, "t1", op.TargetID)
	assert.Equal(t, "Do laundry", op.TargetTitle)
	assert.Equal(t, ResolvedByFuzzyTitle, op.Resolution)

	op, err = v.Validate(Candidate{Operation: "delete", Data: CandidateData{Title: ptr("Buy milk")}}, snapshot)
	require.NoError(t, err)
	assert.Equal(t, "t3", op.TargetID, "delete falls back to data.title")
}

func TestValidateTargetFailures(t *testing.T) {
	v := NewValidator(clock)
	done := CandidateData{Completed: ptr(true)}

	_, err := v.Validate(Candidate{Operation: "update", TaskID: "nope", Data: done}, snapshot)
	var nf *NotFoundError
	assert.True(t, errors.As(err, &nf))
	assert.ErrorIs(t, err, task.ErrNotFound)

	_, err = v.Validate(Candidate{Operation: "delete", TargetTitle: "walk the dog"}, snapshot)
	assert.True(t, errors.As(err, &nf))

	_, err = v.Validate(Candidate{Operation: "delete", TargetTitle: "Do laundry and buy milk"}, snapshot)
	assert.True(t, errors.As(err, &nf), "titles inside a longer reference do not match")

	_, err = v.Validate(Candidate{Operation: "delete", TargetTitle: "buy"}, snapshot)
	assert.Equal(t, "target", validationField(t, err), "ambiguous fuzzy match")

	_, err = v.Validate(Candidate{Operation: "update", Data: done}, snapshot)
	assert.Equal(t, "target", validationField(t, err), "no reference")

	_, err = v.Validate(Candidate{Operation: "update", TaskID: "t1"}, snapshot)
	assert.Equal(t, "data", validationField(t, err), "nothing to change")

	_, err = v.Validate(Candidate{Operation: "update", TaskID: "t1", Data: CandidateData{Title: ptr(" ")}}, snapshot)
	assert.Equal(t, "title", validationField(t, err))

	_, err = v.Validate(Candidate{Operation: "delete", TaskID: "t1"}, nil)
	assert.True(t, errors.As(err, &nf), "target must be in the snapshot")
}

func TestValidateUpdateFields(t *testing.T) {
	v := NewValidator(clock)

	op, err := v.Validate(Candidate{Operation: "update", TaskID: "t1", Data: CandidateData{DueDate: ptr("")}}, snapshot)
	require.NoError(t, err)
	assert.True(t, op.Fields.ClearDueDate)

	op, err = v.Validate(Candidate{Operation: "update", TaskID: "t1", Data: CandidateData{Priority: ptr("whenever")}}, snapshot)
	require.NoError(t, err)
	assert.Equal(t, task.Medium, *op.Fields.Priority)
}

func TestValidateQueryAndUnknown(t *testing.T) {
	v := NewValidator(clock)

	op, err := v.Validate(Candidate{Operation: "query", SearchQuery: " groceries "}, snapshot)
	require.NoError(t, err)
	assert.Equal(t, KindQuery, op.Kind)
	assert.Equal(t, "groceries", op.SearchQuery)

	_, err = v.Validate(Candidate{Operation: "archive"}, snapshot)
	assert.Equal(t, "operation", validationField(t, err))

	_, err = v.Validate(Candidate{Operation: "say \"hi\"\n"}, snapshot)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, `unknown operation "say \"hi\"\n"`, verr.Reason)
}
