package assistant

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tasktalk/internal/testutil"
	"tasktalk/pkg/audit"
	"tasktalk/pkg/task"
)

func validate(t *testing.T, store *testutil.FakeTaskStore, userID string, cands ...Candidate) []Step {
	t.Helper()
	snap, err := store.FindMany(context.Background(), userID, task.Filter{})
	require.NoError(t, err)
	v := NewValidator(clock)
	steps := make([]Step, len(cands))
	for i, c := range cands {
		op, err := v.Validate(c, snap)
		steps[i] = Step{Index: i, Candidate: c, Op: op, Err: err}
	}
	return steps
}

func TestExecuteOneOutcomePerStep(t *testing.T) {
	store := testutil.NewFakeTaskStore()
	laundry := store.Add("u1", "Do laundry")

	steps := validate(t, store, "u1",
		Candidate{Operation: "create", Data: CandidateData{Title: ptr("Email my boss")}},
		Candidate{Operation: "create", Data: CandidateData{Title: ptr("  ")}},
		Candidate{Operation: "query", SearchQuery: "milk"},
		Candidate{Operation: "update", TaskID: laundry.ID, Data: CandidateData{Completed: ptr(true)}},
		Candidate{Operation: "delete", TaskID: "missing"},
	)
	outcomes := NewExecutor(store, nil).Execute(context.Background(), "u1", steps)

	require.Len(t, outcomes, len(steps))
	want := []Status{StatusApplied, StatusFailed, StatusSkipped, StatusApplied, StatusFailed}
	for i, o := range outcomes {
		assert.Equal(t, i, o.Index)
		assert.Equal(t, want[i], o.Status, "outcome %d", i)
		assert.NotEmpty(t, o.Message, "outcome %d", i)
	}
	assert.Equal(t, ErrorValidation, outcomes[1].Error)
	assert.Equal(t, "title", outcomes[1].Field)
	assert.Equal(t, ErrorNotFound, outcomes[4].Error)
	assert.Equal(t, ResolvedByID, outcomes[3].Resolution)
	assert.True(t, outcomes[3].Task.Completed)

	n, _ := store.Count(context.Background(), "u1")
	assert.Equal(t, 2, n, "only the valid create persisted")
}

func TestExecuteBlankTitleNeverPersists(t *testing.T) {
	store := testutil.NewFakeTaskStore()
	steps := validate(t, store, "u1", Candidate{Operation: "create", Data: CandidateData{Title: ptr(" \t ")}})

	outcomes := NewExecutor(store, nil).Execute(context.Background(), "u1", steps)

	require.Len(t, outcomes, 1)
	assert.Equal(t, ErrorValidation, outcomes[0].Error)
	assert.Zero(t, store.Calls["Create"])
	assert.Empty(t, store.All())
}

func TestExecuteUnmatchedTargetLeavesStoreAlone(t *testing.T) {
	store := testutil.NewFakeTaskStore()
	store.Add("u1", "Do laundry")
	store.Add("u1", "Gym")
	before := store.All()

	steps := validate(t, store, "u1",
		Candidate{Operation: "update", TargetTitle: "walk the dog", Data: CandidateData{Completed: ptr(true)}},
		Candidate{Operation: "delete", TaskID: "task-404"},
		// a short title inside a longer reference is not a match
		Candidate{Operation: "delete", TargetTitle: "Gymnastics class signup"},
		Candidate{Operation: "update", TargetTitle: "laun", Data: CandidateData{Completed: ptr(true)}},
	)
	outcomes := NewExecutor(store, nil).Execute(context.Background(), "u1", steps)

	require.Len(t, outcomes, 4)
	for _, o := range outcomes {
		assert.Equal(t, StatusFailed, o.Status)
		assert.Equal(t, ErrorNotFound, o.Error)
	}
	assert.Zero(t, store.Calls["Update"])
	assert.Zero(t, store.Calls["Delete"])
	assert.Equal(t, before, store.All())
}

func TestExecuteDoubleDelete(t *testing.T) {
	store := testutil.NewFakeTaskStore()
	laundry := store.Add("u1", "Do laundry")

	del := Candidate{Operation: "delete", TaskID: laundry.ID}
	steps := validate(t, store, "u1", del, del)
	outcomes := NewExecutor(store, nil).Execute(context.Background(), "u1", steps)

	require.Len(t, outcomes, 2)
	assert.Equal(t, StatusApplied, outcomes[0].Status)
	assert.Equal(t, StatusFailed, outcomes[1].Status)
	assert.Equal(t, ErrorNotFound, outcomes[1].Error)
	assert.Empty(t, store.All())
}

func TestExecuteOtherUsersTaskIsNotFound(t *testing.T) {
	store := testutil.NewFakeTaskStore()
	theirs := store.Add("u2", "Their task")

	// a stale or forged step that skipped validation against u1's snapshot
	steps := []Step{{Index: 0, Op: Operation{Kind: KindDelete, TargetID: theirs.ID, Resolution: ResolvedByID}}}
	outcomes := NewExecutor(store, nil).Execute(context.Background(), "u1", steps)

	assert.Equal(t, ErrorNotFound, outcomes[0].Error)
	assert.Len(t, store.All(), 1)
}

func TestExecuteStoreFailureIsScoped(t *testing.T) {
	store := testutil.NewFakeTaskStore()
	store.CreateErr = errors.New("connection reset by peer")

	steps := validate(t, store, "u1",
		Candidate{Operation: "create", Data: CandidateData{Title: ptr("a")}},
		Candidate{Operation: "query"},
	)
	outcomes := NewExecutor(store, nil).Execute(context.Background(), "u1", steps)

	require.Len(t, outcomes, 2)
	assert.Equal(t, ErrorStore, outcomes[0].Error)
	assert.Equal(t, storeFailureReason, outcomes[0].Reason)
	assert.NotContains(t, outcomes[0].Message, "connection reset")
	assert.Equal(t, StatusSkipped, outcomes[1].Status)
}

func TestExecuteRecordsAuditEvents(t *testing.T) {
	store := testutil.NewFakeTaskStore()
	events := &testutil.MemoryLog{}

	steps := validate(t, store, "u1",
		Candidate{Operation: "create", Data: CandidateData{Title: ptr("a")}, Explanation: "add a"},
		Candidate{Operation: "query"},
		Candidate{Operation: "delete", TaskID: "nope"},
	)
	NewExecutor(store, events).Execute(context.Background(), "u1", steps, "msg-1")

	got := events.Events()
	require.Len(t, got, 3)
	assert.Equal(t, audit.TypeOperationApplied, got[0].Type)
	assert.Equal(t, audit.TypeOperationSkipped, got[1].Type)
	assert.Equal(t, audit.TypeOperationFailed, got[2].Type)
	assert.Equal(t, "add a", got[0].Content["explanation"])
	assert.Equal(t, "not_found", got[2].Content["error"])
	for _, e := range got {
		assert.Equal(t, []string{"msg-1"}, e.Causes)
		assert.Equal(t, "u1", e.UserID)
	}
}

func TestExecuteAuditFailureDoesNotChangeOutcome(t *testing.T) {
	store := testutil.NewFakeTaskStore()
	events := &testutil.MemoryLog{AppendErr: errors.New("disk full")}

	steps := validate(t, store, "u1", Candidate{Operation: "create", Data: CandidateData{Title: ptr("a")}})
	outcomes := NewExecutor(store, events).Execute(context.Background(), "u1", steps)

	assert.Equal(t, StatusApplied, outcomes[0].Status)
	assert.Len(t, store.All(), 1)
}
