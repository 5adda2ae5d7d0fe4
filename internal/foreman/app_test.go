package foreman

import (
	"context"
	"testing"
	"time"

	"github.com/colonyops/foreman/internal/core/branch"
	"github.com/colonyops/foreman/internal/core/eventbus"
	"github.com/colonyops/foreman/internal/core/notify"
	"github.com/colonyops/foreman/internal/core/role"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryBranchStateComposition(t *testing.T) {
	ta := newTestApp(t)
	ctx := context.Background()

	ta.addAgent(t, "backend", "agent-1")
	br := ta.submit(t, SubmitOptions{Role: "backend", Title: "Add OAuth login flow"}).
		complete("token exchange wired").
		requestReview()

	t.Run("during review", func(t *testing.T) {
		status, err := ta.QueryBranchState(ctx, br.id)
		require.NoError(t, err)

		assert.Equal(t, branch.StateReviewRequested, status.Branch.State)
		assert.Equal(t, status.Branch.WorkItemID, status.WorkItem.ID)
		assert.Equal(t, "Add OAuth login flow", status.WorkItem.Title)
		assert.Empty(t, status.Decisions)
		require.NotNil(t, status.Outcome)
		assert.False(t, status.Outcome.Satisfied)
		assert.Equal(t, 1, status.Outcome.Missing)
		assert.Zero(t, status.QueuePosition)
	})

	t.Run("decisions accumulate without satisfying", func(t *testing.T) {
		_, err := ta.RecordApprovalDecision(ctx, br.id, "frontend", "approve", DecisionOptions{Note: "UI unaffected"})
		require.NoError(t, err)

		status, err := ta.QueryBranchState(ctx, br.id)
		require.NoError(t, err)
		require.Len(t, status.Decisions, 1)
		assert.Equal(t, role.Frontend, status.Decisions[0].Role)
		require.NotNil(t, status.Outcome)
		assert.Equal(t, 0, status.Outcome.Approvals)
		assert.False(t, status.Outcome.Satisfied)
	})

	t.Run("after queueing", func(t *testing.T) {
		br.approve("reviewer")

		status, err := ta.QueryBranchState(ctx, br.id)
		require.NoError(t, err)
		assert.Equal(t, branch.StateQueuedForMerge, status.Branch.State)
		assert.Len(t, status.Decisions, 2)
		assert.Nil(t, status.Outcome, "closed rounds have no live evaluation")
		assert.Equal(t, 1, status.QueuePosition)

		require.NotEmpty(t, status.History)
		assert.Equal(t, branch.StateCreated, status.History[0].From)
		assert.Equal(t, branch.StateQueuedForMerge, status.History[len(status.History)-1].To)
	})
}

func TestQueryBranchStateUnknown(t *testing.T) {
	ta := newTestApp(t)

	_, err := ta.QueryBranchState(context.Background(), "no-such-branch")
	require.ErrorIs(t, err, branch.ErrNotFound)
}

// TestQueriesAreReadOnly drives a branch mid-lifecycle and checks that the
// query surface returns stable answers and records nothing.
func TestQueriesAreReadOnly(t *testing.T) {
	ta := newTestApp(t)
	ctx := context.Background()

	ta.addAgent(t, "backend", "agent-1")
	br := ta.submit(t, SubmitOptions{Role: "backend", Title: "Refactor config loader"}).
		complete("split file watching out").
		requestReview()
	_, err := ta.RecordApprovalDecision(ctx, br.id, "frontend", "approve", DecisionOptions{})
	require.NoError(t, err)

	// Let the async dispatch settle so the event count below is stable.
	ta.bus.AssertPublished(t, eventbus.EventDecisionRecorded)
	before := len(ta.bus.Events())

	first, err := ta.QueryBranchState(ctx, br.id)
	require.NoError(t, err)
	for range 5 {
		again, err := ta.QueryBranchState(ctx, br.id)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}

	list1, err := ta.ListBranches(ctx, branch.Filter{})
	require.NoError(t, err)
	list2, err := ta.ListBranches(ctx, branch.Filter{})
	require.NoError(t, err)
	assert.Equal(t, list1, list2)

	lanes1, err := ta.Lanes(ctx)
	require.NoError(t, err)
	lanes2, err := ta.Lanes(ctx)
	require.NoError(t, err)
	assert.Equal(t, lanes1, lanes2)

	hist1, err := ta.History(ctx, "", 10)
	require.NoError(t, err)
	hist2, err := ta.History(ctx, "", 10)
	require.NoError(t, err)
	assert.Equal(t, hist1, hist2)

	assert.Equal(t, before, len(ta.bus.Events()), "queries must not publish events")
	assert.Equal(t, branch.StateReviewRequested, ta.mustGet(t, br.id).State)
}

func TestHistoryScopes(t *testing.T) {
	ta := newTestApp(t)
	ctx := context.Background()

	ta.addAgent(t, "backend", "agent-1")
	ta.addAgent(t, "frontend", "agent-2")
	first := ta.submit(t, SubmitOptions{Role: "backend", Title: "Change one"})
	second := ta.submit(t, SubmitOptions{Role: "frontend", Title: "Change two"})
	second.complete("done").requestReview()

	t.Run("branch scoped, oldest first", func(t *testing.T) {
		hist, err := ta.History(ctx, first.id, 0)
		require.NoError(t, err)
		require.Len(t, hist, 1)
		assert.Equal(t, first.id, hist[0].BranchID)
		assert.Equal(t, branch.StateCreated, hist[0].From)
		assert.Equal(t, branch.StateInProgress, hist[0].To)
	})

	t.Run("global, newest first", func(t *testing.T) {
		recent, err := ta.History(ctx, "", 10)
		require.NoError(t, err)
		require.Len(t, recent, 3)
		assert.Equal(t, branch.StateReviewRequested, recent[0].To)

		seen := map[string]bool{}
		for _, tr := range recent {
			seen[tr.BranchID] = true
		}
		assert.True(t, seen[first.id])
		assert.True(t, seen[second.id])
	})

	t.Run("global limit caps the window", func(t *testing.T) {
		capped, err := ta.History(ctx, "", 2)
		require.NoError(t, err)
		assert.Len(t, capped, 2)
	})
}

// TestAlertsCaptureOperatorNotifications exercises the full pipeline: domain
// event, notification router, alert sink, store. Clean merges land as info,
// conflicts as warnings, newest first.
func TestAlertsCaptureOperatorNotifications(t *testing.T) {
	ta := newTestApp(t)
	ctx := context.Background()

	merged := queueBranch(t, ta, "agent-1", "Ship dashboard widgets")
	require.NoError(t, ta.Promote(ctx, merged.id))

	conflicted := queueBranch(t, ta, "agent-2", "Rework settings page")
	ta.host.scriptConflict("web/settings.go")
	require.NoError(t, ta.Promote(ctx, conflicted.id))

	// Persistence rides the bus; wait for the sink to catch up.
	require.Eventually(t, func() bool {
		n, err := ta.AlertCount(ctx)
		return err == nil && n == 2
	}, 2*time.Second, 10*time.Millisecond)

	alerts, err := ta.Alerts(ctx)
	require.NoError(t, err)
	require.Len(t, alerts, 2)

	assert.Equal(t, notify.LevelWarning, alerts[0].Level)
	assert.Contains(t, alerts[0].Message, conflicted.id)
	assert.Contains(t, alerts[0].Message, "merge conflict")

	assert.Equal(t, notify.LevelInfo, alerts[1].Level)
	assert.Contains(t, alerts[1].Message, merged.id)
	assert.Contains(t, alerts[1].Message, "merged into")

	require.NoError(t, ta.ClearAlerts(ctx))
	count, err := ta.AlertCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
	remaining, err := ta.Alerts(ctx)
	require.NoError(t, err)
	assert.Empty(t, remaining)
}
