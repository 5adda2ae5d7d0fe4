package foreman

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/colonyops/foreman/internal/core/branch"
	"github.com/colonyops/foreman/internal/core/eventbus"
	"github.com/colonyops/foreman/internal/core/eventbus/testbus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryTransition(t *testing.T) {
	t.Run("legal edge persists and audits", func(t *testing.T) {
		ta := newTestApp(t)
		seedBranch(t, ta, "br_reg1", branch.StateCreated)

		b, err := ta.Registry.Transition(context.Background(), "br_reg1", branch.StatePendingAssignment, "no backend agent available", actorRouter)
		require.NoError(t, err)
		assert.Equal(t, branch.StatePendingAssignment, b.State)

		history, err := ta.Registry.History(context.Background(), "br_reg1")
		require.NoError(t, err)
		require.Len(t, history, 1)
		assert.Equal(t, branch.StateCreated, history[0].From)
		assert.Equal(t, branch.StatePendingAssignment, history[0].To)
		assert.Equal(t, "no backend agent available", history[0].Reason)
		assert.Equal(t, actorRouter, history[0].Actor)

		p := testbus.FindPayload[eventbus.BranchTransitionedPayload](ta.bus, t, eventbus.EventBranchTransitioned)
		assert.Equal(t, "br_reg1", p.BranchID)
		assert.Equal(t, branch.StateCreated, p.From)
		assert.Equal(t, branch.StatePendingAssignment, p.To)
	})

	t.Run("illegal edge leaves branch unchanged", func(t *testing.T) {
		ta := newTestApp(t)
		seedBranch(t, ta, "br_reg2", branch.StateCreated)

		_, err := ta.Registry.Transition(context.Background(), "br_reg2", branch.StateMerged, "", actorOperator)
		require.ErrorIs(t, err, branch.ErrIllegalTransition)

		b, err := ta.Registry.Get(context.Background(), "br_reg2")
		require.NoError(t, err)
		assert.Equal(t, branch.StateCreated, b.State)

		history, err := ta.Registry.History(context.Background(), "br_reg2")
		require.NoError(t, err)
		assert.Empty(t, history, "failed transitions must not be audited")
		ta.bus.AssertNotPublished(t, eventbus.EventBranchTransitioned, 50*time.Millisecond)
	})

	t.Run("unknown branch", func(t *testing.T) {
		ta := newTestApp(t)

		_, err := ta.Registry.Transition(context.Background(), "br_missing", branch.StateClosed, "", actorOperator)
		assert.ErrorIs(t, err, branch.ErrNotFound)
	})
}

// TestRegistryLifecycleWalk drives one branch along the golden path and
// checks that the audit trail is a connected chain of legal edges ending in
// an archived terminal record.
func TestRegistryLifecycleWalk(t *testing.T) {
	ta := newTestApp(t)
	ctx := context.Background()
	seedBranch(t, ta, "br_walk", branch.StateCreated)

	path := []branch.State{
		branch.StateInProgress,
		branch.StateReviewRequested,
		branch.StateApproved,
		branch.StateQueuedForMerge,
		branch.StateMerging,
		branch.StateMerged,
	}
	for _, next := range path {
		_, err := ta.Registry.Transition(ctx, "br_walk", next, "walk", actorOperator)
		require.NoError(t, err, "transition to %s", next)
	}

	history, err := ta.Registry.History(ctx, "br_walk")
	require.NoError(t, err)
	require.Len(t, history, len(path))

	prev := branch.StateCreated
	for i, tr := range history {
		assert.Equal(t, prev, tr.From, "row %d must chain from the previous state", i)
		assert.Equal(t, path[i], tr.To)
		assert.True(t, branch.CanTransition(tr.From, tr.To), "audited edge %s -> %s must be legal", tr.From, tr.To)
		prev = tr.To
	}

	b, err := ta.Registry.Get(ctx, "br_walk")
	require.NoError(t, err)
	assert.Equal(t, branch.StateMerged, b.State)
	assert.False(t, b.ArchivedAt.IsZero(), "terminal branches are archived")

	// Archived records leave default listings but are never deleted.
	active, err := ta.Registry.List(ctx, branch.Filter{})
	require.NoError(t, err)
	assert.Empty(t, active)

	all, err := ta.Registry.List(ctx, branch.Filter{IncludeArchived: true})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "br_walk", all[0].ID)
}

// TestRegistryIllegalEdges spot-checks edges the lifecycle must refuse.
func TestRegistryIllegalEdges(t *testing.T) {
	cases := []struct {
		from, to branch.State
	}{
		{branch.StateCreated, branch.StateReviewRequested},
		{branch.StateInProgress, branch.StateApproved},
		{branch.StateInProgress, branch.StateMerging},
		{branch.StateReviewRequested, branch.StateQueuedForMerge},
		{branch.StateApproved, branch.StateMerging},
		{branch.StateMerged, branch.StateInProgress},
		{branch.StateClosed, branch.StateInProgress},
		{branch.StateMerging, branch.StateClosed},
	}

	ta := newTestApp(t)
	for i, tc := range cases {
		id := string(rune('a'+i)) + "_edge"
		seedBranch(t, ta, id, tc.from)
		_, err := ta.Registry.Transition(context.Background(), id, tc.to, "", actorOperator)
		assert.ErrorIs(t, err, branch.ErrIllegalTransition, "%s -> %s must be refused", tc.from, tc.to)
	}
}

func TestReportWorkComplete(t *testing.T) {
	t.Run("records summary on in-progress branch", func(t *testing.T) {
		ta := newTestApp(t)
		seedBranch(t, ta, "br_done", branch.StateInProgress)

		b, err := ta.ReportWorkComplete(context.Background(), "br_done", "implemented login flow")
		require.NoError(t, err)
		assert.True(t, b.WorkComplete())
		assert.Equal(t, "implemented login flow", b.WorkSummary)
	})

	t.Run("refused outside in-progress", func(t *testing.T) {
		ta := newTestApp(t)
		seedBranch(t, ta, "br_early", branch.StateCreated)
		seedBranch(t, ta, "br_late", branch.StateMerged)

		_, err := ta.ReportWorkComplete(context.Background(), "br_early", "done")
		assert.ErrorIs(t, err, branch.ErrIllegalTransition)

		_, err = ta.ReportWorkComplete(context.Background(), "br_late", "done")
		assert.ErrorIs(t, err, branch.ErrIllegalTransition)
	})

	t.Run("unknown branch", func(t *testing.T) {
		ta := newTestApp(t)
		_, err := ta.ReportWorkComplete(context.Background(), "br_missing", "done")
		assert.ErrorIs(t, err, branch.ErrNotFound)
	})
}

func TestRegistryUpdate(t *testing.T) {
	t.Run("mutation persists and bumps UpdatedAt", func(t *testing.T) {
		ta := newTestApp(t)
		seeded := seedBranch(t, ta, "br_upd", branch.StateInProgress)

		updated, err := ta.Registry.Update(context.Background(), "br_upd", func(b *branch.Branch) error {
			b.WorkSummary = "notes"
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, "notes", updated.WorkSummary)
		assert.False(t, updated.UpdatedAt.Before(seeded.UpdatedAt))
	})

	t.Run("mutation error aborts the save", func(t *testing.T) {
		ta := newTestApp(t)
		seedBranch(t, ta, "br_abort", branch.StateInProgress)

		wantErr := errors.New("nope")
		_, err := ta.Registry.Update(context.Background(), "br_abort", func(b *branch.Branch) error {
			b.WorkSummary = "should not persist"
			return wantErr
		})
		require.ErrorIs(t, err, wantErr)

		b, err := ta.Registry.Get(context.Background(), "br_abort")
		require.NoError(t, err)
		assert.Empty(t, b.WorkSummary)
	})
}
