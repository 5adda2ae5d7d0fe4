package branch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/foreman/internal/core/lane"
	"github.com/colonyops/foreman/internal/core/role"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "simple title", input: "Add OAuth login flow", want: "add-oauth-login-flow"},
		{name: "special characters", input: "Fix: cart total (rounding)", want: "fix-cart-total-rounding"},
		{name: "collapses runs", input: "a  --  b", want: "a-b"},
		{name: "trims dashes", input: "--hello--", want: "hello"},
		{name: "caps length", input: "this is a very long work item title that keeps going", want: "this-is-a-very-long-work-item"},
		{name: "empty", input: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.input))
		})
	}
}

func TestCheckTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    State
		to      State
		wantErr bool
	}{
		{name: "created to in_progress", from: StateCreated, to: StateInProgress},
		{name: "created to pending_assignment", from: StateCreated, to: StatePendingAssignment},
		{name: "pending to in_progress", from: StatePendingAssignment, to: StateInProgress},
		{name: "in_progress to review", from: StateInProgress, to: StateReviewRequested},
		{name: "review to approved", from: StateReviewRequested, to: StateApproved},
		{name: "review to rejected", from: StateReviewRequested, to: StateRejected},
		{name: "approved to queued", from: StateApproved, to: StateQueuedForMerge},
		{name: "queued to merging", from: StateQueuedForMerge, to: StateMerging},
		{name: "merging to merged", from: StateMerging, to: StateMerged},
		{name: "merging to conflict", from: StateMerging, to: StateConflict},
		{name: "conflict back to in_progress", from: StateConflict, to: StateInProgress},
		{name: "rejected rework", from: StateRejected, to: StateInProgress},
		{name: "withdraw before merging", from: StateQueuedForMerge, to: StateClosed},

		{name: "skip review", from: StateInProgress, to: StateApproved, wantErr: true},
		{name: "skip queue", from: StateApproved, to: StateMerging, wantErr: true},
		{name: "merged is terminal", from: StateMerged, to: StateInProgress, wantErr: true},
		{name: "closed is terminal", from: StateClosed, to: StateInProgress, wantErr: true},
		{name: "cannot cancel merging", from: StateMerging, to: StateClosed, wantErr: true},
		{name: "no direct merge from review", from: StateReviewRequested, to: StateMerging, wantErr: true},
		{name: "approved cannot revert", from: StateApproved, to: StateInProgress, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckTransition(tt.from, tt.to)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrIllegalTransition)
				return
			}
			assert.NoError(t, err)
		})
	}
}

// TestAdjacency_WalkReachesTerminals replays the two canonical lifecycle
// walks edge by edge and asserts every step is legal.
func TestAdjacency_WalkReachesTerminals(t *testing.T) {
	walks := map[string][]State{
		"happy path": {
			StateCreated, StateInProgress, StateReviewRequested, StateApproved,
			StateQueuedForMerge, StateMerging, StateMerged,
		},
		"pending assignment and conflict rework": {
			StateCreated, StatePendingAssignment, StateInProgress,
			StateReviewRequested, StateApproved, StateQueuedForMerge,
			StateMerging, StateConflict, StateInProgress, StateReviewRequested,
			StateRejected, StateInProgress, StateReviewRequested, StateApproved,
			StateQueuedForMerge, StateMerging, StateMerged,
		},
		"abandoned after rework limit": {
			StateCreated, StateInProgress, StateReviewRequested, StateRejected,
			StateClosed,
		},
	}

	for name, walk := range walks {
		t.Run(name, func(t *testing.T) {
			for i := 1; i < len(walk); i++ {
				require.NoError(t, CheckTransition(walk[i-1], walk[i]),
					"step %d: %s -> %s", i, walk[i-1], walk[i])
			}
			assert.True(t, walk[len(walk)-1].Terminal())
		})
	}
}

func TestBranch_Advance(t *testing.T) {
	now := time.Now()
	b := Branch{
		ID:        "br_1",
		Role:      role.Backend,
		Target:    lane.Integration,
		State:     StateCreated,
		CreatedAt: now,
		UpdatedAt: now,
	}

	later := now.Add(time.Minute)
	require.NoError(t, b.Advance(StateInProgress, later))
	assert.Equal(t, StateInProgress, b.State)
	assert.Equal(t, later, b.UpdatedAt)
	assert.True(t, b.ArchivedAt.IsZero())

	err := b.Advance(StateMerged, later.Add(time.Minute))
	require.ErrorIs(t, err, ErrIllegalTransition)
	assert.Equal(t, StateInProgress, b.State, "failed transition leaves state unchanged")
	assert.Equal(t, later, b.UpdatedAt)
}

func TestBranch_AdvanceArchivesTerminal(t *testing.T) {
	now := time.Now()
	b := Branch{ID: "br_2", State: StateMerging, CreatedAt: now, UpdatedAt: now}

	end := now.Add(time.Hour)
	require.NoError(t, b.Advance(StateMerged, end))
	assert.Equal(t, end, b.ArchivedAt, "terminal states archive the branch")
}

func TestParseState(t *testing.T) {
	got, err := ParseState("queued_for_merge")
	require.NoError(t, err)
	assert.Equal(t, StateQueuedForMerge, got)

	_, err = ParseState("limbo")
	assert.Error(t, err)
}

func TestBranch_ResetWork(t *testing.T) {
	b := Branch{WorkCompletedAt: time.Now(), WorkSummary: "done"}
	require.True(t, b.WorkComplete())

	b.ResetWork()
	assert.False(t, b.WorkComplete())
	assert.Empty(t, b.WorkSummary)
}
