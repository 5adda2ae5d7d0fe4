package foreman

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/colonyops/foreman/internal/core/agentpool"
	"github.com/colonyops/foreman/internal/core/branch"
	"github.com/colonyops/foreman/internal/core/eventbus"
	"github.com/colonyops/foreman/internal/core/eventbus/testbus"
	"github.com/colonyops/foreman/internal/core/lane"
	"github.com/colonyops/foreman/internal/core/role"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitAssignsAvailableAgent(t *testing.T) {
	ta := newTestApp(t)
	ctx := context.Background()
	ta.addAgent(t, "backend", "agent-1")

	b, err := ta.SubmitWork(ctx, SubmitOptions{
		Role:        "backend",
		Title:       "Add OAuth login flow",
		Description: "use the existing token store",
	})
	require.NoError(t, err)

	assert.Equal(t, branch.StateInProgress, b.State)
	assert.Equal(t, "agent-1", b.AssignedAgent)
	assert.Equal(t, "feature/backend/add-oauth-login-flow", b.HostBranch)
	assert.Equal(t, lane.Integration, b.Target, "default target applies when none is given")

	// The feature branch is created at the host, based on the lane branch.
	assert.Equal(t, []string{"feature/backend/add-oauth-login-flow"}, ta.host.createdBranches())

	// The agent is now claimed.
	agents, err := ta.Agents(ctx, agentpool.Filter{})
	require.NoError(t, err)
	require.Len(t, agents, 1)
	assert.False(t, agents[0].Available)
	assert.Equal(t, b.ID, agents[0].BranchID)

	created := testbus.FindPayload[eventbus.BranchCreatedPayload](ta.bus, t, eventbus.EventBranchCreated)
	assert.Equal(t, b.ID, created.Branch.ID)
	assigned := testbus.FindPayload[eventbus.BranchAssignedPayload](ta.bus, t, eventbus.EventBranchAssigned)
	assert.Equal(t, "agent-1", assigned.AgentID)

	// The audit trail records the activation edge.
	history, err := ta.Registry.History(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, branch.StateCreated, history[0].From)
	assert.Equal(t, branch.StateInProgress, history[0].To)
	assert.Equal(t, actorRouter, history[0].Actor)
}

func TestSubmitUnknownRole(t *testing.T) {
	ta := newTestApp(t)
	ctx := context.Background()

	_, err := ta.SubmitWork(ctx, SubmitOptions{Role: "welder", Title: "Fix the gate"})
	require.ErrorIs(t, err, role.ErrUnknownRole)

	// Nothing may be persisted for a refused submission.
	all, err := ta.ListBranches(ctx, branch.Filter{IncludeArchived: true})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestSubmitRequiresTitle(t *testing.T) {
	ta := newTestApp(t)

	_, err := ta.SubmitWork(context.Background(), SubmitOptions{Role: "backend", Title: "   "})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "title is required")
}

func TestSubmitExplicitTarget(t *testing.T) {
	ta := newTestApp(t)
	ta.addAgent(t, "devops", "agent-ops")

	b, err := ta.SubmitWork(context.Background(), SubmitOptions{
		Role:   "devops",
		Title:  "Rotate deploy keys",
		Target: "production",
	})
	require.NoError(t, err)
	assert.Equal(t, lane.Production, b.Target)

	_, err = ta.SubmitWork(context.Background(), SubmitOptions{
		Role:   "devops",
		Title:  "Bad target",
		Target: "staging",
	})
	assert.Error(t, err, "unknown promotion targets are refused")
}

func TestSubmitParksWhenNoAgentAvailable(t *testing.T) {
	ta := newTestApp(t)
	ctx := context.Background()

	b, err := ta.SubmitWork(ctx, SubmitOptions{Role: "frontend", Title: "Redesign settings page"})
	require.NoError(t, err)

	assert.Equal(t, branch.StatePendingAssignment, b.State)
	assert.Empty(t, b.AssignedAgent)
	assert.Empty(t, b.HostBranch, "no host branch until an agent owns the work")
	assert.Empty(t, ta.host.createdBranches())

	history, err := ta.Registry.History(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, branch.StatePendingAssignment, history[0].To)
	assert.Contains(t, history[0].Reason, "no frontend agent available")
}

// TestAvailabilityAssignsOldestFirst parks two branches and releases agents
// one at a time: each availability report must pick up the oldest waiting
// branch of the role.
func TestAvailabilityAssignsOldestFirst(t *testing.T) {
	ta := newTestApp(t)
	ctx := context.Background()

	first, err := ta.SubmitWork(ctx, SubmitOptions{Role: "backend", Title: "First task"})
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond) // distinct creation times
	second, err := ta.SubmitWork(ctx, SubmitOptions{Role: "backend", Title: "Second task"})
	require.NoError(t, err)

	ta.addAgent(t, "backend", "agent-1")

	got1, err := ta.Registry.Get(ctx, first.ID)
	require.NoError(t, err)
	got2, err := ta.Registry.Get(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, branch.StateInProgress, got1.State, "oldest submission is assigned first")
	assert.Equal(t, "agent-1", got1.AssignedAgent)
	assert.Equal(t, branch.StatePendingAssignment, got2.State, "newer submission keeps waiting")

	ta.addAgent(t, "backend", "agent-2")

	got2, err = ta.Registry.Get(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, branch.StateInProgress, got2.State)
	assert.Equal(t, "agent-2", got2.AssignedAgent)
}

func TestAvailabilityIgnoresOtherRoles(t *testing.T) {
	ta := newTestApp(t)
	ctx := context.Background()

	b, err := ta.SubmitWork(ctx, SubmitOptions{Role: "designer", Title: "New empty-state art"})
	require.NoError(t, err)

	ta.addAgent(t, "backend", "agent-1")

	got, err := ta.Registry.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, branch.StatePendingAssignment, got.State, "a backend agent cannot take designer work")
	agents, err := ta.Agents(ctx, agentpool.Filter{})
	require.NoError(t, err)
	require.Len(t, agents, 1)
	assert.True(t, agents[0].Available, "agent stays idle when no matching work waits")
}

func TestReportAgentAvailableValidation(t *testing.T) {
	ta := newTestApp(t)

	err := ta.ReportAgentAvailable(context.Background(), "welder", "agent-1")
	assert.ErrorIs(t, err, role.ErrUnknownRole)

	err = ta.Router.ReportAgentAvailable(context.Background(), role.Backend, "  ")
	assert.Error(t, err)
}

func TestReportAgentGone(t *testing.T) {
	ta := newTestApp(t)
	ctx := context.Background()
	ta.addAgent(t, "backend", "agent-1")

	b, err := ta.SubmitWork(ctx, SubmitOptions{Role: "backend", Title: "Task"})
	require.NoError(t, err)

	require.NoError(t, ta.ReportAgentGone(ctx, "agent-1"))

	agents, err := ta.Agents(ctx, agentpool.Filter{})
	require.NoError(t, err)
	require.Len(t, agents, 1)
	assert.False(t, agents[0].Available)
	assert.Equal(t, b.ID, agents[0].BranchID, "a gone agent keeps its claim")

	// Unknown agents are an error.
	assert.Error(t, ta.ReportAgentGone(ctx, "agent-unknown"))
}

func TestHostBranchCreationFailureSurfaced(t *testing.T) {
	ta := newTestApp(t)
	ctx := context.Background()
	ta.host.createErr = errors.New("remote rejected ref")
	ta.addAgent(t, "backend", "agent-1")

	b, err := ta.SubmitWork(ctx, SubmitOptions{Role: "backend", Title: "Doomed task"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "remote rejected ref")

	// The assignment itself stands; the operator is told about the missing ref.
	got, gerr := ta.Registry.Get(ctx, b.ID)
	require.NoError(t, gerr)
	assert.Equal(t, branch.StateInProgress, got.State)
	assert.Equal(t, "agent-1", got.AssignedAgent)

	p := testbus.FindPayload[eventbus.NotificationPublishedPayload](ta.bus, t, eventbus.EventNotificationPublished)
	assert.Contains(t, p.Message, "host branch")
}

// TestConcurrentSubmitSingleAgent floods one agent with concurrent
// submissions: exactly one branch may claim it.
func TestConcurrentSubmitSingleAgent(t *testing.T) {
	ta := newTestApp(t)
	ctx := context.Background()
	ta.addAgent(t, "backend", "agent-1")

	const n = 8
	results := make(chan branch.Branch, n)
	for i := 0; i < n; i++ {
		go func(i int) {
			b, err := ta.SubmitWork(ctx, SubmitOptions{Role: "backend", Title: "Concurrent task"})
			if err != nil {
				t.Error(err)
			}
			results <- b
		}(i)
	}

	assignedCount := 0
	for i := 0; i < n; i++ {
		b := <-results
		if b.State == branch.StateInProgress {
			assignedCount++
			assert.Equal(t, "agent-1", b.AssignedAgent)
		} else {
			assert.Equal(t, branch.StatePendingAssignment, b.State)
		}
	}
	assert.Equal(t, 1, assignedCount, "a single agent must be claimed exactly once")
}
