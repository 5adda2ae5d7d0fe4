package foreman

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/colonyops/foreman/internal/core/agentpool"
	"github.com/colonyops/foreman/internal/core/branch"
	"github.com/colonyops/foreman/internal/core/config"
	"github.com/colonyops/foreman/internal/core/eventbus"
	"github.com/colonyops/foreman/internal/core/hosting"
	"github.com/colonyops/foreman/internal/core/lane"
	"github.com/colonyops/foreman/internal/core/logging"
	"github.com/colonyops/foreman/internal/core/notify"
	"github.com/colonyops/foreman/internal/core/role"
	"github.com/colonyops/foreman/pkg/randid"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// SubmitOptions describes one work submission.
type SubmitOptions struct {
	Role        string // capability tag, must name a known role
	Title       string
	Description string // opaque payload, never interpreted
	Target      string // promotion target; empty uses the configured default
}

// Router accepts work submissions and matches branches to agents by role.
// Assignment is event-driven: availability reports trigger a retry over
// waiting branches, oldest submission first. The router never polls.
type Router struct {
	registry *Registry
	branches branch.Store
	agents   agentpool.Store
	host     hosting.Host
	config   *config.Config
	bus      *eventbus.EventBus
	log      zerolog.Logger
}

// NewRouter creates the task router.
func NewRouter(registry *Registry, branches branch.Store, agents agentpool.Store, host hosting.Host, cfg *config.Config, bus *eventbus.EventBus, log zerolog.Logger) *Router {
	return &Router{
		registry: registry,
		branches: branches,
		agents:   agents,
		host:     host,
		config:   cfg,
		bus:      bus,
		log:      log,
	}
}

// Register subscribes the router's assignment retry to availability events.
// Needed only by long-running invocations; one-shot commands assign
// synchronously inside ReportAgentAvailable.
func (s *Router) Register() {
	s.bus.SubscribeAgentAvailabilityChanged(func(p eventbus.AgentAvailabilityChangedPayload) {
		if !p.Available {
			return
		}
		if _, err := s.AssignPending(context.Background(), p.Role); err != nil {
			s.log.Error().Err(err).Str("role", p.Role.String()).Msg("event-driven assignment failed")
		}
	})
}

// Submit validates a work item, opens a branch for it, and routes it: to an
// available agent of the role when one exists, otherwise into
// pending_assignment to wait for the next availability report.
func (s *Router) Submit(ctx context.Context, opts SubmitOptions) (branch.Branch, error) {
	r, err := role.Parse(opts.Role)
	if err != nil {
		return branch.Branch{}, err
	}

	title := strings.TrimSpace(opts.Title)
	if title == "" {
		return branch.Branch{}, fmt.Errorf("submit: title is required")
	}

	target := s.config.DefaultTarget
	if opts.Target != "" {
		target, err = lane.ParseTarget(opts.Target)
		if err != nil {
			return branch.Branch{}, err
		}
	}

	now := time.Now()
	item := branch.WorkItem{
		ID:        uuid.NewString(),
		Role:      r,
		Title:     title,
		Payload:   opts.Description,
		CreatedAt: now,
	}
	b := branch.Branch{
		ID:         "br_" + randid.Generate(8),
		WorkItemID: item.ID,
		Role:       r,
		Title:      title,
		Target:     target,
		State:      branch.StateCreated,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.branches.Create(ctx, b, item); err != nil {
		return branch.Branch{}, fmt.Errorf("create branch: %w", err)
	}

	s.log.Info().
		Str("branch_id", b.ID).
		Str("role", r.String()).
		Str("target", target.String()).
		Str("title", title).
		Msg("work submitted")
	s.bus.PublishBranchCreated(eventbus.BranchCreatedPayload{Branch: &b})

	assigned, ok, err := s.tryAssign(ctx, b.ID)
	if err != nil {
		return assigned, err
	}
	if ok {
		return assigned, nil
	}

	return s.registry.Transition(ctx, b.ID, branch.StatePendingAssignment, "no "+r.String()+" agent available", actorRouter)
}

// ReportAgentAvailable records an agent as ready for work and immediately
// retries assignment for its role, then publishes the availability change
// for any subscribed worker. An available report clears any previous claim.
func (s *Router) ReportAgentAvailable(ctx context.Context, r role.Role, agentID string) error {
	if !r.Valid() {
		return fmt.Errorf("%w: %q", role.ErrUnknownRole, r)
	}
	if strings.TrimSpace(agentID) == "" {
		return fmt.Errorf("agent id is required")
	}

	now := time.Now()
	agent, err := s.agents.Get(ctx, agentID)
	if errors.Is(err, agentpool.ErrNotFound) {
		agent = agentpool.Agent{ID: agentID, CreatedAt: now}
	} else if err != nil {
		return err
	}

	agent.Role = r
	agent.Available = true
	agent.BranchID = ""
	agent.LastSeenAt = now
	if err := s.agents.Upsert(ctx, agent); err != nil {
		return fmt.Errorf("save agent: %w", err)
	}

	s.log.Debug().Str("agent_id", agentID).Str("role", r.String()).Msg("agent available")
	s.bus.PublishAgentAvailabilityChanged(eventbus.AgentAvailabilityChangedPayload{
		AgentID:   agentID,
		Role:      r,
		Available: true,
	})

	if _, err := s.AssignPending(ctx, r); err != nil {
		return fmt.Errorf("assign pending work: %w", err)
	}
	return nil
}

// ReportAgentGone marks an agent unavailable. Its claim, if any, is kept:
// the branch still belongs to the agent until it is closed or merged.
func (s *Router) ReportAgentGone(ctx context.Context, agentID string) error {
	agent, err := s.agents.Get(ctx, agentID)
	if err != nil {
		return err
	}

	agent.Available = false
	agent.LastSeenAt = time.Now()
	if err := s.agents.Upsert(ctx, agent); err != nil {
		return fmt.Errorf("save agent: %w", err)
	}

	s.log.Debug().Str("agent_id", agentID).Msg("agent gone")
	s.bus.PublishAgentAvailabilityChanged(eventbus.AgentAvailabilityChangedPayload{
		AgentID:   agentID,
		Role:      agent.Role,
		Available: false,
	})
	return nil
}

// Agents returns pool members matching the filter, longest idle first.
func (s *Router) Agents(ctx context.Context, filter agentpool.Filter) ([]agentpool.Agent, error) {
	return s.agents.List(ctx, filter)
}

// AssignPending assigns waiting branches of one role to available agents,
// oldest submission first, until either side runs out. Returns the number
// of branches assigned.
func (s *Router) AssignPending(ctx context.Context, r role.Role) (int, error) {
	assigned := 0
	for {
		b, err := s.branches.OldestUnassigned(ctx, r)
		if errors.Is(err, branch.ErrNotFound) {
			return assigned, nil
		}
		if err != nil {
			return assigned, err
		}

		_, ok, err := s.tryAssign(ctx, b.ID)
		if err != nil {
			return assigned, err
		}
		if !ok {
			return assigned, nil
		}
		assigned++
	}
}

// tryAssign claims an available agent for the branch and activates it. The
// claim happens under the branch lock, so concurrent assignment paths
// cannot double-claim. Returns ok=false (nil error) when no agent of the
// branch's role is available.
func (s *Router) tryAssign(ctx context.Context, branchID string) (branch.Branch, bool, error) {
	unlock := s.registry.lock(branchID)
	defer unlock()

	b, err := s.branches.Get(ctx, branchID)
	if err != nil {
		return branch.Branch{}, false, err
	}
	if b.State != branch.StateCreated && b.State != branch.StatePendingAssignment {
		// A concurrent path won the race; nothing to do.
		return b, false, nil
	}

	agent, ok, err := s.agents.ClaimAvailable(ctx, b.Role, b.ID)
	if err != nil {
		return b, false, fmt.Errorf("claim agent: %w", err)
	}
	if !ok {
		return b, false, nil
	}

	hostBranch, err := hosting.BranchName(s.config.BranchTemplate, b.Role, b.Title)
	if err != nil {
		s.releaseClaim(ctx, b.ID)
		return b, false, err
	}

	ctx = logging.WithAgentID(logging.WithBranchID(ctx, b.ID), agent.ID)
	b.AssignedAgent = agent.ID
	b.HostBranch = hostBranch
	if err := s.registry.applyLocked(ctx, &b, branch.StateInProgress, "assigned to "+agent.ID, actorRouter); err != nil {
		s.releaseClaim(ctx, b.ID)
		return b, false, err
	}

	s.log.Info().
		Str("branch_id", b.ID).
		Str("agent_id", agent.ID).
		Str("host_branch", hostBranch).
		Msg("branch assigned")
	s.bus.PublishBranchAssigned(eventbus.BranchAssignedPayload{Branch: &b, AgentID: agent.ID})

	if err := s.host.CreateBranch(ctx, hostBranch, s.config.LaneBranch(b.Target)); err != nil {
		// The assignment stands; the missing host branch is an operator
		// problem, reported as both a notification and an error.
		s.log.Error().Err(err).Str("branch_id", b.ID).Str("host_branch", hostBranch).Msg("host branch creation failed")
		s.bus.PublishNotificationPublished(eventbus.NotificationPublishedPayload{
			Level:   notify.LevelError,
			Message: fmt.Sprintf("branch %s assigned to %s but host branch %s was not created: %v", b.ID, agent.ID, hostBranch, err),
		})
		return b, true, fmt.Errorf("create host branch %s: %w", hostBranch, err)
	}

	return b, true, nil
}

func (s *Router) releaseClaim(ctx context.Context, branchID string) {
	if err := s.agents.ReleaseBranch(ctx, branchID); err != nil {
		s.log.Warn().Err(err).Str("branch_id", branchID).Msg("claim release failed")
	}
}
