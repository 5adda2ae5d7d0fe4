package foreman

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/colonyops/foreman/internal/core/agentpool"
	"github.com/colonyops/foreman/internal/core/branch"
	"github.com/colonyops/foreman/internal/core/config"
	"github.com/colonyops/foreman/internal/core/eventbus"
	"github.com/colonyops/foreman/internal/core/hosting"
	"github.com/colonyops/foreman/internal/core/lane"
	"github.com/colonyops/foreman/internal/core/policy"
	"github.com/colonyops/foreman/internal/core/role"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DecisionOptions carries the optional parts of an approval decision.
type DecisionOptions struct {
	Note     string
	Findings []policy.Finding
}

// Gate guards the promotion boundary. It opens review rounds, records
// approval decisions, and evaluates them against the configured policy
// table; a satisfied policy advances the branch into its lane queue.
type Gate struct {
	registry  *Registry
	branches  branch.Store
	approvals policy.Store
	lanes     lane.Queue
	agents    agentpool.Store
	host      hosting.Host
	config    *config.Config
	bus       *eventbus.EventBus
	log       zerolog.Logger
}

// NewGate creates the approval gate.
func NewGate(registry *Registry, branches branch.Store, approvals policy.Store, lanes lane.Queue, agents agentpool.Store, host hosting.Host, cfg *config.Config, bus *eventbus.EventBus, log zerolog.Logger) *Gate {
	return &Gate{
		registry:  registry,
		branches:  branches,
		approvals: approvals,
		lanes:     lanes,
		agents:    agents,
		host:      host,
		config:    cfg,
		bus:       bus,
		log:       log,
	}
}

// RequestReview moves an in_progress branch into review and opens a new
// approval round. Work must have been reported complete first. Opening a
// round supersedes any earlier round: its decisions can never satisfy a
// later promotion.
func (s *Gate) RequestReview(ctx context.Context, branchID string) (branch.Branch, error) {
	unlock := s.registry.lock(branchID)
	defer unlock()

	b, err := s.branches.Get(ctx, branchID)
	if err != nil {
		return branch.Branch{}, err
	}

	if b.State == branch.StateInProgress && !b.WorkComplete() {
		return branch.Branch{}, fmt.Errorf("%w: branch %s has no completed work to review", policy.ErrNotReadyForApproval, branchID)
	}

	actor := actorGate
	if b.AssignedAgent != "" {
		actor = b.AssignedAgent
	}

	b.ReviewRound++
	if err := s.registry.applyLocked(ctx, &b, branch.StateReviewRequested, fmt.Sprintf("review round %d opened", b.ReviewRound), actor); err != nil {
		return branch.Branch{}, err
	}

	stats := s.diffStats(ctx, &b)
	s.log.Info().
		Str("branch_id", b.ID).
		Int("round", b.ReviewRound).
		Int("files", stats.Files).
		Msg("review requested")
	s.bus.PublishReviewRequested(eventbus.ReviewRequestedPayload{Branch: &b, Round: b.ReviewRound, Stats: stats})

	return b, nil
}

// RecordDecision appends one approver's verdict to the branch's open review
// round and acts on the result: a satisfying approval advances the branch
// into its lane queue, a rejection finalizes the round and routes the branch
// back to rework or closes it at the configured limit.
func (s *Gate) RecordDecision(ctx context.Context, branchID string, approver role.Role, verdict policy.Verdict, opts DecisionOptions) (policy.Outcome, error) {
	if !approver.Valid() {
		return policy.Outcome{}, fmt.Errorf("%w: %q", role.ErrUnknownRole, approver)
	}

	unlock := s.registry.lock(branchID)
	defer unlock()

	b, err := s.branches.Get(ctx, branchID)
	if err != nil {
		return policy.Outcome{}, err
	}

	switch b.State {
	case branch.StateReviewRequested:
		// Round is open, decision accepted.
	case branch.StateCreated, branch.StatePendingAssignment, branch.StateInProgress:
		return policy.Outcome{}, fmt.Errorf("%w: branch %s is %s, no review round is open", policy.ErrNotReadyForApproval, branchID, b.State)
	default:
		// The round was already finalized; repeating the decision is an
		// illegal transition, so replays cannot double-apply.
		return policy.Outcome{}, fmt.Errorf("%w: decision on %s branch %s", branch.ErrIllegalTransition, b.State, branchID)
	}

	d := policy.Decision{
		ID:        uuid.NewString(),
		BranchID:  b.ID,
		Round:     b.ReviewRound,
		Role:      approver,
		Verdict:   verdict,
		Note:      opts.Note,
		Findings:  opts.Findings,
		CreatedAt: time.Now(),
	}
	if err := s.approvals.Append(ctx, d); err != nil {
		return policy.Outcome{}, fmt.Errorf("record decision: %w", err)
	}

	outcome, err := s.evaluateRound(ctx, &b)
	if err != nil {
		return policy.Outcome{}, err
	}

	s.log.Info().
		Str("branch_id", b.ID).
		Int("round", b.ReviewRound).
		Str("role", approver.String()).
		Str("verdict", string(verdict)).
		Bool("satisfied", outcome.Satisfied).
		Msg("decision recorded")
	s.bus.PublishDecisionRecorded(eventbus.DecisionRecordedPayload{
		BranchID: b.ID,
		Round:    b.ReviewRound,
		Role:     approver,
		Verdict:  verdict,
		Outcome:  outcome,
	})

	if verdict == policy.VerdictReject {
		return outcome, s.rejectLocked(ctx, &b, approver)
	}
	if outcome.Satisfied {
		if err := s.advanceToQueueLocked(ctx, &b, approver.String()); err != nil {
			return outcome, err
		}
	}
	return outcome, nil
}

// RequestPromotion evaluates the branch's open review round against the
// policy without recording a decision. A satisfied policy advances the
// branch into its lane queue, exactly as an accepting decision would; a
// round containing a rejection reports ErrApprovalRejected.
func (s *Gate) RequestPromotion(ctx context.Context, branchID string) (policy.Outcome, error) {
	unlock := s.registry.lock(branchID)
	defer unlock()

	b, err := s.branches.Get(ctx, branchID)
	if err != nil {
		return policy.Outcome{}, err
	}

	if b.State != branch.StateReviewRequested {
		return policy.Outcome{}, fmt.Errorf("%w: branch %s is %s", policy.ErrNotReadyForApproval, branchID, b.State)
	}

	outcome, err := s.evaluateRound(ctx, &b)
	if err != nil {
		return policy.Outcome{}, err
	}

	if outcome.Rejected {
		return outcome, fmt.Errorf("branch %s round %d: %w", branchID, b.ReviewRound, policy.ErrApprovalRejected)
	}
	if !outcome.Satisfied {
		return outcome, nil
	}
	if err := s.advanceToQueueLocked(ctx, &b, actorGate); err != nil {
		return outcome, err
	}
	return outcome, nil
}

// ReevaluateReviews re-runs the policy for every branch in review, advancing
// any whose open round satisfies the current table. Called after a policy
// reload; a stricter table simply leaves branches where they are.
func (s *Gate) ReevaluateReviews(ctx context.Context) (int, error) {
	list, err := s.branches.List(ctx, branch.Filter{State: branch.StateReviewRequested})
	if err != nil {
		return 0, fmt.Errorf("list branches in review: %w", err)
	}

	advanced := 0
	for i := range list {
		outcome, err := s.RequestPromotion(ctx, list[i].ID)
		if errors.Is(err, policy.ErrApprovalRejected) || errors.Is(err, policy.ErrNotReadyForApproval) {
			continue
		}
		if err != nil {
			return advanced, err
		}
		if outcome.Satisfied {
			advanced++
		}
	}
	return advanced, nil
}

// Decisions returns every decision ever recorded for a branch.
func (s *Gate) Decisions(ctx context.Context, branchID string) ([]policy.Decision, error) {
	return s.approvals.ListByBranch(ctx, branchID)
}

// RoundDecisions returns the decisions of one review round, oldest first.
func (s *Gate) RoundDecisions(ctx context.Context, branchID string, round int) ([]policy.Decision, error) {
	return s.approvals.ListRound(ctx, branchID, round)
}

// evaluateRound evaluates the branch's current round against the policy.
func (s *Gate) evaluateRound(ctx context.Context, b *branch.Branch) (policy.Outcome, error) {
	decisions, err := s.approvals.ListRound(ctx, b.ID, b.ReviewRound)
	if err != nil {
		return policy.Outcome{}, fmt.Errorf("list round decisions: %w", err)
	}
	return s.config.Policy.Evaluate(b.Target, decisions)
}

// rejectLocked finalizes the round as rejected, then routes the branch back
// to rework or closes it once rejections reach the configured limit.
func (s *Gate) rejectLocked(ctx context.Context, b *branch.Branch, approver role.Role) error {
	if err := s.registry.applyLocked(ctx, b, branch.StateRejected, "review rejected", approver.String()); err != nil {
		return err
	}

	b.ReworkCount++
	if b.ReworkCount >= s.config.ReworkLimit {
		if err := s.registry.applyLocked(ctx, b, branch.StateClosed, fmt.Sprintf("rework limit reached after %d rejections", b.ReworkCount), actorGate); err != nil {
			return err
		}
		if b.AssignedAgent != "" {
			if err := s.agents.ReleaseBranch(ctx, b.ID); err != nil {
				s.log.Warn().Err(err).Str("branch_id", b.ID).Msg("claim release failed")
			}
		}
		s.bus.PublishReworkLimitReached(eventbus.ReworkLimitReachedPayload{Branch: b, Count: b.ReworkCount})
		return fmt.Errorf("branch %s: %w (%d rejections)", b.ID, branch.ErrReworkLimitExceeded, b.ReworkCount)
	}

	b.ResetWork()
	return s.registry.applyLocked(ctx, b, branch.StateInProgress, fmt.Sprintf("rework round %d", b.ReworkCount), actorGate)
}

// advanceToQueueLocked performs the approved -> queued_for_merge advancement
// and appends the branch to its lane's queue.
func (s *Gate) advanceToQueueLocked(ctx context.Context, b *branch.Branch, actor string) error {
	if err := s.registry.applyLocked(ctx, b, branch.StateApproved, "policy satisfied", actor); err != nil {
		return err
	}
	if err := s.registry.applyLocked(ctx, b, branch.StateQueuedForMerge, "entering "+b.Target.String()+" lane", actor); err != nil {
		return err
	}

	if err := s.lanes.Enqueue(ctx, lane.Entry{Lane: b.Target, BranchID: b.ID, EnqueuedAt: time.Now()}); err != nil {
		return fmt.Errorf("enqueue branch: %w", err)
	}
	publishLaneDepth(ctx, s.lanes, s.bus, s.log, b.Target)
	return nil
}

// diffStats asks the host for best-effort review numbers; zero on failure.
func (s *Gate) diffStats(ctx context.Context, b *branch.Branch) hosting.DiffStats {
	if b.HostBranch == "" {
		return hosting.DiffStats{}
	}
	stats, err := s.host.DiffSummary(ctx, b.HostBranch, s.config.LaneBranch(b.Target))
	if err != nil {
		s.log.Warn().Err(err).Str("branch_id", b.ID).Msg("diff summary unavailable")
		return hosting.DiffStats{}
	}
	return stats
}
