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
	"github.com/colonyops/foreman/internal/core/logging"
	"github.com/rs/zerolog"
)

// LaneStatus describes one promotion lane for operators.
type LaneStatus struct {
	Target  lane.Target  `json:"target"`
	Busy    bool         `json:"busy"`
	Entries []lane.Entry `json:"entries"`
}

// Serializer drives promotions. Each lane has one token; holding it is the
// only way to merge into that lane's branch, so promotions into one target
// are strictly serial while different targets proceed independently.
type Serializer struct {
	registry *Registry
	branches branch.Store
	lanes    lane.Queue
	tokens   *lane.Tokens
	agents   agentpool.Store
	host     hosting.Host
	config   *config.Config
	bus      *eventbus.EventBus
	log      zerolog.Logger
}

// NewSerializer creates the integration serializer.
func NewSerializer(registry *Registry, branches branch.Store, lanes lane.Queue, tokens *lane.Tokens, agents agentpool.Store, host hosting.Host, cfg *config.Config, bus *eventbus.EventBus, log zerolog.Logger) *Serializer {
	return &Serializer{
		registry: registry,
		branches: branches,
		lanes:    lanes,
		tokens:   tokens,
		agents:   agents,
		host:     host,
		config:   cfg,
		bus:      bus,
		log:      log,
	}
}

// Promote waits for the branch's lane token and performs the promotion.
// A conflict outcome is settled locally and reported as an event; the call
// itself returns nil.
func (s *Serializer) Promote(ctx context.Context, branchID string) error {
	b, err := s.branches.Get(ctx, branchID)
	if err != nil {
		return err
	}

	tok := s.tokens.Lane(b.Target)
	if err := tok.Acquire(ctx); err != nil {
		return err
	}
	return s.promote(ctx, tok, branchID)
}

// TryPromote attempts the promotion without waiting. A held lane fails with
// lane.ErrLaneUnavailable; the caller retries once the in-flight promotion
// resolves.
func (s *Serializer) TryPromote(ctx context.Context, branchID string) error {
	b, err := s.branches.Get(ctx, branchID)
	if err != nil {
		return err
	}

	tok := s.tokens.Lane(b.Target)
	if err := tok.TryAcquire(); err != nil {
		return err
	}
	return s.promote(ctx, tok, branchID)
}

// Pump promotes lane heads in FIFO order until every lane is empty or busy.
// Returns the number of promotions performed. Entries whose branch can no
// longer merge are dropped so a stale head cannot wedge the lane.
func (s *Serializer) Pump(ctx context.Context) (int, error) {
	promoted := 0
	for _, t := range lane.Targets() {
		for {
			head, ok, err := s.lanes.Head(ctx, t)
			if err != nil {
				return promoted, fmt.Errorf("lane %s head: %w", t, err)
			}
			if !ok {
				break
			}

			err = s.TryPromote(ctx, head.BranchID)
			if errors.Is(err, lane.ErrLaneUnavailable) {
				break
			}
			if errors.Is(err, branch.ErrIllegalTransition) ||
				errors.Is(err, branch.ErrNotFound) ||
				errors.Is(err, branch.ErrMergeConflict) {
				s.log.Warn().Err(err).Str("branch_id", head.BranchID).Msg("dropping stale lane entry")
				if err := s.lanes.Remove(ctx, head.BranchID); err != nil {
					return promoted, fmt.Errorf("remove stale lane entry: %w", err)
				}
				publishLaneDepth(ctx, s.lanes, s.bus, s.log, t)
				continue
			}
			if err != nil {
				return promoted, err
			}
			promoted++
		}
	}
	return promoted, nil
}

// Withdraw cancels a branch. Before merging the branch closes immediately;
// during merging the request is queued and applied once the in-flight merge
// resolves. Terminal branches refuse with ErrIllegalTransition.
func (s *Serializer) Withdraw(ctx context.Context, branchID, reason string) (branch.Branch, error) {
	unlock := s.registry.lock(branchID)
	defer unlock()

	b, err := s.branches.Get(ctx, branchID)
	if err != nil {
		return branch.Branch{}, err
	}

	if b.State == branch.StateMerging {
		b.WithdrawRequested = true
		b.WithdrawReason = reason
		b.UpdatedAt = time.Now()
		if err := s.branches.Save(ctx, b); err != nil {
			return branch.Branch{}, fmt.Errorf("save branch: %w", err)
		}
		s.log.Info().Str("branch_id", b.ID).Msg("withdrawal queued behind in-flight merge")
		s.bus.PublishWithdrawQueued(eventbus.WithdrawQueuedPayload{BranchID: b.ID, Reason: reason})
		return b, nil
	}

	wasQueued := b.State == branch.StateQueuedForMerge
	b.WithdrawReason = reason
	if err := s.registry.applyLocked(ctx, &b, branch.StateClosed, withdrawnReason(reason), actorOperator); err != nil {
		return branch.Branch{}, err
	}

	if wasQueued {
		if err := s.lanes.Remove(ctx, b.ID); err != nil {
			s.log.Warn().Err(err).Str("branch_id", b.ID).Msg("lane entry removal failed")
		}
		publishLaneDepth(ctx, s.lanes, s.bus, s.log, b.Target)
	}
	s.releaseClaim(ctx, &b)
	return b, nil
}

// Recover settles branches left in merging by a previous process. The merge
// outcome is unknown, so each is treated as not applied and handed back
// through the conflict path. Runs before any new promotion at startup.
func (s *Serializer) Recover(ctx context.Context) (int, error) {
	list, err := s.branches.List(ctx, branch.Filter{State: branch.StateMerging})
	if err != nil {
		return 0, fmt.Errorf("list merging branches: %w", err)
	}

	for i := range list {
		b := list[i]
		tok := s.tokens.Lane(b.Target)
		if err := tok.TryAcquire(); err != nil {
			return i, fmt.Errorf("lane %s: %w", b.Target, err)
		}
		if err := s.settleConflict(ctx, tok, b.ID, "merge outcome unknown after restart", nil); err != nil {
			return i, err
		}
		s.log.Warn().Str("branch_id", b.ID).Msg("in-flight merge recovered to conflict")
	}
	return len(list), nil
}

// Lanes reports each lane's token state and queued entries.
func (s *Serializer) Lanes(ctx context.Context) ([]LaneStatus, error) {
	statuses := make([]LaneStatus, 0, len(lane.Targets()))
	for _, t := range lane.Targets() {
		entries, err := s.lanes.List(ctx, t)
		if err != nil {
			return nil, fmt.Errorf("list lane %s: %w", t, err)
		}
		statuses = append(statuses, LaneStatus{
			Target:  t,
			Busy:    s.tokens.Lane(t).Held(),
			Entries: entries,
		})
	}
	return statuses, nil
}

// QueuePosition returns a branch's 1-based place in its lane queue, zero
// when not queued.
func (s *Serializer) QueuePosition(ctx context.Context, branchID string, t lane.Target) (int, error) {
	entries, err := s.lanes.List(ctx, t)
	if err != nil {
		return 0, err
	}
	for i, e := range entries {
		if e.BranchID == branchID {
			return i + 1, nil
		}
	}
	return 0, nil
}

// promote runs one promotion while holding the lane token. The token is
// released on every path: after cleanup on a clean merge, immediately after
// the conflict transition otherwise.
func (s *Serializer) promote(ctx context.Context, tok *lane.Token, branchID string) error {
	ctx = logging.WithBranchID(ctx, branchID)
	b, err := s.beginMerge(ctx, branchID)
	if err != nil {
		tok.Release()
		return err
	}

	target := s.config.LaneBranch(b.Target)
	result, mergeErr := s.host.Merge(ctx, b.HostBranch, target, hosting.MergeOptions{
		Squash:  true,
		Message: fmt.Sprintf("%s (%s)", b.Title, b.ID),
	})
	if mergeErr != nil {
		// The merge operation itself failed, not its content. The branch is
		// handed back as a conflict (outcome unknown means not applied) and
		// the failure is the caller's to see.
		if err := s.settleConflict(ctx, tok, b.ID, mergeErr.Error(), nil); err != nil {
			s.log.Error().Err(err).Str("branch_id", b.ID).Msg("conflict settlement failed")
		}
		return fmt.Errorf("merge %s into %s: %w", b.HostBranch, target, mergeErr)
	}

	if !result.Clean {
		return s.settleConflict(ctx, tok, b.ID, result.Reason, result.ConflictFiles)
	}
	return s.settleMerged(ctx, tok, b.ID, result.CommitSHA)
}

// beginMerge validates the branch under its lock and moves it to merging.
func (s *Serializer) beginMerge(ctx context.Context, branchID string) (branch.Branch, error) {
	unlock := s.registry.lock(branchID)
	defer unlock()

	b, err := s.branches.Get(ctx, branchID)
	if err != nil {
		return branch.Branch{}, err
	}
	if b.State == branch.StateConflict {
		// Settled conflicts hand the branch back automatically; resting here
		// means a settle was cut short. Reconciliation and a fresh review are
		// still the only way forward.
		return branch.Branch{}, fmt.Errorf("branch %s: %w", b.ID, branch.ErrMergeConflict)
	}
	if err := s.registry.applyLocked(ctx, &b, branch.StateMerging, "lane acquired", actorSerializer); err != nil {
		return branch.Branch{}, err
	}
	return b, nil
}

// settleMerged finalizes a clean merge: the branch is archived, its queue
// entry and agent claim are released, and the host feature branch is
// deleted. A withdrawal queued during the merge arrives too late and is
// discarded as superseded.
func (s *Serializer) settleMerged(ctx context.Context, tok *lane.Token, branchID, commitSHA string) error {
	unlock := s.registry.lock(branchID)

	b, err := s.branches.Get(ctx, branchID)
	if err != nil {
		unlock()
		tok.Release()
		return err
	}

	superseded := b.WithdrawRequested
	b.WithdrawRequested = false
	b.WithdrawReason = ""
	if err := s.registry.applyLocked(ctx, &b, branch.StateMerged, "merge completed", actorSerializer); err != nil {
		unlock()
		tok.Release()
		return err
	}
	unlock()

	if err := s.lanes.Remove(ctx, b.ID); err != nil {
		s.log.Warn().Err(err).Str("branch_id", b.ID).Msg("lane entry removal failed")
	}
	s.releaseClaim(ctx, &b)
	if b.HostBranch != "" {
		if err := s.host.DeleteBranch(ctx, b.HostBranch); err != nil {
			s.log.Warn().Err(err).Str("branch_id", b.ID).Str("host_branch", b.HostBranch).Msg("host branch cleanup failed")
		}
	}

	s.log.Info().
		Str("branch_id", b.ID).
		Str("lane", b.Target.String()).
		Str("commit", commitSHA).
		Msg("merge completed")
	if superseded {
		s.bus.PublishWithdrawSuperseded(eventbus.WithdrawSupersededPayload{BranchID: b.ID})
	}
	s.bus.PublishMergeCompleted(eventbus.MergeCompletedPayload{Branch: &b, Lane: b.Target, CommitSHA: commitSHA})
	publishLaneDepth(ctx, s.lanes, s.bus, s.log, b.Target)

	tok.Release()
	return nil
}

// settleConflict records a merge conflict: the lane is released as soon as
// the conflict transition lands, the queue entry is dropped, and the branch
// returns to its agent for reconciliation. It must pass through review again
// before re-queuing. A withdrawal queued during the merge closes the branch
// instead.
func (s *Serializer) settleConflict(ctx context.Context, tok *lane.Token, branchID, reason string, files []string) error {
	unlock := s.registry.lock(branchID)
	defer unlock()

	b, err := s.branches.Get(ctx, branchID)
	if err != nil {
		tok.Release()
		return err
	}

	b.ConflictCount++
	if err := s.registry.applyLocked(ctx, &b, branch.StateConflict, "merge conflict: "+reason, actorSerializer); err != nil {
		tok.Release()
		return err
	}
	tok.Release()

	if err := s.lanes.Remove(ctx, b.ID); err != nil {
		s.log.Warn().Err(err).Str("branch_id", b.ID).Msg("lane entry removal failed")
	}

	s.log.Warn().
		Str("branch_id", b.ID).
		Str("lane", b.Target.String()).
		Str("reason", reason).
		Strs("files", files).
		Msg("merge conflicted")
	s.bus.PublishMergeConflicted(eventbus.MergeConflictedPayload{Branch: &b, Lane: b.Target, Reason: reason, Files: files})
	publishLaneDepth(ctx, s.lanes, s.bus, s.log, b.Target)

	if b.WithdrawRequested {
		if err := s.registry.applyLocked(ctx, &b, branch.StateClosed, withdrawnReason(b.WithdrawReason), actorOperator); err != nil {
			return err
		}
		s.releaseClaim(ctx, &b)
		return nil
	}

	b.ResetWork()
	return s.registry.applyLocked(ctx, &b, branch.StateInProgress, "handed back for conflict reconciliation", actorSerializer)
}

func (s *Serializer) releaseClaim(ctx context.Context, b *branch.Branch) {
	if b.AssignedAgent == "" {
		return
	}
	if err := s.agents.ReleaseBranch(ctx, b.ID); err != nil {
		s.log.Warn().Err(err).Str("branch_id", b.ID).Msg("claim release failed")
	}
}

func withdrawnReason(reason string) string {
	if reason == "" {
		return "withdrawn"
	}
	return "withdrawn: " + reason
}

// publishLaneDepth publishes the current depth of one lane. Shared by the
// gate (enqueue) and the serializer (dequeue).
func publishLaneDepth(ctx context.Context, lanes lane.Queue, bus *eventbus.EventBus, log zerolog.Logger, t lane.Target) {
	depths, err := lanes.Depth(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("lane depth unavailable")
		return
	}
	bus.PublishLaneDepthChanged(eventbus.LaneDepthChangedPayload{Lane: t, Depth: depths[t]})
}
