// Package foreman implements the control plane services: the branch
// registry, the task router, the approval gate, and the integration
// serializer, composed behind the App facade.
package foreman

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/colonyops/foreman/internal/core/branch"
	"github.com/colonyops/foreman/internal/core/eventbus"
	"github.com/rs/zerolog"
)

// Audit actor identities for transitions the control plane initiates itself.
// Operator- and agent-initiated transitions carry the initiator instead.
const (
	actorRouter     = "router"
	actorGate       = "gate"
	actorSerializer = "serializer"
	actorOperator   = "operator"
)

// Registry owns branch records and is the single writer of lifecycle
// transitions. Every mutation runs under the branch's keyed lock, is checked
// against the adjacency table, persisted, written to the audit log, and
// published on the bus, in that order.
type Registry struct {
	branches    branch.Store
	transitions branch.Log
	bus         *eventbus.EventBus
	log         zerolog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewRegistry creates the branch registry.
func NewRegistry(branches branch.Store, transitions branch.Log, bus *eventbus.EventBus, log zerolog.Logger) *Registry {
	return &Registry{
		branches:    branches,
		transitions: transitions,
		bus:         bus,
		log:         log,
		locks:       make(map[string]*sync.Mutex),
	}
}

// lock takes the keyed mutex for one branch and returns its unlock func.
// Unrelated branches never contend. Entries live for the process lifetime;
// the map is bounded by the number of branches touched.
func (r *Registry) lock(id string) func() {
	r.mu.Lock()
	l, ok := r.locks[id]
	if !ok {
		l = &sync.Mutex{}
		r.locks[id] = l
	}
	r.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// Get returns a branch by ID.
func (r *Registry) Get(ctx context.Context, id string) (branch.Branch, error) {
	return r.branches.Get(ctx, id)
}

// GetWorkItem returns the work item a branch was opened for.
func (r *Registry) GetWorkItem(ctx context.Context, id string) (branch.WorkItem, error) {
	return r.branches.GetWorkItem(ctx, id)
}

// List returns branches matching the filter, oldest first.
func (r *Registry) List(ctx context.Context, f branch.Filter) ([]branch.Branch, error) {
	return r.branches.List(ctx, f)
}

// History returns a branch's audit trail, oldest first.
func (r *Registry) History(ctx context.Context, branchID string) ([]branch.Transition, error) {
	return r.transitions.ListByBranch(ctx, branchID)
}

// RecentHistory returns the newest transitions across all branches.
func (r *Registry) RecentHistory(ctx context.Context, limit int) ([]branch.Transition, error) {
	return r.transitions.ListRecent(ctx, limit)
}

// Transition moves a branch along one lifecycle edge under its lock.
func (r *Registry) Transition(ctx context.Context, id string, to branch.State, reason, actor string) (branch.Branch, error) {
	unlock := r.lock(id)
	defer unlock()

	b, err := r.branches.Get(ctx, id)
	if err != nil {
		return branch.Branch{}, err
	}
	if err := r.applyLocked(ctx, &b, to, reason, actor); err != nil {
		return branch.Branch{}, err
	}
	return b, nil
}

// Update applies a non-transition mutation to a branch under its lock.
func (r *Registry) Update(ctx context.Context, id string, mutate func(*branch.Branch) error) (branch.Branch, error) {
	unlock := r.lock(id)
	defer unlock()

	b, err := r.branches.Get(ctx, id)
	if err != nil {
		return branch.Branch{}, err
	}
	if err := mutate(&b); err != nil {
		return branch.Branch{}, err
	}
	b.UpdatedAt = time.Now()
	if err := r.branches.Save(ctx, b); err != nil {
		return branch.Branch{}, fmt.Errorf("save branch: %w", err)
	}
	return b, nil
}

// ReportWorkComplete records the completion signal for the current round of
// work. A data signal only: the branch stays in_progress until a review is
// requested.
func (r *Registry) ReportWorkComplete(ctx context.Context, branchID, summary string) (branch.Branch, error) {
	b, err := r.Update(ctx, branchID, func(b *branch.Branch) error {
		if b.State != branch.StateInProgress {
			return fmt.Errorf("%w: completion reported on %s branch %s", branch.ErrIllegalTransition, b.State, b.ID)
		}
		b.WorkCompletedAt = time.Now()
		b.WorkSummary = summary
		return nil
	})
	if err != nil {
		return branch.Branch{}, err
	}

	r.log.Info().Str("branch_id", b.ID).Str("agent_id", b.AssignedAgent).Msg("work reported complete")
	return b, nil
}

// applyLocked advances a branch, saves it, audits the edge, and publishes
// the transition. Callers must hold the branch lock. The save carries any
// field mutations the caller staged on b.
func (r *Registry) applyLocked(ctx context.Context, b *branch.Branch, to branch.State, reason, actor string) error {
	from := b.State
	now := time.Now()
	if err := b.Advance(to, now); err != nil {
		r.log.Debug().
			Str("branch_id", b.ID).
			Str("from", from.String()).
			Str("to", to.String()).
			Msg("transition refused")
		return err
	}

	if err := r.branches.Save(ctx, *b); err != nil {
		return fmt.Errorf("save branch: %w", err)
	}

	if _, err := r.transitions.Append(ctx, branch.Transition{
		BranchID:  b.ID,
		From:      from,
		To:        to,
		Reason:    reason,
		Actor:     actor,
		CreatedAt: now,
	}); err != nil {
		return fmt.Errorf("audit transition: %w", err)
	}

	r.log.Info().
		Str("branch_id", b.ID).
		Str("from", from.String()).
		Str("to", to.String()).
		Str("reason", reason).
		Str("actor", actor).
		Msg("branch transitioned")

	r.bus.PublishBranchTransitioned(eventbus.BranchTransitionedPayload{
		BranchID: b.ID,
		From:     from,
		To:       to,
		Reason:   reason,
		Actor:    actor,
	})
	return nil
}
