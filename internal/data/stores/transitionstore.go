package stores

import (
	"context"
	"fmt"
	"time"

	"github.com/colonyops/foreman/internal/core/branch"
	"github.com/colonyops/foreman/internal/data/db"
)

// TransitionStore implements branch.Log using SQLite.
type TransitionStore struct {
	db *db.DB
}

var _ branch.Log = (*TransitionStore)(nil)

// NewTransitionStore creates a new SQLite-backed transition log.
func NewTransitionStore(db *db.DB) *TransitionStore {
	return &TransitionStore{db: db}
}

// Append records a transition and returns its auto-generated ID.
func (s *TransitionStore) Append(ctx context.Context, tr branch.Transition) (int64, error) {
	id, err := s.db.Queries().InsertTransition(ctx, db.InsertTransitionParams{
		BranchID:  tr.BranchID,
		FromState: string(tr.From),
		ToState:   string(tr.To),
		Reason:    nullString(tr.Reason),
		Actor:     nullString(tr.Actor),
		CreatedAt: tr.CreatedAt.UnixNano(),
	})
	if err != nil {
		return 0, fmt.Errorf("insert transition: %w", err)
	}
	return id, nil
}

// ListByBranch returns a branch's transitions, oldest first.
func (s *TransitionStore) ListByBranch(ctx context.Context, branchID string) ([]branch.Transition, error) {
	rows, err := s.db.Queries().ListTransitionsByBranch(ctx, branchID)
	if err != nil {
		return nil, fmt.Errorf("list transitions: %w", err)
	}

	transitions := make([]branch.Transition, 0, len(rows))
	for _, row := range rows {
		transitions = append(transitions, rowToTransition(row))
	}
	return transitions, nil
}

// ListRecent returns the newest transitions across all branches.
func (s *TransitionStore) ListRecent(ctx context.Context, limit int) ([]branch.Transition, error) {
	rows, err := s.db.Queries().ListRecentTransitions(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("list recent transitions: %w", err)
	}

	transitions := make([]branch.Transition, 0, len(rows))
	for _, row := range rows {
		transitions = append(transitions, rowToTransition(row))
	}
	return transitions, nil
}

func rowToTransition(row db.Transition) branch.Transition {
	return branch.Transition{
		ID:        row.ID,
		BranchID:  row.BranchID,
		From:      branch.State(row.FromState),
		To:        branch.State(row.ToState),
		Reason:    row.Reason.String,
		Actor:     row.Actor.String,
		CreatedAt: time.Unix(0, row.CreatedAt),
	}
}
