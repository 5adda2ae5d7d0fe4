package stores

import (
	"context"
	"fmt"
	"time"

	"github.com/colonyops/foreman/internal/core/lane"
	"github.com/colonyops/foreman/internal/data/db"
)

// LaneStore implements lane.Queue using SQLite.
type LaneStore struct {
	db *db.DB
}

var _ lane.Queue = (*LaneStore)(nil)

// NewLaneStore creates a new SQLite-backed lane queue.
func NewLaneStore(db *db.DB) *LaneStore {
	return &LaneStore{db: db}
}

// Enqueue appends a branch to the lane's queue. Re-enqueueing a branch
// already waiting is a no-op.
func (s *LaneStore) Enqueue(ctx context.Context, e lane.Entry) error {
	err := s.db.Queries().EnqueueLaneEntry(ctx, db.EnqueueLaneEntryParams{
		BranchID:   e.BranchID,
		Lane:       string(e.Lane),
		EnqueuedAt: e.EnqueuedAt.UnixNano(),
	})
	if err != nil {
		return fmt.Errorf("failed to enqueue branch: %w", err)
	}
	return nil
}

// Head returns the next entry in FIFO order without removing it. Ties on
// enqueue time break by branch creation time.
func (s *LaneStore) Head(ctx context.Context, t lane.Target) (lane.Entry, bool, error) {
	row, err := s.db.Queries().HeadLaneEntry(ctx, string(t))
	if IsNotFoundError(err) {
		return lane.Entry{}, false, nil
	}
	if err != nil {
		return lane.Entry{}, false, fmt.Errorf("failed to read lane head: %w", err)
	}

	return lane.Entry{
		Lane:       lane.Target(row.Lane),
		BranchID:   row.BranchID,
		EnqueuedAt: time.Unix(0, row.EnqueuedAt),
	}, true, nil
}

// Remove deletes a branch from its lane queue.
func (s *LaneStore) Remove(ctx context.Context, branchID string) error {
	if err := s.db.Queries().RemoveLaneEntry(ctx, branchID); err != nil {
		return fmt.Errorf("failed to remove lane entry: %w", err)
	}
	return nil
}

// Depth returns the number of branches waiting per lane. Lanes with no
// waiting branches are reported as zero.
func (s *LaneStore) Depth(ctx context.Context) (map[lane.Target]int, error) {
	rows, err := s.db.Queries().LaneDepths(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read lane depths: %w", err)
	}

	depths := make(map[lane.Target]int, len(lane.Targets()))
	for _, t := range lane.Targets() {
		depths[t] = 0
	}
	for _, row := range rows {
		depths[lane.Target(row.Lane)] = int(row.Depth)
	}
	return depths, nil
}

// List returns a lane's entries in promotion order.
func (s *LaneStore) List(ctx context.Context, t lane.Target) ([]lane.Entry, error) {
	rows, err := s.db.Queries().ListLaneEntries(ctx, string(t))
	if err != nil {
		return nil, fmt.Errorf("failed to list lane entries: %w", err)
	}

	entries := make([]lane.Entry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, lane.Entry{
			Lane:       lane.Target(row.Lane),
			BranchID:   row.BranchID,
			EnqueuedAt: time.Unix(0, row.EnqueuedAt),
		})
	}
	return entries, nil
}
