package stores

import (
	"context"
	"fmt"
	"time"

	"github.com/colonyops/foreman/internal/core/branch"
	"github.com/colonyops/foreman/internal/core/lane"
	"github.com/colonyops/foreman/internal/core/role"
	"github.com/colonyops/foreman/internal/data/db"
)

// BranchStore implements branch.Store using SQLite.
type BranchStore struct {
	db *db.DB
}

var _ branch.Store = (*BranchStore)(nil)

// NewBranchStore creates a new SQLite-backed branch store.
func NewBranchStore(db *db.DB) *BranchStore {
	return &BranchStore{db: db}
}

// Create persists a new branch together with its work item in one transaction.
func (s *BranchStore) Create(ctx context.Context, b branch.Branch, item branch.WorkItem) error {
	return s.db.WithTx(ctx, func(q *db.Queries) error {
		err := q.CreateWorkItem(ctx, db.CreateWorkItemParams{
			ID:        item.ID,
			Role:      string(item.Role),
			Title:     item.Title,
			Payload:   nullString(item.Payload),
			CreatedAt: item.CreatedAt.UnixNano(),
		})
		if err != nil {
			return fmt.Errorf("failed to create work item: %w", err)
		}

		err = q.CreateBranch(ctx, db.CreateBranchParams{
			ID:                b.ID,
			WorkItemID:        b.WorkItemID,
			Role:              string(b.Role),
			Title:             b.Title,
			Target:            string(b.Target),
			State:             string(b.State),
			AssignedAgent:     nullString(b.AssignedAgent),
			HostBranch:        nullString(b.HostBranch),
			ReviewRound:       int64(b.ReviewRound),
			ReworkCount:       int64(b.ReworkCount),
			ConflictCount:     int64(b.ConflictCount),
			WorkSummary:       nullString(b.WorkSummary),
			WithdrawRequested: b.WithdrawRequested,
			WithdrawReason:    nullString(b.WithdrawReason),
			WorkCompletedAt:   nullTimeNano(b.WorkCompletedAt),
			CreatedAt:         b.CreatedAt.UnixNano(),
			UpdatedAt:         b.UpdatedAt.UnixNano(),
			ArchivedAt:        nullTimeNano(b.ArchivedAt),
		})
		if err != nil {
			return fmt.Errorf("failed to create branch: %w", err)
		}
		return nil
	})
}

// Save updates an existing branch. Returns branch.ErrNotFound for unknown IDs.
func (s *BranchStore) Save(ctx context.Context, b branch.Branch) error {
	affected, err := s.db.Queries().SaveBranch(ctx, db.SaveBranchParams{
		Role:              string(b.Role),
		Title:             b.Title,
		Target:            string(b.Target),
		State:             string(b.State),
		AssignedAgent:     nullString(b.AssignedAgent),
		HostBranch:        nullString(b.HostBranch),
		ReviewRound:       int64(b.ReviewRound),
		ReworkCount:       int64(b.ReworkCount),
		ConflictCount:     int64(b.ConflictCount),
		WorkSummary:       nullString(b.WorkSummary),
		WithdrawRequested: b.WithdrawRequested,
		WithdrawReason:    nullString(b.WithdrawReason),
		WorkCompletedAt:   nullTimeNano(b.WorkCompletedAt),
		UpdatedAt:         b.UpdatedAt.UnixNano(),
		ArchivedAt:        nullTimeNano(b.ArchivedAt),
		ID:                b.ID,
	})
	if err != nil {
		return fmt.Errorf("failed to save branch: %w", err)
	}
	if affected == 0 {
		return branch.ErrNotFound
	}
	return nil
}

// Get returns a branch by ID. Returns branch.ErrNotFound if not found.
func (s *BranchStore) Get(ctx context.Context, id string) (branch.Branch, error) {
	row, err := s.db.Queries().GetBranch(ctx, id)
	if IsNotFoundError(err) {
		return branch.Branch{}, branch.ErrNotFound
	}
	if err != nil {
		return branch.Branch{}, fmt.Errorf("failed to get branch: %w", err)
	}
	return rowToBranch(row), nil
}

// GetWorkItem returns the work item consumed by a branch.
func (s *BranchStore) GetWorkItem(ctx context.Context, id string) (branch.WorkItem, error) {
	row, err := s.db.Queries().GetWorkItem(ctx, id)
	if IsNotFoundError(err) {
		return branch.WorkItem{}, branch.ErrNotFound
	}
	if err != nil {
		return branch.WorkItem{}, fmt.Errorf("failed to get work item: %w", err)
	}
	return branch.WorkItem{
		ID:        row.ID,
		Role:      role.Role(row.Role),
		Title:     row.Title,
		Payload:   row.Payload.String,
		CreatedAt: time.Unix(0, row.CreatedAt),
	}, nil
}

// List returns branches matching the filter, oldest first. Archived branches
// are excluded unless the filter includes them.
func (s *BranchStore) List(ctx context.Context, f branch.Filter) ([]branch.Branch, error) {
	rows, err := s.db.Queries().ListBranches(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list branches: %w", err)
	}

	branches := make([]branch.Branch, 0, len(rows))
	for _, row := range rows {
		if f.State != "" && row.State != string(f.State) {
			continue
		}
		if f.Role != "" && row.Role != string(f.Role) {
			continue
		}
		if !f.IncludeArchived && row.ArchivedAt.Valid {
			continue
		}
		branches = append(branches, rowToBranch(row))
	}

	return branches, nil
}

// OldestUnassigned returns the earliest-created branch of the given role still
// waiting for an agent. Returns branch.ErrNotFound when none wait.
func (s *BranchStore) OldestUnassigned(ctx context.Context, r role.Role) (branch.Branch, error) {
	row, err := s.db.Queries().OldestUnassignedBranch(ctx, string(r))
	if IsNotFoundError(err) {
		return branch.Branch{}, branch.ErrNotFound
	}
	if err != nil {
		return branch.Branch{}, fmt.Errorf("failed to find unassigned branch: %w", err)
	}
	return rowToBranch(row), nil
}

// rowToBranch converts a db.Branch to a branch.Branch.
func rowToBranch(row db.Branch) branch.Branch {
	return branch.Branch{
		ID:                row.ID,
		WorkItemID:        row.WorkItemID,
		Role:              role.Role(row.Role),
		Title:             row.Title,
		Target:            lane.Target(row.Target),
		State:             branch.State(row.State),
		AssignedAgent:     row.AssignedAgent.String,
		HostBranch:        row.HostBranch.String,
		ReviewRound:       int(row.ReviewRound),
		ReworkCount:       int(row.ReworkCount),
		ConflictCount:     int(row.ConflictCount),
		WorkSummary:       row.WorkSummary.String,
		WithdrawRequested: row.WithdrawRequested,
		WithdrawReason:    row.WithdrawReason.String,
		WorkCompletedAt:   timeFromNano(row.WorkCompletedAt),
		CreatedAt:         time.Unix(0, row.CreatedAt),
		UpdatedAt:         time.Unix(0, row.UpdatedAt),
		ArchivedAt:        timeFromNano(row.ArchivedAt),
	}
}
