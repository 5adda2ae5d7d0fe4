package stores

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/colonyops/foreman/internal/core/policy"
	"github.com/colonyops/foreman/internal/core/role"
	"github.com/colonyops/foreman/internal/data/db"
)

// ApprovalStore implements policy.Store using SQLite.
type ApprovalStore struct {
	db *db.DB
}

var _ policy.Store = (*ApprovalStore)(nil)

// NewApprovalStore creates a new SQLite-backed approval store.
func NewApprovalStore(db *db.DB) *ApprovalStore {
	return &ApprovalStore{db: db}
}

// Append records a decision in the branch's current round.
func (s *ApprovalStore) Append(ctx context.Context, d policy.Decision) error {
	// Marshal findings to JSON
	var findingsJSON string
	if len(d.Findings) > 0 {
		data, err := json.Marshal(d.Findings)
		if err != nil {
			return fmt.Errorf("failed to marshal findings: %w", err)
		}
		findingsJSON = string(data)
	}

	err := s.db.Queries().InsertApproval(ctx, db.InsertApprovalParams{
		ID:        d.ID,
		BranchID:  d.BranchID,
		Round:     int64(d.Round),
		Role:      string(d.Role),
		Verdict:   string(d.Verdict),
		Note:      nullString(d.Note),
		Findings:  nullString(findingsJSON),
		CreatedAt: d.CreatedAt.UnixNano(),
	})
	if err != nil {
		return fmt.Errorf("failed to insert approval: %w", err)
	}
	return nil
}

// ListRound returns the decisions of one review round, oldest first.
func (s *ApprovalStore) ListRound(ctx context.Context, branchID string, round int) ([]policy.Decision, error) {
	rows, err := s.db.Queries().ListApprovalsByRound(ctx, db.ListApprovalsByRoundParams{
		BranchID: branchID,
		Round:    int64(round),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list approvals: %w", err)
	}
	return rowsToDecisions(rows)
}

// ListByBranch returns every decision ever recorded for a branch.
func (s *ApprovalStore) ListByBranch(ctx context.Context, branchID string) ([]policy.Decision, error) {
	rows, err := s.db.Queries().ListApprovalsByBranch(ctx, branchID)
	if err != nil {
		return nil, fmt.Errorf("failed to list approvals: %w", err)
	}
	return rowsToDecisions(rows)
}

func rowsToDecisions(rows []db.Approval) ([]policy.Decision, error) {
	decisions := make([]policy.Decision, 0, len(rows))
	for _, row := range rows {
		d, err := rowToDecision(row)
		if err != nil {
			return nil, fmt.Errorf("failed to convert approval: %w", err)
		}
		decisions = append(decisions, d)
	}
	return decisions, nil
}

// rowToDecision converts a db.Approval to a policy.Decision.
func rowToDecision(row db.Approval) (policy.Decision, error) {
	var findings []policy.Finding
	if row.Findings.Valid {
		if err := json.Unmarshal([]byte(row.Findings.String), &findings); err != nil {
			return policy.Decision{}, fmt.Errorf("failed to unmarshal findings: %w", err)
		}
	}

	return policy.Decision{
		ID:        row.ID,
		BranchID:  row.BranchID,
		Round:     int(row.Round),
		Role:      role.Role(row.Role),
		Verdict:   policy.Verdict(row.Verdict),
		Note:      row.Note.String,
		Findings:  findings,
		CreatedAt: time.Unix(0, row.CreatedAt),
	}, nil
}
