package branch

import (
	"context"
	"time"
)

// Transition is one audited lifecycle edge. Every successful transition is
// recorded; the log is append-only and mirrors the published events.
type Transition struct {
	ID        int64     `json:"id"`
	BranchID  string    `json:"branch_id"`
	From      State     `json:"from"`
	To        State     `json:"to"`
	Reason    string    `json:"reason,omitempty"`
	Actor     string    `json:"actor,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Log persists the transition audit trail.
type Log interface {
	// Append records a transition and returns its assigned ID.
	Append(ctx context.Context, tr Transition) (int64, error)

	// ListByBranch returns a branch's transitions, oldest first.
	ListByBranch(ctx context.Context, branchID string) ([]Transition, error)

	// ListRecent returns the newest transitions across all branches,
	// newest first, capped at limit.
	ListRecent(ctx context.Context, limit int) ([]Transition, error)
}
