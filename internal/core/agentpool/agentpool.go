// Package agentpool tracks agent availability. The pool is a durable
// registry fed by availability reports from the outside; the control plane
// never starts, stops, or reasons about agents, it only claims the ones
// reported available.
package agentpool

import (
	"context"
	"errors"
	"time"

	"github.com/colonyops/foreman/internal/core/role"
)

// ErrNotFound is returned when an agent id is not in the registry.
var ErrNotFound = errors.New("agent not found")

// Agent is one worker in the pool. An agent is claimed for at most one
// branch at a time; claiming flips Available until the agent reports in
// again.
type Agent struct {
	ID        string    `json:"id"`
	Role      role.Role `json:"role"`
	Available bool      `json:"available"`

	// BranchID is the branch the agent is currently claimed for, empty
	// when idle.
	BranchID string `json:"branch_id,omitempty"`

	LastSeenAt time.Time `json:"last_seen_at"`
	CreatedAt  time.Time `json:"created_at"`
}

// Filter narrows List results. Zero values match everything.
type Filter struct {
	Role      role.Role
	Available *bool
}

// Store persists the agent registry.
type Store interface {
	// Upsert inserts or replaces an agent record.
	Upsert(ctx context.Context, agent Agent) error
	// Get returns an agent by id.
	Get(ctx context.Context, id string) (Agent, error)
	// List returns agents matching the filter, longest-idle first.
	List(ctx context.Context, filter Filter) ([]Agent, error)
	// ClaimAvailable atomically claims the longest-idle available agent of
	// the given role for a branch. Returns ok=false when none is available.
	ClaimAvailable(ctx context.Context, r role.Role, branchID string) (Agent, bool, error)
	// ReleaseBranch clears the claim on whichever agent holds the branch.
	// The agent stays unavailable until it reports in again.
	ReleaseBranch(ctx context.Context, branchID string) error
}
