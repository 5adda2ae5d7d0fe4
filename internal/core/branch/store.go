package branch

import (
	"context"

	"github.com/colonyops/foreman/internal/core/role"
)

// Filter narrows List results. Zero values mean "any".
type Filter struct {
	State           State
	Role            role.Role
	IncludeArchived bool
}

// Store persists branches and their source work items.
type Store interface {
	// Create persists a new branch together with its work item in one
	// transaction.
	Create(ctx context.Context, b Branch, item WorkItem) error

	// Save updates an existing branch. Returns ErrNotFound for unknown IDs.
	Save(ctx context.Context, b Branch) error

	// Get returns a branch by ID. Returns ErrNotFound if missing.
	Get(ctx context.Context, id string) (Branch, error)

	// GetWorkItem returns the work item consumed by a branch.
	GetWorkItem(ctx context.Context, id string) (WorkItem, error)

	// List returns branches matching the filter, oldest first. Archived
	// branches are excluded unless the filter includes them.
	List(ctx context.Context, f Filter) ([]Branch, error)

	// OldestUnassigned returns the earliest-created branch of the given role
	// still waiting for an agent. Returns ErrNotFound when none wait.
	OldestUnassigned(ctx context.Context, r role.Role) (Branch, error)
}
