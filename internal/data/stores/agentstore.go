package stores

import (
	"context"
	"fmt"
	"time"

	"github.com/colonyops/foreman/internal/core/agentpool"
	"github.com/colonyops/foreman/internal/core/role"
	"github.com/colonyops/foreman/internal/data/db"
)

// AgentStore implements agentpool.Store using SQLite.
type AgentStore struct {
	db *db.DB
}

var _ agentpool.Store = (*AgentStore)(nil)

// NewAgentStore creates a new SQLite-backed agent store.
func NewAgentStore(db *db.DB) *AgentStore {
	return &AgentStore{db: db}
}

// Upsert inserts or replaces an agent record.
func (s *AgentStore) Upsert(ctx context.Context, agent agentpool.Agent) error {
	err := s.db.Queries().UpsertAgent(ctx, db.UpsertAgentParams{
		ID:         agent.ID,
		Role:       string(agent.Role),
		Available:  agent.Available,
		BranchID:   nullString(agent.BranchID),
		LastSeenAt: agent.LastSeenAt.UnixNano(),
		CreatedAt:  agent.CreatedAt.UnixNano(),
	})
	if err != nil {
		return fmt.Errorf("failed to upsert agent: %w", err)
	}
	return nil
}

// Get returns an agent by id. Returns agentpool.ErrNotFound if not found.
func (s *AgentStore) Get(ctx context.Context, id string) (agentpool.Agent, error) {
	row, err := s.db.Queries().GetAgent(ctx, id)
	if IsNotFoundError(err) {
		return agentpool.Agent{}, agentpool.ErrNotFound
	}
	if err != nil {
		return agentpool.Agent{}, fmt.Errorf("failed to get agent: %w", err)
	}
	return rowToAgent(row), nil
}

// List returns agents matching the filter, longest-idle first.
func (s *AgentStore) List(ctx context.Context, filter agentpool.Filter) ([]agentpool.Agent, error) {
	rows, err := s.db.Queries().ListAgents(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list agents: %w", err)
	}

	agents := make([]agentpool.Agent, 0, len(rows))
	for _, row := range rows {
		if filter.Role != "" && row.Role != string(filter.Role) {
			continue
		}
		if filter.Available != nil && row.Available != *filter.Available {
			continue
		}
		agents = append(agents, rowToAgent(row))
	}

	return agents, nil
}

// ClaimAvailable atomically claims the longest-idle available agent of the
// given role for a branch. Returns ok=false when none is available.
func (s *AgentStore) ClaimAvailable(ctx context.Context, r role.Role, branchID string) (agentpool.Agent, bool, error) {
	row, err := s.db.Queries().ClaimAvailableAgent(ctx, db.ClaimAvailableAgentParams{
		BranchID: nullString(branchID),
		Role:     string(r),
	})
	if IsNotFoundError(err) {
		return agentpool.Agent{}, false, nil
	}
	if err != nil {
		return agentpool.Agent{}, false, fmt.Errorf("failed to claim agent: %w", err)
	}
	return rowToAgent(row), true, nil
}

// ReleaseBranch clears the claim on whichever agent holds the branch.
func (s *AgentStore) ReleaseBranch(ctx context.Context, branchID string) error {
	if err := s.db.Queries().ReleaseAgentBranch(ctx, nullString(branchID)); err != nil {
		return fmt.Errorf("failed to release agent claim: %w", err)
	}
	return nil
}

// rowToAgent converts a db.Agent to an agentpool.Agent.
func rowToAgent(row db.Agent) agentpool.Agent {
	return agentpool.Agent{
		ID:         row.ID,
		Role:       role.Role(row.Role),
		Available:  row.Available,
		BranchID:   row.BranchID.String,
		LastSeenAt: time.Unix(0, row.LastSeenAt),
		CreatedAt:  time.Unix(0, row.CreatedAt),
	}
}
