package logging

import "context"

type contextKey string

const (
	branchIDKey contextKey = "branch_id"
	agentIDKey  contextKey = "agent_id"
)

// WithBranchID adds a branch ID to the context.
func WithBranchID(ctx context.Context, branchID string) context.Context {
	return context.WithValue(ctx, branchIDKey, branchID)
}

// WithAgentID adds an agent ID to the context.
func WithAgentID(ctx context.Context, agentID string) context.Context {
	return context.WithValue(ctx, agentIDKey, agentID)
}

// GetBranchID retrieves the branch ID from the context.
// Returns empty string if not present.
func GetBranchID(ctx context.Context) string {
	if id, ok := ctx.Value(branchIDKey).(string); ok {
		return id
	}
	return ""
}

// GetAgentID retrieves the agent ID from the context.
// Returns empty string if not present.
func GetAgentID(ctx context.Context) string {
	if id, ok := ctx.Value(agentIDKey).(string); ok {
		return id
	}
	return ""
}
