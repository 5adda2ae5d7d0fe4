package stores

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/foreman/internal/core/agentpool"
	"github.com/colonyops/foreman/internal/core/role"
)

func TestAgentStore(t *testing.T) {
	ctx := context.Background()

	seedAgent := func(t *testing.T, store *AgentStore, id string, r role.Role, available bool, seen time.Time) {
		t.Helper()
		require.NoError(t, store.Upsert(ctx, agentpool.Agent{
			ID:         id,
			Role:       r,
			Available:  available,
			LastSeenAt: seen,
			CreatedAt:  seen,
		}), "Upsert %s", id)
	}

	t.Run("upsert and get", func(t *testing.T) {
		store := NewAgentStore(openStoreDB(t))
		seedAgent(t, store, "agent-1", role.Backend, true, time.Now())

		got, err := store.Get(ctx, "agent-1")
		require.NoError(t, err, "Get")
		assert.Equal(t, role.Backend, got.Role)
		assert.True(t, got.Available)
		assert.Empty(t, got.BranchID)
	})

	t.Run("get not found", func(t *testing.T) {
		store := NewAgentStore(openStoreDB(t))

		_, err := store.Get(ctx, "ghost")
		assert.ErrorIs(t, err, agentpool.ErrNotFound)
	})

	t.Run("upsert replaces availability", func(t *testing.T) {
		store := NewAgentStore(openStoreDB(t))
		seedAgent(t, store, "agent-1", role.Backend, false, time.Now())
		seedAgent(t, store, "agent-1", role.Backend, true, time.Now())

		got, err := store.Get(ctx, "agent-1")
		require.NoError(t, err, "Get")
		assert.True(t, got.Available)

		agents, err := store.List(ctx, agentpool.Filter{})
		require.NoError(t, err, "List")
		assert.Len(t, agents, 1)
	})

	t.Run("list filters", func(t *testing.T) {
		store := NewAgentStore(openStoreDB(t))
		seedAgent(t, store, "be-1", role.Backend, true, time.Now())
		seedAgent(t, store, "be-2", role.Backend, false, time.Now())
		seedAgent(t, store, "fe-1", role.Frontend, true, time.Now())

		backend, err := store.List(ctx, agentpool.Filter{Role: role.Backend})
		require.NoError(t, err, "List backend")
		assert.Len(t, backend, 2)

		avail := true
		free, err := store.List(ctx, agentpool.Filter{Role: role.Backend, Available: &avail})
		require.NoError(t, err, "List available backend")
		require.Len(t, free, 1)
		assert.Equal(t, "be-1", free[0].ID)
	})

	t.Run("claim longest idle available", func(t *testing.T) {
		store := NewAgentStore(openStoreDB(t))

		base := time.Now()
		seedAgent(t, store, "fresh", role.Backend, true, base)
		seedAgent(t, store, "idle", role.Backend, true, base.Add(-time.Hour))
		seedAgent(t, store, "busy", role.Backend, false, base.Add(-2*time.Hour))

		claimed, ok, err := store.ClaimAvailable(ctx, role.Backend, "br-1")
		require.NoError(t, err, "ClaimAvailable")
		require.True(t, ok, "should claim an agent")
		assert.Equal(t, "idle", claimed.ID)
		assert.False(t, claimed.Available, "claimed agent should be marked busy")
		assert.Equal(t, "br-1", claimed.BranchID)

		// The claim is durable.
		got, err := store.Get(ctx, "idle")
		require.NoError(t, err, "Get")
		assert.False(t, got.Available)
		assert.Equal(t, "br-1", got.BranchID)
	})

	t.Run("claim with none available", func(t *testing.T) {
		store := NewAgentStore(openStoreDB(t))
		seedAgent(t, store, "busy", role.Backend, false, time.Now())
		seedAgent(t, store, "wrong-role", role.Frontend, true, time.Now())

		_, ok, err := store.ClaimAvailable(ctx, role.Backend, "br-1")
		require.NoError(t, err, "ClaimAvailable")
		assert.False(t, ok, "no backend agent should be claimable")
	})

	t.Run("release branch keeps agent busy", func(t *testing.T) {
		store := NewAgentStore(openStoreDB(t))
		seedAgent(t, store, "agent-1", role.Backend, true, time.Now())

		_, ok, err := store.ClaimAvailable(ctx, role.Backend, "br-1")
		require.NoError(t, err, "ClaimAvailable")
		require.True(t, ok)

		require.NoError(t, store.ReleaseBranch(ctx, "br-1"), "ReleaseBranch")

		got, err := store.Get(ctx, "agent-1")
		require.NoError(t, err, "Get")
		assert.Empty(t, got.BranchID, "claim should be cleared")
		assert.False(t, got.Available, "agent stays unavailable until it reports in")
	})
}
