package stores

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/foreman/internal/core/policy"
	"github.com/colonyops/foreman/internal/core/role"
)

func TestApprovalStore(t *testing.T) {
	ctx := context.Background()

	t.Run("append and list round", func(t *testing.T) {
		store := NewApprovalStore(openStoreDB(t))

		d := policy.Decision{
			ID:        "dec-1",
			BranchID:  "br-1",
			Round:     1,
			Role:      role.Reviewer,
			Verdict:   policy.VerdictApprove,
			Note:      "looks good",
			CreatedAt: time.Now(),
		}
		require.NoError(t, store.Append(ctx, d), "Append")

		got, err := store.ListRound(ctx, "br-1", 1)
		require.NoError(t, err, "ListRound")
		require.Len(t, got, 1)
		assert.Equal(t, policy.VerdictApprove, got[0].Verdict)
		assert.Equal(t, role.Reviewer, got[0].Role)
		assert.Equal(t, "looks good", got[0].Note)
	})

	t.Run("findings survive round trip", func(t *testing.T) {
		store := NewApprovalStore(openStoreDB(t))

		d := policy.Decision{
			ID:       "dec-1",
			BranchID: "br-1",
			Round:    1,
			Role:     role.Reviewer,
			Verdict:  policy.VerdictReject,
			Findings: []policy.Finding{
				{Severity: policy.SeverityCritical, File: "auth.go", Line: 42, Message: "token never expires"},
				{Severity: policy.SeverityInfo, Message: "consider a table test"},
			},
			CreatedAt: time.Now(),
		}
		require.NoError(t, store.Append(ctx, d), "Append")

		got, err := store.ListRound(ctx, "br-1", 1)
		require.NoError(t, err, "ListRound")
		require.Len(t, got, 1)
		require.Len(t, got[0].Findings, 2)
		assert.Equal(t, policy.SeverityCritical, got[0].Findings[0].Severity)
		assert.Equal(t, 42, got[0].Findings[0].Line)
	})

	t.Run("rounds are isolated", func(t *testing.T) {
		store := NewApprovalStore(openStoreDB(t))

		base := time.Now()
		for round := 1; round <= 2; round++ {
			require.NoError(t, store.Append(ctx, policy.Decision{
				ID:        "dec-" + string(rune('0'+round)),
				BranchID:  "br-1",
				Round:     round,
				Role:      role.Reviewer,
				Verdict:   policy.VerdictApprove,
				CreatedAt: base.Add(time.Duration(round) * time.Second),
			}), "Append round %d", round)
		}

		round1, err := store.ListRound(ctx, "br-1", 1)
		require.NoError(t, err, "ListRound 1")
		assert.Len(t, round1, 1)

		all, err := store.ListByBranch(ctx, "br-1")
		require.NoError(t, err, "ListByBranch")
		require.Len(t, all, 2)
		assert.Equal(t, 1, all[0].Round)
		assert.Equal(t, 2, all[1].Round)
	})

	t.Run("empty round lists empty", func(t *testing.T) {
		store := NewApprovalStore(openStoreDB(t))

		got, err := store.ListRound(ctx, "br-1", 1)
		require.NoError(t, err, "ListRound")
		assert.Empty(t, got)
	})
}
