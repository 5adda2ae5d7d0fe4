package foreman

import (
	"context"
	"fmt"
	"time"

	"github.com/colonyops/foreman/internal/core/branch"
	"github.com/colonyops/foreman/internal/core/config"
	"github.com/colonyops/foreman/internal/core/eventbus"
	"github.com/colonyops/foreman/internal/core/kv"
	"github.com/rs/zerolog"
)

// Staleness flags branches sitting in an active state past the configured
// threshold. Flags only: an event and an operator notification, never a
// forced transition.
type Staleness struct {
	branches branch.Store
	kv       kv.KV
	bus      *eventbus.EventBus
	cfg      config.StalenessConfig
	log      zerolog.Logger
}

// NewStaleness creates the staleness sweeper.
func NewStaleness(branches branch.Store, store kv.KV, bus *eventbus.EventBus, cfg config.StalenessConfig, log zerolog.Logger) *Staleness {
	return &Staleness{
		branches: branches,
		kv:       store,
		bus:      bus,
		cfg:      cfg,
		log:      log,
	}
}

// Start runs periodic sweeps until ctx is cancelled. A zero threshold
// disables sweeping entirely.
func (s *Staleness) Start(ctx context.Context) {
	if s.cfg.Threshold <= 0 {
		s.log.Debug().Msg("staleness sweeps disabled")
		return
	}

	interval := s.cfg.SweepInterval
	if interval <= 0 {
		interval = time.Hour
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.Sweep(ctx)
			if err != nil {
				s.log.Error().Err(err).Msg("staleness sweep failed")
				continue
			}
			if n > 0 {
				s.log.Info().Int("flagged", n).Msg("stale branches flagged")
			}
		}
	}
}

// Sweep flags branches in in_progress or review_requested older than the
// threshold. Each state entry is flagged at most once, deduplicated through
// the KV store; any transition or completion report re-arms the flag.
func (s *Staleness) Sweep(ctx context.Context) (int, error) {
	if s.cfg.Threshold <= 0 {
		return 0, nil
	}

	flagged := 0
	now := time.Now()
	for _, state := range []branch.State{branch.StateInProgress, branch.StateReviewRequested} {
		list, err := s.branches.List(ctx, branch.Filter{State: state})
		if err != nil {
			return flagged, fmt.Errorf("list %s branches: %w", state, err)
		}

		for i := range list {
			b := list[i]
			age := now.Sub(b.UpdatedAt)
			if age < s.cfg.Threshold {
				continue
			}

			key := staleKey(&b)
			seen, err := s.kv.Has(ctx, key)
			if err != nil {
				return flagged, fmt.Errorf("stale flag lookup: %w", err)
			}
			if seen {
				continue
			}
			if err := s.kv.Set(ctx, key, age.String()); err != nil {
				return flagged, fmt.Errorf("record stale flag: %w", err)
			}

			s.log.Warn().
				Str("branch_id", b.ID).
				Str("state", b.State.String()).
				Dur("age", age).
				Msg("branch stale")
			s.bus.PublishBranchStale(eventbus.BranchStalePayload{Branch: &b, Age: age})
			flagged++
		}
	}
	return flagged, nil
}

// staleKey identifies one (branch, state entry). UpdatedAt moves on every
// transition, so re-entering a state produces a fresh key.
func staleKey(b *branch.Branch) string {
	return fmt.Sprintf("stale/%s/%s/%d", b.ID, b.State, b.UpdatedAt.UnixNano())
}
