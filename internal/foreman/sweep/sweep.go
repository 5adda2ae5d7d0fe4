// Package sweep runs periodic database maintenance for long-lived foreman
// processes.
package sweep

import (
	"context"
	"time"

	"github.com/colonyops/foreman/internal/core/logging"
	"github.com/colonyops/foreman/internal/data/stores"
)

// Start deletes expired KV entries once immediately and then on every tick.
// It blocks until the context is cancelled.
func Start(ctx context.Context, kvStore *stores.KVStore, interval time.Duration) {
	log := logging.Component("sweep")

	sweep := func() {
		err := kvStore.SweepExpired(ctx)
		switch {
		case err == nil:
		case stores.IsBusyError(err):
			// Lock contention resolves itself; the next tick retries.
			log.Debug().Msg("database busy, skipping sweep")
		default:
			log.Warn().Err(err).Msg("kv sweep failed")
		}
	}

	sweep()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweep()
		}
	}
}
