package commands

import (
	"context"
	"fmt"
	"maps"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/colonyops/foreman/internal/core/config"
	"github.com/colonyops/foreman/internal/core/eventbus"
	"github.com/colonyops/foreman/internal/data/stores"
	"github.com/colonyops/foreman/internal/foreman"
	"github.com/colonyops/foreman/internal/foreman/sweep"
	"github.com/colonyops/foreman/internal/foreman/updatecheck"
	"github.com/colonyops/foreman/pkg/profiler"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
)

// pumpInterval is how often the worker polls the lane queues. One-shot
// commands enqueue into the shared database without this process seeing an
// event, so the ticker is the backbone; in-process events just make follow-up
// immediate.
const pumpInterval = 2 * time.Second

const configDebounce = 200 * time.Millisecond

// RunCmd is the long-running worker: it pumps lane queues, retries pending
// assignments on availability events, sweeps stale branches, and hot-reloads
// the policy table when the config file changes.
type RunCmd struct {
	flags *Flags
	app   *foreman.App

	pprofPort int
}

func NewRunCmd(flags *Flags, app *foreman.App) *RunCmd {
	return &RunCmd{flags: flags, app: app}
}

func (cmd *RunCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "run",
		Usage: "Run the promotion worker",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:        "pprof-port",
				Usage:       "serve pprof endpoints on this port (0 disables)",
				Destination: &cmd.pprofPort,
			},
		},
		Action: cmd.run,
	})
	return app
}

func (cmd *RunCmd) run(ctx context.Context, c *cli.Command) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cmd.pprofPort > 0 {
		profServer := profiler.New(cmd.pprofPort)
		if err := profServer.Start(ctx); err != nil {
			return fmt.Errorf("failed to start profiler: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := profServer.Shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("failed to shutdown profiler server")
			}
		}()
		log.Info().
			Str("url", fmt.Sprintf("http://%s/debug/pprof/", profServer.Addr())).
			Msg("profiler running")
	}

	// Event-driven pieces. All subscribers run on the bus dispatch
	// goroutine, which is what makes the policy swap in applyPolicy safe.
	cmd.app.Router.Register()
	cmd.app.Bus.SubscribeLaneDepthChanged(func(eventbus.LaneDepthChangedPayload) {
		cmd.pump(ctx)
	})
	cmd.app.Bus.SubscribeConfigReloaded(func(p eventbus.ConfigReloadedPayload) {
		cmd.applyPolicy(ctx, p)
	})

	// Settle anything a previous process left mid-merge before taking on
	// new promotions.
	recovered, err := cmd.app.Serializer.Recover(ctx)
	if err != nil {
		return fmt.Errorf("merge recovery: %w", err)
	}
	if recovered > 0 {
		log.Info().Int("branches", recovered).Msg("recovered interrupted merges")
	}
	cmd.pump(ctx)

	go cmd.app.Staleness.Start(ctx)
	go sweep.Start(ctx, stores.NewKVStore(cmd.app.DB), time.Hour)
	go cmd.checkForUpdate(ctx, cmd.flags.Version)

	if err := cmd.watchConfig(ctx); err != nil {
		log.Warn().Err(err).Msg("config hot-reload disabled")
	}

	log.Info().
		Str("data_dir", cmd.flags.Config.DataDir).
		Int("lanes", len(cmd.flags.Config.Lanes)).
		Msg("worker running")
	fmt.Fprintln(c.Root().Writer, "foreman worker running; Ctrl-C to stop")

	ticker := time.NewTicker(pumpInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("worker shutting down")
			return nil
		case <-ticker.C:
			cmd.pump(ctx)
		}
	}
}

func (cmd *RunCmd) pump(ctx context.Context) {
	promoted, err := cmd.app.Serializer.Pump(ctx)
	if err != nil {
		log.Error().Err(err).Msg("lane pump failed")
		return
	}
	if promoted > 0 {
		log.Info().Int("promoted", promoted).Msg("pumped lanes")
	}
}

// applyPolicy swaps the active policy table and re-evaluates branches sitting
// in review against the new rules. Runs on the dispatch goroutine, which
// serializes it with every other policy read in this process.
func (cmd *RunCmd) applyPolicy(ctx context.Context, p eventbus.ConfigReloadedPayload) {
	if maps.Equal(cmd.app.Config.Policy, p.Policy) {
		log.Debug().Msg("config changed; policy table identical")
		return
	}
	cmd.app.Config.Policy = p.Policy
	promoted, err := cmd.app.Gate.ReevaluateReviews(ctx)
	if err != nil {
		log.Error().Err(err).Msg("review re-evaluation after policy change failed")
	}
	log.Info().Int("rules", len(p.Policy)).Int("queued", promoted).Msg("policy table reloaded")
}

// watchConfig watches the config file and publishes a reload event when it
// changes. Returns an error only when the watch cannot be established; the
// worker runs fine without it.
func (cmd *RunCmd) watchConfig(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	// Watch the directory, not the file: editors replace the file on save,
	// which silently drops a watch attached to the file itself.
	if err := watcher.Add(filepath.Dir(cmd.flags.ConfigPath)); err != nil {
		_ = watcher.Close()
		return err
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(cmd.flags.ConfigPath) {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
					continue
				}

				// Debounce: editors fire several events per save.
				debounce := time.NewTimer(configDebounce)
			debounceLoop:
				for {
					select {
					case <-watcher.Events:
						if !debounce.Stop() {
							<-debounce.C
						}
						debounce.Reset(configDebounce)
					case <-debounce.C:
						break debounceLoop
					case <-ctx.Done():
						debounce.Stop()
						return
					}
				}

				cmd.reload()
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warn().Err(err).Msg("config watcher error")
			}
		}
	}()

	log.Info().Str("path", cmd.flags.ConfigPath).Msg("watching config for policy changes")
	return nil
}

// reload parses the config file and hands the new policy table to the bus.
// The swap itself happens in applyPolicy on the dispatch goroutine.
func (cmd *RunCmd) reload() {
	cfg, err := config.Load(cmd.flags.ConfigPath, cmd.flags.DataDir)
	if err != nil {
		log.Warn().Err(err).Msg("config reload failed; keeping previous policy")
		return
	}
	cmd.app.Bus.PublishConfigReloaded(eventbus.ConfigReloadedPayload{Policy: cfg.Policy})
}

// checkForUpdate reports a newer release once at startup.
func (cmd *RunCmd) checkForUpdate(ctx context.Context, version string) {
	result, err := updatecheck.Check(ctx, stores.NewKVStore(cmd.app.DB), version)
	if err != nil {
		log.Debug().Err(err).Msg("update check failed")
		return
	}
	if result != nil {
		log.Info().
			Str("current", result.Current).
			Str("latest", result.Latest).
			Msg("a newer foreman release is available")
	}
}
