package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/foreman/internal/commands"
	"github.com/colonyops/foreman/internal/core/config"
	"github.com/colonyops/foreman/internal/core/eventbus"
	"github.com/colonyops/foreman/internal/core/hosting"
	"github.com/colonyops/foreman/internal/core/lane"
	"github.com/colonyops/foreman/internal/core/logging"
	"github.com/colonyops/foreman/internal/data/db"
	"github.com/colonyops/foreman/internal/data/stores"
	"github.com/colonyops/foreman/internal/foreman"
	"github.com/colonyops/foreman/pkg/executil"
	"github.com/colonyops/foreman/pkg/logutils"
)

var (
	// Build information. Populated at build-time via -ldflags flag.
	// When installed via `go install module@version`, init() populates
	// these from runtime/debug.BuildInfo instead.
	version = "dev"
	commit  = "HEAD"
	date    = "now"
)

func build() string {
	v, c, d := version, commit, date

	// When installed via `go install module@version`, ldflags aren't set
	// so version remains "dev". Fall back to runtime/debug.BuildInfo which
	// Go populates automatically with the module version and VCS metadata.
	if v == "dev" {
		if info, ok := debug.ReadBuildInfo(); ok {
			if mv := info.Main.Version; mv != "" && mv != "(devel)" {
				v = mv
			}
			for _, s := range info.Settings {
				switch s.Key {
				case "vcs.revision":
					c = s.Value
				case "vcs.time":
					d = s.Value
				}
			}
		}
	}

	short := c
	if len(c) > 7 {
		short = c[:7]
	}

	return fmt.Sprintf("%s (%s) %s", v, short, d)
}

func main() {
	ctx := context.Background()

	var (
		logCloser  func()
		foremanApp = &foreman.App{}
		database   *db.DB
		busCancel  context.CancelFunc
		busDone    chan struct{}
	)

	flags := &commands.Flags{}

	app := &cli.Command{
		Name:      "foreman",
		Usage:     "Track and gate agent branches through a two-stage promotion pipeline",
		UsageText: "foreman [global options] command [command options]",
		Description: `Foreman is the control plane for concurrent agent work. It routes work
items to agents by role, records every branch state transition, gates
promotions behind per-target approval policy, and serializes merges so
each promotion lane lands one branch at a time.

Run 'foreman submit' to route a work item and 'foreman run' to start the
promotion worker.`,
		Version: build(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (debug, info, warn, error, fatal, panic)",
				Sources:     cli.EnvVars("FOREMAN_LOG_LEVEL"),
				Value:       "info",
				Destination: &flags.LogLevel,
			},
			&cli.StringFlag{
				Name:        "log-file",
				Usage:       "path to log file (defaults to <data-dir>/foreman.log)",
				Sources:     cli.EnvVars("FOREMAN_LOG_FILE"),
				Destination: &flags.LogFile,
			},
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "path to config file",
				Sources:     cli.EnvVars("FOREMAN_CONFIG"),
				Value:       commands.DefaultConfigPath(),
				Destination: &flags.ConfigPath,
			},
			&cli.StringFlag{
				Name:        "data-dir",
				Usage:       "path to data directory",
				Sources:     cli.EnvVars("FOREMAN_DATA_DIR"),
				Value:       commands.DefaultDataDir(),
				Destination: &flags.DataDir,
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			// Always log to a file; use explicit path or default to <datadir>/foreman.log
			logFile := flags.LogFile
			if logFile == "" {
				logFile = filepath.Join(flags.DataDir, "foreman.log")
			}

			logger, closer, err := logutils.New(flags.LogLevel, logFile)
			if err != nil {
				return ctx, fmt.Errorf("setup logger: %w", err)
			}
			log.Logger = logger.Hook(logging.ContextHook{})
			logCloser = closer

			cfg, err := config.Load(flags.ConfigPath, flags.DataDir)
			if err != nil {
				return ctx, fmt.Errorf("load config: %w", err)
			}
			flags.Config = cfg
			flags.Version = version

			// Open database connection
			dbOpts := db.DefaultOpenOptions()
			if cfg.DB.BusyTimeoutMS > 0 {
				dbOpts.BusyTimeout = cfg.DB.BusyTimeoutMS
			}
			database, err = db.Open(cfg.DataDir, dbOpts)
			if err != nil && stores.IsCorruptionError(err) {
				// Move the damaged file aside and start fresh; the backup
				// keeps the old state available for manual inspection.
				log.Error().Err(err).Str("data_dir", cfg.DataDir).Msg("database corrupted, backing up and recreating")
				if recErr := stores.RecoverFromCorruption(cfg.DataDir); recErr != nil {
					return ctx, fmt.Errorf("recover database: %w", recErr)
				}
				database, err = db.Open(cfg.DataDir, dbOpts)
			}
			if err != nil {
				return ctx, fmt.Errorf("open database: %w", err)
			}

			// Create stores
			branches := stores.NewBranchStore(database)
			transitions := stores.NewTransitionStore(database)
			approvals := stores.NewApprovalStore(database)
			agents := stores.NewAgentStore(database)
			lanes := stores.NewLaneStore(database)
			kvStore := stores.NewKVStore(database)
			notifications := stores.NewNotifyStore(database)

			// Start the event bus; After drains it so one-shot commands
			// never lose their tail of notifications.
			bus := eventbus.New(256)
			busCtx, cancel := context.WithCancel(context.Background())
			busCancel = cancel
			busDone = make(chan struct{})
			go func() {
				bus.Start(busCtx)
				close(busDone)
			}()
			eventbus.RegisterDebugLogger(bus, logging.Component("events"))

			// Registry-only deployments track lifecycle without a clone.
			var host hosting.Host = hosting.Discard{}
			if !cfg.RegistryOnly() {
				host = hosting.NewGitHost(cfg.RepoDir, cfg.GitPath, &executil.RealExecutor{})
			}

			tokens := lane.NewTokens()

			registry := foreman.NewRegistry(branches, transitions, bus, logging.Component("registry"))
			router := foreman.NewRouter(registry, branches, agents, host, cfg, bus, logging.Component("router"))
			gate := foreman.NewGate(registry, branches, approvals, lanes, agents, host, cfg, bus, logging.Component("gate"))
			serializer := foreman.NewSerializer(registry, branches, lanes, tokens, agents, host, cfg, bus, logging.Component("serializer"))
			staleness := foreman.NewStaleness(branches, kvStore, bus, cfg.Staleness, logging.Component("staleness"))

			// Operator alert pipeline: domain events become notifications in
			// the durable store read by 'foreman alerts'.
			eventbus.NewNotificationRouter(bus).Register()
			foreman.NewAlertSink(notifications, bus, logging.Component("alerts")).Register()

			// Populate the pre-allocated App struct (commands already hold a pointer to it)
			*foremanApp = *foreman.NewApp(registry, router, gate, serializer, staleness, notifications, cfg, bus, database)

			return ctx, nil
		},
		After: func(ctx context.Context, c *cli.Command) error {
			// Stop the bus and let it drain buffered events
			if busCancel != nil {
				busCancel()
				<-busDone
			}

			// Close database connection
			if database != nil {
				if err := database.Close(); err != nil {
					log.Error().Err(err).Msg("failed to close database")
					return err
				}
			}

			// Close log file
			if logCloser != nil {
				logCloser()
			}
			return nil
		},
	}

	app = commands.NewSubmitCmd(flags, foremanApp).Register(app)
	app = commands.NewLsCmd(flags, foremanApp).Register(app)
	app = commands.NewShowCmd(flags, foremanApp).Register(app)
	app = commands.NewAgentCmd(flags, foremanApp).Register(app)
	app = commands.NewCompleteCmd(flags, foremanApp).Register(app)
	app = commands.NewReviewCmd(flags, foremanApp).Register(app)
	app = commands.NewDecideCmd(flags, foremanApp).Register(app)
	app = commands.NewPromoteCmd(flags, foremanApp).Register(app)
	app = commands.NewWithdrawCmd(flags, foremanApp).Register(app)
	app = commands.NewLanesCmd(flags, foremanApp).Register(app)
	app = commands.NewHistoryCmd(flags, foremanApp).Register(app)
	app = commands.NewAlertsCmd(flags, foremanApp).Register(app)
	app = commands.NewRunCmd(flags, foremanApp).Register(app)
	app = commands.NewDoctorCmd(flags, foremanApp).Register(app)
	app = commands.NewConfigCmd(flags).Register(app)
	app = commands.NewVersionCmd(flags, foremanApp).Register(app)

	app.Action = func(ctx context.Context, c *cli.Command) error {
		if c.Args().Len() > 0 {
			return fmt.Errorf("unknown command %q. Run 'foreman --help' for usage", c.Args().First())
		}
		return cli.ShowAppHelp(c)
	}

	exitCode := 0
	runErr := app.Run(ctx, os.Args)
	if runErr != nil {
		fmt.Println()
		fmt.Println(runErr.Error())
		exitCode = 1
	}

	os.Exit(exitCode)
}
