// Command docgen generates CLI reference documentation from the foreman
// command definitions. Output is written to docs/cli-reference.md.
package main

import (
	"fmt"
	"os"

	docs "github.com/urfave/cli-docs/v3"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/foreman/internal/commands"
	"github.com/colonyops/foreman/internal/foreman"
)

func main() {
	flags := &commands.Flags{}
	app := &foreman.App{}

	root := &cli.Command{
		Name:      "foreman",
		Usage:     "Track and gate agent branches through a two-stage promotion pipeline",
		UsageText: "foreman [global options] command [command options]",
		Description: `Foreman is the control plane for concurrent agent work. It routes work
items to agents by role, records every branch state transition, gates
promotions behind per-target approval policy, and serializes merges so
each promotion lane lands one branch at a time.

Run 'foreman submit' to route a work item and 'foreman run' to start the
promotion worker.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "log level (debug, info, warn, error, fatal, panic)",
				Sources: cli.EnvVars("FOREMAN_LOG_LEVEL"),
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "log-file",
				Usage:   "path to log file (defaults to <data-dir>/foreman.log)",
				Sources: cli.EnvVars("FOREMAN_LOG_FILE"),
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to config file",
				Sources: cli.EnvVars("FOREMAN_CONFIG"),
				Value:   commands.DefaultConfigPath(),
			},
			&cli.StringFlag{
				Name:    "data-dir",
				Usage:   "path to data directory",
				Sources: cli.EnvVars("FOREMAN_DATA_DIR"),
				Value:   commands.DefaultDataDir(),
			},
		},
	}

	root = commands.NewSubmitCmd(flags, app).Register(root)
	root = commands.NewLsCmd(flags, app).Register(root)
	root = commands.NewShowCmd(flags, app).Register(root)
	root = commands.NewAgentCmd(flags, app).Register(root)
	root = commands.NewCompleteCmd(flags, app).Register(root)
	root = commands.NewReviewCmd(flags, app).Register(root)
	root = commands.NewDecideCmd(flags, app).Register(root)
	root = commands.NewPromoteCmd(flags, app).Register(root)
	root = commands.NewWithdrawCmd(flags, app).Register(root)
	root = commands.NewLanesCmd(flags, app).Register(root)
	root = commands.NewHistoryCmd(flags, app).Register(root)
	root = commands.NewAlertsCmd(flags, app).Register(root)
	root = commands.NewRunCmd(flags, app).Register(root)
	root = commands.NewDoctorCmd(flags, app).Register(root)
	root = commands.NewConfigCmd(flags).Register(root)
	root = commands.NewVersionCmd(flags, app).Register(root)

	md, err := docs.ToMarkdown(root)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error generating docs: %v\n", err)
		os.Exit(1)
	}

	outPath := "docs/cli-reference.md"
	if len(os.Args) > 1 {
		outPath = os.Args[1]
	}

	if err := os.WriteFile(outPath, []byte(md), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "error writing %s: %v\n", outPath, err)
		os.Exit(1)
	}

	fmt.Printf("Generated %s\n", outPath)
}
