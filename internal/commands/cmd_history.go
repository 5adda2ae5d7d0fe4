package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/colonyops/foreman/internal/foreman"
	"github.com/colonyops/foreman/pkg/iojson"
	"github.com/urfave/cli/v3"
)

type HistoryCmd struct {
	flags *Flags
	app   *foreman.App

	// flags
	limit      int
	jsonOutput bool
}

// NewHistoryCmd creates a new history command
func NewHistoryCmd(flags *Flags, app *foreman.App) *HistoryCmd {
	return &HistoryCmd{flags: flags, app: app}
}

// Register adds the history command to the application
func (cmd *HistoryCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "history",
		Usage:     "Show the transition audit trail",
		UsageText: "foreman history [<branch-id>] [--limit N] [--json]",
		Description: `Without an argument, shows the most recent transitions across all
branches, newest first. With a branch id, shows that branch's full
trail oldest first. Archived branches keep their trail.`,
		ShellComplete: BranchIDCompleter(cmd.app),
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:        "limit",
				Aliases:     []string{"n"},
				Usage:       "cap for the global view",
				Value:       50,
				Destination: &cmd.limit,
			},
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "output as JSON lines",
				Destination: &cmd.jsonOutput,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *HistoryCmd) run(ctx context.Context, c *cli.Command) error {
	branchID := c.Args().First()

	transitions, err := cmd.app.History(ctx, branchID, cmd.limit)
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}

	if len(transitions) == 0 {
		if !cmd.jsonOutput {
			fmt.Fprintf(os.Stderr, "No transitions recorded\n")
		}
		return nil
	}

	out := c.Root().Writer

	if cmd.jsonOutput {
		for _, tr := range transitions {
			if err := iojson.WriteLine(out, tr); err != nil {
				return fmt.Errorf("encode transition: %w", err)
			}
		}
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "TIME\tBRANCH\tFROM\tTO\tACTOR\tREASON")

	for _, tr := range transitions {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			tr.CreatedAt.Format("2006-01-02 15:04:05"), tr.BranchID, tr.From, tr.To, tr.Actor, tr.Reason)
	}

	return w.Flush()
}
