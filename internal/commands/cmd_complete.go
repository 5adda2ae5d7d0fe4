package commands

import (
	"context"
	"fmt"

	"github.com/colonyops/foreman/internal/foreman"
	"github.com/urfave/cli/v3"
)

type CompleteCmd struct {
	flags *Flags
	app   *foreman.App

	// flags
	summary string
}

// NewCompleteCmd creates a new complete command
func NewCompleteCmd(flags *Flags, app *foreman.App) *CompleteCmd {
	return &CompleteCmd{flags: flags, app: app}
}

// Register adds the complete command to the application
func (cmd *CompleteCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "complete",
		Usage:     "Report a branch's work finished",
		UsageText: "foreman complete <branch-id> [--summary S]",
		Description: `Records the assigned agent's completion signal for an in_progress
branch. Completion is a data signal, not a state change: the branch stays
in_progress until a review is requested, and a later completion report
simply replaces the summary.`,
		ShellComplete: BranchIDCompleter(cmd.app),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "summary",
				Aliases:     []string{"s"},
				Usage:       "short description of the work performed",
				Destination: &cmd.summary,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *CompleteCmd) run(ctx context.Context, c *cli.Command) error {
	branchID := c.Args().First()
	if branchID == "" {
		return fmt.Errorf("branch id required")
	}

	b, err := cmd.app.ReportWorkComplete(ctx, branchID, cmd.summary)
	if err != nil {
		return fmt.Errorf("report work complete: %w", err)
	}

	_, _ = fmt.Fprintf(c.Root().Writer, "work recorded for %s; run 'foreman review %s' to open a review round\n", b.ID, b.ID)
	return nil
}
