package commands

import (
	"context"
	"fmt"

	"github.com/colonyops/foreman/internal/core/branch"
	"github.com/colonyops/foreman/internal/foreman"
	"github.com/urfave/cli/v3"
)

type WithdrawCmd struct {
	flags *Flags
	app   *foreman.App

	// flags
	reason string
}

// NewWithdrawCmd creates a new withdraw command
func NewWithdrawCmd(flags *Flags, app *foreman.App) *WithdrawCmd {
	return &WithdrawCmd{flags: flags, app: app}
}

// Register adds the withdraw command to the application
func (cmd *WithdrawCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "withdraw",
		Usage:     "Cancel a branch",
		UsageText: "foreman withdraw <branch-id> [--reason R]",
		Description: `Closes a branch at the submitter's request. The record is archived,
never deleted; its audit trail stays queryable.

A branch that is mid-merge cannot be interrupted: the request is queued
and applied when the merge resolves. If the merge lands cleanly first,
the withdrawal is discarded as superseded.`,
		ShellComplete: BranchIDCompleter(cmd.app),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "reason",
				Aliases:     []string{"r"},
				Usage:       "why the branch is being withdrawn",
				Destination: &cmd.reason,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *WithdrawCmd) run(ctx context.Context, c *cli.Command) error {
	branchID := c.Args().First()
	if branchID == "" {
		return fmt.Errorf("branch id required")
	}

	b, err := cmd.app.Withdraw(ctx, branchID, cmd.reason)
	if err != nil {
		return fmt.Errorf("withdraw: %w", err)
	}

	out := c.Root().Writer
	if b.State == branch.StateMerging {
		_, _ = fmt.Fprintf(out, "%s is mid-merge; withdrawal queued behind the in-flight merge\n", branchID)
		return nil
	}

	_, _ = fmt.Fprintf(out, "%s withdrawn\n", branchID)
	return nil
}
