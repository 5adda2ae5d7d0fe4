package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/colonyops/foreman/internal/core/branch"
	"github.com/colonyops/foreman/internal/core/lane"
	"github.com/colonyops/foreman/internal/foreman"
	"github.com/urfave/cli/v3"
)

type PromoteCmd struct {
	flags *Flags
	app   *foreman.App

	// flags
	wait bool
}

// NewPromoteCmd creates a new promote command
func NewPromoteCmd(flags *Flags, app *foreman.App) *PromoteCmd {
	return &PromoteCmd{flags: flags, app: app}
}

// Register adds the promote command to the application
func (cmd *PromoteCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "promote",
		Usage:     "Merge a queued branch into its lane",
		UsageText: "foreman promote <branch-id> [--wait]",
		Description: `Merges a queued_for_merge branch into its target lane's host branch.

Each lane admits one merge at a time. By default a held lane fails fast;
--wait blocks until the lane frees up. A merge conflict is an expected
outcome, not an error: the branch returns to the agent for rework and the
next entry in line proceeds.`,
		ShellComplete: BranchIDCompleter(cmd.app),
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "wait",
				Aliases:     []string{"w"},
				Usage:       "wait for the lane instead of failing when it is busy",
				Destination: &cmd.wait,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *PromoteCmd) run(ctx context.Context, c *cli.Command) error {
	branchID := c.Args().First()
	if branchID == "" {
		return fmt.Errorf("branch id required")
	}

	var err error
	if cmd.wait {
		err = cmd.app.Promote(ctx, branchID)
	} else {
		err = cmd.app.TryPromote(ctx, branchID)
	}

	out := c.Root().Writer

	if errors.Is(err, lane.ErrLaneUnavailable) {
		b, getErr := cmd.app.Registry.Get(ctx, branchID)
		if getErr != nil {
			return getErr
		}
		pos, posErr := cmd.app.Serializer.QueuePosition(ctx, branchID, b.Target)
		if posErr == nil && pos > 0 {
			_, _ = fmt.Fprintf(out, "%s lane busy; %s holds position %d (retry with --wait or let the worker pump it)\n", b.Target, branchID, pos)
			return nil
		}
		return err
	}
	if err != nil {
		return fmt.Errorf("promote: %w", err)
	}

	// A conflict settles locally and the call still returns nil; read the
	// branch back to report which way the merge went.
	b, err := cmd.app.Registry.Get(ctx, branchID)
	if err != nil {
		return err
	}

	switch b.State {
	case branch.StateMerged:
		_, _ = fmt.Fprintf(out, "%s merged into %s\n", branchID, cmd.flags.Config.LaneBranch(b.Target))
	case branch.StateInProgress:
		_, _ = fmt.Fprintf(out, "%s hit a merge conflict; back in progress for rework (conflict %d)\n", branchID, b.ConflictCount)
	case branch.StateClosed:
		_, _ = fmt.Fprintf(out, "%s closed: %s\n", branchID, b.WithdrawReason)
	default:
		_, _ = fmt.Fprintf(out, "%s now %s\n", branchID, b.State)
	}
	return nil
}
