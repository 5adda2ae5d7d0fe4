package commands

import (
	"context"
	"fmt"

	"github.com/colonyops/foreman/internal/foreman"
	"github.com/urfave/cli/v3"
)

type ReviewCmd struct {
	flags *Flags
	app   *foreman.App
}

// NewReviewCmd creates a new review command
func NewReviewCmd(flags *Flags, app *foreman.App) *ReviewCmd {
	return &ReviewCmd{flags: flags, app: app}
}

// Register adds the review command to the application
func (cmd *ReviewCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "review",
		Usage:     "Request review for a completed branch",
		UsageText: "foreman review <branch-id>",
		Description: `Moves an in_progress branch into review_requested and opens a new
approval round. Work must have been reported complete first.

Each request opens a fresh round: decisions from earlier rounds remain
in the audit trail but can never satisfy a later promotion.`,
		ShellComplete: BranchIDCompleter(cmd.app),
		Action:        cmd.run,
	})

	return app
}

func (cmd *ReviewCmd) run(ctx context.Context, c *cli.Command) error {
	branchID := c.Args().First()
	if branchID == "" {
		return fmt.Errorf("branch id required")
	}

	b, err := cmd.app.RequestReview(ctx, branchID)
	if err != nil {
		return fmt.Errorf("request review: %w", err)
	}

	rule := cmd.flags.Config.Policy[b.Target]
	_, _ = fmt.Fprintf(c.Root().Writer, "review round %d open for %s; needs %d %s approval(s) for %s\n",
		b.ReviewRound, b.ID, rule.MinApprovals, rule.ApproverRole, b.Target)
	return nil
}
