package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/colonyops/foreman/internal/core/branch"
	"github.com/colonyops/foreman/internal/core/policy"
	"github.com/colonyops/foreman/internal/foreman"
	"github.com/urfave/cli/v3"
)

// DecideCmd registers the approve and reject commands. Both record one
// approver's verdict against a branch's open review round; they differ only
// in the verdict they carry.
type DecideCmd struct {
	flags *Flags
	app   *foreman.App

	// flags
	as       string
	note     string
	findings string
}

// NewDecideCmd creates the approve/reject command pair
func NewDecideCmd(flags *Flags, app *foreman.App) *DecideCmd {
	return &DecideCmd{flags: flags, app: app}
}

// Register adds the approve and reject commands to the application
func (cmd *DecideCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands,
		&cli.Command{
			Name:      "approve",
			Usage:     "Record an approval on a branch under review",
			UsageText: "foreman approve <branch-id> --as <role> [--note N] [--findings f.json]",
			Description: `Records an approval decision. When the approvals from the policy's
required role reach the configured minimum, the branch advances into its
lane queue automatically.

Approvals from other roles are recorded in the audit trail but do not
count toward the policy.`,
			ShellComplete: BranchIDCompleter(cmd.app),
			Flags:         cmd.decisionFlags(),
			Action: func(ctx context.Context, c *cli.Command) error {
				return cmd.run(ctx, c, policy.VerdictApprove)
			},
		},
		&cli.Command{
			Name:      "reject",
			Usage:     "Record a rejection on a branch under review",
			UsageText: "foreman reject <branch-id> --as <role> [--note N] [--findings f.json]",
			Description: `Records a rejection. A single rejection poisons the round: the branch
returns to in_progress for rework and a fresh review round is required.

Each rejection counts against the rework limit (default 3); reaching
it closes the branch and raises an operator alert.`,
			ShellComplete: BranchIDCompleter(cmd.app),
			Flags:         cmd.decisionFlags(),
			Action: func(ctx context.Context, c *cli.Command) error {
				return cmd.run(ctx, c, policy.VerdictReject)
			},
		},
	)

	return app
}

func (cmd *DecideCmd) decisionFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "as",
			Usage:       "role the decision is made as",
			Required:    true,
			Destination: &cmd.as,
		},
		&cli.StringFlag{
			Name:        "note",
			Aliases:     []string{"n"},
			Usage:       "free-form note attached to the decision",
			Destination: &cmd.note,
		},
		&cli.StringFlag{
			Name:        "findings",
			Aliases:     []string{"F"},
			Usage:       "path to a JSON array of review findings",
			Destination: &cmd.findings,
		},
	}
}

func (cmd *DecideCmd) run(ctx context.Context, c *cli.Command, verdict policy.Verdict) error {
	branchID := c.Args().First()
	if branchID == "" {
		return fmt.Errorf("branch id required")
	}

	opts := foreman.DecisionOptions{Note: cmd.note}
	if cmd.findings != "" {
		findings, err := readFindings(cmd.findings)
		if err != nil {
			return err
		}
		opts.Findings = findings
	}

	outcome, err := cmd.app.RecordApprovalDecision(ctx, branchID, cmd.as, string(verdict), opts)
	out := c.Root().Writer

	// Reaching the rework limit closes the branch, but the rejection that
	// got it there was recorded fine. Report, don't fail.
	if errors.Is(err, branch.ErrReworkLimitExceeded) {
		_, _ = fmt.Fprintf(out, "rejection recorded; %s closed: rework limit reached\n", branchID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("record decision: %w", err)
	}

	switch {
	case verdict == policy.VerdictReject:
		b, err := cmd.app.Registry.Get(ctx, branchID)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(out, "rejection recorded; %s back in progress (rework %d of %d)\n",
			branchID, b.ReworkCount, cmd.flags.Config.ReworkLimit)
	case outcome.Satisfied:
		_, _ = fmt.Fprintf(out, "approved %d/%d; %s queued for merge into %s\n",
			outcome.Approvals, outcome.Rule.MinApprovals, branchID, outcome.Target)
	default:
		_, _ = fmt.Fprintf(out, "approval recorded (%d/%d %s), %d more needed\n",
			outcome.Approvals, outcome.Rule.MinApprovals, outcome.Rule.ApproverRole, outcome.Missing)
	}
	return nil
}

func readFindings(path string) ([]policy.Finding, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read findings: %w", err)
	}
	var findings []policy.Finding
	if err := json.Unmarshal(data, &findings); err != nil {
		return nil, fmt.Errorf("parse findings: %w", err)
	}
	return findings, nil
}
