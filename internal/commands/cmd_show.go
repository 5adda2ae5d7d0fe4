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

type ShowCmd struct {
	flags *Flags
	app   *foreman.App

	// flags
	jsonOutput bool
}

// NewShowCmd creates a new show command
func NewShowCmd(flags *Flags, app *foreman.App) *ShowCmd {
	return &ShowCmd{flags: flags, app: app}
}

// Register adds the show command to the application
func (cmd *ShowCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "show",
		Usage:     "Show one branch's full status",
		UsageText: "foreman show <branch-id> [--json]",
		Description: `Displays a branch's work item, lifecycle state, review round decisions,
policy evaluation, queue position, and transition history.

The query is read-only: repeated calls never change anything.`,
		ShellComplete: BranchIDCompleter(cmd.app),
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "output the full status as JSON",
				Destination: &cmd.jsonOutput,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *ShowCmd) run(ctx context.Context, c *cli.Command) error {
	branchID := c.Args().First()
	if branchID == "" {
		return fmt.Errorf("branch id required")
	}

	status, err := cmd.app.QueryBranchState(ctx, branchID)
	if err != nil {
		return fmt.Errorf("query branch: %w", err)
	}

	out := c.Root().Writer
	if cmd.jsonOutput {
		return iojson.WriteWith(out, os.Stderr, status)
	}

	b := status.Branch
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "id\t%s\n", b.ID)
	_, _ = fmt.Fprintf(w, "title\t%s\n", b.Title)
	_, _ = fmt.Fprintf(w, "role\t%s\n", b.Role)
	_, _ = fmt.Fprintf(w, "state\t%s\n", b.State)
	_, _ = fmt.Fprintf(w, "target\t%s\n", b.Target)
	if b.AssignedAgent != "" {
		_, _ = fmt.Fprintf(w, "agent\t%s\n", b.AssignedAgent)
	}
	if b.HostBranch != "" {
		_, _ = fmt.Fprintf(w, "host branch\t%s\n", b.HostBranch)
	}
	if b.ReviewRound > 0 {
		_, _ = fmt.Fprintf(w, "review round\t%d\n", b.ReviewRound)
	}
	if b.ReworkCount > 0 {
		_, _ = fmt.Fprintf(w, "rework\t%d of %d\n", b.ReworkCount, cmd.flags.Config.ReworkLimit)
	}
	if b.ConflictCount > 0 {
		_, _ = fmt.Fprintf(w, "conflicts\t%d\n", b.ConflictCount)
	}
	if b.WorkSummary != "" {
		_, _ = fmt.Fprintf(w, "summary\t%s\n", b.WorkSummary)
	}
	if status.QueuePosition > 0 {
		_, _ = fmt.Fprintf(w, "queue position\t%d in %s lane\n", status.QueuePosition, b.Target)
	}
	_, _ = fmt.Fprintf(w, "created\t%s\n", b.CreatedAt.Format("2006-01-02 15:04:05"))
	_, _ = fmt.Fprintf(w, "updated\t%s\n", b.UpdatedAt.Format("2006-01-02 15:04:05"))
	_ = w.Flush()

	if status.Outcome != nil {
		o := status.Outcome
		_, _ = fmt.Fprintln(out)
		if o.Satisfied {
			_, _ = fmt.Fprintf(out, "policy satisfied: %d/%d %s approvals\n", o.Approvals, o.Rule.MinApprovals, o.Rule.ApproverRole)
		} else {
			_, _ = fmt.Fprintf(out, "policy pending: %d/%d %s approvals, %d missing\n", o.Approvals, o.Rule.MinApprovals, o.Rule.ApproverRole, o.Missing)
		}
	}

	if len(status.Decisions) > 0 {
		_, _ = fmt.Fprintln(out)
		w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "ROUND\tROLE\tVERDICT\tNOTE\tTIME")
		for _, d := range status.Decisions {
			_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
				d.Round, d.Role, d.Verdict, d.Note, d.CreatedAt.Format("2006-01-02 15:04:05"))
		}
		_ = w.Flush()
	}

	if len(status.History) > 0 {
		_, _ = fmt.Fprintln(out)
		w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "TIME\tFROM\tTO\tACTOR\tREASON")
		for _, tr := range status.History {
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				tr.CreatedAt.Format("2006-01-02 15:04:05"), tr.From, tr.To, tr.Actor, tr.Reason)
		}
		_ = w.Flush()
	}

	return nil
}
