package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/colonyops/foreman/internal/core/agentpool"
	"github.com/colonyops/foreman/internal/core/role"
	"github.com/colonyops/foreman/internal/foreman"
	"github.com/colonyops/foreman/pkg/iojson"
	"github.com/urfave/cli/v3"
)

type AgentCmd struct {
	flags *Flags
	app   *foreman.App

	// ls flags
	lsRole      string
	lsAvailable bool
	jsonOutput  bool
}

// NewAgentCmd creates a new agent command
func NewAgentCmd(flags *Flags, app *foreman.App) *AgentCmd {
	return &AgentCmd{flags: flags, app: app}
}

// Register adds the agent command to the application
func (cmd *AgentCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "agent",
		Usage: "Report agent availability and inspect the pool",
		Description: `Agents are external workers known only by a role and an id; foreman
tracks their availability and the branch each one holds.

Reporting an agent available triggers an assignment attempt over waiting
branches, oldest submission first. Reporting it gone releases nothing:
a branch the agent held stays assigned and keeps progressing.`,
		Commands: []*cli.Command{
			cmd.availableCmd(),
			cmd.goneCmd(),
			cmd.lsCmd(),
		},
	})

	return app
}

func (cmd *AgentCmd) availableCmd() *cli.Command {
	return &cli.Command{
		Name:      "available",
		Usage:     "Report an agent ready for work",
		UsageText: "foreman agent available <role> <agent-id>",
		Description: `Marks an agent available. If a branch of the matching role is waiting
in pending_assignment, the oldest one is assigned immediately.

Valid roles: ` + roleList() + `.`,
		Action: cmd.runAvailable,
	}
}

func (cmd *AgentCmd) goneCmd() *cli.Command {
	return &cli.Command{
		Name:      "gone",
		Usage:     "Report an agent unavailable",
		UsageText: "foreman agent gone <agent-id>",
		Description: `Marks an agent unavailable. Any branch it holds stays assigned;
availability only gates future assignments.`,
		Action: cmd.runGone,
	}
}

func (cmd *AgentCmd) lsCmd() *cli.Command {
	return &cli.Command{
		Name:      "ls",
		Usage:     "List pool members",
		UsageText: "foreman agent ls [--role R] [--available] [--json]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "role",
				Aliases:     []string{"r"},
				Usage:       "only agents with this role",
				Destination: &cmd.lsRole,
			},
			&cli.BoolFlag{
				Name:        "available",
				Usage:       "only agents currently available",
				Destination: &cmd.lsAvailable,
			},
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "output as JSON lines",
				Destination: &cmd.jsonOutput,
			},
		},
		Action: cmd.runLs,
	}
}

func (cmd *AgentCmd) runAvailable(ctx context.Context, c *cli.Command) error {
	roleTag := c.Args().Get(0)
	agentID := c.Args().Get(1)
	if roleTag == "" || agentID == "" {
		return fmt.Errorf("usage: foreman agent available <role> <agent-id>")
	}

	if err := cmd.app.ReportAgentAvailable(ctx, roleTag, agentID); err != nil {
		return fmt.Errorf("report available: %w", err)
	}

	out := c.Root().Writer

	// The availability report may have assigned a waiting branch; look the
	// agent up again to report what happened.
	agents, err := cmd.app.Agents(ctx, agentpool.Filter{})
	if err == nil {
		for _, a := range agents {
			if a.ID != agentID {
				continue
			}
			if a.BranchID != "" {
				_, _ = fmt.Fprintf(out, "%s available (%s), assigned %s\n", agentID, roleTag, a.BranchID)
				return nil
			}
			break
		}
	}

	_, _ = fmt.Fprintf(out, "%s available (%s), no work waiting\n", agentID, roleTag)
	return nil
}

func (cmd *AgentCmd) runGone(ctx context.Context, c *cli.Command) error {
	agentID := c.Args().First()
	if agentID == "" {
		return fmt.Errorf("usage: foreman agent gone <agent-id>")
	}

	if err := cmd.app.ReportAgentGone(ctx, agentID); err != nil {
		return fmt.Errorf("report gone: %w", err)
	}

	_, _ = fmt.Fprintf(c.Root().Writer, "%s marked gone\n", agentID)
	return nil
}

func (cmd *AgentCmd) runLs(ctx context.Context, c *cli.Command) error {
	filter := agentpool.Filter{}
	if cmd.lsRole != "" {
		r, err := role.Parse(cmd.lsRole)
		if err != nil {
			return err
		}
		filter.Role = r
	}
	if cmd.lsAvailable {
		avail := true
		filter.Available = &avail
	}

	agents, err := cmd.app.Agents(ctx, filter)
	if err != nil {
		return fmt.Errorf("list agents: %w", err)
	}

	if len(agents) == 0 {
		if !cmd.jsonOutput {
			fmt.Fprintf(os.Stderr, "No agents found\n")
		}
		return nil
	}

	out := c.Root().Writer

	if cmd.jsonOutput {
		for _, a := range agents {
			if err := iojson.WriteLine(out, a); err != nil {
				return fmt.Errorf("encode agent: %w", err)
			}
		}
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tROLE\tAVAILABLE\tBRANCH\tLAST SEEN")

	now := time.Now()
	for _, a := range agents {
		branchID := a.BranchID
		if branchID == "" {
			branchID = "-"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%t\t%s\t%s ago\n",
			a.ID, a.Role, a.Available, branchID, formatAge(now.Sub(a.LastSeenAt)))
	}

	return w.Flush()
}
