package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/colonyops/foreman/internal/core/branch"
	"github.com/colonyops/foreman/internal/core/role"
	"github.com/colonyops/foreman/internal/foreman"
	"github.com/colonyops/foreman/pkg/iojson"
	"github.com/urfave/cli/v3"
)

type LsCmd struct {
	flags *Flags
	app   *foreman.App

	// flags
	state      string
	role       string
	all        bool
	jsonOutput bool
}

// NewLsCmd creates a new ls command
func NewLsCmd(flags *Flags, app *foreman.App) *LsCmd {
	return &LsCmd{flags: flags, app: app}
}

// Register adds the ls command to the application
func (cmd *LsCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "ls",
		Usage:     "List tracked branches",
		UsageText: "foreman ls [--state S] [--role R] [--all] [--json]",
		Description: `Displays a table of tracked branches, oldest submission first.

Terminal branches (merged, closed) are archived and hidden by default;
use --all to include them. Use --json for line-delimited JSON output.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "state",
				Aliases:     []string{"s"},
				Usage:       "only branches in this lifecycle state",
				Destination: &cmd.state,
			},
			&cli.StringFlag{
				Name:        "role",
				Aliases:     []string{"r"},
				Usage:       "only branches requiring this role",
				Destination: &cmd.role,
			},
			&cli.BoolFlag{
				Name:        "all",
				Aliases:     []string{"a"},
				Usage:       "include archived (merged, closed) branches",
				Destination: &cmd.all,
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

func (cmd *LsCmd) run(ctx context.Context, c *cli.Command) error {
	filter, err := cmd.buildFilter()
	if err != nil {
		return err
	}

	branches, err := cmd.app.ListBranches(ctx, filter)
	if err != nil {
		return fmt.Errorf("list branches: %w", err)
	}

	if len(branches) == 0 {
		if !cmd.jsonOutput {
			fmt.Fprintf(os.Stderr, "No branches found\n")
		}
		return nil
	}

	out := c.Root().Writer

	if cmd.jsonOutput {
		for _, b := range branches {
			if err := iojson.WriteLine(out, b); err != nil {
				return fmt.Errorf("encode branch: %w", err)
			}
		}
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tROLE\tSTATE\tTARGET\tAGENT\tAGE\tTITLE")

	now := time.Now()
	for _, b := range branches {
		agent := b.AssignedAgent
		if agent == "" {
			agent = "-"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			b.ID, b.Role, b.State, b.Target, agent, formatAge(now.Sub(b.CreatedAt)), b.Title)
	}

	return w.Flush()
}

func (cmd *LsCmd) buildFilter() (branch.Filter, error) {
	filter := branch.Filter{IncludeArchived: cmd.all}

	if cmd.state != "" {
		s, err := branch.ParseState(cmd.state)
		if err != nil {
			return branch.Filter{}, err
		}
		filter.State = s
		// Asking for a terminal state implies looking into the archive.
		if s.Terminal() {
			filter.IncludeArchived = true
		}
	}
	if cmd.role != "" {
		r, err := role.Parse(cmd.role)
		if err != nil {
			return branch.Filter{}, err
		}
		filter.Role = r
	}

	return filter, nil
}

// formatAge renders a duration the way operators read one: the two most
// significant units, no sub-second noise.
func formatAge(d time.Duration) string {
	if d < time.Minute {
		return "<1m"
	}
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	mins := int(d.Minutes()) % 60

	switch {
	case days > 0:
		return fmt.Sprintf("%dd%dh", days, hours)
	case hours > 0:
		return fmt.Sprintf("%dh%dm", hours, mins)
	default:
		return fmt.Sprintf("%dm", mins)
	}
}
