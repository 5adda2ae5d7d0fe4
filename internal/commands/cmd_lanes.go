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

type LanesCmd struct {
	flags *Flags
	app   *foreman.App

	// flags
	jsonOutput bool
}

// NewLanesCmd creates a new lanes command
func NewLanesCmd(flags *Flags, app *foreman.App) *LanesCmd {
	return &LanesCmd{flags: flags, app: app}
}

// Register adds the lanes command to the application
func (cmd *LanesCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "lanes",
		Usage:     "Show promotion lanes and their queues",
		UsageText: "foreman lanes [--json]",
		Description: `Displays each promotion lane's host branch, whether a merge is in
flight, and the branches queued for it in FIFO order.`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "output as JSON",
				Destination: &cmd.jsonOutput,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *LanesCmd) run(ctx context.Context, c *cli.Command) error {
	lanes, err := cmd.app.Lanes(ctx)
	if err != nil {
		return fmt.Errorf("list lanes: %w", err)
	}

	out := c.Root().Writer

	if cmd.jsonOutput {
		return iojson.WriteWith(out, os.Stderr, lanes)
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "LANE\tBRANCH\tBUSY\tDEPTH\tQUEUE")

	for _, ls := range lanes {
		queue := "-"
		if len(ls.Entries) > 0 {
			queue = ""
			for i, e := range ls.Entries {
				if i > 0 {
					queue += ", "
				}
				queue += e.BranchID
			}
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%t\t%d\t%s\n",
			ls.Target, cmd.flags.Config.LaneBranch(ls.Target), ls.Busy, len(ls.Entries), queue)
	}

	return w.Flush()
}
