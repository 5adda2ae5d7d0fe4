package commands

import (
	"context"
	"fmt"

	"github.com/colonyops/foreman/internal/data/stores"
	"github.com/colonyops/foreman/internal/foreman"
	"github.com/colonyops/foreman/internal/foreman/updatecheck"
	"github.com/urfave/cli/v3"
)

type VersionCmd struct {
	flags *Flags
	app   *foreman.App
	check bool
}

func NewVersionCmd(flags *Flags, app *foreman.App) *VersionCmd {
	return &VersionCmd{flags: flags, app: app}
}

func (cmd *VersionCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "version",
		Usage:     "Print version information",
		UsageText: "foreman version [options]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "check",
				Usage:       "check for a newer release",
				Destination: &cmd.check,
			},
		},
		Action: cmd.run,
	})
	return app
}

func (cmd *VersionCmd) run(ctx context.Context, c *cli.Command) error {
	out := c.Root().Writer
	_, _ = fmt.Fprintf(out, "foreman %s\n", c.Root().Version)

	if !cmd.check {
		return nil
	}

	result, err := updatecheck.Check(ctx, stores.NewKVStore(cmd.app.DB), cmd.flags.Version)
	if err != nil {
		return fmt.Errorf("update check: %w", err)
	}
	if result == nil {
		_, _ = fmt.Fprintln(out, "up to date")
		return nil
	}

	_, _ = fmt.Fprintf(out, "update available: %s (published %s)\n", result.Latest, result.PublishedAt)
	return nil
}
