package commands

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/colonyops/foreman/internal/core/doctor"
	"github.com/colonyops/foreman/internal/foreman"
	"github.com/colonyops/foreman/pkg/iojson"
	"github.com/urfave/cli/v3"
)

type DoctorCmd struct {
	flags      *Flags
	app        *foreman.App
	autofix    bool
	jsonOutput bool
}

func NewDoctorCmd(flags *Flags, app *foreman.App) *DoctorCmd {
	return &DoctorCmd{flags: flags, app: app}
}

func (cmd *DoctorCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:        "doctor",
		Usage:       "Run health checks on your foreman setup",
		UsageText:   "foreman doctor [options]",
		Description: "Runs diagnostic checks on configuration, the git repository, the database, and cross-table consistency.",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "autofix",
				Usage:       "automatically fix issues (e.g., release orphaned lane entries)",
				Destination: &cmd.autofix,
			},
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

func (cmd *DoctorCmd) run(ctx context.Context, c *cli.Command) error {
	results := cmd.app.Doctor.RunChecks(ctx, cmd.flags.ConfigPath, cmd.autofix)

	if cmd.jsonOutput {
		return cmd.outputJSON(c, results)
	}

	return cmd.outputText(results)
}

func (cmd *DoctorCmd) outputJSON(c *cli.Command, results []doctor.Result) error {
	passed, warned, failed := doctor.Summary(results)

	out := struct {
		Healthy bool            `json:"healthy"`
		Summary summaryJSON     `json:"summary"`
		Checks  []doctor.Result `json:"checks"`
	}{
		Healthy: failed == 0,
		Summary: summaryJSON{Passed: passed, Warned: warned, Failed: failed},
		Checks:  results,
	}

	return iojson.WriteWith(c.Root().Writer, os.Stderr, out)
}

type summaryJSON struct {
	Passed int `json:"passed"`
	Warned int `json:"warned"`
	Failed int `json:"failed"`
}

func (cmd *DoctorCmd) outputText(results []doctor.Result) error {
	w := os.Stderr

	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, "Foreman Doctor")
	_, _ = fmt.Fprintln(w, strings.Repeat("─", 40))
	_, _ = fmt.Fprintln(w)

	for _, result := range results {
		_, _ = fmt.Fprintln(w, result.Name)

		for _, item := range result.Items {
			var detail string
			if item.Detail != "" {
				detail = " " + item.Detail
			}

			var icon string
			switch item.Status {
			case doctor.StatusPass:
				icon = "✔"
			case doctor.StatusWarn:
				icon = "●"
			case doctor.StatusFail:
				icon = "✘"
			}

			_, _ = fmt.Fprintf(w, "  %s %s%s\n", icon, item.Label, detail)
		}

		_, _ = fmt.Fprintln(w)
	}

	passed, warned, failed := doctor.Summary(results)
	_, _ = fmt.Fprintf(w, "%d passed  %d warnings  %d failed\n", passed, warned, failed)

	if !cmd.autofix {
		fixable := doctor.CountFixable(results)
		if fixable > 0 {
			_, _ = fmt.Fprintln(w)
			_, _ = fmt.Fprintf(w, "Run 'foreman doctor --autofix' to fix %d issue(s)\n", fixable)
		}
	}

	if failed > 0 {
		return cli.Exit("", 1)
	}

	return nil
}
