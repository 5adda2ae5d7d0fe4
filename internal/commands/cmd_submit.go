package commands

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/colonyops/foreman/internal/core/branch"
	"github.com/colonyops/foreman/internal/core/role"
	"github.com/colonyops/foreman/internal/foreman"
	"github.com/colonyops/foreman/pkg/iojson"
	"github.com/urfave/cli/v3"
)

type SubmitCmd struct {
	flags *Flags
	app   *foreman.App
	fr    *iojson.FileReader[submitInput]

	// flags
	role       string
	title      string
	desc       string
	target     string
	jsonOutput bool
}

// submitInput is the JSON form of a work submission, read from a file or
// from piped stdin. Flags set on the command line override its fields.
type submitInput struct {
	Role        string `json:"role"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Target      string `json:"target,omitempty"`
}

// NewSubmitCmd creates a new submit command
func NewSubmitCmd(flags *Flags, app *foreman.App) *SubmitCmd {
	return &SubmitCmd{flags: flags, app: app, fr: &iojson.FileReader[submitInput]{}}
}

// Register adds the submit command to the application
func (cmd *SubmitCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "submit",
		Usage:     "Submit a work item for routing",
		UsageText: "foreman submit --role <role> --title <title> [options]",
		Description: `Accepts a work item and opens a tracked branch for it.

If an agent with the requested role is available the branch is assigned
immediately; otherwise it waits in pending_assignment until one reports in.
The description is an opaque payload handed to the agent, never interpreted.

Work items can also be piped as JSON:
  echo '{"role":"frontend","title":"settings page"}' | foreman submit
  foreman submit -f item.json

Valid roles: ` + roleList() + `.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "role",
				Aliases:     []string{"r"},
				Usage:       "capability tag the work item requires",
				Destination: &cmd.role,
			},
			&cli.StringFlag{
				Name:        "title",
				Aliases:     []string{"t"},
				Usage:       "short human-readable title",
				Destination: &cmd.title,
			},
			&cli.StringFlag{
				Name:        "desc",
				Aliases:     []string{"d"},
				Usage:       "opaque task payload passed to the agent",
				Destination: &cmd.desc,
			},
			&cli.StringFlag{
				Name:        "target",
				Usage:       "promotion target lane (integration, production)",
				Destination: &cmd.target,
			},
			cmd.fr.Flag(),
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "output the created branch as JSON",
				Destination: &cmd.jsonOutput,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *SubmitCmd) run(ctx context.Context, c *cli.Command) error {
	var input submitInput
	if cmd.title == "" || cmd.role == "" {
		read, err := cmd.fr.Read()
		if err != nil {
			return fmt.Errorf("read work item: %w", err)
		}
		input = read
	}

	opts := foreman.SubmitOptions{
		Role:        firstNonEmpty(cmd.role, input.Role),
		Title:       firstNonEmpty(cmd.title, input.Title),
		Description: firstNonEmpty(cmd.desc, input.Description),
		Target:      firstNonEmpty(cmd.target, input.Target),
	}

	b, err := cmd.app.SubmitWork(ctx, opts)
	if err != nil {
		return fmt.Errorf("submit work: %w", err)
	}

	out := c.Root().Writer
	if cmd.jsonOutput {
		return iojson.WriteWith(out, os.Stderr, b)
	}

	switch b.State {
	case branch.StateInProgress:
		_, _ = fmt.Fprintf(out, "submitted %s (%s, assigned to %s)\n", b.ID, b.State, b.AssignedAgent)
	default:
		_, _ = fmt.Fprintf(out, "submitted %s (%s: no %s agent available)\n", b.ID, b.State, b.Role)
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func roleList() string {
	tags := make([]string, 0, len(role.All()))
	for _, r := range role.All() {
		tags = append(tags, r.String())
	}
	return strings.Join(tags, ", ")
}
