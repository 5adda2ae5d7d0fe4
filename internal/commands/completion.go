package commands

import (
	"context"
	"fmt"

	"github.com/colonyops/foreman/internal/core/branch"
	"github.com/colonyops/foreman/internal/foreman"
	"github.com/urfave/cli/v3"
)

// BranchIDCompleter returns a ShellCompleteFunc that suggests live branch
// ids as positional completions. Set this as the ShellComplete field on any
// cli.Command that accepts a branch id as an argument.
//
// When the user's last typed argument starts with "-", it falls back to the
// default flag completion behavior.
func BranchIDCompleter(app *foreman.App) cli.ShellCompleteFunc {
	return func(ctx context.Context, cmd *cli.Command) {
		// Delegate to default flag completion when typing a flag
		if args := cmd.Args(); args.Present() {
			last := args.Slice()[args.Len()-1]
			if len(last) > 0 && last[0] == '-' {
				cli.DefaultCompleteWithFlags(ctx, cmd)
				return
			}
		}

		branches, err := app.ListBranches(ctx, branch.Filter{})
		if err != nil {
			return
		}

		w := cmd.Root().Writer
		for _, b := range branches {
			if b.State.Terminal() {
				continue
			}
			_, _ = fmt.Fprintln(w, b.ID)
		}
	}
}
