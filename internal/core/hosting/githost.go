package hosting

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/colonyops/foreman/pkg/executil"
	"github.com/rs/zerolog/log"
)

// GitHost implements Host against a local clone using the git command-line
// tool. Promotion merges run in the clone's work tree, so the clone must not
// be used for anything else while the control plane owns it.
type GitHost struct {
	repoDir string
	gitPath string
	exec    executil.Executor
}

var _ Host = (*GitHost)(nil)

// NewGitHost creates a git-backed host rooted at repoDir.
func NewGitHost(repoDir, gitPath string, exec executil.Executor) *GitHost {
	return &GitHost{repoDir: repoDir, gitPath: gitPath, exec: exec}
}

// run executes one git command in the clone. The ctx carries branch/agent
// identity added by the caller; the logging context hook lifts it into the
// debug line.
func (h *GitHost) run(ctx context.Context, args ...string) ([]byte, error) {
	log.Debug().Ctx(ctx).Strs("args", args).Msg("executing git")
	return h.exec.RunDir(ctx, h.repoDir, h.gitPath, args...)
}

func (h *GitHost) CreateBranch(ctx context.Context, name, base string) error {
	if _, err := h.run(ctx, "branch", name, base); err != nil {
		return fmt.Errorf("create branch %s from %s: %w", name, base, err)
	}
	return nil
}

func (h *GitHost) DeleteBranch(ctx context.Context, name string) error {
	if _, err := h.run(ctx, "branch", "-D", name); err != nil {
		return fmt.Errorf("delete branch %s: %w", name, err)
	}
	return nil
}

// Merge checks out target and merges source into it. A merge that stops on
// content conflicts is unwound with `git reset --merge` (which also handles
// squash merges, where `git merge --abort` does not work) and reported as an
// unclean result, not an error.
func (h *GitHost) Merge(ctx context.Context, source, target string, opts MergeOptions) (MergeResult, error) {
	if _, err := h.run(ctx, "checkout", target); err != nil {
		return MergeResult{}, fmt.Errorf("checkout %s: %w", target, err)
	}

	args := []string{"merge"}
	if opts.Squash {
		args = append(args, "--squash")
	} else {
		args = append(args, "--no-ff")
		if opts.Message != "" {
			args = append(args, "-m", opts.Message)
		}
	}
	args = append(args, source)

	if _, err := h.run(ctx, args...); err != nil {
		files, lerr := h.unmergedFiles(ctx)
		if lerr != nil || len(files) == 0 {
			// No unmerged paths: the merge failed outright rather than
			// stopping on conflicts.
			return MergeResult{}, fmt.Errorf("merge %s into %s: %w", source, target, err)
		}
		if _, aerr := h.run(ctx, "reset", "--merge"); aerr != nil {
			return MergeResult{}, fmt.Errorf("unwind conflicted merge of %s: %w", source, aerr)
		}
		return MergeResult{
			ConflictFiles: files,
			Reason:        fmt.Sprintf("%d files conflict merging %s into %s", len(files), source, target),
		}, nil
	}

	if opts.Squash {
		msg := opts.Message
		if msg == "" {
			msg = fmt.Sprintf("Merge %s", source)
		}
		if _, err := h.run(ctx, "commit", "-m", msg); err != nil {
			return MergeResult{}, fmt.Errorf("commit squashed merge of %s: %w", source, err)
		}
	}

	sha, err := h.headSHA(ctx)
	if err != nil {
		return MergeResult{}, err
	}
	return MergeResult{Clean: true, CommitSHA: sha}, nil
}

// DiffSummary parses the patch between target and source. Three-dot notation
// compares against the merge base so only the branch's own changes count.
func (h *GitHost) DiffSummary(ctx context.Context, source, target string) (DiffStats, error) {
	out, err := h.run(ctx, "diff", target+"..."+source)
	if err != nil {
		return DiffStats{}, fmt.Errorf("diff %s...%s: %w", target, source, err)
	}
	stats, err := ParsePatch(bytes.NewReader(out))
	if err != nil {
		return DiffStats{}, fmt.Errorf("summarize diff %s...%s: %w", target, source, err)
	}
	return stats, nil
}

func (h *GitHost) unmergedFiles(ctx context.Context) ([]string, error) {
	out, err := h.run(ctx, "diff", "--name-only", "--diff-filter=U")
	if err != nil {
		return nil, fmt.Errorf("list unmerged files: %w", err)
	}
	var files []string
	for _, line := range strings.Split(string(out), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			files = append(files, line)
		}
	}
	return files, nil
}

func (h *GitHost) headSHA(ctx context.Context) (string, error) {
	out, err := h.run(ctx, "rev-parse", "HEAD")
	if err != nil {
		return "", fmt.Errorf("resolve HEAD: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}
