package doctor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// RepoCheck verifies the configured repository clone exists and is a git
// work tree.
type RepoCheck struct {
	repoDir string
}

// NewRepoCheck creates a repository clone check.
func NewRepoCheck(repoDir string) *RepoCheck {
	return &RepoCheck{repoDir: repoDir}
}

func (c *RepoCheck) Name() string {
	return "Repository"
}

func (c *RepoCheck) Run(_ context.Context) Result {
	result := Result{Name: c.Name()}

	if c.repoDir == "" {
		result.Items = append(result.Items, CheckItem{
			Label:  "repo_dir",
			Status: StatusPass,
			Detail: "not configured (registry-only mode)",
		})
		return result
	}

	info, err := os.Stat(c.repoDir)
	switch {
	case os.IsNotExist(err):
		result.Items = append(result.Items, CheckItem{
			Label:  c.repoDir,
			Status: StatusFail,
			Detail: "directory does not exist",
		})
	case err != nil:
		result.Items = append(result.Items, CheckItem{
			Label:  c.repoDir,
			Status: StatusFail,
			Detail: fmt.Sprintf("inaccessible: %v", err),
		})
	case !info.IsDir():
		result.Items = append(result.Items, CheckItem{
			Label:  c.repoDir,
			Status: StatusFail,
			Detail: "path is not a directory",
		})
	default:
		if _, err := os.Stat(filepath.Join(c.repoDir, ".git")); err != nil {
			result.Items = append(result.Items, CheckItem{
				Label:  c.repoDir,
				Status: StatusFail,
				Detail: "not a git work tree (no .git)",
			})
		} else {
			result.Items = append(result.Items, CheckItem{
				Label:  c.repoDir,
				Status: StatusPass,
			})
		}
	}

	return result
}
