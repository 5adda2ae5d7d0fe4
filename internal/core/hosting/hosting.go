// Package hosting abstracts the source-hosting provider behind a narrow
// interface. The control plane asks for branches, merges, and diff summaries;
// it never reproduces a provider API and never parses branch names back into
// state.
package hosting

import "context"

// DiffStats summarizes a branch's changes against its merge target.
type DiffStats struct {
	Files     int `json:"files"`
	Additions int `json:"additions"`
	Deletions int `json:"deletions"`
}

// MergeOptions controls how a merge is performed.
type MergeOptions struct {
	// Squash collapses the branch into a single commit on the target.
	Squash bool
	// Message is the commit message for squash merges.
	Message string
}

// MergeResult reports the outcome of a merge attempt. A conflicted merge is
// a normal outcome, not an error: Clean is false and ConflictFiles lists the
// paths that could not be applied.
type MergeResult struct {
	Clean         bool
	CommitSHA     string
	ConflictFiles []string
	Reason        string
}

// Host defines the source-hosting operations the control plane needs.
type Host interface {
	// CreateBranch creates a branch at the host, pointing at base.
	CreateBranch(ctx context.Context, name, base string) error
	// Merge applies source onto target. Content conflicts are reported in
	// the result with a nil error; a non-nil error means the operation
	// itself failed.
	Merge(ctx context.Context, source, target string, opts MergeOptions) (MergeResult, error)
	// DeleteBranch removes a branch at the host.
	DeleteBranch(ctx context.Context, name string) error
	// DiffSummary summarizes the changes source carries relative to target.
	DiffSummary(ctx context.Context, source, target string) (DiffStats, error)
}
