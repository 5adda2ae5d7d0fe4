package hosting

import "context"

// Discard is a Host that accepts every operation and does nothing. It backs
// registry-only deployments and tests, where lifecycle tracking matters but
// no clone is wired up.
type Discard struct{}

var _ Host = Discard{}

func (Discard) CreateBranch(context.Context, string, string) error { return nil }

func (Discard) DeleteBranch(context.Context, string) error { return nil }

func (Discard) Merge(context.Context, string, string, MergeOptions) (MergeResult, error) {
	return MergeResult{Clean: true}, nil
}

func (Discard) DiffSummary(context.Context, string, string) (DiffStats, error) {
	return DiffStats{}, nil
}
