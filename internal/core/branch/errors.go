package branch

import "errors"

var (
	// ErrNotFound is returned when a branch or work item identifier is unknown.
	ErrNotFound = errors.New("branch not found")

	// ErrIllegalTransition is returned when a requested lifecycle edge is not
	// in the adjacency table. The branch is left unchanged.
	ErrIllegalTransition = errors.New("illegal transition")

	// ErrReworkLimitExceeded is returned when a rejection would push a branch
	// past the configured rework limit. The branch is closed and the condition
	// is surfaced to the operator.
	ErrReworkLimitExceeded = errors.New("rework limit exceeded")

	// ErrMergeConflict is returned when an operation targets a branch whose
	// merge conflicted and has not been reconciled through review yet.
	ErrMergeConflict = errors.New("merge conflict")
)
