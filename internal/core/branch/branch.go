// Package branch defines the unit-of-work branch entity and its lifecycle
// state machine. Branches are owned exclusively by the registry and mutated
// only through state-machine transitions issued by the orchestrator.
package branch

import (
	"regexp"
	"strings"
	"time"

	"github.com/colonyops/foreman/internal/core/lane"
	"github.com/colonyops/foreman/internal/core/role"
)

var nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)

// maxSlugLen bounds generated slugs so host branch names stay readable.
const maxSlugLen = 30

// Slugify converts a work item title to a branch-name-safe slug.
// "Add OAuth login flow" -> "add-oauth-login-flow"
func Slugify(title string) string {
	s := strings.ToLower(strings.TrimSpace(title))
	s = nonAlphanumeric.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > maxSlugLen {
		s = strings.Trim(s[:maxSlugLen], "-")
	}
	return s
}

// WorkItem is an externally submitted unit of requested work. Immutable after
// submission; consumed once a Branch is created for it.
type WorkItem struct {
	ID        string    `json:"id"`
	Role      role.Role `json:"role"`
	Title     string    `json:"title"`
	Payload   string    `json:"payload,omitempty"` // opaque description, never interpreted
	CreatedAt time.Time `json:"created_at"`
}

// Branch is the central tracked entity: one unit of work-in-progress flowing
// toward a promotion target.
//
// Terminology:
//   - Branch: the control plane's durable record of one unit of work
//   - Host branch: the git ref the owning agent commits to (presentation
//     only, generated at the hosting boundary)
//   - Lane: the serialization domain for promotions into one target
type Branch struct {
	ID            string      `json:"id"`
	WorkItemID    string      `json:"work_item_id"`
	Role          role.Role   `json:"role"`
	Title         string      `json:"title"`
	Target        lane.Target `json:"target"`
	State         State       `json:"state"`
	AssignedAgent string      `json:"assigned_agent,omitempty"`
	HostBranch    string      `json:"host_branch,omitempty"`

	// ReviewRound numbers the approval record rounds. Each review request
	// opens a new round; decisions attach to the round that was open when
	// they were recorded. Zero means no review has been requested yet.
	ReviewRound int `json:"review_round"`

	ReworkCount   int    `json:"rework_count"`
	ConflictCount int    `json:"conflict_count"`
	WorkSummary   string `json:"work_summary,omitempty"`

	// WithdrawRequested marks a cancellation that arrived while the branch
	// was merging; it is applied when the in-flight merge resolves.
	WithdrawRequested bool   `json:"withdraw_requested,omitempty"`
	WithdrawReason    string `json:"withdraw_reason,omitempty"`

	WorkCompletedAt time.Time `json:"work_completed_at,omitzero"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	ArchivedAt      time.Time `json:"archived_at,omitzero"`
}

// WorkComplete reports whether the owning agent has signaled completion for
// the current round of work.
func (b *Branch) WorkComplete() bool {
	return !b.WorkCompletedAt.IsZero()
}

// Advance moves the branch to the given state, stamping the transition time.
// Illegal edges fail with ErrIllegalTransition and leave the branch unchanged.
func (b *Branch) Advance(to State, now time.Time) error {
	if err := CheckTransition(b.State, to); err != nil {
		return err
	}
	b.State = to
	b.UpdatedAt = now
	if to.Terminal() {
		b.ArchivedAt = now
	}
	return nil
}

// ResetWork clears the completion signal for a new round of work. Called when
// a branch returns to in_progress for rework or conflict reconciliation.
func (b *Branch) ResetWork() {
	b.WorkCompletedAt = time.Time{}
	b.WorkSummary = ""
}
