// Package policy defines the role-based approval policy for promotions and
// the decision records evaluated against it. The policy table is
// configuration, not code: stricter multi-approver policies substitute
// without touching the state machine.
package policy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/colonyops/foreman/internal/core/lane"
	"github.com/colonyops/foreman/internal/core/role"
)

var (
	// ErrNotReadyForApproval is returned when a gate operation runs against a
	// branch that is not awaiting approval (or whose work is not complete).
	ErrNotReadyForApproval = errors.New("not ready for approval")

	// ErrApprovalRejected is returned when a promotion is evaluated against a
	// review round containing an explicit rejection.
	ErrApprovalRejected = errors.New("approval rejected")
)

// Verdict is an approver's decision on a review round.
type Verdict string

const (
	VerdictApprove Verdict = "approve"
	VerdictReject  Verdict = "reject"
)

// ParseVerdict validates a decision string.
func ParseVerdict(s string) (Verdict, error) {
	v := Verdict(s)
	if v != VerdictApprove && v != VerdictReject {
		return "", fmt.Errorf("unknown verdict %q", s)
	}
	return v, nil
}

// Severity classifies a review finding. Critical findings are the ones
// expected to accompany a rejection; the control plane records but never
// second-guesses reviewer judgment.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// Finding is a single located issue attached to a review decision.
type Finding struct {
	Severity   Severity `json:"severity"`
	File       string   `json:"file,omitempty"`
	Line       int      `json:"line,omitempty"`
	Message    string   `json:"message"`
	Suggestion string   `json:"suggestion,omitempty"`
}

// Decision is one (approverRole, verdict, timestamp) tuple recorded against a
// branch's review round. Decisions of finalized rounds are immutable audit
// data.
type Decision struct {
	ID        string    `json:"id"`
	BranchID  string    `json:"branch_id"`
	Round     int       `json:"round"`
	Role      role.Role `json:"role"`
	Verdict   Verdict   `json:"verdict"`
	Note      string    `json:"note,omitempty"`
	Findings  []Finding `json:"findings,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Rule states who must approve a promotion into one target and how many
// matching approvals it takes.
type Rule struct {
	ApproverRole role.Role `yaml:"approver_role"`
	MinApprovals int       `yaml:"min_approvals"`
}

// Table maps each promotion target to its approval rule.
type Table map[lane.Target]Rule

// DefaultTable returns the two-tier policy: one reviewer approval into
// integration, one owner approval into production.
func DefaultTable() Table {
	return Table{
		lane.Integration: {ApproverRole: role.Reviewer, MinApprovals: 1},
		lane.Production:  {ApproverRole: role.Owner, MinApprovals: 1},
	}
}

// Validate checks that every known target has a sane rule and that no rule
// names a target that does not exist.
func (t Table) Validate() error {
	for _, target := range lane.Targets() {
		rule, ok := t[target]
		if !ok {
			return fmt.Errorf("policy missing rule for target %q", target)
		}
		if !rule.ApproverRole.Valid() {
			return fmt.Errorf("policy for %q: %w: %q", target, role.ErrUnknownRole, rule.ApproverRole)
		}
		if rule.MinApprovals < 1 {
			return fmt.Errorf("policy for %q: min_approvals must be at least 1, got %d", target, rule.MinApprovals)
		}
	}
	for target := range t {
		if !target.Valid() {
			return fmt.Errorf("policy names unknown target %q", target)
		}
	}
	return nil
}

// Outcome is the result of evaluating a review round against the policy.
type Outcome struct {
	Target    lane.Target `json:"target"`
	Satisfied bool        `json:"satisfied"`
	Approvals int         `json:"approvals"`       // counted approvals from the required role
	Missing   int         `json:"missing"`         // approvals still needed
	Rejected  bool        `json:"rejected"`        // round contains an explicit rejection
	Rule      Rule        `json:"rule"`
}

// Evaluate checks a round's decisions against the rule for the target. Each
// recorded decision counts once; an explicit rejection poisons the round
// regardless of how many approvals accompany it.
func (t Table) Evaluate(target lane.Target, decisions []Decision) (Outcome, error) {
	rule, ok := t[target]
	if !ok {
		return Outcome{}, fmt.Errorf("no policy rule for target %q", target)
	}

	out := Outcome{Target: target, Rule: rule}
	for _, d := range decisions {
		if d.Verdict == VerdictReject {
			out.Rejected = true
			continue
		}
		if d.Role == rule.ApproverRole {
			out.Approvals++
		}
	}

	out.Missing = rule.MinApprovals - out.Approvals
	if out.Missing < 0 {
		out.Missing = 0
	}
	out.Satisfied = !out.Rejected && out.Approvals >= rule.MinApprovals
	return out, nil
}

// Store persists approval decisions keyed by branch and review round.
type Store interface {
	// Append records a decision in the branch's current round.
	Append(ctx context.Context, d Decision) error

	// ListRound returns the decisions of one review round, oldest first.
	ListRound(ctx context.Context, branchID string, round int) ([]Decision, error)

	// ListByBranch returns every decision ever recorded for a branch.
	ListByBranch(ctx context.Context, branchID string) ([]Decision, error)
}
