// Package eventbus provides a typed publish/subscribe event bus. Every state
// transition, lane depth change, and operator-facing condition in the control
// plane is published here; subscribers range from the promotion worker to the
// debug logger and the notification router.
package eventbus

import (
	"time"

	"github.com/colonyops/foreman/internal/core/branch"
	"github.com/colonyops/foreman/internal/core/hosting"
	"github.com/colonyops/foreman/internal/core/lane"
	"github.com/colonyops/foreman/internal/core/notify"
	"github.com/colonyops/foreman/internal/core/policy"
	"github.com/colonyops/foreman/internal/core/role"
)

// Event names a bus event type.
type Event string

// Event identifiers. Keep list sorted A-Z.
const (
	EventAgentAvailabilityChanged Event = "agent.availability-changed"
	EventBranchAssigned           Event = "branch.assigned"
	EventBranchCreated            Event = "branch.created"
	EventBranchStale              Event = "branch.stale"
	EventBranchTransitioned       Event = "branch.transitioned"
	EventConfigReloaded           Event = "config.reloaded"
	EventDecisionRecorded         Event = "review.decision-recorded"
	EventLaneDepthChanged         Event = "lane.depth-changed"
	EventMergeCompleted           Event = "merge.completed"
	EventMergeConflicted          Event = "merge.conflicted"
	EventNotificationPublished    Event = "notification.published"
	EventReviewRequested          Event = "review.requested"
	EventReworkLimitReached       Event = "rework.limit-reached"
	EventWithdrawQueued           Event = "branch.withdraw-queued"
	EventWithdrawSuperseded       Event = "branch.withdraw-superseded"
)

// BranchCreatedPayload is emitted when the router accepts a work item and
// opens a branch for it.
type BranchCreatedPayload struct {
	Branch *branch.Branch
}

// BranchAssignedPayload is emitted when a branch is assigned to an agent,
// either at submission or on a later availability change.
type BranchAssignedPayload struct {
	Branch  *branch.Branch
	AgentID string
}

// BranchTransitionedPayload is emitted for every successful lifecycle
// transition. The durable transition log is the persistent mirror of this
// event stream.
type BranchTransitionedPayload struct {
	BranchID string
	From     branch.State
	To       branch.State
	Reason   string
	Actor    string
}

// BranchStalePayload is emitted when the staleness sweeper flags a branch
// sitting in one state past the configured threshold. Observability only;
// no transition is forced.
type BranchStalePayload struct {
	Branch *branch.Branch
	Age    time.Duration
}

// WithdrawQueuedPayload is emitted when a cancellation arrives while the
// branch is merging and must wait for the in-flight merge to resolve.
type WithdrawQueuedPayload struct {
	BranchID string
	Reason   string
}

// WithdrawSupersededPayload is emitted when a queued cancellation is
// discarded because the merge completed cleanly first.
type WithdrawSupersededPayload struct {
	BranchID string
}

// ReviewRequestedPayload is emitted when a branch enters review. Stats are
// best-effort diff numbers from the hosting boundary; zero when unavailable.
type ReviewRequestedPayload struct {
	Branch *branch.Branch
	Round  int
	Stats  hosting.DiffStats
}

// DecisionRecordedPayload is emitted for every recorded approval decision,
// together with the policy evaluation it produced.
type DecisionRecordedPayload struct {
	BranchID string
	Round    int
	Role     role.Role
	Verdict  policy.Verdict
	Outcome  policy.Outcome
}

// ReworkLimitReachedPayload is emitted when a rejection pushes a branch past
// the configured rework limit and it is closed.
type ReworkLimitReachedPayload struct {
	Branch *branch.Branch
	Count  int
}

// MergeCompletedPayload is emitted when a promotion lands cleanly.
type MergeCompletedPayload struct {
	Branch    *branch.Branch
	Lane      lane.Target
	CommitSHA string
}

// MergeConflictedPayload is emitted when the hosting collaborator reports a
// merge cannot apply cleanly. Expected outcome, not a defect: the branch is
// already back in the agent's hands when this fires.
type MergeConflictedPayload struct {
	Branch *branch.Branch
	Lane   lane.Target
	Reason string
	Files  []string
}

// LaneDepthChangedPayload is emitted whenever a lane queue grows or shrinks.
type LaneDepthChangedPayload struct {
	Lane  lane.Target
	Depth int
}

// AgentAvailabilityChangedPayload is emitted when the agent pool reports an
// agent available or gone. The router's assignment retry keys off this.
type AgentAvailabilityChangedPayload struct {
	AgentID   string
	Role      role.Role
	Available bool
}

// ConfigReloadedPayload is emitted by the config watcher after the config
// file changes and reloads cleanly. It carries the freshly parsed policy
// table; the subscriber that applies it runs on the dispatch goroutine so the
// swap never races with policy evaluation.
type ConfigReloadedPayload struct {
	Policy policy.Table
}

// NotificationPublishedPayload is emitted by the notification router for
// conditions that must reach a human operator.
type NotificationPublishedPayload struct {
	Level   notify.Level
	Message string
}
