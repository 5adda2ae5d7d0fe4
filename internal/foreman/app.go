package foreman

import (
	"context"

	"github.com/colonyops/foreman/internal/core/agentpool"
	"github.com/colonyops/foreman/internal/core/branch"
	"github.com/colonyops/foreman/internal/core/config"
	"github.com/colonyops/foreman/internal/core/eventbus"
	"github.com/colonyops/foreman/internal/core/notify"
	"github.com/colonyops/foreman/internal/core/policy"
	"github.com/colonyops/foreman/internal/core/role"
	"github.com/colonyops/foreman/internal/data/db"
)

// App is the orchestrator facade: the single entry point commands consume.
// Every method validates its inputs, delegates to exactly one service, and
// propagates component errors unchanged.
type App struct {
	Registry   *Registry
	Router     *Router
	Gate       *Gate
	Serializer *Serializer
	Staleness  *Staleness
	Doctor     *DoctorService

	Notifications notify.Store
	Config        *config.Config
	Bus           *eventbus.EventBus
	DB            *db.DB
}

// NewApp constructs an App from explicit dependencies.
func NewApp(
	registry *Registry,
	router *Router,
	gate *Gate,
	serializer *Serializer,
	staleness *Staleness,
	notifications notify.Store,
	cfg *config.Config,
	bus *eventbus.EventBus,
	database *db.DB,
) *App {
	return &App{
		Registry:      registry,
		Router:        router,
		Gate:          gate,
		Serializer:    serializer,
		Staleness:     staleness,
		Doctor:        NewDoctorService(serializer.branches, serializer.agents, serializer.lanes, database, cfg),
		Notifications: notifications,
		Config:        cfg,
		Bus:           bus,
		DB:            database,
	}
}

// BranchStatus is the read-only snapshot returned by QueryBranchState.
type BranchStatus struct {
	Branch        branch.Branch       `json:"branch"`
	WorkItem      branch.WorkItem     `json:"work_item"`
	Decisions     []policy.Decision   `json:"decisions,omitempty"`
	Outcome       *policy.Outcome     `json:"outcome,omitempty"`
	QueuePosition int                 `json:"queue_position,omitempty"`
	History       []branch.Transition `json:"history,omitempty"`
}

// SubmitWork accepts a work item and routes it.
func (a *App) SubmitWork(ctx context.Context, opts SubmitOptions) (branch.Branch, error) {
	return a.Router.Submit(ctx, opts)
}

// ReportAgentAvailable records an agent as ready for work.
func (a *App) ReportAgentAvailable(ctx context.Context, roleTag, agentID string) error {
	r, err := role.Parse(roleTag)
	if err != nil {
		return err
	}
	return a.Router.ReportAgentAvailable(ctx, r, agentID)
}

// ReportAgentGone marks an agent unavailable.
func (a *App) ReportAgentGone(ctx context.Context, agentID string) error {
	return a.Router.ReportAgentGone(ctx, agentID)
}

// ReportWorkComplete records an agent's completion signal for a branch.
func (a *App) ReportWorkComplete(ctx context.Context, branchID, summary string) (branch.Branch, error) {
	return a.Registry.ReportWorkComplete(ctx, branchID, summary)
}

// RequestReview opens a review round for a branch.
func (a *App) RequestReview(ctx context.Context, branchID string) (branch.Branch, error) {
	return a.Gate.RequestReview(ctx, branchID)
}

// RecordApprovalDecision records one approver's verdict on a branch's open
// review round.
func (a *App) RecordApprovalDecision(ctx context.Context, branchID, roleTag, decision string, opts DecisionOptions) (policy.Outcome, error) {
	r, err := role.Parse(roleTag)
	if err != nil {
		return policy.Outcome{}, err
	}
	verdict, err := policy.ParseVerdict(decision)
	if err != nil {
		return policy.Outcome{}, err
	}
	return a.Gate.RecordDecision(ctx, branchID, r, verdict, opts)
}

// RequestPromotion evaluates a branch's open round against the policy.
func (a *App) RequestPromotion(ctx context.Context, branchID string) (policy.Outcome, error) {
	return a.Gate.RequestPromotion(ctx, branchID)
}

// Promote merges a queued branch, waiting for its lane.
func (a *App) Promote(ctx context.Context, branchID string) error {
	return a.Serializer.Promote(ctx, branchID)
}

// TryPromote merges a queued branch if its lane is free.
func (a *App) TryPromote(ctx context.Context, branchID string) error {
	return a.Serializer.TryPromote(ctx, branchID)
}

// Withdraw cancels a branch.
func (a *App) Withdraw(ctx context.Context, branchID, reason string) (branch.Branch, error) {
	return a.Serializer.Withdraw(ctx, branchID, reason)
}

// QueryBranchState returns a branch's full status. Read-only: repeated
// calls never change anything.
func (a *App) QueryBranchState(ctx context.Context, branchID string) (BranchStatus, error) {
	b, err := a.Registry.Get(ctx, branchID)
	if err != nil {
		return BranchStatus{}, err
	}
	item, err := a.Registry.GetWorkItem(ctx, b.WorkItemID)
	if err != nil {
		return BranchStatus{}, err
	}

	status := BranchStatus{Branch: b, WorkItem: item}

	if b.ReviewRound > 0 {
		decisions, err := a.Gate.RoundDecisions(ctx, b.ID, b.ReviewRound)
		if err != nil {
			return BranchStatus{}, err
		}
		status.Decisions = decisions
		if b.State == branch.StateReviewRequested {
			outcome, err := a.Config.Policy.Evaluate(b.Target, decisions)
			if err != nil {
				return BranchStatus{}, err
			}
			status.Outcome = &outcome
		}
	}

	if b.State == branch.StateQueuedForMerge {
		pos, err := a.Serializer.QueuePosition(ctx, b.ID, b.Target)
		if err != nil {
			return BranchStatus{}, err
		}
		status.QueuePosition = pos
	}

	history, err := a.Registry.History(ctx, b.ID)
	if err != nil {
		return BranchStatus{}, err
	}
	status.History = history

	return status, nil
}

// ListBranches returns branches matching the filter, oldest first.
func (a *App) ListBranches(ctx context.Context, f branch.Filter) ([]branch.Branch, error) {
	return a.Registry.List(ctx, f)
}

// Agents returns pool members matching the filter.
func (a *App) Agents(ctx context.Context, f agentpool.Filter) ([]agentpool.Agent, error) {
	return a.Router.Agents(ctx, f)
}

// Lanes reports lane tokens and queues.
func (a *App) Lanes(ctx context.Context) ([]LaneStatus, error) {
	return a.Serializer.Lanes(ctx)
}

// History returns the audit trail for one branch, or the most recent
// transitions across all branches when branchID is empty.
func (a *App) History(ctx context.Context, branchID string, limit int) ([]branch.Transition, error) {
	if branchID == "" {
		return a.Registry.RecentHistory(ctx, limit)
	}
	return a.Registry.History(ctx, branchID)
}

// Alerts returns stored operator notifications, newest first.
func (a *App) Alerts(ctx context.Context) ([]notify.Notification, error) {
	return a.Notifications.List(ctx)
}

// ClearAlerts deletes all stored notifications.
func (a *App) ClearAlerts(ctx context.Context) error {
	return a.Notifications.Clear(ctx)
}

// AlertCount returns the number of stored notifications.
func (a *App) AlertCount(ctx context.Context) (int64, error) {
	return a.Notifications.Count(ctx)
}
