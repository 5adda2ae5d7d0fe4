package eventbus

import (
	"fmt"
	"time"

	"github.com/colonyops/foreman/internal/core/notify"
)

// NotificationRouter maps domain events to operator-facing notifications.
type NotificationRouter struct {
	bus *EventBus
}

// NewNotificationRouter constructs a router for event-to-notification mappings.
func NewNotificationRouter(bus *EventBus) *NotificationRouter {
	return &NotificationRouter{bus: bus}
}

// Register subscribes all supported event mappings.
func (r *NotificationRouter) Register() {
	if r == nil || r.bus == nil {
		return
	}

	r.bus.SubscribeReworkLimitReached(func(p ReworkLimitReachedPayload) {
		if p.Branch == nil {
			return
		}
		r.notifyf(notify.LevelError, "branch %s closed: rework limit reached after %d rejections", p.Branch.ID, p.Count)
	})

	r.bus.SubscribeBranchStale(func(p BranchStalePayload) {
		if p.Branch == nil {
			return
		}
		r.notifyf(notify.LevelWarning, "branch %s stale: %s in %s for %s", p.Branch.ID, p.Branch.Title, p.Branch.State, p.Age.Round(time.Minute))
	})

	r.bus.SubscribeMergeConflicted(func(p MergeConflictedPayload) {
		if p.Branch == nil {
			return
		}
		r.notifyf(notify.LevelWarning, "branch %s hit a merge conflict on %s (%d files)", p.Branch.ID, p.Lane, len(p.Files))
	})

	r.bus.SubscribeMergeCompleted(func(p MergeCompletedPayload) {
		if p.Branch == nil {
			return
		}
		r.notifyf(notify.LevelInfo, "branch %s merged into %s", p.Branch.ID, p.Lane)
	})

	r.bus.SubscribeWithdrawSuperseded(func(p WithdrawSupersededPayload) {
		r.notifyf(notify.LevelInfo, "withdrawal of %s superseded: merge completed first", p.BranchID)
	})
}

func (r *NotificationRouter) notifyf(level notify.Level, format string, args ...any) {
	r.bus.PublishNotificationPublished(NotificationPublishedPayload{
		Level:   level,
		Message: fmt.Sprintf(format, args...),
	})
}
