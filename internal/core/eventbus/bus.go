package eventbus

import (
	"context"
	"sync"
)

// envelope pairs an event identifier with its payload for dispatch.
type envelope struct {
	event   Event
	payload any
}

// EventBus is a buffered, typed publish/subscribe bus. Publishing never
// blocks: events beyond the buffer are dropped (and reported via OnDrop).
// Dispatch happens on the Start goroutine, so subscribers run off the
// publisher's critical path.
type EventBus struct {
	ch    chan envelope
	hooks hooks

	mu   sync.RWMutex
	subs map[Event][]func(any)
}

// New creates a bus with the given buffer size.
func New(buffer int) *EventBus {
	return &EventBus{
		ch:   make(chan envelope, buffer),
		subs: make(map[Event][]func(any)),
	}
}

// Start runs the dispatch loop until ctx is cancelled, then drains any
// buffered events before returning so short-lived invocations do not lose
// their tail.
func (bus *EventBus) Start(ctx context.Context) {
	for {
		select {
		case env := <-bus.ch:
			bus.dispatch(env)
		case <-ctx.Done():
			for {
				select {
				case env := <-bus.ch:
					bus.dispatch(env)
				default:
					return
				}
			}
		}
	}
}

func (bus *EventBus) dispatch(env envelope) {
	bus.mu.RLock()
	handlers := make([]func(any), len(bus.subs[env.event]))
	copy(handlers, bus.subs[env.event])
	bus.mu.RUnlock()

	for _, fn := range handlers {
		bus.safeCall(env.event, env.payload, fn)
	}
}

// safeCall invokes a subscriber, converting panics into OnPanic hook calls so
// one misbehaving subscriber cannot take down the dispatch loop.
func (bus *EventBus) safeCall(event Event, payload any, fn func(any)) {
	defer func() {
		if r := recover(); r != nil {
			bus.runOnPanic(event, payload, r)
		}
	}()
	fn(payload)
}

func (bus *EventBus) subscribe(event Event, fn func(any)) {
	bus.mu.Lock()
	bus.subs[event] = append(bus.subs[event], fn)
	bus.mu.Unlock()
	bus.runOnSubscribe(event)
}

// PublishAgentAvailabilityChanged publishes an agent.availability-changed event.
func (bus *EventBus) PublishAgentAvailabilityChanged(p AgentAvailabilityChangedPayload) {
	bus.send(EventAgentAvailabilityChanged, p)
}

// SubscribeAgentAvailabilityChanged registers a handler for agent.availability-changed events.
func (bus *EventBus) SubscribeAgentAvailabilityChanged(fn func(AgentAvailabilityChangedPayload)) {
	bus.subscribe(EventAgentAvailabilityChanged, func(v any) {
		if p, ok := v.(AgentAvailabilityChangedPayload); ok {
			fn(p)
		}
	})
}

// PublishBranchAssigned publishes a branch.assigned event.
func (bus *EventBus) PublishBranchAssigned(p BranchAssignedPayload) {
	bus.send(EventBranchAssigned, p)
}

// SubscribeBranchAssigned registers a handler for branch.assigned events.
func (bus *EventBus) SubscribeBranchAssigned(fn func(BranchAssignedPayload)) {
	bus.subscribe(EventBranchAssigned, func(v any) {
		if p, ok := v.(BranchAssignedPayload); ok {
			fn(p)
		}
	})
}

// PublishBranchCreated publishes a branch.created event.
func (bus *EventBus) PublishBranchCreated(p BranchCreatedPayload) {
	bus.send(EventBranchCreated, p)
}

// SubscribeBranchCreated registers a handler for branch.created events.
func (bus *EventBus) SubscribeBranchCreated(fn func(BranchCreatedPayload)) {
	bus.subscribe(EventBranchCreated, func(v any) {
		if p, ok := v.(BranchCreatedPayload); ok {
			fn(p)
		}
	})
}

// PublishBranchStale publishes a branch.stale event.
func (bus *EventBus) PublishBranchStale(p BranchStalePayload) {
	bus.send(EventBranchStale, p)
}

// SubscribeBranchStale registers a handler for branch.stale events.
func (bus *EventBus) SubscribeBranchStale(fn func(BranchStalePayload)) {
	bus.subscribe(EventBranchStale, func(v any) {
		if p, ok := v.(BranchStalePayload); ok {
			fn(p)
		}
	})
}

// PublishBranchTransitioned publishes a branch.transitioned event.
func (bus *EventBus) PublishBranchTransitioned(p BranchTransitionedPayload) {
	bus.send(EventBranchTransitioned, p)
}

// SubscribeBranchTransitioned registers a handler for branch.transitioned events.
func (bus *EventBus) SubscribeBranchTransitioned(fn func(BranchTransitionedPayload)) {
	bus.subscribe(EventBranchTransitioned, func(v any) {
		if p, ok := v.(BranchTransitionedPayload); ok {
			fn(p)
		}
	})
}

// PublishConfigReloaded publishes a config.reloaded event.
func (bus *EventBus) PublishConfigReloaded(p ConfigReloadedPayload) {
	bus.send(EventConfigReloaded, p)
}

// SubscribeConfigReloaded registers a handler for config.reloaded events.
func (bus *EventBus) SubscribeConfigReloaded(fn func(ConfigReloadedPayload)) {
	bus.subscribe(EventConfigReloaded, func(v any) {
		if p, ok := v.(ConfigReloadedPayload); ok {
			fn(p)
		}
	})
}

// PublishDecisionRecorded publishes a review.decision-recorded event.
func (bus *EventBus) PublishDecisionRecorded(p DecisionRecordedPayload) {
	bus.send(EventDecisionRecorded, p)
}

// SubscribeDecisionRecorded registers a handler for review.decision-recorded events.
func (bus *EventBus) SubscribeDecisionRecorded(fn func(DecisionRecordedPayload)) {
	bus.subscribe(EventDecisionRecorded, func(v any) {
		if p, ok := v.(DecisionRecordedPayload); ok {
			fn(p)
		}
	})
}

// PublishLaneDepthChanged publishes a lane.depth-changed event.
func (bus *EventBus) PublishLaneDepthChanged(p LaneDepthChangedPayload) {
	bus.send(EventLaneDepthChanged, p)
}

// SubscribeLaneDepthChanged registers a handler for lane.depth-changed events.
func (bus *EventBus) SubscribeLaneDepthChanged(fn func(LaneDepthChangedPayload)) {
	bus.subscribe(EventLaneDepthChanged, func(v any) {
		if p, ok := v.(LaneDepthChangedPayload); ok {
			fn(p)
		}
	})
}

// PublishMergeCompleted publishes a merge.completed event.
func (bus *EventBus) PublishMergeCompleted(p MergeCompletedPayload) {
	bus.send(EventMergeCompleted, p)
}

// SubscribeMergeCompleted registers a handler for merge.completed events.
func (bus *EventBus) SubscribeMergeCompleted(fn func(MergeCompletedPayload)) {
	bus.subscribe(EventMergeCompleted, func(v any) {
		if p, ok := v.(MergeCompletedPayload); ok {
			fn(p)
		}
	})
}

// PublishMergeConflicted publishes a merge.conflicted event.
func (bus *EventBus) PublishMergeConflicted(p MergeConflictedPayload) {
	bus.send(EventMergeConflicted, p)
}

// SubscribeMergeConflicted registers a handler for merge.conflicted events.
func (bus *EventBus) SubscribeMergeConflicted(fn func(MergeConflictedPayload)) {
	bus.subscribe(EventMergeConflicted, func(v any) {
		if p, ok := v.(MergeConflictedPayload); ok {
			fn(p)
		}
	})
}

// PublishNotificationPublished publishes a notification.published event.
func (bus *EventBus) PublishNotificationPublished(p NotificationPublishedPayload) {
	bus.send(EventNotificationPublished, p)
}

// SubscribeNotificationPublished registers a handler for notification.published events.
func (bus *EventBus) SubscribeNotificationPublished(fn func(NotificationPublishedPayload)) {
	bus.subscribe(EventNotificationPublished, func(v any) {
		if p, ok := v.(NotificationPublishedPayload); ok {
			fn(p)
		}
	})
}

// PublishReviewRequested publishes a review.requested event.
func (bus *EventBus) PublishReviewRequested(p ReviewRequestedPayload) {
	bus.send(EventReviewRequested, p)
}

// SubscribeReviewRequested registers a handler for review.requested events.
func (bus *EventBus) SubscribeReviewRequested(fn func(ReviewRequestedPayload)) {
	bus.subscribe(EventReviewRequested, func(v any) {
		if p, ok := v.(ReviewRequestedPayload); ok {
			fn(p)
		}
	})
}

// PublishReworkLimitReached publishes a rework.limit-reached event.
func (bus *EventBus) PublishReworkLimitReached(p ReworkLimitReachedPayload) {
	bus.send(EventReworkLimitReached, p)
}

// SubscribeReworkLimitReached registers a handler for rework.limit-reached events.
func (bus *EventBus) SubscribeReworkLimitReached(fn func(ReworkLimitReachedPayload)) {
	bus.subscribe(EventReworkLimitReached, func(v any) {
		if p, ok := v.(ReworkLimitReachedPayload); ok {
			fn(p)
		}
	})
}

// PublishWithdrawQueued publishes a branch.withdraw-queued event.
func (bus *EventBus) PublishWithdrawQueued(p WithdrawQueuedPayload) {
	bus.send(EventWithdrawQueued, p)
}

// SubscribeWithdrawQueued registers a handler for branch.withdraw-queued events.
func (bus *EventBus) SubscribeWithdrawQueued(fn func(WithdrawQueuedPayload)) {
	bus.subscribe(EventWithdrawQueued, func(v any) {
		if p, ok := v.(WithdrawQueuedPayload); ok {
			fn(p)
		}
	})
}

// PublishWithdrawSuperseded publishes a branch.withdraw-superseded event.
func (bus *EventBus) PublishWithdrawSuperseded(p WithdrawSupersededPayload) {
	bus.send(EventWithdrawSuperseded, p)
}

// SubscribeWithdrawSuperseded registers a handler for branch.withdraw-superseded events.
func (bus *EventBus) SubscribeWithdrawSuperseded(fn func(WithdrawSupersededPayload)) {
	bus.subscribe(EventWithdrawSuperseded, func(v any) {
		if p, ok := v.(WithdrawSupersededPayload); ok {
			fn(p)
		}
	})
}
