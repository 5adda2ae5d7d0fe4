// Package testbus provides test utilities for the event bus.
// It wraps a real EventBus with event recording and assertion helpers.
package testbus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/colonyops/foreman/internal/core/eventbus"
)

// RecordedEvent holds a captured event name and payload.
type RecordedEvent struct {
	Event   eventbus.Event
	Payload any
}

// Bus wraps a real EventBus with event recording for tests.
type Bus struct {
	*eventbus.EventBus
	cancel context.CancelFunc

	mu     sync.Mutex
	events []RecordedEvent
}

// New creates a test bus, starts it in a background goroutine, and
// subscribes to all event types for recording. The bus is stopped
// when the test completes.
func New(t *testing.T) *Bus {
	t.Helper()

	bus := eventbus.New(64)
	ctx, cancel := context.WithCancel(context.Background())

	tb := &Bus{
		EventBus: bus,
		cancel:   cancel,
	}

	// Subscribe to all event types for recording.
	bus.SubscribeBranchCreated(func(p eventbus.BranchCreatedPayload) {
		tb.record(eventbus.EventBranchCreated, p)
	})
	bus.SubscribeBranchAssigned(func(p eventbus.BranchAssignedPayload) {
		tb.record(eventbus.EventBranchAssigned, p)
	})
	bus.SubscribeBranchTransitioned(func(p eventbus.BranchTransitionedPayload) {
		tb.record(eventbus.EventBranchTransitioned, p)
	})
	bus.SubscribeBranchStale(func(p eventbus.BranchStalePayload) {
		tb.record(eventbus.EventBranchStale, p)
	})
	bus.SubscribeWithdrawQueued(func(p eventbus.WithdrawQueuedPayload) {
		tb.record(eventbus.EventWithdrawQueued, p)
	})
	bus.SubscribeWithdrawSuperseded(func(p eventbus.WithdrawSupersededPayload) {
		tb.record(eventbus.EventWithdrawSuperseded, p)
	})
	bus.SubscribeReviewRequested(func(p eventbus.ReviewRequestedPayload) {
		tb.record(eventbus.EventReviewRequested, p)
	})
	bus.SubscribeDecisionRecorded(func(p eventbus.DecisionRecordedPayload) {
		tb.record(eventbus.EventDecisionRecorded, p)
	})
	bus.SubscribeReworkLimitReached(func(p eventbus.ReworkLimitReachedPayload) {
		tb.record(eventbus.EventReworkLimitReached, p)
	})
	bus.SubscribeMergeCompleted(func(p eventbus.MergeCompletedPayload) {
		tb.record(eventbus.EventMergeCompleted, p)
	})
	bus.SubscribeMergeConflicted(func(p eventbus.MergeConflictedPayload) {
		tb.record(eventbus.EventMergeConflicted, p)
	})
	bus.SubscribeLaneDepthChanged(func(p eventbus.LaneDepthChangedPayload) {
		tb.record(eventbus.EventLaneDepthChanged, p)
	})
	bus.SubscribeAgentAvailabilityChanged(func(p eventbus.AgentAvailabilityChangedPayload) {
		tb.record(eventbus.EventAgentAvailabilityChanged, p)
	})
	bus.SubscribeConfigReloaded(func(p eventbus.ConfigReloadedPayload) {
		tb.record(eventbus.EventConfigReloaded, p)
	})
	bus.SubscribeNotificationPublished(func(p eventbus.NotificationPublishedPayload) {
		tb.record(eventbus.EventNotificationPublished, p)
	})

	go bus.Start(ctx)

	t.Cleanup(func() {
		cancel()
	})

	return tb
}

func (tb *Bus) record(event eventbus.Event, payload any) {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.events = append(tb.events, RecordedEvent{Event: event, Payload: payload})
}

// Events returns a copy of all recorded events.
func (tb *Bus) Events() []RecordedEvent {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	out := make([]RecordedEvent, len(tb.events))
	copy(out, tb.events)
	return out
}

// EventsOf returns the payloads of all recorded events with the given name.
func (tb *Bus) EventsOf(event eventbus.Event) []any {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	var out []any
	for _, e := range tb.events {
		if e.Event == event {
			out = append(out, e.Payload)
		}
	}
	return out
}

// Reset clears all recorded events.
func (tb *Bus) Reset() {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.events = nil
}

// WaitFor blocks until an event of the given type is recorded or the timeout expires.
// Returns true if the event was found.
func (tb *Bus) WaitFor(event eventbus.Event, timeout time.Duration) bool {
	deadline := time.After(timeout)
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-deadline:
			return false
		case <-ticker.C:
			if tb.has(event) {
				return true
			}
		}
	}
}

func (tb *Bus) has(event eventbus.Event) bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	for _, e := range tb.events {
		if e.Event == event {
			return true
		}
	}
	return false
}

// AssertPublished asserts that an event of the given type was recorded.
func (tb *Bus) AssertPublished(t *testing.T, event eventbus.Event) {
	t.Helper()
	if !tb.WaitFor(event, 500*time.Millisecond) {
		t.Errorf("expected event %q to be published, but it was not", event)
	}
}

// AssertNotPublished asserts that an event of the given type was NOT recorded
// within the given wait period.
func (tb *Bus) AssertNotPublished(t *testing.T, event eventbus.Event, wait time.Duration) {
	t.Helper()
	time.Sleep(wait)
	if tb.has(event) {
		t.Errorf("expected event %q to NOT be published, but it was", event)
	}
}

// FindPayload waits for an event of the given type and returns its first
// recorded payload, failing the test if it never arrives or has the wrong
// payload type.
func FindPayload[P any](tb *Bus, t *testing.T, event eventbus.Event) P {
	t.Helper()
	if !tb.WaitFor(event, 500*time.Millisecond) {
		t.Fatalf("expected event %q to be published, but it was not", event)
	}
	for _, e := range tb.Events() {
		if e.Event != event {
			continue
		}
		p, ok := e.Payload.(P)
		if !ok {
			t.Fatalf("event %q payload is %T, not the requested type", event, e.Payload)
		}
		return p
	}
	var zero P
	return zero
}
