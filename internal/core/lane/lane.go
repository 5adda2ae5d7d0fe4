// Package lane defines promotion targets and the per-target serialization
// domain. Each target owns one lane: a mutual-exclusion token plus an ordered
// queue of branches awaiting promotion into it.
package lane

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrLaneUnavailable is returned by non-blocking promotion attempts when the
// lane token is held. Transient: the caller retries once the in-flight
// promotion resolves.
var ErrLaneUnavailable = errors.New("lane unavailable")

// Target names a promotion destination. Two tiers: feature branches promote
// into integration, integration promotes into production.
type Target string

const (
	Integration Target = "integration"
	Production  Target = "production"
)

// Targets lists the promotion targets in trust order.
func Targets() []Target {
	return []Target{Integration, Production}
}

// ParseTarget validates a promotion target name.
func ParseTarget(s string) (Target, error) {
	t := Target(strings.ToLower(strings.TrimSpace(s)))
	switch t {
	case Integration, Production:
		return t, nil
	}
	return "", fmt.Errorf("unknown promotion target %q", s)
}

// Valid reports whether t is a known promotion target.
func (t Target) Valid() bool {
	return t == Integration || t == Production
}

func (t Target) String() string {
	return string(t)
}

// Entry is one branch waiting in a lane queue. Ordering is FIFO by enqueue
// time with ties broken by branch creation time, earliest first, so the
// starvation bound holds.
type Entry struct {
	Lane       Target    `json:"lane"`
	BranchID   string    `json:"branch_id"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// Queue is the durable FIFO of branches awaiting promotion, one per lane.
type Queue interface {
	// Enqueue appends a branch to the lane's queue.
	Enqueue(ctx context.Context, e Entry) error

	// Head returns the next entry in FIFO order without removing it.
	// Returns false when the queue is empty.
	Head(ctx context.Context, t Target) (Entry, bool, error)

	// Remove deletes a branch from its lane queue (promotion finished or
	// branch withdrawn).
	Remove(ctx context.Context, branchID string) error

	// Depth returns the number of branches waiting per lane.
	Depth(ctx context.Context) (map[Target]int, error)

	// List returns a lane's entries in promotion order.
	List(ctx context.Context, t Target) ([]Entry, error)
}
