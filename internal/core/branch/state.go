package branch

import "fmt"

// State is the lifecycle state of a branch.
type State string

const (
	StateCreated           State = "created"
	StatePendingAssignment State = "pending_assignment"
	StateInProgress        State = "in_progress"
	StateReviewRequested   State = "review_requested"
	StateApproved          State = "approved"
	StateRejected          State = "rejected"
	StateQueuedForMerge    State = "queued_for_merge"
	StateMerging           State = "merging"
	StateMerged            State = "merged"
	StateConflict          State = "conflict"
	StateClosed            State = "closed"
)

// adjacency is the complete set of legal lifecycle edges. Transitions are
// triggered only by explicit external signals; anything outside this table
// fails with ErrIllegalTransition.
var adjacency = map[State][]State{
	StateCreated:           {StatePendingAssignment, StateInProgress, StateClosed},
	StatePendingAssignment: {StateInProgress, StateClosed},
	StateInProgress:        {StateReviewRequested, StateClosed},
	StateReviewRequested:   {StateApproved, StateRejected, StateClosed},
	StateApproved:          {StateQueuedForMerge},
	StateRejected:          {StateInProgress, StateClosed},
	StateQueuedForMerge:    {StateMerging, StateClosed},
	StateMerging:           {StateMerged, StateConflict},
	StateConflict:          {StateInProgress, StateClosed},
	StateMerged:            nil,
	StateClosed:            nil,
}

// States lists every lifecycle state in flow order.
func States() []State {
	return []State{
		StateCreated,
		StatePendingAssignment,
		StateInProgress,
		StateReviewRequested,
		StateApproved,
		StateRejected,
		StateQueuedForMerge,
		StateMerging,
		StateMerged,
		StateConflict,
		StateClosed,
	}
}

// ParseState validates a state string against the known lifecycle states.
func ParseState(s string) (State, error) {
	st := State(s)
	if _, ok := adjacency[st]; !ok {
		return "", fmt.Errorf("unknown state %q", s)
	}
	return st, nil
}

// Valid reports whether s is a known lifecycle state.
func (s State) Valid() bool {
	_, ok := adjacency[s]
	return ok
}

// Terminal reports whether s ends the lifecycle. Terminal branches are
// archived, never deleted.
func (s State) Terminal() bool {
	return s == StateMerged || s == StateClosed
}

// CanTransition reports whether from -> to is a legal lifecycle edge.
func CanTransition(from, to State) bool {
	for _, next := range adjacency[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CheckTransition returns ErrIllegalTransition (wrapped with both states)
// unless from -> to is a legal edge.
func CheckTransition(from, to State) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, to)
	}
	return nil
}

func (s State) String() string {
	return string(s)
}
