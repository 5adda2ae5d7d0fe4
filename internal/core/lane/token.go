package lane

import "context"

// Token is the mutual-exclusion token for one lane. At most one holder at a
// time; promotion is the only operation that blocks on it. Implemented as a
// 1-slot channel so acquisition can respect context cancellation.
type Token struct {
	slot chan struct{}
}

// NewToken creates an unheld token.
func NewToken() *Token {
	return &Token{slot: make(chan struct{}, 1)}
}

// Acquire blocks until the token is free or the context is done.
func (t *Token) Acquire(ctx context.Context) error {
	select {
	case t.slot <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryAcquire takes the token without blocking. Returns ErrLaneUnavailable
// when it is held.
func (t *Token) TryAcquire() error {
	select {
	case t.slot <- struct{}{}:
		return nil
	default:
		return ErrLaneUnavailable
	}
}

// Release frees the token. Panics if the token is not held; releasing an
// unheld token is always a programming error.
func (t *Token) Release() {
	select {
	case <-t.slot:
	default:
		panic("lane: release of unheld token")
	}
}

// Held reports whether the token is currently taken. Snapshot only; useful
// for depth metrics and tests, not for synchronization decisions.
func (t *Token) Held() bool {
	return len(t.slot) == 1
}

// Tokens holds one token per promotion target.
type Tokens struct {
	byTarget map[Target]*Token
}

// NewTokens creates tokens for every known target.
func NewTokens() *Tokens {
	m := make(map[Target]*Token, len(Targets()))
	for _, t := range Targets() {
		m[t] = NewToken()
	}
	return &Tokens{byTarget: m}
}

// Lane returns the token for a target.
func (ts *Tokens) Lane(t Target) *Token {
	return ts.byTarget[t]
}
