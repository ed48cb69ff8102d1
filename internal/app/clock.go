package app

import (
	"time"

	"jamb/internal/domain"
)

// RandomSource draws die faces. *rand.Rand satisfies it.
type RandomSource interface {
	// Intn returns a value in [0, n).
	Intn(n int) int
}

// Clock tells the engine when a deferred transition is due.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

type wallClock struct{}

func (wallClock) Now() time.Time { return time.Now() }

// PendingTransition is the step scheduled after a category is scored.
// It is resolved by Engine.Tick once due, or by Engine.AdvanceTurn.
type PendingTransition struct {
	Kind  domain.Transition
	DueAt time.Time

	done      chan struct{}
	cancelled bool
}

func newPendingTransition(kind domain.Transition, dueAt time.Time) *PendingTransition {
	return &PendingTransition{Kind: kind, DueAt: dueAt, done: make(chan struct{})}
}

// Done is closed once the transition has been applied or cancelled.
func (p *PendingTransition) Done() <-chan struct{} {
	return p.done
}

// Cancelled reports whether the transition was dropped instead of applied.
func (p *PendingTransition) Cancelled() bool {
	return p.cancelled
}

func (p *PendingTransition) due(now time.Time) bool {
	return !now.Before(p.DueAt)
}

func (p *PendingTransition) resolve(cancelled bool) {
	p.cancelled = cancelled
	close(p.done)
}
