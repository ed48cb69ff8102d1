package bot

import (
	"fmt"

	"jamb/internal/app"
	"jamb/internal/domain"
)

// MoveKind names the single action a bot takes per decision.
type MoveKind string

const (
	MoveRoll       MoveKind = "roll"
	MoveToggleLock MoveKind = "toggle_lock"
	MoveScore      MoveKind = "score"
)

// Move represents the decision made by the AI.
type Move struct {
	Kind     MoveKind
	Index    int             // die index for MoveToggleLock
	Category domain.Category // category for MoveScore
}

// Brain is the interface that all bot strategies must implement.
// CalculateMove is only called while it is the bot's turn and no transition is pending.
type Brain interface {
	CalculateMove(state domain.GameState) (Move, error)
}

// Apply executes the move against the engine.
func (m Move) Apply(engine *app.Engine) ([]app.Event, error) {
	switch m.Kind {
	case MoveRoll:
		return engine.Roll()
	case MoveToggleLock:
		return engine.ToggleLock(m.Index)
	case MoveScore:
		return engine.ScoreCategory(m.Category)
	default:
		return nil, fmt.Errorf("unknown move kind %q", m.Kind)
	}
}
