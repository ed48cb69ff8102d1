package bot

import (
	"errors"

	"jamb/internal/domain"
)

// ErrNotMyTurn is returned when an agent is asked to play out of turn.
var ErrNotMyTurn = errors.New("not the bot's turn")

// Agent represents an autonomous bot player.
type Agent struct {
	ID       string // user id of the seat
	PlayerID int    // engine player id for the current game
	Name     string
	Strategy Brain
}

// Play asks the agent to calculate its next move based on the current game state.
func (a *Agent) Play(state domain.GameState) (Move, error) {
	current, ok := state.CurrentPlayer()
	if !ok || current.ID != a.PlayerID || state.Pending != domain.TransitionNone || state.Finished {
		return Move{}, ErrNotMyTurn
	}
	return a.Strategy.CalculateMove(state)
}
