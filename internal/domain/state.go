package domain

// Phase is the derived position of the game inside the per-turn state machine.
type Phase string

const (
	// PhaseAwaitingFirstRoll is the start of a turn: nothing rolled, no locks allowed.
	PhaseAwaitingFirstRoll Phase = "awaiting_first_roll"
	// PhaseMidTurn allows rolling, locking and scoring.
	PhaseMidTurn Phase = "mid_turn"
	// PhaseRollsExhausted allows locking and scoring but no further rolls.
	PhaseRollsExhausted Phase = "rolls_exhausted"
	// PhaseTurnPending means a category was scored and the deferred transition has not fired yet.
	PhaseTurnPending Phase = "turn_pending"
	// PhaseGameComplete is terminal.
	PhaseGameComplete Phase = "game_complete"
)

// Transition identifies the deferred step scheduled after a category is scored.
type Transition string

const (
	TransitionNone     Transition = ""
	TransitionNextTurn Transition = "next_turn"
	TransitionFinish   Transition = "finish"
)

// MaxPlayers is the largest table a game supports.
const MaxPlayers = 6

// Player is a participant in a single game session.
type Player struct {
	ID   int    // 1-based, assigned in join order
	Name string // display name, fixed once the game starts
}

// GameState is the authoritative state of one Jamb game.
type GameState struct {
	Players []Player
	Sheets  map[int]*Scorecard // player id -> scorecard

	CurrentPlayerIndex int
	CurrentRound       int

	Dice      DiceSet
	RollsLeft int

	Finished bool
	Pending  Transition
}

// NewGameState builds the initial state for the given players.
func NewGameState(players []Player) GameState {
	sheets := make(map[int]*Scorecard, len(players))
	for _, p := range players {
		sheets[p.ID] = NewScorecard(p.ID)
	}
	return GameState{
		Players:      append([]Player(nil), players...),
		Sheets:       sheets,
		CurrentRound: 1,
		Dice:         NewDiceSet(),
		RollsLeft:    MaxRolls,
	}
}

// CurrentPlayer returns the player whose turn it is.
func (s GameState) CurrentPlayer() (Player, bool) {
	if s.CurrentPlayerIndex < 0 || s.CurrentPlayerIndex >= len(s.Players) {
		return Player{}, false
	}
	return s.Players[s.CurrentPlayerIndex], true
}

// CurrentSheet returns the scorecard of the player whose turn it is.
func (s GameState) CurrentSheet() *Scorecard {
	p, ok := s.CurrentPlayer()
	if !ok {
		return nil
	}
	return s.Sheets[p.ID]
}

// AllComplete reports whether every player has filled all 13 categories.
func (s GameState) AllComplete() bool {
	if len(s.Players) == 0 {
		return false
	}
	for _, p := range s.Players {
		sheet, ok := s.Sheets[p.ID]
		if !ok || !sheet.IsComplete() {
			return false
		}
	}
	return true
}

// Phase derives the state machine position.
func (s GameState) Phase() Phase {
	switch {
	case s.Finished:
		return PhaseGameComplete
	case s.Pending != TransitionNone:
		return PhaseTurnPending
	case s.RollsLeft == MaxRolls:
		return PhaseAwaitingFirstRoll
	case s.RollsLeft == 0:
		return PhaseRollsExhausted
	default:
		return PhaseMidTurn
	}
}

// Clone returns a deep copy that shares no memory with s.
func (s GameState) Clone() GameState {
	out := s
	out.Players = append([]Player(nil), s.Players...)
	out.Sheets = make(map[int]*Scorecard, len(s.Sheets))
	for id, sheet := range s.Sheets {
		out.Sheets[id] = sheet.Clone()
	}
	return out
}
