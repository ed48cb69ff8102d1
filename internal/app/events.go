package app

import "jamb/internal/domain"

// EventKind identifies emitted engine events for Nakama dispatch.
type EventKind string

const (
	EventGameStarted    EventKind = "game_started"
	EventDiceRolled     EventKind = "dice_rolled"
	EventDieLockToggled EventKind = "die_lock_toggled"
	EventCategoryScored EventKind = "category_scored"
	EventTurnAdvanced   EventKind = "turn_advanced"
	EventGameFinished   EventKind = "game_finished"
)

// Event is an engine event. Payload holds one of the *Payload types below.
type Event struct {
	Kind    EventKind
	Payload any
}

type GameStartedPayload struct {
	Players []domain.Player
}

type DiceRolledPayload struct {
	PlayerID  int
	Dice      domain.DiceSet
	RollsLeft int
}

type DieLockToggledPayload struct {
	PlayerID int
	Index    int
	Locked   bool
}

type CategoryScoredPayload struct {
	PlayerID   int
	Category   domain.Category
	Score      int
	Transition domain.Transition
}

type TurnAdvancedPayload struct {
	PlayerID int // player whose turn starts
	Round    int
}

type GameFinishedPayload struct {
	Results []domain.PlayerResult
}
