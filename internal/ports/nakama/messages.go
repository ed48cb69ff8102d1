package nakama

import (
	"jamb/internal/app"
	"jamb/internal/domain"
)

// Client requests.

// ToggleLockRequest.Index is required; a nil index is rejected.
type ToggleLockRequest struct {
	Index *int `json:"index"`
}

type ScoreCategoryRequest struct {
	Category domain.Category `json:"category"`
}

type SetNameRequest struct {
	Name string `json:"name"`
}

// Server messages.

type DieView struct {
	Value  int  `json:"value"`
	Locked bool `json:"locked"`
}

type PlayerView struct {
	PlayerID int            `json:"player_id"`
	UserID   string         `json:"user_id"`
	Name     string         `json:"name"`
	IsBot    bool           `json:"is_bot"`
	Total    int            `json:"total"`
	Scores   map[string]int `json:"scores"`
}

// GameSnapshot is the full table state sent with every game event.
type GameSnapshot struct {
	Players         []PlayerView `json:"players"`
	CurrentPlayerID int          `json:"current_player_id"`
	Round           int          `json:"round"`
	Dice            []DieView    `json:"dice"`
	RollsLeft       int          `json:"rolls_left"`
	Phase           domain.Phase `json:"phase"`
	Finished        bool         `json:"finished"`
}

// EventMessage wraps one engine event and the state after it.
type EventMessage struct {
	Event app.EventKind `json:"event"`
	Data  any           `json:"data"`
	State GameSnapshot  `json:"state"`
}

type SeatView struct {
	Seat    int    `json:"seat"`
	UserID  string `json:"user_id"`
	Name    string `json:"name"`
	IsBot   bool   `json:"is_bot"`
	IsOwner bool   `json:"is_owner"`
}

// MatchStateMessage describes the lobby: who sits where and who owns the table.
type MatchStateMessage struct {
	Seats     []SeatView `json:"seats"`
	OwnerSeat int        `json:"owner_seat"`
	InGame    bool       `json:"in_game"`
	Tick      int64      `json:"tick"`
}

type ErrorMessage struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type ResultView struct {
	PlayerID   int    `json:"player_id"`
	Name       string `json:"name"`
	TotalScore int    `json:"total_score"`
	IsWinner   bool   `json:"is_winner"`
}

type PlayedGamesResponse struct {
	Games []PlayedGameView `json:"games"`
}

type PlayedGameView struct {
	GameID    string       `json:"game_id"`
	Timestamp int64        `json:"timestamp"` // unix millis
	Players   []ResultView `json:"players"`
}

func toDiceView(dice domain.DiceSet) []DieView {
	out := make([]DieView, len(dice))
	for i, d := range dice {
		out[i] = DieView{Value: d.Value, Locked: d.Locked}
	}
	return out
}

func toResultViews(results []domain.PlayerResult) []ResultView {
	out := make([]ResultView, len(results))
	for i, r := range results {
		out[i] = ResultView{
			PlayerID:   r.PlayerID,
			Name:       r.PlayerName,
			TotalScore: r.TotalScore,
			IsWinner:   i == 0,
		}
	}
	return out
}

// eventData maps an engine payload to its wire shape.
func eventData(ev app.Event) (any, bool) {
	switch p := ev.Payload.(type) {
	case app.GameStartedPayload:
		type player struct {
			PlayerID int    `json:"player_id"`
			Name     string `json:"name"`
		}
		players := make([]player, len(p.Players))
		for i, pl := range p.Players {
			players[i] = player{PlayerID: pl.ID, Name: pl.Name}
		}
		return map[string]any{"players": players}, true
	case app.DiceRolledPayload:
		return map[string]any{
			"player_id":  p.PlayerID,
			"dice":       toDiceView(p.Dice),
			"rolls_left": p.RollsLeft,
		}, true
	case app.DieLockToggledPayload:
		return map[string]any{"player_id": p.PlayerID, "index": p.Index, "locked": p.Locked}, true
	case app.CategoryScoredPayload:
		return map[string]any{
			"player_id":  p.PlayerID,
			"category":   p.Category,
			"score":      p.Score,
			"transition": p.Transition,
		}, true
	case app.TurnAdvancedPayload:
		return map[string]any{"player_id": p.PlayerID, "round": p.Round}, true
	case app.GameFinishedPayload:
		return map[string]any{"results": toResultViews(p.Results)}, true
	default:
		return nil, false
	}
}

func eventOpCode(kind app.EventKind) (int64, bool) {
	switch kind {
	case app.EventGameStarted:
		return OpGameStarted, true
	case app.EventDiceRolled:
		return OpDiceRolled, true
	case app.EventDieLockToggled:
		return OpDieLockToggled, true
	case app.EventCategoryScored:
		return OpCategoryScored, true
	case app.EventTurnAdvanced:
		return OpTurnAdvanced, true
	case app.EventGameFinished:
		return OpGameFinished, true
	default:
		return 0, false
	}
}
