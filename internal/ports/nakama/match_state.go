package nakama

import (
	"math/rand"

	"jamb/internal/app"
	"jamb/internal/app/history"
	"jamb/internal/bot"
	"jamb/internal/domain"

	"github.com/heroiclabs/nakama-common/runtime"
)

// MatchState holds the authoritative runtime state for the Nakama match handler.
type MatchState struct {
	Seats     [domain.MaxPlayers]string   `json:"seats"`      // Array of user IDs, empty string means seat is empty
	Names     map[string]string           `json:"names"`      // Chosen display names keyed by user ID
	OwnerSeat int                         `json:"owner_seat"` // Seat index of the match owner
	Tick      int64                       `json:"tick"`       // Current tick of the match
	TickRate  int                         `json:"tick_rate"`
	MaxSeats  int                         `json:"max_seats"` // Seats in use at this table; 0 means all
	Presences map[string]runtime.Presence `json:"-"` // Map UserId -> Presence for targeted messaging
	Engine    *app.Engine                 `json:"-"` // Jamb engine; reused across games
	InGame    bool                        `json:"in_game"`
	// PlayerSeats maps engine player id - 1 to the seat playing it.
	PlayerSeats []int `json:"player_seats"`

	BotsEnabled          bool                  `json:"bots_enabled"`            // Whether AI players are allowed
	BotLevel             bot.BotLevel          `json:"bot_level"`               // Strategy for bots without a configured difficulty
	BotMinDelay          int                   `json:"bot_min_delay"`           // Min seconds a bot waits
	BotMaxDelay          int                   `json:"bot_max_delay"`           // Max seconds a bot waits
	BotAutoFillDelay     int                   `json:"bot_auto_fill_delay"`     // Seconds to wait before auto-filling with a bot
	BotWaitUntil         int64                 `json:"bot_wait_until"`          // Tick when the bot should act
	LastSinglePlayerTick int64                 `json:"last_single_player_tick"` // Tick when a single player started waiting
	Bots                 map[string]*bot.Agent `json:"-"`                       // Active bot agents

	History *history.Service `json:"-"`
	rng     *rand.Rand
}

// activeSeats returns the seats this table plays with.
func (ms *MatchState) activeSeats() []string {
	if ms.MaxSeats <= 0 || ms.MaxSeats > len(ms.Seats) {
		return ms.Seats[:]
	}
	return ms.Seats[:ms.MaxSeats]
}

func (ms *MatchState) GetOpenSeatsCount() int {
	count := 0
	for _, seat := range ms.activeSeats() {
		if seat == "" {
			count++
		}
	}
	return count
}

func (ms *MatchState) GetOccupiedSeatCount() int {
	count := 0
	for _, seat := range ms.Seats {
		if seat != "" {
			count++
		}
	}
	return count
}

func (ms *MatchState) GetHumanPlayerCount() int {
	count := 0
	for _, seat := range ms.Seats {
		if seat != "" && !isBotUserId(seat) {
			count++
		}
	}
	return count
}

// seatOf returns the seat index of userID or -1.
func (ms *MatchState) seatOf(userID string) int {
	for i, seatUserID := range ms.Seats {
		if seatUserID != "" && seatUserID == userID {
			return i
		}
	}
	return -1
}

// playerIDForSeat returns the engine player id seated at seat, or 0 outside a game.
func (ms *MatchState) playerIDForSeat(seat int) int {
	for i, s := range ms.PlayerSeats {
		if s == seat {
			return i + 1
		}
	}
	return 0
}

// userForPlayer returns the user currently holding the engine player's seat.
func (ms *MatchState) userForPlayer(playerID int) string {
	if playerID < 1 || playerID > len(ms.PlayerSeats) {
		return ""
	}
	return ms.Seats[ms.PlayerSeats[playerID-1]]
}

// displayName resolves the name shown for a seat occupant.
func (ms *MatchState) displayName(userID string) string {
	if name := ms.Names[userID]; name != "" {
		return name
	}
	if p, ok := ms.Presences[userID]; ok && p.GetUsername() != "" {
		return p.GetUsername()
	}
	if name := bot.GetBotDisplayName(userID); name != "" {
		return name
	}
	return userID
}

// isBotUserId reports whether the given user id represents a bot seat.
func isBotUserId(userId string) bool {
	return bot.IsBot(userId)
}

// isHumanSeat reports whether the seat index belongs to a human player.
func isHumanSeat(seats []string, seatIndex int) bool {
	if seatIndex < 0 || seatIndex >= len(seats) {
		return false
	}
	userId := seats[seatIndex]
	return userId != "" && !isBotUserId(userId)
}

// findFirstHumanSeat returns the first seat index with a human occupant or -1 if none exist.
func findFirstHumanSeat(seats []string) int {
	for i, userId := range seats {
		if userId != "" && !isBotUserId(userId) {
			return i
		}
	}
	return -1
}

// shouldTerminateNoHumans returns true when there are no humans in the match.
func shouldTerminateNoHumans(seats []string) bool {
	return findFirstHumanSeat(seats) == -1
}
