package ports

import (
	"context"
	"errors"
	"time"
)

// ErrHistoryAlreadyExists is returned when a game id has already been saved.
var ErrHistoryAlreadyExists = errors.New("game history already exists")

// PlayerRecord is one seat's final line in a saved game.
type PlayerRecord struct {
	PlayerID   int    `json:"playerId"`
	PlayerName string `json:"playerName"`
	TotalScore int    `json:"totalScore"`
	IsWinner   bool   `json:"isWinner"`
}

// GameRecord is a finished game as stored in history.
type GameRecord struct {
	GameID    string         `json:"gameId"`
	Timestamp time.Time      `json:"timestamp"`
	Players   []PlayerRecord `json:"players"`
	// UserIDs are the accounts that took part; each of them can list the game.
	UserIDs []string `json:"userIds"`
}

// HistoryPort persists finished games.
type HistoryPort interface {
	// SaveGame stores a finished game.
	// Returns ErrHistoryAlreadyExists when record.GameID was saved before.
	SaveGame(ctx context.Context, record GameRecord) error
	// ListGames returns the games userID took part in, newest first.
	// limit <= 0 means no limit. A user with no games gets an empty slice.
	ListGames(ctx context.Context, userID string, limit int) ([]GameRecord, error)
}
