package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"jamb/internal/domain"
	"jamb/internal/ports"
)

var (
	// ErrNotLoggedIn is returned when no account is attached to the request.
	ErrNotLoggedIn = errors.New("user not logged in")
	// ErrNoResults is returned when there is nothing to record.
	ErrNoResults = errors.New("no results to record")
)

// DefaultListLimit caps ListGames when the caller passes no limit.
const DefaultListLimit = 100

// Service records finished games and lists them back per user.
type Service struct {
	store ports.HistoryPort
	now   func() time.Time
	newID func() string
}

// NewService constructs a history service over store.
// now and newID may be nil to use the wall clock and random UUIDs.
func NewService(store ports.HistoryPort, now func() time.Time, newID func() string) *Service {
	if now == nil {
		now = time.Now
	}
	if newID == nil {
		newID = func() string { return uuid.NewString() }
	}
	return &Service{store: store, now: now, newID: newID}
}

// BuildRecord turns ranked results into a record with a fresh id.
// The first result is flagged as the winner; results must already be ranked.
func (s *Service) BuildRecord(results []domain.PlayerResult, userIDs []string) (ports.GameRecord, error) {
	if len(results) == 0 {
		return ports.GameRecord{}, ErrNoResults
	}
	users := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		if id != "" {
			users = append(users, id)
		}
	}
	if len(users) == 0 {
		return ports.GameRecord{}, ErrNotLoggedIn
	}

	players := make([]ports.PlayerRecord, 0, len(results))
	for i, r := range results {
		players = append(players, ports.PlayerRecord{
			PlayerID:   r.PlayerID,
			PlayerName: r.PlayerName,
			TotalScore: r.TotalScore,
			IsWinner:   i == 0,
		})
	}

	return ports.GameRecord{
		GameID:    s.newID(),
		Timestamp: s.now().UTC(),
		Players:   players,
		UserIDs:   users,
	}, nil
}

// RecordGame builds and saves the record for a finished game.
// Side effects: writes one record through the history port.
func (s *Service) RecordGame(ctx context.Context, results []domain.PlayerResult, userIDs []string) (ports.GameRecord, error) {
	if s.store == nil {
		return ports.GameRecord{}, fmt.Errorf("history service not configured")
	}
	record, err := s.BuildRecord(results, userIDs)
	if err != nil {
		return ports.GameRecord{}, err
	}
	if err := s.store.SaveGame(ctx, record); err != nil {
		return ports.GameRecord{}, fmt.Errorf("failed to save game %s: %w", record.GameID, err)
	}
	return record, nil
}

// ListGames returns the games userID played, newest first.
func (s *Service) ListGames(ctx context.Context, userID string, limit int) ([]ports.GameRecord, error) {
	if s.store == nil {
		return nil, fmt.Errorf("history service not configured")
	}
	if userID == "" {
		return nil, ErrNotLoggedIn
	}
	if limit <= 0 || limit > DefaultListLimit {
		limit = DefaultListLimit
	}
	games, err := s.store.ListGames(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}
	return games, nil
}
