// Package sqlite provides a SQLite-backed game history store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"jamb/internal/ports"
	"jamb/internal/storage/sqlite/migrations"
)

// Store persists finished games in SQLite.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite history store and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(context.Background(), sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// SaveGame inserts one finished game with its players and participating users.
func (s *Store) SaveGame(ctx context.Context, record ports.GameRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	gameID := strings.TrimSpace(record.GameID)
	if gameID == "" {
		return fmt.Errorf("game id is required")
	}
	playedAt := record.Timestamp
	if playedAt.IsZero() {
		playedAt = time.Now()
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save game: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO games (game_id, played_at) VALUES (?, ?)`,
		gameID, toMillis(playedAt),
	); err != nil {
		if isUniqueViolation(err) {
			return ports.ErrHistoryAlreadyExists
		}
		return fmt.Errorf("insert game: %w", err)
	}

	for i, p := range record.Players {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO game_players (game_id, position, player_id, player_name, total_score, is_winner)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			gameID, i, p.PlayerID, p.PlayerName, p.TotalScore, p.IsWinner,
		); err != nil {
			return fmt.Errorf("insert game player %d: %w", p.PlayerID, err)
		}
	}
	for _, userID := range record.UserIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO game_users (game_id, user_id) VALUES (?, ?)`,
			gameID, userID,
		); err != nil {
			return fmt.Errorf("insert game user %s: %w", userID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save game: %w", err)
	}
	return nil
}

// ListGames returns the games userID took part in, newest first.
func (s *Store) ListGames(ctx context.Context, userID string, limit int) ([]ports.GameRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT g.game_id, g.played_at
		   FROM games g
		   JOIN game_users u ON u.game_id = g.game_id
		  WHERE u.user_id = ?
		  ORDER BY g.played_at DESC, g.game_id
		  LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	games := []ports.GameRecord{}
	for rows.Next() {
		var record ports.GameRecord
		var playedAt int64
		if err := rows.Scan(&record.GameID, &playedAt); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan game: %w", err)
		}
		record.Timestamp = fromMillis(playedAt)
		games = append(games, record)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("iterate games: %w", err)
	}
	_ = rows.Close()

	for i := range games {
		if games[i].Players, err = s.loadPlayers(ctx, games[i].GameID); err != nil {
			return nil, err
		}
		if games[i].UserIDs, err = s.loadUsers(ctx, games[i].GameID); err != nil {
			return nil, err
		}
	}
	return games, nil
}

func (s *Store) loadPlayers(ctx context.Context, gameID string) ([]ports.PlayerRecord, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT player_id, player_name, total_score, is_winner
		   FROM game_players
		  WHERE game_id = ?
		  ORDER BY position`,
		gameID,
	)
	if err != nil {
		return nil, fmt.Errorf("list game players: %w", err)
	}
	defer rows.Close()

	var players []ports.PlayerRecord
	for rows.Next() {
		var p ports.PlayerRecord
		if err := rows.Scan(&p.PlayerID, &p.PlayerName, &p.TotalScore, &p.IsWinner); err != nil {
			return nil, fmt.Errorf("scan game player: %w", err)
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

func (s *Store) loadUsers(ctx context.Context, gameID string) ([]string, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT user_id FROM game_users WHERE game_id = ? ORDER BY user_id`,
		gameID,
	)
	if err != nil {
		return nil, fmt.Errorf("list game users: %w", err)
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan game user: %w", err)
		}
		users = append(users, id)
	}
	return users, rows.Err()
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

var _ ports.HistoryPort = (*Store)(nil)
