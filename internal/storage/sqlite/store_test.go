package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"jamb/internal/ports"
)

func openTempStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testRecord(id string, at time.Time, users ...string) ports.GameRecord {
	return ports.GameRecord{
		GameID:    id,
		Timestamp: at,
		Players: []ports.PlayerRecord{
			{PlayerID: 2, PlayerName: "Ivo", TotalScore: 180, IsWinner: true},
			{PlayerID: 1, PlayerName: "Ana", TotalScore: 150},
		},
		UserIDs: users,
	}
}

func TestOpenRequiresPath(t *testing.T) {
	t.Parallel()

	if _, err := Open(""); err == nil {
		t.Fatal("expected empty path error")
	}
}

func TestOpenTwiceAppliesMigrationsOnce(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "history.db")
	first, err := Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	_ = first.Close()

	second, err := Open(path)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer second.Close()

	var count int
	if err := second.sqlDB.QueryRow("SELECT COUNT(*) FROM " + migrationTable).Scan(&count); err != nil {
		t.Fatalf("count migrations: %v", err)
	}
	if count != 1 {
		t.Fatalf("migrations = %d, want 1", count)
	}
}

func TestSaveListRoundTrip(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()
	older := time.Date(2026, time.October, 18, 20, 0, 0, 0, time.UTC)
	newer := older.Add(time.Hour)

	if err := store.SaveGame(ctx, testRecord("g-old", older, "user-1")); err != nil {
		t.Fatalf("save game: %v", err)
	}
	if err := store.SaveGame(ctx, testRecord("g-new", newer, "user-1", "user-2")); err != nil {
		t.Fatalf("save game: %v", err)
	}

	games, err := store.ListGames(ctx, "user-1", 0)
	if err != nil {
		t.Fatalf("list games: %v", err)
	}
	if len(games) != 2 {
		t.Fatalf("games = %d, want 2", len(games))
	}
	if games[0].GameID != "g-new" || !games[0].Timestamp.Equal(newer) {
		t.Fatalf("first game = %+v, want g-new at %v", games[0], newer)
	}
	if len(games[0].Players) != 2 || !games[0].Players[0].IsWinner || games[0].Players[1].IsWinner {
		t.Fatalf("players = %+v", games[0].Players)
	}
	if games[0].Players[0].PlayerName != "Ivo" || games[0].Players[0].TotalScore != 180 {
		t.Fatalf("first player = %+v", games[0].Players[0])
	}
	if len(games[0].UserIDs) != 2 {
		t.Fatalf("user ids = %v, want 2", games[0].UserIDs)
	}

	limited, err := store.ListGames(ctx, "user-1", 1)
	if err != nil {
		t.Fatalf("list games: %v", err)
	}
	if len(limited) != 1 || limited[0].GameID != "g-new" {
		t.Fatalf("limited = %+v", limited)
	}

	none, err := store.ListGames(ctx, "user-3", 10)
	if err != nil {
		t.Fatalf("list games: %v", err)
	}
	if none == nil || len(none) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", none)
	}
}

func TestSaveGameReturnsAlreadyExistsOnDuplicate(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()
	record := testRecord("g-1", time.Now(), "user-1")
	if err := store.SaveGame(ctx, record); err != nil {
		t.Fatalf("save game: %v", err)
	}
	if err := store.SaveGame(ctx, record); !errors.Is(err, ports.ErrHistoryAlreadyExists) {
		t.Fatalf("duplicate save error = %v, want %v", err, ports.ErrHistoryAlreadyExists)
	}
}

func TestSaveGameRequiresID(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	if err := store.SaveGame(context.Background(), ports.GameRecord{}); err == nil {
		t.Fatal("expected missing id error")
	}
}

func TestExtractUpMigration(t *testing.T) {
	content := "-- +migrate Up\nCREATE TABLE a (id INTEGER);\n-- +migrate Down\nDROP TABLE a;\n"
	got := extractUpMigration(content)
	if got != "\nCREATE TABLE a (id INTEGER);\n" {
		t.Fatalf("extractUpMigration() = %q", got)
	}
}
