package nakama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"jamb/internal/ports"

	"github.com/heroiclabs/nakama-common/api"
	"github.com/heroiclabs/nakama-common/runtime"
)

const (
	historyCollection = "jamb_games"
	historyPageSize   = 100
	// historyScanLimit bounds how many objects a single ListGames call reads.
	historyScanLimit = 1000
)

// historyStorage is the slice of runtime.NakamaModule the history adapter needs.
type historyStorage interface {
	StorageWrite(ctx context.Context, writes []*runtime.StorageWrite) ([]*api.StorageObjectAck, error)
	StorageList(ctx context.Context, callerID, userID, collection string, limit int, cursor string) ([]*api.StorageObject, string, error)
}

// NakamaHistoryAdapter keeps one copy of each finished game per participating user
// in Nakama storage, keyed by game id.
type NakamaHistoryAdapter struct {
	nk historyStorage
}

// NewNakamaHistoryAdapter creates a new history adapter.
func NewNakamaHistoryAdapter(nk runtime.NakamaModule) *NakamaHistoryAdapter {
	return &NakamaHistoryAdapter{nk: nk}
}

// SaveGame writes the record under every participant. Objects are owner-readable
// and server-write only; version "*" rejects an id that already exists.
func (a *NakamaHistoryAdapter) SaveGame(ctx context.Context, record ports.GameRecord) error {
	if record.GameID == "" {
		return fmt.Errorf("game id is required")
	}
	if len(record.UserIDs) == 0 {
		return fmt.Errorf("at least one user id is required")
	}

	value, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal game record: %w", err)
	}

	writes := make([]*runtime.StorageWrite, 0, len(record.UserIDs))
	for _, userID := range record.UserIDs {
		writes = append(writes, &runtime.StorageWrite{
			Collection:      historyCollection,
			Key:             record.GameID,
			UserID:          userID,
			Value:           string(value),
			Version:         "*",
			PermissionRead:  runtime.STORAGE_PERMISSION_OWNER_READ,
			PermissionWrite: runtime.STORAGE_PERMISSION_NO_WRITE,
		})
	}

	if _, err := a.nk.StorageWrite(ctx, writes); err != nil {
		if errors.Is(err, runtime.ErrStorageRejectedVersion) {
			return ports.ErrHistoryAlreadyExists
		}
		return fmt.Errorf("failed to write game record: %w", err)
	}
	return nil
}

// ListGames pages through the user's collection and returns it newest first.
func (a *NakamaHistoryAdapter) ListGames(ctx context.Context, userID string, limit int) ([]ports.GameRecord, error) {
	if userID == "" {
		return nil, fmt.Errorf("userID is required")
	}

	games := []ports.GameRecord{}
	cursor := ""
	for scanned := 0; scanned < historyScanLimit; {
		objects, next, err := a.nk.StorageList(ctx, "", userID, historyCollection, historyPageSize, cursor)
		if err != nil {
			return nil, fmt.Errorf("failed to list game records: %w", err)
		}
		for _, obj := range objects {
			var record ports.GameRecord
			if err := json.Unmarshal([]byte(obj.GetValue()), &record); err != nil {
				return nil, fmt.Errorf("failed to unmarshal game record %s: %w", obj.GetKey(), err)
			}
			games = append(games, record)
		}
		scanned += len(objects)
		if next == "" || len(objects) == 0 {
			break
		}
		cursor = next
	}

	sort.SliceStable(games, func(i, j int) bool {
		return games[i].Timestamp.After(games[j].Timestamp)
	})
	if limit > 0 && len(games) > limit {
		games = games[:limit]
	}
	return games, nil
}

var _ ports.HistoryPort = (*NakamaHistoryAdapter)(nil)
