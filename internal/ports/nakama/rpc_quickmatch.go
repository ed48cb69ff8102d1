package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"jamb/internal/domain"

	"github.com/heroiclabs/nakama-common/api"
	"github.com/heroiclabs/nakama-common/runtime"
)

// QuickMatchResponse is the payload returned to clients when requesting a lobby-capable match.
type QuickMatchResponse struct {
	MatchID string `json:"match_id"`
	IsNew   bool   `json:"is_new"`
}

// quickMatchQuery finds Jamb lobbies that still have a free seat.
var quickMatchQuery = fmt.Sprintf("+label.%s:T +label.%s:%s +label.%s:lobby",
	MatchLabelKey_Open, MatchLabelKey_Game, GameLabel, MatchLabelKey_Phase)

// matchFinder is the slice of runtime.NakamaModule quick_match needs.
type matchFinder interface {
	MatchList(ctx context.Context, limit int, authoritative bool, label string, minSize, maxSize *int, query string) ([]*api.Match, error)
	MatchCreate(ctx context.Context, module string, params map[string]interface{}) (string, error)
}

func rpcQuickMatch(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	return quickMatch(ctx, logger, nk)
}

func quickMatch(ctx context.Context, logger runtime.Logger, nk matchFinder) (string, error) {
	userID, _ := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)

	limit := 10
	authoritative := true
	minSize := 1
	maxSize := domain.MaxPlayers - 1

	matches, err := nk.MatchList(ctx, limit, authoritative, "", &minSize, &maxSize, quickMatchQuery)
	if err != nil {
		logger.Error("QuickMatch [User:%s]: MatchList error: %v", userID, err)
		return "", err
	}

	if len(matches) > 0 {
		logger.Info("QuickMatch [User:%s]: Found existing match %s", userID, matches[0].MatchId)
		return marshalRPCResponse(QuickMatchResponse{MatchID: matches[0].MatchId, IsNew: false})
	}

	// Create new match; seat/owner assignment happens in MatchJoin (server-authoritative).
	matchID, err := nk.MatchCreate(ctx, MatchNameJamb, map[string]interface{}{})
	if err != nil {
		logger.Error("QuickMatch [User:%s]: MatchCreate error: %v", userID, err)
		return "", err
	}

	logger.Info("QuickMatch [User:%s]: Created new match %s", userID, matchID)
	return marshalRPCResponse(QuickMatchResponse{MatchID: matchID, IsNew: true})
}

func marshalRPCResponse(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", runtime.NewError("failed to encode response", codeInternal)
	}
	return string(b), nil
}
