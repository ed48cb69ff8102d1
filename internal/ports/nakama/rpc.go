package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"jamb/internal/app/history"
	"jamb/internal/config"

	"github.com/heroiclabs/nakama-common/runtime"
)

// gRPC status codes used by runtime.NewError.
const (
	codeInvalidArgument = 3
	codeInternal        = 13
	codeUnauthenticated = 16
)

// ListPlayedGamesRequest is the optional payload of list_played_games.
type ListPlayedGamesRequest struct {
	Limit int `json:"limit"`
}

// RegisterRPCs registers Nakama RPC endpoints.
func RegisterRPCs(initializer runtime.Initializer, service *history.Service) error {
	if err := initializer.RegisterRpc(RpcQuickMatch, rpcQuickMatch); err != nil {
		return err
	}
	return initializer.RegisterRpc(RpcListPlayedGames, newListPlayedGamesRPC(service))
}

// newListPlayedGamesRPC returns the caller's finished games, newest first.
//
// Payload: optional {"limit": n}; 0 uses history_list_limit from the game config.
// Returns: PlayedGamesResponse as JSON.
func newListPlayedGamesRPC(service *history.Service) func(context.Context, runtime.Logger, *sql.DB, runtime.NakamaModule, string) (string, error) {
	return func(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
		return listPlayedGames(ctx, logger, service, payload)
	}
}

func listPlayedGames(ctx context.Context, logger runtime.Logger, service *history.Service, payload string) (string, error) {
	userID, _ := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)
	if userID == "" {
		return "", runtime.NewError(history.ErrNotLoggedIn.Error(), codeUnauthenticated)
	}

	var request ListPlayedGamesRequest
	if strings.TrimSpace(payload) != "" {
		if err := json.Unmarshal([]byte(payload), &request); err != nil {
			return "", runtime.NewError("invalid request payload", codeInvalidArgument)
		}
	}

	if request.Limit <= 0 {
		request.Limit = config.GetGameConfig().HistoryListLimit
	}

	games, err := service.ListGames(ctx, userID, request.Limit)
	if err != nil {
		if errors.Is(err, history.ErrNotLoggedIn) {
			return "", runtime.NewError(err.Error(), codeUnauthenticated)
		}
		logger.Error("ListPlayedGames [User:%s]: %v", userID, err)
		return "", runtime.NewError("failed to list played games", codeInternal)
	}

	resp := PlayedGamesResponse{Games: make([]PlayedGameView, 0, len(games))}
	for _, g := range games {
		view := PlayedGameView{GameID: g.GameID, Timestamp: g.Timestamp.UnixMilli()}
		for _, p := range g.Players {
			view.Players = append(view.Players, ResultView{
				PlayerID:   p.PlayerID,
				Name:       p.PlayerName,
				TotalScore: p.TotalScore,
				IsWinner:   p.IsWinner,
			})
		}
		resp.Games = append(resp.Games, view)
	}
	return marshalRPCResponse(resp)
}
