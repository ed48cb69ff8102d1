package nakama

import (
	"context"
	"database/sql"
	"fmt"

	"jamb/internal/app/history"
	"jamb/internal/config"
	"jamb/internal/ports"
	"jamb/internal/storage/sqlite"

	"github.com/heroiclabs/nakama-common/runtime"
)

// InitModule wires RPCs and match handlers for Nakama runtime.
func InitModule(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, initializer runtime.Initializer) error {
	envMap, _ := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string)
	env, err := config.ParseRuntimeEnv(envMap)
	if err != nil {
		logger.Error("InitModule: Invalid runtime env: %v", err)
		return err
	}

	if err := config.LoadGameConfig(gameConfigPath); err != nil {
		logger.Warn("InitModule: Could not load game config, using defaults: %v", err)
	}

	historyPort, err := openHistory(env, nk)
	if err != nil {
		logger.Error("InitModule: Failed to open %s history: %v", env.HistoryBackend, err)
		return err
	}
	logger.Info("InitModule: Game history stored in %s.", env.HistoryBackend)

	if err := RegisterRPCs(initializer, history.NewService(historyPort, nil, nil)); err != nil {
		return err
	}

	if err := initializer.RegisterMatch(MatchNameJamb, func(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule) (runtime.Match, error) {
		return newMatchHandler(env, historyPort), nil
	}); err != nil {
		return err
	}

	logger.Info("Jamb Go module loaded (bots enabled: %t).", env.BotsEnabled)
	return nil
}

func openHistory(env config.RuntimeEnv, nk runtime.NakamaModule) (ports.HistoryPort, error) {
	switch env.HistoryBackend {
	case config.HistoryBackendSQLite:
		store, err := sqlite.Open(env.HistorySQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite history: %w", err)
		}
		return store, nil
	default:
		return NewNakamaHistoryAdapter(nk), nil
	}
}
