package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	HistoryBackendNakama = "nakama"
	HistoryBackendSQLite = "sqlite"
)

// RuntimeEnv is the subset of the Nakama runtime env the module reads.
type RuntimeEnv struct {
	BotsEnabled         bool          `env:"jamb_bots_enabled" envDefault:"true"`
	BotLevel            string        `env:"jamb_bot_level" envDefault:"good"`
	BotMinDelaySec      int           `env:"jamb_bot_min_delay_sec" envDefault:"1"`
	BotMaxDelaySec      int           `env:"jamb_bot_max_delay_sec" envDefault:"3"`
	BotAutoFillDelaySec int           `env:"jamb_bot_auto_fill_delay_sec"`
	TransitionDelay     time.Duration `env:"jamb_transition_delay"`
	HistoryBackend      string        `env:"jamb_history_backend" envDefault:"nakama"`
	HistorySQLitePath   string        `env:"jamb_history_sqlite_path" envDefault:"data/jamb_history.db"`
}

// ParseRuntimeEnv decodes the runtime env map handed to InitModule.
func ParseRuntimeEnv(values map[string]string) (RuntimeEnv, error) {
	var cfg RuntimeEnv
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: values}); err != nil {
		return RuntimeEnv{}, fmt.Errorf("parse env: %w", err)
	}

	if cfg.BotMinDelaySec < 0 || cfg.BotMaxDelaySec < cfg.BotMinDelaySec {
		return RuntimeEnv{}, fmt.Errorf("invalid bot delay range %d..%d", cfg.BotMinDelaySec, cfg.BotMaxDelaySec)
	}
	if cfg.TransitionDelay < 0 {
		return RuntimeEnv{}, fmt.Errorf("jamb_transition_delay must not be negative")
	}
	switch cfg.HistoryBackend {
	case HistoryBackendNakama, HistoryBackendSQLite:
	default:
		return RuntimeEnv{}, fmt.Errorf("unknown history backend %q", cfg.HistoryBackend)
	}
	return cfg, nil
}
