package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// GameConfig holds table tuning loaded from data/game_config.json.
type GameConfig struct {
	// TransitionDelayMillis is how long a scored turn waits before the next one starts.
	TransitionDelayMillis int `json:"transition_delay_ms"`
	TickRate              int `json:"tick_rate"`
	MaxPlayers            int `json:"max_players"`
	// BotAutoFillDelaySeconds configures how many seconds to wait before adding a bot to a solo human lobby.
	BotAutoFillDelaySeconds int `json:"bot_auto_fill_delay_seconds"`
	HistoryListLimit        int `json:"history_list_limit"`
}

// DefaultGameConfig returns the built-in tuning used when no file is loaded.
func DefaultGameConfig() GameConfig {
	return GameConfig{
		TransitionDelayMillis:   1000,
		TickRate:                5,
		MaxPlayers:              6,
		BotAutoFillDelaySeconds: 5,
		HistoryListLimit:        50,
	}
}

// TransitionDelay returns the configured delay as a duration.
func (c GameConfig) TransitionDelay() time.Duration {
	return time.Duration(c.TransitionDelayMillis) * time.Millisecond
}

var (
	cfg      *GameConfig
	loadOnce sync.Once
	loadErr  error
)

// LoadGameConfig loads the game configuration from the given path.
// Only the first call reads the file.
func LoadGameConfig(path string) error {
	loadOnce.Do(func() {
		c, err := readGameConfig(path)
		if err != nil {
			loadErr = err
			return
		}
		cfg = c
	})
	return loadErr
}

// GetGameConfig returns the loaded configuration, or the defaults when none was loaded.
func GetGameConfig() GameConfig {
	if cfg == nil {
		return DefaultGameConfig()
	}
	return *cfg
}

func readGameConfig(path string) (*GameConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read game config: %w", err)
	}

	c := DefaultGameConfig()
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal game config: %w", err)
	}
	if c.TransitionDelayMillis < 0 {
		return nil, fmt.Errorf("transition_delay_ms must not be negative")
	}
	if c.TickRate <= 0 {
		c.TickRate = DefaultGameConfig().TickRate
	}
	if c.MaxPlayers <= 0 || c.MaxPlayers > DefaultGameConfig().MaxPlayers {
		c.MaxPlayers = DefaultGameConfig().MaxPlayers
	}
	return &c, nil
}
