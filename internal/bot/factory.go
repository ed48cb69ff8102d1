package bot

import (
	"fmt"
	"math/rand"
	"strings"
	"time"
)

// BotLevel selects the strategy a bot plays with.
type BotLevel int

const (
	BotLevelEasy BotLevel = iota
	BotLevelGood
)

// ParseBotLevel maps a config string ("easy", "good") to a level.
func ParseBotLevel(s string) (BotLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "easy":
		return BotLevelEasy, nil
	case "", "good":
		return BotLevelGood, nil
	default:
		return 0, fmt.Errorf("unknown bot level: %q", s)
	}
}

// NewBrain creates a new AI brain based on the specified level.
func NewBrain(level BotLevel) (Brain, error) {
	switch level {
	case BotLevelEasy:
		return &EasyBot{}, nil
	case BotLevelGood:
		return &GoodBot{}, nil
	default:
		return nil, fmt.Errorf("unknown bot level: %d", level)
	}
}

// NewAgent builds an agent for the bot seat userID playing as playerID.
func NewAgent(userID string, playerID int, level BotLevel) (*Agent, error) {
	brain, err := NewBrain(level)
	if err != nil {
		return nil, err
	}
	return &Agent{
		ID:       userID,
		PlayerID: playerID,
		Name:     GetBotDisplayName(userID),
		Strategy: brain,
	}, nil
}

// ThinkDelay picks how many ticks a bot waits before acting, in [min, max].
func ThinkDelay(rng *rand.Rand, min, max int) int {
	if max <= min {
		return min
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return rng.Intn(max-min+1) + min
}
