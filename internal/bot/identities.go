package bot

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"jamb/internal/domain"
)

type BotIdentity struct {
	UserID      string `json:"user_id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Difficulty  string `json:"difficulty"` // "easy", "good"
	AvatarIndex int    `json:"avatar_index"`
}

// fallbackPoolSize covers a full table of bots plus replacements.
const fallbackPoolSize = 2 * domain.MaxPlayers

// botIdentities and botConfigMap are read from every match loop; identityMu guards them.
var (
	identityMu    sync.RWMutex
	botIdentities []BotIdentity
	botConfigMap  map[string]BotIdentity
	loadOnce      sync.Once
	loadErr       error
)

// LoadIdentities loads the bot profiles from the given path.
func LoadIdentities(path string) error {
	loadOnce.Do(func() {
		data, err := os.ReadFile(path)
		if err != nil {
			loadErr = fmt.Errorf("failed to read bot identities: %w", err)
			return
		}

		var identities []BotIdentity
		if err := json.Unmarshal(data, &identities); err != nil {
			loadErr = fmt.Errorf("failed to unmarshal bot identities: %w", err)
			return
		}
		setIdentities(identities)
	})
	return loadErr
}

func setIdentities(identities []BotIdentity) {
	identityMu.Lock()
	defer identityMu.Unlock()
	setIdentitiesLocked(identities)
}

func setIdentitiesLocked(identities []BotIdentity) {
	botIdentities = nil
	botConfigMap = make(map[string]BotIdentity)
	for _, identity := range identities {
		if identity.UserID == "" {
			continue
		}
		botIdentities = append(botIdentities, identity)
		botConfigMap[identity.UserID] = identity
	}
}

// GetBotConfig returns the full identity configuration for a given bot ID.
func GetBotConfig(userID string) (BotIdentity, bool) {
	identityMu.RLock()
	defer identityMu.RUnlock()
	config, ok := botConfigMap[userID]
	return config, ok
}

// GetBotDisplayName returns the display name for a bot ID, or an empty string if not a bot.
func GetBotDisplayName(userID string) string {
	identityMu.RLock()
	defer identityMu.RUnlock()
	identity, ok := botConfigMap[userID]
	if !ok {
		return ""
	}
	if identity.DisplayName == "" {
		return identity.Username
	}
	return identity.DisplayName
}

// GetBotIdentity returns an identity for a bot by index (mod pool size).
// Without a loaded pool, generated identities "bot-0".."bot-11" are installed once.
func GetBotIdentity(index int) BotIdentity {
	identityMu.RLock()
	if n := len(botIdentities); n > 0 {
		defer identityMu.RUnlock()
		return botIdentities[index%n]
	}
	identityMu.RUnlock()

	identityMu.Lock()
	defer identityMu.Unlock()
	if len(botIdentities) == 0 {
		setIdentitiesLocked(generatedIdentities(fallbackPoolSize))
	}
	return botIdentities[index%len(botIdentities)]
}

func generatedIdentities(n int) []BotIdentity {
	identities := make([]BotIdentity, n)
	for i := range identities {
		identities[i] = BotIdentity{
			UserID:      fmt.Sprintf("bot-%d", i),
			Username:    fmt.Sprintf("bot%d", i),
			DisplayName: fmt.Sprintf("AI Player %d", i),
			Difficulty:  "good",
		}
	}
	return identities
}

// IsBot reports whether the given user ID belongs to the bot pool.
func IsBot(userID string) bool {
	identityMu.RLock()
	defer identityMu.RUnlock()
	_, ok := botConfigMap[userID]
	return ok
}

// Level returns the configured strategy level of a bot, falling back to fallback.
func (b BotIdentity) Level(fallback BotLevel) BotLevel {
	if b.Difficulty == "" {
		return fallback
	}
	level, err := ParseBotLevel(b.Difficulty)
	if err != nil {
		return fallback
	}
	return level
}
