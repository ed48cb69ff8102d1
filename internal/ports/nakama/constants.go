package nakama

const (
	// RpcQuickMatch is the Nakama RPC id clients call to find or create a lobby-capable match.
	RpcQuickMatch = "quick_match"
	// RpcListPlayedGames returns the caller's finished games, newest first.
	RpcListPlayedGames = "list_played_games"

	// MatchNameJamb is the authoritative match handler name registered with Nakama.
	MatchNameJamb = "jamb_match"

	// GameLabel is the value of label.game used to find Jamb matches.
	GameLabel = "jamb"
)

// Op codes for client messages and server events.
const (
	// Client -> Server
	OpStartGame     int64 = 1
	OpSetName       int64 = 2
	OpRollDice      int64 = 3
	OpToggleLock    int64 = 4
	OpScoreCategory int64 = 5

	// Server -> Client events
	OpMatchState     int64 = 100
	OpGameStarted    int64 = 101
	OpDiceRolled     int64 = 102
	OpDieLockToggled int64 = 103
	OpCategoryScored int64 = 104
	OpTurnAdvanced   int64 = 105
	OpGameFinished   int64 = 106
	OpGameError      int64 = 107
)

// Error codes carried by OpGameError.
const (
	ErrCodeBadRequest = 400
	ErrCodeForbidden  = 403
	ErrCodeConflict   = 409
	ErrCodeAborted    = 410
)

const maxNameLength = 20
