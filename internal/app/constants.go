package app

import "time"

// DefaultTransitionDelay is how long a scored turn stays on screen before the
// next player's turn (or the end of the game) takes effect.
const DefaultTransitionDelay = time.Second

// MinPlayersToStartGame is the smallest table the lobby will start.
// Jamb can be played solo, so a single seat is enough.
const MinPlayersToStartGame = 1
