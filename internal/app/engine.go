package app

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"jamb/internal/domain"
)

var (
	ErrNotInitialized      = errors.New("game not initialized")
	ErrNoPlayers           = errors.New("at least one player is required")
	ErrTooManyPlayers      = errors.New("too many players")
	ErrInvalidPlayers      = errors.New("player ids must be sequential from 1")
	ErrGameFinished        = errors.New("game already finished")
	ErrGameAborted         = errors.New("game aborted")
	ErrGameNotFinished     = errors.New("game not finished")
	ErrTransitionPending   = errors.New("turn transition pending")
	ErrNoPendingTransition = errors.New("no pending transition")
	ErrNoRollsLeft         = errors.New("no rolls left this turn")
	ErrNotRolled           = errors.New("dice not rolled yet this turn")
	ErrInvalidDieIndex     = errors.New("die index out of range")
	ErrLockLimit           = errors.New("lock limit reached")
	ErrCategoryScored      = errors.New("category already scored")
)

// Listener receives a snapshot after every state change.
type Listener func(domain.GameState)

// Engine owns one Jamb game and applies its rules.
//
// Engine is not safe for concurrent use; the host (the Nakama match loop)
// serialises every call. Only PendingTransition.Done may be awaited elsewhere.
type Engine struct {
	rng   RandomSource
	clock Clock
	delay time.Duration

	state       domain.GameState
	initialized bool
	aborted     bool
	pending     *PendingTransition

	listeners map[int]Listener
	nextSubID int
}

// NewEngine constructs an Engine. A nil rng falls back to a time-seeded source
// and a nil clock to the wall clock.
func NewEngine(rng RandomSource, clock Clock) *Engine {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if clock == nil {
		clock = wallClock{}
	}
	return &Engine{
		rng:       rng,
		clock:     clock,
		delay:     DefaultTransitionDelay,
		listeners: make(map[int]Listener),
	}
}

// SetTransitionDelay changes how long a scored turn waits before advancing.
func (e *Engine) SetTransitionDelay(d time.Duration) {
	if d < 0 {
		d = 0
	}
	e.delay = d
}

// Initialize resets the engine for a new game with the given players in turn order.
func (e *Engine) Initialize(players []domain.Player) ([]Event, error) {
	if len(players) == 0 {
		return nil, ErrNoPlayers
	}
	if len(players) > domain.MaxPlayers {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooManyPlayers, len(players), domain.MaxPlayers)
	}
	for i, p := range players {
		if p.ID != i+1 {
			return nil, fmt.Errorf("%w: player %d has id %d", ErrInvalidPlayers, i, p.ID)
		}
	}

	e.cancelPending()
	e.state = domain.NewGameState(players)
	e.initialized = true
	e.aborted = false
	e.notify()

	return []Event{{
		Kind:    EventGameStarted,
		Payload: GameStartedPayload{Players: append([]domain.Player(nil), players...)},
	}}, nil
}

// Roll re-draws every unlocked die and spends one roll.
func (e *Engine) Roll() ([]Event, error) {
	if err := e.checkPlayable(); err != nil {
		return nil, err
	}
	if e.state.RollsLeft <= 0 {
		return nil, ErrNoRollsLeft
	}

	for i := range e.state.Dice {
		if !e.state.Dice[i].Locked {
			e.state.Dice[i].Value = e.rng.Intn(6) + 1
		}
	}
	e.state.RollsLeft--
	e.notify()

	player, _ := e.state.CurrentPlayer()
	return []Event{{
		Kind: EventDiceRolled,
		Payload: DiceRolledPayload{
			PlayerID:  player.ID,
			Dice:      e.state.Dice,
			RollsLeft: e.state.RollsLeft,
		},
	}}, nil
}

// ToggleLock flips the hold flag of one die.
// Locking needs a rolled value and is capped at domain.MaxLocked dice.
func (e *Engine) ToggleLock(index int) ([]Event, error) {
	if index < 0 || index >= domain.NumDice {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDieIndex, index)
	}
	if err := e.checkPlayable(); err != nil {
		return nil, err
	}
	if e.state.RollsLeft == domain.MaxRolls {
		return nil, ErrNotRolled
	}

	die := &e.state.Dice[index]
	if !die.Locked && e.state.Dice.LockedCount() >= domain.MaxLocked {
		return nil, ErrLockLimit
	}
	die.Locked = !die.Locked
	e.notify()

	player, _ := e.state.CurrentPlayer()
	return []Event{{
		Kind: EventDieLockToggled,
		Payload: DieLockToggledPayload{
			PlayerID: player.ID,
			Index:    index,
			Locked:   die.Locked,
		},
	}}, nil
}

// ScoreCategory writes the locked dice's score into the current player's sheet
// and schedules the deferred turn advance or game finish.
func (e *Engine) ScoreCategory(c domain.Category) ([]Event, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("%w: %d", domain.ErrUnknownCategory, int(c))
	}
	if err := e.checkPlayable(); err != nil {
		return nil, err
	}
	if e.state.RollsLeft == domain.MaxRolls {
		return nil, ErrNotRolled
	}

	sheet := e.state.CurrentSheet()
	if _, scored := sheet.Score(c); scored {
		return nil, ErrCategoryScored
	}

	score := domain.Score(c, e.state.Dice.LockedValues())
	sheet.Set(c, score)

	kind := domain.TransitionNextTurn
	if e.state.AllComplete() {
		kind = domain.TransitionFinish
	}
	e.state.Pending = kind
	e.pending = newPendingTransition(kind, e.clock.Now().Add(e.delay))
	e.notify()

	return []Event{{
		Kind: EventCategoryScored,
		Payload: CategoryScoredPayload{
			PlayerID:   sheet.PlayerID,
			Category:   c,
			Score:      score,
			Transition: kind,
		},
	}}, nil
}

// Tick applies the pending transition once it is due. Hosts call it on every
// iteration of their loop.
func (e *Engine) Tick() []Event {
	if e.pending == nil || !e.pending.due(e.clock.Now()) {
		return nil
	}
	return e.applyPending()
}

// AdvanceTurn applies the pending transition immediately, ignoring the delay.
func (e *Engine) AdvanceTurn() ([]Event, error) {
	if e.pending == nil {
		return nil, ErrNoPendingTransition
	}
	return e.applyPending(), nil
}

// Pending returns the scheduled transition, or nil.
func (e *Engine) Pending() *PendingTransition {
	return e.pending
}

// CancelPending drops the scheduled transition and aborts the game: the scored
// category stays scored and every operation returns ErrGameAborted until the
// next Initialize.
func (e *Engine) CancelPending() {
	if e.pending == nil {
		return
	}
	e.cancelPending()
	e.aborted = true
	e.notify()
}

// CurrentState returns a deep copy of the game state.
func (e *Engine) CurrentState() domain.GameState {
	return e.state.Clone()
}

// Results returns the final standings once the game is finished.
func (e *Engine) Results() ([]domain.PlayerResult, error) {
	if !e.state.Finished {
		return nil, ErrGameNotFinished
	}
	return domain.RankResults(&e.state), nil
}

// Subscribe registers fn for state change notifications and returns a function
// that removes it.
func (e *Engine) Subscribe(fn Listener) func() {
	id := e.nextSubID
	e.nextSubID++
	e.listeners[id] = fn
	return func() { delete(e.listeners, id) }
}

func (e *Engine) checkPlayable() error {
	switch {
	case !e.initialized:
		return ErrNotInitialized
	case e.state.Finished:
		return ErrGameFinished
	case e.aborted:
		return ErrGameAborted
	case e.pending != nil:
		return ErrTransitionPending
	}
	return nil
}

func (e *Engine) applyPending() []Event {
	p := e.pending
	e.pending = nil
	e.state.Pending = domain.TransitionNone

	var events []Event
	switch p.Kind {
	case domain.TransitionFinish:
		e.state.Finished = true
		events = append(events, Event{
			Kind:    EventGameFinished,
			Payload: GameFinishedPayload{Results: domain.RankResults(&e.state)},
		})
	default:
		e.advance()
		player, _ := e.state.CurrentPlayer()
		events = append(events, Event{
			Kind:    EventTurnAdvanced,
			Payload: TurnAdvancedPayload{PlayerID: player.ID, Round: e.state.CurrentRound},
		})
	}

	p.resolve(false)
	e.notify()
	return events
}

func (e *Engine) advance() {
	next := (e.state.CurrentPlayerIndex + 1) % len(e.state.Players)
	if next == 0 {
		e.state.CurrentRound++
	}
	e.state.CurrentPlayerIndex = next
	e.state.Dice = domain.NewDiceSet()
	e.state.RollsLeft = domain.MaxRolls
}

func (e *Engine) cancelPending() {
	if e.pending == nil {
		return
	}
	p := e.pending
	e.pending = nil
	e.state.Pending = domain.TransitionNone
	p.resolve(true)
}

func (e *Engine) notify() {
	if len(e.listeners) == 0 {
		return
	}
	snapshot := e.state.Clone()
	for _, fn := range e.listeners {
		fn(snapshot.Clone())
	}
}
