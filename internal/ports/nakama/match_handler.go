package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"math/rand"
	"strings"
	"time"
	"unicode/utf8"

	"jamb/internal/app"
	"jamb/internal/app/history"
	"jamb/internal/bot"
	"jamb/internal/config"
	"jamb/internal/domain"
	"jamb/internal/ports"

	"github.com/heroiclabs/nakama-common/runtime"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	MatchLabelKey_Open      = "open"       // True while the lobby accepts players
	MatchLabelKey_OpenSeats = "open_seats" // Number of free seats
	MatchLabelKey_Game      = "game"
	MatchLabelKey_Phase     = "phase"

	botIdentitiesPath = "data/bot_identities.json"
	gameConfigPath    = "data/game_config.json"
)

type matchHandler struct {
	env     config.RuntimeEnv
	history ports.HistoryPort
	// rng and clock drive the engine; nil uses time-based defaults.
	rng   app.RandomSource
	clock app.Clock
}

func newMatchHandler(env config.RuntimeEnv, historyPort ports.HistoryPort) *matchHandler {
	return &matchHandler{env: env, history: historyPort}
}

// MatchInit is called when the match is created.
func (mh *matchHandler) MatchInit(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, params map[string]interface{}) (interface{}, int, string) {
	logger.Debug("MatchInit: Initializing match handler.")

	// Load bot identities from data folder
	if err := bot.LoadIdentities(botIdentitiesPath); err != nil {
		logger.Warn("MatchInit: Could not load bot identities: %v", err)
	}
	if err := config.LoadGameConfig(gameConfigPath); err != nil {
		logger.Warn("MatchInit: Could not load game config, using defaults: %v", err)
	}
	gameCfg := config.GetGameConfig()

	engine := app.NewEngine(mh.rng, mh.clock)
	delay := gameCfg.TransitionDelay()
	if mh.env.TransitionDelay > 0 {
		delay = mh.env.TransitionDelay
	}
	engine.SetTransitionDelay(delay)

	level, err := bot.ParseBotLevel(mh.env.BotLevel)
	if err != nil {
		logger.Warn("MatchInit: %v, using good bots", err)
		level = bot.BotLevelGood
	}

	state := &MatchState{
		Names:            make(map[string]string),
		OwnerSeat:        -1,
		TickRate:         gameCfg.TickRate,
		MaxSeats:         gameCfg.MaxPlayers,
		Presences:        make(map[string]runtime.Presence),
		Engine:           engine,
		BotsEnabled:      mh.env.BotsEnabled,
		BotLevel:         level,
		BotMinDelay:      mh.env.BotMinDelaySec,
		BotMaxDelay:      mh.env.BotMaxDelaySec,
		BotAutoFillDelay: gameCfg.BotAutoFillDelaySeconds,
		Bots:             make(map[string]*bot.Agent),
		rng:              rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	if mh.env.BotAutoFillDelaySec > 0 {
		state.BotAutoFillDelay = mh.env.BotAutoFillDelaySec
	}
	if mh.history != nil {
		state.History = history.NewService(mh.history, nil, nil)
	}

	label, err := buildLabel(state)
	if err != nil {
		logger.Error("MatchInit: Failed to marshal label: %v", err)
		return nil, 0, ""
	}

	return state, state.TickRate, label
}

func (mh *matchHandler) MatchJoinAttempt(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presence runtime.Presence, metadata map[string]string) (interface{}, bool, string) {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state, false, "state not found"
	}

	if matchState.InGame {
		return state, false, "Game in progress"
	}

	// Allow join if there is an empty seat OR a bot to replace
	if matchState.GetOpenSeatsCount() <= 0 {
		hasBot := false
		for _, seat := range matchState.activeSeats() {
			if isBotUserId(seat) {
				hasBot = true
				break
			}
		}
		if !hasBot {
			return state, false, "Match full"
		}
	}

	return state, true, ""
}

func (mh *matchHandler) MatchJoin(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchJoin: state not found")
		return state
	}

	for _, p := range presences {
		matchState.Presences[p.GetUserId()] = p
		if matchState.seatOf(p.GetUserId()) >= 0 {
			continue
		}

		// Assign seat: Try empty seats first, then bots (lobby only)
		assigned := false
		if seat := domain.LowestAvailableSeat(matchState.activeSeats()); seat >= 0 {
			matchState.Seats[seat] = p.GetUserId()
			assigned = true
		}

		if !assigned && !matchState.InGame {
			for i, seatUserId := range matchState.activeSeats() {
				if isBotUserId(seatUserId) {
					logger.Info("MatchJoin: Replacing bot %s with human %s in seat %d", seatUserId, p.GetUserId(), i)
					delete(matchState.Bots, seatUserId)
					matchState.Seats[i] = p.GetUserId()
					assigned = true
					break
				}
			}
		}

		if !assigned {
			logger.Warn("MatchJoin: User %s joined but no seat (empty or bot) was available.", p.GetUserId())
		}
	}

	// Ensure owner seat is assigned to a human player only.
	if !isHumanSeat(matchState.Seats[:], matchState.OwnerSeat) {
		matchState.OwnerSeat = findFirstHumanSeat(matchState.Seats[:])
		if matchState.OwnerSeat >= 0 {
			logger.Debug("MatchJoin: Owner set to human seat %d.", matchState.OwnerSeat)
		}
	}

	mh.updateLabel(matchState, dispatcher, logger)
	mh.broadcastMatchState(matchState, dispatcher, logger)

	return matchState
}

// MatchLeave is called when one or more players leave the match.
// A player leaving mid-game hands their seat to a bot, or aborts the game when bots are disabled.
func (mh *matchHandler) MatchLeave(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchLeave: state not found")
		return state
	}

	abort := false
	for _, p := range presences {
		userID := p.GetUserId()
		delete(matchState.Presences, userID)
		delete(matchState.Names, userID)

		seat := matchState.seatOf(userID)
		if seat < 0 {
			continue
		}
		matchState.Seats[seat] = ""
		logger.Debug("MatchLeave: User %s left, seat %d freed.", userID, seat)

		playerID := matchState.playerIDForSeat(seat)
		if !matchState.InGame || playerID == 0 {
			continue
		}
		if !matchState.BotsEnabled {
			abort = true
			continue
		}
		if !mh.seatBot(matchState, logger, seat, playerID) {
			abort = true
		}
	}

	matchState.OwnerSeat = findFirstHumanSeat(matchState.Seats[:])

	if shouldTerminateNoHumans(matchState.Seats[:]) {
		logger.Info("MatchLeave: Terminating match with no humans.")
		matchState.Engine.CancelPending()
		return nil
	}

	if abort && matchState.InGame {
		mh.abortGame(matchState, dispatcher, logger, "a player left the game")
	}

	mh.updateLabel(matchState, dispatcher, logger)
	mh.broadcastMatchState(matchState, dispatcher, logger)

	return matchState
}

func (mh *matchHandler) MatchLoop(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, messages []runtime.MatchData) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state
	}

	matchState.Tick = tick

	for _, msg := range messages {
		switch msg.GetOpCode() {
		case OpStartGame:
			mh.handleStartGame(ctx, matchState, dispatcher, logger, msg)
		case OpSetName:
			mh.handleSetName(matchState, dispatcher, logger, msg)
		case OpRollDice:
			mh.handleRollDice(ctx, matchState, dispatcher, logger, msg)
		case OpToggleLock:
			mh.handleToggleLock(ctx, matchState, dispatcher, logger, msg)
		case OpScoreCategory:
			mh.handleScoreCategory(ctx, matchState, dispatcher, logger, msg)
		default:
			logger.Warn("MatchLoop: Unknown opcode received: %d", msg.GetOpCode())
		}
	}

	// Deferred turn transitions fire here.
	if matchState.InGame {
		for _, ev := range matchState.Engine.Tick() {
			mh.broadcastEvent(ctx, matchState, dispatcher, logger, ev)
		}
	}

	if matchState.BotsEnabled || len(matchState.Bots) > 0 {
		mh.processBots(ctx, matchState, dispatcher, logger)
	}

	return matchState
}

func (mh *matchHandler) processBots(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	// 1. Auto-fill the lobby with a bot opponent when a human waits alone.
	if !state.InGame {
		if state.BotsEnabled && state.GetHumanPlayerCount() == 1 && state.GetOccupiedSeatCount() == 1 {
			if state.LastSinglePlayerTick == 0 {
				state.LastSinglePlayerTick = state.Tick
				logger.Debug("processBots: Single player detected, starting auto-fill timer.")
			}
			if state.Tick-state.LastSinglePlayerTick >= int64(state.BotAutoFillDelay*state.TickRate) {
				if seat := domain.LowestAvailableSeat(state.activeSeats()); seat >= 0 && mh.seatBot(state, logger, seat, 0) {
					mh.updateLabel(state, dispatcher, logger)
					mh.broadcastMatchState(state, dispatcher, logger)
				}
				state.LastSinglePlayerTick = 0
			}
		} else {
			state.LastSinglePlayerTick = 0
		}
		return
	}

	// 2. Handle bot turns in-game
	snapshot := state.Engine.CurrentState()
	current, ok := snapshot.CurrentPlayer()
	if !ok || snapshot.Finished || state.Engine.Pending() != nil {
		state.BotWaitUntil = 0
		return
	}
	currentUserID := state.userForPlayer(current.ID)
	if !isBotUserId(currentUserID) {
		state.BotWaitUntil = 0
		return
	}

	if state.BotWaitUntil == 0 {
		delay := bot.ThinkDelay(state.rng, state.BotMinDelay, state.BotMaxDelay) * state.TickRate
		state.BotWaitUntil = state.Tick + int64(delay)
		logger.Debug("processBots: Bot %s (player %d) will act at tick %d (current %d)", currentUserID, current.ID, state.BotWaitUntil, state.Tick)
	}
	if state.Tick < state.BotWaitUntil {
		return
	}

	agent, exists := state.Bots[currentUserID]
	if !exists {
		var err error
		agent, err = newBotAgent(state, currentUserID, current.ID)
		if err != nil {
			logger.Error("processBots: Failed to create fallback agent: %v", err)
			return
		}
		state.Bots[currentUserID] = agent
	}

	move, err := agent.Play(snapshot)
	if err != nil {
		logger.Error("processBots: Bot %s failed to calculate move: %v", currentUserID, err)
		move = fallbackMove(snapshot)
	}
	events, err := move.Apply(state.Engine)
	if err != nil {
		logger.Warn("processBots: Bot %s move %+v rejected: %v", currentUserID, move, err)
		move = fallbackMove(snapshot)
		if events, err = move.Apply(state.Engine); err != nil {
			logger.Error("processBots: Bot %s fallback move rejected: %v", currentUserID, err)
			state.BotWaitUntil = 0
			return
		}
	}
	for _, ev := range events {
		mh.broadcastEvent(ctx, state, dispatcher, logger, ev)
	}

	// Lock toggles follow each other quickly; rolls and scoring get a fresh think delay.
	if move.Kind == bot.MoveToggleLock {
		state.BotWaitUntil = state.Tick + 1
	} else {
		state.BotWaitUntil = 0
	}
}

// fallbackMove is always legal on the player's turn: roll if nothing was rolled, else book the first open category.
func fallbackMove(state domain.GameState) bot.Move {
	if state.RollsLeft == domain.MaxRolls {
		return bot.Move{Kind: bot.MoveRoll}
	}
	open := state.CurrentSheet().Open()
	return bot.Move{Kind: bot.MoveScore, Category: open[0]}
}

func newBotAgent(state *MatchState, userID string, playerID int) (*bot.Agent, error) {
	level := state.BotLevel
	if identity, ok := bot.GetBotConfig(userID); ok {
		level = identity.Level(level)
	}
	return bot.NewAgent(userID, playerID, level)
}

// seatBot puts an unused bot identity in seat. playerID is the engine player it takes over, 0 in the lobby.
func (mh *matchHandler) seatBot(state *MatchState, logger runtime.Logger, seat int, playerID int) bool {
	for i := 0; i < 2*domain.MaxPlayers; i++ {
		identity := bot.GetBotIdentity(i)
		if identity.UserID == "" || state.seatOf(identity.UserID) >= 0 {
			continue
		}
		agent, err := newBotAgent(state, identity.UserID, playerID)
		if err != nil {
			logger.Error("Failed to create bot agent for %s: %v", identity.UserID, err)
			return false
		}
		state.Seats[seat] = identity.UserID
		state.Bots[identity.UserID] = agent
		logger.Info("seatBot: Added bot %s (%s) to seat %d", identity.DisplayName, identity.UserID, seat)
		return true
	}
	logger.Warn("seatBot: No free bot identity for seat %d", seat)
	return false
}

func (mh *matchHandler) handleStartGame(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	senderID := msg.GetUserId()
	senderSeat := state.seatOf(senderID)

	logger.Info("StartGame: Request received from %s (seat=%d, owner_seat=%d, occupied=%d)", senderID, senderSeat, state.OwnerSeat, state.GetOccupiedSeatCount())

	if senderSeat < 0 || senderSeat != state.OwnerSeat {
		logger.Warn("StartGame: User %s tried to start game but is not owner (owner_seat=%d)", senderID, state.OwnerSeat)
		mh.sendError(state, dispatcher, logger, senderID, ErrCodeForbidden, "only the match owner can start the game")
		return
	}
	if state.InGame {
		mh.sendError(state, dispatcher, logger, senderID, ErrCodeConflict, "game already in progress")
		return
	}

	activeCount := state.GetOccupiedSeatCount()
	if activeCount < app.MinPlayersToStartGame {
		logger.Warn("StartGame: Cannot start with %d players. Need at least %d.", activeCount, app.MinPlayersToStartGame)
		return
	}

	// Turn order follows seat order; player ids are 1-based.
	var players []domain.Player
	var seats []int
	for i, userID := range state.Seats {
		if userID == "" {
			continue
		}
		id := len(players) + 1
		players = append(players, domain.Player{ID: id, Name: state.displayName(userID)})
		seats = append(seats, i)
		if isBotUserId(userID) {
			agent, ok := state.Bots[userID]
			if !ok {
				var err error
				if agent, err = newBotAgent(state, userID, id); err != nil {
					logger.Error("StartGame: Failed to create bot agent for %s: %v", userID, err)
					return
				}
				state.Bots[userID] = agent
			}
			agent.PlayerID = id
		}
	}

	events, err := state.Engine.Initialize(players)
	if err != nil {
		logger.Error("StartGame: Failed to start game: %v", err)
		mh.sendError(state, dispatcher, logger, senderID, ErrCodeBadRequest, err.Error())
		return
	}

	state.InGame = true
	state.PlayerSeats = seats
	state.BotWaitUntil = 0

	mh.updateLabel(state, dispatcher, logger)
	for _, ev := range events {
		mh.broadcastEvent(ctx, state, dispatcher, logger, ev)
	}

	logger.Info("StartGame: Game started with %d players.", activeCount)
}

func (mh *matchHandler) handleSetName(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	senderID := msg.GetUserId()
	if state.seatOf(senderID) < 0 {
		return
	}
	if state.InGame {
		mh.sendError(state, dispatcher, logger, senderID, ErrCodeConflict, "names cannot change during a game")
		return
	}

	var request SetNameRequest
	if err := json.Unmarshal(msg.GetData(), &request); err != nil {
		logger.Warn("SetName: Invalid request from %s: %v", senderID, err)
		mh.sendError(state, dispatcher, logger, senderID, ErrCodeBadRequest, "invalid set name request")
		return
	}
	name := strings.TrimSpace(request.Name)
	if name == "" || utf8.RuneCountInString(name) > maxNameLength {
		mh.sendError(state, dispatcher, logger, senderID, ErrCodeBadRequest, "name must be 1-20 characters")
		return
	}

	state.Names[senderID] = name
	mh.broadcastMatchState(state, dispatcher, logger)
}

// requireTurn reports whether the sender may act now, replying with an error otherwise.
func (mh *matchHandler) requireTurn(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, senderID, action string) bool {
	if !state.InGame {
		logger.Warn("%s: Game not started.", action)
		mh.sendError(state, dispatcher, logger, senderID, ErrCodeConflict, "game not started")
		return false
	}
	playerID := state.playerIDForSeat(state.seatOf(senderID))
	snapshot := state.Engine.CurrentState()
	current, ok := snapshot.CurrentPlayer()
	if playerID == 0 || !ok || current.ID != playerID {
		logger.Warn("%s: User %s acted out of turn (player=%d, current=%d)", action, senderID, playerID, current.ID)
		mh.sendError(state, dispatcher, logger, senderID, ErrCodeForbidden, "not your turn")
		return false
	}
	return true
}

func (mh *matchHandler) handleRollDice(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	senderID := msg.GetUserId()
	if !mh.requireTurn(state, dispatcher, logger, senderID, "handleRollDice") {
		return
	}
	events, err := state.Engine.Roll()
	mh.dispatchResult(ctx, state, dispatcher, logger, senderID, "handleRollDice", events, err)
}

func (mh *matchHandler) handleToggleLock(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	senderID := msg.GetUserId()
	if !mh.requireTurn(state, dispatcher, logger, senderID, "handleToggleLock") {
		return
	}
	var request ToggleLockRequest
	if err := json.Unmarshal(msg.GetData(), &request); err != nil || request.Index == nil {
		logger.Warn("handleToggleLock: Invalid request from %s: %v", senderID, err)
		mh.sendError(state, dispatcher, logger, senderID, ErrCodeBadRequest, "invalid toggle lock request")
		return
	}
	events, err := state.Engine.ToggleLock(*request.Index)
	mh.dispatchResult(ctx, state, dispatcher, logger, senderID, "handleToggleLock", events, err)
}

func (mh *matchHandler) handleScoreCategory(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	senderID := msg.GetUserId()
	if !mh.requireTurn(state, dispatcher, logger, senderID, "handleScoreCategory") {
		return
	}
	var request ScoreCategoryRequest
	if err := json.Unmarshal(msg.GetData(), &request); err != nil {
		logger.Warn("handleScoreCategory: Invalid request from %s: %v", senderID, err)
		mh.sendError(state, dispatcher, logger, senderID, ErrCodeBadRequest, "invalid score request")
		return
	}
	events, err := state.Engine.ScoreCategory(request.Category)
	mh.dispatchResult(ctx, state, dispatcher, logger, senderID, "handleScoreCategory", events, err)
}

// dispatchResult broadcasts the events of an accepted action or reports the rejection to the sender.
func (mh *matchHandler) dispatchResult(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, senderID, action string, events []app.Event, err error) {
	if err != nil {
		logger.Warn("%s: User %s rejected: %v", action, senderID, err)
		code := ErrCodeBadRequest
		if errors.Is(err, app.ErrTransitionPending) || errors.Is(err, app.ErrGameFinished) || errors.Is(err, app.ErrGameAborted) {
			code = ErrCodeConflict
		}
		mh.sendError(state, dispatcher, logger, senderID, code, err.Error())
		return
	}
	for _, ev := range events {
		mh.broadcastEvent(ctx, state, dispatcher, logger, ev)
	}
}

// broadcastEvent handles the conversion and dispatching of engine events to Nakama.
func (mh *matchHandler) broadcastEvent(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, ev app.Event) {
	opCode, ok := eventOpCode(ev.Kind)
	data, okData := eventData(ev)
	if !ok || !okData {
		logger.Warn("Unknown event kind: %v", ev.Kind)
		return
	}

	bytes, err := json.Marshal(EventMessage{Event: ev.Kind, Data: data, State: mh.snapshot(state)})
	if err != nil {
		logger.Error("Failed to marshal event %v: %v", ev.Kind, err)
		return
	}
	if err := dispatcher.BroadcastMessage(opCode, bytes, nil, nil, true); err != nil {
		logger.Error("Failed to broadcast event %v: %v", ev.Kind, err)
	}

	if ev.Kind == app.EventGameFinished {
		mh.finishGame(ctx, state, dispatcher, logger, ev.Payload.(app.GameFinishedPayload))
	}
}

// finishGame saves the result for the human participants and returns the match to the lobby.
func (mh *matchHandler) finishGame(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, p app.GameFinishedPayload) {
	var userIDs []string
	for id := 1; id <= len(state.PlayerSeats); id++ {
		if userID := state.userForPlayer(id); userID != "" && !isBotUserId(userID) {
			userIDs = append(userIDs, userID)
		}
	}

	if state.History != nil && len(userIDs) > 0 {
		record, err := state.History.RecordGame(ctx, p.Results, userIDs)
		if err != nil {
			logger.Error("finishGame: Failed to save game history: %v", err)
		} else {
			logger.Info("finishGame: Saved game %s for %d users.", record.GameID, len(record.UserIDs))
		}
	}

	mh.returnToLobby(state)
	mh.updateLabel(state, dispatcher, logger)
	mh.broadcastMatchState(state, dispatcher, logger)
}

// abortGame drops the current game without saving it.
func (mh *matchHandler) abortGame(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, reason string) {
	logger.Info("abortGame: %s", reason)
	state.Engine.CancelPending()
	mh.returnToLobby(state)

	bytes, err := json.Marshal(ErrorMessage{Code: ErrCodeAborted, Message: "game aborted: " + reason})
	if err != nil {
		logger.Error("Failed to marshal abort message: %v", err)
		return
	}
	if err := dispatcher.BroadcastMessage(OpGameError, bytes, nil, nil, true); err != nil {
		logger.Error("Failed to broadcast abort message: %v", err)
	}
}

func (mh *matchHandler) returnToLobby(state *MatchState) {
	state.InGame = false
	state.PlayerSeats = nil
	state.BotWaitUntil = 0
	for _, agent := range state.Bots {
		agent.PlayerID = 0
	}
}

// snapshot renders the engine state with seat information for clients.
func (mh *matchHandler) snapshot(state *MatchState) GameSnapshot {
	gs := state.Engine.CurrentState()
	current, _ := gs.CurrentPlayer()

	players := make([]PlayerView, 0, len(gs.Players))
	for _, p := range gs.Players {
		userID := state.userForPlayer(p.ID)
		view := PlayerView{
			PlayerID: p.ID,
			UserID:   userID,
			Name:     p.Name,
			IsBot:    isBotUserId(userID),
		}
		if sheet := gs.Sheets[p.ID]; sheet != nil {
			view.Total = sheet.Total()
			view.Scores = sheet.Entries()
		}
		players = append(players, view)
	}

	return GameSnapshot{
		Players:         players,
		CurrentPlayerID: current.ID,
		Round:           gs.CurrentRound,
		Dice:            toDiceView(gs.Dice),
		RollsLeft:       gs.RollsLeft,
		Phase:           gs.Phase(),
		Finished:        gs.Finished,
	}
}

func (mh *matchHandler) broadcastMatchState(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	seats := make([]SeatView, 0, len(state.Seats))
	for i, userID := range state.Seats {
		if userID == "" {
			continue
		}
		seats = append(seats, SeatView{
			Seat:    i,
			UserID:  userID,
			Name:    state.displayName(userID),
			IsBot:   isBotUserId(userID),
			IsOwner: i == state.OwnerSeat,
		})
	}

	bytes, err := json.Marshal(MatchStateMessage{
		Seats:     seats,
		OwnerSeat: state.OwnerSeat,
		InGame:    state.InGame,
		Tick:      state.Tick,
	})
	if err != nil {
		logger.Error("Failed to marshal match state: %v", err)
		return
	}
	if err := dispatcher.BroadcastMessage(OpMatchState, bytes, nil, nil, true); err != nil {
		logger.Error("Failed to broadcast match state: %v", err)
	}
}

// sendError sends an ErrorMessage to a specific user.
func (mh *matchHandler) sendError(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, userID string, code int, message string) {
	bytes, err := json.Marshal(ErrorMessage{Code: code, Message: message})
	if err != nil {
		logger.Error("Failed to marshal ErrorMessage: %v", err)
		return
	}

	presence, ok := state.Presences[userID]
	if !ok {
		logger.Warn("Cannot send error to %s: Presence not found", userID)
		return
	}

	if err := dispatcher.BroadcastMessage(OpGameError, bytes, []runtime.Presence{presence}, nil, true); err != nil {
		logger.Error("Failed to send error to %s: %v", userID, err)
	}
}

// buildLabel encodes the match label queried by quick_match.
func buildLabel(state *MatchState) (string, error) {
	phase := "lobby"
	if state.InGame {
		phase = "playing"
	}
	openSeats := state.GetOpenSeatsCount()
	label, err := structpb.NewStruct(map[string]interface{}{
		MatchLabelKey_Game:      GameLabel,
		MatchLabelKey_Phase:     phase,
		MatchLabelKey_Open:      !state.InGame && openSeats > 0,
		MatchLabelKey_OpenSeats: openSeats,
	})
	if err != nil {
		return "", err
	}
	bytes, err := protojson.Marshal(label)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

func (mh *matchHandler) updateLabel(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	label, err := buildLabel(state)
	if err != nil {
		logger.Error("UpdateLabel: Failed to marshal: %v", err)
		return
	}
	if err := dispatcher.MatchLabelUpdate(label); err != nil {
		logger.Error("UpdateLabel: Failed to update: %v", err)
	}
}

func (mh *matchHandler) MatchTerminate(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, reason int) interface{} {
	logger.Debug("MatchTerminate: Match terminated for reason %d", reason)
	if matchState, ok := state.(*MatchState); ok && matchState.Engine != nil {
		matchState.Engine.CancelPending()
	}
	return state
}

func (mh *matchHandler) MatchSignal(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, data string) (interface{}, string) {
	return state, ""
}
