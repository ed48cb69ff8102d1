package nakama

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"jamb/internal/bot"
	"jamb/internal/config"
	"jamb/internal/domain"
	"jamb/internal/ports"

	"github.com/heroiclabs/nakama-common/runtime"
)

// noopLogger implements runtime.Logger for tests that only need to satisfy the interface.
type noopLogger struct{}

func (noopLogger) Debug(string, ...interface{}) {}
func (noopLogger) Info(string, ...interface{})  {}
func (noopLogger) Warn(string, ...interface{})  {}
func (noopLogger) Error(string, ...interface{}) {}
func (noopLogger) WithField(string, interface{}) runtime.Logger {
	return noopLogger{}
}
func (noopLogger) WithFields(map[string]interface{}) runtime.Logger {
	return noopLogger{}
}
func (noopLogger) Fields() map[string]interface{} {
	return nil
}

type sentMessage struct {
	opCode     int64
	data       []byte
	recipients []runtime.Presence
}

// mockDispatcher records match dispatcher calls for assertions.
type mockDispatcher struct {
	messages     []sentMessage
	labelUpdates int
	lastLabel    string
}

func (md *mockDispatcher) BroadcastMessage(opCode int64, data []byte, presences []runtime.Presence, sender runtime.Presence, reliable bool) error {
	md.messages = append(md.messages, sentMessage{opCode: opCode, data: append([]byte(nil), data...), recipients: presences})
	return nil
}

func (md *mockDispatcher) BroadcastMessageDeferred(opCode int64, data []byte, presences []runtime.Presence, sender runtime.Presence, reliable bool) error {
	return nil
}

func (md *mockDispatcher) MatchKick(presences []runtime.Presence) error {
	return nil
}

func (md *mockDispatcher) MatchLabelUpdate(label string) error {
	md.labelUpdates++
	md.lastLabel = label
	return nil
}

// last returns the most recent message with opCode.
func (md *mockDispatcher) last(t *testing.T, opCode int64) sentMessage {
	t.Helper()
	for i := len(md.messages) - 1; i >= 0; i-- {
		if md.messages[i].opCode == opCode {
			return md.messages[i]
		}
	}
	t.Fatalf("no message with opcode %d", opCode)
	return sentMessage{}
}

func (md *mockDispatcher) count(opCode int64) int {
	n := 0
	for _, m := range md.messages {
		if m.opCode == opCode {
			n++
		}
	}
	return n
}

type fakePresence struct {
	userID   string
	username string
}

func (p fakePresence) GetUserId() string { return p.userID }
func (p fakePresence) GetSessionId() string { return "session-" + p.userID }
func (p fakePresence) GetNodeId() string { return "node" }
func (p fakePresence) GetHidden() bool { return false }
func (p fakePresence) GetPersistence() bool { return false }
func (p fakePresence) GetUsername() string { return p.username }
func (p fakePresence) GetStatus() string { return "" }
func (p fakePresence) GetReason() runtime.PresenceReason { return runtime.PresenceReasonUnknown }

type fakeMatchData struct {
	fakePresence
	opCode int64
	data   []byte
}

func (m fakeMatchData) GetOpCode() int64 { return m.opCode }
func (m fakeMatchData) GetData() []byte { return m.data }
func (m fakeMatchData) GetReliable() bool { return true }
func (m fakeMatchData) GetReceiveTime() int64 { return 0 }

type faceRand struct {
	faces []int
	next  int
}

func (r *faceRand) Intn(n int) int {
	face := r.faces[r.next%len(r.faces)]
	r.next++
	return face - 1
}

type manualClock struct {
	now time.Time
}

func (c *manualClock) Now() time.Time { return c.now }

type fakeHistory struct {
	saved []ports.GameRecord
}

func (f *fakeHistory) SaveGame(ctx context.Context, record ports.GameRecord) error {
	f.saved = append(f.saved, record)
	return nil
}

func (f *fakeHistory) ListGames(ctx context.Context, userID string, limit int) ([]ports.GameRecord, error) {
	return f.saved, nil
}

type testMatch struct {
	t          *testing.T
	handler    *matchHandler
	state      *MatchState
	dispatcher *mockDispatcher
	clock      *manualClock
	history    *fakeHistory
}

func newTestMatch(t *testing.T, env config.RuntimeEnv, faces ...int) *testMatch {
	t.Helper()
	if len(faces) == 0 {
		faces = []int{1, 2, 3, 4, 5, 6}
	}
	if env.TransitionDelay == 0 {
		env.TransitionDelay = time.Second
	}
	hist := &fakeHistory{}
	handler := newMatchHandler(env, hist)
	clock := &manualClock{now: time.Date(2026, time.October, 19, 20, 0, 0, 0, time.UTC)}
	handler.rng = &faceRand{faces: faces}
	handler.clock = clock

	state, tickRate, label := handler.MatchInit(context.Background(), noopLogger{}, nil, nil, nil)
	if state == nil || tickRate <= 0 || label == "" {
		t.Fatalf("MatchInit returned state=%v tickRate=%d label=%q", state, tickRate, label)
	}
	return &testMatch{
		t:          t,
		handler:    handler,
		state:      state.(*MatchState),
		dispatcher: &mockDispatcher{},
		clock:      clock,
		history:    hist,
	}
}

func (tm *testMatch) join(userIDs ...string) {
	var presences []runtime.Presence
	for _, id := range userIDs {
		presences = append(presences, fakePresence{userID: id, username: "name-" + id})
	}
	tm.handler.MatchJoin(context.Background(), noopLogger{}, nil, nil, tm.dispatcher, tm.state.Tick, tm.state, presences)
}

// loop runs one MatchLoop tick with the given messages.
func (tm *testMatch) loop(messages ...runtime.MatchData) interface{} {
	tm.state.Tick++
	return tm.handler.MatchLoop(context.Background(), noopLogger{}, nil, nil, tm.dispatcher, tm.state.Tick, tm.state, messages)
}

func (tm *testMatch) send(userID string, opCode int64, payload any) {
	var data []byte
	if payload != nil {
		var err error
		if data, err = json.Marshal(payload); err != nil {
			tm.t.Fatalf("marshal payload: %v", err)
		}
	}
	tm.loop(fakeMatchData{fakePresence: fakePresence{userID: userID}, opCode: opCode, data: data})
}

func (tm *testMatch) wait(d time.Duration) {
	tm.clock.now = tm.clock.now.Add(d)
	tm.loop()
}

func decodeEvent(t *testing.T, m sentMessage) EventMessage {
	t.Helper()
	var ev struct {
		Event string          `json:"event"`
		Data  json.RawMessage `json:"data"`
		State GameSnapshot    `json:"state"`
	}
	if err := json.Unmarshal(m.data, &ev); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	return EventMessage{State: ev.State, Data: ev.Data}
}

func decodeError(t *testing.T, m sentMessage) ErrorMessage {
	t.Helper()
	var e ErrorMessage
	if err := json.Unmarshal(m.data, &e); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	return e
}

func TestFindFirstHumanSeat(t *testing.T) {
	bot1 := bot.GetBotIdentity(0).UserID
	bot2 := bot.GetBotIdentity(1).UserID

	tests := []struct {
		name  string
		seats []string
		want  int
	}{
		{name: "FirstHumanAfterBot", seats: []string{bot1, "user-1", "", ""}, want: 1},
		{name: "AllBots", seats: []string{bot1, bot2, "", ""}, want: -1},
		{name: "AllEmpty", seats: []string{"", "", "", ""}, want: -1},
		{name: "FirstHumanIsSeatZero", seats: []string{"user-1", bot1, "user-2", ""}, want: 0},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := findFirstHumanSeat(test.seats); got != test.want {
				t.Fatalf("findFirstHumanSeat() = %d, want %d", got, test.want)
			}
			if got := shouldTerminateNoHumans(test.seats); got != (test.want == -1) {
				t.Fatalf("shouldTerminateNoHumans() = %t, want %t", got, test.want == -1)
			}
		})
	}
}

func TestMatchLabel(t *testing.T) {
	state := &MatchState{Seats: [domain.MaxPlayers]string{"user-1"}}

	label, err := buildLabel(state)
	if err != nil {
		t.Fatalf("buildLabel failed: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal([]byte(label), &decoded); err != nil {
		t.Fatalf("label is not JSON: %v", err)
	}
	if decoded["game"] != GameLabel || decoded["phase"] != "lobby" || decoded["open"] != true || decoded["open_seats"] != float64(5) {
		t.Fatalf("unexpected lobby label: %s", label)
	}

	state.InGame = true
	label, _ = buildLabel(state)
	decoded = nil
	if err := json.Unmarshal([]byte(label), &decoded); err != nil {
		t.Fatalf("label is not JSON: %v", err)
	}
	if decoded["phase"] != "playing" || decoded["open"] != false {
		t.Fatalf("unexpected playing label: %s", label)
	}
}

func TestMatchJoin_AssignsSeatsAndOwner(t *testing.T) {
	tm := newTestMatch(t, config.RuntimeEnv{})
	tm.join("user-1", "user-2")

	if tm.state.Seats[0] != "user-1" || tm.state.Seats[1] != "user-2" {
		t.Fatalf("seats = %v", tm.state.Seats)
	}
	if tm.state.OwnerSeat != 0 {
		t.Fatalf("OwnerSeat = %d, want 0", tm.state.OwnerSeat)
	}
	if tm.dispatcher.labelUpdates == 0 || tm.dispatcher.count(OpMatchState) == 0 {
		t.Fatal("Expected label update and match state broadcast after join")
	}

	_, ok, reason := tm.handler.MatchJoinAttempt(context.Background(), noopLogger{}, nil, nil, tm.dispatcher, 0, tm.state, fakePresence{userID: "user-3"}, nil)
	if !ok {
		t.Fatalf("join attempt rejected in lobby: %s", reason)
	}
}

func TestStartGame_OwnerOnly(t *testing.T) {
	tm := newTestMatch(t, config.RuntimeEnv{})
	tm.join("user-1", "user-2")

	tm.send("user-2", OpStartGame, nil)
	if tm.state.InGame {
		t.Fatal("non-owner started the game")
	}
	if e := decodeError(t, tm.dispatcher.last(t, OpGameError)); e.Code != ErrCodeForbidden {
		t.Fatalf("error code = %d, want %d", e.Code, ErrCodeForbidden)
	}

	tm.send("user-1", OpStartGame, nil)
	if !tm.state.InGame {
		t.Fatal("owner could not start the game")
	}
	ev := decodeEvent(t, tm.dispatcher.last(t, OpGameStarted))
	if len(ev.State.Players) != 2 || ev.State.Players[0].UserID != "user-1" || ev.State.Players[1].Name != "name-user-2" {
		t.Fatalf("unexpected players: %+v", ev.State.Players)
	}
	if !strings.Contains(tm.dispatcher.lastLabel, "playing") {
		t.Fatalf("label not updated: %s", tm.dispatcher.lastLabel)
	}

	_, ok, _ := tm.handler.MatchJoinAttempt(context.Background(), noopLogger{}, nil, nil, tm.dispatcher, 0, tm.state, fakePresence{userID: "user-3"}, nil)
	if ok {
		t.Fatal("join allowed mid-game")
	}
}

func TestSetName(t *testing.T) {
	tm := newTestMatch(t, config.RuntimeEnv{})
	tm.join("user-1")

	tm.send("user-1", OpSetName, SetNameRequest{Name: "  Mira  "})
	if tm.state.displayName("user-1") != "Mira" {
		t.Fatalf("displayName = %q, want Mira", tm.state.displayName("user-1"))
	}

	tm.send("user-1", OpSetName, SetNameRequest{Name: strings.Repeat("x", maxNameLength+1)})
	if e := decodeError(t, tm.dispatcher.last(t, OpGameError)); e.Code != ErrCodeBadRequest {
		t.Fatalf("error code = %d, want %d", e.Code, ErrCodeBadRequest)
	}

	tm.send("user-1", OpStartGame, nil)
	tm.send("user-1", OpSetName, SetNameRequest{Name: "Other"})
	if e := decodeError(t, tm.dispatcher.last(t, OpGameError)); e.Code != ErrCodeConflict {
		t.Fatalf("error code = %d, want %d", e.Code, ErrCodeConflict)
	}
	if tm.state.Engine.CurrentState().Players[0].Name != "Mira" {
		t.Fatal("engine player name not taken from lobby name")
	}
}

func TestTurnEnforcement(t *testing.T) {
	tm := newTestMatch(t, config.RuntimeEnv{})
	tm.join("user-1", "user-2")
	tm.send("user-1", OpStartGame, nil)

	tm.send("user-2", OpRollDice, nil)
	e := decodeError(t, tm.dispatcher.last(t, OpGameError))
	if e.Code != ErrCodeForbidden {
		t.Fatalf("error code = %d, want %d", e.Code, ErrCodeForbidden)
	}
	if recipients := tm.dispatcher.last(t, OpGameError).recipients; len(recipients) != 1 || recipients[0].GetUserId() != "user-2" {
		t.Fatal("error not sent privately to the offender")
	}
	if tm.dispatcher.count(OpDiceRolled) != 0 {
		t.Fatal("out-of-turn roll was applied")
	}

	tm.send("user-1", OpRollDice, nil)
	ev := decodeEvent(t, tm.dispatcher.last(t, OpDiceRolled))
	if ev.State.RollsLeft != 2 || ev.State.Phase != domain.PhaseMidTurn {
		t.Fatalf("unexpected state after roll: %+v", ev.State)
	}
}

func TestRejectedActionReportsError(t *testing.T) {
	tm := newTestMatch(t, config.RuntimeEnv{})
	tm.join("user-1")
	tm.send("user-1", OpStartGame, nil)

	tm.send("user-1", OpToggleLock, map[string]int{"index": 0})
	e := decodeError(t, tm.dispatcher.last(t, OpGameError))
	if e.Code != ErrCodeBadRequest || !strings.Contains(e.Message, "not rolled") {
		t.Fatalf("unexpected error: %+v", e)
	}

	tm.send("user-1", OpRollDice, nil)
	before := tm.state.Engine.CurrentState().Dice.LockedCount()
	tm.send("user-1", OpToggleLock, map[string]string{})
	if e := decodeError(t, tm.dispatcher.last(t, OpGameError)); e.Code != ErrCodeBadRequest {
		t.Fatalf("missing index code = %d, want %d", e.Code, ErrCodeBadRequest)
	}
	if tm.state.Engine.CurrentState().Dice.LockedCount() != before || tm.dispatcher.count(OpDieLockToggled) != 0 {
		t.Fatal("toggle without index changed a die")
	}

	tm.send("user-1", OpScoreCategory, map[string]string{"category": "jackpot"})
	if e := decodeError(t, tm.dispatcher.last(t, OpGameError)); e.Code != ErrCodeBadRequest {
		t.Fatalf("error code = %d, want %d", e.Code, ErrCodeBadRequest)
	}
}

func TestFullHouseTurnAdvancesAfterDelay(t *testing.T) {
	tm := newTestMatch(t, config.RuntimeEnv{}, 3, 3, 3, 5, 5, 2)
	tm.join("user-1", "user-2")
	tm.send("user-1", OpStartGame, nil)

	tm.send("user-1", OpRollDice, nil)
	for i := 0; i < domain.MaxLocked; i++ {
		tm.send("user-1", OpToggleLock, map[string]int{"index": i})
	}
	tm.send("user-1", OpScoreCategory, ScoreCategoryRequest{Category: domain.FullHouse})

	ev := decodeEvent(t, tm.dispatcher.last(t, OpCategoryScored))
	if got := ev.State.Players[0].Scores["full_house"]; got != 55 {
		t.Fatalf("full_house = %d, want 55", got)
	}
	if ev.State.Phase != domain.PhaseTurnPending {
		t.Fatalf("phase = %s, want %s", ev.State.Phase, domain.PhaseTurnPending)
	}

	tm.send("user-1", OpRollDice, nil)
	if e := decodeError(t, tm.dispatcher.last(t, OpGameError)); e.Code != ErrCodeConflict {
		t.Fatalf("roll during transition code = %d, want %d", e.Code, ErrCodeConflict)
	}

	tm.wait(500 * time.Millisecond)
	if tm.dispatcher.count(OpTurnAdvanced) != 0 {
		t.Fatal("turn advanced before the delay")
	}
	tm.wait(500 * time.Millisecond)
	ev = decodeEvent(t, tm.dispatcher.last(t, OpTurnAdvanced))
	if ev.State.CurrentPlayerID != 2 || ev.State.Round != 1 || ev.State.RollsLeft != domain.MaxRolls {
		t.Fatalf("unexpected state after advance: %+v", ev.State)
	}
}

func TestGameFinished_SavesHistoryAndReturnsToLobby(t *testing.T) {
	tm := newTestMatch(t, config.RuntimeEnv{}, 6)
	tm.join("user-1")
	tm.send("user-1", OpStartGame, nil)

	for _, c := range domain.Categories() {
		tm.send("user-1", OpRollDice, nil)
		tm.send("user-1", OpToggleLock, map[string]int{"index": 0})
		tm.send("user-1", OpScoreCategory, ScoreCategoryRequest{Category: c})
		tm.wait(time.Second)
	}

	if tm.dispatcher.count(OpGameFinished) != 1 {
		t.Fatalf("game_finished broadcasts = %d, want 1", tm.dispatcher.count(OpGameFinished))
	}
	if tm.state.InGame {
		t.Fatal("match did not return to lobby")
	}
	if len(tm.history.saved) != 1 {
		t.Fatalf("saved records = %d, want 1", len(tm.history.saved))
	}
	record := tm.history.saved[0]
	if len(record.UserIDs) != 1 || record.UserIDs[0] != "user-1" || !record.Players[0].IsWinner {
		t.Fatalf("unexpected record: %+v", record)
	}
	// sixes and chance with a single six held.
	if record.Players[0].TotalScore != 12 {
		t.Fatalf("total = %d, want 12", record.Players[0].TotalScore)
	}
	if !strings.Contains(tm.dispatcher.lastLabel, "lobby") {
		t.Fatalf("label not reset: %s", tm.dispatcher.lastLabel)
	}
}

func TestProcessBots_AddsBotForSoloHuman(t *testing.T) {
	tm := newTestMatch(t, config.RuntimeEnv{BotsEnabled: true, BotAutoFillDelaySec: 1})
	tm.join("user-1")

	for i := 0; i <= tm.state.TickRate; i++ {
		tm.loop()
	}

	botCount := 0
	for _, seat := range tm.state.Seats {
		if isBotUserId(seat) {
			botCount++
		}
	}
	if botCount != 1 {
		t.Fatalf("Expected 1 bot, got %d", botCount)
	}
	if tm.state.LastSinglePlayerTick != 0 {
		t.Fatalf("Expected auto-fill timer reset, got %d", tm.state.LastSinglePlayerTick)
	}

	// A second human replaces nobody; the lobby keeps one bot.
	tm.join("user-2")
	if tm.state.GetHumanPlayerCount() != 2 || tm.state.GetOccupiedSeatCount() != 3 {
		t.Fatalf("seats = %v", tm.state.Seats)
	}
}

func TestBotPlaysItsTurn(t *testing.T) {
	tm := newTestMatch(t, config.RuntimeEnv{BotsEnabled: true})
	tm.join("user-1")
	if !tm.handler.seatBot(tm.state, noopLogger{}, 1, 0) {
		t.Fatal("seatBot failed")
	}
	tm.send("user-1", OpStartGame, nil)

	tm.send("user-1", OpRollDice, nil)
	tm.send("user-1", OpScoreCategory, ScoreCategoryRequest{Category: domain.Chance})

	for i := 0; i < 200; i++ {
		tm.wait(time.Second)
		gs := tm.state.Engine.CurrentState()
		if current, _ := gs.CurrentPlayer(); current.ID == 1 && gs.CurrentRound == 2 {
			break
		}
	}

	gs := tm.state.Engine.CurrentState()
	if current, _ := gs.CurrentPlayer(); current.ID != 1 || gs.CurrentRound != 2 {
		t.Fatalf("bot did not finish its turn: player=%d round=%d", current.ID, gs.CurrentRound)
	}
	if len(gs.Sheets[2].Entries()) != 1 {
		t.Fatalf("bot scored %d categories, want 1", len(gs.Sheets[2].Entries()))
	}
}

func TestMatchLeave_MidGame(t *testing.T) {
	t.Run("BotTakesOver", func(t *testing.T) {
		tm := newTestMatch(t, config.RuntimeEnv{BotsEnabled: true})
		tm.join("user-1", "user-2")
		tm.send("user-1", OpStartGame, nil)

		result := tm.handler.MatchLeave(context.Background(), noopLogger{}, nil, nil, tm.dispatcher, tm.state.Tick, tm.state, []runtime.Presence{fakePresence{userID: "user-2"}})
		if result == nil {
			t.Fatal("match terminated with a human left")
		}
		if !tm.state.InGame {
			t.Fatal("game aborted although bots are enabled")
		}
		if !isBotUserId(tm.state.userForPlayer(2)) {
			t.Fatalf("player 2 seat = %q, want a bot", tm.state.userForPlayer(2))
		}
		if agent := tm.state.Bots[tm.state.userForPlayer(2)]; agent == nil || agent.PlayerID != 2 {
			t.Fatalf("bot agent not bound to player 2: %+v", agent)
		}
	})

	t.Run("AbortsWithoutBots", func(t *testing.T) {
		tm := newTestMatch(t, config.RuntimeEnv{})
		tm.join("user-1", "user-2")
		tm.send("user-1", OpStartGame, nil)

		tm.handler.MatchLeave(context.Background(), noopLogger{}, nil, nil, tm.dispatcher, tm.state.Tick, tm.state, []runtime.Presence{fakePresence{userID: "user-2"}})
		if tm.state.InGame {
			t.Fatal("game continued without a player")
		}
		if e := decodeError(t, tm.dispatcher.last(t, OpGameError)); e.Code != ErrCodeAborted {
			t.Fatalf("error code = %d, want %d", e.Code, ErrCodeAborted)
		}
		if len(tm.history.saved) != 0 {
			t.Fatal("aborted game was saved")
		}
	})

	t.Run("TerminatesWhenLastHumanLeaves", func(t *testing.T) {
		tm := newTestMatch(t, config.RuntimeEnv{})
		tm.join("user-1")
		result := tm.handler.MatchLeave(context.Background(), noopLogger{}, nil, nil, tm.dispatcher, tm.state.Tick, tm.state, []runtime.Presence{fakePresence{userID: "user-1"}})
		if result != nil {
			t.Fatal("Expected nil state to terminate the match")
		}
	})
}

func TestFallbackMoveIsLegal(t *testing.T) {
	state := domain.NewGameState([]domain.Player{{ID: 1}})
	if m := fallbackMove(state); m.Kind != bot.MoveRoll {
		t.Fatalf("fallback before roll = %+v, want roll", m)
	}
	state.RollsLeft = 1
	state.Sheets[1].Set(domain.Ones, 0)
	if m := fallbackMove(state); m.Kind != bot.MoveScore || m.Category != domain.Twos {
		t.Fatalf("fallback after roll = %+v, want score twos", m)
	}
}

func TestMatchJoinAttempt_RespectsMaxSeats(t *testing.T) {
	tm := newTestMatch(t, config.RuntimeEnv{})
	tm.state.MaxSeats = 2
	tm.join("user-1", "user-2")

	_, ok, reason := tm.handler.MatchJoinAttempt(context.Background(), noopLogger{}, nil, nil, tm.dispatcher, 0, tm.state, fakePresence{userID: "user-3"}, nil)
	if ok || reason != "Match full" {
		t.Fatalf("join attempt = %t %q, want rejected as full", ok, reason)
	}
	if label, _ := buildLabel(tm.state); strings.Contains(label, "true") {
		t.Fatalf("full table still advertised open: %s", label)
	}
}
