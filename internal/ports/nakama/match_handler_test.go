package nakama

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"snakesladders/internal/authority"
	"snakesladders/internal/bot"
	"snakesladders/internal/config"
	"snakesladders/internal/domain"
	"snakesladders/internal/events"
	"snakesladders/internal/ports"
	"snakesladders/internal/wire"

	"github.com/heroiclabs/nakama-common/runtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
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
	recipients []string
}

// mockDispatcher records match dispatcher calls for assertions.
type mockDispatcher struct {
	messages []sentMessage
	labels   []string
	kicked   []string
}

func (md *mockDispatcher) BroadcastMessage(opCode int64, data []byte, presences []runtime.Presence, sender runtime.Presence, reliable bool) error {
	msg := sentMessage{opCode: opCode, data: append([]byte(nil), data...)}
	for _, p := range presences {
		msg.recipients = append(msg.recipients, p.GetUserId())
	}
	md.messages = append(md.messages, msg)
	return nil
}

func (md *mockDispatcher) BroadcastMessageDeferred(opCode int64, data []byte, presences []runtime.Presence, sender runtime.Presence, reliable bool) error {
	return nil
}

func (md *mockDispatcher) MatchKick(presences []runtime.Presence) error {
	for _, p := range presences {
		md.kicked = append(md.kicked, p.GetUserId())
	}
	return nil
}

func (md *mockDispatcher) MatchLabelUpdate(label string) error {
	md.labels = append(md.labels, label)
	return nil
}

// decoded returns every non-error message as an event, in send order.
func (md *mockDispatcher) decoded(t *testing.T) []events.Event {
	t.Helper()
	var out []events.Event
	for _, m := range md.messages {
		if m.opCode == wire.OpError {
			continue
		}
		ev, err := wire.DecodeEvent(m.opCode, m.data)
		require.NoError(t, err)
		out = append(out, ev)
	}
	return out
}

func (md *mockDispatcher) reset() { md.messages = nil }

// testPresence overrides the fields the handler reads; other methods are unused.
type testPresence struct {
	runtime.Presence
	userID string
}

func (p testPresence) GetUserId() string   { return p.userID }
func (p testPresence) GetUsername() string { return p.userID + "-name" }

type testMatchData struct {
	runtime.MatchData
	userID string
	opCode int64
	data   []byte
}

func (m testMatchData) GetUserId() string { return m.userID }
func (m testMatchData) GetOpCode() int64  { return m.opCode }
func (m testMatchData) GetData() []byte   { return m.data }

func request(t *testing.T, userID string, r wire.Request) runtime.MatchData {
	t.Helper()
	op, data, err := wire.EncodeRequest(r)
	require.NoError(t, err)
	return testMatchData{userID: userID, opCode: op, data: data}
}

type fakeResults struct {
	results []ports.GameResult
	err     error
}

func (f *fakeResults) RecordResult(ctx context.Context, result ports.GameResult) error {
	f.results = append(f.results, result)
	return f.err
}

func (f *fakeResults) GetRecord(ctx context.Context, userID string) (ports.Record, error) {
	return ports.Record{}, f.err
}

func envContext(env map[string]string) context.Context {
	ctx := context.WithValue(context.Background(), runtime.RUNTIME_CTX_ENV, env)
	return context.WithValue(ctx, runtime.RUNTIME_CTX_MATCH_ID, "match-1")
}

// writeBoard stores a small board so tests can finish a game in one roll.
func writeBoard(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "board.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

type harness struct {
	t          *testing.T
	ctx        context.Context
	handler    *matchHandler
	state      *MatchState
	dispatcher *mockDispatcher
	results    *fakeResults
	tick       int64
}

func newHarness(t *testing.T, env map[string]string) *harness {
	t.Helper()
	h := &harness{
		t:          t,
		ctx:        envContext(env),
		handler:    newMatchHandler(bot.DefaultPool()),
		dispatcher: &mockDispatcher{},
		results:    &fakeResults{},
	}
	state, rate, label := h.handler.MatchInit(h.ctx, noopLogger{}, nil, nil, nil)
	require.NotNil(t, state)
	assert.Equal(t, TickRate, rate)
	assert.NotEmpty(t, label)
	h.state = state.(*MatchState)
	h.state.Results = h.results
	t.Cleanup(func() { h.state.Session.Close() })
	return h
}

func (h *harness) join(ids ...string) {
	presences := make([]runtime.Presence, 0, len(ids))
	for _, id := range ids {
		presences = append(presences, testPresence{userID: id})
	}
	h.handler.MatchJoin(h.ctx, noopLogger{}, nil, nil, h.dispatcher, h.tick, h.state, presences)
}

func (h *harness) loop(messages ...runtime.MatchData) interface{} {
	h.tick++
	return h.handler.MatchLoop(h.ctx, noopLogger{}, nil, nil, h.dispatcher, h.tick, h.state, messages)
}

func TestMatchInit_Label(t *testing.T) {
	h := newHarness(t, map[string]string{})
	label, err := wire.ParseLabel(h.state.label)
	require.NoError(t, err)
	assert.Equal(t, wire.Label{Open: true, Game: wire.GameName, Phase: string(domain.PhaseLobby), Players: 0, OpenSeats: domain.MaxPlayers}, label)
}

func TestMatchInit_InvalidConfigAbortsMatch(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "zero die faces", env: map[string]string{config.EnvDieFaces: "0"}},
		{name: "unparseable", env: map[string]string{config.EnvAutoStart: "sometimes"}},
		{name: "missing board file", env: map[string]string{config.EnvBoardPath: "/does/not/exist.json"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state, _, _ := newMatchHandler(nil).MatchInit(envContext(tt.env), noopLogger{}, nil, nil, nil)
			assert.Nil(t, state)
		})
	}
}

func TestMatchInit_RejectsManualCompletion(t *testing.T) {
	board := writeBoard(t, `{"manual_completion":true}`)

	for name, env := range map[string]map[string]string{
		"board file": {config.EnvBoardPath: board},
		"env":        {config.EnvManualCompletion: "true"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := loadGameConfig(env)
			assert.ErrorIs(t, err, config.ErrInvalidConfig)

			state, _, _ := newMatchHandler(nil).MatchInit(envContext(env), noopLogger{}, nil, nil, nil)
			assert.Nil(t, state)
		})
	}
}

func TestMatchJoin_IndexAssignedOnlyToJoiner(t *testing.T) {
	h := newHarness(t, map[string]string{config.EnvBotAutoFillDelay: "0"})
	h.join("alice")
	h.dispatcher.reset()
	h.join("bob")

	var targeted, broadcast []sentMessage
	for _, m := range h.dispatcher.messages {
		if len(m.recipients) > 0 {
			targeted = append(targeted, m)
		} else {
			broadcast = append(broadcast, m)
		}
	}

	require.NotEmpty(t, targeted)
	for _, m := range targeted {
		assert.Equal(t, []string{"bob"}, m.recipients)
	}
	assert.Equal(t, wire.OpIndexAssigned, targeted[0].opCode)
	ev, err := wire.DecodeEvent(targeted[0].opCode, targeted[0].data)
	require.NoError(t, err)
	assert.Equal(t, events.IndexAssigned{PlayerIndex: 1}, ev)

	require.Len(t, broadcast, 1)
	ev, err = wire.DecodeEvent(broadcast[0].opCode, broadcast[0].data)
	require.NoError(t, err)
	assert.Equal(t, events.PlayerJoined{PlayerIndex: 1, PlayerName: "bob-name", Color: domain.Palette[1]}, ev)

	label, err := wire.ParseLabel(h.dispatcher.labels[len(h.dispatcher.labels)-1])
	require.NoError(t, err)
	assert.Equal(t, 2, label.Players)
}

func TestMatchJoinAttempt(t *testing.T) {
	h := newHarness(t, map[string]string{config.EnvBotAutoFillDelay: "0", config.EnvMaxParticipants: "2"})
	_, ok, _ := h.handler.MatchJoinAttempt(h.ctx, noopLogger{}, nil, nil, h.dispatcher, 0, h.state, testPresence{userID: "alice"}, nil)
	assert.True(t, ok)
	h.join("alice", "bob")

	_, ok, reason := h.handler.MatchJoinAttempt(h.ctx, noopLogger{}, nil, nil, h.dispatcher, 0, h.state, testPresence{userID: "alice"}, nil)
	assert.False(t, ok)
	assert.Equal(t, "already joined", reason)

	_, ok, reason = h.handler.MatchJoinAttempt(h.ctx, noopLogger{}, nil, nil, h.dispatcher, 0, h.state, testPresence{userID: "carol"}, nil)
	assert.False(t, ok)
	assert.Equal(t, "Match full", reason)
}

func TestMatchJoin_OverCapacityIsKicked(t *testing.T) {
	h := newHarness(t, map[string]string{config.EnvBotAutoFillDelay: "0", config.EnvMaxParticipants: "2"})
	h.join("alice", "bob", "carol")

	assert.Equal(t, []string{"carol"}, h.dispatcher.kicked)
	_, present := h.state.Presences["carol"]
	assert.False(t, present)
	assert.Equal(t, 2, h.state.Session.Count())
}

func TestMatchLoop_RollGating(t *testing.T) {
	h := newHarness(t, map[string]string{config.EnvBotAutoFillDelay: "0"})
	h.join("alice", "bob")
	h.loop(
		request(t, "alice", wire.ReadyRequest(true)),
		request(t, "bob", wire.ReadyRequest(true)),
	)
	require.Equal(t, domain.PhasePlaying, h.state.Session.Phase())
	assert.Contains(t, h.dispatcher.decoded(t), events.Event(events.GameStarted{PlayerCount: 2, FirstPlayerIndex: 0}))

	h.dispatcher.reset()
	h.loop(request(t, "bob", wire.RollRequest(0)))
	require.Len(t, h.dispatcher.messages, 1)
	errMsg := h.dispatcher.messages[0]
	assert.Equal(t, wire.OpError, errMsg.opCode)
	assert.Equal(t, []string{"bob"}, errMsg.recipients)
	code, _, err := wire.DecodeError(errMsg.data)
	require.NoError(t, err)
	assert.Equal(t, authority.CodeForbidden, code)

	h.dispatcher.reset()
	h.loop(request(t, "alice", wire.RollRequest(0)))
	got := h.dispatcher.decoded(t)
	require.NotEmpty(t, got)
	assert.Equal(t, events.KindDiceRolled, got[0].Kind())
	for _, m := range h.dispatcher.messages {
		assert.Empty(t, m.recipients, "relayed events go to everyone")
	}
	assert.Equal(t, events.TurnEnded{PlayerIndex: 1}, got[len(got)-1])
}

func TestMatchLoop_MalformedMessage(t *testing.T) {
	h := newHarness(t, map[string]string{config.EnvBotAutoFillDelay: "0"})
	h.join("alice")
	h.dispatcher.reset()

	h.loop(testMatchData{userID: "alice", opCode: 77, data: []byte("junk")})

	require.Len(t, h.dispatcher.messages, 1)
	assert.Equal(t, wire.OpError, h.dispatcher.messages[0].opCode)
	code, _, err := wire.DecodeError(h.dispatcher.messages[0].data)
	require.NoError(t, err)
	assert.Equal(t, authority.CodeBadRequest, code)
}

func TestMatchLoop_GameOverRecordsResult(t *testing.T) {
	board := writeBoard(t, `{"winning_tile": 3, "jumps": [], "allow_forced_rolls": true}`)
	h := newHarness(t, map[string]string{config.EnvBoardPath: board, config.EnvBotAutoFillDelay: "0"})
	h.join("alice", "bob")
	h.loop(
		request(t, "alice", wire.ReadyRequest(true)),
		request(t, "bob", wire.ReadyRequest(true)),
	)
	h.loop(request(t, "alice", wire.RollRequest(2)))

	require.Equal(t, domain.PhaseEnded, h.state.Session.Phase())
	require.Len(t, h.results.results, 1)
	assert.Equal(t, ports.GameResult{
		MatchID:       "match-1",
		WinnerUserID:  "alice",
		PlayerUserIDs: []string{"alice", "bob"},
	}, h.results.results[0])

	got := h.dispatcher.decoded(t)
	assert.Equal(t, events.GameOver{WinnerIndex: 0, WinnerName: "alice-name"}, got[len(got)-1])

	// A late joiner is shown the result without recording it again.
	h.dispatcher.reset()
	h.join("carol")
	assert.Len(t, h.results.results, 1)
	assert.Contains(t, h.dispatcher.decoded(t), events.Event(events.GameOver{WinnerIndex: 0, WinnerName: "alice-name"}))
}

func TestMatchLoop_ResultFailureIsNotFatal(t *testing.T) {
	board := writeBoard(t, `{"winning_tile": 3, "jumps": [], "allow_forced_rolls": true}`)
	h := newHarness(t, map[string]string{config.EnvBoardPath: board, config.EnvBotAutoFillDelay: "0"})
	h.results.err = errors.New("wallet down")
	h.join("alice", "bob")
	h.loop(
		request(t, "alice", wire.ReadyRequest(true)),
		request(t, "bob", wire.ReadyRequest(true)),
	)
	next := h.loop(request(t, "alice", wire.RollRequest(2)))

	assert.NotNil(t, next)
	assert.Equal(t, domain.PhaseEnded, h.state.Session.Phase())
}

func TestMatchLoop_AutoFillAddsBots(t *testing.T) {
	h := newHarness(t, map[string]string{config.EnvBotAutoFillDelay: "1"})
	h.join("alice")
	h.dispatcher.reset()

	for i := 0; i <= TickRate+1; i++ {
		h.loop()
	}

	assert.Equal(t, 2, h.state.Session.Count())
	var joined []events.PlayerJoined
	for _, ev := range h.dispatcher.decoded(t) {
		if pj, ok := ev.(events.PlayerJoined); ok {
			joined = append(joined, pj)
		}
	}
	require.Len(t, joined, 1)
	assert.True(t, joined[0].IsAI)
	assert.Equal(t, bot.DefaultPool().Identity(0).Name(), joined[0].PlayerName)
}

func TestBroadcastEvent_TargetedToAbsentRecipientIsDropped(t *testing.T) {
	h := newHarness(t, map[string]string{})
	h.handler.broadcastEvent(h.state, h.dispatcher, noopLogger{}, authority.Outbound{Event: events.IndexAssigned{PlayerIndex: 3}, Recipients: []string{"bot-ada"}})
	assert.Empty(t, h.dispatcher.messages)
}

func TestMatchLeave_TerminatesWithoutHumans(t *testing.T) {
	h := newHarness(t, map[string]string{config.EnvBotAutoFillDelay: "0"})
	h.join("alice", "bob")
	_, err := h.state.Session.AddBot()
	require.NoError(t, err)

	next := h.handler.MatchLeave(h.ctx, noopLogger{}, nil, nil, h.dispatcher, h.tick, h.state, []runtime.Presence{testPresence{userID: "alice"}})
	require.NotNil(t, next)
	assert.Equal(t, "bob", h.state.Session.Owner())

	next = h.handler.MatchLeave(h.ctx, noopLogger{}, nil, nil, h.dispatcher, h.tick, h.state, []runtime.Presence{testPresence{userID: "bob"}})
	assert.Nil(t, next)
}

func TestMatchSignal_Phase(t *testing.T) {
	h := newHarness(t, map[string]string{})
	_, reply := h.handler.MatchSignal(h.ctx, noopLogger{}, nil, nil, h.dispatcher, 0, h.state, "phase")
	assert.Equal(t, string(domain.PhaseLobby), reply)
	_, reply = h.handler.MatchSignal(h.ctx, noopLogger{}, nil, nil, h.dispatcher, 0, h.state, "other")
	assert.Empty(t, reply)
}
