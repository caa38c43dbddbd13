package nakama

import (
	"context"
	"database/sql"
	"math/rand"
	"time"

	"snakesladders/internal/authority"
	"snakesladders/internal/bot"
	"snakesladders/internal/config"
	"snakesladders/internal/events"
	"snakesladders/internal/ports"
	"snakesladders/internal/wire"

	"github.com/heroiclabs/nakama-common/runtime"
)

// MatchState holds the authoritative runtime state for the Nakama match handler.
type MatchState struct {
	Session   *authority.Session
	Presences map[string]runtime.Presence // UserId -> Presence for targeted messaging
	Results   ports.ResultsPort
	MatchID   string
	Tick      int64
	StartedAt time.Time // wall time of tick 0; the session clock is derived from ticks
	label     string
}

// Now converts the current tick into the session clock.
func (ms *MatchState) Now() time.Time {
	return ms.StartedAt.Add(time.Duration(ms.Tick) * tickDuration)
}

type matchHandler struct {
	pool *bot.Pool
}

func newMatchHandler(pool *bot.Pool) *matchHandler {
	if pool == nil {
		pool = bot.DefaultPool()
	}
	return &matchHandler{pool: pool}
}

// loadGameConfig resolves the board file and env overrides from the runtime env.
func loadGameConfig(env map[string]string) (config.GameConfig, error) {
	cfg := config.Default()
	if path := env[config.EnvBoardPath]; path != "" {
		loaded, err := config.LoadGameConfig(path)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}
	if err := cfg.ApplyEnv(env); err != nil {
		return cfg, err
	}
	return cfg, cfg.ValidateNetworked()
}

// MatchInit is called when the match is created. A config error aborts the match.
func (mh *matchHandler) MatchInit(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, params map[string]interface{}) (interface{}, int, string) {
	logger.Debug("MatchInit: Initializing match handler.")

	env, _ := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string)
	cfg, err := loadGameConfig(env)
	if err != nil {
		logger.Error("MatchInit: Invalid game config: %v", err)
		return nil, 0, ""
	}

	matchID, _ := ctx.Value(runtime.RUNTIME_CTX_MATCH_ID).(string)
	session, err := authority.NewSession(cfg, mh.pool, rand.New(rand.NewSource(time.Now().UnixNano())), logger.WithField("match_id", matchID))
	if err != nil {
		logger.Error("MatchInit: Failed to create session: %v", err)
		return nil, 0, ""
	}

	state := &MatchState{
		Session:   session,
		Presences: make(map[string]runtime.Presence),
		MatchID:   matchID,
		StartedAt: time.Now(),
	}
	if nk != nil {
		state.Results = NewNakamaResultsAdapter(nk)
	}

	label, err := state.renderLabel()
	if err != nil {
		logger.Error("MatchInit: Failed to marshal label: %v", err)
		return nil, 0, ""
	}
	state.label = label

	return state, TickRate, label
}

func (mh *matchHandler) MatchJoinAttempt(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presence runtime.Presence, metadata map[string]string) (interface{}, bool, string) {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state, false, "state not found"
	}
	if _, exists := matchState.Session.Participant(presence.GetUserId()); exists {
		return state, false, "already joined"
	}
	if !matchState.Session.Open() {
		return state, false, "Match full"
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
		participant, err := matchState.Session.Join(p.GetUserId(), p.GetUsername())
		if err != nil {
			logger.Warn("MatchJoin: User %s could not be seated: %v", p.GetUserId(), err)
			delete(matchState.Presences, p.GetUserId())
			if err := dispatcher.MatchKick([]runtime.Presence{p}); err != nil {
				logger.Error("MatchJoin: Failed to kick %s: %v", p.GetUserId(), err)
			}
			continue
		}
		logger.Debug("MatchJoin: User %s seated at index %d.", p.GetUserId(), participant.Index)
	}

	mh.dispatch(ctx, matchState, dispatcher, logger)
	mh.updateLabel(matchState, dispatcher, logger)
	return matchState
}

// MatchLeave is called when one or more players leave the match.
func (mh *matchHandler) MatchLeave(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchLeave: state not found")
		return state
	}

	for _, p := range presences {
		delete(matchState.Presences, p.GetUserId())
		if err := matchState.Session.Leave(p.GetUserId()); err != nil {
			logger.Warn("MatchLeave: %s: %v", p.GetUserId(), err)
			continue
		}
		logger.Debug("MatchLeave: User %s left.", p.GetUserId())
	}

	mh.dispatch(ctx, matchState, dispatcher, logger)

	if shouldTerminateNoHumans(matchState.Session) {
		logger.Info("MatchLeave: Terminating match with no humans.")
		matchState.Session.Close()
		return nil
	}

	mh.updateLabel(matchState, dispatcher, logger)
	return matchState
}

// shouldTerminateNoHumans returns true when only AI participants (or nobody) remain.
func shouldTerminateNoHumans(s *authority.Session) bool {
	return s.HumanCount() == 0
}

func (mh *matchHandler) MatchLoop(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, messages []runtime.MatchData) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state
	}

	matchState.Tick = tick

	for _, msg := range messages {
		mh.handleRequest(matchState, dispatcher, logger, msg)
	}

	matchState.Session.Advance(matchState.Now())

	mh.dispatch(ctx, matchState, dispatcher, logger)
	mh.updateLabel(matchState, dispatcher, logger)
	return matchState
}

func (mh *matchHandler) handleRequest(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	senderID := msg.GetUserId()
	req, err := wire.DecodeRequest(msg.GetOpCode(), msg.GetData())
	if err != nil {
		logger.Warn("MatchLoop: Dropping message from %s: %v", senderID, err)
		mh.sendError(state, dispatcher, logger, senderID, authority.CodeBadRequest, err.Error())
		return
	}

	switch req.Op {
	case wire.OpRequestRoll:
		err = state.Session.RequestRoll(senderID, req.Forced)
	case wire.OpRequestReady:
		err = state.Session.RequestReady(senderID, req.Ready)
	case wire.OpRequestStartGame:
		logger.Info("StartGame: Request received from %s (owner=%s, players=%d)", senderID, state.Session.Owner(), state.Session.Count())
		err = state.Session.RequestStartGame(senderID)
	}
	if err != nil {
		logger.Warn("MatchLoop: Request %d from %s rejected: %v", req.Op, senderID, err)
		mh.sendError(state, dispatcher, logger, senderID, authority.ErrorCode(err), err.Error())
	}
}

// dispatch drains the session outbox to presences and settles results on game over.
func (mh *matchHandler) dispatch(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	for _, out := range state.Session.Flush() {
		// A targeted GameOver replays the last result to a late joiner.
		if over, ok := out.Event.(events.GameOver); ok && len(out.Recipients) == 0 {
			mh.recordResult(ctx, state, logger, over)
		}
		mh.broadcastEvent(state, dispatcher, logger, out)
	}
}

// broadcastEvent encodes one outbound event and sends it to its recipients.
func (mh *matchHandler) broadcastEvent(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, out authority.Outbound) {
	opCode, data, err := wire.EncodeEvent(out.Event)
	if err != nil {
		logger.Error("Failed to marshal event %s: %v", out.Event.Kind(), err)
		return
	}

	var recipients []runtime.Presence
	if len(out.Recipients) > 0 {
		for _, uid := range out.Recipients {
			if p, ok := state.Presences[uid]; ok {
				recipients = append(recipients, p)
			}
		}

		// Intended recipients that are not connected (AI seats) must not turn
		// a targeted event into a broadcast.
		if len(recipients) == 0 {
			return
		}
	}

	if err := dispatcher.BroadcastMessage(opCode, data, recipients, nil, true); err != nil {
		logger.Error("Failed to broadcast %s: %v", out.Event.Kind(), err)
	}
}

func (mh *matchHandler) recordResult(ctx context.Context, state *MatchState, logger runtime.Logger, over events.GameOver) {
	if state.Results == nil {
		return
	}
	result := ports.GameResult{MatchID: state.MatchID}
	for _, p := range state.Session.Participants() {
		if p.IsAI {
			continue
		}
		result.PlayerUserIDs = append(result.PlayerUserIDs, p.ID)
		if p.Index == over.WinnerIndex {
			result.WinnerUserID = p.ID
		}
	}
	if len(result.PlayerUserIDs) == 0 {
		return
	}
	if err := state.Results.RecordResult(ctx, result); err != nil {
		logger.Error("Failed to record result: %v", err)
	}
}

// sendError sends a wire error frame to a specific user.
func (mh *matchHandler) sendError(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, userID string, code int, message string) {
	data, err := wire.EncodeError(code, message)
	if err != nil {
		logger.Error("Failed to marshal error: %v", err)
		return
	}

	presence, ok := state.Presences[userID]
	if !ok {
		logger.Warn("Cannot send error to %s: Presence not found", userID)
		return
	}

	if err := dispatcher.BroadcastMessage(wire.OpError, data, []runtime.Presence{presence}, nil, true); err != nil {
		logger.Error("Failed to send error to %s: %v", userID, err)
	}
}

func (ms *MatchState) renderLabel() (string, error) {
	return wire.MarshalLabel(wire.Label{
		Open:      ms.Session.Open(),
		Phase:     string(ms.Session.Phase()),
		Players:   ms.Session.Count(),
		OpenSeats: ms.Session.OpenSeats(),
	})
}

// updateLabel pushes the label only when it changed.
func (mh *matchHandler) updateLabel(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	label, err := state.renderLabel()
	if err != nil {
		logger.Error("UpdateLabel: Failed to marshal: %v", err)
		return
	}
	if label == state.label {
		return
	}
	if err := dispatcher.MatchLabelUpdate(label); err != nil {
		logger.Error("UpdateLabel: Failed to update: %v", err)
		return
	}
	state.label = label
}

func (mh *matchHandler) MatchTerminate(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, graceSeconds int) interface{} {
	logger.Debug("MatchTerminate: Match terminated, grace %d seconds", graceSeconds)
	if matchState, ok := state.(*MatchState); ok {
		matchState.Session.Close()
	}
	return state
}

// MatchSignal answers "phase" with the current phase; other signals are ignored.
func (mh *matchHandler) MatchSignal(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, data string) (interface{}, string) {
	matchState, ok := state.(*MatchState)
	if !ok || data != "phase" {
		return state, ""
	}
	return state, string(matchState.Session.Phase())
}
