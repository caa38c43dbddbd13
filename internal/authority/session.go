package authority

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"snakesladders/internal/app"
	"snakesladders/internal/bot"
	"snakesladders/internal/config"
	"snakesladders/internal/domain"
	"snakesladders/internal/events"

	"github.com/heroiclabs/nakama-common/runtime"
)

var (
	ErrSessionFull        = errors.New("session is full")
	ErrAlreadyJoined      = errors.New("participant already joined")
	ErrUnknownParticipant = errors.New("participant not found")
	ErrNotPlaying         = errors.New("no game in progress")
	ErrMoveInFlight       = errors.New("a move is still being applied")
	ErrNotYourTurn        = errors.New("not your turn")
	ErrNotOwner           = errors.New("participant is not the session owner")
	ErrNotInLobby         = errors.New("session not in lobby")
	ErrNotAllReady        = errors.New("not every participant is ready")
)

// Participant is a connected human or an AI seated in the session.
type Participant struct {
	ID    string
	Index int
	Name  string
	Color string
	IsAI  bool
	Ready bool
}

// Outbound is an event queued for delivery by a transport.
type Outbound struct {
	Event      events.Event
	Recipients []string // participant IDs; empty means broadcast
}

// Session is the authoritative owner of one game room. Every mutation goes
// through it and it must be driven from a single goroutine.
type Session struct {
	cfg    config.GameConfig
	logger runtime.Logger
	pool   *bot.Pool
	rng    *rand.Rand

	bus    *events.Bus
	roster *domain.Roster
	game   *app.Game
	phase  domain.Phase

	participants map[string]*Participant
	byIndex      map[int]string
	bots         map[string]*bot.Controller
	botsAdded    int

	now        time.Time
	aloneSince time.Time
	lastWinner string
	lastResult *events.GameOver

	outbox []Outbound
	subs   []events.Subscription
}

// NewSession validates cfg and prepares an empty lobby. A nil pool uses the
// default identities; a nil rng seeds from the clock.
func NewSession(cfg config.GameConfig, pool *bot.Pool, rng *rand.Rand, logger runtime.Logger) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if pool == nil {
		pool = bot.DefaultPool()
	}
	s := &Session{
		cfg:          cfg,
		logger:       logger,
		pool:         pool,
		rng:          rng,
		bus:          events.NewBus(),
		roster:       domain.NewRoster(cfg.MaxParticipants),
		phase:        domain.PhaseLobby,
		participants: make(map[string]*Participant),
		byIndex:      make(map[int]string),
		bots:         make(map[string]*bot.Controller),
	}
	s.subs = append(s.subs, s.roster.Attach(s.bus))
	for _, kind := range events.Relayed {
		s.subs = append(s.subs, s.bus.Subscribe(kind, s.relay))
	}
	s.subs = append(s.subs, s.bus.Subscribe(events.KindGameOver, s.onGameOver))
	return s, nil
}

func (s *Session) relay(ev events.Event) {
	s.outbox = append(s.outbox, Outbound{Event: ev})
}

func (s *Session) send(to string, ev events.Event) {
	s.outbox = append(s.outbox, Outbound{Event: ev, Recipients: []string{to}})
}

// Flush drains every queued event in publish order.
func (s *Session) Flush() []Outbound {
	out := s.outbox
	s.outbox = nil
	return out
}

// Bus exposes the session bus to local presentation consumers.
func (s *Session) Bus() *events.Bus { return s.bus }

// Join seats a human participant. In the lobby a full session makes room by
// releasing an AI seat.
func (s *Session) Join(id, name string) (Participant, error) {
	if _, exists := s.participants[id]; exists {
		return Participant{}, ErrAlreadyJoined
	}
	if s.roster.Full() && !s.evictBot() {
		return Participant{}, ErrSessionFull
	}
	return s.join(id, name, false)
}

func (s *Session) join(id, name string, isAI bool) (Participant, error) {
	index, err := s.roster.AddPlayer(name, "", isAI)
	if err != nil {
		if errors.Is(err, domain.ErrRosterFull) {
			return Participant{}, ErrSessionFull
		}
		return Participant{}, err
	}
	player, _ := s.roster.Player(index)
	p := &Participant{
		ID:    id,
		Index: index,
		Name:  name,
		Color: player.Color,
		IsAI:  isAI,
		Ready: isAI,
	}
	s.participants[id] = p
	s.byIndex[index] = id

	if !isAI {
		s.sync(p)
	}
	s.bus.Publish(events.PlayerJoined{PlayerIndex: index, PlayerName: name, Color: p.Color, IsAI: isAI})
	s.logger.Info("Session: %s joined as index %d (ai=%v, players=%d)", id, index, isAI, s.roster.Count())
	return *p, nil
}

// sync tells a joiner its index and backfills the players already seated.
// After a game ends the joiner also gets the final board and the result.
func (s *Session) sync(p *Participant) {
	s.send(p.ID, events.IndexAssigned{PlayerIndex: p.Index})
	current := s.CurrentTurn()
	for _, other := range s.roster.Players() {
		if other.Index == p.Index {
			continue
		}
		s.send(p.ID, events.PlayerJoined{PlayerIndex: other.Index, PlayerName: other.Name, Color: other.Color, IsAI: other.IsAI})
		if s.phase != domain.PhaseLobby {
			s.send(p.ID, events.PositionSync{PlayerIndex: other.Index, Tile: other.Position, HasTurn: other.Index == current})
		}
	}
	if s.phase == domain.PhaseEnded && s.lastResult != nil {
		s.send(p.ID, *s.lastResult)
	}
}

func (s *Session) evictBot() bool {
	if s.phase == domain.PhasePlaying {
		return false
	}
	indices := s.roster.Indices()
	for i := len(indices) - 1; i >= 0; i-- {
		id := s.byIndex[indices[i]]
		if p := s.participants[id]; p != nil && p.IsAI {
			s.logger.Info("Session: Releasing AI %s (index %d) for a human", id, p.Index)
			_ = s.Leave(id)
			return true
		}
	}
	return false
}

// Leave removes a participant. A move in flight is not rolled back; turn
// rotation skips the departed index.
func (s *Session) Leave(id string) error {
	p, ok := s.participants[id]
	if !ok {
		return ErrUnknownParticipant
	}
	delete(s.participants, id)
	delete(s.byIndex, p.Index)
	if ctrl, isBot := s.bots[id]; isBot {
		ctrl.Detach()
		delete(s.bots, id)
	}
	if _, err := s.roster.RemovePlayer(p.Index); err != nil {
		s.logger.Error("Session: roster out of step for %s: %v", id, err)
	}

	s.bus.Publish(events.PlayerLeft{PlayerIndex: p.Index})
	if s.phase == domain.PhasePlaying && s.game != nil {
		s.game.PlayerRemoved(p.Index)
	}
	s.logger.Info("Session: %s (index %d) left, players=%d", id, p.Index, s.roster.Count())

	if s.phase != domain.PhasePlaying {
		s.maybeAutoStart()
	}
	return nil
}

// RequestRoll asks for a roll on behalf of a participant. forced is honored
// only when forced rolls are enabled. Rejected requests publish nothing.
func (s *Session) RequestRoll(participantID string, forced int) error {
	p, ok := s.participants[participantID]
	if !ok {
		s.logger.Warn("Session: roll from unknown participant %s dropped", participantID)
		return ErrUnknownParticipant
	}
	if err := s.authorize(p); err != nil {
		s.logger.Warn("Session: roll from %s (index %d) dropped: %v", participantID, p.Index, err)
		return err
	}
	if err := s.game.Roll(p.Index, forced); err != nil {
		s.logger.Warn("Session: roll from %s (index %d) rejected: %v", participantID, p.Index, err)
		return err
	}
	return nil
}

// authorize is the single gate for turn actions.
func (s *Session) authorize(p *Participant) error {
	if s.phase != domain.PhasePlaying || s.game == nil || s.game.Over() {
		return ErrNotPlaying
	}
	if s.game.TurnState() != app.TurnIdle {
		return ErrMoveInFlight
	}
	if s.game.CurrentTurn() != p.Index {
		return ErrNotYourTurn
	}
	return nil
}

// RequestReady records a readiness change. With auto start the change that
// satisfies the start condition starts the game.
func (s *Session) RequestReady(participantID string, ready bool) error {
	p, ok := s.participants[participantID]
	if !ok {
		return ErrUnknownParticipant
	}
	if s.phase == domain.PhasePlaying {
		return ErrNotInLobby
	}
	if p.IsAI {
		return nil
	}
	p.Ready = ready
	s.logger.Debug("Session: %s ready=%v", participantID, ready)
	s.maybeAutoStart()
	return nil
}

// RequestStartGame lets the owner start once everyone present is ready.
func (s *Session) RequestStartGame(participantID string) error {
	if _, ok := s.participants[participantID]; !ok {
		return ErrUnknownParticipant
	}
	if participantID != s.Owner() {
		s.logger.Warn("Session: %s tried to start but owner is %s", participantID, s.Owner())
		return ErrNotOwner
	}
	if err := s.Start(); err != nil {
		s.logger.Warn("Session: start requested by %s refused: %v", participantID, err)
		return err
	}
	return nil
}

// Start begins a game on behalf of the host, for sessions with no human owner.
// The usual start condition still applies.
func (s *Session) Start() error {
	if s.phase == domain.PhasePlaying {
		return ErrNotInLobby
	}
	if err := s.canStart(); err != nil {
		return err
	}
	return s.start()
}

func (s *Session) canStart() error {
	minPlayers := s.cfg.MinParticipants
	if minPlayers < app.MinPlayersToStartGame {
		minPlayers = app.MinPlayersToStartGame
	}
	if s.roster.Count() < minPlayers {
		return app.ErrTooFewPlayers
	}
	for _, p := range s.participants {
		if !p.Ready {
			return ErrNotAllReady
		}
	}
	return nil
}

func (s *Session) maybeAutoStart() {
	if !s.cfg.AutoStart || s.phase == domain.PhasePlaying {
		return
	}
	if s.canStart() != nil {
		return
	}
	if err := s.start(); err != nil {
		s.logger.Error("Session: auto start failed: %v", err)
	}
}

func (s *Session) start() error {
	if s.game != nil {
		s.game.Close()
		s.game = nil
	}
	game, err := app.NewGame(s.bus, s.roster, s.cfg, s.rng, s.logger)
	if err != nil {
		return fmt.Errorf("failed to create game: %w", err)
	}
	s.game = game
	s.phase = domain.PhasePlaying
	s.aloneSince = time.Time{}
	if err := game.Start(); err != nil {
		s.phase = domain.PhaseLobby
		return err
	}
	s.logger.Info("Session: Game started with %d players.", s.roster.Count())
	return nil
}

// onGameOver returns the session to a lobby-like state for a rematch.
func (s *Session) onGameOver(ev events.Event) {
	over := ev.(events.GameOver)
	s.phase = domain.PhaseEnded
	s.lastWinner = s.byIndex[over.WinnerIndex]
	s.lastResult = &over
	for _, p := range s.participants {
		p.Ready = p.IsAI
	}
	s.logger.Info("Session: %s (index %d) won.", over.WinnerName, over.WinnerIndex)
}

// CompleteMove ends the move in flight when manual completion is configured.
func (s *Session) CompleteMove() {
	if s.game != nil {
		s.game.CompleteMove()
	}
}

// AddBot seats the next identity from the pool.
func (s *Session) AddBot() (Participant, error) {
	if s.roster.Full() {
		return Participant{}, ErrSessionFull
	}
	identity := s.pool.Identity(s.botsAdded)
	s.botsAdded++
	if _, taken := s.participants[identity.UserID]; taken {
		identity.UserID = fmt.Sprintf("%s-%d", identity.UserID, s.botsAdded)
	}

	p, err := s.join(identity.UserID, identity.Name(), true)
	if err != nil {
		return Participant{}, err
	}
	delay := time.Duration(s.cfg.AIThinkDelayMillis) * time.Millisecond
	s.bots[p.ID] = bot.NewAgent(s.bus, s, p.Index, identity, delay, s.clock, s.logger)

	if s.phase != domain.PhasePlaying {
		s.maybeAutoStart()
	}
	return p, nil
}

func (s *Session) clock() time.Time { return s.now }

// Advance moves the session clock: it runs the lobby auto-fill timer and lets
// AI controllers fire due rolls.
func (s *Session) Advance(now time.Time) {
	s.now = now
	s.autoFill(now)

	ids := make([]string, 0, len(s.bots))
	for id := range s.bots {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return s.participants[ids[i]].Index < s.participants[ids[j]].Index })
	for _, id := range ids {
		if ctrl, ok := s.bots[id]; ok {
			ctrl.Advance(now)
		}
	}
}

func (s *Session) autoFill(now time.Time) {
	if s.cfg.BotAutoFillDelaySeconds == 0 || s.phase == domain.PhasePlaying || s.roster.Count() != 1 || s.HumanCount() != 1 {
		s.aloneSince = time.Time{}
		return
	}
	if s.aloneSince.IsZero() {
		s.aloneSince = now
		s.logger.Debug("Session: Single player detected, starting auto-fill timer.")
		return
	}
	if now.Sub(s.aloneSince) < time.Duration(s.cfg.BotAutoFillDelaySeconds)*time.Second {
		return
	}
	s.aloneSince = time.Time{}
	for s.roster.Count() < s.cfg.MinParticipants {
		if _, err := s.AddBot(); err != nil {
			s.logger.Warn("Session: auto-fill stopped: %v", err)
			return
		}
	}
}

// Close detaches everything the session subscribed.
func (s *Session) Close() {
	for _, ctrl := range s.bots {
		ctrl.Detach()
	}
	if s.game != nil {
		s.game.Close()
	}
	for _, sub := range s.subs {
		s.bus.Unsubscribe(sub)
	}
	s.subs = nil
}

func (s *Session) Phase() domain.Phase { return s.phase }

// CurrentTurn returns the index holding the turn, or -1 outside a game.
func (s *Session) CurrentTurn() int {
	if s.game == nil || s.phase != domain.PhasePlaying {
		return -1
	}
	return s.game.CurrentTurn()
}

// LastWinner returns the participant ID that won the latest game.
func (s *Session) LastWinner() string { return s.lastWinner }

// Participant looks up a participant by ID.
func (s *Session) Participant(id string) (Participant, bool) {
	p, ok := s.participants[id]
	if !ok {
		return Participant{}, false
	}
	return *p, true
}

// ParticipantAt returns the participant seated at index.
func (s *Session) ParticipantAt(index int) (Participant, bool) {
	id, ok := s.byIndex[index]
	if !ok {
		return Participant{}, false
	}
	return s.Participant(id)
}

// Participants lists everyone present in index order.
func (s *Session) Participants() []Participant {
	out := make([]Participant, 0, len(s.participants))
	for _, idx := range s.roster.Indices() {
		if p, ok := s.participants[s.byIndex[idx]]; ok {
			out = append(out, *p)
		}
	}
	return out
}

// Players returns the roster's view, positions included.
func (s *Session) Players() []domain.Player { return s.roster.Players() }

// Owner returns the lowest-index human, or "" when only AI remain.
func (s *Session) Owner() string {
	for _, idx := range s.roster.Indices() {
		if p := s.participants[s.byIndex[idx]]; p != nil && !p.IsAI {
			return p.ID
		}
	}
	return ""
}

func (s *Session) HumanCount() int {
	count := 0
	for _, p := range s.participants {
		if !p.IsAI {
			count++
		}
	}
	return count
}

func (s *Session) Count() int { return s.roster.Count() }

// Open reports whether a new human could join right now.
func (s *Session) Open() bool {
	if s.phase == domain.PhasePlaying {
		return !s.roster.Full()
	}
	if !s.roster.Full() {
		return true
	}
	for _, p := range s.participants {
		if p.IsAI {
			return true
		}
	}
	return false
}

// OpenSeats counts free roster slots.
func (s *Session) OpenSeats() int { return s.roster.Capacity() - s.roster.Count() }
