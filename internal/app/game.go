package app

import (
	"errors"
	"math/rand"

	"snakesladders/internal/config"
	"snakesladders/internal/domain"
	"snakesladders/internal/events"

	"github.com/heroiclabs/nakama-common/runtime"
)

var (
	ErrTooFewPlayers       = errors.New("not enough players to start")
	ErrGameOver            = errors.New("game is over")
	ErrForcedRollsDisabled = errors.New("forced rolls are disabled")
	ErrNotStarted          = errors.New("game not started")
)

// Game wires the turn machine, resolver and dice for one play-through over a
// shared bus and roster. A new Game is built for every rematch.
type Game struct {
	bus      *events.Bus
	roster   *domain.Roster
	cfg      config.GameConfig
	dice     *Dice
	resolver *Resolver
	turn     *TurnMachine
	logger   runtime.Logger

	started bool
	over    bool
	winner  int
	sub     events.Subscription
}

// NewGame validates cfg and subscribes a fresh game to bus. rng may be nil.
func NewGame(bus *events.Bus, roster *domain.Roster, cfg config.GameConfig, rng *rand.Rand, logger runtime.Logger) (*Game, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	board, err := cfg.Board()
	if err != nil {
		return nil, err
	}
	dice := NewDice(cfg.DieFaces, rng)
	g := &Game{
		bus:      bus,
		roster:   roster,
		cfg:      cfg,
		dice:     dice,
		resolver: NewResolver(board, dice, cfg.ExactRollToWin),
		turn:     NewTurnMachine(bus, roster, logger),
		logger:   logger,
		winner:   -1,
	}
	g.sub = bus.Subscribe(events.KindMoveRequested, g.onMoveRequested)
	return g, nil
}

// Start resets every piece and hands the first turn to the lowest index.
func (g *Game) Start() error {
	minPlayers := g.cfg.MinParticipants
	if minPlayers < MinPlayersToStartGame {
		minPlayers = MinPlayersToStartGame
	}
	if g.roster.Count() < minPlayers {
		return ErrTooFewPlayers
	}
	g.roster.ResetPositions()
	first := g.roster.First()
	g.turn.Begin(first)
	g.started = true
	g.bus.Publish(events.GameStarted{PlayerCount: g.roster.Count(), FirstPlayerIndex: first})
	return nil
}

// Roll draws the die for playerIndex and publishes the result. Callers gate
// turn ownership; forced must be zero unless forced rolls are enabled.
func (g *Game) Roll(playerIndex, forced int) error {
	if !g.started {
		return ErrNotStarted
	}
	if g.over {
		return ErrGameOver
	}
	if forced != 0 && !g.cfg.AllowForcedRolls {
		return ErrForcedRollsDisabled
	}
	result, raw, err := g.dice.Roll(forced)
	if err != nil {
		return err
	}
	g.bus.Publish(events.DiceRolled{PlayerIndex: playerIndex, Result: result, RawRoll: raw})
	return nil
}

func (g *Game) onMoveRequested(ev events.Event) {
	req := ev.(events.MoveRequested)
	player, ok := g.roster.Player(req.PlayerIndex)
	if !ok {
		// The mover left between roll and resolution: nothing to move, keep turns flowing.
		g.logger.Warn("Game: move requested for absent player %d", req.PlayerIndex)
		g.turn.Complete()
		return
	}

	move, err := g.resolver.Resolve(req.PlayerIndex, player.Position, req.Steps)
	if err != nil {
		g.logger.Error("Game: failed to resolve move for player %d: %v", req.PlayerIndex, err)
		g.turn.Complete()
		return
	}
	if move.Rejected {
		g.logger.Debug("Game: player %d needs an exact roll from %d, rolled %d", req.PlayerIndex, move.From, move.Steps)
	}

	for _, out := range move.Events() {
		g.bus.Publish(out)
	}

	if move.Won {
		g.over = true
		g.winner = req.PlayerIndex
		g.turn.Finish()
		g.bus.Publish(events.GameOver{WinnerIndex: req.PlayerIndex, WinnerName: player.Name})
		return
	}
	if !g.cfg.ManualCompletion {
		g.turn.Complete()
	}
}

// CompleteMove ends the move in flight when ManualCompletion is configured, for
// local play that waits on presentation before rotating.
func (g *Game) CompleteMove() {
	if g.over {
		return
	}
	g.turn.Complete()
}

// PlayerRemoved must be called after the roster dropped index.
func (g *Game) PlayerRemoved(index int) {
	if !g.started || g.over {
		return
	}
	g.turn.PlayerRemoved(index)
}

// CurrentTurn returns the index whose turn it is.
func (g *Game) CurrentTurn() int { return g.turn.Current() }

// TurnState exposes the machine's mode for gating.
func (g *Game) TurnState() TurnState { return g.turn.State() }

// Winner returns the winning index, or -1 while the game runs.
func (g *Game) Winner() int { return g.winner }

// Over reports whether a winner was declared.
func (g *Game) Over() bool { return g.over }

// DieFaces returns the configured face count.
func (g *Game) DieFaces() int { return g.dice.Faces() }

// Close detaches the game from the bus.
func (g *Game) Close() {
	g.bus.Unsubscribe(g.sub)
	g.turn.Detach()
}
