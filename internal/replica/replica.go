// Package replica mirrors an authoritative session on the client side. It only
// ever changes in response to events received from the authority.
package replica

import (
	"fmt"

	"snakesladders/internal/domain"
	"snakesladders/internal/events"
)

// Replica is a participant's local copy of session state.
type Replica struct {
	bus     *events.Bus
	roster  *domain.Roster
	self    int
	current int
	phase   domain.Phase
	winner  int
	applied int
}

// New builds an empty replica with its own bus for presentation consumers.
func New() *Replica {
	r := &Replica{
		bus:     events.NewBus(),
		roster:  domain.NewRoster(domain.MaxPlayers),
		self:    -1,
		current: -1,
		phase:   domain.PhaseLobby,
		winner:  -1,
	}
	r.roster.Attach(r.bus)
	return r
}

// Apply folds one authoritative event into the replica and republishes it on
// the local bus.
func (r *Replica) Apply(ev events.Event) error {
	switch e := ev.(type) {
	case events.IndexAssigned:
		r.self = e.PlayerIndex
	case events.PlayerJoined:
		if _, exists := r.roster.Player(e.PlayerIndex); exists {
			return nil
		}
		if err := r.roster.Insert(domain.Player{Index: e.PlayerIndex, Name: e.PlayerName, Color: e.Color, IsAI: e.IsAI}); err != nil {
			return fmt.Errorf("replica: join %d: %w", e.PlayerIndex, err)
		}
	case events.PlayerLeft:
		if _, err := r.roster.RemovePlayer(e.PlayerIndex); err != nil {
			return fmt.Errorf("replica: leave %d: %w", e.PlayerIndex, err)
		}
	case events.GameStarted:
		r.roster.ResetPositions()
		r.phase = domain.PhasePlaying
		r.current = e.FirstPlayerIndex
		r.winner = -1
	case events.PositionSync:
		if err := r.roster.SetPosition(e.PlayerIndex, e.Tile); err != nil {
			return fmt.Errorf("replica: sync %d: %w", e.PlayerIndex, err)
		}
		if e.HasTurn {
			r.phase = domain.PhasePlaying
			r.current = e.PlayerIndex
		}
	case events.TurnEnded:
		r.current = e.PlayerIndex
	case events.PieceMoved:
		if _, ok := r.roster.Player(e.PlayerIndex); !ok {
			return fmt.Errorf("replica: move for %d: %w", e.PlayerIndex, domain.ErrUnknownPlayer)
		}
	case events.GameOver:
		r.phase = domain.PhaseEnded
		r.winner = e.WinnerIndex
	}
	r.applied++
	r.bus.Publish(ev)
	return nil
}

// Bus carries every applied event for presentation.
func (r *Replica) Bus() *events.Bus { return r.bus }

// Self returns this participant's index, or -1 before assignment.
func (r *Replica) Self() int { return r.self }

func (r *Replica) CurrentTurn() int { return r.current }

// MyTurn reports whether the local participant holds the turn.
func (r *Replica) MyTurn() bool {
	return r.self >= 0 && r.phase == domain.PhasePlaying && r.current == r.self
}

func (r *Replica) Phase() domain.Phase { return r.phase }

// Winner returns the winning index, or -1.
func (r *Replica) Winner() int { return r.winner }

func (r *Replica) Players() []domain.Player { return r.roster.Players() }

func (r *Replica) Player(index int) (domain.Player, bool) { return r.roster.Player(index) }

// Applied counts events folded in so far.
func (r *Replica) Applied() int { return r.applied }
