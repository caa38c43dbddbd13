package app

import (
	"snakesladders/internal/domain"
	"snakesladders/internal/events"

	"github.com/heroiclabs/nakama-common/runtime"
)

// TurnState is the turn machine's current mode.
type TurnState int

const (
	// TurnIdle means nobody's move is in flight.
	TurnIdle TurnState = iota
	// TurnMoving means a roll is being applied.
	TurnMoving
	// TurnFinished is terminal: a winner was declared.
	TurnFinished
)

func (s TurnState) String() string {
	switch s {
	case TurnIdle:
		return "idle"
	case TurnMoving:
		return "moving"
	case TurnFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// TurnMachine sequences rolls into moves and is the only component that
// advances whose turn it is.
type TurnMachine struct {
	bus    *events.Bus
	roster *domain.Roster
	logger runtime.Logger

	state    TurnState
	current  int
	pending  int
	deferred int
	sub      events.Subscription
}

// NewTurnMachine subscribes a machine to dice-rolled events. It starts Idle
// with no current player until Begin is called.
func NewTurnMachine(bus *events.Bus, roster *domain.Roster, logger runtime.Logger) *TurnMachine {
	m := &TurnMachine{
		bus:     bus,
		roster:  roster,
		logger:  logger,
		current: -1,
	}
	m.sub = bus.Subscribe(events.KindDiceRolled, m.onDiceRolled)
	return m
}

// Begin hands the first turn to index.
func (m *TurnMachine) Begin(index int) {
	m.state = TurnIdle
	m.current = index
	m.pending = 0
	m.deferred = 0
}

func (m *TurnMachine) State() TurnState { return m.state }

// Current returns the index whose turn it is, or -1 before Begin.
func (m *TurnMachine) Current() int { return m.current }

// PendingRoll returns the roll being applied while Moving.
func (m *TurnMachine) PendingRoll() int { return m.pending }

func (m *TurnMachine) onDiceRolled(ev events.Event) {
	rolled := ev.(events.DiceRolled)
	switch m.state {
	case TurnIdle:
		m.enterMoving(rolled.Result)
	case TurnMoving:
		// Accepted, but held until the move in flight completes.
		if m.deferred != 0 {
			m.logger.Warn("TurnMachine: replacing deferred roll %d with %d", m.deferred, rolled.Result)
		}
		m.deferred = rolled.Result
	case TurnFinished:
		m.logger.Debug("TurnMachine: ignoring roll %d after game over", rolled.Result)
	}
}

func (m *TurnMachine) enterMoving(roll int) {
	m.state = TurnMoving
	m.pending = roll
	m.bus.Publish(events.MoveRequested{PlayerIndex: m.current, Steps: roll})
}

// Complete ends the move in flight and rotates to the next present player.
func (m *TurnMachine) Complete() {
	if m.state != TurnMoving {
		m.logger.Debug("TurnMachine: Complete called in state %s", m.state)
		return
	}
	m.pending = 0
	m.rotate()
	if m.deferred != 0 && m.state == TurnIdle && m.current >= 0 {
		roll := m.deferred
		m.deferred = 0
		m.enterMoving(roll)
	}
}

func (m *TurnMachine) rotate() {
	m.state = TurnIdle
	m.current = m.roster.Next(m.current)
	if m.current < 0 {
		m.logger.Warn("TurnMachine: no players left to rotate to")
		return
	}
	m.bus.Publish(events.TurnEnded{PlayerIndex: m.current})
}

// Finish makes the machine terminal.
func (m *TurnMachine) Finish() {
	m.state = TurnFinished
	m.pending = 0
	m.deferred = 0
}

// PlayerRemoved reacts to a departure that already left the roster. A move in
// flight is not rolled back; rotation after it skips the absent index.
func (m *TurnMachine) PlayerRemoved(index int) {
	if m.state != TurnIdle || index != m.current {
		return
	}
	m.rotate()
}

// Detach unsubscribes the machine from the bus.
func (m *TurnMachine) Detach() {
	m.bus.Unsubscribe(m.sub)
}
