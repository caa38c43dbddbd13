package bot

import (
	"time"

	"snakesladders/internal/events"

	"github.com/heroiclabs/nakama-common/runtime"
)

// Controller drives one AI participant. It watches the bus for its turn and,
// once the think delay has elapsed on the session clock, asks the authority to
// roll like any remote participant would.
type Controller struct {
	bus       *events.Bus
	requester Requester
	logger    runtime.Logger

	index         int
	participantID string
	delay         time.Duration

	clock      func() time.Time
	scheduled  bool
	actAt      time.Time
	processing bool
	subs       []events.Subscription
}

// NewController subscribes a controller for the participant at index. clock
// reads the session clock; the think delay is measured from it when the turn
// passes to this controller.
func NewController(bus *events.Bus, requester Requester, index int, participantID string, delay time.Duration, clock func() time.Time, logger runtime.Logger) *Controller {
	c := &Controller{
		bus:           bus,
		requester:     requester,
		logger:        logger,
		index:         index,
		participantID: participantID,
		delay:         delay,
		clock:         clock,
	}
	c.subs = []events.Subscription{
		bus.Subscribe(events.KindGameStarted, c.onGameStarted),
		bus.Subscribe(events.KindTurnEnded, c.onTurnEnded),
		bus.Subscribe(events.KindGameOver, c.onGameOver),
	}
	return c
}

func (c *Controller) Index() int { return c.index }

func (c *Controller) ParticipantID() string { return c.participantID }

// Pending reports whether a roll is scheduled.
func (c *Controller) Pending() bool { return c.scheduled }

func (c *Controller) onGameStarted(ev events.Event) {
	c.turnPassedTo(ev.(events.GameStarted).FirstPlayerIndex)
}

func (c *Controller) onTurnEnded(ev events.Event) {
	c.turnPassedTo(ev.(events.TurnEnded).PlayerIndex)
}

func (c *Controller) turnPassedTo(index int) {
	if index != c.index {
		c.scheduled = false
		return
	}
	c.scheduled = true
	c.actAt = c.clock().Add(c.delay)
	c.logger.Debug("Bot: %s (index %d) will roll at %s", c.participantID, c.index, c.actAt.Format(time.RFC3339Nano))
}

func (c *Controller) onGameOver(events.Event) {
	c.scheduled = false
}

// Advance fires a due roll.
func (c *Controller) Advance(now time.Time) {
	if !c.scheduled || c.processing || now.Before(c.actAt) {
		return
	}
	c.scheduled = false
	c.processing = true
	defer func() { c.processing = false }()

	if err := c.requester.RequestRoll(c.participantID, 0); err != nil {
		c.logger.Warn("Bot: %s failed to roll: %v", c.participantID, err)
	}
}

// Detach unsubscribes the controller and cancels any pending roll.
func (c *Controller) Detach() {
	for _, sub := range c.subs {
		c.bus.Unsubscribe(sub)
	}
	c.subs = nil
	c.scheduled = false
}
