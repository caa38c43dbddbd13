package bot

import (
	"time"

	"snakesladders/internal/events"

	"github.com/heroiclabs/nakama-common/runtime"
)

// NewAgent builds a controller for a pooled identity, scaling baseDelay by its difficulty.
func NewAgent(bus *events.Bus, requester Requester, index int, identity Identity, baseDelay time.Duration, clock func() time.Time, logger runtime.Logger) *Controller {
	delay := ThinkDelay(baseDelay, identity.Difficulty)
	return NewController(bus, requester, index, identity.UserID, delay, clock, logger.WithField("bot", identity.UserID))
}
