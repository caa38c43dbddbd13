package ws

import (
	"snakesladders/internal/authority"
	"snakesladders/internal/wire"
)

// Commands processed by the room goroutine.

type joinCmd struct {
	ID    string
	Name  string
	Conn  Conn
	Reply chan<- joinResult
}

type joinResult struct {
	Participant authority.Participant
	Err         error
}

type requestCmd struct {
	ID      string
	Request wire.Request
}

type leaveCmd struct {
	ID string
}

type addBotCmd struct {
	Reply chan<- error
}
