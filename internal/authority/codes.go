package authority

import (
	"errors"

	"snakesladders/internal/app"
)

// Codes sent to a participant whose request was rejected.
const (
	CodeBadRequest = 400
	CodeForbidden  = 403
	CodeConflict   = 409
)

// ErrorCode classifies a rejection for the wire.
func ErrorCode(err error) int {
	switch {
	case errors.Is(err, ErrNotYourTurn), errors.Is(err, ErrNotOwner), errors.Is(err, ErrUnknownParticipant):
		return CodeForbidden
	case errors.Is(err, ErrMoveInFlight), errors.Is(err, ErrNotPlaying), errors.Is(err, ErrNotInLobby),
		errors.Is(err, ErrNotAllReady), errors.Is(err, ErrSessionFull), errors.Is(err, ErrAlreadyJoined),
		errors.Is(err, app.ErrTooFewPlayers):
		return CodeConflict
	default:
		return CodeBadRequest
	}
}
