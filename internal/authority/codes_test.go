package authority

import (
	"errors"
	"fmt"
	"testing"

	"snakesladders/internal/app"
)

func TestErrorCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{ErrNotYourTurn, CodeForbidden},
		{fmt.Errorf("wrapped: %w", ErrNotOwner), CodeForbidden},
		{ErrMoveInFlight, CodeConflict},
		{ErrSessionFull, CodeConflict},
		{app.ErrTooFewPlayers, CodeConflict},
		{app.ErrInvalidRoll, CodeBadRequest},
		{errors.New("anything else"), CodeBadRequest},
	}
	for _, tt := range tests {
		if got := ErrorCode(tt.err); got != tt.want {
			t.Errorf("ErrorCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
