package ports

import "context"

// GameResult is the outcome of one finished game.
type GameResult struct {
	MatchID      string
	WinnerUserID string
	// PlayerUserIDs lists every human who was seated when the game ended.
	PlayerUserIDs []string
}

// Record is a player's lifetime tally.
type Record struct {
	Games int64
	Wins  int64
}

// ResultsPort persists game outcomes.
type ResultsPort interface {
	// RecordResult increments games for every player and wins for the winner.
	RecordResult(ctx context.Context, result GameResult) error

	// GetRecord returns the tally for userID.
	GetRecord(ctx context.Context, userID string) (Record, error)
}
