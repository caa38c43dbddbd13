package bot

import "time"

// Difficulty scales the configured think delay so weaker bots feel slower.
var difficultyScale = map[string]float64{
	"easy":   1.5,
	"medium": 1.0,
	"hard":   0.6,
}

// ThinkDelay returns the wait before an identity rolls.
func ThinkDelay(base time.Duration, difficulty string) time.Duration {
	scale, ok := difficultyScale[difficulty]
	if !ok {
		scale = 1.0
	}
	return time.Duration(float64(base) * scale)
}
