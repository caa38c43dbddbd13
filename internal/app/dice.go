package app

import (
	"errors"
	"fmt"
	"math/rand"
	"time"
)

var ErrInvalidRoll = errors.New("roll outside die range")

// Dice rolls a single die with a fixed face count.
type Dice struct {
	faces int
	rng   *rand.Rand
}

// NewDice constructs a die with provided rng or a time-seeded default.
func NewDice(faces int, rng *rand.Rand) *Dice {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Dice{faces: faces, rng: rng}
}

// Faces returns the number of faces on the die.
func (d *Dice) Faces() int {
	return d.faces
}

// Validate rejects step counts the die could never produce.
func (d *Dice) Validate(steps int) error {
	if steps < 1 || steps > d.faces {
		return fmt.Errorf("%w: %d not in 1..%d", ErrInvalidRoll, steps, d.faces)
	}
	return nil
}

// Roll draws a value. A non-zero forced value replaces the draw as the result
// once validated; raw always reports the draw.
func (d *Dice) Roll(forced int) (result int, raw int, err error) {
	if forced != 0 {
		if err := d.Validate(forced); err != nil {
			return 0, 0, err
		}
	}
	raw = d.rng.Intn(d.faces) + 1
	if forced != 0 {
		return forced, raw, nil
	}
	return raw, raw, nil
}
