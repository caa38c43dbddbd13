package app

import (
	"snakesladders/internal/domain"
	"snakesladders/internal/events"
)

// Move is the outcome of resolving one roll.
type Move struct {
	PlayerIndex int
	From        int
	Steps       int
	// Target is where the walk ended, before any jump.
	Target int
	// Final is the resting tile after at most one jump.
	Final    int
	Path     []int
	Jump     domain.JumpKind
	Rejected bool
	Won      bool
}

// Resolver turns a roll into tile movement on a board.
type Resolver struct {
	board *domain.Board
	dice  *Dice
	exact bool
}

// NewResolver builds a resolver. exactRollToWin rejects overshooting rolls
// instead of clamping them to the winning tile.
func NewResolver(board *domain.Board, dice *Dice, exactRollToWin bool) *Resolver {
	return &Resolver{board: board, dice: dice, exact: exactRollToWin}
}

// Resolve computes the move from tile from by steps. The jump table is
// consulted once, on the walked-to tile only; a tile reached by a jump is final
// even if it is itself a jump source.
func (r *Resolver) Resolve(playerIndex, from, steps int) (Move, error) {
	if err := r.dice.Validate(steps); err != nil {
		return Move{}, err
	}
	win := r.board.WinningTile()
	move := Move{PlayerIndex: playerIndex, From: from, Steps: steps}

	target := from + steps
	if target > win {
		if r.exact {
			move.Rejected = true
			move.Target = from
			move.Final = from
			return move, nil
		}
		target = win
	}
	move.Target = target

	if target > from {
		move.Path = make([]int, 0, target-from)
		for tile := from + 1; tile <= target; tile++ {
			move.Path = append(move.Path, tile)
		}
	}

	if target == win {
		move.Final = win
		move.Won = true
		return move, nil
	}

	final, kind := r.board.Lookup(target)
	move.Final = final
	move.Jump = kind
	move.Won = final == win
	return move, nil
}

// Events lists the records a resolved move publishes, in order.
func (m Move) Events() []events.Event {
	out := make([]events.Event, 0, 2)
	switch m.Jump {
	case domain.JumpLadder:
		out = append(out, events.LadderHit{PlayerIndex: m.PlayerIndex, From: m.Target, To: m.Final})
	case domain.JumpSnake:
		out = append(out, events.SnakeHit{PlayerIndex: m.PlayerIndex, From: m.Target, To: m.Final})
	}
	out = append(out, events.PieceMoved{
		PlayerIndex: m.PlayerIndex,
		From:        m.From,
		To:          m.Final,
		Path:        append([]int(nil), m.Path...),
	})
	return out
}
