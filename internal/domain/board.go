package domain

import (
	"errors"
	"fmt"
	"sort"
)

var (
	ErrInvalidWinningTile = errors.New("winning tile must be greater than the start tile")
	ErrJumpOutOfRange     = errors.New("jump tile outside the board")
	ErrSelfJump           = errors.New("jump maps a tile to itself")
	ErrDuplicateJump      = errors.New("jump source listed twice")
	ErrJumpFromWinning    = errors.New("winning tile cannot be a jump source")
)

// Jump is one jump-table entry.
type Jump struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// JumpKind classifies a jump by direction.
type JumpKind int

const (
	JumpNone JumpKind = iota
	JumpLadder
	JumpSnake
)

func (k JumpKind) String() string {
	switch k {
	case JumpLadder:
		return "ladder"
	case JumpSnake:
		return "snake"
	default:
		return "none"
	}
}

// Board is the immutable jump table plus the winning tile.
type Board struct {
	winning int
	jumps   map[int]int
}

// NewBoard validates the jump table and builds a board. The returned board is
// never mutated.
func NewBoard(winningTile int, jumps []Jump) (*Board, error) {
	if winningTile <= StartTile {
		return nil, ErrInvalidWinningTile
	}
	table := make(map[int]int, len(jumps))
	for _, j := range jumps {
		if j.From < StartTile || j.From > winningTile || j.To < StartTile || j.To > winningTile {
			return nil, fmt.Errorf("%w: %d->%d", ErrJumpOutOfRange, j.From, j.To)
		}
		if j.From == j.To {
			return nil, fmt.Errorf("%w: %d", ErrSelfJump, j.From)
		}
		if j.From == winningTile {
			return nil, ErrJumpFromWinning
		}
		if _, dup := table[j.From]; dup {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateJump, j.From)
		}
		table[j.From] = j.To
	}
	return &Board{winning: winningTile, jumps: table}, nil
}

// WinningTile returns the tile that ends the game.
func (b *Board) WinningTile() int {
	return b.winning
}

// Lookup returns the jump destination for tile and its direction.
func (b *Board) Lookup(tile int) (int, JumpKind) {
	to, ok := b.jumps[tile]
	if !ok || to == tile {
		return tile, JumpNone
	}
	if to > tile {
		return to, JumpLadder
	}
	return to, JumpSnake
}

// Jumps returns the table as a sorted slice.
func (b *Board) Jumps() []Jump {
	out := make([]Jump, 0, len(b.jumps))
	for from, to := range b.jumps {
		out = append(out, Jump{From: from, To: to})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].From < out[j].From })
	return out
}
