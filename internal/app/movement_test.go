package app

import (
	"errors"
	"testing"

	"snakesladders/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newResolver(t *testing.T, exact bool, jumps ...domain.Jump) *Resolver {
	t.Helper()
	board, err := domain.NewBoard(100, jumps)
	require.NoError(t, err)
	return NewResolver(board, NewDice(6, nil), exact)
}

func TestResolve(t *testing.T) {
	jumps := []domain.Jump{{From: 5, To: 14}, {From: 14, To: 30}, {From: 40, To: 3}, {From: 96, To: 100}}

	tests := []struct {
		name      string
		exact     bool
		from      int
		steps     int
		wantFinal int
		wantPath  []int
		wantJump  domain.JumpKind
		rejected  bool
		won       bool
	}{
		{name: "plain walk", from: 1, steps: 3, wantFinal: 4, wantPath: []int{2, 3, 4}},
		{name: "ladder", from: 1, steps: 4, wantFinal: 14, wantPath: []int{2, 3, 4, 5}, wantJump: domain.JumpLadder},
		{name: "chained ladder applied once", from: 10, steps: 4, wantFinal: 30, wantPath: []int{11, 12, 13, 14}, wantJump: domain.JumpLadder},
		{name: "snake", from: 36, steps: 4, wantFinal: 3, wantPath: []int{37, 38, 39, 40}, wantJump: domain.JumpSnake},
		{name: "overshoot clamps to win", from: 98, steps: 5, wantFinal: 100, wantPath: []int{99, 100}, won: true},
		{name: "exact roll rejects overshoot", exact: true, from: 98, steps: 5, wantFinal: 98, rejected: true},
		{name: "exact roll lands on win", exact: true, from: 98, steps: 2, wantFinal: 100, wantPath: []int{99, 100}, won: true},
		{name: "ladder into winning tile wins", from: 93, steps: 3, wantFinal: 100, wantPath: []int{94, 95, 96}, wantJump: domain.JumpLadder, won: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newResolver(t, tt.exact, jumps...)
			move, err := r.Resolve(0, tt.from, tt.steps)
			require.NoError(t, err)
			assert.Equal(t, tt.wantFinal, move.Final)
			assert.Equal(t, tt.wantPath, move.Path)
			assert.Equal(t, tt.wantJump, move.Jump)
			assert.Equal(t, tt.rejected, move.Rejected)
			assert.Equal(t, tt.won, move.Won)
		})
	}
}

func TestResolve_ChainedJumpNeverChased(t *testing.T) {
	jumps := []domain.Jump{
		{From: 5, To: 14}, {From: 14, To: 30},
		{From: 50, To: 20}, {From: 20, To: 60},
		{From: 70, To: 75}, {From: 75, To: 72},
	}
	r := newResolver(t, false, jumps...)
	table := make(map[int]int)
	for _, j := range jumps {
		table[j.From] = j.To
	}

	for src, mid := range table {
		if _, chained := table[mid]; !chained {
			continue
		}
		from := src - 1
		move, err := r.Resolve(0, from, 1)
		require.NoError(t, err)
		assert.Equal(t, mid, move.Final, "landing on %d must stop at %d", src, mid)
	}
}

func TestResolve_RejectsInvalidSteps(t *testing.T) {
	r := newResolver(t, false)
	for _, steps := range []int{0, -2, 7} {
		_, err := r.Resolve(0, 1, steps)
		assert.True(t, errors.Is(err, ErrInvalidRoll), "steps %d", steps)
	}
}

func TestMoveEvents_LadderPrecedesPieceMoved(t *testing.T) {
	r := newResolver(t, false, domain.Jump{From: 5, To: 14})
	move, err := r.Resolve(2, 1, 4)
	require.NoError(t, err)

	evs := move.Events()
	require.Len(t, evs, 2)
	assert.Equal(t, "ladder_hit", string(evs[0].Kind()))
	assert.Equal(t, "piece_moved", string(evs[1].Kind()))
}
