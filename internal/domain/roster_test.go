package domain

import (
	"errors"
	"testing"

	"snakesladders/internal/events"
)

func newTestRoster(t *testing.T, names ...string) *Roster {
	t.Helper()
	r := NewRoster(MaxPlayers)
	for _, name := range names {
		if _, err := r.AddPlayer(name, "", false); err != nil {
			t.Fatalf("AddPlayer(%s) error: %v", name, err)
		}
	}
	return r
}

func TestRoster_AddPlayerAssignsIndexAndStart(t *testing.T) {
	r := newTestRoster(t, "ana", "bo")

	p, ok := r.Player(1)
	if !ok {
		t.Fatal("expected player 1")
	}
	if p.Name != "bo" || p.Position != StartTile || p.Piece == nil || p.Piece.Tile != StartTile {
		t.Fatalf("unexpected player: %+v", p)
	}
	if p.Color != Palette[1] {
		t.Fatalf("Color = %s, want %s", p.Color, Palette[1])
	}
}

func TestRoster_EnforcesCapacity(t *testing.T) {
	r := newTestRoster(t, "a", "b", "c", "d")
	if _, err := r.AddPlayer("e", "", false); !errors.Is(err, ErrRosterFull) {
		t.Fatalf("AddPlayer() error = %v, want ErrRosterFull", err)
	}

	small := NewRoster(2)
	small.AddPlayer("a", "", false)
	small.AddPlayer("b", "", false)
	if !small.Full() {
		t.Fatal("expected roster with capacity 2 to be full")
	}
}

func TestRoster_IndicesNotReused(t *testing.T) {
	r := newTestRoster(t, "a", "b", "c")
	if _, err := r.RemovePlayer(1); err != nil {
		t.Fatalf("RemovePlayer() error: %v", err)
	}
	idx, err := r.AddPlayer("d", "", false)
	if err != nil {
		t.Fatalf("AddPlayer() error: %v", err)
	}
	if idx != 3 {
		t.Fatalf("new index = %d, want 3", idx)
	}
}

func TestRoster_NextIsModuloForContiguousIndices(t *testing.T) {
	for n := 2; n <= MaxPlayers; n++ {
		r := NewRoster(MaxPlayers)
		for i := 0; i < n; i++ {
			r.AddPlayer("p", "", false)
		}
		for current := 0; current < n; current++ {
			if got, want := r.Next(current), (current+1)%n; got != want {
				t.Errorf("n=%d Next(%d) = %d, want %d", n, current, got, want)
			}
		}
	}
}

func TestRoster_NextSkipsRemoved(t *testing.T) {
	tests := []struct {
		name    string
		remove  int
		current int
		want    int
	}{
		{name: "removed current in middle", remove: 1, current: 1, want: 2},
		{name: "removed last wraps", remove: 2, current: 2, want: 0},
		{name: "removed first from last", remove: 0, current: 2, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRoster(t, "a", "b", "c")
			r.RemovePlayer(tt.remove)
			if got := r.Next(tt.current); got != tt.want {
				t.Fatalf("Next(%d) = %d, want %d", tt.current, got, tt.want)
			}
		})
	}

	if got := NewRoster(4).Next(0); got != -1 {
		t.Fatalf("Next on empty roster = %d, want -1", got)
	}
}

func TestRoster_RemoveDetachesPiece(t *testing.T) {
	r := newTestRoster(t, "a", "b")
	removed, err := r.RemovePlayer(0)
	if err != nil {
		t.Fatalf("RemovePlayer() error: %v", err)
	}
	if removed.Piece == nil {
		t.Fatal("expected removed player copy to keep its piece handle")
	}
	if _, ok := r.Player(0); ok {
		t.Fatal("player 0 should be gone")
	}
	if _, err := r.RemovePlayer(0); !errors.Is(err, ErrUnknownPlayer) {
		t.Fatalf("second RemovePlayer() error = %v, want ErrUnknownPlayer", err)
	}
}

func TestRoster_AttachFollowsPieceMoved(t *testing.T) {
	bus := events.NewBus()
	r := newTestRoster(t, "a", "b")
	r.Attach(bus)

	bus.Publish(events.PieceMoved{PlayerIndex: 1, From: 1, To: 14})
	bus.Publish(events.PieceMoved{PlayerIndex: 9, From: 1, To: 3})

	p, _ := r.Player(1)
	if p.Position != 14 || p.Piece.Tile != 14 {
		t.Fatalf("player 1 at %d (piece %d), want 14", p.Position, p.Piece.Tile)
	}
}

func TestRoster_InsertMirrorsIndex(t *testing.T) {
	r := NewRoster(MaxPlayers)
	if err := r.Insert(Player{Index: 2, Name: "c"}); err != nil {
		t.Fatalf("Insert() error: %v", err)
	}
	if err := r.Insert(Player{Index: 2, Name: "dup"}); !errors.Is(err, ErrIndexTaken) {
		t.Fatalf("Insert() duplicate error = %v, want ErrIndexTaken", err)
	}
	idx, _ := r.AddPlayer("d", "", false)
	if idx != 3 {
		t.Fatalf("AddPlayer after Insert = %d, want 3", idx)
	}
	p, _ := r.Player(2)
	if p.Position != StartTile {
		t.Fatalf("inserted position = %d, want %d", p.Position, StartTile)
	}
}
