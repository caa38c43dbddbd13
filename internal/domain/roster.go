package domain

import (
	"errors"
	"sort"

	"snakesladders/internal/events"
)

var (
	ErrRosterFull    = errors.New("roster is full")
	ErrUnknownPlayer = errors.New("player not found")
	ErrIndexTaken    = errors.New("player index already in use")
)

// Roster is the ordered set of players in a session. Indices are handed out
// monotonically and never reused, so a late message naming a departed index
// cannot land on a newcomer.
type Roster struct {
	players   map[int]*Player
	order     []int
	nextIndex int
	capacity  int
}

// NewRoster builds a roster holding at most capacity players (bounded by MaxPlayers).
func NewRoster(capacity int) *Roster {
	if capacity <= 0 || capacity > MaxPlayers {
		capacity = MaxPlayers
	}
	return &Roster{
		players:  make(map[int]*Player),
		capacity: capacity,
	}
}

// AddPlayer appends a player on the start tile and returns its index. An empty
// color is filled from the palette.
func (r *Roster) AddPlayer(name, color string, isAI bool) (int, error) {
	if r.Full() {
		return -1, ErrRosterFull
	}
	index := r.nextIndex
	r.nextIndex++
	if color == "" {
		color = Palette[index%len(Palette)]
	}
	r.insert(&Player{
		Index:    index,
		Name:     name,
		Color:    color,
		IsAI:     isAI,
		Position: StartTile,
		Piece:    &Piece{Tile: StartTile},
	})
	return index, nil
}

// Insert places a player at an index chosen elsewhere. Mirrors use it to copy
// the authority's numbering.
func (r *Roster) Insert(p Player) error {
	if _, exists := r.players[p.Index]; exists {
		return ErrIndexTaken
	}
	if r.Full() {
		return ErrRosterFull
	}
	if p.Position < StartTile {
		p.Position = StartTile
	}
	p.Piece = &Piece{Tile: p.Position}
	r.insert(&p)
	if p.Index >= r.nextIndex {
		r.nextIndex = p.Index + 1
	}
	return nil
}

func (r *Roster) insert(p *Player) {
	r.players[p.Index] = p
	r.order = append(r.order, p.Index)
	sort.Ints(r.order)
}

// Player returns a copy of the player at index.
func (r *Roster) Player(index int) (Player, bool) {
	p, ok := r.players[index]
	if !ok {
		return Player{}, false
	}
	return *p, true
}

// Players returns copies of all players in index order.
func (r *Roster) Players() []Player {
	out := make([]Player, 0, len(r.order))
	for _, idx := range r.order {
		out = append(out, *r.players[idx])
	}
	return out
}

// Count returns the number of present players.
func (r *Roster) Count() int {
	return len(r.order)
}

// Full reports whether the roster reached capacity.
func (r *Roster) Full() bool {
	return len(r.order) >= r.capacity
}

// Capacity returns the configured maximum.
func (r *Roster) Capacity() int {
	return r.capacity
}

// Indices returns present indices in ascending order.
func (r *Roster) Indices() []int {
	return append([]int(nil), r.order...)
}

// SetPosition moves a player and its piece to tile.
func (r *Roster) SetPosition(index, tile int) error {
	p, ok := r.players[index]
	if !ok {
		return ErrUnknownPlayer
	}
	p.Position = tile
	if p.Piece != nil {
		p.Piece.Tile = tile
	}
	return nil
}

// ResetPositions returns every piece to the start tile.
func (r *Roster) ResetPositions() {
	for _, p := range r.players {
		p.Position = StartTile
		if p.Piece != nil {
			p.Piece.Tile = StartTile
		}
	}
}

// RemovePlayer drops a player and detaches its piece. The returned copy still
// carries the detached piece.
func (r *Roster) RemovePlayer(index int) (Player, error) {
	p, ok := r.players[index]
	if !ok {
		return Player{}, ErrUnknownPlayer
	}
	delete(r.players, index)
	for i, idx := range r.order {
		if idx == index {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	removed := *p
	p.Piece = nil
	return removed, nil
}

// Next returns the present index that follows index, wrapping to the lowest
// present index. index itself need not be present. Returns -1 when empty.
func (r *Roster) Next(index int) int {
	if len(r.order) == 0 {
		return -1
	}
	for _, idx := range r.order {
		if idx > index {
			return idx
		}
	}
	return r.order[0]
}

// First returns the lowest present index, or -1 when empty.
func (r *Roster) First() int {
	if len(r.order) == 0 {
		return -1
	}
	return r.order[0]
}

// Attach keeps positions in step with piece-moved events. The roster never
// moves a piece on its own authority.
func (r *Roster) Attach(bus *events.Bus) events.Subscription {
	return bus.Subscribe(events.KindPieceMoved, func(ev events.Event) {
		moved := ev.(events.PieceMoved)
		_ = r.SetPosition(moved.PlayerIndex, moved.To)
	})
}
