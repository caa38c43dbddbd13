package domain

// Phase represents the lifecycle stage of a session.
type Phase string

const (
	// PhaseLobby is the pre-game state where players join and ready up.
	PhaseLobby Phase = "lobby"
	// PhasePlaying is the active state where turns are gated and dice are rolled.
	PhasePlaying Phase = "playing"
	// PhaseEnded is the state after a winner is declared and before a rematch.
	PhaseEnded Phase = "ended"
)

// StartTile is the tile every piece starts on.
const StartTile = 1

// MaxPlayers is the hard roster capacity.
const MaxPlayers = 4

// Palette assigns presentation colors by join order.
var Palette = []string{"red", "blue", "green", "yellow"}

// Piece is the visual handle bound to a player. It mirrors Player.Position and
// holds no authority of its own.
type Piece struct {
	Tile int
}

// Player holds the domain state for a participant in a session.
type Player struct {
	Index    int // 0-based, stable for the session
	Name     string
	Color    string
	IsAI     bool
	Position int
	Piece    *Piece
}
