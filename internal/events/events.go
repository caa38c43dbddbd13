package events

// Kind identifies an event for bus routing and wire dispatch.
type Kind string

const (
	KindGameStarted   Kind = "game_started"
	KindDiceRolled    Kind = "dice_rolled"
	KindMoveRequested Kind = "move_requested"
	KindLadderHit     Kind = "ladder_hit"
	KindSnakeHit      Kind = "snake_hit"
	KindPieceMoved    Kind = "piece_moved"
	KindTurnEnded     Kind = "turn_ended"
	KindGameOver      Kind = "game_over"
	KindPlayerJoined  Kind = "player_joined"
	KindPlayerLeft    Kind = "player_left"
	KindIndexAssigned Kind = "index_assigned"
	KindPositionSync  Kind = "position_sync"
)

// Relayed lists the kinds the authority rebroadcasts to every participant.
var Relayed = []Kind{
	KindGameStarted,
	KindDiceRolled,
	KindMoveRequested,
	KindLadderHit,
	KindSnakeHit,
	KindPieceMoved,
	KindTurnEnded,
	KindGameOver,
	KindPlayerJoined,
	KindPlayerLeft,
}

// Event is an immutable record published on the bus.
type Event interface {
	Kind() Kind
}

type GameStarted struct {
	PlayerCount      int
	FirstPlayerIndex int
}

type DiceRolled struct {
	PlayerIndex int
	Result      int // value applied to the move
	RawRoll     int // value drawn from the die before any forced override
}

type MoveRequested struct {
	PlayerIndex int
	Steps       int
}

// LadderHit is published when a landing tile jumps forward.
type LadderHit struct {
	PlayerIndex int
	From        int
	To          int
}

// SnakeHit is published when a landing tile jumps backward.
type SnakeHit struct {
	PlayerIndex int
	From        int
	To          int
}

// PieceMoved carries the authoritative result of a move. Path is informational
// (the tiles walked before any jump) and is empty for rejected moves.
type PieceMoved struct {
	PlayerIndex int
	From        int
	To          int
	Path        []int
}

// TurnEnded names the new current player.
type TurnEnded struct {
	PlayerIndex int
}

type GameOver struct {
	WinnerIndex int
	WinnerName  string
}

type PlayerJoined struct {
	PlayerIndex int
	PlayerName  string
	Color       string
	IsAI        bool
}

type PlayerLeft struct {
	PlayerIndex int
}

// IndexAssigned is sent only to the participant that joined.
type IndexAssigned struct {
	PlayerIndex int
}

// PositionSync tells a late joiner where an existing piece rests and whether
// its owner holds the turn.
type PositionSync struct {
	PlayerIndex int
	Tile        int
	HasTurn     bool
}

func (GameStarted) Kind() Kind   { return KindGameStarted }
func (DiceRolled) Kind() Kind    { return KindDiceRolled }
func (MoveRequested) Kind() Kind { return KindMoveRequested }
func (LadderHit) Kind() Kind     { return KindLadderHit }
func (SnakeHit) Kind() Kind      { return KindSnakeHit }
func (PieceMoved) Kind() Kind    { return KindPieceMoved }
func (TurnEnded) Kind() Kind     { return KindTurnEnded }
func (GameOver) Kind() Kind      { return KindGameOver }
func (PlayerJoined) Kind() Kind  { return KindPlayerJoined }
func (PlayerLeft) Kind() Kind    { return KindPlayerLeft }
func (IndexAssigned) Kind() Kind { return KindIndexAssigned }
func (PositionSync) Kind() Kind  { return KindPositionSync }
