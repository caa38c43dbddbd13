package wire

import "snakesladders/internal/events"

// Op codes for client messages and server events.
const (
	// Client -> Server
	OpRequestRoll      int64 = 1
	OpRequestReady     int64 = 2
	OpRequestStartGame int64 = 3

	// Server -> Client events
	OpPlayerJoined  int64 = 101
	OpPlayerLeft    int64 = 102
	OpGameStarted   int64 = 103
	OpIndexAssigned int64 = 104 // send privately
	OpDiceRolled    int64 = 105
	OpMoveRequested int64 = 106
	OpLadderHit     int64 = 107
	OpSnakeHit      int64 = 108
	OpPieceMoved    int64 = 109
	OpTurnEnded     int64 = 110
	OpGameOver      int64 = 111
	OpPositionSync  int64 = 112 // send privately
	OpError         int64 = 199
)

var kindOps = map[events.Kind]int64{
	events.KindPlayerJoined:  OpPlayerJoined,
	events.KindPlayerLeft:    OpPlayerLeft,
	events.KindGameStarted:   OpGameStarted,
	events.KindIndexAssigned: OpIndexAssigned,
	events.KindDiceRolled:    OpDiceRolled,
	events.KindMoveRequested: OpMoveRequested,
	events.KindLadderHit:     OpLadderHit,
	events.KindSnakeHit:      OpSnakeHit,
	events.KindPieceMoved:    OpPieceMoved,
	events.KindTurnEnded:     OpTurnEnded,
	events.KindGameOver:      OpGameOver,
	events.KindPositionSync:  OpPositionSync,
}

// OpFor returns the op code carrying kind.
func OpFor(kind events.Kind) (int64, bool) {
	op, ok := kindOps[kind]
	return op, ok
}

// IsRequest reports whether op is a client request.
func IsRequest(op int64) bool {
	return op >= OpRequestRoll && op <= OpRequestStartGame
}
