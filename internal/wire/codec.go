package wire

import (
	"errors"
	"fmt"
	"math"

	"snakesladders/internal/events"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

var (
	ErrUnknownOp = errors.New("unknown op code")
	ErrMalformed = errors.New("malformed payload")
	// ErrRemote wraps an error frame sent by the server.
	ErrRemote = errors.New("server error")
)

// EventFields renders ev as a protobuf Struct and returns its op code.
func EventFields(ev events.Event) (int64, *structpb.Struct, error) {
	op, ok := OpFor(ev.Kind())
	if !ok {
		return 0, nil, fmt.Errorf("%w: kind %s", ErrUnknownOp, ev.Kind())
	}

	var fields map[string]interface{}
	switch e := ev.(type) {
	case events.GameStarted:
		fields = map[string]interface{}{"player_count": e.PlayerCount, "first_player_index": e.FirstPlayerIndex}
	case events.DiceRolled:
		fields = map[string]interface{}{"player_index": e.PlayerIndex, "result": e.Result, "raw_roll": e.RawRoll}
	case events.MoveRequested:
		fields = map[string]interface{}{"player_index": e.PlayerIndex, "steps": e.Steps}
	case events.LadderHit:
		fields = map[string]interface{}{"player_index": e.PlayerIndex, "from": e.From, "to": e.To}
	case events.SnakeHit:
		fields = map[string]interface{}{"player_index": e.PlayerIndex, "from": e.From, "to": e.To}
	case events.PieceMoved:
		path := make([]interface{}, len(e.Path))
		for i, tile := range e.Path {
			path[i] = tile
		}
		fields = map[string]interface{}{"player_index": e.PlayerIndex, "from": e.From, "to": e.To, "path": path}
	case events.TurnEnded:
		fields = map[string]interface{}{"player_index": e.PlayerIndex}
	case events.GameOver:
		fields = map[string]interface{}{"winner_index": e.WinnerIndex, "winner_name": e.WinnerName}
	case events.PlayerJoined:
		fields = map[string]interface{}{"player_index": e.PlayerIndex, "player_name": e.PlayerName, "color": e.Color, "is_ai": e.IsAI}
	case events.PlayerLeft:
		fields = map[string]interface{}{"player_index": e.PlayerIndex}
	case events.IndexAssigned:
		fields = map[string]interface{}{"player_index": e.PlayerIndex}
	case events.PositionSync:
		fields = map[string]interface{}{"player_index": e.PlayerIndex, "tile": e.Tile, "has_turn": e.HasTurn}
	default:
		return 0, nil, fmt.Errorf("%w: unsupported event %T", ErrUnknownOp, ev)
	}

	s, err := structpb.NewStruct(fields)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to build %s payload: %w", ev.Kind(), err)
	}
	return op, s, nil
}

// EventFromFields rebuilds an event from its op code and Struct payload.
func EventFromFields(op int64, s *structpb.Struct) (events.Event, error) {
	r := reader{s: s}
	var ev events.Event
	switch op {
	case OpGameStarted:
		ev = events.GameStarted{PlayerCount: r.int("player_count"), FirstPlayerIndex: r.int("first_player_index")}
	case OpDiceRolled:
		ev = events.DiceRolled{PlayerIndex: r.int("player_index"), Result: r.int("result"), RawRoll: r.int("raw_roll")}
	case OpMoveRequested:
		ev = events.MoveRequested{PlayerIndex: r.int("player_index"), Steps: r.int("steps")}
	case OpLadderHit:
		ev = events.LadderHit{PlayerIndex: r.int("player_index"), From: r.int("from"), To: r.int("to")}
	case OpSnakeHit:
		ev = events.SnakeHit{PlayerIndex: r.int("player_index"), From: r.int("from"), To: r.int("to")}
	case OpPieceMoved:
		ev = events.PieceMoved{PlayerIndex: r.int("player_index"), From: r.int("from"), To: r.int("to"), Path: r.ints("path")}
	case OpTurnEnded:
		ev = events.TurnEnded{PlayerIndex: r.int("player_index")}
	case OpGameOver:
		ev = events.GameOver{WinnerIndex: r.int("winner_index"), WinnerName: r.string("winner_name")}
	case OpPlayerJoined:
		ev = events.PlayerJoined{PlayerIndex: r.int("player_index"), PlayerName: r.string("player_name"), Color: r.string("color"), IsAI: r.bool("is_ai")}
	case OpPlayerLeft:
		ev = events.PlayerLeft{PlayerIndex: r.int("player_index")}
	case OpIndexAssigned:
		ev = events.IndexAssigned{PlayerIndex: r.int("player_index")}
	case OpPositionSync:
		ev = events.PositionSync{PlayerIndex: r.int("player_index"), Tile: r.int("tile"), HasTurn: r.bool("has_turn")}
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownOp, op)
	}
	if r.err != nil {
		return nil, r.err
	}
	return ev, nil
}

// EncodeEvent produces the op code and binary payload sent over a Nakama match.
func EncodeEvent(ev events.Event) (int64, []byte, error) {
	op, s, err := EventFields(ev)
	if err != nil {
		return 0, nil, err
	}
	data, err := proto.Marshal(s)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to marshal %s: %w", ev.Kind(), err)
	}
	return op, data, nil
}

// DecodeEvent parses a payload produced by EncodeEvent.
func DecodeEvent(op int64, data []byte) (events.Event, error) {
	s, err := unmarshalStruct(data)
	if err != nil {
		return nil, err
	}
	return EventFromFields(op, s)
}

// EncodeError builds the payload for OpError.
func EncodeError(code int, message string) ([]byte, error) {
	s, err := structpb.NewStruct(map[string]interface{}{"code": code, "message": message})
	if err != nil {
		return nil, err
	}
	return proto.Marshal(s)
}

// DecodeError parses an OpError payload.
func DecodeError(data []byte) (int, string, error) {
	s, err := unmarshalStruct(data)
	if err != nil {
		return 0, "", err
	}
	r := reader{s: s}
	code, message := r.int("code"), r.string("message")
	return code, message, r.err
}

func unmarshalStruct(data []byte) (*structpb.Struct, error) {
	s := &structpb.Struct{}
	if err := proto.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return s, nil
}

// reader pulls typed fields out of a Struct and keeps the first error.
type reader struct {
	s   *structpb.Struct
	err error
}

func (r *reader) field(name string) (*structpb.Value, bool) {
	if r.s == nil {
		return nil, false
	}
	v, ok := r.s.GetFields()[name]
	return v, ok
}

func (r *reader) fail(name, want string) {
	if r.err == nil {
		r.err = fmt.Errorf("%w: field %q is not %s", ErrMalformed, name, want)
	}
}

func (r *reader) int(name string) int {
	v, ok := r.field(name)
	if !ok {
		r.fail(name, "present")
		return 0
	}
	n, isNum := v.GetKind().(*structpb.Value_NumberValue)
	if !isNum || n.NumberValue != math.Trunc(n.NumberValue) {
		r.fail(name, "an integer")
		return 0
	}
	return int(n.NumberValue)
}

// optionalInt returns def when name is absent.
func (r *reader) optionalInt(name string, def int) int {
	if _, ok := r.field(name); !ok {
		return def
	}
	return r.int(name)
}

func (r *reader) ints(name string) []int {
	v, ok := r.field(name)
	if !ok {
		return nil
	}
	list := v.GetListValue()
	if list == nil {
		r.fail(name, "a list")
		return nil
	}
	if len(list.GetValues()) == 0 {
		return nil
	}
	out := make([]int, 0, len(list.GetValues()))
	for _, item := range list.GetValues() {
		n, isNum := item.GetKind().(*structpb.Value_NumberValue)
		if !isNum {
			r.fail(name, "a list of numbers")
			return nil
		}
		out = append(out, int(n.NumberValue))
	}
	return out
}

func (r *reader) string(name string) string {
	v, ok := r.field(name)
	if !ok {
		return ""
	}
	str, isStr := v.GetKind().(*structpb.Value_StringValue)
	if !isStr {
		r.fail(name, "a string")
		return ""
	}
	return str.StringValue
}

func (r *reader) bool(name string) bool {
	v, ok := r.field(name)
	if !ok {
		return false
	}
	b, isBool := v.GetKind().(*structpb.Value_BoolValue)
	if !isBool {
		r.fail(name, "a bool")
		return false
	}
	return b.BoolValue
}
