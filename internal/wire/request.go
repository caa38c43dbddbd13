package wire

import (
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// Request is a decoded participant request.
type Request struct {
	Op     int64
	Forced int  // OpRequestRoll only; zero draws from the die
	Ready  bool // OpRequestReady only
}

func RollRequest(forced int) Request  { return Request{Op: OpRequestRoll, Forced: forced} }
func ReadyRequest(ready bool) Request { return Request{Op: OpRequestReady, Ready: ready} }
func StartGameRequest() Request       { return Request{Op: OpRequestStartGame} }

// RequestFields renders r as a Struct payload.
func RequestFields(r Request) (*structpb.Struct, error) {
	fields := map[string]interface{}{}
	switch r.Op {
	case OpRequestRoll:
		if r.Forced != 0 {
			fields["forced"] = r.Forced
		}
	case OpRequestReady:
		fields["ready"] = r.Ready
	case OpRequestStartGame:
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownOp, r.Op)
	}
	return structpb.NewStruct(fields)
}

// RequestFromFields validates a Struct payload for op. An empty payload is
// accepted for rolls and start requests.
func RequestFromFields(op int64, s *structpb.Struct) (Request, error) {
	r := reader{s: s}
	req := Request{Op: op}
	switch op {
	case OpRequestRoll:
		req.Forced = r.optionalInt("forced", 0)
	case OpRequestReady:
		if _, ok := r.field("ready"); !ok {
			return Request{}, fmt.Errorf("%w: ready flag missing", ErrMalformed)
		}
		req.Ready = r.bool("ready")
	case OpRequestStartGame:
	default:
		return Request{}, fmt.Errorf("%w: %d", ErrUnknownOp, op)
	}
	if r.err != nil {
		return Request{}, r.err
	}
	return req, nil
}

// EncodeRequest produces the op code and binary payload a client sends.
func EncodeRequest(r Request) (int64, []byte, error) {
	s, err := RequestFields(r)
	if err != nil {
		return 0, nil, err
	}
	data, err := proto.Marshal(s)
	if err != nil {
		return 0, nil, err
	}
	return r.Op, data, nil
}

// DecodeRequest parses a client payload received on a Nakama match.
func DecodeRequest(op int64, data []byte) (Request, error) {
	if !IsRequest(op) {
		return Request{}, fmt.Errorf("%w: %d", ErrUnknownOp, op)
	}
	s, err := unmarshalStruct(data)
	if err != nil {
		return Request{}, err
	}
	return RequestFromFields(op, s)
}
