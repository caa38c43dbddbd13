package wire

import (
	"fmt"

	"snakesladders/internal/events"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// Websocket frames carry the op code and payload in a single Struct:
// {"op": <number>, "payload": {...}}.

// EncodeFrame wraps payload under op.
func EncodeFrame(op int64, payload *structpb.Struct) ([]byte, error) {
	if payload == nil {
		payload = &structpb.Struct{}
	}
	frame := &structpb.Struct{Fields: map[string]*structpb.Value{
		"op":      structpb.NewNumberValue(float64(op)),
		"payload": structpb.NewStructValue(payload),
	}}
	return proto.Marshal(frame)
}

// DecodeFrame splits a frame into op code and payload.
func DecodeFrame(data []byte) (int64, *structpb.Struct, error) {
	frame, err := unmarshalStruct(data)
	if err != nil {
		return 0, nil, err
	}
	r := reader{s: frame}
	op := r.int("op")
	if r.err != nil {
		return 0, nil, r.err
	}
	payload := &structpb.Struct{}
	if v, ok := frame.GetFields()["payload"]; ok {
		payload = v.GetStructValue()
		if payload == nil {
			return 0, nil, fmt.Errorf("%w: payload is not an object", ErrMalformed)
		}
	}
	return int64(op), payload, nil
}

// EncodeEventFrame renders ev as a websocket frame.
func EncodeEventFrame(ev events.Event) ([]byte, error) {
	op, s, err := EventFields(ev)
	if err != nil {
		return nil, err
	}
	return EncodeFrame(op, s)
}

// EncodeErrorFrame renders an OpError frame.
func EncodeErrorFrame(code int, message string) ([]byte, error) {
	s, err := structpb.NewStruct(map[string]interface{}{"code": code, "message": message})
	if err != nil {
		return nil, err
	}
	return EncodeFrame(OpError, s)
}

// DecodeEventFrame parses a server frame. OpError frames are returned as an
// error wrapping ErrRemote.
func DecodeEventFrame(data []byte) (events.Event, error) {
	op, payload, err := DecodeFrame(data)
	if err != nil {
		return nil, err
	}
	if op == OpError {
		r := reader{s: payload}
		return nil, fmt.Errorf("%w: %d %s", ErrRemote, r.optionalInt("code", 0), r.string("message"))
	}
	return EventFromFields(op, payload)
}

// EncodeRequestFrame renders a client request as a websocket frame.
func EncodeRequestFrame(r Request) ([]byte, error) {
	s, err := RequestFields(r)
	if err != nil {
		return nil, err
	}
	return EncodeFrame(r.Op, s)
}

// DecodeRequestFrame parses a client frame.
func DecodeRequestFrame(data []byte) (Request, error) {
	op, payload, err := DecodeFrame(data)
	if err != nil {
		return Request{}, err
	}
	return RequestFromFields(op, payload)
}
