package wire

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// GameName tags every match label so quick match only finds snakes matches.
const GameName = "snakes"

// Label is the match label advertised for quick-match queries.
type Label struct {
	Open      bool
	Game      string
	Phase     string
	Players   int
	OpenSeats int
}

// MarshalLabel renders the label as JSON for the Nakama match listing.
func MarshalLabel(l Label) (string, error) {
	if l.Game == "" {
		l.Game = GameName
	}
	s, err := structpb.NewStruct(map[string]interface{}{
		"open":       l.Open,
		"game":       l.Game,
		"phase":      l.Phase,
		"players":    l.Players,
		"open_seats": l.OpenSeats,
	})
	if err != nil {
		return "", err
	}
	data, err := (&protojson.MarshalOptions{EmitUnpopulated: true}).Marshal(s)
	if err != nil {
		return "", fmt.Errorf("failed to marshal label: %w", err)
	}
	return string(data), nil
}

// ParseLabel reads a label produced by MarshalLabel.
func ParseLabel(raw string) (Label, error) {
	s := &structpb.Struct{}
	if err := protojson.Unmarshal([]byte(raw), s); err != nil {
		return Label{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	r := reader{s: s}
	l := Label{
		Open:      r.bool("open"),
		Game:      r.string("game"),
		Phase:     r.string("phase"),
		Players:   r.optionalInt("players", 0),
		OpenSeats: r.optionalInt("open_seats", 0),
	}
	return l, r.err
}
