package app

import (
	"math/rand"
	"testing"

	"snakesladders/internal/config"
	"snakesladders/internal/domain"
	"snakesladders/internal/events"

	"github.com/heroiclabs/nakama-common/runtime"
)

// noopLogger implements runtime.Logger for tests that only need to satisfy the interface.
type noopLogger struct{}

func (noopLogger) Debug(string, ...interface{}) {}
func (noopLogger) Info(string, ...interface{})  {}
func (noopLogger) Warn(string, ...interface{})  {}
func (noopLogger) Error(string, ...interface{}) {}
func (noopLogger) WithField(string, interface{}) runtime.Logger {
	return noopLogger{}
}
func (noopLogger) WithFields(map[string]interface{}) runtime.Logger {
	return noopLogger{}
}
func (noopLogger) Fields() map[string]interface{} {
	return nil
}

// recorder captures every relayable event in publish order.
type recorder struct {
	events []events.Event
}

func record(bus *events.Bus) *recorder {
	rec := &recorder{}
	for _, kind := range events.Relayed {
		bus.Subscribe(kind, func(ev events.Event) { rec.events = append(rec.events, ev) })
	}
	return rec
}

func (r *recorder) kinds() []events.Kind {
	out := make([]events.Kind, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Kind()
	}
	return out
}

func (r *recorder) reset() {
	r.events = nil
}

func testConfig() config.GameConfig {
	cfg := config.Default()
	cfg.Jumps = nil
	cfg.AllowForcedRolls = true
	return cfg
}

type fixture struct {
	bus    *events.Bus
	roster *domain.Roster
	game   *Game
	rec    *recorder
}

func newFixture(t *testing.T, cfg config.GameConfig, players int) *fixture {
	t.Helper()
	bus := events.NewBus()
	roster := domain.NewRoster(cfg.MaxParticipants)
	roster.Attach(bus)
	for i := 0; i < players; i++ {
		if _, err := roster.AddPlayer(string(rune('a'+i)), "", false); err != nil {
			t.Fatalf("AddPlayer() error: %v", err)
		}
	}
	game, err := NewGame(bus, roster, cfg, rand.New(rand.NewSource(7)), noopLogger{})
	if err != nil {
		t.Fatalf("NewGame() error: %v", err)
	}
	rec := record(bus)
	return &fixture{bus: bus, roster: roster, game: game, rec: rec}
}

func (f *fixture) position(t *testing.T, index int) int {
	t.Helper()
	p, ok := f.roster.Player(index)
	if !ok {
		t.Fatalf("player %d missing", index)
	}
	return p.Position
}
