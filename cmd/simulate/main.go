// Command simulate plays an all-AI game locally and narrates it.
package main

import (
	"flag"
	"fmt"
	"io"
	"math/rand"
	"os"
	"time"

	"snakesladders/internal/authority"
	"snakesladders/internal/bot"
	"snakesladders/internal/config"
	"snakesladders/internal/events"
	"snakesladders/internal/logging"
	"snakesladders/internal/replica"
	"snakesladders/internal/wire"

	"github.com/heroiclabs/nakama-common/runtime"
)

// maxSimulatedTime bounds a run whose board cannot be won.
const maxSimulatedTime = 24 * time.Hour

type options struct {
	boardPath string
	players   int
	seed      int64
	step      time.Duration
}

// Summary is the outcome of a simulated game.
type Summary struct {
	Winner  string
	Rolls   int
	Elapsed time.Duration
}

func main() {
	var opts options
	var level string
	flag.StringVar(&opts.boardPath, "board", "", "path to a board JSON file")
	flag.IntVar(&opts.players, "players", 2, "number of AI players")
	flag.Int64Var(&opts.seed, "seed", time.Now().UnixNano(), "dice seed")
	flag.DurationVar(&opts.step, "step", 100*time.Millisecond, "simulated clock step")
	flag.StringVar(&level, "log-level", "warn", "log level")
	flag.Parse()

	logger := logging.New(level)
	summary, err := simulate(opts, os.Stdout, logger)
	if err != nil {
		logger.Error("simulate: %v", err)
		os.Exit(1)
	}
	fmt.Printf("%s wins after %d rolls (%s simulated)\n", summary.Winner, summary.Rolls, summary.Elapsed)
}

func simulate(opts options, out io.Writer, logger runtime.Logger) (Summary, error) {
	cfg := config.Default()
	if opts.boardPath != "" {
		loaded, err := config.LoadGameConfig(opts.boardPath)
		if err != nil {
			return Summary{}, err
		}
		cfg = loaded
	}
	if opts.players < cfg.MinParticipants || opts.players > cfg.MaxParticipants {
		return Summary{}, fmt.Errorf("players must be between %d and %d, got %d", cfg.MinParticipants, cfg.MaxParticipants, opts.players)
	}
	if opts.step <= 0 {
		return Summary{}, fmt.Errorf("step must be positive, got %s", opts.step)
	}
	// Every bot is seated before the game starts.
	cfg.AutoStart = false

	session, err := authority.NewSession(cfg, bot.DefaultPool(), rand.New(rand.NewSource(opts.seed)), logger)
	if err != nil {
		return Summary{}, err
	}
	defer session.Close()

	// The spectator sees the game the way a remote client would: through
	// encoded frames folded into a replica.
	spectator := replica.New()
	narrate(spectator.Bus(), out)

	clock := time.Unix(0, 0).UTC()
	session.Advance(clock)
	for i := 0; i < opts.players; i++ {
		if _, err := session.AddBot(); err != nil {
			return Summary{}, fmt.Errorf("failed to seat bot %d: %w", i, err)
		}
	}
	if err := session.Start(); err != nil {
		return Summary{}, fmt.Errorf("failed to start: %w", err)
	}

	var summary Summary
	start := clock
	for clock.Sub(start) < maxSimulatedTime {
		clock = clock.Add(opts.step)
		session.Advance(clock)
		for _, o := range session.Flush() {
			if len(o.Recipients) > 0 {
				continue
			}
			frame, err := wire.EncodeEventFrame(o.Event)
			if err != nil {
				return summary, err
			}
			ev, err := wire.DecodeEventFrame(frame)
			if err != nil {
				return summary, err
			}
			if err := spectator.Apply(ev); err != nil {
				return summary, err
			}
			switch e := ev.(type) {
			case events.DiceRolled:
				summary.Rolls++
			case events.GameOver:
				summary.Winner = e.WinnerName
				summary.Elapsed = clock.Sub(start)
				return summary, nil
			}
		}
	}
	return summary, fmt.Errorf("no winner after %s of simulated play", maxSimulatedTime)
}

func narrate(bus *events.Bus, out io.Writer) {
	names := map[int]string{}
	name := func(index int) string {
		if n, ok := names[index]; ok {
			return n
		}
		return fmt.Sprintf("player %d", index)
	}
	bus.Subscribe(events.KindPlayerJoined, func(ev events.Event) {
		e := ev.(events.PlayerJoined)
		names[e.PlayerIndex] = e.PlayerName
		fmt.Fprintf(out, "%s takes the %s piece\n", e.PlayerName, e.Color)
	})
	bus.Subscribe(events.KindGameStarted, func(ev events.Event) {
		e := ev.(events.GameStarted)
		fmt.Fprintf(out, "game starts with %d players, %s first\n", e.PlayerCount, name(e.FirstPlayerIndex))
	})
	bus.Subscribe(events.KindDiceRolled, func(ev events.Event) {
		e := ev.(events.DiceRolled)
		fmt.Fprintf(out, "%s rolls %d\n", name(e.PlayerIndex), e.Result)
	})
	bus.Subscribe(events.KindLadderHit, func(ev events.Event) {
		e := ev.(events.LadderHit)
		fmt.Fprintf(out, "  ladder! %d -> %d\n", e.From, e.To)
	})
	bus.Subscribe(events.KindSnakeHit, func(ev events.Event) {
		e := ev.(events.SnakeHit)
		fmt.Fprintf(out, "  snake! %d -> %d\n", e.From, e.To)
	})
	bus.Subscribe(events.KindPieceMoved, func(ev events.Event) {
		e := ev.(events.PieceMoved)
		fmt.Fprintf(out, "  %s: %d -> %d\n", name(e.PlayerIndex), e.From, e.To)
	})
	bus.Subscribe(events.KindGameOver, func(ev events.Event) {
		e := ev.(events.GameOver)
		fmt.Fprintf(out, "%s reaches the last tile\n", e.WinnerName)
	})
}
