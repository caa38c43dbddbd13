package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"

	"snakesladders/internal/domain"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid game config")

// GameConfig holds the rules and pacing for a session.
type GameConfig struct {
	DieFaces        int           `json:"die_faces"`
	WinningTile     int           `json:"winning_tile"`
	ExactRollToWin  bool          `json:"exact_roll_to_win"`
	Jumps           []domain.Jump `json:"jumps"`
	MaxParticipants int           `json:"max_participants"`
	MinParticipants int           `json:"min_participants"`
	// AIThinkDelayMillis is how long an AI participant waits before rolling.
	AIThinkDelayMillis int `json:"ai_think_delay_ms"`
	// BotAutoFillDelaySeconds configures how long a solo human waits before AI participants are added. Zero disables auto-fill.
	BotAutoFillDelaySeconds int  `json:"bot_auto_fill_delay_sec"`
	AutoStart               bool `json:"auto_start"`
	AllowForcedRolls        bool `json:"allow_forced_rolls"`
	ManualCompletion        bool `json:"manual_completion"`
}

// Default returns the classic 100-tile board.
func Default() GameConfig {
	return GameConfig{
		DieFaces:        6,
		WinningTile:     100,
		ExactRollToWin:  false,
		MaxParticipants: domain.MaxPlayers,
		MinParticipants: 2,
		Jumps: []domain.Jump{
			{From: 4, To: 14}, {From: 9, To: 31}, {From: 17, To: 7}, {From: 20, To: 38},
			{From: 28, To: 84}, {From: 40, To: 59}, {From: 51, To: 67}, {From: 54, To: 34},
			{From: 62, To: 19}, {From: 63, To: 81}, {From: 64, To: 60}, {From: 71, To: 91},
			{From: 87, To: 24}, {From: 93, To: 73}, {From: 95, To: 75}, {From: 99, To: 78},
		},
		AIThinkDelayMillis:      1500,
		BotAutoFillDelaySeconds: 5,
		AutoStart:               true,
	}
}

// LoadGameConfig reads a JSON config from path. Fields missing from the file
// keep their Default values.
func LoadGameConfig(path string) (GameConfig, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read game config: %w", err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to unmarshal game config: %w", err)
	}
	return cfg, nil
}

// Validate reports configuration errors that must stop a session from starting.
func (c GameConfig) Validate() error {
	if c.DieFaces < 1 {
		return fmt.Errorf("%w: die_faces must be at least 1, got %d", ErrInvalidConfig, c.DieFaces)
	}
	if c.MaxParticipants < 2 || c.MaxParticipants > domain.MaxPlayers {
		return fmt.Errorf("%w: max_participants must be between 2 and %d, got %d", ErrInvalidConfig, domain.MaxPlayers, c.MaxParticipants)
	}
	if c.MinParticipants < 2 || c.MinParticipants > c.MaxParticipants {
		return fmt.Errorf("%w: min_participants must be between 2 and max_participants, got %d", ErrInvalidConfig, c.MinParticipants)
	}
	if c.AIThinkDelayMillis < 0 || c.BotAutoFillDelaySeconds < 0 {
		return fmt.Errorf("%w: delays must not be negative", ErrInvalidConfig)
	}
	if _, err := c.Board(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// ValidateNetworked applies Validate plus the rules of a networked host. No
// remote participant can signal move completion, so manual completion would
// leave the first move in flight forever.
func (c GameConfig) ValidateNetworked() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.ManualCompletion {
		return fmt.Errorf("%w: manual_completion is only supported for local sessions", ErrInvalidConfig)
	}
	return nil
}

// Board builds the immutable jump table described by the config.
func (c GameConfig) Board() (*domain.Board, error) {
	return domain.NewBoard(c.WinningTile, c.Jumps)
}

// Env keys read from the Nakama runtime environment.
const (
	EnvDieFaces         = "snakes_die_faces"
	EnvWinningTile      = "snakes_winning_tile"
	EnvExactRollToWin   = "snakes_exact_roll_to_win"
	EnvMaxParticipants  = "snakes_max_participants"
	EnvMinParticipants  = "snakes_min_participants"
	EnvAIThinkDelayMs   = "snakes_ai_think_delay_ms"
	EnvBotAutoFillDelay = "snakes_bot_auto_fill_delay_sec"
	EnvAutoStart        = "snakes_auto_start"
	EnvForcedRolls      = "snakes_allow_forced_rolls"
	EnvManualCompletion = "snakes_manual_completion"
	EnvBoardPath        = "snakes_board_path"
)

// ApplyEnv overlays runtime environment values. Unparseable values are
// returned as errors rather than silently ignored.
func (c *GameConfig) ApplyEnv(env map[string]string) error {
	ints := []struct {
		key    string
		target *int
	}{
		{EnvDieFaces, &c.DieFaces},
		{EnvWinningTile, &c.WinningTile},
		{EnvMaxParticipants, &c.MaxParticipants},
		{EnvMinParticipants, &c.MinParticipants},
		{EnvAIThinkDelayMs, &c.AIThinkDelayMillis},
		{EnvBotAutoFillDelay, &c.BotAutoFillDelaySeconds},
	}
	for _, field := range ints {
		val, ok := env[field.key]
		if !ok || val == "" {
			continue
		}
		i, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not an integer", ErrInvalidConfig, field.key, val)
		}
		*field.target = i
	}

	bools := []struct {
		key    string
		target *bool
	}{
		{EnvExactRollToWin, &c.ExactRollToWin},
		{EnvAutoStart, &c.AutoStart},
		{EnvForcedRolls, &c.AllowForcedRolls},
		{EnvManualCompletion, &c.ManualCompletion},
	}
	for _, field := range bools {
		val, ok := env[field.key]
		if !ok || val == "" {
			continue
		}
		b, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not a boolean", ErrInvalidConfig, field.key, val)
		}
		*field.target = b
	}
	return nil
}
