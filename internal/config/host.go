package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// HostConfig configures the standalone websocket host.
type HostConfig struct {
	Addr           string        `env:"SNAKES_ADDR" envDefault:":8080"`
	BoardPath      string        `env:"SNAKES_BOARD_PATH"`
	AllowedOrigins []string      `env:"SNAKES_ALLOWED_ORIGINS" envSeparator:","`
	LogLevel       string        `env:"SNAKES_LOG_LEVEL" envDefault:"info"`
	TickInterval   time.Duration `env:"SNAKES_TICK_INTERVAL" envDefault:"100ms"`
	// RequestsPerSecond bounds inbound frames per connection.
	RequestsPerSecond float64 `env:"SNAKES_REQUESTS_PER_SECOND" envDefault:"5"`
	RequestBurst      int     `env:"SNAKES_REQUEST_BURST" envDefault:"10"`
	VoiceSecret       string  `env:"SNAKES_VOICE_SECRET"`
	VoiceIssuer       string  `env:"SNAKES_VOICE_ISSUER"`
	VoiceDomain       string  `env:"SNAKES_VOICE_DOMAIN"`

	BotIdentitiesPath string `env:"SNAKES_BOT_IDENTITIES_PATH" envDefault:"data/bot_identities.json"`
	// MaxRooms caps concurrently open rooms; zero means no cap.
	MaxRooms int `env:"SNAKES_MAX_ROOMS" envDefault:"100"`
	// RoomIdleTimeout closes rooms that have had no human for this long.
	RoomIdleTimeout time.Duration `env:"SNAKES_ROOM_IDLE_TIMEOUT" envDefault:"2m"`
}

// ParseHostEnv loads HostConfig from environment variables.
func ParseHostEnv() (HostConfig, error) {
	var cfg HostConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	if cfg.TickInterval <= 0 {
		return cfg, fmt.Errorf("%w: SNAKES_TICK_INTERVAL must be positive", ErrInvalidConfig)
	}
	if cfg.MaxRooms < 0 || cfg.RoomIdleTimeout <= 0 {
		return cfg, fmt.Errorf("%w: SNAKES_MAX_ROOMS must not be negative and SNAKES_ROOM_IDLE_TIMEOUT must be positive", ErrInvalidConfig)
	}
	return cfg, nil
}
