package nakama

import (
	"context"
	"database/sql"

	"snakesladders/internal/bot"

	"github.com/heroiclabs/nakama-common/runtime"
)

// InitModule wires RPCs, hooks and the match handler for the Nakama runtime.
func InitModule(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, initializer runtime.Initializer) error {
	env, _ := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string)
	if _, err := loadGameConfig(env); err != nil {
		logger.Error("InitModule: Invalid game config: %v", err)
		return err
	}

	pool := loadBotPool(env, logger)
	pool.Provision(ctx, nk, logger)

	if err := RegisterRPCs(initializer); err != nil {
		return err
	}

	if err := initializer.RegisterAfterAuthenticateDevice(AfterAuthenticateDevice); err != nil {
		return err
	}

	if err := initializer.RegisterMatch(MatchNameSnakes, func(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule) (runtime.Match, error) {
		return newMatchHandler(pool), nil
	}); err != nil {
		return err
	}

	logger.Info("Snakes & Ladders Go module loaded.")
	return nil
}

func loadBotPool(env map[string]string, logger runtime.Logger) *bot.Pool {
	path := env[EnvBotIdentitiesPath]
	if path == "" {
		path = defaultBotIdentitiesPath
	}
	pool, err := bot.LoadPool(path)
	if err != nil {
		logger.Warn("InitModule: Could not load bot identities from %s, using defaults: %v", path, err)
		return bot.DefaultPool()
	}
	return pool
}
