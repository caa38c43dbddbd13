// Command wshost serves snakes & ladders rooms over websockets without Nakama.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"snakesladders/internal/bot"
	"snakesladders/internal/config"
	"snakesladders/internal/logging"
	"snakesladders/internal/ports/ws"
	"snakesladders/internal/voice"

	"github.com/gin-gonic/gin"
	"github.com/heroiclabs/nakama-common/runtime"
	"github.com/joho/godotenv"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// A missing .env is fine; the process environment still applies.
	_ = godotenv.Load()

	host, err := config.ParseHostEnv()
	if err != nil {
		logging.New("error").Error("wshost: %v", err)
		os.Exit(1)
	}
	logger := logging.New(host.LogLevel)
	if host.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	game, err := loadGameConfig(host.BoardPath)
	if err != nil {
		logger.Error("wshost: %v", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, host, game, loadBotPool(host.BotIdentitiesPath, logger), logger); err != nil {
		logger.Error("wshost: %v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, host config.HostConfig, game config.GameConfig, pool *bot.Pool, logger runtime.Logger) error {
	rooms := ws.NewManager(game, pool, host.TickInterval, logger)
	rooms.MaxRooms = host.MaxRooms
	rooms.IdleTimeout = host.RoomIdleTimeout
	defer rooms.Shutdown()

	voiceService := voice.NewService(host.VoiceSecret, host.VoiceIssuer, host.VoiceDomain)
	if !voiceService.Configured() {
		logger.Info("wshost: voice tokens disabled")
	}

	server := ws.NewServer(ws.ServerConfig{
		AllowedOrigins:    host.AllowedOrigins,
		RequestsPerSecond: host.RequestsPerSecond,
		RequestBurst:      host.RequestBurst,
	}, rooms, voiceService, logger)

	srv := &http.Server{
		Addr:              host.Addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("wshost: listening on %s", host.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("wshost: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func loadGameConfig(path string) (config.GameConfig, error) {
	cfg := config.Default()
	if path != "" {
		loaded, err := config.LoadGameConfig(path)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}
	return cfg, cfg.ValidateNetworked()
}

func loadBotPool(path string, logger runtime.Logger) *bot.Pool {
	pool, err := bot.LoadPool(path)
	if err != nil {
		logger.Warn("wshost: using built-in bot identities: %v", err)
		return bot.DefaultPool()
	}
	return pool
}
