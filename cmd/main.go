package main

import (
	"chat-relay/auth"
	"chat-relay/infrastructure/http/server"
	"chat-relay/infrastructure/presence"
	"chat-relay/internal"
	"chat-relay/moderation"
	"chat-relay/repositories"
	"chat-relay/runtime"
	"chat-relay/runtime/workers"
	"chat-relay/services"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

// Exit codes to provide meaningful status to the operating system or service manager.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Chat relay terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run initializes all components, manages the server lifecycle and centralizes error reporting.
// Returning instead of exiting lets every defer (database, sequences) run first.
func run() (int, error) {
	// 1. Configuration & Logger
	// A missing .env file is fine, the environment may already be set.
	_ = godotenv.Load()

	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	if err := config.Validate(); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	charReplacement, err := internal.CharacterRune(config.CharReplacement)
	if err != nil {
		return exitConfig, err
	}

	logger := logs.GetLoggerFromString(config.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Database (BadgerDB)
	db, err := badger.Open(buildBadgerOpts(config, logger, ctx))
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		logger.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	userRepository, err := repositories.NewUserRepository(db)
	if err != nil {
		return exitRuntime, err
	}
	defer func() { _ = userRepository.Close() }()

	messageRepository, err := repositories.NewMessageRepository(db, logger)
	if err != nil {
		return exitRuntime, err
	}
	defer func() { _ = messageRepository.Close() }()

	// 3. Services
	tokens := auth.NewTokenService([]byte(config.AuthTokenSecret), config.AuthTokenDuration)
	authService := services.NewAuthService(userRepository, tokens, config.LimitUsers)
	chatService := services.NewChatService(messageRepository, userRepository, logger, config.MaxContentLength)

	// 4. Relay & optional collaborators
	registry := runtime.NewRegistry()
	sup := workers.NewSupervisor(logger, config.RestartInterval)
	sup.Add(workers.NewBadgerGCWorker(db, logger, config.GCInterval))

	var options []runtime.RelayOption
	if words := config.Words(); len(words) > 0 {
		moderator, err := moderation.NewModerator(words, charReplacement, logger)
		if err != nil {
			return exitConfig, fmt.Errorf("moderation setup failed: %w", err)
		}
		options = append(options, runtime.WithContentFilter(moderator))
		logger.Info("Moderation enabled", "words", len(words))
	}

	var redisPresence *presence.RedisPresence
	if config.RedisAddr != "" {
		redisPresence, err = presence.NewRedisPresence(ctx, presence.Config{
			Addr:     config.RedisAddr,
			Password: config.RedisPassword,
			DB:       config.RedisDB,
			TTL:      config.PresenceTTL,
		})
		if err != nil {
			return exitRuntime, fmt.Errorf("redis presence unavailable: %w", err)
		}
		defer func() { _ = redisPresence.Close() }()
		options = append(options, runtime.WithPresence(redisPresence))
		sup.Add(workers.NewPresenceHeartbeatWorker(logger, registry, redisPresence, config.PresenceTTL/2))
		logger.Info("Redis presence enabled", "addr", config.RedisAddr, "ttl", config.PresenceTTL)
	}

	relay := runtime.NewRelay(registry, chatService, chatService, logger, config.MaxContentLength, config.SendTimeout, options...)

	if logger.Enabled(ctx, slog.LevelDebug) {
		internal.StartDebugServer(ctx, logger, db, config.DebugPort, func() map[string]any {
			stats := map[string]any{"connections": registry.Len()}
			if redisPresence != nil {
				stats["presence_online"] = presenceOnline(ctx, redisPresence, registry, logger)
			}
			return stats
		})
	}

	// Error (HTTP server)
	errChan := make(chan error, 1)

	// 5. Background workers
	supervisorDone := make(chan struct{})
	go func() {
		defer close(supervisorDone)
		sup.Run(ctx)
	}()

	// 6. HTTP Server Setup
	srv := server.NewServer(logger, authService, chatService, tokens, registry, relay, server.Config{
		AllowedOrigins: config.Origins(),
		ReadLimit:      int64(config.ReadLimit),
		SendTimeout:    config.SendTimeout,
	})
	httpServer := srv.HTTPServer(ctx, config.Address())

	go func() {
		logger.Info("Starting HTTP server", "address", httpServer.Addr, "at", time.Now().UTC())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// 7. Wait for Stop or Error
	exitCode, runErr := exitOK, error(nil)
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-errChan:
		exitCode, runErr = exitRuntime, err
	}

	// 8. Graceful Shutdown
	// Live websocket sessions are hijacked connections, Shutdown does not wait for them.
	// Cancelling ctx ends them through their request context.
	logger.Info("Shutting down gracefully...")
	stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown incomplete", "error", err)
	}
	waitForSessions(shutdownCtx, registry)
	sup.Stop()
	<-supervisorDone
	logger.Info("Program stopped cleanly")

	return exitCode, runErr
}

// presenceOnline counts the registry's users that still hold a redis key, -1 when redis fails.
func presenceOnline(ctx context.Context, checker presence.Checker, registry *runtime.Registry, logger *slog.Logger) int {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	count, err := presence.CountOnline(ctx, checker, registry.Online())
	if err != nil {
		logger.Warn("Presence count failed", "error", err)
		return -1
	}
	return count
}

// waitForSessions gives live sessions the time to unregister before the store closes.
func waitForSessions(ctx context.Context, registry *runtime.Registry) {
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for registry.Len() > 0 {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func buildBadgerOpts(config internal.Config, logger *slog.Logger, ctx context.Context) badger.Options {
	options := badger.DefaultOptions(config.BadgerFilepath)

	if logger.Enabled(ctx, slog.LevelDebug) {
		options = options.WithLoggingLevel(badger.DEBUG)
	} else {
		options = options.WithLoggingLevel(badger.WARNING)
	}

	return options
}
