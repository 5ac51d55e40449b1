package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"

	"echoforge/auth"
	"echoforge/gateway"
	"echoforge/internal"
	"echoforge/moderation"
	"echoforge/realtime"
	"echoforge/repositories"
	"echoforge/runtime/workers"
	"echoforge/services"
)

// Exit codes to provide meaningful status to the operating system or
// service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	// The main function acts as a thin wrapper. Its only responsibility
	// is to call run() and handle the OS exit code.
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Server terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run initializes all components, manages the server lifecycle, and
// centralizes error reporting, so that deferred cleanup (database close,
// sequence release) always executes before the process exits.
func run() (int, error) {
	// 1. Configuration & logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}

	maskRune, err := internal.CharacterRune(config.CharReplacement)
	if err != nil {
		return exitConfig, err
	}

	logger := logs.GetLoggerFromString(config.LogLevel)

	// 2. Database (BadgerDB)
	options := badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING)

	db, err := badger.Open(options)
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		logger.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	// 3. Repositories
	users, err := repositories.NewUserRepository(db)
	if err != nil {
		return exitRuntime, err
	}
	defer func() { _ = users.Close() }()

	channels, err := repositories.NewChannelRepository(db)
	if err != nil {
		return exitRuntime, err
	}
	defer func() { _ = channels.Close() }()

	friends, err := repositories.NewFriendRepository(db)
	if err != nil {
		return exitRuntime, err
	}
	defer func() { _ = friends.Close() }()

	messages := repositories.NewMessageRepository(db, logger, config.LimitMessages)

	// 4. Moderation
	wordlist, err := moderation.LoadWordlist()
	if err != nil {
		return exitRuntime, err
	}
	logger.Info(fmt.Sprintf("%d censored words loaded [%s]",
		len(wordlist.Words), strings.Join(wordlist.Languages, ",")))

	moderator, err := moderation.NewModerator(wordlist.Words, maskRune)
	if err != nil {
		return exitRuntime, err
	}

	// 5. Realtime core
	tokens := auth.NewTokenService(config.JWTSecret, config.AuthTokenDuration)
	registry := realtime.NewSessionRegistry()
	rooms := realtime.NewRoomTracker()
	broadcaster := realtime.NewBroadcaster(logger, registry, rooms)
	router := realtime.NewRouter(logger, registry, rooms, messages, users, &moderator, config.MaxContentLength)
	lifecycle := realtime.NewLifecycle(logger, tokens, registry, rooms, users, broadcaster)

	// 6. Transport
	authService := services.NewAuthService(users, tokens)
	gw := gateway.NewGateway(logger, lifecycle, router, broadcaster, rooms, channels, config.ConnectionBufferSize)
	api := gateway.NewAPI(logger, tokens, users, channels, friends, messages)
	server := gateway.NewServer(logger, config.Addr(), gw, authService, api)

	// 7. Supervision & shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	supervisor := workers.NewSupervisor(logger)
	supervisor.Add(server)
	supervisor.Add(workers.NewHealthWorker(logger, config.MetricInterval, registry.OnlineCount))

	logger.Info("Starting supervisor and all workers", "addr", config.Addr())
	supervisor.Run(ctx)

	logger.Info("Server stopped")
	return exitOK, nil
}
