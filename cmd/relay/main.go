package main

import (
	"chat-relay/infrastructure/storage"
	"chat-relay/infrastructure/websocket"
	"chat-relay/internal"
	"chat-relay/observability"
	"chat-relay/runtime"
	"chat-relay/runtime/workers"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
	"go.uber.org/multierr"
)

// Exit codes to provide meaningful status to the operating system or service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Relay terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run wires the relay and blocks until a signal arrives.
// Every defer (database close included) runs before main exits.
func run() (code int, err error) {
	// 1. Configuration & Logger
	config, err := internal.LoadConfig()
	if err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	logger := logs.GetLoggerFromString(config.LogLevel)

	// 2. Database (BadgerDB)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLogger(storage.NewBadgerLogger(logger)).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		logger.Info("Closing BadgerDB...")
		if closeErr := db.Close(); closeErr != nil {
			err = multierr.Append(err, fmt.Errorf("database close: %w", closeErr))
			code = exitRuntime
		}
	}()

	// 3. Relay
	observability.RegisterMetrics()
	monitor := observability.NewRelayMonitor(logger)
	registry := runtime.NewRegistry()
	messageRepository := storage.NewMessageRepository(db, logger, nil, config.LimitMessages)
	relay := runtime.NewRelay(logger, registry, messageRepository, monitor, config.RelayConfig())

	server := websocket.NewServer(logger, relay, websocket.ServerConfig{
		Greeting:      config.Greeting,
		MaxFrameBytes: config.MaxFrameBytes,
		AllowedOrigin: config.AllowedOrigin,
	})

	// 4. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 5. Supervision
	sup := workers.NewSupervisor(logger, config.RestartInterval)
	sup.Add(
		workers.NewHTTPServerWorker(logger, config.HTTPAddress(), server.Routes()),
		workers.NewHealthWorker(logger, config.HealthAddress()),
		workers.NewValueLogGCWorker(logger, db, config.GCInterval),
		workers.NewStatsWorker(logger, monitor, config.StatsInterval),
	)

	logger.Info("Starting relay",
		"address", config.HTTPAddress(),
		"health_address", config.HealthAddress(),
		"failure_policy", config.FailurePolicy,
		"normalize_recipient", config.NormalizeRecipient)

	// Blocks until the signal cancels ctx and every worker returned.
	sup.Run(ctx)

	stats := monitor.LogSummary()
	logger.Info("Program stopped cleanly", "participants", stats.Participants)
	return exitOK, nil
}
