package main

import (
	"chat-relay/auth"
	grpcserver "chat-relay/infrastructure/grpc/server"
	"chat-relay/infrastructure/rest"
	"chat-relay/infrastructure/ws"
	"chat-relay/observability"
	"chat-relay/repositories"
	"chat-relay/runtime"
	"chat-relay/runtime/workers"
	"chat-relay/services"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run wires every component and owns the shutdown order, so deferred
// cleanups still execute when startup fails halfway.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Database (BadgerDB)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	users := repositories.NewUserRepository(db)
	messages := repositories.NewMessageRepository(db, log, config.LimitMessages)
	rooms, err := repositories.NewRoomRepository(db)
	if err != nil {
		return err
	}
	defer func() { _ = rooms.Close() }()
	files, err := repositories.NewDiskStore(config.UploadDir)
	if err != nil {
		return fmt.Errorf("upload directory: %w", err)
	}

	// 3. Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(registry)

	// 4. Realtime state & services
	presence := runtime.NewPresence()
	subscriptions := runtime.NewRegistry()
	typing := runtime.NewTypingTracker()
	broadcaster := runtime.NewBroadcaster(log, subscriptions, presence, metrics, config.SinkTimeout)

	tokens := auth.NewTokenManager(config.JwtSecret, config.JwtIssuer, config.JwtTTL)
	authenticator := auth.NewAuthenticator(log, tokens, users)
	sender := services.NewMessageService(log, messages, rooms, users, broadcaster, metrics)

	realtime := ws.NewHandler(log, config.realtime(), authenticator,
		services.NewSessionService(log, presence, subscriptions, typing, broadcaster, metrics),
		services.NewMembershipService(log, rooms, subscriptions),
		services.NewTypingService(typing, subscriptions, broadcaster),
		sender,
		metrics,
	)

	api := rest.NewServer(log, rest.Dependencies{
		Authenticator:  authenticator,
		Chats:          services.NewChatService(rooms, messages, users),
		Creator:        services.NewChatCreationCoordinator(log, rooms, presence, subscriptions, broadcaster, metrics),
		Messages:       sender,
		Profiles:       services.NewProfileService(users),
		Files:          files,
		MaxUploadBytes: config.MaxUploadBytes,
		Realtime:       realtime,
		Gatherer:       registry,
	})

	// 5. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 6. Background workers
	sup := workers.NewSupervisor(log, metrics, config.RestartInterval)
	orchestrator := runtime.NewOrchestrator(log, sup, db, metrics, config.GcInterval, config.MetricInterval)
	orchestrator.Start(ctx)

	// 7. Listeners
	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	server := &http.Server{
		Addr:              address,
		Handler:           api.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	grpcAddress := fmt.Sprintf("%s:%d", config.Host, config.GrpcPort)
	listener, err := net.Listen("tcp", grpcAddress)
	if err != nil {
		orchestrator.Stop()
		return fmt.Errorf("failed to listen on %s: %w", grpcAddress, err)
	}
	admin := grpcserver.NewAdminServer(log, authenticator)

	errChan := make(chan error, 2)
	go func() {
		log.Info("Starting HTTP server", "address", address, "at", time.Now().UTC())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()
	go func() {
		if err := admin.Serve(listener); err != nil {
			errChan <- fmt.Errorf("gRPC server error: %w", err)
		}
	}()

	// 8. Wait for Stop or Error
	var runErr error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case runErr = <-errChan:
		log.Error("Server failed, shutting down", "error", runErr)
	}

	// 9. Final Cleanup: connections first so every disconnect runs against
	// live state, then listeners, then workers.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()

	if err := realtime.Shutdown(shutdownCtx); err != nil {
		log.Warn("Realtime connections did not drain in time", "error", err)
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP server shutdown incomplete", "error", err)
	}
	admin.Shutdown()
	orchestrator.Stop()
	log.Info("Program stopped cleanly")

	return runErr
}
