package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"presence-hub/auth"
	grpcserver "presence-hub/infrastructure/grpc/server"
	api "presence-hub/infrastructure/http"
	"presence-hub/infrastructure/ws"
	"presence-hub/internal"
	"presence-hub/observability"
	"presence-hub/repositories"
	"presence-hub/runtime"
	"presence-hub/runtime/workers"
	"presence-hub/services"
	"time"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"google.golang.org/grpc"
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
	}
	os.Exit(code)
}

// run wires every component, serves until a signal or a server failure,
// then shuts everything down and returns the exit code.
func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return 1, fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. History store (BadgerDB)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return 1, fmt.Errorf("database opening failed: %w", err)
	}

	// 3. Presence core
	sup := workers.NewSupervisor(log, config.RestartInterval)
	registry := runtime.NewRegistry()
	monitor := observability.NewMonitor(log)
	messageRepository := repositories.NewMessageRepository(db, log, config.LimitMessages)
	orchestrator := runtime.NewOrchestrator(log, sup, registry, messageRepository, monitor,
		config.BufferSize, config.ArchiveBufferSize, config.DeliveryTimeout, config.MetricInterval)
	service := services.NewPresenceService(orchestrator)
	validator := auth.NewTokenValidator(config.JwtSecret, config.JwtIssuer)

	ctx, cancel := context.WithCancel(context.Background())
	orchestratorDone := make(chan struct{})
	go func() {
		orchestrator.Start(ctx)
		close(orchestratorDone)
	}()

	// 4. Transports
	wsHandler := ws.NewHandler(log, service, validator, ws.Options{
		AllowedOrigins:       config.Origins(),
		ConnectionBufferSize: config.ConnectionBufferSize,
		MaxMessageSize:       int64(config.MaxMessageSize),
		RateLimitBurst:       config.RateLimitBurst,
		RateLimitInterval:    config.RateLimitInterval,
		DispatchTimeout:      config.DispatchTimeout,
	})
	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:           api.NewRouter(log, service, validator, wsHandler, config.Origins()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	grpcAddress := fmt.Sprintf("%s:%d", config.Host, config.GrpcPort)
	grpcListener, err := net.Listen("tcp", grpcAddress)
	if err != nil {
		cancel()
		<-orchestratorDone
		_ = db.Close()
		return 1, fmt.Errorf("failed to listen on %s: %w", grpcAddress, err)
	}
	healthServer := grpcserver.NewHealthServer(log)

	// Use an error channel to capture Serve() issues
	errChan := make(chan error, 2)
	go func() {
		log.Info("Starting HTTP server", "address", httpServer.Addr, "at", time.Now().UTC())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()
	go func() {
		if err := healthServer.Serve(grpcListener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			errChan <- fmt.Errorf("gRPC health server error: %w", err)
		}
	}()
	healthServer.SetServing(true)

	// 5. Shutdown operations
	operations := map[string]gfshutdown.Operation{
		"http": func(ctx context.Context) error {
			healthServer.SetServing(false)
			return httpServer.Shutdown(ctx)
		},
		"grpc-health": func(ctx context.Context) error {
			healthServer.Stop()
			return nil
		},
		// Badger is closed only once the archive worker stopped writing.
		"orchestrator": func(ctx context.Context) error {
			cancel()
			select {
			case <-orchestratorDone:
			case <-ctx.Done():
				return ctx.Err()
			}
			log.Info("Closing BadgerDB...")
			return db.Close()
		},
	}

	wait := gfshutdown.GracefulShutdown(context.Background(), config.ShutdownTimeout, operations)

	// 6. Wait for a signal or a server failure
	select {
	case code := <-wait:
		log.Info("Program stopped", "exit_code", code)
		return code, nil
	case err := <-errChan:
		shutdownNow(log, config.ShutdownTimeout, operations)
		return 1, err
	}
}

func shutdownNow(log *slog.Logger, timeout time.Duration, operations map[string]gfshutdown.Operation) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	for name, op := range operations {
		if err := op(ctx); err != nil {
			log.Error("Shutdown operation failed", "operation", name, "error", err)
		}
	}
}
