package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Harshitk-cp/dialogreply/internal/api"
	"github.com/Harshitk-cp/dialogreply/internal/config"
	"github.com/Harshitk-cp/dialogreply/internal/llm"
	"github.com/Harshitk-cp/dialogreply/internal/store"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const shutdownTimeout = 10 * time.Second

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the reply agents",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func newLogger() (*zap.Logger, error) {
	if err := config.Load(); err != nil {
		return nil, err
	}
	level, err := zapcore.ParseLevel(config.LogLevel())
	if err != nil {
		level = zapcore.InfoLevel
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	return cfg.Build()
}

// openStore returns the configured graph store, a health check for it and a
// cleanup func.
func openStore(ctx context.Context, logger *zap.Logger) (api.Store, api.HealthCheck, func(), error) {
	if config.StoreBackend() == config.StoreBackendMemory {
		logger.Info("using in-memory graph store")
		return store.NewMemoryGraphStore(), nil, func() {}, nil
	}

	dbURL := config.DatabaseURL()
	if dbURL == "" {
		return nil, nil, nil, errors.New("DATABASE_URL is required for the postgres store")
	}
	poolCfg, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("parse DATABASE_URL: %w", err)
	}
	poolCfg.MaxConns = config.DatabaseMaxConns()
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, nil, fmt.Errorf("ping database: %w", err)
	}

	s := store.NewPostgresGraphStore(pool)
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, nil, nil, fmt.Errorf("migrate graph schema: %w", err)
	}
	logger.Info("connected to database", zap.Int32("max_conns", poolCfg.MaxConns))
	closeStore := func() {
		s.Close()
		pool.Close()
	}
	return s, pool.Ping, closeStore, nil
}

func runServe(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	s, health, closeStore, err := openStore(ctx, logger)
	if err != nil {
		logger.Error("failed to open graph store", zap.Error(err))
		return err
	}
	defer closeStore()

	llmProvider := config.LLMProvider()
	llmClient, err := llm.NewClient(llmProvider, config.LLMAPIKey())
	if err != nil {
		logger.Error("LLM client initialization failed", zap.String("provider", llmProvider), zap.Error(err))
		return err
	}
	logger.Info("LLM client initialized", zap.String("provider", llmProvider))

	app, err := api.NewApp(ctx, s, health, llmClient, logger)
	if err != nil {
		logger.Error("failed to build app", zap.Error(err))
		return err
	}
	app.Start()

	addr := config.ServerAddr()
	srv := &http.Server{
		Addr:              addr,
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case <-quit:
		logger.Info("shutting down server")
	case err := <-serveErr:
		logger.Error("server failed", zap.Error(err))
		app.Stop()
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	// Agents last: requests accepted before shutdown may still be initiating actions.
	app.Stop()
	logger.Info("server stopped")
	return nil
}
