package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Harshitk-cp/dialogreply/internal/api/handlers"
	mw "github.com/Harshitk-cp/dialogreply/internal/api/middleware"
	"github.com/Harshitk-cp/dialogreply/internal/buildconfig"
	"github.com/Harshitk-cp/dialogreply/internal/config"
	"github.com/Harshitk-cp/dialogreply/internal/domain"
	"github.com/Harshitk-cp/dialogreply/internal/keynodes"
	"github.com/Harshitk-cp/dialogreply/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const rateLimitCleanupInterval = 10 * time.Minute

// Store is a graph store that can notify about changes.
type Store interface {
	domain.GraphStore
	domain.Subscriber
}

// HealthCheck reports whether the backing store is reachable.
type HealthCheck func(ctx context.Context) error

// App holds the router and background services for lifecycle management.
type App struct {
	Router     *chi.Mux
	Dispatcher *service.Dispatcher
	Dialog     *service.DialogService

	limiter *mw.RateLimiter
	stopCh  chan struct{}
}

func NewApp(ctx context.Context, s Store, health HealthCheck, llmClient domain.LLMClient, logger *zap.Logger) (*App, error) {
	k, err := keynodes.Resolve(ctx, s)
	if err != nil {
		return nil, fmt.Errorf("resolve keynodes: %w", err)
	}

	// Services
	actionSvc := service.NewActionService(s, k, logger)
	messageSvc := service.NewMessageSearcher(s, k, logger)
	languageSvc := service.NewLanguageSearcher(s, k, messageSvc)
	constructions := service.NewConstructionsGenerator(s, k)
	formatter := service.NewLLMReplyFormatter(s, k, llmClient, messageSvc, constructions, logger)
	orchestrator := service.NewReplyOrchestrator(s, k, actionSvc,
		service.NewRuleMatcher(s, k, logger),
		service.NewParameterAggregator(s, k, logger),
		messageSvc, languageSvc, formatter, logger)
	orchestrator.SetWaitTimeout(config.ReplyWaitTimeout())
	replyTarget := service.NewReplyTargetAgent(s, k, actionSvc, logger)
	dialogSvc := service.NewDialogService(s, k, actionSvc, messageSvc, constructions, logger)

	dispatcher := service.NewDispatcher(s, k, actionSvc, logger, orchestrator, replyTarget)
	dispatcher.SetWorkers(config.DispatchWorkers())

	// Handlers
	messageHandler := handlers.NewMessageHandler(dialogSvc)
	actionHandler := handlers.NewActionHandler(dialogSvc)

	r := chi.NewRouter()
	app := &App{
		Router:     r,
		Dispatcher: dispatcher,
		Dialog:     dialogSvc,
		limiter:    mw.NewRateLimiter(config.RateLimitRPS(), config.RateLimitBurst()),
		stopCh:     make(chan struct{}),
	}

	// Global middleware (order matters)
	r.Use(mw.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mw.Metrics)
	r.Use(mw.Logging(logger))
	r.Use(middleware.Recoverer)
	r.Use(app.limiter.Middleware)

	// Health and metrics (no auth)
	r.Get("/health", healthHandler(health))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(mw.APIKeyAuth(config.APIKey()))

		r.Route("/messages", func(r chi.Router) {
			r.Post("/", messageHandler.Create)
			r.Post("/{id}/reply", messageHandler.Reply)
		})
		r.Get("/actions/{id}", actionHandler.Get)
	})

	return app, nil
}

// Start launches the dispatcher and limiter housekeeping.
func (app *App) Start() {
	app.Dispatcher.Start()
	go app.limiter.RunCleanup(rateLimitCleanupInterval, app.stopCh)
}

// Stop waits for in-flight agents to return.
func (app *App) Stop() {
	close(app.stopCh)
	app.Dispatcher.Stop()
}

func healthHandler(check HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if check != nil {
			if err := check(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_ = json.NewEncoder(w).Encode(map[string]string{"status": "error", "error": err.Error()})
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"status":  "ok",
			"version": buildconfig.Version(),
		})
	}
}
