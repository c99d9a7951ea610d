package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pactum-saas/pactum-web/internal/app"
	"github.com/pactum-saas/pactum-web/internal/auth"
	"github.com/pactum-saas/pactum-web/internal/console"
	"github.com/pactum-saas/pactum-web/internal/crm"
	"github.com/pactum-saas/pactum-web/internal/dashboard"
	"github.com/pactum-saas/pactum-web/internal/events"
	"github.com/pactum-saas/pactum-web/internal/finance"
	"github.com/pactum-saas/pactum-web/internal/observability"
	"github.com/pactum-saas/pactum-web/internal/pactum"
	"github.com/pactum-saas/pactum-web/internal/platform/cache"
	"github.com/pactum-saas/pactum-web/internal/projects"
	"github.com/pactum-saas/pactum-web/internal/public"
	"github.com/pactum-saas/pactum-web/internal/rbac"
	"github.com/pactum-saas/pactum-web/internal/shared"
	"github.com/pactum-saas/pactum-web/internal/tasks"
	"github.com/pactum-saas/pactum-web/internal/team"
	"github.com/pactum-saas/pactum-web/internal/view"
)

const sessionCookie = "pactum_session"

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	redisClient, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	sessionManager := shared.NewSessionManager(redisClient, sessionCookie, cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	templates, err := view.NewEngine()
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		os.Exit(1)
	}

	client := pactum.NewAPI(pactum.Options{
		BaseURL:    cfg.PactumAPIURL,
		HTTPClient: &http.Client{Timeout: cfg.PactumAPITimeout},
		Logger:     logger,
		Observer:   metrics,
	})

	var bus events.Bus
	switch cfg.EventBus {
	case app.EventBusLocal:
		local := events.NewLocalBus(metrics)
		defer func() { _ = local.Close() }()
		bus = local
	default:
		bus = events.NewRedisBus(redisClient, logger, metrics)
	}

	authManager := auth.NewManager(auth.ManagerOptions{
		API:      client,
		Sessions: sessionManager,
		Logger:   logger,
		Recorder: metrics,
	})
	pages := &view.Pages{Engine: templates, CSRF: csrfManager, Logger: logger, Forced: auth.ForcedFor}

	board := tasks.NewBoard(client, bus, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		SessionManager: sessionManager,
		CSRFManager:    csrfManager,
		AuthManager:    authManager,
		Table:          rbac.NewTable(cfg.FinanceAdminEmail),
		Metrics:        metrics,
		Health: app.PingFunc(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}),

		AuthHandler:      auth.NewHandler(logger, pages, csrfManager, client),
		PublicHandler:    public.NewHandler(pages),
		DashboardHandler: dashboard.NewHandler(logger, client, pages),
		ConsoleHandler:   console.NewHandler(logger, client, pages),
		ProjectsHandler:  projects.NewHandler(logger, client, bus, pages),
		TasksHandler:     tasks.NewHandler(logger, client, board, pages),
		EventsHandler:    events.NewHandler(bus, logger, auth.EventScope, cfg.EventHeartbeat).WithSignedIn(authManager.SignedIn),
		CRMHandler:       crm.NewHandler(logger, client, pages),
		TeamHandler:      team.NewHandler(logger, client, pages),
		FinanceHandler:   finance.NewHandler(logger, client, pages),
	})

	server := &http.Server{
		Addr:              cfg.AppAddr,
		Handler:           router,
		ReadTimeout:       cfg.AppReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server",
			slog.String("addr", cfg.AppAddr),
			slog.String("api", cfg.PactumAPIURL),
			slog.String("event_bus", cfg.EventBus))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
