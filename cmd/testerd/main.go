package main

import (
	"context"
	"errors"
	"html/template"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"

	api "github.com/mind-engage/everify-tester/internal/api/http"
	auth "github.com/mind-engage/everify-tester/internal/auth/middleware"
	"github.com/mind-engage/everify-tester/internal/config"
	"github.com/mind-engage/everify-tester/internal/db"
	"github.com/mind-engage/everify-tester/internal/everify"
	"github.com/mind-engage/everify-tester/internal/history"
	"github.com/mind-engage/everify-tester/internal/logging"
	"github.com/mind-engage/everify-tester/internal/metrics"
	"github.com/mind-engage/everify-tester/internal/workspace"
	"github.com/mind-engage/everify-tester/web"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		// Use log before slog is initialized
		log.Fatalf("load .env: %v", err)
	}
	cfg := config.FromEnv()
	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	logger := logging.Logger

	// --- History ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	dbh, err := db.Open(ctx, db.Driver(cfg.HistoryDriver), cfg.HistoryDSN)
	cancel()
	if err != nil {
		logging.WithError(err).Error("history db open failed", "driver", cfg.HistoryDriver)
		os.Exit(1)
	}
	defer dbh.Close()
	repo := history.NewRepo(dbh)
	recorder := &history.Recorder{Repo: repo, Logger: logger}

	// --- Workspaces ---
	hooks := []workspace.Hook{recorder.Hook, logHook}
	reg := metrics.NewRegistry()
	if cfg.EnableMetrics {
		hooks = append(hooks, metrics.NewDispatchMetrics(reg).Hook)
	}
	registry := workspace.NewRegistry(workspace.Options{
		Endpoints: everify.Endpoints{Sandbox: cfg.SandboxBaseURL, Production: cfg.ProductionBaseURL},
		Client:    everify.NewClient(everify.ClientConfig{Timeout: cfg.ClientTimeout}),
		TokenTTL:  cfg.TokenTTL,
		Clock:     clockwork.NewRealClock(),
		Hooks:     hooks,
	})
	if cfg.EnableMetrics {
		metrics.RegisterWorkspaceGauge(reg, registry.Len)
	}

	templates, err := template.ParseFS(web.TemplateFiles, "templates/*.html")
	if err != nil {
		logger.Error("failed to parse templates", "error", err)
		os.Exit(1)
	}
	h := &api.Handlers{
		Registry:     registry,
		Sessions:     api.NewSessionStore(cfg.SessionSecret, cfg.SessionMaxAge, cfg.SecureCookies),
		History:      repo,
		HistoryLimit: cfg.HistoryLimit,
		TokenTTL:     cfg.TokenTTL,
		Templates:    templates,
		Logger:       logger,
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           newRouter(cfg, h, reg, dbh),
		ReadHeaderTimeout: 10 * time.Second,
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go registry.Run(runCtx, cfg.SweepInterval, cfg.WorkspaceIdleTTL, func(removed int) {
		logger.Info("idle workspaces swept", "removed", removed, "remaining", registry.Len())
	})

	go func() {
		<-runCtx.Done()
		logger.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown error", "error", err)
		}
	}()

	logger.Info("listening",
		"addr", cfg.HTTPAddr,
		"history", cfg.HistoryDriver,
		"sandbox", cfg.SandboxBaseURL,
		"production", cfg.ProductionBaseURL,
		"operator_gate", cfg.OperatorPassHash != "",
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// newRouter builds the HTTP surface. CORS sits ahead of the operator gate and
// the workspace cookie so preflights are answered without either.
func newRouter(cfg config.Config, h *api.Handlers, reg *prometheus.Registry, ready ...api.Pinger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, logging.RequestLogger(logging.Logger), middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.ClientTimeout + 5*time.Second))
	if cfg.EnableMetrics {
		r.Use(metrics.NewHTTPMetrics(reg).Middleware)
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if cfg.EnableMetrics {
		r.Handle("/metrics", metrics.Handler(reg))
	}
	r.Get("/healthz", api.HealthHandler())
	r.Get("/readyz", api.ReadyHandler(ready...))

	r.Group(func(pr chi.Router) {
		pr.Use(auth.OperatorGate(cfg.OperatorUser, cfg.OperatorPassHash))
		pr.Use(h.WithWorkspace)

		api.MountUI(pr, h)
		pr.Route("/api", func(ar chi.Router) {
			api.MountAPI(ar, h)
		})
	})
	return r
}

// logHook writes one line per exchange. Request and response bodies stay out
// of the log; they are in the history with secrets masked.
func logHook(ctx context.Context, workspaceID string, r everify.Result) {
	l := logging.WithWorkspace(workspaceID)
	if op := auth.OperatorFromContext(ctx); op != "" {
		l = l.With("operator", op)
	}
	l = l.With(
		"action", r.Action,
		"url", r.URL,
		"status", r.StatusCode,
		"outcome", r.Outcome,
		"duration_ms", r.Duration.Milliseconds(),
	)
	if r.Err != nil {
		l.Warn("everify exchange failed", "error", r.Err)
		return
	}
	l.Info("everify exchange")
}
