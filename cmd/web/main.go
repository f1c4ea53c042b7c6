package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"marketshare-dashboard/internal/config"
	"marketshare-dashboard/internal/loader"
	"marketshare-dashboard/internal/market"
	"marketshare-dashboard/internal/middleware"
	"marketshare-dashboard/internal/observability"
	"marketshare-dashboard/internal/server"
	"marketshare-dashboard/internal/services"
	"marketshare-dashboard/internal/ui/templates"
)

const (
	renderTimeout = 10 * time.Second
	cacheMaxAge   = "public, max-age=300"
)

func productNames() []string {
	products := market.Products()
	names := make([]string, len(products))
	for i, p := range products {
		names[i] = p.String()
	}
	return names
}

// Template handler functions that can access the template functions
func handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), renderTimeout)
	defer cancel()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", cacheMaxAge)
	if err := templates.Dashboard(productNames()).Render(ctx, w); err != nil {
		http.Error(w, "render error", http.StatusInternalServerError)
	}
}

// newHandler wires the routes behind the middleware chain.
func newHandler(cfg *config.Config, analytics *services.Analytics, logger *slog.Logger) http.Handler {
	templateHandlers := &server.TemplateHandlers{
		Dashboard: handleDashboard,
	}

	srv := server.NewServer(analytics, logger, templateHandlers, server.Options{
		UploadMaxBytes: cfg.Data.UploadMaxBytes,
	})

	rateLimiter := middleware.NewRateLimiter(cfg.Security)

	middlewareChain := middleware.Chain(
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Logger(logger),
		middleware.Tracing(logger),
		middleware.SecurityHeaders(),
		middleware.CORS(cfg.Security),
		middleware.TrustedProxy(cfg.Security),
		middleware.RateLimit(rateLimiter, logger),
		middleware.Compression(cfg.Security.Compression, logger),
	)

	return middlewareChain(srv)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Logger)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"version", "1.0.0",
		"config", cfg,
	)

	store, err := loader.NewStore(cfg.Data.CacheEntries, cfg.Data.GeoNameProperty, logger)
	if err != nil {
		logger.Error("failed to create file cache", "error", err)
		os.Exit(1)
	}
	analytics := services.NewAnalytics(store)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Data.LoadTimeout)
	defer cancel()

	if err := analytics.LoadFromFiles(ctx, cfg.Data.SalesFile, cfg.Data.GeoFile); err != nil {
		logger.Error("failed to load source files", "error", err)
		os.Exit(1)
	}
	if cfg.Data.SalesFile == "" {
		logger.Warn("no SALES_FILE configured, waiting for an upload")
	}

	httpServer := &http.Server{
		Addr:         cfg.Address(),
		Handler:      newHandler(cfg, analytics, logger),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	gracefulServer := server.NewGracefulServer(httpServer, logger, cfg.Server)

	gracefulServer.RegisterShutdownHook(func(ctx context.Context) error {
		logger.Info("shutting down analytics service", "stats", analytics.Stats())
		return nil
	})

	logger.Info("starting graceful server")
	if err := gracefulServer.ListenAndServe(); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("application stopped gracefully")
}
