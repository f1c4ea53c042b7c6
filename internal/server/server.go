package server

import (
	"log/slog"
	"net/http"

	"marketshare-dashboard/internal/handlers"
	"marketshare-dashboard/internal/services"
)

type Server struct {
	analytics   *services.Analytics
	mux         *http.ServeMux
	logger      *slog.Logger
	apiHandlers *handlers.APIHandlers
	sseHandlers *handlers.SSEHandlers
}

type TemplateHandlers struct {
	Dashboard http.HandlerFunc
}

// Options are the request limits the handlers enforce.
type Options struct {
	UploadMaxBytes int64
}

func NewServer(analytics *services.Analytics, logger *slog.Logger, templateHandlers *TemplateHandlers, opts Options) *Server {
	s := &Server{
		analytics:   analytics,
		mux:         http.NewServeMux(),
		logger:      logger,
		apiHandlers: handlers.NewAPIHandlers(analytics, logger, opts.UploadMaxBytes),
		sseHandlers: handlers.NewSSEHandlers(analytics, logger),
	}
	s.setupRoutes(templateHandlers)
	return s
}

func (s *Server) setupRoutes(templateHandlers *TemplateHandlers) {
	// Dashboard routes
	s.mux.HandleFunc("GET /{$}", templateHandlers.Dashboard)
	s.mux.HandleFunc("GET /health", s.apiHandlers.HandleHealth)
	s.mux.HandleFunc("GET /admin/stats", s.apiHandlers.HandleStats)

	// REST API endpoints
	s.mux.HandleFunc("GET /api/options", s.apiHandlers.HandleOptions)
	s.mux.HandleFunc("GET /api/cities", s.apiHandlers.HandleCities)
	s.mux.HandleFunc("GET /api/regions", s.apiHandlers.HandleRegions)
	s.mux.HandleFunc("GET /api/timeseries", s.apiHandlers.HandleTimeSeries)
	s.mux.HandleFunc("GET /api/timeseries.png", s.apiHandlers.HandleTimeSeriesPNG)
	s.mux.HandleFunc("GET /api/map", s.apiHandlers.HandleMap)
	s.mux.HandleFunc("GET /api/export.xlsx", s.apiHandlers.HandleExport)
	s.mux.HandleFunc("POST /api/upload/sales", s.apiHandlers.HandleUploadSales)
	s.mux.HandleFunc("POST /api/upload/geo", s.apiHandlers.HandleUploadGeo)

	// Datastar SSE endpoints
	s.mux.HandleFunc("GET /sse/refresh", s.sseHandlers.HandleRefresh)
	s.mux.HandleFunc("POST /sse/refresh", s.sseHandlers.HandleRefresh)
	s.mux.HandleFunc("GET /sse/filters", s.sseHandlers.HandleFilters)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
