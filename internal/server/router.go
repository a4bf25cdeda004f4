package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/opsgate/opsgate/internal/config"
	"github.com/opsgate/opsgate/internal/dispatch"
	"github.com/opsgate/opsgate/internal/telemetry"
	"github.com/opsgate/opsgate/internal/tools"
)

// ReadyFunc reports whether the gateway's backends are reachable.
type ReadyFunc func(ctx context.Context) error

// HTTPServer wraps the gateway's HTTP routing state.
type HTTPServer struct {
	cfg        config.Config
	version    string
	contract   []byte
	registry   *tools.Registry
	dispatcher *dispatch.Dispatcher
	metrics    *telemetry.Metrics
	ready      ReadyFunc
	logger     zerolog.Logger
}

// HTTPConfig wires an HTTPServer.
type HTTPConfig struct {
	Config     config.Config
	Version    string
	Contract   []byte
	Registry   *tools.Registry
	Dispatcher *dispatch.Dispatcher
	Metrics    *telemetry.Metrics
	Ready      ReadyFunc
	Logger     zerolog.Logger
}

// NewHTTPServer creates an HTTP transport server with health and tool routes.
func NewHTTPServer(cfg HTTPConfig) *HTTPServer {
	return &HTTPServer{
		cfg:        cfg.Config,
		version:    cfg.Version,
		contract:   cfg.Contract,
		registry:   cfg.Registry,
		dispatcher: cfg.Dispatcher,
		metrics:    cfg.Metrics,
		ready:      cfg.Ready,
		logger:     cfg.Logger,
	}
}

// Router builds the gateway HTTP router.
func (s *HTTPServer) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(next, "opsgate")
	})
	r.Use(requestID)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	if s.cfg.MetricsEnabled && s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Get("/api/tools.yaml", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(s.contract)
	})

	r.Route("/mcp/v1", func(r chi.Router) {
		r.Post("/initialize", s.handleInitialize)
		r.Get("/tools", s.handleListTools)
		r.Post("/tools/call", s.handleCallTool)
		r.Post("/tools/call/sse", s.handleCallToolSSE)
		r.Get("/prompts", s.handleListPrompts)
		r.Post("/prompts/get", s.handleGetPrompt)
	})

	return r
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ok", "version": s.version})
}

func (s *HTTPServer) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		if err := s.ready(r.Context()); err != nil {
			respondJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "unavailable"})
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}
