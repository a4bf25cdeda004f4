package tools

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/opsgate/opsgate/internal/audit"
	"github.com/opsgate/opsgate/internal/opsdb"
)

const defaultHTTPTimeout = 15 * time.Second

// RunnerConfig configures the backends tool handlers execute against.
type RunnerConfig struct {
	DB    *opsdb.DB
	Trail *audit.Trail

	// TavilyAPIKey enables web_search; empty leaves the tool registered but
	// failing with a configuration error.
	TavilyAPIKey string

	// Endpoint overrides for tests; defaults are the public APIs.
	SearchURL   string
	ForecastURL string
	GeocodeURL  string

	HTTPClient *http.Client
	Logger     zerolog.Logger
}

// Runner executes tool calls against the operations database, the audit
// trail, and external HTTP APIs.
type Runner struct {
	db           *opsdb.DB
	trail        *audit.Trail
	tavilyAPIKey string
	searchURL    string
	forecastURL  string
	geocodeURL   string
	httpClient   *http.Client
	logger       zerolog.Logger
}

// NewRunner creates a tool runner.
func NewRunner(cfg RunnerConfig) *Runner {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	searchURL := cfg.SearchURL
	if searchURL == "" {
		searchURL = "https://api.tavily.com/search"
	}
	forecastURL := cfg.ForecastURL
	if forecastURL == "" {
		forecastURL = "https://api.open-meteo.com/v1/forecast"
	}
	geocodeURL := cfg.GeocodeURL
	if geocodeURL == "" {
		geocodeURL = "https://geocoding-api.open-meteo.com/v1/search"
	}
	return &Runner{
		db:           cfg.DB,
		trail:        cfg.Trail,
		tavilyAPIKey: cfg.TavilyAPIKey,
		searchURL:    searchURL,
		forecastURL:  forecastURL,
		geocodeURL:   geocodeURL,
		httpClient:   httpClient,
		logger:       cfg.Logger.With().Str("component", "tools").Logger(),
	}
}

// handlers binds tool names to their implementations.
func (r *Runner) handlers() map[string]Handler {
	return map[string]Handler{
		"sql_query":        r.sqlQuery,
		"database_schema":  r.databaseSchema,
		"web_search":       r.webSearch,
		"weather":          r.weather,
		"geocode_location": r.geocodeLocation,
		"view_audit_log":   r.viewAuditLog,
	}
}

// decodeArgs maps already schema-validated arguments onto a typed request.
func decodeArgs(args map[string]any, out any) error {
	if args == nil {
		args = map[string]any{}
	}
	encoded, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("invalid tool arguments: %w", err)
	}
	decoder := json.NewDecoder(bytes.NewReader(encoded))
	if err := decoder.Decode(out); err != nil {
		return fmt.Errorf("invalid tool arguments: %w", err)
	}
	return nil
}

func toMap(v any) (map[string]any, error) {
	encoded, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding tool response: %w", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(encoded, &decoded); err != nil {
		return nil, fmt.Errorf("decoding tool response: %w", err)
	}
	return decoded, nil
}
