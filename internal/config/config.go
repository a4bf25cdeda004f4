// Package config loads opsgate configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/opsgate/opsgate/internal/auth"
)

const (
	// TransportStdio runs the gateway over stdin/stdout.
	TransportStdio = "stdio"
	// TransportHTTP runs the gateway over HTTP with SSE tool streaming.
	TransportHTTP = "http"

	// AuditDriverSQLite persists audit records to a local sqlite file.
	AuditDriverSQLite = "sqlite"
	// AuditDriverPostgres persists audit records to postgres.
	AuditDriverPostgres = "postgres"

	defaultListenAddr  = ":27750"
	defaultOpsDBPath   = "data/operations.db"
	defaultAuditDSN    = "data/audit.db"
	defaultToolTimeout = 30 * time.Second
)

// Config holds service runtime configuration.
type Config struct {
	ListenAddr string
	LogLevel   string
	Transport  string

	AuthEnabled bool
	Credentials map[string]auth.Role

	AuditEnabled bool
	AuditDriver  string
	AuditDSN     string

	OpsDBPath    string
	TavilyAPIKey string

	ToolTimeout time.Duration

	MetricsEnabled bool
	TracesEnabled  bool
}

// Load returns configuration parsed from environment variables.
func Load() (Config, error) {
	cfg := Config{
		ListenAddr:     envOrDefault("OPSGATE_LISTEN_ADDR", defaultListenAddr),
		LogLevel:       strings.ToLower(strings.TrimSpace(envOrDefault("OPSGATE_LOG_LEVEL", "info"))),
		Transport:      strings.ToLower(strings.TrimSpace(envOrDefault("OPSGATE_TRANSPORT", TransportStdio))),
		AuthEnabled:    envBool("OPSGATE_AUTH_ENABLED", true),
		AuditEnabled:   envBool("OPSGATE_AUDIT_ENABLED", true),
		AuditDriver:    strings.ToLower(strings.TrimSpace(envOrDefault("OPSGATE_AUDIT_DRIVER", AuditDriverSQLite))),
		AuditDSN:       envOrDefault("OPSGATE_AUDIT_DSN", defaultAuditDSN),
		OpsDBPath:      envOrDefault("OPSGATE_OPSDB_PATH", defaultOpsDBPath),
		TavilyAPIKey:   strings.TrimSpace(os.Getenv("OPSGATE_TAVILY_API_KEY")),
		ToolTimeout:    envDuration("OPSGATE_TOOL_TIMEOUT", defaultToolTimeout),
		MetricsEnabled: envBool("OPSGATE_METRICS_ENABLED", true),
		TracesEnabled:  envBool("OPSGATE_TRACES_ENABLED", false),
	}

	switch cfg.Transport {
	case TransportStdio, TransportHTTP:
	default:
		return Config{}, fmt.Errorf("invalid OPSGATE_TRANSPORT %q (allowed: %s|%s)", cfg.Transport, TransportStdio, TransportHTTP)
	}

	switch cfg.AuditDriver {
	case AuditDriverSQLite, AuditDriverPostgres:
	default:
		return Config{}, fmt.Errorf("invalid OPSGATE_AUDIT_DRIVER %q (allowed: %s|%s)", cfg.AuditDriver, AuditDriverSQLite, AuditDriverPostgres)
	}

	credentials, err := parseCredentials(os.Getenv("OPSGATE_API_KEYS"))
	if err != nil {
		return Config{}, err
	}
	cfg.Credentials = credentials

	if cfg.AuthEnabled && len(cfg.Credentials) == 0 {
		return Config{}, fmt.Errorf("OPSGATE_AUTH_ENABLED is set but OPSGATE_API_KEYS is empty")
	}
	if cfg.ToolTimeout <= 0 {
		cfg.ToolTimeout = defaultToolTimeout
	}

	return cfg, nil
}

// parseCredentials parses "key:role,key:role" pairs.
func parseCredentials(raw string) (map[string]auth.Role, error) {
	credentials := map[string]auth.Role{}
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		key, roleName, found := strings.Cut(pair, ":")
		if !found {
			return nil, fmt.Errorf("OPSGATE_API_KEYS entry %q missing role", pair)
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return nil, fmt.Errorf("OPSGATE_API_KEYS contains empty key")
		}
		role, err := auth.ParseRole(strings.TrimSpace(roleName))
		if err != nil {
			return nil, fmt.Errorf("OPSGATE_API_KEYS: %w", err)
		}
		if _, exists := credentials[key]; exists {
			return nil, fmt.Errorf("OPSGATE_API_KEYS contains duplicate key")
		}
		credentials[key] = role
	}
	return credentials, nil
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envBool(key string, defaultVal bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultVal
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		switch strings.ToLower(value) {
		case "yes", "on":
			return true
		case "no", "off":
			return false
		default:
			return defaultVal
		}
	}
	return parsed
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultVal
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return defaultVal
	}
	return parsed
}
