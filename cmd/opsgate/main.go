// Package main is the entry point for the opsgate gateway.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/opsgate/opsgate/api"
	"github.com/opsgate/opsgate/internal/audit"
	"github.com/opsgate/opsgate/internal/auth"
	"github.com/opsgate/opsgate/internal/config"
	"github.com/opsgate/opsgate/internal/dispatch"
	"github.com/opsgate/opsgate/internal/opsdb"
	"github.com/opsgate/opsgate/internal/policy"
	"github.com/opsgate/opsgate/internal/server"
	"github.com/opsgate/opsgate/internal/telemetry"
	"github.com/opsgate/opsgate/internal/tools"
)

// Set by goreleaser ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "opsgate",
		Short:         "Policy-enforcing tool invocation gateway",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(versionCmd(), serveCmd(), keygenCmd())
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("opsgate %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}
}

func keygenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Generate a new API credential",
		RunE: func(_ *cobra.Command, _ []string) error {
			credential, err := auth.GenerateCredential()
			if err != nil {
				return err
			}
			fmt.Println(credential)
			return nil
		},
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the gateway",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			return serve(cfg)
		},
	}
}

func serve(cfg config.Config) error {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	logger := zerolog.New(os.Stderr).With().Timestamp().Str("service", "opsgate").Str("version", version).Logger()

	logger.Info().Str("transport", cfg.Transport).Msg("starting opsgate")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := telemetry.InitTracing(ctx, telemetry.TraceConfig{
		ServiceName:    "opsgate",
		ServiceVersion: version,
		Enabled:        cfg.TracesEnabled,
	})
	if err != nil {
		return fmt.Errorf("initializing tracing: %w", err)
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if shutdownErr := shutdownTracing(shutdownCtx); shutdownErr != nil {
			logger.Error().Err(shutdownErr).Msg("failed to shut down tracing")
		}
	}()

	db, err := opsdb.Open(cfg.OpsDBPath, logger)
	if err != nil {
		return fmt.Errorf("opening operations database: %w", err)
	}
	defer db.Close()

	store, err := openAuditStore(cfg, logger)
	if err != nil {
		return fmt.Errorf("opening audit store: %w", err)
	}
	trail := audit.NewTrail(audit.TrailConfig{Store: store, Logger: logger})
	defer trail.Close()

	resolver, err := auth.NewResolver(cfg.AuthEnabled, cfg.Credentials)
	if err != nil {
		return fmt.Errorf("building credential resolver: %w", err)
	}

	runner := tools.NewRunner(tools.RunnerConfig{
		DB:           db,
		Trail:        trail,
		TavilyAPIKey: cfg.TavilyAPIKey,
		Logger:       logger,
	})
	registry, err := tools.NewRegistry(api.ToolsContract, runner)
	if err != nil {
		return fmt.Errorf("parsing tool contract: %w", err)
	}
	table, err := policy.NewTable(registry.PolicyEntries())
	if err != nil {
		return fmt.Errorf("building permission table: %w", err)
	}

	metrics := telemetry.NewMetrics()
	dispatcher := dispatch.New(dispatch.Config{
		Resolver:    resolver,
		Registry:    registry,
		Policy:      table,
		Trail:       trail,
		Metrics:     metrics,
		Logger:      logger,
		ToolTimeout: cfg.ToolTimeout,
	})

	switch cfg.Transport {
	case config.TransportStdio:
		stdio := server.NewStdioServer(registry, dispatcher, version, logger)
		if runErr := stdio.Run(ctx, os.Stdin, os.Stdout); runErr != nil {
			logger.Error().Err(runErr).Msg("stdio runtime stopped with error")
			return runErr
		}
		logger.Info().Msg("stdio runtime stopped")
		return nil

	case config.TransportHTTP:
		httpServer := server.NewHTTPServer(server.HTTPConfig{
			Config:     cfg,
			Version:    version,
			Contract:   api.ToolsContract,
			Registry:   registry,
			Dispatcher: dispatcher,
			Metrics:    metrics,
			Ready: func(ctx context.Context) error {
				return db.Ping(ctx)
			},
			Logger: logger,
		})
		srv := &http.Server{
			Addr:              cfg.ListenAddr,
			Handler:           httpServer.Router(),
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      0, // allow SSE streaming without forcing writer timeout.
			IdleTimeout:       120 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			logger.Info().Str("addr", cfg.ListenAddr).Msg("HTTP server listening")
			if serveErr := srv.ListenAndServe(); serveErr != nil && serveErr != http.ErrServerClosed {
				errCh <- serveErr
			}
		}()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-sigCh:
			logger.Info().Str("signal", sig.String()).Msg("received shutdown signal")
		case serveErr := <-errCh:
			logger.Error().Err(serveErr).Msg("HTTP server error")
		}
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer shutdownCancel()
		if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
			logger.Error().Err(shutdownErr).Msg("HTTP server shutdown error")
			return shutdownErr
		}
		logger.Info().Msg("server stopped gracefully")
		return nil

	default:
		return fmt.Errorf("unsupported transport %q", cfg.Transport)
	}
}

// openAuditStore picks the audit backend. With audit disabled the gateway
// still records every invocation to a bounded in-memory store; the gates are
// never skipped, recording just loses durability.
func openAuditStore(cfg config.Config, logger zerolog.Logger) (audit.Store, error) {
	if !cfg.AuditEnabled {
		logger.Warn().Msg("audit persistence disabled; records are held in memory only")
		return audit.NewMemStore(), nil
	}
	switch cfg.AuditDriver {
	case config.AuditDriverPostgres:
		return audit.OpenPostgres(cfg.AuditDSN)
	default:
		return audit.OpenSQLite(cfg.AuditDSN)
	}
}
