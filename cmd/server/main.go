/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the FinLens metrics engine server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env and resolve configuration (flags < file < environment)
  2. Initialize SQLite file store
  3. Load the industry benchmark table (embedded or CSV override)
  4. Build the narrative generator and analysis engine
  5. Configure HTTP router
  6. Start server with graceful shutdown

CONFIGURATION:
  --config path to a YAML config file; FINLENS_* environment variables
  override it. See config/config.go for the full key list.

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with file database
  FINLENS_DB_PATH=./data/finlens.db ./server

  # Run with in-memory database
  FINLENS_DB_PATH=":memory:" ./server

  # Run with the Anthropic insight generator
  FINLENS_NARRATIVE_PROVIDER=anthropic FINLENS_NARRATIVE_API_KEY=... ./server

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - filestore/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/finlens/metrics-engine/analysis"
	"github.com/finlens/metrics-engine/analysis/store"
	"github.com/finlens/metrics-engine/api"
	"github.com/finlens/metrics-engine/benchmark"
	"github.com/finlens/metrics-engine/config"
	"github.com/finlens/metrics-engine/filestore/sqlite"
	"github.com/finlens/metrics-engine/narrative"
)

var cfgFile string

func main() {
	rootCmd := &cobra.Command{
		Use:   "server",
		Short: "Start the FinLens financial metrics server",
		RunE:  runServer,
	}
	rootCmd.Flags().StringVarP(&cfgFile, "config", "c", "", "Path to a YAML config file")

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, _ []string) error {
	// .env is optional; absence is the normal production case.
	_ = godotenv.Load()

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	files, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer func() { _ = files.Close() }()

	benchmarks := benchmark.Default()
	if cfg.BenchmarkCSV != "" {
		benchmarks, err = benchmark.Load(cfg.BenchmarkCSV)
		if err != nil {
			return err
		}
	}

	narrator, err := narrative.New(narrative.Config{
		Provider:    cfg.Narrative.Provider,
		APIKey:      cfg.Narrative.APIKey,
		Model:       cfg.Narrative.Model,
		Temperature: cfg.Narrative.Temperature,
		MaxTokens:   cfg.Narrative.MaxTokens,
	})
	if err != nil {
		return err
	}

	engine := analysis.NewEngine(files, store.NewMemory())
	engine.Profiles = files
	engine.Benchmarks = benchmarks
	engine.Narrator = narrator

	handler := api.NewHandler(engine, files, benchmarks)
	router := api.NewRouter(handler, &logger, cfg.CORSOrigins)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Int("port", cfg.Port).Str("db", cfg.DBPath).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info().Msg("server stopped")
	return nil
}
