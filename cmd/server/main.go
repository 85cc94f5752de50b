/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the shift compliance and payroll server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
 1. Load .env (if present), then parse command-line flags
 2. Configure the slog default logger
 3. Load the collective agreement (defaults or YAML/JSON file)
 4. Initialize SQLite store
 5. Create API handler, router and accrual scheduler
 6. Start server with graceful shutdown

COMMAND-LINE FLAGS (environment fallback in parentheses):
  -port        HTTP server port (PORT, default: 8080)
  -db          SQLite database path (DATABASE_PATH, default: shifts.db)
               Use ":memory:" for in-memory database
  -agreement   Agreement override file (AGREEMENT_FILE, default: none)
  -log-level   debug, info, warn, error (LOG_LEVEL, default: info)
  -accrual     Accrual check interval (ACCRUAL_INTERVAL, default: 1h, 0 disables)
  -origins     Comma-separated CORS origins (CORS_ORIGINS)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
 1. Stop the accrual scheduler
 2. Stop accepting new connections
 3. Wait for active requests to complete (30s timeout)
 4. Close database connection
 5. Exit

EXAMPLES:

	# Run with file database
	./server -db="./data/shifts.db"

	# Run with in-memory database and a custom agreement
	./server -db=":memory:" -agreement=./agreement.yaml

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - factory/agreement.go: Agreement file format
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/carework/shift-engine/api"
	"github.com/carework/shift-engine/factory"
	"github.com/carework/shift-engine/store/sqlite"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "warning: failed to load .env: %v\n", err)
	}

	// Flags
	port := flag.Int("port", envInt("PORT", 8080), "HTTP server port")
	dbPath := flag.String("db", envString("DATABASE_PATH", "shifts.db"), "SQLite database path")
	agreementPath := flag.String("agreement", envString("AGREEMENT_FILE", ""), "Agreement override file (YAML or JSON)")
	logLevel := flag.String("log-level", envString("LOG_LEVEL", "info"), "Log level")
	accrualInterval := flag.Duration("accrual", envDuration("ACCRUAL_INTERVAL", time.Hour), "Leave accrual check interval (0 disables)")
	origins := flag.String("origins", envString("CORS_ORIGINS", ""), "Comma-separated allowed CORS origins")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLevel(*logLevel)}))
	slog.SetDefault(logger)

	// Load agreement
	a, err := factory.LoadAgreementFile(*agreementPath)
	if err != nil {
		logger.Error("failed to load agreement", "path", *agreementPath, "error", err)
		os.Exit(1)
	}
	logger.Info("agreement loaded", "name", a.Name)

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		logger.Error("failed to initialize database", "path", *dbPath, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	// Initialize handler
	handler := api.NewHandler(store, a)

	// Start accrual scheduler
	scheduler := api.NewAccrualScheduler(handler)
	scheduler.Enabled = *accrualInterval > 0
	if scheduler.Enabled {
		scheduler.CheckInterval = *accrualInterval
	}
	scheduler.Start()
	defer scheduler.Stop()

	// Create router
	router := api.NewRouter(handler, api.RouterOptions{AllowedOrigins: splitList(*origins)})

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("server starting", "addr", server.Addr, "db", *dbPath)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	logger.Info("server stopped")
}

func envString(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v, err := strconv.Atoi(envString(key, strconv.Itoa(def)))
	if err != nil {
		return def
	}
	return v
}

func envDuration(key string, def time.Duration) time.Duration {
	v, err := time.ParseDuration(envString(key, def.String()))
	if err != nil {
		return def
	}
	return v
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
