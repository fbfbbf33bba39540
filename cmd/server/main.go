/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the partner ledger server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env, environment, flags)
  2. Build the zap logger
  3. Initialize SQLite store
  4. Create ledger service, reporter and API handler
  5. Optionally seed demo data
  6. Start server with graceful shutdown

CONFIGURATION:
  See config/config.go for every flag and environment variable.

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/ledger.db"

  # Throwaway ledger with demo data
  ./server -db=":memory:" -env=development -seed

SEE ALSO:
  - api/server.go: Router configuration
  - ledger/service.go: Ledger operations
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/warp/partner-ledger/api"
	"github.com/warp/partner-ledger/config"
	"github.com/warp/partner-ledger/ledger"
	"github.com/warp/partner-ledger/report"
	"github.com/warp/partner-ledger/store/sqlite"
)

const shutdownTimeout = 30 * time.Second

func main() {
	os.Exit(start(os.Args[1:]))
}

// start returns the process exit code. The logger is flushed before main
// exits.
func start(args []string) int {
	cfg, err := config.Load(args)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return 2
	}

	log, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		return 1
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Error("server failed", zap.Error(err))
		return 1
	}
	return 0
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	if cfg.IsDevelopment() {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func run(cfg config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize store
	store, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer store.Close()

	svc := ledger.NewService(store, ledger.WithLogger(log.Named("ledger")))
	reporter := report.NewReporter(store,
		report.WithLowStockThreshold(cfg.LowStockThreshold),
		report.WithLogger(log.Named("report")))

	if cfg.SeedDemo {
		seeded, err := api.Seed(ctx, svc, time.Now())
		switch {
		case errors.Is(err, api.ErrAlreadySeeded):
			log.Info("demo seed skipped", zap.Error(err))
		case err != nil:
			return fmt.Errorf("failed to seed demo data: %w", err)
		default:
			log.Info("demo data seeded",
				zap.Int("products", seeded.Products),
				zap.Int("partners", seeded.Partners),
				zap.Int("orders", seeded.Orders))
		}
	}

	handler := api.NewHandler(svc, reporter, log.Named("http"))
	router := api.NewRouter(handler, api.RouterOptions{
		AllowedOrigins: cfg.CORSOrigins,
		EnableDemo:     cfg.IsDevelopment(),
	})

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // xlsx exports
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server starting",
			zap.String("addr", server.Addr),
			zap.String("db", cfg.DatabasePath),
			zap.String("env", cfg.Env))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("server stopped")
	return nil
}
