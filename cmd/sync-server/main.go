package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	apphttp "github.com/gochippr/backend/pkg/app/http"
	"github.com/gochippr/backend/pkg/config"
	"github.com/gochippr/backend/pkg/ledgerstore"
	"github.com/gochippr/backend/pkg/pgutil"
	"github.com/gochippr/backend/pkg/provider"
	"github.com/gochippr/backend/pkg/syncer"
)

var (
	configPath = flag.String("config", "config.yaml", "Path to configuration file")
)

func main() {
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting provider sync server")

	// Initialize database
	db, err := pgutil.ConnectDB(&cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	logger.Info("Database connection established",
		zap.String("host", cfg.Database.Host),
		zap.String("database", cfg.Database.Database))

	store := ledgerstore.NewStore(db)

	// Initialize provider client. Access tokens come from the linked items
	// stored alongside the ledger.
	providerClient, err := provider.NewHTTPClient(provider.Config{
		BaseURL:  cfg.Provider.BaseURL,
		ClientID: cfg.Provider.ClientID,
		Secret:   cfg.Provider.Secret,
		PageSize: cfg.Provider.PageSize,
		Timeout:  cfg.Provider.RequestTimeout,
	}, &storeTokenSource{store: store})
	if err != nil {
		logger.Fatal("Failed to initialize provider client", zap.Error(err))
	}

	engine := syncer.NewEngine(providerClient, store, logger, cfg.Sync)

	// Setup HTTP server for API and metrics
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Minute))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	if cfg.Monitoring.Enabled {
		r.Handle("/metrics", promhttp.Handler())
		logger.Info("Metrics enabled")
	}

	r.Route("/api/v1", func(r chi.Router) {
		syncer.RegisterRoutes(r, engine, logger)
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := apphttp.ServeAndWait(ctx, r, logger, &cfg.Server); err != nil {
		logger.Fatal("Server exited with error", zap.Error(err))
	}

	logger.Info("Server stopped")
}

// storeTokenSource resolves provider access tokens from linked items
type storeTokenSource struct {
	store ledgerstore.Store
}

func (s *storeTokenSource) AccessToken(ctx context.Context, userID uuid.UUID, itemID string) (string, error) {
	return s.store.GetItemAccessToken(ctx, userID, itemID)
}
