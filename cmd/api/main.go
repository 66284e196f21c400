package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/guppyfunds/consumer/internal/config"
	"github.com/guppyfunds/consumer/internal/database"
	guppyHttp "github.com/guppyfunds/consumer/internal/http"
	adminHandler "github.com/guppyfunds/consumer/internal/http/admin"
	queryHandler "github.com/guppyfunds/consumer/internal/http/query"
	statusHandler "github.com/guppyfunds/consumer/internal/http/status"
	uploadHandler "github.com/guppyfunds/consumer/internal/http/upload"
	"github.com/guppyfunds/consumer/internal/importer"
	"github.com/guppyfunds/consumer/internal/ingest"
	"github.com/guppyfunds/consumer/internal/logging"
	promMetrics "github.com/guppyfunds/consumer/internal/metrics/prometheus"
	"github.com/guppyfunds/consumer/internal/transaction"
	txStore "github.com/guppyfunds/consumer/internal/transaction/store"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if err := logging.Setup(os.Stdout, cfg.App.LogLevel, cfg.IsProduction()); err != nil {
		slog.Error("failed to configure logging", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	pool, err := database.New(ctx, cfg.ConnectionString(), database.PoolConfig{
		MaxConns:        cfg.DB.MaxConns,
		MinConns:        cfg.DB.MinConns,
		MaxConnLifetime: cfg.DB.MaxConnLifetime,
	})
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()

	if err := database.EnsureSchema(ctx, pool, cfg.DB.AmexTable, cfg.DB.WellsTable); err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	collector := promMetrics.NewCollector("guppy")
	if err := collector.Register(registry); err != nil {
		return fmt.Errorf("registering metrics: %w", err)
	}

	repo := txStore.NewBreaker(
		txStore.New(pool, txStore.Tables{Amex: cfg.DB.AmexTable, Wells: cfg.DB.WellsTable}),
		txStore.BreakerConfig{
			Name:                "postgres",
			MaxRequests:         cfg.Breaker.MaxRequests,
			Interval:            cfg.Breaker.Interval,
			Timeout:             cfg.Breaker.Timeout,
			ConsecutiveFailures: cfg.Breaker.ConsecutiveFailures,
			CallTimeout:         cfg.Breaker.CallTimeout,
		},
		collector,
	)

	var (
		filter   = ingest.NewDuplicateFilter(repo, collector)
		inserter = ingest.NewInserter(repo, filter, collector)
		pipeline = ingest.NewPipeline(importer.NewDetector(), inserter, collector)
	)

	var (
		uploadH = uploadHandler.NewHandler(pipeline, cfg.Server.UploadMaxBytes)
		queryH  = queryHandler.NewHandler(repo, filter)
		statusH = statusHandler.NewHandler(repo, statusHandler.Tables{
			transaction.BankAmex:       cfg.DB.AmexTable,
			transaction.BankWellsFargo: cfg.DB.WellsTable,
		}, cfg.App.Version).WithCircuit(repo)
		adminH = adminHandler.NewHandler(repo, func(ctx context.Context) error {
			return database.EnsureSchema(ctx, pool, cfg.DB.AmexTable, cfg.DB.WellsTable)
		}, adminHandler.Info{
			Name:        cfg.App.Name,
			Version:     cfg.App.Version,
			Environment: cfg.App.Environment,
			LogLevel:    cfg.App.LogLevel,
			Tables: adminHandler.Tables{
				transaction.BankAmex:       cfg.DB.AmexTable,
				transaction.BankWellsFargo: cfg.DB.WellsTable,
			},
		})
	)

	router := guppyHttp.New(
		uploadH,
		queryH,
		statusH,
		adminH,
		promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		cfg.Server.CORSOrigins,
	)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Server.Timeout,
	}

	errCh := make(chan error, 1)

	go func() {
		slog.Info("starting server", "app", cfg.App.Name, "port", srv.Addr, "environment", cfg.App.Environment)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}

		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.Timeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}

	return nil
}
