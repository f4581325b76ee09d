// Package main provides the unified API service:
// - HTTP API for grouped product summaries and chart series
// - WebSocket stream pushing refresh notifications to dashboards
// - Background refresh loop recomputing aggregates on an interval
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"pricewatch/internal/aggregation"
	"pricewatch/internal/api"
	"pricewatch/internal/config"
	"pricewatch/internal/domain"
	"pricewatch/internal/observability"
	"pricewatch/internal/storage"
	chstore "pricewatch/internal/storage/clickhouse"
	"pricewatch/internal/storage/memory"
	"pricewatch/internal/storage/migrations"
	pgstore "pricewatch/internal/storage/postgres"
	"pricewatch/internal/stream"
)

func main() {
	// Load .env file if exists
	loadEnvFile()

	// Parse flags (config file and env as defaults)
	configPath := flag.String("config", os.Getenv("CONFIG_FILE"), "Path to YAML config file")
	httpAddr := flag.String("http-addr", "", "HTTP listen address (overrides config)")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string (overrides config)")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string (overrides config)")
	refreshInterval := flag.Duration("refresh-interval", 0, "Aggregation refresh interval (overrides config)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse")

	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	if *httpAddr != "" {
		cfg.HTTPAddr = *httpAddr
	}
	if *postgresDSN != "" {
		cfg.PostgresDSN = *postgresDSN
	}
	if *clickhouseDSN != "" {
		cfg.ClickhouseDSN = *clickhouseDSN
	}
	if *refreshInterval > 0 {
		cfg.RefreshInterval = *refreshInterval
	}

	if !*useMemory && (cfg.PostgresDSN == "" || cfg.ClickhouseDSN == "") {
		logger.Fatal("postgres and clickhouse DSNs are required (use --use-memory for in-memory storage)")
	}

	observability.SetDefaultNamespace(cfg.MetricsNamespace)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	documents, lineItems, cleanup, err := createStores(ctx, cfg, *useMemory)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	hub := stream.NewHub(nil, nil)
	defer hub.Close()

	app := api.NewApp(cfg, lineItems, documents, hub)

	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: app.Router(),
	}

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Printf("HTTP shutdown error: %v", err)
		}
	}()

	// Start refresh loop in background
	go runRefreshLoop(ctx, cfg, lineItems, hub, logger)

	logger.Printf("Starting HTTP server on %s", cfg.HTTPAddr)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("HTTP server error: %v", err)
	}

	logger.Println("Shutdown complete")
}

// createStores creates the document and line-item stores.
func createStores(ctx context.Context, cfg config.Config, useMemory bool) (storage.DocumentStore, storage.LineItemStore, func(), error) {
	if useMemory {
		return memory.NewDocumentStore(), memory.NewLineItemStore(), func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, nil, fmt.Errorf("postgres migrations: %w", err)
	}

	chConn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
	}

	cleanup := func() {
		chConn.Close()
		pool.Close()
	}

	return pgstore.NewDocumentStore(pool), chstore.NewLineItemStore(chConn), cleanup, nil
}

// runRefreshLoop recomputes the aggregated view on an interval and notifies
// stream subscribers. Handlers recompute per request as well; this loop exists
// so dashboards learn about new data without polling.
func runRefreshLoop(ctx context.Context, cfg config.Config, lineItems storage.LineItemStore, hub *stream.Hub, logger *log.Logger) {
	logger.Printf("Starting refresh loop (interval: %v)", cfg.RefreshInterval)

	ticker := time.NewTicker(cfg.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			refresh(ctx, lineItems, hub, logger)
		}
	}
}

func refresh(ctx context.Context, lineItems storage.LineItemStore, hub *stream.Hub, logger *log.Logger) {
	start := time.Now()

	var items []*domain.TransactionLineItem
	for _, dt := range []string{domain.DocumentTypeEstimate, domain.DocumentTypeOrder} {
		got, err := lineItems.GetByDocumentType(ctx, dt)
		if err != nil {
			logger.Printf("Refresh failed for %s: %v", dt, err)
			return
		}
		items = append(items, got...)
	}

	groups := aggregation.Aggregate(items, aggregation.Options{})
	observability.RecordAggregationRun(time.Since(start).Seconds(), len(groups), len(items))
	observability.Default().LastSuccessfulRefresh.SetToCurrentTime()

	hub.Broadcast(stream.Event{
		Type:   stream.EventProductsRefreshed,
		At:     time.Now().UTC(),
		Groups: len(groups),
	})
}

// loadEnvFile loads environment variables from .env file if it exists.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Don't override existing env vars
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
