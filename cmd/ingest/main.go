// Package main ingests CRM documents from a JSON export file: documents go
// into the document store, their content lines are flattened into transaction
// line items for the analytics store.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"pricewatch/internal/config"
	"pricewatch/internal/domain"
	"pricewatch/internal/flatten"
	"pricewatch/internal/observability"
	"pricewatch/internal/storage"
	chstore "pricewatch/internal/storage/clickhouse"
	"pricewatch/internal/storage/memory"
	"pricewatch/internal/storage/migrations"
	pgstore "pricewatch/internal/storage/postgres"
)

// inputDocument mirrors the CRM export format.
type inputDocument struct {
	ID             string                `json:"id"`
	DocumentNumber string                `json:"document_number"`
	Type           string                `json:"type"`
	Status         string                `json:"status"`
	CompanyID      string                `json:"company_id"`
	CompanyName    string                `json:"company_name"`
	Items          []domain.DocumentItem `json:"items"`
	CreatedAt      time.Time             `json:"created_at"`
}

func main() {
	loadEnvFile()

	configPath := flag.String("config", os.Getenv("CONFIG_FILE"), "Path to YAML config file")
	file := flag.String("file", "", "Path to JSON document export (required)")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string (overrides config)")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string (overrides config)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage (dry run)")

	flag.Parse()

	logger := log.New(os.Stdout, "[ingest] ", log.LstdFlags)

	if *file == "" {
		logger.Fatal("--file is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	if *postgresDSN != "" {
		cfg.PostgresDSN = *postgresDSN
	}
	if *clickhouseDSN != "" {
		cfg.ClickhouseDSN = *clickhouseDSN
	}
	if !*useMemory && (cfg.PostgresDSN == "" || cfg.ClickhouseDSN == "") {
		logger.Fatal("postgres and clickhouse DSNs are required (use --use-memory for a dry run)")
	}

	observability.SetDefaultNamespace(cfg.MetricsNamespace)

	ctx := context.Background()

	documents, lineItems, cleanup, err := createStores(ctx, cfg, *useMemory)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	docs, err := loadDocuments(*file)
	if err != nil {
		logger.Fatalf("Failed to load documents: %v", err)
	}
	logger.Printf("Loaded %d documents from %s", len(docs), *file)

	if err := run(ctx, logger, documents, lineItems, docs); err != nil {
		logger.Fatalf("Ingestion failed: %v", err)
	}
}

// run inserts the documents and flattens each one into the line-item store.
// Line items are inserted per document so a mid-run failure leaves no
// document permanently missing from analytics: on re-run, documents that
// already exist are still flattened, and the line-item store rejects the
// ones whose items landed before.
func run(ctx context.Context, logger *log.Logger, documents storage.DocumentStore, lineItems storage.LineItemStore, docs []*domain.Document) error {
	var inserted, duplicates, canceled, flattened, backfilled int

	for _, doc := range docs {
		duplicate := false
		if err := documents.Insert(ctx, doc); err != nil {
			if !errors.Is(err, storage.ErrDuplicateKey) {
				observability.RecordIngestionError("insert_document")
				return fmt.Errorf("insert document %s: %w", doc.DocumentNumber, err)
			}
			duplicate = true
			duplicates++
			observability.RecordDuplicateDocument()
		} else {
			inserted++
			observability.RecordDocumentIngested(doc.Type)
		}

		// Canceled documents are stored but never feed the price analytics
		if doc.Status == domain.DocumentStatusCanceled {
			canceled++
			continue
		}

		items := flatten.FlattenDocument(doc)
		if len(items) == 0 {
			continue
		}
		if err := lineItems.InsertBulk(ctx, items); err != nil {
			if errors.Is(err, storage.ErrDuplicateKey) {
				// Already flattened in an earlier run
				continue
			}
			observability.RecordIngestionError("insert_line_items")
			return fmt.Errorf("insert line items for %s: %w", doc.DocumentNumber, err)
		}
		flattened += len(items)
		if duplicate {
			backfilled++
		}
		observability.RecordLineItemsFlattened(len(items))
	}

	logger.Printf("Ingested %d documents (%d duplicates, %d backfilled, %d canceled excluded from analytics), %d line items",
		inserted, duplicates, backfilled, canceled, flattened)
	return nil
}

// loadDocuments parses and validates the export file.
func loadDocuments(path string) ([]*domain.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var input []inputDocument
	if err := json.Unmarshal(data, &input); err != nil {
		return nil, fmt.Errorf("parse file: %w", err)
	}

	docs := make([]*domain.Document, 0, len(input))
	for i, in := range input {
		if in.Type != domain.DocumentTypeEstimate && in.Type != domain.DocumentTypeOrder {
			return nil, fmt.Errorf("document %d: unknown type %q", i, in.Type)
		}
		status := in.Status
		if status == "" {
			status = domain.DocumentStatusPending
		}
		switch status {
		case domain.DocumentStatusPending, domain.DocumentStatusCompleted, domain.DocumentStatusCanceled:
		default:
			return nil, fmt.Errorf("document %d: unknown status %q", i, in.Status)
		}
		if in.CreatedAt.IsZero() {
			return nil, fmt.Errorf("document %d: created_at is required", i)
		}

		docs = append(docs, &domain.Document{
			ID:             in.ID,
			DocumentNumber: in.DocumentNumber,
			Type:           in.Type,
			Status:         status,
			CompanyID:      in.CompanyID,
			CompanyName:    in.CompanyName,
			Items:          in.Items,
			CreatedAt:      in.CreatedAt.UTC(),
		})
	}

	return docs, nil
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

// loadEnvFile loads environment variables from .env file if it exists.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return
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

		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
