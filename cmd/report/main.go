// Report command generates the offline price book: a snapshot of every
// product group with its price statistics, rendered as markdown, CSV and
// XLSX files in the output directory.
//
// Usage:
//
//	go run ./cmd/report --use-fixtures
//	go run ./cmd/report --postgres-dsn=... --clickhouse-dsn=...
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"pricewatch/internal/domain"
	"pricewatch/internal/flatten"
	"pricewatch/internal/observability"
	"pricewatch/internal/reporting"
	"pricewatch/internal/storage"
	chstore "pricewatch/internal/storage/clickhouse"
	"pricewatch/internal/storage/memory"
	"pricewatch/internal/storage/migrations"
	pgstore "pricewatch/internal/storage/postgres"
)

func main() {
	outputDir := flag.String("output-dir", "docs", "Directory for generated report files")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	useFixtures := flag.Bool("use-fixtures", false, "Use in-memory fixture data instead of databases")
	docType := flag.String("type", "", "Restrict to one document type: estimate or order (default both)")
	flag.Parse()

	ctx := context.Background()

	var docTypes []string
	switch *docType {
	case "":
	case domain.DocumentTypeEstimate, domain.DocumentTypeOrder:
		docTypes = []string{*docType}
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown document type %q\n", *docType)
		os.Exit(1)
	}

	var lineItems storage.LineItemStore
	if *useFixtures {
		lineItems = createFixtureStore(ctx)
	} else {
		if *postgresDSN == "" || *clickhouseDSN == "" {
			fmt.Fprintln(os.Stderr, "Error: --postgres-dsn and --clickhouse-dsn are required (or pass --use-fixtures)")
			os.Exit(1)
		}
		store, cleanup, err := createDatabaseStore(ctx, *postgresDSN, *clickhouseDSN)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error connecting to databases: %v\n", err)
			os.Exit(1)
		}
		defer cleanup()
		lineItems = store
	}

	if err := os.MkdirAll(*outputDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output directory: %v\n", err)
		os.Exit(1)
	}

	gen := reporting.NewGenerator(lineItems)
	if *useFixtures {
		// Fixed clock for deterministic fixture output.
		fixedTime := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
		gen = gen.WithClock(func() time.Time { return fixedTime })
	}

	report, err := gen.Generate(ctx, docTypes)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating report: %v\n", err)
		os.Exit(1)
	}

	mdPath := filepath.Join(*outputDir, "PRICE_BOOK.md")
	if err := os.WriteFile(mdPath, []byte(reporting.RenderMarkdown(report)), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing markdown report: %v\n", err)
		os.Exit(1)
	}
	observability.RecordReportGenerated("markdown")

	csvPath := filepath.Join(*outputDir, "PRICE_BOOK.csv")
	if err := os.WriteFile(csvPath, []byte(reporting.RenderCSV(report.Groups)), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing CSV report: %v\n", err)
		os.Exit(1)
	}
	observability.RecordReportGenerated("csv")

	xlsxPath := filepath.Join(*outputDir, "PRICE_BOOK.xlsx")
	if err := writeXLSX(report, xlsxPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing XLSX report: %v\n", err)
		os.Exit(1)
	}
	observability.RecordReportGenerated("xlsx")

	fmt.Println("Price book generated successfully:")
	fmt.Printf("  - %s\n", mdPath)
	fmt.Printf("  - %s\n", csvPath)
	fmt.Printf("  - %s\n", xlsxPath)
	fmt.Printf("  (%d product groups, %d line items)\n", report.GroupCount, report.LineItemCount)
}

func writeXLSX(report *reporting.Report, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := reporting.RenderXLSX(report, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// createFixtureStore builds an in-memory line item store seeded with a
// small deterministic set of documents.
func createFixtureStore(ctx context.Context) storage.LineItemStore {
	store := memory.NewLineItemStore()
	items := flatten.FlattenDocuments(fixtureDocuments())
	if err := store.InsertBulk(ctx, items); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading fixtures: %v\n", err)
		os.Exit(1)
	}
	return store
}

// createDatabaseStore connects to both databases, runs migrations, and
// returns the ClickHouse-backed line item store.
func createDatabaseStore(ctx context.Context, postgresDSN, clickhouseDSN string) (storage.LineItemStore, func(), error) {
	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("postgres migrations: %w", err)
	}

	chConn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
	}

	cleanup := func() {
		chConn.Close()
		pool.Close()
	}
	return chstore.NewLineItemStore(chConn), cleanup, nil
}

// fixtureDocuments returns the demo document set used by --use-fixtures.
func fixtureDocuments() []*domain.Document {
	return []*domain.Document{
		{
			ID:             "fixture-est-1",
			DocumentNumber: "EST-2024-0001",
			Type:           domain.DocumentTypeEstimate,
			Status:         domain.DocumentStatusCompleted,
			CompanyID:      "comp-acme",
			CompanyName:    "Acme Corp",
			CreatedAt:      time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC),
			Items: []domain.DocumentItem{
				{Name: "Hex Bolt", Spec: "M8x40", UnitPrice: 12, Quantity: "500", Unit: "EA"},
				{Name: "Steel Plate", Spec: "3mm", UnitPrice: 4500, Quantity: "1,200kg", Unit: "kg"},
			},
		},
		{
			ID:             "fixture-est-2",
			DocumentNumber: "EST-2024-0002",
			Type:           domain.DocumentTypeEstimate,
			Status:         domain.DocumentStatusCompleted,
			CompanyID:      "comp-globex",
			CompanyName:    "Globex Industrial",
			CreatedAt:      time.Date(2024, 2, 14, 9, 0, 0, 0, time.UTC),
			Items: []domain.DocumentItem{
				{Name: "Hex Bolt", Spec: "M8x40", UnitPrice: 14, Quantity: "300", Unit: "EA"},
				{Name: "Steel Plate", Spec: "3mm", UnitPrice: 4200, Quantity: "800kg", Unit: "kg"},
			},
		},
		{
			ID:             "fixture-ord-1",
			DocumentNumber: "ORD-2024-0001",
			Type:           domain.DocumentTypeOrder,
			Status:         domain.DocumentStatusCompleted,
			CompanyID:      "comp-acme",
			CompanyName:    "Acme Corp",
			CreatedAt:      time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC),
			Items: []domain.DocumentItem{
				{Name: "Hex Bolt", Spec: "M8x40", UnitPrice: 13, Quantity: "1000", Unit: "EA"},
				{Name: "Copper Wire", Spec: "2.5mm2", UnitPrice: 950, Quantity: "2 rolls", Unit: "roll"},
			},
		},
	}
}
