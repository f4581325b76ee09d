package main

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"pricewatch/internal/domain"
	"pricewatch/internal/storage"
	"pricewatch/internal/storage/memory"
)

// flakyLineItemStore fails the first n InsertBulk calls, then delegates.
type flakyLineItemStore struct {
	storage.LineItemStore
	failures int
}

func (s *flakyLineItemStore) InsertBulk(ctx context.Context, items []*domain.TransactionLineItem) error {
	if s.failures > 0 {
		s.failures--
		return errors.New("connection refused")
	}
	return s.LineItemStore.InsertBulk(ctx, items)
}

func testDoc(id string) *domain.Document {
	return &domain.Document{
		ID:             id,
		DocumentNumber: "EST-" + id,
		Type:           domain.DocumentTypeEstimate,
		Status:         domain.DocumentStatusCompleted,
		CompanyID:      "comp-1",
		CompanyName:    "Acme Corp",
		CreatedAt:      time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC),
		Items: []domain.DocumentItem{
			{Name: "Widget", Spec: "10mm", UnitPrice: 100, Quantity: "10", Unit: "EA"},
			{Name: "Bolt", Spec: "M8", UnitPrice: 20, Quantity: "500", Unit: "EA"},
		},
	}
}

func TestRun_RetryAfterLineItemFailure(t *testing.T) {
	ctx := context.Background()
	logger := log.New(io.Discard, "", 0)
	documents := memory.NewDocumentStore()
	lineItems := &flakyLineItemStore{LineItemStore: memory.NewLineItemStore(), failures: 1}
	docs := []*domain.Document{testDoc("doc-1")}

	// First run stores the document but fails on its line items.
	if err := run(ctx, logger, documents, lineItems, docs); err == nil {
		t.Fatal("expected first run to fail")
	}
	if _, err := documents.GetByID(ctx, "doc-1"); err != nil {
		t.Fatalf("document not stored by failed run: %v", err)
	}
	got, err := lineItems.GetByDocumentType(ctx, domain.DocumentTypeEstimate)
	if err != nil {
		t.Fatalf("get line items: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no line items after failed run, got %d", len(got))
	}

	// Re-run flattens the already-stored document's missing line items.
	if err := run(ctx, logger, documents, lineItems, docs); err != nil {
		t.Fatalf("retry run: %v", err)
	}
	got, err = lineItems.GetByDocumentType(ctx, domain.DocumentTypeEstimate)
	if err != nil {
		t.Fatalf("get line items: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 line items after retry, got %d", len(got))
	}
}

func TestRun_RerunIsIdempotent(t *testing.T) {
	ctx := context.Background()
	logger := log.New(io.Discard, "", 0)
	documents := memory.NewDocumentStore()
	lineItems := memory.NewLineItemStore()
	docs := []*domain.Document{testDoc("doc-1"), testDoc("doc-2")}

	if err := run(ctx, logger, documents, lineItems, docs); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := run(ctx, logger, documents, lineItems, docs); err != nil {
		t.Fatalf("second run: %v", err)
	}

	got, err := lineItems.GetByDocumentType(ctx, domain.DocumentTypeEstimate)
	if err != nil {
		t.Fatalf("get line items: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("expected 4 line items after re-run, got %d", len(got))
	}
}

func TestRun_CanceledExcludedFromAnalytics(t *testing.T) {
	ctx := context.Background()
	logger := log.New(io.Discard, "", 0)
	documents := memory.NewDocumentStore()
	lineItems := memory.NewLineItemStore()

	doc := testDoc("doc-1")
	doc.Status = domain.DocumentStatusCanceled

	if err := run(ctx, logger, documents, lineItems, []*domain.Document{doc}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if _, err := documents.GetByID(ctx, "doc-1"); err != nil {
		t.Fatalf("canceled document not stored: %v", err)
	}
	got, err := lineItems.GetByDocumentType(ctx, domain.DocumentTypeEstimate)
	if err != nil {
		t.Fatalf("get line items: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("canceled document leaked %d line items into analytics", len(got))
	}
}
