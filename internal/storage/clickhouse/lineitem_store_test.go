package clickhouse

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pricewatch/internal/domain"
	"pricewatch/internal/idhash"
	"pricewatch/internal/storage"
)

func testItem(docID string, mutate func(*domain.TransactionLineItem)) *domain.TransactionLineItem {
	it := &domain.TransactionLineItem{
		ProductName:     "Widget",
		ProductSpec:     "10mm",
		CompanyID:       "comp-1",
		CompanyName:     "Acme Corp",
		UnitPrice:       100,
		Quantity:        "10",
		Unit:            "EA",
		TransactionDate: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		DocumentID:      docID,
		DocumentNumber:  "EST-001",
		DocumentType:    domain.DocumentTypeEstimate,
	}
	if mutate != nil {
		mutate(it)
	}
	return it
}

func TestLineItemStore_InsertBulk(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewLineItemStore(conn)
	ctx := context.Background()

	// Empty insert is a no-op
	err := store.InsertBulk(ctx, nil)
	assert.NoError(t, err)

	err = store.InsertBulk(ctx, []*domain.TransactionLineItem{testItem("doc-1", nil)})
	require.NoError(t, err)

	got, err := store.GetByDocumentType(ctx, domain.DocumentTypeEstimate)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Widget", got[0].ProductName)
	assert.Equal(t, "10mm", got[0].ProductSpec)
	assert.Equal(t, "Acme Corp", got[0].CompanyName)
	assert.Equal(t, 100.0, got[0].UnitPrice)
	assert.Equal(t, "10", got[0].Quantity)
	assert.Equal(t, "EA", got[0].Unit)
	assert.Equal(t, "doc-1", got[0].DocumentID)
	assert.True(t, got[0].TransactionDate.Equal(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)))
}

func TestLineItemStore_InsertBulk_DuplicateDocument(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewLineItemStore(conn)
	ctx := context.Background()

	err := store.InsertBulk(ctx, []*domain.TransactionLineItem{testItem("doc-1", nil)})
	require.NoError(t, err)

	// Re-ingesting the same document fails the whole batch
	batch := []*domain.TransactionLineItem{
		testItem("doc-2", nil),
		testItem("doc-1", nil),
	}
	err = store.InsertBulk(ctx, batch)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	got, err := store.GetByDocumentType(ctx, domain.DocumentTypeEstimate)
	require.NoError(t, err)
	assert.Len(t, got, 1, "failed batch must not be partially applied")
}

func TestLineItemStore_InsertBulk_MissingDocumentID(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewLineItemStore(conn)
	ctx := context.Background()

	err := store.InsertBulk(ctx, []*domain.TransactionLineItem{testItem("", nil)})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestLineItemStore_GetByGroupKey(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewLineItemStore(conn)
	ctx := context.Background()

	batch := []*domain.TransactionLineItem{
		testItem("doc-1", nil),
		// Identity varies only by case and whitespace, still the same group
		testItem("doc-2", func(it *domain.TransactionLineItem) {
			it.ProductName = "  WIDGET "
			it.UnitPrice = 150
			it.TransactionDate = time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
		}),
		testItem("doc-3", func(it *domain.TransactionLineItem) {
			it.ProductName = "Bolt"
			it.ProductSpec = "M8"
		}),
	}
	require.NoError(t, store.InsertBulk(ctx, batch))

	key := idhash.ComputeGroupKey("Widget", "10mm")
	got, err := store.GetByGroupKey(ctx, domain.DocumentTypeEstimate, key)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 100.0, got[0].UnitPrice)
	assert.Equal(t, 150.0, got[1].UnitPrice)
}

func TestLineItemStore_GetByDocumentType_Ordering(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewLineItemStore(conn)
	ctx := context.Background()

	// Two rows share a transaction date; ingestion order breaks the tie.
	batch := []*domain.TransactionLineItem{
		testItem("doc-1", func(it *domain.TransactionLineItem) {
			it.UnitPrice = 300
			it.TransactionDate = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
		}),
		testItem("doc-2", func(it *domain.TransactionLineItem) {
			it.UnitPrice = 100
			it.TransactionDate = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		}),
		testItem("doc-3", func(it *domain.TransactionLineItem) {
			it.UnitPrice = 200
			it.TransactionDate = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		}),
	}
	require.NoError(t, store.InsertBulk(ctx, batch))

	got, err := store.GetByDocumentType(ctx, domain.DocumentTypeEstimate)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, 100.0, got[0].UnitPrice)
	assert.Equal(t, 200.0, got[1].UnitPrice)
	assert.Equal(t, 300.0, got[2].UnitPrice)
}

func TestLineItemStore_GetByTimeRange(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewLineItemStore(conn)
	ctx := context.Background()

	batch := []*domain.TransactionLineItem{
		testItem("doc-1", func(it *domain.TransactionLineItem) {
			it.TransactionDate = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		}),
		testItem("doc-2", func(it *domain.TransactionLineItem) {
			it.TransactionDate = time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
		}),
		testItem("doc-3", func(it *domain.TransactionLineItem) {
			it.TransactionDate = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
		}),
	}
	require.NoError(t, store.InsertBulk(ctx, batch))

	// Both boundaries are inclusive
	got, err := store.GetByTimeRange(ctx, domain.DocumentTypeEstimate,
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
	)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "doc-1", got[0].DocumentID)
	assert.Equal(t, "doc-2", got[1].DocumentID)
}

func TestLineItemStore_GetByGroupKey_Empty(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewLineItemStore(conn)
	ctx := context.Background()

	got, err := store.GetByGroupKey(ctx, domain.DocumentTypeEstimate, idhash.ComputeGroupKey("nothing", "here"))
	require.NoError(t, err)
	assert.Empty(t, got)
}
