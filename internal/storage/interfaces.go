package storage

import (
	"context"
	"time"

	"pricewatch/internal/domain"
)

// DocumentStore provides access to CRM business documents.
type DocumentStore interface {
	// Insert adds a new document, assigning a uuid when ID is empty.
	// Returns ErrDuplicateKey if the id already exists.
	Insert(ctx context.Context, d *domain.Document) error

	// GetByID retrieves a document by its id. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, id string) (*domain.Document, error)

	// GetByType retrieves documents of a type filtered by status, ordered
	// by created_at DESC. An empty status list means pending + completed.
	GetByType(ctx context.Context, docType string, statuses []string) ([]*domain.Document, error)

	// GetByCompany retrieves all documents for a counterparty, ordered by
	// created_at DESC.
	GetByCompany(ctx context.Context, companyID string) ([]*domain.Document, error)

	// GetByTimeRange retrieves documents of a type created within
	// [start, end] (inclusive), ordered by created_at DESC.
	GetByTimeRange(ctx context.Context, docType string, start, end time.Time) ([]*domain.Document, error)
}

// LineItemStore provides access to flattened transaction line items, the
// analytics-side representation the aggregation engine consumes.
type LineItemStore interface {
	// InsertBulk appends all line items of one ingestion batch, preserving
	// input order. Returns ErrDuplicateKey if any item's document id has
	// been ingested before (re-flattening must be explicit).
	InsertBulk(ctx context.Context, items []*domain.TransactionLineItem) error

	// GetByDocumentType retrieves all line items for a document type,
	// ordered by transaction_date ASC with insertion order as tie-break.
	GetByDocumentType(ctx context.Context, docType string) ([]*domain.TransactionLineItem, error)

	// GetByGroupKey retrieves line items of a document type whose product
	// identity hashes to groupKey, in the same order as GetByDocumentType.
	GetByGroupKey(ctx context.Context, docType, groupKey string) ([]*domain.TransactionLineItem, error)

	// GetByTimeRange retrieves line items of a document type transacted
	// within [start, end] (inclusive), in the same order.
	GetByTimeRange(ctx context.Context, docType string, start, end time.Time) ([]*domain.TransactionLineItem, error)
}
