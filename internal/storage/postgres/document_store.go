package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"pricewatch/internal/domain"
	"pricewatch/internal/observability"
	"pricewatch/internal/storage"
)

// observe records query duration and outcome for the Prometheus DB metrics.
// Contract-level sentinels are not counted as infrastructure failures.
func observe(operation string, start time.Time, err error) {
	if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrDuplicateKey) || errors.Is(err, storage.ErrInvalidInput) {
		err = nil
	}
	observability.RecordDBQuery("postgres", operation, time.Since(start).Seconds(), err)
}

// DocumentStore implements storage.DocumentStore using PostgreSQL.
// Content line items are kept as a JSONB column, mirroring how the CRM
// captures loosely-structured document bodies.
type DocumentStore struct {
	pool *Pool
}

// NewDocumentStore creates a new DocumentStore.
func NewDocumentStore(pool *Pool) *DocumentStore {
	return &DocumentStore{pool: pool}
}

// Compile-time interface check.
var _ storage.DocumentStore = (*DocumentStore)(nil)

// Insert adds a new document, assigning a uuid when ID is empty.
// Returns ErrDuplicateKey if the id already exists.
func (s *DocumentStore) Insert(ctx context.Context, d *domain.Document) (err error) {
	start := time.Now()
	defer func() { observe("insert_document", start, err) }()
	if d == nil || d.Type == "" {
		return storage.ErrInvalidInput
	}
	if d.ID == "" {
		d.ID = uuid.NewString()
	}

	items, err := json.Marshal(d.Items)
	if err != nil {
		return fmt.Errorf("marshal document items: %w", err)
	}

	query := `
		INSERT INTO documents (
			id, document_number, type, status, company_id, company_name, items, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = s.pool.Exec(ctx, query,
		d.ID,
		d.DocumentNumber,
		d.Type,
		d.Status,
		d.CompanyID,
		d.CompanyName,
		items,
		d.CreatedAt.UTC(),
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

// GetByID retrieves a document by its id. Returns ErrNotFound if not exists.
func (s *DocumentStore) GetByID(ctx context.Context, id string) (doc *domain.Document, err error) {
	start := time.Now()
	defer func() { observe("get_by_id", start, err) }()
	query := `
		SELECT id, document_number, type, status, company_id, company_name, items, created_at
		FROM documents
		WHERE id = $1
	`

	row := s.pool.QueryRow(ctx, query, id)
	d, err := scanDocument(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get document by id: %w", err)
	}
	return d, nil
}

// GetByType retrieves documents of a type filtered by status, created_at DESC.
// An empty status list means pending + completed.
func (s *DocumentStore) GetByType(ctx context.Context, docType string, statuses []string) (docs []*domain.Document, err error) {
	start := time.Now()
	defer func() { observe("get_by_type", start, err) }()
	if len(statuses) == 0 {
		statuses = []string{domain.DocumentStatusPending, domain.DocumentStatusCompleted}
	}

	query := `
		SELECT id, document_number, type, status, company_id, company_name, items, created_at
		FROM documents
		WHERE type = $1 AND status = ANY($2)
		ORDER BY created_at DESC, id ASC
	`

	rows, err := s.pool.Query(ctx, query, docType, statuses)
	if err != nil {
		return nil, fmt.Errorf("get documents by type: %w", err)
	}
	defer rows.Close()

	return scanDocuments(rows)
}

// GetByCompany retrieves all documents for a counterparty, created_at DESC.
func (s *DocumentStore) GetByCompany(ctx context.Context, companyID string) (docs []*domain.Document, err error) {
	start := time.Now()
	defer func() { observe("get_by_company", start, err) }()
	query := `
		SELECT id, document_number, type, status, company_id, company_name, items, created_at
		FROM documents
		WHERE company_id = $1
		ORDER BY created_at DESC, id ASC
	`

	rows, err := s.pool.Query(ctx, query, companyID)
	if err != nil {
		return nil, fmt.Errorf("get documents by company: %w", err)
	}
	defer rows.Close()

	return scanDocuments(rows)
}

// GetByTimeRange retrieves documents of a type created within [start, end]
// (inclusive), created_at DESC.
func (s *DocumentStore) GetByTimeRange(ctx context.Context, docType string, start, end time.Time) (docs []*domain.Document, err error) {
	began := time.Now()
	defer func() { observe("get_by_time_range", began, err) }()
	query := `
		SELECT id, document_number, type, status, company_id, company_name, items, created_at
		FROM documents
		WHERE type = $1 AND created_at >= $2 AND created_at <= $3
		ORDER BY created_at DESC, id ASC
	`

	rows, err := s.pool.Query(ctx, query, docType, start.UTC(), end.UTC())
	if err != nil {
		return nil, fmt.Errorf("get documents by time range: %w", err)
	}
	defer rows.Close()

	return scanDocuments(rows)
}

// scanDocument scans a single document row.
func scanDocument(row pgx.Row) (*domain.Document, error) {
	var (
		d     domain.Document
		items []byte
	)
	err := row.Scan(
		&d.ID,
		&d.DocumentNumber,
		&d.Type,
		&d.Status,
		&d.CompanyID,
		&d.CompanyName,
		&items,
		&d.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(items) > 0 {
		if err := json.Unmarshal(items, &d.Items); err != nil {
			return nil, fmt.Errorf("unmarshal document items: %w", err)
		}
	}
	d.CreatedAt = d.CreatedAt.UTC()
	return &d, nil
}

// scanDocuments scans all document rows.
func scanDocuments(rows pgx.Rows) ([]*domain.Document, error) {
	var result []*domain.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		result = append(result, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return result, nil
}
