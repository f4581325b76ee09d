package clickhouse

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pricewatch/internal/domain"
	"pricewatch/internal/idhash"
	"pricewatch/internal/observability"
	"pricewatch/internal/storage"
)

// observe records query duration and outcome for the Prometheus DB metrics.
// Contract-level sentinels are not counted as infrastructure failures.
func observe(operation string, start time.Time, err error) {
	if errors.Is(err, storage.ErrDuplicateKey) || errors.Is(err, storage.ErrInvalidInput) {
		err = nil
	}
	observability.RecordDBQuery("clickhouse", operation, time.Since(start).Seconds(), err)
}

// LineItemStore implements storage.LineItemStore using ClickHouse.
type LineItemStore struct {
	conn *Conn
}

// NewLineItemStore creates a new LineItemStore.
func NewLineItemStore(conn *Conn) *LineItemStore {
	return &LineItemStore{conn: conn}
}

// Compile-time interface check.
var _ storage.LineItemStore = (*LineItemStore)(nil)

// InsertBulk adds the line items of one or more documents. Fails the entire
// batch when any document has already been ingested.
func (s *LineItemStore) InsertBulk(ctx context.Context, items []*domain.TransactionLineItem) (err error) {
	start := time.Now()
	defer func() { observe("insert_bulk", start, err) }()
	if len(items) == 0 {
		return nil
	}

	for _, it := range items {
		if it == nil || it.DocumentID == "" {
			return storage.ErrInvalidInput
		}
	}

	// Check for documents already ingested in earlier batches
	seen := make(map[string]struct{})
	for _, it := range items {
		if _, ok := seen[it.DocumentID]; ok {
			continue
		}
		seen[it.DocumentID] = struct{}{}

		exists, err := s.documentExists(ctx, it.DocumentID)
		if err != nil {
			return fmt.Errorf("check document exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	// Read-then-assign of seq assumes a single ingest writer; concurrent
	// ingesters could interleave max(seq) reads and break tie-break ordering.
	nextSeq, err := s.maxSeq(ctx)
	if err != nil {
		return fmt.Errorf("read max seq: %w", err)
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO line_items (
			seq, group_key, product_name, product_spec,
			company_id, company_name, unit_price, quantity, unit,
			transaction_date, document_id, document_number, document_type
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, it := range items {
		nextSeq++
		err = batch.Append(
			nextSeq, idhash.ComputeGroupKey(it.ProductName, it.ProductSpec),
			it.ProductName, it.ProductSpec,
			it.CompanyID, it.CompanyName, it.UnitPrice, it.Quantity, it.Unit,
			it.TransactionDate.UTC(), it.DocumentID, it.DocumentNumber, it.DocumentType,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByDocumentType retrieves all line items of one document type, ordered by
// transaction date ASC with ingestion order breaking ties.
func (s *LineItemStore) GetByDocumentType(ctx context.Context, docType string) (items []*domain.TransactionLineItem, err error) {
	start := time.Now()
	defer func() { observe("get_by_document_type", start, err) }()
	query := `
		SELECT product_name, product_spec, company_id, company_name,
		       unit_price, quantity, unit, transaction_date,
		       document_id, document_number, document_type
		FROM line_items
		WHERE document_type = ?
		ORDER BY transaction_date ASC, seq ASC
	`

	rows, err := s.conn.Query(ctx, query, docType)
	if err != nil {
		return nil, fmt.Errorf("query by document type: %w", err)
	}
	defer rows.Close()

	return scanLineItems(rows)
}

// GetByGroupKey retrieves the line items of one document type sharing one
// product identity, ordered by transaction date ASC with ingestion order
// breaking ties.
func (s *LineItemStore) GetByGroupKey(ctx context.Context, docType, groupKey string) (items []*domain.TransactionLineItem, err error) {
	start := time.Now()
	defer func() { observe("get_by_group_key", start, err) }()
	query := `
		SELECT product_name, product_spec, company_id, company_name,
		       unit_price, quantity, unit, transaction_date,
		       document_id, document_number, document_type
		FROM line_items
		WHERE document_type = ? AND group_key = ?
		ORDER BY transaction_date ASC, seq ASC
	`

	rows, err := s.conn.Query(ctx, query, docType, groupKey)
	if err != nil {
		return nil, fmt.Errorf("query by group key: %w", err)
	}
	defer rows.Close()

	return scanLineItems(rows)
}

// GetByTimeRange retrieves line items of one document type with transaction
// date within [start, end] (inclusive), ordered by transaction date ASC.
func (s *LineItemStore) GetByTimeRange(ctx context.Context, docType string, start, end time.Time) (items []*domain.TransactionLineItem, err error) {
	began := time.Now()
	defer func() { observe("get_by_time_range", began, err) }()
	query := `
		SELECT product_name, product_spec, company_id, company_name,
		       unit_price, quantity, unit, transaction_date,
		       document_id, document_number, document_type
		FROM line_items
		WHERE document_type = ? AND transaction_date >= ? AND transaction_date <= ?
		ORDER BY transaction_date ASC, seq ASC
	`

	rows, err := s.conn.Query(ctx, query, docType, start.UTC(), end.UTC())
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanLineItems(rows)
}

// documentExists checks if any line item of the document was ingested before.
func (s *LineItemStore) documentExists(ctx context.Context, documentID string) (bool, error) {
	query := `
		SELECT count(*) FROM line_items
		WHERE document_id = ?
	`

	var count uint64
	err := s.conn.QueryRow(ctx, query, documentID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// maxSeq returns the highest assigned ingestion sequence number.
func (s *LineItemStore) maxSeq(ctx context.Context) (uint64, error) {
	var seq uint64
	err := s.conn.QueryRow(ctx, `SELECT max(seq) FROM line_items`).Scan(&seq)
	if err != nil {
		return 0, err
	}
	return seq, nil
}

// Rows interface for scanning
type chRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

// scanLineItems scans multiple rows into a slice.
func scanLineItems(rows chRows) ([]*domain.TransactionLineItem, error) {
	var items []*domain.TransactionLineItem

	for rows.Next() {
		var it domain.TransactionLineItem
		var transactionDate time.Time

		err := rows.Scan(
			&it.ProductName, &it.ProductSpec, &it.CompanyID, &it.CompanyName,
			&it.UnitPrice, &it.Quantity, &it.Unit, &transactionDate,
			&it.DocumentID, &it.DocumentNumber, &it.DocumentType,
		)
		if err != nil {
			return nil, fmt.Errorf("scan line item row: %w", err)
		}

		it.TransactionDate = transactionDate.UTC()
		items = append(items, &it)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate line item rows: %w", err)
	}

	return items, nil
}
