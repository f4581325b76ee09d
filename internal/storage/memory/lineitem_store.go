package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"pricewatch/internal/domain"
	"pricewatch/internal/idhash"
	"pricewatch/internal/storage"
)

// LineItemStore is an in-memory implementation of storage.LineItemStore.
type LineItemStore struct {
	mu       sync.RWMutex
	rows     []*domain.TransactionLineItem // append order = ingestion order
	ingested map[string]struct{}           // document ids already flattened
}

// NewLineItemStore creates a new in-memory line-item store.
func NewLineItemStore() *LineItemStore {
	return &LineItemStore{
		ingested: make(map[string]struct{}),
	}
}

// Compile-time interface check.
var _ storage.LineItemStore = (*LineItemStore)(nil)

// InsertBulk appends all line items of one batch, preserving input order.
// Fails the entire batch if any item's document id was ingested before.
func (s *LineItemStore) InsertBulk(_ context.Context, items []*domain.TransactionLineItem) error {
	if len(items) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, it := range items {
		if it == nil || it.DocumentID == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := s.ingested[it.DocumentID]; exists {
			return storage.ErrDuplicateKey
		}
	}

	for _, it := range items {
		cp := *it
		s.rows = append(s.rows, &cp)
	}
	for _, it := range items {
		s.ingested[it.DocumentID] = struct{}{}
	}

	return nil
}

// GetByDocumentType retrieves line items for a document type, ordered by
// transaction date ASC with insertion order as tie-break.
func (s *LineItemStore) GetByDocumentType(_ context.Context, docType string) ([]*domain.TransactionLineItem, error) {
	return s.collect(func(it *domain.TransactionLineItem) bool {
		return it.DocumentType == docType
	})
}

// GetByGroupKey retrieves line items of a type matching a product group key.
func (s *LineItemStore) GetByGroupKey(_ context.Context, docType, groupKey string) ([]*domain.TransactionLineItem, error) {
	return s.collect(func(it *domain.TransactionLineItem) bool {
		return it.DocumentType == docType &&
			idhash.ComputeGroupKey(it.ProductName, it.ProductSpec) == groupKey
	})
}

// GetByTimeRange retrieves line items of a type within [start, end] inclusive.
func (s *LineItemStore) GetByTimeRange(_ context.Context, docType string, start, end time.Time) ([]*domain.TransactionLineItem, error) {
	return s.collect(func(it *domain.TransactionLineItem) bool {
		return it.DocumentType == docType &&
			!it.TransactionDate.Before(start) && !it.TransactionDate.After(end)
	})
}

func (s *LineItemStore) collect(match func(*domain.TransactionLineItem) bool) ([]*domain.TransactionLineItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type indexed struct {
		seq int
		row *domain.TransactionLineItem
	}
	var picked []indexed
	for i, it := range s.rows {
		if match(it) {
			cp := *it
			picked = append(picked, indexed{seq: i, row: &cp})
		}
	}

	sort.SliceStable(picked, func(i, j int) bool {
		if !picked[i].row.TransactionDate.Equal(picked[j].row.TransactionDate) {
			return picked[i].row.TransactionDate.Before(picked[j].row.TransactionDate)
		}
		return picked[i].seq < picked[j].seq
	})

	result := make([]*domain.TransactionLineItem, len(picked))
	for i, p := range picked {
		result[i] = p.row
	}
	return result, nil
}
