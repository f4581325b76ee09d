// Package memory provides in-memory store implementations for tests and
// the --use-memory server mode.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"pricewatch/internal/domain"
	"pricewatch/internal/storage"
)

// DocumentStore is an in-memory implementation of storage.DocumentStore.
type DocumentStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Document // keyed by document id
}

// NewDocumentStore creates a new in-memory document store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		data: make(map[string]*domain.Document),
	}
}

// Compile-time interface check.
var _ storage.DocumentStore = (*DocumentStore)(nil)

// Insert adds a new document, assigning a uuid when ID is empty.
func (s *DocumentStore) Insert(_ context.Context, d *domain.Document) error {
	if d == nil || d.Type == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if _, exists := s.data[d.ID]; exists {
		return storage.ErrDuplicateKey
	}

	cp := copyDocument(d)
	s.data[d.ID] = cp
	return nil
}

// GetByID retrieves a document by its id.
func (s *DocumentStore) GetByID(_ context.Context, id string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.data[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return copyDocument(d), nil
}

// GetByType retrieves documents of a type filtered by status, created_at DESC.
func (s *DocumentStore) GetByType(_ context.Context, docType string, statuses []string) ([]*domain.Document, error) {
	if len(statuses) == 0 {
		statuses = []string{domain.DocumentStatusPending, domain.DocumentStatusCompleted}
	}
	allowed := make(map[string]struct{}, len(statuses))
	for _, st := range statuses {
		allowed[st] = struct{}{}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Document
	for _, d := range s.data {
		if d.Type != docType {
			continue
		}
		if _, ok := allowed[d.Status]; !ok {
			continue
		}
		result = append(result, copyDocument(d))
	}

	sortDocumentsDesc(result)
	return result, nil
}

// GetByCompany retrieves all documents for a counterparty, created_at DESC.
func (s *DocumentStore) GetByCompany(_ context.Context, companyID string) ([]*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Document
	for _, d := range s.data {
		if d.CompanyID == companyID {
			result = append(result, copyDocument(d))
		}
	}

	sortDocumentsDesc(result)
	return result, nil
}

// GetByTimeRange retrieves documents of a type created within [start, end].
func (s *DocumentStore) GetByTimeRange(_ context.Context, docType string, start, end time.Time) ([]*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Document
	for _, d := range s.data {
		if d.Type != docType {
			continue
		}
		if d.CreatedAt.Before(start) || d.CreatedAt.After(end) {
			continue
		}
		result = append(result, copyDocument(d))
	}

	sortDocumentsDesc(result)
	return result, nil
}

func sortDocumentsDesc(docs []*domain.Document) {
	sort.Slice(docs, func(i, j int) bool {
		if !docs[i].CreatedAt.Equal(docs[j].CreatedAt) {
			return docs[i].CreatedAt.After(docs[j].CreatedAt)
		}
		return docs[i].ID < docs[j].ID
	})
}

func copyDocument(d *domain.Document) *domain.Document {
	cp := *d
	cp.Items = make([]domain.DocumentItem, len(d.Items))
	copy(cp.Items, d.Items)
	return &cp
}
