package domain

import "time"

// Document represents one CRM business document (quotation or order).
// Corresponds to documents table in PostgreSQL.
type Document struct {
	ID             string         // uuid primary key
	DocumentNumber string         // human-facing number, e.g. "EST-2024-0012"
	Type           string         // "estimate" | "order"
	Status         string         // "pending" | "completed" | "canceled"
	CompanyID      string         // counterparty company id ("" if unlinked)
	CompanyName    string         // counterparty name as captured on the document
	Items          []DocumentItem // content line items
	CreatedAt      time.Time      // document creation time (UTC); drives all dating
}

// DocumentItem is one loosely-typed product line inside a document.
// The upstream store keeps these as optional-field JSON; every field is
// defaulted at the flattening boundary rather than propagated as optional.
type DocumentItem struct {
	Name      string  `json:"name"`       // product name ("" tolerated)
	Spec      string  `json:"spec"`       // product specification ("" tolerated)
	UnitPrice float64 `json:"unit_price"` // whole currency units
	Quantity  string  `json:"quantity"`   // free-text numeric+unit string, e.g. "1,200kg"
	Unit      string  `json:"unit"`       // display unit label ("" tolerated)
}

// Document type constants
const (
	DocumentTypeEstimate = "estimate"
	DocumentTypeOrder    = "order"
)

// Document status constants
const (
	DocumentStatusPending   = "pending"
	DocumentStatusCompleted = "completed"
	DocumentStatusCanceled  = "canceled"
)
