package domain

import "time"

// TransactionLineItem is one flattened product line from one historical
// document: the engine's input record. Corresponds to line_items table in
// ClickHouse. All fields are required; missing upstream values are defaulted
// ("" / 0) at the flattening boundary.
type TransactionLineItem struct {
	ProductName     string    // identity field (may be "")
	ProductSpec     string    // identity field (may be "")
	CompanyID       string    // counterparty id
	CompanyName     string    // counterparty name
	UnitPrice       float64   // whole currency units; statistics driver
	Quantity        string    // raw quantity string, display-only, e.g. "1,200kg"
	Unit            string    // display unit label
	TransactionDate time.Time // parent document creation time (UTC)
	DocumentID      string    // source document back-reference (never computed on)
	DocumentNumber  string    // source document number
	DocumentType    string    // "estimate" | "order"
}
