// Package flatten adapts loosely-typed CRM documents into the engine's
// fully-typed line-item records, defaulting missing fields at the boundary
// instead of propagating optionality into the aggregation logic.
package flatten

import (
	"pricewatch/internal/domain"
)

// defaultUnit is used when a document line carries no unit label.
const defaultUnit = "EA"

// FlattenDocuments explodes document content lines into transaction line
// items, one per product line, in document order then line order. The
// transaction date is the parent document's creation time. Documents
// without items contribute nothing; malformed lines are defaulted, never
// rejected.
func FlattenDocuments(docs []*domain.Document) []*domain.TransactionLineItem {
	var items []*domain.TransactionLineItem
	for _, doc := range docs {
		if doc == nil {
			continue
		}
		items = append(items, FlattenDocument(doc)...)
	}
	return items
}

// FlattenDocument flattens a single document.
func FlattenDocument(doc *domain.Document) []*domain.TransactionLineItem {
	items := make([]*domain.TransactionLineItem, 0, len(doc.Items))
	for _, line := range doc.Items {
		unit := line.Unit
		if unit == "" {
			unit = defaultUnit
		}
		items = append(items, &domain.TransactionLineItem{
			ProductName:     line.Name,
			ProductSpec:     line.Spec,
			CompanyID:       doc.CompanyID,
			CompanyName:     doc.CompanyName,
			UnitPrice:       line.UnitPrice,
			Quantity:        line.Quantity,
			Unit:            unit,
			TransactionDate: doc.CreatedAt.UTC(),
			DocumentID:      doc.ID,
			DocumentNumber:  doc.DocumentNumber,
			DocumentType:    doc.Type,
		})
	}
	return items
}
