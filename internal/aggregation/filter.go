package aggregation

import (
	"strings"

	"pricewatch/internal/domain"
	"pricewatch/internal/idhash"
)

// Filter narrows the raw line-item list before grouping. String fields are
// substring matches under the same normalization as group identity; nil
// price bounds are open. The zero Filter matches everything.
type Filter struct {
	ProductName string
	Spec        string
	CompanyName string
	MinPrice    *float64
	MaxPrice    *float64
}

// Match reports whether a line item passes the filter.
func (f Filter) Match(it *domain.TransactionLineItem) bool {
	if f.ProductName != "" &&
		!strings.Contains(idhash.NormalizeIdentity(it.ProductName), idhash.NormalizeIdentity(f.ProductName)) {
		return false
	}
	if f.Spec != "" &&
		!strings.Contains(idhash.NormalizeIdentity(it.ProductSpec), idhash.NormalizeIdentity(f.Spec)) {
		return false
	}
	if f.CompanyName != "" &&
		!strings.Contains(idhash.NormalizeIdentity(it.CompanyName), idhash.NormalizeIdentity(f.CompanyName)) {
		return false
	}
	if f.MinPrice != nil && it.UnitPrice < *f.MinPrice {
		return false
	}
	if f.MaxPrice != nil && it.UnitPrice > *f.MaxPrice {
		return false
	}
	return true
}

// Apply returns the line items passing the filter, in input order.
func (f Filter) Apply(items []*domain.TransactionLineItem) []*domain.TransactionLineItem {
	if f == (Filter{}) {
		return items
	}
	var out []*domain.TransactionLineItem
	for _, it := range items {
		if f.Match(it) {
			out = append(out, it)
		}
	}
	return out
}
