package domain

import "time"

// ProductGroup is the derived summary for one distinct (name, spec) product
// identity. Recomputed in full from raw line items on every aggregation call.
type ProductGroup struct {
	GroupKey string // deterministic identity, see idhash.ComputeGroupKey
	Name     string // display name (first-seen trimmed form)
	Spec     string // display spec (first-seen trimmed form)

	RecordCount  int
	CompanyCount int

	// Latest transaction across all companies in the group.
	// Ties on identical timestamps resolve to the earliest input line item.
	LatestPrice       float64
	LatestDate        time.Time
	LatestCompanyName string

	// Unweighted statistics over all unit prices in the group.
	// AvgPrice is rounded to the nearest whole currency unit.
	AvgPrice float64
	MinPrice float64
	MaxPrice float64

	// Companies ordered by latest transaction date descending.
	Companies []*CompanyPriceHistory
}

// CompanyPriceHistory is the transaction history between one counterparty
// and the business for one product group.
type CompanyPriceHistory struct {
	CompanyID   string
	CompanyName string

	LatestPrice float64
	LatestDate  time.Time

	// History holds every line item for this company in input order.
	// Chart builders sort ascending by date; "latest" derivation sorts
	// descending. Neither mutates History.
	History []PricePoint
}

// PricePoint is one historical transaction for one company within a group.
type PricePoint struct {
	Price          float64
	Quantity       string  // raw string preserved for display
	QuantityValue  float64 // parsed leading numeric component (0 if absent)
	Unit           string
	Date           time.Time
	DocumentID     string // carried through untouched for navigation
	DocumentNumber string
}
