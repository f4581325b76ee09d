package aggregation

import (
	"sort"

	"pricewatch/internal/domain"
)

// SortOrder selects the default ordering of the aggregated group list.
type SortOrder string

const (
	// SortByLatestDate orders groups by latest transaction date descending.
	// This is the default display order.
	SortByLatestDate SortOrder = "latest_date"

	// SortByRecordCount orders groups by transaction volume descending.
	SortByRecordCount SortOrder = "record_count"

	// SortByAvgPrice orders groups by mean unit price descending.
	SortByAvgPrice SortOrder = "avg_price"
)

// Options configures one aggregation call.
type Options struct {
	Filter Filter
	SortBy SortOrder // empty means SortByLatestDate
}

// Aggregate runs the full engine over a flat line-item list: filter, group
// by product identity, enrich each group with statistics, and order the
// result. It is a pure function of its inputs and holds no state:
// calling it twice with the same list yields structurally identical
// output, and concurrent invocations need no synchronization.
func Aggregate(items []*domain.TransactionLineItem, opts Options) []*domain.ProductGroup {
	groups := GroupByProduct(opts.Filter.Apply(items))
	for _, g := range groups {
		ComputeStatistics(g)
	}
	sortGroups(groups, opts.SortBy)
	return groups
}

// sortGroups orders groups descending by the chosen field, with the group
// key as a deterministic tie-break.
func sortGroups(groups []*domain.ProductGroup, by SortOrder) {
	less := func(i, j int) bool {
		a, b := groups[i], groups[j]
		switch by {
		case SortByRecordCount:
			if a.RecordCount != b.RecordCount {
				return a.RecordCount > b.RecordCount
			}
		case SortByAvgPrice:
			if a.AvgPrice != b.AvgPrice {
				return a.AvgPrice > b.AvgPrice
			}
		default: // SortByLatestDate
			if !a.LatestDate.Equal(b.LatestDate) {
				return a.LatestDate.After(b.LatestDate)
			}
		}
		return a.GroupKey < b.GroupKey
	}
	sort.SliceStable(groups, less)
}

// Paginate slices an ordered group list into one page. Pages are 1-based;
// out-of-range pages yield an empty slice, never an error.
func Paginate(groups []*domain.ProductGroup, page, perPage int) []*domain.ProductGroup {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}
	start := (page - 1) * perPage
	if start >= len(groups) {
		return nil
	}
	end := start + perPage
	if end > len(groups) {
		end = len(groups)
	}
	return groups[start:end]
}
