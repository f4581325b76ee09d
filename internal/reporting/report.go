package reporting

import "time"

// Report is a point-in-time price book over the aggregated product groups.
type Report struct {
	// Metadata
	GeneratedAt   time.Time
	DocumentTypes []string
	GroupCount    int
	CompanyCount  int
	LineItemCount int

	// Date range covered by the underlying line items
	DateRangeStart time.Time
	DateRangeEnd   time.Time

	// Groups sorted by latest transaction date, newest first
	Groups []GroupRow

	// TopMovers lists the groups with the largest absolute deviation of the
	// latest price from the group average, largest first
	TopMovers []MoverRow
}

// GroupRow is one product group in the price book.
type GroupRow struct {
	Name          string
	Spec          string
	RecordCount   int
	CompanyCount  int
	AvgPrice      float64
	MinPrice      float64
	MaxPrice      float64
	LatestPrice   float64
	LatestDate    time.Time
	LatestCompany string
	DeviationPct  int
}

// MoverRow is one entry in the top movers table.
type MoverRow struct {
	Name         string
	Spec         string
	AvgPrice     float64
	LatestPrice  float64
	DeviationPct int
}
