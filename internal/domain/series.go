package domain

import "time"

// SeriesPoint is one chart point. Ordering always uses Date; Label is the
// formatted display form and is never compared.
type SeriesPoint struct {
	Label string    // "YY.MM.DD"
	Date  time.Time // underlying date value (UTC, date-only for bucketed series)
	Value float64
}

// SummarySeries blends all companies' prices per calendar-date bucket.
// The three slices are parallel: identical length and x-axis labels,
// chronologically ascending.
type SummarySeries struct {
	Average []SeriesPoint
	Min     []SeriesPoint
	Max     []SeriesPoint

	// HasTrend is true iff the series has at least 2 points. Single-point
	// series are flagged instead of rendered as a misleading line.
	HasTrend bool
}

// SeriesDateFormat is the x-axis label layout used by all chart series.
const SeriesDateFormat = "06.01.02"
