package aggregation

import (
	"math"
	"sort"
	"time"

	"pricewatch/internal/domain"
)

// BuildSummarySeries builds the blended chart series for a group: all line
// items bucketed by calendar date (UTC, time-of-day discarded), with
// per-bucket average (rounded), min, and max across all companies. The
// three emitted series are parallel and share x-axis labels.
//
// Buckets are ordered by the underlying date value, never by the formatted
// label: a string sort on "25.1.5"-style labels is a latent ordering bug.
func BuildSummarySeries(g *domain.ProductGroup) *domain.SummarySeries {
	buckets := make(map[time.Time][]float64)
	for _, ch := range g.Companies {
		for _, p := range ch.History {
			day := p.Date.UTC().Truncate(24 * time.Hour)
			buckets[day] = append(buckets[day], p.Price)
		}
	}

	days := make([]time.Time, 0, len(buckets))
	for day := range buckets {
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	s := &domain.SummarySeries{
		Average: make([]domain.SeriesPoint, 0, len(days)),
		Min:     make([]domain.SeriesPoint, 0, len(days)),
		Max:     make([]domain.SeriesPoint, 0, len(days)),
	}

	for _, day := range days {
		prices := buckets[day]
		min, max := prices[0], prices[0]
		sum := 0.0
		for _, p := range prices {
			if p < min {
				min = p
			}
			if p > max {
				max = p
			}
			sum += p
		}
		avg := math.Round(sum / float64(len(prices)))
		label := day.Format(domain.SeriesDateFormat)

		s.Average = append(s.Average, domain.SeriesPoint{Label: label, Date: day, Value: avg})
		s.Min = append(s.Min, domain.SeriesPoint{Label: label, Date: day, Value: min})
		s.Max = append(s.Max, domain.SeriesPoint{Label: label, Date: day, Value: max})
	}

	s.HasTrend = HasTrend(s.Average)
	return s
}

// BuildPerCompanySeries builds one ascending-by-date series per company,
// keyed by company name. Points are unaggregated: every transaction is its
// own point, so two same-day transactions for one company appear as two
// adjacent points in input order. Renders correctly with zero, one, or many
// companies.
func BuildPerCompanySeries(g *domain.ProductGroup) map[string][]domain.SeriesPoint {
	series := make(map[string][]domain.SeriesPoint, len(g.Companies))

	for _, ch := range g.Companies {
		points := make([]domain.SeriesPoint, len(ch.History))
		for i, p := range ch.History {
			points[i] = domain.SeriesPoint{
				Label: p.Date.UTC().Format(domain.SeriesDateFormat),
				Date:  p.Date,
				Value: p.Price,
			}
		}
		sort.SliceStable(points, func(i, j int) bool {
			return points[i].Date.Before(points[j].Date)
		})
		series[ch.CompanyName] = points
	}

	return series
}

// HasTrend reports whether a series carries enough points for a meaningful
// trend line. Single-point series get a fallback message instead of a chart.
func HasTrend(points []domain.SeriesPoint) bool {
	return len(points) >= 2
}
