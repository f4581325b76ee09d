package aggregation

import (
	"math"
	"sort"

	"pricewatch/internal/domain"
)

// ComputeStatistics enriches a group in place with price statistics:
// rounded arithmetic mean, min/max, distinct company count, and companies
// ordered by latest transaction date descending (ties by first-seen order).
// Latest-price fields are already resolved by GroupByProduct.
func ComputeStatistics(g *domain.ProductGroup) {
	var (
		sum   float64
		count int
		min   float64
		max   float64
	)

	for _, ch := range g.Companies {
		for _, p := range ch.History {
			if count == 0 {
				min = p.Price
				max = p.Price
			} else {
				if p.Price < min {
					min = p.Price
				}
				if p.Price > max {
					max = p.Price
				}
			}
			sum += p.Price
			count++
		}
	}

	g.CompanyCount = len(g.Companies)
	if count == 0 {
		return
	}

	g.AvgPrice = math.Round(sum / float64(count))
	g.MinPrice = min
	g.MaxPrice = max

	sort.SliceStable(g.Companies, func(i, j int) bool {
		return g.Companies[i].LatestDate.After(g.Companies[j].LatestDate)
	})
}

// PriceDeviationPercent reports how far the latest observed price sits from
// the historical mean, as a rounded percentage. A zero mean yields 0 so the
// signal is always renderable, never NaN or Inf.
func PriceDeviationPercent(latest, avg float64) int {
	if avg == 0 {
		return 0
	}
	return int(math.Round((latest - avg) / avg * 100))
}
