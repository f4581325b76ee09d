package reporting

import (
	"context"
	"sort"
	"time"

	"pricewatch/internal/aggregation"
	"pricewatch/internal/domain"
	"pricewatch/internal/storage"
)

// topMoverLimit caps the top movers table.
const topMoverLimit = 10

// Generator produces price book reports from stored line items.
type Generator struct {
	lineItemStore storage.LineItemStore
	now           func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(lineItemStore storage.LineItemStore) *Generator {
	return &Generator{
		lineItemStore: lineItemStore,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate produces a report over the given document types. An empty list
// covers both estimates and orders.
func (g *Generator) Generate(ctx context.Context, docTypes []string) (*Report, error) {
	if len(docTypes) == 0 {
		docTypes = []string{domain.DocumentTypeEstimate, domain.DocumentTypeOrder}
	}

	var items []*domain.TransactionLineItem
	for _, dt := range docTypes {
		got, err := g.lineItemStore.GetByDocumentType(ctx, dt)
		if err != nil {
			return nil, err
		}
		items = append(items, got...)
	}

	groups := aggregation.Aggregate(items, aggregation.Options{})

	companySet := make(map[string]struct{})
	for _, it := range items {
		companySet[it.CompanyID+"\x00"+it.CompanyName] = struct{}{}
	}

	var start, end time.Time
	for _, it := range items {
		if start.IsZero() || it.TransactionDate.Before(start) {
			start = it.TransactionDate
		}
		if end.IsZero() || it.TransactionDate.After(end) {
			end = it.TransactionDate
		}
	}

	return &Report{
		GeneratedAt:    g.now(),
		DocumentTypes:  docTypes,
		GroupCount:     len(groups),
		CompanyCount:   len(companySet),
		LineItemCount:  len(items),
		DateRangeStart: start,
		DateRangeEnd:   end,
		Groups:         buildGroupRows(groups),
		TopMovers:      buildTopMovers(groups),
	}, nil
}

func buildGroupRows(groups []*domain.ProductGroup) []GroupRow {
	rows := make([]GroupRow, 0, len(groups))
	for _, g := range groups {
		rows = append(rows, GroupRow{
			Name:          g.Name,
			Spec:          g.Spec,
			RecordCount:   g.RecordCount,
			CompanyCount:  g.CompanyCount,
			AvgPrice:      g.AvgPrice,
			MinPrice:      g.MinPrice,
			MaxPrice:      g.MaxPrice,
			LatestPrice:   g.LatestPrice,
			LatestDate:    g.LatestDate,
			LatestCompany: g.LatestCompanyName,
			DeviationPct:  aggregation.PriceDeviationPercent(g.LatestPrice, g.AvgPrice),
		})
	}
	return rows
}

func buildTopMovers(groups []*domain.ProductGroup) []MoverRow {
	movers := make([]MoverRow, 0, len(groups))
	for _, g := range groups {
		dev := aggregation.PriceDeviationPercent(g.LatestPrice, g.AvgPrice)
		if dev == 0 {
			continue
		}
		movers = append(movers, MoverRow{
			Name:         g.Name,
			Spec:         g.Spec,
			AvgPrice:     g.AvgPrice,
			LatestPrice:  g.LatestPrice,
			DeviationPct: dev,
		})
	}

	sort.SliceStable(movers, func(i, j int) bool {
		return abs(movers[i].DeviationPct) > abs(movers[j].DeviationPct)
	})

	if len(movers) > topMoverLimit {
		movers = movers[:topMoverLimit]
	}
	return movers
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
