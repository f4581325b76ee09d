// Package aggregation is the product price aggregation and trend-analysis
// engine: a pure, synchronous transformation from flat transaction line
// items to grouped product summaries, statistics, and chart-ready series.
package aggregation

import (
	"strings"

	"pricewatch/internal/domain"
	"pricewatch/internal/idhash"
)

// GroupByProduct folds line items into product groups keyed by normalized
// (name, spec) identity. Groups are returned in first-seen input order;
// within each group, every company history preserves input order.
//
// Malformed identity fields are tolerated: items with empty name or spec
// group under the empty-string identity rather than being dropped, so no
// transaction disappears from statistics.
//
// Latest-price fields are resolved during the fold with a strictly-after
// comparison, so two items with identical timestamps resolve to the one
// appearing earlier in the input.
func GroupByProduct(items []*domain.TransactionLineItem) []*domain.ProductGroup {
	var groups []*domain.ProductGroup
	byKey := make(map[string]*domain.ProductGroup)

	for _, it := range items {
		key := idhash.ComputeGroupKey(it.ProductName, it.ProductSpec)

		g, ok := byKey[key]
		if !ok {
			g = &domain.ProductGroup{
				GroupKey: key,
				Name:     strings.TrimSpace(it.ProductName),
				Spec:     strings.TrimSpace(it.ProductSpec),
			}
			byKey[key] = g
			groups = append(groups, g)
		}

		g.RecordCount++
		if it.TransactionDate.After(g.LatestDate) || g.RecordCount == 1 {
			g.LatestPrice = it.UnitPrice
			g.LatestDate = it.TransactionDate
			g.LatestCompanyName = it.CompanyName
		}

		ch := findCompany(g, it)
		if ch == nil {
			ch = &domain.CompanyPriceHistory{
				CompanyID:   it.CompanyID,
				CompanyName: it.CompanyName,
				LatestPrice: it.UnitPrice,
				LatestDate:  it.TransactionDate,
			}
			g.Companies = append(g.Companies, ch)
		} else if it.TransactionDate.After(ch.LatestDate) {
			ch.LatestPrice = it.UnitPrice
			ch.LatestDate = it.TransactionDate
		}

		ch.History = append(ch.History, domain.PricePoint{
			Price:          it.UnitPrice,
			Quantity:       it.Quantity,
			QuantityValue:  ExtractLeadingNumber(it.Quantity),
			Unit:           it.Unit,
			Date:           it.TransactionDate,
			DocumentID:     it.DocumentID,
			DocumentNumber: it.DocumentNumber,
		})
	}

	return groups
}

// findCompany locates the company history a line item belongs to.
// Companies are identified by id when present; records without a company
// id (unlinked counterparties) match by normalized name.
func findCompany(g *domain.ProductGroup, it *domain.TransactionLineItem) *domain.CompanyPriceHistory {
	for _, ch := range g.Companies {
		if it.CompanyID != "" {
			if ch.CompanyID == it.CompanyID {
				return ch
			}
			continue
		}
		if ch.CompanyID == "" &&
			idhash.NormalizeIdentity(ch.CompanyName) == idhash.NormalizeIdentity(it.CompanyName) {
			return ch
		}
	}
	return nil
}
