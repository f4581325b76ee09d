package aggregation

import (
	"testing"
	"time"

	"pricewatch/internal/domain"
)

func summaryFor(t *testing.T, items []*domain.TransactionLineItem) *domain.SummarySeries {
	t.Helper()
	groups := GroupByProduct(items)
	if len(groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(groups))
	}
	return BuildSummarySeries(groups[0])
}

func TestBuildSummarySeries_TwoPoints(t *testing.T) {
	s := summaryFor(t, []*domain.TransactionLineItem{
		item("Widget", "A-100", "c1", "Acme", 100, date(2024, 1, 1)),
		item("Widget", "A-100", "c1", "Acme", 150, date(2024, 2, 1)),
	})

	if len(s.Average) != 2 {
		t.Fatalf("expected 2 points, got %d", len(s.Average))
	}
	if s.Average[0].Value != 100 || s.Average[1].Value != 150 {
		t.Errorf("average values = [%v, %v], want [100, 150]", s.Average[0].Value, s.Average[1].Value)
	}
	if !s.HasTrend {
		t.Error("expected HasTrend = true for 2 points")
	}
	if s.Average[0].Label != "24.01.01" || s.Average[1].Label != "24.02.01" {
		t.Errorf("labels = [%s, %s], want [24.01.01, 24.02.01]", s.Average[0].Label, s.Average[1].Label)
	}
}

func TestBuildSummarySeries_SinglePointNoTrend(t *testing.T) {
	g := GroupByProduct([]*domain.TransactionLineItem{
		item("Widget", "A-100", "c1", "Acme", 100, date(2024, 1, 1)),
	})[0]

	if g.RecordCount != 1 {
		t.Errorf("RecordCount = %d, want 1", g.RecordCount)
	}

	s := BuildSummarySeries(g)
	if s.HasTrend {
		t.Error("expected HasTrend = false for single-point series")
	}

	for company, points := range BuildPerCompanySeries(g) {
		if HasTrend(points) {
			t.Errorf("company %s: expected no trend for single point", company)
		}
	}
}

func TestBuildSummarySeries_SameDayBucketAcrossCompanies(t *testing.T) {
	// Acme 100 and Globex 200 on the same date collapse into one bucket:
	// average 150, min 100, max 200.
	s := summaryFor(t, []*domain.TransactionLineItem{
		item("Widget", "A-100", "c1", "Acme", 100, date(2024, 1, 1)),
		item("Widget", "A-100", "c2", "Globex", 200, date(2024, 1, 1)),
	})

	if len(s.Average) != 1 {
		t.Fatalf("expected 1 bucket, got %d", len(s.Average))
	}
	if s.Average[0].Value != 150 {
		t.Errorf("bucket average = %v, want 150", s.Average[0].Value)
	}
	if s.Min[0].Value != 100 {
		t.Errorf("bucket min = %v, want 100", s.Min[0].Value)
	}
	if s.Max[0].Value != 200 {
		t.Errorf("bucket max = %v, want 200", s.Max[0].Value)
	}
}

func TestBuildSummarySeries_TimeOfDayCollapses(t *testing.T) {
	morning := time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC)
	evening := time.Date(2024, 1, 1, 18, 45, 0, 0, time.UTC)

	s := summaryFor(t, []*domain.TransactionLineItem{
		item("Widget", "A-100", "c1", "Acme", 100, morning),
		item("Widget", "A-100", "c1", "Acme", 200, evening),
	})

	if len(s.Average) != 1 {
		t.Fatalf("same-day transactions must share a bucket, got %d buckets", len(s.Average))
	}
	if s.Average[0].Value != 150 {
		t.Errorf("bucket average = %v, want 150", s.Average[0].Value)
	}
}

func TestBuildSummarySeries_OrderedByDateValueNotLabel(t *testing.T) {
	// Out-of-order input spanning a year boundary: the series must come out
	// chronologically ascending by date value regardless of label text.
	s := summaryFor(t, []*domain.TransactionLineItem{
		item("Widget", "A-100", "c1", "Acme", 300, date(2025, 10, 5)),
		item("Widget", "A-100", "c1", "Acme", 100, date(2025, 1, 5)),
		item("Widget", "A-100", "c1", "Acme", 200, date(2024, 12, 30)),
	})

	for _, points := range [][]domain.SeriesPoint{s.Average, s.Min, s.Max} {
		for i := 1; i < len(points); i++ {
			if points[i].Date.Before(points[i-1].Date) {
				t.Fatalf("series not ascending: %v before %v", points[i].Date, points[i-1].Date)
			}
		}
	}
	if s.Average[0].Value != 200 || s.Average[2].Value != 300 {
		t.Errorf("chronological order wrong: got first=%v last=%v", s.Average[0].Value, s.Average[2].Value)
	}
}

func TestBuildSummarySeries_ParallelSeries(t *testing.T) {
	s := summaryFor(t, []*domain.TransactionLineItem{
		item("Widget", "A-100", "c1", "Acme", 100, date(2024, 1, 1)),
		item("Widget", "A-100", "c2", "Globex", 200, date(2024, 1, 1)),
		item("Widget", "A-100", "c1", "Acme", 150, date(2024, 2, 1)),
	})

	if len(s.Average) != len(s.Min) || len(s.Min) != len(s.Max) {
		t.Fatalf("series lengths differ: %d/%d/%d", len(s.Average), len(s.Min), len(s.Max))
	}
	for i := range s.Average {
		if s.Average[i].Label != s.Min[i].Label || s.Min[i].Label != s.Max[i].Label {
			t.Errorf("point %d: x-axis labels differ across series", i)
		}
	}
}

func TestBuildPerCompanySeries_OnePointPerTransaction(t *testing.T) {
	g := GroupByProduct([]*domain.TransactionLineItem{
		item("Widget", "A-100", "c1", "Acme", 100, date(2024, 1, 1)),
		item("Widget", "A-100", "c2", "Globex", 200, date(2024, 1, 1)),
	})[0]

	series := BuildPerCompanySeries(g)

	if len(series) != 2 {
		t.Fatalf("expected 2 company series, got %d", len(series))
	}
	for company, points := range series {
		if len(points) != 1 {
			t.Errorf("company %s: expected 1 point, got %d", company, len(points))
		}
	}
}

func TestBuildPerCompanySeries_SameDayUnaggregated(t *testing.T) {
	// Two same-day transactions for one company stay two adjacent points.
	g := GroupByProduct([]*domain.TransactionLineItem{
		item("Widget", "A-100", "c1", "Acme", 100, date(2024, 1, 1)),
		item("Widget", "A-100", "c1", "Acme", 120, date(2024, 1, 1)),
	})[0]

	points := BuildPerCompanySeries(g)["Acme"]
	if len(points) != 2 {
		t.Fatalf("expected 2 unaggregated points, got %d", len(points))
	}
	if points[0].Value != 100 || points[1].Value != 120 {
		t.Errorf("same-day points = [%v, %v], want input order [100, 120]", points[0].Value, points[1].Value)
	}
}

func TestBuildPerCompanySeries_AscendingByDate(t *testing.T) {
	g := GroupByProduct([]*domain.TransactionLineItem{
		item("Widget", "A-100", "c1", "Acme", 300, date(2024, 3, 1)),
		item("Widget", "A-100", "c1", "Acme", 100, date(2024, 1, 1)),
		item("Widget", "A-100", "c1", "Acme", 200, date(2024, 2, 1)),
	})[0]

	points := BuildPerCompanySeries(g)["Acme"]
	for i := 1; i < len(points); i++ {
		if points[i].Date.Before(points[i-1].Date) {
			t.Fatalf("per-company series not ascending at index %d", i)
		}
	}
}

func TestBuildPerCompanySeries_EmptyGroup(t *testing.T) {
	series := BuildPerCompanySeries(&domain.ProductGroup{})
	if len(series) != 0 {
		t.Errorf("expected no series for empty group, got %d", len(series))
	}
}
