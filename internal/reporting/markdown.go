package reporting

import (
	"fmt"
	"strings"
	"time"
)

// reportDateFormat is used for dates in rendered reports.
const reportDateFormat = "2006-01-02"

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Price Book\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Document types: %s\n\n", strings.Join(r.DocumentTypes, ", ")))

	// Summary
	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Product Groups | %d |\n", r.GroupCount))
	sb.WriteString(fmt.Sprintf("| Companies | %d |\n", r.CompanyCount))
	sb.WriteString(fmt.Sprintf("| Line Items | %d |\n", r.LineItemCount))
	if !r.DateRangeStart.IsZero() {
		sb.WriteString(fmt.Sprintf("| Date Range | %s to %s |\n",
			r.DateRangeStart.Format(reportDateFormat), r.DateRangeEnd.Format(reportDateFormat)))
	}
	sb.WriteString("\n")

	// Product groups
	sb.WriteString("## Product Groups\n\n")
	if len(r.Groups) > 0 {
		sb.WriteString("| Product | Spec | Records | Companies | Avg | Min | Max | Latest | Latest Date | Latest Company | Dev% |\n")
		sb.WriteString("|---------|------|---------|-----------|-----|-----|-----|--------|-------------|----------------|------|\n")
		for _, g := range r.Groups {
			sb.WriteString(fmt.Sprintf("| %s | %s | %d | %d | %.0f | %.0f | %.0f | %.0f | %s | %s | %+d |\n",
				g.Name, g.Spec, g.RecordCount, g.CompanyCount,
				g.AvgPrice, g.MinPrice, g.MaxPrice, g.LatestPrice,
				g.LatestDate.Format(reportDateFormat), g.LatestCompany, g.DeviationPct))
		}
	} else {
		sb.WriteString("No product groups available.\n")
	}
	sb.WriteString("\n")

	// Top movers
	sb.WriteString("## Top Movers\n\n")
	if len(r.TopMovers) > 0 {
		sb.WriteString("| Product | Spec | Avg | Latest | Dev% |\n")
		sb.WriteString("|---------|------|-----|--------|------|\n")
		for _, m := range r.TopMovers {
			sb.WriteString(fmt.Sprintf("| %s | %s | %.0f | %.0f | %+d |\n",
				m.Name, m.Spec, m.AvgPrice, m.LatestPrice, m.DeviationPct))
		}
	} else {
		sb.WriteString("No price movement detected.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}
