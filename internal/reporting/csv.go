package reporting

import (
	"fmt"
	"strings"
)

// RenderCSV renders the product group rows as CSV string.
func RenderCSV(groups []GroupRow) string {
	var sb strings.Builder

	// Header
	sb.WriteString("name,spec,record_count,company_count,avg_price,min_price,max_price,")
	sb.WriteString("latest_price,latest_date,latest_company,deviation_pct\n")

	// Rows
	for _, g := range groups {
		sb.WriteString(fmt.Sprintf("%s,%s,%d,%d,%.2f,%.2f,%.2f,%.2f,%s,%s,%d\n",
			csvEscape(g.Name),
			csvEscape(g.Spec),
			g.RecordCount,
			g.CompanyCount,
			g.AvgPrice,
			g.MinPrice,
			g.MaxPrice,
			g.LatestPrice,
			g.LatestDate.Format(reportDateFormat),
			csvEscape(g.LatestCompany),
			g.DeviationPct,
		))
	}

	return sb.String()
}

// csvEscape quotes fields containing commas, quotes, or newlines.
func csvEscape(s string) string {
	if !strings.ContainsAny(s, ",\"\n") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
