package reporting

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const (
	sheetSummary = "Summary"
	sheetGroups  = "Groups"
	sheetMovers  = "Top Movers"
)

// RenderXLSX writes the report as an XLSX workbook with summary, group, and
// top mover sheets.
func RenderXLSX(r *Report, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetSummary); err != nil {
		return fmt.Errorf("rename summary sheet: %w", err)
	}
	if _, err := f.NewSheet(sheetGroups); err != nil {
		return fmt.Errorf("create groups sheet: %w", err)
	}
	if _, err := f.NewSheet(sheetMovers); err != nil {
		return fmt.Errorf("create movers sheet: %w", err)
	}

	if err := writeSummarySheet(f, r); err != nil {
		return err
	}
	if err := writeGroupsSheet(f, r); err != nil {
		return err
	}
	if err := writeMoversSheet(f, r); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeSummarySheet(f *excelize.File, r *Report) error {
	rows := [][]interface{}{
		{"Generated", r.GeneratedAt.Format(reportDateFormat)},
		{"Product Groups", r.GroupCount},
		{"Companies", r.CompanyCount},
		{"Line Items", r.LineItemCount},
	}
	if !r.DateRangeStart.IsZero() {
		rows = append(rows,
			[]interface{}{"Date Range Start", r.DateRangeStart.Format(reportDateFormat)},
			[]interface{}{"Date Range End", r.DateRangeEnd.Format(reportDateFormat)},
		)
	}

	for i, row := range rows {
		cell := fmt.Sprintf("A%d", i+1)
		if err := f.SetSheetRow(sheetSummary, cell, &row); err != nil {
			return fmt.Errorf("write summary row %d: %w", i+1, err)
		}
	}
	return nil
}

func writeGroupsSheet(f *excelize.File, r *Report) error {
	header := []interface{}{
		"Product", "Spec", "Records", "Companies",
		"Avg", "Min", "Max", "Latest", "Latest Date", "Latest Company", "Dev%",
	}
	if err := f.SetSheetRow(sheetGroups, "A1", &header); err != nil {
		return fmt.Errorf("write groups header: %w", err)
	}

	for i, g := range r.Groups {
		row := []interface{}{
			g.Name, g.Spec, g.RecordCount, g.CompanyCount,
			g.AvgPrice, g.MinPrice, g.MaxPrice, g.LatestPrice,
			g.LatestDate.Format(reportDateFormat), g.LatestCompany, g.DeviationPct,
		}
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(sheetGroups, cell, &row); err != nil {
			return fmt.Errorf("write group row %d: %w", i+1, err)
		}
	}
	return nil
}

func writeMoversSheet(f *excelize.File, r *Report) error {
	header := []interface{}{"Product", "Spec", "Avg", "Latest", "Dev%"}
	if err := f.SetSheetRow(sheetMovers, "A1", &header); err != nil {
		return fmt.Errorf("write movers header: %w", err)
	}

	for i, m := range r.TopMovers {
		row := []interface{}{m.Name, m.Spec, m.AvgPrice, m.LatestPrice, m.DeviationPct}
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(sheetMovers, cell, &row); err != nil {
			return fmt.Errorf("write mover row %d: %w", i+1, err)
		}
	}
	return nil
}
