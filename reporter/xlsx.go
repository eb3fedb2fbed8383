package reporter

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"conduitqa/testrail"
)

const (
	resultsSheet   = "Results"
	failedBgColor  = "FFC7CE"
	skippedBgColor = "FFEB9C"
	columnWidth    = 28
)

var xlsxHeaders = []string{"Phase", "Title", "Path", "Status", "Attempts", "Flaky", "Failure", "Reason", "Last URL", "Latency (ms)", "TestRail"}

// WriteXLSX writes the report as a spreadsheet, one row per case and a summary block below.
func WriteXLSX(path string, rep RunReport) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", resultsSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(xlsxHeaders))
	if err := f.SetColWidth(resultsSheet, "A", lastCol, columnWidth); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}

	failedStyle, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{failedBgColor}},
	})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}
	skippedStyle, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{skippedBgColor}},
	})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}

	headers := make([]any, len(xlsxHeaders))
	for i, h := range xlsxHeaders {
		headers[i] = h
	}
	if err := writeRow(f, resultsSheet, 1, headers); err != nil {
		return err
	}

	for i, res := range rep.Results {
		row := i + 2
		cells := []any{
			string(res.Phase),
			res.Title,
			strings.Join(res.TitlePath, " > "),
			string(res.Status),
			res.Attempts,
			res.Flaky,
			res.Failure,
			res.Why,
			res.LastURL,
			res.LatencyMS,
			res.SyncError,
		}
		if err := writeRow(f, resultsSheet, row, cells); err != nil {
			return err
		}

		style := failedStyle
		switch res.Status {
		case testrail.TestPassed:
			continue
		case testrail.TestSkipped:
			style = skippedStyle
		}
		first, _ := excelize.CoordinatesToCellName(1, row)
		last, _ := excelize.CoordinatesToCellName(len(cells), row)
		if err := f.SetCellStyle(resultsSheet, first, last, style); err != nil {
			return fmt.Errorf("style row %d: %w", row, err)
		}
	}

	s := rep.Summary
	start := len(rep.Results) + 3
	summary := []string{
		"Summary",
		fmt.Sprintf("Total: %d", s.Total),
		fmt.Sprintf("Passed: %d", s.Passed),
		fmt.Sprintf("Failed: %d", s.Failed),
		fmt.Sprintf("Skipped: %d", s.Skipped),
		fmt.Sprintf("Flaky: %d", s.Flaky),
		fmt.Sprintf("TestRail errors: %d", s.SyncErrors),
		fmt.Sprintf("Duration: %dms", s.DurationMS),
	}
	if rep.RunID > 0 {
		summary = append(summary, fmt.Sprintf("TestRail run: R%d", rep.RunID))
	}
	for i, line := range summary {
		if err := writeRow(f, resultsSheet, start+i, []any{line}); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("prepare output directory for %q: %w", path, err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save xlsx %q: %w", path, err)
	}
	return nil
}

// writeRow fills row from column A onwards. Strings longer than a cell can hold are cut
// to the 32767 character limit by excelize.
func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	for col, v := range values {
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return fmt.Errorf("cell name row %d: %w", row, err)
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return fmt.Errorf("write cell %s: %w", cell, err)
		}
	}
	return nil
}
