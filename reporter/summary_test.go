package reporter

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"conduitqa/testrail"
)

func sampleReport() RunReport {
	return RunReport{
		RunID:   12,
		Summary: RunSummary{Total: 3, Passed: 1, Failed: 1, Skipped: 1, SyncErrors: 1, DurationMS: 42},
		Results: []CaseResult{
			{Title: "a @C1", TitlePath: []string{"users.go", "a @C1"}, Phase: PhaseMain, Status: testrail.TestPassed, Attempts: 1},
			{Title: "b @C2", TitlePath: []string{"users.go", "b @C2"}, Phase: PhaseMain, Status: testrail.TestFailed, Attempts: 2, Failure: "status_mismatch", Why: "Expected status in [201] but received 422.", SyncError: "testrail down"},
			{Title: "c @C3", TitlePath: []string{"users.go", "c @C3"}, Phase: PhaseMain, Status: testrail.TestSkipped, SkipNote: "already passed in testrail run"},
		},
	}
}

func TestPrintSummary(t *testing.T) {
	prev := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = prev }()

	var buf bytes.Buffer
	PrintSummary(&buf, sampleReport())
	out := buf.String()

	assert.Contains(t, out, "=== Final Summary ===")
	assert.Contains(t, out, "TestRail run: R12")
	assert.Contains(t, out, "✓ Passed Tests: 1")
	assert.Contains(t, out, "✗ Failed Tests: 1")
	assert.Contains(t, out, "- Skipped Tests: 1")
	assert.Contains(t, out, "⚠ TestRail errors: 1")
	assert.Contains(t, out, "✗ users.go > b @C2 [status_mismatch] Expected status in [201] but received 422.")
	assert.Contains(t, out, "testrail: testrail down")
	assert.Contains(t, out, "- users.go > c @C3 (already passed in testrail run)")
	assert.NotContains(t, out, "users.go > a @C1")
}

func TestWriteXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "report.xlsx")
	require.NoError(t, WriteXLSX(path, sampleReport()))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	header, err := f.GetCellValue(resultsSheet, "A1")
	require.NoError(t, err)
	assert.Equal(t, "Phase", header)

	title, err := f.GetCellValue(resultsSheet, "B3")
	require.NoError(t, err)
	assert.Equal(t, "b @C2", title)

	status, err := f.GetCellValue(resultsSheet, "D3")
	require.NoError(t, err)
	assert.Equal(t, "failed", status)

	total, err := f.GetCellValue(resultsSheet, "A7")
	require.NoError(t, err)
	assert.Equal(t, "Total: 3", total)

	run, err := f.GetCellValue(resultsSheet, "A14")
	require.NoError(t, err)
	assert.Equal(t, "TestRail run: R12", run)
}

func TestWriteXLSX_LongCellIsCutToCellLimit(t *testing.T) {
	rep := sampleReport()
	rep.Results[1].Why = strings.Repeat("x", excelize.TotalCellChars+5000)
	path := filepath.Join(t.TempDir(), "report.xlsx")
	require.NoError(t, WriteXLSX(path, rep))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	why, err := f.GetCellValue(resultsSheet, "H3")
	require.NoError(t, err)
	assert.Len(t, why, excelize.TotalCellChars)
}

func TestWriteRow_ReturnsCellErrors(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()

	err := writeRow(f, "Missing", 1, []any{"a"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "write cell A1")

	err = writeRow(f, "Sheet1", 0, []any{"a"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cell name row 0")

	require.NoError(t, writeRow(f, "Sheet1", 2, []any{"a", 3}))
	v, err := f.GetCellValue("Sheet1", "B2")
	require.NoError(t, err)
	assert.Equal(t, "3", v)
}
