package reporter

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"conduitqa/testrail"
)

// PrintSummary writes the final console summary followed by one line per failed or
// skipped case.
func PrintSummary(w io.Writer, rep RunReport) {
	s := rep.Summary
	fmt.Fprintf(w, "\n=== Final Summary ===\n")
	if rep.RunID > 0 {
		fmt.Fprintf(w, "TestRail run: %s\n", color.CyanString("R%d", rep.RunID))
	}
	fmt.Fprintf(w, "Total Tests: %d\n", s.Total)
	fmt.Fprintf(w, "%s Passed Tests: %d\n", color.GreenString("✓"), s.Passed)
	fmt.Fprintf(w, "%s Failed Tests: %d\n", color.RedString("✗"), s.Failed)
	if s.Skipped > 0 {
		fmt.Fprintf(w, "%s Skipped Tests: %d\n", color.YellowString("-"), s.Skipped)
	}
	if s.Flaky > 0 {
		fmt.Fprintf(w, "%s Flaky Tests: %d\n", color.YellowString("⚠"), s.Flaky)
	}
	if s.SyncErrors > 0 {
		fmt.Fprintf(w, "%s TestRail errors: %d\n", color.YellowString("⚠"), s.SyncErrors)
	}
	fmt.Fprintf(w, "Duration: %dms\n", s.DurationMS)

	for _, res := range rep.Results {
		title := strings.Join(res.TitlePath, " > ")
		switch {
		case res.Status == testrail.TestSkipped:
			fmt.Fprintf(w, "  %s %s (%s)\n", color.YellowString("-"), title, res.SkipNote)
		case !res.Passed():
			fmt.Fprintf(w, "  %s %s [%s] %s\n", color.RedString("✗"), title, res.Failure, res.Why)
		}
		if res.SyncError != "" {
			fmt.Fprintf(w, "    testrail: %s\n", res.SyncError)
		}
	}
}

// Failed reports whether the run should exit non-zero.
func (r RunReport) Failed() bool {
	return r.Summary.Failed > 0 || r.Summary.SyncErrors > 0
}
