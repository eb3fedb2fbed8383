package reporter

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"

	"conduitqa/apilog"
	"conduitqa/testrail"
)

const (
	DefaultTimeout    = 60 * time.Second
	DefaultReportPath = "./report.json"

	// syncTimeout bounds one result submission. Submissions outlive the run context so
	// interrupted scenarios still reach TestRail.
	syncTimeout = 2 * time.Minute
)

// TestRailSync is the part of testrail.Sync the runner drives.
type TestRailSync interface {
	AddTestRun(ctx context.Context, projectKey string, condition *testrail.CaseFilterCondition) (int, error)
	ShouldSkipTestExecution(ctx context.Context, title string, runID int) (bool, error)
	AddTestResult(ctx context.Context, info testrail.TestInfo, runID int) error
}

type Options struct {
	// Grep is a regular expression matched against Scenario.FullTitle. Setup and teardown
	// always run.
	Grep    string
	Workers int
	Retries int
	Timeout time.Duration

	ReportPath string
	// XLSXPath writes a spreadsheet next to the JSON report when set.
	XLSXPath string

	Project string
	// TestRail is nil when synchronization is disabled.
	TestRail TestRailSync
	// CreateRun creates a run before setup and reports into it.
	CreateRun bool
	// SkipPassed skips scenarios whose cases already passed in the run.
	SkipPassed bool
}

// Suite groups scenarios by phase. Setup runs first and in order; if any setup scenario
// fails the main scenarios are skipped. Teardown always runs.
type Suite struct {
	Setup     []Scenario
	Scenarios []Scenario
	Teardown  []Scenario
}

type Runner struct {
	opts Options
	grep *regexp.Regexp
	now  func() time.Time
}

func NewRunner(opts Options) (*Runner, error) {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	opts.ReportPath = stringsTrimOrDefault(opts.ReportPath, DefaultReportPath)

	r := &Runner{opts: opts, now: time.Now}
	if g := strings.TrimSpace(opts.Grep); g != "" {
		re, err := regexp.Compile(g)
		if err != nil {
			return nil, fmt.Errorf("compile grep %q: %w", g, err)
		}
		r.grep = re
	}
	return r, nil
}

// Run executes the suite, writes the report files and returns the report. The error is
// non-nil only when the run could not be performed or persisted; failed scenarios are
// reported in the summary.
func (r *Runner) Run(ctx context.Context, suite Suite) (RunReport, error) {
	start := r.now()
	var rep RunReport
	log.Printf("runner.run: start setup=%d scenarios=%d teardown=%d workers=%d retries=%d", len(suite.Setup), len(suite.Scenarios), len(suite.Teardown), r.opts.Workers, r.opts.Retries)

	if r.opts.TestRail != nil && r.opts.CreateRun {
		runID, err := r.opts.TestRail.AddTestRun(ctx, r.opts.Project, nil)
		if err != nil {
			log.Printf("runner.run: testrail run creation failed error=%v", err)
			return rep, fmt.Errorf("create testrail run: %w", err)
		}
		rep.RunID = runID
		log.Printf("runner.run: testrail run created run_id=%d", runID)
	}

	setupFailed := ""
	for _, sc := range suite.Setup {
		res := r.runScenario(ctx, sc, PhaseSetup, rep.RunID, false)
		rep.Results = append(rep.Results, res)
		if !res.Passed() && setupFailed == "" {
			setupFailed = sc.FullTitle()
		}
	}

	selected := r.filter(suite.Scenarios)
	mainResults := make([]CaseResult, len(selected))
	if setupFailed != "" {
		log.Printf("runner.run: setup failed, skipping scenarios setup=%q skipped=%d", setupFailed, len(selected))
		for i, sc := range selected {
			mainResults[i] = skippedResult(sc, "setup failed: "+setupFailed)
		}
	} else {
		var g errgroup.Group
		g.SetLimit(r.opts.Workers)
		for i, sc := range selected {
			g.Go(func() error {
				mainResults[i] = r.runScenario(ctx, sc, PhaseMain, rep.RunID, true)
				return nil
			})
		}
		_ = g.Wait()
	}
	rep.Results = append(rep.Results, mainResults...)

	teardownCtx := context.WithoutCancel(ctx)
	for _, sc := range suite.Teardown {
		rep.Results = append(rep.Results, r.runScenario(teardownCtx, sc, PhaseTeardown, rep.RunID, false))
	}

	rep.Summary = summarize(rep.Results)
	rep.Summary.DurationMS = r.now().Sub(start).Milliseconds()
	log.Printf("runner.run: completed total=%d passed=%d failed=%d skipped=%d flaky=%d sync_errors=%d", rep.Summary.Total, rep.Summary.Passed, rep.Summary.Failed, rep.Summary.Skipped, rep.Summary.Flaky, rep.Summary.SyncErrors)

	path, err := filepath.Abs(r.opts.ReportPath)
	if err != nil {
		log.Printf("runner.run: failed resolve report path error=%v", err)
		return rep, err
	}
	if err := writeJSON(path, rep); err != nil {
		log.Printf("runner.run: failed write report path=%s error=%v", path, err)
		return rep, fmt.Errorf("persist report json: %w", err)
	}
	rep.Persisted = true
	log.Printf("runner.run: report persisted path=%s", path)

	if r.opts.XLSXPath != "" {
		if err := WriteXLSX(r.opts.XLSXPath, rep); err != nil {
			log.Printf("runner.run: failed write xlsx path=%s error=%v", r.opts.XLSXPath, err)
			return rep, fmt.Errorf("persist report xlsx: %w", err)
		}
	}
	return rep, nil
}

func (r *Runner) filter(scenarios []Scenario) []Scenario {
	if r.grep == nil {
		return scenarios
	}
	out := make([]Scenario, 0, len(scenarios))
	for _, sc := range scenarios {
		if r.grep.MatchString(sc.FullTitle()) {
			out = append(out, sc)
		}
	}
	log.Printf("runner.filter: grep=%q matched=%d of=%d", r.grep.String(), len(out), len(scenarios))
	return out
}

// runScenario executes sc with retries. Only main scenarios are synchronized with TestRail.
func (r *Runner) runScenario(ctx context.Context, sc Scenario, phase Phase, runID int, sync bool) CaseResult {
	cr := CaseResult{
		Title:     sc.Title,
		TitlePath: sc.Path(),
		Tags:      sc.Tags,
		Phase:     phase,
	}
	sync = sync && r.opts.TestRail != nil

	for retry := 0; retry <= r.opts.Retries; retry++ {
		if err := ctx.Err(); err != nil {
			cr.Status = testrail.TestInterrupted
			cr.Failure = "interrupted"
			cr.Why = "Run was interrupted before the scenario started."
			cr.Error = err.Error()
			return cr
		}

		if sync && r.opts.SkipPassed {
			skip, err := r.opts.TestRail.ShouldSkipTestExecution(ctx, sc.Title, runID)
			if err != nil {
				log.Printf("runner.scenario: warn: skip check failed title=%q error=%v", sc.Title, err)
				cr.SyncError = err.Error()
			}
			if skip {
				cr.Status = testrail.TestSkipped
				cr.SkipNote = "already passed in testrail run"
				log.Printf("runner.scenario: skipped, already passed title=%q", sc.Title)
				return cr
			}
		}

		log.Printf("runner.scenario: start phase=%s title=%q attempt=%d", phase, sc.Title, retry+1)
		at := runAttempt(ctx, sc, r.opts.Timeout)
		cr.Attempts = retry + 1
		cr.Status = at.status
		cr.Steps = at.steps
		cr.LastURL = at.lastURL
		cr.SkipNote = at.skipMsg
		cr.LatencyMS += at.elapsed.Milliseconds()
		cr.Failure, cr.Why, cr.Error = classify(at, r.opts.Timeout)
		log.Printf("runner.scenario: done phase=%s title=%q attempt=%d status=%s failure=%s", phase, sc.Title, retry+1, at.status, cr.Failure)

		if sync {
			info := testrail.TestInfo{
				Title:     sc.Title,
				TitlePath: sc.Path(),
				Status:    at.status,
				Retry:     retry,
				Project:   r.opts.Project,
				Duration:  at.elapsed,
				Errors:    at.errs,
				LastURL:   at.lastURL,
			}
			if err := r.submitResult(ctx, info, runID); err != nil {
				log.Printf("runner.scenario: warn: testrail sync failed title=%q error=%v", sc.Title, err)
				cr.SyncError = err.Error()
			}
		}

		if at.status != testrail.TestFailed && at.status != testrail.TestTimedOut {
			break
		}
	}
	cr.Flaky = cr.Passed() && cr.Attempts > 1
	return cr
}

func (r *Runner) submitResult(ctx context.Context, info testrail.TestInfo, runID int) error {
	syncCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), syncTimeout)
	defer cancel()
	return r.opts.TestRail.AddTestResult(syncCtx, info, runID)
}

func skippedResult(sc Scenario, note string) CaseResult {
	return CaseResult{
		Title:     sc.Title,
		TitlePath: sc.Path(),
		Tags:      sc.Tags,
		Phase:     PhaseMain,
		Status:    testrail.TestSkipped,
		SkipNote:  note,
	}
}

// classify explains a finished attempt as failure type, reason and error text.
func classify(at attempt, timeout time.Duration) (string, string, string) {
	errText := strings.Join(at.errs, "\n")
	switch at.status {
	case testrail.TestPassed, testrail.TestSkipped:
		return "", "", ""
	case testrail.TestTimedOut:
		return "timeout", fmt.Sprintf("Scenario did not finish within %s.", timeout), errText
	case testrail.TestInterrupted:
		return "interrupted", "Run was interrupted while the scenario was running.", errText
	}

	var se *apilog.StatusError
	switch {
	case errors.As(at.lastErr, &se):
		return "status_mismatch", buildStatusMismatchReason([]int{se.Expected}, se.Actual, se.Body), errText
	case at.lastErr != nil:
		return "transport_error", "Request did not complete successfully.", errText
	case len(at.errs) > 0:
		return "assertion_failed", firstLine(at.errs[0]), errText
	default:
		return "assertion_failed", "Scenario failed without a message.", errText
	}
}

func buildStatusMismatchReason(expected []int, got int, rawBody string) string {
	base := fmt.Sprintf("Expected status in %v but received %d.", expected, got)
	if hint := genericErrorHint(rawBody); hint != "" {
		return base + " Response hint: " + hint
	}
	return base
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func summarize(results []CaseResult) RunSummary {
	var s RunSummary
	for _, res := range results {
		s.Total++
		switch res.Status {
		case testrail.TestPassed:
			s.Passed++
		case testrail.TestSkipped:
			s.Skipped++
		default:
			s.Failed++
		}
		if res.Flaky {
			s.Flaky++
		}
		if res.SyncError != "" {
			s.SyncErrors++
		}
	}
	return s
}

func writeJSON(path string, data any) error {
	log.Printf("runner.write_json: writing file=%s", path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("prepare output directory for %q: %w", path, err)
	}
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json %q: %w", path, err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write json file %q: %w", path, err)
	}
	return nil
}

func stringsTrimOrDefault(value, fallback string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	return trimmed
}
