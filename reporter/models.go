package reporter

import "conduitqa/testrail"

// RunReport is the persisted outcome of one run.
type RunReport struct {
	Summary   RunSummary   `json:"summary"`
	Persisted bool         `json:"persisted"`
	RunID     int          `json:"testrail_run_id,omitempty"`
	Results   []CaseResult `json:"results"`
}

type RunSummary struct {
	Total      int   `json:"total"`
	Passed     int   `json:"passed"`
	Failed     int   `json:"failed"`
	Skipped    int   `json:"skipped"`
	Flaky      int   `json:"flaky"`
	SyncErrors int   `json:"sync_errors"`
	DurationMS int64 `json:"duration_ms"`
}

// Phase tells setup, main and teardown scenarios apart in the report.
type Phase string

const (
	PhaseSetup    Phase = "setup"
	PhaseMain     Phase = "main"
	PhaseTeardown Phase = "teardown"
)

type CaseResult struct {
	Title     string              `json:"title"`
	TitlePath []string            `json:"title_path"`
	Tags      []string            `json:"tags,omitempty"`
	Phase     Phase               `json:"phase"`
	Status    testrail.TestStatus `json:"status"`
	Attempts  int                 `json:"attempts"`
	Flaky     bool                `json:"flaky,omitempty"`
	Failure   string              `json:"failure_type,omitempty"`
	Why       string              `json:"why_failed,omitempty"`
	Error     string              `json:"error,omitempty"`
	Steps     []string            `json:"steps,omitempty"`
	LastURL   string              `json:"last_url,omitempty"`
	SkipNote  string              `json:"skip_reason,omitempty"`
	SyncError string              `json:"testrail_error,omitempty"`
	LatencyMS int64               `json:"latency_ms"`
}

// Passed reports whether the case counts as passed in the summary.
func (c CaseResult) Passed() bool { return c.Status == testrail.TestPassed }
