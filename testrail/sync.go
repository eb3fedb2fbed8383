package testrail

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"

	"conduitqa/apilog"
	"conduitqa/config"
	"conduitqa/restclient"
)

// noActiveTest is the 400 error TestRail answers for a case that is not part of the run.
const noActiveTest = "No (active) test found for the run/case combination."

const commentTag = "Automated API Test"

// TestInfo describes one finished test attempt.
type TestInfo struct {
	Title     string
	TitlePath []string
	Status    TestStatus
	Retry     int
	Project   string
	Duration  time.Duration
	Errors    []string
	LastURL   string
}

// Sync keeps a TestRail run in step with the executed tests.
type Sync struct {
	client      restclient.Builder
	cfg         config.TestRail
	environment string
	now         func() time.Time

	mu       sync.Mutex
	runLocks map[int]*sync.Mutex
}

func NewSync(client restclient.Builder, cfg config.TestRail, environment config.Environment) *Sync {
	env := environment.String()
	if env == "" {
		env = config.QA.String()
	}
	return &Sync{
		client:      client,
		cfg:         cfg,
		environment: env,
		now:         time.Now,
		runLocks:    make(map[int]*sync.Mutex),
	}
}

// ResolveRunID returns explicit when positive, otherwise the configured run id.
func (s *Sync) ResolveRunID(explicit int) (int, error) {
	if explicit > 0 {
		return explicit, nil
	}
	raw := strings.TrimSpace(s.cfg.RunID)
	if raw == "" {
		return 0, &ConfigError{Setting: "TESTRAIL_TEST_RUN_ID", Reason: "the environment variable TESTRAIL_TEST_RUN_ID is required"}
	}
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, &ConfigError{Setting: "TESTRAIL_TEST_RUN_ID", Reason: fmt.Sprintf("run id must be a positive number, got %q", raw)}
	}
	return id, nil
}

// AddTestRun creates a run for projectKey holding the cases selected by condition. Empty
// arguments fall back to TESTRAIL_PROJECT and TESTRAIL_CASES_FILTER.
func (s *Sync) AddTestRun(ctx context.Context, projectKey string, condition *CaseFilterCondition) (int, error) {
	key := strings.TrimSpace(projectKey)
	if key == "" {
		key = strings.TrimSpace(s.cfg.Project)
	}
	projectID, err := ProjectID(key)
	if err != nil {
		return 0, err
	}
	suiteID, err := SuiteID(key)
	if err != nil {
		return 0, err
	}

	var cond CaseFilterCondition
	if condition != nil {
		if !condition.Valid() {
			return 0, invalidCondition(strconv.Itoa(int(*condition)))
		}
		cond = *condition
	} else if cond, err = ParseCaseFilterCondition(s.cfg.CasesFilter); err != nil {
		return 0, err
	}

	caseIDs, err := s.FilteredCaseIDs(ctx, projectID, suiteID, cond)
	if err != nil {
		return 0, err
	}

	now := s.now()
	request := AddRunRequest{
		SuiteID:     suiteID,
		Name:        s.runName(key, now),
		Description: fmt.Sprintf("Automated API test run created %s (UTC)", FormatRunDate(now)),
		IncludeAll:  false,
		CaseIDs:     caseIDs,
	}
	resp, err := AddRun(ctx, s.client, projectID, request)
	if err != nil {
		return 0, fmt.Errorf("add run project=%s: %w", key, err)
	}
	log.Printf("testrail.add_run: created run_id=%d project=%s condition=%s cases=%d", resp.ID, key, cond, len(caseIDs))
	return resp.ID, nil
}

func (s *Sync) runName(projectKey string, now time.Time) string {
	name := strings.TrimSpace(s.cfg.RunName)
	if name == "" {
		name = fmt.Sprintf("%s %s Automated Regression Pack", projectKey, s.environment)
	}
	return name + "  " + FormatRunDate(now)
}

// FilteredCaseIDs returns, in fetch order, the ids of the suite's cases matching cond.
// EmptyRun returns nothing without fetching.
func (s *Sync) FilteredCaseIDs(ctx context.Context, projectID, suiteID int, cond CaseFilterCondition) ([]int, error) {
	if cond == EmptyRun {
		return []int{}, nil
	}
	keep, ok := cond.Predicate()
	if !ok {
		return nil, invalidCondition(strconv.Itoa(int(cond)))
	}
	cases, err := GetCasesForSuite(ctx, s.client, projectID, suiteID)
	if err != nil {
		return nil, fmt.Errorf("get cases project_id=%d suite_id=%d: %w", projectID, suiteID, err)
	}
	ids := []int{}
	for _, tc := range cases {
		if keep(tc) {
			ids = append(ids, tc.ID)
		}
	}
	return ids, nil
}

// AddTestResult records info for every case id in its title. A title without ids is only
// a warning.
func (s *Sync) AddTestResult(ctx context.Context, info TestInfo, runID int) error {
	runID, err := s.ResolveRunID(runID)
	if err != nil {
		return err
	}
	caseIDs := CaseIDsForTitle(info.Title)
	if len(caseIDs) == 0 {
		log.Printf("testrail.add_result: warn: no case ids in title title=%q", info.Title)
		return nil
	}
	if _, err := StatusIDFor(info.Status); err != nil {
		return err
	}

	for _, caseID := range caseIDs {
		if err := s.EnsureCaseAddedToRun(ctx, runID, caseID); err != nil {
			return err
		}
		if err := s.SubmitTestResult(ctx, info, runID, caseID); err != nil {
			return err
		}
	}
	return nil
}

func (s *Sync) runLock(runID int) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.runLocks[runID]
	if !ok {
		l = &sync.Mutex{}
		s.runLocks[runID] = l
	}
	return l
}

// EnsureCaseAddedToRun adds caseID to the run unless it is already tracked. Additions to the
// same run are serialized because update_run replaces the whole case list.
func (s *Sync) EnsureCaseAddedToRun(ctx context.Context, runID, caseID int) error {
	l := s.runLock(runID)
	l.Lock()
	defer l.Unlock()

	res, err := GetResultsForCase(ctx, s.client, runID, caseID, apilog.Quiet())
	if err == nil {
		return nil
	}
	var se *apilog.StatusError
	if !errors.As(err, &se) || se.Actual != apilog.StatusBadRequest || gjson.Get(se.Body, "error").String() != noActiveTest {
		return &UnexpectedResponseError{Op: "get_results_for_case", RunID: runID, CaseID: caseID, StatusCode: res.StatusCode, Body: res.Body, Err: err}
	}

	tests, err := GetTestsForRun(ctx, s.client, runID)
	if err != nil {
		return &UnexpectedResponseError{Op: "get_tests", RunID: runID, CaseID: caseID, Err: err}
	}
	caseIDs := make([]int, 0, len(tests)+1)
	for _, t := range tests {
		caseIDs = append(caseIDs, t.CaseID)
	}
	caseIDs = append(caseIDs, caseID)

	if err := UpdateRun(ctx, s.client, runID, UpdateRunRequest{IncludeAll: false, CaseIDs: caseIDs}); err != nil {
		return &UnexpectedResponseError{Op: "update_run", RunID: runID, CaseID: caseID, Err: err}
	}
	log.Printf("testrail.ensure: case added run_id=%d case_id=%d run_cases=%d", runID, caseID, len(caseIDs))
	return nil
}

// SubmitTestResult posts the mapped status and a readable comment for one case.
func (s *Sync) SubmitTestResult(ctx context.Context, info TestInfo, runID, caseID int) error {
	statusID, err := StatusIDFor(info.Status)
	if err != nil {
		return err
	}
	request := AddResultForCaseRequest{StatusID: statusID, Comment: s.Comment(info, caseID)}
	if err := AddResultForCase(ctx, s.client, runID, caseID, request); err != nil {
		return fmt.Errorf("add result run_id=%d case_id=%d: %w", runID, caseID, err)
	}
	log.Printf("testrail.submit: result added run_id=%d case_id=%d status_id=%d", runID, caseID, statusID)
	return nil
}

// Comment builds the result comment for caseID.
func (s *Sync) Comment(info TestInfo, caseID int) string {
	specFile := ""
	if len(info.TitlePath) > 0 {
		specFile = info.TitlePath[0]
	}
	lines := []string{
		fmt.Sprintf("Test Case: C%d", caseID),
		"Title: " + info.Title,
		"Spec file: " + specFile,
		"Status: " + string(info.Status),
		fmt.Sprintf("Attempt: %d", info.Retry+1),
		"Project: " + info.Project,
		"Environment: " + s.environment,
		"Most recent URL: " + info.LastURL,
		"Duration: " + FormatDuration(info.Duration),
		commentTag,
		FormatTestErrors(info.Errors),
	}
	kept := lines[:0]
	for _, l := range lines {
		if l != "" {
			kept = append(kept, l)
		}
	}
	return strings.Join(kept, "\n")
}

// ShouldSkipTestExecution reports whether any case in title already has an
// AutomationPassed latest result. Failed lookups count as not passed.
func (s *Sync) ShouldSkipTestExecution(ctx context.Context, title string, runID int) (bool, error) {
	runID, err := s.ResolveRunID(runID)
	if err != nil {
		return false, err
	}
	caseIDs := CaseIDsForTitle(title)
	if len(caseIDs) == 0 {
		log.Printf("testrail.should_skip: warn: no case ids in title title=%q", title)
		return false, nil
	}

	for _, caseID := range caseIDs {
		res, err := GetResultsForCase(ctx, s.client, runID, caseID, apilog.Quiet())
		if err != nil {
			log.Printf("testrail.should_skip: warn: failed to fetch results run_id=%d case_id=%d error=%v", runID, caseID, err)
			continue
		}
		latest, ok := LatestResult(res.Results)
		if ok && latest.StatusID == StatusAutomationPassed {
			log.Printf("testrail.should_skip: skipping, already passed run_id=%d case_id=%d", runID, caseID)
			return true, nil
		}
	}
	return false, nil
}
