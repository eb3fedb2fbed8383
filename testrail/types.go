package testrail

// Case is a test case as returned by get_cases.
type Case struct {
	ID                     int    `json:"id"`
	Title                  string `json:"title"`
	SectionID              int    `json:"section_id"`
	TemplateID             int    `json:"template_id"`
	TypeID                 int    `json:"type_id"`
	PriorityID             int    `json:"priority_id"`
	MilestoneID            int    `json:"milestone_id"`
	Refs                   string `json:"refs"`
	SuiteID                int    `json:"suite_id"`
	IsDeleted              int    `json:"is_deleted"`
	CustomCanBeAutomated   int    `json:"custom_can_be_automated"`
	CustomIsAutomated      int    `json:"custom_is_automated"`
	CustomAutomationType   int    `json:"custom_automation_type"`
	CustomIsProductionTest bool   `json:"custom_is_production_test"`
	CustomIsMobileTest     bool   `json:"custom_is_mobile_test"`
	CustomPreconds         string `json:"custom_preconds"`
}

// Test is a case instance inside a run, as returned by get_tests.
type Test struct {
	ID                   int      `json:"id"`
	CaseID               int      `json:"case_id"`
	StatusID             StatusID `json:"status_id"`
	RunID                int      `json:"run_id"`
	Title                string   `json:"title"`
	TypeID               int      `json:"type_id"`
	PriorityID           int      `json:"priority_id"`
	CustomIsAutomated    int      `json:"custom_is_automated"`
	CustomAutomationType int      `json:"custom_automation_type"`
}

// Result is one submitted outcome for a (run, case) pair.
type Result struct {
	ID        int      `json:"id"`
	TestID    int      `json:"test_id"`
	StatusID  StatusID `json:"status_id"`
	CreatedOn int64    `json:"created_on"`
	Comment   string   `json:"comment"`
	Version   string   `json:"version"`
	Elapsed   string   `json:"elapsed"`
	Defects   string   `json:"defects"`
	CreatedBy int      `json:"created_by"`
}

// ResultsForCase is the outcome of get_results_for_case. StatusCode and Body are kept so
// callers can tell "not tracked yet" apart from other failures.
type ResultsForCase struct {
	StatusCode int
	Results    []Result
	Body       string
}

type AddRunRequest struct {
	SuiteID     int    `json:"suite_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	IncludeAll  bool   `json:"include_all"`
	CaseIDs     []int  `json:"case_ids"`
}

type AddRunResponse struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	SuiteID     int    `json:"suite_id"`
	ProjectID   int    `json:"project_id"`
	IncludeAll  bool   `json:"include_all"`
	IsCompleted bool   `json:"is_completed"`
	URL         string `json:"url"`
}

type UpdateRunRequest struct {
	IncludeAll bool  `json:"include_all"`
	CaseIDs    []int `json:"case_ids"`
}

type AddResultForCaseRequest struct {
	StatusID StatusID `json:"status_id"`
	Comment  string   `json:"comment"`
}
