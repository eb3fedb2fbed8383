package testrail

import (
	"fmt"
	"strconv"
	"strings"
)

// StatusID is a TestRail result status.
type StatusID int

const (
	StatusPassed           StatusID = 1
	StatusBlocked          StatusID = 2
	StatusUntested         StatusID = 3
	StatusRetest           StatusID = 4
	StatusFailed           StatusID = 5
	StatusSkipped          StatusID = 6
	StatusAutomationPassed StatusID = 7
	StatusAutomationFailed StatusID = 8
)

type project struct {
	key     string
	id      int
	suiteID int
}

var projects = []project{
	{key: "BSOM", id: 1, suiteID: 1},
	{key: "RTIS", id: 2, suiteID: 4},
}

// ProjectKeys lists the known project keys.
func ProjectKeys() []string {
	keys := make([]string, len(projects))
	for i, p := range projects {
		keys[i] = p.key
	}
	return keys
}

func lookupProject(key string) (project, error) {
	for _, p := range projects {
		if p.key == key {
			return p, nil
		}
	}
	return project{}, &ConfigError{
		Setting: "TESTRAIL_PROJECT",
		Reason:  fmt.Sprintf("invalid or missing project %q", key),
		Valid:   ProjectKeys(),
	}
}

// ProjectID resolves a project key to its numeric id.
func ProjectID(key string) (int, error) {
	p, err := lookupProject(key)
	return p.id, err
}

// SuiteID resolves a project key to the suite its runs are created in.
func SuiteID(key string) (int, error) {
	p, err := lookupProject(key)
	return p.suiteID, err
}

// CaseFilterCondition selects which cases go into a new run.
type CaseFilterCondition int

const (
	EmptyRun CaseFilterCondition = iota
	IsAutomated
	IsProductionTest
	IsMobileTest
	IsRegressionType
	IsAPITest
	IsUITest
)

var conditionNames = []string{
	"EmptyRun",
	"IsAutomated",
	"IsProductionTest",
	"IsMobileTest",
	"IsRegressionType",
	"IsAPITest",
	"IsUITest",
}

const regressionTypeID = 9

func (c CaseFilterCondition) String() string {
	if !c.Valid() {
		return fmt.Sprintf("CaseFilterCondition(%d)", int(c))
	}
	return conditionNames[c]
}

func (c CaseFilterCondition) Valid() bool {
	return c >= EmptyRun && int(c) < len(conditionNames)
}

// Predicate returns the case filter. EmptyRun and unknown values have none.
func (c CaseFilterCondition) Predicate() (func(Case) bool, bool) {
	switch c {
	case IsAutomated:
		return func(tc Case) bool { return tc.CustomIsAutomated == 1 }, true
	case IsProductionTest:
		return func(tc Case) bool { return tc.CustomIsProductionTest }, true
	case IsMobileTest:
		return func(tc Case) bool { return tc.CustomIsMobileTest }, true
	case IsRegressionType:
		return func(tc Case) bool { return tc.TypeID == regressionTypeID }, true
	case IsAPITest:
		return func(tc Case) bool { return tc.CustomAutomationType == 0 }, true
	case IsUITest:
		return func(tc Case) bool { return tc.CustomAutomationType == 1 }, true
	default:
		return nil, false
	}
}

func validConditions() []string {
	out := make([]string, len(conditionNames))
	for i, name := range conditionNames {
		out[i] = fmt.Sprintf("%d = %s", i, name)
	}
	return out
}

func invalidCondition(raw string) error {
	return &ConfigError{
		Setting: "TESTRAIL_CASES_FILTER",
		Reason:  fmt.Sprintf("invalid or missing cases filter %q", raw),
		Valid:   validConditions(),
	}
}

// ParseCaseFilterCondition accepts the numeric value or the name, case-insensitively.
func ParseCaseFilterCondition(s string) (CaseFilterCondition, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, invalidCondition(s)
	}
	if n, err := strconv.Atoi(s); err == nil {
		c := CaseFilterCondition(n)
		if !c.Valid() {
			return 0, invalidCondition(s)
		}
		return c, nil
	}
	for i, name := range conditionNames {
		if strings.EqualFold(name, s) {
			return CaseFilterCondition(i), nil
		}
	}
	return 0, invalidCondition(s)
}

// TestStatus is the terminal state of an executed test.
type TestStatus string

const (
	TestPassed      TestStatus = "passed"
	TestFailed      TestStatus = "failed"
	TestTimedOut    TestStatus = "timedOut"
	TestInterrupted TestStatus = "interrupted"
	TestSkipped     TestStatus = "skipped"
)

// StatusIDFor maps a test status to the result status submitted for it.
func StatusIDFor(status TestStatus) (StatusID, error) {
	switch status {
	case TestSkipped:
		return StatusSkipped, nil
	case TestPassed:
		return StatusAutomationPassed, nil
	case TestFailed, TestTimedOut, TestInterrupted:
		return StatusAutomationFailed, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnrecognizedStatus, string(status))
	}
}
