package testrail

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnrecognizedStatus is returned for a test status with no result mapping.
var ErrUnrecognizedStatus = errors.New("testrail: unrecognized test status")

// ConfigError reports a missing or invalid setting. It is raised before any network call.
type ConfigError struct {
	Setting string
	Reason  string
	Valid   []string
}

func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("testrail config %s: %s", e.Setting, e.Reason)
	if len(e.Valid) > 0 {
		msg += ". Provide it explicitly or set " + e.Setting + " to one of: " + strings.Join(e.Valid, ", ")
	}
	return msg
}

// UnexpectedResponseError is any remote failure other than the anticipated
// "case not in run" answer.
type UnexpectedResponseError struct {
	Op         string
	RunID      int
	CaseID     int
	StatusCode int
	Body       string
	Err        error
}

func (e *UnexpectedResponseError) Error() string {
	msg := fmt.Sprintf("testrail %s run_id=%d case_id=%d: unexpected response", e.Op, e.RunID, e.CaseID)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" status=%d body=%s", e.StatusCode, truncate(e.Body, 500))
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *UnexpectedResponseError) Unwrap() error { return e.Err }

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
