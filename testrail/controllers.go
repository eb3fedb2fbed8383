package testrail

import (
	"bytes"
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/tidwall/gjson"

	"conduitqa/apilog"
	"conduitqa/restclient"
)

// decodeList accepts both the legacy bare array and the paginated {"<key>": [...]} shape.
func decodeList[T any](body []byte, key string) ([]T, error) {
	var out []T
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return out, nil
	}
	raw := trimmed
	if trimmed[0] == '{' {
		field := gjson.GetBytes(trimmed, key)
		if !field.Exists() {
			return nil, fmt.Errorf("decode %s: field missing in paginated response", key)
		}
		raw = []byte(field.Raw)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return out, nil
}

func getList[T any](ctx context.Context, client restclient.Builder, path, key string, opts []apilog.Option) ([]T, error) {
	resp, err := client.WithURL(path).Get(ctx)
	if err != nil {
		return nil, err
	}
	defer resp.Close()
	if err := apilog.Verify(resp, apilog.StatusOK, nil, opts...); err != nil {
		return nil, err
	}
	body, err := resp.Bytes()
	if err != nil {
		return nil, err
	}
	return decodeList[T](body, key)
}

func GetCasesForSuite(ctx context.Context, client restclient.Builder, projectID, suiteID int, opts ...apilog.Option) ([]Case, error) {
	path := fmt.Sprintf("%s/get_cases/%d&suite_id=%d", apiRoot, projectID, suiteID)
	return getList[Case](ctx, client, path, "cases", opts)
}

func GetTestsForRun(ctx context.Context, client restclient.Builder, runID int, opts ...apilog.Option) ([]Test, error) {
	path := fmt.Sprintf("%s/get_tests/%d", apiRoot, runID)
	return getList[Test](ctx, client, path, "tests", opts)
}

// GetResultsForCase fetches the result history of a case in a run. On a status mismatch the
// returned ResultsForCase still carries the status code and body next to the *apilog.StatusError.
func GetResultsForCase(ctx context.Context, client restclient.Builder, runID, caseID int, opts ...apilog.Option) (ResultsForCase, error) {
	path := fmt.Sprintf("%s/get_results_for_case/%d/%d", apiRoot, runID, caseID)
	resp, err := client.WithURL(path).Get(ctx)
	if err != nil {
		return ResultsForCase{}, err
	}
	defer resp.Close()

	body, readErr := resp.Bytes()
	out := ResultsForCase{StatusCode: resp.StatusCode, Body: string(body)}
	if err := apilog.Verify(resp, apilog.StatusOK, nil, opts...); err != nil {
		return out, err
	}
	if readErr != nil {
		return out, readErr
	}
	out.Results, err = decodeList[Result](body, "results")
	return out, err
}

func AddResultForCase(ctx context.Context, client restclient.Builder, runID, caseID int, request AddResultForCaseRequest, opts ...apilog.Option) error {
	path := fmt.Sprintf("%s/add_result_for_case/%d/%d", apiRoot, runID, caseID)
	return post(ctx, client, path, request, opts)
}

// UpdateRun replaces the run's case selection.
func UpdateRun(ctx context.Context, client restclient.Builder, runID int, request UpdateRunRequest, opts ...apilog.Option) error {
	path := fmt.Sprintf("%s/update_run/%d", apiRoot, runID)
	return post(ctx, client, path, request, opts)
}

func AddRun(ctx context.Context, client restclient.Builder, projectID int, request AddRunRequest, opts ...apilog.Option) (AddRunResponse, error) {
	path := fmt.Sprintf("%s/add_run/%d", apiRoot, projectID)
	resp, err := client.WithURL(path).WithBody(request).Post(ctx)
	if err != nil {
		return AddRunResponse{}, err
	}
	defer resp.Close()
	return apilog.VerifyJSON[AddRunResponse](resp, apilog.StatusOK, request, opts...)
}

func post(ctx context.Context, client restclient.Builder, path string, request any, opts []apilog.Option) error {
	resp, err := client.WithURL(path).WithBody(request).Post(ctx)
	if err != nil {
		return err
	}
	defer resp.Close()
	return apilog.Verify(resp, apilog.StatusOK, request, opts...)
}
