package testrail

import (
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/require"

	"conduitqa/config"
)

// fakeTestRail is an in-memory TestRail keeping run membership and results.
type fakeTestRail struct {
	mu sync.Mutex

	cases    []Case
	tracked  map[int][]int
	results  map[[2]int][]Result
	broken   map[int]int
	calls    []string
	updates  []UpdateRunRequest
	addRuns  []AddRunRequest
	submits  map[int]AddResultForCaseRequest
	runIDSeq int
}

func newFakeTestRail() *fakeTestRail {
	return &fakeTestRail{
		tracked:  map[int][]int{},
		results:  map[[2]int][]Result{},
		broken:   map[int]int{},
		submits:  map[int]AddResultForCaseRequest{},
		runIDSeq: 320,
	}
}

func (f *fakeTestRail) callCount(route string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == route {
			n++
		}
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (f *fakeTestRail) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if u, p, ok := r.BasicAuth(); !ok || u != "user" || p != "secret" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "auth"})
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	route := strings.SplitN(strings.TrimPrefix(r.URL.RawQuery, "/api/v2/"), "&", 2)[0]
	parts := strings.Split(route, "/")
	f.calls = append(f.calls, parts[0])
	arg := func(i int) int {
		n, _ := strconv.Atoi(parts[i])
		return n
	}

	switch parts[0] {
	case "get_cases":
		writeJSON(w, http.StatusOK, f.cases)
	case "get_tests":
		tests := []Test{}
		for i, id := range f.tracked[arg(1)] {
			tests = append(tests, Test{ID: 1000 + i, CaseID: id, RunID: arg(1)})
		}
		writeJSON(w, http.StatusOK, map[string]any{"offset": 0, "size": len(tests), "tests": tests})
	case "get_results_for_case":
		runID, caseID := arg(1), arg(2)
		if status, ok := f.broken[caseID]; ok {
			writeJSON(w, status, map[string]string{"error": "Field :case_id is not a valid test case."})
			return
		}
		if !slices.Contains(f.tracked[runID], caseID) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": noActiveTest})
			return
		}
		results := f.results[[2]int{runID, caseID}]
		if results == nil {
			results = []Result{}
		}
		writeJSON(w, http.StatusOK, results)
	case "update_run":
		var req UpdateRunRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		f.updates = append(f.updates, req)
		f.tracked[arg(1)] = req.CaseIDs
		writeJSON(w, http.StatusOK, map[string]int{"id": arg(1)})
	case "add_run":
		var req AddRunRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		f.addRuns = append(f.addRuns, req)
		f.runIDSeq++
		writeJSON(w, http.StatusOK, AddRunResponse{ID: f.runIDSeq, Name: req.Name, ProjectID: arg(1), SuiteID: req.SuiteID})
	case "add_result_for_case":
		var req AddResultForCaseRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		f.submits[arg(2)] = req
		writeJSON(w, http.StatusOK, map[string]int{"id": 1})
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown route " + route})
	}
}

func newTestSync(t *testing.T, fake *fakeTestRail, cfg config.TestRail) *Sync {
	t.Helper()
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	cfg.BaseURL = server.URL
	cfg.Username = "user"
	cfg.Password = "secret"
	client, err := NewClient(cfg)
	require.NoError(t, err)
	return NewSync(client, cfg, config.QA)
}
