package reporter

import (
	"fmt"
	"sort"
	"strings"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/require"
)

// MatchObject checks that actual contains every field of expected, recursively. Objects may
// carry extra keys; arrays must have the same length. Both sides are compared in their JSON
// form so typed responses can be matched against partial expectations.
func MatchObject(t require.TestingT, expected, actual any) bool {
	if h, ok := t.(interface{ Helper() }); ok {
		h.Helper()
	}
	exp, err := toGeneric(expected)
	if err != nil {
		t.Errorf("match object: expected value: %v", err)
		return false
	}
	act, err := toGeneric(actual)
	if err != nil {
		t.Errorf("match object: actual value: %v", err)
		return false
	}
	if path, e, a, diff := firstContentDifference("$", exp, act); diff {
		t.Errorf("Response content mismatch at %s (expected=%s got=%s).", path, e, a)
		return false
	}
	return true
}

// RequireMatchObject is MatchObject that stops the scenario on mismatch.
func RequireMatchObject(t require.TestingT, expected, actual any) {
	if !MatchObject(t, expected, actual) {
		t.FailNow()
	}
}

func toGeneric(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func firstContentDifference(path string, expected any, actual any) (string, string, string, bool) {
	switch exp := expected.(type) {
	case map[string]any:
		act, ok := actual.(map[string]any)
		if !ok {
			return path, compactForReport(expected), compactForReport(actual), true
		}
		for _, k := range sortedKeys(exp) {
			a, exists := act[k]
			if !exists {
				return path + "." + k, compactForReport(exp[k]), "<missing>", true
			}
			if p, e, av, diff := firstContentDifference(path+"."+k, exp[k], a); diff {
				return p, e, av, true
			}
		}
		return "", "", "", false
	case []any:
		act, ok := actual.([]any)
		if !ok {
			return path, compactForReport(expected), compactForReport(actual), true
		}
		if len(act) != len(exp) {
			return path, fmt.Sprintf("len=%d", len(exp)), fmt.Sprintf("len=%d", len(act)), true
		}
		for i := range exp {
			if p, e, av, diff := firstContentDifference(fmt.Sprintf("%s[%d]", path, i), exp[i], act[i]); diff {
				return p, e, av, true
			}
		}
		return "", "", "", false
	default:
		if actual != expected {
			return path, compactForReport(expected), compactForReport(actual), true
		}
		return "", "", "", false
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func genericErrorHint(rawBody string) string {
	if strings.TrimSpace(rawBody) == "" {
		return ""
	}
	var v any
	if err := json.Unmarshal([]byte(rawBody), &v); err != nil {
		return ""
	}
	return extractErrorHint(v)
}

func extractErrorHint(v any) string {
	switch obj := v.(type) {
	case map[string]any:
		for _, key := range []string{"detail", "error", "errors", "message", "msg", "reason", "title"} {
			if val, ok := obj[key]; ok {
				return compactForReport(val)
			}
		}
		for _, k := range sortedKeys(obj) {
			if hint := extractErrorHint(obj[k]); hint != "" {
				return hint
			}
		}
	case []any:
		for _, item := range obj {
			if hint := extractErrorHint(item); hint != "" {
				return hint
			}
		}
	}
	return ""
}

func compactForReport(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
