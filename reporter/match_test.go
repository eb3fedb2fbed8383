package reporter

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

type recorder struct {
	errs   []string
	failed bool
}

func (r *recorder) Errorf(format string, args ...any) { r.errs = append(r.errs, fmt.Sprintf(format, args...)) }
func (r *recorder) FailNow() { r.failed = true }

type article struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	TagList     []string `json:"tagList"`
	Slug        string   `json:"slug,omitempty"`
}

func TestMatchObject(t *testing.T) {
	actual := map[string]any{
		"article": article{Title: "t", Description: "d", TagList: []string{"a", "b"}, Slug: "t-123"},
	}

	tests := []struct {
		name     string
		expected any
		ok       bool
		msg      string
	}{
		{"subset", map[string]any{"article": map[string]any{"title": "t"}}, true, ""},
		{"typed subset", map[string]any{"article": article{Title: "t", Description: "d", TagList: []string{"a", "b"}}}, true, ""},
		{"value differs", map[string]any{"article": map[string]any{"title": "x"}}, false, `Response content mismatch at $.article.title (expected="x" got="t").`},
		{"missing key", map[string]any{"article": map[string]any{"body": "b"}}, false, `Response content mismatch at $.article.body (expected="b" got=<missing>).`},
		{"array length", map[string]any{"article": map[string]any{"tagList": []string{"a"}}}, false, "Response content mismatch at $.article.tagList (expected=len=1 got=len=2)."},
		{"array order", map[string]any{"article": map[string]any{"tagList": []string{"b", "a"}}}, false, `Response content mismatch at $.article.tagList[0] (expected="b" got="a").`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := &recorder{}
			assert.Equal(t, tc.ok, MatchObject(rec, tc.expected, actual))
			if tc.ok {
				assert.Empty(t, rec.errs)
				return
			}
			assert.Equal(t, []string{tc.msg}, rec.errs)
		})
	}
}

func TestRequireMatchObject_FailsNow(t *testing.T) {
	rec := &recorder{}
	RequireMatchObject(rec, map[string]any{"a": 1}, map[string]any{"a": 2})
	assert.True(t, rec.failed)
}

func TestGenericErrorHint(t *testing.T) {
	assert.Equal(t, "", genericErrorHint(""))
	assert.Equal(t, "", genericErrorHint("not json"))
	assert.Equal(t, `"bad token"`, genericErrorHint(`{"message":"bad token"}`))
	assert.Equal(t, `"nested"`, genericErrorHint(`{"data":{"error":"nested"}}`))
	assert.Equal(t, `"first"`, genericErrorHint(`[{"detail":"first"},{"detail":"second"}]`))
}
