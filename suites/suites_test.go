package suites

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conduitqa/conduit"
	"conduitqa/reporter"
	"conduitqa/testrail"
)

// fakeConduit is an in-memory Conduit API with users and articles.
type fakeConduit struct {
	t *testing.T

	mu       sync.Mutex
	users    map[string]conduit.UserCredentials // by email
	tokens   map[string]string                  // token to username
	articles []conduit.ArticleData
	deleted  []string
	seq      int
}

func newFakeConduit(t *testing.T) *fakeConduit {
	return &fakeConduit{t: t, users: map[string]conduit.UserCredentials{}, tokens: map[string]string{}}
}

func (f *fakeConduit) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/api/users":
		var req conduit.UserRequest
		require.NoError(f.t, json.NewDecoder(r.Body).Decode(&req))
		taken := map[string][]string{}
		for _, u := range f.users {
			if u.Email == req.User.Email {
				taken["email"] = []string{"has already been taken"}
			}
			if u.Username == req.User.Username {
				taken["username"] = []string{"has already been taken"}
			}
		}
		if len(taken) > 0 {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_ = json.NewEncoder(w).Encode(conduit.ErrorResponse{Errors: taken})
			return
		}
		f.users[req.User.Email] = req.User
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(conduit.UserResponse{User: conduit.User{Email: req.User.Email, Username: req.User.Username, Token: "t"}})

	case r.Method == http.MethodPost && r.URL.Path == "/api/users/login":
		var req conduit.UserRequest
		require.NoError(f.t, json.NewDecoder(r.Body).Decode(&req))
		u, ok := f.users[req.User.Email]
		if !ok || u.Password != req.User.Password {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"username": u.Username,
			"exp":      time.Now().Add(time.Hour).Unix(),
		}).SignedString([]byte("secret"))
		require.NoError(f.t, err)
		f.tokens[token] = u.Username
		_ = json.NewEncoder(w).Encode(conduit.UserResponse{User: conduit.User{Email: u.Email, Username: u.Username, Token: token}})

	case r.Method == http.MethodPost && r.URL.Path == "/api/articles/":
		author, ok := f.tokens[strings.TrimPrefix(r.Header.Get("Authorization"), "Token ")]
		if !ok {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var req conduit.ArticleRequest
		require.NoError(f.t, json.NewDecoder(r.Body).Decode(&req))
		f.seq++
		a := conduit.ArticleData{Article: req.Article, Slug: "article-" + string(rune('a'+f.seq)), Author: &conduit.Author{Username: author}}
		f.articles = append(f.articles, a)
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(conduit.ArticleResponse{Article: a})

	case r.Method == http.MethodGet && r.URL.Path == "/api/articles":
		author := r.URL.Query().Get("author")
		out := []conduit.ArticleData{}
		for _, a := range f.articles {
			if author == "" || a.Author.Username == author {
				out = append(out, a)
			}
		}
		_ = json.NewEncoder(w).Encode(conduit.ArticlesResponse{Articles: out, ArticlesCount: len(out)})

	case r.Method == http.MethodDelete && strings.HasPrefix(r.URL.Path, "/api/articles/"):
		slug := strings.TrimPrefix(r.URL.Path, "/api/articles/")
		kept := f.articles[:0]
		for _, a := range f.articles {
			if a.Slug != slug {
				kept = append(kept, a)
			}
		}
		f.articles = kept
		f.deleted = append(f.deleted, slug)
		w.WriteHeader(http.StatusNoContent)

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func runSuite(t *testing.T, baseURL string, opts reporter.Options) reporter.RunReport {
	t.Helper()
	opts.ReportPath = filepath.Join(t.TempDir(), "report.json")
	r, err := reporter.NewRunner(opts)
	require.NoError(t, err)
	rep, err := r.Run(context.Background(), Conduit(Deps{Clients: conduit.NewClients(baseURL), Password: "pa55"}))
	require.NoError(t, err)
	return rep
}

func TestConduitSuite_AllPass(t *testing.T) {
	fake := newFakeConduit(t)
	server := httptest.NewServer(fake)
	defer server.Close()

	rep := runSuite(t, server.URL, reporter.Options{Workers: 2})
	for _, res := range rep.Results {
		assert.Equal(t, testrail.TestPassed, res.Status, "%s: %s %s", res.Title, res.Why, res.Error)
	}
	assert.Equal(t, 6, rep.Summary.Total)
	assert.Equal(t, 6, rep.Summary.Passed)

	// fixed users plus the generated one
	assert.Len(t, fake.users, 3)
	assert.Contains(t, fake.users, "ukUser@test.com")
	assert.Contains(t, fake.users, "usUser@tets.com")

	// both articles were cleaned up
	assert.Len(t, fake.deleted, 2)
	assert.Empty(t, fake.articles)
}

func TestConduitSuite_SetupToleratesExistingUsers(t *testing.T) {
	fake := newFakeConduit(t)
	server := httptest.NewServer(fake)
	defer server.Close()

	runSuite(t, server.URL, reporter.Options{Grep: "@C4545"})
	rep := runSuite(t, server.URL, reporter.Options{Grep: "@C4545"})

	require.Len(t, rep.Results, 3)
	assert.Equal(t, "Create users", rep.Results[0].Title)
	assert.Equal(t, testrail.TestPassed, rep.Results[0].Status)
	assert.Equal(t, "422 Unprocessable - with existing username and password @C4545", rep.Results[1].Title)
	assert.Equal(t, testrail.TestPassed, rep.Results[1].Status)
}

func TestConduitSuite_TeardownKeepsForeignArticles(t *testing.T) {
	fake := newFakeConduit(t)
	fake.users["ukUser@test.com"] = conduit.UserCredentials{Username: "ukUser", Email: "ukUser@test.com", Password: "pa55"}
	fake.articles = []conduit.ArticleData{
		{Article: conduit.Article{Title: "Hand written"}, Slug: "manual", Author: &conduit.Author{Username: "ukUser"}},
		{Article: conduit.Article{Title: conduit.ArticleTitlePrefix + " old"}, Slug: "old", Author: &conduit.Author{Username: "ukUser"}},
	}
	server := httptest.NewServer(fake)
	defer server.Close()

	rep := runSuite(t, server.URL, reporter.Options{Grep: "^$"})
	assert.Equal(t, 2, rep.Summary.Passed)
	assert.Equal(t, []string{"old"}, fake.deleted)
	require.Len(t, fake.articles, 1)
	assert.Equal(t, "manual", fake.articles[0].Slug)
}

func TestConduitSuite_ArticleFailureIsStatusMismatch(t *testing.T) {
	fake := newFakeConduit(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && r.URL.Path == "/api/articles/" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"errors":{"title":["can't be blank"]}}`))
			return
		}
		fake.ServeHTTP(w, r)
	}))
	defer server.Close()

	rep := runSuite(t, server.URL, reporter.Options{Grep: "UK @C1111"})
	require.Len(t, rep.Results, 3)
	res := rep.Results[1]
	assert.Equal(t, testrail.TestFailed, res.Status)
	assert.Equal(t, "status_mismatch", res.Failure)
	assert.Equal(t, `Expected status in [201] but received 422. Response hint: {"title":["can't be blank"]}`, res.Why)
	assert.Equal(t, server.URL+"/api/articles/", res.LastURL)
	assert.Equal(t, []string{"Successful article creation"}, res.Steps)
}

func TestConduit_ScenarioTitlesCarryCaseIDs(t *testing.T) {
	suite := Conduit(Deps{Password: "x"})
	var ids []int
	for _, sc := range suite.Scenarios {
		ids = append(ids, testrail.CaseIDsForTitle(sc.Title)...)
	}
	assert.Equal(t, []int{1111, 2222, 123, 4545}, ids)
}
