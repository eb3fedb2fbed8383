package restclient

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startMockServer(handler http.HandlerFunc) *httptest.Server {
	return httptest.NewServer(handler)
}

func TestCreateClient_RejectsRelativeBaseURL(t *testing.T) {
	_, err := CreateClient("/api", nil)
	require.Error(t, err)
}

func TestRequest_JSONBodyAndHeaders(t *testing.T) {
	server := startMockServer(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/articles", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "yes", r.Header.Get("X-Trace"))
		assert.Equal(t, "Bearer abc", r.Header.Get("Authorization"))

		var payload map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "hello", payload["title"])

		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"ok":true}`)
	})
	defer server.Close()

	client, err := CreateClient(server.URL, &Authentication{Type: AuthBearer, Value: "abc"})
	require.NoError(t, err)

	resp, err := client.WithURL("/api/articles").
		WithHeaders(map[string]string{"X-Trace": "yes"}).
		WithBody(map[string]string{"title": "hello"}).
		Post(context.Background())
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	var out struct{ OK bool }
	require.NoError(t, resp.JSON(&out))
	assert.True(t, out.OK)

	// body is cached after the first read
	text, err := resp.Text()
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, text)
}

func TestRequest_ParamsAndForm(t *testing.T) {
	server := startMockServer(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "true", r.URL.Query().Get("draft"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		assert.Equal(t, "1.5", r.PostForm.Get("ratio"))
		w.WriteHeader(http.StatusOK)
	})
	defer server.Close()

	client, err := CreateClient(server.URL, nil)
	require.NoError(t, err)

	resp, err := client.WithURL("search").
		WithParams(map[string]any{"page": 2, "draft": true}).
		WithForm(map[string]any{"ratio": 1.5}).
		Put(context.Background())
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, resp.Close())
}

func TestRequest_UnsupportedParamFailsAtExecute(t *testing.T) {
	client, err := CreateClient("http://127.0.0.1:1", nil)
	require.NoError(t, err)

	_, err = client.WithURL("x").WithParams(map[string]any{"bad": []int{1}}).Get(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `param "bad"`)
}

func TestRequest_Multipart(t *testing.T) {
	server := startMockServer(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "avatar", r.MultipartForm.Value["kind"][0])
		fh := r.MultipartForm.File["file"][0]
		assert.Equal(t, "a.png", fh.Filename)
		assert.Equal(t, "image/png", fh.Header.Get("Content-Type"))
		f, err := fh.Open()
		require.NoError(t, err)
		defer f.Close()
		b, _ := io.ReadAll(f)
		assert.Equal(t, "PNG", string(b))
		w.WriteHeader(http.StatusNoContent)
	})
	defer server.Close()

	client, err := CreateClient(server.URL, nil)
	require.NoError(t, err)

	resp, err := client.WithURL("/upload").
		WithMultiPart(map[string]any{
			"kind": "avatar",
			"file": FilePart{Name: "a.png", MimeType: "image/png", Content: []byte("PNG")},
		}).
		Post(context.Background())
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestRequest_LastBodyKindWins(t *testing.T) {
	server := startMockServer(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusOK)
	})
	defer server.Close()

	client, err := CreateClient(server.URL, nil)
	require.NoError(t, err)

	resp, err := client.WithURL("/").
		WithForm(map[string]any{"a": "b"}).
		WithBody(map[string]int{"a": 1}).
		Patch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRequest_SingleUse(t *testing.T) {
	server := startMockServer(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	defer server.Close()

	client, err := CreateClient(server.URL, nil)
	require.NoError(t, err)

	req := client.WithURL("/once")
	_, err = req.Get(context.Background())
	require.NoError(t, err)

	_, err = req.Get(context.Background())
	assert.ErrorIs(t, err, ErrRequestReused)

	var zero Request
	_, err = zero.Delete(context.Background())
	assert.ErrorIs(t, err, ErrNoURL)
}

func TestClient_BasicAuthReplacesHeaderAuth(t *testing.T) {
	var gotAuth []string
	server := startMockServer(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = append(gotAuth, r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusOK)
	})
	defer server.Close()

	client, err := CreateClient(server.URL, nil)
	require.NoError(t, err)

	tokenClient := client.WithAuthorizationHeader("Token t1")
	basicClient := tokenClient.WithBaseAuthentication(BasicCredentials{Username: "u", Password: "p"})
	anonClient := basicClient.WithoutAuthentication()

	for _, c := range []*Client{tokenClient, basicClient, anonClient} {
		_, err := c.WithURL("/").Get(context.Background())
		require.NoError(t, err)
	}

	require.Len(t, gotAuth, 3)
	assert.Equal(t, "Token t1", gotAuth[0])
	assert.Equal(t, "Basic "+EncodeBasic("u", "p"), gotAuth[1])
	assert.Empty(t, gotAuth[2])
}

func TestClient_ResolveKeepsRawQueryRoutes(t *testing.T) {
	client, err := CreateClient("https://testrail.example/", nil)
	require.NoError(t, err)

	got, err := client.resolve("/index.php?/api/v2/get_cases/1&suite_id=4", nil)
	require.NoError(t, err)
	assert.Equal(t, "https://testrail.example/index.php?/api/v2/get_cases/1&suite_id=4", got)

	withParams, err := client.resolve("index.php?/api/v2/get_tests/9", map[string][]string{"limit": {"250"}})
	require.NoError(t, err)
	assert.Equal(t, "https://testrail.example/index.php?/api/v2/get_tests/9&limit=250", withParams)

	abs, err := client.resolve("http://other.example/x", nil)
	require.NoError(t, err)
	assert.Equal(t, "http://other.example/x", abs)
}

func TestRequest_TimeoutSurfacesAsTransportError(t *testing.T) {
	server := startMockServer(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	defer server.Close()

	client, err := CreateClient(server.URL, nil, WithTimeout(50*time.Millisecond))
	require.NoError(t, err)

	_, err = client.WithURL("/slow").Get(context.Background())
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "GET "+server.URL+"/slow"))
}

func TestResponse_StaticAndOK(t *testing.T) {
	resp := NewStaticResponse(http.StatusAccepted, "http://x", nil, []byte("hi"))
	assert.True(t, resp.OK())
	text, err := resp.Text()
	require.NoError(t, err)
	assert.Equal(t, "hi", text)
	assert.NoError(t, resp.Close())
}
