package restclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/goccy/go-json"
)

var (
	// ErrNoURL is returned when a request is executed without WithURL.
	ErrNoURL = errors.New("restclient: request has no url, start it with Client.WithURL")
	// ErrRequestReused is returned when a request is executed a second time.
	ErrRequestReused = errors.New("restclient: request already executed, start a new one with Client.WithURL")
)

// FilePart is a file entry of a multipart body.
type FilePart struct {
	Name     string
	MimeType string
	Content  []byte
}

type bodyKind int

const (
	bodyNone bodyKind = iota
	bodyJSON
	bodyForm
	bodyMultipart
)

// Request is the state of one HTTP call. It is built by chaining With* calls and consumed by
// exactly one of Get, Post, Put, Patch or Delete.
type Request struct {
	client    *Client
	url       string
	headers   http.Header
	params    url.Values
	form      url.Values
	body      any
	multipart map[string]any
	kind      bodyKind
	timeout   time.Duration
	executed  bool
	err       error
}

// WithHeaders merges headers into the request, later calls win.
func (r *Request) WithHeaders(headers map[string]string) *Request {
	for k, v := range headers {
		r.headers.Set(k, v)
	}
	return r
}

// WithParams replaces the query parameters. Values must be strings, bools or numbers.
func (r *Request) WithParams(params map[string]any) *Request {
	r.params = r.toValues(params, "param")
	return r
}

// WithForm sends fields as application/x-www-form-urlencoded.
func (r *Request) WithForm(form map[string]any) *Request {
	r.form = r.toValues(form, "form field")
	r.body, r.multipart = nil, nil
	r.kind = bodyForm
	return r
}

// WithBody sends body serialized as JSON.
func (r *Request) WithBody(body any) *Request {
	r.body = body
	r.form, r.multipart = nil, nil
	r.kind = bodyJSON
	return r
}

// WithMultiPart sends parts as multipart/form-data. Values are scalars or FilePart.
func (r *Request) WithMultiPart(parts map[string]any) *Request {
	r.multipart = parts
	r.body, r.form = nil, nil
	r.kind = bodyMultipart
	return r
}

// WithTimeout overrides the client timeout for this request only.
func (r *Request) WithTimeout(d time.Duration) *Request {
	r.timeout = d
	return r
}

// Body returns the JSON payload set with WithBody, for diagnostics.
func (r *Request) Body() any { return r.body }

func (r *Request) Get(ctx context.Context) (*Response, error) {
	return r.execute(ctx, http.MethodGet)
}

func (r *Request) Post(ctx context.Context) (*Response, error) {
	return r.execute(ctx, http.MethodPost)
}

func (r *Request) Put(ctx context.Context) (*Response, error) {
	return r.execute(ctx, http.MethodPut)
}

func (r *Request) Patch(ctx context.Context) (*Response, error) {
	return r.execute(ctx, http.MethodPatch)
}

func (r *Request) Delete(ctx context.Context) (*Response, error) {
	return r.execute(ctx, http.MethodDelete)
}

func (r *Request) execute(ctx context.Context, method string) (*Response, error) {
	if r == nil || r.client == nil {
		return nil, ErrNoURL
	}
	if r.executed {
		return nil, ErrRequestReused
	}
	r.executed = true
	if r.err != nil {
		return nil, r.err
	}

	target, err := r.client.resolve(r.url, r.params)
	if err != nil {
		return nil, err
	}

	body, contentType, err := r.encodeBody()
	if err != nil {
		return nil, err
	}

	cancel := context.CancelFunc(func() {})
	if r.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("new request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if ua := r.client.opts.userAgent; ua != "" {
		req.Header.Set("User-Agent", ua)
	}
	r.client.applyAuth(req)
	for k, vs := range r.headers {
		req.Header[k] = vs
	}

	start := time.Now()
	resp, err := r.client.httpClient.Do(req)
	latency := time.Since(start)
	if err != nil {
		cancel()
		log.Printf("restclient.execute: request failed method=%s url=%s error=%v", method, target, err)
		return nil, fmt.Errorf("%s %s: %w", method, target, err)
	}
	log.Printf("restclient.execute: received method=%s url=%s status=%d latency_ms=%d", method, target, resp.StatusCode, latency.Milliseconds())

	return newResponse(resp, method, target, latency, cancel), nil
}

// encodeBody renders the body and its content type. An explicit Content-Type header set with
// WithHeaders still overrides the returned one.
func (r *Request) encodeBody() (io.Reader, string, error) {
	switch r.kind {
	case bodyJSON:
		raw, err := json.Marshal(r.body)
		if err != nil {
			return nil, "", fmt.Errorf("marshal json body: %w", err)
		}
		return bytes.NewReader(raw), "application/json", nil
	case bodyForm:
		return bytes.NewBufferString(r.form.Encode()), "application/x-www-form-urlencoded", nil
	case bodyMultipart:
		return encodeMultipart(r.multipart)
	default:
		return nil, "", nil
	}
}

func encodeMultipart(parts map[string]any) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	keys := make([]string, 0, len(parts))
	for k := range parts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		switch v := parts[k].(type) {
		case FilePart:
			if err := writeFilePart(w, k, v); err != nil {
				return nil, "", err
			}
		case *FilePart:
			if err := writeFilePart(w, k, *v); err != nil {
				return nil, "", err
			}
		default:
			s, err := formatScalar(v)
			if err != nil {
				return nil, "", fmt.Errorf("multipart field %q: %w", k, err)
			}
			if err := w.WriteField(k, s); err != nil {
				return nil, "", fmt.Errorf("write multipart field %q: %w", k, err)
			}
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart writer: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

func writeFilePart(w *multipart.Writer, field string, f FilePart) error {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, f.Name))
	mimeType := f.MimeType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	h.Set("Content-Type", mimeType)
	pw, err := w.CreatePart(h)
	if err != nil {
		return fmt.Errorf("create multipart file %q: %w", field, err)
	}
	if _, err := pw.Write(f.Content); err != nil {
		return fmt.Errorf("write multipart file %q: %w", field, err)
	}
	return nil
}

// toValues converts scalar maps, remembering the first conversion error for execute.
func (r *Request) toValues(m map[string]any, what string) url.Values {
	vals := make(url.Values, len(m))
	for k, v := range m {
		s, err := formatScalar(v)
		if err != nil {
			if r.err == nil {
				r.err = fmt.Errorf("%s %q: %w", what, k, err)
			}
			continue
		}
		vals.Set(k, s)
	}
	return vals
}

func formatScalar(v any) (string, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case bool:
		return strconv.FormatBool(t), nil
	case int:
		return strconv.Itoa(t), nil
	case int8, int16, int32, int64:
		return fmt.Sprintf("%d", t), nil
	case uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", t), nil
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32), nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	case fmt.Stringer:
		return t.String(), nil
	default:
		return "", fmt.Errorf("unsupported value type %T", v)
	}
}
