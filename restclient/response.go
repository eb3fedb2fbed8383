package restclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
)

// Response is the raw outcome of a request. Status codes are not validated here.
//
// The body is read lazily on first access and cached, so the diagnostic logger and the caller
// may both look at it.
type Response struct {
	StatusCode int
	Status     string
	Header     http.Header
	Method     string
	URL        string
	Duration   time.Duration

	raw     *http.Response
	cancel  context.CancelFunc
	body    []byte
	read    bool
	readErr error
}

func newResponse(resp *http.Response, method, url string, d time.Duration, cancel context.CancelFunc) *Response {
	return &Response{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Header:     resp.Header,
		Method:     method,
		URL:        url,
		Duration:   d,
		raw:        resp,
		cancel:     cancel,
	}
}

// NewStaticResponse builds a Response with an already known body. Used by tests and by
// callers replaying recorded traffic.
func NewStaticResponse(status int, url string, header http.Header, body []byte) *Response {
	if header == nil {
		header = make(http.Header)
	}
	return &Response{
		StatusCode: status,
		Status:     fmt.Sprintf("%d %s", status, http.StatusText(status)),
		Header:     header,
		URL:        url,
		body:       body,
		read:       true,
	}
}

// Bytes reads the whole body once and closes the underlying stream.
func (r *Response) Bytes() ([]byte, error) {
	if r.read {
		return r.body, r.readErr
	}
	r.read = true
	if r.raw == nil || r.raw.Body == nil {
		return nil, nil
	}
	r.body, r.readErr = io.ReadAll(r.raw.Body)
	_ = r.Close()
	if r.readErr != nil {
		r.readErr = fmt.Errorf("read response body %s: %w", r.URL, r.readErr)
	}
	return r.body, r.readErr
}

func (r *Response) Text() (string, error) {
	b, err := r.Bytes()
	return string(b), err
}

// JSON decodes the body into v.
func (r *Response) JSON(v any) error {
	b, err := r.Bytes()
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decode response %s %s: %w", r.Method, r.URL, err)
	}
	return nil
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode <= 299
}

// Close releases the connection without reading the body. Safe to call more than once.
func (r *Response) Close() error {
	var err error
	if r.raw != nil && r.raw.Body != nil {
		err = r.raw.Body.Close()
		r.raw.Body = nil
	}
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	return err
}
