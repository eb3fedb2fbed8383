// Package apilog checks response status codes and dumps diagnostics when they do not match.
package apilog

import (
	"bytes"
	"fmt"
	"log"
	"strings"

	"github.com/fatih/color"
	"github.com/goccy/go-json"

	"conduitqa/restclient"
)

const emptyBody = "<---empty body--->"

// StatusError is returned by Verify when the actual status differs from the expected one.
type StatusError struct {
	Method   string
	URL      string
	Expected int
	Actual   int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %s %s: expected=%d got=%d", e.Method, e.URL, e.Expected, e.Actual)
}

// Logger writes failure diagnostics. The zero value logs to log.Default().
type Logger struct {
	Out *log.Logger
}

var defaultLogger = &Logger{}

// Default returns the package logger used by Verify.
func Default() *Logger { return defaultLogger }

func (l *Logger) out() *log.Logger {
	if l == nil || l.Out == nil {
		return log.Default()
	}
	return l.Out
}

// LogOnFailure prints the call details when resp.StatusCode != expected. It reads the body
// through the response cache, so the caller can still decode it afterwards.
func (l *Logger) LogOnFailure(resp *restclient.Response, expected int, request any) {
	if resp == nil || resp.StatusCode == expected {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			l.out().Printf("apilog.log_on_failure: warn: diagnostics aborted error=%v", r)
		}
	}()

	text, err := resp.Text()
	if err != nil {
		text = ""
		l.out().Printf("apilog.log_on_failure: warn: body unreadable url=%s error=%v", resp.URL, err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Executed call to --> %s  %s \n\n", resp.URL, color.New(color.FgRed, color.Bold).Sprint("***FAILED***"))
	fmt.Fprintf(&b, "Expected status code: %d\n", expected)
	fmt.Fprintf(&b, "Actual status code: %d\n\n", resp.StatusCode)
	fmt.Fprintf(&b, "Response Body:\n%s \n\n", FormatBody(text))
	fmt.Fprintf(&b, "Response headers: %s \n\n", formatHeaders(resp))
	fmt.Fprintf(&b, "Request Body:\n%s \n", FormatBody(request))
	l.out().Print(b.String())
}

// FormatBody renders body as indented JSON when possible, as raw text otherwise, and as a
// placeholder when there is nothing to show.
func FormatBody(body any) string {
	switch v := body.(type) {
	case nil:
		return emptyBody
	case string:
		return formatRaw([]byte(v))
	case []byte:
		return formatRaw(v)
	case json.RawMessage:
		return formatRaw(v)
	default:
		out, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Sprintf("%+v", v)
		}
		return string(out)
	}
}

func formatRaw(raw []byte) string {
	if len(bytes.TrimSpace(raw)) == 0 {
		return emptyBody
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}

func formatHeaders(resp *restclient.Response) string {
	flat := make(map[string]string, len(resp.Header))
	for k := range resp.Header {
		flat[strings.ToLower(k)] = resp.Header.Get(k)
	}
	out, err := json.MarshalIndent(flat, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(out)
}

type verifyOptions struct {
	expected int
	quiet    bool
	logger   *Logger
}

type Option func(*verifyOptions)

// ExpectStatus overrides the operation's default expected status.
func ExpectStatus(code int) Option {
	return func(o *verifyOptions) { o.expected = code }
}

// Quiet suppresses the failure diagnostics. Used by setup flows where a mismatch is expected.
func Quiet() Option {
	return func(o *verifyOptions) { o.quiet = true }
}

// WithLogger sends diagnostics to l instead of the package logger.
func WithLogger(l *Logger) Option {
	return func(o *verifyOptions) { o.logger = l }
}

// Expected resolves the status Verify would check against.
func Expected(defaultStatus int, opts ...Option) int {
	return resolve(defaultStatus, opts).expected
}

func resolve(defaultStatus int, opts []Option) verifyOptions {
	o := verifyOptions{expected: defaultStatus, logger: defaultLogger}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// Verify logs diagnostics on mismatch and returns a *StatusError describing it.
func Verify(resp *restclient.Response, defaultStatus int, request any, opts ...Option) error {
	if resp == nil {
		return fmt.Errorf("verify status: nil response")
	}
	o := resolve(defaultStatus, opts)
	if resp.StatusCode == o.expected {
		return nil
	}
	if !o.quiet {
		o.logger.LogOnFailure(resp, o.expected, request)
	}
	body, _ := resp.Text()
	return &StatusError{
		Method:   resp.Method,
		URL:      resp.URL,
		Expected: o.expected,
		Actual:   resp.StatusCode,
		Body:     body,
	}
}

// VerifyJSON is Verify followed by decoding the body into T.
func VerifyJSON[T any](resp *restclient.Response, defaultStatus int, request any, opts ...Option) (T, error) {
	var out T
	if err := Verify(resp, defaultStatus, request, opts...); err != nil {
		return out, err
	}
	if err := resp.JSON(&out); err != nil {
		return out, err
	}
	return out, nil
}
