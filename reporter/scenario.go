package reporter

import (
	"context"
	"fmt"
	"log"
	"runtime"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"conduitqa/testrail"
)

// Scenario is one executable test. TitlePath holds the file and group names above Title;
// Tags are matched by --grep together with the title.
type Scenario struct {
	Title     string
	TitlePath []string
	Tags      []string
	Run       func(t *T)
}

// Path is TitlePath followed by Title.
func (s Scenario) Path() []string {
	return append(append([]string(nil), s.TitlePath...), s.Title)
}

// FullTitle is the path and tags joined the way --grep sees them.
func (s Scenario) FullTitle() string {
	full := strings.Join(s.Path(), " > ")
	if len(s.Tags) > 0 {
		full += " " + strings.Join(s.Tags, " ")
	}
	return full
}

// T is handed to a running scenario. It satisfies testify's require.TestingT, so
// require/assert helpers can be used directly.
type T struct {
	ctx   context.Context
	title string

	mu      sync.Mutex
	failed  bool
	skipped bool
	skipMsg string
	errs    []string
	steps   []string
	lastURL string
	lastErr error
}

func newT(ctx context.Context, title string) *T {
	return &T{ctx: ctx, title: title}
}

// Context is cancelled when the scenario times out or the run is interrupted.
func (t *T) Context() context.Context { return t.ctx }

func (t *T) Errorf(format string, args ...any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failed = true
	t.errs = append(t.errs, fmt.Sprintf(format, args...))
}

func (t *T) Fail() {
	t.mu.Lock()
	t.failed = true
	t.mu.Unlock()
}

// FailNow stops the scenario. Like testing.T it must be called from the scenario goroutine.
func (t *T) FailNow() {
	t.Fail()
	runtime.Goexit()
}

func (t *T) Failed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.failed
}

func (t *T) Helper() {}

func (t *T) Logf(format string, args ...any) {
	log.Printf("scenario: %s: %s", t.title, fmt.Sprintf(format, args...))
}

// Skip stops the scenario and reports it as skipped.
func (t *T) Skip(reason string) {
	t.mu.Lock()
	t.skipped = true
	t.skipMsg = reason
	t.mu.Unlock()
	runtime.Goexit()
}

// Step runs fn as a named step. Failures inside fn are reported under the step name.
func (t *T) Step(name string, fn func()) {
	t.mu.Lock()
	t.steps = append(t.steps, name)
	before := len(t.errs)
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		for i := before; i < len(t.errs); i++ {
			t.errs[i] = "step " + name + ": " + t.errs[i]
		}
		t.mu.Unlock()
	}()
	fn()
}

// SetURL records the last URL the scenario touched, reported to TestRail.
func (t *T) SetURL(u string) {
	t.mu.Lock()
	t.lastURL = u
	t.mu.Unlock()
}

// NoError fails the scenario with err, keeping err for failure classification.
func (t *T) NoError(err error, msgAndArgs ...any) {
	if err == nil {
		return
	}
	t.mu.Lock()
	t.lastErr = err
	t.mu.Unlock()
	msg := err.Error()
	if len(msgAndArgs) > 0 {
		if format, ok := msgAndArgs[0].(string); ok {
			msg = fmt.Sprintf(format, msgAndArgs[1:]...) + ": " + msg
		}
	}
	t.Errorf("%s", msg)
	t.FailNow()
}

// attempt is the outcome of one execution of a scenario.
type attempt struct {
	status  testrail.TestStatus
	errs    []string
	steps   []string
	lastURL string
	lastErr error
	skipMsg string
	elapsed time.Duration
}

// runAttempt executes sc once in its own goroutine so FailNow and Skip can unwind it.
func runAttempt(ctx context.Context, sc Scenario, timeout time.Duration) attempt {
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	t := newT(runCtx, sc.Title)
	done := make(chan struct{})
	start := time.Now()

	go func() {
		defer close(done)
		defer func() {
			if r := recover(); r != nil {
				t.Errorf("panic: %v\n%s", r, debug.Stack())
			}
		}()
		sc.Run(t)
	}()

	finished := false
	select {
	case <-done:
		finished = true
	case <-runCtx.Done():
	}
	status := attemptStatus(ctx, finished, t, timeout)

	t.mu.Lock()
	defer t.mu.Unlock()
	return attempt{
		status:  status,
		errs:    append([]string(nil), t.errs...),
		steps:   append([]string(nil), t.steps...),
		lastURL: t.lastURL,
		lastErr: t.lastErr,
		skipMsg: t.skipMsg,
		elapsed: time.Since(start),
	}
}

// attemptStatus decides the outcome of an attempt. A scenario that returned keeps its own
// outcome even if the deadline or an interrupt landed at the same moment.
func attemptStatus(ctx context.Context, finished bool, t *T, timeout time.Duration) testrail.TestStatus {
	if !finished {
		if ctx.Err() != nil {
			t.Errorf("run interrupted")
			return testrail.TestInterrupted
		}
		t.Errorf("test timeout of %s exceeded", timeout)
		return testrail.TestTimedOut
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	switch {
	case t.skipped:
		return testrail.TestSkipped
	case t.failed:
		return testrail.TestFailed
	default:
		return testrail.TestPassed
	}
}
