package greq

import (
	"context"
	"log/slog"
	"path/filepath"
	"runtime"
	"slices"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// testState tracks a test's progress through the pipeline, for logging.
type testState string

const (
	statePending            testState = "pending"
	stateLoading            testState = "loading"
	stateMerged             testState = "merged"
	stateReady              testState = "ready"
	stateAwaitingDependency testState = "awaiting-dependency"
	stateSubstituting       testState = "substituting"
	stateInFlight           testState = "in-flight"
	stateEvaluating         testState = "evaluating"
	stateDone               testState = "done"
)

// arenaEntry is one test in the run's arena, keyed by absolute path.
// done closes when the verdict is final; waiters never observe a partial
// entry. waitingOn records the dependency edge while the entry blocks,
// so the runner can detect wait cycles between already-started tests.
type arenaEntry struct {
	path      string
	state     testState
	done      chan struct{}
	waitingOn string
	test      *Test
	resp      *Response
	verdict   *Verdict
}

// Runner orchestrates a whole run: it loads root files, resolves extends
// and depends-on edges, executes independent tests concurrently, and
// collects one verdict per test. Each file executes at most once per
// run, so a dependency shared by several tests issues a single request.
type Runner struct {
	client  *Client
	env     *EnvironmentScope
	hooks   HookRunner
	loader  *loader
	logger  *slog.Logger
	workers int64
	sem     *semaphore.Weighted

	mu    sync.Mutex
	arena map[string]*arenaEntry
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithClient provides the HTTP executor.
func WithClient(c *Client) RunnerOption {
	return func(r *Runner) { r.client = c }
}

// WithEnvironment provides the run's environment scope.
func WithEnvironment(env *EnvironmentScope) RunnerOption {
	return func(r *Runner) { r.env = env }
}

// WithHooks provides the shell hook runner.
func WithHooks(h HookRunner) RunnerOption {
	return func(r *Runner) { r.hooks = h }
}

// WithWorkers bounds the number of tests with an HTTP request in flight.
func WithWorkers(n int) RunnerOption {
	return func(r *Runner) {
		if n > 0 {
			r.workers = int64(n)
		}
	}
}

// WithLogger routes the runner's logging.
func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) { r.logger = logger }
}

// NewRunner builds a runner. Defaults: a fresh client, the OS
// environment, /bin/sh hooks, one worker per logical CPU.
func NewRunner(options ...RunnerOption) *Runner {
	r := &Runner{
		hooks:   shellHookRunner{},
		loader:  newLoader(),
		logger:  slog.Default(),
		workers: int64(runtime.NumCPU()),
	}
	for _, option := range options {
		option(r)
	}
	if r.client == nil {
		r.client = NewClient(WithClientLogger(r.logger))
	}
	if r.env == nil {
		r.env = NewEnvironmentScope()
	}
	return r
}

// Run executes the given root files in parallel and returns every
// verdict the run produced: roots in argument order, then every
// dependency the run reached (including ones that failed to load),
// ordered by path. The returned error aggregates run-level
// failures; assertion failures are reported only through verdicts.
func (r *Runner) Run(ctx context.Context, paths []string) ([]*Verdict, error) {
	r.arena = make(map[string]*arenaEntry)
	r.sem = semaphore.NewWeighted(r.workers)
	r.logger = r.logger.With("run", uuid.NewString())

	var errs *multierror.Error
	roots := make([]string, 0, len(paths))
	for _, path := range paths {
		abs, err := filepath.Abs(path)
		if err != nil {
			errs = multierror.Append(errs, wrapError(KindFileReadError, path, err))
			continue
		}
		if filepath.Ext(abs) != fileExtension {
			abs += fileExtension
		}
		roots = append(roots, abs)
		if err := r.env.LoadDotEnv(filepath.Dir(abs)); err != nil {
			r.logger.Warn("cannot load .env file", "dir", filepath.Dir(abs), "error", err)
		}
	}

	g := new(errgroup.Group)
	for _, root := range roots {
		entry := r.enter(ctx, root, nil)
		g.Go(func() error {
			<-entry.done
			return nil
		})
	}
	_ = g.Wait()

	return r.collect(roots), errs.ErrorOrNil()
}

// collect orders verdicts: roots first in argument order, then every
// other arena entry that has a verdict, sorted by path.
func (r *Runner) collect(roots []string) []*Verdict {
	r.mu.Lock()
	defer r.mu.Unlock()

	var verdicts []*Verdict
	for _, root := range roots {
		if e, ok := r.arena[root]; ok && e.verdict != nil {
			verdicts = append(verdicts, e.verdict)
		}
	}
	var rest []string
	for path := range r.arena {
		if !slices.Contains(roots, path) {
			rest = append(rest, path)
		}
	}
	sort.Strings(rest)
	for _, path := range rest {
		if e := r.arena[path]; e.verdict != nil {
			verdicts = append(verdicts, e.verdict)
		}
	}
	return verdicts
}

// enter returns the arena entry for path, starting its pipeline if this
// is the first traversal to reach it. stack is the set of paths on the
// current loading traversal, used for cycle detection across both
// extends and depends-on edges.
func (r *Runner) enter(ctx context.Context, path string, stack []string) *arenaEntry {
	r.mu.Lock()
	if e, ok := r.arena[path]; ok {
		r.mu.Unlock()
		return e
	}
	e := &arenaEntry{path: path, state: statePending, done: make(chan struct{})}
	r.arena[path] = e
	r.mu.Unlock()

	go r.runEntry(ctx, e, stack)
	return e
}

func (r *Runner) setState(e *arenaEntry, s testState) {
	e.state = s
	r.logger.Debug("state", "path", e.path, "state", s)
}

// runEntry drives one test through the pipeline. Within a test the steps
// are strictly sequential; across tests only the dependency edge orders
// anything.
func (r *Runner) runEntry(ctx context.Context, e *arenaEntry, stack []string) {
	defer close(e.done)

	verdict := &Verdict{Path: e.path}
	e.verdict = verdict
	defer func() { r.report(verdict) }()

	if ctx.Err() != nil {
		// Cancellation refuses to start new tests.
		verdict.Skipped = true
		verdict.Err = ctx.Err()
		return
	}

	r.setState(e, stateLoading)
	t, err := r.loader.loadMerged(e.path, stack)
	if err != nil {
		verdict.Skipped = true
		verdict.Err = err
		return
	}
	r.setState(e, stateMerged)
	if err := t.validateMerged(); err != nil {
		verdict.Skipped = true
		verdict.Err = err
		return
	}
	e.test = t
	verdict.Project = t.Header.Project
	r.setState(e, stateReady)

	depResp, err := r.awaitDependency(ctx, e, t, stack)
	if err != nil {
		verdict.Skipped = true
		verdict.Err = err
		return
	}

	r.setState(e, stateSubstituting)
	r.substitute(t, depResp)

	if t.Header.ExecuteBefore != "" {
		if hookErr := r.hooks.Run(ctx, t.Header.ExecuteBefore); hookErr != nil {
			verdict.Skipped = true
			verdict.Err = wrapError(KindHookFailed, e.path, hookErr)
			return
		}
	}

	r.setState(e, stateInFlight)
	if err := r.sem.Acquire(ctx, 1); err != nil {
		verdict.Skipped = true
		verdict.Err = err
		return
	}
	resp, err := r.client.Do(ctx, t)
	r.sem.Release(1)
	if err != nil {
		verdict.Err = err
		return
	}
	e.resp = resp
	verdict.StatusCode = resp.StatusCode
	verdict.Latency = resp.Latency

	r.setState(e, stateEvaluating)
	verdict.Clauses, verdict.Passed = evaluateFooter(t.Footer, resp)

	if t.Header.ExecuteAfter != "" {
		if hookErr := r.hooks.Run(ctx, t.Header.ExecuteAfter); hookErr != nil {
			verdict.Passed = false
			verdict.Err = wrapError(KindHookFailed, e.path, hookErr)
		}
	}
	r.setState(e, stateDone)
}

// awaitDependency gates the test on its depends-on target. The returned
// response is nil when the test has no dependency, or when the
// dependency failed and failure is allowed (placeholders then resolve
// empty).
func (r *Runner) awaitDependency(ctx context.Context, e *arenaEntry, t *Test, stack []string) (*Response, error) {
	if t.Header.DependsOn == "" {
		return nil, nil
	}

	depPath := resolveRef(e.path, t.Header.DependsOn)
	if depPath == e.path || slices.Contains(stack, depPath) {
		return nil, newError(KindCycleDetected, depPath, "dependency cycle through %s", e.path)
	}

	dep := r.enter(ctx, depPath, append(stack, e.path))
	if err := r.registerWait(e, depPath); err != nil {
		return nil, err
	}
	r.setState(e, stateAwaitingDependency)
	select {
	case <-dep.done:
	case <-ctx.Done():
		r.clearWait(e)
		return nil, ctx.Err()
	}
	r.clearWait(e)

	if dep.verdict.Skipped && isLoadFailure(dep.verdict.Err) {
		// The dependency never parsed; fatal regardless of
		// allow-dependency-failure.
		return nil, wrapError(KindDependencyParseFailed, depPath, dep.verdict.Err)
	}
	if dep.verdict.Passed {
		return dep.resp, nil
	}
	if t.Header.AllowDependencyFailure {
		return nil, nil
	}
	return nil, newError(KindDependencyFailed, e.path, "dependency %s failed", depPath)
}

// registerWait records that e is about to block on depPath and checks
// the chain of recorded waits for a cycle among already-started tests.
// The load-stack check cannot see those: entries started by different
// roots carry different stacks.
func (r *Runner) registerWait(e *arenaEntry, depPath string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current := depPath
	for {
		if current == e.path {
			return newError(KindCycleDetected, depPath, "dependency cycle through %s", e.path)
		}
		entry, ok := r.arena[current]
		if !ok || entry.waitingOn == "" {
			break
		}
		current = entry.waitingOn
	}
	e.waitingOn = depPath
	return nil
}

func (r *Runner) clearWait(e *arenaEntry) {
	r.mu.Lock()
	e.waitingOn = ""
	r.mu.Unlock()
}

// isLoadFailure reports whether the error happened before the dependency
// could execute at all.
func isLoadFailure(err error) bool {
	switch KindOf(err) {
	case KindMalformedFile, KindUnknownHeaderKey, KindInvalidHeaderValue,
		KindInvalidRequestLine, KindMissingHost, KindInvalidClause,
		KindFileNotFound, KindFileReadError, KindCycleDetected,
		KindDependencyParseFailed:
		return true
	}
	return false
}

// substitute applies the test's set-environment entries in order, then
// substitutes placeholders across its textual fields. Each entry's write
// is visible to the next entry's template and to the test itself.
func (r *Runner) substitute(t *Test, depResp *Response) {
	sub := &subContext{env: r.env.Snapshot(), dep: depResp}
	for _, assignment := range t.Header.SetEnvironment {
		r.env.Set(assignment.Name, substituteText(assignment.Template, sub))
		sub.env = r.env.Snapshot()
	}
	substituteTest(t, sub)

	if t.Header.ShowWarnings {
		for _, warning := range sub.warnings {
			r.logger.Warn(warning, "path", t.Path)
		}
	}
}

// report emits the concise one-line status for a finished test.
func (r *Runner) report(v *Verdict) {
	switch {
	case v.Err != nil:
		r.logger.Error("test failed", "path", v.Path, "error", v.Err)
	case v.Passed:
		r.logger.Info("test passed", "path", v.Path, "status", v.StatusCode, "latency", v.Latency)
	default:
		r.logger.Info("test failed", "path", v.Path, "status", v.StatusCode, "failed_clauses", failedClauses(v))
	}
}

func failedClauses(v *Verdict) []int {
	var failed []int
	for _, c := range v.Clauses {
		if !c.Passed {
			failed = append(failed, c.Index)
		}
	}
	return failed
}
