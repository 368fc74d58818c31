// Package runner orchestrates suite execution: it fans a suite out
// into trials through the bounded worker pool, executes each trial in
// live or replay mode (or re-grades a previous run in judge-only
// mode), and assembles the immutable Run artifact.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/FlanaganSe/agent-evals-sub000/internal/eval"
	"github.com/FlanaganSe/agent-evals-sub000/internal/fixture"
	"github.com/FlanaganSe/agent-evals-sub000/internal/gate"
	"github.com/FlanaganSe/agent-evals-sub000/internal/grader"
	"github.com/FlanaganSe/agent-evals-sub000/internal/judge"
	"github.com/FlanaganSe/agent-evals-sub000/internal/pool"
	"github.com/FlanaganSe/agent-evals-sub000/internal/ratelimit"
	"github.com/FlanaganSe/agent-evals-sub000/internal/suite"
)

// TargetFunc is the user-supplied function under evaluation.
type TargetFunc func(ctx context.Context, c eval.Case) (*eval.Output, error)

// GateEvaluator turns a summary-so-far into a gate verdict. The
// default is gate.Evaluate.
type GateEvaluator func(summary *eval.RunSummary, cfg *gate.Config) *eval.GateResult

// StaleFixtureFunc is notified when a stale fixture is used anyway.
type StaleFixtureFunc func(caseID string, ageDays float64)

// Options configures a runner. Suite, Mode, and Graders are always
// required; Target is required for live mode, Fixtures for replay and
// recording, PreviousRun for judge-only mode. StripRaw drops raw
// provider payloads from recorded fixtures.
type Options struct {
	Suite       *suite.Suite
	Mode        eval.RunMode
	Target      TargetFunc
	Graders     grader.Pipeline
	Judge       judge.Func
	Fixtures    *fixture.Store
	Record      bool
	StripRaw    bool
	Limiter     *ratelimit.Limiter
	Plugins     []Plugin
	PreviousRun *eval.Run
	Gates       GateEvaluator
	OnStale     StaleFixtureFunc
	Logger      *slog.Logger

	FrameworkVersion string
}

// Runner executes one suite per Run call. It exclusively owns Run
// construction.
type Runner struct {
	opts       Options
	plugins    []Plugin
	logger     *slog.Logger
	configHash string

	mu       sync.Mutex
	fatalErr error
}

// New validates the options and creates a runner.
func New(opts Options) (*Runner, error) {
	if opts.Suite == nil {
		return nil, eval.NewConfigError("runner requires a resolved suite")
	}
	if opts.Graders == nil {
		return nil, eval.NewConfigError("runner requires a grader pipeline")
	}
	switch opts.Mode {
	case eval.ModeLive:
		if opts.Target == nil {
			return nil, eval.NewConfigError("live mode requires a target function")
		}
		if opts.Record && opts.Fixtures == nil {
			return nil, eval.NewConfigError("recording requires a fixture store")
		}
	case eval.ModeReplay:
		if opts.Fixtures == nil {
			return nil, eval.NewConfigError("replay mode requires a fixture store")
		}
	case eval.ModeJudgeOnly:
		if opts.PreviousRun == nil {
			return nil, eval.NewConfigError("judge-only mode requires a previously saved run")
		}
	default:
		return nil, eval.NewConfigError("unknown run mode %q", opts.Mode)
	}
	if opts.Gates == nil {
		opts.Gates = gate.Evaluate
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Runner{
		opts:       opts,
		plugins:    opts.Plugins,
		logger:     opts.Logger,
		configHash: opts.Suite.ConfigHash(),
	}, nil
}

// workItem is one (case, trialIndex) pair produced by expansion.
type workItem struct {
	c          eval.Case
	trialIndex int
	// prev is set in judge-only mode: the stored trial being
	// re-graded.
	prev *eval.Trial
}

// Run executes the suite and returns the assembled Run artifact.
// Cancellation is cooperative: an abort stops new work from starting
// but a partially completed run is still assembled, with
// summary.aborted set. Gate failure does not error here; callers read
// summary.gateResult.
func (r *Runner) Run(ctx context.Context) (*eval.Run, error) {
	s := r.opts.Suite
	start := time.Now()

	items, err := r.expand()
	if err != nil {
		return nil, err
	}

	if err := r.fireBeforeRun(ctx, BeforeRunInfo{
		SuiteID:    s.ID,
		Mode:       r.opts.Mode,
		CaseCount:  len(s.Cases),
		TrialCount: s.TrialCount,
	}); err != nil {
		return nil, err
	}

	r.logger.Info("starting run",
		"suite", s.ID,
		"mode", r.opts.Mode,
		"cases", len(s.Cases),
		"trials_per_case", s.TrialCount,
		"concurrency", s.Concurrency,
	)

	// A fatal item error cancels the remaining work.
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var completed atomic.Int64
	total := len(items)
	trials := pool.Map(runCtx, items, s.Concurrency, func(ctx context.Context, item workItem, _ int) (eval.Trial, bool) {
		trial, ok := r.execute(ctx, item, cancel)
		if !ok {
			return eval.Trial{}, false
		}
		r.fireAfterTrial(ctx, trial, TrialProgress{
			SuiteID:        s.ID,
			CompletedCount: int(completed.Add(1)),
			TotalCount:     total,
		})
		return trial, true
	})

	r.mu.Lock()
	fatal := r.fatalErr
	r.mu.Unlock()
	if fatal != nil {
		return nil, fatal
	}

	// Presentation order is deterministic regardless of completion
	// order.
	sort.Slice(trials, func(i, j int) bool {
		if trials[i].CaseID != trials[j].CaseID {
			return trials[i].CaseID < trials[j].CaseID
		}
		return trials[i].Index() < trials[j].Index()
	})

	aborted := ctx.Err() != nil
	summary := r.summarize(trials, time.Since(start).Milliseconds(), aborted)

	run := &eval.Run{
		ID:               newRunID(),
		SuiteID:          s.ID,
		Mode:             r.opts.Mode,
		Trials:           trials,
		Summary:          summary,
		Timestamp:        start.UTC(),
		ConfigHash:       r.configHash,
		FrameworkVersion: r.opts.FrameworkVersion,
	}

	if err := r.fireAfterRun(ctx, run); err != nil {
		return nil, err
	}

	r.logger.Info("run complete",
		"run_id", run.ID,
		"passed", summary.Passed,
		"failed", summary.Failed,
		"errors", summary.Errors,
		"aborted", summary.Aborted,
	)
	return run, nil
}

// expand crosses the case list with the trial count. In judge-only
// mode the work items are the previous run's trials instead.
func (r *Runner) expand() ([]workItem, error) {
	s := r.opts.Suite

	if r.opts.Mode == eval.ModeJudgeOnly {
		prev := r.opts.PreviousRun
		casesByID := make(map[string]eval.Case, len(s.Cases))
		for _, c := range s.Cases {
			casesByID[c.ID] = c
		}
		items := make([]workItem, 0, len(prev.Trials))
		for i := range prev.Trials {
			t := &prev.Trials[i]
			c, ok := casesByID[t.CaseID]
			if !ok {
				return nil, eval.NewConfigError("previous run has trial for unknown case %q", t.CaseID)
			}
			items = append(items, workItem{c: c, trialIndex: t.Index(), prev: t})
		}
		return items, nil
	}

	items := make([]workItem, 0, len(s.Cases)*s.TrialCount)
	for trial := 0; trial < s.TrialCount; trial++ {
		for _, c := range s.Cases {
			items = append(items, workItem{c: c, trialIndex: trial})
		}
	}
	return items, nil
}

// execute runs one work item. ok=false means the item was skipped
// (abort or fatal error elsewhere).
func (r *Runner) execute(ctx context.Context, item workItem, cancel context.CancelFunc) (eval.Trial, bool) {
	if ctx.Err() != nil {
		return eval.Trial{}, false
	}

	start := time.Now()
	var output *eval.Output
	var targetErr error

	switch r.opts.Mode {
	case eval.ModeReplay:
		out, err := r.replayOutput(item.c.ID)
		if err != nil {
			r.setFatal(err, cancel)
			return eval.Trial{}, false
		}
		output = out
	case eval.ModeJudgeOnly:
		if item.prev.Output == nil {
			// An error trial has no output to re-grade; carry it over.
			return *item.prev, true
		}
		output = item.prev.Output
	default: // live
		output, targetErr = r.liveOutput(ctx, item.c)
		if targetErr != nil {
			if errors.Is(targetErr, ratelimit.ErrAcquireAborted) || errors.Is(targetErr, ratelimit.ErrDisposed) {
				return eval.Trial{}, false
			}
			// A failed target call is not a framework error: capture
			// it as an error trial and keep going.
			return r.errorTrial(item, targetErr, time.Since(start)), true
		}
		if r.opts.Record {
			_, err := r.opts.Fixtures.Write(r.opts.Suite.ID, item.c.ID, output, r.configHash, fixture.WriteOptions{
				StripRaw:         r.opts.StripRaw,
				FrameworkVersion: r.opts.FrameworkVersion,
			})
			if err != nil {
				r.setFatal(eval.WrapRuntime(err, "failed to record fixture for case %q", item.c.ID), cancel)
				return eval.Trial{}, false
			}
		}
	}

	res, err := r.opts.Graders(ctx, output, item.c.Expected, &grader.Context{
		SuiteID: r.opts.Suite.ID,
		CaseID:  item.c.ID,
		Judge:   r.opts.Judge,
		Logger:  r.logger,
	})
	if err != nil {
		r.setFatal(eval.WrapRuntime(err, "grader pipeline failed for case %q", item.c.ID), cancel)
		return eval.Trial{}, false
	}

	status := eval.StatusFail
	if res.CaseResult.Pass {
		status = eval.StatusPass
	}
	trial := eval.Trial{
		CaseID:     item.c.ID,
		Status:     status,
		Output:     output,
		Grades:     res.Grades,
		Score:      res.CaseResult.Score,
		DurationMs: time.Since(start).Milliseconds(),
	}
	if r.opts.Mode == eval.ModeJudgeOnly {
		// Preserve the original timing and index; only grading is
		// redone.
		trial.DurationMs = item.prev.DurationMs
		trial.TrialIndex = item.prev.TrialIndex
		return trial, true
	}
	r.setTrialIndex(&trial, item.trialIndex)
	return trial, true
}

// replayOutput resolves a fixture or returns a fatal error. There is
// no silent fallback to live calls in replay mode.
func (r *Runner) replayOutput(caseID string) (*eval.Output, error) {
	s := r.opts.Suite
	res, err := r.opts.Fixtures.Read(s.ID, caseID, r.configHash, fixture.ReadOptions{TTLDays: s.FixtureTTLDays})
	if err != nil {
		return nil, eval.WrapRuntime(err, "failed to read fixture for case %q", caseID)
	}

	switch res.Status {
	case fixture.StatusHit:
		return res.Output, nil
	case fixture.StatusStale:
		if s.StrictFixtures {
			return nil, eval.NewRuntimeError(
				"fixture for case %q in suite %q is %.1f days old (ttl %.0f days); re-record fixtures or disable strict_fixtures",
				caseID, s.ID, res.AgeDays, s.FixtureTTLDays)
		}
		r.logger.Warn("using stale fixture",
			"suite", s.ID,
			"case", caseID,
			"age_days", fmt.Sprintf("%.1f", res.AgeDays),
		)
		if r.opts.OnStale != nil {
			r.opts.OnStale(caseID, res.AgeDays)
		}
		return res.Output, nil
	case fixture.StatusMissHashMismatch:
		return nil, eval.NewRuntimeError(
			"fixture for case %q in suite %q was recorded with config hash %s but the current hash is %s; re-record fixtures or bump target_version",
			caseID, s.ID, res.RecordedHash, r.configHash)
	default: // miss/not-found
		return nil, eval.NewRuntimeError(
			"fixture for case %q in suite %q not found (miss/not-found); run in live mode with record enabled to record fixtures",
			caseID, s.ID)
	}
}

// liveOutput acquires a rate-limit slot when configured, then races
// the target call against the timeout and the caller's abort. A call
// with no native cancellation is abandoned, not killed.
func (r *Runner) liveOutput(ctx context.Context, c eval.Case) (*eval.Output, error) {
	if r.opts.Limiter != nil {
		if err := r.opts.Limiter.Acquire(ctx); err != nil {
			return nil, err
		}
	}

	timeout := time.Duration(r.opts.Suite.TimeoutMs) * time.Millisecond
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		out *eval.Output
		err error
	}
	ch := make(chan result, 1)
	go func() {
		out, err := r.opts.Target(callCtx, c)
		ch <- result{out, err}
	}()

	select {
	case res := <-ch:
		if res.err != nil {
			switch {
			case ctx.Err() != nil:
				return nil, errors.New("Aborted")
			case errors.Is(callCtx.Err(), context.DeadlineExceeded):
				return nil, fmt.Errorf("Timeout after %dms", r.opts.Suite.TimeoutMs)
			}
		}
		return res.out, res.err
	case <-callCtx.Done():
		if ctx.Err() != nil {
			return nil, errors.New("Aborted")
		}
		return nil, fmt.Errorf("Timeout after %dms", r.opts.Suite.TimeoutMs)
	}
}

func (r *Runner) errorTrial(item workItem, targetErr error, elapsed time.Duration) eval.Trial {
	r.logger.Error("target call failed",
		"suite", r.opts.Suite.ID,
		"case", item.c.ID,
		"error", targetErr,
	)
	trial := eval.Trial{
		CaseID: item.c.ID,
		Status: eval.StatusError,
		Output: &eval.Output{
			Text:      "Target error: " + targetErr.Error(),
			LatencyMs: elapsed.Milliseconds(),
		},
		Grades:     []eval.GradeResult{},
		Score:      0,
		DurationMs: elapsed.Milliseconds(),
	}
	r.setTrialIndex(&trial, item.trialIndex)
	return trial
}

// setTrialIndex records the trial index only on multi-trial suites.
func (r *Runner) setTrialIndex(t *eval.Trial, index int) {
	if r.opts.Suite.TrialCount > 1 {
		idx := index
		t.TrialIndex = &idx
	}
}

func (r *Runner) setFatal(err error, cancel context.CancelFunc) {
	r.mu.Lock()
	if r.fatalErr == nil {
		r.fatalErr = err
	}
	r.mu.Unlock()
	cancel()
}

func newRunID() string {
	return fmt.Sprintf("run-%s-%s", time.Now().UTC().Format("20060102-150405"), uuid.NewString()[:8])
}

// p95 returns the latency at rank ceil(0.95*n)-1 of the ascending
// sort, clamped to index 0.
func p95(latencies []int64) int64 {
	if len(latencies) == 0 {
		return 0
	}
	sorted := make([]int64, len(latencies))
	copy(sorted, latencies)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	idx := int(math.Ceil(0.95*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	return sorted[idx]
}
