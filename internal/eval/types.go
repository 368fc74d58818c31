// Package eval defines the shared data model for suite execution:
// cases, trials, runs, and their aggregate summaries. Every other
// package in this module speaks these types.
package eval

import "time"

// RunMode selects how a suite execution obtains its outputs.
type RunMode string

const (
	// ModeLive invokes the target function for every trial.
	ModeLive RunMode = "live"
	// ModeReplay substitutes recorded fixture outputs for live calls.
	ModeReplay RunMode = "replay"
	// ModeJudgeOnly re-grades the stored outputs of a previous run
	// without re-invoking the target.
	ModeJudgeOnly RunMode = "judge-only"
)

// TrialStatus is the outcome of a single trial.
type TrialStatus string

const (
	StatusPass  TrialStatus = "pass"
	StatusFail  TrialStatus = "fail"
	StatusError TrialStatus = "error"
)

// Case is a single test case within a suite. Cases are immutable and
// supplied by suite config; ID is unique within a suite.
type Case struct {
	ID       string   `json:"id" yaml:"id"`
	Input    string   `json:"input" yaml:"input"`
	Expected string   `json:"expected,omitempty" yaml:"expected,omitempty"`
	Category string   `json:"category,omitempty" yaml:"category,omitempty"`
	Tags     []string `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// TokenUsage reports token counts for a target or judge call.
type TokenUsage struct {
	InputTokens  int `json:"inputTokens,omitempty"`
	OutputTokens int `json:"outputTokens,omitempty"`
}

// Output is what a target function produces for one case.
type Output struct {
	Text       string      `json:"text"`
	LatencyMs  int64       `json:"latencyMs,omitempty"`
	Cost       float64     `json:"cost,omitempty"`
	TokenUsage *TokenUsage `json:"tokenUsage,omitempty"`
	ModelID    string      `json:"modelId,omitempty"`
	// Raw carries the unmodified provider response. It is stripped from
	// fixtures when the store is configured to do so.
	Raw map[string]any `json:"raw,omitempty"`
}

// GradeResult is a single grader's verdict on one output.
type GradeResult struct {
	Name   string  `json:"name"`
	Pass   bool    `json:"pass"`
	Score  float64 `json:"score"`
	Reason string  `json:"reason,omitempty"`
}

// Trial is one execution attempt of one case. Created by the runner,
// immutable thereafter.
type Trial struct {
	CaseID string `json:"caseId"`
	// TrialIndex is set only when the suite runs more than one trial
	// per case.
	TrialIndex *int          `json:"trialIndex,omitempty"`
	Status     TrialStatus   `json:"status"`
	Output     *Output       `json:"output,omitempty"`
	Grades     []GradeResult `json:"grades"`
	Score      float64       `json:"score"`
	DurationMs int64         `json:"durationMs"`
}

// Index returns the trial index, treating an unset index as 0.
func (t *Trial) Index() int {
	if t.TrialIndex == nil {
		return 0
	}
	return *t.TrialIndex
}

// TrialStats holds per-case statistics across repeated trials. Only
// computed when a suite runs more than one trial per case.
type TrialStats struct {
	TrialCount  int     `json:"trialCount"`
	PassCount   int     `json:"passCount"`
	FailCount   int     `json:"failCount"`
	ErrorCount  int     `json:"errorCount"`
	PassRate    float64 `json:"passRate"`
	MeanScore   float64 `json:"meanScore"`
	ScoreStdDev float64 `json:"scoreStdDev"`
	CI95Low     float64 `json:"ci95Low"`
	CI95High    float64 `json:"ci95High"`
	Flaky       bool    `json:"flaky"`
}

// CategorySummary aggregates case outcomes for one category.
type CategorySummary struct {
	Total    int     `json:"total"`
	Passed   int     `json:"passed"`
	Failed   int     `json:"failed"`
	Errors   int     `json:"errors"`
	PassRate float64 `json:"passRate"`
}

// GateCheck is one threshold check inside a gate result.
type GateCheck struct {
	Name      string  `json:"name"`
	Pass      bool    `json:"pass"`
	Actual    float64 `json:"actual"`
	Threshold float64 `json:"threshold"`
}

// GateResult is the outcome of evaluating a run summary against
// configured thresholds. The runner consumes it as an opaque value.
type GateResult struct {
	Pass   bool        `json:"pass"`
	Checks []GateCheck `json:"checks,omitempty"`
}

// RunSummary holds aggregate counts for a completed run. For
// multi-trial suites the case-level counts use pass^k semantics: a
// case passes only if all of its trials passed, errors only if all of
// its trials errored, and fails otherwise.
type RunSummary struct {
	TotalCases      int                        `json:"totalCases"`
	Passed          int                        `json:"passed"`
	Failed          int                        `json:"failed"`
	Errors          int                        `json:"errors"`
	PassRate        float64                    `json:"passRate"`
	TotalCost       float64                    `json:"totalCost"`
	TotalDurationMs int64                      `json:"totalDurationMs"`
	P95LatencyMs    int64                      `json:"p95LatencyMs"`
	ByCategory      map[string]CategorySummary `json:"byCategory,omitempty"`
	TrialStats      map[string]TrialStats      `json:"trialStats,omitempty"`
	Aborted         bool                       `json:"aborted,omitempty"`
	GateResult      *GateResult                `json:"gateResult,omitempty"`
}

// Run is the persisted artifact of one suite execution. Created once
// per invocation and never mutated after construction; every run must
// be reproducible from this artifact alone.
type Run struct {
	ID               string     `json:"id"`
	SuiteID          string     `json:"suiteId"`
	Mode             RunMode    `json:"mode"`
	Trials           []Trial    `json:"trials"`
	Summary          RunSummary `json:"summary"`
	Timestamp        time.Time  `json:"timestamp"`
	ConfigHash       string     `json:"configHash"`
	FrameworkVersion string     `json:"frameworkVersion"`
}
