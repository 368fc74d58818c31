// Package grader implements the scoring pipeline the runner invokes
// on every successful trial: an ordered list of graders, each turning
// (output, expected) into a pass/fail grade with a score in [0,1].
package grader

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/FlanaganSe/agent-evals-sub000/internal/eval"
	"github.com/FlanaganSe/agent-evals-sub000/internal/judge"
)

// Context carries per-case information into graders.
type Context struct {
	SuiteID string
	CaseID  string
	// Judge is the optional LLM-backed scoring function. Graders that
	// need it fail gracefully when it is nil.
	Judge  judge.Func
	Logger *slog.Logger
}

func (c *Context) logger() *slog.Logger {
	if c == nil || c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}

// CaseResult is the pipeline's overall verdict for one trial.
type CaseResult struct {
	Pass  bool    `json:"pass"`
	Score float64 `json:"score"`
}

// PipelineResult bundles the overall verdict with the individual
// grades that produced it.
type PipelineResult struct {
	CaseResult CaseResult         `json:"caseResult"`
	Grades     []eval.GradeResult `json:"grades"`
}

// Pipeline is the scoring oracle consumed by the runner.
type Pipeline func(ctx context.Context, output *eval.Output, expected string, gctx *Context) (*PipelineResult, error)

// Grader turns one output into one grade.
type Grader interface {
	Name() string
	Grade(ctx context.Context, output *eval.Output, expected string, gctx *Context) (eval.GradeResult, error)
}

// NewPipeline builds a pipeline over the given graders, run in order.
// The trial passes only if every grader passed; the trial score is the
// mean grader score. A grader error does not abort the pipeline; it
// becomes a failing grade carrying the error as its reason.
func NewPipeline(graders ...Grader) Pipeline {
	return func(ctx context.Context, output *eval.Output, expected string, gctx *Context) (*PipelineResult, error) {
		res := &PipelineResult{Grades: make([]eval.GradeResult, 0, len(graders))}

		allPass := true
		var sum float64
		for _, g := range graders {
			grade, err := g.Grade(ctx, output, expected, gctx)
			if err != nil {
				gctx.logger().Warn("grader failed", "grader", g.Name(), "error", err)
				grade = eval.GradeResult{Name: g.Name(), Pass: false, Score: 0, Reason: err.Error()}
			}
			res.Grades = append(res.Grades, grade)
			if !grade.Pass {
				allPass = false
			}
			sum += grade.Score
		}

		if len(graders) > 0 {
			res.CaseResult.Score = sum / float64(len(graders))
		}
		res.CaseResult.Pass = allPass && len(graders) > 0
		return res, nil
	}
}

// ExactMatch passes when the output text equals the expected answer
// after trimming surrounding whitespace.
type ExactMatch struct{}

func (ExactMatch) Name() string { return "exact-match" }

func (ExactMatch) Grade(_ context.Context, output *eval.Output, expected string, _ *Context) (eval.GradeResult, error) {
	got := strings.TrimSpace(output.Text)
	want := strings.TrimSpace(expected)
	if got == want {
		return eval.GradeResult{Name: "exact-match", Pass: true, Score: 1}, nil
	}
	return eval.GradeResult{Name: "exact-match", Pass: false, Score: 0, Reason: "output does not equal expected answer"}, nil
}

// Contains passes when the output text contains the expected answer,
// case-insensitively.
type Contains struct{}

func (Contains) Name() string { return "contains" }

func (Contains) Grade(_ context.Context, output *eval.Output, expected string, _ *Context) (eval.GradeResult, error) {
	if strings.Contains(strings.ToLower(output.Text), strings.ToLower(strings.TrimSpace(expected))) {
		return eval.GradeResult{Name: "contains", Pass: true, Score: 1}, nil
	}
	return eval.GradeResult{Name: "contains", Pass: false, Score: 0, Reason: "expected answer not found in output"}, nil
}

// Regexp passes when the output text matches the expected pattern.
type Regexp struct{}

func (Regexp) Name() string { return "regexp" }

func (Regexp) Grade(_ context.Context, output *eval.Output, expected string, _ *Context) (eval.GradeResult, error) {
	re, err := regexp.Compile(expected)
	if err != nil {
		return eval.GradeResult{}, err
	}
	if re.MatchString(output.Text) {
		return eval.GradeResult{Name: "regexp", Pass: true, Score: 1}, nil
	}
	return eval.GradeResult{Name: "regexp", Pass: false, Score: 0, Reason: "output does not match pattern"}, nil
}
