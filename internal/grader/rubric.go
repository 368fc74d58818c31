package grader

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/FlanaganSe/agent-evals-sub000/internal/eval"
	"github.com/FlanaganSe/agent-evals-sub000/internal/judge"
)

// DefaultRubricPassThreshold is the minimum rubric score that counts
// as a pass.
const DefaultRubricPassThreshold = 0.7

const rubricSystemPrompt = `You are grading an AI system's answer against an expected answer.
Rate how well the actual answer matches the expected answer on a 0-10 scale,
considering factual correctness first and completeness second.
Respond with a single line of the form "N out of 10" followed by a one-sentence justification.`

var rubricScorePattern = regexp.MustCompile(`(\d+)\s+out\s+of\s+(\d+)`)

// Rubric grades outputs by prompting the judge with a fixed rubric and
// parsing an "N out of M" score from its reply.
type Rubric struct {
	// Model overrides the judge's default model when set.
	Model string
	// PassThreshold is the minimum normalized score counted as a
	// pass. Zero means DefaultRubricPassThreshold.
	PassThreshold float64
}

func (Rubric) Name() string { return "llm-rubric" }

func (r Rubric) Grade(ctx context.Context, output *eval.Output, expected string, gctx *Context) (eval.GradeResult, error) {
	if gctx == nil || gctx.Judge == nil {
		return eval.GradeResult{}, fmt.Errorf("llm-rubric grader requires a judge function")
	}

	user := fmt.Sprintf("Expected answer:\n%s\n\nActual answer:\n%s", expected, output.Text)
	var opts *judge.Options
	if r.Model != "" {
		opts = &judge.Options{Model: r.Model}
	}
	resp, err := gctx.Judge(ctx, []judge.Message{
		{Role: judge.RoleSystem, Content: rubricSystemPrompt},
		{Role: judge.RoleUser, Content: user},
	}, opts)
	if err != nil {
		return eval.GradeResult{}, fmt.Errorf("rubric judge call failed: %w", err)
	}

	score, err := parseRubricScore(resp.Text)
	if err != nil {
		return eval.GradeResult{}, err
	}

	threshold := r.PassThreshold
	if threshold == 0 {
		threshold = DefaultRubricPassThreshold
	}
	return eval.GradeResult{
		Name:   "llm-rubric",
		Pass:   score >= threshold,
		Score:  score,
		Reason: firstLine(resp.Text),
	}, nil
}

// parseRubricScore extracts an "N out of M" score and normalizes it to
// [0,1].
func parseRubricScore(text string) (float64, error) {
	matches := rubricScorePattern.FindStringSubmatch(text)
	if matches == nil {
		return 0, fmt.Errorf("could not parse score from judge output")
	}
	n, _ := strconv.Atoi(matches[1])
	m, _ := strconv.Atoi(matches[2])
	if m <= 0 {
		return 0, fmt.Errorf("judge reported a zero-denominator score")
	}
	score := float64(n) / float64(m)
	if score > 1 {
		score = 1
	}
	return score, nil
}

func firstLine(text string) string {
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		return strings.TrimSpace(text[:i])
	}
	return strings.TrimSpace(text)
}
