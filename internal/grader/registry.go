package grader

import (
	"github.com/FlanaganSe/agent-evals-sub000/internal/eval"
)

// FromNames builds a pipeline from grader names as they appear in
// suite config. An empty list defaults to exact-match. judgeModel is
// applied to the llm-rubric grader when set.
func FromNames(names []string, judgeModel string) (Pipeline, error) {
	if len(names) == 0 {
		return NewPipeline(ExactMatch{}), nil
	}
	graders := make([]Grader, 0, len(names))
	for _, name := range names {
		switch name {
		case "exact-match":
			graders = append(graders, ExactMatch{})
		case "contains":
			graders = append(graders, Contains{})
		case "regexp":
			graders = append(graders, Regexp{})
		case "llm-rubric":
			graders = append(graders, Rubric{Model: judgeModel})
		default:
			return nil, eval.NewConfigError("unknown grader %q", name)
		}
	}
	return NewPipeline(graders...), nil
}
