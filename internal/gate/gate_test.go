package gate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FlanaganSe/agent-evals-sub000/internal/eval"
)

func f64(v float64) *float64 { return &v }
func i64(v int64) *int64     { return &v }

func TestEvaluateEmptyConfigPasses(t *testing.T) {
	res := Evaluate(&eval.RunSummary{PassRate: 0}, nil)
	assert.True(t, res.Pass)
	assert.Empty(t, res.Checks)

	res = Evaluate(&eval.RunSummary{}, &Config{})
	assert.True(t, res.Pass)
}

func TestEvaluatePassRateThreshold(t *testing.T) {
	cfg := &Config{MinPassRate: f64(0.9)}

	res := Evaluate(&eval.RunSummary{PassRate: 0.95}, cfg)
	assert.True(t, res.Pass)

	res = Evaluate(&eval.RunSummary{PassRate: 0.8}, cfg)
	assert.False(t, res.Pass)
	require.Len(t, res.Checks, 1)
	assert.Equal(t, "min-pass-rate", res.Checks[0].Name)
	assert.False(t, res.Checks[0].Pass)
}

func TestEvaluateAllChecks(t *testing.T) {
	cfg := &Config{
		MinPassRate:     f64(0.5),
		MaxErrorRate:    f64(0.1),
		MaxTotalCost:    f64(1.0),
		MaxP95LatencyMs: i64(2000),
	}
	summary := &eval.RunSummary{
		TotalCases:   10,
		Errors:       2,
		PassRate:     0.8,
		TotalCost:    0.5,
		P95LatencyMs: 1500,
	}

	res := Evaluate(summary, cfg)
	assert.False(t, res.Pass) // error rate 0.2 > 0.1
	assert.Len(t, res.Checks, 4)

	passed := 0
	for _, c := range res.Checks {
		if c.Pass {
			passed++
		}
	}
	assert.Equal(t, 3, passed)
}

func TestEvaluateBoundaryInclusive(t *testing.T) {
	cfg := &Config{MinPassRate: f64(0.9), MaxTotalCost: f64(1.0)}
	res := Evaluate(&eval.RunSummary{PassRate: 0.9, TotalCost: 1.0}, cfg)
	assert.True(t, res.Pass)
}
