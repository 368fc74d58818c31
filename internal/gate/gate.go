// Package gate evaluates a run summary against configured thresholds
// to decide overall suite success.
package gate

import (
	"github.com/FlanaganSe/agent-evals-sub000/internal/eval"
)

// Config declares the thresholds a run must meet. Nil fields are not
// checked.
type Config struct {
	MinPassRate     *float64 `yaml:"min_pass_rate,omitempty" json:"minPassRate,omitempty"`
	MaxErrorRate    *float64 `yaml:"max_error_rate,omitempty" json:"maxErrorRate,omitempty"`
	MaxTotalCost    *float64 `yaml:"max_total_cost,omitempty" json:"maxTotalCost,omitempty"`
	MaxP95LatencyMs *int64   `yaml:"max_p95_latency_ms,omitempty" json:"maxP95LatencyMs,omitempty"`
}

// Empty reports whether no thresholds are configured.
func (c *Config) Empty() bool {
	return c == nil || (c.MinPassRate == nil && c.MaxErrorRate == nil && c.MaxTotalCost == nil && c.MaxP95LatencyMs == nil)
}

// Evaluate checks the summary-so-far against the configured
// thresholds. An empty config yields a passing result with no checks.
func Evaluate(summary *eval.RunSummary, cfg *Config) *eval.GateResult {
	res := &eval.GateResult{Pass: true}
	if cfg.Empty() {
		return res
	}

	add := func(name string, pass bool, actual, threshold float64) {
		if !pass {
			res.Pass = false
		}
		res.Checks = append(res.Checks, eval.GateCheck{
			Name:      name,
			Pass:      pass,
			Actual:    actual,
			Threshold: threshold,
		})
	}

	if cfg.MinPassRate != nil {
		add("min-pass-rate", summary.PassRate >= *cfg.MinPassRate, summary.PassRate, *cfg.MinPassRate)
	}
	if cfg.MaxErrorRate != nil {
		errorRate := 0.0
		if summary.TotalCases > 0 {
			errorRate = float64(summary.Errors) / float64(summary.TotalCases)
		}
		add("max-error-rate", errorRate <= *cfg.MaxErrorRate, errorRate, *cfg.MaxErrorRate)
	}
	if cfg.MaxTotalCost != nil {
		add("max-total-cost", summary.TotalCost <= *cfg.MaxTotalCost, summary.TotalCost, *cfg.MaxTotalCost)
	}
	if cfg.MaxP95LatencyMs != nil {
		add("max-p95-latency-ms", summary.P95LatencyMs <= *cfg.MaxP95LatencyMs, float64(summary.P95LatencyMs), float64(*cfg.MaxP95LatencyMs))
	}
	return res
}
