// Package stats turns repeated noisy trials into confidence intervals
// and flakiness signals.
package stats

import (
	"math"

	"github.com/FlanaganSe/agent-evals-sub000/internal/eval"
)

// DefaultZ is the z-score for a 95% confidence interval.
const DefaultZ = 1.96

// WilsonInterval computes the Wilson score interval for passes out of
// total at the given z-score. The interval always stays inside [0,1]
// and behaves well for small n or proportions near 0 and 1, unlike the
// normal approximation. Returns [0,0] when total is 0.
func WilsonInterval(passes, total int, z float64) (low, high float64) {
	if total == 0 {
		return 0, 0
	}
	n := float64(total)
	p := float64(passes) / n
	z2 := z * z

	denom := 1 + z2/n
	center := p + z2/(2*n)
	margin := z * math.Sqrt(p*(1-p)/n+z2/(4*n*n))

	low = (center - margin) / denom
	high = (center + margin) / denom
	if low < 0 {
		low = 0
	}
	if high > 1 {
		high = 1
	}
	return low, high
}

// ComputeTrialStats aggregates the trials belonging to caseID into
// per-case statistics. The standard deviation uses Bessel's correction
// (n-1 denominator), with the denominator forced to 1 for a single
// trial to avoid division by zero. A case is flaky when some but not
// all of its trials passed.
func ComputeTrialStats(trials []eval.Trial, caseID string) eval.TrialStats {
	var (
		n      int
		passes int
		fails  int
		errs   int
		scores []float64
	)
	for _, t := range trials {
		if t.CaseID != caseID {
			continue
		}
		n++
		switch t.Status {
		case eval.StatusPass:
			passes++
		case eval.StatusFail:
			fails++
		case eval.StatusError:
			errs++
		}
		scores = append(scores, t.Score)
	}

	st := eval.TrialStats{
		TrialCount: n,
		PassCount:  passes,
		FailCount:  fails,
		ErrorCount: errs,
		Flaky:      passes > 0 && passes < n,
	}
	if n == 0 {
		return st
	}

	st.PassRate = float64(passes) / float64(n)

	var sum float64
	for _, s := range scores {
		sum += s
	}
	mean := sum / float64(n)
	st.MeanScore = mean

	denom := float64(n - 1)
	if denom < 1 {
		denom = 1
	}
	var sq float64
	for _, s := range scores {
		d := s - mean
		sq += d * d
	}
	st.ScoreStdDev = math.Sqrt(sq / denom)

	st.CI95Low, st.CI95High = WilsonInterval(passes, n, DefaultZ)
	return st
}

// ComputeAllTrialStats computes per-case statistics for every case
// present in trials. Returns nil when trialCount <= 1 or there are no
// trials: multi-trial statistics are only meaningful when the suite
// actually ran more than one trial per case.
func ComputeAllTrialStats(trials []eval.Trial, trialCount int) map[string]eval.TrialStats {
	if trialCount <= 1 || len(trials) == 0 {
		return nil
	}
	out := make(map[string]eval.TrialStats)
	for _, t := range trials {
		if _, done := out[t.CaseID]; done {
			continue
		}
		out[t.CaseID] = ComputeTrialStats(trials, t.CaseID)
	}
	return out
}
