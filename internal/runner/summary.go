package runner

import (
	"github.com/FlanaganSe/agent-evals-sub000/internal/eval"
	"github.com/FlanaganSe/agent-evals-sub000/internal/stats"
)

// summarize aggregates sorted trials into the run summary. With more
// than one trial per case the case-level counts use pass^k semantics;
// with a single trial the counts are the raw per-trial tallies.
func (r *Runner) summarize(trials []eval.Trial, durationMs int64, aborted bool) eval.RunSummary {
	summary := eval.RunSummary{
		TotalDurationMs: durationMs,
		Aborted:         aborted,
	}

	var latencies []int64
	for _, t := range trials {
		if t.Output == nil {
			continue
		}
		summary.TotalCost += t.Output.Cost
		latencies = append(latencies, t.Output.LatencyMs)
	}
	summary.P95LatencyMs = p95(latencies)

	trialCount := r.effectiveTrialCount(trials)
	byCase := eval.TrialsByCase(trials)
	summary.TotalCases = len(byCase)

	categories := make(map[string]string, len(r.opts.Suite.Cases))
	for _, c := range r.opts.Suite.Cases {
		if c.Category != "" {
			categories[c.ID] = c.Category
		}
	}

	byCategory := make(map[string]eval.CategorySummary)
	for caseID, caseTrials := range byCase {
		var status eval.TrialStatus
		if trialCount > 1 {
			status = eval.AggregateStatus(caseTrials)
		} else {
			status = caseTrials[0].Status
		}

		switch status {
		case eval.StatusPass:
			summary.Passed++
		case eval.StatusError:
			summary.Errors++
		default:
			summary.Failed++
		}

		if cat, ok := categories[caseID]; ok {
			cs := byCategory[cat]
			cs.Total++
			switch status {
			case eval.StatusPass:
				cs.Passed++
			case eval.StatusError:
				cs.Errors++
			default:
				cs.Failed++
			}
			byCategory[cat] = cs
		}
	}

	if summary.TotalCases > 0 {
		summary.PassRate = float64(summary.Passed) / float64(summary.TotalCases)
	}
	if len(byCategory) > 0 {
		for cat, cs := range byCategory {
			if cs.Total > 0 {
				cs.PassRate = float64(cs.Passed) / float64(cs.Total)
			}
			byCategory[cat] = cs
		}
		summary.ByCategory = byCategory
	}

	summary.TrialStats = stats.ComputeAllTrialStats(trials, trialCount)
	summary.GateResult = r.opts.Gates(&summary, r.opts.Suite.Gates)
	return summary
}

// effectiveTrialCount is the suite's configured trial count, except in
// judge-only mode where it is recovered from the previous run's
// trials.
func (r *Runner) effectiveTrialCount(trials []eval.Trial) int {
	if r.opts.Mode != eval.ModeJudgeOnly {
		return r.opts.Suite.TrialCount
	}
	perCase := make(map[string]int)
	maxCount := 1
	for _, t := range trials {
		perCase[t.CaseID]++
		if perCase[t.CaseID] > maxCount {
			maxCount = perCase[t.CaseID]
		}
	}
	return maxCount
}
