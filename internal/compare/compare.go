// Package compare diffs two completed runs into regressions and
// improvements. It is a pure function of the two run artifacts and
// owns no state.
package compare

import (
	"sort"

	"github.com/FlanaganSe/agent-evals-sub000/internal/eval"
)

// DefaultScoreThreshold is the minimum score delta that counts as a
// regression or improvement when statuses did not change.
const DefaultScoreThreshold = 0.05

// Direction classifies how a case (or grader, or category) moved
// between two runs.
type Direction string

const (
	DirectionRegression  Direction = "regression"
	DirectionImprovement Direction = "improvement"
	DirectionUnchanged   Direction = "unchanged"
	DirectionAdded       Direction = "added"
	DirectionRemoved     Direction = "removed"
)

// directionRank orders comparisons so the most actionable information
// (regressions, removed coverage) sorts first.
var directionRank = map[Direction]int{
	DirectionRegression:  0,
	DirectionRemoved:     1,
	DirectionAdded:       2,
	DirectionUnchanged:   3,
	DirectionImprovement: 4,
}

// GraderChange is a per-grader diff within one case.
type GraderChange struct {
	Name         string    `json:"name"`
	Direction    Direction `json:"direction"`
	BasePass     *bool     `json:"basePass,omitempty"`
	ComparePass  *bool     `json:"comparePass,omitempty"`
	BaseScore    *float64  `json:"baseScore,omitempty"`
	CompareScore *float64  `json:"compareScore,omitempty"`
	ScoreDelta   float64   `json:"scoreDelta"`
}

// CaseComparison is the diff of one case across two runs.
type CaseComparison struct {
	CaseID        string            `json:"caseId"`
	Direction     Direction         `json:"direction"`
	BaseStatus    *eval.TrialStatus `json:"baseStatus,omitempty"`
	CompareStatus *eval.TrialStatus `json:"compareStatus,omitempty"`
	BaseScore     *float64          `json:"baseScore,omitempty"`
	CompareScore  *float64          `json:"compareScore,omitempty"`
	ScoreDelta    float64           `json:"scoreDelta"`
	GraderChanges []GraderChange    `json:"graderChanges,omitempty"`
}

// CategoryComparison diffs one category's pass rate across two runs.
type CategoryComparison struct {
	Category        string    `json:"category"`
	Direction       Direction `json:"direction"`
	BasePassRate    *float64  `json:"basePassRate,omitempty"`
	ComparePassRate *float64  `json:"comparePassRate,omitempty"`
	Delta           float64   `json:"delta"`
}

// Summary aggregates a comparison.
type Summary struct {
	Regressions     int                  `json:"regressions"`
	Improvements    int                  `json:"improvements"`
	Unchanged       int                  `json:"unchanged"`
	Added           int                  `json:"added"`
	Removed         int                  `json:"removed"`
	CostDelta       float64              `json:"costDelta"`
	DurationDeltaMs int64                `json:"durationDeltaMs"`
	BaseGatePass    *bool                `json:"baseGatePass,omitempty"`
	CompareGatePass *bool                `json:"compareGatePass,omitempty"`
	Categories      []CategoryComparison `json:"categories,omitempty"`
}

// RunComparison is the full diff of two runs.
type RunComparison struct {
	BaseRunID    string           `json:"baseRunId"`
	CompareRunID string           `json:"compareRunId"`
	SuiteID      string           `json:"suiteId"`
	Cases        []CaseComparison `json:"cases"`
	Summary      Summary          `json:"summary"`
}

// Options tunes a comparison.
type Options struct {
	// ScoreThreshold is the minimum absolute score delta counted as a
	// change. Zero means DefaultScoreThreshold.
	ScoreThreshold float64
}

// representative is the per-case status/score/grades used for
// diffing. Multi-trial runs use the pass^k aggregate status and the
// mean score from trial stats; single-trial runs use the first trial
// directly.
type representative struct {
	status eval.TrialStatus
	score  float64
	grades []eval.GradeResult
}

func representatives(run *eval.Run) map[string]representative {
	byCase := eval.TrialsByCase(run.Trials)
	out := make(map[string]representative, len(byCase))
	multi := run.Summary.TrialStats != nil

	for caseID, trials := range byCase {
		rep := representative{
			status: trials[0].Status,
			score:  trials[0].Score,
			grades: trials[0].Grades,
		}
		if multi {
			rep.status = eval.AggregateStatus(trials)
			if st, ok := run.Summary.TrialStats[caseID]; ok {
				rep.score = st.MeanScore
			}
		}
		out[caseID] = rep
	}
	return out
}

// classify applies the shared direction rule: a pass -> non-pass
// transition is a regression and non-pass -> pass an improvement;
// otherwise the score delta decides against the threshold.
func classify(basePass, comparePass bool, delta, threshold float64) Direction {
	switch {
	case basePass && !comparePass:
		return DirectionRegression
	case !basePass && comparePass:
		return DirectionImprovement
	case delta <= -threshold:
		return DirectionRegression
	case delta >= threshold:
		return DirectionImprovement
	default:
		return DirectionUnchanged
	}
}

// CompareRuns diffs two completed runs.
func CompareRuns(base, compare *eval.Run, opts Options) *RunComparison {
	threshold := opts.ScoreThreshold
	if threshold == 0 {
		threshold = DefaultScoreThreshold
	}

	baseReps := representatives(base)
	compareReps := representatives(compare)

	seen := make(map[string]bool)
	var cases []CaseComparison
	for caseID, baseRep := range baseReps {
		seen[caseID] = true
		compRep, ok := compareReps[caseID]
		if !ok {
			cases = append(cases, CaseComparison{
				CaseID:     caseID,
				Direction:  DirectionRemoved,
				BaseStatus: ptr(baseRep.status),
				BaseScore:  ptr(baseRep.score),
				ScoreDelta: -baseRep.score,
			})
			continue
		}
		cases = append(cases, compareCase(caseID, baseRep, compRep, threshold))
	}
	for caseID, compRep := range compareReps {
		if seen[caseID] {
			continue
		}
		cases = append(cases, CaseComparison{
			CaseID:        caseID,
			Direction:     DirectionAdded,
			CompareStatus: ptr(compRep.status),
			CompareScore:  ptr(compRep.score),
			ScoreDelta:    compRep.score,
		})
	}

	sort.Slice(cases, func(i, j int) bool {
		ri, rj := directionRank[cases[i].Direction], directionRank[cases[j].Direction]
		if ri != rj {
			return ri < rj
		}
		return cases[i].CaseID < cases[j].CaseID
	})

	summary := Summary{
		CostDelta:       compare.Summary.TotalCost - base.Summary.TotalCost,
		DurationDeltaMs: compare.Summary.TotalDurationMs - base.Summary.TotalDurationMs,
		Categories:      compareCategories(base, compare, threshold),
	}
	if base.Summary.GateResult != nil {
		summary.BaseGatePass = ptr(base.Summary.GateResult.Pass)
	}
	if compare.Summary.GateResult != nil {
		summary.CompareGatePass = ptr(compare.Summary.GateResult.Pass)
	}
	for _, c := range cases {
		switch c.Direction {
		case DirectionRegression:
			summary.Regressions++
		case DirectionImprovement:
			summary.Improvements++
		case DirectionUnchanged:
			summary.Unchanged++
		case DirectionAdded:
			summary.Added++
		case DirectionRemoved:
			summary.Removed++
		}
	}

	return &RunComparison{
		BaseRunID:    base.ID,
		CompareRunID: compare.ID,
		SuiteID:      compare.SuiteID,
		Cases:        cases,
		Summary:      summary,
	}
}

func compareCase(caseID string, baseRep, compRep representative, threshold float64) CaseComparison {
	delta := compRep.score - baseRep.score
	cc := CaseComparison{
		CaseID:        caseID,
		Direction:     classify(baseRep.status == eval.StatusPass, compRep.status == eval.StatusPass, delta, threshold),
		BaseStatus:    ptr(baseRep.status),
		CompareStatus: ptr(compRep.status),
		BaseScore:     ptr(baseRep.score),
		CompareScore:  ptr(compRep.score),
		ScoreDelta:    delta,
		GraderChanges: compareGrades(baseRep.grades, compRep.grades, threshold),
	}
	return cc
}

func compareGrades(base, compare []eval.GradeResult, threshold float64) []GraderChange {
	baseByName := make(map[string]eval.GradeResult, len(base))
	for _, g := range base {
		baseByName[g.Name] = g
	}
	compByName := make(map[string]eval.GradeResult, len(compare))
	for _, g := range compare {
		compByName[g.Name] = g
	}

	names := make(map[string]bool)
	for name := range baseByName {
		names[name] = true
	}
	for name := range compByName {
		names[name] = true
	}

	var changes []GraderChange
	for name := range names {
		bg, hasBase := baseByName[name]
		cg, hasComp := compByName[name]
		switch {
		case !hasComp:
			changes = append(changes, GraderChange{
				Name:       name,
				Direction:  DirectionRemoved,
				BasePass:   ptr(bg.Pass),
				BaseScore:  ptr(bg.Score),
				ScoreDelta: -bg.Score,
			})
		case !hasBase:
			changes = append(changes, GraderChange{
				Name:         name,
				Direction:    DirectionAdded,
				ComparePass:  ptr(cg.Pass),
				CompareScore: ptr(cg.Score),
				ScoreDelta:   cg.Score,
			})
		default:
			delta := cg.Score - bg.Score
			changes = append(changes, GraderChange{
				Name:         name,
				Direction:    classify(bg.Pass, cg.Pass, delta, threshold),
				BasePass:     ptr(bg.Pass),
				ComparePass:  ptr(cg.Pass),
				BaseScore:    ptr(bg.Score),
				CompareScore: ptr(cg.Score),
				ScoreDelta:   delta,
			})
		}
	}

	sort.Slice(changes, func(i, j int) bool {
		ri, rj := directionRank[changes[i].Direction], directionRank[changes[j].Direction]
		if ri != rj {
			return ri < rj
		}
		return changes[i].Name < changes[j].Name
	})
	return changes
}

func compareCategories(base, compare *eval.Run, threshold float64) []CategoryComparison {
	names := make(map[string]bool)
	for name := range base.Summary.ByCategory {
		names[name] = true
	}
	for name := range compare.Summary.ByCategory {
		names[name] = true
	}
	if len(names) == 0 {
		return nil
	}

	var cats []CategoryComparison
	for name := range names {
		bc, hasBase := base.Summary.ByCategory[name]
		cc, hasComp := compare.Summary.ByCategory[name]
		switch {
		case !hasComp:
			cats = append(cats, CategoryComparison{
				Category:     name,
				Direction:    DirectionRemoved,
				BasePassRate: ptr(bc.PassRate),
				Delta:        -bc.PassRate,
			})
		case !hasBase:
			cats = append(cats, CategoryComparison{
				Category:        name,
				Direction:       DirectionAdded,
				ComparePassRate: ptr(cc.PassRate),
				Delta:           cc.PassRate,
			})
		default:
			delta := cc.PassRate - bc.PassRate
			dir := DirectionUnchanged
			if delta <= -threshold {
				dir = DirectionRegression
			} else if delta >= threshold {
				dir = DirectionImprovement
			}
			cats = append(cats, CategoryComparison{
				Category:        name,
				Direction:       dir,
				BasePassRate:    ptr(bc.PassRate),
				ComparePassRate: ptr(cc.PassRate),
				Delta:           delta,
			})
		}
	}

	sort.Slice(cats, func(i, j int) bool {
		ri, rj := directionRank[cats[i].Direction], directionRank[cats[j].Direction]
		if ri != rj {
			return ri < rj
		}
		return cats[i].Category < cats[j].Category
	})
	return cats
}

func ptr[T any](v T) *T { return &v }
