package compare

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FlanaganSe/agent-evals-sub000/internal/eval"
)

func singleTrialRun(id string, trials ...eval.Trial) *eval.Run {
	return &eval.Run{ID: id, SuiteID: "suite-1", Mode: eval.ModeLive, Trials: trials}
}

func trial(caseID string, status eval.TrialStatus, score float64) eval.Trial {
	return eval.Trial{CaseID: caseID, Status: status, Score: score, Grades: []eval.GradeResult{
		{Name: "exact-match", Pass: status == eval.StatusPass, Score: score},
	}}
}

func TestCompareStatusRegression(t *testing.T) {
	base := singleTrialRun("base", trial("C01", eval.StatusPass, 1))
	comp := singleTrialRun("comp", trial("C01", eval.StatusFail, 0))

	res := CompareRuns(base, comp, Options{})
	require.Len(t, res.Cases, 1)
	assert.Equal(t, DirectionRegression, res.Cases[0].Direction)
	assert.InDelta(t, -1.0, res.Cases[0].ScoreDelta, 1e-9)
	assert.Equal(t, 1, res.Summary.Regressions)
}

func TestCompareScoreDeltaThreshold(t *testing.T) {
	base := singleTrialRun("base", trial("C01", eval.StatusPass, 0.9))

	// Delta -0.15 exceeds the default 0.05 threshold.
	comp := singleTrialRun("comp", trial("C01", eval.StatusPass, 0.75))
	res := CompareRuns(base, comp, Options{})
	assert.Equal(t, DirectionRegression, res.Cases[0].Direction)

	// Delta -0.03 stays below the threshold.
	comp = singleTrialRun("comp", trial("C01", eval.StatusPass, 0.87))
	res = CompareRuns(base, comp, Options{})
	assert.Equal(t, DirectionUnchanged, res.Cases[0].Direction)
}

func TestCompareImprovement(t *testing.T) {
	base := singleTrialRun("base", trial("C01", eval.StatusFail, 0))
	comp := singleTrialRun("comp", trial("C01", eval.StatusPass, 1))

	res := CompareRuns(base, comp, Options{})
	assert.Equal(t, DirectionImprovement, res.Cases[0].Direction)
	assert.Equal(t, 1, res.Summary.Improvements)
}

func TestCompareAddedRemoved(t *testing.T) {
	base := singleTrialRun("base", trial("C01", eval.StatusPass, 1), trial("C02", eval.StatusPass, 1))
	comp := singleTrialRun("comp", trial("C01", eval.StatusPass, 1), trial("C03", eval.StatusFail, 0))

	res := CompareRuns(base, comp, Options{})
	require.Len(t, res.Cases, 3)

	byID := make(map[string]CaseComparison)
	for _, c := range res.Cases {
		byID[c.CaseID] = c
	}
	assert.Equal(t, DirectionRemoved, byID["C02"].Direction)
	assert.Equal(t, DirectionAdded, byID["C03"].Direction)
	assert.Equal(t, DirectionUnchanged, byID["C01"].Direction)
	assert.Equal(t, 1, res.Summary.Added)
	assert.Equal(t, 1, res.Summary.Removed)
}

func TestCompareSortOrder(t *testing.T) {
	base := singleTrialRun("base",
		trial("A", eval.StatusPass, 1),  // unchanged
		trial("B", eval.StatusPass, 1),  // regression
		trial("C", eval.StatusFail, 0),  // improvement
		trial("D", eval.StatusPass, 1),  // removed
		trial("B2", eval.StatusPass, 1), // regression (tie-break by id)
	)
	comp := singleTrialRun("comp",
		trial("A", eval.StatusPass, 1),
		trial("B", eval.StatusFail, 0),
		trial("C", eval.StatusPass, 1),
		trial("E", eval.StatusPass, 1), // added
		trial("B2", eval.StatusFail, 0),
	)

	res := CompareRuns(base, comp, Options{})
	var order []string
	for _, c := range res.Cases {
		order = append(order, c.CaseID)
	}
	// regression < removed < added < unchanged < improvement.
	assert.Equal(t, []string{"B", "B2", "D", "E", "A", "C"}, order)
}

func TestCompareMultiTrialUsesAggregate(t *testing.T) {
	i0, i1 := 0, 1
	base := &eval.Run{
		ID: "base", SuiteID: "suite-1",
		Trials: []eval.Trial{
			{CaseID: "C01", TrialIndex: &i0, Status: eval.StatusPass, Score: 1},
			{CaseID: "C01", TrialIndex: &i1, Status: eval.StatusPass, Score: 1},
		},
		Summary: eval.RunSummary{TrialStats: map[string]eval.TrialStats{
			"C01": {TrialCount: 2, PassCount: 2, MeanScore: 1},
		}},
	}
	comp := &eval.Run{
		ID: "comp", SuiteID: "suite-1",
		Trials: []eval.Trial{
			{CaseID: "C01", TrialIndex: &i0, Status: eval.StatusPass, Score: 1},
			{CaseID: "C01", TrialIndex: &i1, Status: eval.StatusFail, Score: 0},
		},
		Summary: eval.RunSummary{TrialStats: map[string]eval.TrialStats{
			"C01": {TrialCount: 2, PassCount: 1, MeanScore: 0.5, Flaky: true},
		}},
	}

	res := CompareRuns(base, comp, Options{})
	require.Len(t, res.Cases, 1)
	// pass^k: one failing trial makes the representative status fail.
	assert.Equal(t, DirectionRegression, res.Cases[0].Direction)
	assert.Equal(t, eval.StatusFail, *res.Cases[0].CompareStatus)
	assert.InDelta(t, -0.5, res.Cases[0].ScoreDelta, 1e-9)
}

func TestCompareGraderChanges(t *testing.T) {
	base := singleTrialRun("base", eval.Trial{
		CaseID: "C01", Status: eval.StatusPass, Score: 1,
		Grades: []eval.GradeResult{
			{Name: "exact-match", Pass: true, Score: 1},
			{Name: "llm-rubric", Pass: true, Score: 0.9},
		},
	})
	comp := singleTrialRun("comp", eval.Trial{
		CaseID: "C01", Status: eval.StatusPass, Score: 1,
		Grades: []eval.GradeResult{
			{Name: "exact-match", Pass: false, Score: 0},
			{Name: "contains", Pass: true, Score: 1},
		},
	})

	res := CompareRuns(base, comp, Options{})
	require.Len(t, res.Cases, 1)
	changes := res.Cases[0].GraderChanges
	require.Len(t, changes, 3)

	byName := make(map[string]GraderChange)
	for _, c := range changes {
		byName[c.Name] = c
	}
	assert.Equal(t, DirectionRegression, byName["exact-match"].Direction)
	assert.Equal(t, DirectionRemoved, byName["llm-rubric"].Direction)
	assert.Equal(t, DirectionAdded, byName["contains"].Direction)
}

func TestCompareCategoriesAndDeltas(t *testing.T) {
	base := singleTrialRun("base", trial("C01", eval.StatusPass, 1))
	base.Summary.TotalCost = 0.10
	base.Summary.TotalDurationMs = 1000
	base.Summary.ByCategory = map[string]eval.CategorySummary{
		"math": {Total: 2, Passed: 2, PassRate: 1.0},
	}
	base.Summary.GateResult = &eval.GateResult{Pass: true}

	comp := singleTrialRun("comp", trial("C01", eval.StatusPass, 1))
	comp.Summary.TotalCost = 0.25
	comp.Summary.TotalDurationMs = 1500
	comp.Summary.ByCategory = map[string]eval.CategorySummary{
		"math": {Total: 2, Passed: 1, PassRate: 0.5},
	}
	comp.Summary.GateResult = &eval.GateResult{Pass: false}

	res := CompareRuns(base, comp, Options{})
	assert.InDelta(t, 0.15, res.Summary.CostDelta, 1e-9)
	assert.Equal(t, int64(500), res.Summary.DurationDeltaMs)
	assert.True(t, *res.Summary.BaseGatePass)
	assert.False(t, *res.Summary.CompareGatePass)

	require.Len(t, res.Summary.Categories, 1)
	assert.Equal(t, DirectionRegression, res.Summary.Categories[0].Direction)
	assert.InDelta(t, -0.5, res.Summary.Categories[0].Delta, 1e-9)
}
