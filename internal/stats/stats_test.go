package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FlanaganSe/agent-evals-sub000/internal/eval"
)

func trial(caseID string, status eval.TrialStatus, score float64) eval.Trial {
	return eval.Trial{CaseID: caseID, Status: status, Score: score}
}

func TestWilsonIntervalBounds(t *testing.T) {
	for total := 0; total <= 20; total++ {
		for passes := 0; passes <= total; passes++ {
			low, high := WilsonInterval(passes, total, DefaultZ)
			require.GreaterOrEqual(t, low, 0.0, "passes=%d total=%d", passes, total)
			require.LessOrEqual(t, high, 1.0, "passes=%d total=%d", passes, total)
			require.LessOrEqual(t, low, high, "passes=%d total=%d", passes, total)
			if total > 0 {
				p := float64(passes) / float64(total)
				require.LessOrEqual(t, low, p, "passes=%d total=%d", passes, total)
				require.GreaterOrEqual(t, high, p, "passes=%d total=%d", passes, total)
			}
		}
	}
}

func TestWilsonIntervalZeroTotal(t *testing.T) {
	low, high := WilsonInterval(0, 0, DefaultZ)
	assert.Zero(t, low)
	assert.Zero(t, high)
}

func TestWilsonIntervalKnownValue(t *testing.T) {
	// 8/10 at z=1.96: roughly [0.49, 0.94].
	low, high := WilsonInterval(8, 10, DefaultZ)
	assert.InDelta(t, 0.49, low, 0.01)
	assert.InDelta(t, 0.94, high, 0.01)
}

func TestComputeTrialStatsCounts(t *testing.T) {
	trials := []eval.Trial{
		trial("C01", eval.StatusPass, 1.0),
		trial("C01", eval.StatusFail, 0.2),
		trial("C01", eval.StatusError, 0.0),
		trial("C02", eval.StatusPass, 1.0),
	}

	st := ComputeTrialStats(trials, "C01")
	assert.Equal(t, 3, st.TrialCount)
	assert.Equal(t, 1, st.PassCount)
	assert.Equal(t, 1, st.FailCount)
	assert.Equal(t, 1, st.ErrorCount)
	assert.InDelta(t, 1.0/3.0, st.PassRate, 1e-9)
	assert.InDelta(t, 0.4, st.MeanScore, 1e-9)
	assert.True(t, st.Flaky)
}

func TestComputeTrialStatsSingleTrialStdDev(t *testing.T) {
	trials := []eval.Trial{trial("C01", eval.StatusPass, 0.8)}

	st := ComputeTrialStats(trials, "C01")
	assert.Equal(t, 1, st.TrialCount)
	assert.Zero(t, st.ScoreStdDev)
	assert.False(t, st.Flaky)
}

func TestComputeTrialStatsBesselCorrection(t *testing.T) {
	// Scores 0 and 1: sample stddev is sqrt(0.5/(2-1)) = sqrt(0.5).
	trials := []eval.Trial{
		trial("C01", eval.StatusFail, 0.0),
		trial("C01", eval.StatusPass, 1.0),
	}

	st := ComputeTrialStats(trials, "C01")
	assert.InDelta(t, 0.7071, st.ScoreStdDev, 1e-4)
}

func TestComputeTrialStatsNoMatches(t *testing.T) {
	st := ComputeTrialStats(nil, "missing")
	assert.Zero(t, st.TrialCount)
	assert.Zero(t, st.PassRate)
	assert.False(t, st.Flaky)
}

func TestComputeAllTrialStats(t *testing.T) {
	trials := []eval.Trial{
		trial("C01", eval.StatusPass, 1.0),
		trial("C01", eval.StatusPass, 1.0),
		trial("C02", eval.StatusPass, 1.0),
		trial("C02", eval.StatusFail, 0.0),
	}

	all := ComputeAllTrialStats(trials, 2)
	require.Len(t, all, 2)
	assert.False(t, all["C01"].Flaky)
	assert.True(t, all["C02"].Flaky)
}

func TestComputeAllTrialStatsSingleTrialRun(t *testing.T) {
	trials := []eval.Trial{trial("C01", eval.StatusPass, 1.0)}
	assert.Nil(t, ComputeAllTrialStats(trials, 1))
	assert.Nil(t, ComputeAllTrialStats(nil, 3))
}
