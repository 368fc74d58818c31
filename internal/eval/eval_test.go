package eval

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func trialsWith(statuses ...TrialStatus) []Trial {
	trials := make([]Trial, len(statuses))
	for i, s := range statuses {
		trials[i] = Trial{CaseID: "c1", Status: s}
	}
	return trials
}

func TestAggregateStatus(t *testing.T) {
	tests := []struct {
		name     string
		statuses []TrialStatus
		want     TrialStatus
	}{
		{name: "all pass", statuses: []TrialStatus{StatusPass, StatusPass, StatusPass}, want: StatusPass},
		{name: "all error", statuses: []TrialStatus{StatusError, StatusError}, want: StatusError},
		{name: "mixed pass and fail", statuses: []TrialStatus{StatusPass, StatusFail, StatusPass}, want: StatusFail},
		{name: "mixed pass and error", statuses: []TrialStatus{StatusPass, StatusError}, want: StatusFail},
		{name: "single pass", statuses: []TrialStatus{StatusPass}, want: StatusPass},
		{name: "no trials", statuses: nil, want: StatusError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AggregateStatus(trialsWith(tt.statuses...)))
		})
	}
}

func TestTrialsByCase(t *testing.T) {
	trials := []Trial{
		{CaseID: "a", Status: StatusPass},
		{CaseID: "b", Status: StatusFail},
		{CaseID: "a", Status: StatusFail},
	}

	byCase := TrialsByCase(trials)

	assert.Len(t, byCase, 2)
	assert.Len(t, byCase["a"], 2)
	assert.Equal(t, StatusPass, byCase["a"][0].Status)
	assert.Equal(t, StatusFail, byCase["a"][1].Status)
}

func TestTrialIndex(t *testing.T) {
	var tr Trial
	assert.Equal(t, 0, tr.Index())

	idx := 3
	tr.TrialIndex = &idx
	assert.Equal(t, 3, tr.Index())
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, ExitCode(nil))
	assert.Equal(t, ExitConfig, ExitCode(NewConfigError("bad config")))
	assert.Equal(t, ExitEvalFailure, ExitCode(NewEvalFailure("gate failed")))
	assert.Equal(t, ExitRuntime, ExitCode(NewRuntimeError("boom")))
	assert.Equal(t, ExitRuntime, ExitCode(fmt.Errorf("unclassified")))

	// Classified errors keep their exit code through wrapping.
	wrapped := fmt.Errorf("while loading: %w", NewConfigError("bad suite"))
	assert.Equal(t, ExitConfig, ExitCode(wrapped))
}

func TestFrameworkErrorUnwrap(t *testing.T) {
	cause := fmt.Errorf("disk full")
	err := WrapRuntime(cause, "failed to save run")

	assert.Equal(t, "failed to save run: disk full", err.Error())
	assert.Equal(t, cause, err.Unwrap())
}

func TestComputeConfigHash(t *testing.T) {
	h1 := ComputeConfigHash("suite-a", "v1")
	h2 := ComputeConfigHash("suite-a", "v2")
	h3 := ComputeConfigHash("suite-a", "v1")

	assert.Len(t, h1, 64)
	assert.NotEqual(t, h1, h2)
	assert.Equal(t, h1, h3)

	// The separator keeps (name, version) pairs from colliding on
	// concatenation.
	assert.NotEqual(t, ComputeConfigHash("ab", "c"), ComputeConfigHash("a", "bc"))
}
