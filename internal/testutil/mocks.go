// Package testutil provides shared test helpers.
package testutil

import (
	"context"
	"sync/atomic"

	"github.com/FlanaganSe/agent-evals-sub000/internal/eval"
	"github.com/FlanaganSe/agent-evals-sub000/internal/judge"
)

// MockTarget is a configurable target function used across test
// packages.
type MockTarget struct {
	// Responses maps case inputs to canned output text.
	Responses map[string]string

	// DefaultResponse is returned when no matching key is found.
	DefaultResponse string

	// Err, when set, is returned for every call.
	Err error

	// Delay, when set, is how long each call blocks (honoring ctx).
	Delay func(ctx context.Context) error

	// Raw, when set, is attached to every output as the raw provider
	// payload.
	Raw map[string]any

	// Calls tracks the number of invocations.
	Calls atomic.Int64
}

// Func returns the mock as a target function.
func (m *MockTarget) Func() func(ctx context.Context, c eval.Case) (*eval.Output, error) {
	return func(ctx context.Context, c eval.Case) (*eval.Output, error) {
		m.Calls.Add(1)
		if m.Delay != nil {
			if err := m.Delay(ctx); err != nil {
				return nil, err
			}
		}
		if m.Err != nil {
			return nil, m.Err
		}
		text, ok := m.Responses[c.Input]
		if !ok {
			text = m.DefaultResponse
			if text == "" {
				text = "mock response"
			}
		}
		return &eval.Output{Text: text, LatencyMs: 1, Cost: 0.001, Raw: m.Raw}, nil
	}
}

// MockJudge returns a judge function that always replies with the
// given text.
func MockJudge(text string) judge.Func {
	return func(_ context.Context, _ []judge.Message, _ *judge.Options) (*judge.Response, error) {
		return &judge.Response{Text: text}, nil
	}
}
