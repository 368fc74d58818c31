package runner

import (
	"context"

	"github.com/FlanaganSe/agent-evals-sub000/internal/eval"
)

// BeforeRunInfo describes the run about to start.
type BeforeRunInfo struct {
	SuiteID    string
	Mode       eval.RunMode
	CaseCount  int
	TrialCount int
}

// TrialProgress accompanies each completed trial.
type TrialProgress struct {
	SuiteID        string
	CompletedCount int
	TotalCount     int
}

// Hooks are the callbacks a plugin can register. Any hook may be nil.
type Hooks struct {
	// BeforeRun fires before any work starts. An error here is fatal
	// and aborts the whole run.
	BeforeRun func(ctx context.Context, info BeforeRunInfo) error
	// AfterTrial fires after each trial completes. Errors are logged
	// and swallowed; they must not break the run.
	AfterTrial func(ctx context.Context, trial eval.Trial, progress TrialProgress) error
	// AfterRun fires once the run artifact is assembled, even for
	// aborted runs. An error here is fatal.
	AfterRun func(ctx context.Context, run *eval.Run) error
}

// Plugin is a named capability record. Plugins are dispatched strictly
// in registration order.
type Plugin struct {
	Name  string
	Hooks *Hooks
}

func (r *Runner) fireBeforeRun(ctx context.Context, info BeforeRunInfo) error {
	for _, p := range r.plugins {
		if p.Hooks == nil || p.Hooks.BeforeRun == nil {
			continue
		}
		if err := p.Hooks.BeforeRun(ctx, info); err != nil {
			return eval.WrapRuntime(err, "plugin %q beforeRun hook failed", p.Name)
		}
	}
	return nil
}

func (r *Runner) fireAfterTrial(ctx context.Context, trial eval.Trial, progress TrialProgress) {
	for _, p := range r.plugins {
		if p.Hooks == nil || p.Hooks.AfterTrial == nil {
			continue
		}
		if err := p.Hooks.AfterTrial(ctx, trial, progress); err != nil {
			r.logger.Warn("plugin afterTrial hook failed",
				"plugin", p.Name,
				"case", trial.CaseID,
				"error", err,
			)
		}
	}
}

func (r *Runner) fireAfterRun(ctx context.Context, run *eval.Run) error {
	for _, p := range r.plugins {
		if p.Hooks == nil || p.Hooks.AfterRun == nil {
			continue
		}
		if err := p.Hooks.AfterRun(ctx, run); err != nil {
			return eval.WrapRuntime(err, "plugin %q afterRun hook failed", p.Name)
		}
	}
	return nil
}
