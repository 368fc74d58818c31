package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/FlanaganSe/agent-evals-sub000/internal/eval"
	"github.com/FlanaganSe/agent-evals-sub000/internal/fixture"
	"github.com/FlanaganSe/agent-evals-sub000/internal/grader"
	"github.com/FlanaganSe/agent-evals-sub000/internal/judge"
	"github.com/FlanaganSe/agent-evals-sub000/internal/ratelimit"
	"github.com/FlanaganSe/agent-evals-sub000/internal/runner"
	"github.com/FlanaganSe/agent-evals-sub000/internal/runstore"
	"github.com/FlanaganSe/agent-evals-sub000/internal/suite"
)

func newRunCmd() *cobra.Command {
	var (
		mode        string
		record      bool
		fixturesDir string
		runsDir     string
		previousRun string
		stripRaw    bool
		endpoint    string
		apiKey      string
		model       string
		rpm         int
	)

	cmd := &cobra.Command{
		Use:   "run <suite-file>",
		Short: "Execute an evaluation suite and save the run",
		Long: `Execute every case in a suite, grade the outputs, and persist the run
as a JSON artifact in the runs directory.

In live mode the target endpoint is called for every trial; --record stores
each output as a fixture. In replay mode recorded fixtures substitute for
live calls. In judge-only mode the outputs of a previous run are re-graded
without touching the target.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			s, err := suite.Load(args[0])
			if err != nil {
				return err
			}

			runMode := eval.RunMode(mode)
			graders, err := grader.FromNames(s.Graders, s.JudgeModel)
			if err != nil {
				return err
			}

			opts := runner.Options{
				Suite:            s,
				Mode:             runMode,
				Graders:          graders,
				Record:           record,
				StripRaw:         stripRaw,
				FrameworkVersion: rootCmd.Version,
			}

			if needsJudge(s, runMode) {
				opts.Judge = newJudgeFromFlags(endpoint, apiKey, s.JudgeModel)
			}

			switch runMode {
			case eval.ModeLive:
				client := newTargetClient(endpoint, apiKey, model)
				opts.Target = newOpenAITarget(client)
			case eval.ModeJudgeOnly:
				if previousRun == "" {
					return eval.NewConfigError("judge-only mode requires --previous-run")
				}
			}

			store, err := runstore.NewStore(runsDir)
			if err != nil {
				return err
			}
			if previousRun != "" {
				prev, err := store.Load(previousRun)
				if err != nil {
					return err
				}
				opts.PreviousRun = prev
			}

			if runMode == eval.ModeReplay || record {
				opts.Fixtures = fixture.NewStore(fixturesDir, slog.Default())
			}

			limit := s.MaxRequestsPerMinute
			if rpm > 0 {
				limit = rpm
			}
			if limit > 0 && runMode == eval.ModeLive {
				limiter := ratelimit.New(limit)
				defer limiter.Dispose()
				opts.Limiter = limiter
			}

			r, err := runner.New(opts)
			if err != nil {
				return err
			}

			fmt.Printf("Suite: %s (%d cases, %d trial(s) per case)\n", s.ID, len(s.Cases), s.TrialCount)
			fmt.Printf("Mode: %s\n\n", runMode)

			run, err := r.Run(ctx)
			if err != nil {
				return err
			}

			path, err := store.Save(run)
			if err != nil {
				return err
			}

			printRunSummary(run)
			fmt.Printf("\nRun saved: %s\n", path)

			if run.Summary.Aborted {
				return eval.NewRuntimeError("run %s was aborted before completing", run.ID)
			}
			if gr := run.Summary.GateResult; gr != nil && !gr.Pass {
				return eval.NewEvalFailure("run %s failed quality gates", run.ID)
			}
			if run.Summary.Failed > 0 || run.Summary.Errors > 0 {
				return eval.NewEvalFailure("%d of %d cases did not pass", run.Summary.Failed+run.Summary.Errors, run.Summary.TotalCases)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "live", "Run mode: live, replay, or judge-only")
	cmd.Flags().BoolVar(&record, "record", false, "Record target outputs as fixtures (live mode)")
	cmd.Flags().StringVar(&fixturesDir, "fixtures-dir", "fixtures", "Directory for recorded fixtures")
	cmd.Flags().StringVar(&runsDir, "runs-dir", "runs", "Directory for saved run artifacts")
	cmd.Flags().StringVar(&previousRun, "previous-run", "", "Run ID to re-grade (judge-only mode)")
	cmd.Flags().BoolVar(&stripRaw, "strip-raw", true, "Strip raw provider payloads from recorded fixtures")
	cmd.Flags().StringVar(&endpoint, "endpoint", "", "Target API endpoint URL")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "API key (or set OPENAI_API_KEY)")
	cmd.Flags().StringVar(&model, "model", "", "Target model name")
	cmd.Flags().IntVar(&rpm, "rpm", 0, "Max requests per minute (overrides suite config)")

	return cmd
}

// needsJudge reports whether the run requires a judge function: either
// a judge-backed grader is configured or outputs will be re-graded.
func needsJudge(s *suite.Suite, mode eval.RunMode) bool {
	if mode == eval.ModeJudgeOnly {
		return true
	}
	for _, name := range s.Graders {
		if name == "llm-rubric" {
			return true
		}
	}
	return false
}

func clientOptions(endpoint, apiKey, model string) []judge.Option {
	var opts []judge.Option
	if endpoint != "" {
		opts = append(opts, judge.WithBaseURL(endpoint))
	}
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey != "" {
		opts = append(opts, judge.WithAPIKey(apiKey))
	}
	if model != "" {
		opts = append(opts, judge.WithModel(model))
	}
	return opts
}

func newJudgeFromFlags(endpoint, apiKey, model string) judge.Func {
	return judge.NewOpenAIClient(clientOptions(endpoint, apiKey, model)...).Func()
}

func newTargetClient(endpoint, apiKey, model string) *judge.OpenAIClient {
	return judge.NewOpenAIClient(clientOptions(endpoint, apiKey, model)...)
}

// newOpenAITarget adapts an OpenAI-compatible chat client into a
// target function: the case input becomes a single user message.
func newOpenAITarget(client *judge.OpenAIClient) runner.TargetFunc {
	return func(ctx context.Context, c eval.Case) (*eval.Output, error) {
		start := time.Now()
		resp, err := client.Complete(ctx, []judge.Message{
			{Role: judge.RoleUser, Content: c.Input},
		}, nil)
		if err != nil {
			return nil, err
		}
		return &eval.Output{
			Text:       resp.Text,
			LatencyMs:  time.Since(start).Milliseconds(),
			Cost:       resp.Cost,
			TokenUsage: resp.TokenUsage,
			ModelID:    resp.ModelID,
		}, nil
	}
}

func printRunSummary(run *eval.Run) {
	s := run.Summary
	fmt.Printf("\nRun ID: %s\n", run.ID)
	fmt.Printf("Cases: %d total, %d passed, %d failed, %d errors (pass rate %.1f%%)\n",
		s.TotalCases, s.Passed, s.Failed, s.Errors, s.PassRate*100)
	fmt.Printf("Duration: %dms (p95 latency %dms)\n", s.TotalDurationMs, s.P95LatencyMs)
	if s.TotalCost > 0 {
		fmt.Printf("Cost: $%.4f\n", s.TotalCost)
	}
	for _, category := range sortedKeys(s.ByCategory) {
		cs := s.ByCategory[category]
		fmt.Printf("  %s: %d/%d passed\n", category, cs.Passed, cs.Total)
	}
	for _, caseID := range sortedKeys(s.TrialStats) {
		if ts := s.TrialStats[caseID]; ts.Flaky {
			fmt.Printf("  flaky: %s passed %d/%d trials\n", caseID, ts.PassCount, ts.TrialCount)
		}
	}
	if gr := s.GateResult; gr != nil {
		verdict := "passed"
		if !gr.Pass {
			verdict = "FAILED"
		}
		fmt.Printf("Gates: %s\n", verdict)
		for _, check := range gr.Checks {
			mark := "ok"
			if !check.Pass {
				mark = "FAIL"
			}
			fmt.Printf("  [%s] %s: actual %.4f, threshold %.4f\n", mark, check.Name, check.Actual, check.Threshold)
		}
	}
	if s.Aborted {
		fmt.Println("Run was aborted; results are partial.")
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
