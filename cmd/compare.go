package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/FlanaganSe/agent-evals-sub000/internal/compare"
	"github.com/FlanaganSe/agent-evals-sub000/internal/eval"
	"github.com/FlanaganSe/agent-evals-sub000/internal/runstore"
)

func newCompareCmd() *cobra.Command {
	var (
		runsDir          string
		scoreThreshold   float64
		jsonOutput       bool
		failOnRegression bool
	)

	cmd := &cobra.Command{
		Use:   "compare <base-run-id> <compare-run-id>",
		Short: "Compare two saved runs case by case",
		Long: `Diff two saved runs of the same suite: per-case status and score changes,
per-grader changes, category pass rate shifts, and cost and duration deltas.

Cases are classified as regressions, improvements, unchanged, added, or
removed. Regressions sort first.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := runstore.NewStore(runsDir)
			if err != nil {
				return err
			}

			base, err := store.Load(args[0])
			if err != nil {
				return err
			}
			comp, err := store.Load(args[1])
			if err != nil {
				return err
			}

			result := compare.CompareRuns(base, comp, compare.Options{
				ScoreThreshold: scoreThreshold,
			})

			if jsonOutput {
				data, err := json.MarshalIndent(result, "", "  ")
				if err != nil {
					return eval.WrapRuntime(err, "failed to encode comparison")
				}
				fmt.Println(string(data))
			} else {
				printComparison(result)
			}

			if failOnRegression && result.Summary.Regressions > 0 {
				return eval.NewEvalFailure("%d case(s) regressed between %s and %s",
					result.Summary.Regressions, args[0], args[1])
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&runsDir, "runs-dir", "runs", "Directory containing saved run artifacts")
	cmd.Flags().Float64Var(&scoreThreshold, "score-threshold", compare.DefaultScoreThreshold,
		"Minimum absolute score delta counted as a change")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the full comparison as JSON")
	cmd.Flags().BoolVar(&failOnRegression, "fail-on-regression", false, "Exit non-zero if any case regressed")

	return cmd
}

func printComparison(c *compare.RunComparison) {
	fmt.Printf("Comparing %s -> %s (suite %s)\n\n", c.BaseRunID, c.CompareRunID, c.SuiteID)

	s := c.Summary
	fmt.Printf("Regressions: %d, Improvements: %d, Unchanged: %d, Added: %d, Removed: %d\n",
		s.Regressions, s.Improvements, s.Unchanged, s.Added, s.Removed)
	fmt.Printf("Cost delta: %+.4f, Duration delta: %+dms\n", s.CostDelta, s.DurationDeltaMs)
	if s.BaseGatePass != nil && s.CompareGatePass != nil {
		fmt.Printf("Gates: %s -> %s\n", gateVerdict(*s.BaseGatePass), gateVerdict(*s.CompareGatePass))
	}

	for _, cc := range c.Cases {
		if cc.Direction == compare.DirectionUnchanged {
			continue
		}
		fmt.Printf("\n  %-12s %s", cc.Direction, cc.CaseID)
		if cc.BaseStatus != nil && cc.CompareStatus != nil {
			fmt.Printf(" (%s -> %s, score %+.3f)", *cc.BaseStatus, *cc.CompareStatus, cc.ScoreDelta)
		}
		for _, gc := range cc.GraderChanges {
			fmt.Printf("\n    %s: %s (score %+.3f)", gc.Name, gc.Direction, gc.ScoreDelta)
		}
	}

	if len(s.Categories) > 0 {
		fmt.Printf("\n\nCategories:\n")
		for _, cat := range s.Categories {
			fmt.Printf("  %-12s %s (pass rate %+.1f%%)\n", cat.Direction, cat.Category, cat.Delta*100)
		}
	}
	fmt.Println()
}

func gateVerdict(pass bool) string {
	if pass {
		return "pass"
	}
	return "fail"
}
