package cmd

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/FlanaganSe/agent-evals-sub000/internal/eval"
)

var rootCmd = &cobra.Command{
	Use:   "agent-evals",
	Short: "Evaluation harness for agent and LLM workloads",
	Long: `agent-evals executes evaluation suites against a target system, grades
the outputs, and persists the results as reproducible run artifacts.

Suites can run live against a target endpoint, replay previously recorded
fixtures for deterministic offline runs, or re-grade the outputs of a saved
run without touching the target at all.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		verbose, _ := cmd.Flags().GetBool("verbose")
		if verbose {
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: slog.LevelDebug,
			})))
		}
	},
}

var (
	buildCommit = "unknown"
	buildDate   = "unknown"
)

// SetVersion sets the version for the root command.
func SetVersion(v string) {
	rootCmd.Version = v
}

// SetBuildInfo sets the commit and build date for the version command.
func SetBuildInfo(commit, date string) {
	buildCommit = commit
	buildDate = date
}

// Execute is the main entry point for the CLI application. Exit codes
// follow the error kind: 1 for evaluation failures, 2 for config
// errors, 3 for runtime errors. The first interrupt cancels the
// command context so a running suite can assemble its partial results;
// a second interrupt exits immediately.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "agent-evals version %s\n" .Version}}`)

	ctx, stop := interruptContext(context.Background(), os.Exit)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(eval.ExitCode(err))
	}
}

func init() {
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newCompareCmd())
	rootCmd.AddCommand(newFixturesCmd())

	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")
}
