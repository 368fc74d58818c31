package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of agent-evals",
		Long: `Print the build version, commit, and date. The version printed here is
also recorded as frameworkVersion in every run artifact and fixture, so it
ties saved results back to the binary that produced them.`,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "agent-evals version %s\n", rootCmd.Version)
			_, _ = fmt.Fprintf(out, "  commit: %s\n", buildCommit)
			_, _ = fmt.Fprintf(out, "  built:  %s\n", buildDate)
			_, _ = fmt.Fprintf(out, "  go:     %s\n", runtime.Version())
		},
	}
}
