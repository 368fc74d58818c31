package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/FlanaganSe/agent-evals-sub000/internal/fixture"
)

func newFixturesCmd() *cobra.Command {
	var fixturesDir string

	cmd := &cobra.Command{
		Use:   "fixtures",
		Short: "Inspect and manage recorded fixtures",
	}

	cmd.PersistentFlags().StringVar(&fixturesDir, "fixtures-dir", "fixtures", "Directory for recorded fixtures")

	list := &cobra.Command{
		Use:   "list <suite-id>",
		Short: "List recorded fixtures for a suite",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store := fixture.NewStore(fixturesDir, slog.Default())
			infos, err := store.List(args[0])
			if err != nil {
				return err
			}
			if len(infos) == 0 {
				fmt.Printf("No fixtures recorded for suite %q.\n", args[0])
				return nil
			}
			for _, info := range infos {
				fmt.Printf("%-40s %8d bytes  %s\n", info.CaseID, info.SizeBytes,
					info.ModifiedAt.Format("2006-01-02 15:04:05"))
			}
			fmt.Printf("\n%d fixture(s)\n", len(infos))
			return nil
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear <suite-id>",
		Short: "Delete all recorded fixtures for a suite",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store := fixture.NewStore(fixturesDir, slog.Default())
			removed, err := store.Clear(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Removed %d fixture(s) for suite %q.\n", removed, args[0])
			return nil
		},
	}

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Summarize the fixture directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store := fixture.NewStore(fixturesDir, slog.Default())
			s, err := store.FixtureStats()
			if err != nil {
				return err
			}
			fmt.Printf("Fixtures: %d across %d suite(s), %d bytes total\n",
				s.TotalFixtures, s.Suites, s.TotalBytes)
			if s.TotalFixtures > 0 {
				fmt.Printf("Oldest: %s\n", s.OldestModTime.Format("2006-01-02 15:04:05"))
				fmt.Printf("Newest: %s\n", s.NewestModTime.Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}

	cmd.AddCommand(list, clearCmd, stats)
	return cmd
}
