package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"binforge/internal/stats"
)

var statsCmd = &cobra.Command{
	Use:   "stats <dir>",
	Short: "Show per-user file statistics for a corpus directory",
	Long: `stats treats the children of dir as user directories and reports the
user count, total files, mean and standard deviation of files per user.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := stats.Count(args[0])
		if err != nil {
			return err
		}
		top, _ := cmd.Flags().GetInt("top")
		printStats(cmd.OutOrStdout(), s, top)
		return nil
	},
}

func init() {
	statsCmd.Flags().Int("top", 0, "also list the users with most files")
}

func printStats(out io.Writer, s stats.Summary, top int) {
	fmt.Fprintf(out, "Total unique usernames: %d\n", s.Users)
	fmt.Fprintf(out, "Total number of files: %d\n", s.Files)
	fmt.Fprintf(out, "Average files per user: %.2f\n", s.Mean)
	fmt.Fprintf(out, "Standard deviation of files per user: %.2f\n", s.StdDev)
	if top > 0 {
		for _, row := range s.Top(top) {
			fmt.Fprintf(out, "  %-24s %d\n", row.User, row.Files)
		}
	}
}
