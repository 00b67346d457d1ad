package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"binforge/internal/submission"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Extract C++ submissions from Code Jam CSV dumps",
	Long: `ingest reads gcj<year>.csv (extracting gcj<year>.csv.tar.bz2 when needed),
keeps the C++ rows of the users listed in gcj<year>.txt and writes them to
{submissions}/{user}/{year}/{user}-{year}-{n}.cpp.`,
	Args: cobra.NoArgs,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().IntSlice("year", nil, "years to ingest (default [ingest].years or every names file)")
}

func runIngest(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	cleanup, err := setupLog(cmd, nil)
	if err != nil {
		return err
	}
	defer cleanup()

	years := cfg.Ingest.Years
	if v, _ := cmd.Flags().GetIntSlice("year"); len(v) > 0 {
		years = v
	}
	reports, err := submission.Ingest(cmd.Context(), &submission.Request{
		Archives: cfg.Ingest.Archives,
		Names:    cfg.Ingest.Names,
		Extract:  cfg.Ingest.Extract,
		Output:   cfg.Paths.Submissions,
		Years:    years,
	})
	if !boolFlag(cmd, "quiet") {
		out := cmd.OutOrStdout()
		for _, r := range reports {
			if r.Skipped != nil {
				fmt.Fprintf(out, "%s %d: %v\n", warnColor.Sprint("skipped"), r.Year, r.Skipped)
				continue
			}
			fmt.Fprintf(out, "%s %d rows, %s from %d users\n",
				headColor.Sprintf("%d:", r.Year), r.Rows, okColor.Sprintf("%d files", r.Written), r.Users)
		}
	}
	return err
}
