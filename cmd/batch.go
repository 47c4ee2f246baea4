package cmd

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/fulmenhq/repocheck/internal/batch"
	"github.com/fulmenhq/repocheck/pkg/config"
	"github.com/fulmenhq/repocheck/pkg/logger"
)

func newBatchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch CORPUS",
		Short: "Review a corpus of repositories",
		Long: `Review every repository listed in a YAML corpus file. Per-repository
results are cached under the repocheck home and the run is archived as
gzip-compressed JSONL.

The corpus file groups repository references by journal, with an optional
blocklist:

   journals:
     jcheminf:
       - owner/name
       - https://github.com/owner/other
     joss:
       - owner/third
   blocklist:
     - owner/abandoned`,
		Args: cobra.ExactArgs(1),
		RunE: runBatch,
	}
	cmd.Flags().Int("workers", batch.DefaultWorkers, "Number of concurrent reviews")
	cmd.Flags().Bool("fresh", false, "Re-review every repository, ignoring cached results")
	cmd.Flags().String("output", "", "Archive path (default: <home>/reviews/runs/<run-id>.jsonl.gz)")
	return cmd
}

func runBatch(cmd *cobra.Command, args []string) error {
	workers, _ := cmd.Flags().GetInt("workers")
	fresh, _ := cmd.Flags().GetBool("fresh")
	output, _ := cmd.Flags().GetString("output")

	corpus, err := batch.LoadCorpus(args[0])
	if err != nil {
		return err
	}

	eng, err := buildEngine()
	if err != nil {
		return err
	}
	reviewsDir, err := config.ReviewsDir()
	if err != nil {
		return err
	}

	runner := batch.NewRunner(eng.Review, reviewsDir,
		batch.WithWorkers(workers),
		batch.WithFresh(fresh))
	summary, err := runner.Run(cmd.Context(), corpus)
	if err != nil {
		return err
	}

	if output == "" {
		output = filepath.Join(reviewsDir, "runs", summary.RunID+".jsonl.gz")
	}
	if err := summary.WriteArchive(output); err != nil {
		return err
	}
	logger.Info("archive written", logger.String("path", output))

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run %s\n\n", summary.RunID)

	table := newTable(out, []string{"Journal", "Repository", "Verdict"})
	for _, row := range summary.Rows {
		verdict := color.RedString("fails")
		if row.Results.Passes {
			verdict = color.GreenString("passes")
		}
		_ = table.Append([]string{row.Journal, row.Owner + "/" + row.Name, verdict})
	}
	_ = table.Render()

	fmt.Fprintln(out)
	counts := newTable(out, []string{"Total", "Reviewed", "Cached", "Skipped", "Passed"})
	_ = counts.Append([]string{
		strconv.Itoa(summary.Total),
		strconv.Itoa(summary.Reviewed),
		strconv.Itoa(summary.Cached),
		strconv.Itoa(summary.Skipped),
		strconv.Itoa(summary.Passed),
	})
	_ = counts.Render()
	return nil
}
