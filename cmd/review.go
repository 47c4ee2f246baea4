package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"

	"github.com/fulmenhq/repocheck/internal/githubapi"
	"github.com/fulmenhq/repocheck/internal/report"
	"github.com/fulmenhq/repocheck/internal/review"
)

func newReviewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "review OWNER/NAME",
		Short: "Review a single repository",
		Long: `Review one public GitHub repository against the hygiene checks and print
a summary table. The full results record can be written as JSON and the
human-readable report as markdown.`,
		Args: cobra.ExactArgs(1),
		RunE: runReview,
	}
	cmd.Flags().String("branch", "", "Review a branch other than the default")
	cmd.Flags().Bool("fresh", false, "Discard the cached checkout before reviewing")
	cmd.Flags().String("output", "", "Write the results record as JSON to this file")
	cmd.Flags().Bool("markdown", false, "Print the markdown report instead of the summary table")
	cmd.Flags().Bool("json", false, "Print the results record as JSON instead of the summary table")
	return cmd
}

func runReview(cmd *cobra.Command, args []string) error {
	id, err := githubapi.ParseIdentity(args[0])
	if err != nil {
		return err
	}

	branch, _ := cmd.Flags().GetString("branch")
	fresh, _ := cmd.Flags().GetBool("fresh")
	output, _ := cmd.Flags().GetString("output")
	asMarkdown, _ := cmd.Flags().GetBool("markdown")
	asJSON, _ := cmd.Flags().GetBool("json")

	eng, err := buildEngine()
	if err != nil {
		return err
	}

	res, err := eng.Review(cmd.Context(), id, review.Options{Branch: branch, Fresh: fresh})
	if err != nil {
		return err
	}

	if output != "" {
		if err := review.WriteFile(output, res); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	switch {
	case asJSON:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	case asMarkdown:
		md, err := report.Markdown(res)
		if err != nil {
			return err
		}
		fmt.Fprint(out, md)
		return nil
	default:
		printSummary(out, res)
		return nil
	}
}

// newTable creates a tablewriter configured with consistent styling.
func newTable(w io.Writer, headers []string) *tablewriter.Table {
	table := tablewriter.NewTable(w,
		tablewriter.WithHeaderAlignment(tw.AlignLeft),
		tablewriter.WithRowAlignment(tw.AlignLeft),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.BorderNone,
			Settings: tw.Settings{
				Lines:      tw.LinesNone,
				Separators: tw.SeparatorsNone,
			},
		}),
		tablewriter.WithPadding(tw.Padding{Left: "", Right: "  "}),
	)
	table.Header(headers)
	return table
}

// printSummary renders the per-check verdict table.
func printSummary(w io.Writer, res *review.Results) {
	fmt.Fprintf(w, "%s/%s (%s, %s)\n\n", res.Owner, res.Name, res.DefaultBranch, res.LicenseSPDX)

	table := newTable(w, []string{"Check", "Result", "Detail"})
	appendCheck(table, "License", res.License != nil, detailName(res.License))
	appendCheck(table, "README", res.ReadmeType != review.ReadmeAbsent, string(res.ReadmeType))
	appendCheck(table, "Issue tracker", res.HasIssues, "")
	appendCheck(table, "Archival DOI", res.HasArchivalDOI, "")
	appendCheck(table, "Packaging config", res.PackagingConfig != nil, detailName(res.PackagingConfig))
	appendCheck(table, "Installation docs", res.HasInstallDocs, "")
	if res.IsFormatted == nil {
		_ = table.Append([]string{"Formatted", color.YellowString("n/a"), "checkout unavailable"})
	} else {
		appendCheck(table, "Formatted", *res.IsFormatted, "")
	}
	_ = table.Append([]string{"Lint findings", strconv.Itoa(len(res.LintFindings)), ""})
	if res.Packaging != nil {
		_ = table.Append([]string{"Packaging rating", fmt.Sprintf("%d/10", res.Packaging.Score), string(res.Packaging.Status)})
	}
	if len(res.RootScripts) > 0 {
		_ = table.Append([]string{"Loose scripts", strconv.Itoa(len(res.RootScripts)), ""})
	}
	_ = table.Render()

	fmt.Fprintln(w)
	if res.Passes {
		fmt.Fprintln(w, color.GreenString("PASSES"))
	} else {
		fmt.Fprintln(w, color.RedString("FAILS"))
	}
}

func appendCheck(table *tablewriter.Table, name string, ok bool, detail string) {
	verdict := color.RedString("fail")
	if ok {
		verdict = color.GreenString("pass")
	}
	_ = table.Append([]string{name, verdict, detail})
}

func detailName(f *githubapi.RemoteFile) string {
	if f == nil {
		return ""
	}
	return f.Name
}
