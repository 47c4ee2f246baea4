// Package cmd wires the repocheck command tree.
package cmd

import (
	"errors"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/fulmenhq/repocheck/internal/githubapi"
	"github.com/fulmenhq/repocheck/pkg/buildinfo"
	"github.com/fulmenhq/repocheck/pkg/config"
	"github.com/fulmenhq/repocheck/pkg/exitcode"
	"github.com/fulmenhq/repocheck/pkg/logger"
)

// newRootCommand creates a fresh root command instance. The factory pattern
// lets tests build isolated command trees without shared state.
func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repocheck",
		Short: "Review public repositories against open-science hygiene checks",
		Long: `Repocheck reviews public GitHub repositories against a fixed set of
hygiene checks: license, README, issue tracker, archival DOI,
installation docs, packaging, formatting, and linting.

Examples:
   repocheck review cthoyt/autoreviewer   # Review one repository
   repocheck batch corpus.yaml            # Review a corpus
   repocheck doctor                       # Check tools and configuration
   repocheck version                      # Show version`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			initializeLogger(cmd)
		},
	}

	// Accept underscore spellings of multi-word flags.
	cmd.SetGlobalNormalizationFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	cmd.PersistentFlags().String("log-level", "info", "Set log level (debug|info|warn|error)")
	cmd.PersistentFlags().Bool("json-logs", false, "Output logs in JSON format")
	cmd.PersistentFlags().Bool("no-color", false, "Disable colored output")

	cmd.Version = buildinfo.BinaryVersion
	cmd.SetVersionTemplate("repocheck {{.Version}}\n")

	return cmd
}

// registerSubcommands adds all subcommands to the root command. Called from
// init() for production and explicitly in tests.
func registerSubcommands(cmd *cobra.Command) {
	cmd.AddCommand(newReviewCommand())
	cmd.AddCommand(newBatchCommand())
	cmd.AddCommand(newDoctorCommand())
	cmd.AddCommand(newVersionCommand())
}

var rootCmd = newRootCommand()

// Execute runs the command tree and maps failures onto process exit codes.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logger.Error("command failed", logger.Err(err))
		os.Exit(exitCodeFor(err))
	}
}

func exitCodeFor(err error) int {
	var valErr *githubapi.ValidationError
	switch {
	case errors.As(err, &valErr):
		return exitcode.ValidationError
	case errors.Is(err, config.ErrMissingToken):
		return exitcode.ConfigError
	case errors.Is(err, errToolsMissing):
		return exitcode.ToolNotFound
	default:
		return exitcode.GeneralError
	}
}

// errToolsMissing wraps tool verification failures so Execute can map them to
// a distinct exit code.
var errToolsMissing = errors.New("required tools missing")

// initializeLogger sets up the logger based on the global flags.
func initializeLogger(cmd *cobra.Command) {
	levelStr, _ := cmd.Flags().GetString("log-level")
	jsonLogs, _ := cmd.Flags().GetBool("json-logs")
	noColor, _ := cmd.Flags().GetBool("no-color")

	logger.Initialize(logger.Config{
		Level:     logger.ParseLevel(levelStr),
		UseColor:  !noColor,
		JSON:      jsonLogs,
		Component: "repocheck",
	})
}

func init() {
	registerSubcommands(rootCmd)
}
