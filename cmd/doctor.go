package cmd

import (
	"fmt"
	"os/exec"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/fulmenhq/repocheck/pkg/config"
)

func newDoctorCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check external tools and configuration",
		Long: `Verify that the external tools repocheck shells out to are installed,
that a GitHub token is configured, and that the repocheck home directory
is usable.`,
		RunE: runDoctor,
	}
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	healthy := true

	table := newTable(out, []string{"Component", "Status", "Detail"})

	for _, tool := range []struct {
		bin  string
		hint string
	}{
		{"git", "install git from https://git-scm.com or your package manager"},
		{"black", "pip install black"},
		{"ruff", "pip install ruff"},
		{"pyroma", "pip install pyroma"},
	} {
		if path, err := exec.LookPath(tool.bin); err == nil {
			_ = table.Append([]string{tool.bin, color.GreenString("found"), path})
		} else {
			healthy = false
			_ = table.Append([]string{tool.bin, color.RedString("missing"), tool.hint})
		}
	}

	if home, err := config.EnsureHome(); err == nil {
		_ = table.Append([]string{"home", color.GreenString("ok"), home})
	} else {
		healthy = false
		_ = table.Append([]string{"home", color.RedString("error"), err.Error()})
	}

	tokenStatus, tokenDetail := checkToken()
	if tokenStatus {
		_ = table.Append([]string{"github token", color.GreenString("configured"), tokenDetail})
	} else {
		healthy = false
		_ = table.Append([]string{"github token", color.RedString("missing"), tokenDetail})
	}

	_ = table.Render()
	fmt.Fprintln(out)

	if !healthy {
		return fmt.Errorf("environment is not ready; fix the items marked above")
	}
	fmt.Fprintln(out, color.GreenString("Environment is ready."))
	return nil
}

func checkToken() (bool, string) {
	settings, err := config.Load()
	if err != nil {
		return false, err.Error()
	}
	if _, err := settings.Token(); err != nil {
		return false, "set GITHUB_TOKEN or add github_token to config.yaml"
	}
	return true, "token resolved"
}
