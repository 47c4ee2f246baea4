package review

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/fulmenhq/repocheck/pkg/logger"
)

// requiredTools maps each external binary the engine invokes to its install
// remediation. Absence of any of them is a fatal environment error, not a
// data condition.
var requiredTools = map[string]string{
	"git":    "install git from https://git-scm.com or your package manager",
	"black":  "pip install black",
	"ruff":   "pip install ruff",
	"pyroma": "pip install pyroma",
}

// VerifyTools checks that every external tool is on PATH, returning a single
// error naming all missing binaries and how to install them.
func VerifyTools() error {
	var missing []string
	for bin, hint := range requiredTools {
		if _, err := exec.LookPath(bin); err != nil {
			missing = append(missing, fmt.Sprintf("%s (%s)", bin, hint))
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required external tools: %s", strings.Join(missing, "; "))
	}
	return nil
}

// checkFormatted runs the formatter in check-only mode over the materialized
// directory. Exit zero means formatted; any non-zero exit, including a tool
// crash, reports unformatted.
func checkFormatted(ctx context.Context, dir string) bool {
	_, code, err := runToolCapture(ctx, dir, "black", "--check", "--quiet", ".")
	if err != nil {
		logger.Warn("formatter did not run", logger.Err(err))
		return false
	}
	return code == 0
}

// ruffJSONMessage mirrors ruff's JSON output shape.
type ruffJSONMessage struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Filename string `json:"filename"`
	Location struct {
		Row    int `json:"row"`
		Column int `json:"column"`
	} `json:"location"`
}

// checkLint runs the linter over the materialized directory and returns its
// structured findings. The returned slice is non-nil: empty means linted
// cleanly, and a tool crash degrades to empty with a warning rather than
// aborting sibling checks.
func checkLint(ctx context.Context, dir string) []LintFinding {
	out, _, err := runToolCapture(ctx, dir, "ruff", "check", "--output-format", "json", ".")
	if err != nil {
		logger.Warn("linter did not run", logger.Err(err))
		return []LintFinding{}
	}
	return parseRuffFindings(out)
}

// parseRuffFindings converts ruff's JSON report into findings, degrading to
// empty on unparseable output.
func parseRuffFindings(out []byte) []LintFinding {
	if len(bytes.TrimSpace(out)) == 0 {
		return []LintFinding{}
	}

	var msgs []ruffJSONMessage
	if err := json.Unmarshal(out, &msgs); err != nil {
		logger.Warn("failed to parse linter output", logger.Err(err))
		return []LintFinding{}
	}

	findings := make([]LintFinding, 0, len(msgs))
	for _, m := range msgs {
		findings = append(findings, LintFinding{
			File:    filepath.ToSlash(m.Filename),
			Code:    strings.TrimSpace(m.Code),
			Line:    m.Location.Row,
			Column:  m.Location.Column,
			Message: strings.TrimSpace(m.Message),
		})
	}
	return findings
}

var pyromaRatingPattern = regexp.MustCompile(`Final rating:\s*(\d+)/10`)

// checkPackagingScore runs the packaging-quality rater over the materialized
// directory. The explicit three-state status distinguishes "rater crashed"
// from "rater ran and found nothing".
func checkPackagingScore(ctx context.Context, dir string) *PackagingReport {
	out, _, err := runToolCapture(ctx, dir, "pyroma", ".")
	if err != nil {
		logger.Warn("packaging rater did not run", logger.Err(err))
		return &PackagingReport{Status: PackagingFailedToRun, Failures: []string{}}
	}

	score, failures, ok := parsePyromaOutput(string(out))
	if !ok {
		return &PackagingReport{Status: PackagingFailedToRun, Failures: []string{}}
	}
	status := PackagingRanWithFindings
	if score == 10 && len(failures) == 0 {
		status = PackagingRanClean
	}
	return &PackagingReport{Status: status, Score: score, Failures: failures}
}

// parsePyromaOutput extracts the /10 rating and the failure lines from
// pyroma's report. ok is false when no rating line is present, which is how
// a rater crash mid-run manifests.
func parsePyromaOutput(out string) (score int, failures []string, ok bool) {
	match := pyromaRatingPattern.FindStringSubmatch(out)
	if match == nil {
		return 0, nil, false
	}
	score, _ = strconv.Atoi(match[1])

	failures = []string{}
	for _, line := range strings.Split(out, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
		case strings.HasPrefix(trimmed, "----"):
		case strings.HasPrefix(trimmed, "Checking "):
		case strings.HasPrefix(trimmed, "Found "):
		case strings.HasPrefix(trimmed, "Final rating:"):
			// Everything after the rating is pyroma's cheese pun, not a finding.
			return score, failures, true
		default:
			failures = append(failures, trimmed)
		}
	}
	return score, failures, true
}

// runToolCapture executes an external tool in dir and captures combined
// output. A non-zero exit is reported through the exit code, not the error;
// the error is reserved for the tool failing to run at all.
func runToolCapture(ctx context.Context, dir, bin string, args ...string) ([]byte, int, error) {
	cmd := exec.CommandContext(ctx, bin, args...) // #nosec G204
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err == nil {
		return out, 0, nil
	}
	if ee, ok := err.(*exec.ExitError); ok {
		return out, ee.ExitCode(), nil
	}
	return out, 0, fmt.Errorf("%s execution failed: %w", bin, err)
}
