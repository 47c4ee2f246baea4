// Package report renders a results record into human-readable markdown,
// suitable for pasting into an issue on the reviewed repository.
package report

import (
	_ "embed"
	"fmt"
	"strings"
	"time"

	"github.com/aymerick/raymond"

	"github.com/fulmenhq/repocheck/internal/review"
)

//go:embed template.md
var reviewTemplate string

var compiled *raymond.Template

func init() {
	compiled = raymond.MustParse(reviewTemplate)
	compiled.RegisterHelper("checkmark", func(ok bool) string {
		if ok {
			return "pass"
		}
		return "fail"
	})
}

// Markdown renders the review report for one results record.
func Markdown(res *review.Results) (string, error) {
	ctx := map[string]interface{}{
		"owner":          res.Owner,
		"name":           res.Name,
		"passes":         res.Passes,
		"hasLicense":     res.License != nil,
		"licenseSpdx":    res.LicenseSPDX,
		"hasReadme":      res.ReadmeType != review.ReadmeAbsent,
		"readmeType":     string(res.ReadmeType),
		"hasIssues":      res.HasIssues,
		"hasArchivalDoi": res.HasArchivalDOI,
		"hasPackaging":   res.PackagingConfig != nil,
		"hasInstallDocs": res.HasInstallDocs,
		"isFormatted":    res.IsFormatted != nil && *res.IsFormatted,
		"lintFindings":   lintContext(res.LintFindings),
		"lintCount":      len(res.LintFindings),
		"rootScripts":    res.RootScripts,
		"capturedAt":     res.CapturedAt.Format(time.RFC3339),
		"headSha":        res.HeadSHA,
	}
	if res.Packaging != nil {
		ctx["packaging"] = map[string]interface{}{
			"score":    res.Packaging.Score,
			"status":   string(res.Packaging.Status),
			"failures": res.Packaging.Failures,
		}
	}

	out, err := compiled.Exec(ctx)
	if err != nil {
		return "", fmt.Errorf("rendering report: %w", err)
	}
	return collapseBlankLines(out), nil
}

// lintContext flattens findings into template-friendly maps.
func lintContext(findings []review.LintFinding) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(findings))
	for _, f := range findings {
		out = append(out, map[string]interface{}{
			"file":    f.File,
			"code":    f.Code,
			"line":    f.Line,
			"column":  f.Column,
			"message": f.Message,
		})
	}
	return out
}

// collapseBlankLines squashes runs of blank lines the conditional template
// blocks leave behind.
func collapseBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			if blank {
				continue
			}
			blank = true
			out = append(out, "")
			continue
		}
		blank = false
		out = append(out, line)
	}
	return strings.TrimRight(strings.Join(out, "\n"), "\n") + "\n"
}
