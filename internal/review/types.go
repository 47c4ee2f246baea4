// Package review implements the repository review engine: a fixed registry
// of hygiene checks run against remote file contents, repository metadata,
// and a shared materialized checkout, aggregated into one immutable Results
// record.
package review

import (
	"time"

	"github.com/fulmenhq/repocheck/internal/githubapi"
)

// ReadmeType is the exhaustive classification of a repository README.
type ReadmeType string

const (
	ReadmeMarkdown ReadmeType = "markdown"
	ReadmeRst      ReadmeType = "rst"
	ReadmeTxt      ReadmeType = "txt"
	ReadmeAbsent   ReadmeType = "absent"
)

// LintFinding is a single structured linter result.
type LintFinding struct {
	File    string `json:"file"`
	Code    string `json:"code"`
	Line    int    `json:"line"`
	Column  int    `json:"column"`
	Message string `json:"message"`
}

// PackagingStatus distinguishes a rater that never ran from one that ran and
// found nothing. The three states replace overloaded zero/negative score
// sentinels.
type PackagingStatus string

const (
	PackagingRanClean        PackagingStatus = "ran-clean"
	PackagingRanWithFindings PackagingStatus = "ran-with-findings"
	PackagingFailedToRun     PackagingStatus = "failed-to-run"
)

// PackagingReport is the outcome of the external packaging-quality rater.
// Score is only meaningful when Status is one of the ran states.
type PackagingReport struct {
	Status   PackagingStatus `json:"status"`
	Score    int             `json:"score"`
	Failures []string        `json:"failures"`
}

// Results is the immutable aggregate of one repository review. Nullable
// fields distinguish "check could not run" (materialization or fetch failed)
// from "check ran and the feature is absent". The record round-trips through
// JSON without loss and is never mutated after construction.
type Results struct {
	Owner string `json:"owner"`
	Name  string `json:"name"`

	DefaultBranch string `json:"default_branch"`
	Language      string `json:"language"`
	Fork          bool   `json:"is_fork"`
	LicenseSPDX   string `json:"license_spdx"`
	HasIssues     bool   `json:"has_issues"`
	HeadSHA       string `json:"head_sha"`

	License         *githubapi.RemoteFile `json:"license"`
	ReadmeType      ReadmeType            `json:"readme_type"`
	HasInstallDocs  bool                  `json:"has_installation_docs"`
	HasArchivalDOI  bool                  `json:"has_archival_doi"`
	PackagingConfig *githubapi.RemoteFile `json:"packaging_config"`
	// ProjectName is extracted from pyproject.toml when that is the packaging
	// manifest found.
	ProjectName string `json:"project_name,omitempty"`

	IsFormatted  *bool            `json:"is_formatted"`
	LintFindings []LintFinding    `json:"lint_findings"`
	Packaging    *PackagingReport `json:"packaging"`
	RootScripts  []string         `json:"root_scripts"`

	CapturedAt time.Time `json:"captured_at"`
	Passes     bool      `json:"passes"`
}

// Identity returns the repository identity the record was captured for.
func (r *Results) Identity() githubapi.Identity {
	return githubapi.Identity{Owner: r.Owner, Name: r.Name}
}

// computePasses folds the required checks. Lint findings and the packaging
// score are informational and deliberately excluded.
func (r *Results) computePasses() bool {
	return r.License != nil &&
		r.ReadmeType != ReadmeAbsent &&
		r.HasIssues &&
		r.HasArchivalDOI &&
		r.PackagingConfig != nil &&
		r.HasInstallDocs &&
		r.IsFormatted != nil && *r.IsFormatted
}
