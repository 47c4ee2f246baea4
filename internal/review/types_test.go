package review

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fulmenhq/repocheck/internal/githubapi"
)

// passingResults builds a record that satisfies every required check.
func passingResults() *Results {
	formatted := true
	return &Results{
		Owner:           "example",
		Name:            "project",
		DefaultBranch:   "main",
		Language:        "Python",
		LicenseSPDX:     "MIT",
		HasIssues:       true,
		HeadSHA:         "deadbeef",
		License:         &githubapi.RemoteFile{Name: "LICENSE", Contents: "MIT License"},
		ReadmeType:      ReadmeMarkdown,
		HasInstallDocs:  true,
		HasArchivalDOI:  true,
		PackagingConfig: &githubapi.RemoteFile{Name: "pyproject.toml", Contents: ""},
		IsFormatted:     &formatted,
		LintFindings:    []LintFinding{},
		Packaging:       &PackagingReport{Status: PackagingRanClean, Score: 10, Failures: []string{}},
		RootScripts:     []string{},
		CapturedAt:      time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestComputePassesAllChecksGreen(t *testing.T) {
	res := passingResults()
	assert.True(t, res.computePasses())
}

func TestComputePassesEachFailingCheck(t *testing.T) {
	unformatted := false
	tests := []struct {
		name   string
		mutate func(*Results)
	}{
		{"no license file", func(r *Results) { r.License = nil }},
		{"no readme", func(r *Results) { r.ReadmeType = ReadmeAbsent }},
		{"issues disabled", func(r *Results) { r.HasIssues = false }},
		{"no archival doi", func(r *Results) { r.HasArchivalDOI = false }},
		{"no packaging config", func(r *Results) { r.PackagingConfig = nil }},
		{"no installation docs", func(r *Results) { r.HasInstallDocs = false }},
		{"unformatted", func(r *Results) { r.IsFormatted = &unformatted }},
		{"formatter never ran", func(r *Results) { r.IsFormatted = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := passingResults()
			tt.mutate(res)
			assert.False(t, res.computePasses())
		})
	}
}

func TestComputePassesIgnoresInformationalChecks(t *testing.T) {
	res := passingResults()
	res.LintFindings = []LintFinding{{File: "a.py", Code: "E501", Line: 1, Column: 80, Message: "line too long"}}
	res.Packaging = &PackagingReport{Status: PackagingRanWithFindings, Score: 3, Failures: []string{"missing keywords"}}
	res.RootScripts = []string{"analysis.py"}
	assert.True(t, res.computePasses())
}

func TestResultsJSONRoundTrip(t *testing.T) {
	res := passingResults()
	res.Passes = res.computePasses()
	res.ProjectName = "project"
	res.LintFindings = []LintFinding{{File: "a.py", Code: "F401", Line: 3, Column: 1, Message: "unused import"}}

	data, err := json.Marshal(res)
	require.NoError(t, err)

	var back Results
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, *res, back)
}

func TestResultsNullableFieldsSerializeAsNull(t *testing.T) {
	res := &Results{
		Owner:        "example",
		Name:         "project",
		ReadmeType:   ReadmeAbsent,
		LintFindings: []LintFinding{},
	}
	data, err := json.Marshal(res)
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))

	for _, field := range []string{"license", "packaging_config", "is_formatted", "packaging", "root_scripts"} {
		assert.Equal(t, "null", string(raw[field]), "field %s", field)
	}
	assert.Equal(t, "[]", string(raw["lint_findings"]))
	assert.NotContains(t, raw, "project_name")
}

func TestResultsIdentity(t *testing.T) {
	res := passingResults()
	assert.Equal(t, githubapi.Identity{Owner: "example", Name: "project"}, res.Identity())
}
