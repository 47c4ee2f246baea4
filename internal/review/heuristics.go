package review

import (
	"strings"

	"github.com/fulmenhq/repocheck/pkg/logger"
)

// Candidate filename priority orders for the remote-file fallback path.
var (
	readmeCandidates    = []string{"README.md", "README.rst", "README.txt"}
	licenseCandidates   = []string{"LICENSE", "LICENSE.md", "LICENSE.rst"}
	packagingCandidates = []string{"setup.cfg", "setup.py", "pyproject.toml"}
)

// archivalBadgePrefixes are the fixed URL prefixes recognized as archival
// DOI badges.
var archivalBadgePrefixes = []string{
	"https://zenodo.org/badge/",
	"https://zenodo.org/doi/",
}

// DetectReadmeType maps a README filename to its type. Only the three
// canonical names are ever matched; anything else is absent.
func DetectReadmeType(name string) ReadmeType {
	switch name {
	case "README.md":
		return ReadmeMarkdown
	case "README.rst":
		return ReadmeRst
	case "README.txt":
		return ReadmeTxt
	default:
		return ReadmeAbsent
	}
}

// HasInstallationDocs reports whether a README documents installation: some
// line is a heading and mentions "installation", case-insensitively. This is
// a text heuristic, not document parsing, and is only defined for markdown;
// rst and txt READMEs conservatively report false.
func HasInstallationDocs(typ ReadmeType, contents string) bool {
	if typ != ReadmeMarkdown {
		if typ == ReadmeRst || typ == ReadmeTxt {
			logger.Debug("installation-docs heuristic only understands markdown; assuming absent",
				logger.String("readme_type", string(typ)))
		}
		return false
	}
	for _, line := range strings.Split(contents, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") && strings.Contains(strings.ToLower(trimmed), "installation") {
			return true
		}
	}
	return false
}

// HasArchivalDOI reports whether a markdown README carries one of the fixed
// archival badge URL prefixes. Like the installation heuristic, rst and txt
// READMEs report false regardless of content.
func HasArchivalDOI(typ ReadmeType, contents string) bool {
	if typ != ReadmeMarkdown {
		return false
	}
	for _, prefix := range archivalBadgePrefixes {
		if strings.Contains(contents, prefix) {
			return true
		}
	}
	return false
}
