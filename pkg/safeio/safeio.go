// Package safeio contains path-contained file helpers used when reading from
// materialized repository checkouts, whose contents are untrusted.
package safeio

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// ErrOutsideBase indicates a path that resolves outside its base directory.
var ErrOutsideBase = errors.New("file path is outside base directory")

// ReadFileContained reads a file only if it is contained within baseDir.
// Repository checkouts can name files anything, so every read out of a
// materialized tree goes through this containment check.
func ReadFileContained(baseDir, filePath string) ([]byte, error) {
	baseAbs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, errors.New("failed to resolve base directory")
	}
	fileAbs, err := filepath.Abs(filePath)
	if err != nil {
		return nil, errors.New("failed to resolve file path")
	}

	rel, err := filepath.Rel(baseAbs, fileAbs)
	if err != nil {
		return nil, errors.New("failed to compute relative path")
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil, ErrOutsideBase
	}

	// #nosec G304 -- fileAbs has been verified to be contained within baseAbs
	return os.ReadFile(fileAbs)
}

// ReadFirst returns the name and contents of the first of the candidate
// filenames that exists under baseDir. Candidates are tried in order; a
// missing candidate is skipped, not an error. Returns ok=false when none of
// the candidates exist.
func ReadFirst(baseDir string, candidates ...string) (name string, data []byte, ok bool) {
	for _, c := range candidates {
		b, err := ReadFileContained(baseDir, filepath.Join(baseDir, c))
		if err != nil {
			continue
		}
		return c, b, true
	}
	return "", nil, false
}
