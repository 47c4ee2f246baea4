package review

import (
	"io/fs"
	"os"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// scriptPatterns are the locations where loose analysis scripts typically
// accumulate before a project grows a proper src/ layout.
var scriptPatterns = []string{
	"*.py",
	"scripts/*.py",
	"notebooks/*.py",
}

// RootScripts returns the repository-relative paths of loose scripts at the
// top of the tree, sorted. setup.py is packaging machinery, not a script,
// and is excluded. The result is non-nil so a clean tree serializes as [].
func RootScripts(dir string) []string {
	fsys := os.DirFS(dir)
	seen := map[string]struct{}{}
	for _, pattern := range scriptPatterns {
		matches, err := doublestar.Glob(fsys, pattern)
		if err != nil {
			continue
		}
		for _, m := range matches {
			if m == "setup.py" {
				continue
			}
			if info, err := fs.Stat(fsys, m); err != nil || info.IsDir() {
				continue
			}
			seen[m] = struct{}{}
		}
	}
	scripts := make([]string, 0, len(seen))
	for m := range seen {
		scripts = append(scripts, m)
	}
	sort.Strings(scripts)
	return scripts
}
