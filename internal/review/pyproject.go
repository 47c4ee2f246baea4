package review

import (
	"strings"

	"github.com/fulmenhq/repocheck/internal/githubapi"
	"github.com/fulmenhq/repocheck/pkg/logger"
	toml "github.com/pelletier/go-toml/v2"
)

type pyprojectManifest struct {
	Project struct {
		Name string `toml:"name"`
	} `toml:"project"`
	Tool struct {
		Poetry struct {
			Name string `toml:"name"`
		} `toml:"poetry"`
	} `toml:"tool"`
}

// ProjectName extracts the declared distribution name from a packaging
// manifest. pyproject.toml is parsed properly (both PEP 621 and poetry
// layouts); setup.cfg falls back to a line scan of its metadata section.
// Empty means no name could be extracted, which is not an error.
func ProjectName(manifest *githubapi.RemoteFile) string {
	if manifest == nil {
		return ""
	}
	switch manifest.Name {
	case "pyproject.toml":
		var m pyprojectManifest
		if err := toml.Unmarshal([]byte(manifest.Contents), &m); err != nil {
			logger.Debug("unparseable pyproject.toml", logger.Err(err))
			return ""
		}
		if m.Project.Name != "" {
			return m.Project.Name
		}
		return m.Tool.Poetry.Name
	case "setup.cfg":
		return setupCfgName(manifest.Contents)
	default:
		return ""
	}
}

func setupCfgName(contents string) string {
	inMetadata := false
	for _, line := range strings.Split(contents, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "[") {
			inMetadata = trimmed == "[metadata]"
			continue
		}
		if !inMetadata {
			continue
		}
		if key, value, ok := strings.Cut(trimmed, "="); ok && strings.TrimSpace(key) == "name" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}
