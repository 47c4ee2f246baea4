package review

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFixture(t *testing.T, dir, rel string) {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte("print('hi')\n"), 0o644))
}

func TestRootScripts(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "analysis.py")
	writeFixture(t, dir, "setup.py")
	writeFixture(t, dir, "scripts/fetch_data.py")
	writeFixture(t, dir, "notebooks/figure1.py")
	writeFixture(t, dir, "src/pkg/module.py")
	writeFixture(t, dir, "README.md")

	got := RootScripts(dir)
	assert.Equal(t, []string{
		"analysis.py",
		"notebooks/figure1.py",
		"scripts/fetch_data.py",
	}, got)
}

func TestRootScriptsCleanTree(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "setup.py")
	writeFixture(t, dir, "src/pkg/module.py")

	got := RootScripts(dir)
	require.NotNil(t, got)
	assert.Empty(t, got)
}

func TestRootScriptsMissingDir(t *testing.T) {
	got := RootScripts(filepath.Join(t.TempDir(), "nope"))
	require.NotNil(t, got)
	assert.Empty(t, got)
}
