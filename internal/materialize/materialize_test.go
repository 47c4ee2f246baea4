package materialize

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fulmenhq/repocheck/internal/githubapi"
)

var testID = githubapi.Identity{Owner: "octo", Name: "demo"}

func TestSparseSpec(t *testing.T) {
	spec := SparseSpec()

	for _, want := range []string{
		"/README.txt\n",
		"/requirements.txt\n",
		"/*.md\n",
		"/*/*.md\n",
		"/*.py\n",
		"/*/*.py\n",
		"/*.toml\n",
	} {
		if !strings.Contains(spec, want) {
			t.Errorf("sparse spec missing %q:\n%s", want, spec)
		}
	}
	if strings.Contains(spec, ".png") || strings.Contains(spec, ".zip") {
		t.Error("sparse spec admits binary extensions")
	}
}

func TestMaterializeReusesCachedCheckout(t *testing.T) {
	m := New(t.TempDir())
	dir := m.Path(testID)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte("# hi"), 0o644); err != nil {
		t.Fatal(err)
	}

	// Cached and non-empty: returned unchanged, no git invocation needed.
	got, ok := m.Materialize(context.Background(), testID, "main", false)
	if !ok {
		t.Fatal("expected cached checkout to be reused")
	}
	if got != dir {
		t.Errorf("path = %q, want %q", got, dir)
	}
}

func TestMaterializeEmptyDirNotTreatedAsCached(t *testing.T) {
	m := New(t.TempDir(), WithCloneURL(func(githubapi.Identity) string {
		return "/nonexistent/upstream"
	}))
	if err := os.MkdirAll(m.Path(testID), 0o750); err != nil {
		t.Fatal(err)
	}

	// Empty cache dir means a prior failure; the clone is retried and, with a
	// bogus upstream, fails recoverably.
	_, ok := m.Materialize(context.Background(), testID, "main", false)
	if ok {
		t.Fatal("expected materialization of bogus upstream to fail")
	}
	if _, err := os.Stat(m.Path(testID)); !os.IsNotExist(err) {
		t.Error("failed materialization should not leave a directory behind")
	}
}

func TestMaterializeNonexistentRepoReturnsNotOK(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
	m := New(t.TempDir(), WithCloneURL(func(githubapi.Identity) string {
		return filepath.Join(t.TempDir(), "no-such-repo")
	}))

	dir, ok := m.Materialize(context.Background(), testID, "main", false)
	if ok {
		t.Fatalf("expected failure, got dir %q", dir)
	}
}

func TestMaterializeFreshDeletesCache(t *testing.T) {
	m := New(t.TempDir(), WithCloneURL(func(githubapi.Identity) string {
		return "/nonexistent/upstream"
	}))
	dir := m.Path(testID)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "stale.py"), []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, ok := m.Materialize(context.Background(), testID, "main", true)
	if ok {
		t.Fatal("expected fresh materialization of bogus upstream to fail")
	}
	if _, err := os.Stat(filepath.Join(dir, "stale.py")); !os.IsNotExist(err) {
		t.Error("fresh materialization should have deleted the stale checkout")
	}
}

func TestMaterializeEndToEnd(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}

	// Build a local upstream with a mix of text, binary, and nested files.
	upstream := t.TempDir()
	mustGit(t, upstream, "init", "-b", "main")
	mustGit(t, upstream, "config", "user.email", "test@example.com")
	mustGit(t, upstream, "config", "user.name", "test")
	writeFile(t, upstream, "README.md", "# demo")
	writeFile(t, upstream, "setup.py", "from setuptools import setup")
	writeFile(t, upstream, "data.bin", "\x00\x01")
	writeFile(t, upstream, filepath.Join("src", "demo.py"), "print('hi')")
	mustGit(t, upstream, "add", ".")
	mustGit(t, upstream, "commit", "-m", "initial")

	m := New(t.TempDir(), WithCloneURL(func(githubapi.Identity) string {
		return upstream
	}))

	dir, ok := m.Materialize(context.Background(), testID, "main", false)
	if !ok {
		t.Fatal("materialization failed")
	}

	for _, want := range []string{"README.md", "setup.py", filepath.Join("src", "demo.py")} {
		if _, err := os.Stat(filepath.Join(dir, want)); err != nil {
			t.Errorf("expected %s in checkout: %v", want, err)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "data.bin")); !os.IsNotExist(err) {
		t.Error("binary file leaked past the sparse allow-list")
	}
	if m.HeadHash(dir) == "" {
		t.Error("expected resolvable HEAD hash for materialized checkout")
	}

	// Second call reuses the checkout as-is.
	again, ok := m.Materialize(context.Background(), testID, "main", false)
	if !ok || again != dir {
		t.Errorf("expected cached reuse, got %q ok=%v", again, ok)
	}
}

func mustGit(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git %v: %v: %s", args, err, out)
	}
}

func writeFile(t *testing.T, dir, name, contents string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
}
