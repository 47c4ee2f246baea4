// Package materialize produces minimal local checkouts of remote
// repositories: shallow, blob-filtered, and sparse-limited to the text files
// the checks actually read. At most one checkout exists per repository
// identity, shared by every check in a review.
package materialize

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fulmenhq/repocheck/internal/githubapi"
	"github.com/fulmenhq/repocheck/pkg/logger"
	git "github.com/go-git/go-git/v5"
)

// textExtensions is the allow-list of file extensions admitted into a sparse
// checkout: documentation, code, and config. Binary and data files never
// reach disk.
var textExtensions = []string{
	".md", ".rst", ".txt", ".py", ".cfg", ".toml", ".ini", ".yml", ".yaml", ".json",
}

// exactFiles are admitted by exact name regardless of extension rules.
var exactFiles = []string{"README.txt", "requirements.txt"}

// Materializer owns the checkout directory tree. Materializations of the
// same identity are mutually exclusive; concurrent reviews of one repository
// coalesce onto a single clone.
type Materializer struct {
	root     string
	cloneURL func(githubapi.Identity) string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// Option configures the materializer.
type Option func(*Materializer)

// WithCloneURL overrides how identities map to clone URLs (for testing
// against local fixture repositories).
func WithCloneURL(fn func(githubapi.Identity) string) Option {
	return func(m *Materializer) {
		m.cloneURL = fn
	}
}

// New creates a materializer rooted at dir.
func New(root string, opts ...Option) *Materializer {
	m := &Materializer{
		root: root,
		cloneURL: func(id githubapi.Identity) string {
			return fmt.Sprintf("https://github.com/%s/%s", id.Owner, id.Name)
		},
		locks: make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Path returns the checkout directory for an identity.
func (m *Materializer) Path(id githubapi.Identity) string {
	return filepath.Join(m.root, id.Owner, id.Name)
}

// Materialize produces a local partial checkout of one branch. A cached
// non-empty checkout is reused as-is unless fresh is set, in which case it is
// deleted and recreated. Any git failure is recoverable: ok=false means the
// repository could not be materialized and directory-based checks must report
// "not runnable", not crash.
func (m *Materializer) Materialize(ctx context.Context, id githubapi.Identity, branch string, fresh bool) (string, bool) {
	lock := m.identityLock(id)
	lock.Lock()
	defer lock.Unlock()

	dir := m.Path(id)

	if fresh {
		if err := os.RemoveAll(dir); err != nil {
			logger.Warn("could not remove cached checkout", logger.String("repo", id.String()), logger.Err(err))
			return "", false
		}
	} else if hasFiles(dir) {
		// Reuse without any freshness check; deleting the directory is the
		// only way to refresh.
		return dir, true
	} else {
		// An empty directory is a previously failed materialization.
		_ = os.RemoveAll(dir)
	}

	if err := os.MkdirAll(filepath.Dir(dir), 0o750); err != nil {
		logger.Warn("could not create checkout parent", logger.Err(err))
		return "", false
	}

	steps := [][]string{
		{"clone", "--depth", "1", "--filter=blob:none", "--no-checkout", m.cloneURL(id), dir},
	}
	if err := runGit(ctx, "", steps[0]...); err != nil {
		logger.Debug("clone failed", logger.String("repo", id.String()), logger.Err(err))
		_ = os.RemoveAll(dir)
		return "", false
	}

	if err := os.WriteFile(filepath.Join(dir, ".git", "info", "sparse-checkout"),
		[]byte(SparseSpec()), 0o644); err != nil {
		logger.Debug("could not write sparse-checkout spec", logger.Err(err))
		_ = os.RemoveAll(dir)
		return "", false
	}

	for _, args := range [][]string{
		{"sparse-checkout", "init", "--no-cone"},
		{"checkout", branch},
	} {
		if err := runGit(ctx, dir, args...); err != nil {
			logger.Debug("materialization step failed",
				logger.String("repo", id.String()),
				logger.String("step", strings.Join(args, " ")),
				logger.Err(err))
			_ = os.RemoveAll(dir)
			return "", false
		}
	}

	return dir, true
}

// SparseSpec renders the non-cone sparse-checkout pattern list: the exact
// filenames plus each allowed extension at the root and one level down.
func SparseSpec() string {
	var b strings.Builder
	for _, name := range exactFiles {
		fmt.Fprintf(&b, "/%s\n", name)
	}
	for _, ext := range textExtensions {
		fmt.Fprintf(&b, "/*%s\n", ext)
		fmt.Fprintf(&b, "/*/*%s\n", ext)
	}
	return b.String()
}

// HeadHash resolves the commit the checkout sits on, empty when it cannot be
// determined.
func (m *Materializer) HeadHash(dir string) string {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return ""
	}
	head, err := repo.Head()
	if err != nil {
		return ""
	}
	return head.Hash().String()
}

func (m *Materializer) identityLock(id githubapi.Identity) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := id.String()
	if _, ok := m.locks[key]; !ok {
		m.locks[key] = &sync.Mutex{}
	}
	return m.locks[key]
}

// hasFiles reports whether dir exists and contains anything besides .git.
func hasFiles(dir string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	for _, e := range entries {
		if e.Name() != ".git" {
			return true
		}
	}
	return false
}

func runGit(ctx context.Context, dir string, args ...string) error {
	cmd := exec.CommandContext(ctx, "git", args...) // #nosec G204
	if dir != "" {
		cmd.Dir = dir
	}
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("git %s: %w: %s", args[0], err, strings.TrimSpace(string(out)))
	}
	return nil
}
