// Package batch drives reviews over a corpus of repositories: a YAML file of
// journal-keyed `owner/name` lists fanned out over a bounded worker pool,
// with per-repository results cached on disk and the run aggregated into a
// JSONL archive of journal-tagged rows.
package batch

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/fulmenhq/repocheck/internal/githubapi"
	"github.com/fulmenhq/repocheck/internal/review"
	"github.com/fulmenhq/repocheck/pkg/logger"
)

// DefaultWorkers bounds concurrent reviews when the caller does not choose.
const DefaultWorkers = 4

// Corpus is the YAML input file: repository references grouped by the
// journal they were published in, plus an optional blocklist of references
// to skip.
type Corpus struct {
	Journals  map[string][]string `yaml:"journals"`
	Blocklist []string            `yaml:"blocklist"`
}

// LoadCorpus reads and parses a corpus file.
func LoadCorpus(path string) (*Corpus, error) {
	data, err := os.ReadFile(path) // #nosec G304
	if err != nil {
		return nil, fmt.Errorf("reading corpus: %w", err)
	}
	var c Corpus
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parsing corpus: %w", err)
	}
	if c.Size() == 0 {
		return nil, errors.New("corpus lists no repositories")
	}
	return &c, nil
}

// Size is the total number of corpus entries across all journals.
func (c *Corpus) Size() int {
	n := 0
	for _, refs := range c.Journals {
		n += len(refs)
	}
	return n
}

// journalKeys returns the journals in deterministic order.
func (c *Corpus) journalKeys() []string {
	keys := make([]string, 0, len(c.Journals))
	for key := range c.Journals {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// ReviewFunc produces a results record for one repository.
type ReviewFunc func(ctx context.Context, id githubapi.Identity, opts review.Options) (*review.Results, error)

// Runner executes a corpus run. Construct one per run.
type Runner struct {
	review     ReviewFunc
	reviewsDir string
	workers    int
	fresh      bool
}

// Option configures a runner.
type Option func(*Runner)

// WithWorkers bounds the review worker pool.
func WithWorkers(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.workers = n
		}
	}
}

// WithFresh forces every repository to be re-reviewed, ignoring cached
// results records and cached checkouts.
func WithFresh(fresh bool) Option {
	return func(r *Runner) {
		r.fresh = fresh
	}
}

// NewRunner creates a runner that caches per-repository results under
// reviewsDir.
func NewRunner(fn ReviewFunc, reviewsDir string, opts ...Option) *Runner {
	r := &Runner{review: fn, reviewsDir: reviewsDir, workers: DefaultWorkers}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Row is one archived record: the journal the repository was found through,
// the repository identity, and its review.
type Row struct {
	Journal string          `json:"journal"`
	Owner   string          `json:"owner"`
	Name    string          `json:"name"`
	Results *review.Results `json:"results"`
}

// Summary aggregates one corpus run.
type Summary struct {
	RunID    string
	Total    int
	Reviewed int
	Cached   int
	Skipped  int
	Passed   int
	Rows     []Row
}

// Run reviews every corpus entry. Malformed and blocklisted references are
// logged and skipped; a review failure skips that repository without
// stopping the run. A repository listed under several journals is reviewed
// once and yields one row per journal. Rows come back sorted by journal,
// then identity.
func (r *Runner) Run(ctx context.Context, corpus *Corpus) (*Summary, error) {
	summary := &Summary{
		RunID: ulid.Make().String(),
		Total: corpus.Size(),
	}
	logger.Info("starting corpus run",
		logger.String("run_id", summary.RunID),
		logger.Int("journals", len(corpus.Journals)),
		logger.Int("repositories", summary.Total),
		logger.Int("workers", r.workers))

	blocked := make(map[githubapi.Identity]bool, len(corpus.Blocklist))
	for _, ref := range corpus.Blocklist {
		id, err := githubapi.ParseIdentity(ref)
		if err != nil {
			logger.Warn("ignoring malformed blocklist entry", logger.String("ref", ref), logger.Err(err))
			continue
		}
		blocked[id] = true
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)

	for _, journal := range corpus.journalKeys() {
		for _, ref := range corpus.Journals[journal] {
			id, err := githubapi.ParseIdentity(ref)
			if err != nil {
				logger.Warn("skipping malformed repository reference",
					logger.String("journal", journal),
					logger.String("ref", ref), logger.Err(err))
				summary.Skipped++
				continue
			}
			if blocked[id] {
				logger.Info("skipping blocklisted repository",
					logger.String("journal", journal),
					logger.String("repo", id.String()))
				summary.Skipped++
				continue
			}

			g.Go(func() error {
				res, cached, err := r.reviewOne(gctx, id)
				if err != nil {
					logger.Warn("review failed; skipping repository",
						logger.String("journal", journal),
						logger.String("repo", id.String()), logger.Err(err))
					mu.Lock()
					summary.Skipped++
					mu.Unlock()
					return nil
				}
				mu.Lock()
				if cached {
					summary.Cached++
				} else {
					summary.Reviewed++
				}
				if res.Passes {
					summary.Passed++
				}
				summary.Rows = append(summary.Rows, Row{
					Journal: journal,
					Owner:   id.Owner,
					Name:    id.Name,
					Results: res,
				})
				mu.Unlock()
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(summary.Rows, func(i, j int) bool {
		a, b := summary.Rows[i], summary.Rows[j]
		if a.Journal != b.Journal {
			return a.Journal < b.Journal
		}
		if a.Owner != b.Owner {
			return a.Owner < b.Owner
		}
		return a.Name < b.Name
	})
	logger.Info("corpus run complete",
		logger.String("run_id", summary.RunID),
		logger.Int("reviewed", summary.Reviewed),
		logger.Int("cached", summary.Cached),
		logger.Int("skipped", summary.Skipped),
		logger.Int("passed", summary.Passed))
	return summary, nil
}

// reviewOne returns a cached record when one validates, otherwise runs a
// fresh review and writes it through. A corrupt cached record is logged and
// replaced, never fatal. Duplicate identities across journals are safe: the
// engine coalesces concurrent reviews of one identity, and later lookups hit
// the results cache.
func (r *Runner) reviewOne(ctx context.Context, id githubapi.Identity) (*review.Results, bool, error) {
	path := r.ResultPath(id)
	if !r.fresh {
		res, err := review.LoadFile(path)
		switch {
		case err == nil:
			return res, true, nil
		case isRecordError(err):
			logger.Warn("discarding corrupt cached review", logger.String("path", path), logger.Err(err))
		case !os.IsNotExist(err):
			logger.Warn("could not read cached review", logger.String("path", path), logger.Err(err))
		}
	}

	res, err := r.review(ctx, id, review.Options{Fresh: r.fresh})
	if err != nil {
		return nil, false, err
	}
	if err := review.WriteFile(path, res); err != nil {
		logger.Warn("could not cache review", logger.String("path", path), logger.Err(err))
	}
	return res, false, nil
}

// ResultPath returns the cached results file for an identity.
func (r *Runner) ResultPath(id githubapi.Identity) string {
	return filepath.Join(r.reviewsDir, id.Owner, id.Name+".json")
}

func isRecordError(err error) bool {
	var recErr *review.RecordError
	return errors.As(err, &recErr)
}

// WriteArchive writes the run's rows as gzip-compressed JSONL, one
// journal-tagged record per line.
func (s *Summary) WriteArchive(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("creating archive directory: %w", err)
	}
	f, err := os.Create(path) // #nosec G304
	if err != nil {
		return fmt.Errorf("creating archive: %w", err)
	}
	defer func() { _ = f.Close() }()

	zw := gzip.NewWriter(f)
	enc := json.NewEncoder(zw)
	for _, row := range s.Rows {
		if err := enc.Encode(row); err != nil {
			_ = zw.Close()
			return fmt.Errorf("encoding archive record: %w", err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("flushing archive: %w", err)
	}
	return f.Close()
}
