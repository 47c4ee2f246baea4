package review

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fulmenhq/repocheck/internal/githubapi"
	"github.com/fulmenhq/repocheck/internal/materialize"
	"github.com/fulmenhq/repocheck/internal/metacache"
	"github.com/fulmenhq/repocheck/pkg/logger"
	"github.com/fulmenhq/repocheck/pkg/safeio"
)

// Engine wires the metadata cache, the raw-content fetcher, and the
// materializer into the check registry. One engine serves any number of
// concurrent reviews.
type Engine struct {
	api  *githubapi.Client
	meta *metacache.Cache
	mat  *materialize.Materializer

	clock func() time.Time
}

// Options adjusts a single review.
type Options struct {
	// Branch overrides the default branch for fetches and checkout.
	Branch string
	// Fresh discards any cached checkout before materializing.
	Fresh bool
}

// NewEngine assembles a review engine.
func NewEngine(api *githubapi.Client, meta *metacache.Cache, mat *materialize.Materializer) *Engine {
	return &Engine{api: api, meta: meta, mat: mat, clock: time.Now}
}

// Review runs the full check registry against one repository and aggregates
// the outcomes. Remote checks run concurrently with materialization;
// directory checks follow once the checkout exists. Failures of individual
// checks degrade that check's field, never the whole review.
func (e *Engine) Review(ctx context.Context, id githubapi.Identity, opts Options) (*Results, error) {
	res := &Results{
		Owner:        id.Owner,
		Name:         id.Name,
		ReadmeType:   ReadmeAbsent,
		LintFindings: []LintFinding{},
	}

	meta, err := e.meta.Get(ctx, id)
	if err != nil {
		logger.Warn("metadata unavailable; proceeding with degraded record",
			logger.String("repo", id.String()), logger.Err(err))
		meta = &githubapi.Metadata{DefaultBranch: "main", LicenseSPDX: "Unknown"}
	}
	res.DefaultBranch = meta.DefaultBranch
	res.Language = meta.Language
	res.Fork = meta.Fork
	res.LicenseSPDX = meta.LicenseSPDX
	res.HasIssues = meta.HasIssues
	res.HeadSHA = meta.HeadSHA

	branch := opts.Branch
	if branch == "" {
		branch = meta.DefaultBranch
	}
	if branch == "" {
		branch = "main"
	}

	var (
		dir   string
		dirOK bool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		res.License = e.api.FetchFile(gctx, id, branch, licenseCandidates...)
		return nil
	})
	g.Go(func() error {
		readme := e.api.FetchFile(gctx, id, branch, readmeCandidates...)
		if readme == nil {
			return nil
		}
		res.ReadmeType = DetectReadmeType(readme.Name)
		res.HasInstallDocs = HasInstallationDocs(res.ReadmeType, readme.Contents)
		res.HasArchivalDOI = HasArchivalDOI(res.ReadmeType, readme.Contents)
		return nil
	})
	g.Go(func() error {
		res.PackagingConfig = e.api.FetchFile(gctx, id, branch, packagingCandidates...)
		return nil
	})
	g.Go(func() error {
		dir, dirOK = e.mat.Materialize(gctx, id, branch, opts.Fresh)
		return nil
	})
	_ = g.Wait() // check goroutines degrade their own fields and never error

	if dirOK {
		e.fillFromCheckout(res, dir)
		formatted := checkFormatted(ctx, dir)
		res.IsFormatted = &formatted
		res.LintFindings = checkLint(ctx, dir)
		res.Packaging = checkPackagingScore(ctx, dir)
		res.RootScripts = RootScripts(dir)
		if res.HeadSHA == "" {
			res.HeadSHA = e.mat.HeadHash(dir)
		}
	} else {
		logger.Warn("repository not materialized; directory checks skipped",
			logger.String("repo", id.String()))
	}

	res.ProjectName = ProjectName(res.PackagingConfig)
	res.CapturedAt = e.clock().UTC()
	res.Passes = res.computePasses()

	logger.Info("review complete",
		logger.String("repo", id.String()),
		logger.Bool("passes", res.Passes))
	return res, nil
}

// fillFromCheckout backfills remote-file checks from the materialized
// checkout when the raw-content fetches came up empty. Reads are contained
// to the checkout directory.
func (e *Engine) fillFromCheckout(res *Results, dir string) {
	if res.License == nil {
		if name, data, ok := safeio.ReadFirst(dir, licenseCandidates...); ok {
			res.License = &githubapi.RemoteFile{Name: name, Contents: string(data)}
		}
	}
	if res.ReadmeType == ReadmeAbsent {
		if name, data, ok := safeio.ReadFirst(dir, readmeCandidates...); ok {
			res.ReadmeType = DetectReadmeType(name)
			res.HasInstallDocs = HasInstallationDocs(res.ReadmeType, string(data))
			res.HasArchivalDOI = HasArchivalDOI(res.ReadmeType, string(data))
		}
	}
	if res.PackagingConfig == nil {
		if name, data, ok := safeio.ReadFirst(dir, packagingCandidates...); ok {
			res.PackagingConfig = &githubapi.RemoteFile{Name: name, Contents: string(data)}
		}
	}
}
