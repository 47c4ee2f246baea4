package cmd

import (
	"fmt"

	"github.com/fulmenhq/repocheck/internal/githubapi"
	"github.com/fulmenhq/repocheck/internal/materialize"
	"github.com/fulmenhq/repocheck/internal/metacache"
	"github.com/fulmenhq/repocheck/internal/review"
	"github.com/fulmenhq/repocheck/pkg/config"
)

// buildEngine assembles the review engine from resolved configuration: the
// authenticated API client, the two-level metadata cache, and the checkout
// materializer, all rooted under the repocheck home.
func buildEngine() (*review.Engine, error) {
	if err := review.VerifyTools(); err != nil {
		return nil, fmt.Errorf("%w: %s", errToolsMissing, err)
	}

	settings, err := config.Load()
	if err != nil {
		return nil, err
	}
	token, err := settings.Token()
	if err != nil {
		return nil, err
	}
	client, err := githubapi.NewClient(token, githubapi.WithRateLimit(settings.RateLimit))
	if err != nil {
		return nil, err
	}

	metaDir, err := config.MetadataCacheDir()
	if err != nil {
		return nil, err
	}
	reposDir, err := config.ReposDir()
	if err != nil {
		return nil, err
	}

	meta := metacache.New(metaDir, client.GetMetadata)
	mat := materialize.New(reposDir)
	return review.NewEngine(client, meta, mat), nil
}
