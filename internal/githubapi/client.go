// Package githubapi wraps the GitHub REST API behind a rate-limited client
// and a raw-content file fetcher, the only two remote surfaces the review
// engine touches.
package githubapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fulmenhq/repocheck/pkg/logger"
	"github.com/google/go-github/v60/github"
	"golang.org/x/time/rate"
)

// DefaultRateLimit is the authenticated GitHub API budget per hour.
const DefaultRateLimit = 5000

// rawTimeout bounds each raw-content fetch attempt. These are small text
// files; anything slower is treated the same as absent.
const rawTimeout = time.Second

// Metadata is the subset of repository metadata the checks consume.
// Immutable once fetched.
type Metadata struct {
	DefaultBranch string `json:"default_branch"`
	Language      string `json:"language"`
	Fork          bool   `json:"fork"`
	// LicenseSPDX is the SPDX identifier reported by the host, with
	// NOASSERTION and missing values normalized to "Unknown".
	LicenseSPDX string `json:"license_spdx"`
	HasIssues   bool   `json:"has_issues"`
	HeadSHA     string `json:"head_sha"`
}

// RemoteFile is a filename plus its raw contents fetched from the host.
type RemoteFile struct {
	Name     string `json:"name"`
	Contents string `json:"contents"`
}

// Client issues authenticated, rate-limited calls to the GitHub API.
type Client struct {
	gh      *github.Client
	raw     *http.Client
	rawBase string
	limiter *rate.Limiter
}

// Option configures the client.
type Option func(*Client)

// WithBaseURL points the API client at a custom base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.gh.BaseURL, _ = c.gh.BaseURL.Parse(url + "/")
	}
}

// WithRawBaseURL points raw-content fetches at a custom base URL (for testing).
func WithRawBaseURL(url string) Option {
	return func(c *Client) {
		c.rawBase = strings.TrimRight(url, "/")
	}
}

// WithRateLimit overrides the per-hour call budget. Non-positive values keep
// the default.
func WithRateLimit(perHour int) Option {
	return func(c *Client) {
		if perHour <= 0 {
			return
		}
		c.limiter = rate.NewLimiter(rate.Every(time.Hour/time.Duration(perHour)), perHour/100+1)
	}
}

// NewClient creates an authenticated client. An empty token is a fatal
// configuration error; the client never falls back to anonymous requests.
func NewClient(token string, opts ...Option) (*Client, error) {
	if token == "" {
		return nil, errors.New("githubapi: a GitHub token is required; set GITHUB_TOKEN or add it to the repocheck config")
	}

	httpClient := &http.Client{
		Transport: &tokenTransport{token: token},
	}

	c := &Client{
		gh:      github.NewClient(httpClient),
		raw:     &http.Client{Timeout: rawTimeout},
		rawBase: "https://raw.githubusercontent.com",
		limiter: rate.NewLimiter(rate.Every(time.Hour/DefaultRateLimit), 50),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// tokenTransport adds the authorization header to requests.
type tokenTransport struct {
	token string
}

func (t *tokenTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("Authorization", "Bearer "+t.token)
	return http.DefaultTransport.RoundTrip(req)
}

// GetMetadata fetches repository metadata. Over-budget calls block until the
// limiter frees a slot. Remote failures are returned unchanged; retry policy
// belongs to the caller.
func (c *Client) GetMetadata(ctx context.Context, id Identity) (*Metadata, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	repo, _, err := c.gh.Repositories.Get(ctx, id.Owner, id.Name)
	if err != nil {
		return nil, fmt.Errorf("fetching repository %s: %w", id, err)
	}

	meta := &Metadata{
		DefaultBranch: repo.GetDefaultBranch(),
		Language:      repo.GetLanguage(),
		Fork:          repo.GetFork(),
		LicenseSPDX:   normalizeSPDX(repo.GetLicense().GetSPDXID()),
		HasIssues:     repo.GetHasIssues(),
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	sha, _, err := c.gh.Repositories.GetCommitSHA1(ctx, id.Owner, id.Name, meta.DefaultBranch, "")
	if err != nil {
		// HEAD resolution is best-effort; an empty branch (new repo) has no SHA.
		logger.Debug("could not resolve HEAD", logger.String("repo", id.String()), logger.Err(err))
	} else {
		meta.HeadSHA = sha
	}

	return meta, nil
}

// normalizeSPDX maps the host's "no assertion" marker and missing values to
// the single Unknown sentinel the checks expect.
func normalizeSPDX(spdx string) string {
	if spdx == "" || spdx == "NOASSERTION" {
		return "Unknown"
	}
	return spdx
}

// FetchFile fetches the first of the candidate filenames that resolves on the
// raw-content endpoint for the given branch. Each attempt carries a short
// timeout; a timeout or non-200 status means "file absent", never an error.
// Returns nil when no candidate resolves.
func (c *Client) FetchFile(ctx context.Context, id Identity, branch string, candidates ...string) *RemoteFile {
	for _, name := range candidates {
		url := fmt.Sprintf("%s/%s/%s/%s/%s", c.rawBase, id.Owner, id.Name, branch, name)
		contents, ok := c.fetchRaw(ctx, url)
		if ok {
			return &RemoteFile{Name: name, Contents: contents}
		}
	}
	return nil
}

func (c *Client) fetchRaw(ctx context.Context, url string) (string, bool) {
	rctx, cancel := context.WithTimeout(ctx, rawTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(rctx, http.MethodGet, url, nil)
	if err != nil {
		return "", false
	}
	resp, err := c.raw.Do(req)
	if err != nil {
		logger.Debug("raw fetch failed", logger.String("url", url), logger.Err(err))
		return "", false
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", false
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", false
	}
	return string(body), true
}
