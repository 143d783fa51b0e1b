package gateways

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/zapstore/releastr/internal/domain/entities"
	"github.com/zapstore/releastr/internal/domain/interfaces"
)

const (
	// Max retries for transient errors
	maxRetries = 3
	// Initial backoff duration
	initialBackoff = 1 * time.Second
	// Max backoff duration
	maxBackoff = 32 * time.Second

	defaultGitHubAPI = "https://api.github.com"
)

// ErrReleaseNotFound is returned when a repository has no releases at all
var ErrReleaseNotFound = errors.New("no releases found")

// HTTPGitHubGateway implements RepositoryGateway against the GitHub REST API
type HTTPGitHubGateway struct {
	client    *http.Client
	baseURL   string
	token     string
	userAgent string
	logger    interfaces.Logger
	backoff   func(attempt int) time.Duration
}

// NewHTTPGitHubGateway creates a new GitHub gateway. An empty token makes unauthenticated requests.
func NewHTTPGitHubGateway(token string, logger interfaces.Logger) *HTTPGitHubGateway {
	return &HTTPGitHubGateway{
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL:   defaultGitHubAPI,
		token:     token,
		userAgent: "releastr/1.0",
		logger:    interfaces.OrNoOp(logger),
		backoff:   calculateBackoff,
	}
}

// WithBaseURL points the gateway at another API root (GitHub Enterprise, tests)
func (g *HTTPGitHubGateway) WithBaseURL(baseURL string) *HTTPGitHubGateway {
	g.baseURL = strings.TrimRight(baseURL, "/")
	return g
}

// checkRateLimit checks GitHub API rate limit headers and returns error if exhausted
func (g *HTTPGitHubGateway) checkRateLimit(resp *http.Response) error {
	remaining := resp.Header.Get("X-RateLimit-Remaining")
	if remaining == "" {
		return nil // No rate limit header, continue
	}

	remainingInt, err := strconv.Atoi(remaining)
	if err != nil {
		return nil // Invalid header, ignore
	}

	// Exhausted: fail now rather than wait for the reset
	if remainingInt == 0 {
		resetTime := resp.Header.Get("X-RateLimit-Reset")
		if resetTime != "" {
			if resetUnix, err := strconv.ParseInt(resetTime, 10, 64); err == nil {
				resetAt := time.Unix(resetUnix, 0)
				return fmt.Errorf("GitHub API rate limit exceeded (0 remaining), resets at %s", resetAt.Format(time.RFC3339))
			}
		}
		return fmt.Errorf("GitHub API rate limit exceeded (0 remaining)")
	}

	if remainingInt <= 10 {
		g.logger.Warn("GitHub API rate limit low", interfaces.F("remaining", remainingInt))
	}

	return nil
}

// isRetryableError checks if an HTTP status code is retryable
func isRetryableError(statusCode int) bool {
	switch statusCode {
	case http.StatusForbidden, // 403 - rate limit
		http.StatusTooManyRequests,     // 429
		http.StatusInternalServerError, // 500
		http.StatusBadGateway,          // 502
		http.StatusServiceUnavailable,  // 503
		http.StatusGatewayTimeout:      // 504
		return true
	default:
		return false
	}
}

// calculateBackoff returns the backoff duration for a retry attempt
func calculateBackoff(attempt int) time.Duration {
	backoff := float64(initialBackoff) * math.Pow(2, float64(attempt))
	if backoff > float64(maxBackoff) {
		backoff = float64(maxBackoff)
	}
	return time.Duration(backoff)
}

// doWithRetry executes an HTTP request with exponential backoff retry
func (g *HTTPGitHubGateway) doWithRetry(req *http.Request) (*http.Response, error) {
	var resp *http.Response
	var err error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-req.Context().Done():
				return nil, req.Context().Err()
			case <-time.After(g.backoff(attempt - 1)):
			}
		}

		resp, err = g.client.Do(req)
		if err != nil {
			// Network errors are retryable
			if attempt < maxRetries && req.Context().Err() == nil {
				continue
			}
			return nil, err
		}

		if rateLimitErr := g.checkRateLimit(resp); rateLimitErr != nil {
			//nolint:errcheck,gosec // G104: Best effort close on rate limit error
			resp.Body.Close()
			return nil, rateLimitErr
		}

		// Success or non-retryable error
		if !isRetryableError(resp.StatusCode) {
			return resp, nil
		}

		if attempt < maxRetries {
			//nolint:errcheck,gosec // G104: Best effort close before retry
			resp.Body.Close()
			g.logger.Debug("Retrying GitHub request",
				interfaces.F("url", req.URL.String()),
				interfaces.F("status", resp.StatusCode),
				interfaces.F("attempt", attempt+1),
			)
			continue
		}

		// Max retries reached, hand the last response to the caller
		return resp, nil
	}

	return resp, err
}

// get performs an authenticated GET and decodes a 200 response into out.
// It returns found=false on 404.
func (g *HTTPGitHubGateway) get(ctx context.Context, path string, out interface{}) (found bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+path, nil)
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}

	if g.token != "" {
		req.Header.Set("Authorization", "Bearer "+g.token)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", g.userAgent)

	resp, err := g.doWithRetry(req)
	if err != nil {
		return false, err
	}
	//nolint:errcheck // Defer close on HTTP response body
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}

	if resp.StatusCode != http.StatusOK {
		bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if err != nil {
			return false, fmt.Errorf("HTTP %d: failed to read error response", resp.StatusCode)
		}
		return false, fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(bodyBytes)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, fmt.Errorf("failed to decode response: %w", err)
	}
	return true, nil
}

// githubRepo represents the GitHub API repository format
type githubRepo struct {
	Name            string   `json:"name"`
	Description     string   `json:"description"`
	Homepage        string   `json:"homepage"`
	Topics          []string `json:"topics"`
	StargazersCount *int     `json:"stargazers_count"`
	WatchersCount   *int     `json:"watchers_count"`
	ForksCount      *int     `json:"forks_count"`
	License         *struct {
		SPDXID string `json:"spdx_id"`
	} `json:"license"`
}

// githubRelease represents the GitHub API release format
type githubRelease struct {
	TagName    string        `json:"tag_name"`
	Body       string        `json:"body"`
	Draft      bool          `json:"draft"`
	Prerelease bool          `json:"prerelease"`
	CreatedAt  string        `json:"created_at"`
	HTMLURL    string        `json:"html_url"`
	Assets     []githubAsset `json:"assets"`
}

// githubAsset represents a GitHub release asset
type githubAsset struct {
	Name               string `json:"name"`
	ContentType        string `json:"content_type"`
	Size               int64  `json:"size"`
	BrowserDownloadURL string `json:"browser_download_url"`
}

// FetchRepoFacts retrieves repository metadata
func (g *HTTPGitHubGateway) FetchRepoFacts(ctx context.Context, ref entities.RepoRef) (*entities.RepoFacts, error) {
	var repo githubRepo
	found, err := g.get(ctx, "/repos/"+ref.Slug(), &repo)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch repository %s: %w", ref.Slug(), err)
	}
	if !found {
		return nil, fmt.Errorf("repository not found: %s", ref.Slug())
	}

	facts := &entities.RepoFacts{
		Name:        repo.Name,
		Description: repo.Description,
		Homepage:    repo.Homepage,
		Topics:      repo.Topics,
		StarCount:   repo.StargazersCount,
		ForkCount:   repo.ForksCount,
	}
	if facts.StarCount == nil {
		facts.StarCount = repo.WatchersCount
	}
	if repo.License != nil && repo.License.SPDXID != "NOASSERTION" {
		facts.License = repo.License.SPDXID
	}
	return facts, nil
}

// FetchLatestRelease retrieves the release GitHub marks as latest. Repositories that
// only have pre-releases have no "latest", so the newest listed release is used instead.
func (g *HTTPGitHubGateway) FetchLatestRelease(ctx context.Context, ref entities.RepoRef) (*entities.RepoRelease, error) {
	var latest githubRelease
	found, err := g.get(ctx, "/repos/"+ref.Slug()+"/releases/latest", &latest)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch latest release of %s: %w", ref.Slug(), err)
	}
	if found {
		return toRepoRelease(latest), nil
	}

	g.logger.Debug("No latest release, listing releases", interfaces.F("repo", ref.Slug()))

	var releases []githubRelease
	found, err = g.get(ctx, "/repos/"+ref.Slug()+"/releases?per_page=100", &releases)
	if err != nil {
		return nil, fmt.Errorf("failed to list releases of %s: %w", ref.Slug(), err)
	}
	if !found || len(releases) == 0 {
		return nil, fmt.Errorf("%s: %w", ref.Slug(), ErrReleaseNotFound)
	}

	// RFC 3339 UTC timestamps sort lexically
	sort.SliceStable(releases, func(i, j int) bool {
		return releases[i].CreatedAt > releases[j].CreatedAt
	})
	return toRepoRelease(releases[0]), nil
}

func toRepoRelease(r githubRelease) *entities.RepoRelease {
	out := &entities.RepoRelease{
		TagName:   r.TagName,
		Body:      r.Body,
		CreatedAt: r.CreatedAt,
		HTMLURL:   r.HTMLURL,
	}
	for _, a := range r.Assets {
		out.Assets = append(out.Assets, entities.CandidateAsset{
			Name:      a.Name,
			MediaType: a.ContentType,
			URL:       a.BrowserDownloadURL,
			Size:      a.Size,
		})
	}
	return out
}
