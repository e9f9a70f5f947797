package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/provguard/provguard/internal/metrics"
	"github.com/provguard/provguard/internal/models"
)

const diffAccept = "application/vnd.github.v3.diff"

// GitHubClient fetches authoritative source diffs from the GitHub API.
type GitHubClient struct {
	baseURL    string
	repo       string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewGitHubClient creates a client for one source repository
// ("owner/repo"). rps bounds outgoing requests to respect API limits.
func NewGitHubClient(baseURL, repo, token string, rps float64) *GitHubClient {
	if baseURL == "" {
		baseURL = "https://api.github.com"
	}
	return &GitHubClient{
		baseURL: baseURL,
		repo:    repo,
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
	}
}

func (c *GitHubClient) FetchDiff(ctx context.Context, src models.SourceRef) (string, error) {
	var url string
	switch src.Kind {
	case models.SourceKindPR:
		url = fmt.Sprintf("%s/repos/%s/pulls/%s", c.baseURL, c.repo, src.ID)
	case models.SourceKindCommit:
		url = fmt.Sprintf("%s/repos/%s/commits/%s", c.baseURL, c.repo, src.ID)
	default:
		return "", fmt.Errorf("unknown source kind %q", src.Kind)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", diffAccept)
	req.Header.Set("User-Agent", "Provenance-Guard")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		metrics.FetchesTotal.WithLabelValues("error").Inc()
		return "", &TransientError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &TransientError{Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		metrics.FetchesTotal.WithLabelValues("ok").Inc()
		return string(body), nil
	case resp.StatusCode == http.StatusNotFound:
		metrics.FetchesTotal.WithLabelValues("not_found").Inc()
		return "", &NotFoundError{Source: src}
	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusTooManyRequests:
		metrics.FetchesTotal.WithLabelValues("rate_limited").Inc()
		return "", &RateLimitedError{RetryAfter: retryAfter(resp)}
	case resp.StatusCode >= 500:
		metrics.FetchesTotal.WithLabelValues("error").Inc()
		return "", &TransientError{Status: resp.StatusCode}
	default:
		metrics.FetchesTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("unexpected status code %d fetching %s", resp.StatusCode, src)
	}
}

func retryAfter(resp *http.Response) time.Duration {
	if reset := resp.Header.Get("X-RateLimit-Reset"); reset != "" {
		if ts, err := strconv.ParseInt(reset, 10, 64); err == nil {
			wait := time.Until(time.Unix(ts, 0)) + time.Second
			if wait < 0 {
				wait = time.Second
			}
			if wait > 5*time.Minute {
				log.Warn().Dur("wait", wait).Msg("Rate limit reset too far out, capping wait")
				wait = 5 * time.Minute
			}
			return wait
		}
	}
	return 30 * time.Second
}
