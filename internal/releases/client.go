// Package releases lists k3s releases published on GitHub.
package releases

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"slices"
	"time"

	"github.com/imamik/k3zner/internal/config"
)

const (
	// GitHubAPIEndpoint is the default GitHub API endpoint.
	GitHubAPIEndpoint = "https://api.github.com"

	// TagsPath lists the tags of the k3s repository.
	TagsPath = "/repos/k3s-io/k3s/tags"

	pageSize = 100
	maxPages = 10
)

// Client fetches k3s release tags.
type Client struct {
	endpoint   string
	token      string
	httpClient *http.Client
}

// NewClient creates a client for the public GitHub API. token may be empty;
// it only raises the rate limit.
func NewClient(token string) *Client {
	return NewClientWithEndpoint(token, GitHubAPIEndpoint)
}

// NewClientWithEndpoint creates a client with a custom endpoint (for testing).
func NewClientWithEndpoint(token, endpoint string) *Client {
	return &Client{
		endpoint: endpoint,
		token:    token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type tag struct {
	Name string `json:"name"`
}

// List returns every tag that is a k3s release, newest first. Release
// candidates and other pre-releases are left out.
func (c *Client) List(ctx context.Context) ([]string, error) {
	var versions []config.K3sVersion
	for page := 1; page <= maxPages; page++ {
		tags, err := c.fetchPage(ctx, page)
		if err != nil {
			return nil, err
		}
		for _, t := range tags {
			v, err := config.ParseK3sVersion(t.Name)
			if err != nil || v.Prerelease() {
				continue
			}
			versions = append(versions, v)
		}
		if len(tags) < pageSize {
			break
		}
	}

	slices.SortFunc(versions, func(a, b config.K3sVersion) int { return b.Compare(a) })
	out := make([]string, 0, len(versions))
	for _, v := range versions {
		out = append(out, v.String())
	}
	return out, nil
}

func (c *Client) fetchPage(ctx context.Context, page int) ([]tag, error) {
	url := fmt.Sprintf("%s%s?per_page=%d&page=%d", c.endpoint, TagsPath, pageSize, page)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch releases: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GitHub API returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var tags []tag
	if err := json.Unmarshal(body, &tags); err != nil {
		return nil, fmt.Errorf("failed to parse releases response: %w", err)
	}
	return tags, nil
}
