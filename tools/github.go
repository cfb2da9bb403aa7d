package tools

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const DefaultGitHubAPIURL = "https://api.github.com"

type Repository struct {
	FullName    string `json:"full_name"`
	Description string `json:"description"`
	URL         string `json:"html_url"`
	Stars       int    `json:"stargazers_count"`
	Language    string `json:"language"`
}

// RepoSearcher searches repositories using the caller's own GitHub token.
type RepoSearcher interface {
	SearchRepositories(ctx context.Context, accessToken, query string, limit int) ([]Repository, error)
}

var _ RepoSearcher = (*GitHubClient)(nil)

type GitHubClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewGitHubClient(baseURL string, timeout time.Duration) *GitHubClient {
	if baseURL == "" {
		baseURL = DefaultGitHubAPIURL
	}
	return &GitHubClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (g *GitHubClient) SearchRepositories(ctx context.Context, accessToken, query string, limit int) ([]Repository, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("per_page", strconv.Itoa(limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/search/repositories?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")

	var body struct {
		Items []Repository `json:"items"`
	}
	if err := doJSON(g.httpClient, "github", req, &body); err != nil {
		return nil, err
	}
	return body.Items, nil
}
