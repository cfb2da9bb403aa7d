package tools

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const DefaultBraveURL = "https://api.search.brave.com/res/v1/web/search"

type SearchResult struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
}

type WebSearcher interface {
	Search(ctx context.Context, query string, count int) ([]SearchResult, error)
}

var _ WebSearcher = (*BraveClient)(nil)

// BraveClient queries the Brave Search web API.
type BraveClient struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

func NewBraveClient(endpoint, apiKey string, timeout time.Duration) *BraveClient {
	if endpoint == "" {
		endpoint = DefaultBraveURL
	}
	return &BraveClient{
		endpoint:   strings.TrimRight(endpoint, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (b *BraveClient) Search(ctx context.Context, query string, count int) ([]SearchResult, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("count", strconv.Itoa(count))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", b.apiKey)

	var body struct {
		Web struct {
			Results []SearchResult `json:"results"`
		} `json:"web"`
	}
	if err := doJSON(b.httpClient, "brave", req, &body); err != nil {
		return nil, err
	}
	return body.Web.Results, nil
}
