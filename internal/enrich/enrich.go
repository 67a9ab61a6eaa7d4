// Package enrich fetches web search snippets that ground content drafts in
// current material. Enrichment is best effort; any failure degrades to an
// empty result rather than failing the caller.
package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// ErrUnavailable means the search backend could not serve the query. The
// drafter treats it as "no enrichment", never as a fatal error.
var ErrUnavailable = errors.New("enrich: search unavailable")

// Snippet is one search result worth quoting.
type Snippet struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
}

// Client talks to a Brave-compatible web search API.
type Client struct {
	apiKey     string
	apiBase    string
	maxResults int
	httpClient *http.Client
}

// NewClient builds a search client. An empty apiKey produces a client whose
// Search always reports ErrUnavailable.
func NewClient(apiKey, apiBase string, maxResults int, timeout time.Duration) *Client {
	if apiBase == "" {
		apiBase = "https://api.search.brave.com/res/v1"
	}
	if maxResults <= 0 {
		maxResults = 5
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		apiKey:     apiKey,
		apiBase:    apiBase,
		maxResults: maxResults,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type searchResponse struct {
	Web struct {
		Results []Snippet `json:"results"`
	} `json:"web"`
}

// Search returns up to maxResults snippets for the query.
func (c *Client) Search(ctx context.Context, query string) ([]Snippet, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("%w: no API key configured", ErrUnavailable)
	}

	endpoint := c.apiBase + "/web/search?q=" + url.QueryEscape(query) + "&count=" + strconv.Itoa(c.maxResults)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: search returned %d", ErrUnavailable, resp.StatusCode)
	}

	var decoded searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrUnavailable, err)
	}
	results := decoded.Web.Results
	if len(results) > c.maxResults {
		results = results[:c.maxResults]
	}
	return results, nil
}
