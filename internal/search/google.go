// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/pdiddy/deep-research/internal/httputil"
)

// googleAPIBase is the Custom Search JSON API endpoint. Declared as a var so
// tests can substitute an httptest server.
var googleAPIBase = "https://www.googleapis.com/customsearch/v1"

// googleMaxNum is the largest page size the API accepts.
const googleMaxNum = 10

// GoogleBackend queries the Google Custom Search JSON API.
type GoogleBackend struct {
	Client    *http.Client
	APIKey    string
	EngineID  string
	UserAgent string
}

// Name returns the backend identifier.
func (b *GoogleBackend) Name() string { return "google" }

// Configured reports whether both the API key and engine ID are set.
func (b *GoogleBackend) Configured() bool {
	return b.APIKey != "" && b.EngineID != ""
}

// Search returns up to min(count, 10) results. HTTP 429 maps to
// httputil.ErrRateLimited and HTTP 401/403 to httputil.ErrUnauthorized.
func (b *GoogleBackend) Search(ctx context.Context, query string, count int) ([]RawHit, error) {
	if !b.Configured() {
		return nil, fmt.Errorf("google: %w: api key and engine id are required", httputil.ErrUnauthorized)
	}

	params := url.Values{
		"key": {b.APIKey},
		"cx":  {b.EngineID},
		"q":   {query},
		"num": {strconv.Itoa(max(1, min(count, googleMaxNum)))},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, googleAPIBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if b.UserAgent != "" {
		req.Header.Set("User-Agent", b.UserAgent)
	}

	resp, err := b.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("google search request: %w", err)
	}
	defer resp.Body.Close()

	if err := httputil.CheckStatus(resp); err != nil {
		return nil, fmt.Errorf("google search: %w", err)
	}

	var gr googleResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return nil, fmt.Errorf("parsing google response: %w", err)
	}

	var hits []RawHit
	for _, item := range gr.Items {
		hits = append(hits, RawHit{
			Title:   item.Title,
			URL:     item.Link,
			Snippet: item.Snippet,
		})
	}
	return hits, nil
}

type googleResponse struct {
	Items []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"items"`
}
