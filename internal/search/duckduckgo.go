// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/pdiddy/deep-research/internal/httputil"
)

// duckduckgoEndpoint is the lite HTML search page. Declared as a var so
// tests can substitute an httptest server.
var duckduckgoEndpoint = "https://lite.duckduckgo.com/lite/"

// browserUserAgent is sent when no user agent is configured; the lite page
// rejects obvious bots.
const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

const maxPageBytes = 2 << 20

// DuckDuckGoBackend scrapes the DuckDuckGo lite HTML page. It needs no
// credentials and is always configured.
type DuckDuckGoBackend struct {
	Client    *http.Client
	UserAgent string
}

// Name returns the backend identifier.
func (b *DuckDuckGoBackend) Name() string { return "duckduckgo" }

// Configured always reports true.
func (b *DuckDuckGoBackend) Configured() bool { return true }

// Search posts the query to the lite page and parses up to count results.
func (b *DuckDuckGoBackend) Search(ctx context.Context, query string, count int) ([]RawHit, error) {
	form := url.Values{"q": {query}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, duckduckgoEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	ua := b.UserAgent
	if ua == "" {
		ua = browserUserAgent
	}
	req.Header.Set("User-Agent", ua)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := b.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("duckduckgo request: %w", err)
	}
	defer resp.Body.Close()

	if err := httputil.CheckStatus(resp); err != nil {
		return nil, fmt.Errorf("duckduckgo: %w", err)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("reading duckduckgo page: %w", err)
	}
	return parseLitePage(string(body), count), nil
}

var (
	ddgLinkPattern    = regexp.MustCompile(`<a[^>]*class=['"]result-link['"][^>]*href=['"]([^'"]+)['"][^>]*>(.*?)</a>`)
	ddgLinkPatternAlt = regexp.MustCompile(`<a[^>]*href=['"]([^'"]+)['"][^>]*class=['"]result-link['"][^>]*>(.*?)</a>`)
	ddgSnippetPattern = regexp.MustCompile(`(?s)<td[^>]*class=['"]result-snippet['"][^>]*>(.*?)</td>`)
	ddgAnyLinkPattern = regexp.MustCompile(`<a[^>]+href=['"]([^'"]+)['"][^>]*>(.*?)</a>`)
	tagPattern        = regexp.MustCompile(`<[^>]+>`)
)

// parseLitePage extracts result links and snippets from the lite page.
// Links and snippets are paired by position. When no result-link anchors
// exist, any external anchor with a plausible title is taken instead.
func parseLitePage(page string, count int) []RawHit {
	links := ddgLinkPattern.FindAllStringSubmatch(page, -1)
	if len(links) == 0 {
		links = ddgLinkPatternAlt.FindAllStringSubmatch(page, -1)
	}
	if len(links) == 0 {
		return fallbackParse(page, count)
	}
	snippets := ddgSnippetPattern.FindAllStringSubmatch(page, -1)

	var hits []RawHit
	for i, m := range links {
		target := resolveRedirect(strings.TrimSpace(html.UnescapeString(m[1])))
		title := cleanHTML(m[2])
		if target == "" || title == "" {
			continue
		}
		snippet := ""
		if i < len(snippets) {
			snippet = cleanHTML(snippets[i][1])
		}
		hits = append(hits, RawHit{Title: title, URL: target, Snippet: snippet})
		if len(hits) >= count {
			break
		}
	}
	return hits
}

func fallbackParse(page string, count int) []RawHit {
	seen := make(map[string]bool)
	var hits []RawHit
	for _, m := range ddgAnyLinkPattern.FindAllStringSubmatch(page, -1) {
		target := resolveRedirect(strings.TrimSpace(html.UnescapeString(m[1])))
		title := cleanHTML(m[2])
		if !strings.HasPrefix(target, "http") || strings.Contains(target, "duckduckgo.com") {
			continue
		}
		if len([]rune(title)) < 5 || seen[target] {
			continue
		}
		seen[target] = true
		hits = append(hits, RawHit{Title: title, URL: target})
		if len(hits) >= count {
			break
		}
	}
	return hits
}

// resolveRedirect unwraps DuckDuckGo click-through links
// ("//duckduckgo.com/l/?uddg=<escaped target>").
func resolveRedirect(href string) string {
	if !strings.Contains(href, "duckduckgo.com/l/") {
		return href
	}
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return u.Query().Get("uddg")
}

func cleanHTML(s string) string {
	s = tagPattern.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	return strings.Join(strings.Fields(s), " ")
}
