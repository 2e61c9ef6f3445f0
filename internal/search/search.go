// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search retrieves web results through pluggable backends and wraps
// them in a Gateway that paces, retries, caches, fails over, and scores every
// hit before it reaches the research loop.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/pdiddy/deep-research/internal/reliability"
	"github.com/pdiddy/deep-research/internal/temporal"
	"github.com/pdiddy/deep-research/pkg/types"
)

// Backend performs one search call against a single provider. A search with
// no results returns nil, nil. Implementations classify HTTP failures with
// httputil.CheckStatus so the Gateway can tell retryable from fatal errors.
type Backend interface {
	Name() string
	Configured() bool
	Search(ctx context.Context, query string, count int) ([]RawHit, error)
}

// RawHit is an unscored result as returned by a backend.
type RawHit struct {
	Title   string
	URL     string
	Snippet string
}

// enrich scores raw hits, attaches date text, drops hits without a URL or
// with a URL already seen, and truncates to count.
func enrich(raw []RawHit, query, backend string, count int) []types.SearchHit {
	seen := make(map[string]bool, len(raw))
	var hits []types.SearchHit
	for _, r := range raw {
		u := strings.TrimSpace(r.URL)
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true

		score, cat := reliability.Score(u, r.Title, r.Snippet)
		dateText, _ := temporal.Extract(r.Title + " " + r.Snippet)
		hits = append(hits, types.SearchHit{
			Title:       strings.TrimSpace(r.Title),
			URL:         u,
			Snippet:     strings.TrimSpace(r.Snippet),
			Query:       query,
			DateText:    dateText,
			Reliability: score,
			Category:    cat,
			Backend:     backend,
		})
		if count > 0 && len(hits) >= count {
			break
		}
	}
	return hits
}

// appendUnique appends the hits in more whose URL is not already in hits.
func appendUnique(hits, more []types.SearchHit) []types.SearchHit {
	seen := make(map[string]bool, len(hits))
	for _, h := range hits {
		seen[h.URL] = true
	}
	for _, h := range more {
		if !seen[h.URL] {
			seen[h.URL] = true
			hits = append(hits, h)
		}
	}
	return hits
}

// simplifiedTokens is the number of tokens kept by SimplifyQuery.
const simplifiedTokens = 3

// SimplifyQuery removes date expressions from query, collapses whitespace,
// and keeps the first three remaining tokens.
func SimplifyQuery(query string) string {
	var kept []string
	for _, tok := range strings.Fields(query) {
		for {
			d, ok := temporal.Extract(tok)
			if !ok {
				break
			}
			tok = strings.Replace(tok, d, "", 1)
		}
		if tok = strings.TrimSpace(tok); tok != "" {
			kept = append(kept, tok)
		}
	}
	if len(kept) > simplifiedTokens {
		kept = kept[:simplifiedTokens]
	}
	return strings.Join(kept, " ")
}

// FormatTable writes hits as a human-readable table to w.
func FormatTable(hits []types.SearchHit, w io.Writer) {
	if len(hits) == 0 {
		fmt.Fprintln(w, "No results found.")
		return
	}

	fmt.Fprintf(w, "%-4s  %-60s  %-10s  %-6s  %-14s  %s\n",
		"Rank", "Title", "Category", "Score", "Date", "URL")
	fmt.Fprintln(w, strings.Repeat("-", 120))

	for i, h := range hits {
		fmt.Fprintf(w, "%-4d  %-60s  %-10s  %-6.2f  %-14s  %s\n",
			i+1, truncate(h.Title, 60), h.Category, h.Reliability, truncate(h.DateText, 14), h.URL)
	}

	fmt.Fprintf(w, "\n%d results\n", len(hits))
}

// FormatJSON writes hits as indented JSON to w.
func FormatJSON(hits []types.SearchHit, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(hits)
}

// truncate shortens s to max runes so multi-byte titles are never split.
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
