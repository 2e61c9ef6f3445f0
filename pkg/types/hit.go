// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the deep-research engine:
// scored search hits, temporal facts, citations, the session snapshot handed
// to report consumers, and the configuration surface.
package types

import "time"

// SourceCategory classifies a hit's origin by its domain.
type SourceCategory string

const (
	CategoryOfficial SourceCategory = "official"
	CategoryNews     SourceCategory = "news"
	CategoryAcademic SourceCategory = "academic"
	CategoryBlog     SourceCategory = "blog"
	CategoryGeneral  SourceCategory = "general"
	CategoryUnknown  SourceCategory = "unknown"
)

// SearchHit is one retrieval result after it has been scored by the gateway.
// Hits are passed by value and never mutated once scored.
type SearchHit struct {
	// Title is the result title as returned by the backend.
	Title string `json:"title" yaml:"title"`

	// URL is the canonical result URL; hit sets are unique by URL.
	URL string `json:"url" yaml:"url"`

	// Snippet is the short text excerpt shown by the backend.
	Snippet string `json:"snippet" yaml:"snippet"`

	// Query is the query that produced this hit.
	Query string `json:"query" yaml:"query"`

	// DateText is the first date expression found in title and snippet, if any.
	DateText string `json:"date_text,omitempty" yaml:"date_text,omitempty"`

	// Reliability is a score in [0,1] derived from domain and vocabulary.
	Reliability float64 `json:"reliability" yaml:"reliability"`

	// Category is the domain class that determined the base reliability.
	Category SourceCategory `json:"category" yaml:"category"`

	// Backend names the search backend that returned the hit (e.g. "google").
	Backend string `json:"backend,omitempty" yaml:"backend,omitempty"`
}

// TemporalClass positions a date relative to today.
type TemporalClass string

const (
	TemporalFuture  TemporalClass = "future"
	TemporalRecent  TemporalClass = "recent"
	TemporalPast    TemporalClass = "past"
	TemporalUnknown TemporalClass = "unknown"
)

// TemporalFact is the classification of a raw date expression. It is derived
// on demand and never stored.
type TemporalFact struct {
	Raw string `json:"raw" yaml:"raw"`

	// Date is the resolved calendar day (UTC); zero when Valid is false.
	Date  time.Time `json:"date,omitempty" yaml:"date,omitempty"`
	Valid bool      `json:"valid" yaml:"valid"`

	// DayOffset is today minus Date in whole days; negative means future.
	DayOffset int           `json:"day_offset" yaml:"day_offset"`
	Class     TemporalClass `json:"class" yaml:"class"`

	// Relative is a human phrase such as "3 weeks ago" or "today".
	Relative string `json:"relative,omitempty" yaml:"relative,omitempty"`
	IsFuture bool   `json:"is_future" yaml:"is_future"`
	IsRecent bool   `json:"is_recent" yaml:"is_recent"`
}

// Citation is a source reference included in the final report.
type Citation struct {
	// Number is the 1-based label used for inline references like [2].
	Number int `json:"number" yaml:"number"`

	SourceTitle string  `json:"source_title" yaml:"source_title"`
	SourceURL   string  `json:"source_url" yaml:"source_url"`
	Excerpt     string  `json:"excerpt" yaml:"excerpt"`
	Query       string  `json:"query" yaml:"query"`
	Relevance   float64 `json:"relevance" yaml:"relevance"`
	DateText    string  `json:"date_text,omitempty" yaml:"date_text,omitempty"`

	// Referenced is set when the final report cites Number inline.
	Referenced bool `json:"referenced" yaml:"referenced"`
}
