// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package citation selects the search hits worth citing and tracks which of
// them a report references inline.
package citation

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/pdiddy/deep-research/pkg/types"
)

// numericCiteRe matches inline references like [1], [12], or [1, 3].
var numericCiteRe = regexp.MustCompile(`\[(\d+(?:\s*,\s*\d+)*)\]`)

var numberRe = regexp.MustCompile(`\d+`)

// Manager applies the citation policy: a hit is cited when its reliability
// reaches both the reliability threshold and the relevance threshold.
type Manager struct {
	ReliabilityThreshold float64
	RelevanceThreshold   float64
}

// NewManager returns a Manager with the thresholds from cfg.
func NewManager(cfg types.CitationConfig) *Manager {
	return &Manager{
		ReliabilityThreshold: cfg.ReliabilityThreshold,
		RelevanceThreshold:   cfg.RelevanceThreshold,
	}
}

// Create returns citations for the qualifying hits in input order, numbered
// from 1. The input slice is not modified.
func (m *Manager) Create(hits []types.SearchHit) []types.Citation {
	citations := []types.Citation{}
	for _, h := range hits {
		if h.Reliability < m.ReliabilityThreshold || h.Reliability < m.RelevanceThreshold {
			continue
		}
		citations = append(citations, types.Citation{
			Number:      len(citations) + 1,
			SourceTitle: h.Title,
			SourceURL:   h.URL,
			Excerpt:     h.Snippet,
			Query:       h.Query,
			Relevance:   h.Reliability,
			DateText:    h.DateText,
		})
	}
	return citations
}

// Format renders citation c as "[n] title (url)".
func Format(c types.Citation) string {
	return fmt.Sprintf("[%d] %s (%s)", c.Number, c.SourceTitle, c.SourceURL)
}

// Referenced returns the distinct citation numbers referenced inline in
// text, in order of first appearance.
func Referenced(text string) []int {
	seen := make(map[int]bool)
	var nums []int
	for _, group := range numericCiteRe.FindAllStringSubmatch(text, -1) {
		for _, s := range numberRe.FindAllString(group[1], -1) {
			n, err := strconv.Atoi(s)
			if err != nil || n < 1 || seen[n] {
				continue
			}
			seen[n] = true
			nums = append(nums, n)
		}
	}
	return nums
}

// MarkReferenced sets Referenced on each citation whose number text cites.
// It returns the number of citations marked.
func MarkReferenced(citations []types.Citation, text string) int {
	refs := make(map[int]bool)
	for _, n := range Referenced(text) {
		refs[n] = true
	}
	marked := 0
	for i := range citations {
		citations[i].Referenced = refs[citations[i].Number]
		if citations[i].Referenced {
			marked++
		}
	}
	return marked
}
