// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package refine cleans the follow-up queries proposed by a language model
// before they are issued as searches.
package refine

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	// MaxQueries caps the number of queries ValidateAndImprove returns.
	MaxQueries = 5

	// MinQueries is the count the refiner pads up to with modifier queries.
	MinQueries = 3

	minRunes = 2
)

// denylist holds boilerplate the model tends to echo from the prompt
// instead of proposing a query. Matching is a case-insensitive substring test.
var denylist = []string{
	"keyword", "suggestion", "the following", "additional", "proposal",
	"analysis", "following",
	"キーワード", "追加", "提案", "以下の", "分析", "各キーワード",
}

// Modifiers are appended to the original query when too few candidates survive.
var Modifiers = []string{"latest information", "news", "trends"}

var listMarker = regexp.MustCompile(`^\s*(?:[-*•・]|\d+[.)、])\s*`)

// Denylisted reports whether q contains boilerplate vocabulary.
func Denylisted(q string) bool {
	lower := strings.ToLower(q)
	for _, term := range denylist {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}

// ValidateAndImprove filters candidate follow-up queries and returns at most
// MaxQueries distinct queries, none of them denylisted. Short lists are padded
// with the original query plus each of Modifiers; padding that would itself
// be denylisted is skipped, so the result can hold fewer than MinQueries
// entries when the original query contains boilerplate vocabulary.
func ValidateAndImprove(candidates []string, original string) []string {
	original = strings.Join(strings.Fields(original), " ")
	prefix := strings.Fields(original)
	if len(prefix) > 2 {
		prefix = prefix[:2]
	}

	out := make([]string, 0, MaxQueries)
	seen := make(map[string]bool)
	add := func(q string) {
		if len(out) >= MaxQueries || seen[q] || Denylisted(q) {
			return
		}
		seen[q] = true
		out = append(out, q)
	}

	for _, c := range candidates {
		q := strings.Join(strings.Fields(listMarker.ReplaceAllString(c, "")), " ")
		if utf8.RuneCountInString(q) < minRunes || Denylisted(q) {
			continue
		}
		if !strings.Contains(q, " ") && len(prefix) > 0 {
			q = strings.Join(prefix, " ") + " " + q
		}
		add(q)
	}

	for _, m := range Modifiers {
		if len(out) >= MinQueries {
			break
		}
		add(strings.TrimSpace(original + " " + m))
	}
	return out
}
