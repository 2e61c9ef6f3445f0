// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package reliability scores how far a search hit can be trusted from its
// domain and the vocabulary of its title and snippet. Scoring is pure and
// deterministic.
package reliability

import (
	"net/url"
	"strings"

	"github.com/pdiddy/deep-research/pkg/types"
)

// UnknownScore is assigned when the URL has no usable host.
const UnknownScore = 0.5

const (
	hedgingFactor       = 0.7
	authoritativeFactor = 1.1
)

type category struct {
	name    types.SourceCategory
	base    float64
	domains []string
}

// categories is ordered by precedence; the first category with a matching
// domain pattern wins.
var categories = []category{
	{types.CategoryOfficial, 0.9, []string{
		"gov.jp", "go.jp", "pref.", "city.", "town.", "village.",
		"ac.jp", "edu.", "university.", "college.",
		".gov", ".edu", ".org", "association.", "foundation.",
	}},
	{types.CategoryNews, 0.8, []string{
		"nhk.", "asahi.", "mainichi.", "yomiuri.", "sankei.",
		"nikkei.", "reuters.", "bloomberg.", "cnn.", "bbc.",
	}},
	{types.CategoryAcademic, 0.85, []string{
		"research.", "study.", "journal.", "paper.", "arxiv.",
		"pubmed.", "scholar.google.", "jstor.",
	}},
	{types.CategoryBlog, 0.5, []string{
		"blog.", "note.com", "hatena.", "ameblo.", "fc2.",
		"wordpress.", "tumblr.", "medium.",
	}},
}

const generalScore = 0.6

var hedgingTerms = []string{
	"噂", "デマ", "未確認", "推測", "憶測",
	"rumor", "rumour", "unconfirmed", "speculation", "alleged",
}

var authoritativeTerms = []string{
	"発表", "公式", "確認", "調査結果", "データ",
	"official", "announced", "announcement", "confirmed", "survey results",
}

// Score returns the reliability of a hit in [0,1] and the category that
// determined its base score.
func Score(rawURL, title, snippet string) (float64, types.SourceCategory) {
	score, cat := base(rawURL)

	content := strings.ToLower(title + " " + snippet)
	if containsAny(content, hedgingTerms) {
		score *= hedgingFactor
	}
	if containsAny(content, authoritativeTerms) {
		score *= authoritativeFactor
	}
	return clamp(score), cat
}

func base(rawURL string) (float64, types.SourceCategory) {
	host := hostOf(rawURL)
	if host == "" {
		return UnknownScore, types.CategoryUnknown
	}
	for _, c := range categories {
		for _, d := range c.domains {
			if matchDomain(host, d) {
				return c.base, c.name
			}
		}
	}
	return generalScore, types.CategoryGeneral
}

func hostOf(rawURL string) string {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return ""
	}
	if !strings.Contains(rawURL, "://") {
		rawURL = "https://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// matchDomain treats patterns starting with "." as top-level suffixes
// (".org" matches "arxiv.org" and "example.org.uk") and everything else as a
// host substring.
func matchDomain(host, pattern string) bool {
	if strings.HasPrefix(pattern, ".") {
		return strings.HasSuffix(host, pattern) || strings.Contains(host, pattern+".")
	}
	return strings.Contains(host, pattern)
}

func containsAny(s string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
