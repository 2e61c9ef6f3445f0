// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package reliability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/pdiddy/deep-research/pkg/types"
)

func TestScore_Categories(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantCat types.SourceCategory
		want    float64
	}{
		{"government", "https://www.gov.jp/press/2024/01/01.html", types.CategoryOfficial, 0.9},
		{"prefecture", "https://www.pref.osaka.lg.jp/", types.CategoryOfficial, 0.9},
		{"org tld", "https://arxiv.org/abs/2401.00001", types.CategoryOfficial, 0.9},
		{"news", "https://www.nhk.or.jp/news/article1.html", types.CategoryNews, 0.8},
		{"academic", "https://scholar.google.com/citations?user=x", types.CategoryAcademic, 0.85},
		{"us government", "https://pubmed.ncbi.nlm.nih.gov/12345/", types.CategoryOfficial, 0.9},
		{"blog", "https://example.blog.com/rumor.html", types.CategoryBlog, 0.5},
		{"medium", "https://medium.com/@someone/post", types.CategoryBlog, 0.5},
		{"general", "https://example.com/page", types.CategoryGeneral, 0.6},
		{"empty", "", types.CategoryUnknown, UnknownScore},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, cat := Score(tt.url, "plain title", "plain snippet")
			assert.Equal(t, tt.wantCat, cat)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestScore_PrecedenceOfficialOverNews(t *testing.T) {
	// Matches both "nhk." and ".org"; official comes first.
	_, cat := Score("https://nhk.example.org/", "", "")
	assert.Equal(t, types.CategoryOfficial, cat)
}

func TestScore_OrgIsNotASubstringMatch(t *testing.T) {
	_, cat := Score("https://georgetown-shop.com/", "", "")
	assert.Equal(t, types.CategoryGeneral, cat)
}

func TestScore_VocabularyAdjustments(t *testing.T) {
	hedged, _ := Score("https://example.blog.com/rumor.html", "噂話", "根拠のない噂話")
	assert.InDelta(t, 0.35, hedged, 1e-9)

	// Hedging terms that contain an authoritative term take both factors.
	overlap, _ := Score("https://example.blog.com/rumor.html", "噂話", "未確認の噂話")
	assert.InDelta(t, 0.5*0.7*1.1, overlap, 1e-9)
	unconfirmed, _ := Score("https://example.com/", "unconfirmed report", "")
	assert.InDelta(t, 0.6*0.7*1.1, unconfirmed, 1e-9)

	boosted, _ := Score("https://example.com/", "Official announcement", "")
	assert.InDelta(t, 0.66, boosted, 1e-9)

	// Each adjustment applies once however many terms match.
	official, _ := Score("https://www.gov.jp/", "政府発表", "政府の公式発表")
	assert.InDelta(t, 0.99, official, 1e-9)

	both, _ := Score("https://example.com/", "unconfirmed", "but official")
	assert.InDelta(t, 0.6*0.7*1.1, both, 1e-9)
}

func TestScore_AlwaysWithinUnitInterval(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		u := rapid.String().Draw(t, "url")
		title := rapid.String().Draw(t, "title")
		snippet := rapid.String().Draw(t, "snippet")

		score, cat := Score(u, title, snippet)
		if score < 0 || score > 1 {
			t.Fatalf("score %v outside [0,1] for %q", score, u)
		}
		if cat == "" {
			t.Fatalf("empty category for %q", u)
		}
	})
}

func TestScore_Deterministic(t *testing.T) {
	a, ca := Score("https://www.reuters.com/x", "Data shows", "confirmed")
	b, cb := Score("https://www.reuters.com/x", "Data shows", "confirmed")
	assert.Equal(t, a, b)
	assert.Equal(t, ca, cb)
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0.0, clamp(-0.2))
	assert.Equal(t, 1.0, clamp(1.3))
	assert.Equal(t, 0.42, clamp(0.42))
}
