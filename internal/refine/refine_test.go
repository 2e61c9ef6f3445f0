// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package refine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestValidateAndImprove(t *testing.T) {
	tests := []struct {
		name       string
		candidates []string
		original   string
		want       []string
	}{
		{
			name:       "clean candidates kept in order",
			candidates: []string{"switch 2 price", "switch 2 stock", "switch 2 reviews"},
			original:   "nintendo switch 2",
			want:       []string{"switch 2 price", "switch 2 stock", "switch 2 reviews"},
		},
		{
			name:       "denylisted and short dropped",
			candidates: []string{"Keyword 1", "Here are the following queries", "x", "", "追加キーワード", "battery life test", "sales figures", "release date"},
			original:   "nintendo switch 2",
			want:       []string{"battery life test", "sales figures", "release date"},
		},
		{
			name:       "single token widened",
			candidates: []string{"pricing", "battery life", "stock"},
			original:   "nintendo switch 2",
			want:       []string{"nintendo switch pricing", "battery life", "nintendo switch stock"},
		},
		{
			name:       "list markers stripped",
			candidates: []string{"- launch titles list", "2. online service cost", "* dock compatibility"},
			original:   "switch 2",
			want:       []string{"launch titles list", "online service cost", "dock compatibility"},
		},
		{
			name:       "duplicates removed after widening",
			candidates: []string{"price", "nintendo switch price", "price"},
			original:   "nintendo switch 2",
			want:       []string{"nintendo switch price", "nintendo switch 2 latest information", "nintendo switch 2 news"},
		},
		{
			name:       "padded with modifiers",
			candidates: nil,
			original:   "量子コンピュータ",
			want:       []string{"量子コンピュータ latest information", "量子コンピュータ news", "量子コンピュータ trends"},
		},
		{
			name:       "capped at five",
			candidates: []string{"a one", "b two", "c three", "d four", "e five", "f six"},
			original:   "q",
			want:       []string{"a one", "b two", "c three", "d four", "e five"},
		},
		{
			name:       "denylisted original yields no padding",
			candidates: []string{"market size"},
			original:   "data analysis tools",
			want:       []string{"market size"},
		},
		{
			name:       "whitespace collapsed",
			candidates: []string{"  solar   panel\tcost  "},
			original:   "solar",
			want:       []string{"solar panel cost", "solar latest information", "solar news"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidateAndImprove(tt.candidates, tt.original))
		})
	}
}

func TestDenylisted(t *testing.T) {
	assert.True(t, Denylisted("SUGGESTION: cats"))
	assert.True(t, Denylisted("以下のキーワード"))
	assert.False(t, Denylisted("cat food prices"))
}

func TestValidateAndImprove_Properties(t *testing.T) {
	words := []string{"keyword", "news", "price", "分析", "history", "following", "x", "", "battery life", "1. release", "追加", "market"}
	rapid.Check(t, func(t *rapid.T) {
		candidates := rapid.SliceOf(rapid.OneOf(
			rapid.SampledFrom(words),
			rapid.String(),
		)).Draw(t, "candidates")
		original := rapid.OneOf(rapid.SampledFrom(words), rapid.String()).Draw(t, "original")

		got := ValidateAndImprove(candidates, original)
		if len(got) > MaxQueries {
			t.Fatalf("got %d queries, want at most %d", len(got), MaxQueries)
		}
		seen := make(map[string]bool)
		for _, q := range got {
			if Denylisted(q) {
				t.Fatalf("denylisted query %q returned", q)
			}
			if seen[q] {
				t.Fatalf("duplicate query %q", q)
			}
			seen[q] = true
		}
		if !Denylisted(original) && len(got) < MinQueries {
			t.Fatalf("got %d queries for clean original %q, want at least %d", len(got), original, MinQueries)
		}
	})
}
