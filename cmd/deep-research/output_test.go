// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/deep-research/pkg/types"
)

var stamp = time.Date(2025, 6, 1, 9, 30, 15, 0, time.UTC)

func TestSlug(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Solar Panel Efficiency 2025", "solar_panel_efficiency_2025"},
		{"  what's new in Go?  ", "what_s_new_in_go"},
		{"東京 天気", "東京_天気"},
		{"???", "query"},
		{"", "query"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, slug(tt.in))
		})
	}
}

func TestSlugLength(t *testing.T) {
	long := slug("a very long research question that keeps going well past any sensible file name length")
	assert.LessOrEqual(t, len([]rune(long)), maxSlugRunes)
	assert.NotEqual(t, '_', rune(long[len(long)-1]))
}

func TestUniquePath(t *testing.T) {
	dir := t.TempDir()
	touch := func(name string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}

	p, err := uniquePath(dir, "research_x", ".yaml", stamp)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "research_x.yaml"), p)

	touch("research_x.yaml")
	p, err = uniquePath(dir, "research_x", ".yaml", stamp)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "research_x_20250601_093015.yaml"), p)

	touch("research_x_20250601_093015.yaml")
	p, err = uniquePath(dir, "research_x", ".yaml", stamp)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "research_x_20250601_093015_v2.yaml"), p)

	touch("research_x_20250601_093015_v2.yaml")
	p, err = uniquePath(dir, "research_x", ".yaml", stamp)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "research_x_20250601_093015_v3.yaml"), p)
}

func sampleSnapshot() types.SessionSnapshot {
	hits := []types.SearchHit{
		{Title: "Panel report", URL: "https://energy.gov/panels", Snippet: "Efficiency rose in 2025.", Query: "solar panels", DateText: "2025", Reliability: 0.9, Category: types.CategoryOfficial},
		{Title: "Blog take", URL: "https://blog.example.com/p", Snippet: "My thoughts.", Query: "solar panels cost", Reliability: 0.4, Category: types.CategoryBlog},
	}
	return types.SessionSnapshot{
		ID:        "abc-123",
		Query:     "solar panels",
		StartedAt: stamp,
		State:     types.StateDone,
		Hits:      hits,
		HitsByQuery: []types.QueryHits{
			{Query: "solar panels", Hits: hits[:1]},
			{Query: "solar panels cost", Hits: hits[1:]},
		},
		FollowUpQueries: []string{"solar panels cost"},
		Analysis:        "## Main Facts\n- efficiency rose",
		Summary:         "## Key Facts\n- efficiency rose",
		FinalReport:     "Efficiency rose [1] while costs fell [2] and [9] is unknown.",
		Citations: []types.Citation{
			{Number: 1, SourceTitle: "Panel report", SourceURL: "https://energy.gov/panels", Referenced: true},
		},
		Iterations: 2,
	}
}

func TestSaveSnapshot(t *testing.T) {
	dir := t.TempDir()
	out := types.OutputConfig{Dir: filepath.Join(dir, "nested"), Format: "json"}
	snap := sampleSnapshot()

	first, err := saveSnapshot(out, snap, stamp)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(out.Dir, "research_solar_panels.json"), first)

	data, err := os.ReadFile(first)
	require.NoError(t, err)
	var back types.SessionSnapshot
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, snap.ID, back.ID)
	assert.Equal(t, snap.Citations, back.Citations)

	second, err := saveSnapshot(out, snap, stamp)
	require.NoError(t, err)
	assert.NotEqual(t, first, second, "existing files are never overwritten")
}

func TestSaveSnapshotFormats(t *testing.T) {
	for format, ext := range map[string]string{"yaml": ".yaml", "markdown": ".md", "": ".yaml"} {
		t.Run(format, func(t *testing.T) {
			path, err := saveSnapshot(types.OutputConfig{Dir: t.TempDir(), Format: format}, sampleSnapshot(), stamp)
			require.NoError(t, err)
			assert.Equal(t, ext, filepath.Ext(path))
		})
	}

	_, err := saveSnapshot(types.OutputConfig{Dir: t.TempDir(), Format: "pdf"}, sampleSnapshot(), stamp)
	assert.Error(t, err)
}

func TestWriteSnapshotYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeSnapshot(&buf, sampleSnapshot(), "yaml"))
	assert.Contains(t, buf.String(), "id: abc-123")
	assert.Contains(t, buf.String(), "follow_up_queries:")
}
