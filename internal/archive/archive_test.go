// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/deep-research/pkg/types"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "sessions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func snapshot(id, query string, started time.Time, urls ...string) types.SessionSnapshot {
	snap := types.SessionSnapshot{
		ID:              id,
		Query:           query,
		StartedAt:       started,
		FinishedAt:      started.Add(time.Minute),
		State:           types.StateDone,
		FollowUpQueries: []string{query + " news"},
		FinalReport:     "## Executive summary\nreport for " + query,
		Citations:       []types.Citation{{Number: 1, SourceTitle: "t", SourceURL: "https://cite.example"}},
		Iterations:      2,
		StateHistory:    []types.State{types.StateInit, types.StateDone},
	}
	for _, u := range urls {
		snap.Hits = append(snap.Hits, types.SearchHit{URL: u, Title: "T " + u, Query: query, Reliability: 0.8, Category: types.CategoryNews, Backend: "google"})
	}
	return snap
}

var t0 = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

func TestSaveAndGet(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	want := snapshot("s1", "solar power", t0, "https://a.example", "https://b.example")
	require.NoError(t, s.Save(ctx, want))

	got, err := s.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, want.Query, got.Query)
	assert.Equal(t, want.Hits, got.Hits)
	assert.Equal(t, want.Citations, got.Citations)
	assert.Equal(t, want.StateHistory, got.StateHistory)
	assert.Equal(t, want.FinalReport, got.FinalReport)
	assert.True(t, want.StartedAt.Equal(got.StartedAt))
}

func TestSave_ReplacesExisting(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, snapshot("s1", "first", t0, "https://a.example")))
	require.NoError(t, s.Save(ctx, snapshot("s1", "second", t0, "https://b.example")))

	list, err := s.List(ctx, ListOptions{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "second", list[0].Query)

	byURL, err := s.List(ctx, ListOptions{URL: "https://a.example"})
	require.NoError(t, err)
	assert.Empty(t, byURL)
}

func TestSave_RequiresID(t *testing.T) {
	s := testStore(t)
	assert.Error(t, s.Save(context.Background(), types.SessionSnapshot{Query: "q"}))
}

func TestGet_NotFound(t *testing.T) {
	s := testStore(t)
	_, err := s.Get(context.Background(), "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestList_OrderAndFilters(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, snapshot("old", "solar power", t0, "https://a.example")))
	require.NoError(t, s.Save(ctx, snapshot("new", "wind power", t0.Add(time.Hour), "https://a.example", "https://b.example")))
	require.NoError(t, s.Save(ctx, snapshot("frac", "100% solar_only", t0.Add(500*time.Millisecond))))

	all, err := s.List(ctx, ListOptions{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"new", "frac", "old"}, []string{all[0].ID, all[1].ID, all[2].ID})
	assert.Equal(t, 2, all[0].HitCount)
	assert.Equal(t, 1, all[0].CitationCount)
	assert.Equal(t, 2, all[0].Iterations)
	assert.Equal(t, types.StateDone, all[0].State)
	assert.True(t, all[0].StartedAt.Equal(t0.Add(time.Hour)))

	solar, err := s.List(ctx, ListOptions{Query: "solar"})
	require.NoError(t, err)
	assert.Len(t, solar, 2)

	literal, err := s.List(ctx, ListOptions{Query: "100%"})
	require.NoError(t, err)
	require.Len(t, literal, 1)
	assert.Equal(t, "frac", literal[0].ID)

	underscore, err := s.List(ctx, ListOptions{Query: "r_p"})
	require.NoError(t, err)
	assert.Empty(t, underscore)

	byURL, err := s.List(ctx, ListOptions{URL: "https://b.example"})
	require.NoError(t, err)
	require.Len(t, byURL, 1)
	assert.Equal(t, "new", byURL[0].ID)

	limited, err := s.List(ctx, ListOptions{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestExport(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, snapshot("s1", "solar power", t0, "https://a.example")))
	require.NoError(t, s.Save(ctx, snapshot("s2", "wind power", t0.Add(time.Hour))))

	var jsonBuf bytes.Buffer
	require.NoError(t, s.Export(ctx, &jsonBuf, "json", ListOptions{}))
	var snaps []types.SessionSnapshot
	require.NoError(t, json.Unmarshal(jsonBuf.Bytes(), &snaps))
	require.Len(t, snaps, 2)
	assert.Equal(t, "s2", snaps[0].ID)

	var yamlBuf bytes.Buffer
	require.NoError(t, s.Export(ctx, &yamlBuf, "yaml", ListOptions{Query: "solar"}))
	var entries []map[string]any
	require.NoError(t, yaml.Unmarshal(yamlBuf.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "solar power", entries[0]["query"])
	assert.Equal(t, "done", entries[0]["state"])
}

func TestEncode(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, map[string]string{"url": "https://a.example/?a=1&b=2"}, "json"))
	assert.Contains(t, buf.String(), "a=1&b=2")

	buf.Reset()
	require.NoError(t, Encode(&buf, map[string]int{"count": 1}, ""))
	assert.Equal(t, "count: 1\n", buf.String())

	assert.ErrorContains(t, Encode(&buf, 1, "xml"), "unknown format")
}
