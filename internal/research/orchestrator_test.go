// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package research

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/pdiddy/deep-research/internal/httputil"
	"github.com/pdiddy/deep-research/internal/llm"
	"github.com/pdiddy/deep-research/internal/structured"
	"github.com/pdiddy/deep-research/pkg/types"
)

var today = time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)

func hit(url string, reliability float64) types.SearchHit {
	return types.SearchHit{
		Title:       "Title " + url,
		URL:         url,
		Snippet:     "Snippet for " + url,
		DateText:    "2025年5月20日",
		Reliability: reliability,
		Category:    types.CategoryGeneral,
		Backend:     "fake",
	}
}

type searchCall struct {
	Query string
	Count int
	Hint  string
}

// fakeSearcher returns the hits configured for each query, labelled with
// the query, and records every call.
type fakeSearcher struct {
	mu      sync.Mutex
	results map[string][]types.SearchHit
	err     error
	calls   []searchCall
}

func (f *fakeSearcher) Search(_ context.Context, query string, count int, hint string) ([]types.SearchHit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, searchCall{query, count, hint})
	if f.err != nil {
		return nil, f.err
	}
	var out []types.SearchHit
	for _, h := range f.results[query] {
		h.Query = query
		out = append(out, h)
	}
	return out, nil
}

func (f *fakeSearcher) queries() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var qs []string
	for _, c := range f.calls {
		qs = append(qs, c.Query)
	}
	return qs
}

// scriptedModel answers each prompt kind with a fixed JSON object and keeps
// every prompt it receives.
type scriptedModel struct {
	mu       sync.Mutex
	keywords []string
	report   string
	prompts  map[string][]string
}

func (m *scriptedModel) generate(_ context.Context, prompt string) llm.Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.prompts == nil {
		m.prompts = make(map[string][]string)
	}

	var kind string
	var body any
	switch {
	case strings.Contains(prompt, "research-quality report"):
		kind = "final"
		body = map[string]any{"executive_summary": m.report, "findings": []string{"finding"}}
	case strings.Contains(prompt, "propose search queries"):
		kind = "follow_up"
		body = map[string]any{"keywords": m.keywords}
	case strings.Contains(prompt, "concise summary"):
		kind = "summary"
		body = map[string]any{"key_facts": []string{"key fact"}, "conclusion": "conclusion"}
	case strings.Contains(prompt, "comprehensive analysis"):
		kind = "analysis_all"
		body = map[string]any{"main_facts": []string{"combined fact"}}
	default:
		kind = "analysis"
		body = map[string]any{"main_facts": []string{"initial fact"}}
	}
	m.prompts[kind] = append(m.prompts[kind], prompt)
	b, _ := json.Marshal(body)
	return llm.Success(string(b))
}

func (m *scriptedModel) count(kind string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts[kind])
}

func newOrchestrator(t *testing.T, cfg types.ResearchConfig, s Searcher, gen llm.Generator, opts ...Option) *Orchestrator {
	t.Helper()
	logger := zaptest.NewLogger(t)
	adapter := structured.NewAdapter(gen, 0, logger)
	opts = append([]Option{WithLogger(logger), WithClock(func() time.Time { return today })}, opts...)
	return New(cfg, s, adapter, opts...)
}

func TestRun_FullSession(t *testing.T) {
	searcher := &fakeSearcher{results: map[string][]types.SearchHit{
		"solar power":      {hit("https://b.example", 0.6), hit("https://a.example", 0.9), hit("https://c.example", 0.2)},
		"solar panel cost": {hit("https://d.example", 0.8), hit("https://a.example", 0.9)},
		"solar subsidies":  {hit("https://e.example", 0.5)},
	}}
	model := &scriptedModel{
		keywords: []string{"solar panel cost", "solar subsidies", "grid storage", "rooftop solar news"},
		report:   "Capacity grew [1] while costs fell [3].",
	}
	o := newOrchestrator(t, types.DefaultResearchConfig(), searcher, llm.GeneratorFunc(model.generate))

	snap, err := o.Run(context.Background(), "solar power")
	require.NoError(t, err)

	assert.Equal(t, types.StateDone, snap.State)
	assert.False(t, snap.Aborted)
	assert.NotEmpty(t, snap.ID)
	assert.Equal(t, today, snap.StartedAt)
	assert.Equal(t, []types.State{
		types.StateInit, types.StateInitialSearch, types.StateAnalyze, types.StateSummarize,
		types.StateRefine, types.StateAnalyzeAll, types.StateSummarize,
		types.StateRefine, types.StateFinalize, types.StateDone,
	}, snap.StateHistory)

	assert.Equal(t, []string{"solar power", "solar panel cost", "solar subsidies", "grid storage", "rooftop solar news"}, searcher.queries())
	assert.Equal(t, 8, searcher.calls[0].Count)
	assert.Equal(t, 5, searcher.calls[1].Count)
	assert.Equal(t, []string{"solar panel cost", "solar subsidies", "grid storage", "rooftop solar news"}, snap.FollowUpQueries)
	assert.Equal(t, 3, snap.Iterations)

	var urls []string
	for _, h := range snap.Hits {
		urls = append(urls, h.URL)
	}
	assert.Equal(t, []string{"https://a.example", "https://b.example", "https://d.example", "https://e.example"}, urls)
	require.Len(t, snap.HitsByQuery, 3)
	assert.Equal(t, "solar power", snap.HitsByQuery[0].Query)
	assert.Len(t, snap.HitsByQuery[0].Hits, 2)
	assert.Equal(t, "solar panel cost", snap.HitsByQuery[1].Query)
	assert.Equal(t, "solar subsidies", snap.HitsByQuery[2].Query)

	require.Len(t, snap.Citations, 4)
	for i, c := range snap.Citations {
		assert.Equal(t, i+1, c.Number)
		assert.Equal(t, urls[i], c.SourceURL)
	}
	assert.True(t, snap.Citations[0].Referenced)
	assert.False(t, snap.Citations[1].Referenced)
	assert.True(t, snap.Citations[2].Referenced)

	assert.Contains(t, snap.Analysis, "combined fact")
	assert.Contains(t, snap.Summary, "conclusion")
	assert.Contains(t, snap.FinalReport, "Capacity grew [1]")
	assert.Len(t, snap.Generation, 7)
	for _, g := range snap.Generation {
		assert.Equal(t, string(structured.PathDirect), g.Path)
	}

	assert.Equal(t, 1, model.count("analysis"))
	assert.Equal(t, 1, model.count("analysis_all"))
	assert.Equal(t, 2, model.count("summary"))
	assert.Equal(t, 2, model.count("follow_up"))
	assert.Equal(t, 1, model.count("final"))
}

func TestRun_PromptsCarryContext(t *testing.T) {
	searcher := &fakeSearcher{results: map[string][]types.SearchHit{
		"solar power":      {hit("https://a.example", 0.9)},
		"solar panel cost": {hit("https://d.example", 0.8)},
	}}
	model := &scriptedModel{keywords: []string{"solar panel cost"}, report: "done"}
	cfg := types.DefaultResearchConfig()
	cfg.Iteration.MaxIterations = 2
	o := newOrchestrator(t, cfg, searcher, llm.GeneratorFunc(model.generate))

	_, err := o.Run(context.Background(), "solar power")
	require.NoError(t, err)

	analysis := model.prompts["analysis"][0]
	assert.Contains(t, analysis, "Today is Sunday, 1 June 2025.")
	assert.Contains(t, analysis, "URL: https://a.example")
	assert.Contains(t, analysis, "Date: 2025年5月20日 -> 1 week ago (recent)")
	assert.Contains(t, analysis, "Reliability: 0.90 (general)")
	assert.NotContains(t, analysis, "Search query:")

	all := model.prompts["analysis_all"][0]
	assert.Contains(t, all, "Search query: solar panel cost")
	assert.Contains(t, all, "[2] Title: Title https://d.example")

	final := model.prompts["final"][0]
	assert.Contains(t, final, "[1] Title https://a.example (https://a.example) - 2025年5月20日, 1 week ago")
	assert.Contains(t, final, "[2] Title https://d.example (https://d.example)")
	assert.Contains(t, final, "executive_summary")
}

func TestRun_EmptyInitialSearchAborts(t *testing.T) {
	searcher := &fakeSearcher{}
	model := &scriptedModel{}
	o := newOrchestrator(t, types.DefaultResearchConfig(), searcher, llm.GeneratorFunc(model.generate))

	snap, err := o.Run(context.Background(), "nothing here")
	require.NoError(t, err)
	assert.Equal(t, types.StateAborted, snap.State)
	assert.True(t, snap.Aborted)
	assert.NotEmpty(t, snap.AbortReason)
	assert.Empty(t, snap.FinalReport)
	assert.Empty(t, snap.Citations)
	assert.Empty(t, snap.Hits)
	assert.Equal(t, []types.State{types.StateInit, types.StateInitialSearch, types.StateAborted}, snap.StateHistory)
	assert.Empty(t, model.prompts, "no generation after an empty initial search")
	assert.Len(t, searcher.calls, 1)
}

func TestRun_LowReliabilityInitialHitsAbort(t *testing.T) {
	searcher := &fakeSearcher{results: map[string][]types.SearchHit{
		"rumours": {hit("https://x.example", 0.1), hit("https://y.example", 0.29)},
	}}
	model := &scriptedModel{}
	o := newOrchestrator(t, types.DefaultResearchConfig(), searcher, llm.GeneratorFunc(model.generate))

	snap, err := o.Run(context.Background(), "rumours")
	require.NoError(t, err)
	assert.True(t, snap.Aborted)
	assert.Empty(t, model.prompts)
}

func TestRun_NoNewHitsFinalizesEarly(t *testing.T) {
	searcher := &fakeSearcher{results: map[string][]types.SearchHit{
		"solar power":      {hit("https://a.example", 0.9)},
		"solar panel cost": {hit("https://a.example", 0.9)},
	}}
	model := &scriptedModel{keywords: []string{"solar panel cost"}, report: "done"}
	o := newOrchestrator(t, types.DefaultResearchConfig(), searcher, llm.GeneratorFunc(model.generate))

	snap, err := o.Run(context.Background(), "solar power")
	require.NoError(t, err)
	assert.Equal(t, types.StateDone, snap.State)
	assert.Equal(t, []types.State{
		types.StateInit, types.StateInitialSearch, types.StateAnalyze, types.StateSummarize,
		types.StateRefine, types.StateFinalize, types.StateDone,
	}, snap.StateHistory)
	// The refiner pads a single candidate with modifier queries.
	assert.Equal(t, []string{"solar panel cost", "solar power latest information", "solar power news"}, snap.FollowUpQueries)
	assert.Equal(t, 2, snap.Iterations)
	assert.Len(t, snap.Hits, 1)
	assert.Equal(t, 0, model.count("analysis_all"))
}

func TestRun_NoFollowUpQueriesFinalizesEarly(t *testing.T) {
	searcher := &fakeSearcher{results: map[string][]types.SearchHit{
		"market analysis": {hit("https://a.example", 0.9)},
	}}
	model := &scriptedModel{keywords: []string{"keyword one", "market analysis"}, report: "done"}
	o := newOrchestrator(t, types.DefaultResearchConfig(), searcher, llm.GeneratorFunc(model.generate))

	snap, err := o.Run(context.Background(), "market analysis")
	require.NoError(t, err)
	assert.Equal(t, types.StateDone, snap.State)
	assert.Equal(t, []types.State{
		types.StateInit, types.StateInitialSearch, types.StateAnalyze, types.StateSummarize,
		types.StateRefine, types.StateFinalize, types.StateDone,
	}, snap.StateHistory)
	assert.Empty(t, snap.FollowUpQueries)
	assert.Equal(t, 1, snap.Iterations)
	assert.Len(t, searcher.calls, 1)
}

func TestRun_StopsWhenOnlyIssuedQueriesRemain(t *testing.T) {
	searcher := &fakeSearcher{results: map[string][]types.SearchHit{
		"solar power":                    {hit("https://a.example", 0.9)},
		"solar power latest information": {hit("https://b.example", 0.8)},
		"solar power news":               {hit("https://c.example", 0.8)},
	}}
	model := &scriptedModel{keywords: []string{"solar power"}, report: "done"}
	cfg := types.DefaultResearchConfig()
	cfg.Iteration.MaxIterations = 5
	o := newOrchestrator(t, cfg, searcher, llm.GeneratorFunc(model.generate))

	snap, err := o.Run(context.Background(), "solar power")
	require.NoError(t, err)
	assert.Equal(t, types.StateDone, snap.State)
	assert.Equal(t, []types.State{
		types.StateInit, types.StateInitialSearch, types.StateAnalyze, types.StateSummarize,
		types.StateRefine, types.StateAnalyzeAll, types.StateSummarize,
		types.StateRefine, types.StateFinalize, types.StateDone,
	}, snap.StateHistory)
	assert.Equal(t, []string{"solar power latest information", "solar power news"}, snap.FollowUpQueries)
	assert.Equal(t, 2, snap.Iterations, "ends before the bound of 5")
	assert.Equal(t, 2, model.count("follow_up"))
	assert.Len(t, searcher.calls, 3)
	assert.Len(t, snap.Hits, 3)
}

func TestRun_SingleIterationSkipsRefinement(t *testing.T) {
	searcher := &fakeSearcher{results: map[string][]types.SearchHit{
		"solar power": {hit("https://a.example", 0.9)},
	}}
	model := &scriptedModel{report: "done"}
	cfg := types.DefaultResearchConfig()
	cfg.Iteration.MaxIterations = 1
	o := newOrchestrator(t, cfg, searcher, llm.GeneratorFunc(model.generate))

	snap, err := o.Run(context.Background(), "solar power")
	require.NoError(t, err)
	assert.Equal(t, []types.State{
		types.StateInit, types.StateInitialSearch, types.StateAnalyze, types.StateSummarize,
		types.StateFinalize, types.StateDone,
	}, snap.StateHistory)
	assert.Equal(t, 0, model.count("follow_up"))
}

func TestRun_FollowUpsCappedAndBounded(t *testing.T) {
	results := map[string][]types.SearchHit{"solar power": {hit("https://a.example", 0.9)}}
	var keywords []string
	for i := 0; i < 5; i++ {
		q := fmt.Sprintf("solar topic %d", i)
		keywords = append(keywords, q)
		results[q] = []types.SearchHit{hit(fmt.Sprintf("https://t%d.example", i), 0.7)}
	}
	searcher := &fakeSearcher{results: results}
	model := &scriptedModel{keywords: keywords, report: "done"}
	cfg := types.DefaultResearchConfig()
	cfg.Iteration.MaxIterations = 2
	cfg.Iteration.MaxFollowUpQueries = 2
	o := newOrchestrator(t, cfg, searcher, llm.GeneratorFunc(model.generate))

	snap, err := o.Run(context.Background(), "solar power")
	require.NoError(t, err)
	assert.Equal(t, []string{"solar topic 0", "solar topic 1"}, snap.FollowUpQueries)
	assert.Equal(t, 1, model.count("follow_up"))
	assert.Equal(t, 2, snap.Iterations)
	assert.Len(t, snap.Hits, 3)
}

func TestRun_GenerationFailuresStillFinish(t *testing.T) {
	searcher := &fakeSearcher{results: map[string][]types.SearchHit{
		"solar power": {hit("https://a.example", 0.9)},
	}}
	gen := llm.GeneratorFunc(func(context.Context, string) llm.Result { return llm.Fatal("model unavailable") })
	o := newOrchestrator(t, types.DefaultResearchConfig(), searcher, gen)

	snap, err := o.Run(context.Background(), "solar power")
	require.NoError(t, err)
	assert.Equal(t, types.StateDone, snap.State)
	assert.NotEmpty(t, snap.Analysis)
	assert.NotEmpty(t, snap.Summary)
	assert.NotEmpty(t, snap.FinalReport)
	for _, g := range snap.Generation {
		assert.Equal(t, string(structured.PathFallback), g.Path)
	}
	assert.Equal(t, []string{"solar power latest information", "solar power news"}, snap.FollowUpQueries)
}

func TestRun_SearcherErrorIsReturned(t *testing.T) {
	searcher := &fakeSearcher{err: fmt.Errorf("google: %w", httputil.ErrUnauthorized)}
	model := &scriptedModel{}
	o := newOrchestrator(t, types.DefaultResearchConfig(), searcher, llm.GeneratorFunc(model.generate))

	snap, err := o.Run(context.Background(), "solar power")
	require.Error(t, err)
	assert.True(t, errors.Is(err, httputil.ErrUnauthorized))
	assert.Equal(t, types.StateAborted, snap.State)
	assert.True(t, snap.Aborted)
}

func TestRun_ContextCancelled(t *testing.T) {
	searcher := &fakeSearcher{results: map[string][]types.SearchHit{
		"solar power": {hit("https://a.example", 0.9)},
	}}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	gen := llm.GeneratorFunc(func(context.Context, string) llm.Result {
		cancel()
		return llm.Fatal("context canceled")
	})
	o := newOrchestrator(t, types.DefaultResearchConfig(), searcher, gen)

	snap, err := o.Run(ctx, "solar power")
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, types.StateAborted, snap.State)
	assert.Equal(t, []types.State{
		types.StateInit, types.StateInitialSearch, types.StateAnalyze, types.StateAborted,
	}, snap.StateHistory)
}

func TestRun_ForcedBackend(t *testing.T) {
	searcher := &fakeSearcher{results: map[string][]types.SearchHit{
		"solar power": {hit("https://a.example", 0.9)},
	}}
	model := &scriptedModel{keywords: []string{"solar panel cost"}, report: "done"}
	o := newOrchestrator(t, types.DefaultResearchConfig(), searcher, llm.GeneratorFunc(model.generate), WithBackend("duckduckgo"))

	_, err := o.Run(context.Background(), "solar power")
	require.NoError(t, err)
	require.NotEmpty(t, searcher.calls)
	for _, c := range searcher.calls {
		assert.Equal(t, "duckduckgo", c.Hint)
	}
}

func TestRun_SessionsHaveDistinctIDs(t *testing.T) {
	searcher := &fakeSearcher{}
	o := newOrchestrator(t, types.DefaultResearchConfig(), searcher, llm.GeneratorFunc((&scriptedModel{}).generate))
	a, _ := o.Run(context.Background(), "q")
	b, _ := o.Run(context.Background(), "q")
	assert.NotEqual(t, a.ID, b.ID)
}
