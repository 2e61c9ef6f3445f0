// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package research runs a research session: an initial search, structured
// analysis and summary, a bounded number of refinement rounds driven by
// model-proposed follow-up queries, and a final cited report.
package research

import (
	"context"
	"fmt"
	"sort"
	"text/template"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pdiddy/deep-research/internal/citation"
	"github.com/pdiddy/deep-research/internal/refine"
	"github.com/pdiddy/deep-research/internal/structured"
	"github.com/pdiddy/deep-research/pkg/types"
)

// Searcher retrieves enriched hits for a query. A non-nil error is fatal to
// the session; transport failures are expected to surface as empty results.
// search.Gateway satisfies this interface.
type Searcher interface {
	Search(ctx context.Context, query string, count int, hint string) ([]types.SearchHit, error)
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger. The default discards output.
func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithClock sets the source of the session start time, which is also the
// reference date for temporal classification.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// WithBackend forces every search in the session to one backend.
func WithBackend(name string) Option {
	return func(o *Orchestrator) { o.backend = name }
}

// Orchestrator drives research sessions. A single Orchestrator may run
// sessions sequentially or concurrently; sessions share no state beyond the
// searcher and adapter.
type Orchestrator struct {
	cfg       types.ResearchConfig
	searcher  Searcher
	adapter   *structured.Adapter
	citations *citation.Manager
	logger    *zap.Logger
	now       func() time.Time
	backend   string
}

// New returns an Orchestrator that searches with searcher and generates
// structured output with adapter.
func New(cfg types.ResearchConfig, searcher Searcher, adapter *structured.Adapter, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cfg:       cfg,
		searcher:  searcher,
		adapter:   adapter,
		citations: citation.NewManager(cfg.Citations),
		logger:    zap.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// session is the mutable state of one Run.
type session struct {
	snap   types.SessionSnapshot
	hits   *HitSet
	issued map[string]bool
	today  time.Time
	log    *zap.Logger

	analysis string
	summary  string
}

func (s *session) enter(state types.State) {
	s.snap.State = state
	s.snap.StateHistory = append(s.snap.StateHistory, state)
	s.log.Debug("state transition", zap.String("state", string(state)))
}

func (s *session) record(stage types.State, path structured.Path) {
	s.snap.Generation = append(s.snap.Generation, types.StageOutcome{Stage: string(stage), Path: string(path)})
}

// Run executes one research session for query. An empty initial search ends
// the session in the aborted state with a nil error. Run returns an error
// only when the searcher reports a fatal error or ctx ends; the snapshot is
// returned in the aborted state in both cases.
func (o *Orchestrator) Run(ctx context.Context, query string) (types.SessionSnapshot, error) {
	start := o.now()
	s := &session{
		snap: types.SessionSnapshot{
			ID:              uuid.NewString(),
			Query:           query,
			StartedAt:       start,
			FollowUpQueries: []string{},
			Citations:       []types.Citation{},
		},
		hits:   NewHitSet(),
		issued: map[string]bool{query: true},
		today:  start,
	}
	s.log = o.logger.With(zap.String("session", s.snap.ID))
	s.enter(types.StateInit)
	s.log.Info("research started", zap.String("query", query))

	s.enter(types.StateInitialSearch)
	initial, err := o.searcher.Search(ctx, query, o.cfg.Iteration.InitialResultCount, o.backend)
	if err != nil {
		return o.fail(s, fmt.Errorf("initial search: %w", err))
	}
	initial = filterByReliability(sortByReliability(initial), o.cfg.Citations.ReliabilityThreshold)
	s.snap.Iterations = 1
	if len(initial) == 0 {
		return o.abort(s, "initial search returned no usable results"), nil
	}
	s.hits.AddAll(initial)
	s.log.Info("initial search complete", zap.Int("hits", len(initial)))

	s.enter(types.StateAnalyze)
	if err := o.analyze(ctx, s, analysisPromptTmpl, viewHits(initial, s.today, false)); err != nil {
		return o.fail(s, err)
	}
	if err := o.summarize(ctx, s); err != nil {
		return o.fail(s, err)
	}

	for round := 1; round < o.cfg.Iteration.MaxIterations; round++ {
		s.enter(types.StateRefine)
		queries, err := o.followUps(ctx, s)
		if err != nil {
			return o.fail(s, err)
		}
		if len(queries) == 0 {
			s.log.Info("no new follow-up queries", zap.Int("round", round))
			break
		}

		added := 0
		for _, q := range queries {
			s.issued[q] = true
			s.snap.FollowUpQueries = append(s.snap.FollowUpQueries, q)
			hits, err := o.searcher.Search(ctx, q, o.cfg.Iteration.AdditionalResultCount, o.backend)
			if err != nil {
				return o.fail(s, fmt.Errorf("follow-up search %q: %w", q, err))
			}
			n := s.hits.AddAll(hits)
			added += n
			s.log.Info("follow-up search", zap.String("query", q), zap.Int("hits", len(hits)), zap.Int("new", n))
		}
		s.snap.Iterations++
		if added == 0 {
			s.log.Info("follow-up searches found nothing new", zap.Int("round", round))
			break
		}

		s.enter(types.StateAnalyzeAll)
		if err := o.analyze(ctx, s, analysisAllPromptTmpl, viewHits(s.hits.Hits(), s.today, true)); err != nil {
			return o.fail(s, err)
		}
		if err := o.summarize(ctx, s); err != nil {
			return o.fail(s, err)
		}
		s.log.Info("refinement round complete", zap.Int("round", round), zap.Int("total_hits", s.hits.Len()))
	}

	s.enter(types.StateFinalize)
	if err := o.finalize(ctx, s); err != nil {
		return o.fail(s, err)
	}
	s.enter(types.StateDone)
	o.complete(s)
	s.log.Info("research complete",
		zap.Int("hits", len(s.snap.Hits)),
		zap.Int("citations", len(s.snap.Citations)),
		zap.Int("iterations", s.snap.Iterations))
	return s.snap, nil
}

func (o *Orchestrator) analyze(ctx context.Context, s *session, tmpl *template.Template, hits []hitView) error {
	prompt, err := renderPrompt(tmpl, promptData{Today: formatDay(s.today), Query: s.snap.Query, Hits: hits})
	if err != nil {
		return err
	}
	res := structured.Generate(ctx, o.adapter, prompt, structured.AnalysisSchema)
	s.record(s.snap.State, res.Path)
	s.analysis = res.Value.Text()
	return ctx.Err()
}

func (o *Orchestrator) summarize(ctx context.Context, s *session) error {
	s.enter(types.StateSummarize)
	prompt, err := renderPrompt(summaryPromptTmpl, promptData{Query: s.snap.Query, Analysis: s.analysis})
	if err != nil {
		return err
	}
	res := structured.Generate(ctx, o.adapter, prompt, structured.SummarySchema)
	s.record(types.StateSummarize, res.Path)
	s.summary = res.Value.Text()
	return ctx.Err()
}

// followUps proposes, cleans, and filters the next round of queries.
func (o *Orchestrator) followUps(ctx context.Context, s *session) ([]string, error) {
	prompt, err := renderPrompt(followUpPromptTmpl, promptData{
		Today:    formatDay(s.today),
		Query:    s.snap.Query,
		Analysis: s.analysis,
		Summary:  s.summary,
		Issued:   s.snap.FollowUpQueries,
	})
	if err != nil {
		return nil, err
	}
	res := structured.Generate(ctx, o.adapter, prompt, structured.FollowUpSchema)
	s.record(types.StateRefine, res.Path)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var queries []string
	for _, q := range refine.ValidateAndImprove(res.Value.Keywords, s.snap.Query) {
		if s.issued[q] {
			continue
		}
		queries = append(queries, q)
		if len(queries) == o.cfg.Iteration.MaxFollowUpQueries {
			break
		}
	}
	return queries, nil
}

func (o *Orchestrator) finalize(ctx context.Context, s *session) error {
	citations := o.citations.Create(s.hits.Hits())
	prompt, err := renderPrompt(finalReportPromptTmpl, promptData{
		Today:    formatDay(s.today),
		Query:    s.snap.Query,
		Analysis: s.analysis,
		Summary:  s.summary,
		Sources:  sourceLines(citations, s.today),
	})
	if err != nil {
		return err
	}
	res := structured.Generate(ctx, o.adapter, prompt, structured.FinalReportSchema)
	s.record(types.StateFinalize, res.Path)
	if err := ctx.Err(); err != nil {
		return err
	}

	s.snap.FinalReport = res.Value.Text()
	referenced := citation.MarkReferenced(citations, s.snap.FinalReport)
	s.snap.Citations = citations
	s.log.Info("final report generated", zap.Int("citations", len(citations)), zap.Int("referenced", referenced))
	return nil
}

// complete copies the accumulated session data into the snapshot.
func (o *Orchestrator) complete(s *session) {
	s.snap.Hits = s.hits.Hits()
	s.snap.HitsByQuery = s.hits.ByQuery()
	s.snap.Analysis = s.analysis
	s.snap.Summary = s.summary
	s.snap.FinishedAt = o.now()
}

func (o *Orchestrator) abort(s *session, reason string) types.SessionSnapshot {
	s.snap.Aborted = true
	s.snap.AbortReason = reason
	s.enter(types.StateAborted)
	o.complete(s)
	s.log.Warn("research aborted", zap.String("reason", reason))
	return s.snap
}

func (o *Orchestrator) fail(s *session, err error) (types.SessionSnapshot, error) {
	return o.abort(s, err.Error()), err
}

func sortByReliability(hits []types.SearchHit) []types.SearchHit {
	sorted := make([]types.SearchHit, len(hits))
	copy(sorted, hits)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Reliability > sorted[j].Reliability })
	return sorted
}

func filterByReliability(hits []types.SearchHit, threshold float64) []types.SearchHit {
	var kept []types.SearchHit
	for _, h := range hits {
		if h.Reliability >= threshold {
			kept = append(kept, h)
		}
	}
	return kept
}

func formatDay(t time.Time) string {
	return t.Format("Monday, 2 January 2006")
}
