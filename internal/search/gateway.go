// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/pdiddy/deep-research/internal/httputil"
	"github.com/pdiddy/deep-research/pkg/types"
)

// PreferAuto selects the first configured backend in registration order.
const PreferAuto = "auto"

// minSimplifyHits is the result count below which a simplifying backend
// retries with a shortened query.
const minSimplifyHits = 3

// Registration attaches pacing and retry settings to a backend.
type Registration struct {
	Backend Backend

	// RequestsPerSecond paces dispatched requests; zero or less disables pacing.
	RequestsPerSecond float64
	MaxRetries        int
	RetryBaseDelay    time.Duration

	// Simplify retries sparse result sets with SimplifyQuery.
	Simplify bool
}

// GatewayOptions configures a Gateway.
type GatewayOptions struct {
	// Preferred names the backend tried first, or PreferAuto.
	Preferred string

	// Backends lists the backends in failover order.
	Backends []Registration

	Logger  *zap.Logger
	Metrics *Metrics
}

type slot struct {
	Registration
	limiter *rate.Limiter
}

type cacheKey struct {
	query   string
	count   int
	backend string
}

// Gateway fronts a set of backends for one research session. It is safe for
// concurrent use.
type Gateway struct {
	preferred string
	slots     []*slot
	logger    *zap.Logger
	metrics   *Metrics

	mu    sync.Mutex
	cache map[cacheKey][]types.SearchHit
}

// NewGateway builds a gateway over opts.Backends. Preferred must be empty,
// PreferAuto, or the name of a registered backend.
func NewGateway(opts GatewayOptions) (*Gateway, error) {
	if len(opts.Backends) == 0 {
		return nil, errors.New("no search backends registered")
	}
	g := &Gateway{
		preferred: opts.Preferred,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
		cache:     make(map[cacheKey][]types.SearchHit),
	}
	if g.preferred == "" {
		g.preferred = PreferAuto
	}
	if g.logger == nil {
		g.logger = zap.NewNop()
	}
	for _, reg := range opts.Backends {
		limit := rate.Inf
		if reg.RequestsPerSecond > 0 {
			limit = rate.Limit(reg.RequestsPerSecond)
		}
		g.slots = append(g.slots, &slot{Registration: reg, limiter: rate.NewLimiter(limit, 1)})
	}
	if g.preferred != PreferAuto && g.slot(g.preferred) == nil {
		return nil, fmt.Errorf("unknown preferred search backend %q", g.preferred)
	}
	return g, nil
}

// NewGatewayFromConfig registers the Google backend followed by the
// DuckDuckGo backend using cfg.
func NewGatewayFromConfig(cfg types.SearchConfig, client *http.Client, logger *zap.Logger, metrics *Metrics) (*Gateway, error) {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return NewGateway(GatewayOptions{
		Preferred: cfg.Preferred,
		Logger:    logger,
		Metrics:   metrics,
		Backends: []Registration{
			{
				Backend: &GoogleBackend{
					Client:    client,
					APIKey:    cfg.Google.APIKey,
					EngineID:  cfg.Google.EngineID,
					UserAgent: cfg.UserAgent,
				},
				RequestsPerSecond: cfg.Google.RequestsPerSecond,
				MaxRetries:        cfg.Google.MaxRetries,
				RetryBaseDelay:    cfg.Google.RetryBaseDelay,
			},
			{
				Backend:           &DuckDuckGoBackend{Client: client, UserAgent: cfg.UserAgent},
				RequestsPerSecond: cfg.DuckDuckGo.RequestsPerSecond,
				MaxRetries:        cfg.DuckDuckGo.MaxRetries,
				RetryBaseDelay:    cfg.DuckDuckGo.RetryBaseDelay,
				Simplify:          true,
			},
		},
	})
}

// Backends returns the names of the configured backends in failover order.
func (g *Gateway) Backends() []string {
	var names []string
	for _, s := range g.order() {
		if s.Backend.Configured() {
			names = append(names, s.Backend.Name())
		}
	}
	return names
}

// Search returns up to count scored hits for query. A non-empty hint forces
// that backend and disables failover. Recoverable failures degrade to an
// empty result; the error is non-nil only for rejected or missing
// credentials on a forced backend, an unknown hint, or a cancelled context.
func (g *Gateway) Search(ctx context.Context, query string, count int, hint string) ([]types.SearchHit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if count < 1 {
		count = 1
	}

	if hint != "" {
		s := g.slot(hint)
		if s == nil {
			return nil, fmt.Errorf("unknown search backend %q", hint)
		}
		if !s.Backend.Configured() {
			return nil, fmt.Errorf("search backend %s: %w: not configured", hint, httputil.ErrUnauthorized)
		}
		return g.searchBackend(ctx, s, query, count)
	}

	order := g.order()
	for i, s := range order {
		name := s.Backend.Name()
		last := i == len(order)-1
		if !s.Backend.Configured() {
			if !last {
				g.logger.Warn("search backend not configured, failing over", zap.String("backend", name))
				g.metrics.failover(name, "unconfigured")
			}
			continue
		}

		hits, err := g.searchBackend(ctx, s, query, count)
		if err != nil {
			return nil, err
		}
		if len(hits) > 0 {
			return hits, nil
		}
		if !last {
			g.logger.Warn("search backend returned no results, failing over",
				zap.String("backend", name), zap.String("query", query))
			g.metrics.failover(name, "empty")
		}
	}
	return []types.SearchHit{}, nil
}

// order returns the slots with the preferred backend first.
func (g *Gateway) order() []*slot {
	if g.preferred == PreferAuto {
		return g.slots
	}
	ordered := make([]*slot, 0, len(g.slots))
	for _, s := range g.slots {
		if s.Backend.Name() == g.preferred {
			ordered = append(ordered, s)
		}
	}
	for _, s := range g.slots {
		if s.Backend.Name() != g.preferred {
			ordered = append(ordered, s)
		}
	}
	return ordered
}

func (g *Gateway) slot(name string) *slot {
	for _, s := range g.slots {
		if s.Backend.Name() == name {
			return s
		}
	}
	return nil
}

func (g *Gateway) searchBackend(ctx context.Context, s *slot, query string, count int) ([]types.SearchHit, error) {
	name := s.Backend.Name()
	key := cacheKey{query: query, count: count, backend: name}

	g.mu.Lock()
	cached, ok := g.cache[key]
	g.mu.Unlock()
	if ok {
		g.metrics.cacheHit(name)
		g.logger.Debug("search cache hit", zap.String("backend", name), zap.String("query", query))
		return clone(cached), nil
	}

	raw, answered, err := g.fetch(ctx, s, query, count)
	if err != nil {
		return nil, err
	}
	hits := enrich(raw, query, name, count)

	if s.Simplify && len(hits) < minSimplifyHits && len(strings.Fields(query)) > simplifiedTokens {
		if simple := SimplifyQuery(query); simple != "" && simple != query {
			g.logger.Info("retrying with simplified query",
				zap.String("backend", name), zap.String("query", query), zap.String("simplified", simple))
			more, ok, err := g.fetch(ctx, s, simple, count)
			if err != nil {
				return nil, err
			}
			answered = answered && ok
			hits = appendUnique(hits, enrich(more, query, name, count))
		}
	}

	// A result degraded by exhausted retries is not cached, so a later call
	// can recover. An answered "no results" is.
	if answered {
		g.mu.Lock()
		g.cache[key] = clone(hits)
		g.mu.Unlock()
	}
	return hits, nil
}

// fetch paces and retries one backend call. Exhausted or non-retryable
// failures are logged and reported as no results with answered false.
func (g *Gateway) fetch(ctx context.Context, s *slot, query string, count int) (raw []RawHit, answered bool, err error) {
	name := s.Backend.Name()
	start := time.Now()

	onRetry := func(attempt int, delay time.Duration, err error) {
		g.metrics.retry(name)
		g.logger.Warn("search backend retry",
			zap.String("backend", name),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err))
	}
	err = httputil.Retry(ctx, s.MaxRetries, s.RetryBaseDelay, onRetry, func(ctx context.Context) error {
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}
		var err error
		raw, err = s.Backend.Search(ctx, query, count)
		return err
	})

	switch {
	case err == nil:
		outcome := "ok"
		if len(raw) == 0 {
			outcome = "empty"
		}
		g.metrics.request(name, outcome, time.Since(start))
		return raw, true, nil
	case httputil.IsFatal(err):
		g.metrics.request(name, "fatal", time.Since(start))
		return nil, false, err
	case ctx.Err() != nil:
		g.metrics.request(name, "error", time.Since(start))
		return nil, false, ctx.Err()
	default:
		g.metrics.request(name, "error", time.Since(start))
		g.logger.Warn("search backend failed",
			zap.String("backend", name), zap.String("query", query), zap.Error(err))
		return nil, false, nil
	}
}

func clone(hits []types.SearchHit) []types.SearchHit {
	return append([]types.SearchHit(nil), hits...)
}
