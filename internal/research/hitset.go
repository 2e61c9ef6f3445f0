// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package research

import "github.com/pdiddy/deep-research/pkg/types"

// HitSet is an insertion-ordered set of search hits keyed by URL. The first
// hit seen for a URL wins. HitSet is not safe for concurrent use.
type HitSet struct {
	hits  []types.SearchHit
	index map[string]int
}

// NewHitSet returns an empty set.
func NewHitSet() *HitSet {
	return &HitSet{index: make(map[string]int)}
}

// Add inserts h unless a hit with the same URL is present. It reports
// whether h was inserted.
func (s *HitSet) Add(h types.SearchHit) bool {
	if _, ok := s.index[h.URL]; ok {
		return false
	}
	s.index[h.URL] = len(s.hits)
	s.hits = append(s.hits, h)
	return true
}

// AddAll inserts each hit in order and returns how many were new.
func (s *HitSet) AddAll(hits []types.SearchHit) int {
	added := 0
	for _, h := range hits {
		if s.Add(h) {
			added++
		}
	}
	return added
}

// Len returns the number of hits in the set.
func (s *HitSet) Len() int { return len(s.hits) }

// Contains reports whether a hit with url is present.
func (s *HitSet) Contains(url string) bool {
	_, ok := s.index[url]
	return ok
}

// Hits returns a copy of the hits in insertion order.
func (s *HitSet) Hits() []types.SearchHit {
	out := make([]types.SearchHit, len(s.hits))
	copy(out, s.hits)
	return out
}

// ByQuery groups the hits by the query that first contributed them, in
// order of each query's first hit.
func (s *HitSet) ByQuery() []types.QueryHits {
	groups := []types.QueryHits{}
	pos := make(map[string]int)
	for _, h := range s.hits {
		i, ok := pos[h.Query]
		if !ok {
			i = len(groups)
			pos[h.Query] = i
			groups = append(groups, types.QueryHits{Query: h.Query})
		}
		groups[i].Hits = append(groups[i].Hits, h)
	}
	return groups
}
