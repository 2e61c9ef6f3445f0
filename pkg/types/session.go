// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// State names a step of the research state machine.
type State string

const (
	StateInit          State = "init"
	StateInitialSearch State = "initial_search"
	StateAnalyze       State = "analyze"
	StateSummarize     State = "summarize"
	StateRefine        State = "refine"
	StateAnalyzeAll    State = "analyze_all"
	StateFinalize      State = "finalize"
	StateDone          State = "done"
	StateAborted       State = "aborted"
)

// Terminal reports whether no further transition can follow s.
func (s State) Terminal() bool {
	return s == StateDone || s == StateAborted
}

// QueryHits groups the hits first contributed by one query.
type QueryHits struct {
	Query string      `json:"query" yaml:"query"`
	Hits  []SearchHit `json:"hits" yaml:"hits"`
}

// StageOutcome records how a structured generation stage produced its value:
// "direct", "repaired", or "repair-fallback".
type StageOutcome struct {
	Stage string `json:"stage" yaml:"stage"`
	Path  string `json:"path" yaml:"path"`
}

// SessionSnapshot is the read-only view of a finished research session
// handed to report renderers and archives.
type SessionSnapshot struct {
	ID         string    `json:"id" yaml:"id"`
	Query      string    `json:"query" yaml:"query"`
	StartedAt  time.Time `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time `json:"finished_at" yaml:"finished_at"`

	State       State  `json:"state" yaml:"state"`
	Aborted     bool   `json:"aborted" yaml:"aborted"`
	AbortReason string `json:"abort_reason,omitempty" yaml:"abort_reason,omitempty"`

	// Hits is the session hit set in insertion order, unique by URL.
	Hits        []SearchHit `json:"hits" yaml:"hits"`
	HitsByQuery []QueryHits `json:"hits_by_query" yaml:"hits_by_query"`

	// FollowUpQueries lists every follow-up query issued, in order.
	FollowUpQueries []string `json:"follow_up_queries" yaml:"follow_up_queries"`

	Analysis    string     `json:"analysis,omitempty" yaml:"analysis,omitempty"`
	Summary     string     `json:"summary,omitempty" yaml:"summary,omitempty"`
	FinalReport string     `json:"final_report,omitempty" yaml:"final_report,omitempty"`
	Citations   []Citation `json:"citations" yaml:"citations"`

	// Iterations counts completed search rounds, the initial search included.
	Iterations   int            `json:"iterations" yaml:"iterations"`
	StateHistory []State        `json:"state_history" yaml:"state_history"`
	Generation   []StageOutcome `json:"generation" yaml:"generation"`
}
