// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package research

import (
	"bytes"
	"fmt"
	"text/template"
	"time"

	"github.com/pdiddy/deep-research/internal/citation"
	"github.com/pdiddy/deep-research/internal/temporal"
	"github.com/pdiddy/deep-research/pkg/types"
)

var promptFuncs = template.FuncMap{
	"score": func(f float64) string { return fmt.Sprintf("%.2f", f) },
}

// hitBlock renders one search hit with its date and reliability context.
const hitBlock = `{{define "hit"}}[{{.N}}] Title: {{.Title}}
URL: {{.URL}}
Content: {{.Snippet}}
{{- if .ShowQuery}}
Search query: {{.Query}}{{end}}
Date: {{if .DateText}}{{.DateText}}{{else}}unknown{{end}} -> {{.Relative}}{{.Status}}
Reliability: {{score .Reliability}} ({{.Category}})
{{end}}`

var analysisPromptTmpl = template.Must(template.New("analysis").Funcs(promptFuncs).Parse(hitBlock + `Today is {{.Today}}.

Analyze "{{.Query}}" using only the search results below. Do not speculate about anything the results do not contain; report facts only.

Search results:
{{range .Hits}}
{{template "hit" .}}{{end}}
Cover the following:
- the main facts in the results, most important first
- concrete data and statistics
- differing viewpoints or opinions
- the date of each piece of information and how it relates to today
- which items are future plans and which are past events
- what remains unclear and should be researched further
`))

var analysisAllPromptTmpl = template.Must(template.New("analysis_all").Funcs(promptFuncs).Parse(hitBlock + `Today is {{.Today}}.

Write a comprehensive analysis of "{{.Query}}" using only all of the search results below, which were collected across several searches. Do not speculate about anything the results do not contain; report facts only.

Search results:
{{range .Hits}}
{{template "hit" .}}{{end}}
Cover the following:
- the main facts in the results, most important first
- concrete data and statistics
- a comparison of differing viewpoints
- the date of each piece of information and how it relates to today
- which items are future plans and which are past events
- information from the most reliable sources
- what remains unclear or unresolved
`))

var summaryPromptTmpl = template.Must(template.New("summary").Parse(`Write a concise summary of "{{.Query}}" using only the analysis below. Do not add information the analysis does not contain.

Analysis:
{{.Analysis}}

Include:
- the three to five most important facts
- the date of each fact when the analysis gives one
- a conclusion limited to what the results support
`))

var followUpPromptTmpl = template.Must(template.New("follow_up").Parse(`Today is {{.Today}}.

Review the research below and propose search queries that would fill its gaps.

Original query: {{.Query}}

Analysis:
{{.Analysis}}

Summary:
{{.Summary}}
{{if .Issued}}
Queries already searched (do not repeat them):
{{range .Issued}}- {{.}}
{{end}}{{end}}
Consider:
1. concepts the analysis mentions without enough detail
2. related technical terms
3. comparable cases or data
4. the latest information and statistics
5. opposing or differing views
6. past plans or release dates whose actual outcome should be confirmed
7. future plans whose latest progress should be checked

Propose at most five specific, searchable queries.
`))

var finalReportPromptTmpl = template.Must(template.New("final_report").Parse(`Today is {{.Today}}.

Write a research-quality report on "{{.Query}}" using only the analysis and summary below. Do not speculate about anything the search results do not contain.

Analysis:
{{.Analysis}}

Summary:
{{.Summary}}

Available sources:
{{range .Sources}}{{.}}
{{else}}(none)
{{end}}
Structure the report as an executive summary, background, main findings, data and statistics, a comparison of perspectives, conclusions, and future research directions.
Cite sources inline as [1], [2] using the numbers above. State the date of each piece of information and how it relates to today, and keep future plans apart from past events.
`))

// hitView is the template view of a search hit.
type hitView struct {
	types.SearchHit
	N         int
	Relative  string
	Status    string
	ShowQuery bool
}

func viewHits(hits []types.SearchHit, today time.Time, showQuery bool) []hitView {
	views := make([]hitView, len(hits))
	for i, h := range hits {
		fact := temporal.Classify(h.DateText, today)
		views[i] = hitView{
			SearchHit: h,
			N:         i + 1,
			Relative:  "unknown date",
			Status:    dateStatus(fact),
			ShowQuery: showQuery,
		}
		if fact.Valid {
			views[i].Relative = fact.Relative
		}
	}
	return views
}

func dateStatus(f types.TemporalFact) string {
	switch f.Class {
	case types.TemporalFuture:
		return " (future plan)"
	case types.TemporalRecent:
		return " (recent)"
	case types.TemporalPast:
		return " (past)"
	}
	return ""
}

// sourceLines renders citations for the final report prompt.
func sourceLines(citations []types.Citation, today time.Time) []string {
	lines := make([]string, len(citations))
	for i, c := range citations {
		line := citation.Format(c)
		if fact := temporal.Classify(c.DateText, today); fact.Valid {
			line += fmt.Sprintf(" - %s, %s", c.DateText, fact.Relative)
		}
		lines[i] = line
	}
	return lines
}

type promptData struct {
	Today    string
	Query    string
	Hits     []hitView
	Analysis string
	Summary  string
	Issued   []string
	Sources  []string
}

// renderPrompt executes tmpl with data.
func renderPrompt(tmpl *template.Template, data promptData) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering %s prompt: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}
