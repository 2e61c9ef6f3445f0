// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package structured

import (
	"errors"
	"strings"
)

// Analysis is the structured analysis of a set of search results.
type Analysis struct {
	MainFacts             []string `json:"main_facts" yaml:"main_facts"`
	DataStatistics        []string `json:"data_statistics,omitempty" yaml:"data_statistics,omitempty"`
	DifferentPerspectives []string `json:"different_perspectives,omitempty" yaml:"different_perspectives,omitempty"`
	DateAnalysis          []string `json:"date_analysis,omitempty" yaml:"date_analysis,omitempty"`
	UnknownPoints         []string `json:"unknown_points,omitempty" yaml:"unknown_points,omitempty"`
}

// Text renders the analysis as plain text sections.
func (a Analysis) Text() string {
	var b strings.Builder
	writeList(&b, "Main facts", a.MainFacts)
	writeList(&b, "Data and statistics", a.DataStatistics)
	writeList(&b, "Perspectives", a.DifferentPerspectives)
	writeList(&b, "Dates", a.DateAnalysis)
	writeList(&b, "Open questions", a.UnknownPoints)
	return strings.TrimSpace(b.String())
}

// Summary condenses an analysis.
type Summary struct {
	KeyFacts    []string `json:"key_facts" yaml:"key_facts"`
	Conclusion  string   `json:"conclusion" yaml:"conclusion"`
	DateSummary string   `json:"date_summary,omitempty" yaml:"date_summary,omitempty"`
}

func (s Summary) Text() string {
	var b strings.Builder
	writeList(&b, "Key facts", s.KeyFacts)
	writeParagraph(&b, "Conclusion", s.Conclusion)
	writeParagraph(&b, "Timeline", s.DateSummary)
	return strings.TrimSpace(b.String())
}

// FollowUpQueries holds candidate search queries for the next round.
type FollowUpQueries struct {
	Keywords []string `json:"keywords" yaml:"keywords"`
}

func (f FollowUpQueries) Text() string {
	var b strings.Builder
	writeList(&b, "Follow-up queries", f.Keywords)
	return strings.TrimSpace(b.String())
}

// FinalReport is the closing report of a research session.
type FinalReport struct {
	ExecutiveSummary string   `json:"executive_summary" yaml:"executive_summary"`
	Background       string   `json:"background,omitempty" yaml:"background,omitempty"`
	Findings         []string `json:"findings,omitempty" yaml:"findings,omitempty"`
	DataPoints       []string `json:"data_points,omitempty" yaml:"data_points,omitempty"`
	Perspectives     []string `json:"perspectives,omitempty" yaml:"perspectives,omitempty"`
	Conclusions      string   `json:"conclusions,omitempty" yaml:"conclusions,omitempty"`
	FutureDirections []string `json:"future_directions,omitempty" yaml:"future_directions,omitempty"`
}

func (r FinalReport) Text() string {
	var b strings.Builder
	writeParagraph(&b, "Executive summary", r.ExecutiveSummary)
	writeParagraph(&b, "Background", r.Background)
	writeList(&b, "Findings", r.Findings)
	writeList(&b, "Data", r.DataPoints)
	writeList(&b, "Perspectives", r.Perspectives)
	writeParagraph(&b, "Conclusions", r.Conclusions)
	writeList(&b, "Future directions", r.FutureDirections)
	return strings.TrimSpace(b.String())
}

func writeList(b *strings.Builder, heading string, items []string) {
	var kept []string
	for _, it := range items {
		if it = strings.TrimSpace(it); it != "" {
			kept = append(kept, it)
		}
	}
	if len(kept) == 0 {
		return
	}
	b.WriteString("## " + heading + "\n")
	for _, it := range kept {
		b.WriteString("- " + it + "\n")
	}
	b.WriteString("\n")
}

func writeParagraph(b *strings.Builder, heading, text string) {
	if text = strings.TrimSpace(text); text == "" {
		return
	}
	b.WriteString("## " + heading + "\n" + text + "\n\n")
}

func stringArray() map[string]any {
	return map[string]any{"type": []any{"array", "null"}, "items": map[string]any{"type": "string"}}
}

func requiredStringArray() map[string]any {
	return map[string]any{"type": "array", "minItems": 1, "items": map[string]any{"type": "string"}}
}

func optionalString() map[string]any {
	return map[string]any{"type": []any{"string", "null"}}
}

func hasText(items []string) bool {
	for _, it := range items {
		if strings.TrimSpace(it) != "" {
			return true
		}
	}
	return false
}

const (
	noAnalysis   = "No analysis could be produced from the available search results."
	noConclusion = "The available information was not sufficient to reach a conclusion."
)

// AnalysisSchema asks for an Analysis with at least one main fact.
var AnalysisSchema = Schema[Analysis]{
	Name:        "analysis",
	Description: "Return the analysis as a JSON object. Every list item is one complete sentence grounded in the search results.",
	JSONSchema: map[string]any{
		"type":     "object",
		"required": []any{"main_facts"},
		"properties": map[string]any{
			"main_facts":             requiredStringArray(),
			"data_statistics":        stringArray(),
			"different_perspectives": stringArray(),
			"date_analysis":          stringArray(),
			"unknown_points":         stringArray(),
		},
	},
	Example: Analysis{
		MainFacts:             []string{"The product was announced on 2 April 2025."},
		DataStatistics:        []string{"3.5 million units were sold in the first four days."},
		DifferentPerspectives: []string{"Retailers expect shortages while analysts expect supply to stabilise."},
		DateAnalysis:          []string{"The launch date is recent; the 2026 forecast is a future plan."},
		UnknownPoints:         []string{"Regional pricing has not been confirmed."},
	},
	Check: func(a Analysis) error {
		if !hasText(a.MainFacts) {
			return errors.New("analysis has no main facts")
		}
		return nil
	},
	Fallback: func(raw string) Analysis {
		facts := textLines(raw, 10)
		if len(facts) == 0 {
			facts = []string{noAnalysis}
		}
		return Analysis{MainFacts: facts}
	},
}

// SummarySchema asks for a Summary with key facts and a conclusion.
var SummarySchema = Schema[Summary]{
	Name:        "summary",
	Description: "Return the summary as a JSON object with the most important facts and a short conclusion.",
	JSONSchema: map[string]any{
		"type":     "object",
		"required": []any{"key_facts", "conclusion"},
		"properties": map[string]any{
			"key_facts":    requiredStringArray(),
			"conclusion":   map[string]any{"type": "string", "minLength": 1},
			"date_summary": optionalString(),
		},
	},
	Example: Summary{
		KeyFacts:    []string{"Sales exceeded expectations in the launch week."},
		Conclusion:  "Demand is strong, but supply and pricing remain open questions.",
		DateSummary: "Most sources date from April 2025.",
	},
	Check: func(s Summary) error {
		if !hasText(s.KeyFacts) || strings.TrimSpace(s.Conclusion) == "" {
			return errors.New("summary needs key facts and a conclusion")
		}
		return nil
	},
	Fallback: func(raw string) Summary {
		lines := textLines(raw, 5)
		if len(lines) == 0 {
			return Summary{KeyFacts: []string{noAnalysis}, Conclusion: noConclusion}
		}
		return Summary{KeyFacts: lines, Conclusion: lines[len(lines)-1]}
	},
}

// FollowUpSchema asks for candidate follow-up queries. The fallback may be
// empty; the query refiner pads short lists.
var FollowUpSchema = Schema[FollowUpQueries]{
	Name:        "follow_up_queries",
	Description: "Return search queries that would fill the gaps in the current research as a JSON object. Each keyword is a complete search query of two to six words.",
	JSONSchema: map[string]any{
		"type":     "object",
		"required": []any{"keywords"},
		"properties": map[string]any{
			"keywords": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		},
	},
	Example: FollowUpQueries{
		Keywords: []string{"switch 2 sales figures", "switch 2 supply shortage", "switch 2 regional pricing"},
	},
	Fallback: func(raw string) FollowUpQueries {
		var kw []string
		for _, line := range textLines(raw, 10) {
			if len([]rune(line)) <= 80 {
				kw = append(kw, line)
			}
			if len(kw) == 5 {
				break
			}
		}
		if kw == nil {
			kw = []string{}
		}
		return FollowUpQueries{Keywords: kw}
	},
}

// FinalReportSchema asks for the closing report. The fallback keeps the
// generated text as the executive summary.
var FinalReportSchema = Schema[FinalReport]{
	Name:        "final_report",
	Description: "Return the final research report as a JSON object. Use only facts from the analysis and search results.",
	JSONSchema: map[string]any{
		"type":     "object",
		"required": []any{"executive_summary"},
		"properties": map[string]any{
			"executive_summary": map[string]any{"type": "string", "minLength": 1},
			"background":        optionalString(),
			"findings":          stringArray(),
			"data_points":       stringArray(),
			"perspectives":      stringArray(),
			"conclusions":       optionalString(),
			"future_directions": stringArray(),
		},
	},
	Example: FinalReport{
		ExecutiveSummary: "The console launched in April 2025 and sold strongly.",
		Background:       "The predecessor sold over 140 million units.",
		Findings:         []string{"Launch-week sales reached 3.5 million units."},
		DataPoints:       []string{"3.5 million units in four days"},
		Perspectives:     []string{"Analysts expect supply to stabilise by summer."},
		Conclusions:      "Early demand is strong.",
		FutureDirections: []string{"Track regional pricing announcements."},
	},
	Check: func(r FinalReport) error {
		if strings.TrimSpace(r.ExecutiveSummary) == "" {
			return errors.New("final report has no executive summary")
		}
		return nil
	},
	Fallback: func(raw string) FinalReport {
		text := strings.TrimSpace(raw)
		if text == "" {
			return FinalReport{ExecutiveSummary: noAnalysis}
		}
		if _, ok := ExtractObject(text); ok {
			// Unusable JSON is not worth showing to a reader.
			lines := textLines(text, 10)
			if len(lines) == 0 {
				return FinalReport{ExecutiveSummary: noAnalysis}
			}
			return FinalReport{ExecutiveSummary: strings.Join(lines, "\n")}
		}
		return FinalReport{ExecutiveSummary: text}
	},
}
