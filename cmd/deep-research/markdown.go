// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"text/template"

	"github.com/pdiddy/deep-research/pkg/types"
)

var inlineCiteRe = regexp.MustCompile(`\[(\d+)\]`)

var markdownTmpl = template.Must(template.New("session").Funcs(template.FuncMap{
	"link":  func(string) string { return "" },
	"score": func(f float64) string { return strconv.FormatFloat(f, 'f', 2, 64) },
	"inc":   func(i int) int { return i + 1 },
	"stamp": func(snap types.SessionSnapshot) string {
		return snap.StartedAt.UTC().Format("2006-01-02 15:04:05 MST")
	},
}).Parse(`# Research: {{.Query}}

- Session: {{.ID}}
- Started: {{stamp .}}
- Iterations: {{.Iterations}}
- Sources: {{len .Hits}}
{{- if .Aborted}}
- Aborted: {{.AbortReason}}
{{- end}}
{{- with .Summary}}

## Summary

{{.}}
{{- end}}
{{- with .FinalReport}}

## Report

{{link .}}
{{- end}}
{{- with .Analysis}}

## Analysis

{{.}}
{{- end}}
{{- if .FollowUpQueries}}

## Search History

1. {{.Query}}
{{- range .FollowUpQueries}}
1. {{.}}
{{- end}}
{{- end}}
{{- if .HitsByQuery}}

## Sources by Query
{{- range .HitsByQuery}}

### {{.Query}}
{{range $i, $h := .Hits}}
{{inc $i}}. [{{$h.Title}}]({{$h.URL}}) ({{$h.Category}}, {{score $h.Reliability}}{{with $h.DateText}}, {{.}}{{end}})
{{- with $h.Snippet}}
   > {{.}}
{{- end}}
{{- end}}
{{- end}}
{{- end}}
{{- if .Citations}}

## References
{{range .Citations}}
{{.Number}}. [{{.SourceTitle}}]({{.SourceURL}}){{with .DateText}} ({{.}}){{end}}{{if not .Referenced}} (not cited inline){{end}}
{{- end}}
{{- end}}
`))

// renderMarkdown writes snap as a Markdown document. Inline [n] references in
// the report link to the matching citation URL.
func renderMarkdown(w io.Writer, snap types.SessionSnapshot) error {
	tmpl, err := markdownTmpl.Clone()
	if err != nil {
		return err
	}
	tmpl.Funcs(template.FuncMap{"link": func(text string) string {
		return linkCitations(text, snap.Citations)
	}})
	if err := tmpl.Execute(w, snap); err != nil {
		return fmt.Errorf("rendering markdown: %w", err)
	}
	return nil
}

// linkCitations rewrites [n] as [[n]](url) for every n that names a citation.
func linkCitations(text string, citations []types.Citation) string {
	urls := make(map[int]string, len(citations))
	for _, c := range citations {
		urls[c.Number] = c.SourceURL
	}
	return inlineCiteRe.ReplaceAllStringFunc(text, func(m string) string {
		n, err := strconv.Atoi(strings.Trim(m, "[]"))
		if err != nil {
			return m
		}
		url, ok := urls[n]
		if !ok {
			return m
		}
		return fmt.Sprintf("[%s](%s)", m, url)
	})
}
