// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"net/url"
	"strings"
)

// geminiAPIBase is the Generative Language API root. Package-level var for
// test substitution.
var geminiAPIBase = "https://generativelanguage.googleapis.com/v1beta"

// Gemini calls the generateContent endpoint of the Gemini API.
type Gemini struct {
	options
}

func (g *Gemini) Name() string { return "gemini" }

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents         []geminiContent `json:"contents"`
	GenerationConfig struct {
		Temperature     float64 `json:"temperature"`
		MaxOutputTokens int     `json:"maxOutputTokens"`
	} `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

func (g *Gemini) Generate(ctx context.Context, prompt string) Result {
	req := geminiRequest{Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}}}
	req.GenerationConfig.Temperature = g.Temperature
	req.GenerationConfig.MaxOutputTokens = g.maxTokens()

	endpoint := g.endpoint(geminiAPIBase) + "/models/" + url.PathEscape(g.model("gemini-2.0-flash")) +
		":generateContent?key=" + url.QueryEscape(g.APIKey)

	var resp geminiResponse
	err := postJSON(ctx, g.Client, endpoint, nil, req, &resp)

	var b strings.Builder
	if len(resp.Candidates) > 0 {
		for _, p := range resp.Candidates[0].Content.Parts {
			b.WriteString(p.Text)
		}
	}
	return finish(ctx, g.Name(), b.String(), err)
}
