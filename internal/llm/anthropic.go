// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"strings"
)

// anthropicAPIURL is the Claude Messages API endpoint. Package-level var for
// test substitution.
var anthropicAPIURL = "https://api.anthropic.com/v1/messages"

// Anthropic calls the Claude Messages API.
type Anthropic struct {
	options
}

func (a *Anthropic) Name() string { return "anthropic" }

type claudeRequest struct {
	Model       string        `json:"model"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
	Messages    []chatMessage `json:"messages"`
}

type claudeResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// Generate concatenates the text blocks of the reply.
func (a *Anthropic) Generate(ctx context.Context, prompt string) Result {
	endpoint := anthropicAPIURL
	if a.BaseURL != "" {
		endpoint = a.BaseURL + "/v1/messages"
	}

	var resp claudeResponse
	err := postJSON(ctx, a.Client, endpoint,
		map[string]string{
			"x-api-key":         a.APIKey,
			"anthropic-version": "2023-06-01",
		},
		claudeRequest{
			Model:       a.model("claude-sonnet-4-5-20250929"),
			MaxTokens:   a.maxTokens(),
			Temperature: a.Temperature,
			Messages:    []chatMessage{{Role: "user", Content: prompt}},
		}, &resp)

	var b strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	return finish(ctx, a.Name(), b.String(), err)
}
