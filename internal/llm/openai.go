// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import "context"

// openaiAPIBase is the OpenAI API root. Package-level var for test substitution.
var openaiAPIBase = "https://api.openai.com/v1"

// OpenAI calls the chat completions endpoint of OpenAI or a compatible server.
type OpenAI struct {
	options
}

func (o *OpenAI) Name() string { return "openai" }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openaiRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type openaiResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (o *OpenAI) Generate(ctx context.Context, prompt string) Result {
	var resp openaiResponse
	err := postJSON(ctx, o.Client, o.endpoint(openaiAPIBase)+"/chat/completions",
		map[string]string{"Authorization": "Bearer " + o.APIKey},
		openaiRequest{
			Model:       o.model("gpt-4o-mini"),
			Messages:    []chatMessage{{Role: "user", Content: prompt}},
			MaxTokens:   o.maxTokens(),
			Temperature: o.Temperature,
		}, &resp)

	var text string
	if len(resp.Choices) > 0 {
		text = resp.Choices[0].Message.Content
	}
	return finish(ctx, o.Name(), text, err)
}
