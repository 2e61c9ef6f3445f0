// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import "context"

// ollamaBaseURL is the default local Ollama server. Package-level var for
// test substitution.
var ollamaBaseURL = "http://localhost:11434"

// Ollama calls the /api/generate endpoint of an Ollama server.
type Ollama struct {
	options
}

func (o *Ollama) Name() string { return "ollama" }

type ollamaRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaResponse struct {
	Response string `json:"response"`
}

// Generate sends one non-streaming completion request.
func (o *Ollama) Generate(ctx context.Context, prompt string) Result {
	var resp ollamaResponse
	err := postJSON(ctx, o.Client, o.endpoint(ollamaBaseURL)+"/api/generate", nil, ollamaRequest{
		Model:   o.model("llama3"),
		Prompt:  prompt,
		Options: ollamaOptions{Temperature: o.Temperature, NumPredict: o.MaxTokens},
	}, &resp)
	return finish(ctx, o.Name(), resp.Response, err)
}
