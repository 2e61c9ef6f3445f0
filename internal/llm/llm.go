// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llm reduces each text-generation provider to a single Generate
// call whose outcome is a Result rather than an error, so callers can decide
// between retrying and giving up without inspecting message text.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/pdiddy/deep-research/internal/httputil"
	"github.com/pdiddy/deep-research/pkg/types"
)

// Status is the outcome class of a generation call.
type Status string

const (
	StatusSuccess   Status = "success"
	StatusTransient Status = "transient"
	StatusFatal     Status = "fatal"
)

// Result is the outcome of one generation call. Text is set on success and
// Reason otherwise.
type Result struct {
	Status Status
	Text   string
	Reason string
}

// OK reports whether the call succeeded.
func (r Result) OK() bool { return r.Status == StatusSuccess }

// Success, Transient, and Fatal build Results of the matching status.
func Success(text string) Result      { return Result{Status: StatusSuccess, Text: text} }
func Transient(reason string) Result { return Result{Status: StatusTransient, Reason: reason} }
func Fatal(reason string) Result     { return Result{Status: StatusFatal, Reason: reason} }

// Generator produces free text from a prompt. Implementations never panic
// and report every failure through Result.
type Generator interface {
	Name() string
	Generate(ctx context.Context, prompt string) Result
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, prompt string) Result

func (f GeneratorFunc) Name() string { return "func" }

func (f GeneratorFunc) Generate(ctx context.Context, prompt string) Result { return f(ctx, prompt) }

// Providers lists the accepted values of GenerationConfig.Provider.
var Providers = []string{"ollama", "openai", "gemini", "anthropic"}

// New builds the Generator selected by cfg.Provider. A nil client gets one
// with cfg.Timeout. Unknown providers and hosted providers without an API
// key are configuration errors.
func New(cfg types.GenerationConfig, client *http.Client) (Generator, error) {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	opts := options{
		Model:       cfg.Model,
		APIKey:      cfg.APIKey,
		BaseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
		Client:      client,
	}

	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	switch provider {
	case "ollama":
		return &Ollama{options: opts}, nil
	case "openai", "gemini", "anthropic":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("%s provider requires an API key", provider)
		}
	default:
		return nil, fmt.Errorf("unknown generation provider %q (want one of %s)", cfg.Provider, strings.Join(Providers, ", "))
	}

	switch provider {
	case "openai":
		return &OpenAI{options: opts}, nil
	case "gemini":
		return &Gemini{options: opts}, nil
	default:
		return &Anthropic{options: opts}, nil
	}
}

// options holds the settings shared by every provider.
type options struct {
	Model       string
	APIKey      string
	BaseURL     string
	Temperature float64
	MaxTokens   int
	Client      *http.Client
}

func (o options) model(fallback string) string {
	if o.Model != "" {
		return o.Model
	}
	return fallback
}

func (o options) endpoint(fallback string) string {
	if o.BaseURL != "" {
		return o.BaseURL
	}
	return fallback
}

func (o options) maxTokens() int {
	if o.MaxTokens > 0 {
		return o.MaxTokens
	}
	return 2000
}

var errEmptyResponse = fmt.Errorf("%w: empty response", httputil.ErrTransient)

// postJSON sends body as JSON to url and decodes a 2xx response into out.
func postJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := httputil.CheckStatus(resp); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decoding response: %v", httputil.ErrTransient, err)
	}
	return nil
}

// classify turns a transport or status error into a Result. A cancelled
// caller context is fatal; a client timeout is transient.
func classify(ctx context.Context, name string, err error) Result {
	reason := fmt.Sprintf("%s: %v", name, err)
	switch {
	case ctx.Err() != nil:
		return Fatal(reason)
	case httputil.IsRetryable(err), errors.Is(err, context.DeadlineExceeded):
		return Transient(reason)
	}
	return Fatal(reason)
}

// finish maps (text, err) from a provider call onto a Result.
func finish(ctx context.Context, name, text string, err error) Result {
	if err == nil && strings.TrimSpace(text) == "" {
		err = errEmptyResponse
	}
	if err != nil {
		return classify(ctx, name, err)
	}
	return Success(text)
}
