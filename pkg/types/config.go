// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"errors"
	"fmt"
	"time"
)

// HTTPConfig holds shared HTTP settings used by components that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "deep-research/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// IterationConfig bounds the research loop.
type IterationConfig struct {
	// MaxIterations is the number of search rounds including the initial
	// one. The refinement cycle runs at most MaxIterations-1 times (default 3).
	MaxIterations int `json:"max_iterations" yaml:"max_iterations" mapstructure:"max_iterations"`

	// InitialResultCount is the result count requested for the original query (default 8).
	InitialResultCount int `json:"initial_result_count" yaml:"initial_result_count" mapstructure:"initial_result_count"`

	// AdditionalResultCount is the result count requested per follow-up query (default 5).
	AdditionalResultCount int `json:"additional_result_count" yaml:"additional_result_count" mapstructure:"additional_result_count"`

	// MaxFollowUpQueries caps the follow-up queries issued per round (default 3).
	MaxFollowUpQueries int `json:"max_follow_up_queries" yaml:"max_follow_up_queries" mapstructure:"max_follow_up_queries"`
}

// BackendConfig holds pacing, retry, and credential settings for one search backend.
type BackendConfig struct {
	// APIKey authenticates API-backed search providers.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// EngineID is the Google Programmable Search engine identifier (cx).
	EngineID string `json:"engine_id,omitempty" yaml:"engine_id,omitempty" mapstructure:"engine_id"`

	// RequestsPerSecond sets the minimum interval between dispatched requests.
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second" mapstructure:"requests_per_second"`

	// MaxRetries is the number of retries after a rate-limit or transient failure.
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`

	// RetryBaseDelay is the base of the exponential backoff (delay = base * 2^attempt + jitter).
	RetryBaseDelay time.Duration `json:"retry_base_delay" yaml:"retry_base_delay" mapstructure:"retry_base_delay"`
}

// SearchConfig holds settings for the retrieval gateway and its backends.
type SearchConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// Preferred selects the preferred backend: "auto", "google", or "duckduckgo".
	Preferred string `json:"preferred" yaml:"preferred" mapstructure:"preferred"`

	// MaxResults is the default result count for ad hoc searches (default 5).
	MaxResults int `json:"max_results" yaml:"max_results" mapstructure:"max_results"`

	// Google configures the primary, API-backed backend.
	Google BackendConfig `json:"google" yaml:"google" mapstructure:"google"`

	// DuckDuckGo configures the secondary, scrape-backed backend.
	DuckDuckGo BackendConfig `json:"duckduckgo" yaml:"duckduckgo" mapstructure:"duckduckgo"`
}

// CitationConfig holds the thresholds applied to hits.
type CitationConfig struct {
	// ReliabilityThreshold is the reliability floor for hits kept after the
	// initial search and for citations (default 0.3).
	ReliabilityThreshold float64 `json:"reliability_threshold" yaml:"reliability_threshold" mapstructure:"reliability_threshold"`

	// RelevanceThreshold is the minimum score for a hit to become a citation (default 0.5).
	RelevanceThreshold float64 `json:"relevance_threshold" yaml:"relevance_threshold" mapstructure:"relevance_threshold"`
}

// AIConfig holds shared settings for calls to a text-generation API.
type AIConfig struct {
	// Model is the model identifier (e.g. "llama3", "gpt-4o-mini"). Empty
	// selects the provider's default model.
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// APIKey is the authentication key for hosted providers.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// MaxRetries is the number of retries after a transient generation failure (default 2).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`
}

// GenerationConfig selects and configures the text-generation provider.
type GenerationConfig struct {
	AIConfig `yaml:",inline" mapstructure:",squash"`

	// Provider is one of "ollama", "openai", "gemini", "anthropic".
	Provider string `json:"provider" yaml:"provider" mapstructure:"provider"`

	// BaseURL overrides the provider endpoint, e.g. a remote Ollama host or an
	// OpenAI-compatible server.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty" mapstructure:"base_url"`

	// Temperature is the sampling temperature.
	Temperature float64 `json:"temperature" yaml:"temperature" mapstructure:"temperature"`

	// MaxTokens caps the generated length for providers that accept it.
	MaxTokens int `json:"max_tokens" yaml:"max_tokens" mapstructure:"max_tokens"`

	// Timeout is applied to every generation request.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`
}

// SessionConfig bounds one research session.
type SessionConfig struct {
	// Timeout bounds total wall-clock time of a session; zero means unbounded.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`
}

// OutputConfig controls where the CLI writes session snapshots.
type OutputConfig struct {
	// Dir is the directory for snapshot files (default "output").
	Dir string `json:"dir" yaml:"dir" mapstructure:"dir"`

	// Format is "yaml", "json", or "markdown".
	Format string `json:"format" yaml:"format" mapstructure:"format"`

	// Archive is an optional SQLite path where finished sessions are recorded.
	Archive string `json:"archive,omitempty" yaml:"archive,omitempty" mapstructure:"archive"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level  string `json:"level" yaml:"level" mapstructure:"level"`
	Format string `json:"format" yaml:"format" mapstructure:"format"`
}

// ResearchConfig groups all settings consumed by a research session.
type ResearchConfig struct {
	Iteration  IterationConfig  `json:"iteration" yaml:"iteration" mapstructure:"iteration"`
	Search     SearchConfig     `json:"search" yaml:"search" mapstructure:"search"`
	Citations  CitationConfig   `json:"citations" yaml:"citations" mapstructure:"citations"`
	Generation GenerationConfig `json:"generation" yaml:"generation" mapstructure:"generation"`
	Session    SessionConfig    `json:"session" yaml:"session" mapstructure:"session"`
	Output     OutputConfig     `json:"output" yaml:"output" mapstructure:"output"`
	Log        LogConfig        `json:"log" yaml:"log" mapstructure:"log"`
}

// DefaultResearchConfig returns the configuration used when nothing is overridden.
func DefaultResearchConfig() ResearchConfig {
	return ResearchConfig{
		Iteration: IterationConfig{
			MaxIterations:         3,
			InitialResultCount:    8,
			AdditionalResultCount: 5,
			MaxFollowUpQueries:    3,
		},
		Search: SearchConfig{
			HTTPConfig: HTTPConfig{
				Timeout:   30 * time.Second,
				UserAgent: "deep-research/0.1",
			},
			Preferred:  "auto",
			MaxResults: 5,
			Google: BackendConfig{
				RequestsPerSecond: 8,
				MaxRetries:        3,
				RetryBaseDelay:    2 * time.Second,
			},
			DuckDuckGo: BackendConfig{
				RequestsPerSecond: 1,
				MaxRetries:        3,
				RetryBaseDelay:    2 * time.Second,
			},
		},
		Citations: CitationConfig{
			ReliabilityThreshold: 0.3,
			RelevanceThreshold:   0.5,
		},
		Generation: GenerationConfig{
			AIConfig: AIConfig{
				MaxRetries: 2,
			},
			Provider:    "ollama",
			Temperature: 0.7,
			MaxTokens:   2000,
			Timeout:     60 * time.Second,
		},
		Output: OutputConfig{
			Dir:    "output",
			Format: "yaml",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Validate reports every out-of-range value in the configuration.
func (c ResearchConfig) Validate() error {
	var errs []error
	if c.Iteration.MaxIterations < 1 {
		errs = append(errs, fmt.Errorf("iteration.max_iterations must be >= 1, got %d", c.Iteration.MaxIterations))
	}
	if c.Iteration.InitialResultCount < 1 {
		errs = append(errs, fmt.Errorf("iteration.initial_result_count must be >= 1, got %d", c.Iteration.InitialResultCount))
	}
	if c.Iteration.AdditionalResultCount < 1 {
		errs = append(errs, fmt.Errorf("iteration.additional_result_count must be >= 1, got %d", c.Iteration.AdditionalResultCount))
	}
	if c.Iteration.MaxFollowUpQueries < 1 {
		errs = append(errs, fmt.Errorf("iteration.max_follow_up_queries must be >= 1, got %d", c.Iteration.MaxFollowUpQueries))
	}
	for name, th := range map[string]float64{
		"citations.reliability_threshold": c.Citations.ReliabilityThreshold,
		"citations.relevance_threshold":   c.Citations.RelevanceThreshold,
	} {
		if th < 0 || th > 1 {
			errs = append(errs, fmt.Errorf("%s must be within [0,1], got %v", name, th))
		}
	}
	for name, b := range map[string]BackendConfig{
		"search.google":     c.Search.Google,
		"search.duckduckgo": c.Search.DuckDuckGo,
	} {
		if b.RequestsPerSecond <= 0 {
			errs = append(errs, fmt.Errorf("%s.requests_per_second must be > 0, got %v", name, b.RequestsPerSecond))
		}
		if b.MaxRetries < 0 {
			errs = append(errs, fmt.Errorf("%s.max_retries must be >= 0, got %d", name, b.MaxRetries))
		}
	}
	switch c.Search.Preferred {
	case "", "auto", "google", "duckduckgo":
	default:
		errs = append(errs, fmt.Errorf("search.preferred must be auto, google, or duckduckgo, got %q", c.Search.Preferred))
	}
	switch c.Output.Format {
	case "", "yaml", "json", "markdown":
	default:
		errs = append(errs, fmt.Errorf("output.format must be yaml, json, or markdown, got %q", c.Output.Format))
	}
	return errors.Join(errs...)
}
