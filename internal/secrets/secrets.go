// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API keys and credentials from a directory of plain-text files.
// Each file in the directory represents one secret: the filename is the key name and the
// file contents (trimmed) are the value.
//
// Supported key files: google-search-api-key, google-search-engine-id,
// openai-api-key, gemini-api-key, anthropic-api-key.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/deep-research/pkg/types"
)

// Key file names.
const (
	GoogleSearchAPIKey   = "google-search-api-key"
	GoogleSearchEngineID = "google-search-engine-id"
	OpenAIAPIKey         = "openai-api-key"
	GeminiAPIKey         = "gemini-api-key"
	AnthropicAPIKey      = "anthropic-api-key"
)

// providerKeys maps a generation provider to its key file.
var providerKeys = map[string]string{
	"openai":    OpenAIAPIKey,
	"gemini":    GeminiAPIKey,
	"anthropic": AnthropicAPIKey,
}

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A missing directory or missing files are not errors; Load returns an empty map.
// Unreadable files are logged and skipped.
func Load(dir string, logger *zap.Logger) (map[string]string, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			logger.Warn("could not read secret", zap.String("name", name), zap.Error(err))
			continue
		}
		if value := strings.TrimSpace(string(data)); value != "" {
			secrets[name] = value
		}
	}
	return secrets, nil
}

// Apply fills credentials that cfg leaves empty from secrets. Values already
// set in cfg, from the config file or the environment, take precedence.
// It returns the names of the keys it used.
func Apply(cfg *types.ResearchConfig, secrets map[string]string) []string {
	var used []string
	fill := func(dst *string, key string) {
		if *dst != "" {
			return
		}
		if v, ok := secrets[key]; ok {
			*dst = v
			used = append(used, key)
		}
	}

	fill(&cfg.Search.Google.APIKey, GoogleSearchAPIKey)
	fill(&cfg.Search.Google.EngineID, GoogleSearchEngineID)
	if key, ok := providerKeys[strings.ToLower(cfg.Generation.Provider)]; ok {
		fill(&cfg.Generation.APIKey, key)
	}
	return used
}
