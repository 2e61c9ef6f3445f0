// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package structured

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Schema describes the structured value expected from a generation call.
type Schema[T any] struct {
	// Name labels the schema in logs and prompts (e.g. "analysis").
	Name string

	// Description tells the model what the object represents.
	Description string

	// JSONSchema is the JSON Schema document the decoded object must satisfy.
	JSONSchema map[string]any

	// Example is a worked example rendered into the prompt.
	Example T

	// Check applies constraints JSON Schema cannot express. Optional.
	Check func(T) error

	// Fallback builds a conforming value from raw generated text, which may
	// be empty. It must be deterministic and must satisfy JSONSchema and
	// Check. When nil the zero value is used.
	Fallback func(raw string) T
}

// Instructions renders the prompt suffix that asks for a conforming object.
func (s Schema[T]) Instructions() string {
	schemaJSON, _ := json.MarshalIndent(s.JSONSchema, "", "  ")
	exampleJSON, _ := json.MarshalIndent(s.Example, "", "  ")

	var sb strings.Builder
	if s.Description != "" {
		sb.WriteString(s.Description)
		sb.WriteString("\n\n")
	}
	sb.WriteString("IMPORTANT INSTRUCTIONS:\n")
	sb.WriteString("1. Respond with a single JSON object that conforms to the schema below.\n")
	sb.WriteString("2. Do not include any text before or after the JSON.\n")
	sb.WriteString("3. Escape double quotes and newlines inside string values.\n")
	sb.WriteString("4. Ensure all required fields are present and non-empty.\n\n")
	sb.WriteString("JSON Schema:\n")
	sb.Write(schemaJSON)
	sb.WriteString("\n\nExample:\n")
	sb.Write(exampleJSON)
	sb.WriteString("\n\nRespond with ONLY the JSON object.")
	return sb.String()
}

// validate checks obj against the JSON Schema document.
func (s Schema[T]) validate(obj map[string]any) error {
	if len(s.JSONSchema) == 0 {
		return nil
	}
	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(s.JSONSchema), gojsonschema.NewGoLoader(obj))
	if err != nil {
		return fmt.Errorf("validation error: %w", err)
	}
	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return fmt.Errorf("%s does not match schema: %s", s.Name, strings.Join(errs, "; "))
	}
	return nil
}

func (s Schema[T]) fallback(raw string) T {
	if s.Fallback == nil {
		var zero T
		return zero
	}
	return s.Fallback(raw)
}

var listMarker = regexp.MustCompile(`^\s*(?:[-*•・]|\d+[.)、])\s*`)

// textLines splits free text into at most max trimmed lines with list
// markers removed. Lines that look like JSON or code fences are skipped.
func textLines(raw string, max int) []string {
	var lines []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(listMarker.ReplaceAllString(line, ""))
		line = strings.TrimLeft(line, "#")
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "```") || strings.ContainsAny(line[:1], "{}[]\"") {
			continue
		}
		lines = append(lines, line)
		if len(lines) >= max {
			break
		}
	}
	return lines
}
