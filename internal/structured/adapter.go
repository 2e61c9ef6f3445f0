// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package structured turns free-text generation into schema-conformant values.
// A generation is decoded by locating a JSON object, repairing common escape
// mistakes, and validating it against a JSON Schema; anything that cannot be
// recovered is replaced by the schema's deterministic fallback, so callers
// always receive a usable value.
package structured

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/deep-research/internal/llm"
)

// Path records how a Result's value was produced.
type Path string

const (
	PathDirect   Path = "direct"
	PathRepaired Path = "repaired"
	PathFallback Path = "repair-fallback"
)

// Result is the outcome of a structured generation. Value is always set.
type Result[T any] struct {
	Value T
	Path  Path

	// Raw is the generated text, empty when generation itself failed.
	Raw string

	// Reason explains why the fallback was used.
	Reason string
}

// backoffBase controls the base duration for exponential backoff between
// generation retries. Tests override this to avoid real sleeps.
var backoffBase = time.Second

// Adapter wraps a Generator with retries and structured decoding.
type Adapter struct {
	gen        llm.Generator
	maxRetries int
	logger     *zap.Logger
}

// NewAdapter returns an adapter that retries transient generation failures
// up to maxRetries times.
func NewAdapter(gen llm.Generator, maxRetries int, logger *zap.Logger) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapter{gen: gen, maxRetries: max(0, maxRetries), logger: logger}
}

// Generate asks the generator for a value of schema T. It never fails: any
// generation, parse, or validation failure yields the schema fallback.
func Generate[T any](ctx context.Context, a *Adapter, prompt string, schema Schema[T]) Result[T] {
	res := a.callWithRetry(ctx, prompt+"\n\n"+schema.Instructions())
	if !res.OK() {
		a.logger.Warn("generation failed, using fallback",
			zap.String("schema", schema.Name),
			zap.String("status", string(res.Status)),
			zap.String("reason", res.Reason))
		return Result[T]{Value: schema.fallback(""), Path: PathFallback, Reason: res.Reason}
	}

	out := Decode(res.Text, schema)
	if out.Path == PathFallback {
		a.logger.Warn("structured output unusable, using fallback",
			zap.String("schema", schema.Name), zap.String("reason", out.Reason))
	} else {
		a.logger.Debug("structured output decoded",
			zap.String("schema", schema.Name), zap.String("path", string(out.Path)))
	}
	return out
}

// Decode extracts, repairs, validates, and decodes a value of schema T from
// generated text. It is pure and never fails.
func Decode[T any](text string, schema Schema[T]) Result[T] {
	fail := func(reason string) Result[T] {
		return Result[T]{Value: schema.fallback(text), Path: PathFallback, Raw: text, Reason: reason}
	}

	objText, ok := ExtractObject(text)
	if !ok {
		return fail("no JSON object found")
	}
	obj, stage, err := Repair(objText)
	if err != nil {
		return fail(err.Error())
	}
	if err := schema.validate(obj); err != nil {
		return fail(err.Error())
	}

	b, err := json.Marshal(obj)
	if err != nil {
		return fail(fmt.Sprintf("re-encoding: %v", err))
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return fail(fmt.Sprintf("decoding %s: %v", schema.Name, err))
	}
	if schema.Check != nil {
		if err := schema.Check(v); err != nil {
			return fail(err.Error())
		}
	}

	path := PathDirect
	if stage != StageDirect {
		path = PathRepaired
	}
	return Result[T]{Value: v, Path: path, Raw: text}
}

// callWithRetry calls the generator with exponential backoff while the
// failure is transient.
func (a *Adapter) callWithRetry(ctx context.Context, prompt string) llm.Result {
	var last llm.Result
	for attempt := 0; attempt <= a.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * backoffBase
			a.logger.Info("retrying generation",
				zap.String("generator", a.gen.Name()),
				zap.Int("attempt", attempt),
				zap.Duration("backoff", backoff),
				zap.String("reason", last.Reason))
			select {
			case <-ctx.Done():
				return llm.Fatal(ctx.Err().Error())
			case <-time.After(backoff):
			}
		}

		last = a.gen.Generate(ctx, prompt)
		if last.Status != llm.StatusTransient {
			return last
		}
	}
	return last
}
