// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP status classification and the jittered
// exponential backoff shared by search backends and generation providers.
package httputil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var (
	// ErrRateLimited marks an HTTP 429 response.
	ErrRateLimited = errors.New("rate limited")

	// ErrUnauthorized marks rejected or missing credentials. It is never retried.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrTransient marks a server-side failure worth retrying (5xx, 408).
	ErrTransient = errors.New("transient failure")
)

// StatusError carries a non-2xx status code and a truncated response body.
type StatusError struct {
	Code int
	Body string
	kind error
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("HTTP %d", e.Code)
	}
	return fmt.Sprintf("HTTP %d: %s", e.Code, e.Body)
}

func (e *StatusError) Unwrap() error { return e.kind }

const maxErrorBody = 512

// CheckStatus maps a response status onto the package sentinels. It returns
// nil for 2xx and reads at most 512 bytes of the body otherwise; the caller
// still owns closing resp.Body.
func CheckStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	se := &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		se.kind = ErrRateLimited
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		se.kind = ErrUnauthorized
	case resp.StatusCode == http.StatusRequestTimeout, resp.StatusCode >= 500:
		se.kind = ErrTransient
	}
	return se
}

// IsFatal reports whether err must not be retried or failed over.
func IsFatal(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// IsRetryable reports whether err is a rate limit, a transient server
// failure, or a network error. Context cancellation is never retryable.
func IsRetryable(err error) bool {
	if err == nil || IsFatal(err) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, ErrRateLimited) || errors.Is(err, ErrTransient) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

// Jitter returns the random component added to every backoff delay.
// Tests override it for determinism.
var Jitter = func() time.Duration {
	return time.Duration(rand.Float64() * float64(time.Second))
}

// Backoff returns base * 2^attempt + Jitter().
func Backoff(base time.Duration, attempt int) time.Duration {
	return time.Duration(math.Pow(2, float64(attempt)))*base + Jitter()
}

// Retry calls fn until it succeeds, returns a non-retryable error, or
// maxRetries retries have been spent (1 + maxRetries calls in total).
// onRetry, when non-nil, is called before each wait. Waits honour ctx.
func Retry(ctx context.Context, maxRetries int, base time.Duration, onRetry func(attempt int, delay time.Duration, err error), fn func(context.Context) error) error {
	var lastErr error
	for attempt := 0; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if !IsRetryable(err) {
			return err
		}
		lastErr = err
		if attempt >= maxRetries {
			return fmt.Errorf("after %d retries: %w", maxRetries, lastErr)
		}

		delay := Backoff(base, attempt)
		if onRetry != nil {
			onRetry(attempt+1, delay, err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}
