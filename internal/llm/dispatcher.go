// Package llm implements the C2 dispatcher: it resolves a provider adapter,
// clamps request parameters, rate-limits and retries calls, and normalizes
// responses, sitting above the pure internal/llm/providers adapters.
package llm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/artisanclarinets/smartupload/internal/llm/providers"
	"github.com/artisanclarinets/smartupload/internal/llm/ratelimit"
)

const (
	minMaxTokens     = 64
	maxMaxTokens     = 16384
	minTemperature   = 0.0
	maxTemperature   = 2.0
	defaultAttempts  = 3
	backoffBase      = time.Second
	defaultPerAttemptTimeout = 90 * time.Second
)

// ErrorKind classifies a dispatcher failure per spec.md §7.
type ErrorKind string

const (
	KindTransientLLM ErrorKind = "TRANSIENT_LLM"
	KindTimeout       ErrorKind = "TIMEOUT"
	KindBadRequest    ErrorKind = "BAD_REQUEST_LLM"
	KindMissingKey    ErrorKind = "MISSING_KEY"
	KindCancelled     ErrorKind = "CANCELLED"
)

// CallError wraps a dispatcher failure with its taxonomy kind, so pipeline
// stage handlers can map it onto pipeline.StageError without re-deriving
// the classification from an HTTP status code a second time.
type CallError struct {
	Kind   ErrorKind
	Status int
	Body   string
	Err    error
}

func (e *CallError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("llm: %s (status %d): %s", e.Kind, e.Status, e.Body)
	}
	return fmt.Sprintf("llm: %s: %v", e.Kind, e.Err)
}

func (e *CallError) Unwrap() error { return e.Err }

// Doer is the HTTP transport seam; *http.Client satisfies it directly.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Dispatcher is the C2 entry point. One Dispatcher is shared by every
// pipeline worker in a process: one HTTP client, one rate limiter.
type Dispatcher struct {
	HTTPClient         Doer
	Limiter            *ratelimit.Limiter
	PerAttemptTimeout  time.Duration
	MaxAttempts        int
}

// New builds a Dispatcher with the given shared HTTP client and limiter.
func New(client Doer, limiter *ratelimit.Limiter) *Dispatcher {
	return &Dispatcher{
		HTTPClient:        client,
		Limiter:           limiter,
		PerAttemptTimeout: defaultPerAttemptTimeout,
		MaxAttempts:       defaultAttempts,
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// CallVisionModel implements the C2 contract: clamp params, resolve
// provider, rate-limit, timeout + retry with backoff, normalize the result.
func (d *Dispatcher) CallVisionModel(ctx context.Context, cfg providers.Config, req providers.Request) (providers.Response, error) {
	req.MaxTokens = clampInt(req.MaxTokens, minMaxTokens, maxMaxTokens)
	req.Temperature = clampFloat(req.Temperature, minTemperature, maxTemperature)
	if req.ModelParams != nil {
		if _, ok := req.ModelParams["max_tokens"]; ok {
			req.ModelParams["max_tokens"] = req.MaxTokens
		}
		if _, ok := req.ModelParams["temperature"]; ok {
			req.ModelParams["temperature"] = req.Temperature
		}
	}

	adapter, err := providers.Resolve(cfg.Provider)
	if err != nil {
		return providers.Response{}, &CallError{Kind: KindBadRequest, Err: err}
	}

	maxAttempts := d.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultAttempts
	}
	timeout := d.PerAttemptTimeout
	if timeout <= 0 {
		timeout = defaultPerAttemptTimeout
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if ctx.Err() != nil {
			return providers.Response{}, &CallError{Kind: KindCancelled, Err: ctx.Err()}
		}

		if d.Limiter != nil {
			if err := d.Limiter.Consume(ctx); err != nil {
				return providers.Response{}, &CallError{Kind: KindCancelled, Err: err}
			}
		}

		resp, callErr := d.attempt(ctx, adapter, cfg, req, timeout)
		if callErr == nil {
			return resp, nil
		}

		var ce *CallError
		if errors.As(callErr, &ce) {
			if ce.Kind == KindTimeout || ce.Kind == KindBadRequest || ce.Kind == KindMissingKey || ce.Kind == KindCancelled {
				return providers.Response{}, ce
			}
		}

		lastErr = callErr
		if attempt < maxAttempts {
			backoff := backoffBase * time.Duration(math.Pow(2, float64(attempt-1)))
			slog.Warn("llm call failed, retrying", "attempt", attempt, "backoff", backoff, "error", callErr)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return providers.Response{}, &CallError{Kind: KindCancelled, Err: ctx.Err()}
			}
		}
	}

	return providers.Response{}, lastErr
}

func (d *Dispatcher) attempt(ctx context.Context, adapter providers.Adapter, cfg providers.Config, req providers.Request, timeout time.Duration) (providers.Response, error) {
	httpReq, err := adapter.BuildRequest(cfg, req)
	if err != nil {
		var missing *providers.ErrMissingSecret
		if errors.As(err, &missing) {
			return providers.Response{}, &CallError{Kind: KindMissingKey, Err: err}
		}
		return providers.Response{}, &CallError{Kind: KindBadRequest, Err: err}
	}

	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	httpRequest, err := http.NewRequestWithContext(attemptCtx, httpReq.Method, httpReq.URL, bytes.NewReader(httpReq.Body))
	if err != nil {
		return providers.Response{}, &CallError{Kind: KindBadRequest, Err: err}
	}
	for k, v := range httpReq.Headers {
		httpRequest.Header.Set(k, v)
	}

	resp, err := d.HTTPClient.Do(httpRequest)
	if err != nil {
		if attemptCtx.Err() != nil && ctx.Err() == nil {
			return providers.Response{}, &CallError{Kind: KindTimeout, Err: attemptCtx.Err()}
		}
		if ctx.Err() != nil {
			return providers.Response{}, &CallError{Kind: KindCancelled, Err: ctx.Err()}
		}
		return providers.Response{}, &CallError{Kind: KindTransientLLM, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return providers.Response{}, &CallError{Kind: KindTransientLLM, Err: err}
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return providers.Response{}, &CallError{Kind: KindTransientLLM, Status: resp.StatusCode, Body: truncate(body, 300)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return providers.Response{}, &CallError{Kind: KindBadRequest, Status: resp.StatusCode, Body: truncate(body, 300)}
	}

	parsed, err := adapter.ParseResponse(body)
	if err != nil {
		return providers.Response{}, &CallError{Kind: KindBadRequest, Err: err}
	}
	return parsed, nil
}

func truncate(body []byte, n int) string {
	if len(body) <= n {
		return string(body)
	}
	return string(body[:n])
}
