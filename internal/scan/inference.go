package scan

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/time/rate"

	"github.com/dshills/vulnscan/internal/cache"
	"github.com/dshills/vulnscan/internal/providers"
)

// AttemptEvent describes one inference attempt for a chunk.
type AttemptEvent struct {
	File    string
	Chunk   int
	Total   int
	Attempt int
	Err     error
	Elapsed time.Duration
	Cached  bool
}

// Observer receives progress events. Implementations must be safe for
// concurrent use.
type Observer interface {
	OnAttempt(AttemptEvent)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(AttemptEvent)

func (f ObserverFunc) OnAttempt(e AttemptEvent) { f(e) }

type logObserver struct {
	logger hclog.Logger
}

func (o logObserver) OnAttempt(e AttemptEvent) {
	args := []any{"file", e.File, "chunk", e.Chunk + 1, "of", e.Total, "attempt", e.Attempt}
	switch {
	case e.Cached:
		o.logger.Debug("cache hit", args...)
	case e.Err != nil:
		o.logger.Warn("attempt failed", append(args, "error", e.Err)...)
	default:
		o.logger.Debug("attempt succeeded", append(args, "elapsed", e.Elapsed)...)
	}
}

// ResponseCache stores raw model responses between runs.
type ResponseCache interface {
	Get(key string) (string, bool)
	Put(key, value string) error
}

// Completion is the outcome of a successful Call.
type Completion struct {
	Text     string
	Cached   bool
	Attempts int
}

// InferenceClient sends one chunk prompt to the model with retry, an
// optional rate limit and an optional response cache.
type InferenceClient struct {
	client      providers.Client
	model       string
	policy      providers.RetryPolicy
	timeout     time.Duration
	limiter     *rate.Limiter
	observer    Observer
	cache       ResponseCache
	logger      hclog.Logger
	maxTokens   int
	temperature float64
}

// Call runs the prompt for chunk c. Transient failures are retried per the
// retry policy; the returned error is the last attempt's.
func (ic *InferenceClient) Call(ctx context.Context, c Chunk, prompt string) (Completion, error) {
	var key string
	if ic.cache != nil {
		key = cache.BuildKey(ic.client.Name(), ic.model, SystemPrompt(), prompt)
		if text, ok := ic.cache.Get(key); ok {
			ic.observer.OnAttempt(AttemptEvent{File: c.File, Chunk: c.Index, Total: c.Total, Cached: true})
			return Completion{Text: text, Cached: true}, nil
		}
	}

	req := providers.Request{
		SystemPrompt: SystemPrompt(),
		UserPrompt:   prompt,
		MaxTokens:    ic.maxTokens,
		Temperature:  &ic.temperature,
	}

	var out Completion
	err := providers.Retry(ctx, ic.policy, func(attempt int) error {
		out.Attempts = attempt
		if ic.limiter != nil {
			if err := ic.limiter.Wait(ctx); err != nil {
				return err
			}
		}
		started := time.Now()
		resp, err := ic.attempt(ctx, req)
		ic.observer.OnAttempt(AttemptEvent{
			File:    c.File,
			Chunk:   c.Index,
			Total:   c.Total,
			Attempt: attempt,
			Err:     err,
			Elapsed: time.Since(started),
		})
		if err != nil {
			return err
		}
		out.Text = resp.Content
		return nil
	})
	if err != nil {
		return out, err
	}

	if ic.cache != nil {
		if err := ic.cache.Put(key, out.Text); err != nil {
			ic.logger.Warn("cache write failed", "file", c.File, "error", err)
		}
	}
	return out, nil
}

// attempt makes a single provider call under the per-attempt deadline.
func (ic *InferenceClient) attempt(ctx context.Context, req providers.Request) (providers.Response, error) {
	if ic.timeout <= 0 {
		return ic.client.Complete(ctx, req)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, ic.timeout)
	defer cancel()

	resp, err := ic.client.Complete(attemptCtx, req)
	if err != nil && ctx.Err() == nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) && !providers.IsTransient(err) {
		err = &providers.TransientError{
			Op:  "inference",
			Err: fmt.Errorf("attempt timed out after %s: %w", ic.timeout, err),
		}
	}
	return resp, err
}

// newLimiter returns a limiter for requestsPerMinute, or nil when unlimited.
func newLimiter(requestsPerMinute int) *rate.Limiter {
	if requestsPerMinute <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), 1)
}
