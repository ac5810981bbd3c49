package llm

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
)

type RetryConfig struct {
	MaxRetries      uint
	InitialInterval time.Duration
	// OnRetry is called before each wait. Optional.
	OnRetry func(err error, wait time.Duration)
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{MaxRetries: 3, InitialInterval: time.Second}
}

// RetryingProvider wraps a single backend and retries rate-limited calls
// with doubling backoff. Every other error is returned immediately.
type RetryingProvider struct {
	inner LLMProvider
	cfg   RetryConfig
}

var _ LLMProvider = (*RetryingProvider)(nil)

func NewRetryingProvider(inner LLMProvider, cfg RetryConfig) *RetryingProvider {
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = time.Second
	}
	return &RetryingProvider{inner: inner, cfg: cfg}
}

func (r *RetryingProvider) Chat(ctx context.Context, history []Message, options ...Option) (string, error) {
	return r.do(ctx, func() (string, error) {
		return r.inner.Chat(ctx, history, options...)
	})
}

func (r *RetryingProvider) Generate(ctx context.Context, prompt string, options ...Option) (string, error) {
	return r.do(ctx, func() (string, error) {
		return r.inner.Generate(ctx, prompt, options...)
	})
}

func (r *RetryingProvider) do(ctx context.Context, call func() (string, error)) (string, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.cfg.InitialInterval
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = r.cfg.InitialInterval << r.cfg.MaxRetries

	opts := []backoff.RetryOption{
		backoff.WithBackOff(b),
		backoff.WithMaxTries(r.cfg.MaxRetries + 1),
	}
	if r.cfg.OnRetry != nil {
		opts = append(opts, backoff.WithNotify(r.cfg.OnRetry))
	}

	out, err := backoff.Retry(ctx, func() (string, error) {
		text, err := call()
		if err != nil && !errors.Is(err, ErrRateLimited) {
			return "", backoff.Permanent(err)
		}
		return text, err
	}, opts...)
	if err != nil {
		return "", err
	}
	return out, nil
}
