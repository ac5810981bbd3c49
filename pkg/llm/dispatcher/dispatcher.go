// Package dispatcher sends a conversation to an ordered list of completion
// backends and returns the first usable answer.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"textbook-qa-be/internal/pkg/logger"
	"textbook-qa-be/pkg/llm"
	"textbook-qa-be/pkg/metrics"
	"textbook-qa-be/pkg/rag/citation"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const module = "DISPATCHER"

var tracer = otel.Tracer("dispatcher")

// DefaultTimeout bounds a single backend attempt.
const DefaultTimeout = 45 * time.Second

// Backend is one entry of a priority list.
type Backend struct {
	Name     string // provider name, e.g. "gemini"
	Model    string
	Provider llm.LLMProvider
}

func (b Backend) String() string {
	return b.Name + ":" + b.Model
}

type Attempt struct {
	Backend  string
	Reason   string // rate_limit, quota, timeout, empty or error
	Err      error
	Duration time.Duration
}

// ExhaustedError is returned when no backend produced an answer.
type ExhaustedError struct {
	Attempts []Attempt
	Last     error
}

func (e *ExhaustedError) Error() string {
	if len(e.Attempts) == 0 {
		return "dispatcher: no backends configured"
	}
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, a.Backend+"="+a.Reason)
	}
	return fmt.Sprintf("dispatcher: all %d backends failed (%s): %v", len(e.Attempts), strings.Join(parts, ", "), e.Last)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Last
}

var ErrNoBackends = errors.New("dispatcher: no backends configured")

type Result struct {
	// Text is the visible answer with any source marker block removed.
	Text    string
	Sources []citation.Source
	// HasMarker is true when the model emitted a source marker block.
	HasMarker bool
	Backend   string
	Attempts  []Attempt
}

type Dispatcher struct {
	timeout time.Duration
	logger  logger.ILogger
}

func New(timeout time.Duration, log logger.ILogger) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Dispatcher{timeout: timeout, logger: log}
}

// Dispatch tries backends in order. Every failure, whatever its kind, moves
// on to the next backend; only exhausting the list is an error.
func (d *Dispatcher) Dispatch(ctx context.Context, backends []Backend, messages []llm.Message, opts ...llm.Option) (*Result, error) {
	if len(backends) == 0 {
		return nil, &ExhaustedError{Last: ErrNoBackends}
	}

	var attempts []Attempt
	var last error
	for _, b := range backends {
		if err := ctx.Err(); err != nil {
			last = err
			break
		}

		text, attempt := d.try(ctx, b, messages, opts)
		if attempt.Err == nil {
			parsed := citation.Parse(text)
			return &Result{
				Text:      parsed.Text,
				Sources:   parsed.Sources,
				HasMarker: parsed.Found,
				Backend:   b.String(),
				Attempts:  attempts,
			}, nil
		}

		attempts = append(attempts, attempt)
		last = attempt.Err
		d.logger.Warn(module, "Backend failed, trying next", map[string]interface{}{
			"backend": b.String(),
			"reason":  attempt.Reason,
			"error":   attempt.Err.Error(),
		})
	}

	metrics.LLMExhaustedTotal.Inc()
	return nil, &ExhaustedError{Attempts: attempts, Last: last}
}

func (d *Dispatcher) try(ctx context.Context, b Backend, messages []llm.Message, opts []llm.Option) (string, Attempt) {
	attemptCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	attemptCtx, span := tracer.Start(attemptCtx, "dispatcher.attempt")
	span.SetAttributes(attribute.String("llm.provider", b.Name), attribute.String("llm.model", b.Model))
	defer span.End()

	start := time.Now()
	text, err := b.Provider.Chat(attemptCtx, messages, opts...)
	if err == nil && strings.TrimSpace(text) == "" {
		err = llm.ErrEmptyResponse
	}
	if err == nil && attemptCtx.Err() != nil {
		err = attemptCtx.Err()
	}
	elapsed := time.Since(start)

	reason := classify(err)
	metrics.LLMCallDuration.WithLabelValues(b.Name, b.Model).Observe(elapsed.Seconds())
	metrics.LLMCallTotal.WithLabelValues(b.Name, b.Model, reason).Inc()
	if err != nil {
		span.RecordError(err)
	}
	return text, Attempt{Backend: b.String(), Reason: reason, Err: err, Duration: elapsed}
}

func classify(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, llm.ErrQuotaExceeded):
		return "quota"
	case errors.Is(err, llm.ErrRateLimited):
		return "rate_limit"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, llm.ErrEmptyResponse):
		return "empty"
	default:
		return "error"
	}
}
