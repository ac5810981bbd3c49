package llm

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrRateLimited   = errors.New("llm: rate limited")
	ErrQuotaExceeded = errors.New("llm: quota exceeded")
	ErrEmptyResponse = errors.New("llm: empty response")
)

// ProviderError carries the HTTP status and body of a failed backend call.
// Kind is one of the sentinel errors above when the failure is classified.
type ProviderError struct {
	Provider   string
	StatusCode int
	Body       string
	Kind       error
}

func (e *ProviderError) Error() string {
	body := e.Body
	if len(body) > 300 {
		body = body[:300] + "..."
	}
	return fmt.Sprintf("%s api error (status %d): %s", e.Provider, e.StatusCode, body)
}

func (e *ProviderError) Unwrap() error {
	return e.Kind
}

// NewProviderError classifies a non-200 backend response.
func NewProviderError(provider string, statusCode int, body []byte) *ProviderError {
	e := &ProviderError{Provider: provider, StatusCode: statusCode, Body: string(body)}
	lower := strings.ToLower(e.Body)
	switch {
	case strings.Contains(lower, "quota"):
		e.Kind = ErrQuotaExceeded
	case statusCode == http.StatusTooManyRequests,
		strings.Contains(lower, "rate limit"),
		strings.Contains(lower, "resource_exhausted"):
		e.Kind = ErrRateLimited
	}
	return e
}

// IsRateLimit reports whether err is a rate-limit or quota failure.
func IsRateLimit(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrQuotaExceeded)
}
