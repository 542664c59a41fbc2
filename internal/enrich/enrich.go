package enrich

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Options are the decoding options sent with a prompt. Enrichment runs want
// deterministic output, so Temperature defaults to zero.
type Options struct {
	Model       string
	Temperature float64
	System      string
}

// Client is the boundary to the external text-generation service. Generate is
// synchronous and makes exactly one upstream request per call; retrying is the
// caller's job. Failures are either *RateLimitedError or *ServiceError.
type Client interface {
	Generate(ctx context.Context, prompt string, opts Options) (string, error)
}

// RateLimitedError means the upstream asked us to slow down. The identical
// prompt may be retried after RetryAfter (zero when the service gave no hint).
type RateLimitedError struct {
	RetryAfter time.Duration
	Err        error
}

func (e *RateLimitedError) Error() string {
	if e == nil {
		return "rate limited"
	}
	msg := "rate limited"
	if e.RetryAfter > 0 {
		msg = fmt.Sprintf("rate limited (retry after %s)", e.RetryAfter)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *RateLimitedError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ServiceError is any other upstream failure. It is not retried for the current item.
type ServiceError struct {
	Err error
}

func (e *ServiceError) Error() string {
	if e == nil || e.Err == nil {
		return "enrichment service error"
	}
	return "enrichment service error: " + e.Err.Error()
}

func (e *ServiceError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Classify normalizes an arbitrary error returned by a Client: rate-limit
// errors pass through, everything else becomes a *ServiceError.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	var rl *RateLimitedError
	if errors.As(err, &rl) {
		return rl
	}
	var se *ServiceError
	if errors.As(err, &se) {
		return se
	}
	return &ServiceError{Err: err}
}

// IsRateLimited reports whether err is (or wraps) a *RateLimitedError.
func IsRateLimited(err error) (*RateLimitedError, bool) {
	var rl *RateLimitedError
	if errors.As(err, &rl) {
		return rl, true
	}
	return nil, false
}
