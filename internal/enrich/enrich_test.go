package enrich

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestClassify(t *testing.T) {
	if Classify(nil) != nil {
		t.Fatalf("nil should stay nil")
	}

	rl := &RateLimitedError{RetryAfter: 3 * time.Second}
	got := Classify(fmt.Errorf("call failed: %w", rl))
	if r, ok := IsRateLimited(got); !ok || r.RetryAfter != 3*time.Second {
		t.Fatalf("rate limit lost in classification: %v", got)
	}

	plain := errors.New("boom")
	got = Classify(plain)
	var se *ServiceError
	if !errors.As(got, &se) {
		t.Fatalf("expected *ServiceError, got=%T", got)
	}
	if !errors.Is(got, plain) {
		t.Fatalf("service error should wrap cause")
	}
}

func TestErrorMessages(t *testing.T) {
	if msg := (&RateLimitedError{}).Error(); msg != "rate limited" {
		t.Fatalf("msg=%q", msg)
	}
	if msg := (&RateLimitedError{RetryAfter: time.Second, Err: errors.New("429")}).Error(); msg != "rate limited (retry after 1s): 429" {
		t.Fatalf("msg=%q", msg)
	}
	if msg := (&ServiceError{Err: errors.New("bad gateway")}).Error(); msg != "enrichment service error: bad gateway" {
		t.Fatalf("msg=%q", msg)
	}
}
