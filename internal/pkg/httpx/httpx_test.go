package httpx

import (
	"net/http"
	"testing"
	"time"
)

func TestRetryAfter(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name   string
		value  string
		want   time.Duration
		wantOK bool
	}{
		{name: "absent", value: "", wantOK: false},
		{name: "seconds", value: "7", want: 7 * time.Second, wantOK: true},
		{name: "negative", value: "-3", wantOK: false},
		{name: "http date", value: now.Add(90 * time.Second).Format(http.TimeFormat), want: 90 * time.Second, wantOK: true},
		{name: "past date", value: now.Add(-time.Minute).Format(http.TimeFormat), want: 0, wantOK: true},
		{name: "garbage", value: "soon", wantOK: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := http.Header{}
			if tc.value != "" {
				h.Set("Retry-After", tc.value)
			}
			got, ok := RetryAfter(h, now)
			if ok != tc.wantOK {
				t.Fatalf("ok: want=%v got=%v", tc.wantOK, ok)
			}
			if ok && got != tc.want {
				t.Fatalf("duration: want=%s got=%s", tc.want, got)
			}
		})
	}
}

func TestBackoff(t *testing.T) {
	base := time.Second
	max := 10 * time.Second
	want := []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second, 10 * time.Second, 10 * time.Second}
	for attempt, w := range want {
		if got := Backoff(attempt, base, max); got != w {
			t.Fatalf("attempt %d: want=%s got=%s", attempt, w, got)
		}
	}
	if got := Backoff(3, 0, max); got != 0 {
		t.Fatalf("zero base: got=%s", got)
	}
}

func TestBackoffSaturatesWithoutMax(t *testing.T) {
	for _, attempt := range []int{30, 40, 64, 200} {
		if got := Backoff(attempt, 10*time.Second, 0); got <= 0 {
			t.Fatalf("attempt %d: overflowed to %s", attempt, got)
		}
	}
	if got := JitterSleep(Backoff(64, 10*time.Second, 0)); got <= 0 {
		t.Fatalf("jittered saturated backoff must stay positive, got=%s", got)
	}
}

func TestIsRateLimitStatus(t *testing.T) {
	if !IsRateLimitStatus(429) {
		t.Fatalf("429 must be a rate limit")
	}
	for _, code := range []int{400, 500, 503} {
		if IsRateLimitStatus(code) {
			t.Fatalf("%d is not a rate limit", code)
		}
	}
}
