package oaihttp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/yungbote/neurobridge-kgbuild/internal/config"
	"github.com/yungbote/neurobridge-kgbuild/internal/enrich"
	"github.com/yungbote/neurobridge-kgbuild/internal/platform/logger"
)

type roundTripperFunc func(req *http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }

func jsonResponse(status int, body any, header http.Header) *http.Response {
	b, _ := json.Marshal(body)
	if header == nil {
		header = http.Header{}
	}
	header.Set("Content-Type", "application/json")
	return &http.Response{
		StatusCode: status,
		Header:     header,
		Body:       io.NopCloser(bytes.NewReader(b)),
	}
}

func completion(text string) map[string]any {
	return map[string]any{
		"choices": []any{
			map[string]any{"message": map[string]any{"content": text}},
		},
	}
}

func testConfig() config.LLMConfig {
	return config.LLMConfig{
		BaseURL:             "http://upstream",
		ChatCompletionsPath: "/v1/chat/completions",
		APIKey:              "sk-test",
		Model:               "gpt-3.5-turbo",
		Timeout:             config.Duration{Duration: 2 * time.Second},
	}
}

func TestGenerateSendsPromptDeterministically(t *testing.T) {
	client := &http.Client{
		Transport: roundTripperFunc(func(req *http.Request) (*http.Response, error) {
			if req.URL.Path != "/v1/chat/completions" {
				t.Fatalf("unexpected path: %s", req.URL.Path)
			}
			if got := req.Header.Get("Authorization"); got != "Bearer sk-test" {
				t.Fatalf("authorization=%q", got)
			}

			var in map[string]any
			if err := json.NewDecoder(req.Body).Decode(&in); err != nil {
				t.Fatalf("decode req: %v", err)
			}
			if in["model"] != "gpt-3.5-turbo" {
				t.Fatalf("model=%v", in["model"])
			}
			if temp, ok := in["temperature"].(float64); !ok || temp != 0 {
				t.Fatalf("temperature must be sent explicitly as 0, got=%v", in["temperature"])
			}
			msgs, _ := in["messages"].([]any)
			if len(msgs) != 1 {
				t.Fatalf("messages=%d", len(msgs))
			}
			return jsonResponse(http.StatusOK, completion(`[["a","r","b"]]`), nil), nil
		}),
	}

	c, err := NewWithHTTPClient(testConfig(), logger.NewNop(), client)
	if err != nil {
		t.Fatalf("NewWithHTTPClient: %v", err)
	}
	out, err := c.Generate(context.Background(), "extract triples", c.DefaultOptions())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if out != `[["a","r","b"]]` {
		t.Fatalf("out=%q", out)
	}
}

func TestGenerateClassifiesThrottling(t *testing.T) {
	client := &http.Client{
		Transport: roundTripperFunc(func(req *http.Request) (*http.Response, error) {
			h := http.Header{}
			h.Set("Retry-After", "12")
			return jsonResponse(http.StatusTooManyRequests, map[string]any{"error": "slow down"}, h), nil
		}),
	}

	c, err := NewWithHTTPClient(testConfig(), logger.NewNop(), client)
	if err != nil {
		t.Fatalf("NewWithHTTPClient: %v", err)
	}
	_, err = c.Generate(context.Background(), "describe A", enrich.Options{})
	rl, ok := enrich.IsRateLimited(err)
	if !ok {
		t.Fatalf("expected rate limited, got=%T %v", err, err)
	}
	if rl.RetryAfter != 12*time.Second {
		t.Fatalf("retry after=%s", rl.RetryAfter)
	}
}

func TestGenerateClassifiesServiceErrors(t *testing.T) {
	cases := []struct {
		name string
		resp func() (*http.Response, error)
	}{
		{"server error", func() (*http.Response, error) {
			return jsonResponse(http.StatusBadGateway, map[string]any{"error": "upstream"}, nil), nil
		}},
		{"unauthorized", func() (*http.Response, error) {
			return jsonResponse(http.StatusUnauthorized, map[string]any{"error": "bad key"}, nil), nil
		}},
		{"empty completion", func() (*http.Response, error) {
			return jsonResponse(http.StatusOK, completion("   "), nil), nil
		}},
		{"transport", func() (*http.Response, error) {
			return nil, errors.New("connection refused")
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := &http.Client{
				Transport: roundTripperFunc(func(req *http.Request) (*http.Response, error) { return tc.resp() }),
			}
			c, err := NewWithHTTPClient(testConfig(), logger.NewNop(), client)
			if err != nil {
				t.Fatalf("NewWithHTTPClient: %v", err)
			}
			_, err = c.Generate(context.Background(), "describe A", enrich.Options{})
			var se *enrich.ServiceError
			if !errors.As(err, &se) {
				t.Fatalf("expected *enrich.ServiceError, got=%T %v", err, err)
			}
			if _, ok := enrich.IsRateLimited(err); ok {
				t.Fatalf("must not be classified as rate limited")
			}
		})
	}
}

func TestNewRejectsMissingBaseURL(t *testing.T) {
	cfg := testConfig()
	cfg.BaseURL = ""
	if _, err := New(cfg, logger.NewNop()); err == nil {
		t.Fatalf("expected error")
	}
}

func TestNewUsesExplicitProxy(t *testing.T) {
	cfg := testConfig()
	cfg.ProxyURL = "192.168.1.34:7890"
	c, err := New(cfg, logger.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	tr, ok := c.httpClient.Transport.(*http.Transport)
	if !ok || tr.Proxy == nil {
		t.Fatalf("proxy not configured")
	}
	req, _ := http.NewRequest("POST", "http://upstream/v1/chat/completions", nil)
	u, err := tr.Proxy(req)
	if err != nil || u == nil || u.Host != "192.168.1.34:7890" {
		t.Fatalf("proxy=%v err=%v", u, err)
	}
}
