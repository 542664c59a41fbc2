package oaihttp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/yungbote/neurobridge-kgbuild/internal/config"
	"github.com/yungbote/neurobridge-kgbuild/internal/enrich"
	"github.com/yungbote/neurobridge-kgbuild/internal/pkg/httpx"
	"github.com/yungbote/neurobridge-kgbuild/internal/platform/logger"
)

// Client talks to an OpenAI-compatible chat completions endpoint. It never
// retries on its own: throttling surfaces as *enrich.RateLimitedError.
type Client struct {
	baseURL             string
	apiKey              string
	chatCompletionsPath string
	model               string
	temperature         float64
	timeout             time.Duration

	httpClient *http.Client
	log        *logger.Logger
	now        func() time.Time
}

func New(cfg config.LLMConfig, log *logger.Logger) (*Client, error) {
	if log == nil {
		return nil, errors.New("oai_http: logger required")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("oai_http: base_url required")
	}
	chatPath := strings.TrimSpace(cfg.ChatCompletionsPath)
	if chatPath == "" {
		chatPath = "/v1/chat/completions"
	}

	apiKey, err := cfg.ResolveAPIKey()
	if err != nil {
		return nil, err
	}

	tr := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	if p := strings.TrimSpace(cfg.ProxyURL); p != "" {
		if !strings.Contains(p, "://") {
			p = "http://" + p
		}
		u, err := url.Parse(p)
		if err != nil {
			return nil, fmt.Errorf("oai_http: invalid proxy url: %w", err)
		}
		tr.Proxy = http.ProxyURL(u)
	}

	timeout := cfg.Timeout.Duration
	if timeout <= 0 {
		timeout = 180 * time.Second
	}

	return &Client{
		baseURL:             baseURL,
		apiKey:              apiKey,
		chatCompletionsPath: chatPath,
		model:               strings.TrimSpace(cfg.Model),
		temperature:         cfg.Temperature,
		timeout:             timeout,
		httpClient:          &http.Client{Transport: tr},
		log:                 log.With("client", "OAIHTTP"),
		now:                 time.Now,
	}, nil
}

// NewWithHTTPClient is intended for tests; it avoids network access by using a custom RoundTripper.
func NewWithHTTPClient(cfg config.LLMConfig, log *logger.Logger, httpClient *http.Client) (*Client, error) {
	c, err := New(cfg, log)
	if err != nil {
		return nil, err
	}
	if httpClient != nil {
		c.httpClient = httpClient
	}
	return c, nil
}

// DefaultOptions returns the configured model and temperature.
func (c *Client) DefaultOptions() enrich.Options {
	return enrich.Options{Model: c.model, Temperature: c.temperature}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content,omitempty"`
		} `json:"message,omitempty"`
		Text string `json:"text,omitempty"`
	} `json:"choices"`
}

func (c *Client) Generate(ctx context.Context, prompt string, opts enrich.Options) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", &enrich.ServiceError{Err: errors.New("empty prompt")}
	}

	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = c.model
	}
	if model == "" {
		return "", &enrich.ServiceError{Err: errors.New("no model configured")}
	}

	msgs := make([]chatMessage, 0, 2)
	if s := strings.TrimSpace(opts.System); s != "" {
		msgs = append(msgs, chatMessage{Role: "system", Content: s})
	}
	msgs = append(msgs, chatMessage{Role: "user", Content: prompt})

	reqBody := chatCompletionRequest{
		Model:       model,
		Messages:    msgs,
		Temperature: opts.Temperature,
	}

	var resp chatCompletionResponse
	if err := c.doJSON(ctx, "POST", c.chatCompletionsPath, reqBody, &resp); err != nil {
		return "", c.classify(err)
	}

	text := extractChatText(resp)
	if strings.TrimSpace(text) == "" {
		return "", &enrich.ServiceError{Err: errors.New("empty upstream completion")}
	}
	return text, nil
}

func (c *Client) classify(err error) error {
	var he *HTTPError
	if errors.As(err, &he) && httpx.IsRateLimitStatus(he.StatusCode) {
		wait, _ := httpx.RetryAfter(he.Header, c.now())
		c.log.Debug("upstream throttled", "status", he.StatusCode, "retry_after", wait.String())
		return &enrich.RateLimitedError{RetryAfter: wait, Err: err}
	}
	return &enrich.ServiceError{Err: err}
}

func extractChatText(resp chatCompletionResponse) string {
	for _, ch := range resp.Choices {
		if strings.TrimSpace(ch.Message.Content) != "" {
			return ch.Message.Content
		}
		if strings.TrimSpace(ch.Text) != "" {
			return ch.Text
		}
	}
	return ""
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

func (c *Client) doJSON(ctx context.Context, method string, path string, body any, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}

	ctx2, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx2, method, c.baseURL+path, &buf)
	if err != nil {
		return err
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return &HTTPError{StatusCode: resp.StatusCode, Body: string(raw), Header: resp.Header}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode upstream response: %w", err)
	}
	return nil
}
