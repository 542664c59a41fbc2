package mock

import (
	"context"
	"sync"

	"github.com/yungbote/neurobridge-kgbuild/internal/enrich"
)

// Response is one scripted outcome: Text on success, Err otherwise.
type Response struct {
	Text string
	Err  error
}

// Client is a scripted enrich.Client for dry runs and tests. Responses queued
// with On are consumed in order for an exact prompt; once a queue is empty the
// Default response is returned.
type Client struct {
	Default Response

	mu      sync.Mutex
	scripts map[string][]Response
	calls   []string
}

func New(defaultText string) *Client {
	return &Client{
		Default: Response{Text: defaultText},
		scripts: map[string][]Response{},
	}
}

func (c *Client) On(prompt string, responses ...Response) *Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scripts[prompt] = append(c.scripts[prompt], responses...)
	return c
}

func (c *Client) Generate(ctx context.Context, prompt string, opts enrich.Options) (string, error) {
	_ = opts
	if err := ctx.Err(); err != nil {
		return "", &enrich.ServiceError{Err: err}
	}

	c.mu.Lock()
	c.calls = append(c.calls, prompt)
	resp := c.Default
	if q := c.scripts[prompt]; len(q) > 0 {
		resp = q[0]
		c.scripts[prompt] = q[1:]
	}
	c.mu.Unlock()

	if resp.Err != nil {
		return "", resp.Err
	}
	return resp.Text, nil
}

// Calls returns every prompt seen, in call order.
func (c *Client) Calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

func (c *Client) CallCount(prompt string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, p := range c.calls {
		if p == prompt {
			n++
		}
	}
	return n
}
