package config

import (
	"fmt"
	"net/url"
	"strings"
)

type ErrorCode string

const (
	ErrorInvalidBaseURL       ErrorCode = "invalid_base_url"
	ErrorMissingModel         ErrorCode = "missing_model"
	ErrorInvalidProxyURL      ErrorCode = "invalid_proxy_url"
	ErrorInvalidRetries       ErrorCode = "invalid_max_retries"
	ErrorInvalidBackoff       ErrorCode = "invalid_backoff"
	ErrorUnknownCheckpoint    ErrorCode = "unknown_checkpoint_backend"
	ErrorMissingCheckpointLoc ErrorCode = "missing_checkpoint_location"
	ErrorUnknownGraph         ErrorCode = "unknown_graph_backend"
	ErrorMissingGraphLoc      ErrorCode = "missing_graph_location"
)

type Error struct {
	Code  ErrorCode
	Value string
	Cause error
}

func (e *Error) Error() string {
	if e == nil {
		return "invalid config"
	}
	switch e.Code {
	case ErrorInvalidBaseURL:
		return fmt.Sprintf("invalid llm.base_url=%q; expected absolute URL like https://api.openai.com", e.Value)
	case ErrorMissingModel:
		return "llm.model is required"
	case ErrorInvalidProxyURL:
		return fmt.Sprintf("invalid llm.proxy_url=%q", e.Value)
	case ErrorInvalidRetries:
		return fmt.Sprintf("invalid batch.max_retries=%s; expected a non-negative integer", e.Value)
	case ErrorInvalidBackoff:
		return fmt.Sprintf("invalid batch backoff: %s", e.Value)
	case ErrorUnknownCheckpoint:
		return fmt.Sprintf("unknown checkpoint.backend=%q; expected file or redis", e.Value)
	case ErrorMissingCheckpointLoc:
		return fmt.Sprintf("checkpoint location missing: %s", e.Value)
	case ErrorUnknownGraph:
		return fmt.Sprintf("unknown graph.backend=%q; expected neo4j, sqlite, postgres or memory", e.Value)
	case ErrorMissingGraphLoc:
		return fmt.Sprintf("graph location missing: %s", e.Value)
	default:
		return "invalid config"
	}
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func (c *Config) Validate() error {
	if u, err := url.Parse(c.LLM.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return &Error{Code: ErrorInvalidBaseURL, Value: c.LLM.BaseURL, Cause: err}
	}
	if c.LLM.Model == "" {
		return &Error{Code: ErrorMissingModel}
	}
	if p := strings.TrimSpace(c.LLM.ProxyURL); p != "" {
		if u, err := url.Parse(p); err != nil || u.Host == "" {
			return &Error{Code: ErrorInvalidProxyURL, Value: p, Cause: err}
		}
	}

	if c.Batch.MaxRetries < 0 {
		return &Error{Code: ErrorInvalidRetries, Value: fmt.Sprint(c.Batch.MaxRetries)}
	}
	if c.Batch.BaseBackoff.Duration < 0 || c.Batch.MaxBackoff.Duration < 0 {
		return &Error{Code: ErrorInvalidBackoff, Value: "durations must be non-negative"}
	}
	if c.Batch.MaxBackoff.Duration > 0 && c.Batch.MaxBackoff.Duration < c.Batch.BaseBackoff.Duration {
		return &Error{Code: ErrorInvalidBackoff, Value: "max_backoff is smaller than base_backoff"}
	}

	switch c.Checkpoint.Backend {
	case "file":
		if strings.TrimSpace(c.Checkpoint.DescribePath) == "" || strings.TrimSpace(c.Checkpoint.ExtractPath) == "" {
			return &Error{Code: ErrorMissingCheckpointLoc, Value: "checkpoint.describe_path and checkpoint.extract_path"}
		}
	case "redis":
		if strings.TrimSpace(c.Checkpoint.RedisAddr) == "" {
			return &Error{Code: ErrorMissingCheckpointLoc, Value: "checkpoint.redis_addr"}
		}
	default:
		return &Error{Code: ErrorUnknownCheckpoint, Value: c.Checkpoint.Backend}
	}

	switch c.Graph.Backend {
	case "neo4j":
		if strings.TrimSpace(c.Graph.URI) == "" {
			return &Error{Code: ErrorMissingGraphLoc, Value: "graph.uri"}
		}
	case "sqlite", "postgres":
		if strings.TrimSpace(c.Graph.DSN) == "" {
			return &Error{Code: ErrorMissingGraphLoc, Value: "graph.dsn"}
		}
	case "memory":
	default:
		return &Error{Code: ErrorUnknownGraph, Value: c.Graph.Backend}
	}
	return nil
}
