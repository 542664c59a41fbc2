package config

import "time"

type Duration struct {
	Duration time.Duration
}

type LogConfig struct {
	Mode  string `json:"mode" yaml:"mode"`
	Level string `json:"level,omitempty" yaml:"level,omitempty"`
}

type LLMConfig struct {
	// BaseURL of an OpenAI-compatible server; ChatCompletionsPath is appended to it.
	BaseURL             string `json:"base_url" yaml:"base_url"`
	ChatCompletionsPath string `json:"chat_completions_path,omitempty" yaml:"chat_completions_path,omitempty"`

	// APIKey wins over APIKeyPath when both are set.
	APIKey     string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	APIKeyPath string `json:"api_key_path,omitempty" yaml:"api_key_path,omitempty"`

	Model       string   `json:"model" yaml:"model"`
	Temperature float64  `json:"temperature" yaml:"temperature"`
	Timeout     Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`

	// ProxyURL routes upstream calls through an HTTP proxy. Empty means direct.
	ProxyURL string `json:"proxy_url,omitempty" yaml:"proxy_url,omitempty"`
}

type BatchConfig struct {
	// MaxRetries is the number of rate-limit retries per item. Total calls = 1 + MaxRetries.
	MaxRetries  int      `json:"max_retries" yaml:"max_retries"`
	BaseBackoff Duration `json:"base_backoff" yaml:"base_backoff"`
	MaxBackoff  Duration `json:"max_backoff" yaml:"max_backoff"`
}

type CheckpointConfig struct {
	// Backend is "file" or "redis".
	Backend string `json:"backend" yaml:"backend"`

	DescribePath string `json:"describe_path" yaml:"describe_path"`
	ExtractPath  string `json:"extract_path" yaml:"extract_path"`

	RedisAddr     string `json:"redis_addr,omitempty" yaml:"redis_addr,omitempty"`
	RedisPassword string `json:"redis_password,omitempty" yaml:"redis_password,omitempty"`
	RedisDB       int    `json:"redis_db,omitempty" yaml:"redis_db,omitempty"`
	RedisPrefix   string `json:"redis_prefix,omitempty" yaml:"redis_prefix,omitempty"`
}

type GraphConfig struct {
	// Backend is "neo4j", "sqlite", "postgres" or "memory".
	Backend string `json:"backend" yaml:"backend"`

	URI      string   `json:"uri,omitempty" yaml:"uri,omitempty"`
	User     string   `json:"user,omitempty" yaml:"user,omitempty"`
	Password string   `json:"password,omitempty" yaml:"password,omitempty"`
	Database string   `json:"database,omitempty" yaml:"database,omitempty"`
	Timeout  Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`

	// DSN is used by the sqlite and postgres backends.
	DSN string `json:"dsn,omitempty" yaml:"dsn,omitempty"`
}

type PromptConfig struct {
	// Optional text/template files overriding the built-in prompts.
	DescribeTemplatePath string `json:"describe_template_path,omitempty" yaml:"describe_template_path,omitempty"`
	ExtractTemplatePath  string `json:"extract_template_path,omitempty" yaml:"extract_template_path,omitempty"`
}

type MetricsConfig struct {
	// Textfile, when set, receives a Prometheus text exposition after every command.
	Textfile string `json:"textfile,omitempty" yaml:"textfile,omitempty"`
}

type Config struct {
	Log        LogConfig        `json:"log" yaml:"log"`
	LLM        LLMConfig        `json:"llm" yaml:"llm"`
	Batch      BatchConfig      `json:"batch" yaml:"batch"`
	Checkpoint CheckpointConfig `json:"checkpoint" yaml:"checkpoint"`
	Graph      GraphConfig      `json:"graph" yaml:"graph"`
	Prompts    PromptConfig     `json:"prompts" yaml:"prompts"`
	Metrics    MetricsConfig    `json:"metrics" yaml:"metrics"`
}
