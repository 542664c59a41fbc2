package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/neurobridge-kgbuild/internal/platform/envutil"
)

func (d *Duration) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "" || s == "null" {
		d.Duration = 0
		return nil
	}
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		u, err := strconv.Unquote(s)
		if err != nil {
			return err
		}
		return d.parse(u)
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("duration must be a JSON string like \"5s\" or an int nanoseconds: %w", err)
	}
	d.Duration = time.Duration(n)
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Duration.String())
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("duration must be a scalar, got yaml kind %d", node.Kind)
	}
	if node.Tag == "!!int" {
		n, err := strconv.ParseInt(node.Value, 10, 64)
		if err != nil {
			return err
		}
		d.Duration = time.Duration(n)
		return nil
	}
	return d.parse(node.Value)
}

func (d *Duration) parse(s string) error {
	if strings.TrimSpace(s) == "" {
		d.Duration = 0
		return nil
	}
	dd, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return err
	}
	d.Duration = dd
	return nil
}

func Default() *Config {
	return &Config{
		Log: LogConfig{Mode: "development"},
		LLM: LLMConfig{
			BaseURL:             "https://api.openai.com",
			ChatCompletionsPath: "/v1/chat/completions",
			Model:               "gpt-3.5-turbo",
			Temperature:         0,
			Timeout:             Duration{Duration: 180 * time.Second},
		},
		Batch: BatchConfig{
			MaxRetries:  6,
			BaseBackoff: Duration{Duration: 10 * time.Second},
			MaxBackoff:  Duration{Duration: 2 * time.Minute},
		},
		Checkpoint: CheckpointConfig{
			Backend:      "file",
			DescribePath: filepath.Join("data", "corpus.json"),
			ExtractPath:  filepath.Join("data", "relations.json"),
			RedisPrefix:  "kgbuild:checkpoint:",
		},
		Graph: GraphConfig{
			Backend: "neo4j",
			URI:     "bolt://localhost:7687",
			User:    "neo4j",
			Timeout: Duration{Duration: 10 * time.Second},
		},
	}
}

// Load resolves configuration from defaults, then the config file, then the
// environment. path may be empty: KG_CONFIG_PATH is consulted next, then
// ./config/kgbuild.yaml and ./config/kgbuild.json.
func Load(path string) (*Config, error) {
	cfg := Default()

	cfgPath := strings.TrimSpace(path)
	if cfgPath == "" {
		cfgPath, _ = envutil.String("KG_CONFIG_PATH")
	}
	if cfgPath == "" {
		if wd, err := os.Getwd(); err == nil {
			for _, name := range []string{"kgbuild.yaml", "kgbuild.yml", "kgbuild.json"} {
				p := filepath.Join(wd, "config", name)
				if _, err := os.Stat(p); err == nil {
					cfgPath = p
					break
				}
			}
		}
	}

	if cfgPath != "" {
		if err := decodeFile(cfgPath, cfg); err != nil {
			return nil, err
		}
	}

	applyEnv(cfg)
	normalize(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decodeFile overlays the file onto cfg so that omitted keys keep their defaults.
func decodeFile(path string, cfg *Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return fmt.Errorf("config: decode yaml %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(b, cfg); err != nil {
			return fmt.Errorf("config: decode json %s: %w", path, err)
		}
	}
	return nil
}

func applyEnv(cfg *Config) {
	if v, ok := envutil.String("LOG_MODE"); ok {
		cfg.Log.Mode = v
	}
	if v, ok := envutil.String("LOG_LEVEL"); ok {
		cfg.Log.Level = v
	}

	if v, ok := envutil.String("OPENAI_BASE_URL"); ok {
		cfg.LLM.BaseURL = v
	}
	if v, ok := envutil.String("OPENAI_API_KEY"); ok {
		cfg.LLM.APIKey = v
	}
	if v, ok := envutil.String("OPENAI_API_KEY_PATH"); ok {
		cfg.LLM.APIKeyPath = v
	}
	if v, ok := envutil.String("OPENAI_MODEL"); ok {
		cfg.LLM.Model = v
	}
	cfg.LLM.Temperature = envutil.Float("OPENAI_TEMPERATURE", cfg.LLM.Temperature)
	cfg.LLM.Timeout.Duration = envutil.Duration("OPENAI_TIMEOUT_SECONDS", cfg.LLM.Timeout.Duration)
	if v, ok := envutil.String("KG_LLM_PROXY_URL"); ok {
		cfg.LLM.ProxyURL = v
	}

	cfg.Batch.MaxRetries = envutil.Int("KG_MAX_RETRIES", cfg.Batch.MaxRetries)
	cfg.Batch.BaseBackoff.Duration = envutil.Duration("KG_BASE_BACKOFF", cfg.Batch.BaseBackoff.Duration)
	cfg.Batch.MaxBackoff.Duration = envutil.Duration("KG_MAX_BACKOFF", cfg.Batch.MaxBackoff.Duration)

	if v, ok := envutil.String("KG_CHECKPOINT_BACKEND"); ok {
		cfg.Checkpoint.Backend = v
	}
	if v, ok := envutil.String("REDIS_ADDR"); ok {
		cfg.Checkpoint.RedisAddr = v
	}
	if v, ok := envutil.String("REDIS_PASSWORD"); ok {
		cfg.Checkpoint.RedisPassword = v
	}
	cfg.Checkpoint.RedisDB = envutil.Int("REDIS_DB", cfg.Checkpoint.RedisDB)

	if v, ok := envutil.String("KG_GRAPH_BACKEND"); ok {
		cfg.Graph.Backend = v
	}
	if v, ok := envutil.String("NEO4J_URI"); ok {
		cfg.Graph.URI = v
	}
	if v, ok := envutil.String("NEO4J_USER"); ok {
		cfg.Graph.User = v
	}
	if v, ok := envutil.String("NEO4J_PASSWORD"); ok {
		cfg.Graph.Password = v
	}
	if v, ok := envutil.String("NEO4J_DATABASE"); ok {
		cfg.Graph.Database = v
	}
	cfg.Graph.Timeout.Duration = envutil.Duration("NEO4J_TIMEOUT_SECONDS", cfg.Graph.Timeout.Duration)
	if v, ok := envutil.String("KG_GRAPH_DSN"); ok {
		cfg.Graph.DSN = v
	}

	if v, ok := envutil.String("KG_METRICS_TEXTFILE"); ok {
		cfg.Metrics.Textfile = v
	}
}

func normalize(cfg *Config) {
	cfg.Log.Mode = strings.TrimSpace(cfg.Log.Mode)
	if cfg.Log.Mode == "" {
		cfg.Log.Mode = "development"
	}
	cfg.LLM.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.LLM.BaseURL), "/")
	cfg.LLM.ChatCompletionsPath = strings.TrimSpace(cfg.LLM.ChatCompletionsPath)
	if cfg.LLM.ChatCompletionsPath == "" {
		cfg.LLM.ChatCompletionsPath = "/v1/chat/completions"
	}
	cfg.LLM.Model = strings.TrimSpace(cfg.LLM.Model)
	cfg.Checkpoint.Backend = strings.ToLower(strings.TrimSpace(cfg.Checkpoint.Backend))
	if cfg.Checkpoint.Backend == "" {
		cfg.Checkpoint.Backend = "file"
	}
	cfg.Graph.Backend = strings.ToLower(strings.TrimSpace(cfg.Graph.Backend))
	if cfg.Graph.Backend == "" {
		cfg.Graph.Backend = "neo4j"
	}
}

// ResolveAPIKey returns the inline key or the first line of the key file.
func (c LLMConfig) ResolveAPIKey() (string, error) {
	if k := strings.TrimSpace(c.APIKey); k != "" {
		return k, nil
	}
	if strings.TrimSpace(c.APIKeyPath) == "" {
		return "", nil
	}
	b, err := os.ReadFile(c.APIKeyPath)
	if err != nil {
		return "", fmt.Errorf("config: read api key file: %w", err)
	}
	key, _, _ := strings.Cut(string(b), "\n")
	return strings.TrimSpace(key), nil
}
