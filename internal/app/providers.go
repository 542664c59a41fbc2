package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/yungbote/neurobridge-kgbuild/internal/checkpoint"
	"github.com/yungbote/neurobridge-kgbuild/internal/enrich"
	"github.com/yungbote/neurobridge-kgbuild/internal/enrich/mock"
	"github.com/yungbote/neurobridge-kgbuild/internal/enrich/oaihttp"
	"github.com/yungbote/neurobridge-kgbuild/internal/graph"
	"github.com/yungbote/neurobridge-kgbuild/internal/kb"
	"github.com/yungbote/neurobridge-kgbuild/internal/platform/neo4jdb"
)

type ProviderErrorCode string

const (
	ProviderErrorUnknownBackend ProviderErrorCode = "unknown_backend"
	ProviderErrorUnknownStage   ProviderErrorCode = "unknown_stage"
	ProviderErrorConnectFailed  ProviderErrorCode = "connect_failed"
)

// ProviderError reports a backend that could not be selected or reached.
type ProviderError struct {
	Component string
	Backend   string
	Code      ProviderErrorCode
	Cause     error
}

func (e *ProviderError) Error() string {
	if e == nil {
		return "provider bootstrap failed"
	}
	return fmt.Sprintf("%s provider bootstrap failed (code=%s backend=%q): %v", e.Component, e.Code, e.Backend, e.Cause)
}

func (e *ProviderError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

var newNeo4jClient = neo4jdb.New

// CheckpointStore returns the store for one stage. File stores use the
// per-stage path; Redis stores share one client and use the stage as key.
func (a *App) CheckpointStore(ctx context.Context, stage string) (checkpoint.Store, error) {
	cfg := a.Cfg.Checkpoint
	switch strings.TrimSpace(cfg.Backend) {
	case "", "file":
		var path string
		switch stage {
		case kb.StageDescribe:
			path = cfg.DescribePath
		case kb.StageExtract:
			path = cfg.ExtractPath
		default:
			return nil, &ProviderError{Component: "checkpoint", Backend: "file", Code: ProviderErrorUnknownStage, Cause: fmt.Errorf("no checkpoint path for stage %q", stage)}
		}
		a.Log.Info("Using file checkpoint", "stage", stage, "path", path)
		return checkpoint.NewFileStore(path), nil
	case "redis":
		client, err := a.redisClient(ctx)
		if err != nil {
			return nil, err
		}
		store := checkpoint.NewRedisStore(client, stage, checkpoint.WithPrefix(cfg.RedisPrefix))
		a.Log.Info("Using redis checkpoint", "stage", stage, "addr", cfg.RedisAddr, "key", store.Key())
		return store, nil
	default:
		return nil, &ProviderError{Component: "checkpoint", Backend: cfg.Backend, Code: ProviderErrorUnknownBackend, Cause: fmt.Errorf("unsupported checkpoint backend %q", cfg.Backend)}
	}
}

func (a *App) redisClient(ctx context.Context) (backend.UniversalClient, error) {
	if a.redis != nil {
		return a.redis, nil
	}
	cfg := a.Cfg.Checkpoint
	client := backend.NewClient(&backend.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pctx).Err(); err != nil {
		_ = client.Close()
		perr := &ProviderError{Component: "checkpoint", Backend: "redis", Code: ProviderErrorConnectFailed, Cause: err}
		a.Log.Error("Checkpoint provider bootstrap failed", "backend", "redis", "addr", cfg.RedisAddr, "error_code", perr.Code, "error", err)
		return nil, perr
	}
	a.redis = client
	a.onClose(func(context.Context) error {
		a.redis = nil
		return client.Close()
	})
	return client, nil
}

// EnrichClient returns the configured chat-completions client and its
// default options. With dryRun set, a scripted client answers every prompt
// with dryRunText and no network is touched.
func (a *App) EnrichClient(dryRun bool, dryRunText string) (enrich.Client, enrich.Options, error) {
	opts := enrich.Options{Model: a.Cfg.LLM.Model, Temperature: a.Cfg.LLM.Temperature}
	if dryRun {
		a.Log.Warn("Dry run: responses are scripted", "response", dryRunText)
		return mock.New(dryRunText), opts, nil
	}
	c, err := oaihttp.New(a.Cfg.LLM, a.Log)
	if err != nil {
		return nil, opts, fmt.Errorf("init enrichment client: %w", err)
	}
	return c, c.DefaultOptions(), nil
}

// GraphLoader opens the configured graph backend. The memory backend is
// returned as well so dry runs can report what would have been written.
func (a *App) GraphLoader(ctx context.Context) (*graph.Loader, *graph.MemoryWriter, error) {
	cfg := a.Cfg.Graph
	var w graph.Writer
	var mem *graph.MemoryWriter
	switch strings.TrimSpace(cfg.Backend) {
	case "neo4j":
		client, err := newNeo4jClient(ctx, cfg, a.Log)
		if err != nil {
			return nil, nil, &ProviderError{Component: "graph", Backend: "neo4j", Code: ProviderErrorConnectFailed, Cause: err}
		}
		nw, err := graph.NewNeo4jWriter(client, a.Log)
		if err != nil {
			_ = client.Close(ctx)
			return nil, nil, err
		}
		nw.EnsureSchema(ctx)
		a.onClose(nw.Close)
		w = nw
	case "sqlite", "postgres":
		sw, err := graph.OpenSQL(cfg.Backend, cfg.DSN, a.Log)
		if err != nil {
			return nil, nil, &ProviderError{Component: "graph", Backend: cfg.Backend, Code: ProviderErrorConnectFailed, Cause: err}
		}
		a.onClose(sw.Close)
		w = sw
	case "memory":
		mem = graph.NewMemoryWriter()
		w = mem
	default:
		return nil, nil, &ProviderError{Component: "graph", Backend: cfg.Backend, Code: ProviderErrorUnknownBackend, Cause: fmt.Errorf("unsupported graph backend %q", cfg.Backend)}
	}
	a.Log.Info("Using graph backend", "backend", cfg.Backend)
	loader, err := graph.NewLoader(w, a.Log, a.Metrics)
	if err != nil {
		return nil, nil, err
	}
	return loader, mem, nil
}
