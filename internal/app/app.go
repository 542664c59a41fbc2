package app

import (
	"context"
	"errors"
	"fmt"

	backend "github.com/redis/go-redis/v9"

	"github.com/yungbote/neurobridge-kgbuild/internal/batch"
	"github.com/yungbote/neurobridge-kgbuild/internal/config"
	"github.com/yungbote/neurobridge-kgbuild/internal/observability"
	"github.com/yungbote/neurobridge-kgbuild/internal/platform/logger"
)

// App holds the process-wide pieces every kgbuild command shares.
type App struct {
	Log     *logger.Logger
	Cfg     *config.Config
	Metrics *observability.Metrics

	redis   backend.UniversalClient
	closers []func(context.Context) error
}

// New loads configuration from path (see config.Load) and builds the logger.
func New(path string) (*App, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(cfg.Log.Mode, cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return NewWithConfig(cfg, log), nil
}

func NewWithConfig(cfg *config.Config, log *logger.Logger) *App {
	return &App{
		Log:     log,
		Cfg:     cfg,
		Metrics: observability.New(),
	}
}

func (a *App) RetryPolicy() batch.RetryPolicy {
	return batch.RetryPolicy{
		MaxRetries:  a.Cfg.Batch.MaxRetries,
		BaseBackoff: a.Cfg.Batch.BaseBackoff.Duration,
		MaxBackoff:  a.Cfg.Batch.MaxBackoff.Duration,
	}
}

func (a *App) onClose(fn func(context.Context) error) {
	a.closers = append(a.closers, fn)
}

// Close writes the metrics textfile and releases every opened backend, last
// opened first. It runs after aborts too, so the textfile reflects them.
func (a *App) Close(ctx context.Context) error {
	if a == nil {
		return nil
	}
	var errs []error
	if err := a.Metrics.WriteTextfile(a.Cfg.Metrics.Textfile); err != nil {
		errs = append(errs, err)
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	a.Log.Sync()
	return errors.Join(errs...)
}
