package batch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/neurobridge-kgbuild/internal/checkpoint"
	"github.com/yungbote/neurobridge-kgbuild/internal/enrich"
	"github.com/yungbote/neurobridge-kgbuild/internal/observability"
	"github.com/yungbote/neurobridge-kgbuild/internal/pkg/httpx"
	"github.com/yungbote/neurobridge-kgbuild/internal/platform/logger"
	"github.com/yungbote/neurobridge-kgbuild/internal/workitems"
)

// Driver runs one Stage over a universe of keys, one key at a time. The
// checkpoint store is the only record of what is done: a restarted Driver
// picks up exactly the keys the store does not have yet.
type Driver struct {
	log     *logger.Logger
	client  enrich.Client
	store   checkpoint.Store
	stage   Stage
	retry   RetryPolicy
	metrics *observability.Metrics

	onProgress func(Progress)
	sleep      func(ctx context.Context, d time.Duration) error
	jitter     func(d time.Duration) time.Duration
	now        func() time.Time
}

type Option func(*Driver)

func WithMetrics(m *observability.Metrics) Option {
	return func(d *Driver) { d.metrics = m }
}

// WithProgress registers a callback for every item state change.
func WithProgress(fn func(Progress)) Option {
	return func(d *Driver) { d.onProgress = fn }
}

// WithSleeper replaces the backoff wait; tests use it to avoid real sleeps.
func WithSleeper(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(d *Driver) { d.sleep = fn }
}

func WithClock(now func() time.Time) Option {
	return func(d *Driver) { d.now = now }
}

func New(log *logger.Logger, client enrich.Client, store checkpoint.Store, stage Stage, retry RetryPolicy, opts ...Option) (*Driver, error) {
	if log == nil {
		return nil, errors.New("batch: logger required")
	}
	if client == nil {
		return nil, errors.New("batch: enrichment client required")
	}
	if store == nil {
		return nil, errors.New("batch: checkpoint store required")
	}
	if stage.Prompt == nil || stage.Parser == nil {
		return nil, errors.New("batch: stage needs a prompt builder and a parser")
	}
	if stage.Name == "" {
		stage.Name = "enrich"
	}
	if retry.MaxRetries < 0 {
		return nil, fmt.Errorf("batch: invalid max retries %d", retry.MaxRetries)
	}

	d := &Driver{
		log:    log.With("component", "BatchDriver", "stage", stage.Name),
		client: client,
		store:  store,
		stage:  stage,
		retry:  retry,
		sleep:  sleepCtx,
		jitter: httpx.JitterSleep,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Run processes every key of universe that the checkpoint does not hold yet.
// The checkpoint is saved after every stored item. On an unrecoverable item
// error it is saved once more and an *AbortError is returned together with
// the partial report.
func (d *Driver) Run(ctx context.Context, universe []string) (*Report, error) {
	report := &Report{
		RunID:    uuid.New(),
		Stage:    d.stage.Name,
		State:    RunRunning,
		Universe: len(universe),
		Started:  d.now(),
	}
	log := d.log.With("run_id", report.RunID.String())

	doc, err := d.store.Load(ctx)
	if err != nil {
		report.State = RunAborted
		report.Finished = d.now()
		d.metrics.IncRun(d.stage.Name, string(RunAborted))
		return report, fmt.Errorf("batch %s: load checkpoint: %w", d.stage.Name, err)
	}

	// Computed once; never modified while iterating.
	pending := workitems.Enumerate(universe, doc)
	report.Pending = pending
	report.AlreadyDone = len(workitems.Enumerate(universe, nil)) - len(pending)
	d.metrics.SetPending(d.stage.Name, len(pending))

	log.Info("batch run starting",
		"universe", len(universe),
		"already_done", report.AlreadyDone,
		"pending", len(pending),
	)
	for i, key := range pending {
		d.emit(Progress{RunID: report.RunID, Stage: d.stage.Name, Index: i, Total: len(pending), Key: key, State: ItemPending})
	}

	for i, key := range pending {
		started := d.now()
		value, calls, err := d.processItem(ctx, log, report.RunID, i, len(pending), key)
		report.Calls += calls
		if err == nil {
			err = doc.Put(key, value)
		}
		if err == nil {
			if serr := d.store.Save(ctx, doc); serr != nil {
				err = fmt.Errorf("save checkpoint: %w", serr)
			}
		}
		if err != nil {
			d.metrics.ObserveItem(d.stage.Name, string(ItemFailed), d.now().Sub(started))
			d.emit(Progress{RunID: report.RunID, Stage: d.stage.Name, Index: i, Total: len(pending), Key: key, State: ItemFailed, Attempt: calls, Err: err})
			return d.abort(ctx, log, report, doc, i, key, err)
		}
		report.Succeeded = append(report.Succeeded, key)
		d.metrics.ObserveItem(d.stage.Name, string(ItemSucceeded), d.now().Sub(started))
	}

	if err := d.store.Save(ctx, doc); err != nil {
		report.State = RunAborted
		report.Finished = d.now()
		d.metrics.IncRun(d.stage.Name, string(RunAborted))
		return report, fmt.Errorf("batch %s: final checkpoint save: %w", d.stage.Name, err)
	}

	report.State = RunCompleted
	report.Finished = d.now()
	d.metrics.IncRun(d.stage.Name, string(RunCompleted))
	log.Info("batch run completed",
		"succeeded", len(report.Succeeded),
		"calls", report.Calls,
		"duration", report.Finished.Sub(report.Started).String(),
	)
	return report, nil
}

func (d *Driver) abort(ctx context.Context, log *logger.Logger, report *Report, doc *checkpoint.Document, index int, key string, cause error) (*Report, error) {
	abortErr := &AbortError{
		Stage:     d.stage.Name,
		Key:       key,
		Index:     index,
		Completed: len(report.Succeeded),
		Cause:     cause,
	}
	if err := d.store.Save(ctx, doc); err != nil {
		abortErr.SaveErr = err
	}
	report.State = RunAborted
	report.Finished = d.now()
	d.metrics.IncRun(d.stage.Name, string(RunAborted))
	log.Error("batch run aborted",
		"key", key,
		"index", index+1,
		"completed", len(report.Succeeded),
		"checkpoint_saved", abortErr.SaveErr == nil,
		"error", cause.Error(),
	)
	return report, abortErr
}

// processItem drives one key through IN_PROGRESS -> {SUCCEEDED, RATE_LIMITED, FAILED}.
// It returns the parsed value and how many upstream calls were made.
func (d *Driver) processItem(ctx context.Context, log *logger.Logger, runID uuid.UUID, index, total int, key string) (any, int, error) {
	base := Progress{RunID: runID, Stage: d.stage.Name, Index: index, Total: total, Key: key}

	if err := ctx.Err(); err != nil {
		return nil, 0, &enrich.ServiceError{Err: err}
	}

	prompt, err := d.stage.Prompt(key)
	if err != nil {
		return nil, 0, fmt.Errorf("build prompt: %w", err)
	}

	calls := 0
	for attempt := 0; ; attempt++ {
		p := base
		p.State = ItemInProgress
		p.Attempt = attempt + 1
		d.emit(p)

		calls++
		raw, err := d.client.Generate(ctx, prompt, d.stage.Options)
		if err == nil {
			value, perr := d.stage.Parser.Parse(raw)
			if perr != nil {
				log.Warn("response did not parse", "count", index+1, "key", key, "response", raw, "error", perr.Error())
				return nil, calls, perr
			}
			log.Info("item enriched", "count", index+1, "total", total, "key", key, "response", raw)
			p.State = ItemSucceeded
			p.Raw = raw
			d.emit(p)
			return value, calls, nil
		}

		err = enrich.Classify(err)
		rl, limited := enrich.IsRateLimited(err)
		if !limited {
			return nil, calls, err
		}

		d.metrics.IncRateLimited(d.stage.Name)
		if attempt >= d.retry.MaxRetries {
			return nil, calls, &enrich.ServiceError{
				Err: fmt.Errorf("%w after %d calls: %s", ErrRetriesExhausted, calls, rl.Error()),
			}
		}

		wait := d.backoff(attempt, rl.RetryAfter)
		p.State = ItemRateLimited
		p.Wait = wait
		p.Err = rl
		d.emit(p)
		log.Warn("rate limited; backing off",
			"key", key,
			"attempt", attempt+1,
			"max_retries", d.retry.MaxRetries,
			"sleep", wait.String(),
		)
		if err := d.sleep(ctx, wait); err != nil {
			return nil, calls, &enrich.ServiceError{Err: err}
		}
	}
}

// backoff prefers the service's hint and otherwise grows exponentially with
// jitter; either way the wait is capped at MaxBackoff.
func (d *Driver) backoff(attempt int, hint time.Duration) time.Duration {
	wait := hint
	if wait <= 0 {
		wait = d.jitter(httpx.Backoff(attempt, d.retry.BaseBackoff, d.retry.MaxBackoff))
	}
	if d.retry.MaxBackoff > 0 && wait > d.retry.MaxBackoff {
		wait = d.retry.MaxBackoff
	}
	return wait
}

func (d *Driver) emit(p Progress) {
	if d.onProgress != nil {
		d.onProgress(p)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
