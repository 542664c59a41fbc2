package app

import (
	"context"
	"fmt"

	"github.com/yungbote/neurobridge-kgbuild/internal/batch"
	"github.com/yungbote/neurobridge-kgbuild/internal/checkpoint"
	"github.com/yungbote/neurobridge-kgbuild/internal/enrich"
	"github.com/yungbote/neurobridge-kgbuild/internal/graph"
	"github.com/yungbote/neurobridge-kgbuild/internal/kb"
	"github.com/yungbote/neurobridge-kgbuild/internal/workitems"
)

// RunOptions tune one enrichment command.
type RunOptions struct {
	DryRun bool
	// Client overrides the configured enrichment client.
	Client enrich.Client
	// DriverOptions are applied after WithMetrics.
	DriverOptions []batch.Option
}

// Describe enriches every key found in the universe files.
func (a *App) Describe(ctx context.Context, patterns []string, opts RunOptions) (*batch.Report, error) {
	universe, err := workitems.LoadUniverse(patterns...)
	if err != nil {
		return nil, err
	}
	tmpl, err := kb.LoadTemplate(kb.StageDescribe, a.Cfg.Prompts.DescribeTemplatePath, kb.DefaultDescribeTemplate)
	if err != nil {
		return nil, err
	}
	return a.runStage(ctx, kb.StageDescribe, `{}`, universe, opts, func(o enrich.Options) batch.Stage {
		return kb.DescribeStage(tmpl, o)
	})
}

// Extract turns every describe result into relation triples. The universe is
// the describe checkpoint's keys in recorded order.
func (a *App) Extract(ctx context.Context, opts RunOptions) (*batch.Report, error) {
	described, err := a.loadStage(ctx, kb.StageDescribe)
	if err != nil {
		return nil, err
	}
	tmpl, err := kb.LoadTemplate(kb.StageExtract, a.Cfg.Prompts.ExtractTemplatePath, kb.DefaultExtractTemplate)
	if err != nil {
		return nil, err
	}
	return a.runStage(ctx, kb.StageExtract, `[]`, workitems.KeysOf(described), opts, func(o enrich.Options) batch.Stage {
		return kb.ExtractStage(tmpl, described, o)
	})
}

func (a *App) runStage(ctx context.Context, name, dryRunText string, universe []string, opts RunOptions, build func(enrich.Options) batch.Stage) (*batch.Report, error) {
	store, err := a.CheckpointStore(ctx, name)
	if err != nil {
		return nil, err
	}
	client := opts.Client
	eopts := enrich.Options{Model: a.Cfg.LLM.Model, Temperature: a.Cfg.LLM.Temperature}
	if client == nil {
		client, eopts, err = a.EnrichClient(opts.DryRun, dryRunText)
		if err != nil {
			return nil, err
		}
	}
	driverOpts := append([]batch.Option{batch.WithMetrics(a.Metrics)}, opts.DriverOptions...)
	driver, err := batch.New(a.Log, client, store, build(eopts), a.RetryPolicy(), driverOpts...)
	if err != nil {
		return nil, err
	}
	return driver.Run(ctx, universe)
}

func (a *App) loadStage(ctx context.Context, stage string) (*checkpoint.Document, error) {
	store, err := a.CheckpointStore(ctx, stage)
	if err != nil {
		return nil, err
	}
	doc, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load %s checkpoint: %w", stage, err)
	}
	return doc, nil
}

// Aggregate writes the concatenated extract results to out and returns them.
func (a *App) Aggregate(ctx context.Context, out string) ([][]string, error) {
	doc, err := a.loadStage(ctx, kb.StageExtract)
	if err != nil {
		return nil, err
	}
	triples := kb.Aggregate(doc, a.Log)
	if err := kb.WriteTriples(out, triples); err != nil {
		return nil, err
	}
	a.Log.Info("Aggregated triples", "keys", doc.Len(), "triples", len(triples), "out", out)
	return triples, nil
}

// Mirror writes the two-way triples of the location-relation files to out.
func (a *App) Mirror(out string, files []string) ([][]string, error) {
	triples, err := kb.MirrorFiles(files...)
	if err != nil {
		return nil, err
	}
	if err := kb.WriteTriples(out, triples); err != nil {
		return nil, err
	}
	a.Log.Info("Mirrored location relations", "files", len(files), "triples", len(triples), "out", out)
	return triples, nil
}

// Load upserts the triples of every file, one transaction per file.
func (a *App) Load(ctx context.Context, files []string) (graph.Stats, error) {
	loader, mem, err := a.GraphLoader(ctx)
	if err != nil {
		return graph.Stats{}, err
	}
	var total graph.Stats
	for _, f := range files {
		triples, err := kb.ReadTriples(f)
		if err != nil {
			return total, err
		}
		stats, err := loader.UpsertTriples(ctx, triples)
		total.Skipped += stats.Skipped
		if err != nil {
			return total, fmt.Errorf("%s: %w", f, err)
		}
		total.Triples += stats.Triples
	}
	if mem != nil {
		a.Log.Info("In-memory graph", "entities", len(mem.Entities()), "relations", len(mem.Relations()))
	}
	return total, nil
}

// Forget removes keys from a stage checkpoint so the next run redoes them.
// It returns the keys that were present.
func (a *App) Forget(ctx context.Context, stage string, keys []string) ([]string, error) {
	store, err := a.CheckpointStore(ctx, stage)
	if err != nil {
		return nil, err
	}
	doc, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load %s checkpoint: %w", stage, err)
	}
	var removed []string
	for _, k := range keys {
		if doc.Delete(k) {
			removed = append(removed, k)
		}
	}
	if len(removed) == 0 {
		return nil, nil
	}
	if err := store.Save(ctx, doc); err != nil {
		return nil, fmt.Errorf("save %s checkpoint: %w", stage, err)
	}
	a.Log.Info("Removed checkpoint entries", "stage", stage, "keys", removed)
	return removed, nil
}
