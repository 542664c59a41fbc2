package graph

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yungbote/neurobridge-kgbuild/internal/observability"
	"github.com/yungbote/neurobridge-kgbuild/internal/platform/logger"
)

// Triple is one directed labeled edge: Subject -[Relation]-> Object.
type Triple struct {
	Subject  string
	Relation string
	Object   string
}

// Tx merges triples inside one open transaction. Merging is idempotent: both
// entities are keyed by name and the edge by (subject, relation, object).
type Tx interface {
	MergeTriple(ctx context.Context, t Triple) error
}

// Writer runs fn inside a single transaction and commits only if fn returns nil.
type Writer interface {
	WriteTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

type Stats struct {
	Triples int
	Skipped int
}

type Loader struct {
	w       Writer
	log     *logger.Logger
	metrics *observability.Metrics
}

func NewLoader(w Writer, log *logger.Logger, metrics *observability.Metrics) (*Loader, error) {
	if w == nil {
		return nil, errors.New("graph: writer required")
	}
	if log == nil {
		return nil, errors.New("graph: logger required")
	}
	return &Loader{w: w, log: log.With("component", "GraphLoader"), metrics: metrics}, nil
}

// UpsertTriples merges every 3-element record in one transaction. Records of
// any other length are skipped, not rejected. On error nothing is committed.
func (l *Loader) UpsertTriples(ctx context.Context, records [][]string) (Stats, error) {
	started := time.Now()
	valid := make([]Triple, 0, len(records))
	stats := Stats{}
	for i, rec := range records {
		if len(rec) != 3 {
			stats.Skipped++
			l.log.Debug("skipping malformed triple", "index", i, "arity", len(rec))
			continue
		}
		valid = append(valid, Triple{Subject: rec[0], Relation: rec[1], Object: rec[2]})
	}
	if len(valid) == 0 {
		l.metrics.ObserveLoad(0, stats.Skipped, time.Since(started))
		return stats, nil
	}

	err := l.w.WriteTx(ctx, func(ctx context.Context, tx Tx) error {
		for _, t := range valid {
			if err := tx.MergeTriple(ctx, t); err != nil {
				return fmt.Errorf("merge (%s)-[%s]->(%s): %w", t.Subject, t.Relation, t.Object, err)
			}
		}
		return nil
	})
	if err != nil {
		l.metrics.ObserveLoad(0, stats.Skipped, time.Since(started))
		return stats, fmt.Errorf("graph: upsert triples: %w", err)
	}
	stats.Triples = len(valid)
	l.metrics.ObserveLoad(stats.Triples, stats.Skipped, time.Since(started))
	l.log.Info("triples loaded", "triples", stats.Triples, "skipped", stats.Skipped, "duration", time.Since(started).String())
	return stats, nil
}
