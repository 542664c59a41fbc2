package graph

import (
	"context"
	"sort"
	"sync"
)

// MemoryWriter keeps the graph in process. A failed transaction leaves it
// untouched. FailOn, when set, is consulted before every merge.
type MemoryWriter struct {
	FailOn func(Triple) error

	mu        sync.Mutex
	entities  map[string]struct{}
	relations map[Triple]struct{}
}

func NewMemoryWriter() *MemoryWriter {
	return &MemoryWriter{
		entities:  map[string]struct{}{},
		relations: map[Triple]struct{}{},
	}
}

func (m *MemoryWriter) WriteTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	tx := &memoryTx{
		failOn:    m.FailOn,
		entities:  map[string]struct{}{},
		relations: map[Triple]struct{}{},
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	for k := range tx.entities {
		m.entities[k] = struct{}{}
	}
	for k := range tx.relations {
		m.relations[k] = struct{}{}
	}
	return nil
}

// Entities returns the entity names, sorted.
func (m *MemoryWriter) Entities() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.entities))
	for k := range m.entities {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Relations returns the edges sorted by subject, relation, object.
func (m *MemoryWriter) Relations() []Triple {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Triple, 0, len(m.relations))
	for k := range m.relations {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Subject != b.Subject {
			return a.Subject < b.Subject
		}
		if a.Relation != b.Relation {
			return a.Relation < b.Relation
		}
		return a.Object < b.Object
	})
	return out
}

func (m *MemoryWriter) Close(ctx context.Context) error { return nil }

type memoryTx struct {
	failOn    func(Triple) error
	entities  map[string]struct{}
	relations map[Triple]struct{}
}

func (t *memoryTx) MergeTriple(ctx context.Context, tr Triple) error {
	if t.failOn != nil {
		if err := t.failOn(tr); err != nil {
			return err
		}
	}
	t.entities[tr.Subject] = struct{}{}
	t.entities[tr.Object] = struct{}{}
	t.relations[tr] = struct{}{}
	return nil
}
