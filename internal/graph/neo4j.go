package graph

import (
	"context"
	"errors"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/yungbote/neurobridge-kgbuild/internal/platform/logger"
	"github.com/yungbote/neurobridge-kgbuild/internal/platform/neo4jdb"
)

const mergeTripleCypher = `
MERGE (s:Entity {name: $subject})
MERGE (o:Entity {name: $object})
MERGE (s)-[r:RELATION {name: $relation}]->(o)
`

var schemaStatements = []string{
	`CREATE CONSTRAINT entity_name_unique IF NOT EXISTS FOR (e:Entity) REQUIRE e.name IS UNIQUE`,
}

// Neo4jWriter writes triples as (:Entity)-[:RELATION]->(:Entity), one
// managed write transaction per WriteTx call.
type Neo4jWriter struct {
	client *neo4jdb.Client
	log    *logger.Logger
}

func NewNeo4jWriter(client *neo4jdb.Client, log *logger.Logger) (*Neo4jWriter, error) {
	if client == nil || client.Driver == nil {
		return nil, errors.New("graph: neo4j client required")
	}
	if log == nil {
		return nil, errors.New("graph: logger required")
	}
	return &Neo4jWriter{client: client, log: log.With("writer", "neo4j")}, nil
}

func (w *Neo4jWriter) session(ctx context.Context) neo4j.SessionWithContext {
	return w.client.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: w.client.Database,
	})
}

// EnsureSchema creates the name uniqueness constraint. Failures are logged
// and ignored; MERGE stays correct without it, only slower.
func (w *Neo4jWriter) EnsureSchema(ctx context.Context) {
	session := w.session(ctx)
	defer session.Close(ctx)
	for _, q := range schemaStatements {
		res, err := session.Run(ctx, q, nil)
		if err != nil {
			w.log.Warn("neo4j schema init failed (continuing)", "error", err)
			continue
		}
		_, _ = res.Consume(ctx)
	}
}

func (w *Neo4jWriter) WriteTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	session := w.session(ctx)
	defer session.Close(ctx)
	_, err := session.ExecuteWrite(ctx, func(mtx neo4j.ManagedTransaction) (any, error) {
		return nil, fn(ctx, cypherTx{r: managedRunner{tx: mtx}})
	})
	return err
}

func (w *Neo4jWriter) Close(ctx context.Context) error {
	return w.client.Close(ctx)
}

// cypherRunner runs one statement to completion.
type cypherRunner interface {
	run(ctx context.Context, cypher string, params map[string]any) error
}

type managedRunner struct {
	tx neo4j.ManagedTransaction
}

func (m managedRunner) run(ctx context.Context, cypher string, params map[string]any) error {
	res, err := m.tx.Run(ctx, cypher, params)
	if err != nil {
		return err
	}
	_, err = res.Consume(ctx)
	return err
}

type cypherTx struct {
	r cypherRunner
}

func (c cypherTx) MergeTriple(ctx context.Context, t Triple) error {
	return c.r.run(ctx, mergeTripleCypher, map[string]any{
		"subject":  t.Subject,
		"relation": t.Relation,
		"object":   t.Object,
	})
}
