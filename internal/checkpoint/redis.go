package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	backend "github.com/redis/go-redis/v9"
)

// RedisStore keeps the whole document under one Redis string key. SET
// replaces the value atomically, which gives the same all-or-nothing save as
// FileStore's rename.
type RedisStore struct {
	client backend.UniversalClient
	key    string
}

type RedisOption func(*RedisStore)

// WithPrefix namespaces the key, e.g. "kgbuild:checkpoint:".
func WithPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		s.key = prefix + s.key
	}
}

func NewRedisStore(client backend.UniversalClient, name string, opts ...RedisOption) *RedisStore {
	s := &RedisStore{client: client, key: name}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) Key() string { return s.key }

func (s *RedisStore) Load(ctx context.Context) (*Document, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return NewDocument(), nil
		}
		return nil, fmt.Errorf("checkpoint: redis get %s: %w", s.key, err)
	}
	doc := NewDocument()
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("checkpoint: decode %s: %w", s.key, err)
	}
	return doc, nil
}

// Save detaches from ctx cancellation so an abort triggered by a signal can
// still persist progress.
func (s *RedisStore) Save(ctx context.Context, doc *Document) error {
	if doc == nil {
		doc = NewDocument()
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("checkpoint: marshal: %w", err)
	}
	if err := s.client.Set(context.WithoutCancel(ctx), s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("checkpoint: redis set %s: %w", s.key, err)
	}
	return nil
}
