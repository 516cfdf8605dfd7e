// Package redis implements backend.Store on Redis, keeping the snapshot as a
// single JSON value so a save is one atomic SET.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"tasktree/backend"
)

// DefaultPrefix namespaces the keys used by the store.
const DefaultPrefix = "tasktree"

type Store struct {
	client *redis.Client
	prefix string
}

var (
	_ backend.Store     = (*Store)(nil)
	_ backend.RuleStore = (*Store)(nil)
)

func New(ctx context.Context, addr, password string, db int, prefix string) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis.New: ping: %w", err)
	}

	return NewWithClient(client, prefix), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *redis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{client: client, prefix: prefix}
}

// SnapshotKey returns the key holding the task snapshot.
func SnapshotKey(prefix string) string {
	return prefix + ":snapshot"
}

// RulesKey returns the key holding the keyword rules.
func RulesKey(prefix string) string {
	return prefix + ":rules"
}

func (s *Store) Close() error {
	if err := s.client.Close(); err != nil {
		return fmt.Errorf("redis.Store.Close: %w", err)
	}
	return nil
}

// DecodeSnapshot parses a stored value; the empty value is an empty snapshot.
func DecodeSnapshot(data []byte) (*backend.Snapshot, error) {
	snap := &backend.Snapshot{Tasks: []backend.Task{}, Tags: []string{}}
	if len(data) == 0 {
		return snap, nil
	}
	if err := json.Unmarshal(data, snap); err != nil {
		return nil, fmt.Errorf("redis.DecodeSnapshot: %w", err)
	}
	for i := range snap.Tasks {
		snap.Tasks[i].Normalize()
	}
	if snap.Tasks == nil {
		snap.Tasks = []backend.Task{}
	}
	if snap.Tags == nil {
		snap.Tags = []string{}
	}
	return snap, nil
}

func (s *Store) Load(ctx context.Context) (*backend.Snapshot, error) {
	data, err := s.client.Get(ctx, SnapshotKey(s.prefix)).Bytes()
	if errors.Is(err, redis.Nil) {
		return DecodeSnapshot(nil)
	}
	if err != nil {
		return nil, fmt.Errorf("redis.Store.Load: %w", err)
	}
	return DecodeSnapshot(data)
}

func (s *Store) Save(ctx context.Context, snap *backend.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("redis.Store.Save: encode: %w", err)
	}
	if err := s.client.Set(ctx, SnapshotKey(s.prefix), data, 0).Err(); err != nil {
		return fmt.Errorf("redis.Store.Save: %w", err)
	}
	return nil
}

func (s *Store) LoadRules(ctx context.Context) ([]backend.KeywordRule, error) {
	data, err := s.client.Get(ctx, RulesKey(s.prefix)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis.Store.LoadRules: %w", err)
	}
	var rules []backend.KeywordRule
	if err := json.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("redis.Store.LoadRules: %w", err)
	}
	return rules, nil
}

func (s *Store) SaveRules(ctx context.Context, rules []backend.KeywordRule) error {
	data, err := json.Marshal(rules)
	if err != nil {
		return fmt.Errorf("redis.Store.SaveRules: encode: %w", err)
	}
	if err := s.client.Set(ctx, RulesKey(s.prefix), data, 0).Err(); err != nil {
		return fmt.Errorf("redis.Store.SaveRules: %w", err)
	}
	return nil
}
