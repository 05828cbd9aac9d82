package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fatali-fataliyev/spending_insights/internal/iforest"
	"github.com/fatali-fataliyev/spending_insights/logging"
	"github.com/redis/go-redis/v9"
)

// Memory keeps fitted forests in process.
type Memory struct {
	lru *LRU[*iforest.Forest]
}

func NewMemory(maxSize int, ttl time.Duration) *Memory {
	return &Memory{lru: NewLRU[*iforest.Forest](maxSize, ttl)}
}

func (m *Memory) Get(key string) (*iforest.Forest, bool) {
	return m.lru.Get(key)
}

func (m *Memory) Put(key string, forest *iforest.Forest) error {
	m.lru.Set(key, forest)
	return nil
}

func (m *Memory) Purge() int {
	return m.lru.Purge()
}

// Redis shares fitted forests between instances as JSON.
type Redis struct {
	client  *redis.Client
	ttl     time.Duration
	timeout time.Duration
}

func NewRedis(addr string, ttl time.Duration) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:        addr,
		DialTimeout: 2 * time.Second,
		ReadTimeout: time.Second,
	})
	return &Redis{client: client, ttl: ttl, timeout: 2 * time.Second}
}

func (r *Redis) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}
	return nil
}

// Get treats every failure as a miss, the model is simply refitted.
func (r *Redis) Get(key string) (*iforest.Forest, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logging.Logger.WithError(err).WithField("key", key).Debug("redis model lookup failed")
		}
		return nil, false
	}

	forest, err := decodeModel(raw)
	if err != nil {
		logging.Logger.WithError(err).WithField("key", key).Warn("discarding unusable cached model")
		return nil, false
	}
	return forest, true
}

// decodeModel accepts only forests that can be scored safely.
func decodeModel(raw []byte) (*iforest.Forest, error) {
	var forest iforest.Forest
	if err := json.Unmarshal(raw, &forest); err != nil {
		return nil, fmt.Errorf("failed to decode model: %w", err)
	}
	if err := forest.Validate(); err != nil {
		return nil, err
	}
	return &forest, nil
}

func (r *Redis) Put(key string, forest *iforest.Forest) error {
	raw, err := json.Marshal(forest)
	if err != nil {
		return fmt.Errorf("failed to encode model: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	if err := r.client.Set(ctx, key, raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store model in redis: %w", err)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}

// ModelStore is the subset of a model cache Tiered composes.
type ModelStore interface {
	Get(key string) (*iforest.Forest, bool)
	Put(key string, forest *iforest.Forest) error
}

// Tiered reads the local store first and backfills it from the remote one.
type Tiered struct {
	local  ModelStore
	remote ModelStore
}

func NewTiered(local, remote ModelStore) *Tiered {
	return &Tiered{local: local, remote: remote}
}

func (t *Tiered) Get(key string) (*iforest.Forest, bool) {
	if forest, ok := t.local.Get(key); ok {
		return forest, true
	}
	forest, ok := t.remote.Get(key)
	if !ok {
		return nil, false
	}
	if err := t.local.Put(key, forest); err != nil {
		logging.Logger.WithError(err).Warn("failed to backfill local model cache")
	}
	return forest, true
}

// Put always fills the local store; a remote failure is still reported.
func (t *Tiered) Put(key string, forest *iforest.Forest) error {
	if err := t.local.Put(key, forest); err != nil {
		return err
	}
	return t.remote.Put(key, forest)
}
