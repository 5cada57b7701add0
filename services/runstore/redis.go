package runstore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"sjsage522/cafe24worker/pkg/errors"
)

const (
	runKeyPrefix = "cafe24:run:"
	runIndexKey  = "cafe24:runs"
)

// RedisStore implements Store on Redis. Each run is a JSON value keyed
// by id; a sorted set scored by creation time backs listing.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a new Redis-backed run store
func NewRedisStore(addr string, db int) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})
	return &RedisStore{client: client}
}

// CreateRun persists a new run in the queued state
func (s *RedisStore) CreateRun(ctx context.Context, record *RunRecord) error {
	now := time.Now().UTC()
	record.Status = StatusQueued
	record.CreatedAt = now
	record.UpdatedAt = now

	if err := s.save(ctx, record); err != nil {
		return err
	}
	err := s.client.ZAdd(ctx, runIndexKey, redis.Z{
		Score:  float64(now.UnixNano()),
		Member: record.ID,
	}).Err()
	if err != nil {
		return errors.NewStorage("failed to index run", err)
	}
	return nil
}

// MarkRunning transitions a run to running
func (s *RedisStore) MarkRunning(ctx context.Context, id string) error {
	return s.update(ctx, id, func(record *RunRecord) {
		record.Status = StatusRunning
	})
}

// MarkSucceeded transitions a run to succeeded with its artifacts
func (s *RedisStore) MarkSucceeded(ctx context.Context, id string, artifacts Artifacts) error {
	return s.update(ctx, id, func(record *RunRecord) {
		record.Status = StatusSucceeded
		record.Artifacts = artifacts
		record.Error = ""
	})
}

// MarkFailed transitions a run to failed with an error message
func (s *RedisStore) MarkFailed(ctx context.Context, id string, errMsg string) error {
	return s.update(ctx, id, func(record *RunRecord) {
		record.Status = StatusFailed
		record.Error = errMsg
	})
}

// GetRun retrieves a run by id
func (s *RedisStore) GetRun(ctx context.Context, id string) (*RunRecord, error) {
	data, err := s.client.Get(ctx, runKeyPrefix+id).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.NewStorage("failed to load run", err)
	}

	var record RunRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, errors.NewStorage("failed to decode run", err)
	}
	return &record, nil
}

// ListRuns returns the most recent runs, newest first
func (s *RedisStore) ListRuns(ctx context.Context, limit int) ([]*RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	ids, err := s.client.ZRevRange(ctx, runIndexKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, errors.NewStorage("failed to list runs", err)
	}

	records := make([]*RunRecord, 0, len(ids))
	for _, id := range ids {
		record, err := s.GetRun(ctx, id)
		if err == ErrNotFound {
			continue
		}
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

// Close closes the Redis connection
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) save(ctx context.Context, record *RunRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return errors.NewStorage("failed to encode run", err)
	}
	if err := s.client.Set(ctx, runKeyPrefix+record.ID, data, 0).Err(); err != nil {
		return errors.NewStorage("failed to save run", err)
	}
	return nil
}

func (s *RedisStore) update(ctx context.Context, id string, apply func(*RunRecord)) error {
	record, err := s.GetRun(ctx, id)
	if err != nil {
		return err
	}
	apply(record)
	record.UpdatedAt = time.Now().UTC()
	return s.save(ctx, record)
}
