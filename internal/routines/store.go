package routines

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"maestro.app/gateway/internal/model"
)

// ErrNotFound reports that no routine exists for the id.
var ErrNotFound = errors.New("routine not found")

// Store is the routines key-value table.
type Store interface {
	List(ctx context.Context) ([]model.Routine, error)
	Get(ctx context.Context, id string) (model.Routine, error)
	Put(ctx context.Context, routine model.Routine) error
	Delete(ctx context.Context, id string) error
}

// redisStore keeps every routine as one JSON document in a single hash,
// keyed by routine id.
type redisStore struct {
	client *redis.Client
	table  string
}

func NewRedisStore(client *redis.Client, table string) Store {
	return &redisStore{client: client, table: table}
}

func (s *redisStore) List(ctx context.Context) ([]model.Routine, error) {
	entries, err := s.client.HGetAll(ctx, s.table).Result()
	if err != nil {
		return nil, fmt.Errorf("listing routines: %w", err)
	}

	routines := make([]model.Routine, 0, len(entries))
	for id, raw := range entries {
		var r model.Routine
		if err := json.Unmarshal([]byte(raw), &r); err != nil {
			return nil, fmt.Errorf("decoding routine %s: %w", id, err)
		}
		routines = append(routines, r)
	}
	return routines, nil
}

func (s *redisStore) Get(ctx context.Context, id string) (model.Routine, error) {
	raw, err := s.client.HGet(ctx, s.table, id).Result()
	if errors.Is(err, redis.Nil) {
		return model.Routine{}, ErrNotFound
	}
	if err != nil {
		return model.Routine{}, fmt.Errorf("getting routine %s: %w", id, err)
	}

	var r model.Routine
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return model.Routine{}, fmt.Errorf("decoding routine %s: %w", id, err)
	}
	return r, nil
}

func (s *redisStore) Put(ctx context.Context, routine model.Routine) error {
	raw, err := json.Marshal(routine)
	if err != nil {
		return fmt.Errorf("encoding routine %s: %w", routine.ID, err)
	}
	if err := s.client.HSet(ctx, s.table, routine.ID, raw).Err(); err != nil {
		return fmt.Errorf("storing routine %s: %w", routine.ID, err)
	}
	return nil
}

func (s *redisStore) Delete(ctx context.Context, id string) error {
	removed, err := s.client.HDel(ctx, s.table, id).Result()
	if err != nil {
		return fmt.Errorf("deleting routine %s: %w", id, err)
	}
	if removed == 0 {
		return ErrNotFound
	}
	return nil
}
