package leads

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
)

// NameSequencer hands out the next customer-name suffix for an acquisition source.
type NameSequencer interface {
	Next(ctx context.Context, source string) (int, error)
}

// StoreNameSequencer derives the next suffix from the record store. Two
// processes racing on the same source may receive the same number.
type StoreNameSequencer struct {
	repo Repository
	mu   sync.Mutex
}

// NewStoreNameSequencer wraps repo.
func NewStoreNameSequencer(repo Repository) *StoreNameSequencer {
	return &StoreNameSequencer{repo: repo}
}

// Next returns max(suffix)+1 for source.
func (s *StoreNameSequencer) Next(ctx context.Context, source string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	highest, err := s.repo.MaxNameSuffix(ctx, source)
	if err != nil {
		return 0, err
	}
	return highest + 1, nil
}

// RedisNameSequencer keeps an atomic counter per source in Redis. The counter
// is seeded from the record store the first time a source is seen.
type RedisNameSequencer struct {
	client *redis.Client
	repo   Repository
	prefix string
}

// NewRedisNameSequencer builds a sequencer over client, seeding from repo.
func NewRedisNameSequencer(client *redis.Client, repo Repository) *RedisNameSequencer {
	if client == nil {
		panic("leads: redis client cannot be nil")
	}
	return &RedisNameSequencer{client: client, repo: repo, prefix: "lead:name-seq:"}
}

func (s *RedisNameSequencer) key(source string) string {
	return s.prefix + strings.ToLower(strings.TrimSpace(source))
}

// Next increments and returns the counter for source.
func (s *RedisNameSequencer) Next(ctx context.Context, source string) (int, error) {
	key := s.key(source)
	if err := s.seed(ctx, key, source); err != nil {
		return 0, err
	}
	n, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("leads: incr name sequence: %w", err)
	}
	return int(n), nil
}

func (s *RedisNameSequencer) seed(ctx context.Context, key, source string) error {
	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("leads: check name sequence: %w", err)
	}
	if exists > 0 || s.repo == nil {
		return nil
	}
	highest, err := s.repo.MaxNameSuffix(ctx, source)
	if err != nil {
		return err
	}
	if err := s.client.SetNX(ctx, key, highest, 0).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("leads: seed name sequence: %w", err)
	}
	return nil
}
