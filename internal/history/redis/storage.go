// Package redis provides a Redis-backed history storage slot.
package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Storage holds the serialized history array under a single Redis key.
type Storage struct {
	client *redis.Client
	key    string
}

// NewStorage creates a Redis-backed storage.
func NewStorage(client *redis.Client, key string) *Storage {
	return &Storage{client: client, key: key}
}

// Load returns the slot contents, or (nil, nil) when the key is absent.
func (s *Storage) Load(ctx context.Context) ([]byte, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}
	return data, nil
}

// Save replaces the slot contents. No expiry: history lives until cleared.
func (s *Storage) Save(ctx context.Context, data []byte) error {
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// Clear removes the key.
func (s *Storage) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("redis del failed: %w", err)
	}
	return nil
}
