package redis

// Package redis provides Redis-based adapters for the portal gateway.

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fixzone/fixzone-portal/internal/ports"
)

// DefaultPrefix namespaces every key written by StateStorage.
const DefaultPrefix = "fixzone:visitor:"

// StateStorage persists serialized session state in Redis. Keys are
// namespaced per visitor so each browser sees only its own cache.
// Every Save refreshes the TTL; an idle visitor's cache simply expires.
type StateStorage struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// StateStorageOptions configures a StateStorage.
type StateStorageOptions struct {
	Prefix string
	// TTL bounds how long an untouched cache survives; zero means no expiry.
	TTL time.Duration
}

// NewStateStorage creates a Redis-backed state storage.
func NewStateStorage(client redis.UniversalClient, opts StateStorageOptions) *StateStorage {
	prefix := opts.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &StateStorage{client: client, prefix: prefix, ttl: opts.TTL}
}

// ForVisitor returns a storage view whose keys live under the visitor's namespace.
func (s *StateStorage) ForVisitor(visitorID string) *StateStorage {
	return &StateStorage{
		client: s.client,
		prefix: s.prefix + strings.TrimSpace(visitorID) + ":",
		ttl:    s.ttl,
	}
}

func (s *StateStorage) Load(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, ports.ErrStateNotFound
	}
	data, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ports.ErrStateNotFound
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return data, nil
}

func (s *StateStorage) Save(ctx context.Context, key string, data []byte) error {
	if key == "" {
		return errors.New("state key cannot be empty")
	}
	if err := s.client.Set(ctx, s.prefix+key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *StateStorage) Delete(ctx context.Context, key string) error {
	if key == "" {
		return nil // Nothing to delete
	}
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
