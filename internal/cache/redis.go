package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// KeyPrefix namespaces cached HTTP responses, keyed by full
	// request path and query.
	KeyPrefix = "cache:"

	// listingPattern matches every cached product-listing page.
	listingPattern = KeyPrefix + "/api/v1/products*"

	scanBatchSize = 100

	// maxScanIterations caps the invalidation loop so a misbehaving
	// cursor cannot spin forever.
	maxScanIterations = 1000
)

// Store wraps the Redis response cache. Every method absorbs cache failures:
// a broken cache degrades to a miss, never to a request failure.
type Store struct {
	client *redis.Client
	logger *slog.Logger
}

func New(client *redis.Client, logger *slog.Logger) *Store {
	return &Store{client: client, logger: logger}
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Error("cache read failed", "key", key, "error", err)
		}
		return nil, false
	}
	return val, true
}

func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		s.logger.Error("cache write failed", "key", key, "error", err)
	}
}

// InvalidateProductListings scans the listing namespace with a cursor and
// deletes every matched key in batches. Errors are logged and swallowed;
// the write that triggered the invalidation already succeeded, and dropped
// entries age out through their TTL anyway.
func (s *Store) InvalidateProductListings(ctx context.Context) {
	var cursor uint64
	purged := 0

	for i := 0; i < maxScanIterations; i++ {
		keys, next, err := s.client.Scan(ctx, cursor, listingPattern, scanBatchSize).Result()
		if err != nil {
			s.logger.Error("cache invalidation scan failed", "error", err)
			return
		}

		if len(keys) > 0 {
			if err := s.client.Del(ctx, keys...).Err(); err != nil {
				s.logger.Error("cache invalidation delete failed", "error", err)
				return
			}
			purged += len(keys)
		}

		cursor = next
		if cursor == 0 {
			if purged > 0 {
				s.logger.Info("invalidated product listing cache", "keys", purged)
			}
			return
		}
	}

	s.logger.Warn("cache invalidation scan hit iteration cap", "iterations", maxScanIterations, "keys", purged)
}

func (s *Store) Health() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return s.client.Ping(ctx).Err()
}
