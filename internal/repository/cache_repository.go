package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/technician-availability-api/internal/models"
	appErrors "github.com/noah-isme/technician-availability-api/pkg/errors"
)

const (
	availabilityKeyPrefix = "availability"
	availabilityIndexKey  = "availability-index"
	deleteBatchSize       = 100
)

// AvailabilityCacheKey names the cached resolution of a technician over an inclusive date range.
func AvailabilityCacheKey(technicianID string, from, to models.Date) string {
	return fmt.Sprintf("%s:%s:%s:%s", availabilityKeyPrefix, technicianID, from, to)
}

// AvailabilityCachePattern matches every cached resolution of a technician.
func AvailabilityCachePattern(technicianID string) string {
	return fmt.Sprintf("%s:%s:*", availabilityKeyPrefix, technicianID)
}

// indexKeyFor returns the set that tracks a technician's cached ranges, derived
// from either a cache key or a technician pattern. ok is false for other keys.
func indexKeyFor(keyOrPattern string) (string, bool) {
	rest, found := strings.CutPrefix(keyOrPattern, availabilityKeyPrefix+":")
	if !found {
		return "", false
	}
	technicianID, _, found := strings.Cut(rest, ":")
	if !found || technicianID == "" || strings.ContainsAny(technicianID, "*?[") {
		return "", false
	}
	return availabilityIndexKey + ":" + technicianID, true
}

// CacheRepository stores resolved availability payloads in Redis. Each
// technician's keys are tracked in an index set so invalidation touches only
// that technician instead of scanning the keyspace.
// A nil client turns every read into a miss and every write into a no-op.
type CacheRepository struct {
	client *redis.Client
	logger *zap.Logger
}

// NewCacheRepository constructs a cache repository.
func NewCacheRepository(client *redis.Client, logger *zap.Logger) *CacheRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheRepository{client: client, logger: logger}
}

// Get decodes the cached value into dest. Missing and undecodable entries are ErrCacheMiss.
func (r *CacheRepository) Get(ctx context.Context, key string, dest interface{}) error {
	if r.client == nil {
		return appErrors.ErrCacheMiss
	}

	raw, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return appErrors.ErrCacheMiss
	}
	if err != nil {
		return fmt.Errorf("redis get %s: %w", key, err)
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		r.logger.Warn("dropping undecodable cache entry", zap.String("key", key), zap.Error(err))
		_ = r.client.Del(ctx, key).Err()
		return appErrors.ErrCacheMiss
	}
	return nil
}

// Set stores value under key and, for availability keys, records the key in
// the technician's index. The index outlives its members by one ttl at most.
func (r *CacheRepository) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if r.client == nil {
		return nil
	}

	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value for %s: %w", key, err)
	}

	index, indexed := indexKeyFor(key)
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, key, payload, ttl)
		if indexed {
			pipe.SAdd(ctx, index, key)
			if ttl > 0 {
				pipe.Expire(ctx, index, 2*ttl)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// DeleteByPattern removes cached entries matching pattern. Technician patterns
// are served from the index set; anything else falls back to SCAN.
func (r *CacheRepository) DeleteByPattern(ctx context.Context, pattern string) error {
	if r.client == nil {
		return nil
	}
	if index, ok := indexKeyFor(pattern); ok {
		return r.deleteIndexed(ctx, index)
	}
	return r.deleteScanned(ctx, pattern)
}

func (r *CacheRepository) deleteIndexed(ctx context.Context, index string) error {
	keys, err := r.client.SMembers(ctx, index).Result()
	if err != nil {
		return fmt.Errorf("redis smembers %s: %w", index, err)
	}
	keys = append(keys, index)
	for start := 0; start < len(keys); start += deleteBatchSize {
		end := min(start+deleteBatchSize, len(keys))
		if err := r.client.Del(ctx, keys[start:end]...).Err(); err != nil {
			return fmt.Errorf("redis delete %d keys for %s: %w", end-start, index, err)
		}
	}
	r.logger.Debug("availability cache invalidated", zap.String("index", index), zap.Int("keys", len(keys)-1))
	return nil
}

func (r *CacheRepository) deleteScanned(ctx context.Context, pattern string) error {
	batch := make([]string, 0, deleteBatchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := r.client.Del(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("redis delete %d keys for %s: %w", len(batch), pattern, err)
		}
		batch = batch[:0]
		return nil
	}

	iter := r.client.Scan(ctx, 0, pattern, deleteBatchSize).Iterator()
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == deleteBatchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan pattern %s: %w", pattern, err)
	}
	return flush()
}

// Close releases the underlying Redis connection if present.
func (r *CacheRepository) Close() error {
	if r.client == nil {
		return nil
	}
	return r.client.Close()
}
