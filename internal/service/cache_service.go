package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/technician-availability-api/internal/repository"
	appErrors "github.com/noah-isme/technician-availability-api/pkg/errors"
)

// CacheRepository abstracts persistence for cached payloads.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// CacheService fronts the availability cache. Read failures degrade to a miss.
//
// Every technician carries an in-process generation that schedule writes bump
// when they invalidate. A resolution started under an older generation is not
// stored, so a slow read cannot repopulate the cache with pre-write data.
type CacheService struct {
	repo       CacheRepository
	metrics    *MetricsService
	defaultTTL time.Duration
	logger     *zap.Logger
	enabled    bool

	generations sync.Map // technician id -> *uint64
}

// NewCacheService constructs a cache service.
func NewCacheService(repo CacheRepository, metrics *MetricsService, defaultTTL time.Duration, logger *zap.Logger, enabled bool) *CacheService {
	if defaultTTL <= 0 {
		defaultTTL = 10 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{repo: repo, metrics: metrics, defaultTTL: defaultTTL, logger: logger, enabled: enabled}
}

// Enabled indicates whether caching is active.
func (s *CacheService) Enabled() bool {
	return s != nil && s.enabled && s.repo != nil
}

// Get loads key into dest and reports whether it was a hit.
func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !s.Enabled() {
		return false, nil
	}
	start := time.Now()
	err := s.repo.Get(ctx, key, dest)
	s.metrics.RecordCacheOperation(err == nil, time.Since(start))

	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, appErrors.ErrCacheMiss):
		return false, nil
	default:
		s.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		return false, err
	}
}

// Set stores value under key. ttl <= 0 uses the default TTL.
func (s *CacheService) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !s.Enabled() {
		return nil
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	start := time.Now()
	err := s.repo.Set(ctx, key, value, ttl)
	s.metrics.ObserveCacheWrite(time.Since(start))
	if err != nil {
		s.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
	return err
}

// Generation returns the current cache generation of a technician.
func (s *CacheService) Generation(technicianID string) uint64 {
	if s == nil {
		return 0
	}
	return atomic.LoadUint64(s.counter(technicianID))
}

// SetIfCurrent stores value only when no invalidation for the technician
// happened since generation was read. It reports whether the write happened.
func (s *CacheService) SetIfCurrent(ctx context.Context, technicianID string, generation uint64, key string, value interface{}, ttl time.Duration) (bool, error) {
	if !s.Enabled() {
		return false, nil
	}
	if s.Generation(technicianID) != generation {
		s.logger.Debug("cache write skipped after invalidation", zap.String("key", key))
		return false, nil
	}
	if err := s.Set(ctx, key, value, ttl); err != nil {
		return false, err
	}
	// InvalidateTechnician bumps before it deletes, so a bump seen here may
	// have deleted ahead of our write.
	if s.Generation(technicianID) != generation {
		s.logger.Debug("cache write raced an invalidation", zap.String("key", key))
		if err := s.repo.DeleteByPattern(ctx, key); err != nil {
			s.logger.Warn("cache write rollback failed", zap.String("key", key), zap.Error(err))
			return false, err
		}
		return false, nil
	}
	return true, nil
}

// Invalidate removes cached values for the provided pattern.
func (s *CacheService) Invalidate(ctx context.Context, pattern string) error {
	if !s.Enabled() {
		return nil
	}
	if err := s.repo.DeleteByPattern(ctx, pattern); err != nil {
		s.logger.Warn("cache invalidate failed", zap.String("pattern", pattern), zap.Error(err))
		return err
	}
	return nil
}

// InvalidateTechnician drops every cached resolution of a technician and
// advances its generation.
func (s *CacheService) InvalidateTechnician(ctx context.Context, technicianID string) error {
	if s == nil {
		return nil
	}
	atomic.AddUint64(s.counter(technicianID), 1)
	return s.Invalidate(ctx, repository.AvailabilityCachePattern(technicianID))
}

func (s *CacheService) counter(technicianID string) *uint64 {
	if v, ok := s.generations.Load(technicianID); ok {
		return v.(*uint64)
	}
	v, _ := s.generations.LoadOrStore(technicianID, new(uint64))
	return v.(*uint64)
}
