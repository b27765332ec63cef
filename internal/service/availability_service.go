package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/technician-availability-api/internal/models"
	"github.com/noah-isme/technician-availability-api/internal/repository"
	appErrors "github.com/noah-isme/technician-availability-api/pkg/errors"
)

const defaultMaxRangeDays = 92

type availabilityResolver interface {
	Resolve(ctx context.Context, technicianID string, date models.Date) (models.DayAvailability, error)
	ResolveRange(ctx context.Context, technicianID string, from, to models.Date) ([]models.DayAvailability, error)
}

// AvailabilityServiceConfig tunes range limits and caching.
type AvailabilityServiceConfig struct {
	MaxRangeDays int
	CacheTTL     time.Duration
}

// AvailabilityService answers "when can this technician work" for dates and ranges.
// Unknown technicians resolve to empty days rather than an error.
type AvailabilityService struct {
	resolver availabilityResolver
	cache    *CacheService
	metrics  *MetricsService
	cfg      AvailabilityServiceConfig
	logger   *zap.Logger
}

// NewAvailabilityService constructs the service. cache and metrics may be nil.
func NewAvailabilityService(resolver availabilityResolver, cache *CacheService, metrics *MetricsService, cfg AvailabilityServiceConfig, logger *zap.Logger) *AvailabilityService {
	if cfg.MaxRangeDays <= 0 {
		cfg.MaxRangeDays = defaultMaxRangeDays
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AvailabilityService{resolver: resolver, cache: cache, metrics: metrics, cfg: cfg, logger: logger}
}

// MaxRangeDays reports the widest range accepted by Range.
func (s *AvailabilityService) MaxRangeDays() int {
	return s.cfg.MaxRangeDays
}

// Day resolves a single date. The boolean reports whether the answer came from cache.
func (s *AvailabilityService) Day(ctx context.Context, technicianID string, date models.Date) (models.DayAvailability, bool, error) {
	key := repository.AvailabilityCacheKey(technicianID, date, date)
	var cached []models.DayAvailability
	if s.lookup(ctx, key, &cached) && len(cached) == 1 {
		return cached[0], true, nil
	}

	generation := s.cache.Generation(technicianID)
	start := time.Now()
	day, err := s.resolver.Resolve(ctx, technicianID, date)
	s.metrics.ObserveDBQuery("availability_resolve_day", time.Since(start))
	if err != nil {
		return models.DayAvailability{}, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve availability")
	}
	normalizeWindows(&day)

	result := []models.DayAvailability{day}
	s.metrics.RecordResolution(result)
	s.store(ctx, technicianID, generation, key, result)
	return day, false, nil
}

// Range resolves every date in [from, to]. The boolean reports whether the answer came from cache.
func (s *AvailabilityService) Range(ctx context.Context, technicianID string, from, to models.Date) ([]models.DayAvailability, bool, error) {
	if err := s.ValidateRange(from, to); err != nil {
		return nil, false, err
	}

	key := repository.AvailabilityCacheKey(technicianID, from, to)
	var cached []models.DayAvailability
	if s.lookup(ctx, key, &cached) {
		return cached, true, nil
	}

	generation := s.cache.Generation(technicianID)
	start := time.Now()
	days, err := s.resolver.ResolveRange(ctx, technicianID, from, to)
	s.metrics.ObserveDBQuery("availability_resolve_range", time.Since(start))
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve availability")
	}
	for i := range days {
		normalizeWindows(&days[i])
	}

	s.metrics.RecordResolution(days)
	s.store(ctx, technicianID, generation, key, days)
	return days, false, nil
}

// ValidateRange rejects inverted ranges and ranges wider than the configured maximum.
func (s *AvailabilityService) ValidateRange(from, to models.Date) error {
	if to.Before(from) {
		return appErrors.Validation("invalid date range", map[string]string{"to": "must not be before from"})
	}
	if span := from.DaysUntil(to) + 1; span > s.cfg.MaxRangeDays {
		return appErrors.Validation("invalid date range", map[string]string{
			"to": fmt.Sprintf("range may cover at most %d days", s.cfg.MaxRangeDays),
		})
	}
	return nil
}

func (s *AvailabilityService) lookup(ctx context.Context, key string, dest *[]models.DayAvailability) bool {
	if !s.cache.Enabled() {
		return false
	}
	hit, err := s.cache.Get(ctx, key, dest)
	if err != nil {
		return false
	}
	return hit
}

func (s *AvailabilityService) store(ctx context.Context, technicianID string, generation uint64, key string, days []models.DayAvailability) {
	if !s.cache.Enabled() {
		return
	}
	if _, err := s.cache.SetIfCurrent(ctx, technicianID, generation, key, days, s.cfg.CacheTTL); err != nil {
		s.logger.Debug("availability cache write skipped", zap.String("key", key), zap.Error(err))
	}
}

// normalizeWindows keeps empty days encoded as [] rather than null.
func normalizeWindows(day *models.DayAvailability) {
	if day.Windows == nil {
		day.Windows = []models.AvailabilityWindow{}
	}
}
