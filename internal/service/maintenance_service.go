package service

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/noah-isme/technician-availability-api/internal/models"
)

const (
	defaultPruneSchedule         = "30 3 * * *"
	defaultExportCleanupSchedule = "@hourly"
)

type exceptionPruner interface {
	DeleteBefore(ctx context.Context, cutoff models.Date) (int64, error)
}

type exportCleaner interface {
	CleanupExpired(ctx context.Context) int
}

type sessionPruner interface {
	DeleteSessionsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// MaintenanceOption customises a MaintenanceService.
type MaintenanceOption func(*MaintenanceService)

// WithSessionPruner adds nightly removal of dead refresh-token sessions.
func WithSessionPruner(p sessionPruner, grace time.Duration) MaintenanceOption {
	return func(s *MaintenanceService) {
		s.sessions = p
		if grace > 0 {
			s.sessionGrace = grace
		}
	}
}

// MaintenanceConfig controls the housekeeping schedule.
type MaintenanceConfig struct {
	ExceptionRetentionDays int
	PruneSchedule          string
	ExportCleanupSchedule  string
}

// MaintenanceService runs periodic housekeeping on a cron schedule.
type MaintenanceService struct {
	exceptions exceptionPruner
	exports    exportCleaner
	sessions   sessionPruner
	metrics    *MetricsService
	cfg        MaintenanceConfig
	logger     *zap.Logger
	now        func() time.Time

	sessionGrace time.Duration

	mu     sync.Mutex
	cron   *cron.Cron
	cancel context.CancelFunc
}

// NewMaintenanceService constructs the service. exports may be nil when exports are disabled.
func NewMaintenanceService(exceptions exceptionPruner, exports exportCleaner, metrics *MetricsService, cfg MaintenanceConfig, logger *zap.Logger, opts ...MaintenanceOption) *MaintenanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ExceptionRetentionDays <= 0 {
		cfg.ExceptionRetentionDays = 365
	}
	svc := &MaintenanceService{
		exceptions:   exceptions,
		exports:      exports,
		metrics:      metrics,
		cfg:          cfg,
		logger:       logger,
		now:          time.Now,
		sessionGrace: 7 * 24 * time.Hour,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Start registers the jobs and starts the scheduler. Invalid specs fall back to defaults.
func (s *MaintenanceService) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	c := cron.New()

	s.schedule(c, "exception_prune", s.cfg.PruneSchedule, defaultPruneSchedule, func() {
		if _, err := s.PruneExceptions(runCtx); err != nil {
			s.logger.Warn("maintenance: exception prune failed", zap.Error(err))
		}
		if _, err := s.PruneSessions(runCtx); err != nil {
			s.logger.Warn("maintenance: session prune failed", zap.Error(err))
		}
	})
	if s.exports != nil {
		s.schedule(c, "export_cleanup", s.cfg.ExportCleanupSchedule, defaultExportCleanupSchedule, func() {
			s.CleanupExports(runCtx)
		})
	}

	c.Start()
	s.cron = c
	s.logger.Info("maintenance scheduler started", zap.Int("jobs", len(c.Entries())))
}

// Stop halts the scheduler and waits for running jobs to finish.
func (s *MaintenanceService) Stop() {
	s.mu.Lock()
	c := s.cron
	cancel := s.cancel
	s.cron = nil
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if c != nil {
		<-c.Stop().Done()
	}
}

func (s *MaintenanceService) schedule(c *cron.Cron, name, spec, fallback string, fn func()) {
	if spec == "" {
		spec = fallback
	}
	if _, err := c.AddFunc(spec, fn); err != nil {
		s.logger.Warn("maintenance: invalid cron spec, using default",
			zap.String("job", name),
			zap.String("spec", spec),
			zap.String("default", fallback),
			zap.Error(err),
		)
		_, _ = c.AddFunc(fallback, fn)
	}
}

// PruneExceptions deletes exception rows dated before the retention horizon.
// Cached ranges covering pruned dates age out with the cache TTL.
func (s *MaintenanceService) PruneExceptions(ctx context.Context) (int64, error) {
	cutoff := models.DateOf(s.now()).AddDays(-s.cfg.ExceptionRetentionDays)
	deleted, err := s.exceptions.DeleteBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	s.metrics.RecordPrunedExceptions(deleted)
	if deleted > 0 {
		s.logger.Info("pruned schedule exceptions", zap.Int64("deleted", deleted), zap.String("before", cutoff.String()))
	}
	return deleted, nil
}

// PruneSessions deletes refresh-token sessions that died more than the grace period ago.
func (s *MaintenanceService) PruneSessions(ctx context.Context) (int64, error) {
	if s.sessions == nil {
		return 0, nil
	}
	deleted, err := s.sessions.DeleteSessionsBefore(ctx, s.now().UTC().Add(-s.sessionGrace))
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		s.logger.Info("pruned refresh sessions", zap.Int64("deleted", deleted))
	}
	return deleted, nil
}

// CleanupExports removes export artifacts past their TTL.
func (s *MaintenanceService) CleanupExports(ctx context.Context) int {
	if s.exports == nil {
		return 0
	}
	removed := s.exports.CleanupExpired(ctx)
	if removed > 0 {
		s.logger.Info("cleaned expired exports", zap.Int("removed", removed))
	}
	return removed
}
