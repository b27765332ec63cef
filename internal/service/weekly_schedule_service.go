package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/technician-availability-api/internal/availability"
	"github.com/noah-isme/technician-availability-api/internal/models"
	appErrors "github.com/noah-isme/technician-availability-api/pkg/errors"
	"github.com/noah-isme/technician-availability-api/pkg/validation"
)

// technicianTxRunner serialises schedule writes per technician.
type technicianTxRunner interface {
	WithTechnicianLock(ctx context.Context, technicianID string, fn func(ctx context.Context, tx *sqlx.Tx) error) error
}

type weeklyBlockStore interface {
	ListByTechnician(ctx context.Context, technicianID string) ([]models.WeeklyBlock, error)
	ReplaceWithTx(ctx context.Context, tx *sqlx.Tx, technicianID string, blocks []models.WeeklyBlock) error
}

// availabilityInvalidator drops cached resolutions after a schedule write.
type availabilityInvalidator interface {
	InvalidateTechnician(ctx context.Context, technicianID string) error
}

// WeeklyBlockInput is one block of a weekly schedule replacement.
type WeeklyBlockInput struct {
	DayOfWeek   *int   `json:"day_of_week" validate:"required,min=0,max=6"`
	BlockName   string `json:"block_name" validate:"omitempty,max=100"`
	StartTime   string `json:"start_time" validate:"required"`
	EndTime     string `json:"end_time" validate:"required"`
	IsAvailable *bool  `json:"is_available"`
}

// ReplaceWeeklyScheduleRequest replaces every weekly block of a technician.
// An empty list clears the schedule.
type ReplaceWeeklyScheduleRequest struct {
	Blocks []WeeklyBlockInput `json:"blocks" validate:"max=200,dive"`
}

// WeeklyScheduleService manages recurring weekly blocks.
type WeeklyScheduleService struct {
	technicians technicianLookup
	blocks      weeklyBlockStore
	tx          technicianTxRunner
	cache       availabilityInvalidator
	policy      models.WeeklyBlockOverlapPolicy
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewWeeklyScheduleService constructs the service. cache may be nil.
func NewWeeklyScheduleService(technicians technicianLookup, blocks weeklyBlockStore, tx technicianTxRunner, cache availabilityInvalidator, policy models.WeeklyBlockOverlapPolicy, validate *validator.Validate, logger *zap.Logger) *WeeklyScheduleService {
	if validate == nil {
		validate = validation.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if policy != models.WeeklyOverlapAllow {
		policy = models.WeeklyOverlapReject
	}
	return &WeeklyScheduleService{
		technicians: technicians,
		blocks:      blocks,
		tx:          tx,
		cache:       cache,
		policy:      policy,
		validator:   validate,
		logger:      logger,
	}
}

// Get returns the technician's weekly blocks ordered by weekday and start time.
func (s *WeeklyScheduleService) Get(ctx context.Context, technicianID string) ([]models.WeeklyBlock, error) {
	if _, err := requireTechnician(ctx, s.technicians, technicianID); err != nil {
		return nil, err
	}
	blocks, err := s.blocks.ListByTechnician(ctx, technicianID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load weekly schedule")
	}
	if blocks == nil {
		blocks = []models.WeeklyBlock{}
	}
	return blocks, nil
}

// Replace validates the new schedule and swaps it in atomically.
func (s *WeeklyScheduleService) Replace(ctx context.Context, technicianID string, req ReplaceWeeklyScheduleRequest) ([]models.WeeklyBlock, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid weekly schedule payload")
	}

	blocks, err := s.parseBlocks(req.Blocks)
	if err != nil {
		return nil, err
	}

	if _, err := requireTechnician(ctx, s.technicians, technicianID); err != nil {
		return nil, err
	}

	err = s.tx.WithTechnicianLock(ctx, technicianID, func(ctx context.Context, tx *sqlx.Tx) error {
		return s.blocks.ReplaceWithTx(ctx, tx, technicianID, blocks)
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to replace weekly schedule")
	}

	s.invalidate(ctx, technicianID)
	s.logger.Info("weekly schedule replaced",
		zap.String("technician_id", technicianID),
		zap.Int("blocks", len(blocks)),
	)
	return blocks, nil
}

func (s *WeeklyScheduleService) parseBlocks(inputs []WeeklyBlockInput) ([]models.WeeklyBlock, error) {
	fields := make(map[string]string)
	blocks := make([]models.WeeklyBlock, 0, len(inputs))
	for i, in := range inputs {
		prefix := fmt.Sprintf("blocks[%d]", i)
		start, err := models.ParseTimeOfDay(strings.TrimSpace(in.StartTime))
		if err != nil {
			fields[prefix+".start_time"] = "must be HH:MM"
		}
		end, endErr := models.ParseTimeOfDay(strings.TrimSpace(in.EndTime))
		if endErr != nil {
			fields[prefix+".end_time"] = "must be HH:MM"
		}
		if err == nil && endErr == nil && !availability.IsValidTimeRange(start, end) {
			fields[prefix+".end_time"] = "must be after start_time"
		}

		available := true
		if in.IsAvailable != nil {
			available = *in.IsAvailable
		}
		day := *in.DayOfWeek
		name := strings.TrimSpace(in.BlockName)
		if name == "" {
			name = fmt.Sprintf("%s %s-%s", models.WeekdayNames[day], start, end)
		}
		blocks = append(blocks, models.WeeklyBlock{
			DayOfWeek:   day,
			BlockName:   name,
			StartTime:   start,
			EndTime:     end,
			IsAvailable: available,
		})
	}
	if len(fields) > 0 {
		return nil, appErrors.Validation("invalid weekly schedule payload", fields)
	}

	if s.policy == models.WeeklyOverlapReject {
		if fields := overlappingBlocks(blocks); len(fields) > 0 {
			return nil, appErrors.Validation("weekly blocks overlap", fields)
		}
	}

	sort.SliceStable(blocks, func(i, j int) bool {
		if blocks[i].DayOfWeek != blocks[j].DayOfWeek {
			return blocks[i].DayOfWeek < blocks[j].DayOfWeek
		}
		return blocks[i].StartTime < blocks[j].StartTime
	})
	return blocks, nil
}

// overlappingBlocks reports available blocks sharing a weekday whose times overlap.
// Keys use the request index of the later block.
func overlappingBlocks(blocks []models.WeeklyBlock) map[string]string {
	fields := make(map[string]string)
	for i := range blocks {
		if !blocks[i].IsAvailable {
			continue
		}
		for j := 0; j < i; j++ {
			if !blocks[j].IsAvailable || blocks[j].DayOfWeek != blocks[i].DayOfWeek {
				continue
			}
			a := availability.TimeRange{Start: blocks[i].StartTime, End: blocks[i].EndTime}
			b := availability.TimeRange{Start: blocks[j].StartTime, End: blocks[j].EndTime}
			if availability.TimeRangesOverlap(a, b) {
				fields[fmt.Sprintf("blocks[%d].start_time", i)] = fmt.Sprintf("overlaps blocks[%d]", j)
				break
			}
		}
	}
	return fields
}

func (s *WeeklyScheduleService) invalidate(ctx context.Context, technicianID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateTechnician(ctx, technicianID); err != nil {
		s.logger.Warn("availability cache invalidation failed", zap.String("technician_id", technicianID), zap.Error(err))
	}
}
