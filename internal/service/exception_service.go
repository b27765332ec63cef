package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/technician-availability-api/internal/availability"
	"github.com/noah-isme/technician-availability-api/internal/models"
	appErrors "github.com/noah-isme/technician-availability-api/pkg/errors"
	"github.com/noah-isme/technician-availability-api/pkg/validation"
)

// maxExceptionSpanDays bounds how many rows a single request may expand into.
const maxExceptionSpanDays = 366

type exceptionStore interface {
	ListByTechnician(ctx context.Context, technicianID string, filter models.ExceptionFilter) ([]models.ScheduleException, error)
	ListByDateRangeWithTx(ctx context.Context, tx *sqlx.Tx, technicianID string, from, to models.Date) ([]models.ScheduleException, error)
	FindByIDsWithTx(ctx context.Context, tx *sqlx.Tx, technicianID string, ids []string) ([]models.ScheduleException, error)
	InsertWithTx(ctx context.Context, tx *sqlx.Tx, rows []models.ScheduleException) error
	DeleteByIDs(ctx context.Context, technicianID string, ids []string) (int64, error)
	DeleteByIDsWithTx(ctx context.Context, tx *sqlx.Tx, technicianID string, ids []string) (int64, error)
}

// ExceptionRequest creates one exception row per day between StartDate and EndDate.
// EndDate defaults to StartDate. Times are ignored for block-outs.
type ExceptionRequest struct {
	StartDate   string  `json:"start_date" validate:"required"`
	EndDate     string  `json:"end_date"`
	StartTime   *string `json:"start_time"`
	EndTime     *string `json:"end_time"`
	IsAvailable *bool   `json:"is_available" validate:"required"`
	Reason      *string `json:"reason" validate:"omitempty,max=500"`
}

// UpdateExceptionGroupRequest replaces the rows of one exception group with a new payload.
type UpdateExceptionGroupRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,max=1000,dive,required"`
	ExceptionRequest
}

// DeleteExceptionsRequest removes exception rows by id.
type DeleteExceptionsRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,max=1000,dive,required"`
}

type exceptionInput struct {
	dates     availability.DateRange
	startTime *models.TimeOfDay
	endTime   *models.TimeOfDay
	available bool
	reason    *string
}

func (in exceptionInput) candidate() availability.Candidate {
	return availability.Candidate{
		Dates:       in.dates,
		StartTime:   in.startTime,
		EndTime:     in.endTime,
		IsAvailable: in.available,
	}
}

func (in exceptionInput) rows(technicianID string) []models.ScheduleException {
	days := in.dates.Days()
	rows := make([]models.ScheduleException, 0, len(days))
	for _, day := range days {
		rows = append(rows, models.ScheduleException{
			TechnicianID: technicianID,
			Date:         day,
			StartTime:    in.startTime,
			EndTime:      in.endTime,
			IsAvailable:  in.available,
			Reason:       in.reason,
		})
	}
	return rows
}

// ExceptionService manages per-day schedule exceptions.
type ExceptionService struct {
	technicians technicianLookup
	store       exceptionStore
	tx          technicianTxRunner
	cache       availabilityInvalidator
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewExceptionService constructs the service. cache and metrics may be nil.
func NewExceptionService(technicians technicianLookup, store exceptionStore, tx technicianTxRunner, cache availabilityInvalidator, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *ExceptionService {
	if validate == nil {
		validate = validation.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExceptionService{
		technicians: technicians,
		store:       store,
		tx:          tx,
		cache:       cache,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
	}
}

// List returns the technician's exception rows ordered by date.
func (s *ExceptionService) List(ctx context.Context, technicianID string, filter models.ExceptionFilter) ([]models.ScheduleException, error) {
	if _, err := requireTechnician(ctx, s.technicians, technicianID); err != nil {
		return nil, err
	}
	rows, err := s.store.ListByTechnician(ctx, technicianID, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list exceptions")
	}
	if rows == nil {
		rows = []models.ScheduleException{}
	}
	return rows, nil
}

// Groups returns the technician's exceptions collapsed into consecutive runs.
func (s *ExceptionService) Groups(ctx context.Context, technicianID string, filter models.ExceptionFilter) ([]models.ExceptionGroup, error) {
	rows, err := s.List(ctx, technicianID, filter)
	if err != nil {
		return nil, err
	}
	return availability.GroupExceptions(rows), nil
}

// Create stores one exception row per requested day unless an existing row conflicts.
// The conflict check and the insert share one transaction under the technician lock.
func (s *ExceptionService) Create(ctx context.Context, technicianID string, req ExceptionRequest) ([]models.ScheduleException, error) {
	input, err := s.parse(req)
	if err != nil {
		return nil, err
	}
	if _, err := requireTechnician(ctx, s.technicians, technicianID); err != nil {
		return nil, err
	}

	rows := input.rows(technicianID)
	err = s.tx.WithTechnicianLock(ctx, technicianID, func(ctx context.Context, tx *sqlx.Tx) error {
		existing, err := s.store.ListByDateRangeWithTx(ctx, tx, technicianID, input.dates.Start, input.dates.End)
		if err != nil {
			return err
		}
		if conflict := availability.CheckConflict(input.candidate(), existing); conflict != nil {
			return s.conflictError(technicianID, conflict)
		}
		return s.store.InsertWithTx(ctx, tx, rows)
	})
	if err != nil {
		return nil, translateWriteError(err, "failed to create exception")
	}

	s.invalidate(ctx, technicianID)
	s.logger.Info("schedule exception created",
		zap.String("technician_id", technicianID),
		zap.String("start_date", input.dates.Start.String()),
		zap.String("end_date", input.dates.End.String()),
		zap.Bool("is_available", input.available),
	)
	return rows, nil
}

// UpdateGroup deletes the rows named by req.IDs and recreates them from the new payload.
// Every id must belong to the technician. The group's own rows are left out of the conflict check.
func (s *ExceptionService) UpdateGroup(ctx context.Context, technicianID string, req UpdateExceptionGroupRequest) ([]models.ScheduleException, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid exception payload")
	}
	input, err := s.parse(req.ExceptionRequest)
	if err != nil {
		return nil, err
	}
	if _, err := requireTechnician(ctx, s.technicians, technicianID); err != nil {
		return nil, err
	}

	ids := uniqueIDs(req.IDs)
	editing := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		editing[id] = struct{}{}
	}

	rows := input.rows(technicianID)
	err = s.tx.WithTechnicianLock(ctx, technicianID, func(ctx context.Context, tx *sqlx.Tx) error {
		current, err := s.store.FindByIDsWithTx(ctx, tx, technicianID, ids)
		if err != nil {
			return err
		}
		if len(current) != len(ids) {
			return appErrors.Clone(appErrors.ErrNotFound, "exception not found")
		}

		existing, err := s.store.ListByDateRangeWithTx(ctx, tx, technicianID, input.dates.Start, input.dates.End)
		if err != nil {
			return err
		}
		others := existing[:0:0]
		for _, row := range existing {
			if _, ok := editing[row.ID]; !ok {
				others = append(others, row)
			}
		}
		if conflict := availability.CheckConflict(input.candidate(), others); conflict != nil {
			return s.conflictError(technicianID, conflict)
		}

		if _, err := s.store.DeleteByIDsWithTx(ctx, tx, technicianID, ids); err != nil {
			return err
		}
		return s.store.InsertWithTx(ctx, tx, rows)
	})
	if err != nil {
		return nil, translateWriteError(err, "failed to update exception group")
	}

	s.invalidate(ctx, technicianID)
	s.logger.Info("schedule exception group replaced",
		zap.String("technician_id", technicianID),
		zap.Int("removed", len(ids)),
		zap.Int("created", len(rows)),
	)
	return rows, nil
}

// Delete removes the technician's rows among req.IDs and reports how many were removed.
// Ids owned by other technicians are ignored.
func (s *ExceptionService) Delete(ctx context.Context, technicianID string, req DeleteExceptionsRequest) (int64, error) {
	if err := s.validator.Struct(req); err != nil {
		return 0, appErrors.Invalid(err, "invalid delete payload")
	}
	if _, err := requireTechnician(ctx, s.technicians, technicianID); err != nil {
		return 0, err
	}

	deleted, err := s.store.DeleteByIDs(ctx, technicianID, uniqueIDs(req.IDs))
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete exceptions")
	}
	if deleted > 0 {
		s.invalidate(ctx, technicianID)
	}
	s.logger.Info("schedule exceptions deleted",
		zap.String("technician_id", technicianID),
		zap.Int("requested", len(req.IDs)),
		zap.Int64("deleted", deleted),
	)
	return deleted, nil
}

func (s *ExceptionService) parse(req ExceptionRequest) (exceptionInput, error) {
	if err := s.validator.Struct(req); err != nil {
		return exceptionInput{}, appErrors.Invalid(err, "invalid exception payload")
	}

	fields := make(map[string]string)
	start, err := models.ParseDate(strings.TrimSpace(req.StartDate))
	if err != nil {
		fields["start_date"] = "must be YYYY-MM-DD"
	}
	end := start
	if strings.TrimSpace(req.EndDate) != "" {
		if end, err = models.ParseDate(strings.TrimSpace(req.EndDate)); err != nil {
			fields["end_date"] = "must be YYYY-MM-DD"
		}
	}
	if len(fields) == 0 {
		switch {
		case end.Before(start):
			fields["end_date"] = "must not be before start_date"
		case start.DaysUntil(end)+1 > maxExceptionSpanDays:
			fields["end_date"] = "range is too long"
		}
	}

	input := exceptionInput{
		dates:     availability.DateRange{Start: start, End: end},
		available: *req.IsAvailable,
		reason:    normalizeOptional(req.Reason),
	}

	if input.available {
		startTime, endTime := optionalTime(req.StartTime), optionalTime(req.EndTime)
		switch {
		case startTime == "" && endTime == "":
		case startTime == "" || endTime == "":
			fields["start_time"] = "start_time and end_time must be given together"
		default:
			from, err := models.ParseTimeOfDay(startTime)
			if err != nil {
				fields["start_time"] = "must be HH:MM"
			}
			to, toErr := models.ParseTimeOfDay(endTime)
			if toErr != nil {
				fields["end_time"] = "must be HH:MM"
			}
			if err == nil && toErr == nil {
				if !availability.IsValidTimeRange(from, to) {
					fields["end_time"] = "must be after start_time"
				}
				input.startTime = models.TimePtr(from)
				input.endTime = models.TimePtr(to)
			}
		}
	}

	if len(fields) > 0 {
		return exceptionInput{}, appErrors.Validation("invalid exception payload", fields)
	}
	return input, nil
}

func (s *ExceptionService) conflictError(technicianID string, conflict *models.ExceptionConflict) error {
	s.metrics.RecordConflict(conflict.Kind)
	s.logger.Info("schedule exception rejected",
		zap.String("technician_id", technicianID),
		zap.String("kind", string(conflict.Kind)),
		zap.String("conflicting_id", conflict.ExceptionID),
	)
	err := appErrors.Wrap(&models.ExceptionConflictError{Conflict: *conflict}, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, conflict.Message)
	return appErrors.WithDetails(err, conflict)
}

func (s *ExceptionService) invalidate(ctx context.Context, technicianID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateTechnician(ctx, technicianID); err != nil {
		s.logger.Warn("availability cache invalidation failed", zap.String("technician_id", technicianID), zap.Error(err))
	}
}

// translateWriteError keeps typed errors raised inside a transaction and wraps store failures.
func translateWriteError(err error, message string) error {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

func optionalTime(raw *string) string {
	if raw == nil {
		return ""
	}
	return strings.TrimSpace(*raw)
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
