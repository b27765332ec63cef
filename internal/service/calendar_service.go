package service

import (
	"context"
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"
	"go.uber.org/zap"

	"github.com/noah-isme/technician-availability-api/internal/availability"
	"github.com/noah-isme/technician-availability-api/internal/models"
	appErrors "github.com/noah-isme/technician-availability-api/pkg/errors"
)

type availabilityRanger interface {
	Range(ctx context.Context, technicianID string, from, to models.Date) ([]models.DayAvailability, bool, error)
}

type exceptionLister interface {
	ListByTechnician(ctx context.Context, technicianID string, filter models.ExceptionFilter) ([]models.ScheduleException, error)
}

// CalendarServiceConfig shapes the generated iCalendar document.
type CalendarServiceConfig struct {
	ProductID string
	// Timezone applies to technicians without a valid timezone of their own.
	Timezone string
}

// CalendarService renders resolved availability as an iCalendar feed.
type CalendarService struct {
	technicians  technicianLookup
	availability availabilityRanger
	exceptions   exceptionLister
	cfg          CalendarServiceConfig
	now          func() time.Time
	logger       *zap.Logger
}

// NewCalendarService constructs a CalendarService.
func NewCalendarService(technicians technicianLookup, availability availabilityRanger, exceptions exceptionLister, cfg CalendarServiceConfig, logger *zap.Logger) *CalendarService {
	if cfg.ProductID == "" {
		cfg.ProductID = "-//technician-availability-api//EN"
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "UTC"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CalendarService{
		technicians:  technicians,
		availability: availability,
		exceptions:   exceptions,
		cfg:          cfg,
		now:          time.Now,
		logger:       logger,
	}
}

// Feed renders one VEVENT per availability window and one all-day VEVENT per run of block-out days.
func (s *CalendarService) Feed(ctx context.Context, technicianID string, from, to models.Date) (string, error) {
	technician, err := requireTechnician(ctx, s.technicians, technicianID)
	if err != nil {
		return "", err
	}

	days, _, err := s.availability.Range(ctx, technicianID, from, to)
	if err != nil {
		return "", err
	}

	rows, err := s.exceptions.ListByTechnician(ctx, technicianID, models.ExceptionFilter{From: &from, To: &to})
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exceptions")
	}

	loc, tzName := s.location(technician.Timezone)
	stamp := s.now().UTC()

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(s.cfg.ProductID)
	cal.SetXWRCalName(fmt.Sprintf("%s availability", technician.FullName))
	cal.SetXWRTimezone(tzName)

	windows := 0
	for _, day := range days {
		for _, window := range day.Windows {
			event := cal.AddEvent(fmt.Sprintf("%s-%s-%04d@technician-availability", technicianID, day.Date, int(window.StartTime)))
			event.SetDtStampTime(stamp)
			event.SetStartAt(window.StartTime.On(day.Date, loc).UTC())
			event.SetEndAt(window.EndTime.On(day.Date, loc).UTC())
			event.SetSummary("Available")
			event.SetProperty(ics.ComponentPropertyTransp, "TRANSPARENT")
			windows++
		}
	}

	blockOuts := make([]models.ScheduleException, 0, len(rows))
	for _, row := range rows {
		if !row.IsAvailable {
			blockOuts = append(blockOuts, row)
		}
	}
	groups := availability.GroupExceptions(blockOuts)
	for _, group := range groups {
		event := cal.AddEvent(fmt.Sprintf("%s-blockout-%s@technician-availability", technicianID, group.ExceptionIDs[0]))
		event.SetDtStampTime(stamp)
		event.SetAllDayStartAt(group.StartDate.Time)
		event.SetAllDayEndAt(group.EndDate.AddDays(1).Time)
		event.SetSummary(blockOutSummary(group.Reason))
		if group.Reason != nil {
			event.SetDescription(*group.Reason)
		}
		event.SetProperty(ics.ComponentPropertyTransp, "OPAQUE")
	}

	s.logger.Debug("calendar feed rendered",
		zap.String("technician_id", technicianID),
		zap.Int("windows", windows),
		zap.Int("block_outs", len(groups)),
	)
	return cal.Serialize(), nil
}

func (s *CalendarService) location(name string) (*time.Location, string) {
	for _, candidate := range []string{name, s.cfg.Timezone} {
		if candidate == "" {
			continue
		}
		if loc, err := time.LoadLocation(candidate); err == nil {
			return loc, candidate
		}
		s.logger.Warn("unknown calendar timezone", zap.String("timezone", candidate))
	}
	return time.UTC, "UTC"
}

func blockOutSummary(reason *string) string {
	if reason == nil || *reason == "" {
		return "Unavailable"
	}
	return "Unavailable: " + *reason
}
