package availability

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/noah-isme/technician-availability-api/internal/models"
)

// WeeklyBlockSource reads a technician's recurring schedule.
type WeeklyBlockSource interface {
	ListByTechnician(ctx context.Context, technicianID string) ([]models.WeeklyBlock, error)
	ListByTechnicianAndDay(ctx context.Context, technicianID string, dayOfWeek int) ([]models.WeeklyBlock, error)
}

// ExceptionSource reads a technician's per-day exception rows.
type ExceptionSource interface {
	ListByDateRange(ctx context.Context, technicianID string, from, to models.Date) ([]models.ScheduleException, error)
}

// Resolver combines the weekly schedule with exceptions for concrete dates.
type Resolver struct {
	weekly     WeeklyBlockSource
	exceptions ExceptionSource
}

// NewResolver constructs a Resolver over the given stores.
func NewResolver(weekly WeeklyBlockSource, exceptions ExceptionSource) *Resolver {
	return &Resolver{weekly: weekly, exceptions: exceptions}
}

// Resolve returns the available windows for technicianID on date.
// Unknown technicians and dates without data resolve to an empty list.
// An error is returned only when a store fails.
func (r *Resolver) Resolve(ctx context.Context, technicianID string, date models.Date) (models.DayAvailability, error) {
	exceptions, err := r.exceptions.ListByDateRange(ctx, technicianID, date, date)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return models.DayAvailability{}, fmt.Errorf("load exceptions for %s: %w", date, err)
	}

	// A full override never needs the weekly schedule.
	if day, decided := resolveFromExceptions(date, exceptions); decided {
		return day, nil
	}

	blocks, err := r.weekly.ListByTechnicianAndDay(ctx, technicianID, date.DayOfWeek())
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return models.DayAvailability{}, fmt.Errorf("load weekly blocks for %s: %w", date, err)
	}
	return ResolveDay(date, blocks, exceptions), nil
}

// ResolveRange resolves every day in [from, to] with one read per store.
func (r *Resolver) ResolveRange(ctx context.Context, technicianID string, from, to models.Date) ([]models.DayAvailability, error) {
	days := DateRange{Start: from, End: to}.Days()
	if len(days) == 0 {
		return []models.DayAvailability{}, nil
	}

	exceptions, err := r.exceptions.ListByDateRange(ctx, technicianID, from, to)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("load exceptions for %s..%s: %w", from, to, err)
	}
	blocks, err := r.weekly.ListByTechnician(ctx, technicianID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("load weekly blocks: %w", err)
	}

	byDate := make(map[models.Date][]models.ScheduleException, len(exceptions))
	for _, row := range exceptions {
		byDate[row.Date] = append(byDate[row.Date], row)
	}

	result := make([]models.DayAvailability, 0, len(days))
	for _, day := range days {
		result = append(result, ResolveDay(day, blocks, byDate[day]))
	}
	return result, nil
}

// ResolveDay is the pure resolution step over already loaded data.
//
// An unavailable exception empties the day. Available exceptions with
// explicit times replace the weekly schedule with their own windows.
// Available exceptions without times confirm the usual hours. Otherwise the
// weekday's available blocks are returned ordered by start time, unmerged.
func ResolveDay(date models.Date, weekly []models.WeeklyBlock, exceptions []models.ScheduleException) models.DayAvailability {
	if day, decided := resolveFromExceptions(date, exceptions); decided {
		return day
	}

	windows := make([]models.AvailabilityWindow, 0, len(weekly))
	weekday := date.DayOfWeek()
	for _, block := range weekly {
		if block.DayOfWeek != weekday || !block.IsAvailable {
			continue
		}
		windows = append(windows, models.AvailabilityWindow{StartTime: block.StartTime, EndTime: block.EndTime})
	}
	sortWindows(windows)
	return models.DayAvailability{Date: date, Windows: windows, Source: models.AvailabilitySourceWeekly}
}

func resolveFromExceptions(date models.Date, exceptions []models.ScheduleException) (models.DayAvailability, bool) {
	var timed []models.AvailabilityWindow
	for _, row := range exceptions {
		if !row.Date.Equal(date) {
			continue
		}
		if !row.IsAvailable {
			return models.DayAvailability{
				Date:    date,
				Windows: []models.AvailabilityWindow{},
				Source:  models.AvailabilitySourceException,
			}, true
		}
		if row.HasTimes() {
			timed = append(timed, models.AvailabilityWindow{StartTime: *row.StartTime, EndTime: *row.EndTime})
		}
	}
	if len(timed) == 0 {
		return models.DayAvailability{}, false
	}
	sortWindows(timed)
	return models.DayAvailability{Date: date, Windows: timed, Source: models.AvailabilitySourceException}, true
}

func sortWindows(windows []models.AvailabilityWindow) {
	sort.SliceStable(windows, func(i, j int) bool {
		if windows[i].StartTime != windows[j].StartTime {
			return windows[i].StartTime < windows[j].StartTime
		}
		return windows[i].EndTime < windows[j].EndTime
	})
}
