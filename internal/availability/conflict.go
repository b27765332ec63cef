package availability

import (
	"fmt"

	"github.com/noah-isme/technician-availability-api/internal/models"
)

// Candidate is a prospective exception write covering a range of days.
type Candidate struct {
	Dates       DateRange
	StartTime   *models.TimeOfDay
	EndTime     *models.TimeOfDay
	IsAvailable bool
}

func (c Candidate) hasTimes() bool {
	return c.StartTime != nil && c.EndTime != nil
}

// CheckConflict returns the first existing exception that contradicts the
// candidate, or nil when the candidate may be stored.
//
// Callers editing a group must leave that group's rows out of existing.
// Two block-outs never conflict, and two available rows only conflict when
// both carry explicit times that overlap. Any available/unavailable
// disagreement on a shared day is a conflict.
func CheckConflict(candidate Candidate, existing []models.ScheduleException) *models.ExceptionConflict {
	for _, row := range existing {
		if !DateRangesOverlap(candidate.Dates, SingleDay(row.Date)) {
			continue
		}

		if candidate.IsAvailable && row.IsAvailable {
			if !candidate.hasTimes() || !row.HasTimes() {
				continue
			}
			ours := TimeRange{Start: *candidate.StartTime, End: *candidate.EndTime}
			theirs := TimeRange{Start: *row.StartTime, End: *row.EndTime}
			if !TimeRangesOverlap(ours, theirs) {
				continue
			}
			return &models.ExceptionConflict{
				Kind:        models.ConflictBoth,
				Date:        row.Date,
				ExceptionID: row.ID,
				Message: fmt.Sprintf("%s-%s overlaps existing available hours %s-%s on %s",
					ours.Start, ours.End, theirs.Start, theirs.End, row.Date),
			}
		}

		if candidate.IsAvailable != row.IsAvailable {
			return &models.ExceptionConflict{
				Kind:        models.ConflictDateOverlap,
				Date:        row.Date,
				ExceptionID: row.ID,
				Message:     dateOverlapMessage(row),
			}
		}
	}
	return nil
}

func dateOverlapMessage(row models.ScheduleException) string {
	if row.IsAvailable {
		return fmt.Sprintf("%s already has available hours set; remove them before blocking the day", row.Date)
	}
	if row.Reason != nil && *row.Reason != "" {
		return fmt.Sprintf("%s is already marked unavailable (%s)", row.Date, *row.Reason)
	}
	return fmt.Sprintf("%s is already marked unavailable", row.Date)
}
