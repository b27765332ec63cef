// Package availability resolves technician working windows from a weekly
// schedule and per-day exceptions, and decides whether new exceptions may be
// stored next to existing ones.
//
// Interval comparisons live here only, so the conflict detector and the
// resolver cannot disagree on edge cases.
package availability

import "github.com/noah-isme/technician-availability-api/internal/models"

// DateRange is an inclusive span of calendar days. A single day has Start == End.
type DateRange struct {
	Start models.Date
	End   models.Date
}

// SingleDay returns the range covering only d.
func SingleDay(d models.Date) DateRange {
	return DateRange{Start: d, End: d}
}

// Days expands the range into one date per calendar day.
func (r DateRange) Days() []models.Date {
	if r.End.Before(r.Start) {
		return nil
	}
	days := make([]models.Date, 0, r.Start.DaysUntil(r.End)+1)
	for d := r.Start; !d.After(r.End); d = d.AddDays(1) {
		days = append(days, d)
	}
	return days
}

// Contains reports whether d falls inside the range.
func (r DateRange) Contains(d models.Date) bool {
	return !d.Before(r.Start) && !d.After(r.End)
}

// TimeRange is a half-open time-of-day interval on a common reference day.
type TimeRange struct {
	Start models.TimeOfDay
	End   models.TimeOfDay
}

// DateRangesOverlap reports whether two inclusive day ranges share at least one day.
func DateRangesOverlap(a, b DateRange) bool {
	return !a.Start.After(b.End) && !b.Start.After(a.End)
}

// TimeRangesOverlap reports whether two time ranges intersect. Touching endpoints do not overlap.
func TimeRangesOverlap(a, b TimeRange) bool {
	return a.Start < b.End && b.Start < a.End
}

// IsValidTimeRange reports whether start is strictly before end.
func IsValidTimeRange(start, end models.TimeOfDay) bool {
	return start < end
}
