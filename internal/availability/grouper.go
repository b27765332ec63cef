package availability

import (
	"sort"

	"github.com/noah-isme/technician-availability-api/internal/models"
)

// GroupExceptions collapses per-day exception rows into maximal runs of
// consecutive days sharing availability, times and reason.
// The input slice is not modified.
func GroupExceptions(rows []models.ScheduleException) []models.ExceptionGroup {
	if len(rows) == 0 {
		return []models.ExceptionGroup{}
	}

	sorted := make([]models.ScheduleException, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].Date.Equal(sorted[j].Date) {
			return sorted[i].Date.Before(sorted[j].Date)
		}
		return sorted[i].ID < sorted[j].ID
	})

	groups := make([]models.ExceptionGroup, 0, len(sorted))
	current := newGroup(sorted[0])
	for _, row := range sorted[1:] {
		if row.Date.Equal(current.EndDate.AddDays(1)) && sameSignature(current, row) {
			current.EndDate = row.Date
			current.ExceptionIDs = append(current.ExceptionIDs, row.ID)
			continue
		}
		groups = append(groups, current)
		current = newGroup(row)
	}
	return append(groups, current)
}

func newGroup(row models.ScheduleException) models.ExceptionGroup {
	return models.ExceptionGroup{
		StartDate:    row.Date,
		EndDate:      row.Date,
		StartTime:    row.StartTime,
		EndTime:      row.EndTime,
		IsAvailable:  row.IsAvailable,
		Reason:       row.Reason,
		ExceptionIDs: []string{row.ID},
	}
}

func sameSignature(g models.ExceptionGroup, row models.ScheduleException) bool {
	return g.IsAvailable == row.IsAvailable &&
		models.EqualTimePtr(g.StartTime, row.StartTime) &&
		models.EqualTimePtr(g.EndTime, row.EndTime) &&
		equalReason(g.Reason, row.Reason)
}

func equalReason(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
