package models

import "time"

// ScheduleException overrides the weekly schedule for one calendar day.
type ScheduleException struct {
	ID           string     `db:"id" json:"id"`
	TechnicianID string     `db:"technician_id" json:"technician_id"`
	Date         Date       `db:"date" json:"date"`
	StartTime    *TimeOfDay `db:"start_time" json:"start_time"`
	EndTime      *TimeOfDay `db:"end_time" json:"end_time"`
	IsAvailable  bool       `db:"is_available" json:"is_available"`
	Reason       *string    `db:"reason" json:"reason"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// HasTimes reports whether both start and end times are set.
func (e ScheduleException) HasTimes() bool {
	return e.StartTime != nil && e.EndTime != nil
}

// ExceptionGroup is a derived run of consecutive exception rows sharing one signature.
type ExceptionGroup struct {
	StartDate    Date       `json:"start_date"`
	EndDate      Date       `json:"end_date"`
	StartTime    *TimeOfDay `json:"start_time"`
	EndTime      *TimeOfDay `json:"end_time"`
	IsAvailable  bool       `json:"is_available"`
	Reason       *string    `json:"reason"`
	ExceptionIDs []string   `json:"exception_ids"`
}

// Days returns the number of calendar days spanned by the group.
func (g ExceptionGroup) Days() int {
	return g.StartDate.DaysUntil(g.EndDate) + 1
}

// ExceptionFilter narrows exception listings.
type ExceptionFilter struct {
	From *Date
	To   *Date
}

// ConflictKind classifies why a candidate exception was rejected.
type ConflictKind string

const (
	// ConflictBoth marks two available windows on the same day whose times overlap.
	ConflictBoth ConflictKind = "both"
	// ConflictDateOverlap marks an available/unavailable disagreement on the same day.
	ConflictDateOverlap ConflictKind = "date_overlap"
)

// ExceptionConflict describes the existing row that blocks a candidate write.
type ExceptionConflict struct {
	Kind        ConflictKind `json:"kind"`
	Date        Date         `json:"date"`
	ExceptionID string       `json:"exception_id"`
	Message     string       `json:"message"`
}

// ExceptionConflictError carries a detected conflict through the error chain.
type ExceptionConflictError struct {
	Conflict ExceptionConflict `json:"conflict"`
}

// Error implements the error interface for conflict errors.
func (e *ExceptionConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Conflict.Message
}
